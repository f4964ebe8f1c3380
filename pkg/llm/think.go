package llm

import "strings"

// Markers delimiting model reasoning that must not reach the user.
const (
	ThinkStart = "<think>"
	ThinkEnd   = "</think>"
)

// ThinkFilter suppresses thinking segments in a stream of text fragments.
//
// Markers are only recognized when they are fully contained in a single
// fragment. A marker split across two fragments passes through undetected.
// One filter serves one stream; it is not safe for concurrent use.
type ThinkFilter struct {
	active bool
}

// NewThinkFilter returns a filter that initially passes text through.
func NewThinkFilter() *ThinkFilter {
	return &ThinkFilter{active: true}
}

// Push feeds one fragment and returns the text to emit, if any.
//
// The fragment is split at start markers and each piece is handled in
// order. Text after the last end marker of a piece is visible and turns the
// filter active; without an end marker the piece is visible only if the
// filter already was. A start marker turns the filter inactive for the rest
// of the fragment until an end marker follows.
func (f *ThinkFilter) Push(content string) (string, bool) {
	var out strings.Builder
	for content != "" {
		piece, rest, started := strings.Cut(content, ThinkStart)
		if i := strings.LastIndex(piece, ThinkEnd); i >= 0 {
			f.active = true
			piece = piece[i+len(ThinkEnd):]
		}
		if f.active {
			out.WriteString(piece)
		}
		if !started {
			break
		}
		f.active = false
		content = rest
	}

	if out.Len() == 0 {
		return "", false
	}
	return out.String(), true
}

// Active reports whether text is currently being passed through.
func (f *ThinkFilter) Active() bool {
	return f.active
}
