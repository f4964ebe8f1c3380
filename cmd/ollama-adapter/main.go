// ollama-adapter serves an Ollama model over A2A with reasoning segments
// removed from the response stream.
package main

import (
	"log"
	"os"

	"github.com/alecthomas/kong"
)

const (
	appName        = "ollama-adapter"
	appDescription = "Streaming Ollama adapter for agent orchestration"
)

func main() {
	cli := CLI{}

	// First pass: parse to get --config path
	parser, err := kong.New(&cli,
		kong.Name(appName),
		kong.Description(appDescription),
	)
	if err != nil {
		log.Fatalf("failed to create parser: %v", err)
	}

	// First pass ignores errors (we just need the config path)
	_, _ = parser.Parse(os.Args[1:])

	if err := LoadConfigFile(cli.Config, &cli); err != nil {
		log.Fatalf("failed to load config file: %v", err)
	}

	// Second pass: CLI/env override file values, run subcommand
	ctx := kong.Parse(&cli,
		kong.Name(appName),
		kong.Description(appDescription),
		kong.UsageOnError(),
	)

	setupLogger(cli.LogLevel)

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
