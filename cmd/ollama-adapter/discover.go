package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2aclient"
)

// DiscoverCmd discovers a peer's capabilities by fetching its AgentCard.
type DiscoverCmd struct {
	Peer string `arg:"" help:"Peer address or name"`
}

// Run executes the discover command.
func (c *DiscoverCmd) Run(cli *CLI) error {
	addr := cli.ResolvePeer(c.Peer)
	slog.Debug("discovering", "addr", addr)

	conn, err := ConnectToPeer(addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	transport := conn.A2ATransport()
	defer transport.Destroy()

	return doDiscover(context.Background(), os.Stdout, transport)
}

func doDiscover(ctx context.Context, w io.Writer, transport a2aclient.Transport) error {
	card, err := transport.GetAgentCard(ctx)
	if err != nil {
		return fmt.Errorf("get agent card failed: %w", err)
	}

	printAgentCard(w, card)
	return nil
}

func printAgentCard(w io.Writer, card *a2a.AgentCard) {
	fmt.Fprintf(w, "Agent: %s\n", card.Name)
	if card.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", card.Description)
	}
	if card.URL != "" {
		fmt.Fprintf(w, "URL: %s\n", card.URL)
	}
	fmt.Fprintf(w, "Transport: %s\n", card.PreferredTransport)

	if len(card.DefaultInputModes) > 0 {
		fmt.Fprintf(w, "Input Modes: %s\n", strings.Join(card.DefaultInputModes, ", "))
	}
	if len(card.DefaultOutputModes) > 0 {
		fmt.Fprintf(w, "Output Modes: %s\n", strings.Join(card.DefaultOutputModes, ", "))
	}

	fmt.Fprintf(w, "Streaming: %v\n", card.Capabilities.Streaming)

	if len(card.Skills) > 0 {
		fmt.Fprintf(w, "\nSkills:\n")
		for _, skill := range card.Skills {
			fmt.Fprintf(w, "  - %s: %s\n", skill.ID, skill.Description)
			if len(skill.Tags) > 0 {
				fmt.Fprintf(w, "    Tags: [%s]\n", strings.Join(skill.Tags, ", "))
			}
			if len(skill.Examples) > 0 {
				fmt.Fprintf(w, "    Examples:\n")
				for _, ex := range skill.Examples {
					fmt.Fprintf(w, "      - %s\n", ex)
				}
			}
		}
	}
}
