package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/shanemcd/ollama-adapter/pkg/a2aexec"
)

// StatusCmd gets the serving status of a peer.
type StatusCmd struct {
	Peer    string        `arg:"" help:"Peer address or name"`
	Timeout time.Duration `help:"Request timeout" default:"5s"`
}

// Run executes the status command.
func (c *StatusCmd) Run(cli *CLI) error {
	addr := cli.ResolvePeer(c.Peer)
	slog.Debug("getting status", "addr", addr)

	conn, err := ConnectToPeer(addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	return doGetStatus(ctx, os.Stdout, conn.HealthClient())
}

func doGetStatus(ctx context.Context, w io.Writer, client healthpb.HealthClient) error {
	for _, service := range []string{"", a2aexec.ServiceName} {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			return fmt.Errorf("get status failed: %w", err)
		}

		name := service
		if name == "" {
			name = "server"
		}
		fmt.Fprintf(w, "%s: %s\n", name, resp.GetStatus())
	}
	return nil
}
