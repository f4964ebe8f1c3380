package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/shanemcd/ollama-adapter/pkg/a2aexec"
	"github.com/shanemcd/ollama-adapter/pkg/control"
	"github.com/shanemcd/ollama-adapter/pkg/llm"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd runs the adapter as a daemon, listening for A2A connections.
type ServeCmd struct{}

// Run executes the serve command.
func (c *ServeCmd) Run(cli *CLI) error {
	slog.Info("ollama-adapter starting", "addr", cli.Server.Addr)

	listener, err := net.Listen("tcp", cli.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	provider, err := cli.CreateLLMProvider()
	if err != nil {
		listener.Close()
		return fmt.Errorf("create LLM provider: %w", err)
	}
	slog.Info("LLM provider", "provider", cli.LLM.Provider, "name", provider.Name())

	srv := newServer(serverConfig{
		listener:    listener,
		identity:    cli.Identity(),
		llmProvider: provider,
		agentCard:   cli.AgentCard(listener.Addr().String(), provider),
		streaming:   cli.Agent.Streaming,
		limiter:     cli.Limiter(),
	})

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			slog.Info("received shutdown signal")
			srv.shutdown(shutdownTimeout)
		case <-srv.ctx.Done():
		}
	}()

	if err := srv.run(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("ollama-adapter stopped")
	return nil
}

// server encapsulates the daemon's runtime components.
type server struct {
	listener  net.Listener
	a2aServer *grpc.Server
	health    *health.Server
	state     *control.State

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type serverConfig struct {
	listener    net.Listener
	identity    string
	llmProvider llm.Provider
	agentCard   *a2a.AgentCard
	streaming   bool
	limiter     *rate.Limiter
}

func newServer(cfg serverConfig) *server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &server{
		listener: cfg.listener,
		state:    control.NewState(cfg.identity),
		health:   health.NewServer(),
		ctx:      ctx,
		cancel:   cancel,
	}
	if op, ok := cfg.llmProvider.(*llm.OllamaProvider); ok {
		s.state.SetMetadata("model", op.Model())
		s.state.SetMetadata("base_url", op.BaseURL())
	}
	s.syncHealth()

	s.a2aServer = grpc.NewServer()

	executor := a2aexec.NewExecutor(cfg.llmProvider)
	executor.Streaming = cfg.streaming
	executor.State = s.state
	executor.Limiter = cfg.limiter

	a2aexec.RegisterWithGRPC(s.a2aServer, &a2aexec.ServerConfig{
		Executor:  executor,
		AgentCard: cfg.agentCard,
		Health:    s.health,
	})

	return s
}

// servingStatus maps a lifecycle phase to a health check status.
func servingStatus(phase control.Phase) healthpb.HealthCheckResponse_ServingStatus {
	switch phase {
	case control.PhaseReady, control.PhaseBusy:
		return healthpb.HealthCheckResponse_SERVING
	default:
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
}

// syncHealth publishes the current phase to the health service.
func (s *server) syncHealth() {
	a2aexec.SetServingStatus(s.health, servingStatus(s.state.Phase()))
}

func (s *server) run() error {
	s.state.SetReady()
	s.syncHealth()
	slog.Info("ready", "addr", s.listener.Addr().String(), "status", s.state.Status())

	errChan := make(chan error, 1)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.a2aServer.Serve(s.listener); err != nil {
			select {
			case <-s.ctx.Done():
			case errChan <- fmt.Errorf("a2a server: %w", err):
			}
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-s.ctx.Done():
		slog.Info("shutdown complete", "status", s.state.Status())
	case err := <-errChan:
		s.cancel()
		return err
	}

	return nil
}

// shutdown drains open streams and stops the server. Streams still open
// after timeout are cut off.
func (s *server) shutdown(timeout time.Duration) {
	slog.Info("shutdown requested", "timeout", timeout, "status", s.state.Status())

	s.state.SetDraining()
	s.syncHealth()

	done := make(chan struct{})
	go func() {
		s.a2aServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		slog.Warn("graceful shutdown timeout exceeded, forcing stop")
		s.a2aServer.Stop()
		<-done
	}

	s.state.SetStopped()
	s.health.Shutdown()
	s.cancel()
	s.wg.Wait()
}
