package a2aexec

import (
	"context"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/shanemcd/ollama-adapter/pkg/llm"
)

func echoProvider() llm.Provider {
	return llm.NewOllamaProvider(llm.OllamaConfig{ModelName: "echo"}, llm.WithChunkSource(llm.NewEchoSource()))
}

func TestRegisterWithGRPC(t *testing.T) {
	server := grpc.NewServer()

	cfg := &ServerConfig{
		Executor: NewExecutor(echoProvider()),
		AgentCard: &a2a.AgentCard{
			Name:               "test-adapter",
			Description:        "A test adapter",
			URL:                "localhost:4433",
			PreferredTransport: a2a.TransportProtocolGRPC,
			DefaultInputModes:  []string{"text"},
			DefaultOutputModes: []string{"text"},
			Capabilities: a2a.AgentCapabilities{
				Streaming: true,
			},
		},
	}

	// Should not panic
	RegisterWithGRPC(server, cfg)

	// Verify services were registered
	info := server.GetServiceInfo()
	if len(info) == 0 {
		t.Error("expected at least one service to be registered")
	}

	// Look for A2A service
	found := false
	for name := range info {
		t.Logf("registered service: %s", name)
		if name == ServiceName {
			found = true
		}
	}

	if !found {
		t.Errorf("expected %s to be registered", ServiceName)
	}
	if _, ok := info[healthpb.Health_ServiceDesc.ServiceName]; ok {
		t.Error("health service must not be registered without a health server")
	}
}

func TestRegisterWithGRPC_Health(t *testing.T) {
	server := grpc.NewServer()

	RegisterWithGRPC(server, &ServerConfig{
		Executor: NewExecutor(echoProvider()),
		Health:   health.NewServer(),
	})

	info := server.GetServiceInfo()
	if _, ok := info[healthpb.Health_ServiceDesc.ServiceName]; !ok {
		t.Errorf("expected %s to be registered", healthpb.Health_ServiceDesc.ServiceName)
	}
	if _, ok := info[ServiceName]; !ok {
		t.Errorf("expected %s to be registered", ServiceName)
	}
}

func TestSetServingStatus(t *testing.T) {
	h := health.NewServer()

	SetServingStatus(h, healthpb.HealthCheckResponse_NOT_SERVING)
	for _, service := range []string{"", ServiceName} {
		resp, err := h.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			t.Fatalf("check %q: %v", service, err)
		}
		if resp.Status != healthpb.HealthCheckResponse_NOT_SERVING {
			t.Errorf("service %q: expected NOT_SERVING, got %v", service, resp.Status)
		}
	}

	SetServingStatus(h, healthpb.HealthCheckResponse_SERVING)
	resp, err := h.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("expected SERVING, got %v", resp.Status)
	}
}

func TestRegisterWithGRPC_NilAgentCard(t *testing.T) {
	server := grpc.NewServer()

	cfg := &ServerConfig{
		Executor:  NewExecutor(echoProvider()),
		AgentCard: nil, // No agent card provided
	}

	// Should not panic with nil agent card
	RegisterWithGRPC(server, cfg)

	// Verify services were registered
	info := server.GetServiceInfo()
	if len(info) == 0 {
		t.Error("expected at least one service to be registered")
	}
}

func TestNewAgentCard(t *testing.T) {
	provider := llm.NewOllamaProvider(llm.OllamaConfig{ModelName: "qwen3:8b"})
	card := NewAgentCard(provider, "adapter", "localhost:4433")

	if card.Name != "adapter" || card.URL != "localhost:4433" {
		t.Errorf("unexpected card identity: %+v", card)
	}
	if card.Description != "Streams qwen3:8b responses with reasoning removed" {
		t.Errorf("unexpected description %q", card.Description)
	}
	if card.PreferredTransport != a2a.TransportProtocolGRPC {
		t.Errorf("expected grpc transport, got %q", card.PreferredTransport)
	}
	if !card.Capabilities.Streaming {
		t.Error("expected streaming capability")
	}
	if len(card.Skills) != 1 || card.Skills[0].ID != "chat" {
		t.Fatalf("expected a single chat skill, got %+v", card.Skills)
	}
	want := []string{"chat", "ollama", "qwen3:8b"}
	if got := card.Skills[0].Tags; len(got) != len(want) || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Errorf("expected tags %v, got %v", want, got)
	}
}

func TestNewAgentCard_ProviderWithoutModel(t *testing.T) {
	card := NewAgentCard(&fragmentProvider{}, "", "")

	if card.Name != "fragments" {
		t.Errorf("expected name to fall back to the provider, got %q", card.Name)
	}
	if len(card.Skills[0].Tags) != 2 {
		t.Errorf("expected no model tag, got %v", card.Skills[0].Tags)
	}
}
