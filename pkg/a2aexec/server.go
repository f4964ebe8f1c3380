package a2aexec

import (
	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2agrpc"
	"github.com/a2aproject/a2a-go/a2asrv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/shanemcd/ollama-adapter/pkg/llm"
)

// ServiceName is the gRPC service a2agrpc registers.
const ServiceName = "a2a.v1.A2AService"

// ServerConfig holds configuration for the A2A endpoint of the adapter.
type ServerConfig struct {
	Executor *Executor

	// AgentCard is served to peers. When nil it is derived from the
	// executor's provider.
	AgentCard *a2a.AgentCard

	// Health is registered on the same server when set.
	Health *health.Server
}

// RegisterWithGRPC registers the A2A service, and the health service when
// configured, with a gRPC server.
func RegisterWithGRPC(server *grpc.Server, cfg *ServerConfig) {
	card := cfg.AgentCard
	if card == nil {
		card = NewAgentCard(cfg.Executor.Provider, "", "")
		card.Capabilities.Streaming = cfg.Executor.Streaming
	}
	requestHandler := a2asrv.NewHandler(cfg.Executor, a2asrv.WithExtendedAgentCard(card))
	a2agrpc.NewHandler(requestHandler).RegisterWith(server)

	if cfg.Health != nil {
		healthpb.RegisterHealthServer(server, cfg.Health)
	}
}

// SetServingStatus reports status for the server as a whole and for the
// A2A service.
func SetServingStatus(h *health.Server, status healthpb.HealthCheckResponse_ServingStatus) {
	h.SetServingStatus("", status)
	h.SetServingStatus(ServiceName, status)
}

type modelProvider interface {
	Model() string
}

// NewAgentCard describes an adapter serving provider. The card names the
// backend model when the provider exposes one; an empty name falls back to it.
func NewAgentCard(provider llm.Provider, name, url string) *a2a.AgentCard {
	backend := provider.Name()
	model := backend
	if mp, ok := provider.(modelProvider); ok && mp.Model() != "" {
		model = mp.Model()
	}
	if name == "" {
		name = model
	}

	tags := []string{"chat", backend}
	if model != backend {
		tags = append(tags, model)
	}

	return &a2a.AgentCard{
		Name:               name,
		Description:        "Streams " + model + " responses with reasoning removed",
		URL:                url,
		PreferredTransport: a2a.TransportProtocolGRPC,
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Capabilities: a2a.AgentCapabilities{
			Streaming: true,
		},
		Skills: []a2a.AgentSkill{
			{
				ID:          "chat",
				Name:        "Chat",
				Description: "Answers the conversation with " + model + ". Text inside " + llm.ThinkStart + " segments is not returned.",
				Tags:        tags,
				Examples:    []string{"Hello, who are you?"},
			},
		},
	}
}
