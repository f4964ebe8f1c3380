package main

import (
	"fmt"
	"os"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/shanemcd/ollama-adapter/pkg/a2aexec"
	"github.com/shanemcd/ollama-adapter/pkg/llm"
)

// ConfigVersion is the current config file version.
const ConfigVersion = "v1"

// CLI is the root command structure for ollama-adapter.
// It serves as the single source of truth for CLI flags, env vars, and config files.
type CLI struct {
	// Global flags (shared across all subcommands)
	Config   string `short:"c" help:"Path to config file" type:"path" yaml:"-"`
	LogLevel string `help:"Log level (debug, info, warn, error)" default:"info" env:"OLLAMA_ADAPTER_LOG_LEVEL" yaml:"logLevel"`

	// Embedded config (populated from file + CLI + env)
	Version string       `yaml:"version" kong:"-"`
	Server  ServerConfig `embed:"" prefix:"server-" yaml:"server"`
	Agent   AgentConfig  `embed:"" prefix:"agent-" yaml:"agent"`
	LLM     LLMConfig    `embed:"" prefix:"llm-" yaml:"llm"`
	Peers   []PeerConfig `yaml:"peers" kong:"-"`

	// Subcommands
	Serve    ServeCmd    `cmd:"" help:"Run as daemon (serve the model over A2A)"`
	Chat     ChatCmd     `cmd:"" help:"Stream a response from the configured model"`
	Prompt   PromptCmd   `cmd:"" help:"Send prompt to peer"`
	Discover DiscoverCmd `cmd:"" help:"Discover peer capabilities (AgentCard)"`
	Status   StatusCmd   `cmd:"" help:"Get peer serving status"`
}

// ServerConfig holds server-mode configuration.
type ServerConfig struct {
	Addr      string  `help:"Address to listen on" default:"[::]:4433" env:"OLLAMA_ADAPTER_ADDR" yaml:"addr"`
	RateLimit float64 `help:"Requests per minute forwarded to the backend (0 = unlimited)" default:"0" env:"OLLAMA_ADAPTER_RATE_LIMIT" yaml:"rateLimit"`
	Burst     int     `help:"Burst size for the rate limit" default:"1" env:"OLLAMA_ADAPTER_BURST" yaml:"burst"`
}

// AgentConfig holds A2A agent card configuration.
type AgentConfig struct {
	Name        string   `help:"Agent name" env:"OLLAMA_ADAPTER_AGENT_NAME" yaml:"name"`
	Description string   `help:"Agent description" env:"OLLAMA_ADAPTER_AGENT_DESCRIPTION" yaml:"description"`
	InputModes  []string `help:"Supported input modes" default:"text" env:"OLLAMA_ADAPTER_AGENT_INPUT_MODES" yaml:"inputModes"`
	OutputModes []string `help:"Supported output modes" default:"text" env:"OLLAMA_ADAPTER_AGENT_OUTPUT_MODES" yaml:"outputModes"`
	Streaming   bool     `help:"Enable streaming" default:"true" env:"OLLAMA_ADAPTER_AGENT_STREAMING" yaml:"streaming"`
	Skills      []Skill  `yaml:"skills" kong:"-"`
}

// Skill represents an A2A agent skill.
type Skill struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
	Examples    []string `yaml:"examples"`
}

// LLMConfig holds LLM provider configuration. The yaml keys match the
// provider configuration mapping read by llm.OllamaConfigFromMap.
type LLMConfig struct {
	Provider  string `help:"LLM provider (echo, ollama)" default:"ollama" enum:"echo,ollama" env:"OLLAMA_ADAPTER_LLM_PROVIDER" yaml:"provider"`
	ModelName string `help:"Model name" env:"OLLAMA_ADAPTER_LLM_MODEL" yaml:"model_name"`
	BaseURL   string `help:"Ollama server URL (/v1 is appended when missing)" env:"OLLAMA_ADAPTER_LLM_URL" yaml:"base_url"`
}

// PeerConfig holds configuration for a known peer.
type PeerConfig struct {
	Name string `yaml:"name"`
	Addr string `yaml:"addr"`
}

// LoadConfigFile loads configuration from a YAML file into the CLI struct.
// If the path is empty, this is a no-op.
// Returns an error if the config file version is not supported.
func LoadConfigFile(path string, cli *CLI) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cli); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	return ValidateConfigVersion(cli.Version)
}

// ValidateConfigVersion checks that the config file version is supported.
func ValidateConfigVersion(version string) error {
	if version == "" {
		return fmt.Errorf("config file missing 'version' field (expected: %s)", ConfigVersion)
	}

	switch version {
	case "v1":
		return nil
	default:
		return fmt.Errorf("unsupported config version %q (supported: %s)", version, ConfigVersion)
	}
}

// ResolvePeer returns the address for a peer (by name or direct address).
func (cli *CLI) ResolvePeer(nameOrAddr string) string {
	for _, p := range cli.Peers {
		if p.Name == nameOrAddr {
			return p.Addr
		}
	}
	return nameOrAddr
}

// Identity returns the adapter identity string, generating one if not set.
func (cli *CLI) Identity() string {
	name := cli.Agent.Name
	if name == "" {
		name = uuid.New().String()[:8]
	}
	return appName + "/" + name
}

// CreateLLMProvider creates the configured LLM provider.
func (cli *CLI) CreateLLMProvider() (llm.Provider, error) {
	cfg := llm.OllamaConfig{
		ModelName: cli.LLM.ModelName,
		BaseURL:   cli.LLM.BaseURL,
	}

	switch cli.LLM.Provider {
	case "ollama":
		if cfg.ModelName == "" {
			return nil, fmt.Errorf("--llm-model-name is required when using ollama provider")
		}
		return llm.NewOllamaProvider(cfg), nil
	case "echo":
		if cfg.ModelName == "" {
			cfg.ModelName = "echo"
		}
		return llm.NewOllamaProvider(cfg, llm.WithChunkSource(llm.NewEchoSource())), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cli.LLM.Provider)
	}
}

// AgentCard builds the A2A AgentCard for provider, applying configured
// overrides.
func (cli *CLI) AgentCard(addr string, provider llm.Provider) *a2a.AgentCard {
	name := cli.Agent.Name
	if name == "" {
		name = appName
	}

	card := a2aexec.NewAgentCard(provider, name, addr)
	card.Capabilities.Streaming = cli.Agent.Streaming

	if cli.Agent.Description != "" {
		card.Description = cli.Agent.Description
	}
	if len(cli.Agent.InputModes) > 0 {
		card.DefaultInputModes = cli.Agent.InputModes
	}
	if len(cli.Agent.OutputModes) > 0 {
		card.DefaultOutputModes = cli.Agent.OutputModes
	}

	// Configured skills replace the default chat skill
	if len(cli.Agent.Skills) > 0 {
		card.Skills = nil
		for _, skill := range cli.Agent.Skills {
			card.Skills = append(card.Skills, a2a.AgentSkill{
				ID:          skill.ID,
				Name:        skill.Name,
				Description: skill.Description,
				Tags:        skill.Tags,
				Examples:    skill.Examples,
			})
		}
	}

	return card
}

// Limiter returns the request limiter, or nil when requests are unlimited.
func (cli *CLI) Limiter() *rate.Limiter {
	if cli.Server.RateLimit <= 0 {
		return nil
	}
	burst := cli.Server.Burst
	if burst < 1 {
		burst = 1
	}
	// requests per minute to requests per second
	return rate.NewLimiter(rate.Limit(cli.Server.RateLimit/60.0), burst)
}
