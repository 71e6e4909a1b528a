package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultServerName names the built-in price tool server entry.
const DefaultServerName = "alpha-vantage"

// Transports a tool server entry can use. An empty transport means stdio.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

var ErrServerNotFound = errors.New("tool server not found")

// ToolServerEntry describes a tool server, either a process spawned and
// spoken to over stdio or an SSE endpoint reached by URL.
type ToolServerEntry struct {
	Name      string            `json:"name"`
	Transport string            `json:"transport,omitempty"`
	Command   string            `json:"command,omitempty"`
	Args      []string          `json:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	URL       string            `json:"url,omitempty"`
}

// TransportName returns the entry's transport, defaulting to stdio.
func (e *ToolServerEntry) TransportName() string {
	if e.Transport == "" {
		return TransportStdio
	}
	return e.Transport
}

type Registry struct {
	Servers []ToolServerEntry `json:"servers"`
}

func LoadRegistry(configPath string) (*Registry, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config path required")
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var registry Registry
	if err := json.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validateRegistry(&registry); err != nil {
		return nil, err
	}

	for i := range registry.Servers {
		expandEntry(&registry.Servers[i])
	}

	return &registry, nil
}

// DefaultRegistry returns a registry whose only entry re-executes the
// running binary as the built-in price tool server.
func DefaultRegistry() (*Registry, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable: %w", err)
	}

	return &Registry{
		Servers: []ToolServerEntry{
			{Name: DefaultServerName, Command: exe, Args: []string{"tool-server"}},
		},
	}, nil
}

func validateRegistry(registry *Registry) error {
	seen := make(map[string]bool, len(registry.Servers))

	for i, s := range registry.Servers {
		if s.Name == "" {
			return fmt.Errorf("server %d missing name", i)
		}
		switch s.TransportName() {
		case TransportStdio:
			if s.Command == "" {
				return fmt.Errorf("server %s (stdio) missing command", s.Name)
			}
		case TransportSSE:
			if s.URL == "" {
				return fmt.Errorf("server %s (sse) missing url", s.Name)
			}
		default:
			return fmt.Errorf("server %s has unsupported transport %q", s.Name, s.Transport)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate server name: %s", s.Name)
		}
		seen[s.Name] = true
	}

	return nil
}

func SaveRegistry(registry *Registry, configPath string) error {
	if registry == nil {
		return fmt.Errorf("registry is nil")
	}
	if configPath == "" {
		return fmt.Errorf("config path required")
	}

	if err := validateRegistry(registry); err != nil {
		return err
	}

	data, err := json.MarshalIndent(registry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Get returns the named entry. An empty name selects the only entry
// when the registry holds exactly one.
func (r *Registry) Get(name string) (*ToolServerEntry, error) {
	if name == "" && len(r.Servers) == 1 {
		return &r.Servers[0], nil
	}

	for i := range r.Servers {
		if r.Servers[i].Name == name {
			return &r.Servers[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrServerNotFound, name)
}
