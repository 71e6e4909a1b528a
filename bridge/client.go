package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	clientName    = "alpha-vantage-client"
	clientVersion = "1.0.0"
)

var ErrToolFailed = errors.New("tool reported an error")

// Caller invokes a named tool with structured arguments.
type Caller interface {
	CallTool(ctx context.Context, name string, arguments map[string]any) (*ToolResult, error)
}

// ToolResult is a flattened MCP tool call result.
type ToolResult struct {
	Tool       string `json:"tool"`
	Text       string `json:"text"`
	Structured any    `json:"structured,omitempty"`
	IsError    bool   `json:"isError"`
}

// ToolInfo describes a tool advertised by a tool server.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Options struct {
	Logger *Logger
	Audit  *AuditLog
}

// Client is an MCP client session with a single tool server.
type Client struct {
	server  string
	session *mcp.ClientSession
	logger  *Logger
	audit   *AuditLog
}

var _ Caller = (*Client)(nil)

// Dial connects to the tool server described by entry and completes the
// MCP handshake. Stdio entries are spawned and spoken to over their stdin
// and stdout; SSE entries are reached at their URL.
func Dial(ctx context.Context, entry *ToolServerEntry, opts Options) (*Client, error) {
	if entry == nil {
		return nil, fmt.Errorf("tool server entry is nil")
	}

	c := newClient(entry.Name, opts)

	var transport mcp.Transport
	switch entry.TransportName() {
	case TransportStdio:
		if entry.Command == "" {
			return nil, fmt.Errorf("server %s missing command", entry.Name)
		}

		cmd := exec.Command(entry.Command, entry.Args...)
		cmd.Env = append([]string{}, os.Environ()...)
		for k, v := range entry.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
		// Tool server diagnostics go to our stderr; stdout carries MCP.
		cmd.Stderr = os.Stderr

		c.logger.Debug("spawning tool server %s: %s %s", entry.Name, entry.Command, strings.Join(entry.Args, " "))
		transport = &mcp.CommandTransport{Command: cmd}
	case TransportSSE:
		if entry.URL == "" {
			return nil, fmt.Errorf("server %s missing url", entry.Name)
		}

		c.logger.Debug("connecting to tool server %s at %s", entry.Name, entry.URL)
		transport = &mcp.SSEClientTransport{Endpoint: entry.URL}
	default:
		return nil, fmt.Errorf("server %s has unsupported transport %q", entry.Name, entry.Transport)
	}

	if err := c.connect(ctx, transport); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", entry.Name, err)
	}
	return c, nil
}

// Connect establishes a session over an arbitrary MCP transport.
func Connect(ctx context.Context, server string, transport mcp.Transport, opts Options) (*Client, error) {
	c := newClient(server, opts)
	if err := c.connect(ctx, transport); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", server, err)
	}
	return c, nil
}

func newClient(server string, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = NewLogger("info")
	}
	return &Client{
		server: server,
		logger: logger,
		audit:  opts.Audit,
	}
}

func (c *Client) connect(ctx context.Context, transport mcp.Transport) error {
	client := mcp.NewClient(&mcp.Implementation{
		Name:    clientName,
		Version: clientVersion,
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return err
	}
	c.session = session
	c.logger.Debug("connected to tool server %s", c.server)
	return nil
}

// CallTool invokes name on the tool server. A result the server flags as
// an error is returned together with an error wrapping ErrToolFailed.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (*ToolResult, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("tool name required")
	}
	if arguments == nil {
		arguments = map[string]any{}
	}

	start := time.Now()
	res, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: arguments,
	})
	elapsed := time.Since(start)

	var result *ToolResult
	if err == nil {
		result = flattenResult(name, res)
		if result.IsError {
			err = fmt.Errorf("%w: %s: %s", ErrToolFailed, name, result.Text)
		}
	} else {
		err = fmt.Errorf("failed to call tool %s: %w", name, err)
	}

	c.record(ctx, name, arguments, elapsed, err)

	if err != nil {
		c.logger.Warn("tool %s on %s failed after %s: %v", name, c.server, elapsed, err)
	} else {
		c.logger.Debug("tool %s on %s completed in %s", name, c.server, elapsed)
	}
	return result, err
}

// ListTools returns the tools advertised by the tool server.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	res, err := c.session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	tools := make([]ToolInfo, 0, len(res.Tools))
	for _, t := range res.Tools {
		tools = append(tools, ToolInfo{Name: t.Name, Description: t.Description})
	}
	return tools, nil
}

// Close ends the session, terminating a spawned tool server.
func (c *Client) Close() error {
	if c.session == nil {
		return nil
	}
	return c.session.Close()
}

func (c *Client) record(ctx context.Context, tool string, arguments map[string]any, elapsed time.Duration, callErr error) {
	if c.audit == nil {
		return
	}

	args, err := json.Marshal(arguments)
	if err != nil {
		c.logger.Warn("failed to encode arguments for audit: %v", err)
		args = nil
	}

	rec := &AuditRecord{
		Server:     c.server,
		Tool:       tool,
		Arguments:  args,
		IsError:    callErr != nil,
		DurationMs: elapsed.Milliseconds(),
	}
	if callErr != nil {
		rec.Error = callErr.Error()
	}

	// The call context may already be done; auditing must not depend on it.
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.audit.Record(auditCtx, rec); err != nil {
		c.logger.Warn("failed to record tool call: %v", err)
	}
}

func flattenResult(name string, res *mcp.CallToolResult) *ToolResult {
	var parts []string
	for _, content := range res.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}

	return &ToolResult{
		Tool:       name,
		Text:       strings.Join(parts, "\n"),
		Structured: res.StructuredContent,
		IsError:    res.IsError,
	}
}
