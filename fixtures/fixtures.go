package fixtures

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/user/mcp-chat-backend/pricing"
)

const (
	EchoTool = "echo"
	FailTool = "fail"
)

type echoArgs struct {
	Message string `json:"message" jsonschema:"text to echo back"`
}

type failArgs struct {
	Reason string `json:"reason,omitempty" jsonschema:"error text to report"`
}

// NewEchoServer returns an MCP server with an echo tool and a tool that
// always reports an error.
func NewEchoServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "fixture-echo",
		Version: "0.1.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        EchoTool,
		Description: "echo the provided message",
	}, func(ctx context.Context, req *mcp.CallToolRequest, a echoArgs) (*mcp.CallToolResult, any, error) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: "echo: " + a.Message},
			},
		}, nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        FailTool,
		Description: "always fails",
	}, func(ctx context.Context, req *mcp.CallToolRequest, a failArgs) (*mcp.CallToolResult, any, error) {
		reason := a.Reason
		if reason == "" {
			reason = "boom"
		}
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: reason},
			},
		}, nil, nil
	})

	return server
}

// ConnectInMemory starts a session of server over an in-memory pipe and
// returns the client side transport. The server session is closed when
// the test ends.
func ConnectInMemory(t *testing.T, server *mcp.Server) mcp.Transport {
	t.Helper()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	session, err := server.Connect(context.Background(), serverTransport, nil)
	if err != nil {
		t.Fatalf("failed to start in-memory server session: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })

	return clientTransport
}

// StaticPrices is a fixed price source keyed by upper-case symbol.
type StaticPrices struct {
	mu     sync.Mutex
	quotes map[string]pricing.Quote
	calls  []string
	Err    error
}

func NewStaticPrices(quotes ...pricing.Quote) *StaticPrices {
	p := &StaticPrices{quotes: make(map[string]pricing.Quote)}
	for _, q := range quotes {
		p.quotes[strings.ToUpper(q.Symbol)] = q
	}
	return p
}

func (p *StaticPrices) CurrentPrice(ctx context.Context, symbol string) (*pricing.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	p.calls = append(p.calls, symbol)
	if p.Err != nil {
		return nil, p.Err
	}
	q, ok := p.quotes[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", pricing.ErrInvalidSymbol, symbol)
	}
	return &q, nil
}

// Calls returns the symbols requested so far.
func (p *StaticPrices) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// WriteRegistry writes body to servers.json in a fresh temp directory.
func WriteRegistry(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "servers.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write registry: %v", err)
	}
	return path
}

// NewInMemorySQLite opens a private in-memory sqlite database closed at
// the end of the test.
func NewInMemorySQLite(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}
