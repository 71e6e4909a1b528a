// Package toolserver exposes Alpha Vantage lookups as MCP tools.
package toolserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/user/mcp-chat-backend/pricing"
)

const (
	ServerName    = "alpha-vantage-mcp-server"
	ServerVersion = "1.0.0"

	CurrentPriceTool = "get_current_price_tool"

	// DefaultSSEAddr and SSEPath locate the SSE transport.
	DefaultSSEAddr = ":8050"
	SSEPath        = "/sse"

	sseShutdownTimeout = 5 * time.Second
)

// PriceSource looks up the latest price of a stock symbol.
type PriceSource interface {
	CurrentPrice(ctx context.Context, symbol string) (*pricing.Quote, error)
}

// Symbol is optional in the schema so that a missing symbol and a blank
// one both come back as the same tool error.
type currentPriceArgs struct {
	Symbol string `json:"symbol,omitempty" jsonschema:"stock ticker symbol, e.g. AAPL"`
}

// New returns an MCP server with the price tools registered.
func New(prices PriceSource) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        CurrentPriceTool,
		Description: "Gets the current price of a stock from Alpha Vantage API.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, a currentPriceArgs) (*mcp.CallToolResult, any, error) {
		if strings.TrimSpace(a.Symbol) == "" {
			return nil, nil, errors.New("symbol is required")
		}

		quote, err := prices.CurrentPrice(ctx, a.Symbol)
		if err != nil {
			return nil, nil, fmt.Errorf("error getting current price for %s: %w", a.Symbol, err)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: quote.String()},
			},
		}, nil, nil
	})

	return server
}

// Run serves the price tools over stdin and stdout until ctx is done or
// the client disconnects.
func Run(ctx context.Context, prices PriceSource) error {
	return New(prices).Run(ctx, &mcp.StdioTransport{})
}

// SSEHandler serves the price tools over server-sent events at SSEPath.
func SSEHandler(prices PriceSource) http.Handler {
	server := New(prices)
	return mcp.NewSSEHandler(func(r *http.Request) *mcp.Server {
		if r.URL.Path == SSEPath {
			return server
		}
		return nil
	}, nil)
}

// ServeSSE serves SSEHandler on ln until ctx is done.
func ServeSSE(ctx context.Context, ln net.Listener, prices PriceSource) error {
	// No write timeout: event streams stay open for the whole session.
	httpServer := &http.Server{
		Handler:           SSEHandler(prices),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), sseShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			// Open event streams never go idle; drop them.
			return httpServer.Close()
		}
		return nil
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
