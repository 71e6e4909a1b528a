package toolserver

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/mcp-chat-backend/fixtures"
	"github.com/user/mcp-chat-backend/pricing"
)

func connect(t *testing.T, prices PriceSource) *mcp.ClientSession {
	t.Helper()

	transport := fixtures.ConnectInMemory(t, New(prices))
	client := mcp.NewClient(&mcp.Implementation{Name: "toolserver-test", Version: "0.1.0"}, nil)
	session, err := client.Connect(context.Background(), transport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestListsCurrentPriceTool(t *testing.T) {
	session := connect(t, fixtures.NewStaticPrices())

	res, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)
	require.Len(t, res.Tools, 1)
	assert.Equal(t, CurrentPriceTool, res.Tools[0].Name)
	assert.NotEmpty(t, res.Tools[0].Description)
}

func TestCurrentPriceTool(t *testing.T) {
	prices := fixtures.NewStaticPrices(pricing.Quote{Symbol: "AAPL", Price: "183.05", UpdatedAt: "2024-05-10 19:55:00"})
	session := connect(t, prices)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      CurrentPriceTool,
		Arguments: map[string]any{"symbol": "AAPL"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "AAPL: $183.05 (updated: 2024-05-10 19:55:00)", textOf(t, res))
	assert.Equal(t, []string{"AAPL"}, prices.Calls())
}

func TestCurrentPriceToolReportsLookupErrors(t *testing.T) {
	prices := fixtures.NewStaticPrices()
	prices.Err = pricing.ErrRateLimited
	session := connect(t, prices)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      CurrentPriceTool,
		Arguments: map[string]any{"symbol": "AAPL"},
	})
	require.NoError(t, err, "lookup failures are tool errors, not protocol errors")
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "rate limit")
}

func TestCurrentPriceToolRejectsBlankSymbol(t *testing.T) {
	prices := fixtures.NewStaticPrices()
	session := connect(t, prices)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      CurrentPriceTool,
		Arguments: map[string]any{"symbol": "  "},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "symbol is required")
	assert.Empty(t, prices.Calls())
}

func TestCurrentPriceToolRejectsMissingSymbol(t *testing.T) {
	prices := fixtures.NewStaticPrices()
	session := connect(t, prices)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      CurrentPriceTool,
		Arguments: map[string]any{},
	})
	require.NoError(t, err, "a missing symbol is a tool error like a blank one")
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "symbol is required")
	assert.Empty(t, prices.Calls())
}

func connectSSE(t *testing.T, endpoint string) *mcp.ClientSession {
	t.Helper()

	client := mcp.NewClient(&mcp.Implementation{Name: "toolserver-sse-test", Version: "0.1.0"}, nil)
	session, err := client.Connect(context.Background(), &mcp.SSEClientTransport{Endpoint: endpoint}, nil)
	require.NoError(t, err)
	return session
}

func TestSSEHandler(t *testing.T) {
	prices := fixtures.NewStaticPrices(pricing.Quote{Symbol: "MSFT", Price: "414.74", UpdatedAt: "2024-05-10 19:55:00"})
	ts := httptest.NewServer(SSEHandler(prices))
	t.Cleanup(ts.Close)

	session := connectSSE(t, ts.URL+SSEPath)
	t.Cleanup(func() { _ = session.Close() })

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      CurrentPriceTool,
		Arguments: map[string]any{"symbol": "MSFT"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "MSFT: $414.74 (updated: 2024-05-10 19:55:00)", textOf(t, res))
}

func TestSSEHandlerUnknownPath(t *testing.T) {
	ts := httptest.NewServer(SSEHandler(fixtures.NewStaticPrices()))
	t.Cleanup(ts.Close)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/other", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServeSSE(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	prices := fixtures.NewStaticPrices(pricing.Quote{Symbol: "AAPL", Price: "183.05", UpdatedAt: "2024-05-10 19:55:00"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- ServeSSE(ctx, ln, prices) }()

	session := connectSSE(t, "http://"+ln.Addr().String()+SSEPath)
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      CurrentPriceTool,
		Arguments: map[string]any{"symbol": "AAPL"},
	})
	require.NoError(t, err)
	assert.Equal(t, "AAPL: $183.05 (updated: 2024-05-10 19:55:00)", textOf(t, res))
	require.NoError(t, session.Close())

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("ServeSSE did not return after cancel")
	}
}
