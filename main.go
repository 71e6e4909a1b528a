package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/user/mcp-chat-backend/bridge"
	"github.com/user/mcp-chat-backend/cmd"
	"github.com/user/mcp-chat-backend/pricing"
	"github.com/user/mcp-chat-backend/server"
	"github.com/user/mcp-chat-backend/toolserver"
)

const version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run dispatches argv to a subcommand and returns the process exit code.
func run(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	sub := "serve"
	args := argv
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		sub, args = args[0], args[1:]
	}

	var err error
	switch sub {
	case "serve":
		err = runServe(ctx, args)
	case "call":
		err = runCall(ctx, args, stdout)
	case "tools":
		err = runTools(ctx, args, stdout)
	case "tool-server":
		err = runToolServer(ctx, args, stderr)
	case "version":
		fmt.Fprintf(stdout, "mcp-chat v%s\n", version)
	case "help":
		printHelp(stdout)
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", sub)
		printHelp(stderr)
		return 1
	}

	if errors.Is(err, flag.ErrHelp) {
		printHelp(stdout)
		return 0
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "%s error: %v\n", sub, err)
		return 1
	}
	return 0
}

func runServe(ctx context.Context, args []string) error {
	cliArgs, err := cmd.ParseArgs(args)
	if err != nil {
		return err
	}

	logger := bridge.NewLogger(cliArgs.LogLevel)
	if found, err := cmd.LoadEnvFile(cliArgs.EnvFile); err != nil {
		logger.Warn("%v", err)
	} else if found {
		logger.Debug("loaded environment from %s", cliArgs.EnvFile)
	}

	srv := server.NewServerWithLogger(cliArgs.ToServerConfig(), logger)
	defer srv.Close()

	return srv.ListenAndServe(ctx)
}

func runCall(ctx context.Context, args []string, out io.Writer) error {
	callArgs, err := cmd.ParseCallArgs(args)
	if err != nil {
		return err
	}

	logger := bridge.NewLogger(callArgs.LogLevel)
	loadDefaultEnv(logger)

	entry, err := resolveToolServer(callArgs.ConfigPath, callArgs.Server)
	if err != nil {
		return err
	}

	audit, err := bridge.OpenAuditLog(callArgs.DBPath)
	if err != nil {
		return err
	}
	defer audit.Close()

	ctx, cancel := context.WithTimeout(ctx, callArgs.Timeout)
	defer cancel()

	client, err := bridge.Dial(ctx, entry, bridge.Options{Logger: logger, Audit: audit})
	if err != nil {
		return err
	}
	defer client.Close()

	result, callErr := client.CallTool(ctx, callArgs.Tool, callArgs.Arguments)
	if result != nil {
		if err := writeResult(out, result); err != nil {
			return err
		}
	}
	return callErr
}

func runTools(ctx context.Context, args []string, out io.Writer) error {
	toolsArgs, err := cmd.ParseToolsArgs(args)
	if err != nil {
		return err
	}

	logger := bridge.NewLogger(toolsArgs.LogLevel)
	loadDefaultEnv(logger)

	entry, err := resolveToolServer(toolsArgs.ConfigPath, toolsArgs.Server)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, toolsArgs.Timeout)
	defer cancel()

	client, err := bridge.Dial(ctx, entry, bridge.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer client.Close()

	tools, err := client.ListTools(ctx)
	if err != nil {
		return err
	}

	for _, t := range tools {
		fmt.Fprintf(out, "%s\t%s\n", t.Name, t.Description)
	}
	return nil
}

func runToolServer(ctx context.Context, args []string, logOut io.Writer) error {
	tsArgs, err := cmd.ParseToolServerArgs(args)
	if err != nil {
		return err
	}

	// stdout belongs to the MCP stream on stdio; diagnostics go to logOut.
	logger := bridge.NewLoggerWithWriter(logOut, tsArgs.LogLevel)
	loadDefaultEnv(logger)

	prices := pricing.NewClientFromEnv()
	if prices.APIKey == "" {
		logger.Warn("%s is not set; price lookups will fail", pricing.EnvAPIKey)
	}

	if tsArgs.Transport == bridge.TransportStdio {
		return toolserver.Run(ctx, prices)
	}

	ln, err := net.Listen("tcp", tsArgs.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", tsArgs.ListenAddr, err)
	}
	logger.Info("tool server listening on http://%s%s", ln.Addr().String(), toolserver.SSEPath)

	return toolserver.ServeSSE(ctx, ln, prices)
}

func resolveToolServer(configPath, name string) (*bridge.ToolServerEntry, error) {
	var registry *bridge.Registry
	var err error
	if configPath != "" {
		registry, err = bridge.LoadRegistry(configPath)
	} else {
		registry, err = bridge.DefaultRegistry()
	}
	if err != nil {
		return nil, err
	}

	return registry.Get(name)
}

func loadDefaultEnv(logger *bridge.Logger) {
	if _, err := cmd.LoadEnvFile(".env"); err != nil {
		logger.Warn("%v", err)
	}
}

func writeResult(out io.Writer, result *bridge.ToolResult) error {
	if result.Structured == nil {
		_, err := fmt.Fprintln(out, result.Text)
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func printHelp(out io.Writer) {
	fmt.Fprint(out, `
mcp-chat v` + version + `

USAGE:
  mcp-chat [COMMAND] [FLAGS]

COMMANDS:
  serve         Run the HTTP API (default)
  call TOOL     Call a tool on an MCP tool server and print the result
  tools         List the tools of an MCP tool server
  tool-server   Run the Alpha Vantage MCP tool server (stdio or sse)
  version       Print version
  help          Print this help message

SERVE FLAGS:
  -listen STRING            HTTP listen address (default: :3000)
  -log-level STRING         Log level: debug, info, warn, error (default: info)
  -origins STRING           Comma-separated allowed CORS origins (default: *)
  -env-file STRING          Environment file to load (default: .env)

CALL / TOOLS FLAGS:
  -config STRING            Tool server registry JSON file (default: built-in price server)
  -server STRING            Tool server name from the registry
  -args JSON                Tool arguments (call only, default: {})
  -db STRING                SQLite audit database path (call only, default: in-memory)
  -timeout DURATION         Session timeout (default: 30s)

TOOL-SERVER FLAGS:
  -transport STRING         Transport: stdio or sse (default: stdio)
  -listen STRING            SSE listen address (default: :8050)
  -log-level STRING         Log level: debug, info, warn, error (default: info)

REGISTRY FILE:
  {"servers": [
    {"name": "prices", "command": "python3", "args": ["server.py"], "env": {"ALPHA_VANTAGE_API_KEY": "${AV_KEY}"}},
    {"name": "remote", "transport": "sse", "url": "http://localhost:8050/sse"}
  ]}

EXAMPLES:
  mcp-chat -listen :3000
  mcp-chat call -args '{"symbol":"AAPL"}' get_current_price_tool
  mcp-chat tools -config servers.json -server prices
  mcp-chat tool-server -transport sse -listen :8050
`)
}
