package cmd

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/user/mcp-chat-backend/bridge"
	"github.com/user/mcp-chat-backend/server"
	"github.com/user/mcp-chat-backend/toolserver"
)

type CLIArgs struct {
	ListenAddr string
	LogLevel   string
	Origins    string
	EnvFile    string
}

type CallArgs struct {
	ConfigPath string
	Server     string
	DBPath     string
	LogLevel   string
	Timeout    time.Duration
	Tool       string
	Arguments  map[string]any
}

type ToolsArgs struct {
	ConfigPath string
	Server     string
	LogLevel   string
	Timeout    time.Duration
}

type ToolServerArgs struct {
	Transport  string
	ListenAddr string
	LogLevel   string
}

func ParseArgs(args []string) (CLIArgs, error) {
	cliArgs := CLIArgs{}

	fs := flag.NewFlagSet("mcp-chat", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cliArgs.ListenAddr, "listen", server.DefaultListenAddr, "HTTP listen address")
	fs.StringVar(&cliArgs.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.StringVar(&cliArgs.Origins, "origins", "*", "Comma-separated allowed CORS origins")
	fs.StringVar(&cliArgs.EnvFile, "env-file", ".env", "Environment file to load before starting")

	if err := fs.Parse(args); err != nil {
		return cliArgs, err
	}

	return cliArgs, nil
}

func ParseCallArgs(args []string) (CallArgs, error) {
	callArgs := CallArgs{}
	var rawArgs string

	fs := flag.NewFlagSet("call", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	addBridgeFlags(fs, &callArgs.ConfigPath, &callArgs.Server, &callArgs.LogLevel, &callArgs.Timeout)
	fs.StringVar(&callArgs.DBPath, "db", "", "SQLite audit database path (default: in-memory)")
	fs.StringVar(&rawArgs, "args", "{}", "Tool arguments as a JSON object")

	if err := fs.Parse(args); err != nil {
		return callArgs, err
	}

	if fs.NArg() != 1 {
		return callArgs, errors.New("exactly one tool name required")
	}
	callArgs.Tool = fs.Arg(0)

	if err := json.Unmarshal([]byte(rawArgs), &callArgs.Arguments); err != nil {
		return callArgs, fmt.Errorf("invalid -args: %w", err)
	}
	if callArgs.Arguments == nil {
		callArgs.Arguments = map[string]any{}
	}

	return callArgs, nil
}

func ParseToolsArgs(args []string) (ToolsArgs, error) {
	toolsArgs := ToolsArgs{}

	fs := flag.NewFlagSet("tools", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	addBridgeFlags(fs, &toolsArgs.ConfigPath, &toolsArgs.Server, &toolsArgs.LogLevel, &toolsArgs.Timeout)

	if err := fs.Parse(args); err != nil {
		return toolsArgs, err
	}

	return toolsArgs, nil
}

func ParseToolServerArgs(args []string) (ToolServerArgs, error) {
	tsArgs := ToolServerArgs{}

	fs := flag.NewFlagSet("tool-server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&tsArgs.Transport, "transport", bridge.TransportStdio, "Transport: stdio or sse")
	fs.StringVar(&tsArgs.ListenAddr, "listen", toolserver.DefaultSSEAddr, "Listen address for the sse transport")
	fs.StringVar(&tsArgs.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return tsArgs, err
	}

	switch tsArgs.Transport {
	case bridge.TransportStdio, bridge.TransportSSE:
	default:
		return tsArgs, fmt.Errorf("unsupported transport %q", tsArgs.Transport)
	}
	if fs.NArg() > 0 {
		return tsArgs, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	return tsArgs, nil
}

func addBridgeFlags(fs *flag.FlagSet, configPath, serverName, logLevel *string, timeout *time.Duration) {
	fs.StringVar(configPath, "config", "", "Tool server registry JSON file (default: built-in price server)")
	fs.StringVar(serverName, "server", "", "Tool server name from the registry")
	fs.StringVar(logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.DurationVar(timeout, "timeout", 30*time.Second, "Overall timeout for the tool server session")
}

// ToServerConfig converts parsed serve flags into a server configuration.
func (a CLIArgs) ToServerConfig() server.Config {
	var origins []string
	for _, o := range strings.Split(a.Origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return server.Config{
		ListenAddr:     a.ListenAddr,
		LogLevel:       a.LogLevel,
		AllowedOrigins: origins,
	}
}
