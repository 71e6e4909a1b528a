package cmd

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCLIArgsDefaults(t *testing.T) {
	args, err := ParseArgs([]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if args.ListenAddr != ":3000" {
		t.Errorf("expected default listen :3000, got %s", args.ListenAddr)
	}

	if args.LogLevel != "info" {
		t.Errorf("expected default log level info, got %s", args.LogLevel)
	}

	if args.Origins != "*" {
		t.Errorf("expected default origins *, got %s", args.Origins)
	}

	if args.EnvFile != ".env" {
		t.Errorf("expected default env file .env, got %s", args.EnvFile)
	}
}

func TestCLIArgsCustom(t *testing.T) {
	args, err := ParseArgs([]string{
		"-listen", ":9000",
		"-log-level", "debug",
		"-origins", "https://example.com, http://localhost:5173",
		"-env-file", "",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if args.ListenAddr != ":9000" {
		t.Errorf("expected listen :9000, got %s", args.ListenAddr)
	}

	if args.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %s", args.LogLevel)
	}

	config := args.ToServerConfig()
	if len(config.AllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", config.AllowedOrigins)
	}
	if config.AllowedOrigins[1] != "http://localhost:5173" {
		t.Errorf("expected trimmed origin, got %q", config.AllowedOrigins[1])
	}
	if config.ListenAddr != ":9000" {
		t.Errorf("expected listen :9000 in config, got %s", config.ListenAddr)
	}
}

func TestCLIArgsUnknownFlag(t *testing.T) {
	if _, err := ParseArgs([]string{"-bogus"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

func TestParseCallArgs(t *testing.T) {
	args, err := ParseCallArgs([]string{
		"-config", "servers.json",
		"-server", "prices",
		"-db", "/tmp/audit.db",
		"-timeout", "5s",
		"-args", `{"symbol": "AAPL"}`,
		"get_current_price_tool",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if args.Tool != "get_current_price_tool" {
		t.Errorf("expected tool get_current_price_tool, got %s", args.Tool)
	}
	if args.Arguments["symbol"] != "AAPL" {
		t.Errorf("expected symbol AAPL, got %v", args.Arguments["symbol"])
	}
	if args.ConfigPath != "servers.json" || args.Server != "prices" || args.DBPath != "/tmp/audit.db" {
		t.Errorf("unexpected args: %+v", args)
	}
	if args.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %s", args.Timeout)
	}
}

func TestParseCallArgsDefaults(t *testing.T) {
	args, err := ParseCallArgs([]string{"echo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if args.Arguments == nil || len(args.Arguments) != 0 {
		t.Errorf("expected empty arguments, got %v", args.Arguments)
	}
	if args.Timeout != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %s", args.Timeout)
	}
	if args.ConfigPath != "" {
		t.Errorf("expected empty config path, got %s", args.ConfigPath)
	}
}

func TestParseCallArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing tool", []string{}},
		{"two tools", []string{"a", "b"}},
		{"bad json", []string{"-args", "{", "a"}},
		{"non-object json", []string{"-args", "[1,2]", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCallArgs(tt.args); err == nil {
				t.Errorf("expected error for %v", tt.args)
			}
		})
	}
}

func TestParseToolsArgs(t *testing.T) {
	args, err := ParseToolsArgs([]string{"-server", "prices", "-log-level", "warn"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args.Server != "prices" || args.LogLevel != "warn" {
		t.Errorf("unexpected args: %+v", args)
	}
}

func TestParseToolServerArgsDefaults(t *testing.T) {
	args, err := ParseToolServerArgs([]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args.Transport != "stdio" {
		t.Errorf("expected stdio transport, got %s", args.Transport)
	}
	if args.ListenAddr != ":8050" {
		t.Errorf("expected :8050, got %s", args.ListenAddr)
	}
}

func TestParseToolServerArgsSSE(t *testing.T) {
	args, err := ParseToolServerArgs([]string{"-transport", "sse", "-listen", "127.0.0.1:9000"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args.Transport != "sse" || args.ListenAddr != "127.0.0.1:9000" {
		t.Errorf("unexpected args: %+v", args)
	}
}

func TestParseToolServerArgsErrors(t *testing.T) {
	if _, err := ParseToolServerArgs([]string{"-transport", "websocket"}); err == nil {
		t.Error("expected error for unsupported transport")
	}
	if _, err := ParseToolServerArgs([]string{"extra"}); err == nil {
		t.Error("expected error for positional arguments")
	}
}

func TestParseHelpFlag(t *testing.T) {
	if _, err := ParseArgs([]string{"-h"}); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("expected flag.ErrHelp from serve flags, got %v", err)
	}
	if _, err := ParseCallArgs([]string{"-help"}); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("expected flag.ErrHelp from call flags, got %v", err)
	}
	if _, err := ParseToolServerArgs([]string{"-h"}); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("expected flag.ErrHelp from tool-server flags, got %v", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("MCP_CHAT_TEST_KEY=from-file\nMCP_CHAT_TEST_KEEP=from-file\n"), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Setenv("MCP_CHAT_TEST_KEEP", "from-env")
	t.Setenv("MCP_CHAT_TEST_KEY", "")
	os.Unsetenv("MCP_CHAT_TEST_KEY")

	found, err := LoadEnvFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Error("expected env file to be found")
	}
	if got := os.Getenv("MCP_CHAT_TEST_KEY"); got != "from-file" {
		t.Errorf("expected from-file, got %q", got)
	}
	if got := os.Getenv("MCP_CHAT_TEST_KEEP"); got != "from-env" {
		t.Errorf("expected existing variable to win, got %q", got)
	}
}

func TestLoadEnvFileMissing(t *testing.T) {
	found, err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected missing env file to report not found")
	}

	found, err = LoadEnvFile("")
	if err != nil || found {
		t.Errorf("expected no-op for empty path, got %v, %v", found, err)
	}
}
