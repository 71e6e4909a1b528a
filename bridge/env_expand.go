package bridge

import (
	"os"
	"regexp"
)

var envDefaultPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-|-)([^}]*)\}`)

// expandEnvString resolves ${VAR:-default}, ${VAR-default}, ${VAR} and $VAR.
func expandEnvString(value string, lookup func(string) string) string {
	if value == "" {
		return value
	}

	expanded := envDefaultPattern.ReplaceAllStringFunc(value, func(match string) string {
		parts := envDefaultPattern.FindStringSubmatch(match)
		if len(parts) != 4 {
			return match
		}
		if val := lookup(parts[1]); val != "" {
			return val
		}
		return parts[3]
	})

	return os.Expand(expanded, lookup)
}

// expandEntry expands command, args and env values in place. Env values
// resolve against the process environment; command and args resolve
// against the expanded entry env first.
func expandEntry(entry *ToolServerEntry) {
	if entry == nil {
		return
	}

	for key, value := range entry.Env {
		entry.Env[key] = expandEnvString(value, os.Getenv)
	}

	lookup := func(key string) string {
		if val, ok := entry.Env[key]; ok {
			return val
		}
		return os.Getenv(key)
	}

	entry.Command = expandEnvString(entry.Command, lookup)
	entry.URL = expandEnvString(entry.URL, lookup)
	for i, arg := range entry.Args {
		entry.Args[i] = expandEnvString(arg, lookup)
	}
}
