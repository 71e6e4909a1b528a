package bridge

import "testing"

func TestExpandEnvString(t *testing.T) {
	env := map[string]string{"HOST": "localhost", "EMPTY": ""}
	lookup := func(key string) string { return env[key] }

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain", "plain"},
		{"$HOST:8050", "localhost:8050"},
		{"${HOST}", "localhost"},
		{"${MISSING:-fallback}", "fallback"},
		{"${EMPTY-fallback}", "fallback"},
		{"${HOST:-other}", "localhost"},
		{"${MISSING}", ""},
	}

	for _, tt := range tests {
		if got := expandEnvString(tt.in, lookup); got != tt.want {
			t.Errorf("expandEnvString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExpandEntryNil(t *testing.T) {
	expandEntry(nil)
}
