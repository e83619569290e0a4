package cmd

import (
	"errors"
	"strings"
	"testing"

	"github.com/iksnae/corebos/internal"
)

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{
			name:    "version flag",
			args:    []string{"--version"},
			wantErr: false,
		},
		{
			name:    "help flag",
			args:    []string{"--help"},
			wantErr: false,
		},
		{
			name:    "unknown command",
			args:    []string{"pay"},
			wantErr: true,
		},
		{
			name:    "unknown output format",
			args:    []string{"nodes", "--storage", "/nonexistent/corebos", "--output", "csv"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(t, "", tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("rootCmd.Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	want := []string{"balance", "chain-deposit", "connect", "healthcheck", "nodes", "tags", "telegram", "upgrade"}
	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("%s command not registered", name)
		}
	}
}

func TestFormatError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain", errors.New("boom"), "Error: boom"},
		{"kind", internal.NewError(internal.KindMissingConfig, "", nil), "Error [400 MissingConfig]"},
		{"transport", internal.NewError(internal.KindConnectFailed, "", errors.New("refused")), "Error [503 ConnectFailed]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatError(tt.err); !strings.HasPrefix(got, tt.want) {
				t.Errorf("formatError() = %q, want prefix %q", got, tt.want)
			}
		})
	}
}
