package app

import (
	"testing"
)

func TestCommandsRegistered(t *testing.T) {
	want := []string{"install", "remove", "update", "hold", "unhold", "clean-cache", "history"}

	registered := map[string]bool{}
	for _, cmd := range RootCmd.Commands() {
		registered[cmd.Name()] = true
	}

	for _, name := range want {
		if !registered[name] {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flag    string
	}{
		{"install", "yes"},
		{"remove", "yes"},
		{"remove", "orphans"},
		{"update", "yes"},
		{"update", "dry-run"},
		{"hold", "list"},
		{"clean-cache", "keep"},
		{"clean-cache", "yes"},
		{"history", "clear"},
		{"history", "export"},
	}

	for _, tt := range tests {
		t.Run(tt.command+"/"+tt.flag, func(t *testing.T) {
			cmd, _, err := RootCmd.Find([]string{tt.command})
			if err != nil {
				t.Fatalf("Find(%q) error = %v", tt.command, err)
			}
			if cmd.Flags().Lookup(tt.flag) == nil {
				t.Errorf("command %q has no --%s flag", tt.command, tt.flag)
			}
		})
	}
}

func TestVerboseIsPersistent(t *testing.T) {
	if RootCmd.PersistentFlags().Lookup("verbose") == nil {
		t.Error("root command has no persistent --verbose flag")
	}
}
