package cmd

import (
	"testing"

	"github.com/spf13/viper"
)

// resetViper clears viper state between tests and restores env binding.
func resetViper() {
	viper.Reset()
	viper.SetEnvPrefix("SCRAPEPLANE")
	viper.AutomaticEnv()
}

func TestRootCommand_EnvVarBinding(t *testing.T) {
	resetViper()

	t.Setenv("SCRAPEPLANE_URL", "http://custom-url:8080")

	url := viper.GetString("url")
	if url != "http://custom-url:8080" {
		t.Errorf("expected url from env var, got: %s", url)
	}
}

func TestRootCommand_ExecuteReturnsNoError(t *testing.T) {
	resetViper()

	rootCmd.SetArgs([]string{"--help"})

	err := rootCmd.Execute()
	if err != nil {
		t.Errorf("root command should execute without error: %v", err)
	}
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	expected := map[string]bool{
		"create":          false,
		"list":            false,
		"status [job_id]": false,
		"start [job_id]":  false,
		"stop [job_id]":   false,
		"cancel [job_id]": false,
	}

	for _, cmd := range rootCmd.Commands() {
		if _, ok := expected[cmd.Use]; ok {
			expected[cmd.Use] = true
		}
	}

	for use, found := range expected {
		if !found {
			t.Errorf("expected %q subcommand to be registered with root command", use)
		}
	}
}

func TestExecute_ReturnsError(t *testing.T) {
	resetViper()

	rootCmd.SetArgs([]string{"unknown-command-xyz"})

	err := Execute()
	if err == nil {
		t.Error("expected error for unknown command")
	}
}
