package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	userID    string
	apiKey    string
	version   = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "debate-cli",
	Short: "Run multi-model discussions from the terminal",
	Long: `A terminal client for the debate service.

Quick Start:
  debate-cli models                                   # List available models
  debate-cli keys set openai sk-...                   # Store a provider key
  debate-cli run "Is Go fun?" -m openai:gpt-4o -m anthropic:claude-3-opus-20240229
  debate-cli watch sess_1234abcd                      # Follow a session

While a discussion runs, type a line to intervene or /stop to end it.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("DEBATE_SERVER", "http://localhost:8080"), "Debate service base URL")
	rootCmd.PersistentFlags().StringVar(&userID, "user", envOr("DEBATE_USER", ""), "User id sent as X-User-ID")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", envOr("DEBATE_API_KEY", ""), "API key for the WebSocket endpoint")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newAPIClient() *apiClient {
	return newClient(serverURL, userID, apiKey)
}
