package main

import (
	"github.com/spf13/cobra"

	"github.com/promptlab/promptlab/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running PromptLab server via HTTP.

These commands require a running server (promptlab serve).
Use --server to specify a custom server URL.

Examples:
  promptlab api health               # Check server health
  promptlab api prompts list         # List saved prompts
  promptlab api models list          # List available Ollama models
  promptlab api session save         # Save the working prompt`,
}

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Prompt library commands",
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Ollama model commands",
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Working-prompt session commands",
}

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Library export and import commands",
}

var engineCmd = &cobra.Command{
	Use:   "engine",
	Short: "Ollama engine commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:5000", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.GetConfigEndpoint{}).Command(getServerURL))

	// Prompts as subcommand group
	for _, ep := range endpoints.PromptCommands() {
		promptsCmd.AddCommand(ep.Command(getServerURL))
	}

	// Models as subcommand group
	for _, ep := range endpoints.ModelCommands() {
		modelsCmd.AddCommand(ep.Command(getServerURL))
	}

	// Session as subcommand group
	for _, ep := range endpoints.SessionCommands() {
		sessionCmd.AddCommand(ep.Command(getServerURL))
	}

	// Library as subcommand group
	for _, ep := range endpoints.LibraryCommands() {
		libraryCmd.AddCommand(ep.Command(getServerURL))
	}

	// Engine operations (health, refine, test)
	engineCmd.AddCommand((&endpoints.OllamaHealthEndpoint{}).Command(getServerURL))
	engineCmd.AddCommand((&endpoints.RefineEndpoint{}).Command(getServerURL))
	engineCmd.AddCommand((&endpoints.TestPromptEndpoint{}).Command(getServerURL))

	apiCmd.AddCommand(promptsCmd)
	apiCmd.AddCommand(modelsCmd)
	apiCmd.AddCommand(sessionCmd)
	apiCmd.AddCommand(libraryCmd)
	apiCmd.AddCommand(engineCmd)

	rootCmd.AddCommand(apiCmd)
}
