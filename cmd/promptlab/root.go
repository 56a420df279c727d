package main

import (
	"github.com/spf13/cobra"

	"github.com/promptlab/promptlab/internal/api"
	"github.com/promptlab/promptlab/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "promptlab",
	Short: "Prompt authoring workbench for local Ollama models",
	Long: `PromptLab is a workbench for authoring, testing, and managing system
prompts against locally running Ollama models.

It provides:
  - A prompt library with search, export, and import
  - AI-assisted refinement of objectives into full system prompts
  - One-shot prompt testing with reproducible run configuration
  - A working session that tracks unsaved edits field by field`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.promptlab/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "promptlab home directory (default: ~/.promptlab)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
