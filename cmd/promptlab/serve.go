package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/promptlab/promptlab/internal/config"
	"github.com/promptlab/promptlab/internal/home"
	"github.com/promptlab/promptlab/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the PromptLab server",
	Long: `Start the PromptLab HTTP server.

The server opens the prompt database and exposes the prompt library,
refinement, testing, session, and import/export APIs. Configuration is
read from the config file and hot-reloaded on change.

Examples:
  promptlab serve                          # Start on the configured address
  promptlab serve --config ./config.yaml   # Use an explicit config file`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		// Get home directory
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		// Fall back to the home config when --config is not given and one
		// exists there.
		configPath := cfgFile
		if configPath == "" && h.ConfigExists() {
			configPath = h.ConfigPath()
		}
		mgr, err := config.NewManager(configPath)
		if err != nil {
			return err
		}

		srv, err := server.New(server.Config{
			ConfigManager: mgr,
			Home:          h,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
