package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/promptlab/promptlab/internal/home"
	"github.com/promptlab/promptlab/internal/ollama"
)

var ollamaCmd = &cobra.Command{
	Use:   "ollama",
	Short: "Manage a local Ollama container",
	Long: `Manage an optional local Ollama Docker container.

PromptLab talks to any Ollama instance; these commands exist for machines
without a native install. Models are persisted to ~/.promptlab/models/.

Examples:
  promptlab ollama start   # Start the Ollama container
  promptlab ollama stop    # Stop the container (models preserved)
  promptlab ollama status  # Check container status
  promptlab ollama logs    # View container logs`,
}

var ollamaStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Ollama container",
	Long: `Start the Ollama container.

If the container doesn't exist, it will be created and started.
If it exists but is stopped, it will be started.
If it's already running, this is a no-op.

Models are persisted to ~/.promptlab/models/.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getDockerManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Starting Ollama...")
		if err := mgr.Start(ctx); err != nil {
			return fmt.Errorf("failed to start Ollama: %w", err)
		}

		fmt.Printf("Ollama is running at %s\n", mgr.URL())
		return nil
	},
}

var ollamaStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the Ollama container",
	Long: `Stop the Ollama container.

This stops the container but preserves downloaded models. Use
'promptlab ollama start' to restart it later.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getDockerManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Stopping Ollama...")
		if err := mgr.Stop(ctx); err != nil {
			return fmt.Errorf("failed to stop Ollama: %w", err)
		}

		fmt.Println("Ollama stopped")
		return nil
	},
}

var ollamaStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show Ollama container status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getDockerManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		status, err := mgr.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}

		switch status {
		case ollama.StatusRunning:
			fmt.Printf("Status: %s\n", status)
			fmt.Printf("URL: %s\n", mgr.URL())

			// Try a health check against the engine
			client := ollama.NewClient(ollama.Config{Endpoint: mgr.URL()})
			health, err := client.CheckHealth(ctx)
			if err != nil || !health.Connected {
				fmt.Println("Health: unhealthy")
			} else {
				fmt.Println("Health: healthy")
			}
		case ollama.StatusStopped:
			fmt.Printf("Status: %s (use 'promptlab ollama start' to start)\n", status)
		case ollama.StatusNotFound:
			fmt.Printf("Status: %s (use 'promptlab ollama start' to create)\n", status)
		default:
			fmt.Printf("Status: %s\n", status)
		}

		return nil
	},
}

var logsTail string

var ollamaLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show Ollama container logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := getDockerManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		logs, err := mgr.Logs(cmd.Context(), logsTail)
		if err != nil {
			return fmt.Errorf("failed to get logs: %w", err)
		}

		fmt.Print(logs)
		return nil
	},
}

var ollamaRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the Ollama container",
	Long: `Remove the Ollama container.

This stops and removes the container. Models in ~/.promptlab/models/
are NOT deleted - only the container is removed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := getDockerManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Removing Ollama container...")
		if err := mgr.Remove(cmd.Context()); err != nil {
			return fmt.Errorf("failed to remove container: %w", err)
		}

		fmt.Println("Ollama container removed (models preserved)")
		return nil
	},
}

var ollamaWaitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for Ollama to be ready",
	Long: `Wait for Ollama to be ready to accept connections.

This is useful in scripts to ensure the engine is fully started
before running other commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := getDockerManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		timeout, _ := cmd.Flags().GetDuration("timeout")
		fmt.Printf("Waiting for Ollama (timeout: %s)...\n", timeout)

		if err := mgr.WaitReady(cmd.Context(), timeout); err != nil {
			return fmt.Errorf("Ollama not ready: %w", err)
		}

		fmt.Println("Ollama is ready")
		return nil
	},
}

func init() {
	ollamaCmd.AddCommand(ollamaStartCmd)
	ollamaCmd.AddCommand(ollamaStopCmd)
	ollamaCmd.AddCommand(ollamaStatusCmd)
	ollamaCmd.AddCommand(ollamaLogsCmd)
	ollamaCmd.AddCommand(ollamaRemoveCmd)
	ollamaCmd.AddCommand(ollamaWaitCmd)

	ollamaLogsCmd.Flags().StringVar(&logsTail, "tail", "100", "Number of lines to show from the end")
	ollamaWaitCmd.Flags().Duration("timeout", 60*time.Second, "Timeout waiting for Ollama")

	rootCmd.AddCommand(ollamaCmd)
}

// getDockerManager creates a DockerManager with the standard config.
func getDockerManager() (*ollama.DockerManager, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, fmt.Errorf("failed to create home directory: %w", err)
	}

	return ollama.NewDockerManager(ollama.DockerConfig{
		ModelsPath: h.ModelsPath(),
	})
}
