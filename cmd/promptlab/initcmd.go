package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/promptlab/promptlab/internal/config"
	"github.com/promptlab/promptlab/internal/home"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the promptlab home directory",
	Long: `Initialize the promptlab home directory.

Creates ~/.promptlab (or the --home override) with its data and models
subdirectories and writes a default config.yaml. Existing config files
are preserved unless --force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		if h.ConfigExists() && !initForce {
			fmt.Printf("Config already exists at %s (use --force to overwrite)\n", h.ConfigPath())
			return nil
		}

		if err := config.WriteDefault(h.ConfigPath()); err != nil {
			return err
		}

		fmt.Printf("Initialized promptlab home at %s\n", h.Path())
		fmt.Printf("Wrote default config to %s\n", h.ConfigPath())
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
