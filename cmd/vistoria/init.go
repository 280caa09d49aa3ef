package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/lewtec/vistoria/inspection"
	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init [folder]",
	Short: "Initialize a new inspection workspace",
	Long: `Initialize a new inspection workspace by creating:
- A sample configuration file (config.yaml)
- The SQLite database with its schema
- The blob and outbox directories

Example:
  vistoria init ./shop
  vistoria serve -c ./shop/config.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		if len(args) == 1 {
			if err := os.MkdirAll(args[0], 0755); err != nil {
				return fmt.Errorf("failed to create %s: %w", args[0], err)
			}
			configFile = filepath.Join(args[0], "config.yaml")
			cmd.Flags().Set("config", configFile)
		}

		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			log.Printf("Creating default config: %s", configFile)
			if err := os.WriteFile(configFile, []byte(inspection.SampleConfig), 0644); err != nil {
				return fmt.Errorf("failed to create config file: %w", err)
			}
		} else {
			log.Printf("Configuration file already exists: %s", configFile)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		for _, dir := range []string{cfg.Storage.Blobs, cfg.Storage.Outbox} {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create %s: %w", dir, err)
			}
		}
		log.Printf("Creating database: %s", cfg.Storage.Database)
		storage, err := inspection.OpenStorage(cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
		defer storage.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Initialization complete!")
		fmt.Fprintln(out, "Next steps:")
		fmt.Fprintln(out, "  1. Review your config file:", configFile)
		fmt.Fprintln(out, "  2. Start the server:")
		fmt.Fprintf(out, "     vistoria serve -c %s\n", configFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
