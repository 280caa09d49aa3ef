/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/lewtec/vistoria/inspection"
	"github.com/lewtec/vistoria/internal/logger"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vistoria",
	Short: "Build vehicle inspection reports",
	Long: strings.TrimSpace(`
Collect inspection photos and diagnostic scans for a repair order task,
annotate them, write the findings and compose everything into a PDF report
that is handed to the shop outbox.
    `),
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		logger.SetVerbose(verbose)
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "config.yaml", "Config file (yaml or toml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug messages")
}

// resolve makes path relative to base unless it is absolute.
func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) || path == ":memory:" {
		return path
	}
	return filepath.Join(base, path)
}

// loadConfig loads the --config file. Storage paths in it are relative to
// the file. A missing file falls back to the defaults next to it.
func loadConfig(cmd *cobra.Command) (*inspection.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := inspection.LoadConfig(configFile)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("Config %s not found, using defaults", configFile)
		cfg = inspection.DefaultConfig()
		cfg.ApplyEnv(os.Getenv)
		err = cfg.Validate()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	base := filepath.Dir(configFile)
	cfg.Storage.Database = resolve(base, cfg.Storage.Database)
	cfg.Storage.Blobs = resolve(base, cfg.Storage.Blobs)
	cfg.Storage.Outbox = resolve(base, cfg.Storage.Outbox)
	return cfg, nil
}

// openApp loads the config and opens its storage.
func openApp(cmd *cobra.Command) (*inspection.InspectionApp, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	storage, err := inspection.OpenStorage(cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}
	app := inspection.NewInspectionApp(cfg, storage)
	closeFn := func() {
		if err := app.Close(context.Background()); err != nil {
			log.Printf("error: %s", err)
		}
		storage.Close()
	}
	return app, closeFn, nil
}
