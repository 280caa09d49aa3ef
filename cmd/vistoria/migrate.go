/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"fmt"
	"log"

	"github.com/lewtec/vistoria/db"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Bring the database named by the config up to the latest schema and print
the applied version. Every other command migrates on start as well.

Example: vistoria migrate -c ./shop/config.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		conn, err := db.Open(cfg.Storage.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer conn.Close()

		before, dirty, err := db.Version(conn)
		if err != nil {
			return err
		}
		if dirty {
			return fmt.Errorf("database %s is dirty at version %d, fix it by hand first", cfg.Storage.Database, before)
		}
		log.Printf("Database: %s", cfg.Storage.Database)
		log.Printf("  Current version: %d", before)
		if err := db.Migrate(conn); err != nil {
			return err
		}
		after, _, err := db.Version(conn)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d\n", after)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
