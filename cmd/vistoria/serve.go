/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the inspection web server",
	Long: `Start the inspection web server.

Drafts are listed at the root page. Each draft page takes photos and scans,
opens the annotation editor, autosaves the findings and generates and uploads
the report.

Examples:
  vistoria serve -c config.yaml
  vistoria serve -c config.yaml --addr 127.0.0.1:9000
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, closeApp, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp()

		addr := app.Config.Server.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		log.Printf("Database: %s", app.Config.Storage.Database)
		log.Printf("Outbox: %s", app.Config.Storage.Outbox)
		log.Printf("Shop: %s", app.Config.Meta.ShopID)
		log.Printf("Language: %s", app.Config.Report.Language)
		log.Printf("Starting server on: %s", addr)

		srv := &http.Server{Addr: addr, Handler: app.GetHTTPHandler()}
		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()

		select {
		case err := <-errCh:
			return fmt.Errorf("while serving: %w", err)
		case <-cmd.Context().Done():
		}
		log.Printf("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to bind the webserver")
}
