/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/lewtec/vistoria/inspection"
	"github.com/lewtec/vistoria/internal/domain"
	"github.com/spf13/cobra"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <task-id> <inbox>",
	Short: "Ingest photos and scans dropped in a folder",
	Long: `Watch a folder and add every photo or scan dropped in it to the draft of a task.

PDFs become scans. Images inside a folder named after a scan category
(obd2, alignment, battery, brake, other) or "scans" become scans of that
category. Every other image becomes a photo. Files already in the draft are
skipped.

With --once the folder is scanned a single time and the command exits.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(2)(cmd, args); err != nil {
			return err
		}
		info, err := os.Stat(args[1])
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s must be a directory", args[1])
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, closeApp, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp()
		ctx := cmd.Context()

		d, err := app.Services.Drafts.GetByTask(ctx, args[0])
		if errors.Is(err, domain.ErrNotFound) {
			d = &domain.ReportDraft{TaskID: args[0]}
			err = app.CreateDraft(ctx, d)
		}
		if err != nil {
			return err
		}
		s, err := app.Session(ctx, d.ID)
		if err != nil {
			return err
		}

		w := inspection.NewInboxWatcher(args[1], inspection.NewIngester(s))
		var ingested, failed int
		w.OnResult = func(res *inspection.IngestResult, err error) {
			switch {
			case err != nil:
				failed++
			case res.Warning != "":
				log.Printf("warning: %s", res.Warning)
				ingested++
			case !res.Duplicate:
				ingested++
			}
		}
		once, _ := cmd.Flags().GetBool("once")
		if once {
			err = w.Scan(ctx)
		} else {
			log.Printf("Watching %s for task %s, press Ctrl+C to stop", args[1], args[0])
			err = w.Run(ctx)
		}
		photos, scans := s.Library().Len()
		fmt.Fprintf(cmd.OutOrStdout(), "%d ingested, %d failed, draft has %d photos and %d scans\n", ingested, failed, photos, scans)
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Bool("once", false, "Scan the folder once and exit")
}
