/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/lewtec/vistoria/internal/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// writeOutput writes data to the named file, or to stdout when name is
// empty. Binary output is never written to a terminal.
func writeOutput(cmd *cobra.Command, name string, data []byte) error {
	if name != "" {
		return os.WriteFile(name, data, 0644)
	}
	out := cmd.OutOrStdout()
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return fmt.Errorf("refusing to write binary output to a terminal, use --output")
	}
	_, err := out.Write(data)
	return err
}

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate <task-id>",
	Short: "Generate the PDF report of a task",
	Long: `Generate the PDF report of a task from its photos, scans and findings.

The PDF goes to --output, or to stdout when it is not a terminal. With
--upload the report is also handed to the outbox.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, closeApp, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp()
		ctx := cmd.Context()

		s, err := app.SessionForTask(ctx, args[0])
		if err != nil {
			return err
		}
		rep, err := s.Generate(ctx)
		if err != nil {
			return err
		}
		log.Printf("Generated %d pages, %s", rep.Report.Pages, humanize.Bytes(uint64(rep.Report.Size)))
		if rep.Skipped > 0 {
			log.Printf("warning: %d images could not be embedded", rep.Skipped)
		}

		if upload, _ := cmd.Flags().GetBool("upload"); upload {
			res, err := s.Upload(ctx, func(p domain.UploadProgress) {
				log.Printf("upload: %s %d%% %s", p.Step, p.Percent, p.Message)
			})
			if err != nil {
				return err
			}
			log.Printf("Uploaded to %s", res.Location)
		}

		output, _ := cmd.Flags().GetString("output")
		return writeOutput(cmd, output, rep.Data)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringP("output", "o", "", "Output file")
	generateCmd.Flags().Bool("upload", false, "Upload the report after generating it")
}
