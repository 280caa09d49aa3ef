/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"fmt"
	"os"

	"github.com/lewtec/vistoria/inspection"
	"github.com/lewtec/vistoria/internal/canvas"
	"github.com/spf13/cobra"
)

// annotateCmd represents the annotate command
var annotateCmd = &cobra.Command{
	Use:   "annotate <photo> <snapshot.json>",
	Short: "Draw a saved annotation over a photo",
	Long: `Render an annotation snapshot over a photo at the photo's own resolution
and write the JPEG to --output, or to stdout when it is not a terminal.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		photo, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		snap, err := canvas.DecodeSnapshot(raw)
		if err != nil {
			return fmt.Errorf("while reading %s: %w", args[1], err)
		}
		data, err := inspection.RenderAnnotation(photo, snap)
		if err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString("output")
		return writeOutput(cmd, output, data)
	},
}

func init() {
	rootCmd.AddCommand(annotateCmd)
	annotateCmd.Flags().StringP("output", "o", "", "Output file")
}
