package main

import (
	"errors"
	"fmt"

	"github.com/lewtec/vistoria/internal/domain"
	"github.com/spf13/cobra"
)

// draftCmd represents the draft command
var draftCmd = &cobra.Command{
	Use:   "draft <task-id>",
	Short: "Create or update the draft of a task",
	Long: `Create the draft of a repair order task, or update the one that exists.

Examples:
  vistoria draft task-12 --ro-number 1001 --customer "Jane Doe" --make Honda --model Civic
  vistoria draft task-12 --findings "Front pads at 2mm"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, closeApp, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp()
		ctx := cmd.Context()

		flag := func(name string) string {
			v, _ := cmd.Flags().GetString(name)
			return v
		}
		d, err := app.Services.Drafts.GetByTask(ctx, args[0])
		if errors.Is(err, domain.ErrNotFound) {
			d = &domain.ReportDraft{TaskID: args[0]}
			err = app.CreateDraft(ctx, d)
		}
		if err != nil {
			return err
		}

		changed := false
		set := func(field *string, name string) {
			if cmd.Flags().Changed(name) {
				*field = flag(name)
				changed = true
			}
		}
		set(&d.RONumber, "ro-number")
		set(&d.ROID, "ro-id")
		set(&d.CustomerName, "customer")
		v := domain.Vehicle{}
		if d.Vehicle != nil {
			v = *d.Vehicle
		}
		before := changed
		set(&v.Year, "year")
		set(&v.Make, "make")
		set(&v.Model, "model")
		set(&v.VIN, "vin")
		set(&v.Plate, "plate")
		if changed != before {
			d.Vehicle = &v
		}
		if changed {
			if err := app.Services.Drafts.UpdateRepairOrder(ctx, d); err != nil {
				return err
			}
		}

		if cmd.Flags().Changed("findings") {
			s, err := app.Session(ctx, d.ID)
			if err != nil {
				return err
			}
			if _, err := s.SetFindings(flag("findings")); err != nil {
				return err
			}
			if err := s.FlushFindings(ctx); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), d.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(draftCmd)
	draftCmd.Flags().String("ro-number", "", "Repair order number")
	draftCmd.Flags().String("ro-id", "", "Repair order id in the shop system")
	draftCmd.Flags().String("customer", "", "Customer name")
	draftCmd.Flags().String("year", "", "Vehicle year")
	draftCmd.Flags().String("make", "", "Vehicle make")
	draftCmd.Flags().String("model", "", "Vehicle model")
	draftCmd.Flags().String("vin", "", "Vehicle VIN")
	draftCmd.Flags().String("plate", "", "Vehicle plate")
	draftCmd.Flags().String("findings", "", "Findings text")
}
