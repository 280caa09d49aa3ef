/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func PrintQuery(ctx context.Context, w io.Writer, db *sql.Tx, query string, args ...interface{}) error {
	stmt, err := db.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	result, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return err
	}
	defer result.Close()
	columns, err := result.Columns()
	if err != nil {
		return err
	}
	if len(columns) > 1 {
		fmt.Fprintln(w, strings.Join(columns, "\t"))
	}
	pointers := make([]interface{}, len(columns))
	container := make([]sql.NullString, len(columns))
	for i := 0; i < len(columns); i++ {
		pointers[i] = &container[i]
	}
	row := make([]string, len(columns))
	for result.Next() {
		if err := result.Scan(pointers...); err != nil {
			return err
		}
		for i, v := range container {
			row[i] = v.String
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return result.Err()
}

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query [flags] [task-id]",
	Short: "Queries the inspection database",
	Long: `List the drafts in the database, or the reports of one task.

Examples:
  # List every draft with its photo, scan and report counts
  vistoria query

  # List the reports generated for a task
  vistoria query task-12

  # Run an SQL query, changes are rolled back
  vistoria query --sql "SELECT task_id, findings FROM drafts"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, closeApp, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp()
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if query, _ := cmd.Flags().GetString("sql"); query != "" {
			tx, err := app.Storage.DB.BeginTx(ctx, &sql.TxOptions{
				Isolation: sql.LevelReadUncommitted,
			})
			if err != nil {
				return err
			}
			defer tx.Rollback()
			return PrintQuery(ctx, out, tx, query)
		}

		if len(args) == 1 {
			d, err := app.Services.Drafts.GetByTask(ctx, args[0])
			if err != nil {
				return err
			}
			reports, err := app.Services.Reports.List(ctx, d.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "id\tpages\tsize\tgenerated\tlocation")
			for _, r := range reports {
				fmt.Fprintf(out, "%s\t%d\t%s\t%s\t%s\n", r.ID, r.Pages, humanize.Bytes(uint64(r.Size)), humanize.Time(r.GeneratedAt), r.Location)
			}
			return nil
		}

		drafts, err := app.Summaries(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "task\tro\tcustomer\tphotos\tscans\treports\tupdated")
		for _, s := range drafts {
			d := s.Draft
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				d.TaskID, d.RONumber, d.CustomerName,
				humanize.Comma(s.Stats.Photos), humanize.Comma(s.Stats.Scans), humanize.Comma(s.Stats.Reports),
				humanize.Time(d.UpdatedAt))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().String("sql", "", "Run an SQL query instead, changes are rolled back")
}
