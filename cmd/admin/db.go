package main

import (
	"context"
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"overburnt.game/internal/persistence/indexdb"
)

func newDBCommand() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Query the sqlite attempt index",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "sqlite db path (default <data>/index.db)")

	open := func() (*indexdb.SQLiteIndex, error) {
		path := dbPath
		if path == "" {
			path = filepath.Join(dataDir, "index.db")
		}
		return indexdb.OpenSQLite(path)
	}

	var limit int
	sessions := &cobra.Command{
		Use:   "sessions",
		Short: "List recent sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := open()
			if err != nil {
				return err
			}
			defer idx.Close()
			rows, err := idx.Sessions(context.Background(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SESSION\tPLAYER\tSEED\tSTART\tATTEMPTS\tSTARTED_AT")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", r.ID, r.PlayerName, r.Seed, r.StartLevel, r.Attempts, r.StartedAt)
			}
			return tw.Flush()
		},
	}
	sessions.Flags().IntVar(&limit, "limit", 20, "result limit")

	attempts := &cobra.Command{
		Use:   "attempts <session-id>",
		Short: "List the finished level attempts of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := open()
			if err != nil {
				return err
			}
			defer idx.Close()
			rows, err := idx.Attempts(context.Background(), args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TICK\tLEVEL\tRESULT\tREVENUE\tFATIGUE")
			for _, r := range rows {
				fmt.Fprintf(tw, "%d\t%d:%s\t%s\t%d\t%.1f\n", r.Tick, r.LevelIndex, r.LevelID, r.Result, r.Revenue, r.Fatigue)
			}
			return tw.Flush()
		},
	}

	levels := &cobra.Command{
		Use:   "levels",
		Short: "Summarise results per level",
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := open()
			if err != nil {
				return err
			}
			defer idx.Close()
			rows, err := idx.LevelResults(context.Background())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LEVEL\tRESULT\tCOUNT\tAVG_REVENUE")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f\n", r.LevelID, r.Result, r.Count, r.AvgRevenue)
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(sessions, attempts, levels)
	return cmd
}
