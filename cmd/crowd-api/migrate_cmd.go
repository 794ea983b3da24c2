package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/crowd-dev/crowd-api/migrations"
	"github.com/crowd-dev/crowd-api/pkg/configuration"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				conf := configuration.Use()
				pool, err := openPool(cmd.Context(), conf)
				if err != nil {
					return err
				}
				defer pool.Close()
				if err := migrations.Up(cmd.Context(), pool); err != nil {
					return err
				}
				conf.Logger().Info("migrations applied")
				return nil
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE: func(cmd *cobra.Command, _ []string) error {
				conf := configuration.Use()
				pool, err := openPool(cmd.Context(), conf)
				if err != nil {
					return err
				}
				defer pool.Close()
				return migrations.Down(cmd.Context(), pool)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the state of every migration",
			RunE: func(cmd *cobra.Command, _ []string) error {
				conf := configuration.Use()
				pool, err := openPool(cmd.Context(), conf)
				if err != nil {
					return err
				}
				defer pool.Close()
				list, err := migrations.Status(cmd.Context(), pool)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED\tFILE")
				for _, s := range list {
					applied := "-"
					if !s.AppliedAt.IsZero() {
						applied = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
				}
				return w.Flush()
			},
		},
	)
	return cmd
}
