// Package migrate applies and reports data migrations.
package migrate

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/debatetab/debatetab/internal/conf"
	"github.com/debatetab/debatetab/internal/datastore"
	"github.com/debatetab/debatetab/internal/datastore/migration"
	"github.com/debatetab/debatetab/internal/logger"
)

// Output formats for the status command.
const (
	OutputTable = "table"
	OutputYAML  = "yaml"
	OutputJSON  = "json"
)

// Command creates the migrate command with its up and status subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage data migrations",
	}
	cmd.AddCommand(upCommand(settings), statusCommand(settings))
	return cmd
}

func upCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply pending data migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(settings, func(runner *migration.Runner) error {
				applied, err := runner.Run(cmd.Context())
				for _, version := range applied {
					fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", version)
				}
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no pending migrations")
				}
				return nil
			})
		},
	}
}

func statusCommand(settings *conf.Settings) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "List data migrations and whether they have been applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(settings, func(runner *migration.Runner) error {
				statuses, err := runner.Status(cmd.Context())
				if err != nil {
					return err
				}
				return WriteStatus(cmd.OutOrStdout(), statuses, output)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", OutputTable, "Output format (table, yaml, json)")
	return cmd
}

func withRunner(settings *conf.Settings, fn func(*migration.Runner) error) error {
	log := logger.Global().Module("migration")
	manager, err := datastore.Open(&settings.Database, logger.Global().Module("datastore"))
	if err != nil {
		return err
	}
	defer func() {
		if err := manager.Close(); err != nil {
			log.Warn("failed to close database", logger.Error(err))
		}
	}()
	return fn(migration.NewRunner(manager.DB(), log))
}

// WriteStatus writes statuses to w in the given format.
func WriteStatus(w io.Writer, statuses []migration.Status, format string) error {
	switch format {
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(statuses); err != nil {
			return err
		}
		return enc.Close()
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	case OutputTable, "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tDESCRIPTION\tAPPLIED")
		for _, s := range statuses {
			applied := "no"
			if s.AppliedAt != nil {
				applied = s.AppliedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Version, s.Description, applied)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
