package cli

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// MigrationStatus is the printed result of `migrate status`.
type MigrationStatus struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Apply, roll back or inspect the embedded PostgreSQL migrations.

A dirty schema (an interrupted migration) must be repaired by hand and then
marked with "migrate force <version>".`,
	}
	cmd.AddCommand(newMigrateUpCmd(), newMigrateDownCmd(), newMigrateStatusCmd(), newMigrateForceCmd())
	return cmd
}

// migrator resolves the config and returns the backend's migrator.
func migrator(cmd *cobra.Command) (*CLIContext, Migrator, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := cliCtx.Config()
	if err != nil {
		return nil, nil, err
	}
	return cliCtx, cliCtx.Backend.Migrator(cfg), nil
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, m, err := migrator(cmd)
			if err != nil {
				return err
			}
			if err := m.Up(); err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "migrate up failed")
			}
			PrintSuccess(cmd, "schema is up to date")
			return nil
		},
	}
}

func newMigrateDownCmd() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps < 1 {
				return errors.InvalidParam("--steps must be at least 1")
			}
			_, m, err := migrator(cmd)
			if err != nil {
				return err
			}
			if err := m.Down(steps); err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "migrate down failed")
			}
			PrintSuccess(cmd, fmt.Sprintf("rolled back %d migration(s)", steps))
			return nil
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	return cmd
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, m, err := migrator(cmd)
			if err != nil {
				return err
			}
			version, dirty, err := m.Status()
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "migrate status failed")
			}
			status := MigrationStatus{Version: version, Dirty: dirty}
			if cliCtx.OutputFormat == OutputJSON {
				return printJSON(cmd.OutOrStdout(), status)
			}
			state := color.GreenString("clean")
			if dirty {
				state = color.RedString("dirty")
			}
			return renderTable(cmd.OutOrStdout(), []string{"Version", "State"},
				[][]string{{strconv.FormatUint(uint64(version), 10), state}})
		},
	}
}

func newMigrateForceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force <version>",
		Short: "Mark the schema as being at version without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil || version < 0 {
				return errors.InvalidParam("version must be a non-negative integer")
			}
			_, m, err := migrator(cmd)
			if err != nil {
				return err
			}
			if err := m.Force(version); err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "migrate force failed")
			}
			PrintSuccess(cmd, fmt.Sprintf("schema marked as version %d", version))
			return nil
		},
	}
}

//Personal.AI order the ending
