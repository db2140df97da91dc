// Package cli implements contractctl, the operator command line for
// ContractKeeper: schema migrations, on-demand sweeps, document uploads and
// an offline deadline calculator.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/turtacn/ContractKeeper/internal/config"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	NoColor      bool
	Timeout      time.Duration
}

// CLIContext carries initialized dependencies through the command tree.
// The configuration is loaded on first use so offline commands work without
// one.
type CLIContext struct {
	Logger       logging.Logger
	Backend      Backend
	OutputFormat string
	NoColor      bool
	Timeout      time.Duration

	configPath string
	cfg        *config.Config
}

// Config loads the configuration once.  Search order: --config, then
// ./contractkeeper.yaml, ~/.contractkeeper/config.yaml,
// /etc/contractkeeper/config.yaml, then CONTRACTKEEPER_* variables alone.
func (c *CLIContext) Config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	var err error
	if path := c.configPath; path != "" {
		c.cfg, err = config.Load(path)
		return c.cfg, err
	}
	for _, p := range configSearchPaths() {
		if _, statErr := os.Stat(p); statErr == nil {
			c.cfg, err = config.Load(p)
			return c.cfg, err
		}
	}
	c.cfg, err = config.LoadFromEnv()
	return c.cfg, err
}

func configSearchPaths() []string {
	paths := []string{"./contractkeeper.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".contractkeeper", "config.yaml"))
	}
	return append(paths, "/etc/contractkeeper/config.yaml")
}

// Option customises NewRootCommand.
type Option func(*CLIContext)

// WithBackend replaces the production backend.
func WithBackend(b Backend) Option {
	return func(c *CLIContext) { c.Backend = b }
}

// WithConfig skips config file discovery.
func WithConfig(cfg *config.Config) Option {
	return func(c *CLIContext) { c.cfg = cfg }
}

// WithLogger replaces the stderr logger.
func WithLogger(l logging.Logger) Option {
	return func(c *CLIContext) { c.Logger = l }
}

// NewRootCommand creates the contractctl command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	ro := &RootOptions{}
	cliCtx := &CLIContext{Backend: defaultBackend{}}
	for _, opt := range opts {
		opt(cliCtx)
	}

	cmd := &cobra.Command{
		Use:   "contractctl",
		Short: "ContractKeeper operator CLI",
		Long: `contractctl administers a ContractKeeper installation.

It applies schema migrations, runs the reminder and trash sweeps on demand
(directly or through the worker), uploads contract documents and computes
cancellation deadlines.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return persistentPreRun(cmd, ro, cliCtx)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&ro.ConfigPath, "config", "c", "", "config file path (default: ./contractkeeper.yaml)")
	pf.StringVar(&ro.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&ro.OutputFormat, "output", "o", OutputTable, "output format (table, json)")
	pf.BoolVar(&ro.NoColor, "no-color", false, "disable colored output")
	pf.DurationVar(&ro.Timeout, "timeout", 5*time.Minute, "overall operation timeout")

	cmd.AddCommand(
		newMigrateCmd(),
		newSweepCmd(),
		newDeadlineCmd(),
		newDocumentCmd(),
		newVersionCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, ro *RootOptions, cliCtx *CLIContext) error {
	switch ro.OutputFormat {
	case OutputTable, OutputJSON:
	default:
		return errors.InvalidParam(fmt.Sprintf("unknown output format %q (table, json)", ro.OutputFormat))
	}
	if cliCtx.Logger == nil {
		logger, err := logging.NewLogger(logging.LogConfig{
			Level:            ro.LogLevel,
			Format:           "console",
			OutputPaths:      []string{"stderr"},
			ErrorOutputPaths: []string{"stderr"},
		})
		if err != nil {
			return fmt.Errorf("logger initialization failed: %w", err)
		}
		cliCtx.Logger = logger
	}
	cliCtx.configPath = ro.ConfigPath
	cliCtx.OutputFormat = ro.OutputFormat
	cliCtx.NoColor = ro.NoColor
	cliCtx.Timeout = ro.Timeout
	if ro.NoColor {
		color.NoColor = true
	}

	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cliCtx))
	return nil
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "CLIContext not found in command context")
	}
	return cliCtx, nil
}

// Execute runs contractctl.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			info := map[string]string{"version": Version, "commit": GitCommit, "buildDate": BuildDate}
			if cliCtx.OutputFormat == OutputJSON {
				return printJSON(cmd.OutOrStdout(), info)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "contractctl %s (commit: %s, built: %s)\n", Version, GitCommit, BuildDate)
			return nil
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Output helpers
// ─────────────────────────────────────────────────────────────────────────────

func printJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// renderTable writes rows under headers.
func renderTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	cells := make([]any, len(headers))
	for i, h := range headers {
		cells[i] = h
	}
	table.Header(cells...)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

// PrintError writes err to stderr, with its code when it is an AppError.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	msg := err.Error()
	if code := errors.GetCode(err); code != errors.CodeUnknown {
		msg = fmt.Sprintf("[%s] %s", code, msg)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), color.RedString("Error:"), msg)
}

// PrintSuccess writes a success line to stdout.
func PrintSuccess(cmd *cobra.Command, msg string) {
	fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("OK:"), msg)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

//Personal.AI order the ending
