package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/forgev2/forge-admin/internal/config"
	"github.com/forgev2/forge-admin/internal/dashboard"
	forgeerrors "github.com/forgev2/forge-admin/internal/errors"
	"github.com/forgev2/forge-admin/internal/export"
	"github.com/forgev2/forge-admin/internal/fetch"
	"github.com/forgev2/forge-admin/internal/logging"
	"github.com/forgev2/forge-admin/internal/sorting"
	"github.com/forgev2/forge-admin/internal/view"
	"github.com/forgev2/forge-admin/pkg/types"
)

// cli holds the flags shared by every command.
type cli struct {
	envFile  string
	baseURL  string
	timeout  time.Duration
	logLevel string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "forgectl",
		Short:         "Forge dashboard command line",
		Long:          `Fetch Forge resources from a snapshot backend and print summaries or export tables as CSV.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "Path to a .env file; missing files are ignored")
	root.PersistentFlags().StringVar(&c.baseURL, "base-url", "", "Snapshot backend URL (default from FORGE_DASHBOARD_BASE_URL)")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 0, "Per-resource fetch timeout")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	root.AddCommand(c.exportCmd(), c.summaryCmd(), c.workflowsCmd(), c.tablesCmd(), c.rawCmd())
	return root
}

func (c *cli) load(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(c.envFile); err != nil {
		return err
	}
	cfg := config.DefaultConfig()
	config.LoadFromEnv(cfg)
	if cmd.Flags().Changed("base-url") {
		cfg.Dashboard.BaseURL = c.baseURL
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Dashboard.FetchTimeout = c.timeout
	}
	cfg.Log.Level = c.logLevel
	cfg.Resolve()

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	c.cfg = cfg
	c.logger = logger
	return nil
}

func (c *cli) fetcher() *fetch.Fetcher {
	return fetch.New(c.cfg.Dashboard.BaseURL,
		fetch.WithTimeout(c.cfg.Dashboard.FetchTimeout),
		fetch.WithLogger(c.logger.Named("fetch")))
}

func (c *cli) service() *dashboard.Service {
	return dashboard.New(c.fetcher(), dashboard.WithLogger(c.logger.Named("dashboard")))
}

func (c *cli) exportCmd() *cobra.Command {
	var (
		outDir  string
		sortKey string
		dir     string
	)
	cmd := &cobra.Command{
		Use:   "export [table]",
		Short: "Export dashboard tables as CSV",
		Long: `Export one derived table, or every table when none is named, as CSV files.
Tables: user_management, all_subs, active_subs, incomplete_subs, templates.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			direction, err := sorting.ParseDirection(dir)
			if err != nil {
				return err
			}
			if direction == sorting.None {
				direction = sorting.Asc
			}
			if outDir == "" {
				outDir = c.cfg.Dashboard.ExportDir
			}

			tables := view.TableIDs
			if len(args) == 1 {
				id, err := view.ParseTableID(args[0])
				if err != nil {
					return err
				}
				tables = []view.TableID{id}
			}
			if sortKey != "" && len(tables) != 1 {
				return fmt.Errorf("--sort requires a table name")
			}

			return runExport(cmd.Context(), cmd.OutOrStdout(), c.service(),
				export.NewFileSink(outDir, export.WithSinkLogger(c.logger.Named("export"))),
				tables, sortKey, direction)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (default from FORGE_DASHBOARD_EXPORT_DIR)")
	cmd.Flags().StringVar(&sortKey, "sort", "", "Column key to sort by")
	cmd.Flags().StringVar(&dir, "dir", "asc", "Sort direction: asc or desc")
	return cmd
}

func runExport(ctx context.Context, out io.Writer, svc *dashboard.Service, sink *export.FileSink,
	tables []view.TableID, sortKey string, direction sorting.Direction) error {
	if sortKey != "" {
		// A fresh service has no sort; one toggle is ascending, two descending.
		toggles := 1
		if direction == sorting.Desc {
			toggles = 2
		}
		for i := 0; i < toggles; i++ {
			if _, err := svc.Toggle(ctx, string(tables[0]), sortKey); err != nil {
				return err
			}
		}
	}

	for _, table := range tables {
		id, t, err := svc.Export(ctx, string(table))
		if err != nil {
			return err
		}
		path, err := sink.Save(id.FileName(), t)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %d rows -> %s\n", id, len(t.Rows), path)
	}
	return nil
}

func (c *cli) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print the dashboard overview as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := c.service().Dashboard(cmd.Context())
			return printJSON(cmd.OutOrStdout(), d.Overview)
		},
	}
}

func (c *cli) workflowsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "workflows",
		Short: "Print workflow trigger metrics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := c.service().Dashboard(cmd.Context())
			return printJSON(cmd.OutOrStdout(), d.Workflows)
		},
	}
}

func (c *cli) tablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List derived tables and their columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := c.service().Dashboard(cmd.Context())
			out := cmd.OutOrStdout()
			for _, id := range view.TableIDs {
				t, _ := d.Table(id)
				fmt.Fprintf(out, "%s (%s, %d rows)\n", id, id.FileName(), len(t.Rows))
				for _, col := range d.Columns(id) {
					fmt.Fprintf(out, "  %-24s %s\n", col.Key, col.Header)
				}
			}
			return nil
		},
	}
}

func (c *cli) rawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "raw <resource>",
		Short: "Print the rows of one backend resource as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := types.ParseResource(args[0])
			if err != nil {
				return forgeerrors.NewValidationError(forgeerrors.CodeUnknownResource, err.Error())
			}
			set := c.fetcher().FetchAll(cmd.Context(), name)
			return printJSON(cmd.OutOrStdout(), set.Rows(name))
		},
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
