package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"bucks2bar/internal/core"
	applog "bucks2bar/internal/log"
)

type ExportOptions struct {
	*RootOptions
	Out string
}

func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the saved chart as a PNG file",
		Long: `Restore the saved data, sync it and write the chart image.

With nothing saved the chart is all zeros, and the sync stores that state.

Example:
  bucks2bar export --out budget.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output file (default bucks2bar-YYYY-MM-DD.png)")

	return cmd
}

func runExport(cmd *cobra.Command, opts *ExportOptions) error {
	cfg, logger, err := opts.bootstrap(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return WrapExitError(ExitStorageError, "open store", err)
	}
	defer app.Close()

	if !app.Sync.Restore(ctx) {
		logger.Warn("No saved data, exporting an empty chart", applog.FieldStorageKey, app.Store.Key())
	}
	app.Sync.UpdateChartFromInputs(ctx)

	out := opts.Out
	if out == "" {
		out = core.ExportFilename(time.Now())
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	if err := app.Sync.ExportChart(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", out, err)
	}

	logger.Info("Chart exported", "path", out, applog.FieldOperation, applog.OpExport)
	fmt.Fprintf(cmd.OutOrStdout(), "Chart written to %s\n", out)
	return nil
}
