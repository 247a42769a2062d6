package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"bucks2bar/internal/core"
)

type ShowOptions struct {
	*RootOptions
	JSON bool
}

func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the saved data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.bootstrap(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			app, err := NewApp(cmd.Context(), cfg, logger)
			if err != nil {
				return WrapExitError(ExitStorageError, "open store", err)
			}
			defer app.Close()

			snap, ok := app.Store.Load(cmd.Context())
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "No saved data (%s)\n", app.Store.Key())
				return nil
			}
			if opts.JSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			writeSnapshot(cmd.OutOrStdout(), app.Store.Key(), snap)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print the stored JSON")

	return cmd
}

func writeSnapshot(w io.Writer, key string, snap core.Snapshot) {
	series := snap.Series()

	rows := make([][]string, 0, core.MonthCount+1)
	for i, month := range core.Months {
		rows = append(rows, []string{
			month,
			core.FormatCurrency(series.Incomes[i]),
			core.FormatCurrency(series.Expenses[i]),
			core.FormatCurrency(series.Incomes[i] - series.Expenses[i]),
		})
	}
	income, expense := series.Totals()
	rows = append(rows, []string{
		"Total",
		core.FormatCurrency(income),
		core.FormatCurrency(expense),
		core.FormatCurrency(income - expense),
	})

	bold := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Month", "Income", "Expense", "Net").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow, row == len(rows)-1:
				return bold
			case col > 0:
				return cell.Align(lipgloss.Right)
			}
			return cell
		})

	fmt.Fprintf(w, "Storage key: %s\n", key)
	if snap.UpdatedAt > 0 {
		fmt.Fprintf(w, "Last updated: %s\n", humanize.Time(snap.Updated()))
	}
	fmt.Fprintln(w, t.Render())
}
