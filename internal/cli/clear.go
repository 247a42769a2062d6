package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	applog "bucks2bar/internal/log"
)

func NewClearCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved data",
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

			app.Store.Delete(cmd.Context())
			logger.Info("Saved data removed", applog.FieldStorageKey, app.Store.Key(), applog.FieldOperation, applog.OpClear)
			fmt.Fprintf(cmd.OutOrStdout(), "Saved data removed (%s)\n", app.Store.Key())
			return nil
		},
	}
}
