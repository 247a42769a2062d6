package cli

import (
	"io"

	"github.com/spf13/cobra"

	"bucks2bar/internal/config"
	applog "bucks2bar/internal/log"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
}

// NewRootCommand creates the bucks2bar command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "bucks2bar",
		Short: "Monthly income and expenses as a bar chart",
		Long: `bucks2bar keeps twelve months of income and expenses, draws them as a
grouped bar chart and saves every change to the configured store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config (default $CONFIG_FILE or "+config.DefaultFile+")")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level override (debug|info|warn|error)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))

	return cmd
}

// bootstrap loads .env and the configuration, then sets up logging to logOut.
func (o *RootOptions) bootstrap(logOut io.Writer) (*config.Config, *applog.Logger, error) {
	LoadEnvFile()
	cfg, err := LoadAndValidateConfig(o.ConfigPath, o.LogLevel)
	if err != nil {
		return nil, nil, WrapExitError(ExitConfigError, "invalid configuration", err)
	}
	return cfg, SetupLogger(cfg.LogLevel, logOut), nil
}
