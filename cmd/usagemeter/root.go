package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tnunamak/usagemeter/internal/app"
	"github.com/tnunamak/usagemeter/internal/applog"
	"github.com/tnunamak/usagemeter/internal/autostart"
	"github.com/tnunamak/usagemeter/internal/config"
)

// env holds what PersistentPreRunE loaded for the subcommands.
type env struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
	// releaseURL overrides update.LatestURL.
	releaseURL string
	installer  *autostart.Installer
}

// NewRootCmd creates the root command. Running it bare is "status".
func NewRootCmd() *cobra.Command {
	return newRootCmd(&env{v: viper.New(), installer: &autostart.Installer{}})
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "usagemeter",
		Short:         "Show AI subscription usage",
		Long:          "usagemeter reads quota usage for Claude, GitHub Copilot and MiniMax coding plans.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.init(cmd)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("state-dir", "", "directory for credential caches and history")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	status := newStatusCmd(e)
	root.Flags().AddFlagSet(status.Flags())
	root.Args = cobra.ArbitraryArgs
	root.RunE = status.RunE

	root.AddCommand(
		status,
		newServeCmd(e),
		newHistoryCmd(e),
		newProvidersCmd(e),
		newVersionCmd(e),
	)
	return root
}

// init applies defaults, env, the optional config file and flag bindings
// (flag > env > file > defaults), then decodes and validates.
func (e *env) init(cmd *cobra.Command) error {
	v := e.v
	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	} else {
		v.SetConfigName("usagemeter")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/usagemeter")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("reading config: %w", err)
			}
		}
	}

	flags := cmd.Root().PersistentFlags()
	if err := v.BindPFlag("state_dir", flags.Lookup("state-dir")); err != nil {
		return fmt.Errorf("binding state-dir flag: %w", err)
	}
	if err := v.BindPFlag("log.level", flags.Lookup("log-level")); err != nil {
		return fmt.Errorf("binding log-level flag: %w", err)
	}
	if f := cmd.Flags().Lookup("listen"); f != nil {
		if err := v.BindPFlag("server.listen", f); err != nil {
			return fmt.Errorf("binding listen flag: %w", err)
		}
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}
	e.logger = applog.New(cmd.ErrOrStderr(), cfg.Log.Level)
	e.cfg = cfg
	return nil
}

func (e *env) app() (*app.App, error) {
	return app.New(e.cfg, e.logger)
}
