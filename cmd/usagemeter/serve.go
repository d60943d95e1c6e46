package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tnunamak/usagemeter/internal/server"
)

func newServeCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve probes and Prometheus metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			install, _ := cmd.Flags().GetBool("install")
			uninstall, _ := cmd.Flags().GetBool("uninstall")
			switch {
			case install && uninstall:
				return fmt.Errorf("--install and --uninstall are mutually exclusive")
			case install:
				listen, _ := cmd.Flags().GetString("listen")
				path, err := e.installer.Install(listen)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "usagemeter serve will start at login (%s)\n", path)
				return nil
			case uninstall:
				if err := e.installer.Uninstall(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "usagemeter autostart removed")
				return nil
			}

			a, err := e.app()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return server.New(a).Start(ctx, e.cfg.Server.Listen)
		},
	}
	cmd.Flags().String("listen", "", "address to listen on (default 127.0.0.1:9464)")
	cmd.Flags().Bool("install", false, "start serve at login")
	cmd.Flags().Bool("uninstall", false, "stop starting serve at login")
	return cmd
}
