package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/tnunamak/usagemeter/internal/cli"
)

func newStatusCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [provider...]",
		Short: "Show current usage (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd, true)
			if err != nil {
				return err
			}
			noCache, _ := cmd.Flags().GetBool("no-cache")

			a, err := e.app()
			if err != nil {
				return err
			}
			defer a.Close()
			code := cli.Status(cmd.Context(), a, args,
				cli.StatusOptions{Format: format, NoCache: noCache},
				cmd.OutOrStdout(), cmd.ErrOrStderr())
			return codeErr(code)
		},
	}
	addFormatFlags(cmd, true)
	cmd.Flags().Bool("no-cache", false, "always probe, ignoring cached results")
	return cmd
}

func addFormatFlags(cmd *cobra.Command, plain bool) {
	cmd.Flags().Bool("json", false, "output JSON")
	cmd.Flags().Bool("yaml", false, "output YAML")
	if plain {
		cmd.Flags().Bool("plain", false, "plain text (no color)")
	}
}

// outputFormat maps the mutually exclusive format flags to a cli format.
func outputFormat(cmd *cobra.Command, plain bool) (string, error) {
	names := []string{cli.FormatJSON, cli.FormatYAML}
	if plain {
		names = append(names, cli.FormatPlain)
	}
	format := cli.FormatAuto
	for _, name := range names {
		set, _ := cmd.Flags().GetBool(name)
		if !set {
			continue
		}
		if format != cli.FormatAuto {
			return "", errors.New("--json, --yaml and --plain are mutually exclusive")
		}
		format = name
	}
	return format, nil
}
