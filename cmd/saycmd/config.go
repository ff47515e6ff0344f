package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/Paranoid-AF/saycmd"
	defaults "github.com/Paranoid-AF/saycmd/default"
	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	var showDefaults bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Config prints the configuration after layering the built-in defaults,
` + saycmd.ConfigPath() + `, and --config. Warnings go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if showDefaults {
				_, err := out.Write(defaults.DefaultConfigTOML)
				return err
			}

			for _, w := range saycmd.ValidateConfig(a.cfg) {
				fmt.Fprintln(cmd.ErrOrStderr(), warningStyle.Render("warning: "+w))
			}
			return toml.NewEncoder(out).Encode(a.cfg)
		},
	}
	cmd.Flags().BoolVar(&showDefaults, "defaults", false, "print the built-in defaults instead")
	return cmd
}
