package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run <utterance...>",
		Short: "Run one utterance and exit",
		Example: `  saycmd run open budget
  saycmd run "delete old notes"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := &prompter{
				read: bufferedLines(cmd.InOrStdin(), cmd.OutOrStdout()),
				out:  cmd.OutOrStdout(),
			}
			s, err := a.openSession(cmd.Context(), p.hooks(), true)
			if err != nil {
				return err
			}
			defer s.Close()
			p.engine = s.Engine

			return p.runUtterance(cmd.Context(), strings.Join(args, " "))
		},
	}
}
