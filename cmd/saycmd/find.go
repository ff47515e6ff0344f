package main

import (
	"fmt"
	"strings"

	"github.com/Paranoid-AF/saycmd/engine"
	"github.com/spf13/cobra"
)

func newFindCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "find <name...>",
		Short: "Show which indexed paths a name resolves to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context(), engine.Hooks{}, true)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			query := strings.Join(args, " ")
			res := s.Resolve(query)
			if !res.Found() {
				fmt.Fprintln(out, failureStyle.Render(fmt.Sprintf("No match for '%s'.", query)))
				if files, dirs, err := s.store.Counts(cmd.Context()); err == nil && files+dirs == 0 {
					fmt.Fprintln(out, warningStyle.Render("The index is empty; run 'saycmd crawl' first."))
				}
				return errCommandFailed
			}
			fmt.Fprintf(out, "'%s' matched %s:\n", query, promptStyle.Render(res.Match))
			for _, p := range res.Paths {
				fmt.Fprintln(out, "  "+pathStyle.Render(p))
			}
			return nil
		},
	}
}
