package main

import (
	"fmt"

	"github.com/Paranoid-AF/saycmd"
	"github.com/Paranoid-AF/saycmd/engine"
	"github.com/Paranoid-AF/saycmd/index"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newCrawlCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "crawl [roots...]",
		Short: "Index files and directories under the given roots",
		Long: `Crawl walks each root and records every file and directory below it.
Without arguments the roots come from [index] roots in the config, or the
home directory. Existing entries are refreshed; nothing is removed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			roots := args
			if len(roots) == 0 {
				roots = saycmd.ResolveRoots(a.cfg)
			}

			s, err := a.openSession(cmd.Context(), engine.Hooks{}, false)
			if err != nil {
				return err
			}
			defer s.Close()

			stats, err := s.Reindex(cmd.Context(), roots)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), crawlReport(stats))
			return nil
		},
	}
}

func crawlReport(stats index.CrawlStats) string {
	return fmt.Sprintf("Indexed %s files and %s directories in %.2fs",
		humanize.Comma(int64(stats.Files)), humanize.Comma(int64(stats.Dirs)), stats.Elapsed.Seconds())
}
