package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Paranoid-AF/saycmd"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const replPrompt = "say> "

func newReplCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Type utterances interactively",
		Long: `Repl reads one utterance per line and runs it. Choices are asked inline.

Meta commands:
  :reindex [roots...]  crawl again and reload the index
  :cwd                 show the current directory
  :quit                exit

When stdout is redirected, each command is also recorded there as TOML.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				read   lineReader
				ui     io.Writer
				record io.Writer
			)
			if in, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(in.Fd())) {
				ed, err := NewEditor()
				if err != nil {
					return err
				}
				defer ed.Close()
				read = ed.ReadLine
				ui = termWriter(ed.Tty())
				if !term.IsTerminal(int(os.Stdout.Fd())) {
					record = os.Stdout
				}
			} else {
				read = bufferedLines(cmd.InOrStdin(), cmd.OutOrStdout())
				ui = cmd.OutOrStdout()
			}

			p := &prompter{read: read, out: ui}
			s, err := a.openSession(cmd.Context(), p.hooks(), true)
			if err != nil {
				return err
			}
			defer s.Close()
			p.engine = s.Engine

			return runRepl(cmd.Context(), a.cfg, s, p, record)
		},
	}
}

func runRepl(ctx context.Context, cfg *saycmd.Config, s *session, p *prompter, record io.Writer) error {
	ui := p.out
	fmt.Fprintf(ui, "saycmd repl\ncwd: %s\n(:reindex, :cwd, :quit)\n\n", s.Cwd())

	for ctx.Err() == nil {
		line, err := p.read(promptStyle.Render(replPrompt))
		if errors.Is(err, io.EOF) || errors.Is(err, ErrInterrupt) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)

		switch {
		case line == "":
		case line == ":quit" || line == ":q":
			return nil
		case line == ":cwd":
			fmt.Fprintln(ui, pathStyle.Render(s.Cwd()))
		case line == ":reindex" || strings.HasPrefix(line, ":reindex "):
			roots := strings.Fields(strings.TrimPrefix(line, ":reindex"))
			if len(roots) == 0 {
				roots = saycmd.ResolveRoots(cfg)
			}
			fmt.Fprintln(ui, progressStyle.Render("Indexing "+strings.Join(roots, ", ")+"..."))
			stats, err := s.Reindex(ctx, roots)
			if err != nil {
				fmt.Fprintln(ui, failureStyle.Render("✗ "+err.Error()))
				continue
			}
			fmt.Fprintln(ui, successStyle.Render("✓ ")+crawlReport(stats))
		case strings.HasPrefix(line, ":"):
			fmt.Fprintln(ui, warningStyle.Render("Unknown command "+line))
		default:
			cwd := s.Cwd()
			o, err := p.run(ctx, line)
			if err != nil {
				fmt.Fprintln(ui, failureStyle.Render("✗ "+err.Error()))
				continue
			}
			fmt.Fprintln(ui, renderOutcome(o))
			if record != nil {
				if err := writeEntry(record, line, cwd, o); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
