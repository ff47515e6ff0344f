package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newListenCmd(a *app) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Transcribe speech, confirm it, and run it",
		Long: `Listen runs the configured [transcription] command, shows what was heard,
and asks before running it. It repeats until input ends unless --once is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			p := &prompter{
				read: bufferedLines(cmd.InOrStdin(), out),
				out:  out,
			}
			s, err := a.openSession(cmd.Context(), p.hooks(), true)
			if err != nil {
				return err
			}
			defer s.Close()
			p.engine = s.Engine

			ctx := cmd.Context()
			for {
				fmt.Fprintln(out, progressStyle.Render("Listening..."))
				text, err := s.Listen(ctx)
				if err != nil {
					return err
				}

				if text == "" {
					fmt.Fprintln(out, warningStyle.Render("Nothing heard."))
				} else {
					fmt.Fprintf(out, "You said: %s\n", promptStyle.Render(text))
					send, err := p.confirm("Send? [y/N] ")
					if errors.Is(err, io.EOF) {
						return nil
					}
					if err != nil {
						return err
					}
					if send {
						if err := p.runUtterance(ctx, text); err != nil && !errors.Is(err, errCommandFailed) {
							return err
						}
					}
				}

				if once || ctx.Err() != nil {
					return nil
				}
				if _, err := p.read("Press Enter to listen again (Ctrl-D to stop) "); err != nil {
					return nil
				}
			}
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "listen for a single utterance")
	return cmd
}
