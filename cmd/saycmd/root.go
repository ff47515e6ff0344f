package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Paranoid-AF/saycmd"
	"github.com/Paranoid-AF/saycmd/engine"
	"github.com/Paranoid-AF/saycmd/index"
	"github.com/Paranoid-AF/saycmd/logging"
	"github.com/Paranoid-AF/saycmd/transcribe"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// errCommandFailed is returned when an utterance ran but did not succeed.
// The outcome has already been printed.
var errCommandFailed = errors.New("command did not succeed")

// app holds what every subcommand shares.
type app struct {
	verbosity  int
	configPath string
	cfg        *saycmd.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     "saycmd",
		Short:   "Run filesystem and desktop commands by voice",
		Version: Version,
		Long: `saycmd turns an utterance such as "open budget" or "delete old notes"
into one action against an index of your files and directories.

Build the index with "saycmd crawl", then use "saycmd run", "saycmd repl",
or "saycmd listen".`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.SetupLogger(a.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")

			cfg, err := saycmd.LoadConfig(a.configPath)
			if err != nil {
				return err
			}
			for _, w := range saycmd.ValidateConfig(cfg) {
				log.Debug().Str("warning", w).Msg("config")
			}
			a.cfg = cfg
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file layered over "+saycmd.ConfigPath())

	rootCmd.AddCommand(newCrawlCmd(a))
	rootCmd.AddCommand(newRunCmd(a))
	rootCmd.AddCommand(newReplCmd(a))
	rootCmd.AddCommand(newListenCmd(a))
	rootCmd.AddCommand(newFindCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))
	return rootCmd
}

// session is an engine plus the store it owns.
type session struct {
	*engine.Engine
	store *index.Store
}

func (s *session) Close() error {
	err := s.Engine.Close()
	return errors.Join(err, s.store.Close())
}

// openSession opens the index and builds an engine over it. The stored
// snapshot is loaded unless the caller is about to crawl.
func (a *app) openSession(ctx context.Context, hooks engine.Hooks, load bool) (*session, error) {
	store, err := index.Open(saycmd.ResolveIndexPath(a.cfg))
	if err != nil {
		return nil, err
	}
	store.SetBatchSize(a.cfg.BatchSize())

	opts := engine.Options{Store: store, Hooks: hooks}
	if len(a.cfg.Transcription.Command) > 0 {
		opts.Transcriber = transcribe.New(a.cfg.Transcription)
	}
	e, err := engine.New(a.cfg, opts)
	if err != nil {
		store.Close()
		return nil, err
	}
	s := &session{Engine: e, store: store}

	if load {
		if err := e.LoadSnapshot(ctx); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// printOutcome renders o and maps a non-success to errCommandFailed.
func printOutcome(w io.Writer, o saycmd.Outcome) error {
	fmt.Fprintln(w, renderOutcome(o))
	if !o.OK() {
		return errCommandFailed
	}
	return nil
}
