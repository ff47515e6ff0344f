// Package engine runs the worker/controller session: it turns utterances
// into outcomes one at a time and routes disambiguation requests to the
// controller.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Paranoid-AF/saycmd"
	"github.com/Paranoid-AF/saycmd/accel"
	"github.com/Paranoid-AF/saycmd/choice"
	"github.com/Paranoid-AF/saycmd/device"
	"github.com/Paranoid-AF/saycmd/dispatch"
	"github.com/Paranoid-AF/saycmd/index"
	"github.com/Paranoid-AF/saycmd/logging"
	"github.com/Paranoid-AF/saycmd/metrics"
	"github.com/Paranoid-AF/saycmd/parse"
	"github.com/Paranoid-AF/saycmd/resolve"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrNoStore is returned by index operations when no store was given.
	ErrNoStore = errors.New("no index store configured")
	// ErrNoTranscriber is returned by Listen when no transcriber was given.
	ErrNoTranscriber = errors.New("no transcriber configured")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("engine is closed")
)

// Transcriber turns one utterance into text. If it also implements
// accel.Resident it is registered as the transcription model.
type Transcriber interface {
	Transcribe(ctx context.Context) string
}

// Hooks are called from the worker goroutine.
type Hooks struct {
	// OnChoiceRequested is called when the worker needs the user to pick.
	// It may answer synchronously through SupplyChoice.
	OnChoiceRequested func(choice.Request)
	// OnProgress receives intermediate report lines.
	OnProgress func(string)
}

// Options are the collaborators of an Engine. Everything is optional:
// without a Store names never resolve, without a Device a desktop device
// is built from config, and without Inference a generator is built from
// config.
type Options struct {
	Store       *index.Store
	Transcriber Transcriber
	Device      device.Device
	Inference   parse.Inference
	Metrics     *metrics.Metrics
	Cwd         string
	Hooks       Hooks
}

// Engine owns one session. At most one command or reindex runs at a time.
type Engine struct {
	cfg    *saycmd.Config
	opts   Options
	logger zerolog.Logger

	arbiter    *accel.Arbiter
	parser     *parse.Parser
	channel    *choice.Channel
	dispatcher *dispatch.Dispatcher
	metrics    *metrics.Metrics
	entities   liveResolver

	ctx    context.Context
	cancel context.CancelFunc
	busy   atomic.Bool

	mu     sync.Mutex // guards closed and wg.Add
	closed bool
	wg     sync.WaitGroup // one per claim

	closeOnce sync.Once
	closeErr  error
}

// New wires an Engine from config and collaborators.
func New(cfg *saycmd.Config, opts Options) (*Engine, error) {
	if cfg == nil {
		cfg = saycmd.DefaultConfig()
	}
	e := &Engine{
		cfg:     cfg,
		opts:    opts,
		logger:  logging.GetLogger("engine"),
		arbiter: accel.New(),
		metrics: opts.Metrics,
	}
	if e.metrics == nil {
		e.metrics = metrics.New()
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())

	if r, ok := opts.Transcriber.(accel.Resident); ok {
		if err := e.arbiter.Register(accel.Transcription, r); err != nil {
			return nil, err
		}
	}

	infer := opts.Inference
	if infer == nil {
		infer = parse.NewGeneratorFromConfig(cfg)
	}
	e.parser = parse.NewParser(infer, e.arbiter)
	e.channel = choice.NewChannel(opts.Hooks.OnChoiceRequested)

	dev := opts.Device
	if dev == nil {
		dev = device.NewDesktop(cfg.Device)
	}
	e.dispatcher = dispatch.New(dispatch.Options{
		Entities:     &e.entities,
		Actions:      resolve.NewActionResolver(cfg.Resolve.Cutoff),
		Chooser:      &timedChooser{ch: e.channel, timeout: cfg.ChoiceTimeout(), metrics: e.metrics},
		Device:       dev,
		ShellFolders: dispatch.DefaultShellFolders(cfg.ShellFolders),
		Cwd:          opts.Cwd,
		Chords:       dispatch.Chords{Copy: cfg.Device.CopyChord, Paste: cfg.Device.PasteChord},
		OnProgress:   opts.Hooks.OnProgress,
	})
	return e, nil
}

// Metrics returns the engine's metrics.
func (e *Engine) Metrics() *metrics.Metrics {
	return e.metrics
}

// Cwd returns the session's current directory.
func (e *Engine) Cwd() string {
	return e.dispatcher.Cwd()
}

// Busy reports whether a command or reindex is in flight.
func (e *Engine) Busy() bool {
	return e.busy.Load()
}

// claim marks the engine busy. Every successful claim is paired with release,
// and Close waits for all of them.
func (e *Engine) claim() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if !e.busy.CompareAndSwap(false, true) {
		return saycmd.ErrBusy
	}
	e.wg.Add(1)
	return nil
}

func (e *Engine) release() {
	e.busy.Store(false)
	e.wg.Done()
}

// bound derives a context that is also cancelled when the engine closes.
func (e *Engine) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(e.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// LoadSnapshot reads the stored index and makes it the resolution source.
func (e *Engine) LoadSnapshot(ctx context.Context) error {
	if err := e.claim(); err != nil {
		return err
	}
	defer e.release()
	ctx, cancel := e.bound(ctx)
	defer cancel()
	return e.loadSnapshot(ctx)
}

func (e *Engine) loadSnapshot(ctx context.Context) error {
	if e.opts.Store == nil {
		return ErrNoStore
	}
	snap, err := e.opts.Store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	e.entities.swap(resolve.NewEntityResolver(snap, resolve.Options{
		Cutoff:   e.cfg.Resolve.Cutoff,
		CacheTTL: e.cfg.CacheTTL(),
	}))
	files, dirs := snap.Len(index.File), snap.Len(index.Dir)
	e.metrics.RecordSnapshot(files, dirs)
	e.logger.Info().Int("files", files).Int("dirs", dirs).Msg("snapshot loaded")
	return nil
}

// Reindex crawls roots into the store and swaps in the new snapshot. It is
// refused with saycmd.ErrBusy while a command is in flight.
func (e *Engine) Reindex(ctx context.Context, roots []string) (index.CrawlStats, error) {
	if err := e.claim(); err != nil {
		return index.CrawlStats{}, err
	}
	defer e.release()
	if e.opts.Store == nil {
		return index.CrawlStats{}, ErrNoStore
	}
	ctx, cancel := e.bound(ctx)
	defer cancel()

	stats, err := e.opts.Store.Crawl(ctx, roots)
	e.metrics.RecordCrawl(stats.Elapsed)
	if err != nil {
		return stats, fmt.Errorf("crawl: %w", err)
	}
	if err := e.loadSnapshot(ctx); err != nil {
		return stats, err
	}
	return stats, nil
}

// Resolve looks a name up in the current snapshot without dispatching.
func (e *Engine) Resolve(query string) resolve.Result {
	return e.entities.Resolve(query)
}

// Submit starts processing text on a worker goroutine. The returned channel
// yields exactly one outcome. Only one command may be in flight.
func (e *Engine) Submit(text string) (<-chan saycmd.Outcome, error) {
	if err := e.claim(); err != nil {
		return nil, err
	}
	out := make(chan saycmd.Outcome, 1)
	go func() {
		o := e.process(e.ctx, text)
		e.release()
		out <- o
		close(out)
	}()
	return out, nil
}

// Run processes text on the calling goroutine.
func (e *Engine) Run(ctx context.Context, text string) (saycmd.Outcome, error) {
	if err := e.claim(); err != nil {
		return saycmd.Outcome{}, err
	}
	defer e.release()

	ctx, cancel := e.bound(ctx)
	defer cancel()
	return e.process(ctx, text), nil
}

// SupplyChoice answers the worker's pending request. It never blocks.
func (e *Engine) SupplyChoice(selected string) error {
	return e.channel.SupplyChoice(selected)
}

// PendingChoice returns the unanswered request, if any.
func (e *Engine) PendingChoice() (choice.Request, bool) {
	return e.channel.Pending()
}

func (e *Engine) process(ctx context.Context, text string) saycmd.Outcome {
	logger := e.logger.With().Str("command_id", uuid.NewString()).Logger()
	ctx = logger.WithContext(ctx)
	start := time.Now()
	logger.Info().Str("text", text).Msg("command received")

	cmd, tier, parseErr := e.parser.Parse(ctx, text)
	e.metrics.RecordParse(tier.String())
	if parseErr != nil {
		e.metrics.RecordArbitrationError()
	}
	logger.Debug().Stringer("tier", tier).Stringer("command", cmd).Msg("parsed")

	out := e.dispatcher.Dispatch(ctx, cmd)
	if parseErr != nil && errors.Is(out.Err, saycmd.ErrNoCommand) {
		out.Err = fmt.Errorf("%w: %w", saycmd.ErrNoCommand, parseErr)
	}
	e.metrics.RecordCommand(string(out.Action), out.Status.String())
	logging.LogDuration(logger, start, "command")
	return out
}

// Listen records one utterance while the transcription model holds the
// accelerator and returns the text. An empty string means nothing was heard.
func (e *Engine) Listen(ctx context.Context) (string, error) {
	if e.opts.Transcriber == nil {
		return "", ErrNoTranscriber
	}
	switch e.arbiter.Holder() {
	case accel.Transcription:
	case accel.None:
		if err := e.arbiter.Acquire(accel.Transcription); err != nil {
			e.metrics.RecordArbitrationError()
			return "", fmt.Errorf("acquire accelerator: %w", err)
		}
	default:
		return "", fmt.Errorf("%w by %s", accel.ErrHeld, e.arbiter.Holder())
	}
	return e.opts.Transcriber.Transcribe(ctx), nil
}

// Close refuses new work, cancels any pending choice, waits for in-flight
// commands and reindexes, drops the resolver and writes the metrics textfile
// if configured.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()
		e.cancel()
		e.wg.Wait()
		e.entities.swap(nil)
		if err := e.metrics.WriteTextfile(e.cfg.Metrics.Textfile); err != nil {
			e.closeErr = fmt.Errorf("write metrics: %w", err)
		}
	})
	return e.closeErr
}

// liveResolver forwards to the current entity resolver. The pointer is
// swapped only while the engine is claimed, so no command sees a closed one.
type liveResolver struct {
	current atomic.Pointer[resolve.EntityResolver]
}

func (l *liveResolver) Resolve(query string) resolve.Result {
	r := l.current.Load()
	if r == nil {
		return resolve.Result{Query: query}
	}
	return r.Resolve(query)
}

func (l *liveResolver) swap(r *resolve.EntityResolver) {
	if old := l.current.Swap(r); old != nil {
		old.Close()
	}
}

// timedChooser bounds each choice by the configured timeout.
type timedChooser struct {
	ch      *choice.Channel
	timeout time.Duration
	metrics *metrics.Metrics
}

func (t *timedChooser) RequestChoice(ctx context.Context, prompt string, options []string) (string, error) {
	t.metrics.RecordChoice()
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return t.ch.RequestChoice(ctx, prompt, options)
}
