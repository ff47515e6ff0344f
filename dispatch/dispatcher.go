// Package dispatch executes resolved commands against the filesystem and the
// desktop, asking the user to pick when a name is ambiguous.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/Paranoid-AF/saycmd"
	"github.com/Paranoid-AF/saycmd/choice"
	"github.com/Paranoid-AF/saycmd/device"
	"github.com/Paranoid-AF/saycmd/logging"
	"github.com/Paranoid-AF/saycmd/resolve"
	"github.com/rs/zerolog"
)

// Resolver maps a spoken name to indexed paths.
type Resolver interface {
	Resolve(query string) resolve.Result
}

// Chords are the key chords sent for copy and paste.
type Chords struct {
	Copy  string
	Paste string
}

// DiskSpace is the capacity of the filesystem holding a path, in bytes.
type DiskSpace struct {
	Total uint64
	Free  uint64
	Used  uint64
}

// Options configures a Dispatcher. Entities, Chooser and Device may be nil;
// the affected actions then fail or fall back.
type Options struct {
	Entities     Resolver
	Actions      *resolve.ActionResolver
	Chooser      choice.Chooser
	Device       device.Device
	ShellFolders ShellFolders
	Cwd          string
	Chords       Chords
	OnProgress   func(string)
}

// Dispatcher runs one command at a time and tracks the current directory.
type Dispatcher struct {
	opts    Options
	actions *resolve.ActionResolver

	mu  sync.Mutex
	cwd string
}

// New returns a Dispatcher. An empty Cwd starts in the process working directory.
func New(opts Options) *Dispatcher {
	if opts.Actions == nil {
		opts.Actions = resolve.NewActionResolver(resolve.DefaultCutoff)
	}
	if opts.Chords.Copy == "" {
		opts.Chords.Copy = "ctrl+c"
	}
	if opts.Chords.Paste == "" {
		opts.Chords.Paste = "ctrl+v"
	}
	cwd := opts.Cwd
	if cwd == "" {
		if wd, err := os.Getwd(); err == nil {
			cwd = wd
		}
	}
	return &Dispatcher{opts: opts, actions: opts.Actions, cwd: cwd}
}

// Cwd returns the dispatcher's current directory.
func (d *Dispatcher) Cwd() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cwd
}

func (d *Dispatcher) setCwd(dir string) {
	d.mu.Lock()
	d.cwd = dir
	d.mu.Unlock()
}

func (d *Dispatcher) entities() Resolver {
	return d.opts.Entities
}

// run carries the state of one command through the dispatcher.
type run struct {
	d      *Dispatcher
	ctx    context.Context
	logger zerolog.Logger
	out    saycmd.Outcome
	state  saycmd.State
}

func (r *run) to(s saycmd.State) {
	r.logger.Debug().Stringer("from", r.state).Stringer("to", s).Msg("transition")
	r.state = s
}

// execute fixes the resolved command and enters Executing.
func (r *run) execute() {
	r.out.Resolved = saycmd.ResolvedCommand{Action: r.out.Action, Target: r.out.Target}
	r.logger.Debug().
		Str("action", string(r.out.Resolved.Action)).
		Str("target", r.out.Resolved.Target).
		Msg("executing")
	r.to(saycmd.StateExecuting)
}

func (r *run) progress(msg string) {
	if r.d.opts.OnProgress != nil {
		r.d.opts.OnProgress(msg)
	}
}

func (r *run) finish(s saycmd.State, msg string, err error) saycmd.Outcome {
	r.to(s)
	r.out.Status = s
	r.out.Message = msg
	r.out.Err = err
	ev := r.logger.Info()
	if err != nil {
		ev = r.logger.Warn().Err(err)
	}
	ev.Stringer("status", s).Str("target", r.out.Target).Msg(msg)
	return r.out
}

func (r *run) succeed(msg string) saycmd.Outcome {
	return r.finish(saycmd.StateSucceeded, msg, nil)
}

func (r *run) fail(err error, format string, args ...any) saycmd.Outcome {
	return r.finish(saycmd.StateFailed, fmt.Sprintf(format, args...), err)
}

func (r *run) cancel(msg string) saycmd.Outcome {
	return r.finish(saycmd.StateCancelled, msg, saycmd.ErrCancelled)
}

// Dispatch resolves and executes cmd. It never panics on user input; every
// path ends in a terminal Outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd saycmd.Command) saycmd.Outcome {
	logger := *zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = logging.GetLogger("dispatch")
	}
	r := &run{d: d, ctx: ctx, logger: logger, out: saycmd.Outcome{Command: cmd}, state: saycmd.StateReceived}
	r.logger.Debug().Stringer("command", cmd).Msg("received")

	if cmd.IsEmpty() {
		return r.fail(saycmd.ErrNoCommand, "Could not understand the command.")
	}

	action, ok := d.actions.ResolveAction(cmd.Action)
	if !ok {
		return r.finish(saycmd.StateRejected,
			fmt.Sprintf("Unknown action '%s'.", cmd.Action),
			fmt.Errorf("%w: %q", saycmd.ErrUnknownAction, cmd.Action))
	}
	r.out.Action = action
	r.to(saycmd.StateActionResolved)

	switch action {
	case saycmd.ActionOpen:
		return r.open(cmd.Value)
	case saycmd.ActionDelete:
		return r.delete(cmd.Value)
	case saycmd.ActionListDirectory:
		return r.listDirectory(cmd.Value)
	case saycmd.ActionGetSize:
		return r.getSize(cmd.Value)
	case saycmd.ActionShowSpace:
		return r.showSpace()
	case saycmd.ActionNavigate:
		return r.navigate(cmd.Value)
	case saycmd.ActionGoBack:
		return r.goBack()
	case saycmd.ActionCopy:
		return r.sendChord(d.opts.Chords.Copy, "Copied.")
	case saycmd.ActionPaste:
		return r.sendChord(d.opts.Chords.Paste, "Pasted.")
	case saycmd.ActionTypeText:
		return r.typeText(cmd.Value)
	case saycmd.ActionRename:
		return r.rename(cmd.Value)
	case saycmd.ActionMove:
		return r.move(cmd.Value)
	}
	return r.finish(saycmd.StateRejected,
		fmt.Sprintf("Unknown action '%s'.", cmd.Action),
		fmt.Errorf("%w: %q", saycmd.ErrUnknownAction, cmd.Action))
}

// resolveTarget maps value to exactly one path, asking the user when several
// entries share the best-matching name. It returns saycmd.ErrNoMatch when
// nothing matched and an error wrapping saycmd.ErrCancelled when the choice
// was abandoned.
func (r *run) resolveTarget(value string) (string, error) {
	ents := r.d.entities()
	if ents == nil {
		return "", saycmd.ErrNoMatch
	}
	res := ents.Resolve(value)
	if !res.Found() {
		return "", saycmd.ErrNoMatch
	}
	path, err := r.pick(value, res.Paths)
	if err != nil {
		return "", err
	}
	r.out.Target = path
	r.to(saycmd.StateEntityResolved)
	return path, nil
}

// pick returns the only path, or the one the user selects. An answer that is
// not one of the options selects the first.
func (r *run) pick(value string, paths []string) (string, error) {
	if len(paths) == 1 {
		return paths[0], nil
	}
	r.to(saycmd.StateDisambiguating)
	chooser := r.d.opts.Chooser
	if chooser == nil {
		return paths[0], nil
	}
	prompt := fmt.Sprintf("Multiple matches found for '%s'. Choose one:", value)
	selected, err := chooser.RequestChoice(r.ctx, prompt, paths)
	if err != nil {
		if !errors.Is(err, saycmd.ErrCancelled) {
			err = fmt.Errorf("%w: %w", saycmd.ErrCancelled, err)
		}
		return "", err
	}
	if !slices.Contains(paths, selected) {
		r.logger.Debug().Str("selected", selected).Msg("choice not among options, using first")
		return paths[0], nil
	}
	return selected, nil
}

// ask requests free text and returns it trimmed.
func (r *run) ask(prompt string) (string, error) {
	chooser := r.d.opts.Chooser
	if chooser == nil {
		return "", nil
	}
	r.to(saycmd.StateDisambiguating)
	answer, err := chooser.RequestChoice(r.ctx, prompt, nil)
	if err != nil {
		if !errors.Is(err, saycmd.ErrCancelled) {
			err = fmt.Errorf("%w: %w", saycmd.ErrCancelled, err)
		}
		return "", err
	}
	return trimAnswer(answer), nil
}

// targetFailure turns a resolveTarget error into a terminal outcome.
func (r *run) targetFailure(value string, err error) saycmd.Outcome {
	if errors.Is(err, saycmd.ErrCancelled) {
		return r.finish(saycmd.StateCancelled, "Choice abandoned; nothing was done.", err)
	}
	return r.fail(err, "No matching file or directory for '%s'.", value)
}
