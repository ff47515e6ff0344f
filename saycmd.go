// Package saycmd defines the command, outcome, and action vocabulary shared by
// the parser, the resolvers, and the dispatcher.
package saycmd

import (
	"errors"
	"fmt"
	"strings"
)

// Action is one member of the fixed vocabulary of supported operations.
type Action string

const (
	ActionOpen          Action = "open"
	ActionDelete        Action = "delete"
	ActionListDirectory Action = "list_directory"
	ActionGetSize       Action = "get_size"
	ActionShowSpace     Action = "show_space"
	ActionNavigate      Action = "navigate"
	ActionGoBack        Action = "go_back"
	ActionCopy          Action = "copy"
	ActionPaste         Action = "paste"
	ActionTypeText      Action = "type_text"
	ActionRename        Action = "rename"
	ActionMove          Action = "move"
)

// Actions is the closed vocabulary in its canonical order.
// Fuzzy action matching breaks ties by this order.
var Actions = []Action{
	ActionOpen,
	ActionDelete,
	ActionListDirectory,
	ActionGetSize,
	ActionShowSpace,
	ActionNavigate,
	ActionGoBack,
	ActionCopy,
	ActionPaste,
	ActionTypeText,
	ActionRename,
	ActionMove,
}

// NeedsTarget reports whether the action operates on a filesystem entity
// that must be resolved against the index.
func (a Action) NeedsTarget() bool {
	switch a {
	case ActionDelete, ActionOpen, ActionListDirectory, ActionGetSize,
		ActionNavigate, ActionRename, ActionMove:
		return true
	}
	return false
}

// Command is the structured form of an utterance produced by a parser tier.
// Action is free-form until resolved against the vocabulary.
type Command struct {
	Action string `json:"action"`
	Value  string `json:"value"`
}

// IsEmpty reports whether no parser tier produced a command.
func (c Command) IsEmpty() bool {
	return strings.TrimSpace(c.Action) == ""
}

func (c Command) String() string {
	return fmt.Sprintf("{action: %q, value: %q}", c.Action, c.Value)
}

// ResolvedCommand is a fully disambiguated command ready for execution.
// Target is empty for actions that take no filesystem entity.
type ResolvedCommand struct {
	Action Action
	Target string
}

// IsZero reports whether no command reached execution.
func (c ResolvedCommand) IsZero() bool {
	return c.Action == ""
}

// State is a step in the per-command dispatch state machine.
type State int

const (
	StateReceived State = iota
	StateActionResolved
	StateEntityResolved
	StateDisambiguating
	StateExecuting
	StateSucceeded
	StateFailed
	StateRejected
	StateCancelled
)

var stateNames = [...]string{
	StateReceived:       "received",
	StateActionResolved: "action_resolved",
	StateEntityResolved: "entity_resolved",
	StateDisambiguating: "disambiguating",
	StateExecuting:      "executing",
	StateSucceeded:      "succeeded",
	StateFailed:         "failed",
	StateRejected:       "rejected",
	StateCancelled:      "cancelled",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether s ends the state machine.
func (s State) Terminal() bool {
	return s >= StateSucceeded
}

var (
	// ErrNoCommand means neither parser tier produced a command.
	ErrNoCommand = errors.New("no command parsed")
	// ErrNoMatch means an entity could not be resolved and no fallback applied.
	ErrNoMatch = errors.New("no matching file or directory")
	// ErrUnknownAction means the action label matched nothing in the vocabulary.
	ErrUnknownAction = errors.New("unknown action")
	// ErrCancelled means the command was abandoned at a choice prompt.
	ErrCancelled = errors.New("cancelled")
	// ErrBusy means a command is already in flight.
	ErrBusy = errors.New("a command is already in progress")
)

// Outcome is the result of running one command through the dispatcher.
type Outcome struct {
	// Command is the parsed command as received.
	Command Command
	// Action is the resolved action; empty when resolution failed.
	Action Action
	// Target is the resolved filesystem path, if any.
	Target string
	// Resolved is the command handed to execution. It is zero when dispatch
	// ended before reaching Executing.
	Resolved ResolvedCommand
	// Status is the terminal state.
	Status State
	// Message is the human-readable report.
	Message string
	// Err carries the underlying condition for Failed and Rejected outcomes.
	Err error
}

// OK reports whether the command completed (including reported no-ops).
func (o Outcome) OK() bool {
	return o.Status == StateSucceeded
}

// Report returns the single user-visible line describing the outcome.
func (o Outcome) Report() string {
	if o.Message != "" {
		return o.Message
	}
	if o.Err != nil {
		return o.Err.Error()
	}
	return o.Status.String()
}
