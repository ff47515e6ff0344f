// Package choice carries disambiguation requests from the worker to the
// controller and the user's answer back.
package choice

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/Paranoid-AF/saycmd"
)

var (
	// ErrNoPendingChoice is returned by SupplyChoice when nothing is waiting.
	ErrNoPendingChoice = errors.New("no choice is pending")
	// ErrAlreadySupplied is returned when the pending request was already answered.
	ErrAlreadySupplied = errors.New("choice already supplied")
)

// Request is what the controller shows the user. No options means free text.
type Request struct {
	Prompt  string
	Options []string
}

// FreeText reports whether the request expects typed text instead of a pick.
func (r Request) FreeText() bool {
	return len(r.Options) == 0
}

// Chooser asks the user to pick one of options, or to type free text.
type Chooser interface {
	RequestChoice(ctx context.Context, prompt string, options []string) (string, error)
}

type pending struct {
	req      Request
	reply    chan string
	answered bool
}

// Channel is a one-request-at-a-time rendezvous between a worker and a controller.
type Channel struct {
	notify func(Request)

	mu      sync.Mutex
	current *pending
}

// NewChannel returns a Channel that calls notify each time a request is
// posted. notify runs on the requesting goroutine and may call SupplyChoice.
func NewChannel(notify func(Request)) *Channel {
	return &Channel{notify: notify}
}

// RequestChoice posts a request and blocks until the controller answers or
// ctx ends. Calling it while another request is pending panics.
func (c *Channel) RequestChoice(ctx context.Context, prompt string, options []string) (string, error) {
	p := &pending{
		req:   Request{Prompt: prompt, Options: slices.Clone(options)},
		reply: make(chan string, 1),
	}

	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		panic("choice: RequestChoice called while another request is pending")
	}
	c.current = p
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.current == p {
			c.current = nil
		}
		c.mu.Unlock()
	}()

	if c.notify != nil {
		c.notify(p.req)
	}

	select {
	case s := <-p.reply:
		return s, nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", saycmd.ErrCancelled, ctx.Err())
	}
}

// SupplyChoice answers the pending request. It never blocks.
func (c *Channel) SupplyChoice(selected string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return ErrNoPendingChoice
	}
	if c.current.answered {
		return ErrAlreadySupplied
	}
	c.current.answered = true
	c.current.reply <- selected
	return nil
}

// Pending returns the unanswered request, if any.
func (c *Channel) Pending() (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.answered {
		return Request{}, false
	}
	return c.current.req, true
}

// Select maps what the user typed onto one of options. Free-text requests
// return the trimmed input. Otherwise input may be a 1-based number or an
// option value; anything else selects the first option and reports fallback.
func Select(input string, options []string) (selected string, fallback bool) {
	input = strings.TrimSpace(input)
	if len(options) == 0 {
		return input, false
	}
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(options) {
		return options[n-1], false
	}
	for _, o := range options {
		if strings.EqualFold(o, input) {
			return o, false
		}
	}
	return options[0], true
}

// FormatPrompt renders a request as a numbered list.
func FormatPrompt(req Request) string {
	if req.FreeText() {
		return req.Prompt + "\n> "
	}
	var b strings.Builder
	b.WriteString(req.Prompt)
	b.WriteString("\n")
	for i, o := range req.Options {
		fmt.Fprintf(&b, "%d. %s\n", i+1, o)
	}
	b.WriteString("Enter number: ")
	return b.String()
}

// FallbackNotice is shown when Select fell back to the first option.
const FallbackNotice = "Invalid choice. Defaulting to first option."
