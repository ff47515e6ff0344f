package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Paranoid-AF/saycmd"
	"github.com/Paranoid-AF/saycmd/choice"
	"github.com/Paranoid-AF/saycmd/engine"
	"github.com/rs/zerolog/log"
)

// lineReader shows a prompt and returns one line without its newline.
type lineReader func(prompt string) (string, error)

// bufferedLines reads lines from r, writing prompts to w.
func bufferedLines(r io.Reader, w io.Writer) lineReader {
	br := bufio.NewReader(r)
	return func(prompt string) (string, error) {
		fmt.Fprint(w, prompt)
		line, err := br.ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}

// prompter answers the engine's choice requests inline. The hook runs on
// the worker goroutine, so it reads the answer itself and supplies it
// before the worker starts waiting.
type prompter struct {
	read   lineReader
	out    io.Writer
	engine *engine.Engine

	// abandon ends the current command when input runs out.
	abandon context.CancelFunc
}

func (p *prompter) hooks() engine.Hooks {
	return engine.Hooks{
		OnChoiceRequested: p.onChoice,
		OnProgress: func(msg string) {
			fmt.Fprintln(p.out, progressStyle.Render(msg))
		},
	}
}

func (p *prompter) onChoice(req choice.Request) {
	lines := strings.Split(choice.FormatPrompt(req), "\n")
	for _, l := range lines[:len(lines)-1] {
		fmt.Fprintln(p.out, l)
	}
	answer, err := p.read(promptStyle.Render(lines[len(lines)-1]))
	if err != nil {
		log.Debug().Err(err).Msg("no answer to choice")
		if p.abandon != nil {
			p.abandon()
		}
		return
	}

	selected, fallback := choice.Select(answer, req.Options)
	if fallback {
		fmt.Fprintln(p.out, warningStyle.Render(choice.FallbackNotice))
	}
	if err := p.engine.SupplyChoice(selected); err != nil {
		log.Warn().Err(err).Msg("choice not delivered")
	}
}

// confirm asks a yes/no question; anything but y or yes is no.
func (p *prompter) confirm(question string) (bool, error) {
	answer, err := p.read(promptStyle.Render(question))
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// run processes text through the engine. Input running out at a choice
// prompt abandons the command.
func (p *prompter) run(ctx context.Context, text string) (saycmd.Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	p.abandon = cancel
	defer func() { p.abandon = nil }()
	return p.engine.Run(ctx, text)
}

// runUtterance runs text and prints the outcome.
func (p *prompter) runUtterance(ctx context.Context, text string) error {
	out, err := p.run(ctx, text)
	if err != nil {
		return err
	}
	return printOutcome(p.out, out)
}
