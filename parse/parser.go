package parse

import (
	"context"
	"strings"

	"github.com/Paranoid-AF/saycmd"
	"github.com/Paranoid-AF/saycmd/accel"
	"github.com/Paranoid-AF/saycmd/logging"
)

// Tier names the stage that produced a command.
type Tier int

const (
	TierNone Tier = iota
	TierRule
	TierInference
)

func (t Tier) String() string {
	switch t {
	case TierRule:
		return "rule"
	case TierInference:
		return "inference"
	default:
		return "none"
	}
}

// Inference structures free-form text. Implementations never fail; an
// unusable reply is an empty command.
type Inference interface {
	ParseCommand(ctx context.Context, text string) saycmd.Command
}

// Parser runs the rule tier, then the inference tier.
type Parser struct {
	infer   Inference
	arbiter *accel.Arbiter
}

// NewParser returns a Parser. infer may be nil to disable the inference
// tier; arbiter may be nil when no accelerator is shared.
func NewParser(infer Inference, arbiter *accel.Arbiter) *Parser {
	return &Parser{infer: infer, arbiter: arbiter}
}

// Parse returns the structured command for text and the tier that produced
// it. An empty command comes back with TierNone. The error is non-nil only
// when the accelerator could not be handed to the inference model.
func (p *Parser) Parse(ctx context.Context, text string) (saycmd.Command, Tier, error) {
	logger := logging.GetLogger("parse")
	if strings.TrimSpace(text) == "" {
		return saycmd.Command{}, TierNone, nil
	}

	if cmd, ok := MatchRule(text); ok {
		logger.Debug().Stringer("command", cmd).Msg("rule matched")
		return cmd, TierRule, nil
	}
	if p.infer == nil {
		return saycmd.Command{}, TierNone, nil
	}

	logger.Debug().Msg("no rule matched, sending to inference")
	var cmd saycmd.Command
	run := func(ctx context.Context) error {
		cmd = p.infer.ParseCommand(ctx, text)
		return nil
	}

	var err error
	if p.arbiter != nil {
		err = p.arbiter.Lend(ctx, accel.Transcription, accel.Inference, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		logger.Error().Err(err).Msg("accelerator hand-over failed")
		return saycmd.Command{}, TierNone, err
	}
	if cmd.IsEmpty() {
		return saycmd.Command{}, TierNone, nil
	}
	return cmd, TierInference, nil
}
