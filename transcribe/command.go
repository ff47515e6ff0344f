// Package transcribe obtains text from an external speech-to-text command.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/Paranoid-AF/saycmd"
	"github.com/Paranoid-AF/saycmd/logging"
)

// ErrEvicted is reported when transcription is attempted while the model is off the accelerator.
var ErrEvicted = errors.New("transcription model is evicted")

// Command records and transcribes one utterance by running Argv and reading
// its standard output. EvictArgv and RestoreArgv, when set, move the speech
// model off and back onto the accelerator.
type Command struct {
	Argv        []string
	EvictArgv   []string
	RestoreArgv []string

	mu      sync.Mutex
	evicted bool
	run     func(ctx context.Context, argv []string) (string, error)
}

// New returns a Command from config.
func New(cfg saycmd.TranscriptionConfig) *Command {
	return &Command{
		Argv:        cfg.Command,
		EvictArgv:   cfg.EvictCommand,
		RestoreArgv: cfg.RestoreCommand,
		run:         output,
	}
}

// Transcribe returns the trimmed transcript, or "" when nothing usable was heard.
func (c *Command) Transcribe(ctx context.Context) string {
	logger := logging.GetLogger("transcribe")
	c.mu.Lock()
	evicted := c.evicted
	c.mu.Unlock()
	if evicted {
		logger.Warn().Err(ErrEvicted).Msg("refusing to transcribe")
		return ""
	}
	if len(c.Argv) == 0 {
		logger.Warn().Msg("no transcription command configured")
		return ""
	}

	out, err := c.runner()(ctx, c.Argv)
	if err != nil {
		logger.Warn().Err(err).Strs("argv", c.Argv).Msg("transcription failed")
		return ""
	}
	text := strings.TrimSpace(out)
	logger.Debug().Str("text", text).Msg("transcribed")
	return text
}

// Evict frees the accelerator.
func (c *Command) Evict() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.EvictArgv) > 0 {
		if _, err := c.runner()(context.Background(), c.EvictArgv); err != nil {
			return fmt.Errorf("evict: %w", err)
		}
	}
	c.evicted = true
	return nil
}

// Restore loads the speech model back.
func (c *Command) Restore() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.RestoreArgv) > 0 {
		if _, err := c.runner()(context.Background(), c.RestoreArgv); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
	}
	c.evicted = false
	return nil
}

func (c *Command) runner() func(ctx context.Context, argv []string) (string, error) {
	if c.run == nil {
		return output
	}
	return c.run
}

func output(ctx context.Context, argv []string) (string, error) {
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}
