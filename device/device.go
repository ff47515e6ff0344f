// Package device injects key chords and text into the focused window and
// opens paths with the desktop's default handler.
package device

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/Paranoid-AF/saycmd"
	"github.com/Paranoid-AF/saycmd/logging"
	"github.com/atotto/clipboard"
)

const commandTimeout = 10 * time.Second

// ErrUnsupported is returned when no command is configured for an operation.
var ErrUnsupported = errors.New("no command configured for this platform")

// Device is the input-injection and opener collaborator.
type Device interface {
	SendKeys(chord string) error
	TypeText(text string) error
	OpenPath(path string) error
}

// Desktop drives the local desktop through external commands.
type Desktop struct {
	openArgv   []string
	keysArgv   []string
	typeArgv   []string
	typeMode   string
	pasteChord string

	run            func(ctx context.Context, argv []string) error
	writeClipboard func(text string) error
}

// NewDesktop builds a Desktop from config, filling unset commands with
// platform defaults.
func NewDesktop(cfg saycmd.DeviceConfig) *Desktop {
	open, keys, typ := platformDefaults(runtime.GOOS)
	if len(cfg.OpenCommand) > 0 {
		open = cfg.OpenCommand
	}
	if len(cfg.KeysCommand) > 0 {
		keys = cfg.KeysCommand
	}
	if len(cfg.TypeCommand) > 0 {
		typ = cfg.TypeCommand
	}
	paste := cfg.PasteChord
	if paste == "" {
		paste = "ctrl+v"
	}
	return &Desktop{
		openArgv:       open,
		keysArgv:       keys,
		typeArgv:       typ,
		typeMode:       cfg.TypeMode,
		pasteChord:     paste,
		run:            runCommand,
		writeClipboard: clipboard.WriteAll,
	}
}

func platformDefaults(goos string) (open, keys, typ []string) {
	switch goos {
	case "darwin":
		return []string{"open"}, nil, nil
	case "windows":
		return []string{"explorer"}, nil, nil
	default:
		return []string{"xdg-open"},
			[]string{"xdotool", "key", "--clearmodifiers"},
			[]string{"xdotool", "type", "--clearmodifiers", "--"}
	}
}

// SendKeys presses a chord such as "ctrl+c".
func (d *Desktop) SendKeys(chord string) error {
	return d.exec("keys", d.keysArgv, chord)
}

// TypeText types text into the focused window, either as keystrokes or by
// pasting it from the clipboard.
func (d *Desktop) TypeText(text string) error {
	if d.typeMode == "clipboard" {
		if err := d.writeClipboard(text); err != nil {
			logger := logging.GetLogger("device")
			logger.Warn().Err(err).Msg("clipboard write failed")
			return fmt.Errorf("clipboard: %w", err)
		}
		return d.SendKeys(d.pasteChord)
	}
	return d.exec("type", d.typeArgv, text)
}

// OpenPath opens a file, directory, or shell location.
func (d *Desktop) OpenPath(path string) error {
	return d.exec("open", d.openArgv, path)
}

func (d *Desktop) exec(op string, base []string, arg string) error {
	logger := logging.GetLogger("device")
	if len(base) == 0 {
		return fmt.Errorf("%s: %w", op, ErrUnsupported)
	}
	argv := append(append([]string(nil), base...), arg)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := d.run(ctx, argv); err != nil {
		logger.Warn().Err(err).Strs("argv", argv).Msg("device command failed")
		return fmt.Errorf("%s: %w", op, err)
	}
	logger.Debug().Strs("argv", argv).Msg("device command ran")
	return nil
}

func runCommand(ctx context.Context, argv []string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
