package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/term"
)

// ErrInterrupt is returned when the user presses Ctrl-C.
var ErrInterrupt = errors.New("interrupted")

// Editor is a small raw-mode line editor with in-session history.
// It reads from /dev/tty so it works even when stdout is redirected.
type Editor struct {
	tty      *os.File
	oldState *term.State
	buf      []byte
	pos      int // cursor byte offset into buf

	history []string
	hpos    int
	draft   string
}

// NewEditor opens /dev/tty and switches to raw mode.
func NewEditor() (*Editor, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/tty: %w", err)
	}

	old, err := term.MakeRaw(int(tty.Fd()))
	if err != nil {
		tty.Close()
		return nil, fmt.Errorf("raw mode: %w", err)
	}

	return &Editor{tty: tty, oldState: old}, nil
}

// Close restores terminal state and closes the tty fd.
func (e *Editor) Close() {
	term.Restore(int(e.tty.Fd()), e.oldState)
	e.tty.Close()
}

// Tty returns the tty file for writing prompts and reports.
func (e *Editor) Tty() *os.File {
	return e.tty
}

// ReadLine shows prompt and reads one line. It returns io.EOF on Ctrl-D
// with an empty line and ErrInterrupt on Ctrl-C. Non-empty lines are added
// to the history reachable with the up and down arrows.
func (e *Editor) ReadLine(prompt string) (string, error) {
	e.buf = e.buf[:0]
	e.pos = 0
	e.hpos = len(e.history)
	e.draft = ""
	e.redraw(prompt)

	var esc [3]byte

	for {
		var b [1]byte
		if _, err := e.tty.Read(b[:]); err != nil {
			return "", err
		}

		switch b[0] {
		case 3: // Ctrl-C
			fmt.Fprint(e.tty, "\r\n")
			return "", ErrInterrupt

		case 4: // Ctrl-D
			if len(e.buf) == 0 {
				fmt.Fprint(e.tty, "\r\n")
				return "", io.EOF
			}

		case 13, 10:
			fmt.Fprint(e.tty, "\r\n")
			line := string(e.buf)
			if line != "" && (len(e.history) == 0 || e.history[len(e.history)-1] != line) {
				e.history = append(e.history, line)
			}
			return line, nil

		case 127, 8:
			if e.pos > 0 {
				size := prevRuneLen(e.buf, e.pos)
				e.buf = append(e.buf[:e.pos-size], e.buf[e.pos:]...)
				e.pos -= size
			}

		case 1: // Ctrl-A
			e.pos = 0

		case 5: // Ctrl-E
			e.pos = len(e.buf)

		case 21: // Ctrl-U
			e.buf = e.buf[:0]
			e.pos = 0

		case 27:
			if n, _ := e.tty.Read(esc[:1]); n == 0 || esc[0] != '[' {
				continue
			}
			if n, _ := e.tty.Read(esc[1:2]); n == 0 {
				continue
			}
			switch esc[1] {
			case 'A':
				e.recall(-1)
			case 'B':
				e.recall(1)
			case 'D':
				if e.pos > 0 {
					e.pos -= prevRuneLen(e.buf, e.pos)
				}
			case 'C':
				if e.pos < len(e.buf) {
					_, size := utf8.DecodeRune(e.buf[e.pos:])
					e.pos += size
				}
			case 'H':
				e.pos = 0
			case 'F':
				e.pos = len(e.buf)
			case '3': // Delete: \x1b[3~
				e.tty.Read(esc[2:3])
				if e.pos < len(e.buf) {
					_, size := utf8.DecodeRune(e.buf[e.pos:])
					e.buf = append(e.buf[:e.pos], e.buf[e.pos+size:]...)
				}
			}

		default:
			if b[0] < 32 {
				break
			}
			ch := []byte{b[0]}
			if b[0] >= 0xC0 {
				tail := make([]byte, utf8SeqLen(b[0])-1)
				e.tty.Read(tail)
				ch = append(ch, tail...)
			}
			e.insert(ch)
		}

		e.redraw(prompt)
	}
}

func (e *Editor) insert(ch []byte) {
	e.buf = append(e.buf, ch...)
	copy(e.buf[e.pos+len(ch):], e.buf[e.pos:len(e.buf)-len(ch)])
	copy(e.buf[e.pos:], ch)
	e.pos += len(ch)
}

// recall moves through history; moving past the newest entry restores
// what was being typed.
func (e *Editor) recall(delta int) {
	next := e.hpos + delta
	if next < 0 || next > len(e.history) {
		return
	}
	if e.hpos == len(e.history) {
		e.draft = string(e.buf)
	}
	e.hpos = next
	line := e.draft
	if next < len(e.history) {
		line = e.history[next]
	}
	e.buf = append(e.buf[:0], line...)
	e.pos = len(e.buf)
}

func (e *Editor) redraw(prompt string) {
	fmt.Fprintf(e.tty, "\r\x1b[K%s%s", prompt, e.buf)
	if tail := utf8.RuneCount(e.buf[e.pos:]); tail > 0 {
		fmt.Fprintf(e.tty, "\x1b[%dD", tail)
	}
}

// prevRuneLen returns the byte length of the rune ending at pos.
func prevRuneLen(buf []byte, pos int) int {
	if pos <= 0 {
		return 0
	}
	_, size := utf8.DecodeLastRune(buf[:pos])
	return size
}

// utf8SeqLen returns the byte length of a UTF-8 sequence from its lead byte.
func utf8SeqLen(lead byte) int {
	switch {
	case lead < 0xC0:
		return 1
	case lead < 0xE0:
		return 2
	case lead < 0xF0:
		return 3
	}
	return 4
}
