package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Paranoid-AF/saycmd"
	"golang.org/x/term"
)

// termWriter wraps a file and converts \n to \r\n when the file is a terminal,
// since raw mode disables the kernel's translation. Redirected output passes
// through unchanged.
func termWriter(f *os.File) io.Writer {
	if term.IsTerminal(int(f.Fd())) {
		return &crlfWriter{w: f}
	}
	return f
}

type crlfWriter struct {
	w io.Writer
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	replaced := bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
	_, err := c.w.Write(replaced)
	return len(p), err
}

// entry is one REPL command as recorded to a redirected stdout.
type entry struct {
	Command commandRecord `toml:"command"`
	Outcome outcomeRecord `toml:"outcome"`
}

type commandRecord struct {
	Timestamp time.Time `toml:"timestamp"`
	Input     string    `toml:"input"`
	Cwd       string    `toml:"cwd"`
	Action    string    `toml:"action,omitempty"`
	Value     string    `toml:"value,omitempty"`
}

type outcomeRecord struct {
	Status  string `toml:"status"`
	Action  string `toml:"action,omitempty"`
	Target  string `toml:"target,omitempty"`
	Message string `toml:"message"`
	Error   string `toml:"error,omitempty"`
}

// writeEntry appends a TOML record of one command to w.
func writeEntry(w io.Writer, input, cwd string, o saycmd.Outcome) error {
	e := entry{
		Command: commandRecord{
			Timestamp: time.Now().Truncate(time.Second),
			Input:     input,
			Cwd:       cwd,
			Action:    o.Command.Action,
			Value:     o.Command.Value,
		},
		Outcome: outcomeRecord{
			Status:  o.Status.String(),
			Action:  string(o.Action),
			Target:  o.Target,
			Message: o.Report(),
		},
	}
	if o.Err != nil {
		e.Outcome.Error = o.Err.Error()
	}

	fmt.Fprintf(w, "# %s\n", strings.Repeat("=", 60))
	if err := toml.NewEncoder(w).Encode(e); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}
