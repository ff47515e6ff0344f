package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Paranoid-AF/saycmd"
	"github.com/Paranoid-AF/saycmd/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupEnv isolates config, index and log locations and returns a small tree.
func setupEnv(t *testing.T) string {
	t.Helper()
	state := t.TempDir()
	t.Setenv("SAYCMD_CONFIG_DIR", filepath.Join(state, "config"))
	t.Setenv("SAYCMD_INDEX_DB", filepath.Join(state, "index.db"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(state, "log"))

	root := t.TempDir()
	for _, rel := range []string{"notes/todo.txt", "a/report.txt", "b/report.txt"} {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(rel), 0644))
	}
	return root
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCrawlThenFind(t *testing.T) {
	root := setupEnv(t)

	out, err := execute(t, "", "crawl", root)
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 3 files and 3 directories in ")

	out, err = execute(t, "", "find", "todo")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(root, "notes", "todo.txt"))

	_, err = execute(t, "", "find", "xyz123")
	assert.ErrorIs(t, err, errCommandFailed)
}

func TestRunDeletes(t *testing.T) {
	root := setupEnv(t)
	_, err := execute(t, "", "crawl", root)
	require.NoError(t, err)

	out, err := execute(t, "", "run", "delete", "todo.txt")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Deleted "+filepath.Join(root, "notes", "todo.txt"))
	assert.NoFileExists(t, filepath.Join(root, "notes", "todo.txt"))
}

func TestRunAsksOnStdin(t *testing.T) {
	root := setupEnv(t)
	_, err := execute(t, "", "crawl", root)
	require.NoError(t, err)

	out, err := execute(t, "2\n", "run", "delete report")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Multiple matches found for 'report'. Choose one:")
	assert.Contains(t, out, "Enter number: ")
	assert.FileExists(t, filepath.Join(root, "a", "report.txt"))
	assert.NoFileExists(t, filepath.Join(root, "b", "report.txt"))
}

func TestRunInvalidChoiceFallsBack(t *testing.T) {
	root := setupEnv(t)
	_, err := execute(t, "", "crawl", root)
	require.NoError(t, err)

	out, err := execute(t, "banana\n", "run", "delete report")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Invalid choice. Defaulting to first option.")
	assert.NoFileExists(t, filepath.Join(root, "a", "report.txt"))
}

func TestRunAbandonedOnEOF(t *testing.T) {
	root := setupEnv(t)
	_, err := execute(t, "", "crawl", root)
	require.NoError(t, err)

	_, err = execute(t, "", "run", "delete report")
	assert.ErrorIs(t, err, errCommandFailed)
	assert.FileExists(t, filepath.Join(root, "a", "report.txt"))
	assert.FileExists(t, filepath.Join(root, "b", "report.txt"))
}

func TestReplMetaCommands(t *testing.T) {
	root := setupEnv(t)
	_, err := execute(t, "", "crawl", root)
	require.NoError(t, err)

	out, err := execute(t, ":cwd\n:bogus\ndelete todo\n:quit\ndelete report\n", "repl")
	require.NoError(t, err)
	assert.Contains(t, out, "Unknown command :bogus")
	assert.Contains(t, out, "Deleted")
	assert.NoFileExists(t, filepath.Join(root, "notes", "todo.txt"))
	assert.FileExists(t, filepath.Join(root, "a", "report.txt"))
}

func TestConfigCommand(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "", "config", "--defaults")
	require.NoError(t, err)
	assert.Contains(t, out, "[inference]")

	out, err = execute(t, "", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "[resolve]")
	assert.Contains(t, out, "cutoff = 0.6")
}

func TestWriteEntry(t *testing.T) {
	var buf bytes.Buffer
	o := saycmd.Outcome{
		Command: saycmd.Command{Action: "open", Value: "budget"},
		Action:  saycmd.ActionOpen,
		Target:  "/home/u/budget.xlsx",
		Status:  saycmd.StateSucceeded,
		Message: "Opened /home/u/budget.xlsx",
	}
	require.NoError(t, writeEntry(&buf, "open budget", "/home/u", o))

	out := buf.String()
	assert.Contains(t, out, "[command]")
	assert.Contains(t, out, `input = "open budget"`)
	assert.Contains(t, out, "[outcome]")
	assert.Contains(t, out, `status = "succeeded"`)
	assert.NotContains(t, out, "error =")
}

func TestCrawlReport(t *testing.T) {
	assert.Equal(t, "Indexed 12,345 files and 7 directories in 1.50s", crawlReport(index.CrawlStats{Files: 12345, Dirs: 7, Elapsed: 1500 * time.Millisecond}))
}

func TestFindOnEmptyIndex(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "", "find", "todo")
	assert.ErrorIs(t, err, errCommandFailed)
	assert.Contains(t, out, "run 'saycmd crawl' first")
}
