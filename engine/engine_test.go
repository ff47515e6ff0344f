package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Paranoid-AF/saycmd"
	"github.com/Paranoid-AF/saycmd/accel"
	"github.com/Paranoid-AF/saycmd/choice"
	"github.com/Paranoid-AF/saycmd/index"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubInference struct {
	cmd   saycmd.Command
	calls atomic.Int32
}

func (s *stubInference) ParseCommand(ctx context.Context, text string) saycmd.Command {
	s.calls.Add(1)
	return s.cmd
}

type stubDevice struct {
	mu     sync.Mutex
	opened []string
}

func (d *stubDevice) SendKeys(string) error { return nil }
func (d *stubDevice) TypeText(string) error { return nil }
func (d *stubDevice) OpenPath(path string) error {
	d.mu.Lock()
	d.opened = append(d.opened, path)
	d.mu.Unlock()
	return nil
}

type stubTranscriber struct {
	mu   sync.Mutex
	text string
	log  []string
}

func (s *stubTranscriber) Transcribe(ctx context.Context) string { return s.text }

func (s *stubTranscriber) Evict() error {
	s.mu.Lock()
	s.log = append(s.log, "evict")
	s.mu.Unlock()
	return nil
}

func (s *stubTranscriber) Restore() error {
	s.mu.Lock()
	s.log = append(s.log, "restore")
	s.mu.Unlock()
	return nil
}

func (s *stubTranscriber) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.log...)
}

type harness struct {
	root     string
	engine   *Engine
	infer    *stubInference
	device   *stubDevice
	requests chan choice.Request
}

func newHarness(t *testing.T, cfg *saycmd.Config, files ...string) *harness {
	t.Helper()
	root := t.TempDir()
	for _, rel := range files {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(rel), 0644))
	}

	store, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if cfg == nil {
		cfg = saycmd.DefaultConfig()
	}
	h := &harness{
		root:     root,
		infer:    &stubInference{},
		device:   &stubDevice{},
		requests: make(chan choice.Request, 4),
	}
	h.engine, err = New(cfg, Options{
		Store:     store,
		Device:    h.device,
		Inference: h.infer,
		Cwd:       root,
		Hooks: Hooks{
			OnChoiceRequested: func(r choice.Request) { h.requests <- r },
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { h.engine.Close() })

	_, err = h.engine.Reindex(context.Background(), []string{root})
	require.NoError(t, err)
	return h
}

func (h *harness) awaitRequest(t *testing.T) choice.Request {
	t.Helper()
	select {
	case r := <-h.requests:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no choice requested")
		return choice.Request{}
	}
}

func awaitOutcome(t *testing.T, ch <-chan saycmd.Outcome) saycmd.Outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("no outcome")
		return saycmd.Outcome{}
	}
}

func TestRunRuleTier(t *testing.T) {
	h := newHarness(t, nil, "notes/todo.txt", "notes/keep.txt")

	out, err := h.engine.Run(context.Background(), "delete todo.txt")
	require.NoError(t, err)
	require.True(t, out.OK(), out.Report())

	assert.NoFileExists(t, filepath.Join(h.root, "notes", "todo.txt"))
	assert.FileExists(t, filepath.Join(h.root, "notes", "keep.txt"))
	assert.Zero(t, h.infer.calls.Load())
	assert.False(t, h.engine.Busy())

	n, err := testutil.GatherAndCount(h.engine.Metrics().Gatherer(), "saycmd_commands_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunInferenceTier(t *testing.T) {
	h := newHarness(t, nil, "notes/todo.txt")
	h.infer.cmd = saycmd.Command{Action: "get_size", Value: "todo"}

	out, err := h.engine.Run(context.Background(), "how big is my todo list")
	require.NoError(t, err)
	require.True(t, out.OK(), out.Report())
	assert.Equal(t, filepath.Join(h.root, "notes", "todo.txt"), out.Target)
	assert.EqualValues(t, 1, h.infer.calls.Load())
}

func TestRunUnparseable(t *testing.T) {
	h := newHarness(t, nil)

	out, err := h.engine.Run(context.Background(), "mumble mumble")
	require.NoError(t, err)
	assert.Equal(t, saycmd.StateFailed, out.Status)
	assert.ErrorIs(t, out.Err, saycmd.ErrNoCommand)
}

func TestInferenceLendsAccelerator(t *testing.T) {
	store, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	defer store.Close()

	tr := &stubTranscriber{text: "show me the disk space"}
	infer := &stubInference{cmd: saycmd.Command{Action: "list_directory"}}
	e, err := New(saycmd.DefaultConfig(), Options{
		Store:       store,
		Transcriber: tr,
		Device:      &stubDevice{},
		Inference:   infer,
		Cwd:         t.TempDir(),
	})
	require.NoError(t, err)
	defer e.Close()

	text, err := e.Listen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "show me the disk space", text)
	assert.Equal(t, accel.Transcription, e.arbiter.Holder())

	out, err := e.Run(context.Background(), "what is in here")
	require.NoError(t, err)
	require.True(t, out.OK(), out.Report())

	assert.Equal(t, []string{"restore", "evict", "restore"}, tr.calls())
	assert.Equal(t, accel.Transcription, e.arbiter.Holder())
}

func TestListenWithoutTranscriber(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.engine.Listen(context.Background())
	assert.ErrorIs(t, err, ErrNoTranscriber)
}

func TestSubmitDisambiguates(t *testing.T) {
	h := newHarness(t, nil, "a/report.txt", "b/report.txt")

	ch, err := h.engine.Submit("open report")
	require.NoError(t, err)

	req := h.awaitRequest(t)
	require.Len(t, req.Options, 2)
	assert.Contains(t, req.Prompt, "report")

	_, err = h.engine.Submit("go back")
	assert.ErrorIs(t, err, saycmd.ErrBusy)
	_, err = h.engine.Reindex(context.Background(), []string{h.root})
	assert.ErrorIs(t, err, saycmd.ErrBusy)

	pending, ok := h.engine.PendingChoice()
	require.True(t, ok)
	assert.Equal(t, req, pending)

	selected, _ := choice.Select("2", req.Options)
	require.NoError(t, h.engine.SupplyChoice(selected))

	out := awaitOutcome(t, ch)
	require.True(t, out.OK(), out.Report())
	assert.Equal(t, filepath.Join(h.root, "b", "report.txt"), out.Target)
	assert.Equal(t, []string{filepath.Join(h.root, "b", "report.txt")}, h.device.opened)

	_, ok = h.engine.PendingChoice()
	assert.False(t, ok)
	assert.ErrorIs(t, h.engine.SupplyChoice("late"), choice.ErrNoPendingChoice)
}

func TestSubmitAfterOutcome(t *testing.T) {
	h := newHarness(t, nil, "a/x.txt")

	for range 3 {
		ch, err := h.engine.Submit("go back")
		require.NoError(t, err)
		out := awaitOutcome(t, ch)
		assert.True(t, out.OK())
	}
}

func TestChoiceTimeoutCancels(t *testing.T) {
	cfg := saycmd.DefaultConfig()
	cfg.Choice.TimeoutSeconds = 1
	h := newHarness(t, cfg, "a/report.txt", "b/report.txt")

	out, err := h.engine.Run(context.Background(), "delete report")
	require.NoError(t, err)
	assert.Equal(t, saycmd.StateCancelled, out.Status)
	assert.ErrorIs(t, out.Err, saycmd.ErrCancelled)
	assert.FileExists(t, filepath.Join(h.root, "a", "report.txt"))
	assert.FileExists(t, filepath.Join(h.root, "b", "report.txt"))
	assert.Len(t, h.requests, 1)
}

func TestCloseCancelsPendingChoice(t *testing.T) {
	h := newHarness(t, nil, "a/report.txt", "b/report.txt")

	ch, err := h.engine.Submit("delete report")
	require.NoError(t, err)
	h.awaitRequest(t)

	require.NoError(t, h.engine.Close())
	out := awaitOutcome(t, ch)
	assert.Equal(t, saycmd.StateCancelled, out.Status)

	_, err = h.engine.Submit("go back")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestReindexPicksUpNewFiles(t *testing.T) {
	h := newHarness(t, nil, "a/old.txt")
	assert.False(t, h.engine.Resolve("fresh").Found())

	require.NoError(t, os.WriteFile(filepath.Join(h.root, "a", "fresh.txt"), nil, 0644))
	stats, err := h.engine.Reindex(context.Background(), []string{h.root})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)

	res := h.engine.Resolve("fresh")
	require.True(t, res.Found())
	assert.Equal(t, []string{filepath.Join(h.root, "a", "fresh.txt")}, res.Paths)
}

func TestLoadSnapshotWithoutStore(t *testing.T) {
	e, err := New(saycmd.DefaultConfig(), Options{Device: &stubDevice{}, Inference: &stubInference{}})
	require.NoError(t, err)
	defer e.Close()

	assert.ErrorIs(t, e.LoadSnapshot(context.Background()), ErrNoStore)
	_, err = e.Reindex(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoStore)
	assert.False(t, e.Resolve("anything").Found())
}

func TestCloseWritesMetrics(t *testing.T) {
	cfg := saycmd.DefaultConfig()
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "saycmd.prom")
	h := newHarness(t, cfg, "a/x.txt")

	_, err := h.engine.Run(context.Background(), "go back")
	require.NoError(t, err)
	require.NoError(t, h.engine.Close())

	data, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `saycmd_commands_total{action="go_back",status="succeeded"} 1`)
	assert.Contains(t, string(data), `saycmd_index_entries{kind="file"} 1`)
}

func TestCloseWaitsForRun(t *testing.T) {
	cfg := saycmd.DefaultConfig()
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "saycmd.prom")
	h := newHarness(t, cfg, "a/report.txt", "b/report.txt")

	done := make(chan saycmd.Outcome, 1)
	go func() {
		out, err := h.engine.Run(context.Background(), "delete report")
		assert.NoError(t, err)
		done <- out
	}()
	h.awaitRequest(t)

	require.NoError(t, h.engine.Close())
	out := awaitOutcome(t, done)
	assert.Equal(t, saycmd.StateCancelled, out.Status)
	assert.FileExists(t, filepath.Join(h.root, "a", "report.txt"))

	// The textfile is written after the run finished, so it includes it.
	data, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `saycmd_commands_total{action="delete",status="cancelled"} 1`)

	_, err = h.engine.Run(context.Background(), "go back")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClosedEngineRefusesIndexing(t *testing.T) {
	h := newHarness(t, nil, "a/x.txt")
	require.NoError(t, h.engine.Close())

	_, err := h.engine.Reindex(context.Background(), []string{h.root})
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, h.engine.LoadSnapshot(context.Background()), ErrClosed)
}
