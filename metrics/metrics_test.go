package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCommand(t *testing.T) {
	m := New()
	m.RecordCommand("delete", "succeeded")
	m.RecordCommand("delete", "succeeded")
	m.RecordCommand("", "failed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("delete", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("none", "failed")))
}

func TestRecordSnapshotAndCrawl(t *testing.T) {
	m := New()
	m.RecordSnapshot(12, 3)
	m.RecordCrawl(1500 * time.Millisecond)

	assert.Equal(t, 12.0, testutil.ToFloat64(m.indexEntries.WithLabelValues("file")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.indexEntries.WithLabelValues("directory")))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.crawlDuration))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.RecordParse("rule")
	m.RecordChoice()

	path := filepath.Join(t.TempDir(), "saycmd.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `saycmd_parse_total{tier="rule"} 1`))
	assert.True(t, strings.Contains(string(data), "saycmd_choices_requested_total 1"))
}

func TestWriteTextfileEmptyPathNoop(t *testing.T) {
	assert.NoError(t, New().WriteTextfile(""))
}
