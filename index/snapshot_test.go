package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitExt(t *testing.T) {
	tests := []struct {
		base, name, ext string
	}{
		{"report.txt", "report", ".txt"},
		{"Report.PDF", "Report", ".pdf"},
		{"archive.tar.gz", "archive.tar", ".gz"},
		{".bashrc", ".bashrc", ""},
		{"..hidden", "..hidden", ""},
		{".config.json", ".config", ".json"},
		{"Makefile", "Makefile", ""},
		{"trailing.", "trailing", "."},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			name, ext := splitExt(tt.base)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.ext, ext)
		})
	}
}

func sampleSnapshot() *Snapshot {
	files := []Entry{
		{Path: "/b/report.pdf", Name: "report", Ext: ".pdf"},
		{Path: "/a/report.txt", Name: "report", Ext: ".txt"},
		{Path: "/a/Notes.md", Name: "Notes", Ext: ".md"},
	}
	dirs := []Entry{
		{Path: "/home/u/Report", Name: "Report", Parent: "/home/u"},
		{Path: "/home/u/Downloads", Name: "Downloads", Parent: "/home/u"},
	}
	return NewSnapshot(files, dirs)
}

func TestSnapshotSortsByPath(t *testing.T) {
	snap := sampleSnapshot()

	files := snap.Entries(File)
	require.Len(t, files, 3)
	assert.Equal(t, "/a/Notes.md", files[0].Path)
	assert.Equal(t, "/a/report.txt", files[1].Path)
	assert.Equal(t, "/b/report.pdf", files[2].Path)

	all := snap.Entries(Any)
	require.Len(t, all, 5)
	assert.Equal(t, File, all[0].Kind)
	assert.Equal(t, Dir, all[4].Kind)
}

func TestSnapshotLookupByName(t *testing.T) {
	snap := sampleSnapshot()

	got := snap.LookupByName("REPORT", Any)
	require.Len(t, got, 3)
	assert.Equal(t, "/a/report.txt", got[0].Path)
	assert.Equal(t, "/b/report.pdf", got[1].Path)
	assert.Equal(t, "/home/u/Report", got[2].Path)

	assert.Len(t, snap.LookupByName("report", Dir), 1)
	assert.Len(t, snap.LookupByName("report.txt", File), 1)
	assert.Len(t, snap.LookupByName("notes", File), 1)
	assert.Empty(t, snap.LookupByName("", Any))
	assert.Empty(t, snap.LookupByName("missing", Any))
}

func TestSnapshotAllNames(t *testing.T) {
	snap := sampleSnapshot()

	assert.Equal(t,
		[]string{"notes", "notes.md", "report", "report.txt", "report.pdf", "downloads"},
		snap.AllNames(Any))
	assert.Equal(t, []string{"downloads", "report"}, snap.AllNames(Dir))
}

func TestSnapshotIsImmutable(t *testing.T) {
	files := []Entry{{Path: "/a/x.txt", Name: "x", Ext: ".txt"}}
	snap := NewSnapshot(files, nil)

	files[0].Name = "changed"
	out := snap.Entries(File)
	out[0].Name = "mutated"

	assert.Len(t, snap.LookupByName("x", File), 1)
	assert.Equal(t, "x", snap.Entries(File)[0].Name)
}

func TestNilSnapshot(t *testing.T) {
	var snap *Snapshot
	assert.Zero(t, snap.Len(Any))
	assert.Nil(t, snap.LookupByName("x", Any))
	assert.Nil(t, snap.AllNames(Any))
}
