package resolve

import (
	"testing"
	"time"

	"github.com/Paranoid-AF/saycmd/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testSnapshot() *index.Snapshot {
	files := []index.Entry{
		{Path: "/home/u/a/report.txt", Name: "report", Ext: ".txt"},
		{Path: "/home/u/b/report.pdf", Name: "report", Ext: ".pdf"},
		{Path: "/home/u/budget.xlsx", Name: "budget", Ext: ".xlsx"},
		{Path: "/home/u/.bashrc", Name: ".bashrc"},
	}
	dirs := []index.Entry{
		{Path: "/home/u/Downloads", Name: "Downloads", Parent: "/home/u"},
		{Path: "/home/u/Projects", Name: "Projects", Parent: "/home/u"},
	}
	return index.NewSnapshot(files, dirs)
}

func newResolver(t *testing.T, snap *index.Snapshot) *EntityResolver {
	t.Helper()
	r := NewEntityResolver(snap, Options{Cutoff: DefaultCutoff, CacheTTL: time.Minute})
	t.Cleanup(r.Close)
	return r
}

func TestResolveAmbiguousName(t *testing.T) {
	r := newResolver(t, testSnapshot())

	res := r.Resolve("report")
	assert.True(t, res.Found())
	assert.True(t, res.Ambiguous())
	assert.Equal(t, "report", res.Match)
	assert.Equal(t, []string{"/home/u/a/report.txt", "/home/u/b/report.pdf"}, res.Paths)
}

func TestResolveFullFileName(t *testing.T) {
	r := newResolver(t, testSnapshot())

	res := r.Resolve("Budget.XLSX")
	require.True(t, res.Found())
	assert.False(t, res.Ambiguous())
	assert.Equal(t, []string{"/home/u/budget.xlsx"}, res.Paths)
	assert.Equal(t, "Budget.XLSX", res.Query)
}

func TestResolveFuzzy(t *testing.T) {
	r := newResolver(t, testSnapshot())

	res := r.Resolve("downlods")
	require.True(t, res.Found())
	assert.Equal(t, "downloads", res.Match)
	assert.Equal(t, []string{"/home/u/Downloads"}, res.Paths)

	res = r.Resolve("reports")
	assert.Equal(t, "report", res.Match)
	assert.Len(t, res.Paths, 2)
}

func TestResolveNoMatch(t *testing.T) {
	r := newResolver(t, testSnapshot())

	for _, q := range []string{"", "   ", "xyz123"} {
		res := r.Resolve(q)
		assert.False(t, res.Found(), q)
		assert.Empty(t, res.Match, q)
	}
}

func TestResolveExactNameAlwaysFound(t *testing.T) {
	snap := testSnapshot()
	r := newResolver(t, snap)

	for _, name := range snap.AllNames(index.Any) {
		res := r.Resolve(name)
		assert.True(t, res.Found(), name)
		assert.Equal(t, name, res.Match)
	}
}

func TestResolveCachedResultIsStable(t *testing.T) {
	r := newResolver(t, testSnapshot())

	first := r.Resolve("Projects")
	second := r.Resolve("projects")
	assert.Equal(t, first.Paths, second.Paths)
	assert.Equal(t, "projects", second.Query)
	assert.NotNil(t, r.cache.Get("projects"))
}

func TestResolveEmptySnapshot(t *testing.T) {
	r := newResolver(t, index.NewSnapshot(nil, nil))
	assert.False(t, r.Resolve("anything").Found())
}

func TestEntityResolverCloseTwice(t *testing.T) {
	r := NewEntityResolver(testSnapshot(), Options{})
	r.Close()
	r.Close()
}

func TestShortLivedResolversLeaveNoGoroutines(t *testing.T) {
	snap := testSnapshot()
	for i := 0; i < 50; i++ {
		r := NewEntityResolver(snap, Options{})
		r.Resolve("report")
		r.Close()
	}
	goleak.VerifyNone(t)
}

func TestCloseDropsCachedResults(t *testing.T) {
	r := NewEntityResolver(testSnapshot(), Options{})
	r.Resolve("budget")
	require.Equal(t, 1, r.cache.Len())
	r.Close()
	assert.Equal(t, 0, r.cache.Len())
}
