package resolve

import (
	"strings"
	"sync"
	"time"

	"github.com/Paranoid-AF/saycmd/index"
	"github.com/Paranoid-AF/saycmd/logging"
	"github.com/jellydator/ttlcache/v3"
)

const (
	defaultCacheTTL      = 10 * time.Minute
	defaultCacheCapacity = 4096
)

// Options configures an EntityResolver.
type Options struct {
	Cutoff   float64
	CacheTTL time.Duration
}

// Result is the outcome of resolving one spoken name.
type Result struct {
	Query string
	Match string   // best close match, empty when nothing scored above the cutoff
	Paths []string // every indexed path named Match, files first
}

// Found reports whether at least one path matched.
func (r Result) Found() bool {
	return len(r.Paths) > 0
}

// Ambiguous reports whether the user has to pick between several paths.
func (r Result) Ambiguous() bool {
	return len(r.Paths) > 1
}

// EntityResolver maps a spoken name to indexed paths. It reads one
// immutable snapshot and never touches the filesystem.
type EntityResolver struct {
	snap   *index.Snapshot
	names  []string
	cutoff float64
	cache  *ttlcache.Cache[string, Result]

	closeOnce sync.Once
}

// NewEntityResolver builds a resolver over snap. Call Close to drop the cache.
func NewEntityResolver(snap *index.Snapshot, opts Options) *EntityResolver {
	if opts.Cutoff <= 0 {
		opts.Cutoff = DefaultCutoff
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	// Expired items are skipped by Get and capacity bounds the rest, so no
	// cleanup goroutine is started.
	c := ttlcache.New[string, Result](
		ttlcache.WithTTL[string, Result](opts.CacheTTL),
		ttlcache.WithCapacity[string, Result](defaultCacheCapacity),
		ttlcache.WithDisableTouchOnHit[string, Result](),
	)

	return &EntityResolver{
		snap:   snap,
		names:  snap.AllNames(index.Any),
		cutoff: opts.Cutoff,
		cache:  c,
	}
}

// Snapshot returns the snapshot this resolver reads.
func (r *EntityResolver) Snapshot() *index.Snapshot {
	return r.snap
}

// Resolve finds the indexed entries best matching query.
func (r *EntityResolver) Resolve(query string) Result {
	key := strings.ToLower(strings.TrimSpace(query))
	if key == "" {
		return Result{Query: query}
	}
	if item := r.cache.Get(key); item != nil {
		res := item.Value()
		res.Query = query
		return res
	}

	res := r.resolve(key)
	r.cache.Set(key, res, ttlcache.DefaultTTL)
	res.Query = query

	logger := logging.GetLogger("resolve")
	logger.Debug().
		Str("query", query).
		Str("match", res.Match).
		Int("paths", len(res.Paths)).
		Msg("resolved entity")
	return res
}

func (r *EntityResolver) resolve(key string) Result {
	match := key
	entries := r.snap.LookupByName(key, index.Any)
	if len(entries) == 0 {
		best := CloseMatches(key, r.names, 1, r.cutoff)
		if len(best) == 0 {
			return Result{}
		}
		match = best[0]
		entries = r.snap.LookupByName(match, index.Any)
	}

	seen := make(map[string]struct{}, len(entries))
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.Path]; ok {
			continue
		}
		seen[e.Path] = struct{}{}
		paths = append(paths, e.Path)
	}
	return Result{Match: match, Paths: paths}
}

// Close drops cached results.
func (r *EntityResolver) Close() {
	r.closeOnce.Do(r.cache.DeleteAll)
}
