package index

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Paranoid-AF/saycmd/logging"
	"golang.org/x/sync/errgroup"
)

// CrawlStats summarizes one crawl.
type CrawlStats struct {
	Files   int
	Dirs    int
	Elapsed time.Duration
}

// Total returns the number of rows written.
func (c CrawlStats) Total() int {
	return c.Files + c.Dirs
}

// Crawl walks every root and upserts what it finds. Roots are walked in
// parallel; a single writer flushes rows in batches, one transaction each.
// Entries that cannot be stat'ed are skipped. Cancelling ctx aborts the
// crawl; batches already flushed stay in the store.
func (s *Store) Crawl(ctx context.Context, roots []string) (CrawlStats, error) {
	logger := logging.GetLogger("index")
	start := time.Now()

	rows := make(chan Entry, s.batchSize)
	var stats CrawlStats

	g, gctx := errgroup.WithContext(ctx)
	walkers, wctx := errgroup.WithContext(gctx)

	for _, abs := range outermostRoots(roots) {
		walkers.Go(func() error {
			logger.Debug().Str("root", abs).Msg("walking root")
			return walkRoot(wctx, abs, rows)
		})
	}

	g.Go(func() error {
		err := walkers.Wait()
		close(rows)
		return err
	})

	g.Go(func() error {
		batch := make([]Entry, 0, s.batchSize)
		write := func() error {
			if err := s.flush(gctx, batch); err != nil {
				return err
			}
			for _, e := range batch {
				if e.Kind == Dir {
					stats.Dirs++
				} else {
					stats.Files++
				}
			}
			logger.Trace().Int("rows", len(batch)).Msg("flushed batch")
			batch = batch[:0]
			return nil
		}
		for e := range rows {
			batch = append(batch, e)
			if len(batch) >= s.batchSize {
				if err := write(); err != nil {
					return err
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(batch) > 0 {
			return write()
		}
		return nil
	})

	err := g.Wait()
	stats.Elapsed = time.Since(start)
	if err != nil {
		logger.Warn().Err(err).Int("files", stats.Files).Int("dirs", stats.Dirs).Msg("crawl aborted")
		return stats, err
	}
	logger.Info().
		Int("files", stats.Files).
		Int("dirs", stats.Dirs).
		Dur("elapsed", stats.Elapsed).
		Msg("crawl finished")
	return stats, nil
}

// outermostRoots returns the absolute roots with duplicates and roots nested
// inside another root removed, so no path is walked twice.
func outermostRoots(roots []string) []string {
	logger := logging.GetLogger("index")
	abs := make([]string, 0, len(roots))
	for _, root := range roots {
		p, err := filepath.Abs(root)
		if err != nil {
			logger.Warn().Err(err).Str("root", root).Msg("skipping root")
			continue
		}
		abs = append(abs, p)
	}
	sort.Strings(abs)

	// Sorted, a root always follows any root that contains it.
	kept := make([]string, 0, len(abs))
next:
	for _, p := range abs {
		for _, k := range kept {
			if within(p, k) {
				logger.Debug().Str("root", p).Str("under", k).Msg("skipping nested root")
				continue next
			}
		}
		kept = append(kept, p)
	}
	return kept
}

func within(path, root string) bool {
	if path == root {
		return true
	}
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}
	return strings.HasPrefix(path, root)
}

// walkRoot emits an Entry for everything below root. The root itself is not emitted.
func walkRoot(ctx context.Context, root string, out chan<- Entry) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// Unreadable directories were already emitted on the first visit;
			// returning nil here skips their contents.
			return nil
		}
		if path == root {
			return nil
		}

		e, descend, ok := entryFor(path, d)
		if !ok {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		select {
		case out <- e:
		case <-ctx.Done():
			return ctx.Err()
		}
		if d.IsDir() && !descend {
			return fs.SkipDir
		}
		return nil
	})
}

// entryFor builds the row for one walked path. Symlinks are resolved; a link
// to a directory becomes a directory row that is not descended.
func entryFor(path string, d fs.DirEntry) (e Entry, descend bool, ok bool) {
	var info fs.FileInfo
	var err error
	if d.Type()&fs.ModeSymlink != 0 {
		info, err = os.Stat(path)
	} else {
		info, err = d.Info()
	}
	if err != nil {
		return Entry{}, false, false
	}

	base := filepath.Base(path)
	if info.IsDir() {
		return Entry{
			Kind:     Dir,
			Path:     path,
			Name:     base,
			Parent:   parentOf(path),
			Modified: info.ModTime(),
		}, d.IsDir(), true
	}

	name, ext := splitExt(base)
	return Entry{
		Kind:     File,
		Path:     path,
		Name:     name,
		Ext:      ext,
		Parent:   parentOf(path),
		Size:     info.Size(),
		Modified: info.ModTime(),
	}, false, true
}
