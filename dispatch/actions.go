package dispatch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Paranoid-AF/saycmd"
	"github.com/dustin/go-humanize"
	"mvdan.cc/sh/v3/shell"
)

func (r *run) open(value string) saycmd.Outcome {
	path, err := r.resolveTarget(value)
	if errors.Is(err, saycmd.ErrNoMatch) {
		r.progress(fmt.Sprintf("Trying to open '%s' as shell folder...", value))
		key, folder, ok := r.d.opts.ShellFolders.Lookup(value)
		if !ok {
			return r.fail(saycmd.ErrNoMatch, "No matching file, directory, or shell folder found for '%s'.", value)
		}
		r.out.Target = folder
		r.to(saycmd.StateEntityResolved)
		path = folder
		r.logger.Debug().Str("shell_folder", key).Msg("using shell folder")
	} else if err != nil {
		return r.targetFailure(value, err)
	}

	r.execute()
	if r.d.opts.Device == nil {
		return r.fail(errors.New("no device configured"), "Cannot open %s: no opener configured.", path)
	}
	if err := r.d.opts.Device.OpenPath(path); err != nil {
		return r.fail(err, "Failed to open %s: %v", path, err)
	}
	return r.succeed("Opened " + path)
}

func (r *run) delete(value string) saycmd.Outcome {
	path, err := r.resolveTarget(value)
	if err != nil {
		if errors.Is(err, saycmd.ErrNoMatch) {
			return r.fail(err, "No matching file or directory '%s'. Shell folders cannot be deleted.", value)
		}
		return r.targetFailure(value, err)
	}

	r.execute()
	if isRoot(path) {
		return r.fail(fmt.Errorf("refusing to delete %s", path), "Refusing to delete filesystem root %s.", path)
	}
	info, err := os.Lstat(path)
	if err != nil {
		return r.fail(err, "Cannot delete %s: %v", path, err)
	}
	if info.IsDir() {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return r.fail(err, "Failed to delete %s: %v", path, err)
	}
	return r.succeed("Deleted " + path)
}

func (r *run) listDirectory(value string) saycmd.Outcome {
	dir := r.d.Cwd()
	if strings.TrimSpace(value) != "" {
		path, err := r.resolveTarget(value)
		if err != nil {
			return r.targetFailure(value, err)
		}
		dir = path
	} else {
		r.out.Target = dir
		r.to(saycmd.StateEntityResolved)
	}

	r.execute()
	info, err := os.Stat(dir)
	if err != nil {
		return r.fail(err, "Cannot list %s: %v", dir, err)
	}
	if !info.IsDir() {
		return r.fail(fmt.Errorf("%s: not a directory", dir), "%s is not a directory.", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return r.fail(err, "Cannot list %s: %v", dir, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Contents of %s (%d entries):", dir, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += string(filepath.Separator)
		}
		b.WriteString("\n  ")
		b.WriteString(name)
	}
	return r.succeed(b.String())
}

func (r *run) getSize(value string) saycmd.Outcome {
	path, err := r.resolveTarget(value)
	if err != nil {
		return r.targetFailure(value, err)
	}

	r.execute()
	size, err := sizeOf(path)
	if err != nil {
		return r.fail(err, "Cannot size %s: %v", path, err)
	}
	return r.succeed(fmt.Sprintf("%s: %s (%d bytes)", path, humanize.Bytes(uint64(size)), size))
}

// sizeOf returns the file size, or for a directory the sum of the sizes of
// all regular files below it.
func sizeOf(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}

	// WalkDir does not descend into a symlinked root.
	root, err := filepath.EvalSymlinks(path)
	if err != nil {
		return 0, err
	}
	var total int64
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		total += fi.Size()
		return nil
	})
	return total, err
}

func (r *run) showSpace() saycmd.Outcome {
	cwd := r.d.Cwd()
	r.out.Target = cwd
	r.execute()
	ds, err := diskSpace(cwd)
	if err != nil {
		return r.fail(err, "Cannot read disk space for %s: %v", cwd, err)
	}
	return r.succeed(fmt.Sprintf("Disk space at %s: total %s, used %s, free %s",
		cwd, humanize.Bytes(ds.Total), humanize.Bytes(ds.Used), humanize.Bytes(ds.Free)))
}

func (r *run) navigate(value string) saycmd.Outcome {
	path, err := r.resolveTarget(value)
	if errors.Is(err, saycmd.ErrNoMatch) {
		_, folder, ok := r.d.opts.ShellFolders.Lookup(value)
		if !ok {
			return r.fail(saycmd.ErrNoMatch, "No matching directory or shell folder found for '%s'.", value)
		}
		r.out.Target = folder
		r.to(saycmd.StateEntityResolved)
		path = folder
	} else if err != nil {
		return r.targetFailure(value, err)
	}

	r.execute()
	info, err := os.Stat(path)
	if err != nil {
		return r.fail(err, "Cannot navigate to %s: %v", path, err)
	}
	dir := path
	if !info.IsDir() {
		dir = filepath.Dir(path)
	}
	r.d.setCwd(dir)
	r.out.Target = dir
	return r.succeed("Now in " + dir)
}

func (r *run) goBack() saycmd.Outcome {
	cwd := r.d.Cwd()
	r.execute()
	parent := filepath.Dir(cwd)
	if isRoot(cwd) || parent == cwd {
		r.out.Target = cwd
		return r.succeed("Already at root (" + cwd + ").")
	}
	r.d.setCwd(parent)
	r.out.Target = parent
	return r.succeed("Now in " + parent)
}

func (r *run) sendChord(chord, done string) saycmd.Outcome {
	r.execute()
	if r.d.opts.Device == nil {
		return r.fail(errors.New("no device configured"), "Cannot send %s: no input device configured.", chord)
	}
	if err := r.d.opts.Device.SendKeys(chord); err != nil {
		return r.fail(err, "Failed to send %s: %v", chord, err)
	}
	return r.succeed(done)
}

func (r *run) typeText(value string) saycmd.Outcome {
	r.execute()
	if value == "" {
		return r.succeed("Nothing to type.")
	}
	if r.d.opts.Device == nil {
		return r.fail(errors.New("no device configured"), "Cannot type: no input device configured.")
	}
	if err := r.d.opts.Device.TypeText(value); err != nil {
		return r.fail(err, "Failed to type text: %v", err)
	}
	return r.succeed(fmt.Sprintf("Typed %d characters.", len([]rune(value))))
}

func (r *run) rename(value string) saycmd.Outcome {
	src, err := r.resolveTarget(value)
	if err != nil {
		return r.targetFailure(value, err)
	}

	name, err := r.ask(fmt.Sprintf("New name for %s:", filepath.Base(src)))
	if err != nil {
		return r.finish(saycmd.StateCancelled, "Rename abandoned; nothing was done.", err)
	}
	if name == "" {
		return r.cancel("Rename cancelled.")
	}

	r.execute()
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return r.fail(fmt.Errorf("invalid name %q", name), "'%s' is not a valid name.", name)
	}
	dst := filepath.Join(filepath.Dir(src), name)
	if dst == src {
		return r.succeed(src + " already has that name.")
	}
	if _, err := os.Lstat(dst); err == nil {
		return r.fail(fs.ErrExist, "%s already exists.", dst)
	}
	if err := os.Rename(src, dst); err != nil {
		return r.fail(err, "Failed to rename %s: %v", src, err)
	}
	r.out.Target = dst
	return r.succeed(fmt.Sprintf("Renamed %s to %s", src, dst))
}

func (r *run) move(value string) saycmd.Outcome {
	src, err := r.resolveTarget(value)
	if err != nil {
		return r.targetFailure(value, err)
	}

	answer, err := r.ask(fmt.Sprintf("Move %s to:", filepath.Base(src)))
	if err != nil {
		return r.finish(saycmd.StateCancelled, "Move abandoned; nothing was done.", err)
	}
	if answer == "" {
		return r.cancel("Move cancelled.")
	}

	dest, err := r.destination(answer)
	if err != nil {
		return r.targetFailure(answer, err)
	}
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		dest = filepath.Join(dest, filepath.Base(src))
	}

	r.execute()
	if dest == src {
		return r.succeed(src + " is already there.")
	}
	if _, err := os.Lstat(dest); err == nil {
		return r.fail(fs.ErrExist, "%s already exists.", dest)
	}
	if err := os.Rename(src, dest); err != nil {
		return r.fail(err, "Failed to move %s: %v", src, err)
	}
	r.out.Target = dest
	return r.succeed(fmt.Sprintf("Moved %s to %s", src, dest))
}

// destination interprets the answer to a move prompt. Anything that looks
// like a path is taken literally after shell expansion; a bare name is
// resolved through the index and, failing that, taken relative to the
// current directory. A resolved file stands for its parent directory.
func (r *run) destination(answer string) (string, error) {
	expanded := expandPath(answer)
	cwd := r.d.Cwd()
	if strings.ContainsAny(expanded, `/\`) || filepath.IsAbs(expanded) {
		if !filepath.IsAbs(expanded) {
			expanded = filepath.Join(cwd, expanded)
		}
		return filepath.Clean(expanded), nil
	}

	if ents := r.d.entities(); ents != nil {
		if res := ents.Resolve(expanded); res.Found() {
			p, err := r.pick(expanded, res.Paths)
			if err != nil {
				return "", err
			}
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				p = filepath.Dir(p)
			}
			return p, nil
		}
	}
	return filepath.Join(cwd, expanded), nil
}

// expandPath applies tilde and variable expansion when the text asks for it.
func expandPath(s string) string {
	if !strings.ContainsAny(s, "~$") {
		return s
	}
	fields, err := shell.Fields(s, nil)
	if err != nil || len(fields) == 0 {
		return s
	}
	return strings.Join(fields, " ")
}

func isRoot(path string) bool {
	clean := filepath.Clean(path)
	return filepath.Dir(clean) == clean
}

func trimAnswer(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}
