package ftputil

import (
	"errors"
	"fmt"

	"github.com/sschwarzer/ftputil/ftppath"
	"github.com/sschwarzer/ftputil/listparse"
)

const maxSymlinkHops = 20

// Lstat returns the stat record for path without following a trailing
// symlink (spec §4.4 "lstat"). path may be a string or []byte; the
// returned record's Name/Target are always plain strings (paths inside
// a Record never round-trip through the kind-preserving path algebra).
func (h *Host) Lstat(path any) (*listparse.Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return nil, err
	}
	p, err := ftppath.ToString(path)
	if err != nil {
		return nil, err
	}
	if err := h.rejectRoot("lstat", p); err != nil {
		return nil, err
	}
	return h.lstat(p)
}

// rejectRoot fails with ErrRootDir when p (after abs-resolution) names
// the root directory itself, the one path lstat/stat can never return a
// meaningful Record for (it has no entry in any parent's listing).
// listdir has no such restriction, since listing root's children never
// requires a Record for root; see lstat's own root handling below.
func (h *Host) rejectRoot(op, p string) error {
	abs, err := h.absPath(p)
	if err != nil {
		return err
	}
	if abs == "/" {
		return &PermanentError{Op: op, Message: "cannot stat the root directory", Err: ErrRootDir}
	}
	return nil
}

// Stat returns the stat record for path, following a chain of symlinks
// (spec §4.4 "stat"), bounded by maxSymlinkHops and a visited-node
// cycle check.
func (h *Host) Stat(path any) (*listparse.Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return nil, err
	}
	p, err := ftppath.ToString(path)
	if err != nil {
		return nil, err
	}
	if err := h.rejectRoot("stat", p); err != nil {
		return nil, err
	}
	return h.stat(p)
}

// Listdir returns the sorted base names of path's children (spec §4.4
// "listdir"), in the same string/[]byte kind as path.
func (h *Host) Listdir(path any) ([]any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return nil, err
	}
	p, err := ftppath.ToString(path)
	if err != nil {
		return nil, err
	}
	names, err := h.listdir(p)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = ftppath.FromString(path, n)
	}
	return out, nil
}

// Exists, Isdir, Isfile, Islink are the boolean predicates of spec
// §4.4: derived from stat/lstat, swallowing ErrItemNotFound (returning
// false) but surfacing any other failure (e.g. a parser error), per
// spec §7.
func (h *Host) Exists(path any) (bool, error) {
	_, err := h.Stat(path)
	return boolFromStatErr(err)
}

func (h *Host) Isdir(path any) (bool, error) {
	rec, err := h.Stat(path)
	if ok, perr := boolFromStatErr(err); !ok || perr != nil {
		return false, perr
	}
	return rec.IsDir(), nil
}

func (h *Host) Isfile(path any) (bool, error) {
	rec, err := h.Stat(path)
	if ok, perr := boolFromStatErr(err); !ok || perr != nil {
		return false, perr
	}
	return !rec.IsDir() && !rec.IsSymlink(), nil
}

func (h *Host) Islink(path any) (bool, error) {
	rec, err := h.Lstat(path)
	if ok, perr := boolFromStatErr(err); !ok || perr != nil {
		return false, perr
	}
	return rec.IsSymlink(), nil
}

func (h *Host) Getmtime(path any) (int64, error) {
	rec, err := h.Stat(path)
	if err != nil {
		return 0, err
	}
	return rec.MTime.Unix(), nil
}

func (h *Host) Getsize(path any) (int64, error) {
	rec, err := h.Stat(path)
	if err != nil {
		return 0, err
	}
	return rec.Size, nil
}

// boolFromStatErr implements the is*-predicate swallowing rule: a
// "not found" error becomes (false, nil); any other error is returned
// as-is with a meaningless bool.
func boolFromStatErr(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if isItemNotFound(err) {
		return false, nil
	}
	return false, err
}

func isItemNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound)
}

// --- unlocked engine, callers must hold h.mu ---

// rootRecord stands in for the root directory's own Record whenever the
// engine needs one internally (resolve/listdir chasing a path down to
// "/"), since root has no entry in any parent's listing to parse one
// from. It is never returned to a caller of the public Lstat/Stat
// methods, which reject root outright via rejectRoot.
var rootRecord = &listparse.Record{Mode: listparse.ModeDir, Name: "/"}

func (h *Host) lstat(p string) (*listparse.Record, error) {
	abs, err := h.absPath(p)
	if err != nil {
		return nil, err
	}
	if abs == "/" {
		return rootRecord, nil
	}
	if rec, ok := h.cache.Get(abs); ok {
		return rec, nil
	}
	parent, base, err := h.splitAbs(abs)
	if err != nil {
		return nil, err
	}
	entries, err := h.listDirRecords(parent)
	if err != nil {
		return nil, err
	}
	rec, ok := entries[base]
	if !ok {
		return nil, &PermanentError{Op: "lstat", Message: fmt.Sprintf("%s: no such file or directory", abs), Err: ErrItemNotFound}
	}
	return rec, nil
}

func (h *Host) stat(p string) (*listparse.Record, error) {
	_, rec, err := h.resolve(p)
	return rec, err
}

// resolve is Stat's engine, additionally returning the absolute path of
// the final, non-symlink node, so Listdir can list the directory a
// symlink resolves to rather than re-listing the link's own parent.
func (h *Host) resolve(p string) (finalAbs string, rec *listparse.Record, err error) {
	abs, err := h.absPath(p)
	if err != nil {
		return "", nil, err
	}
	visited := make(map[string]bool, maxSymlinkHops)
	current := abs
	for hop := 0; ; hop++ {
		if hop >= maxSymlinkHops || visited[current] {
			return "", nil, &PermanentError{Op: "stat", Message: "symbolic link chain too deep or cyclic", Err: ErrRecursiveLink}
		}
		visited[current] = true
		rec, err := h.lstat(current)
		if err != nil {
			return "", nil, err
		}
		if !rec.IsSymlink() {
			return current, rec, nil
		}
		current, err = h.resolveSymlinkTarget(current, rec.Target)
		if err != nil {
			return "", nil, err
		}
	}
}

// resolveSymlinkTarget resolves a symlink's Target field against the
// directory containing the link itself, per spec §4.4 "relative
// targets resolve against the containing directory".
func (h *Host) resolveSymlinkTarget(linkAbs, target string) (string, error) {
	if target == "" {
		return "", &PermanentError{Op: "stat", Message: "empty symlink target", Err: ErrItemNotFound}
	}
	if target[0] == '/' {
		return ftppath.Clean(target), nil
	}
	parent, _, err := h.splitAbs(linkAbs)
	if err != nil {
		return "", err
	}
	joined, err := ftppath.Join(parent, target)
	if err != nil {
		return "", err
	}
	return joined.(string), nil
}

func (h *Host) listdir(p string) ([]string, error) {
	target, rec, err := h.resolve(p)
	if err != nil {
		return nil, err
	}
	if !rec.IsDir() {
		return nil, &PermanentError{Op: "listdir", Message: fmt.Sprintf("%s: not a directory", target)}
	}
	entries, err := h.listDirRecords(target)
	if err != nil {
		return nil, err
	}
	return sortedNames(entries), nil
}

// listDirRecords lists dirAbs via the primary session and the current
// (or newly autodetected) parser, caches every child under
// dirAbs+"/"+name, and returns them keyed by base name (spec §4.4
// step 4: "populate the cache with every entry of that parent").
func (h *Host) listDirRecords(dirAbs string) (map[string]*listparse.Record, error) {
	var lines []string
	err := h.primary.Dir(dirAbs, h.useListA, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		return nil, classify("listdir", err)
	}
	if err := h.ensureParser(lines); err != nil {
		return nil, err
	}

	entries := make(map[string]*listparse.Record)
	if h.parser == nil {
		// Nothing in lines was informative enough to detect a format
		// from (typically an empty directory); there's nothing to
		// parse either. Leave the parser undetected for next time.
		return entries, nil
	}
	for _, line := range lines {
		if h.parser.IgnoresLine(line) {
			continue
		}
		rec, err := h.parser.ParseLine(line, h.timeShift, h.now())
		if err != nil {
			return nil, &PermanentError{Op: "listdir", Message: err.Error(), Err: ErrParserFailure}
		}
		entries[rec.Name] = rec
	}

	h.cache.EnsureCapacity(len(entries))
	for name, rec := range entries {
		key, err := ftppath.Join(dirAbs, name)
		if err != nil {
			continue
		}
		h.cache.Put(key.(string), rec)
	}
	return entries, nil
}

func (h *Host) absPath(p string) (string, error) {
	v, err := ftppath.Abs(h.cwd, p)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (h *Host) splitAbs(abs string) (parent, base string, err error) {
	d, err := ftppath.Dir(abs)
	if err != nil {
		return "", "", err
	}
	b, err := ftppath.Base(abs)
	if err != nil {
		return "", "", err
	}
	return d.(string), b.(string), nil
}

// invalidate removes abs (already normalized) from the stat cache, the
// shared effect of every mutating operation (spec §4.4 "cache
// invalidation").
func (h *Host) invalidate(p string) {
	abs, err := h.absPath(p)
	if err != nil {
		return
	}
	h.cache.Invalidate(abs)
}
