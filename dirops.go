package ftputil

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/sschwarzer/ftputil/ftppath"
)

// Mkdir creates a single directory (spec §4.8 "mkdir").
func (h *Host) Mkdir(path any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return err
	}
	p, err := ftppath.ToString(path)
	if err != nil {
		return err
	}
	abs, err := h.absPath(p)
	if err != nil {
		return err
	}
	if err := h.primary.MKD(abs); err != nil {
		return classify("mkdir", err)
	}
	h.invalidate(abs)
	return nil
}

// Makedirs creates path and any missing parent directories (spec §4.8
// "makedirs"). If path already exists, failure is raised unless
// existOk is true; an intermediate path component that exists as a
// non-directory is always an error.
func (h *Host) Makedirs(path any, existOk bool) error {
	h.mu.Lock()
	if err := h.checkOpen(); err != nil {
		h.mu.Unlock()
		return err
	}
	p, err := ftppath.ToString(path)
	if err != nil {
		h.mu.Unlock()
		return err
	}
	abs, err := h.absPath(p)
	h.mu.Unlock()
	if err != nil {
		return err
	}

	components := splitComponents(abs)
	built := ""
	for i, c := range components {
		built += "/" + c
		isLast := i == len(components)-1

		h.mu.Lock()
		rec, statErr := h.lstat(built)
		h.mu.Unlock()

		switch {
		case statErr == nil && rec.IsDir():
			if isLast && !existOk {
				return &PermanentError{Op: "makedirs", Message: fmt.Sprintf("%s: already exists", built)}
			}
			continue
		case statErr == nil && !rec.IsDir():
			return &PermanentError{Op: "makedirs", Message: fmt.Sprintf("%s: exists and is not a directory", built)}
		case !isItemNotFound(statErr):
			return statErr
		}

		if err := h.Mkdir(built); err != nil {
			return err
		}
	}
	return nil
}

func splitComponents(abs string) []string {
	var out []string
	cur := ""
	for _, r := range abs {
		if r == '/' {
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

// Rmdir removes an empty directory (spec §4.8 "rmdir").
func (h *Host) Rmdir(path any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return err
	}
	p, err := ftppath.ToString(path)
	if err != nil {
		return err
	}
	abs, err := h.absPath(p)
	if err != nil {
		return err
	}
	if err := h.primary.RMD(abs); err != nil {
		return classify("rmdir", err)
	}
	h.invalidate(abs)
	return nil
}

// OnErrorFunc is called by Rmtree for each failed removal when
// ignoreErrors is false, mirroring shutil.rmtree's onerror hook (spec
// §4.8). If it returns a non-nil error, Rmtree stops and returns it;
// returning nil continues the walk.
type OnErrorFunc func(op string, path any, err error) error

// Rmtree recursively removes a directory tree (spec §4.8 "rmtree"):
// collect children, then, in sorted name order, recurse into each
// subdirectory or remove each other entry, and finally remove the
// now-empty directory itself. If ignoreErrors is true, every failure is
// swallowed. Otherwise, if onerror is non-nil, each failure is passed to
// it; onerror returning a non-nil error aborts the walk and that error
// is returned as is. If onerror is nil, the walk continues past each
// failure and all of them are returned together via go-multierror.
func (h *Host) Rmtree(path any, ignoreErrors bool, onerror OnErrorFunc) error {
	var errs *multierror.Error
	if err := h.rmtree(path, ignoreErrors, onerror, &errs); err != nil {
		return err
	}
	return errs.ErrorOrNil()
}

func (h *Host) rmtree(path any, ignoreErrors bool, onerror OnErrorFunc, errs **multierror.Error) error {
	report := func(op string, p any, err error) error {
		if ignoreErrors {
			return nil
		}
		if onerror != nil {
			if aborted := onerror(op, p, err); aborted != nil {
				return aborted
			}
			return nil
		}
		*errs = multierror.Append(*errs, err)
		return nil
	}

	rec, err := h.Lstat(path)
	if err != nil {
		return report("lstat", path, err)
	}
	if !rec.IsDir() {
		if err := h.Remove(path); err != nil {
			return report("remove", path, err)
		}
		return nil
	}

	names, err := h.Listdir(path)
	if err != nil {
		return report("listdir", path, err)
	}
	for _, name := range names {
		child, err := ftppath.Join(path, name)
		if err != nil {
			return report("join", path, err)
		}
		childRec, err := h.Lstat(child)
		if err != nil {
			if aborted := report("lstat", child, err); aborted != nil {
				return aborted
			}
			continue
		}
		if childRec.IsDir() && !childRec.IsSymlink() {
			if aborted := h.rmtree(child, ignoreErrors, onerror, errs); aborted != nil {
				return aborted
			}
		} else {
			if err := h.Remove(child); err != nil {
				if aborted := report("remove", child, err); aborted != nil {
					return aborted
				}
			}
		}
	}

	if err := h.Rmdir(path); err != nil {
		return report("rmdir", path, err)
	}
	return nil
}

// Walk traverses the directory tree rooted at top (spec §4.8 "walk"),
// calling visit once per directory with that directory's path, the
// names of its subdirectories, and the names of its other entries. If
// topdown is true, visit is called before descending into
// subdirectories (and visit may prune the walk by removing names from
// the dirs slice it returns before Walk continues); if false, it is
// called after. followlinks controls whether a symlink to a directory
// is traversed like a real directory.
func (h *Host) Walk(top any, topdown bool, followlinks bool, visit func(dir any, dirs, files []string) ([]string, error)) error {
	return h.walk(top, topdown, followlinks, visit)
}

func (h *Host) walk(dir any, topdown, followlinks bool, visit func(dir any, dirs, files []string) ([]string, error)) error {
	names, err := h.Listdir(dir)
	if err != nil {
		return err
	}

	var dirs, files []string
	for _, n := range names {
		nameStr, err := ftppath.ToString(n)
		if err != nil {
			return err
		}
		child, err := ftppath.Join(dir, n)
		if err != nil {
			return err
		}
		rec, err := h.Lstat(child)
		if err != nil {
			return err
		}
		isDir := rec.IsDir()
		if rec.IsSymlink() && followlinks {
			resolved, err := h.Stat(child)
			if err == nil {
				isDir = resolved.IsDir()
			} else if !isItemNotFound(err) {
				return err
			}
		}
		if isDir {
			dirs = append(dirs, nameStr)
		} else {
			files = append(files, nameStr)
		}
	}

	if topdown {
		keep, err := visit(dir, dirs, files)
		if err != nil {
			return err
		}
		dirs = keep
	}

	for _, d := range dirs {
		child, err := ftppath.Join(dir, d)
		if err != nil {
			return err
		}
		if err := h.walk(child, topdown, followlinks, visit); err != nil {
			return err
		}
	}

	if !topdown {
		if _, err := visit(dir, dirs, files); err != nil {
			return err
		}
	}

	return nil
}
