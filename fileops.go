package ftputil

import (
	"fmt"

	"github.com/sschwarzer/ftputil/ftppath"
)

// Remove deletes a single remote file (spec §4.8 "remove"/"unlink").
func (h *Host) Remove(path any) error {
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
	if err := h.primary.DELE(abs); err != nil {
		return classify("remove", err)
	}
	h.invalidate(abs)
	return nil
}

// Unlink is an alias for Remove, matching the POSIX-filesystem-API
// naming this library's surface is modeled on.
func (h *Host) Unlink(path any) error { return h.Remove(path) }

// Rename renames/moves src to dst via RNFR/RNTO (spec §4.8 "rename").
// Both cache entries are invalidated.
func (h *Host) Rename(src, dst any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return err
	}
	srcS, err := ftppath.ToString(src)
	if err != nil {
		return err
	}
	dstS, err := ftppath.ToString(dst)
	if err != nil {
		return err
	}
	srcAbs, err := h.absPath(srcS)
	if err != nil {
		return err
	}
	dstAbs, err := h.absPath(dstS)
	if err != nil {
		return err
	}
	if err := h.primary.Rename(srcAbs, dstAbs); err != nil {
		return classify("rename", err)
	}
	h.invalidate(srcAbs)
	h.invalidate(dstAbs)
	return nil
}

// Chmod changes path's permission bits via "SITE CHMOD mode path" (spec
// §4.8 "chmod"). mode is interpreted as a POSIX permission value, e.g.
// 0o755. A 502 reply (command not recognized) is reported as
// ErrCommandNotImplemented, a Permanent subtype.
func (h *Host) Chmod(path any, mode uint32) error {
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
	cmd := fmt.Sprintf("SITE CHMOD %o %s", mode&0o7777, abs)
	if err := h.primary.VoidCmd(cmd); err != nil {
		return classify("chmod", err)
	}
	h.invalidate(abs)
	return nil
}
