package ftputil

import "github.com/sschwarzer/ftputil/ftppath"

// Getcwd returns the host's current remote working directory, an
// absolute, normalized path (spec §4.7).
func (h *Host) Getcwd() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return "", err
	}
	return h.cwd, nil
}

// Chdir changes the host's current remote working directory, issuing
// CWD on the primary session (spec §4.9: "the primary session's state
// (CWD) is shared; chdir persists until the next chdir or close").
func (h *Host) Chdir(path any) error {
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
	if err := h.primary.CWD(abs); err != nil {
		return classify("chdir", err)
	}
	newCwd, err := h.primary.PWD()
	if err != nil {
		return classify("chdir", err)
	}
	h.cwd = newCwd
	return nil
}
