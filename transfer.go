package ftputil

import (
	"io"
	"os"
	"time"
)

// TransferCallback is invoked periodically during Upload/Download with
// the cumulative byte count transferred so far.
type TransferCallback func(written int64)

// Upload copies the local file at localPath to remotePath in binary
// mode (spec §4.8 "upload"), invoking cb (if non-nil) as bytes are
// written.
func (h *Host) Upload(localPath string, remotePath any, cb TransferCallback) error {
	local, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer local.Close()

	remote, err := h.Open(remotePath, "wb")
	if err != nil {
		return err
	}
	return copyAndClose(remote, local, cb)
}

// Download copies remotePath to the local file at localPath in binary
// mode (spec §4.8 "download"), invoking cb (if non-nil) as bytes are
// read.
func (h *Host) Download(remotePath any, localPath string, cb TransferCallback) error {
	remote, err := h.Open(remotePath, "rb")
	if err != nil {
		return err
	}
	defer remote.Close()

	local, err := os.Create(localPath)
	if err != nil {
		return err
	}

	w := &countingWriter{w: local, cb: cb}
	_, copyErr := io.Copy(w, remote)
	closeErr := local.Close()
	if copyErr != nil {
		return copyErr
	}
	return closeErr
}

// UploadIfNewer uploads localPath to remotePath only if localPath's
// mtime is newer than remotePath's, per the conditional transfer
// algorithm of spec §4.8; it returns whether data was transferred.
// Requires a previously established time shift (via SetTimeShift or
// SynchronizeTimes); otherwise it fails with ErrTimeShift, since the
// mtime comparison would be meaningless without one.
func (h *Host) UploadIfNewer(localPath string, remotePath any, cb TransferCallback) (bool, error) {
	if _, set := h.TimeShift(); !set {
		return false, &PermanentError{Op: "upload_if_newer", Message: "time shift has not been established", Err: ErrTimeShift}
	}
	localInfo, err := os.Stat(localPath)
	if err != nil {
		return false, err
	}

	transfer, err := h.shouldTransfer(localInfo.ModTime().UTC(), time.Second, remotePath)
	if err != nil {
		return false, err
	}
	if !transfer {
		return false, nil
	}
	if err := h.Upload(localPath, remotePath, cb); err != nil {
		return false, err
	}
	return true, nil
}

// DownloadIfNewer downloads remotePath to localPath only if
// remotePath's mtime is newer than localPath's (spec §4.8); it returns
// whether data was transferred. Requires a previously established time
// shift, as UploadIfNewer does.
func (h *Host) DownloadIfNewer(remotePath any, localPath string, cb TransferCallback) (bool, error) {
	if _, set := h.TimeShift(); !set {
		return false, &PermanentError{Op: "download_if_newer", Message: "time shift has not been established", Err: ErrTimeShift}
	}
	srcRec, err := h.Stat(remotePath)
	if err != nil {
		return false, err
	}
	srcPrecision := time.Duration(srcRec.MTimePrecision) * time.Second
	if srcPrecision <= 0 {
		srcPrecision = 60 * time.Second
	}

	localInfo, err := os.Stat(localPath)
	transfer := false
	switch {
	case err != nil && os.IsNotExist(err):
		transfer = true
	case err != nil:
		return false, err
	default:
		t := localInfo.ModTime().UTC()
		transfer = srcRec.MTime.Add(srcPrecision).After(t.Add(time.Second))
	}
	if !transfer {
		return false, nil
	}
	if err := h.Download(remotePath, localPath, cb); err != nil {
		return false, err
	}
	return true, nil
}

// shouldTransfer implements the conditional transfer decision of spec
// §4.8 step 4: transfer iff s + ps > t + pt, where s/ps describe the
// source (here always local, treated as 1-second precision) and t/pt
// the target's stat record (remote, absent meaning "transfer
// unconditionally"). Grounded on the worked numeric example in spec
// §8 scenario 4 rather than its prose restatement, which has the sign
// on pt flipped relative to that example (see DESIGN.md).
func (h *Host) shouldTransfer(s time.Time, ps time.Duration, remoteTarget any) (bool, error) {
	rec, err := h.Stat(remoteTarget)
	if err != nil {
		if isItemNotFound(err) {
			return true, nil
		}
		return false, err
	}
	pt := time.Duration(rec.MTimePrecision) * time.Second
	if pt <= 0 {
		pt = 60 * time.Second
	}
	return s.Add(ps).After(rec.MTime.Add(pt)), nil
}

type countingWriter struct {
	w  io.Writer
	n  int64
	cb TransferCallback
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	if c.cb != nil {
		c.cb(c.n)
	}
	return n, err
}

func copyAndClose(dst *RemoteFile, src io.Reader, cb TransferCallback) error {
	w := &countingWriter{w: dst, cb: cb}
	_, copyErr := io.Copy(w, src)
	closeErr := dst.Close()
	if copyErr != nil {
		return copyErr
	}
	return closeErr
}
