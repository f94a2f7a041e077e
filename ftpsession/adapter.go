// Package ftpsession implements ftputil.Session on top of
// github.com/jlaffaye/ftp, the wire-level FTP client the rest of this
// pack's FTP-touching code (backend/ftp/ftp.go, nabbar-golib's
// ftpclient) is built on.
//
// jlaffaye/ftp's public surface returns pre-parsed *ftp.Entry values
// from List rather than raw LIST text, which would bypass ftputil's
// pluggable listparse.Parser framework entirely if used directly. This
// adapter resynthesizes each Entry back into a canonical Unix ls -l
// line instead, so the configured Parser still does the real parsing
// work and autodetection still applies; see entryToUnixLine and
// DESIGN.md's "Default session adapter" entry for the fidelity this loses
// (jlaffaye/ftp's Entry carries no permission bits, owner, or group, so
// those fields are synthesized placeholders on every resynthesized
// line).
package ftpsession

import (
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/sschwarzer/ftputil"
)

// Adapter wraps one *ftp.ServerConn as an ftputil.Session.
type Adapter struct {
	conn     *ftp.ServerConn
	encoding string
}

// NewFactory returns an ftputil.SessionFactory that dials addr, logs in
// as user/password, and wraps the resulting connection as an Adapter
// reporting encodingName as its declared path encoding (spec §3: "if
// the session offers an encoding attribute, it takes precedence").
// Extra dial options (timeouts, TLS, EPSV behavior, ...) are passed
// through to ftp.Dial unchanged.
func NewFactory(addr, user, password, encodingName string, dialOpts ...ftp.DialOption) ftputil.SessionFactory {
	return func() (ftputil.Session, error) {
		conn, err := ftp.Dial(addr, dialOpts...)
		if err != nil {
			return nil, fmt.Errorf("ftpsession: dial %s: %w", addr, err)
		}
		if err := conn.Login(user, password); err != nil {
			_ = conn.Quit()
			return nil, fmt.Errorf("ftpsession: login: %w", err)
		}
		return &Adapter{conn: conn, encoding: encodingName}, nil
	}
}

func (a *Adapter) PWD() (string, error) {
	dir, err := a.conn.CurrentDir()
	return dir, translate(err)
}
func (a *Adapter) CWD(path string) error        { return translate(a.conn.ChangeDir(path)) }
func (a *Adapter) MKD(path string) error        { return translate(a.conn.MakeDir(path)) }
func (a *Adapter) RMD(path string) error        { return translate(a.conn.RemoveDir(path)) }
func (a *Adapter) DELE(path string) error       { return translate(a.conn.Delete(path)) }
func (a *Adapter) Rename(src, dst string) error { return translate(a.conn.Rename(src, dst)) }
func (a *Adapter) Close() error                 { return translate(a.conn.Quit()) }
func (a *Adapter) Encoding() string             { return a.encoding }

// statusError makes a server reply's numeric status code available
// through ftputil.StatusCoder. jlaffaye/ftp itself returns a bare
// *textproto.Error for a failed reply, which carries the code but
// doesn't implement StatusCoder, so ftputil's classify would never see
// it without this translation (grounded on backend/ftp/ftp.go's
// textprotoError).
type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string   { return e.err.Error() }
func (e *statusError) Unwrap() error   { return e.err }
func (e *statusError) StatusCode() int { return e.code }

// translate wraps err so ftputil.classify can read its reply code, if
// it has one. A nil err, or one with no *textproto.Error in its chain
// (a socket error, a context cancellation, ...), passes through
// unchanged; ftputil classifies those as Temporary with no code.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return &statusError{code: tpErr.Code, err: err}
	}
	return err
}

// VoidCmd sends a command that expects a single-line reply. jlaffaye/ftp
// exposes no generic raw-command facility (every command it supports
// has its own typed method), so there is no way for this adapter to
// forward an arbitrary command like "SITE CHMOD" to the wire. It
// reports the same error a server would for a command it doesn't
// recognize, which is also the behavior spec §4.7's Chmod expects when
// the server has no SITE CHMOD support.
func (a *Adapter) VoidCmd(cmd string) error {
	return &ftputil.PermanentError{
		Code:    502,
		Message: fmt.Sprintf("command not supported by this session adapter: %s", cmd),
		Op:      "VoidCmd",
		Err:     ftputil.ErrCommandNotImplemented,
	}
}

// VoidResp is a no-op here: this adapter's DataConn.Close (see
// retrConn/storConn below) already drains the transfer's final reply
// as part of closing the data connection, which is how
// *ftp.Response.Close and ftp.ServerConn.StorFrom work. A Session
// backed by a lower-level library that exposes a bare socket would
// implement VoidResp for real.
func (a *Adapter) VoidResp() error { return nil }

// Dir executes a LIST-equivalent and resynthesizes each parsed entry
// into a line cb's caller's configured listparse.Parser can parse.
// listAll is honored best-effort: jlaffaye/ftp's List already includes
// dotfiles when the server's LIST does, with no separate toggle.
func (a *Adapter) Dir(path string, listAll bool, cb ftputil.LineCallback) error {
	entries, err := a.conn.List(path)
	if err != nil {
		return translate(err)
	}
	for _, e := range entries {
		if !listAll && strings.HasPrefix(e.Name, ".") {
			continue
		}
		cb(entryToUnixLine(e))
	}
	return nil
}

// TransferCmd issues a data-channel transfer for cmd, one of
// "RETR <name>" or "STOR <name>", optionally from byte offset rest.
func (a *Adapter) TransferCmd(cmd string, rest int64) (ftputil.DataConn, error) {
	switch {
	case strings.HasPrefix(cmd, "RETR "):
		name := strings.TrimPrefix(cmd, "RETR ")
		var resp *ftp.Response
		var err error
		if rest > 0 {
			resp, err = a.conn.RetrFrom(name, uint64(rest))
		} else {
			resp, err = a.conn.Retr(name)
		}
		if err != nil {
			return nil, translate(err)
		}
		return &retrConn{resp: resp}, nil

	case strings.HasPrefix(cmd, "STOR "):
		name := strings.TrimPrefix(cmd, "STOR ")
		pr, pw := io.Pipe()
		sc := &storConn{pw: pw, done: make(chan error, 1)}
		go func() {
			var err error
			if rest > 0 {
				err = a.conn.StorFrom(name, pr, uint64(rest))
			} else {
				err = a.conn.Stor(name, pr)
			}
			_ = pr.CloseWithError(err)
			sc.done <- translate(err)
		}()
		return sc, nil

	default:
		return nil, fmt.Errorf("ftpsession: unsupported transfer command %q", cmd)
	}
}

// retrConn adapts *ftp.Response (the RETR/RETR-FROM data stream) to
// ftputil.DataConn. Writes are not supported in this direction.
type retrConn struct {
	resp *ftp.Response
}

func (c *retrConn) Read(p []byte) (int, error) {
	n, err := c.resp.Read(p)
	if err != nil && err != io.EOF {
		err = translate(err)
	}
	return n, err
}

func (c *retrConn) Write([]byte) (int, error) {
	return 0, fmt.Errorf("ftpsession: data connection is read-only")
}

func (c *retrConn) Close() error { return translate(c.resp.Close()) }

// storConn bridges jlaffaye/ftp's synchronous Stor/StorFrom (which
// takes a whole io.Reader and blocks until the upload completes) to
// ftputil.DataConn's incremental Write/Close contract, via an io.Pipe:
// writes to storConn feed the pipe, which the background goroutine
// calling Stor/StorFrom reads from; Close closes the write end and
// waits for that goroutine to report the transfer's outcome.
type storConn struct {
	pw   *io.PipeWriter
	done chan error
}

func (c *storConn) Read([]byte) (int, error) {
	return 0, fmt.Errorf("ftpsession: data connection is write-only")
}

func (c *storConn) Write(p []byte) (int, error) { return c.pw.Write(p) }

// Close closes the write end and waits for the background Stor/StorFrom
// call to finish. done already carries a translated error (see
// TransferCmd's STOR branch above), so no translate call is needed here.
func (c *storConn) Close() error {
	if err := c.pw.Close(); err != nil {
		return err
	}
	return <-c.done
}

// entryToUnixLine renders a parsed *ftp.Entry back into a line the
// bundled Unix listing parser (listparse.UnixParser) can parse.
// jlaffaye/ftp's Entry carries no permission bits, owner, or group, so
// those fields are synthesized: full rwx for directories and symlinks,
// rw-r--r-- for regular files, owner/group both "ftp". e.Name already
// includes " -> target" for a symlink entry (jlaffaye/ftp keeps that
// embedded in Name rather than a separate field), which round-trips
// correctly through UnixParser's own symlink-name split.
func entryToUnixLine(e *ftp.Entry) string {
	var typeChar byte
	var perm string
	switch e.Type {
	case ftp.EntryTypeFolder:
		typeChar = 'd'
		perm = "rwxr-xr-x"
	case ftp.EntryTypeLink:
		typeChar = 'l'
		perm = "rwxrwxrwx"
	default:
		typeChar = '-'
		perm = "rw-r--r--"
	}

	var timeOrYear string
	if e.Time.Year() == time.Now().Year() {
		timeOrYear = e.Time.Format("15:04")
	} else {
		timeOrYear = e.Time.Format("2006")
	}

	return fmt.Sprintf("%c%s 1 ftp ftp %d %s %2d %s %s",
		typeChar, perm, e.Size, e.Time.Format("Jan"), e.Time.Day(), timeOrYear, e.Name)
}
