package ftputil

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sschwarzer/ftputil/ftppath"
)

// statusAboutToSend, statusFileUnavailable and statusTransferAborted are
// the three reply codes backend/ftp/ftp.go's ftpReadCloser.Close masks
// as success after a completed transfer (some servers, e.g. pure-ftpd,
// reply with one of these instead of 226); see spec §4.7 "the narrow
// 'transfer complete with delayed 226' case".
const (
	statusAboutToSend      = 150
	statusFileUnavailable  = 450
	statusTransferAborted  = 426
	statusTransferComplete = 226
)

// openConfig collects Open's optional parameters (spec §4.7).
type openConfig struct {
	rest        int64
	encodingSet bool
	encoding    string
	errors      string // "strict" or "replace", mirroring the standard file-open contract
}

func defaultOpenConfig() openConfig {
	return openConfig{errors: "strict"}
}

// OpenOption configures a call to Host.Open.
type OpenOption func(*openConfig)

// WithRest pre-positions the transfer at byte offset rest (spec §4.7
// "rest (non-negative integer) pre-positions the transfer").
func WithRest(rest int64) OpenOption {
	return func(c *openConfig) { c.rest = rest }
}

// WithEncoding sets the text-mode codec (default latin-1). Using it on
// a binary-mode Open is an error.
func WithEncoding(name string) OpenOption {
	return func(c *openConfig) { c.encoding = name; c.encodingSet = true }
}

// WithErrors sets the text-mode encode error policy: "strict" (the
// default) or "replace". It only affects writing; decoding always uses
// the codec's own behavior.
func WithErrors(policy string) OpenOption {
	return func(c *openConfig) { c.errors = policy }
}

// RemoteFile is a file-like stream over a data-channel transfer on a
// borrowed child session (spec §4.7), grounded on backend/ftp/ftp.go's
// ftpReadCloser but generalized to both directions and to text mode.
type RemoteFile struct {
	host    *Host
	session Session
	conn    DataConn
	absPath string
	writing bool

	textMode bool
	enc      encoding.Encoding
	textR    io.Reader
	textW    io.WriteCloser

	closed  bool
	readErr error
}

func baseEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", "latin-1", "latin1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1, nil
	case "utf-8", "utf8":
		return unicode.UTF8, nil
	case "ascii", "us-ascii":
		return charmap.ISO8859_1, nil // supports the ASCII range identically
	default:
		return nil, fmt.Errorf("ftputil: unsupported text encoding %q: %w", name, ErrNoEncoding)
	}
}

// resolveEncoding resolves name to a codec and applies errPolicy, one of
// "strict" (the codec's own decode/encode error behavior) or "replace"
// (characters the codec can't represent on encode are substituted with
// the codec's own replacement character rather than failing the write,
// mirroring the standard file-open contract's errors="replace").
func resolveEncoding(name, errPolicy string) (encoding.Encoding, error) {
	enc, err := baseEncoding(name)
	if err != nil {
		return nil, err
	}
	switch errPolicy {
	case "strict":
		return enc, nil
	case "replace":
		return encoding.ReplaceUnsupported(enc), nil
	default:
		return nil, fmt.Errorf("ftputil: unsupported error policy %q (want \"strict\" or \"replace\")", errPolicy)
	}
}

// Open returns a stream over path. mode is one of "rb"/"wb" (binary) or
// "r"/"w" (text); binary mode forbids WithEncoding (spec §4.7).
func (h *Host) Open(path any, mode string, opts ...OpenOption) (*RemoteFile, error) {
	h.mu.Lock()
	if err := h.checkOpen(); err != nil {
		h.mu.Unlock()
		return nil, err
	}
	p, err := ftppath.ToString(path)
	if err != nil {
		h.mu.Unlock()
		return nil, err
	}
	abs, err := h.absPath(p)
	if err != nil {
		h.mu.Unlock()
		return nil, err
	}
	parent, base, err := h.splitAbs(abs)
	h.mu.Unlock()
	if err != nil {
		return nil, err
	}

	reading, binary, err := parseOpenMode(mode)
	if err != nil {
		return nil, err
	}
	cfg := defaultOpenConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if binary && cfg.encodingSet {
		return nil, &PermanentError{Op: "open", Message: "binary mode forbids an encoding override"}
	}

	sess, err := h.pool.acquire()
	if err != nil {
		return nil, classify("open", err)
	}

	if err := sess.CWD(parent); err != nil {
		classified := classify("open", err)
		h.pool.release(sess, err)
		return nil, classified
	}

	var cmd string
	if reading {
		cmd = "RETR " + base
	} else {
		cmd = "STOR " + base
	}
	conn, err := sess.TransferCmd(cmd, cfg.rest)
	if err != nil {
		classified := classify("open", err)
		h.pool.release(sess, err)
		return nil, classified
	}

	rf := &RemoteFile{
		host:     h,
		session:  sess,
		conn:     conn,
		absPath:  abs,
		writing:  !reading,
		textMode: !binary,
	}
	if rf.textMode {
		enc, err := resolveEncoding(cfg.encoding, cfg.errors)
		if err != nil {
			_ = conn.Close()
			h.pool.release(sess, err)
			return nil, err
		}
		rf.enc = enc
	}
	return rf, nil
}

func parseOpenMode(mode string) (reading, binary bool, err error) {
	switch mode {
	case "r":
		return true, false, nil
	case "rb":
		return true, true, nil
	case "w":
		return false, false, nil
	case "wb":
		return false, true, nil
	default:
		return false, false, fmt.Errorf("ftputil: unsupported open mode %q", mode)
	}
}

// Read implements io.Reader. Valid only on a stream opened for reading.
func (f *RemoteFile) Read(p []byte) (int, error) {
	if f.writing {
		return 0, errors.New("ftputil: stream is open for writing, not reading")
	}
	if f.textMode {
		if f.textR == nil {
			f.textR = transform.NewReader(f.conn, f.enc.NewDecoder())
		}
		n, err := f.textR.Read(p)
		f.noteErr(err)
		return n, err
	}
	n, err := f.conn.Read(p)
	f.noteErr(err)
	return n, err
}

// Write implements io.Writer. Valid only on a stream opened for
// writing.
func (f *RemoteFile) Write(p []byte) (int, error) {
	if !f.writing {
		return 0, errors.New("ftputil: stream is open for reading, not writing")
	}
	if f.textMode {
		if f.textW == nil {
			f.textW = transform.NewWriter(f.conn, f.enc.NewEncoder())
		}
		n, err := f.textW.Write(p)
		f.noteErr(err)
		return n, err
	}
	n, err := f.conn.Write(p)
	f.noteErr(err)
	return n, err
}

func (f *RemoteFile) noteErr(err error) {
	if err != nil && err != io.EOF {
		f.readErr = err
	}
}

// Close flushes any buffered text-mode output, closes the data
// connection, reads the transfer's completion reply, and releases the
// borrowed session back to the pool (spec §4.7). A completion reply in
// the narrow "transfer complete with delayed 226" class is masked as
// success; any other failure marks the session dead so the pool
// discards rather than reuses it.
func (f *RemoteFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true

	if f.textMode && f.writing && f.textW != nil {
		if err := f.textW.Close(); err != nil {
			f.noteErr(err)
		}
	}

	// Different Session implementations surface the transfer's
	// completion reply on either the data connection's Close (e.g. a
	// backend whose Close reads the final status line itself) or on
	// VoidResp (e.g. one whose data socket is a bare net.Conn). Mask
	// the narrow "delayed 226" class from whichever of the two carries
	// it.
	connErr := maskDelayedCompletion(f.conn.Close())
	voidErr := maskDelayedCompletion(f.session.VoidResp())

	dead := f.readErr != nil || connErr != nil || voidErr != nil
	if !dead && f.writing {
		f.host.cache.Invalidate(f.absPath)
	}
	if dead {
		f.host.pool.release(f.session, errors.New("ftputil: stream error"))
	} else {
		f.host.pool.release(f.session, nil)
	}

	switch {
	case f.readErr != nil:
		return f.readErr
	case connErr != nil:
		return connErr
	default:
		return voidErr
	}
}

// maskDelayedCompletion classifies err and discards it if it falls in
// the "transfer complete with delayed 226" class (spec §4.7), grounded
// on backend/ftp/ftp.go's ftpReadCloser.Close masking
// StatusTransfertAborted/StatusFileUnavailable/StatusAboutToSend.
func maskDelayedCompletion(err error) error {
	if err == nil {
		return nil
	}
	var sc StatusCoder
	if errors.As(err, &sc) && isDelayedCompletion(sc.StatusCode()) {
		return nil
	}
	return classify("close", err)
}

func isDelayedCompletion(code int) bool {
	switch code {
	case statusTransferAborted, statusFileUnavailable, statusAboutToSend:
		return true
	}
	return false
}
