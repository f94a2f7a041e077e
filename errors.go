package ftputil

import (
	"errors"
	"fmt"

	"github.com/sschwarzer/ftputil/ftppath"
)

// Sentinel errors for the "Internal" branch of the error taxonomy
// (spec §7). Compare against these with errors.Is.
var (
	// ErrRootDir is returned when a caller tries to stat "/" itself.
	ErrRootDir = errors.New("ftputil: cannot stat the root directory")

	// ErrNoEncoding is wrapped into the error Open returns for a text-mode
	// encoding name it does not support. Byte paths are handed to the
	// session as their raw bytes and the session's declared encoding is
	// never checked, so no path operation returns it.
	ErrNoEncoding = errors.New("ftputil: session has no declared path encoding")

	// ErrParserFailure is returned when the active listing parser could
	// not interpret a non-ignored line.
	ErrParserFailure = errors.New("ftputil: directory listing parser failure")

	// ErrTimeShift is returned for an out-of-range SetTimeShift call, for
	// a conditional transfer attempted before any time shift has been
	// established, or when SynchronizeTimes fails.
	ErrTimeShift = errors.New("ftputil: invalid or unestablished time shift")

	// ErrRecursiveLink is returned when a symlink chain exceeds the hop
	// limit or revisits a node.
	ErrRecursiveLink = errors.New("ftputil: symbolic link chain too deep or cyclic")

	// ErrTypeMismatch is returned when a single call mixes text and byte
	// paths. It is the same sentinel ftppath uses internally.
	ErrTypeMismatch = ftppath.ErrTypeMismatch

	// ErrInaccessibleLoginDir names the case where the host cannot cwd
	// back into the directory the session logged into. The Host never
	// changes back into the login directory, so no operation of this
	// package returns it.
	ErrInaccessibleLoginDir = errors.New("ftputil: cannot change into the login directory")

	// ErrItemNotFound is returned by lstat/stat/listdir for a path that
	// does not exist in its parent's listing.
	ErrItemNotFound = errors.New("ftputil: item not found")

	// ErrCommandNotImplemented is a specific Permanent error: the server
	// replied 502 to a command (typically SITE CHMOD).
	ErrCommandNotImplemented = errors.New("ftputil: command not implemented by server")

	// ErrClosed is returned by any operation on a Host that has already
	// been closed.
	ErrClosed = errors.New("ftputil: host is already closed")
)

// StatusCoder is implemented by errors returned from a [Session] that carry
// a numeric FTP reply status code. The host uses it to classify a session
// error as Permanent (5xx) or Temporary (4xx); an error that does not
// implement it (e.g. a raw socket error) is classified Temporary, per spec
// §7.
type StatusCoder interface {
	StatusCode() int
}

// PermanentError reports a 5xx FTP reply.
type PermanentError struct {
	Code    int
	Message string
	Op      string
	Err     error
}

func (e *PermanentError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("ftputil: %s: permanent error %d: %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("ftputil: permanent error %d: %s", e.Code, e.Message)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// StatusCode implements StatusCoder.
func (e *PermanentError) StatusCode() int { return e.Code }

// Is lets errors.Is(err, ErrCommandNotImplemented) and
// errors.Is(err, ErrItemNotFound) match the appropriate PermanentError
// codes, implementing the taxonomy's Permanent -> {CommandNotImplemented,
// ItemNotFound} subtyping (spec §7) without a class hierarchy.
func (e *PermanentError) Is(target error) bool {
	switch target {
	case ErrCommandNotImplemented:
		return e.Code == 502
	case ErrItemNotFound:
		return isNotFoundCode(e.Code)
	}
	return false
}

// TemporaryError reports a 4xx FTP reply, or a session error with no
// status code at all (mapped here per spec §7: "if no status is available
// ... they map to Temporary").
type TemporaryError struct {
	Code    int // 0 if the underlying error carried no status code
	Message string
	Op      string
	Err     error
}

func (e *TemporaryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("ftputil: %s: temporary error %d: %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("ftputil: temporary error %d: %s", e.Code, e.Message)
}

func (e *TemporaryError) Unwrap() error { return e.Err }

// StatusCode implements StatusCoder.
func (e *TemporaryError) StatusCode() int { return e.Code }

func isNotFoundCode(code int) bool {
	switch code {
	case 450, 550, 551:
		return true
	}
	return false
}

// classify turns a raw error returned from a Session method into a
// *PermanentError or *TemporaryError, grounded on backend/ftp/ftp.go's
// textprotoError/translateErrorFile pattern but generalized to any
// StatusCoder rather than specifically net/textproto.Error.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		code := sc.StatusCode()
		switch {
		case code >= 500:
			return &PermanentError{Code: code, Message: err.Error(), Op: op, Err: err}
		case code >= 400:
			return &TemporaryError{Code: code, Message: err.Error(), Op: op, Err: err}
		}
	}
	return &TemporaryError{Code: 0, Message: err.Error(), Op: op, Err: err}
}
