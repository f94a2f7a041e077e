package ftputil

import "io"

// DataConn is the byte-oriented, half-duplex socket-like object a
// TransferCmd returns: a reader for RETR, a writer for STOR/APPE. Spec
// §4.1.
type DataConn interface {
	io.Reader
	io.Writer
	io.Closer
}

// Session is the minimal contract the host needs from a low-level FTP
// client (spec §4.1). The host never speaks the wire protocol directly;
// it only calls Session methods.
//
// LineCallback receives one LIST output line at a time, in the session's
// declared Encoding.
type LineCallback func(line string)

type Session interface {
	// PWD returns the current remote working directory.
	PWD() (string, error)

	// CWD changes the current remote working directory.
	CWD(path string) error

	// MKD creates a directory.
	MKD(path string) error

	// RMD removes an empty directory.
	RMD(path string) error

	// DELE removes a file.
	DELE(path string) error

	// Rename performs RNFR src followed by RNTO dst.
	Rename(src, dst string) error

	// VoidCmd sends an arbitrary command that is expected to receive a
	// 2xx ("void") reply, e.g. "SITE CHMOD 644 name".
	VoidCmd(cmd string) error

	// VoidResp reads one pending reply without sending a command. Used
	// to consume the transfer-complete (226) reply after a data
	// connection has been closed.
	VoidResp() error

	// Dir issues a LIST command (LIST -a when listAll is true) against
	// path and delivers each output line to cb.
	Dir(path string, listAll bool, cb LineCallback) error

	// TransferCmd issues a data-channel command (e.g. "RETR name" or
	// "STOR name"), optionally restarting at byte offset rest, and
	// returns the data connection.
	TransferCmd(cmd string, rest int64) (DataConn, error)

	// Close tears down the control connection.
	Close() error

	// Encoding reports the path encoding this session uses on the wire,
	// or "" if the session declares none.
	Encoding() string
}

// SessionFactory produces a new Session using connection parameters the
// factory closes over (host, user, password, account, TLS config, ...). A
// Host calls it once for its primary session and again, lazily, for every
// child session its pool needs.
type SessionFactory func() (Session, error)
