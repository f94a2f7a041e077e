// Package ftputil presents a remote FTP server as a virtual filesystem.
//
// It sits on top of a low-level FTP session (see [Session]) and exposes a
// filesystem-like facade modeled after the local filesystem API: path
// manipulation ([github.com/sschwarzer/ftputil/ftppath]), directory
// iteration, stat, file open/read/write, tree walk, upload/download between
// local and remote files, remove, chmod and rename. There is no
// remote-to-remote copy. The library does not speak the FTP wire protocol
// itself — callers supply a [SessionFactory], typically one built by
// [github.com/sschwarzer/ftputil/ftpsession.NewFactory].
//
// A [Host] is not safe for concurrent use by more than one goroutine; use
// one Host per goroutine, each with its own session factory.
package ftputil
