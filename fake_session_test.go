package ftputil

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
)

// fakeFile is one entry in a fakeServer's in-memory filesystem.
type fakeFile struct {
	dir     bool
	content []byte
	listing string // pre-rendered LIST line for this entry, as seen from its parent
}

// fakeServer is a minimal, in-process stand-in for an FTP server,
// shared by a fakeSession's primary and every child session dialed
// from the same factory, the way a real server's files are shared
// across every connection to it.
type fakeServer struct {
	mu    sync.Mutex
	files map[string]*fakeFile // absolute path -> file
	dials int

	// failNextVoidCmd, when non-empty, makes the next VoidCmd call on
	// any session fail with this message instead of succeeding.
	failNextVoidCmd string
}

// unixLine renders a canonical "ls -l" line for name, recognizable by
// listparse.UnixParser, using a fixed recent-looking timestamp so
// autodetection always succeeds regardless of wall-clock time.
func unixLine(typeChar byte, size int64, name string) string {
	perm := "rw-r--r--"
	switch typeChar {
	case 'd':
		perm = "rwxr-xr-x"
	case 'l':
		perm = "rwxrwxrwx"
	}
	return fmt.Sprintf("%c%s 1 user group %d Jan 01 00:00 %s", typeChar, perm, size, name)
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		files: map[string]*fakeFile{
			"/": {dir: true},
		},
	}
}

func (s *fakeServer) addDir(path, listing string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = &fakeFile{dir: true, listing: listing}
}

func (s *fakeServer) addFile(path, listing string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = &fakeFile{content: content, listing: listing}
}

func (s *fakeServer) addSymlink(path, listing string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = &fakeFile{listing: listing}
}

// fakeSession is an ftputil.Session backed by a shared fakeServer. It
// is deliberately simplistic: Dir lists every file whose parent
// (computed by plain string prefix) equals the requested path.
type fakeSession struct {
	server   *fakeServer
	cwd      string
	closed   bool
	encoding string
}

func newFakeSessionFactory(s *fakeServer) SessionFactory {
	return func() (Session, error) {
		s.mu.Lock()
		s.dials++
		s.mu.Unlock()
		return &fakeSession{server: s, cwd: "/"}, nil
	}
}

func (f *fakeSession) PWD() (string, error) { return f.cwd, nil }

func (f *fakeSession) CWD(path string) error {
	f.server.mu.Lock()
	defer f.server.mu.Unlock()
	file, ok := f.server.files[path]
	if !ok || !file.dir {
		return fmt.Errorf("fake: %s: no such directory", path)
	}
	f.cwd = path
	return nil
}

func (f *fakeSession) MKD(path string) error {
	f.server.mu.Lock()
	defer f.server.mu.Unlock()
	if _, exists := f.server.files[path]; exists {
		return fmt.Errorf("fake: %s: already exists", path)
	}
	// Synthesize a listing line so the new directory is visible to a
	// subsequent Dir/lstat, as STOR does for a stored file.
	name := path[strings.LastIndex(path, "/")+1:]
	f.server.files[path] = &fakeFile{dir: true, listing: unixLine('d', 4096, name)}
	return nil
}

func (f *fakeSession) RMD(path string) error {
	f.server.mu.Lock()
	defer f.server.mu.Unlock()
	file, ok := f.server.files[path]
	if !ok || !file.dir {
		return fmt.Errorf("fake: %s: no such directory", path)
	}
	delete(f.server.files, path)
	return nil
}

func (f *fakeSession) DELE(path string) error {
	f.server.mu.Lock()
	defer f.server.mu.Unlock()
	if _, ok := f.server.files[path]; !ok {
		return fmt.Errorf("fake: %s: no such file", path)
	}
	delete(f.server.files, path)
	return nil
}

func (f *fakeSession) Rename(src, dst string) error {
	f.server.mu.Lock()
	defer f.server.mu.Unlock()
	file, ok := f.server.files[src]
	if !ok {
		return fmt.Errorf("fake: %s: no such file", src)
	}
	// Re-render the listing line's name field (the ninth
	// space-separated field of a unixLine) under the new base name.
	if fields := strings.SplitN(file.listing, " ", 9); len(fields) == 9 {
		srcBase := src[strings.LastIndex(src, "/")+1:]
		dstBase := dst[strings.LastIndex(dst, "/")+1:]
		fields[8] = dstBase + strings.TrimPrefix(fields[8], srcBase)
		file.listing = strings.Join(fields, " ")
	}
	f.server.files[dst] = file
	delete(f.server.files, src)
	return nil
}

func (f *fakeSession) VoidCmd(cmd string) error {
	f.server.mu.Lock()
	defer f.server.mu.Unlock()
	if f.server.failNextVoidCmd != "" {
		msg := f.server.failNextVoidCmd
		f.server.failNextVoidCmd = ""
		return fmt.Errorf("fake: %s", msg)
	}
	return nil
}

func (f *fakeSession) VoidResp() error { return nil }

func (f *fakeSession) Dir(path string, listAll bool, cb LineCallback) error {
	f.server.mu.Lock()
	defer f.server.mu.Unlock()
	prefix := path
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	for abs, file := range f.server.files {
		if abs == path || file.listing == "" {
			continue
		}
		rest := strings.TrimPrefix(abs, prefix)
		if rest == abs || strings.Contains(rest, "/") {
			continue
		}
		if !listAll && strings.HasPrefix(rest, ".") {
			continue
		}
		cb(file.listing)
	}
	return nil
}

func (f *fakeSession) TransferCmd(cmd string, rest int64) (DataConn, error) {
	f.server.mu.Lock()
	defer f.server.mu.Unlock()

	switch {
	case strings.HasPrefix(cmd, "RETR "):
		name := strings.TrimPrefix(cmd, "RETR ")
		abs := f.joinLocked(name)
		file, ok := f.server.files[abs]
		if !ok || file.dir {
			return nil, fmt.Errorf("fake: %s: no such file", abs)
		}
		return &fakeDataConn{r: bytes.NewReader(file.content[rest:])}, nil

	case strings.HasPrefix(cmd, "STOR "):
		name := strings.TrimPrefix(cmd, "STOR ")
		abs := f.joinLocked(name)
		return &fakeDataConn{onClose: func(buf *bytes.Buffer) {
			f.server.mu.Lock()
			defer f.server.mu.Unlock()
			// Synthesize a listing line so the stored file is
			// immediately visible to a subsequent Dir/lstat, the way a
			// real server's LIST reflects a just-completed STOR.
			f.server.files[abs] = &fakeFile{
				content: buf.Bytes(),
				listing: unixLine('-', int64(buf.Len()), name),
			}
		}}, nil
	}
	return nil, fmt.Errorf("fake: unsupported transfer command %q", cmd)
}

// joinLocked assumes the caller already holds f.server.mu.
func (f *fakeSession) joinLocked(name string) string {
	if strings.HasPrefix(name, "/") {
		return name
	}
	if f.cwd == "/" {
		return "/" + name
	}
	return f.cwd + "/" + name
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func (f *fakeSession) Encoding() string { return f.encoding }

// fakeDataConn is a DataConn over an in-memory buffer: a reader for
// RETR, or a write-accumulating buffer (flushed to onClose) for STOR.
type fakeDataConn struct {
	r       *bytes.Reader
	w       bytes.Buffer
	onClose func(*bytes.Buffer)
	closed  bool
}

func (c *fakeDataConn) Read(p []byte) (int, error) {
	if c.r == nil {
		return 0, fmt.Errorf("fake: data connection is write-only")
	}
	return c.r.Read(p)
}

func (c *fakeDataConn) Write(p []byte) (int, error) {
	if c.onClose == nil {
		return 0, fmt.Errorf("fake: data connection is read-only")
	}
	return c.w.Write(p)
}

func (c *fakeDataConn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.onClose != nil {
		c.onClose(&c.w)
	}
	return nil
}

var _ io.ReadWriteCloser = (*fakeDataConn)(nil)
