package ftputil

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/sschwarzer/ftputil/listparse"
	"github.com/sschwarzer/ftputil/statcache"
)

// Host is the virtual-filesystem facade of spec §4.7: a primary control
// connection, a pool of child connections for file streams, a stat
// cache, and the current directory-listing parser, all owned
// exclusively by one Host. Grounded on backend/ftp/ftp.go's Fs type,
// which plays the analogous role of "one rclone backend instance, one
// dialed connection pool, one cache of directory state" there.
//
// Operations on a Host are strictly sequential (spec §4.9): a mutex
// serializes every method, matching the single in-flight command per
// control connection that real FTP servers require. Concurrent
// transfers are possible only via the child pool, which is why streams
// borrow their own session rather than sharing the primary one.
type Host struct {
	mu sync.Mutex

	factory SessionFactory
	primary Session
	pool    *pool
	cache   *statcache.Cache

	parser           listparse.Parser
	parserCandidates []listparse.Parser

	useListA        bool
	loginDir        string
	cwd             string
	poolConcurrency int
	poolIdleTimeout time.Duration

	timeShift    int64
	timeShiftSet bool

	logf func(format string, args ...any)
	now  func() time.Time

	closed bool
}

// Option configures a Host at construction time.
type Option func(*Host)

// WithUseListA makes directory listings issue "LIST -a" instead of
// "LIST", exposing dotfiles on servers that hide them otherwise.
func WithUseListA() Option {
	return func(h *Host) { h.useListA = true }
}

// WithParsers overrides the autodetection candidate list (default
// listparse.Builtin()), e.g. to add a site-specific format or to pin a
// single parser and skip autodetection.
func WithParsers(parsers ...listparse.Parser) Option {
	return func(h *Host) { h.parserCandidates = parsers }
}

// WithStatCache sets the stat cache's size limit (spec default 5000)
// and max age (spec default unlimited, expressed here as 0).
func WithStatCache(sizeLimit int, maxAge time.Duration) Option {
	return func(h *Host) { h.cache = statcache.New(sizeLimit, maxAge) }
}

// WithPoolConcurrency bounds the number of child sessions (and thus
// concurrent streams) the Host will dial at once. 0 (the default) means
// unlimited.
func WithPoolConcurrency(n int) Option {
	return func(h *Host) { h.poolConcurrency = n }
}

// WithPoolIdleTimeout closes idle child sessions after d of disuse. 0
// (the default) never drains idle sessions proactively.
func WithPoolIdleTimeout(d time.Duration) Option {
	return func(h *Host) { h.poolIdleTimeout = d }
}

// WithLogf installs a callback for the Host's diagnostic log lines. The
// only line logged is the child pool's report that it is closing idle
// child connections (on idle timeout or at Close). There is no default
// logger; by default the Host is silent, matching
// spec §2's ambient-logging policy (see SPEC_FULL.md, "Logging").
func WithLogf(logf func(format string, args ...any)) Option {
	return func(h *Host) { h.logf = logf }
}

// NewHost dials a primary session via factory, captures the login
// directory, installs an autodetected listing parser, and returns a
// connected Host (spec §4.7 "construction"). Close must be called when
// the Host is no longer needed.
func NewHost(factory SessionFactory, opts ...Option) (h *Host, err error) {
	h = &Host{
		factory:          factory,
		parserCandidates: listparse.Builtin(),
		cache:            statcache.New(0, 0),
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}

	h.primary, err = factory()
	if err != nil {
		return nil, fmt.Errorf("ftputil: dialing primary session: %w", err)
	}
	defer func() {
		if err != nil && h.primary != nil {
			_ = h.primary.Close()
		}
	}()

	cwd, err := h.primary.PWD()
	if err != nil {
		return nil, classify("NewHost", err)
	}
	h.loginDir = cwd
	h.cwd = cwd

	h.pool = newPool(factory, h.poolConcurrency, h.poolIdleTimeout, h.logf)

	if err := h.detectParser(); err != nil {
		return nil, err
	}

	return h, nil
}

// detectParser lists the login directory and runs autodetection over
// h.parserCandidates. An empty or entirely-ignored listing leaves the
// parser unset; it is detected lazily on the first listing that
// actually yields a non-ignored line (see stat.go's ensureParser).
func (h *Host) detectParser() error {
	var lines []string
	err := h.primary.Dir(h.cwd, h.useListA, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		return classify("NewHost", err)
	}
	if p := listparse.Detect(h.parserCandidates, lines, h.timeShift, h.now()); p != nil {
		h.parser = p
	}
	return nil
}

// Close closes the primary session and every pooled child session. A
// Host is unusable after Close; every further method fails with
// ErrClosed.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	primaryErr := h.primary.Close()
	poolErr := h.pool.drain()
	switch {
	case primaryErr != nil && poolErr != nil:
		return multierror.Append(classify("Close", primaryErr), poolErr)
	case primaryErr != nil:
		return classify("Close", primaryErr)
	}
	return poolErr
}

// KeepAlive issues a no-op PWD on the primary session, matching spec
// §4.9's "KeepAlive" supplement (the primary's idle-timeout defense).
// Child sessions are not touched; idle ones are only closed by the
// pool's idle-timeout drain, see pool.go.
func (h *Host) KeepAlive() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return err
	}
	_, err := h.primary.PWD()
	if err != nil {
		return classify("KeepAlive", err)
	}
	return nil
}

func (h *Host) checkOpen() error {
	if h.closed {
		return &PermanentError{Code: 0, Message: "host is already closed", Op: "", Err: ErrClosed}
	}
	return nil
}

// ensureParser lazily autodetects the parser, if it's still unset
// (spec §4.3: the default parser isn't known until the first listing
// yields a real, non-ignored line). lines is a listing already fetched
// by the caller, reused here rather than issuing a second LIST. An
// empty directory, or one where every line is ignored by every
// candidate, leaves the parser unset rather than failing; there's
// nothing yet to detect a format from (spec §4.4 step 5, §8).
func (h *Host) ensureParser(lines []string) error {
	if h.parser != nil {
		return nil
	}
	if !anyCandidateSeesContent(h.parserCandidates, lines) {
		return nil
	}
	p := listparse.Detect(h.parserCandidates, lines, h.timeShift, h.now())
	if p == nil {
		return &PermanentError{Op: "stat", Message: "no listing parser recognizes this server's format", Err: ErrParserFailure}
	}
	h.parser = p
	return nil
}

// anyCandidateSeesContent reports whether at least one line would not be
// ignored by at least one candidate parser, i.e. whether the listing
// carries anything to autodetect a format from.
func anyCandidateSeesContent(candidates []listparse.Parser, lines []string) bool {
	for _, line := range lines {
		for _, p := range candidates {
			if !p.IgnoresLine(line) {
				return true
			}
		}
	}
	return false
}

func sortedNames(entries map[string]*listparse.Record) []string {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
