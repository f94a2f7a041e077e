package ftputil

import (
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
)

// pool is the child-session pool of spec §4.6, grounded on
// backend/ftp/ftp.go's getFtpConnection/putFtpConnection/drainPool and
// its pacer.TokenDispenser concurrency limiter (reimplemented here as a
// buffered channel, since this module does not carry rclone's lib/pacer
// package; see DESIGN.md).
type pool struct {
	factory     SessionFactory
	idleTimeout time.Duration
	logf        func(format string, args ...any)

	mu     sync.Mutex
	idle   []Session
	timer  *time.Timer
	tokens chan struct{} // nil means unlimited concurrency
}

func newPool(factory SessionFactory, concurrency int, idleTimeout time.Duration, logf func(format string, args ...any)) *pool {
	p := &pool{
		factory:     factory,
		idleTimeout: idleTimeout,
		logf:        logf,
	}
	if concurrency > 0 {
		p.tokens = make(chan struct{}, concurrency)
		for i := 0; i < concurrency; i++ {
			p.tokens <- struct{}{}
		}
	}
	return p
}

// acquire returns an idle child session, or lazily dials a new one via
// the stored factory.
func (p *pool) acquire() (Session, error) {
	if p.tokens != nil {
		<-p.tokens
	}
	p.mu.Lock()
	if n := len(p.idle); n > 0 {
		s := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return s, nil
	}
	p.mu.Unlock()

	s, err := p.factory()
	if err != nil {
		if p.tokens != nil {
			p.tokens <- struct{}{}
		}
		return nil, err
	}
	return s, nil
}

// release returns s to the pool unless err indicates the session has
// gone bad (a timeout reply or an unclassifiable socket error), in which
// case it is closed and discarded rather than reused.
func (p *pool) release(s Session, err error) {
	if p.tokens != nil {
		defer func() { p.tokens <- struct{}{} }()
	}
	if s == nil {
		return
	}
	if err != nil && sessionIsDead(err) {
		_ = s.Close()
		return
	}
	p.mu.Lock()
	p.idle = append(p.idle, s)
	if p.idleTimeout > 0 {
		if p.timer == nil {
			p.timer = time.AfterFunc(p.idleTimeout, func() { _ = p.drain() })
		} else {
			p.timer.Reset(p.idleTimeout)
		}
	}
	p.mu.Unlock()
}

// drain closes every idle child session, e.g. after IdleTimeout or at
// Host.Close.
func (p *pool) drain() error {
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
	}
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	if len(idle) != 0 && p.logf != nil {
		p.logf("ftputil: closing %d idle child connection(s)", len(idle))
	}
	var errs *multierror.Error
	for _, s := range idle {
		if cErr := s.Close(); cErr != nil {
			errs = multierror.Append(errs, cErr)
		}
	}
	return errs.ErrorOrNil()
}

// sessionIsDead reports whether err indicates the underlying connection
// should be discarded rather than returned to the pool. A Permanent
// reply, or a Temporary reply other than 421 (the server answered, just
// not the way the caller wanted), means the control connection is still
// alive. A 421 "going away" reply, or any error that never produced a
// real status code at all (socket errors, and the synthetic error
// RemoteFile.Close passes after a failed transfer), means the connection
// can't be trusted and is discarded instead of reused (spec §4.6/§4.7).
func sessionIsDead(err error) bool {
	classified := classify("", err)
	var pe *PermanentError
	if errors.As(classified, &pe) {
		return false
	}
	var te *TemporaryError
	if errors.As(classified, &te) {
		return te.Code == 0 || te.Code == 421
	}
	return true
}
