package ftputil

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSession struct {
	closed bool
}

func (c *countingSession) PWD() (string, error)                         { return "/", nil }
func (c *countingSession) CWD(string) error                             { return nil }
func (c *countingSession) MKD(string) error                             { return nil }
func (c *countingSession) RMD(string) error                             { return nil }
func (c *countingSession) DELE(string) error                            { return nil }
func (c *countingSession) Rename(string, string) error                  { return nil }
func (c *countingSession) VoidCmd(string) error                         { return nil }
func (c *countingSession) VoidResp() error                              { return nil }
func (c *countingSession) Dir(string, bool, LineCallback) error         { return nil }
func (c *countingSession) TransferCmd(string, int64) (DataConn, error)  { return nil, nil }
func (c *countingSession) Close() error                                 { c.closed = true; return nil }
func (c *countingSession) Encoding() string                             { return "" }

func TestPoolReusesIdleSession(t *testing.T) {
	dials := 0
	factory := func() (Session, error) {
		dials++
		return &countingSession{}, nil
	}
	p := newPool(factory, 0, 0, nil)

	s1, err := p.acquire()
	require.NoError(t, err)
	p.release(s1, nil)

	s2, err := p.acquire()
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, dials)
}

func TestPoolDiscardsDeadSession(t *testing.T) {
	dials := 0
	factory := func() (Session, error) {
		dials++
		return &countingSession{}, nil
	}
	p := newPool(factory, 0, 0, nil)

	s1, err := p.acquire()
	require.NoError(t, err)
	p.release(s1, errors.New("421 connection timed out"))

	s2, err := p.acquire()
	require.NoError(t, err)
	assert.NotSame(t, s1, s2)
	assert.Equal(t, 2, dials)
	assert.True(t, s1.(*countingSession).closed)
}

func TestPoolConcurrencyLimitBlocksUntilReleased(t *testing.T) {
	factory := func() (Session, error) { return &countingSession{}, nil }
	p := newPool(factory, 1, 0, nil)

	s1, err := p.acquire()
	require.NoError(t, err)

	acquired := make(chan Session, 1)
	go func() {
		s, _ := p.acquire()
		acquired <- s
	}()

	select {
	case <-acquired:
		t.Fatal("acquire should block while the single token is held")
	case <-time.After(50 * time.Millisecond):
	}

	p.release(s1, nil)
	select {
	case s2 := <-acquired:
		assert.Same(t, s1, s2)
	case <-time.After(time.Second):
		t.Fatal("acquire did not unblock after release")
	}
}

func TestPoolDrainClosesAllIdleSessions(t *testing.T) {
	factory := func() (Session, error) { return &countingSession{}, nil }
	p := newPool(factory, 0, 0, nil)

	s1, _ := p.acquire()
	s2, _ := p.acquire()
	p.release(s1, nil)
	p.release(s2, nil)

	require.NoError(t, p.drain())
	assert.True(t, s1.(*countingSession).closed)
	assert.True(t, s2.(*countingSession).closed)
}
