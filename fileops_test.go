package ftputil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoveAndUnlink(t *testing.T) {
	server := newFakeServer()
	server.addFile("/a.txt", unixLine('-', 1, "a.txt"), []byte("x"))
	server.addFile("/b.txt", unixLine('-', 1, "b.txt"), []byte("y"))
	h := newTestHost(t, server)

	require.NoError(t, h.Remove("/a.txt"))
	_, err := h.Stat("/a.txt")
	assert.True(t, errors.Is(err, ErrItemNotFound))

	require.NoError(t, h.Unlink("/b.txt"))
	_, err = h.Stat("/b.txt")
	assert.True(t, errors.Is(err, ErrItemNotFound))
}

func TestRenameMovesFileAndInvalidatesBothPaths(t *testing.T) {
	server := newFakeServer()
	server.addFile("/a.txt", unixLine('-', 1, "a.txt"), []byte("x"))
	h := newTestHost(t, server)

	_, err := h.Stat("/a.txt")
	require.NoError(t, err)

	require.NoError(t, h.Rename("/a.txt", "/b.txt"))

	_, err = h.Stat("/a.txt")
	assert.True(t, errors.Is(err, ErrItemNotFound))

	rec, err := h.Stat("/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "b.txt", rec.Name)
}

func TestChmodSuccess(t *testing.T) {
	server := newFakeServer()
	server.addFile("/a.txt", unixLine('-', 1, "a.txt"), []byte("x"))
	h := newTestHost(t, server)

	require.NoError(t, h.Chmod("/a.txt", 0o644))
}

func TestChmodSurfacesSessionFailure(t *testing.T) {
	server := newFakeServer()
	server.addFile("/a.txt", unixLine('-', 1, "a.txt"), []byte("x"))
	h := newTestHost(t, server)
	server.failNextVoidCmd = "502 command not recognized"

	err := h.Chmod("/a.txt", 0o644)
	assert.Error(t, err)
}
