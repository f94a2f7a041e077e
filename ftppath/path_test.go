package ftppath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinSplitRoundTrip(t *testing.T) {
	for _, p := range []string{"/a/b/c", "a/b", "/", "a", "/a/", "a//b///c"} {
		dir, base, err := Split(p)
		require.NoError(t, err)
		joined, err := Join(dir, base)
		require.NoError(t, err)
		normalized, err := Normpath(p)
		require.NoError(t, err)
		assert.Equal(t, normalized, joined, "Join(Split(%q))", p)
	}
}

func TestCleanDotDot(t *testing.T) {
	cases := map[string]string{
		"/a/b/../c":  "/a/c",
		"/a/./b":     "/a/b",
		"//a///b//":  "/a/b",
		"/..":        "/",
		"/../../a":   "/a",
		"a/../../b":  "../b",
		".":          ".",
		"":           ".",
		"/":          "/",
		"a/b/c/../.": "a/b",
	}
	for in, want := range cases {
		assert.Equal(t, want, Clean(in), "Clean(%q)", in)
	}
}

func TestDirOfRootIsRoot(t *testing.T) {
	d, err := Dir("/")
	require.NoError(t, err)
	assert.Equal(t, "/", d)
}

func TestBaseOfRoot(t *testing.T) {
	b, err := Base("/")
	require.NoError(t, err)
	assert.Equal(t, "/", b)
}

func TestSplitext(t *testing.T) {
	root, ext, err := Splitext("/a/b/file.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, "/a/b/file.tar", root)
	assert.Equal(t, ".gz", ext)

	root, ext, err = Splitext("/a/.hidden")
	require.NoError(t, err)
	assert.Equal(t, "/a/.hidden", root)
	assert.Equal(t, "", ext)
}

func TestIsAbs(t *testing.T) {
	abs, err := IsAbs("/a/b")
	require.NoError(t, err)
	assert.True(t, abs)

	abs, err = IsAbs("a/b")
	require.NoError(t, err)
	assert.False(t, abs)
}

func TestTypeMismatch(t *testing.T) {
	_, err := Join("a", []byte("b"))
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = Common("a/b", []byte("a/c"))
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestBytesKindPreserved(t *testing.T) {
	dir, base, err := Split([]byte("/a/b"))
	require.NoError(t, err)
	assert.IsType(t, []byte{}, dir)
	assert.IsType(t, []byte{}, base)
	assert.Equal(t, []byte("/a/"), dir)
	assert.Equal(t, []byte("b"), base)
}

func TestCommon(t *testing.T) {
	c, err := Common("/a/b/c", "/a/b/d", "/a/be")
	require.NoError(t, err)
	assert.Equal(t, "/a/b", c)
}

func TestAbs(t *testing.T) {
	a, err := Abs("/home/user", "sub/file")
	require.NoError(t, err)
	assert.Equal(t, "/home/user/sub/file", a)

	a, err = Abs("/home/user", "/elsewhere")
	require.NoError(t, err)
	assert.Equal(t, "/elsewhere", a)
}
