package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScrollbackUnderSize(t *testing.T) {
	r := NewScrollback(16)
	r.Write([]byte("hello"))
	require.Equal(t, []byte("hello"), r.Contents())
}

func TestScrollbackWrap(t *testing.T) {
	r := NewScrollback(5)
	r.Write([]byte("abcde"))
	r.Write([]byte("fg"))
	require.Equal(t, []byte("cdefg"), r.Contents())
}

func TestScrollbackMultipleWraps(t *testing.T) {
	r := NewScrollback(4)
	r.Write([]byte("abcdefghijklmnop"))
	require.Equal(t, []byte("mnop"), r.Contents())
}

func TestScrollbackEmpty(t *testing.T) {
	r := NewScrollback(16)
	require.Empty(t, r.Contents())
}

func TestScrollbackWrapSkipsOrphanedUTF8(t *testing.T) {
	// Buffer size 3, write "a─b" (a, E2 94 80, b): the wrap overwrites
	// the E2 start byte, orphaning the two continuation bytes that
	// follow it, which Contents must then skip.
	r := NewScrollback(3)
	r.Write([]byte("a\xe2\x94\x80b"))
	require.Equal(t, "b", string(r.Contents()))
}

func TestScrollbackDefaultSizeOnNonPositive(t *testing.T) {
	r := NewScrollback(0)
	require.Len(t, r.buf, scrollbackSize)
}
