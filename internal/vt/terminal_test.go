package vt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFeedASCIIAdvancesOneCellPerByte(t *testing.T) {
	g := New(10, 3)
	g.Feed([]byte("hi"))
	require.Equal(t, "h", g.cells[0][0].Ch)
	require.Equal(t, "i", g.cells[0][1].Ch)
	require.Equal(t, 2, g.cursor.Col)
}

func TestFeedMultiByteUTF8InOneCall(t *testing.T) {
	g := New(10, 3)
	// "café" - é is a two-byte UTF-8 sequence (0xc3 0xa9).
	g.Feed([]byte("café"))
	require.Equal(t, "c", g.cells[0][0].Ch)
	require.Equal(t, "a", g.cells[0][1].Ch)
	require.Equal(t, "f", g.cells[0][2].Ch)
	require.Equal(t, "é", g.cells[0][3].Ch)
	require.Equal(t, 4, g.cursor.Col, "one cell per rune, not per byte")
}

func TestFeedMultiByteUTF8SplitAcrossCalls(t *testing.T) {
	g := New(10, 3)
	euro := []byte("€") // 3-byte sequence: 0xe2 0x82 0xac
	require.Len(t, euro, 3)

	g.Feed(euro[:1])
	require.Equal(t, 0, g.cursor.Col, "incomplete sequence must not advance the cursor")
	require.Equal(t, " ", g.cells[0][0].Ch)

	g.Feed(euro[1:2])
	require.Equal(t, 0, g.cursor.Col, "still incomplete")

	g.Feed(euro[2:])
	require.Equal(t, "€", g.cells[0][0].Ch)
	require.Equal(t, 1, g.cursor.Col)
}

func TestFeedFourByteUTF8SplitAcrossCalls(t *testing.T) {
	g := New(10, 3)
	emoji := []byte("\U0001F600") // 4-byte sequence
	require.Len(t, emoji, 4)

	for i := 0; i < 3; i++ {
		g.Feed(emoji[i : i+1])
		require.Equal(t, 0, g.cursor.Col)
	}
	g.Feed(emoji[3:])
	require.Equal(t, "\U0001F600", g.cells[0][0].Ch)
	require.Equal(t, 1, g.cursor.Col)
}

func TestFeedInvalidByteDecodesAsSingleReplacementCell(t *testing.T) {
	g := New(10, 3)
	// A lone continuation byte is invalid UTF-8 on its own; it should
	// still occupy exactly one cell rather than stalling forever.
	g.Feed([]byte{0x80, 'x'})
	require.Equal(t, "�", g.cells[0][0].Ch)
	require.Equal(t, "x", g.cells[0][1].Ch)
	require.Equal(t, 2, g.cursor.Col)
}

func TestFeedCarriageReturnAndNewline(t *testing.T) {
	g := New(10, 3)
	g.Feed([]byte("ab\r\ncd"))
	require.Equal(t, "a", g.cells[0][0].Ch)
	require.Equal(t, "b", g.cells[0][1].Ch)
	require.Equal(t, "c", g.cells[1][0].Ch)
	require.Equal(t, "d", g.cells[1][1].Ch)
}

func TestFeedCursorMovementCSI(t *testing.T) {
	g := New(10, 3)
	g.Feed([]byte("\x1b[2;3H"))
	require.Equal(t, 1, g.cursor.Row)
	require.Equal(t, 2, g.cursor.Col)
}

func TestFeedDeviceAttributesReply(t *testing.T) {
	g := New(10, 3)
	reply := g.Feed([]byte("\x1b[c"))
	require.Equal(t, "\x1b[?1;2c", string(reply))
}

func TestFeedOSCSetsTitle(t *testing.T) {
	g := New(10, 3)
	g.Feed([]byte("\x1b]0;my title\x07"))
	require.Equal(t, "my title", g.Title())
}

func TestResizePreservesOverlappingCells(t *testing.T) {
	g := New(10, 3)
	g.Feed([]byte("hi"))
	g.Resize(5, 2)
	require.Equal(t, "h", g.cells[0][0].Ch)
	require.Equal(t, "i", g.cells[0][1].Ch)
}

func TestSnapshotIsIndependentOfLiveGrid(t *testing.T) {
	g := New(10, 3)
	g.Feed([]byte("a"))
	frame := g.Snapshot()
	g.Feed([]byte("b"))
	require.Equal(t, "a", frame.Cells[0][0].Ch)
	require.Equal(t, "b", g.cells[0][1].Ch)
}
