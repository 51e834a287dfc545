package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeKeyNamedKeys(t *testing.T) {
	require.Equal(t, []byte("\r"), EncodeKey(KeyEvent{Key: "Enter"}))
	require.Equal(t, []byte("\x1b[A"), EncodeKey(KeyEvent{Key: "ArrowUp"}))
	require.Equal(t, []byte("\x7f"), EncodeKey(KeyEvent{Key: "Backspace"}))
}

func TestEncodeKeyLiteralRune(t *testing.T) {
	require.Equal(t, []byte("a"), EncodeKey(KeyEvent{Key: "a"}))
}

func TestEncodeKeyCtrlLetter(t *testing.T) {
	require.Equal(t, []byte{0x01}, EncodeKey(KeyEvent{Key: "a", Ctrl: true}))
	require.Equal(t, []byte{0x03}, EncodeKey(KeyEvent{Key: "c", Ctrl: true}))
}

func TestEncodeKeyAltPrefixesEscape(t *testing.T) {
	require.Equal(t, []byte("\x1ba"), EncodeKey(KeyEvent{Key: "a", Alt: true}))
}

func TestEncodeKeyUnrecognizedMultiRuneIsDropped(t *testing.T) {
	require.Nil(t, EncodeKey(KeyEvent{Key: "SomeUnknownKey"}))
}
