package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func roundtrip(t *testing.T, v Value) Value {
	buf := Encode(nil, v)
	got, n, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	return got
}

func TestRoundtrip(t *testing.T) {
	cases := []Value{
		Nil(),
		Bool(true),
		Bool(false),
		Int(-1),
		Uint(1),
		Float(3.5),
		Str("hello"),
		Bin([]byte{1, 2, 3}),
		Arr([]Value{Int(1), Str("x"), Nil()}),
		Map([]MapEntry{{Key: Str("a"), Val: Int(1)}}),
	}
	for _, v := range cases {
		got := roundtrip(t, v)
		require.True(t, v.Equal(got), "roundtrip mismatch for kind %d", v.kind)
	}
}

func TestShortestPrefix(t *testing.T) {
	boundaries := []struct {
		v        Value
		wantTag  byte
		wantLen  int
	}{
		{Uint(0), 0x00, 1},
		{Uint(127), 0x7f, 1},
		{Uint(128), 0xcc, 2},
		{Uint(255), 0xcc, 2},
		{Uint(256), 0xcd, 3},
		{Uint(65535), 0xcd, 3},
		{Uint(65536), 0xce, 5},
		{Uint(4294967295), 0xce, 5},
		{Uint(4294967296), 0xcf, 9},
		{Int(-1), 0xff, 1},
		{Int(-32), 0xe0, 1},
		{Int(-33), 0xd0, 2},
		{Int(-128), 0xd0, 2},
		{Int(-129), 0xd1, 3},
		{Int(-32768), 0xd1, 3},
		{Int(-32769), 0xd2, 5},
		{Int(-2147483648), 0xd2, 5},
		{Int(-2147483649), 0xd3, 9},
	}
	for _, b := range boundaries {
		buf := Encode(nil, b.v)
		require.Equalf(t, b.wantLen, len(buf), "value %+v", b.v)
		require.Equalf(t, b.wantTag, buf[0], "value %+v", b.v)
	}
}

func TestFramingConcatenation(t *testing.T) {
	a := Int(42)
	b := Str("second message")
	buf := Encode(nil, a)
	buf = Encode(buf, b)

	v1, n1, err := DecodeFrame(buf)
	require.NoError(t, err)
	require.True(t, a.Equal(v1))

	v2, n2, err := DecodeFrame(buf[n1:])
	require.NoError(t, err)
	require.True(t, b.Equal(v2))
	require.Equal(t, len(buf), n1+n2)
}

func TestFramingNeedMore(t *testing.T) {
	full := Encode(nil, Str("a moderately long string value"))
	_, _, err := DecodeFrame(full[:len(full)-1])
	require.ErrorIs(t, err, ErrNeedMore)
}

type known struct {
	Known int `msgpack:"known"`
}

func TestUnknownKeySkip(t *testing.T) {
	v := Map([]MapEntry{
		{Key: Str("known"), Val: Int(1)},
		{Key: Str("_unknown"), Val: Arr([]Value{
			Int(1),
			Map([]MapEntry{{Key: Str("a"), Val: Int(2)}}),
			Str("x"),
		})},
	})
	var out known
	require.NoError(t, DecodeStruct(v, &out))
	require.Equal(t, 1, out.Known)
}

type withOptional struct {
	Required string `msgpack:"required"`
	Optional string `msgpack:"optional,optional"`
}

func TestMissingRequiredField(t *testing.T) {
	v := Map([]MapEntry{{Key: Str("optional"), Val: Str("x")}})
	var out withOptional
	err := DecodeStruct(v, &out)
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestMissingOptionalFieldIsFine(t *testing.T) {
	v := Map([]MapEntry{{Key: Str("required"), Val: Str("x")}})
	var out withOptional
	require.NoError(t, DecodeStruct(v, &out))
	require.Equal(t, "x", out.Required)
	require.Equal(t, "", out.Optional)
}

func TestStructDecodeByArray(t *testing.T) {
	v := Arr([]Value{Str("x"), Str("y")})
	var out withOptional
	require.NoError(t, DecodeStruct(v, &out))
	require.Equal(t, "x", out.Required)
	require.Equal(t, "y", out.Optional)
}

func TestFloatAlwaysFloat64(t *testing.T) {
	buf := Encode(nil, Float(1.5))
	require.Equal(t, byte(0xcb), buf[0])
	require.Len(t, buf, 9)
}

type narrowInt struct {
	N int8 `msgpack:"n"`
}

type narrowUint struct {
	N uint8 `msgpack:"n"`
}

func TestDecodeStructRejectsIntOverflow(t *testing.T) {
	v := Map([]MapEntry{{Key: Str("n"), Val: Int(300)}})
	var out narrowInt
	err := DecodeStruct(v, &out)
	require.ErrorIs(t, err, ErrIntegerOverflow)
}

func TestDecodeStructRejectsUintOverflow(t *testing.T) {
	v := Map([]MapEntry{{Key: Str("n"), Val: Uint(300)}})
	var out narrowUint
	err := DecodeStruct(v, &out)
	require.ErrorIs(t, err, ErrIntegerOverflow)
}

func TestDecodeStructAcceptsIntWithinRange(t *testing.T) {
	v := Map([]MapEntry{{Key: Str("n"), Val: Int(100)}})
	var out narrowInt
	require.NoError(t, DecodeStruct(v, &out))
	require.Equal(t, int8(100), out.N)
}
