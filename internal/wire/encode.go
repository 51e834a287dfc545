package wire

import "math"

// Encode appends the MessagePack encoding of v to dst and returns the
// extended slice. Every integer is written with the shortest legal
// prefix for its magnitude; floats always encode as float64; all
// multi-byte integers are big-endian.
func Encode(dst []byte, v Value) []byte {
	switch v.kind {
	case KindNil:
		return append(dst, 0xc0)
	case KindBool:
		if v.b {
			return append(dst, 0xc3)
		}
		return append(dst, 0xc2)
	case KindUint:
		return encodeUint(dst, v.u)
	case KindInt:
		if v.i >= 0 {
			return encodeUint(dst, uint64(v.i))
		}
		return encodeNegInt(dst, v.i)
	case KindFloat:
		dst = append(dst, 0xcb)
		return appendU64(dst, math.Float64bits(v.f))
	case KindString:
		return encodeString(dst, v.s)
	case KindBinary:
		return encodeBinary(dst, v.bin)
	case KindArray:
		dst = encodeArrayHeader(dst, len(v.arr))
		for _, e := range v.arr {
			dst = Encode(dst, e)
		}
		return dst
	case KindMap:
		dst = encodeMapHeader(dst, len(v.m))
		for _, e := range v.m {
			dst = Encode(dst, e.Key)
			dst = Encode(dst, e.Val)
		}
		return dst
	}
	return dst
}

func encodeUint(dst []byte, u uint64) []byte {
	switch {
	case u <= 0x7f:
		return append(dst, byte(u))
	case u <= 0xff:
		return append(dst, 0xcc, byte(u))
	case u <= 0xffff:
		dst = append(dst, 0xcd)
		return appendU16(dst, uint16(u))
	case u <= 0xffffffff:
		dst = append(dst, 0xce)
		return appendU32(dst, uint32(u))
	default:
		dst = append(dst, 0xcf)
		return appendU64(dst, u)
	}
}

func encodeNegInt(dst []byte, i int64) []byte {
	switch {
	case i >= -32:
		return append(dst, byte(0xe0)|(byte(int8(i))&0x1f))
	case i >= -128:
		return append(dst, 0xd0, byte(int8(i)))
	case i >= -32768:
		dst = append(dst, 0xd1)
		return appendU16(dst, uint16(int16(i)))
	case i >= -2147483648:
		dst = append(dst, 0xd2)
		return appendU32(dst, uint32(int32(i)))
	default:
		dst = append(dst, 0xd3)
		return appendU64(dst, uint64(i))
	}
}

func encodeString(dst []byte, s string) []byte {
	n := len(s)
	switch {
	case n <= 31:
		dst = append(dst, 0xa0|byte(n))
	case n <= 0xff:
		dst = append(dst, 0xd9, byte(n))
	case n <= 0xffff:
		dst = append(dst, 0xda)
		dst = appendU16(dst, uint16(n))
	default:
		dst = append(dst, 0xdb)
		dst = appendU32(dst, uint32(n))
	}
	return append(dst, s...)
}

func encodeBinary(dst []byte, b []byte) []byte {
	n := len(b)
	switch {
	case n <= 0xff:
		dst = append(dst, 0xc4, byte(n))
	case n <= 0xffff:
		dst = append(dst, 0xc5)
		dst = appendU16(dst, uint16(n))
	default:
		dst = append(dst, 0xc6)
		dst = appendU32(dst, uint32(n))
	}
	return append(dst, b...)
}

func encodeArrayHeader(dst []byte, n int) []byte {
	switch {
	case n <= 15:
		return append(dst, 0x90|byte(n))
	case n <= 0xffff:
		dst = append(dst, 0xdc)
		return appendU16(dst, uint16(n))
	default:
		dst = append(dst, 0xdd)
		return appendU32(dst, uint32(n))
	}
}

func encodeMapHeader(dst []byte, n int) []byte {
	switch {
	case n <= 15:
		return append(dst, 0x80|byte(n))
	case n <= 0xffff:
		dst = append(dst, 0xde)
		return appendU16(dst, uint16(n))
	default:
		dst = append(dst, 0xdf)
		return appendU32(dst, uint32(n))
	}
}

func appendU16(dst []byte, v uint16) []byte {
	return append(dst, byte(v>>8), byte(v))
}

func appendU32(dst []byte, v uint32) []byte {
	return append(dst, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func appendU64(dst []byte, v uint64) []byte {
	return append(dst,
		byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
		byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
