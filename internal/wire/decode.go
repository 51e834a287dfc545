package wire

import (
	"math"
	"unicode/utf8"
)

// Decode reads exactly one top-level MessagePack value from data and
// returns it along with the number of bytes consumed. If data holds
// the start of a value but not all of it, Decode returns ErrNeedMore
// and the framer should retry once more bytes are available; this is
// not treated as a malformed message.
func Decode(data []byte) (Value, int, error) {
	return decodeAt(data)
}

func need(data []byte, n int) error {
	if len(data) < n {
		return ErrNeedMore
	}
	return nil
}

func decodeAt(data []byte) (Value, int, error) {
	if len(data) == 0 {
		return Value{}, 0, ErrNeedMore
	}
	tag := data[0]

	switch {
	case tag <= 0x7f: // positive fixint
		return Uint(uint64(tag)), 1, nil
	case tag >= 0xe0: // negative fixint
		return Int(int64(int8(tag))), 1, nil
	case tag >= 0x80 && tag <= 0x8f: // fixmap
		return decodeMap(data, 1, int(tag&0x0f))
	case tag >= 0x90 && tag <= 0x9f: // fixarray
		return decodeArray(data, 1, int(tag&0x0f))
	case tag >= 0xa0 && tag <= 0xbf: // fixstr
		return decodeString(data, 1, int(tag&0x1f))
	}

	switch tag {
	case 0xc0:
		return Nil(), 1, nil
	case 0xc2:
		return Bool(false), 1, nil
	case 0xc3:
		return Bool(true), 1, nil
	case 0xc4: // bin8
		if err := need(data, 2); err != nil {
			return Value{}, 0, err
		}
		return decodeBinary(data, 2, int(data[1]))
	case 0xc5: // bin16
		if err := need(data, 3); err != nil {
			return Value{}, 0, err
		}
		return decodeBinary(data, 3, int(readU16(data[1:])))
	case 0xc6: // bin32
		if err := need(data, 5); err != nil {
			return Value{}, 0, err
		}
		return decodeBinary(data, 5, int(readU32(data[1:])))
	case 0xca: // float32 (accepted on decode, widened to float64)
		if err := need(data, 5); err != nil {
			return Value{}, 0, err
		}
		bits := readU32(data[1:])
		return Float(float64(math.Float32frombits(bits))), 5, nil
	case 0xcb: // float64
		if err := need(data, 9); err != nil {
			return Value{}, 0, err
		}
		bits := readU64(data[1:])
		return Float(math.Float64frombits(bits)), 9, nil
	case 0xcc: // uint8
		if err := need(data, 2); err != nil {
			return Value{}, 0, err
		}
		return Uint(uint64(data[1])), 2, nil
	case 0xcd: // uint16
		if err := need(data, 3); err != nil {
			return Value{}, 0, err
		}
		return Uint(uint64(readU16(data[1:]))), 3, nil
	case 0xce: // uint32
		if err := need(data, 5); err != nil {
			return Value{}, 0, err
		}
		return Uint(uint64(readU32(data[1:]))), 5, nil
	case 0xcf: // uint64
		if err := need(data, 9); err != nil {
			return Value{}, 0, err
		}
		return Uint(readU64(data[1:])), 9, nil
	case 0xd0: // int8
		if err := need(data, 2); err != nil {
			return Value{}, 0, err
		}
		return Int(int64(int8(data[1]))), 2, nil
	case 0xd1: // int16
		if err := need(data, 3); err != nil {
			return Value{}, 0, err
		}
		return Int(int64(int16(readU16(data[1:])))), 3, nil
	case 0xd2: // int32
		if err := need(data, 5); err != nil {
			return Value{}, 0, err
		}
		return Int(int64(int32(readU32(data[1:])))), 5, nil
	case 0xd3: // int64
		if err := need(data, 9); err != nil {
			return Value{}, 0, err
		}
		return Int(int64(readU64(data[1:]))), 9, nil
	case 0xd9: // str8
		if err := need(data, 2); err != nil {
			return Value{}, 0, err
		}
		return decodeString(data, 2, int(data[1]))
	case 0xda: // str16
		if err := need(data, 3); err != nil {
			return Value{}, 0, err
		}
		return decodeString(data, 3, int(readU16(data[1:])))
	case 0xdb: // str32
		if err := need(data, 5); err != nil {
			return Value{}, 0, err
		}
		return decodeString(data, 5, int(readU32(data[1:])))
	case 0xdc: // array16
		if err := need(data, 3); err != nil {
			return Value{}, 0, err
		}
		return decodeArray(data, 3, int(readU16(data[1:])))
	case 0xdd: // array32
		if err := need(data, 5); err != nil {
			return Value{}, 0, err
		}
		return decodeArray(data, 5, int(readU32(data[1:])))
	case 0xde: // map16
		if err := need(data, 3); err != nil {
			return Value{}, 0, err
		}
		return decodeMap(data, 3, int(readU16(data[1:])))
	case 0xdf: // map32
		if err := need(data, 5); err != nil {
			return Value{}, 0, err
		}
		return decodeMap(data, 5, int(readU32(data[1:])))
	}

	// 0xc1 is reserved; 0xc7/0xc8/0xc9 (ext8/16/32) and 0xd4-0xd8
	// (fixext) are ext types. The Value variant has no Ext kind, so
	// decoding an ext value anywhere in a message, including under an
	// unknown struct map key, is a format error. Nothing in spec.md's
	// wire shapes uses ext types.
	return Value{}, 0, ErrInvalidFormat
}

func decodeString(data []byte, hdr, n int) (Value, int, error) {
	total := hdr + n
	if err := need(data, total); err != nil {
		return Value{}, 0, err
	}
	raw := data[hdr:total]
	if !utf8.Valid(raw) {
		return Value{}, 0, ErrInvalidUTF8
	}
	return Str(string(raw)), total, nil
}

func decodeBinary(data []byte, hdr, n int) (Value, int, error) {
	total := hdr + n
	if err := need(data, total); err != nil {
		return Value{}, 0, err
	}
	b := make([]byte, n)
	copy(b, data[hdr:total])
	return Bin(b), total, nil
}

func decodeArray(data []byte, hdr, n int) (Value, int, error) {
	pos := hdr
	elems := make([]Value, 0, minInt(n, 1024))
	for i := 0; i < n; i++ {
		v, consumed, err := decodeAt(data[pos:])
		if err != nil {
			return Value{}, 0, err
		}
		elems = append(elems, v)
		pos += consumed
	}
	return Arr(elems), pos, nil
}

func decodeMap(data []byte, hdr, n int) (Value, int, error) {
	pos := hdr
	entries := make([]MapEntry, 0, minInt(n, 1024))
	for i := 0; i < n; i++ {
		k, kn, err := decodeAt(data[pos:])
		if err != nil {
			return Value{}, 0, err
		}
		pos += kn
		v, vn, err := decodeAt(data[pos:])
		if err != nil {
			return Value{}, 0, err
		}
		pos += vn
		entries = append(entries, MapEntry{Key: k, Val: v})
	}
	return Map(entries), pos, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func readU16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

func readU32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func readU64(b []byte) uint64 {
	return uint64(b[0])<<56 | uint64(b[1])<<48 | uint64(b[2])<<40 | uint64(b[3])<<32 |
		uint64(b[4])<<24 | uint64(b[5])<<16 | uint64(b[6])<<8 | uint64(b[7])
}
