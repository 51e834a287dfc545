package wire

// Kind identifies which variant of the MessagePack value model a Value
// holds. There is no Ext kind: the codec never produces one as a
// decoded value, per the wire contract (see decodeAt in decode.go); decoding an
// ext-typed byte anywhere in a message is a format error.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt    // signed, stored in Value.i
	KindUint   // unsigned, stored in Value.u
	KindFloat  // always float64 on the wire
	KindString // UTF-8
	KindBinary
	KindArray
	KindMap
)

// MapEntry is one key/value pair of a KindMap Value. Order is
// preserved as decoded; MessagePack does not require sorted keys.
type MapEntry struct {
	Key Value
	Val Value
}

// Value is the tagged-union MessagePack value: nil, bool, signed-int,
// unsigned-int, float64, string, binary, array(Value), or
// map((Value,Value)*).
type Value struct {
	kind Kind
	b    bool
	i    int64
	u    uint64
	f    float64
	s    string
	bin  []byte
	arr  []Value
	m    []MapEntry
}

func Nil() Value                { return Value{kind: KindNil} }
func Bool(b bool) Value         { return Value{kind: KindBool, b: b} }
func Int(i int64) Value         { return Value{kind: KindInt, i: i} }
func Uint(u uint64) Value       { return Value{kind: KindUint, u: u} }
func Float(f float64) Value     { return Value{kind: KindFloat, f: f} }
func Str(s string) Value        { return Value{kind: KindString, s: s} }
func Bin(b []byte) Value        { return Value{kind: KindBinary, bin: b} }
func Arr(vs []Value) Value      { return Value{kind: KindArray, arr: vs} }
func Map(m []MapEntry) Value    { return Value{kind: KindMap, m: m} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNil() bool { return v.kind == KindNil }

func (v Value) Bool() bool        { return v.b }
func (v Value) Int() int64        { return v.i }
func (v Value) Uint() uint64      { return v.u }
func (v Value) Float() float64    { return v.f }
func (v Value) Str() string       { return v.s }
func (v Value) Bin() []byte       { return v.bin }
func (v Value) Arr() []Value      { return v.arr }
func (v Value) Map() []MapEntry   { return v.m }

// Int64 returns the value as an int64 regardless of whether it was
// decoded as KindInt or KindUint (non-negative only in the latter
// case). Used by typed decode to accept either wire representation
// for a Go signed integer field.
func (v Value) Int64() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindUint:
		if v.u > 1<<63-1 {
			return 0, false
		}
		return int64(v.u), true
	default:
		return 0, false
	}
}

// Uint64 mirrors Int64 for unsigned Go fields.
func (v Value) Uint64() (uint64, bool) {
	switch v.kind {
	case KindUint:
		return v.u, true
	case KindInt:
		if v.i < 0 {
			return 0, false
		}
		return uint64(v.i), true
	default:
		return 0, false
	}
}

// MapLookup returns the value for the first entry whose key is a
// string equal to key, and whether it was found.
func (v Value) MapLookup(key string) (Value, bool) {
	for _, e := range v.m {
		if e.Key.kind == KindString && e.Key.s == key {
			return e.Val, true
		}
	}
	return Value{}, false
}

// Equal compares two values for the codec roundtrip law: non-negative
// KindInt and KindUint values of the same magnitude are equal, since
// encode() normalizes them to the same wire bytes and decode() cannot
// recover which Go kind produced them.
func (v Value) Equal(o Value) bool {
	nv, no := v.normalized(), o.normalized()
	if nv.kind != no.kind {
		return false
	}
	switch nv.kind {
	case KindNil:
		return true
	case KindBool:
		return nv.b == no.b
	case KindInt:
		return nv.i == no.i
	case KindUint:
		return nv.u == no.u
	case KindFloat:
		return nv.f == no.f
	case KindString:
		return nv.s == no.s
	case KindBinary:
		return bytesEqual(nv.bin, no.bin)
	case KindArray:
		if len(nv.arr) != len(no.arr) {
			return false
		}
		for i := range nv.arr {
			if !nv.arr[i].Equal(no.arr[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(nv.m) != len(no.m) {
			return false
		}
		for i := range nv.m {
			if !nv.m[i].Key.Equal(no.m[i].Key) || !nv.m[i].Val.Equal(no.m[i].Val) {
				return false
			}
		}
		return true
	}
	return false
}

// normalized rewrites a non-negative KindInt as KindUint so Equal
// treats "signed 5" and "unsigned 5" as the same wire value.
func (v Value) normalized() Value {
	if v.kind == KindInt && v.i >= 0 {
		return Value{kind: KindUint, u: uint64(v.i)}
	}
	return v
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
