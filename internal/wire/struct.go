package wire

import (
	"fmt"
	"reflect"
	"strings"
)

// fieldTag describes one struct field's wire behavior, parsed from
// its `msgpack:"..."` tag: `msgpack:"name"` (required on decode),
// `msgpack:"name,optional"` (absent is fine, field keeps its zero
// value), `msgpack:"name,omitempty"` (dropped from encoded maps when
// the field holds its zero value). "-" skips the field entirely.
type fieldTag struct {
	name      string
	optional  bool
	omitempty bool
	skip      bool
}

func parseTag(raw string) fieldTag {
	if raw == "-" {
		return fieldTag{skip: true}
	}
	parts := strings.Split(raw, ",")
	ft := fieldTag{name: parts[0]}
	for _, opt := range parts[1:] {
		switch opt {
		case "optional":
			ft.optional = true
		case "omitempty":
			ft.omitempty = true
		}
	}
	return ft
}

func fieldsOf(t reflect.Type) []struct {
	idx int
	tag fieldTag
} {
	var out []struct {
		idx int
		tag fieldTag
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		raw, ok := f.Tag.Lookup("msgpack")
		var tag fieldTag
		if ok {
			tag = parseTag(raw)
		} else {
			tag = fieldTag{name: f.Name}
		}
		if tag.skip {
			continue
		}
		out = append(out, struct {
			idx int
			tag fieldTag
		}{idx: i, tag: tag})
	}
	return out
}

// DecodeStruct populates out (a pointer to a struct) from v, which
// must be a KindMap (fields matched by name, unknown keys skipped) or
// a KindArray (fields matched by declaration order). Missing optional
// fields are left at their zero value; a missing required field
// returns ErrInvalidFormat.
func DecodeStruct(v Value, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("wire: DecodeStruct requires a struct pointer, got %T", out)
	}
	elem := rv.Elem()
	fields := fieldsOf(elem.Type())

	switch v.kind {
	case KindMap:
		seen := make(map[int]bool, len(fields))
		for _, fe := range fields {
			val, ok := v.MapLookup(fe.tag.name)
			if !ok {
				continue
			}
			if err := assign(elem.Field(fe.idx), val); err != nil {
				return err
			}
			seen[fe.idx] = true
		}
		for _, fe := range fields {
			if !seen[fe.idx] && !fe.tag.optional {
				return fmt.Errorf("%w: missing required field %q", ErrInvalidFormat, fe.tag.name)
			}
		}
		return nil
	case KindArray:
		for i, fe := range fields {
			if i >= len(v.arr) {
				if !fe.tag.optional {
					return fmt.Errorf("%w: missing required field %q (array too short)", ErrInvalidFormat, fe.tag.name)
				}
				continue
			}
			if err := assign(elem.Field(fe.idx), v.arr[i]); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: struct decode needs a map or array, got kind %d", ErrInvalidFormat, v.kind)
	}
}

func assign(field reflect.Value, v Value) error {
	switch field.Kind() {
	case reflect.String:
		if v.kind != KindString {
			return fmt.Errorf("%w: expected string", ErrInvalidFormat)
		}
		field.SetString(v.s)
	case reflect.Bool:
		if v.kind != KindBool {
			return fmt.Errorf("%w: expected bool", ErrInvalidFormat)
		}
		field.SetBool(v.b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, ok := v.Int64()
		if !ok {
			return fmt.Errorf("%w: expected integer", ErrInvalidFormat)
		}
		if field.OverflowInt(i) {
			return fmt.Errorf("%w: %d does not fit in %s", ErrIntegerOverflow, i, field.Type())
		}
		field.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, ok := v.Uint64()
		if !ok {
			return fmt.Errorf("%w: expected unsigned integer", ErrInvalidFormat)
		}
		if field.OverflowUint(u) {
			return fmt.Errorf("%w: %d does not fit in %s", ErrIntegerOverflow, u, field.Type())
		}
		field.SetUint(u)
	case reflect.Float32, reflect.Float64:
		if v.kind != KindFloat {
			return fmt.Errorf("%w: expected float", ErrInvalidFormat)
		}
		field.SetFloat(v.f)
	case reflect.Slice:
		return assignSlice(field, v)
	case reflect.Map:
		return assignMap(field, v)
	case reflect.Pointer:
		if v.kind == KindNil {
			field.Set(reflect.Zero(field.Type()))
			return nil
		}
		ptr := reflect.New(field.Type().Elem())
		if err := assign(ptr.Elem(), v); err != nil {
			return err
		}
		field.Set(ptr)
	case reflect.Struct:
		return DecodeStruct(v, field.Addr().Interface())
	case reflect.Interface:
		field.Set(reflect.ValueOf(toAny(v)))
	default:
		return fmt.Errorf("%w: unsupported field kind %s", ErrInvalidFormat, field.Kind())
	}
	return nil
}

func assignSlice(field reflect.Value, v Value) error {
	if field.Type().Elem().Kind() == reflect.Uint8 {
		if v.kind != KindBinary && v.kind != KindString {
			return fmt.Errorf("%w: expected binary", ErrInvalidFormat)
		}
		if v.kind == KindString {
			field.SetBytes([]byte(v.s))
		} else {
			field.SetBytes(v.bin)
		}
		return nil
	}
	if v.kind != KindArray {
		return fmt.Errorf("%w: expected array", ErrInvalidFormat)
	}
	out := reflect.MakeSlice(field.Type(), len(v.arr), len(v.arr))
	for i, e := range v.arr {
		if err := assign(out.Index(i), e); err != nil {
			return err
		}
	}
	field.Set(out)
	return nil
}

func assignMap(field reflect.Value, v Value) error {
	if v.kind != KindMap {
		return fmt.Errorf("%w: expected map", ErrInvalidFormat)
	}
	out := reflect.MakeMapWithSize(field.Type(), len(v.m))
	for _, e := range v.m {
		kv := reflect.New(field.Type().Key()).Elem()
		if err := assign(kv, e.Key); err != nil {
			return err
		}
		vv := reflect.New(field.Type().Elem()).Elem()
		if err := assign(vv, e.Val); err != nil {
			return err
		}
		out.SetMapIndex(kv, vv)
	}
	field.Set(out)
	return nil
}

// toAny converts a Value into the nearest plain Go type, for fields
// declared as `any` (used by params/results that are genuinely
// polymorphic, like a script action's payload).
func toAny(v Value) any {
	switch v.kind {
	case KindNil:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindUint:
		return v.u
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBinary:
		return v.bin
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = toAny(e)
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for _, e := range v.m {
			if e.Key.kind == KindString {
				out[e.Key.s] = toAny(e.Val)
			}
		}
		return out
	}
	return nil
}

// EncodeStruct converts a struct (or pointer to one) into a KindMap
// Value using the same `msgpack` tags DecodeStruct reads, honoring
// omitempty.
func EncodeStruct(in any) Value {
	rv := reflect.ValueOf(in)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	fields := fieldsOf(rv.Type())
	entries := make([]MapEntry, 0, len(fields))
	for _, fe := range fields {
		fv := rv.Field(fe.idx)
		if fe.tag.omitempty && fv.IsZero() {
			continue
		}
		entries = append(entries, MapEntry{Key: Str(fe.tag.name), Val: FromAny(fv.Interface())})
	}
	return Map(entries)
}

// FromAny converts a plain Go value (as produced by toAny, or any
// JSON-like literal built by hand) into a wire Value.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Nil()
	case bool:
		return Bool(t)
	case string:
		return Str(t)
	case []byte:
		return Bin(t)
	case int:
		return Int(int64(t))
	case int8:
		return Int(int64(t))
	case int16:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case uint:
		return Uint(uint64(t))
	case uint8:
		return Uint(uint64(t))
	case uint16:
		return Uint(uint64(t))
	case uint32:
		return Uint(uint64(t))
	case uint64:
		return Uint(t)
	case float32:
		return Float(float64(t))
	case float64:
		return Float(t)
	case []any:
		elems := make([]Value, len(t))
		for i, e := range t {
			elems[i] = FromAny(e)
		}
		return Arr(elems)
	case map[string]any:
		entries := make([]MapEntry, 0, len(t))
		for k, v := range t {
			entries = append(entries, MapEntry{Key: Str(k), Val: FromAny(v)})
		}
		return Map(entries)
	case Value:
		return t
	default:
		rv := reflect.ValueOf(x)
		if rv.Kind() == reflect.Struct || (rv.Kind() == reflect.Pointer && rv.Elem().Kind() == reflect.Struct) {
			return EncodeStruct(x)
		}
		if rv.Kind() == reflect.Slice {
			elems := make([]Value, rv.Len())
			for i := 0; i < rv.Len(); i++ {
				elems[i] = FromAny(rv.Index(i).Interface())
			}
			return Arr(elems)
		}
		return Nil()
	}
}
