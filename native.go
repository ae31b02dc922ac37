package poculum

import (
	"bytes"
	"math/big"
	"reflect"
	"sort"
)

// ValueOf converts a Go value into a Value. Supported inputs are nil, Value,
// bool, all integer kinds, float32/64, string, []byte, *big.Int, big.Int,
// slices and arrays, maps, and pointers to any of these. Map pairs are
// ordered by the encoding of their keys so the result is deterministic.
// Anything else fails with ErrUnsupportedType naming the Go type.
func ValueOf(x any) (Value, error) {
	return std.valueOf(reflect.ValueOf(x), 0)
}

// Marshal is ValueOf followed by Encode.
func Marshal(x any) ([]byte, error) {
	v, err := ValueOf(x)
	if err != nil {
		return nil, err
	}
	return Encode(v)
}

// Unmarshal is Decode followed by Native.
func Unmarshal(b []byte) (any, error) {
	v, err := Decode(b)
	if err != nil {
		return nil, err
	}
	return Native(v)
}

var (
	valueType  = reflect.TypeOf((*Value)(nil)).Elem()
	bigIntType = reflect.TypeOf(big.Int{})
)

func (c *Coder) valueOf(rv reflect.Value, depth int) (Value, error) {
	if !rv.IsValid() {
		return Null{}, nil
	}
	if rv.Type().Implements(valueType) {
		if rv.Kind() == reflect.Interface && rv.IsNil() {
			return Null{}, nil
		}
		return rv.Interface().(Value), nil
	}
	if rv.Type() == bigIntType {
		b := rv.Interface().(big.Int)
		return NewInt(&b)
	}

	switch rv.Kind() {
	case reflect.Interface, reflect.Pointer:
		if rv.IsNil() {
			return Null{}, nil
		}
		if rv.Kind() == reflect.Pointer && rv.Type().Elem() == bigIntType {
			return NewInt(rv.Interface().(*big.Int))
		}
		if rv.Kind() == reflect.Interface {
			return c.valueOf(rv.Elem(), depth)
		}
		// pointer hops count toward depth so pointer cycles terminate
		if depth >= c.maxDepth {
			return nil, encodeErr(ErrRecursionLimitExceeded, "pointer chain deeper than %d", c.maxDepth)
		}
		return c.valueOf(rv.Elem(), depth+1)
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Uint64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			if rv.Kind() == reflect.Slice {
				return append(Bytes{}, rv.Bytes()...), nil
			}
			b := make(Bytes, rv.Len())
			for i := range b {
				b[i] = byte(rv.Index(i).Uint())
			}
			return b, nil
		}
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return List{}, nil
		}
		if depth >= c.maxDepth {
			return nil, encodeErr(ErrRecursionLimitExceeded, "nesting deeper than %d", c.maxDepth)
		}
		l := make(List, rv.Len())
		for i := range l {
			v, err := c.valueOf(rv.Index(i), depth+1)
			if err != nil {
				return nil, err
			}
			l[i] = v
		}
		return l, nil
	case reflect.Map:
		if depth >= c.maxDepth {
			return nil, encodeErr(ErrRecursionLimitExceeded, "nesting deeper than %d", c.maxDepth)
		}
		return c.mapOf(rv, depth)
	}
	return nil, encodeErr(ErrUnsupportedType, "%s", rv.Type())
}

func (c *Coder) mapOf(rv reflect.Value, depth int) (Value, error) {
	type sortable struct {
		key []byte
		p   Pair
	}
	pairs := make([]sortable, 0, rv.Len())
	it := rv.MapRange()
	for it.Next() {
		k, err := c.valueOf(it.Key(), depth+1)
		if err != nil {
			return nil, err
		}
		v, err := c.valueOf(it.Value(), depth+1)
		if err != nil {
			return nil, err
		}
		e := encoder{maxDepth: c.maxDepth}
		if err := e.value(k); err != nil {
			return nil, wrapElem(err, "map key")
		}
		pairs = append(pairs, sortable{key: e.buf, p: Pair{Key: k, Value: v}})
	}
	sort.Slice(pairs, func(i, j int) bool { return bytes.Compare(pairs[i].key, pairs[j].key) < 0 })
	m := make(Map, len(pairs))
	for i := range pairs {
		m[i] = pairs[i].p
	}
	return m, nil
}

// Native converts v into plain Go values: nil, bool, int64 (or uint64 when
// the value does not fit, or *big.Int beyond 64 bits), float64, string,
// []byte, []any, and map[string]any when every key is a String, otherwise
// map[any]any. Map keys of kind Bytes, List or Map have no comparable Go form
// and fail with ErrUnsupportedType.
func Native(v Value) (any, error) {
	switch x := v.(type) {
	case nil, Null:
		return nil, nil
	case Bool:
		return bool(x), nil
	case Int:
		switch {
		case x.IsInt64():
			return x.Int64(), nil
		case x.IsUint64():
			return x.Uint64(), nil
		}
		return x.Big(), nil
	case Float:
		return float64(x), nil
	case String:
		return string(x), nil
	case Bytes:
		return []byte(x), nil
	case List:
		out := make([]any, len(x))
		for i, item := range x {
			n, err := Native(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case Map:
		return nativeMap(x)
	}
	return nil, encodeErr(ErrUnsupportedType, "%T", v)
}

func nativeMap(m Map) (any, error) {
	allStrings := true
	for _, p := range m {
		if _, ok := p.Key.(String); !ok {
			allStrings = false
			break
		}
	}
	if allStrings {
		out := make(map[string]any, len(m))
		for _, p := range m {
			n, err := Native(p.Value)
			if err != nil {
				return nil, err
			}
			out[string(p.Key.(String))] = n
		}
		return out, nil
	}

	out := make(map[any]any, len(m))
	for _, p := range m {
		switch p.Key.Kind() {
		case KindBytes, KindList, KindMap:
			return nil, encodeErr(ErrUnsupportedType, "map key of kind %s has no comparable Go form", p.Key.Kind())
		}
		k, err := Native(p.Key)
		if err != nil {
			return nil, err
		}
		if b, ok := k.(*big.Int); ok {
			k = b.String()
		}
		n, err := Native(p.Value)
		if err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, nil
}
