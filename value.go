package poculum

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"math/bits"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is one of Null, Bool, Int, Float, String, Bytes, List or Map.
// The set is closed: only types in this package implement it.
type Value interface {
	Kind() Kind
	isValue()
}

type (
	// Null has no tag byte. It is only representable as an empty buffer.
	Null struct{}
	// Bool is encoded as uint8 0 or 1 and decodes back as an Int.
	Bool bool
	// Float is always encoded as float64.
	Float float64
	// String is encoded as UTF-8 bytes.
	String string
	// Bytes is a raw byte string.
	Bytes []byte
	// List is an ordered sequence of values.
	List []Value
	// Map is an ordered collection of key/value pairs. Order is kept on
	// encode and decode; duplicate keys are not rejected.
	Map []Pair
)

// Pair is one Map entry.
type Pair struct {
	Key   Value
	Value Value
}

func (Null) Kind() Kind   { return KindNull }
func (Bool) Kind() Kind   { return KindBool }
func (Int) Kind() Kind    { return KindInt }
func (Float) Kind() Kind  { return KindFloat }
func (String) Kind() Kind { return KindString }
func (Bytes) Kind() Kind  { return KindBytes }
func (List) Kind() Kind   { return KindList }
func (Map) Kind() Kind    { return KindMap }

func (Null) isValue()   {}
func (Bool) isValue()   {}
func (Int) isValue()    {}
func (Float) isValue()  {}
func (String) isValue() {}
func (Bytes) isValue()  {}
func (List) isValue()   {}
func (Map) isValue()    {}

// Get returns the value of the first pair whose key equals key.
func (m Map) Get(key Value) (Value, bool) {
	for _, p := range m {
		if Equal(p.Key, key) {
			return p.Value, true
		}
	}
	return nil, false
}

// Int is an integer in [-2^127, 2^128-1], stored as sign and 128-bit
// magnitude. The zero value is 0. Int values are comparable with ==.
type Int struct {
	hi, lo uint64
	neg    bool // never set for a zero magnitude
}

// Uint64 returns the Int for u.
func Uint64(u uint64) Int { return Int{lo: u} }

// Uint128 returns the unsigned Int hi<<64 | lo.
func Uint128(hi, lo uint64) Int { return Int{hi: hi, lo: lo} }

// Int64 returns the Int for i.
func Int64(i int64) Int {
	if i >= 0 {
		return Int{lo: uint64(i)}
	}
	// two's complement negation also covers math.MinInt64
	return Int{lo: uint64(-i), neg: true}
}

var (
	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	minInt128  = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// NewInt converts b, failing with ErrValueTooLarge when b lies outside
// [-2^127, 2^128-1] and with ErrUnsupportedType when b is nil.
func NewInt(b *big.Int) (Int, error) {
	if b == nil {
		return Int{}, encodeErr(ErrUnsupportedType, "nil *big.Int")
	}
	if b.Cmp(maxUint128) > 0 || b.Cmp(minInt128) < 0 {
		return Int{}, encodeErr(ErrValueTooLarge, "integer %s outside 128-bit range", b.String())
	}
	var mag [16]byte
	new(big.Int).Abs(b).FillBytes(mag[:])
	return Int{
		hi:  binary.BigEndian.Uint64(mag[:8]),
		lo:  binary.BigEndian.Uint64(mag[8:]),
		neg: b.Sign() < 0,
	}, nil
}

// Sign returns -1, 0 or +1.
func (n Int) Sign() int {
	switch {
	case n.neg:
		return -1
	case n.hi == 0 && n.lo == 0:
		return 0
	}
	return 1
}

// IsUint64 reports whether n fits in a uint64.
func (n Int) IsUint64() bool { return !n.neg && n.hi == 0 }

// Uint64 returns the low 64 bits of n. Valid when IsUint64 is true.
func (n Int) Uint64() uint64 { return n.lo }

// IsInt64 reports whether n fits in an int64.
func (n Int) IsInt64() bool {
	if n.hi != 0 {
		return false
	}
	if n.neg {
		return n.lo <= 1<<63
	}
	return n.lo <= math.MaxInt64
}

// Int64 returns n as an int64. Valid when IsInt64 is true.
func (n Int) Int64() int64 {
	if n.neg {
		return -int64(n.lo)
	}
	return int64(n.lo)
}

// Big returns n as a newly allocated big.Int.
func (n Int) Big() *big.Int {
	b := new(big.Int).SetUint64(n.hi)
	b.Lsh(b, 64)
	b.Or(b, new(big.Int).SetUint64(n.lo))
	if n.neg {
		b.Neg(b)
	}
	return b
}

func (n Int) String() string {
	if n.IsInt64() {
		return fmt.Sprint(n.Int64())
	}
	if n.IsUint64() {
		return fmt.Sprint(n.lo)
	}
	return n.Big().String()
}

// inRange reports whether the magnitude is representable for the sign.
func (n Int) inRange() bool {
	if !n.neg {
		return true
	}
	return n.hi < 1<<63 || (n.hi == 1<<63 && n.lo == 0)
}

// twos returns the 128-bit two's complement bit pattern of n.
func (n Int) twos() (hi, lo uint64) {
	if !n.neg {
		return n.hi, n.lo
	}
	lo, borrow := bits.Sub64(0, n.lo, 0)
	hi, _ = bits.Sub64(0, n.hi, borrow)
	return hi, lo
}

// intFromTwos builds an Int from a 128-bit two's complement pattern.
func intFromTwos(hi, lo uint64) Int {
	if hi>>63 == 0 {
		return Int{hi: hi, lo: lo}
	}
	lo, borrow := bits.Sub64(0, lo, 0)
	hi, _ = bits.Sub64(0, hi, borrow)
	return Int{hi: hi, lo: lo, neg: true}
}

// Equal reports whether a and b hold the same variant and contents.
// Floats compare bit-for-bit; maps compare pair by pair in order.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Null:
		return true
	case Bool:
		return av == b.(Bool)
	case Int:
		return av == b.(Int)
	case Float:
		return math.Float64bits(float64(av)) == math.Float64bits(float64(b.(Float)))
	case String:
		return av == b.(String)
	case Bytes:
		return bytes.Equal(av, b.(Bytes))
	case List:
		bv := b.(List)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Map:
		bv := b.(Map)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i].Key, bv[i].Key) || !Equal(av[i].Value, bv[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}
