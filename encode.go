package poculum

import (
	"encoding/binary"
	"fmt"
	"math"
)

type encoder struct {
	buf      []byte
	depth    int
	maxDepth int
}

func (e *encoder) value(v Value) error {
	switch x := v.(type) {
	case nil:
		return encodeErr(ErrUnsupportedType, "nil Value")
	case Null:
		return encodeErr(ErrUnsupportedType, "null has no tag and cannot be nested")
	case Bool:
		var b byte
		if x {
			b = 1
		}
		e.buf = append(e.buf, tagUint8, b)
		return nil
	case Int:
		return e.int(x)
	case Float:
		e.buf = append(e.buf, tagFloat64)
		e.buf = binary.BigEndian.AppendUint64(e.buf, math.Float64bits(float64(x)))
		return nil
	case String:
		return e.str(string(x))
	case Bytes:
		return e.bytes(x)
	case List:
		return e.list(x)
	case Map:
		return e.mapping(x)
	}
	return encodeErr(ErrUnsupportedType, "%T", v)
}

func (e *encoder) int(n Int) error {
	if !n.inRange() {
		return encodeErr(ErrValueTooLarge, "integer %s below -2^127", n.Big())
	}
	var base byte
	var class int
	if !n.neg {
		base = tagUint8
		switch {
		case n.hi != 0:
			class = 4
		case n.lo <= math.MaxUint8:
			class = 0
		case n.lo <= math.MaxUint16:
			class = 1
		case n.lo <= math.MaxUint32:
			class = 2
		default:
			class = 3
		}
	} else {
		base = tagInt8
		switch {
		case n.hi != 0 || n.lo > 1<<63:
			class = 4
		case n.lo <= 1<<7:
			class = 0
		case n.lo <= 1<<15:
			class = 1
		case n.lo <= 1<<31:
			class = 2
		default:
			class = 3
		}
	}
	e.buf = append(e.buf, base+byte(class))
	hi, lo := n.twos()
	switch w := intWidths[class]; w {
	case 1:
		e.buf = append(e.buf, byte(lo))
	case 2:
		e.buf = binary.BigEndian.AppendUint16(e.buf, uint16(lo))
	case 4:
		e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(lo))
	case 8:
		e.buf = binary.BigEndian.AppendUint64(e.buf, lo)
	default:
		e.buf = binary.BigEndian.AppendUint64(e.buf, hi)
		e.buf = binary.BigEndian.AppendUint64(e.buf, lo)
	}
	return nil
}

func (e *encoder) str(s string) error {
	n := len(s)
	switch {
	case n <= fixMaxLen:
		e.buf = append(e.buf, tagFixStrLow+byte(n))
	case n <= math.MaxUint16:
		e.buf = append(e.buf, tagStr16)
		e.buf = binary.BigEndian.AppendUint16(e.buf, uint16(n))
	case uint64(n) <= maxUint32Len:
		e.buf = append(e.buf, tagStr32)
		e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(n))
	default:
		return encodeErr(ErrValueTooLarge, "string of %d bytes exceeds 2^32-1", n)
	}
	e.buf = append(e.buf, s...)
	return nil
}

func (e *encoder) bytes(b []byte) error {
	n := len(b)
	switch {
	case n <= math.MaxUint8:
		e.buf = append(e.buf, tagBytes8, byte(n))
	case n <= math.MaxUint16:
		e.buf = append(e.buf, tagBytes16)
		e.buf = binary.BigEndian.AppendUint16(e.buf, uint16(n))
	case uint64(n) <= maxUint32Len:
		e.buf = append(e.buf, tagBytes32)
		e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(n))
	default:
		return encodeErr(ErrValueTooLarge, "bytes of length %d exceed 2^32-1", n)
	}
	e.buf = append(e.buf, b...)
	return nil
}

// header writes the length-class tag for a container of n elements.
func (e *encoder) header(what string, n int, fix, tag16, tag32 byte) error {
	if n > MaxEncodeElements {
		return encodeErr(ErrValueTooLarge, "%s of %d elements exceeds %d", what, n, MaxEncodeElements)
	}
	switch {
	case n <= fixMaxLen:
		e.buf = append(e.buf, fix+byte(n))
	case n <= math.MaxUint16:
		e.buf = append(e.buf, tag16)
		e.buf = binary.BigEndian.AppendUint16(e.buf, uint16(n))
	default:
		e.buf = append(e.buf, tag32)
		e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(n))
	}
	return nil
}

func (e *encoder) enter() error {
	e.depth++
	if e.depth > e.maxDepth {
		return encodeErr(ErrRecursionLimitExceeded, "nesting deeper than %d", e.maxDepth)
	}
	return nil
}

func (e *encoder) list(l List) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer func() { e.depth-- }()

	if err := e.header("list", len(l), tagFixListLow, tagList16, tagList32); err != nil {
		return err
	}
	for i, item := range l {
		if err := e.value(item); err != nil {
			return wrapElem(err, fmt.Sprintf("list[%d]", i))
		}
	}
	return nil
}

func (e *encoder) mapping(m Map) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer func() { e.depth-- }()

	if err := e.header("map", len(m), tagFixMapLow, tagMap16, tagMap32); err != nil {
		return err
	}
	for i, p := range m {
		if err := e.value(p.Key); err != nil {
			return wrapElem(err, fmt.Sprintf("map key %d", i))
		}
		if err := e.value(p.Value); err != nil {
			return wrapElem(err, fmt.Sprintf("map value %d", i))
		}
	}
	return nil
}

// wrapElem prefixes the failing element's position to an encode error's
// detail so nested failures name their path.
func wrapElem(err error, where string) error {
	if pe, ok := err.(*Error); ok && pe.Op == "encode" {
		cp := *pe
		if cp.Detail == "" {
			cp.Detail = where
		} else {
			cp.Detail = where + ": " + cp.Detail
		}
		return &cp
	}
	return err
}
