package poculum

import (
	"encoding/binary"
	"math"
	"unicode/utf8"
)

// decoder walks buf with a cursor. Each step consumes exactly the bytes of
// the value it returns, so container elements are located by advancing the
// cursor rather than by re-encoding what was decoded.
type decoder struct {
	buf      []byte
	off      int
	depth    int
	maxDepth int
}

func (d *decoder) remaining() int { return len(d.buf) - d.off }

// need fails with ErrTruncatedInput unless n more bytes are available.
func (d *decoder) need(n int, what string) error {
	if d.remaining() < n {
		return decodeErr(ErrTruncatedInput, d.off, "%s needs %d bytes, have %d", what, n, d.remaining())
	}
	return nil
}

func (d *decoder) value() (Value, error) {
	start := d.off
	if err := d.need(1, "tag"); err != nil {
		return nil, err
	}
	tag := d.buf[d.off]
	d.off++

	switch {
	case tag >= tagUint8 && tag <= tagUint128:
		return d.uint(tag)
	case tag >= tagInt8 && tag <= tagInt128:
		return d.int(tag)
	case tag == tagFloat32:
		if err := d.need(4, "float32"); err != nil {
			return nil, err
		}
		f := math.Float32frombits(binary.BigEndian.Uint32(d.buf[d.off:]))
		d.off += 4
		return Float(f), nil
	case tag == tagFloat64:
		if err := d.need(8, "float64"); err != nil {
			return nil, err
		}
		f := math.Float64frombits(binary.BigEndian.Uint64(d.buf[d.off:]))
		d.off += 8
		return Float(f), nil
	case tag >= tagFixStrLow && tag <= tagFixStrHigh:
		n := int(tag & fixMask)
		if err := d.need(n, "fixstring"); err != nil {
			return nil, err
		}
		return d.str(n)
	case tag == tagStr16, tag == tagStr32:
		n, err := d.length(tag)
		if err != nil {
			return nil, err
		}
		return d.str(n)
	case tag == tagBytes8, tag == tagBytes16, tag == tagBytes32:
		n, err := d.length(tag)
		if err != nil {
			return nil, err
		}
		b := make(Bytes, n)
		copy(b, d.buf[d.off:d.off+n])
		d.off += n
		return b, nil
	case tag >= tagFixListLow && tag <= tagFixListHigh:
		return d.list(tag, int(tag&fixMask), start)
	case tag == tagList16, tag == tagList32:
		n, err := d.count(tag)
		if err != nil {
			return nil, err
		}
		return d.list(tag, n, start)
	case tag >= tagFixMapLow && tag <= tagFixMapHigh:
		return d.mapping(tag, int(tag&fixMask), start)
	case tag == tagMap16, tag == tagMap32:
		n, err := d.count(tag)
		if err != nil {
			return nil, err
		}
		return d.mapping(tag, n, start)
	}
	return nil, decodeErr(ErrInvalidTag, start, "unknown tag 0x%02x", tag)
}

func (d *decoder) uint(tag byte) (Value, error) {
	w := intWidths[tag-tagUint8]
	if err := d.need(w, tagName(tag)); err != nil {
		return nil, err
	}
	hi, lo := d.fixed(w)
	return Int{hi: hi, lo: lo}, nil
}

func (d *decoder) int(tag byte) (Value, error) {
	w := intWidths[tag-tagInt8]
	if err := d.need(w, tagName(tag)); err != nil {
		return nil, err
	}
	hi, lo := d.fixed(w)
	if w < 16 {
		// sign-extend the w-byte pattern to 128 bits
		shift := uint(64 - 8*w)
		lo = uint64(int64(lo<<shift) >> shift)
		hi = uint64(int64(lo) >> 63)
	}
	return intFromTwos(hi, lo), nil
}

// fixed reads a w-byte big-endian integer (w in 1, 2, 4, 8, 16).
func (d *decoder) fixed(w int) (hi, lo uint64) {
	b := d.buf[d.off : d.off+w]
	d.off += w
	switch w {
	case 1:
		lo = uint64(b[0])
	case 2:
		lo = uint64(binary.BigEndian.Uint16(b))
	case 4:
		lo = uint64(binary.BigEndian.Uint32(b))
	case 8:
		lo = binary.BigEndian.Uint64(b)
	default:
		hi = binary.BigEndian.Uint64(b[:8])
		lo = binary.BigEndian.Uint64(b[8:])
	}
	return hi, lo
}

// lengthField reads the explicit 1, 2 or 4 byte length that follows a tag.
func (d *decoder) lengthField(tag byte) (uint64, error) {
	var w int
	switch tag {
	case tagBytes8:
		w = 1
	case tagStr16, tagBytes16, tagList16, tagMap16:
		w = 2
	default:
		w = 4
	}
	if err := d.need(w, tagName(tag)+" length"); err != nil {
		return 0, err
	}
	_, n := d.fixed(w)
	return n, nil
}

// length reads and validates the payload length of a string or bytes value.
func (d *decoder) length(tag byte) (int, error) {
	at := d.off
	n, err := d.lengthField(tag)
	if err != nil {
		return 0, err
	}
	if n > uint64(d.remaining()) {
		return 0, decodeErr(ErrInvalidLength, at, "%s declares %d bytes, %d available", tagName(tag), n, d.remaining())
	}
	if (tag == tagStr32 || tag == tagBytes32) && n > MaxScalar32Len {
		return 0, decodeErr(ErrSizeLimitExceeded, at, "%s declares %d bytes, limit %d", tagName(tag), n, MaxScalar32Len)
	}
	return int(n), nil
}

// count reads the element count of a list16/32 or map16/32 and enforces
// the decode ceiling for its length class.
func (d *decoder) count(tag byte) (int, error) {
	at := d.off - 1
	n, err := d.lengthField(tag)
	if err != nil {
		return 0, err
	}
	if limit := containerCeiling(tag); n > uint64(limit) {
		return 0, decodeErr(ErrSizeLimitExceeded, at, "%s declares %d elements, limit %d", tagName(tag), n, limit)
	}
	return int(n), nil
}

func (d *decoder) str(n int) (Value, error) {
	p := d.buf[d.off : d.off+n]
	if !utf8.Valid(p) {
		return nil, decodeErr(ErrInvalidEncoding, d.off+firstInvalidUTF8(p), "invalid UTF-8 in string payload")
	}
	d.off += n
	return String(p), nil
}

func firstInvalidUTF8(p []byte) int {
	for i := 0; i < len(p); {
		r, size := utf8.DecodeRune(p[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(p)
}

func (d *decoder) enter(start int) error {
	d.depth++
	if d.depth > d.maxDepth {
		return decodeErr(ErrRecursionLimitExceeded, start, "nesting deeper than %d", d.maxDepth)
	}
	return nil
}

// element decodes one container element, failing with ErrTruncatedInput
// when the input ends where an element is required.
func (d *decoder) element(tag byte, what string, i int) (Value, error) {
	if d.remaining() == 0 {
		return nil, decodeErr(ErrTruncatedInput, d.off, "%s %s %d: end of input", tagName(tag), what, i)
	}
	return d.value()
}

func (d *decoder) list(tag byte, n, start int) (Value, error) {
	if err := d.enter(start); err != nil {
		return nil, err
	}
	defer func() { d.depth-- }()

	// every element takes at least one byte
	l := make(List, 0, min(n, d.remaining()))
	for i := 0; i < n; i++ {
		v, err := d.element(tag, "item", i)
		if err != nil {
			return nil, err
		}
		l = append(l, v)
	}
	return l, nil
}

func (d *decoder) mapping(tag byte, n, start int) (Value, error) {
	if err := d.enter(start); err != nil {
		return nil, err
	}
	defer func() { d.depth-- }()

	// every pair takes at least two bytes
	m := make(Map, 0, min(n, d.remaining()/2))
	for i := 0; i < n; i++ {
		k, err := d.element(tag, "key", i)
		if err != nil {
			return nil, err
		}
		v, err := d.element(tag, "value", i)
		if err != nil {
			return nil, err
		}
		m = append(m, Pair{Key: k, Value: v})
	}
	return m, nil
}
