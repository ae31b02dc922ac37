package poculum

import "errors"

// Options tune a Coder. The zero value is ready to use.
type Options struct {
	// MaxDepth bounds container nesting on both encode and decode.
	// 0 => DefaultMaxDepth.
	MaxDepth int
	// Logger receives a Debug record for every rejected encode or decode.
	// nil => NopLogger.
	Logger Logger
}

// Coder encodes and decodes Values. It holds no mutable state and is safe
// for concurrent use.
type Coder struct {
	maxDepth int
	log      Logger
}

// New returns a Coder configured by opts.
func New(opts Options) *Coder {
	return &Coder{
		maxDepth: coalesce(opts.MaxDepth, DefaultMaxDepth),
		log:      coalesce[Logger](opts.Logger, NopLogger{}),
	}
}

var std = New(Options{})

// Encode returns the encoding of v. Null encodes to an empty buffer.
func Encode(v Value) ([]byte, error) { return std.Encode(v) }

// Append appends the encoding of v to dst.
func Append(dst []byte, v Value) ([]byte, error) { return std.Append(dst, v) }

// Decode parses the value at the start of b. An empty b decodes to Null.
// Bytes after the first complete value are ignored; use DecodePrefix to
// learn how many were consumed.
func Decode(b []byte) (Value, error) { return std.Decode(b) }

// DecodePrefix is like Decode and also returns the number of bytes of b
// that the value occupied.
func DecodePrefix(b []byte) (Value, int, error) { return std.DecodePrefix(b) }

func (c *Coder) Encode(v Value) ([]byte, error) {
	return c.Append(nil, v)
}

func (c *Coder) Append(dst []byte, v Value) ([]byte, error) {
	if _, ok := v.(Null); ok {
		return dst, nil
	}
	e := encoder{buf: dst, maxDepth: c.maxDepth}
	if err := e.value(v); err != nil {
		c.rejected(err)
		return dst, err
	}
	return e.buf, nil
}

func (c *Coder) Decode(b []byte) (Value, error) {
	v, _, err := c.DecodePrefix(b)
	return v, err
}

func (c *Coder) DecodePrefix(b []byte) (Value, int, error) {
	if len(b) == 0 {
		return Null{}, 0, nil
	}
	d := decoder{buf: b, maxDepth: c.maxDepth}
	v, err := d.value()
	if err != nil {
		c.rejected(err)
		return nil, 0, err
	}
	return v, d.off, nil
}

func (c *Coder) rejected(err error) {
	var pe *Error
	if !errors.As(err, &pe) {
		c.log.Debug("poculum: rejected", Fields{"err": err})
		return
	}
	f := Fields{"op": pe.Op, "kind": pe.Kind, "detail": pe.Detail}
	if pe.Offset >= 0 {
		f["offset"] = pe.Offset
	}
	c.log.Debug("poculum: rejected", f)
}
