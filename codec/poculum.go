package codec

import (
	"fmt"

	"github.com/unkn0wn-root/poculum"
)

// Poculum is a Codec for poculum.Value. The zero value uses the package
// level defaults; set C to apply custom poculum.Options.
type Poculum struct {
	C *poculum.Coder
}

var _ Codec[poculum.Value] = Poculum{}

func (p Poculum) Encode(v poculum.Value) ([]byte, error) {
	if p.C != nil {
		return p.C.Encode(v)
	}
	return poculum.Encode(v)
}

func (p Poculum) Decode(b []byte) (poculum.Value, error) {
	if p.C != nil {
		return p.C.Decode(b)
	}
	return poculum.Decode(b)
}

// Native is a Codec for plain Go values (maps, slices, scalars) carried in
// the poculum format. Decode yields the shapes produced by poculum.Native and
// fails if they are not assignable to V; V = any always succeeds.
type Native[V any] struct{}

func (Native[V]) Encode(v V) ([]byte, error) {
	return poculum.Marshal(v)
}

func (Native[V]) Decode(b []byte) (V, error) {
	var zero V
	n, err := poculum.Unmarshal(b)
	if err != nil {
		return zero, err
	}
	if n == nil {
		return zero, nil
	}
	v, ok := n.(V)
	if !ok {
		return zero, fmt.Errorf("codec: decoded %T is not assignable to %T", n, zero)
	}
	return v, nil
}
