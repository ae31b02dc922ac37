// Package codec adapts serializers to a single Codec[V] shape so poculum can
// be plugged into stores and measured against other formats.
package codec

// Codec encodes/decodes values V to []byte.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
