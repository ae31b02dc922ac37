package codec

import (
	"reflect"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Protobuf is a Codec for a concrete proto message type.
type Protobuf[T proto.Message] struct {
	new func() T // constructor for a concrete message (e.g., func() *structpb.Value { return &structpb.Value{} })
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.Marshal(v)
}
func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}

// StructValue is the protobuf codec for dynamic documents: the well-known
// google.protobuf.Value message, whose shape (null, bool, number, string,
// list, struct) is the closest protobuf analogue of a poculum.Value.
func StructValue() Protobuf[*structpb.Value] {
	return NewProtobuf(func() *structpb.Value { return &structpb.Value{} })
}

// ToStructValue converts plain Go data into a *structpb.Value. Maps with
// non-string keys are converted when every key is a string at runtime
// (the shape YAML decoders produce for map[any]any).
func ToStructValue(x any) (*structpb.Value, error) {
	return structpb.NewValue(normalize(x))
}

func normalize(x any) any {
	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		it := rv.MapRange()
		for it.Next() {
			k, ok := it.Key().Interface().(string)
			if !ok {
				return x // structpb reports the unsupported key
			}
			out[k] = normalize(it.Value().Interface())
		}
		return out
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return x
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	}
	return x
}
