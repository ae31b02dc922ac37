// Package poculum implements a compact, self-describing binary format for
// dynamically typed values: null, booleans, integers up to 128 bits, 64-bit
// floats, UTF-8 strings, byte strings, lists and maps.
//
// The first byte of an encoding is a tag naming the variant and its width or
// length class. Encoders always pick the smallest class that fits:
//
//	0x01-0x05  uint8/16/32/64/128      0x11-0x15  int8/16/32/64/128
//	0x21       float32 (decode only)   0x22       float64
//	0x30-0x3F  fixstring (len 0-15)    0x41/0x42  string16/string32
//	0x50-0x5F  fixlist (len 0-15)      0x61/0x62  list16/list32
//	0x70-0x7F  fixmap (len 0-15)       0x81/0x82  map16/map32
//	0x91-0x93  bytes8/bytes16/bytes32
//
// Null has no tag: it is the empty buffer, and it cannot appear inside a
// container. Bool shares the uint8 tag, so true decodes as Int 1.
//
// Decoding bounds allocation against hostile input: declared lengths are
// checked against the remaining buffer, string32/bytes32 payloads are
// capped at MaxScalar32Len, container counts at MaxFixContainerLen,
// Max16ContainerLen and Max32ContainerLen, and nesting at Options.MaxDepth.
//
//	b, _ := poculum.Encode(poculum.Map{{Key: poculum.String("a"), Value: poculum.Uint64(1)}})
//	// b == "\x71\x31a\x01\x01"
//	v, _ := poculum.Decode(b)
package poculum
