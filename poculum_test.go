package poculum

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"math/big"
	"strings"
	"testing"
)

func mustEncode(t *testing.T, v Value) []byte {
	t.Helper()
	b, err := Encode(v)
	if err != nil {
		t.Fatalf("Encode(%v) error: %v", v, err)
	}
	return b
}

func mustDecode(t *testing.T, b []byte) Value {
	t.Helper()
	v, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode(%x) error: %v", b, err)
	}
	return v
}

func mustBig(t *testing.T, s string) Int {
	t.Helper()
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad big literal %q", s)
	}
	n, err := NewInt(b)
	if err != nil {
		t.Fatalf("NewInt(%s): %v", s, err)
	}
	return n
}

func expectKind(t *testing.T, err, kind error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", kind)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}

func TestLiteralEncodings(t *testing.T) {
	cases := []struct {
		name string
		in   Value
		want []byte
	}{
		{"uint8", Uint64(42), []byte("\x01\x2a")},
		{"int8", Int64(-50), []byte("\x11\xce")},
		{"fixstring", String("hello"), []byte("\x35hello")},
		{"fixmap", Map{{Key: String("a"), Value: Uint64(1)}}, []byte("\x71\x31a\x01\x01")},
		{"true", Bool(true), []byte{0x01, 0x01}},
		{"false", Bool(false), []byte{0x01, 0x00}},
		{"float", Float(1.0), []byte{0x22, 0x3f, 0xf0, 0, 0, 0, 0, 0, 0}},
		{"bytes8", Bytes("hi"), []byte{0x91, 0x02, 'h', 'i'}},
		{"empty list", List{}, []byte{0x50}},
		{"empty map", Map{}, []byte{0x70}},
		{"list", List{Uint64(1), String("a")}, []byte{0x52, 0x01, 0x01, 0x31, 'a'}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mustEncode(t, tc.in)
			if !bytes.Equal(got, tc.want) {
				t.Fatalf("got %x want %x", got, tc.want)
			}
		})
	}
}

func TestNullIsEmptyBuffer(t *testing.T) {
	b := mustEncode(t, Null{})
	if len(b) != 0 {
		t.Fatalf("Null encoded to %x, want empty", b)
	}
	if v := mustDecode(t, nil); v != (Null{}) {
		t.Fatalf("Decode(nil) = %#v, want Null", v)
	}
	if v := mustDecode(t, []byte{}); v != (Null{}) {
		t.Fatalf("Decode(empty) = %#v, want Null", v)
	}
}

func TestNullCannotBeNested(t *testing.T) {
	_, err := Encode(List{Null{}})
	expectKind(t, err, ErrUnsupportedType)

	_, err = Encode(Map{{Key: String("k"), Value: Null{}}})
	expectKind(t, err, ErrUnsupportedType)

	_, err = Encode(nil)
	expectKind(t, err, ErrUnsupportedType)
}

func TestBoolDecodesAsUint8(t *testing.T) {
	v := mustDecode(t, mustEncode(t, Bool(true)))
	if !Equal(v, Uint64(1)) {
		t.Fatalf("got %#v want Int 1", v)
	}
}

func TestIntegerClassBoundaries(t *testing.T) {
	cases := []struct {
		n   Int
		tag byte
	}{
		{Uint64(0), tagUint8},
		{Uint64(127), tagUint8},
		{Uint64(255), tagUint8},
		{Uint64(256), tagUint16},
		{Uint64(65535), tagUint16},
		{Uint64(65536), tagUint32},
		{Uint64(math.MaxUint32), tagUint32},
		{Uint64(math.MaxUint32 + 1), tagUint64},
		{Uint64(math.MaxUint64), tagUint64},
		{Uint128(1, 0), tagUint128},
		{Uint128(math.MaxUint64, math.MaxUint64), tagUint128},
		{Int64(-1), tagInt8},
		{Int64(-128), tagInt8},
		{Int64(-129), tagInt16},
		{Int64(-32768), tagInt16},
		{Int64(-32769), tagInt32},
		{Int64(math.MinInt32), tagInt32},
		{Int64(math.MinInt32 - 1), tagInt64},
		{Int64(math.MinInt64), tagInt64},
		{mustBig(t, "-9223372036854775809"), tagInt128},
		{mustBig(t, "-170141183460469231731687303715884105728"), tagInt128},
	}
	for _, tc := range cases {
		b := mustEncode(t, tc.n)
		if b[0] != tc.tag {
			t.Fatalf("%s: tag 0x%02x want 0x%02x", tc.n, b[0], tc.tag)
		}
		if len(b) != 1+intWidths[tc.tag&0x0f-1] {
			t.Fatalf("%s: encoded length %d", tc.n, len(b))
		}
		got := mustDecode(t, b)
		if !Equal(got, tc.n) {
			t.Fatalf("round trip %s: got %v", tc.n, got)
		}
	}
}

func TestSignedPayloads(t *testing.T) {
	cases := []struct {
		n    Int
		want []byte
	}{
		{Int64(-129), []byte{0x12, 0xff, 0x7f}},
		{Int64(-32768), []byte{0x12, 0x80, 0x00}},
		{Int64(math.MinInt64), []byte{0x14, 0x80, 0, 0, 0, 0, 0, 0, 0}},
		{mustBig(t, "-170141183460469231731687303715884105728"),
			append([]byte{0x15, 0x80}, make([]byte, 15)...)},
	}
	for _, tc := range cases {
		if got := mustEncode(t, tc.n); !bytes.Equal(got, tc.want) {
			t.Fatalf("%s: got %x want %x", tc.n, got, tc.want)
		}
	}
}

func TestIntegerRange(t *testing.T) {
	tooBig := new(big.Int).Lsh(big.NewInt(1), 128)
	_, err := NewInt(tooBig)
	expectKind(t, err, ErrValueTooLarge)

	tooSmall := new(big.Int).Neg(new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1)))
	_, err = NewInt(tooSmall)
	expectKind(t, err, ErrValueTooLarge)

	_, err = Marshal(tooBig)
	expectKind(t, err, ErrValueTooLarge)

	_, err = NewInt(nil)
	expectKind(t, err, ErrUnsupportedType)

	maxU := mustBig(t, "340282366920938463463374607431768211455")
	if got := mustDecode(t, mustEncode(t, maxU)); !Equal(got, maxU) {
		t.Fatalf("max uint128 round trip: got %v", got)
	}
	if got := maxU.Big().String(); got != "340282366920938463463374607431768211455" {
		t.Fatalf("Big() = %s", got)
	}
}

func TestFloatRoundTripBits(t *testing.T) {
	for _, f := range []float64{0, math.Copysign(0, -1), 3.14, -1.23456789, math.MaxFloat64,
		math.SmallestNonzeroFloat64, math.Inf(1), math.Inf(-1), math.NaN()} {
		b := mustEncode(t, Float(f))
		if b[0] != tagFloat64 || len(b) != 9 {
			t.Fatalf("%v: encoded %x", f, b)
		}
		got := mustDecode(t, b).(Float)
		if math.Float64bits(float64(got)) != math.Float64bits(f) {
			t.Fatalf("%v: bits %x want %x", f, math.Float64bits(float64(got)), math.Float64bits(f))
		}
	}
}

func TestFloat32DecodeOnly(t *testing.T) {
	b := []byte{tagFloat32, 0, 0, 0, 0}
	binary.BigEndian.PutUint32(b[1:], math.Float32bits(1.5))
	if got := mustDecode(t, b); !Equal(got, Float(1.5)) {
		t.Fatalf("got %v want 1.5", got)
	}
}

func TestStringLengthClasses(t *testing.T) {
	cases := []struct {
		n   int
		tag byte
		hdr int
	}{
		{0, 0x30, 1},
		{15, 0x3f, 1},
		{16, tagStr16, 3},
		{65535, tagStr16, 3},
		{65536, tagStr32, 5},
	}
	for _, tc := range cases {
		s := String(strings.Repeat("x", tc.n))
		b := mustEncode(t, s)
		if b[0] != tc.tag {
			t.Fatalf("len %d: tag 0x%02x want 0x%02x", tc.n, b[0], tc.tag)
		}
		if len(b) != tc.hdr+tc.n {
			t.Fatalf("len %d: encoded %d bytes", tc.n, len(b))
		}
		if got := mustDecode(t, b); !Equal(got, s) {
			t.Fatalf("len %d: round trip mismatch", tc.n)
		}
	}
}

func TestStringCountsUTF8Bytes(t *testing.T) {
	// five runes, fifteen bytes
	s := String("日本語日本")
	b := mustEncode(t, s)
	if b[0] != 0x3f {
		t.Fatalf("tag 0x%02x want 0x3f", b[0])
	}
	s = String("日本語日本語")
	if b = mustEncode(t, s); b[0] != tagStr16 {
		t.Fatalf("tag 0x%02x want string16", b[0])
	}
}

func TestBytesLengthClasses(t *testing.T) {
	cases := []struct {
		n   int
		tag byte
	}{
		{0, tagBytes8},
		{255, tagBytes8},
		{256, tagBytes16},
		{65535, tagBytes16},
		{65536, tagBytes32},
	}
	for _, tc := range cases {
		v := Bytes(bytes.Repeat([]byte{0xab}, tc.n))
		b := mustEncode(t, v)
		if b[0] != tc.tag {
			t.Fatalf("len %d: tag 0x%02x want 0x%02x", tc.n, b[0], tc.tag)
		}
		if got := mustDecode(t, b); !Equal(got, v) {
			t.Fatalf("len %d: round trip mismatch", tc.n)
		}
	}
}

func TestDecodedBytesDoNotAliasInput(t *testing.T) {
	b := mustEncode(t, Bytes("abc"))
	v := mustDecode(t, b).(Bytes)
	b[2] = 'Z'
	if string(v) != "abc" {
		t.Fatalf("decoded bytes alias input: %q", v)
	}
}

func TestContainerLengthClasses(t *testing.T) {
	list := func(n int) List {
		l := make(List, n)
		for i := range l {
			l[i] = Uint64(0)
		}
		return l
	}
	mapping := func(n int) Map {
		m := make(Map, n)
		for i := range m {
			m[i] = Pair{Key: Uint64(uint64(i)), Value: Uint64(0)}
		}
		return m
	}
	cases := []struct {
		v   Value
		tag byte
	}{
		{list(15), 0x5f},
		{list(16), tagList16},
		{list(10_000), tagList16},
		{mapping(15), 0x7f},
		{mapping(16), tagMap16},
		{mapping(10_000), tagMap16},
	}
	for _, tc := range cases {
		b := mustEncode(t, tc.v)
		if b[0] != tc.tag {
			t.Fatalf("tag 0x%02x want 0x%02x", b[0], tc.tag)
		}
		if got := mustDecode(t, b); !Equal(got, tc.v) {
			t.Fatalf("round trip mismatch for tag 0x%02x", tc.tag)
		}
	}
}

func TestEncodeElementCeiling(t *testing.T) {
	l := make(List, MaxEncodeElements+1)
	for i := range l {
		l[i] = Uint64(0)
	}
	_, err := Encode(l)
	expectKind(t, err, ErrValueTooLarge)

	b, err := Encode(l[:MaxEncodeElements])
	if err != nil {
		t.Fatalf("Encode(1,000,000 items): %v", err)
	}
	if b[0] != tagList32 || len(b) != 5+2*MaxEncodeElements {
		t.Fatalf("unexpected encoding header %x len %d", b[:5], len(b))
	}
	// decodable only up to the list32 ceiling
	_, err = Decode(b)
	expectKind(t, err, ErrSizeLimitExceeded)
}

func TestNestedRoundTrip(t *testing.T) {
	v := List{
		Map{
			{Key: String("users"), Value: List{
				Map{
					{Key: String("name"), Value: String("Ada")},
					{Key: String("tags"), Value: List{
						Map{{Key: String("deep"), Value: List{Int64(-7), Float(2.5), Bytes{0, 1}}}},
					}},
				},
			}},
			{Key: Uint64(7), Value: Bytes("seven")},
		},
		Uint128(1, 2),
		String(strings.Repeat("é", 40)),
	}
	if got := mustDecode(t, mustEncode(t, v)); !Equal(got, v) {
		t.Fatalf("nested round trip mismatch:\n got %#v\nwant %#v", got, v)
	}
}

func TestMapOrderPreserved(t *testing.T) {
	m := Map{
		{Key: String("z"), Value: Uint64(1)},
		{Key: String("a"), Value: Uint64(2)},
		{Key: String("m"), Value: Uint64(3)},
	}
	got := mustDecode(t, mustEncode(t, m)).(Map)
	for i := range m {
		if !Equal(got[i].Key, m[i].Key) {
			t.Fatalf("pair %d key %v want %v", i, got[i].Key, m[i].Key)
		}
	}
	if v, ok := got.Get(String("a")); !ok || !Equal(v, Uint64(2)) {
		t.Fatalf("Get(a) = %v, %v", v, ok)
	}
}

func TestTruncatedFixedWidth(t *testing.T) {
	for _, tag := range []byte{
		tagUint8, tagUint16, tagUint32, tagUint64, tagUint128,
		tagInt8, tagInt16, tagInt32, tagInt64, tagInt128,
		tagFloat32, tagFloat64,
	} {
		var w int
		switch tag {
		case tagFloat32:
			w = 4
		case tagFloat64:
			w = 8
		default:
			w = intWidths[tag&0x0f-1]
		}
		b := append([]byte{tag}, make([]byte, w-1)...)
		_, err := Decode(b)
		expectKind(t, err, ErrTruncatedInput)
	}

	_, err := Decode([]byte("\x04\x00\x00\x00\x00\x00\x00"))
	expectKind(t, err, ErrTruncatedInput)
}

func TestTruncatedLengthFieldsAndFixPayloads(t *testing.T) {
	for _, b := range [][]byte{
		{tagStr16, 0x00},
		{tagStr32, 0x00, 0x00},
		{tagBytes8},
		{tagBytes16, 0x01},
		{tagList16},
		{tagMap32, 0, 0, 0},
		{0x35, 'h', 'i'}, // fixstring of 5 with 2 bytes
	} {
		_, err := Decode(b)
		expectKind(t, err, ErrTruncatedInput)
	}
}

func TestInvalidDeclaredLength(t *testing.T) {
	b := append([]byte{tagStr32, 0xff, 0xff, 0xff, 0xff}, []byte("0123456789")...)
	_, err := Decode(b)
	expectKind(t, err, ErrInvalidLength)

	for _, b := range [][]byte{
		{tagStr16, 0x00, 0x05, 'a'},
		{tagBytes8, 0x03, 1, 2},
		{tagBytes16, 0x00, 0x04, 1},
		{tagBytes32, 0, 0, 0, 9, 1, 2},
	} {
		_, err := Decode(b)
		expectKind(t, err, ErrInvalidLength)
	}
}

func TestScalar32Ceiling(t *testing.T) {
	if testing.Short() {
		t.Skip("allocates more than 100MB")
	}
	n := MaxScalar32Len + 1
	b := make([]byte, 5+n)
	b[0] = tagBytes32
	binary.BigEndian.PutUint32(b[1:], uint32(n))
	_, err := Decode(b)
	expectKind(t, err, ErrSizeLimitExceeded)
}

func TestContainerDecodeCeilings(t *testing.T) {
	for _, b := range [][]byte{
		{tagList16, 0x27, 0x11}, // 10001
		{tagMap16, 0x27, 0x11},
		{tagList32, 0x00, 0x01, 0x86, 0xa1}, // 100001
		{tagMap32, 0x00, 0x01, 0x86, 0xa1},
	} {
		_, err := Decode(b)
		expectKind(t, err, ErrSizeLimitExceeded)
	}
	// at the ceiling the count is accepted and the missing items are reported
	_, err := Decode([]byte{tagList16, 0x27, 0x10})
	expectKind(t, err, ErrTruncatedInput)
}

func TestInvalidNestedTag(t *testing.T) {
	b := []byte{0x55, 0x01, 0x01, 0xff, 0x01, 0x02, 0x01, 0x03}
	_, err := Decode(b)
	expectKind(t, err, ErrInvalidTag)
	var pe *Error
	if !errors.As(err, &pe) || pe.Offset != 3 {
		t.Fatalf("expected offset 3, got %v", err)
	}
	if !strings.Contains(err.Error(), "0xff") {
		t.Fatalf("error does not name the tag: %v", err)
	}
}

func TestUnknownTopLevelTags(t *testing.T) {
	for _, tag := range []byte{0x00, 0x06, 0x10, 0x16, 0x20, 0x23, 0x40, 0x43, 0x60, 0x63, 0x80, 0x83, 0x90, 0x94, 0xff} {
		_, err := Decode([]byte{tag, 0, 0, 0, 0, 0, 0, 0, 0})
		expectKind(t, err, ErrInvalidTag)
	}
}

func TestMissingContainerElements(t *testing.T) {
	for _, b := range [][]byte{
		{0x52, 0x01, 0x01},       // fixlist of 2, one present
		{0x71, 0x31, 'k'},        // fixmap missing value
		{tagList16, 0x00, 0x01}, // list16 of 1, none present
	} {
		_, err := Decode(b)
		expectKind(t, err, ErrTruncatedInput)
	}
}

func TestInvalidUTF8Offset(t *testing.T) {
	b := []byte{0x34, 'a', 'b', 0xff, 'c'}
	_, err := Decode(b)
	expectKind(t, err, ErrInvalidEncoding)
	var pe *Error
	if !errors.As(err, &pe) || pe.Offset != 3 {
		t.Fatalf("expected offset 3, got %v", err)
	}

	// truncated multi-byte sequence inside string16
	b = []byte{tagStr16, 0x00, 0x02, 'x', 0xe6}
	_, err = Decode(b)
	if !errors.As(err, &pe) || pe.Offset != 4 {
		t.Fatalf("expected offset 4, got %v", err)
	}
}

func TestDecodeRecursionLimit(t *testing.T) {
	c := New(Options{MaxDepth: 4})
	ok := append(bytes.Repeat([]byte{0x51}, 4), 0x01, 0x00)
	if _, err := c.Decode(ok); err != nil {
		t.Fatalf("depth 4: %v", err)
	}
	_, err := c.Decode(append(bytes.Repeat([]byte{0x51}, 5), 0x01, 0x00))
	expectKind(t, err, ErrRecursionLimitExceeded)

	// default bound, hostile input far deeper than any call stack should see
	_, err = Decode(bytes.Repeat([]byte{0x71}, 100_000))
	expectKind(t, err, ErrRecursionLimitExceeded)
}

func TestEncodeRecursionLimit(t *testing.T) {
	var v Value = Uint64(1)
	for i := 0; i < DefaultMaxDepth+1; i++ {
		v = List{v}
	}
	_, err := Encode(v)
	expectKind(t, err, ErrRecursionLimitExceeded)

	// a list that contains itself
	cyc := List{nil}
	cyc[0] = cyc
	_, err = Encode(cyc)
	expectKind(t, err, ErrRecursionLimitExceeded)
}

func TestDecodePrefixReportsConsumed(t *testing.T) {
	enc := mustEncode(t, List{String("ab"), Map{{Key: Uint64(1), Value: Float(2)}}})
	b := append(append([]byte(nil), enc...), 0xde, 0xad)
	v, n, err := DecodePrefix(b)
	if err != nil {
		t.Fatalf("DecodePrefix: %v", err)
	}
	if n != len(enc) {
		t.Fatalf("consumed %d want %d", n, len(enc))
	}
	if _, err := Decode(b); err != nil {
		t.Fatalf("Decode with trailing bytes: %v", err)
	}
	if v.Kind() != KindList {
		t.Fatalf("kind %s", v.Kind())
	}
}

func TestNonMinimalTagsAccepted(t *testing.T) {
	got := mustDecode(t, []byte{tagUint32, 0, 0, 0, 5})
	if !Equal(got, Uint64(5)) {
		t.Fatalf("got %v", got)
	}
	got = mustDecode(t, []byte{tagStr16, 0, 2, 'h', 'i'})
	if !Equal(got, String("hi")) {
		t.Fatalf("got %v", got)
	}
}

func TestAppendKeepsPrefix(t *testing.T) {
	b, err := Append([]byte("pre"), Uint64(1))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "pre\x01\x01" {
		t.Fatalf("got %q", b)
	}
}

func TestErrorString(t *testing.T) {
	_, err := Decode([]byte{0x02, 0x01})
	want := "poculum: decode at offset 1: truncated input: uint16 needs 2 bytes, have 1"
	if err == nil || err.Error() != want {
		t.Fatalf("got %v want %q", err, want)
	}
}

type recLogger struct {
	NopLogger
	msgs []Fields
}

func (r *recLogger) Debug(_ string, f Fields) { r.msgs = append(r.msgs, f) }

func TestCoderLogsRejections(t *testing.T) {
	rl := &recLogger{}
	c := New(Options{Logger: rl})
	if _, err := c.Decode([]byte{0xee}); err == nil {
		t.Fatal("expected error")
	}
	if len(rl.msgs) != 1 || rl.msgs[0]["kind"] != ErrInvalidTag || rl.msgs[0]["offset"] != 0 {
		t.Fatalf("unexpected log records: %v", rl.msgs)
	}
}

func FuzzDecode(f *testing.F) {
	for _, v := range []Value{
		Uint64(42), Int64(-50), String("hello"), Float(3.14),
		List{Uint64(1), String("a"), Map{{Key: String("k"), Value: Bytes("v")}}},
	} {
		b, _ := Encode(v)
		f.Add(b)
	}
	f.Add([]byte{tagStr32, 0xff, 0xff, 0xff, 0xff})
	f.Fuzz(func(t *testing.T, b []byte) {
		v, n, err := DecodePrefix(b)
		if err != nil {
			return
		}
		if n > len(b) {
			t.Fatalf("consumed %d of %d bytes", n, len(b))
		}
		enc, err := Encode(v)
		if err != nil {
			t.Fatalf("re-encode %#v: %v", v, err)
		}
		again, err := Decode(enc)
		if err != nil {
			t.Fatalf("decode canonical %x: %v", enc, err)
		}
		if !Equal(again, v) {
			t.Fatalf("canonical round trip mismatch")
		}
	})
}
