// Package wire frames poculum payloads for storage in a byte provider.
// Frames carry an xxhash64 of every payload so a corrupted or foreign entry
// is detected before the poculum decoder sees it.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

const (
	version    byte = 1
	kindSingle byte = 1
	kindBulk   byte = 2

	singleHdr = 4 + 1 + 1 + 8 + 4
	bulkHdr   = 4 + 1 + 1 + 4
	// keyLen(2) + key(>=1) + sum(8) + vlen(4)
	minBulkItem = 2 + 1 + 8 + 4
)

var (
	ErrCorrupt = errors.New("poculum/wire: corrupt entry")
	magic4     = [...]byte{'P', 'O', 'C', 'U'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Single: magic(4) | ver(1) | kind(1=single) | sum(u64 be) | vlen(u32 be) | payload(vlen)
func EncodeSingle(payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(singleHdr + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindSingle)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], xxhash.Sum64(payload))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// DecodeSingle returns the payload as a subslice of b.
func DecodeSingle(b []byte) ([]byte, error) {
	if len(b) < singleHdr || !hasMagic(b) || b[4] != version || b[5] != kindSingle {
		return nil, ErrCorrupt
	}
	off := 6

	sum := binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen != len(b)-off { // exact: no trailing bytes
		return nil, ErrCorrupt
	}
	payload := b[off:]
	if xxhash.Sum64(payload) != sum {
		return nil, ErrCorrupt
	}
	return payload, nil
}

// Bulk:
//
//	magic(4) | ver(1) | kind(1=bulk) | n(u32 be)
//	keyLen(u16 be) | key(keyLen) | sum(u64 be) | vlen(u32 be) | payload(vlen) * n
type BulkItem struct {
	Key     string
	Payload []byte
}

func EncodeBulk(items []BulkItem) ([]byte, error) {
	total := bulkHdr
	for _, it := range items {
		if l := len(it.Key); l == 0 || l > 0xFFFF {
			return nil, fmt.Errorf("poculum/wire: invalid key length %d in bulk", l)
		}
		total += 2 + len(it.Key) + 8 + 4 + len(it.Payload)
	}

	var buf bytes.Buffer
	buf.Grow(total)

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindBulk)

	var u8 [8]byte
	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint32(u4[:], uint32(len(items)))
	buf.Write(u4[:])

	for _, it := range items {
		binary.BigEndian.PutUint16(u2[:], uint16(len(it.Key)))
		buf.Write(u2[:])
		buf.WriteString(it.Key)

		binary.BigEndian.PutUint64(u8[:], xxhash.Sum64(it.Payload))
		buf.Write(u8[:])

		binary.BigEndian.PutUint32(u4[:], uint32(len(it.Payload)))
		buf.Write(u4[:])
		buf.Write(it.Payload)
	}

	return buf.Bytes(), nil
}

// DecodeBulk returns items whose payloads are subslices of b.
func DecodeBulk(b []byte) ([]BulkItem, error) {
	if len(b) < bulkHdr || !hasMagic(b) || b[4] != version || b[5] != kindBulk {
		return nil, ErrCorrupt
	}
	off := 6

	n := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if n > (len(b)-off)/minBulkItem { // bound allocation by what could fit
		return nil, ErrCorrupt
	}

	items := make([]BulkItem, 0, n)
	for i := 0; i < n; i++ {
		// keyLen
		if off+2 > len(b) {
			return nil, ErrCorrupt
		}
		klen := int(binary.BigEndian.Uint16(b[off : off+2]))
		off += 2
		if klen <= 0 || klen > len(b)-off {
			return nil, ErrCorrupt
		}
		keyBytes := b[off : off+klen]
		off += klen

		// sum + vlen
		if off+12 > len(b) {
			return nil, ErrCorrupt
		}
		sum := binary.BigEndian.Uint64(b[off : off+8])
		off += 8
		vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
		off += 4
		if vlen > len(b)-off {
			return nil, ErrCorrupt
		}

		payload := b[off : off+vlen]
		off += vlen
		if xxhash.Sum64(payload) != sum {
			return nil, ErrCorrupt
		}

		items = append(items, BulkItem{
			Key:     string(keyBytes),
			Payload: payload,
		})
	}
	if off != len(b) {
		return nil, ErrCorrupt
	}

	return items, nil
}
