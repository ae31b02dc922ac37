package poculum

// Tag table. Multi-byte fields following a tag are big-endian.
const (
	tagUint8   byte = 0x01
	tagUint16  byte = 0x02
	tagUint32  byte = 0x03
	tagUint64  byte = 0x04
	tagUint128 byte = 0x05

	tagInt8   byte = 0x11
	tagInt16  byte = 0x12
	tagInt32  byte = 0x13
	tagInt64  byte = 0x14
	tagInt128 byte = 0x15

	tagFloat32 byte = 0x21 // decode only
	tagFloat64 byte = 0x22

	tagFixStrLow  byte = 0x30
	tagFixStrHigh byte = 0x3f
	tagStr16      byte = 0x41
	tagStr32      byte = 0x42

	tagFixListLow  byte = 0x50
	tagFixListHigh byte = 0x5f
	tagList16      byte = 0x61
	tagList32      byte = 0x62

	tagFixMapLow  byte = 0x70
	tagFixMapHigh byte = 0x7f
	tagMap16      byte = 0x81
	tagMap32      byte = 0x82

	tagBytes8  byte = 0x91
	tagBytes16 byte = 0x92
	tagBytes32 byte = 0x93

	fixMask   byte = 0x0f
	fixMaxLen      = 15
)

// intWidths is the payload size in bytes of each integer width class,
// indexed by tag - tagUint8 (or tag - tagInt8).
var intWidths = [...]int{1, 2, 4, 8, 16}

func tagName(tag byte) string {
	switch {
	case tag >= tagUint8 && tag <= tagUint128:
		return [...]string{"uint8", "uint16", "uint32", "uint64", "uint128"}[tag-tagUint8]
	case tag >= tagInt8 && tag <= tagInt128:
		return [...]string{"int8", "int16", "int32", "int64", "int128"}[tag-tagInt8]
	case tag == tagFloat32:
		return "float32"
	case tag == tagFloat64:
		return "float64"
	case tag >= tagFixStrLow && tag <= tagFixStrHigh:
		return "fixstring"
	case tag == tagStr16:
		return "string16"
	case tag == tagStr32:
		return "string32"
	case tag >= tagFixListLow && tag <= tagFixListHigh:
		return "fixlist"
	case tag == tagList16:
		return "list16"
	case tag == tagList32:
		return "list32"
	case tag >= tagFixMapLow && tag <= tagFixMapHigh:
		return "fixmap"
	case tag == tagMap16:
		return "map16"
	case tag == tagMap32:
		return "map32"
	case tag == tagBytes8:
		return "bytes8"
	case tag == tagBytes16:
		return "bytes16"
	case tag == tagBytes32:
		return "bytes32"
	}
	return "unknown"
}
