package txdecode

// A minimal RLP decoder — just enough to pull the positional scalar
// items out of a typed or legacy transaction's top-level list. It does
// not recurse into nested lists (the access-list field is always a
// list-of-lists, but none of the positions this package reads are
// themselves lists), and it never reads past the end of the input.

// decodeList decodes data as a single top-level RLP list and returns
// the byte-slices of its items, in order. Returns nil if data is not a
// well-formed list or any item is truncated/overlong.
func decodeList(data []byte) [][]byte {
	if len(data) == 0 || data[0] < 0xc0 {
		return nil
	}
	payload, _, ok := decodeItem(data)
	if !ok {
		return nil
	}
	var items [][]byte
	pos := 0
	for pos < len(payload) {
		item, consumed, ok := decodeItem(payload[pos:])
		if !ok {
			return nil
		}
		items = append(items, item)
		pos += consumed
	}
	return items
}

// decodeItem decodes a single RLP item (string or list) at the start
// of data, returning its payload, the number of bytes consumed
// (header + payload), and whether decoding succeeded.
func decodeItem(data []byte) ([]byte, int, bool) {
	if len(data) == 0 {
		return nil, 0, false
	}
	prefix := data[0]

	switch {
	case prefix < 0x80:
		return data[:1], 1, true

	case prefix <= 0xb7:
		n := int(prefix - 0x80)
		if len(data) < 1+n {
			return nil, 0, false
		}
		return data[1 : 1+n], 1 + n, true

	case prefix <= 0xbf:
		lenOfLen := int(prefix - 0xb7)
		if len(data) < 1+lenOfLen {
			return nil, 0, false
		}
		n, ok := decodeLength(data[1 : 1+lenOfLen])
		if !ok || len(data) < 1+lenOfLen+n {
			return nil, 0, false
		}
		return data[1+lenOfLen : 1+lenOfLen+n], 1 + lenOfLen + n, true

	case prefix <= 0xf7:
		n := int(prefix - 0xc0)
		if len(data) < 1+n {
			return nil, 0, false
		}
		return data[1 : 1+n], 1 + n, true

	default:
		lenOfLen := int(prefix - 0xf7)
		if len(data) < 1+lenOfLen {
			return nil, 0, false
		}
		n, ok := decodeLength(data[1 : 1+lenOfLen])
		if !ok || len(data) < 1+lenOfLen+n {
			return nil, 0, false
		}
		return data[1+lenOfLen : 1+lenOfLen+n], 1 + lenOfLen + n, true
	}
}

// decodeLength parses a big-endian length field. Guards against the
// kind of absurd length-of-length value that would overflow int on a
// 32-bit build.
func decodeLength(b []byte) (int, bool) {
	if len(b) == 0 || len(b) > 8 {
		return 0, false
	}
	var n uint64
	for _, c := range b {
		n = n<<8 | uint64(c)
	}
	if n > (1<<31 - 1) {
		return 0, false
	}
	return int(n), true
}
