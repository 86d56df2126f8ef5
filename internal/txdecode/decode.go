// Package txdecode recovers destination, value and function intent
// from a raw signed transaction without needing a chain node.
package txdecode

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/holiman/uint256"

	"github.com/ortegarod/flashwatch/internal/labels"
)

// BaseUnitTransferAction is the action recorded for a plain value
// transfer: empty calldata, nonzero value.
const BaseUnitTransferAction = "base-unit transfer"

// DecodedTx is an immutable view of a raw transaction: what it touches,
// how much value it moves, and what it is probably doing.
type DecodedTx struct {
	To       *string
	ToLabel  *labels.Label
	ValueWei *uint256.Int
	ValueEth float64
	Action   *string
	Category labels.Category
}

// Decode parses a hex-encoded raw signed transaction. Returns nil if
// the bytes are empty, malformed, truncated, or of an unsupported /
// explicitly-skipped type (0x7e deposit transactions). Never panics.
func Decode(hexStr string) *DecodedTx {
	hexStr = strings.TrimPrefix(hexStr, "0x")
	raw, err := hex.DecodeString(hexStr)
	if err != nil || len(raw) == 0 {
		return nil
	}

	var txType byte
	var rlpBytes []byte
	if raw[0] <= 0x7f {
		txType = raw[0]
		rlpBytes = raw[1:]
	} else {
		txType = 0
		rlpBytes = raw
	}

	if txType == 0x7e {
		return nil // deposit transaction, explicitly out of scope
	}

	items := decodeList(rlpBytes)
	if items == nil {
		return nil
	}

	var toBytes, valueBytes, dataBytes []byte
	switch {
	case txType == 0x02 && len(items) >= 8: // EIP-1559
		toBytes, valueBytes, dataBytes = items[5], items[6], items[7]
	case txType == 0x01 && len(items) >= 7: // access-list (EIP-2930)
		toBytes, valueBytes, dataBytes = items[4], items[5], items[6]
	case txType == 0 && len(items) >= 6: // legacy
		toBytes, valueBytes, dataBytes = items[3], items[4], items[5]
	default:
		return nil
	}

	var to *string
	if len(toBytes) > 0 {
		s := "0x" + hex.EncodeToString(toBytes)
		to = &s
	}

	valueWei, ok := bytesToUint256(valueBytes)
	if !ok {
		return nil
	}
	valueEth := weiToEth(valueWei)

	var toLabel *labels.Label
	if to != nil {
		if l, found := labels.LookupAddress(labels.ToLower(*to)); found {
			toLabel = &l
		}
	}

	var action *string
	switch {
	case len(dataBytes) >= 4:
		var sel [4]byte
		copy(sel[:], dataBytes[:4])
		if name, found := labels.LookupSelector(sel); found {
			action = &name
		}
	case len(dataBytes) == 0 && valueWei.Sign() > 0:
		s := BaseUnitTransferAction
		action = &s
	}

	category := labels.Unknown
	if toLabel != nil {
		category = toLabel.Category
	}

	return &DecodedTx{
		To:       to,
		ToLabel:  toLabel,
		ValueWei: valueWei,
		ValueEth: valueEth,
		Action:   action,
		Category: category,
	}
}

// bytesToUint256 parses a big-endian byte slice into a 128-bit-range
// unsigned value. A slice longer than 16 bytes cannot represent a
// plausible transaction value and is treated as malformed.
func bytesToUint256(b []byte) (*uint256.Int, bool) {
	if len(b) > 16 {
		return nil, false
	}
	return new(uint256.Int).SetBytes(b), true
}

var weiPerEth = new(big.Float).SetInt64(1e18)

func weiToEth(wei *uint256.Int) float64 {
	f := new(big.Float).SetInt(wei.ToBig())
	f.Quo(f, weiPerEth)
	v, _ := f.Float64()
	return v
}
