// Package flashblock models the flashblock envelope and exposes
// panic-free accessors over its hex-encoded numeric fields.
package flashblock

import (
	"encoding/json"

	"github.com/ortegarod/flashwatch/internal/numutil"
)

// Envelope is the typed view of one flashblock frame. Extra preserves
// any top-level field this struct doesn't know about, so the wire
// schema can grow without losing data on re-serialization.
type Envelope struct {
	PayloadID string                     `json:"payload_id"`
	Index     uint64                     `json:"index"`
	Base      *BaseHeader                `json:"base,omitempty"`
	Diff      DiffBody                   `json:"diff"`
	Metadata  json.RawMessage            `json:"metadata,omitempty"`
	Extra     map[string]json.RawMessage `json:"-"`
}

// BaseHeader is present only at Index == 0: the header of the
// base-layer block this flashblock sequence is building toward.
type BaseHeader struct {
	ParentHash    string                     `json:"parent_hash"`
	FeeRecipient  string                     `json:"fee_recipient"`
	BlockNumber   string                     `json:"block_number"`
	GasLimit      string                     `json:"gas_limit"`
	Timestamp     string                     `json:"timestamp"`
	BaseFeePerGas string                     `json:"base_fee_per_gas"`
	Extra         map[string]json.RawMessage `json:"-"`
}

// DiffBody is the incremental state this flashblock contributes.
type DiffBody struct {
	StateRoot    string                     `json:"state_root"`
	BlockHash    string                     `json:"block_hash"`
	GasUsed      string                     `json:"gas_used"`
	Transactions []string                   `json:"transactions"`
	Receipts     json.RawMessage            `json:"receipts,omitempty"`
	Extra        map[string]json.RawMessage `json:"-"`
}

// Parse deserializes JSON text into an Envelope. Unknown top-level,
// base, and diff fields are captured in each struct's Extra bag so
// re-marshaling round-trips them. A JSON syntax/shape error is
// reported (the orchestrator skips the frame and logs at debug).
func Parse(text string) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return nil, err
	}

	env.Extra = extraFields([]byte(text), "payload_id", "index", "base", "diff", "metadata")
	if env.Base != nil {
		// Re-decode the base object alone to recover its unknown fields.
		var raw json.RawMessage
		if baseRaw, ok := lookupRaw([]byte(text), "base"); ok {
			raw = baseRaw
			env.Base.Extra = extraFields(raw, "parent_hash", "fee_recipient", "block_number", "gas_limit", "timestamp", "base_fee_per_gas")
		}
	}
	if diffRaw, ok := lookupRaw([]byte(text), "diff"); ok {
		env.Diff.Extra = extraFields(diffRaw, "state_root", "block_hash", "gas_used", "transactions", "receipts")
	}

	return &env, nil
}

func lookupRaw(text []byte, field string) (json.RawMessage, bool) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(text, &m); err != nil {
		return nil, false
	}
	raw, ok := m[field]
	return raw, ok
}

func extraFields(text []byte, known ...string) map[string]json.RawMessage {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(text, &m); err != nil {
		return nil
	}
	knownSet := make(map[string]struct{}, len(known))
	for _, k := range known {
		knownSet[k] = struct{}{}
	}
	extra := make(map[string]json.RawMessage)
	for k, v := range m {
		if _, isKnown := knownSet[k]; !isKnown {
			extra[k] = v
		}
	}
	if len(extra) == 0 {
		return nil
	}
	return extra
}

// BlockNumber parses the base header's block number, if this is the
// first flashblock of a block and the field is well-formed hex.
func (e *Envelope) BlockNumber() (uint64, bool) {
	if e.Base == nil {
		return 0, false
	}
	return numutil.ParseHexUint64(e.Base.BlockNumber)
}

// GasUsed parses the diff's cumulative gas used so far in the block.
func (e *Envelope) GasUsed() (uint64, bool) {
	return numutil.ParseHexUint64(e.Diff.GasUsed)
}

// GasLimit parses the base header's gas limit.
func (e *Envelope) GasLimit() (uint64, bool) {
	if e.Base == nil {
		return 0, false
	}
	return numutil.ParseHexUint64(e.Base.GasLimit)
}

// Timestamp parses the base header's timestamp.
func (e *Envelope) Timestamp() (uint64, bool) {
	if e.Base == nil {
		return 0, false
	}
	return numutil.ParseHexUint64(e.Base.Timestamp)
}

// TxCount returns the number of raw transactions in this flashblock.
func (e *Envelope) TxCount() int {
	return len(e.Diff.Transactions)
}

// BaseFeeGwei parses the base header's base fee per gas and rescales
// it from wei to Gwei (divide by 1e9).
func (e *Envelope) BaseFeeGwei() (float64, bool) {
	if e.Base == nil {
		return 0, false
	}
	wei, ok := numutil.ParseHexUint64(e.Base.BaseFeePerGas)
	if !ok {
		return 0, false
	}
	return float64(wei) / 1e9, true
}
