// Package alert defines the materialized alert shape shared by the
// rule engine, the alert store, the broadcast hub, and the webhook
// dispatcher.
package alert

import "github.com/ortegarod/flashwatch/internal/txdecode"

// Alert is a single rule match, ready to log, persist, or POST to a
// webhook.
type Alert struct {
	RuleName        string  `json:"rule_name"`
	BlockNumber     *uint64 `json:"block_number,omitempty"`
	FlashblockIndex uint64  `json:"flashblock_index"`
	Tx              Tx      `json:"tx"`
	Timestamp       int64   `json:"timestamp"`
}

// Tx is the flattened projection of a decoded transaction carried on
// an alert.
type Tx struct {
	From     *string `json:"from"`
	To       *string `json:"to"`
	ToLabel  *string `json:"to_label"`
	ValueEth float64 `json:"value_eth"`
	Action   *string `json:"action"`
	Category string  `json:"category"`
}

// NewTx flattens a decoded transaction into its alert projection.
// DecodedTx has no `from` (raw transactions carry no sender without
// signature recovery, which is out of scope), so Tx.From is always
// nil here — the field exists because the canonical alert JSON shape
// reserves it for future use.
func NewTx(tx *txdecode.DecodedTx) Tx {
	var toLabel *string
	if tx.ToLabel != nil {
		name := tx.ToLabel.Name
		toLabel = &name
	}
	return Tx{
		To:       tx.To,
		ToLabel:  toLabel,
		ValueEth: tx.ValueEth,
		Action:   tx.Action,
		Category: tx.Category.String(),
	}
}
