package pipeline

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"

	"github.com/ortegarod/flashwatch/internal/labels"
	"github.com/ortegarod/flashwatch/internal/txdecode"
)

const whaleThresholdEth = 1.0

// enrichFrame injects `_decoded_txs` (one entry per diff.transactions,
// aligned by index) and, when any are found, `_whale_alerts` into the
// raw frame JSON. It operates on a generic map rather than the typed
// Envelope so that every field the upstream feed sends — known or
// not — round-trips into the enriched payload published to
// dashboard subscribers.
func enrichFrame(text string) string {
	var fb map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fb); err != nil {
		return text
	}

	decodedTxs := decodeTxsForEnrichment(fb)
	fb["_decoded_txs"] = mustMarshal(decodedTxs)

	if whales := whaleAlertsForEnrichment(fb); len(whales) > 0 {
		fb["_whale_alerts"] = mustMarshal(whales)
	}

	out, err := json.Marshal(fb)
	if err != nil {
		return text
	}
	return string(out)
}

func decodeTxsForEnrichment(fb map[string]json.RawMessage) []json.RawMessage {
	txs := extractTransactions(fb)
	out := make([]json.RawMessage, 0, len(txs))
	for _, txHex := range txs {
		if dtx := txdecode.Decode(txHex); dtx != nil {
			out = append(out, mustMarshal(dtx))
			continue
		}
		raw := txHex
		if len(raw) > 40 {
			raw = raw[:40]
		}
		out = append(out, mustMarshal(map[string]string{"raw": raw}))
	}
	return out
}

// extractTransactions pulls diff.transactions out of the raw frame
// without going through the typed Envelope, matching enrichFrame's
// generic-map approach.
func extractTransactions(fb map[string]json.RawMessage) []string {
	diffRaw, ok := fb["diff"]
	if !ok {
		return nil
	}
	var diff struct {
		Transactions []string `json:"transactions"`
	}
	if err := json.Unmarshal(diffRaw, &diff); err != nil {
		return nil
	}
	return diff.Transactions
}

type whaleAlert struct {
	Address    string `json:"address"`
	BalanceEth string `json:"balance_eth"`
}

func whaleAlertsForEnrichment(fb map[string]json.RawMessage) []whaleAlert {
	metaRaw, ok := fb["metadata"]
	if !ok {
		return nil
	}
	var meta struct {
		NewAccountBalances map[string]string `json:"new_account_balances"`
	}
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		return nil
	}

	var alerts []whaleAlert
	for addr, valHex := range meta.NewAccountBalances {
		if _, known := labels.LookupAddress(labels.ToLower(addr)); known {
			continue // system/labelled addresses are not whales
		}
		eth, ok := hexWeiToEth(valHex)
		if !ok || eth <= whaleThresholdEth {
			continue
		}
		alerts = append(alerts, whaleAlert{
			Address:    addr,
			BalanceEth: fmt.Sprintf("%.4f", eth),
		})
	}
	return alerts
}

var weiPerEth = new(big.Float).SetInt64(1e18)

// hexWeiToEth parses a 0x-prefixed hex wei balance into ETH.
func hexWeiToEth(s string) (float64, bool) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0, false
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) > 32 {
		return 0, false
	}
	wei := new(uint256.Int).SetBytes(raw)
	f := new(big.Float).SetInt(wei.ToBig())
	f.Quo(f, weiPerEth)
	v, _ := f.Float64()
	return v, true
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}
