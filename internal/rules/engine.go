// Package rules implements the stateful rule engine: per-rule
// cooldowns and a global rate limit gating which decoded transactions
// become alerts.
package rules

import (
	"strings"
	"sync"
	"time"

	"github.com/ortegarod/flashwatch/internal/alert"
	"github.com/ortegarod/flashwatch/internal/labels"
	"github.com/ortegarod/flashwatch/internal/txdecode"
)

const rateLimitWindow = 60 * time.Second

// Engine evaluates enabled rules against decoded transactions. It owns
// its own cooldown/rate-limit state — never a package-level
// singleton — and is safe to share into a single reader goroutine
// behind a mutex.
type Engine struct {
	cfg *Config

	mu          sync.Mutex
	lastFired   map[string]time.Time
	firesWindow []time.Time
}

// NewEngine builds an Engine from a validated Config.
func NewEngine(cfg *Config) *Engine {
	return &Engine{
		cfg:       cfg,
		lastFired: make(map[string]time.Time),
	}
}

// Check evaluates every enabled rule, in configuration order, against
// tx. Returns the alerts produced, in rule order. A rule engine-wide
// throttle halts evaluation of all remaining rules for this call once
// the rolling 60-second fire count reaches the configured maximum.
func (e *Engine) Check(tx *txdecode.DecodedTx, blockNumber *uint64, fbIndex uint64) []alert.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	epoch := now.Unix()

	e.firesWindow = pruneWindow(e.firesWindow, now)

	var alerts []alert.Alert
	for _, rule := range e.cfg.Rules {
		if !rule.IsEnabled() {
			continue
		}
		if uint64(len(e.firesWindow)) >= e.cfg.Global.MaxPerMinute {
			break
		}

		cooldown := e.cfg.Global.CooldownSecs
		if rule.CooldownSecs != nil {
			cooldown = *rule.CooldownSecs
		}
		if last, ok := e.lastFired[rule.Name]; ok && now.Sub(last) < time.Duration(cooldown)*time.Second {
			continue
		}

		if !matches(rule.Trigger, tx) {
			continue
		}

		e.lastFired[rule.Name] = now
		e.firesWindow = append(e.firesWindow, now)

		alerts = append(alerts, alert.Alert{
			RuleName:        rule.Name,
			BlockNumber:     blockNumber,
			FlashblockIndex: fbIndex,
			Tx:              alert.NewTx(tx),
			Timestamp:       epoch,
		})
	}

	return alerts
}

func pruneWindow(window []time.Time, now time.Time) []time.Time {
	cut := 0
	for cut < len(window) && now.Sub(window[cut]) >= rateLimitWindow {
		cut++
	}
	if cut == 0 {
		return window
	}
	return append(window[:0], window[cut:]...)
}

func matches(t Trigger, tx *txdecode.DecodedTx) bool {
	switch t.Kind {
	case KindValueTransfer:
		return tx.Action != nil && *tx.Action == txdecode.BaseUnitTransferAction && tx.ValueEth >= t.MinEth

	case KindProtocol:
		if tx.ValueEth < t.MinEth {
			return false
		}
		if !nameMatches(t.Names, tx.ToLabel) {
			return false
		}
		return categoryMatches(t.Categories, tx.Category)

	case KindFunctionCall:
		if tx.ValueEth < t.MinEth || tx.Action == nil {
			return false
		}
		for _, want := range t.Actions {
			if strings.Contains(*tx.Action, want) {
				return true
			}
		}
		return false

	case KindLargeValue:
		return tx.ValueEth >= t.MinEth

	case KindAddress:
		if tx.ValueEth < t.MinEth || tx.To == nil {
			return false
		}
		return strings.EqualFold(*tx.To, t.Address)

	default:
		return false
	}
}

func nameMatches(names []string, label *labels.Label) bool {
	if len(names) == 0 {
		return true
	}
	if label == nil {
		return false
	}
	for _, n := range names {
		if strings.EqualFold(label.Name, n) {
			return true
		}
	}
	return false
}

func categoryMatches(categories []string, cat labels.Category) bool {
	if len(categories) == 0 {
		return true
	}
	for _, c := range categories {
		if strings.EqualFold(cat.String(), c) {
			return true
		}
	}
	return false
}
