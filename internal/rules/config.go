package rules

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level rule configuration document.
type Config struct {
	Rules  []Rule       `toml:"rules"`
	Global GlobalConfig `toml:"global"`
}

// GlobalConfig holds the options that apply across all rules.
type GlobalConfig struct {
	CooldownSecs  uint64 `toml:"cooldown_secs"`
	MaxPerMinute  uint64 `toml:"max_per_minute"`
	BatchSecs     uint64 `toml:"batch_secs"`
	RetentionDays uint64 `toml:"retention_days"`
}

const (
	defaultCooldownSecs  = 10
	defaultMaxPerMinute  = 30
	defaultRetentionDays = 30
)

// Rule is one named trigger, optionally wired to a webhook.
type Rule struct {
	Name         string  `toml:"name"`
	Enabled      *bool   `toml:"enabled"`
	Trigger      Trigger `toml:"trigger"`
	Webhook      *string `toml:"webhook"`
	CooldownSecs *uint64 `toml:"cooldown_secs"`
}

// IsEnabled reports whether the rule is active; rules default to
// enabled when the field is omitted.
func (r Rule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// TriggerKind discriminates the five trigger variants a rule can use.
type TriggerKind string

const (
	KindValueTransfer TriggerKind = "value-transfer"
	KindProtocol      TriggerKind = "protocol"
	KindFunctionCall  TriggerKind = "function-call"
	KindLargeValue    TriggerKind = "large-value"
	KindAddress       TriggerKind = "address"
)

// Trigger is the flattened TOML shape of a rule's match condition. All
// five variants' fields live side by side; Validate rejects any kind
// outside the five recognized ones and checks each variant's required
// fields, mirroring a tagged-union decode without needing a custom
// TOML unmarshaler per variant.
type Trigger struct {
	Kind       TriggerKind `toml:"kind"`
	MinEth     float64     `toml:"min_eth"`
	Names      []string    `toml:"names"`
	Categories []string    `toml:"categories"`
	Actions    []string    `toml:"actions"`
	Address    string      `toml:"address"`
}

// Validate checks that the trigger's kind is recognized and that its
// kind-specific required fields are present. Returns a descriptive
// error the orchestrator surfaces as a fatal startup failure.
func (t Trigger) Validate(ruleName string) error {
	switch t.Kind {
	case KindValueTransfer, KindProtocol, KindFunctionCall, KindLargeValue:
		// no variant-specific required field beyond what defaults cover
	case KindAddress:
		if strings.TrimSpace(t.Address) == "" {
			return fmt.Errorf("rule %q: trigger kind %q requires \"address\"", ruleName, t.Kind)
		}
	case "":
		return fmt.Errorf("rule %q: trigger has no \"kind\"", ruleName)
	default:
		return fmt.Errorf("rule %q: unknown trigger kind %q", ruleName, t.Kind)
	}
	if t.Kind == KindFunctionCall && len(t.Actions) == 0 {
		return fmt.Errorf("rule %q: trigger kind %q requires at least one action", ruleName, t.Kind)
	}
	return nil
}

// LoadConfig parses a TOML-shaped rules document and validates every
// rule's trigger. Applies global defaults (cooldown 10s, 30/min,
// 30-day retention) where the document omits them.
func LoadConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing rule config: %w", err)
	}

	if cfg.Global.CooldownSecs == 0 {
		cfg.Global.CooldownSecs = defaultCooldownSecs
	}
	if cfg.Global.MaxPerMinute == 0 {
		cfg.Global.MaxPerMinute = defaultMaxPerMinute
	}
	if cfg.Global.RetentionDays == 0 {
		cfg.Global.RetentionDays = defaultRetentionDays
	}

	seen := make(map[string]struct{}, len(cfg.Rules))
	for _, r := range cfg.Rules {
		if strings.TrimSpace(r.Name) == "" {
			return nil, fmt.Errorf("rule config: a rule is missing its \"name\"")
		}
		if _, dup := seen[r.Name]; dup {
			return nil, fmt.Errorf("rule config: duplicate rule name %q", r.Name)
		}
		seen[r.Name] = struct{}{}
		if err := r.Trigger.Validate(r.Name); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}
