// Package pipeline is the orchestrator: it owns the upstream
// WebSocket connection, decodes and enriches every flashblock frame,
// publishes it to dashboard subscribers, evaluates the rule engine
// against each transaction, and persists and dispatches any resulting
// alerts.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ortegarod/flashwatch/internal/alert"
	"github.com/ortegarod/flashwatch/internal/alertstore"
	"github.com/ortegarod/flashwatch/internal/config"
	"github.com/ortegarod/flashwatch/internal/flashblock"
	"github.com/ortegarod/flashwatch/internal/hub"
	"github.com/ortegarod/flashwatch/internal/numutil"
	"github.com/ortegarod/flashwatch/internal/rules"
	"github.com/ortegarod/flashwatch/internal/streamclient"
	"github.com/ortegarod/flashwatch/internal/txdecode"
	"github.com/ortegarod/flashwatch/internal/webhook"
	"github.com/ortegarod/flashwatch/internal/wire"
)

const pruneInterval = time.Hour

// Pipeline wires together every component reachable from one run of
// flashwatch: the stream client, the broadcast hub, the optional rule
// engine and alert store, and the optional webhook sender.
type Pipeline struct {
	cfg    config.AppConfig
	logger *zap.Logger

	Hub    *hub.Hub
	Store  *alertstore.Store
	Engine *rules.Engine
	Sender webhook.Sender
	Rules  *rules.Config

	client *streamclient.Client
	dedup  *dedupRing

	currentBlock   uint64
	haveCurrentBlk bool
	lastPayloadID  string
	observedBlocks uint64
}

// New builds a Pipeline from cfg. It opens the alert store and loads
// the rule config eagerly (both are startup-fatal), but does not
// connect to the upstream feed — call Run for that.
func New(cfg config.AppConfig, logger *zap.Logger) (*Pipeline, error) {
	p := &Pipeline{
		cfg:    cfg,
		logger: logger,
		Hub:    hub.New(),
		dedup:  newDedupRing(),
	}

	if cfg.RulesPath != "" {
		rulesCfg, err := loadRulesFile(cfg.RulesPath)
		if err != nil {
			return nil, fmt.Errorf("loading rules from %s: %w", cfg.RulesPath, err)
		}
		p.Rules = rulesCfg
		p.Engine = rules.NewEngine(rulesCfg)

		store, err := alertstore.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening alert store at %s: %w", cfg.DBPath, err)
		}
		p.Store = store
		p.Sender = webhook.NewHTTPSender()
	}

	p.client = streamclient.New(cfg.WSURL, p.handleFrame)
	p.client.OnState = p.logState
	p.client.OnError = p.logError

	return p, nil
}

// Close releases the alert store, if one was opened.
func (p *Pipeline) Close() error {
	if p.Store != nil {
		return p.Store.Close()
	}
	return nil
}

// Run starts the reader loop and, if a rule engine is configured, the
// hourly retention pruner. It blocks until ctx is canceled or a
// component fails unrecoverably.
func (p *Pipeline) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return p.client.Run(ctx)
	})

	if p.Store != nil && p.Rules != nil {
		g.Go(func() error {
			return p.runPruner(ctx)
		})
	}

	return g.Wait()
}

func (p *Pipeline) runPruner(ctx context.Context) error {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := p.Store.Prune(p.Rules.Global.RetentionDays)
			if err != nil {
				p.logger.Warn("prune failed", zap.Error(err))
				continue
			}
			if n > 0 {
				p.logger.Info("pruned old alerts", zap.Int64("count", n), zap.Uint64("retention_days", p.Rules.Global.RetentionDays))
			}
		}
	}
}

// handleFrame is the per-frame hot path: decode -> dedup -> enrich +
// publish -> rule-check -> persist -> webhook.
func (p *Pipeline) handleFrame(data []byte) error {
	text, ok := wire.Decode(data)
	if !ok {
		return nil // malformed/undecodable frame: skip, never fail the connection
	}

	env, err := flashblock.Parse(text)
	if err == nil && !p.dedup.seenBefore(env.PayloadID, env.Index) {
		p.trackBlock(env)
		p.Hub.Publish(enrichFrame(text))
		p.checkRules(env)
	} else if err != nil {
		p.logger.Debug("unparseable frame", zap.Error(err))
	}

	return nil
}

// trackBlock updates the observed-blocks counter. A new payload_id
// signals a new base block, regardless of whether this frame carries
// its own block number. The current block number is tracked in
// checkRules.
func (p *Pipeline) trackBlock(env *flashblock.Envelope) {
	if env.PayloadID != p.lastPayloadID {
		p.observedBlocks++
		p.lastPayloadID = env.PayloadID
	}
}

// ObservedBlocks returns the number of distinct base blocks seen so
// far (by payload_id), for diagnostics.
func (p *Pipeline) ObservedBlocks() uint64 {
	return p.observedBlocks
}

func (p *Pipeline) checkRules(env *flashblock.Envelope) {
	if p.Engine == nil {
		return
	}

	if bn, ok := env.BlockNumber(); ok {
		if p.haveCurrentBlk && numutil.AbsoluteDifference(bn, p.currentBlock) > 1 {
			p.logger.Warn("non-sequential block number from upstream",
				zap.Uint64("previous_block", p.currentBlock), zap.Uint64("new_block", bn))
		}
		p.currentBlock, p.haveCurrentBlk = bn, true
	}
	var blockNumber *uint64
	if p.haveCurrentBlk {
		bn := p.currentBlock
		blockNumber = &bn
	}

	for _, txHex := range env.Diff.Transactions {
		decoded := txdecode.Decode(txHex)
		if decoded == nil {
			continue
		}
		alerts := p.Engine.Check(decoded, blockNumber, env.Index)
		for _, a := range alerts {
			p.deliverAlert(a)
		}
	}
}

func (p *Pipeline) deliverAlert(a alert.Alert) {
	if p.Store != nil {
		if err := p.Store.Insert(a); err != nil {
			p.logger.Debug("failed to persist alert", zap.Error(err))
		}
	}

	webhookURL := p.webhookForRule(a.RuleName)
	if webhookURL == "" || p.Sender == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.Sender.Send(ctx, webhookURL, a); err != nil {
		p.logger.Debug("webhook delivery failed", zap.String("url", webhookURL), zap.Error(err))
	}
}

func (p *Pipeline) webhookForRule(name string) string {
	if p.Rules == nil {
		return ""
	}
	for _, r := range p.Rules.Rules {
		if r.Name == name && r.Webhook != nil {
			return *r.Webhook
		}
	}
	return ""
}

func loadRulesFile(path string) (*rules.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	return rules.LoadConfig(data)
}

func (p *Pipeline) logState(s streamclient.State) {
	p.logger.Info("stream state", zap.String("state", s.String()))
}

func (p *Pipeline) logError(err error) {
	p.logger.Warn("stream error", zap.Error(err))
}
