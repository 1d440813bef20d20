// Package intent resolves normalized utterances into actions through an
// ordered cascade of matching strategies.
package intent

import (
	"time"

	"go.uber.org/zap"

	"github.com/themobileprof/deskpilot/internal/catalog"
	"github.com/themobileprof/deskpilot/internal/journey"
	"github.com/themobileprof/deskpilot/pkg/models"
)

// Resolver runs the cascade. It holds no catalog state of its own and is
// safe for concurrent use.
type Resolver struct {
	strategies []Strategy
	logger     *zap.Logger
}

// Option configures a Resolver
type Option func(*config)

type config struct {
	helpOverlay bool
	logger      *zap.Logger
}

// WithHelpOverlay makes help phrases resolve to Noop because an external
// overlay has already displayed the help
func WithHelpOverlay(on bool) Option {
	return func(c *config) { c.helpOverlay = on }
}

// WithLogger sets the logger used for disabled-feature and trace output
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// NewResolver creates a resolver with the standard cascade:
// directive, literal, help, macro, rule, context, fuzzy.
func NewResolver(opts ...Option) *Resolver {
	cfg := config{logger: zap.NewNop()}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	return &Resolver{
		strategies: []Strategy{
			newDirectiveStrategy(),
			literalStrategy{},
			helpStrategy{overlay: cfg.helpOverlay},
			macroStrategy{},
			ruleStrategy{},
			contextStrategy{},
			fuzzyStrategy{},
		},
		logger: cfg.logger,
	}
}

// StrategyNames lists the cascade stages in evaluation order
func (r *Resolver) StrategyNames() []string {
	names := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		names[i] = s.Name()
	}
	return names
}

// Resolve returns the first candidate produced by the cascade. The
// second return value is false when nothing matched (Unresolved).
func (r *Resolver) Resolve(text string, hc models.HostContext, snap *catalog.Snapshot) (models.MatchCandidate, bool) {
	return r.ResolveTraced(text, hc, snap, nil)
}

// ResolveTraced is Resolve with every stage recorded on j
func (r *Resolver) ResolveTraced(text string, hc models.HostContext, snap *catalog.Snapshot, j *journey.Journey) (models.MatchCandidate, bool) {
	if snap == nil || text == "" {
		return models.MatchCandidate{}, false
	}
	in := Input{Text: text, Context: hc, Catalog: snap}

	for _, s := range r.strategies {
		start := time.Now()
		c, ok := s.TryMatch(in)
		if !ok {
			j.AddStep(s.Name(), false, 0, time.Since(start), "")
			continue
		}
		j.AddStep(s.Name(), true, c.Confidence, time.Since(start), c.Action.Describe())

		if noop, isNoop := c.Action.(models.Noop); isNoop {
			r.logger.Info("utterance consumed without action",
				zap.String("text", text),
				zap.String("strategy", c.Strategy),
				zap.String("reason", noop.Reason))
		} else {
			r.logger.Debug("utterance resolved",
				zap.String("text", text),
				zap.String("strategy", c.Strategy),
				zap.Float64("confidence", c.Confidence),
				zap.String("action", string(c.Action.Kind())))
		}
		return c, true
	}

	r.logger.Debug("utterance unresolved", zap.String("text", text), zap.String("process", hc.Process))
	return models.MatchCandidate{}, false
}
