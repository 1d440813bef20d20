// Package pilot runs one utterance end to end: normalize, resolve through
// the cascade, fall back to the AI adapter, dispatch, then record.
package pilot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/themobileprof/deskpilot/internal/ai"
	"github.com/themobileprof/deskpilot/internal/catalog"
	"github.com/themobileprof/deskpilot/internal/engine"
	"github.com/themobileprof/deskpilot/internal/intent"
	"github.com/themobileprof/deskpilot/internal/interfaces"
	"github.com/themobileprof/deskpilot/internal/journey"
	"github.com/themobileprof/deskpilot/pkg/models"
)

// ModeNatural routes the payload through the pipeline unchanged
const ModeNatural = "natural"

// StrategyAI marks actions produced by the fallback
const StrategyAI = "ai"

// Deps are the collaborators of a Pilot. Store, Resolver and Dispatcher
// are required; everything else may be nil.
type Deps struct {
	Store      *catalog.Store
	Resolver   *intent.Resolver
	AI         *ai.Adapter
	Dispatcher interfaces.Dispatcher
	Probe      interfaces.ContextProbe
	History    interfaces.HistoryStore
	Journeys   *journey.Logger
	Logger     *zap.Logger
}

// Pilot owns one session of utterances
type Pilot struct {
	store    *catalog.Store
	resolver *intent.Resolver
	ai       *ai.Adapter
	dispatch interfaces.Dispatcher
	probe    interfaces.ContextProbe
	history  interfaces.HistoryStore
	journeys *journey.Logger
	session  string
	logger   *zap.Logger
}

// New creates a pilot with a fresh session ID
func New(d Deps) (*Pilot, error) {
	if d.Store == nil || d.Resolver == nil || d.Dispatcher == nil {
		return nil, errors.New("pilot: store, resolver and dispatcher are required")
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pilot{
		store:    d.Store,
		resolver: d.Resolver,
		ai:       d.AI,
		dispatch: d.Dispatcher,
		probe:    d.Probe,
		history:  d.History,
		journeys: d.Journeys,
		session:  uuid.NewString(),
		logger:   logger,
	}, nil
}

// Session returns the ID stamped on every history row of this pilot
func (p *Pilot) Session() string {
	return p.session
}

// Resolution is what the pipeline decided for one utterance
type Resolution struct {
	Raw        string
	Normalized string
	Host       models.HostContext
	Strategy   string // cascade stage, "ai", or "" when nothing matched
	Confidence float64
	Action     models.ActionRequest
	// Fallback is the AI failure when neither the cascade nor the
	// oracle produced an action
	Fallback    *ai.FallbackError
	Suggestions []string

	snap *catalog.Snapshot
}

// Resolved reports whether an action was found
func (r Resolution) Resolved() bool {
	return r.Action != nil
}

// MarshalJSON renders the action in its catalog spec form
func (r Resolution) MarshalJSON() ([]byte, error) {
	out := struct {
		Input       string             `json:"input"`
		Normalized  string             `json:"normalized"`
		Process     string             `json:"process,omitempty"`
		Strategy    string             `json:"strategy,omitempty"`
		Confidence  float64            `json:"confidence"`
		Action      *models.ActionSpec `json:"action,omitempty"`
		Fallback    string             `json:"ai_failure,omitempty"`
		Suggestions []string           `json:"did_you_mean,omitempty"`
	}{
		Input:       r.Raw,
		Normalized:  r.Normalized,
		Process:     r.Host.Process,
		Strategy:    r.Strategy,
		Confidence:  r.Confidence,
		Suggestions: r.Suggestions,
	}
	if r.Action != nil {
		spec := models.SpecOf(r.Action)
		out.Action = &spec
	}
	if r.Fallback != nil {
		out.Fallback = r.Fallback.Reason
	}
	return json.Marshal(out)
}

// Outcome is a handled utterance
type Outcome struct {
	Resolution
	Result   models.ExecutionResult
	Duration time.Duration
}

// Utterance builds the text to resolve from a CLI mode and payload.
// Unrecognized modes are part of what the user said.
func Utterance(mode, payload string) string {
	mode = strings.TrimSpace(mode)
	payload = strings.TrimSpace(payload)
	if mode == "" || strings.EqualFold(mode, ModeNatural) {
		return payload
	}
	if payload == "" {
		return mode
	}
	return mode + " " + payload
}

// Handle runs a CLI mode and payload through the pipeline
func (p *Pilot) Handle(ctx context.Context, mode, payload string) Outcome {
	return p.Run(ctx, Utterance(mode, payload))
}

// Run resolves and executes one utterance, records it in history and
// appends its journey
func (p *Pilot) Run(ctx context.Context, raw string) Outcome {
	start := time.Now()
	j := p.newJourney(raw)

	res := p.resolve(ctx, raw, j)
	out := Outcome{Resolution: res}

	switch {
	case strings.TrimSpace(raw) == "":
		out.Result = models.ExecutionResult{Text: "Nothing to do: empty input"}
	case res.Action == nil:
		out.Result = models.ExecutionResult{Text: noMatchText(raw, res.Suggestions)}
	default:
		dctx := engine.WithHostContext(ctx, res.Host)
		dctx = engine.WithChords(dctx, res.snap.HostChords)
		out.Result = p.dispatch.Execute(dctx, res.Action)
	}
	out.Duration = time.Since(start)

	p.logger.Info("utterance handled",
		zap.String("input", raw),
		zap.String("strategy", res.Strategy),
		zap.Bool("ok", out.Result.OK),
		zap.Duration("duration", out.Duration))

	action := ""
	if res.Action != nil {
		action = res.Action.Describe()
	}
	j.Finish(action, out.Result.Text, out.Result.OK)
	if err := p.journeys.Write(j); err != nil {
		p.logger.Warn("failed to write journey", zap.Error(err))
	}
	p.record(out)
	return out
}

// Resolve decides what raw means without executing it
func (p *Pilot) Resolve(ctx context.Context, raw string) Resolution {
	return p.resolve(ctx, raw, nil)
}

func (p *Pilot) resolve(ctx context.Context, raw string, j *journey.Journey) Resolution {
	// one snapshot and one context read per utterance
	snap := p.store.Current()
	hc := p.foreground(ctx)

	res := Resolution{Raw: raw, Host: hc, Normalized: snap.Normalize(raw), snap: snap}
	j.SetNormalized(res.Normalized)
	if strings.TrimSpace(raw) == "" {
		return res
	}

	if c, ok := p.resolver.ResolveTraced(res.Normalized, hc, snap, j); ok {
		res.Strategy = c.Strategy
		res.Confidence = c.Confidence
		res.Action = c.Action
		return res
	}

	aiStart := time.Now()
	action, err := p.ai.TryResolve(ctx, raw, hc)
	if err != nil {
		var fe *ai.FallbackError
		if !errors.As(err, &fe) {
			fe = &ai.FallbackError{Reason: ai.ReasonOracle, Input: raw, Err: err}
		}
		res.Fallback = fe
		j.AddStep(StrategyAI, false, 0, time.Since(aiStart), fe.Reason)
		for _, s := range intent.Suggest(res.Normalized, snap, 3) {
			res.Suggestions = append(res.Suggestions, s.Phrase)
		}
		return res
	}
	j.AddStep(StrategyAI, true, 0, time.Since(aiStart), action.Describe())
	res.Strategy = StrategyAI
	res.Action = action
	return res
}

func (p *Pilot) foreground(ctx context.Context) models.HostContext {
	if p.probe == nil {
		return models.HostContext{}
	}
	hc, err := p.probe.Foreground(ctx)
	if err != nil {
		p.logger.Debug("foreground probe failed", zap.Error(err))
		return models.HostContext{}
	}
	return hc
}

func (p *Pilot) newJourney(raw string) *journey.Journey {
	if p.journeys == nil {
		return nil
	}
	return journey.New(uuid.NewString(), raw)
}

func (p *Pilot) record(out Outcome) {
	if p.history == nil {
		return
	}
	entry := models.HistoryEntry{
		SessionID:  p.session,
		Raw:        out.Raw,
		Normalized: out.Normalized,
		Strategy:   out.Strategy,
		Confidence: out.Confidence,
		OK:         out.Result.OK,
		Result:     out.Result.Text,
		DurationMs: out.Duration.Milliseconds(),
	}
	if out.Action != nil {
		entry.ActionKind = string(out.Action.Kind())
	}
	if err := p.history.Record(entry); err != nil {
		p.logger.Warn("failed to record history", zap.Error(err))
	}
}

func noMatchText(raw string, suggestions []string) string {
	text := fmt.Sprintf("No matching action for %q", strings.TrimSpace(raw))
	if len(suggestions) > 0 {
		text += fmt.Sprintf(" (did you mean %q?)", suggestions[0])
	}
	return text
}
