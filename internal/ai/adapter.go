// Package ai is the last-resort fallback: when no catalog strategy matches,
// an external language model is asked to map the utterance onto one of
// the known action types. Its answer is untrusted and strictly validated.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/themobileprof/deskpilot/internal/interfaces"
	"github.com/themobileprof/deskpilot/pkg/models"
)

// Oracle is an external text completion service
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Failure reasons
const (
	ReasonTimeout     = "timeout"
	ReasonCanceled    = "canceled"
	ReasonMalformed   = "malformed"
	ReasonUnsupported = "unsupported"
	ReasonOracle      = "oracle"
	ReasonDisabled    = "disabled"
	ReasonRateLimited = "rate_limited"
)

// FallbackError is the only error TryResolve returns
type FallbackError struct {
	Reason string
	Input  string
	Err    error
}

func (e *FallbackError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ai fallback %s for %q: %v", e.Reason, e.Input, e.Err)
	}
	return fmt.Sprintf("ai fallback %s for %q", e.Reason, e.Input)
}

func (e *FallbackError) Unwrap() error { return e.Err }

// DefaultTimeout bounds a single oracle call
const DefaultTimeout = 8 * time.Second

// Adapter turns an Oracle into an action resolver
type Adapter struct {
	oracle  Oracle
	names   interfaces.NameResolver
	timeout time.Duration
	limiter *callLimiter
	logger  *zap.Logger
}

// NewAdapter creates an adapter. names may be nil. A zero timeout uses
// DefaultTimeout.
func NewAdapter(oracle Oracle, names interfaces.NameResolver, timeout time.Duration, logger *zap.Logger) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{oracle: oracle, names: names, timeout: timeout, logger: logger}
}

// SetRateLimit caps oracle calls to limit per interval. Calls over the
// cap fail fast with ReasonRateLimited. A limit <= 0 removes the cap.
func (a *Adapter) SetRateLimit(limit int, per time.Duration) {
	if limit <= 0 || per <= 0 {
		a.limiter = nil
		return
	}
	a.limiter = newCallLimiter(limit, per)
}

// TryResolve asks the oracle for an action. It never blocks past the
// adapter's timeout and never returns a bundle.
func (a *Adapter) TryResolve(ctx context.Context, raw string, hc models.HostContext) (models.ActionRequest, error) {
	if a == nil || a.oracle == nil {
		return nil, &FallbackError{Reason: ReasonDisabled, Input: raw}
	}
	if a.limiter != nil && !a.limiter.allow() {
		a.logger.Debug("ai fallback rate limited", zap.String("input", raw))
		return nil, &FallbackError{Reason: ReasonRateLimited, Input: raw}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	text, err := a.complete(ctx, buildPrompt(raw, hc))
	if err != nil {
		reason := ReasonOracle
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
			reason = ReasonTimeout
		case errors.Is(ctx.Err(), context.Canceled):
			reason = ReasonCanceled
		}
		a.logger.Warn("ai fallback failed", zap.String("reason", reason), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return nil, &FallbackError{Reason: reason, Input: raw, Err: err}
	}

	action, err := ParseResponse(text)
	if err != nil {
		var fe *FallbackError
		if errors.As(err, &fe) {
			fe.Input = raw
		}
		a.logger.Warn("ai fallback rejected response", zap.String("response", truncate(text, 200)), zap.Error(err))
		return nil, err
	}

	if launch, ok := action.(models.LaunchApp); ok && a.names != nil {
		if target, found := a.names.ResolveName(launch.ExeOrURI); found {
			a.logger.Debug("ai launch target rewritten", zap.String("from", launch.ExeOrURI), zap.String("to", target))
			action = models.LaunchApp{ExeOrURI: target}
		}
	}

	a.logger.Info("ai fallback resolved", zap.String("action", action.Describe()), zap.Duration("elapsed", time.Since(start)))
	return action, nil
}

// complete runs the oracle in its own goroutine so an oracle that ignores
// its context still cannot hold the caller past the deadline
func (a *Adapter) complete(ctx context.Context, prompt string) (string, error) {
	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := a.oracle.Complete(ctx, prompt)
		ch <- result{text, err}
	}()

	select {
	case r := <-ch:
		if r.err == nil && ctx.Err() != nil {
			return "", ctx.Err()
		}
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ParseResponse validates an oracle answer. The answer must contain one
// JSON object in ActionSpec shape, optionally inside a markdown fence.
// Bundles, unknown types and noop answers are rejected.
func ParseResponse(text string) (models.ActionRequest, error) {
	body := extractJSON(text)
	if body == "" {
		return nil, &FallbackError{Reason: ReasonMalformed, Err: errors.New("no JSON object in response")}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.DisallowUnknownFields()
	var spec models.ActionSpec
	if err := dec.Decode(&spec); err != nil {
		return nil, &FallbackError{Reason: ReasonMalformed, Err: err}
	}

	kind := models.ActionKind(strings.ToLower(strings.TrimSpace(spec.Type)))
	if kind == models.KindRunBundle || kind == "macro" || spec.Macro != "" || len(spec.Steps) > 0 {
		return nil, &FallbackError{Reason: ReasonUnsupported, Err: fmt.Errorf("%s is not allowed from the fallback", kind)}
	}

	action, err := spec.Build()
	if err != nil {
		if errors.Is(err, models.ErrUnknownActionType) {
			return nil, &FallbackError{Reason: ReasonUnsupported, Err: err}
		}
		return nil, &FallbackError{Reason: ReasonMalformed, Err: err}
	}
	// the oracle's way of saying it found nothing
	if noop, ok := action.(models.Noop); ok {
		return nil, &FallbackError{Reason: ReasonUnsupported, Err: fmt.Errorf("oracle declined: %s", noop.Reason)}
	}
	return action, nil
}

// extractJSON strips code fences and returns the outermost {...} span
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if i := strings.LastIndex(text, "```"); i >= 0 {
			text = text[:i]
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
