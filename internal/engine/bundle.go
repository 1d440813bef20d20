package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/themobileprof/deskpilot/pkg/models"
)

// RunBundle executes a macro's steps strictly in order. A failing step
// aborts the run unless ContinueOnError is set. Cancellation stops the
// run before the next step; steps already executed are not undone.
func (d *Dispatcher) RunBundle(ctx context.Context, b models.RunBundle) models.BundleReport {
	report := models.BundleReport{Name: b.Name, State: models.BundlePending}
	delay := time.Duration(b.InterStepDelayMs) * time.Millisecond
	start := time.Now()

	d.logger.Info("bundle started", zap.String("bundle", b.Name), zap.Int("steps", len(b.Steps)))
	report.State = models.BundleRunning

	for i, step := range b.Steps {
		if i > 0 && !d.wait(ctx, delay) {
			report.State = models.BundleAborted
			d.logger.Info("bundle canceled", zap.String("bundle", b.Name), zap.Int("next_step", i+1))
			return report
		}
		if ctx.Err() != nil {
			report.State = models.BundleAborted
			return report
		}

		if _, nested := step.(models.RunBundle); nested {
			res := models.ExecutionResult{Text: fmt.Sprintf("Step %d is a bundle; bundles cannot be nested", i+1)}
			if d.record(&report, b, i, step, res) {
				return report
			}
			continue
		}

		res := d.Execute(ctx, step)
		if d.record(&report, b, i, step, res) {
			return report
		}
	}

	if len(report.Failures()) > 0 {
		report.State = models.BundleCompletedWithErrors
	} else {
		report.State = models.BundleSucceeded
	}
	d.logger.Info("bundle finished",
		zap.String("bundle", b.Name),
		zap.Stringer("state", report.State),
		zap.Int("failures", len(report.Failures())),
		zap.Duration("elapsed", time.Since(start)))
	return report
}

// record appends a step outcome and reports whether the bundle must stop
func (d *Dispatcher) record(report *models.BundleReport, b models.RunBundle, i int, step models.ActionRequest, res models.ExecutionResult) bool {
	report.Steps = append(report.Steps, models.StepOutcome{Index: i + 1, Action: step, Result: res})
	if res.OK {
		d.logger.Debug("bundle step succeeded", zap.String("bundle", b.Name), zap.Int("step", i+1), zap.String("result", res.Text))
		return false
	}
	d.logger.Warn("bundle step failed", zap.String("bundle", b.Name), zap.Int("step", i+1), zap.String("result", res.Text))
	if b.ContinueOnError {
		return false
	}
	report.State = models.BundleAborted
	report.FailedStep = i + 1
	return true
}

// wait sleeps for delay unless ctx ends first
func (d *Dispatcher) wait(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// BundleResult renders a report as a single ExecutionResult. A report
// that has not reached a terminal state is never OK.
func BundleResult(r models.BundleReport) models.ExecutionResult {
	if !r.State.Terminal() {
		return models.ExecutionResult{Text: fmt.Sprintf("%s: still %s", r.Name, r.State)}
	}
	switch r.State {
	case models.BundleSucceeded:
		last := ""
		if n := len(r.Steps); n > 0 {
			last = r.Steps[n-1].Result.Text
		}
		return models.ExecutionResult{Text: fmt.Sprintf("%s: %s", r.Name, last), OK: true}
	case models.BundleAborted:
		if r.FailedStep == 0 {
			return models.ExecutionResult{Text: fmt.Sprintf("%s: canceled after %d of its steps", r.Name, len(r.Steps))}
		}
		failed := r.Steps[len(r.Steps)-1]
		return models.ExecutionResult{Text: fmt.Sprintf("%s: aborted at step %d: %s", r.Name, r.FailedStep, failed.Result.Text)}
	default:
		parts := make([]string, 0, len(r.Steps))
		for _, s := range r.Steps {
			parts = append(parts, s.Result.Text)
		}
		return models.ExecutionResult{Text: fmt.Sprintf("%s (%s): %s", r.Name, r.State, strings.Join(parts, "; "))}
	}
}
