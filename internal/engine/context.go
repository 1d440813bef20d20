package engine

import (
	"context"
	"strings"

	"github.com/themobileprof/deskpilot/pkg/models"
)

type ctxKey int

const (
	hostKey ctxKey = iota
	chordsKey
)

// WithHostContext attaches the utterance's host context so host commands
// reach the application the user was looking at
func WithHostContext(ctx context.Context, hc models.HostContext) context.Context {
	return context.WithValue(ctx, hostKey, hc)
}

// HostContextFrom returns the attached host context, or the zero value
func HostContextFrom(ctx context.Context) models.HostContext {
	hc, _ := ctx.Value(hostKey).(models.HostContext)
	return hc
}

// WithChords attaches the host command → key chord fallback table.
// Keys are lowercase canonical command names.
func WithChords(ctx context.Context, chords map[string]string) context.Context {
	return context.WithValue(ctx, chordsKey, chords)
}

// ChordFor looks up the fallback chord for a canonical host command
func ChordFor(ctx context.Context, canonical string) (string, bool) {
	chords, _ := ctx.Value(chordsKey).(map[string]string)
	chord, ok := chords[strings.ToLower(canonical)]
	return chord, ok && chord != ""
}
