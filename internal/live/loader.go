// Package live loads a park's live feed and turns it into enriched buckets.
package live

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bryan-buckman/parkline/internal/enrich"
	"github.com/bryan-buckman/parkline/internal/model"
)

// ErrorPolicy decides what a fetch failure turns into.
type ErrorPolicy int

const (
	// PolicyEmpty logs the failure and returns an empty result.
	PolicyEmpty ErrorPolicy = iota
	// PolicyPropagate returns the failure to the caller.
	PolicyPropagate
)

// ParseErrorPolicy accepts "empty" or "propagate". An empty string is "empty".
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "empty":
		return PolicyEmpty, nil
	case "propagate":
		return PolicyPropagate, nil
	default:
		return PolicyEmpty, fmt.Errorf("unknown error policy %q", s)
	}
}

func (p ErrorPolicy) String() string {
	if p == PolicyPropagate {
		return "propagate"
	}
	return "empty"
}

// Source fetches the raw live entities of a park.
type Source interface {
	Live(ctx context.Context, parkID string) ([]model.LiveEntity, error)
}

// Loader turns a park's live feed into enriched buckets. It keeps no state
// between calls.
type Loader struct {
	source Source
	policy ErrorPolicy
	logger *slog.Logger
}

// NewLoader creates a loader with the given default error policy.
func NewLoader(source Source, policy ErrorPolicy, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		source: source,
		policy: policy,
		logger: logger.With(slog.String("component", "live")),
	}
}

// Load fetches and enriches a park's live feed using the loader's policy.
func (l *Loader) Load(ctx context.Context, parkID string) (model.Buckets, error) {
	return l.LoadWith(ctx, parkID, l.policy)
}

// LoadWith is Load with an explicit error policy for this call.
func (l *Loader) LoadWith(ctx context.Context, parkID string, policy ErrorPolicy) (model.Buckets, error) {
	entities, err := l.source.Live(ctx, parkID)
	if err != nil {
		if policy == PolicyPropagate {
			return model.EmptyBuckets(), fmt.Errorf("load live data for %s: %w", parkID, err)
		}
		l.logger.WarnContext(ctx, "Live data unavailable, returning empty buckets",
			slog.String("park_id", parkID),
			slog.String("error", err.Error()),
		)
		return model.EmptyBuckets(), nil
	}

	b := enrich.Partition(entities)
	l.logger.DebugContext(ctx, "Live data loaded",
		slog.String("park_id", parkID),
		slog.Int("entities", len(entities)),
		slog.Int("attractions", len(b.Attractions)),
		slog.Int("restaurants", len(b.Restaurants)),
		slog.Int("shows", len(b.Shows)),
	)
	return b, nil
}
