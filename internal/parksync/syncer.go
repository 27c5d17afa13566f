// Package parksync keeps the stored park catalogue and wait-time history in
// step with the live feed.
package parksync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bryan-buckman/parkline/internal/database"
	"github.com/bryan-buckman/parkline/internal/model"
	"github.com/bryan-buckman/parkline/internal/themeparks"
	"golang.org/x/sync/errgroup"
)

// Parallel park syncs per backend.
const (
	MaxConcurrencyPostgres = 4
	MaxConcurrencySQLite   = 1
)

// Remote is the part of the feed client the syncer needs.
type Remote interface {
	Children(ctx context.Context, entityID string) ([]themeparks.ChildEntity, error)
	Live(ctx context.Context, parkID string) ([]model.LiveEntity, error)
}

// SyncResult summarises one park sync.
type SyncResult struct {
	ParkID      string `json:"parkId"`
	Attractions int    `json:"attractions"`
	Samples     int    `json:"samples"`
	// Degraded is set when either the children or the live call failed and
	// was replaced by an empty result. The sync time is not stamped then.
	Degraded bool   `json:"degraded"`
	Error    string `json:"error,omitempty"`
}

// Syncer merges a park's children listing with its live feed and writes the
// result to the store.
type Syncer struct {
	remote      Remote
	store       database.Store
	logger      *slog.Logger
	now         func() time.Time
	concurrency int
}

// NewSyncer creates a syncer. Parks are synced one at a time unless the store
// supports concurrent writers.
func NewSyncer(remote Remote, store database.Store, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := MaxConcurrencySQLite
	if store.SupportsHighConcurrency() {
		concurrency = MaxConcurrencyPostgres
	}
	return &Syncer{
		remote:      remote,
		store:       store,
		logger:      logger.With(slog.String("component", "parksync")),
		now:         time.Now,
		concurrency: concurrency,
	}
}

// RegisterParks stores the configured parks so they are listed before their
// first sync.
func (s *Syncer) RegisterParks(parks []model.Park) error {
	for _, p := range parks {
		if err := s.store.UpsertPark(p); err != nil {
			return fmt.Errorf("register park %s: %w", p.ID, err)
		}
	}
	return nil
}

// SyncPark fetches the park's children and live data in parallel and stores
// the merged catalogue. A failing fetch degrades to an empty result; only a
// cancelled context aborts the sync.
func (s *Syncer) SyncPark(ctx context.Context, park model.Park) (SyncResult, error) {
	result := SyncResult{ParkID: park.ID}

	var (
		children    []themeparks.ChildEntity
		live        map[string]model.LiveEntity
		childrenBad bool
		liveBad     bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		children, err = s.remote.Children(gctx, park.ID)
		if err != nil {
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			s.logger.WarnContext(ctx, "Children unavailable",
				slog.String("park_id", park.ID),
				slog.String("error", err.Error()),
			)
			children = []themeparks.ChildEntity{}
			childrenBad = true
		}
		return nil
	})
	g.Go(func() error {
		entities, err := s.remote.Live(gctx, park.ID)
		if err != nil {
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			s.logger.WarnContext(ctx, "Live data unavailable",
				slog.String("park_id", park.ID),
				slog.String("error", err.Error()),
			)
			live = map[string]model.LiveEntity{}
			liveBad = true
			return nil
		}
		live = make(map[string]model.LiveEntity, len(entities))
		for _, e := range entities {
			live[e.ID] = e
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return result, fmt.Errorf("sync %s: %w", park.ID, err)
	}
	result.Degraded = childrenBad || liveBad

	now := s.now().UTC()
	attractions, samples := merge(park.ID, children, live, now)

	if err := s.store.UpsertPark(park); err != nil {
		return result, fmt.Errorf("sync %s: upsert park: %w", park.ID, err)
	}
	if err := s.store.UpsertAttractions(attractions); err != nil {
		return result, fmt.Errorf("sync %s: upsert attractions: %w", park.ID, err)
	}
	if err := s.store.RecordWaitTimes(samples); err != nil {
		return result, fmt.Errorf("sync %s: record wait times: %w", park.ID, err)
	}
	if !result.Degraded {
		if err := s.store.MarkParkSynced(park.ID, now); err != nil {
			return result, fmt.Errorf("sync %s: mark synced: %w", park.ID, err)
		}
	}

	result.Attractions = len(attractions)
	result.Samples = len(samples)
	s.logger.InfoContext(ctx, "Park synced",
		slog.String("park_id", park.ID),
		slog.Int("attractions", result.Attractions),
		slog.Int("samples", result.Samples),
		slog.Bool("degraded", result.Degraded),
	)
	return result, nil
}

// merge turns the ATTRACTION children into catalogue rows carrying their live
// status and standby wait, plus one history sample per reported wait.
func merge(parkID string, children []themeparks.ChildEntity, live map[string]model.LiveEntity, now time.Time) ([]model.Attraction, []model.WaitTimeSample) {
	attractions := []model.Attraction{}
	samples := []model.WaitTimeSample{}
	for _, child := range children {
		if child.EntityType != model.EntityAttraction {
			continue
		}
		a := model.Attraction{
			ID:         child.ID,
			ParkID:     parkID,
			Name:       child.Name,
			EntityType: child.EntityType,
			UpdatedAt:  now,
		}
		if e, ok := live[child.ID]; ok {
			a.Status = e.Status
			if wait, ok := e.StandbyWait(); ok {
				w := wait
				a.WaitTime = &w
				samples = append(samples, model.WaitTimeSample{
					AttractionID: child.ID,
					ParkID:       parkID,
					WaitTime:     wait,
					Status:       e.Status,
					RecordedAt:   now,
				})
			}
		}
		attractions = append(attractions, a)
	}
	return attractions, samples
}

// SyncAll syncs every park, in parallel when the store allows it. A park that
// fails is reported in its result and does not stop the others; a cancelled
// context does.
func (s *Syncer) SyncAll(ctx context.Context, parks []model.Park) ([]SyncResult, error) {
	results := make([]SyncResult, len(parks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, park := range parks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = SyncResult{ParkID: park.ID, Error: err.Error()}
				return err
			}
			res, err := s.SyncPark(gctx, park)
			if err != nil {
				res.Error = err.Error()
				s.logger.ErrorContext(ctx, "Park sync failed",
					slog.String("park_id", park.ID),
					slog.String("error", err.Error()),
				)
				if ctxErr := gctx.Err(); ctxErr != nil {
					results[i] = res
					return ctxErr
				}
			}
			results[i] = res
			return nil
		})
	}
	err := g.Wait()
	return results, err
}
