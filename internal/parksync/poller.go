package parksync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bryan-buckman/parkline/internal/database"
	"github.com/bryan-buckman/parkline/internal/model"
	"golang.org/x/sync/singleflight"
)

// RoundTimeout bounds a single refresh round.
const RoundTimeout = 10 * time.Minute

// NewsRefresher refreshes park news. *news.Fetcher satisfies it.
type NewsRefresher interface {
	FetchAll(ctx context.Context) (map[string]int, error)
}

// Report is the outcome of one refresh round.
type Report struct {
	Parks     []SyncResult `json:"parks"`
	NewsItems int          `json:"newsItems"`
	Pruned    int64        `json:"pruned"`
}

// Poller periodically syncs the configured parks, refreshes news and prunes
// old wait-time history.
type Poller struct {
	syncer    *Syncer
	news      NewsRefresher
	store     database.Store
	parks     []model.Park
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time

	group singleflight.Group
	// base outlives any single caller; Stop cancels it.
	base     context.Context
	cancel   context.CancelFunc
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPoller creates a poller. news may be nil. A zero retention keeps history
// forever.
func NewPoller(syncer *Syncer, news NewsRefresher, store database.Store, parks []model.Park, retention time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Poller{
		base:      base,
		cancel:    cancel,
		syncer:    syncer,
		news:      news,
		store:     store,
		parks:     parks,
		retention: retention,
		logger:    logger.With(slog.String("component", "poller")),
		now:       time.Now,
		stopChan:  make(chan struct{}),
	}
}

// Parks returns the configured parks.
func (p *Poller) Parks() []model.Park {
	out := make([]model.Park, len(p.parks))
	copy(out, p.parks)
	return out
}

// RunOnce performs a refresh round. Concurrent callers share the round in
// flight, which runs on the poller's own context bounded by RoundTimeout.
// A caller whose ctx ends stops waiting without cancelling the round.
func (p *Poller) RunOnce(ctx context.Context) (Report, error) {
	ch := p.group.DoChan("refresh", func() (interface{}, error) {
		roundCtx, cancel := context.WithTimeout(p.base, RoundTimeout)
		defer cancel()
		return p.run(roundCtx)
	})
	select {
	case res := <-ch:
		if res.Shared {
			p.logger.DebugContext(ctx, "Joined refresh already in flight")
		}
		report, _ := res.Val.(Report)
		return report, res.Err
	case <-ctx.Done():
		return Report{}, ctx.Err()
	}
}

func (p *Poller) run(ctx context.Context) (Report, error) {
	var report Report

	results, err := p.syncer.SyncAll(ctx, p.parks)
	report.Parks = results
	if err != nil {
		return report, fmt.Errorf("sync parks: %w", err)
	}

	if p.news != nil {
		counts, err := p.news.FetchAll(ctx)
		if err != nil {
			return report, fmt.Errorf("refresh news: %w", err)
		}
		for _, c := range counts {
			report.NewsItems += c
		}
	}

	if p.retention > 0 {
		pruned, err := p.store.PruneWaitTimeHistory(p.now().Add(-p.retention))
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to prune wait-time history", slog.String("error", err.Error()))
		} else {
			report.Pruned = pruned
		}
	}
	return report, nil
}

// Start begins the polling loop. The interval is re-read from the store
// before every round.
func (p *Poller) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			interval, err := p.store.GetPollingInterval()
			if err != nil || interval < database.MinPollingIntervalMinutes {
				interval = database.MinPollingIntervalMinutes
			}

			report, err := p.RunOnce(context.Background())

			if err != nil {
				p.logger.Error("Refresh round failed", slog.String("error", err.Error()))
			} else {
				p.logger.Info("Refresh round complete",
					slog.Int("parks", len(report.Parks)),
					slog.Int("news_items", report.NewsItems),
					slog.Int64("pruned", report.Pruned),
					slog.Int("next_in_minutes", interval),
				)
			}

			timer := time.NewTimer(time.Duration(interval) * time.Minute)
			select {
			case <-p.stopChan:
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
}

// Stop ends the polling loop and waits for the round in progress.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
		p.cancel()
	})
	p.wg.Wait()
}
