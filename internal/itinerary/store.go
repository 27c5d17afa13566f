// Package itinerary holds a visitor's session itinerary.
package itinerary

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bryan-buckman/parkline/internal/model"
	"github.com/google/uuid"
)

// DefaultUpcomingLimit is used by Upcoming when no positive limit is given.
const DefaultUpcomingLimit = 3

// ErrDuplicate is returned by Add under RejectDuplicates when the attraction is
// already in the itinerary.
var ErrDuplicate = errors.New("attraction already in itinerary")

// DuplicatePolicy controls whether an attraction can be added more than once.
type DuplicatePolicy int

const (
	// AllowDuplicates adds every candidate, even a repeated attraction.
	AllowDuplicates DuplicatePolicy = iota
	// RejectDuplicates refuses a candidate whose attraction is already present.
	RejectDuplicates
)

// ParseDuplicatePolicy accepts "allow" or "reject". An empty string is "allow".
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "allow":
		return AllowDuplicates, nil
	case "reject":
		return RejectDuplicates, nil
	default:
		return AllowDuplicates, fmt.Errorf("unknown duplicate policy %q", s)
	}
}

// Candidate is what a caller wants to add.
type Candidate struct {
	AttractionID   string `json:"attractionId"`
	AttractionName string `json:"attractionName"`
	ParkID         string `json:"parkId"`
	ParkName       string `json:"parkName"`
	WaitTime       *int   `json:"waitTime,omitempty"`
	EstimatedTime  *int   `json:"estimatedTime,omitempty"`
}

// Option configures a Store.
type Option func(*Store)

// WithDuplicatePolicy sets the duplicate policy.
func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(s *Store) { s.duplicates = p }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the item id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store is an in-memory, ordered itinerary. Each mutation installs a fresh
// slice, so a slice handed out earlier never changes.
type Store struct {
	mu         sync.RWMutex
	items      []model.ItineraryItem
	duplicates DuplicatePolicy
	now        func() time.Time
	newID      func() string
	logger     *slog.Logger
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		items:  []model.ItineraryItem{},
		now:    time.Now,
		newID:  uuid.NewString,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "itinerary"))
	return s
}

// Add appends a new item for the candidate and returns it. Under
// AllowDuplicates it always succeeds.
func (s *Store) Add(c Candidate) (model.ItineraryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.duplicates == RejectDuplicates && s.containsLocked(c.AttractionID) {
		s.logger.Debug("Rejected duplicate itinerary item",
			slog.String("attraction_id", c.AttractionID),
		)
		return model.ItineraryItem{}, fmt.Errorf("add %s: %w", c.AttractionID, ErrDuplicate)
	}

	item := model.ItineraryItem{
		ID:             s.newID(),
		AttractionID:   c.AttractionID,
		AttractionName: c.AttractionName,
		ParkID:         c.ParkID,
		ParkName:       c.ParkName,
		AddedAt:        s.now().UnixMilli(),
		WaitTime:       copyInt(c.WaitTime),
		EstimatedTime:  copyInt(c.EstimatedTime),
	}

	next := make([]model.ItineraryItem, len(s.items), len(s.items)+1)
	copy(next, s.items)
	s.items = append(next, item)

	s.logger.Debug("Added itinerary item",
		slog.String("item_id", item.ID),
		slog.String("attraction_id", item.AttractionID),
		slog.Int("total_items", len(s.items)),
	)
	return item, nil
}

// Remove deletes the first item with the given id. Unknown ids are ignored.
// It reports whether an item was removed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, it := range s.items {
		if it.ID != id {
			continue
		}
		next := make([]model.ItineraryItem, 0, len(s.items)-1)
		next = append(next, s.items[:i]...)
		next = append(next, s.items[i+1:]...)
		s.items = next
		s.logger.Debug("Removed itinerary item", slog.String("item_id", id))
		return true
	}
	return false
}

// Clear empties the itinerary.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = []model.ItineraryItem{}
}

// Contains reports whether any item refers to the attraction.
func (s *Store) Contains(attractionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.containsLocked(attractionID)
}

func (s *Store) containsLocked(attractionID string) bool {
	for _, it := range s.items {
		if it.AttractionID == attractionID {
			return true
		}
	}
	return false
}

// Items returns the items in insertion order.
func (s *Store) Items() []model.ItineraryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ItineraryItem, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Upcoming returns up to limit of the earliest-added items, oldest first.
// Items added in the same millisecond keep their insertion order.
func (s *Store) Upcoming(limit int) []model.ItineraryItem {
	if limit <= 0 {
		limit = DefaultUpcomingLimit
	}
	out := s.Items()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AddedAt < out[j].AddedAt
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
