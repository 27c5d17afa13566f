// Package database provides storage backends for the park catalogue, wait-time
// history and park news.
package database

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bryan-buckman/parkline/internal/model"
)

// Polling interval bounds in minutes.
const (
	DefaultPollingIntervalMinutes = 5
	MinPollingIntervalMinutes     = 5
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("not found")

// Store defines the interface for database operations.
// Both SQLite and PostgreSQL implementations satisfy this interface.
type Store interface {
	Close() error

	// DatabaseType returns the name of the database backend ("SQLite" or "PostgreSQL").
	DatabaseType() string

	// SupportsHighConcurrency returns true if the database can handle
	// many concurrent write operations (e.g., PostgreSQL).
	// SQLite returns false due to write locking limitations.
	SupportsHighConcurrency() bool

	// Park operations
	UpsertPark(park model.Park) error
	GetParks() ([]model.Park, error)
	GetParkByID(parkID string) (*model.Park, error)
	MarkParkSynced(parkID string, t time.Time) error

	// Attraction operations
	UpsertAttractions(attractions []model.Attraction) error
	GetAttractions(parkID string) ([]model.Attraction, error)

	// Wait time history operations
	RecordWaitTimes(samples []model.WaitTimeSample) error
	GetWaitTimeHistory(attractionID string, since time.Time) ([]model.WaitTimeSample, error)
	PruneWaitTimeHistory(before time.Time) (int64, error)

	// News operations
	AddNewsItem(item *model.NewsItem) (int64, bool, error)
	GetNewsItems(limit int) ([]model.NewsItem, error)

	// Settings operations
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
	GetPollingInterval() (int, error)
}

// clampPollingInterval parses a stored interval and applies the minimum.
func clampPollingInterval(val string) int {
	mins := DefaultPollingIntervalMinutes
	if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
		mins = parsed
	}
	if mins < MinPollingIntervalMinutes {
		mins = MinPollingIntervalMinutes
	}
	return mins
}
