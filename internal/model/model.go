// Package model defines shared data structures.
package model

import "time"

// EntityType is the kind of a park entity as reported by the live feed.
type EntityType string

// Entity types reported by the live feed.
const (
	EntityAttraction    EntityType = "ATTRACTION"
	EntityRestaurant    EntityType = "RESTAURANT"
	EntityShow          EntityType = "SHOW"
	EntityEntertainment EntityType = "ENTERTAINMENT"
	EntityParade        EntityType = "PARADE"
	EntityFireworks     EntityType = "FIREWORKS"
)

// IsShowLike reports whether the type is presented alongside shows.
func (t EntityType) IsShowLike() bool {
	switch t {
	case EntityShow, EntityEntertainment, EntityParade, EntityFireworks:
		return true
	}
	return false
}

// Status is the operating status of an entity.
type Status string

// Operating statuses. An empty Status means the feed reported nothing.
const (
	StatusOperating     Status = "OPERATING"
	StatusDown          Status = "DOWN"
	StatusClosed        Status = "CLOSED"
	StatusRefurbishment Status = "REFURBISHMENT"
)

// Queue types.
const (
	QueueStandby     = "STANDBY"
	QueueSingleRider = "SINGLE_RIDER"
)

// Queue holds the wait for a single line. WaitTime is in minutes.
type Queue struct {
	WaitTime *int `json:"waitTime,omitempty"`
}

// LiveEntity is a single entity as received from the live feed.
type LiveEntity struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	EntityType EntityType       `json:"entityType"`
	Status     Status           `json:"status,omitempty"`
	Queue      map[string]Queue `json:"queue,omitempty"`
}

// StandbyWait returns the standby wait in minutes, if the feed reported one.
func (e LiveEntity) StandbyWait() (int, bool) {
	q, ok := e.Queue[QueueStandby]
	if !ok || q.WaitTime == nil {
		return 0, false
	}
	return *q.WaitTime, true
}

// Style is a display tag derived from an entity's name and type.
type Style string

// Attraction styles.
const (
	StyleRadical   Style = "radical"
	StyleFamily    Style = "family"
	StyleKids      Style = "kids"
	StyleShow      Style = "show"
	StyleSimulator Style = "simulator"
	StyleWater     Style = "water"
)

// Intensity is the thrill level derived from the styles.
type Intensity string

// Intensity levels.
const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

// QueueStatus buckets the standby wait.
type QueueStatus string

// Queue statuses.
const (
	QueueShort  QueueStatus = "short"
	QueueMedium QueueStatus = "medium"
	QueueLong   QueueStatus = "long"
)

// EnrichedEntity is a LiveEntity plus display tags. It is never mutated after
// enrichment.
type EnrichedEntity struct {
	LiveEntity
	AttractionStyle []Style     `json:"attractionStyle"`
	Intensity       Intensity   `json:"intensity"`
	Summary         string      `json:"summary"`
	QueueStatus     QueueStatus `json:"queueStatus"`
}

// Buckets groups enriched entities by category for list rendering.
type Buckets struct {
	Attractions []EnrichedEntity `json:"attractions"`
	Restaurants []EnrichedEntity `json:"restaurants"`
	Shows       []EnrichedEntity `json:"shows"`
}

// EmptyBuckets returns buckets with non-nil empty slices.
func EmptyBuckets() Buckets {
	return Buckets{
		Attractions: []EnrichedEntity{},
		Restaurants: []EnrichedEntity{},
		Shows:       []EnrichedEntity{},
	}
}

// ItineraryItem is one entry of a visitor's itinerary. The identity fields are
// copies of the source entity so the item renders without a refetch.
type ItineraryItem struct {
	ID             string `json:"id"`
	AttractionID   string `json:"attractionId"`
	AttractionName string `json:"attractionName"`
	ParkID         string `json:"parkId"`
	ParkName       string `json:"parkName"`
	AddedAt        int64  `json:"addedAt"` // epoch milliseconds
	WaitTime       *int   `json:"waitTime,omitempty"`
	EstimatedTime  *int   `json:"estimatedTime,omitempty"`
}

// Park is a configured park tracked by the sync service.
type Park struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	LastSynced time.Time `json:"lastSynced"`
}

// Attraction is a catalogue row kept up to date by the sync service.
type Attraction struct {
	ID         string     `json:"id"`
	ParkID     string     `json:"parkId"`
	Name       string     `json:"name"`
	EntityType EntityType `json:"entityType"`
	Status     Status     `json:"status,omitempty"`
	WaitTime   *int       `json:"waitTime,omitempty"` // nil when the feed had no standby queue
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// WaitTimeSample is one recorded standby wait.
type WaitTimeSample struct {
	AttractionID string    `json:"attractionId"`
	ParkID       string    `json:"parkId"`
	WaitTime     int       `json:"waitTime"`
	Status       Status    `json:"status,omitempty"`
	RecordedAt   time.Time `json:"recordedAt"`
}

// NewsItem is a single article from a park news feed.
type NewsItem struct {
	ID          int64     `json:"id"`
	Source      string    `json:"source"`
	GUID        string    `json:"guid"` // unique per source
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Summary     string    `json:"summary"`
	PublishedAt time.Time `json:"publishedAt"`
	FetchedAt   time.Time `json:"fetchedAt"`
}

// Settings key constants.
const (
	SettingPollingInterval = "polling_interval_minutes"
)
