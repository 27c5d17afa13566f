package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/bryan-buckman/parkline/internal/config"
	"github.com/bryan-buckman/parkline/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "parkline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func intPtr(v int) *int { return &v }

func TestOpen(t *testing.T) {
	store, err := Open(config.StorageSettings{Type: "sqlite", Path: filepath.Join(t.TempDir(), "open.db")})
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, "SQLite", store.DatabaseType())
	assert.False(t, store.SupportsHighConcurrency())

	_, err = Open(config.StorageSettings{Type: "mongo"})
	assert.Error(t, err)
}

func TestParks(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.UpsertPark(model.Park{ID: "mk", Name: "Magic Kingdom"}))
	require.NoError(t, db.UpsertPark(model.Park{ID: "ep", Name: "Epcot"}))

	parks, err := db.GetParks()
	require.NoError(t, err)
	require.Len(t, parks, 2)
	assert.Equal(t, "Epcot", parks[0].Name)
	assert.Equal(t, "Magic Kingdom", parks[1].Name)
	assert.True(t, parks[0].LastSynced.IsZero())

	synced := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	require.NoError(t, db.MarkParkSynced("mk", synced))
	require.NoError(t, db.UpsertPark(model.Park{ID: "mk", Name: "The Magic Kingdom"}))

	park, err := db.GetParkByID("mk")
	require.NoError(t, err)
	assert.Equal(t, "The Magic Kingdom", park.Name)
	assert.True(t, synced.Equal(park.LastSynced), "rename keeps the sync time")

	_, err = db.GetParkByID("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAttractions(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.UpsertPark(model.Park{ID: "mk", Name: "Magic Kingdom"}))

	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	require.NoError(t, db.UpsertAttractions(nil))
	require.NoError(t, db.UpsertAttractions([]model.Attraction{
		{ID: "a1", ParkID: "mk", Name: "Space Mountain", EntityType: model.EntityAttraction, Status: model.StatusOperating, WaitTime: intPtr(55), UpdatedAt: now},
		{ID: "a2", ParkID: "mk", Name: "Haunted Mansion", EntityType: model.EntityAttraction, Status: model.StatusClosed, UpdatedAt: now},
	}))

	got, err := db.GetAttractions("mk")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Haunted Mansion", got[0].Name)
	assert.Nil(t, got[0].WaitTime)
	assert.Equal(t, model.StatusClosed, got[0].Status)
	require.NotNil(t, got[1].WaitTime)
	assert.Equal(t, 55, *got[1].WaitTime)
	assert.Equal(t, model.EntityAttraction, got[1].EntityType)

	require.NoError(t, db.UpsertAttractions([]model.Attraction{
		{ID: "a1", ParkID: "mk", Name: "Space Mountain", EntityType: model.EntityAttraction, Status: model.StatusDown, UpdatedAt: now.Add(time.Minute)},
	}))
	got, err = db.GetAttractions("mk")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.StatusDown, got[1].Status)
	assert.Nil(t, got[1].WaitTime)

	empty, err := db.GetAttractions("nowhere")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestWaitTimeHistory(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

	require.NoError(t, db.RecordWaitTimes(nil))
	require.NoError(t, db.RecordWaitTimes([]model.WaitTimeSample{
		{AttractionID: "a1", ParkID: "mk", WaitTime: 10, Status: model.StatusOperating, RecordedAt: base},
		{AttractionID: "a1", ParkID: "mk", WaitTime: 25, Status: model.StatusOperating, RecordedAt: base.Add(time.Hour)},
		{AttractionID: "a1", ParkID: "mk", WaitTime: 40, Status: model.StatusOperating, RecordedAt: base.Add(2 * time.Hour)},
		{AttractionID: "a2", ParkID: "mk", WaitTime: 5, Status: model.StatusOperating, RecordedAt: base.Add(2 * time.Hour)},
	}))

	all, err := db.GetWaitTimeHistory("a1", base)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int{10, 25, 40}, []int{all[0].WaitTime, all[1].WaitTime, all[2].WaitTime})
	assert.True(t, base.Equal(all[0].RecordedAt))

	recent, err := db.GetWaitTimeHistory("a1", base.Add(90*time.Minute))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, 40, recent[0].WaitTime)

	removed, err := db.PruneWaitTimeHistory(base.Add(30 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	all, err = db.GetWaitTimeHistory("a1", time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestNewsItems(t *testing.T) {
	db := newTestDB(t)
	fetched := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	item := &model.NewsItem{Source: "blog", GUID: "g1", Title: "New ride opens", Link: "https://example.com/1", PublishedAt: fetched.Add(-2 * time.Hour), FetchedAt: fetched}
	id, isNew, err := db.AddNewsItem(item)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.NotZero(t, id)

	_, isNew, err = db.AddNewsItem(item)
	require.NoError(t, err)
	assert.False(t, isNew, "same source and guid is ignored")

	_, isNew, err = db.AddNewsItem(&model.NewsItem{Source: "other", GUID: "g1", Title: "Mirror", PublishedAt: fetched.Add(-time.Hour), FetchedAt: fetched})
	require.NoError(t, err)
	assert.True(t, isNew, "guid is scoped to the source")

	items, err := db.GetNewsItems(10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Mirror", items[0].Title)
	assert.Equal(t, "New ride opens", items[1].Title)
	assert.Equal(t, "https://example.com/1", items[1].Link)

	items, err = db.GetNewsItems(1)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestSettings(t *testing.T) {
	db := newTestDB(t)

	mins, err := db.GetPollingInterval()
	require.NoError(t, err)
	assert.Equal(t, DefaultPollingIntervalMinutes, mins)

	require.NoError(t, db.SetSetting(model.SettingPollingInterval, "15"))
	mins, err = db.GetPollingInterval()
	require.NoError(t, err)
	assert.Equal(t, 15, mins)

	require.NoError(t, db.SetSetting(model.SettingPollingInterval, "1"))
	mins, err = db.GetPollingInterval()
	require.NoError(t, err)
	assert.Equal(t, MinPollingIntervalMinutes, mins)

	val, err := db.GetSetting(model.SettingPollingInterval)
	require.NoError(t, err)
	assert.Equal(t, "1", val)

	_, err = db.GetSetting("unknown")
	assert.Error(t, err)
}

func TestClampPollingInterval(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"5", 5},
		{" 30 ", 30},
		{"0", MinPollingIntervalMinutes},
		{"-4", MinPollingIntervalMinutes},
		{"soon", DefaultPollingIntervalMinutes},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clampPollingInterval(tt.in), tt.in)
	}
}
