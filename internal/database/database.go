package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bryan-buckman/parkline/internal/model"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
}

// Ensure DB implements Store interface.
var _ Store = (*DB)(nil)

// New opens or creates an SQLite database at the given path.
func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite allows a single writer; serialize through one connection.
	conn.SetMaxOpenConns(1)
	// Enable WAL mode for better concurrency.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// DatabaseType returns the database backend name.
func (db *DB) DatabaseType() string {
	return "SQLite"
}

// SupportsHighConcurrency returns false for SQLite.
func (db *DB) SupportsHighConcurrency() bool {
	return false
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS parks (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		last_synced DATETIME
	);
	CREATE TABLE IF NOT EXISTS attractions (
		id TEXT PRIMARY KEY,
		park_id TEXT NOT NULL REFERENCES parks(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		status TEXT DEFAULT '',
		wait_time INTEGER,
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS wait_time_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		attraction_id TEXT NOT NULL,
		park_id TEXT NOT NULL,
		wait_time INTEGER NOT NULL,
		status TEXT DEFAULT '',
		recorded_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS news_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		guid TEXT NOT NULL,
		title TEXT NOT NULL,
		link TEXT,
		summary TEXT,
		published_at DATETIME,
		fetched_at DATETIME NOT NULL,
		UNIQUE(source, guid)
	);
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	INSERT OR IGNORE INTO settings (key, value) VALUES ('polling_interval_minutes', '5');

	CREATE INDEX IF NOT EXISTS idx_attractions_park_id ON attractions(park_id);
	CREATE INDEX IF NOT EXISTS idx_history_attraction ON wait_time_history(attraction_id, recorded_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// --- Park Methods ---

// UpsertPark inserts a park or renames an existing one. The sync time is kept.
func (db *DB) UpsertPark(park model.Park) error {
	_, err := db.conn.Exec(`
		INSERT INTO parks (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		park.ID, park.Name)
	return err
}

// GetParks returns all parks ordered by name.
func (db *DB) GetParks() ([]model.Park, error) {
	rows, err := db.conn.Query("SELECT id, name, last_synced FROM parks ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	parks := []model.Park{}
	for rows.Next() {
		var p model.Park
		var lastSynced sql.NullTime
		if err := rows.Scan(&p.ID, &p.Name, &lastSynced); err != nil {
			return nil, err
		}
		if lastSynced.Valid {
			p.LastSynced = lastSynced.Time
		}
		parks = append(parks, p)
	}
	return parks, rows.Err()
}

// GetParkByID returns a single park or ErrNotFound.
func (db *DB) GetParkByID(parkID string) (*model.Park, error) {
	var p model.Park
	var lastSynced sql.NullTime
	err := db.conn.QueryRow("SELECT id, name, last_synced FROM parks WHERE id = ?", parkID).
		Scan(&p.ID, &p.Name, &lastSynced)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastSynced.Valid {
		p.LastSynced = lastSynced.Time
	}
	return &p, nil
}

// MarkParkSynced records the time of the last successful sync.
func (db *DB) MarkParkSynced(parkID string, t time.Time) error {
	_, err := db.conn.Exec("UPDATE parks SET last_synced = ? WHERE id = ?", t.UTC(), parkID)
	return err
}

// --- Attraction Methods ---

// UpsertAttractions inserts or refreshes catalogue rows in one transaction.
func (db *DB) UpsertAttractions(attractions []model.Attraction) error {
	if len(attractions) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO attractions (id, park_id, name, entity_type, status, wait_time, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			park_id = excluded.park_id,
			name = excluded.name,
			entity_type = excluded.entity_type,
			status = excluded.status,
			wait_time = excluded.wait_time,
			updated_at = excluded.updated_at`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, a := range attractions {
		if _, err := stmt.Exec(a.ID, a.ParkID, a.Name, string(a.EntityType), string(a.Status), nullInt(a.WaitTime), a.UpdatedAt.UTC()); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetAttractions returns the catalogue rows of a park ordered by name.
func (db *DB) GetAttractions(parkID string) ([]model.Attraction, error) {
	rows, err := db.conn.Query(`
		SELECT id, park_id, name, entity_type, status, wait_time, updated_at
		FROM attractions WHERE park_id = ? ORDER BY name`, parkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAttractions(rows)
}

// --- Wait Time History Methods ---

// RecordWaitTimes appends samples in one transaction.
func (db *DB) RecordWaitTimes(samples []model.WaitTimeSample) error {
	if len(samples) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO wait_time_history (attraction_id, park_id, wait_time, status, recorded_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, s := range samples {
		if _, err := stmt.Exec(s.AttractionID, s.ParkID, s.WaitTime, string(s.Status), s.RecordedAt.UnixMilli()); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetWaitTimeHistory returns an attraction's samples since the given time,
// oldest first.
func (db *DB) GetWaitTimeHistory(attractionID string, since time.Time) ([]model.WaitTimeSample, error) {
	rows, err := db.conn.Query(`
		SELECT attraction_id, park_id, wait_time, status, recorded_at
		FROM wait_time_history
		WHERE attraction_id = ? AND recorded_at >= ?
		ORDER BY recorded_at ASC`, attractionID, since.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSamples(rows)
}

// PruneWaitTimeHistory deletes samples recorded before the given time.
func (db *DB) PruneWaitTimeHistory(before time.Time) (int64, error) {
	res, err := db.conn.Exec("DELETE FROM wait_time_history WHERE recorded_at < ?", before.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- News Methods ---

// AddNewsItem inserts an item if its GUID is new for the source. Returns ID
// and whether it was new.
func (db *DB) AddNewsItem(item *model.NewsItem) (int64, bool, error) {
	res, err := db.conn.Exec(`
		INSERT INTO news_items (source, guid, title, link, summary, published_at, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, guid) DO NOTHING`,
		item.Source, item.GUID, item.Title, item.Link, item.Summary, item.PublishedAt.UTC(), item.FetchedAt.UTC())
	if err != nil {
		return 0, false, err
	}
	id, _ := res.LastInsertId()
	affected, _ := res.RowsAffected()
	return id, affected > 0, nil
}

// GetNewsItems returns the newest items, up to limit.
func (db *DB) GetNewsItems(limit int) ([]model.NewsItem, error) {
	rows, err := db.conn.Query(`
		SELECT id, source, guid, title, link, summary, published_at, fetched_at
		FROM news_items ORDER BY published_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNewsItems(rows)
}

// --- Settings Methods ---

// GetSetting retrieves a setting value.
func (db *DB) GetSetting(key string) (string, error) {
	var val string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&val)
	return val, err
}

// SetSetting saves a setting.
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec("INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = ?", key, value, value)
	return err
}

// GetPollingInterval returns the polling interval in minutes, never below the minimum.
func (db *DB) GetPollingInterval() (int, error) {
	val, err := db.GetSetting(model.SettingPollingInterval)
	if err != nil {
		return DefaultPollingIntervalMinutes, nil
	}
	return clampPollingInterval(val), nil
}

// --- Scanners shared by both backends ---

func scanAttractions(rows *sql.Rows) ([]model.Attraction, error) {
	attractions := []model.Attraction{}
	for rows.Next() {
		var a model.Attraction
		var entityType, status sql.NullString
		var wait sql.NullInt64
		var updatedAt sql.NullTime
		if err := rows.Scan(&a.ID, &a.ParkID, &a.Name, &entityType, &status, &wait, &updatedAt); err != nil {
			return nil, err
		}
		a.EntityType = model.EntityType(entityType.String)
		a.Status = model.Status(status.String)
		if wait.Valid {
			w := int(wait.Int64)
			a.WaitTime = &w
		}
		if updatedAt.Valid {
			a.UpdatedAt = updatedAt.Time
		}
		attractions = append(attractions, a)
	}
	return attractions, rows.Err()
}

func scanSamples(rows *sql.Rows) ([]model.WaitTimeSample, error) {
	samples := []model.WaitTimeSample{}
	for rows.Next() {
		var s model.WaitTimeSample
		var status sql.NullString
		var recordedAt int64
		if err := rows.Scan(&s.AttractionID, &s.ParkID, &s.WaitTime, &status, &recordedAt); err != nil {
			return nil, err
		}
		s.Status = model.Status(status.String)
		s.RecordedAt = time.UnixMilli(recordedAt).UTC()
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

func scanNewsItems(rows *sql.Rows) ([]model.NewsItem, error) {
	items := []model.NewsItem{}
	for rows.Next() {
		var it model.NewsItem
		var link, summary sql.NullString
		var publishedAt, fetchedAt sql.NullTime
		if err := rows.Scan(&it.ID, &it.Source, &it.GUID, &it.Title, &link, &summary, &publishedAt, &fetchedAt); err != nil {
			return nil, err
		}
		it.Link = link.String
		it.Summary = summary.String
		if publishedAt.Valid {
			it.PublishedAt = publishedAt.Time
		}
		if fetchedAt.Valid {
			it.FetchedAt = fetchedAt.Time
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}
