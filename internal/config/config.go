// Package config loads the service settings from a YAML file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Load for omitted values.
const (
	DefaultListenAddr    = "0.0.0.0:8080"
	DefaultStoragePath   = "parkline.db"
	DefaultBaseURL       = "https://api.themeparks.wiki/v1"
	DefaultRetentionDays = 30
)

type Settings struct {
	ListenAddr string            `yaml:"listenAddr"`
	LogLevel   string            `yaml:"logLevel"`
	LogFormat  string            `yaml:"logFormat"`
	Storage    StorageSettings   `yaml:"storage"`
	ThemeParks ThemeParksSetting `yaml:"themeParks"`
	Itinerary  ItinerarySettings `yaml:"itinerary"`
	History    HistorySettings   `yaml:"history"`
	Parks      []ParkSettings    `yaml:"parks"`
	News       []NewsFeed        `yaml:"news"`
}

type StorageSettings struct {
	Type string `yaml:"type"` // sqlite or postgres
	Path string `yaml:"path"` // SQLite file
	DSN  string `yaml:"dsn"`  // PostgreSQL connection string
}

type ThemeParksSetting struct {
	BaseURL     string `yaml:"baseURL"`
	ErrorPolicy string `yaml:"errorPolicy"` // empty or propagate
}

type ItinerarySettings struct {
	Duplicates string `yaml:"duplicates"` // allow or reject
}

// HistorySettings controls wait-time history pruning. An omitted
// retentionDays selects DefaultRetentionDays; 0 keeps history forever.
type HistorySettings struct {
	RetentionDays *int `yaml:"retentionDays"`
}

// Retention returns the configured retention window. Zero disables pruning.
func (h HistorySettings) Retention() time.Duration {
	days := DefaultRetentionDays
	if h.RetentionDays != nil {
		days = *h.RetentionDays
	}
	return time.Duration(days) * 24 * time.Hour
}

type ParkSettings struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type NewsFeed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Validate normalises and checks the settings.
func (s *Settings) Validate() error {
	if s.LogLevel != "" {
		validLogLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		normalized := strings.ToLower(s.LogLevel)
		if !validLogLevels[normalized] {
			return fmt.Errorf("logLevel must be one of [debug, info, warn, error], got '%s'", s.LogLevel)
		}
		s.LogLevel = normalized
	}

	s.LogFormat = strings.ToLower(s.LogFormat)
	if s.LogFormat != "" && s.LogFormat != "text" && s.LogFormat != "json" {
		return fmt.Errorf("logFormat must be one of [text, json], got '%s'", s.LogFormat)
	}

	s.Storage.Type = strings.ToLower(s.Storage.Type)
	switch s.Storage.Type {
	case "", "sqlite":
		s.Storage.Type = "sqlite"
		if strings.TrimSpace(s.Storage.Path) == "" {
			s.Storage.Path = DefaultStoragePath
		}
	case "postgres":
		if strings.TrimSpace(s.Storage.DSN) == "" {
			return fmt.Errorf("storage.dsn cannot be empty when storage.type is postgres")
		}
	default:
		return fmt.Errorf("storage.type must be one of [sqlite, postgres], got '%s'", s.Storage.Type)
	}

	s.ThemeParks.ErrorPolicy = strings.ToLower(s.ThemeParks.ErrorPolicy)
	switch s.ThemeParks.ErrorPolicy {
	case "", "empty", "propagate":
	default:
		return fmt.Errorf("themeParks.errorPolicy must be one of [empty, propagate], got '%s'", s.ThemeParks.ErrorPolicy)
	}
	if s.ThemeParks.BaseURL != "" {
		if _, err := url.ParseRequestURI(s.ThemeParks.BaseURL); err != nil {
			return fmt.Errorf("themeParks.baseURL is invalid: %w", err)
		}
	}

	s.Itinerary.Duplicates = strings.ToLower(s.Itinerary.Duplicates)
	switch s.Itinerary.Duplicates {
	case "", "allow", "reject":
	default:
		return fmt.Errorf("itinerary.duplicates must be one of [allow, reject], got '%s'", s.Itinerary.Duplicates)
	}

	if s.History.RetentionDays != nil && *s.History.RetentionDays < 0 {
		return fmt.Errorf("history.retentionDays cannot be negative, got %d", *s.History.RetentionDays)
	}

	seen := make(map[string]bool)
	for i, p := range s.Parks {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("parks[%d].id cannot be empty", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("parks[%d].id '%s' is listed twice", i, p.ID)
		}
		seen[p.ID] = true
		if strings.TrimSpace(p.Name) == "" {
			s.Parks[i].Name = p.ID
		}
	}

	for i, f := range s.News {
		u, err := url.Parse(f.URL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("news[%d].url must be an absolute http(s) URL, got '%s'", i, f.URL)
		}
		if strings.TrimSpace(f.Name) == "" {
			s.News[i].Name = u.Host
		}
	}

	return nil
}

func (s *Settings) applyDefaults() {
	if s.ListenAddr == "" {
		s.ListenAddr = DefaultListenAddr
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if s.LogFormat == "" {
		s.LogFormat = "text"
	}
	if s.ThemeParks.BaseURL == "" {
		s.ThemeParks.BaseURL = DefaultBaseURL
	}
	if s.ThemeParks.ErrorPolicy == "" {
		s.ThemeParks.ErrorPolicy = "empty"
	}
	if s.Itinerary.Duplicates == "" {
		s.Itinerary.Duplicates = "allow"
	}
	if s.History.RetentionDays == nil {
		days := DefaultRetentionDays
		s.History.RetentionDays = &days
	}
}

// Default returns validated settings with every default applied and no parks
// or news feeds configured.
func Default() *Settings {
	s := &Settings{}
	_ = s.Validate()
	s.applyDefaults()
	return s
}

func Load(path string) (*Settings, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var settings Settings
	err = yaml.Unmarshal(bytes, &settings)
	if err != nil {
		return nil, err
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	settings.applyDefaults()

	return &settings, nil
}
