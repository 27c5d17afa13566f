package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Success(t *testing.T) {
	path := writeConfig(t, `
listenAddr: "127.0.0.1:9090"
logLevel: "DEBUG"
logFormat: json
storage:
  type: postgres
  dsn: "postgres://parkline@localhost/parkline?sslmode=disable"
themeParks:
  baseURL: "http://localhost:3000/v1"
  errorPolicy: Propagate
itinerary:
  duplicates: reject
history:
  retentionDays: 7
parks:
  - id: "75ea578a-adc8-4116-a54d-dccb60765ef9"
    name: "Magic Kingdom"
  - id: "epcot"
news:
  - name: "Parks Blog"
    url: "https://example.com/feed"
  - url: "https://news.example.org/rss"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.ListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "postgres", cfg.Storage.Type)
	assert.Equal(t, "http://localhost:3000/v1", cfg.ThemeParks.BaseURL)
	assert.Equal(t, "propagate", cfg.ThemeParks.ErrorPolicy)
	assert.Equal(t, "reject", cfg.Itinerary.Duplicates)
	require.NotNil(t, cfg.History.RetentionDays)
	assert.Equal(t, 7, *cfg.History.RetentionDays)
	assert.Equal(t, 7*24*time.Hour, cfg.History.Retention())
	require.Len(t, cfg.Parks, 2)
	assert.Equal(t, "Magic Kingdom", cfg.Parks[0].Name)
	assert.Equal(t, "epcot", cfg.Parks[1].Name, "name defaults to id")
	require.Len(t, cfg.News, 2)
	assert.Equal(t, "news.example.org", cfg.News[1].Name, "name defaults to host")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, DefaultStoragePath, cfg.Storage.Path)
	assert.Equal(t, DefaultBaseURL, cfg.ThemeParks.BaseURL)
	assert.Equal(t, "empty", cfg.ThemeParks.ErrorPolicy)
	assert.Equal(t, "allow", cfg.Itinerary.Duplicates)
	require.NotNil(t, cfg.History.RetentionDays)
	assert.Equal(t, DefaultRetentionDays, *cfg.History.RetentionDays)
	assert.Equal(t, DefaultRetentionDays*24*time.Hour, cfg.History.Retention())
	assert.Empty(t, cfg.Parks)
}

func TestLoad_ZeroRetentionKeepsHistory(t *testing.T) {
	cfg, err := Load(writeConfig(t, "history:\n  retentionDays: 0\n"))
	require.NoError(t, err)
	require.NotNil(t, cfg.History.RetentionDays)
	assert.Equal(t, 0, *cfg.History.RetentionDays)
	assert.Zero(t, cfg.History.Retention())
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, DefaultStoragePath, cfg.Storage.Path)
	assert.Equal(t, "empty", cfg.ThemeParks.ErrorPolicy)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("non_existent_file.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, `[invalid yaml - unclosed bracket`))
	assert.Error(t, err)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "bad log level",
			content: "logLevel: verbose\n",
			wantErr: "logLevel must be one of",
		},
		{
			name:    "bad log format",
			content: "logFormat: xml\n",
			wantErr: "logFormat must be one of",
		},
		{
			name:    "bad storage type",
			content: "storage:\n  type: mongo\n",
			wantErr: "storage.type must be one of",
		},
		{
			name:    "postgres without dsn",
			content: "storage:\n  type: postgres\n",
			wantErr: "storage.dsn cannot be empty",
		},
		{
			name:    "bad error policy",
			content: "themeParks:\n  errorPolicy: throw\n",
			wantErr: "themeParks.errorPolicy must be one of",
		},
		{
			name:    "bad duplicate policy",
			content: "itinerary:\n  duplicates: dedupe\n",
			wantErr: "itinerary.duplicates must be one of",
		},
		{
			name:    "negative retention",
			content: "history:\n  retentionDays: -1\n",
			wantErr: "history.retentionDays cannot be negative",
		},
		{
			name:    "park without id",
			content: "parks:\n  - name: Nowhere\n",
			wantErr: "parks[0].id cannot be empty",
		},
		{
			name:    "duplicate park",
			content: "parks:\n  - id: mk\n  - id: mk\n",
			wantErr: "listed twice",
		},
		{
			name:    "relative news url",
			content: "news:\n  - url: /feed.xml\n",
			wantErr: "news[0].url must be an absolute http(s) URL",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Contains(t, err.Error(), "configuration validation failed")
		})
	}
}
