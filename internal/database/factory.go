package database

import (
	"fmt"

	"github.com/bryan-buckman/parkline/internal/config"
)

// Open creates the Store selected by the storage settings.
func Open(cfg config.StorageSettings) (Store, error) {
	switch cfg.Type {
	case "", "sqlite":
		return New(cfg.Path)
	case "postgres":
		return NewPostgres(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
