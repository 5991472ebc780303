package database

import (
	"fmt"

	"orbit-go/internal/config"
	"orbit-go/internal/encryption"
	"orbit-go/internal/orbit"
)

// NewDatabaseFromConfig creates an orbit.Database based on the database config type.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, networkName string, logger orbit.Logger) (orbit.Database, error) {
	verifier, err := encryption.NewVerifierFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	opts := Options{
		NetworkName: networkName,
		Verifier:    verifier,
		Logger:      logger,
	}

	switch cfg.Type {
	case "sqlite":
		// Empty uses the cache file of each connect request.
		opts.Path = cfg.CacheFile
	case "memory":
		opts.Path = MemoryPath
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
	return NewSQLiteDatabase(opts), nil
}
