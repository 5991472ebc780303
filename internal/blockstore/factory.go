package blockstore

import (
	"context"
	"fmt"
	"os"

	"orbit-go/internal/config"
	"orbit-go/internal/storage"
)

// NewBlockstoreFromConfig creates a storage.Blockstore based on the blockstore config type.
func NewBlockstoreFromConfig(ctx context.Context, cfg config.BlockstoreConfig) (storage.Blockstore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 blockstore requires s3_bucket to be set")
		}
		s, err := NewS3StoreFromConfig(ctx, cfg, os.Getenv)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem blockstore requires fs_root to be set")
		}
		s, err := NewFileSystemStore(cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown blockstore type: %s", cfg.Type)
	}
}
