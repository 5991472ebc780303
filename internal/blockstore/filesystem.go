package blockstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"orbit-go/internal/storage"
)

// FileSystemStore is a filesystem-based implementation of storage.Blockstore.
// Blocks are stored as files named by their key, sharded by the last two
// characters of the key:
//
//	<root>/
//	  blocks/
//	    <shard>/
//	      <key>
type FileSystemStore struct {
	root      string
	blocksDir string
}

// NewFileSystemStore creates a new filesystem block store rooted at the given path.
func NewFileSystemStore(root string) (*FileSystemStore, error) {
	blocksDir := filepath.Join(root, "blocks")
	if err := os.MkdirAll(blocksDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blocks directory: %w", err)
	}

	return &FileSystemStore{root: root, blocksDir: blocksDir}, nil
}

func (s *FileSystemStore) blockPath(key string) string {
	shard := key
	if len(key) > 2 {
		shard = key[len(key)-2:]
	}
	return filepath.Join(s.blocksDir, shard, key)
}

// Put stores the block read from r under key.
// Storing the same key multiple times is safe.
func (s *FileSystemStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	destPath := s.blockPath(key)

	if _, err := os.Stat(destPath); err == nil {
		// Consume the reader to maintain expected behavior
		written, err := io.Copy(io.Discard, r)
		if err != nil {
			return fmt.Errorf("failed to read block: %w", err)
		}
		if written != size {
			return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create shard directory: %w", err)
	}
	return writeFile(destPath, r, size)
}

// Get writes the block stored under key to w.
func (s *FileSystemStore) Get(ctx context.Context, key string, w io.Writer) error {
	f, err := os.Open(s.blockPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", storage.ErrBlockNotFound, key)
		}
		return fmt.Errorf("failed to open block: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read block: %w", err)
	}
	return nil
}

// Has reports whether key is stored.
func (s *FileSystemStore) Has(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.blockPath(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("checking block: %w", err)
}

// writeFile writes data from r to destPath using atomic write (temp file + rename).
func writeFile(destPath string, r io.Reader, expectedSize int64) error {
	// Create temp file in the same directory to ensure atomic rename works
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

var _ storage.Blockstore = (*FileSystemStore)(nil)
