package storage

import (
	"context"
	"errors"
	"io"
)

// ErrBlockNotFound is returned (wrapped) by Blockstore.Get for unknown keys.
var ErrBlockNotFound = errors.New("block not found")

// Blockstore persists the raw blocks of a Node, keyed by their CID string.
// Implementations stream through io.Reader/io.Writer so backends can avoid
// buffering whole blocks.
type Blockstore interface {
	// Put stores the block read from r under key. size is the number of
	// bytes that will be read from r. Storing an existing key is safe.
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// Get writes the block stored under key to w.
	Get(ctx context.Context, key string, w io.Writer) error

	// Has reports whether a block is stored under key.
	Has(ctx context.Context, key string) (bool, error)
}
