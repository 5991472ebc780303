// Package post publishes chat posts to the storage network. A post is stored
// as a JSON envelope {type, data, ts}; its hash is whatever the storage
// network assigns to those bytes.
package post

import (
	"context"
	"encoding/json"
	"fmt"

	"orbit-go/internal/orbit"
)

// Factory implements orbit.PostFactory.
type Factory struct {
	clock orbit.Clock
}

var _ orbit.PostFactory = (*Factory)(nil)

// NewFactory creates a Factory that timestamps posts with clock.
func NewFactory(clock orbit.Clock) *Factory {
	return &Factory{clock: clock}
}

// Create encodes data as a post of type typ and stores it.
func (f *Factory) Create(ctx context.Context, storage orbit.Storage, typ orbit.PostType, data any) (*orbit.Post, error) {
	if !validType(typ) {
		return nil, fmt.Errorf("unknown post type: %q", typ)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding post data: %w", err)
	}

	p := &orbit.Post{
		Type:      typ,
		Data:      raw,
		CreatedAt: f.clock.Now().UTC(),
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding post: %w", err)
	}

	hash, err := storage.ObjectPut(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("storing post: %w", err)
	}
	p.Hash = hash
	return p, nil
}

// Decode parses the stored bytes of a post.
func (f *Factory) Decode(hash string, data []byte) (*orbit.Post, error) {
	var p orbit.Post
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing post %s: %w", hash, err)
	}
	if !validType(p.Type) {
		return nil, fmt.Errorf("post %s has unknown type %q", hash, p.Type)
	}
	p.Hash = hash
	return &p, nil
}

func validType(typ orbit.PostType) bool {
	switch typ {
	case orbit.PostMessage, orbit.PostFile, orbit.PostDirectory:
		return true
	}
	return false
}
