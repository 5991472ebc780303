package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"orbit-go/internal/orbit"
)

// FakeStorage is an in-memory orbit.Storage. Objects are addressed by
// ContentHash. Add results are scripted per path; unscripted paths upload as a
// single file node. Every *Err field, when set, fails the matching call.
type FakeStorage struct {
	mu       sync.Mutex
	objects  map[string][]byte
	adds     map[string][]orbit.AddedNode
	listings map[string]*orbit.Listing

	Peers []string

	AddErr       error
	LsErr        error
	ObjectGetErr error
	ObjectPutErr error
	PeersErr     error

	// AddCalls records the paths passed to Add, in order.
	AddCalls []string

	// BeforeObjectPut runs at the start of every ObjectPut.
	BeforeObjectPut func()
}

var _ orbit.Storage = (*FakeStorage)(nil)

// NewFakeStorage creates an empty FakeStorage.
func NewFakeStorage() *FakeStorage {
	return &FakeStorage{
		objects:  make(map[string][]byte),
		adds:     make(map[string][]orbit.AddedNode),
		listings: make(map[string]*orbit.Listing),
	}
}

// SetAddResult scripts the nodes Add returns for path.
func (s *FakeStorage) SetAddResult(path string, nodes []orbit.AddedNode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adds[path] = nodes
}

// SetListing scripts the listing Ls returns for hash.
func (s *FakeStorage) SetListing(hash string, links []orbit.Link) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[hash] = &orbit.Listing{Objects: []orbit.Object{{Hash: hash, Links: links}}}
}

// Object returns the stored bytes at hash.
func (s *FakeStorage) Object(hash string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[hash]
	return data, ok
}

// Len returns the number of stored objects.
func (s *FakeStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func (s *FakeStorage) Add(ctx context.Context, path string, opts orbit.AddOptions) ([]orbit.AddedNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.AddCalls = append(s.AddCalls, path)
	if s.AddErr != nil {
		return nil, s.AddErr
	}
	if nodes, ok := s.adds[path]; ok {
		return nodes, nil
	}
	return []orbit.AddedNode{{Name: filepath.Base(path), Hash: ContentHash([]byte(path))}}, nil
}

func (s *FakeStorage) Ls(ctx context.Context, hash string) (*orbit.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.LsErr != nil {
		return nil, s.LsErr
	}
	l, ok := s.listings[hash]
	if !ok {
		return nil, fmt.Errorf("no listing for %s", hash)
	}
	return l, nil
}

func (s *FakeStorage) ObjectGet(ctx context.Context, hash string) (*orbit.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ObjectGetErr != nil {
		return nil, s.ObjectGetErr
	}
	data, ok := s.objects[hash]
	if !ok {
		return nil, fmt.Errorf("object %s not found", hash)
	}
	return &orbit.Object{Hash: hash, Data: data, Links: []orbit.Link{}}, nil
}

func (s *FakeStorage) ObjectPut(ctx context.Context, data []byte) (string, error) {
	if s.BeforeObjectPut != nil {
		s.BeforeObjectPut()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ObjectPutErr != nil {
		return "", s.ObjectPutErr
	}
	hash := ContentHash(data)
	s.objects[hash] = append([]byte(nil), data...)
	return hash, nil
}

func (s *FakeStorage) SwarmPeers(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.PeersErr != nil {
		return nil, s.PeersErr
	}
	return append([]string{}, s.Peers...), nil
}
