package blockstore

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"orbit-go/internal/storage"
)

// stores returns a fresh instance of every local backend.
func stores(t *testing.T) map[string]storage.Blockstore {
	t.Helper()
	fs, err := NewFileSystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}
	return map[string]storage.Blockstore{
		"memory":     NewMemoryStore(),
		"filesystem": fs,
		"s3":         NewS3Store(newFakeS3(), "bucket", "orbit"),
	}
}

func TestBlockstore_PutGetHas(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		key     string
		content string
	}{
		{name: "small block", key: "bafkreiabc123", content: "hello world"},
		{name: "empty block", key: "bafkreiempty", content: ""},
		{name: "large block", key: "bafkreilarge", content: strings.Repeat("x", 10000)},
	}

	for backend, bs := range stores(t) {
		bs := bs
		for _, tt := range tests {
			tt := tt
			t.Run(backend+"/"+tt.name, func(t *testing.T) {
				if ok, err := bs.Has(ctx, tt.key); err != nil || ok {
					t.Fatalf("Has() before Put = %v, %v; want false, nil", ok, err)
				}

				if err := bs.Put(ctx, tt.key, strings.NewReader(tt.content), int64(len(tt.content))); err != nil {
					t.Fatalf("Put() error = %v", err)
				}

				if ok, err := bs.Has(ctx, tt.key); err != nil || !ok {
					t.Fatalf("Has() after Put = %v, %v; want true, nil", ok, err)
				}

				var buf bytes.Buffer
				if err := bs.Get(ctx, tt.key, &buf); err != nil {
					t.Fatalf("Get() error = %v", err)
				}
				if buf.String() != tt.content {
					t.Errorf("Get() = %d bytes, want %d", buf.Len(), len(tt.content))
				}
			})
		}
	}
}

func TestBlockstore_PutIdempotent(t *testing.T) {
	ctx := context.Background()
	for backend, bs := range stores(t) {
		bs := bs
		t.Run(backend, func(t *testing.T) {
			for i := 0; i < 2; i++ {
				if err := bs.Put(ctx, "same", strings.NewReader("data"), 4); err != nil {
					t.Fatalf("Put() iteration %d error = %v", i+1, err)
				}
			}

			var buf bytes.Buffer
			if err := bs.Get(ctx, "same", &buf); err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if buf.String() != "data" {
				t.Errorf("Get() = %q, want %q", buf.String(), "data")
			}
		})
	}
}

func TestBlockstore_GetMissing(t *testing.T) {
	ctx := context.Background()
	for backend, bs := range stores(t) {
		bs := bs
		t.Run(backend, func(t *testing.T) {
			var buf bytes.Buffer
			err := bs.Get(ctx, "missing", &buf)
			if !errors.Is(err, storage.ErrBlockNotFound) {
				t.Errorf("Get() error = %v, want ErrBlockNotFound", err)
			}
		})
	}
}

func TestBlockstore_SizeMismatch(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileSystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}

	for backend, bs := range map[string]storage.Blockstore{"memory": NewMemoryStore(), "filesystem": fs} {
		bs := bs
		t.Run(backend, func(t *testing.T) {
			err := bs.Put(ctx, "short", strings.NewReader("hello"), 100)
			if err == nil {
				t.Fatal("Put() expected size mismatch error")
			}
			if ok, _ := bs.Has(ctx, "short"); ok {
				t.Error("block stored despite size mismatch")
			}
		})
	}
}

func TestMemoryStore_Len(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	_ = m.Put(ctx, "a", strings.NewReader("1"), 1)
	_ = m.Put(ctx, "b", strings.NewReader("2"), 1)
	_ = m.Put(ctx, "a", strings.NewReader("1"), 1)

	if got := m.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}
