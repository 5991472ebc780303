package storage_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"orbit-go/internal/blockstore"
	"orbit-go/internal/orbit"
	"orbit-go/internal/storage"
)

func newNode(t *testing.T, peers ...string) (*storage.Node, *blockstore.MemoryStore) {
	t.Helper()
	bs := blockstore.NewMemoryStore()
	n, err := storage.NewNode(bs, peers, nil)
	if err != nil {
		t.Fatalf("NewNode() error = %v", err)
	}
	return n, bs
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestNode_ObjectPutGet(t *testing.T) {
	n, _ := newNode(t)
	ctx := context.Background()

	h1, err := n.ObjectPut(ctx, []byte(`{"type":"message"}`))
	if err != nil {
		t.Fatalf("ObjectPut() error = %v", err)
	}
	h2, err := n.ObjectPut(ctx, []byte(`{"type":"message"}`))
	if err != nil {
		t.Fatalf("ObjectPut() error = %v", err)
	}
	if h1 != h2 {
		t.Errorf("identical bytes gave different hashes: %s and %s", h1, h2)
	}

	h3, err := n.ObjectPut(ctx, []byte(`{"type":"file"}`))
	if err != nil {
		t.Fatalf("ObjectPut() error = %v", err)
	}
	if h3 == h1 {
		t.Error("different bytes gave the same hash")
	}

	obj, err := n.ObjectGet(ctx, h1)
	if err != nil {
		t.Fatalf("ObjectGet() error = %v", err)
	}
	if string(obj.Data) != `{"type":"message"}` {
		t.Errorf("Data = %q", obj.Data)
	}
	if obj.Hash != h1 {
		t.Errorf("Hash = %q, want %q", obj.Hash, h1)
	}
}

func TestNode_ObjectGet_Errors(t *testing.T) {
	n, bs := newNode(t)
	ctx := context.Background()

	t.Run("invalid hash", func(t *testing.T) {
		if _, err := n.ObjectGet(ctx, "not-a-cid"); err == nil {
			t.Error("ObjectGet() expected error")
		}
	})

	t.Run("missing block", func(t *testing.T) {
		other, _ := newNode(t)
		h, err := other.ObjectPut(ctx, []byte("elsewhere"))
		if err != nil {
			t.Fatal(err)
		}
		_, err = n.ObjectGet(ctx, h)
		if !errors.Is(err, storage.ErrBlockNotFound) {
			t.Errorf("ObjectGet() error = %v, want ErrBlockNotFound", err)
		}
	})

	t.Run("corrupt block", func(t *testing.T) {
		other, _ := newNode(t)
		h, err := other.ObjectPut(ctx, []byte("original"))
		if err != nil {
			t.Fatal(err)
		}
		if err := bs.Put(ctx, h, strings.NewReader("tampered"), 8); err != nil {
			t.Fatal(err)
		}
		if _, err := n.ObjectGet(ctx, h); err == nil || !strings.Contains(err.Error(), "corrupt") {
			t.Errorf("ObjectGet() error = %v, want corrupt block", err)
		}
	})
}

func TestNode_AddFile(t *testing.T) {
	n, _ := newNode(t)
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "same bytes")
	writeFile(t, filepath.Join(dir, "b.txt"), "same bytes")

	a, err := n.Add(ctx, filepath.Join(dir, "a.txt"), orbit.AddOptions{Recursive: true})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if len(a) != 1 || a[0].Name != "a.txt" {
		t.Fatalf("Add() = %+v, want one node named a.txt", a)
	}

	b, err := n.Add(ctx, filepath.Join(dir, "b.txt"), orbit.AddOptions{})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if a[0].Hash != b[0].Hash {
		t.Errorf("identical file contents gave hashes %s and %s", a[0].Hash, b[0].Hash)
	}

	listing, err := n.Ls(ctx, a[0].Hash)
	if err != nil {
		t.Fatalf("Ls() error = %v", err)
	}
	if len(listing.Objects) != 1 || len(listing.Objects[0].Links) != 0 {
		t.Errorf("Ls(file) = %+v, want one object without links", listing)
	}
}

func TestNode_AddDirectory(t *testing.T) {
	n, _ := newNode(t)
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "photos")
	writeFile(t, filepath.Join(root, "a.txt"), "aaa")
	writeFile(t, filepath.Join(root, "sub", "b.txt"), "bbbbb")

	nodes, err := n.Add(ctx, root, orbit.AddOptions{Recursive: true})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	wantNames := []string{"photos/a.txt", "photos/sub/b.txt", "photos/sub", "photos", ""}
	if len(nodes) != len(wantNames) {
		t.Fatalf("Add() returned %d nodes, want %d: %+v", len(nodes), len(wantNames), nodes)
	}
	for i, want := range wantNames {
		if nodes[i].Name != want {
			t.Errorf("nodes[%d].Name = %q, want %q", i, nodes[i].Name, want)
		}
	}

	t.Run("directory listing", func(t *testing.T) {
		listing, err := n.Ls(ctx, nodes[3].Hash)
		if err != nil {
			t.Fatalf("Ls() error = %v", err)
		}
		links := listing.Objects[0].Links
		if len(links) != 2 {
			t.Fatalf("len(Links) = %d, want 2", len(links))
		}
		if links[0].Name != "a.txt" || links[0].Type != "file" || links[0].Size != 3 {
			t.Errorf("links[0] = %+v", links[0])
		}
		if links[1].Name != "sub" || links[1].Type != "directory" || links[1].Size != 5 {
			t.Errorf("links[1] = %+v", links[1])
		}
		if links[1].Hash != nodes[2].Hash {
			t.Errorf("sub link hash = %s, want %s", links[1].Hash, nodes[2].Hash)
		}
	})

	t.Run("wrapper lists the root", func(t *testing.T) {
		listing, err := n.Ls(ctx, nodes[4].Hash)
		if err != nil {
			t.Fatalf("Ls() error = %v", err)
		}
		links := listing.Objects[0].Links
		if len(links) != 1 || links[0].Name != "photos" || links[0].Hash != nodes[3].Hash {
			t.Errorf("wrapper links = %+v", links)
		}
	})

	t.Run("directory object has links", func(t *testing.T) {
		obj, err := n.ObjectGet(ctx, nodes[3].Hash)
		if err != nil {
			t.Fatalf("ObjectGet() error = %v", err)
		}
		if len(obj.Data) != 0 || len(obj.Links) != 2 {
			t.Errorf("ObjectGet(dir) = %+v", obj)
		}
	})

	t.Run("re-adding is stable", func(t *testing.T) {
		again, err := n.Add(ctx, root, orbit.AddOptions{Recursive: true})
		if err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		for i := range nodes {
			if again[i].Hash != nodes[i].Hash {
				t.Errorf("node %q hash changed: %s -> %s", nodes[i].Name, nodes[i].Hash, again[i].Hash)
			}
		}
	})
}

func TestNode_AddDirectoryRequiresRecursive(t *testing.T) {
	n, _ := newNode(t)
	if _, err := n.Add(context.Background(), t.TempDir(), orbit.AddOptions{}); err == nil {
		t.Error("Add() expected error for directory without Recursive")
	}
}

func TestNode_AddMissingPath(t *testing.T) {
	n, _ := newNode(t)
	_, err := n.Add(context.Background(), filepath.Join(t.TempDir(), "nope"), orbit.AddOptions{Recursive: true})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Add() error = %v, want os.ErrNotExist", err)
	}
}

func TestNode_AddCanceled(t *testing.T) {
	n, _ := newNode(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := n.Add(ctx, root, orbit.AddOptions{Recursive: true}); !errors.Is(err, context.Canceled) {
		t.Errorf("Add() error = %v, want context.Canceled", err)
	}
}

func TestNode_SwarmPeers(t *testing.T) {
	n, _ := newNode(t, "/ip4/10.0.0.1/tcp/4001", "/dns4/peer.example.com/tcp/4001")
	ctx := context.Background()

	if err := n.Connect("/ip4/10.0.0.1/tcp/4001"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := n.Connect("/ip6/::1/tcp/4002"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	peers, err := n.SwarmPeers(ctx)
	if err != nil {
		t.Fatalf("SwarmPeers() error = %v", err)
	}
	want := []string{"/ip4/10.0.0.1/tcp/4001", "/dns4/peer.example.com/tcp/4001", "/ip6/::1/tcp/4002"}
	if len(peers) != len(want) {
		t.Fatalf("SwarmPeers() = %v, want %v", peers, want)
	}
	for i := range want {
		if peers[i] != want[i] {
			t.Errorf("peers[%d] = %q, want %q", i, peers[i], want[i])
		}
	}
}

func TestNode_InvalidPeer(t *testing.T) {
	if _, err := storage.NewNode(blockstore.NewMemoryStore(), []string{"10.0.0.1:4001"}, nil); err == nil {
		t.Error("NewNode() expected error for non-multiaddr peer")
	}

	n, _ := newNode(t)
	if err := n.Connect("garbage"); err == nil {
		t.Error("Connect() expected error")
	}
}

func TestNode_EmptySwarm(t *testing.T) {
	n, _ := newNode(t)
	peers, err := n.SwarmPeers(context.Background())
	if err != nil {
		t.Fatalf("SwarmPeers() error = %v", err)
	}
	if len(peers) != 0 {
		t.Errorf("SwarmPeers() = %v, want empty", peers)
	}
}

type suffixMatcher string

func (m suffixMatcher) Match(rel string) bool { return strings.HasSuffix(rel, string(m)) }

func TestNode_AddDirectorySkipsIgnored(t *testing.T) {
	bs := blockstore.NewMemoryStore()
	n, err := storage.NewNode(bs, nil, suffixMatcher(".log"))
	if err != nil {
		t.Fatalf("NewNode() error = %v", err)
	}
	root := filepath.Join(t.TempDir(), "logs")
	writeFile(t, filepath.Join(root, "keep.txt"), "keep")
	writeFile(t, filepath.Join(root, "sub", "drop.log"), "drop")

	nodes, err := n.Add(context.Background(), root, orbit.AddOptions{Recursive: true})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	for _, node := range nodes {
		if strings.HasSuffix(node.Name, ".log") {
			t.Errorf("ignored file uploaded: %s", node.Name)
		}
	}
	if len(nodes) != 4 {
		t.Errorf("Add() = %+v, want keep.txt, sub, logs and the wrapper", nodes)
	}
}
