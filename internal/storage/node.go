// Package storage implements a content-addressed object store with the
// interface of the storage network the chat client publishes to.
//
// Files are stored as single raw blocks (CIDv1, raw codec). Directories are
// dag-json blocks holding their sorted links. Chunking and peer exchange are
// not implemented; peers are tracked as addresses only.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ipfs/go-cid"
	ma "github.com/multiformats/go-multiaddr"
	mh "github.com/multiformats/go-multihash"

	"orbit-go/internal/orbit"
)

var (
	rawPrefix = cid.Prefix{Version: 1, Codec: cid.Raw, MhType: mh.SHA2_256, MhLength: -1}
	dirPrefix = cid.Prefix{Version: 1, Codec: cid.DagJSON, MhType: mh.SHA2_256, MhLength: -1}
)

// directory is the stored form of a directory block.
type directory struct {
	Links []orbit.Link `json:"links"`
}

// Matcher selects files to leave out of a directory upload. It is given
// paths relative to the uploaded directory.
type Matcher interface {
	Match(relativePath string) bool
}

// Node implements orbit.Storage on top of a Blockstore.
// It is safe for concurrent use.
type Node struct {
	blocks Blockstore
	ignore Matcher

	mu    sync.RWMutex
	peers []ma.Multiaddr
}

var _ orbit.Storage = (*Node)(nil)

// NewNode creates a Node storing blocks in blocks and knowing the given peer
// multiaddrs. Files matched by ignore are skipped by directory uploads; ignore
// may be nil.
func NewNode(blocks Blockstore, peers []string, ignore Matcher) (*Node, error) {
	n := &Node{blocks: blocks, ignore: ignore}
	for _, p := range peers {
		if err := n.Connect(p); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// Connect records a peer address. Adding a known address is a no-op.
func (n *Node) Connect(addr string) error {
	m, err := ma.NewMultiaddr(addr)
	if err != nil {
		return fmt.Errorf("parsing peer address %q: %w", addr, err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	for _, p := range n.peers {
		if p.Equal(m) {
			return nil
		}
	}
	n.peers = append(n.peers, m)
	return nil
}

// SwarmPeers returns the known peer addresses.
func (n *Node) SwarmPeers(ctx context.Context) ([]string, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]string, len(n.peers))
	for i, p := range n.peers {
		out[i] = p.String()
	}
	return out, nil
}

// Add stores the file or directory tree at p. A file yields a single node
// named after it. A directory (which requires opts.Recursive) yields every
// file and directory below it in post-order, named relative to its parent,
// followed by a wrapping directory with an empty name.
func (n *Node) Add(ctx context.Context, p string, opts orbit.AddOptions) ([]orbit.AddedNode, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}

	if !info.IsDir() {
		hash, _, err := n.addFile(ctx, p)
		if err != nil {
			return nil, err
		}
		return []orbit.AddedNode{{Name: filepath.Base(p), Hash: hash}}, nil
	}

	if !opts.Recursive {
		return nil, fmt.Errorf("%s is a directory, use a recursive add", p)
	}

	var nodes []orbit.AddedNode
	root, err := n.addDir(ctx, p, filepath.Base(p), "", &nodes)
	if err != nil {
		return nil, err
	}

	wrapper, err := n.putDirectory(ctx, []orbit.Link{root})
	if err != nil {
		return nil, err
	}
	return append(nodes, orbit.AddedNode{Name: "", Hash: wrapper}), nil
}

func (n *Node) addFile(ctx context.Context, p string) (string, int64, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return "", 0, fmt.Errorf("reading %s: %w", p, err)
	}
	hash, err := n.put(ctx, rawPrefix, data)
	if err != nil {
		return "", 0, err
	}
	return hash, int64(len(data)), nil
}

// addDir stores the directory at absPath. name is its node name and rel its
// path below the uploaded root.
func (n *Node) addDir(ctx context.Context, absPath, name, rel string, nodes *[]orbit.AddedNode) (orbit.Link, error) {
	entries, err := os.ReadDir(absPath)
	if err != nil {
		return orbit.Link{}, fmt.Errorf("reading directory %s: %w", absPath, err)
	}

	var links []orbit.Link
	var total int64
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return orbit.Link{}, err
		}

		child := filepath.Join(absPath, e.Name())
		childName := path.Join(name, e.Name())
		childRel := path.Join(rel, e.Name())

		switch {
		case e.IsDir():
			link, err := n.addDir(ctx, child, childName, childRel, nodes)
			if err != nil {
				return orbit.Link{}, err
			}
			link.Name = e.Name()
			links = append(links, link)
			total += link.Size
		case e.Type().IsRegular():
			if n.ignore != nil && n.ignore.Match(childRel) {
				continue
			}
			hash, size, err := n.addFile(ctx, child)
			if err != nil {
				return orbit.Link{}, err
			}
			*nodes = append(*nodes, orbit.AddedNode{Name: childName, Hash: hash})
			links = append(links, orbit.Link{Name: e.Name(), Hash: hash, Size: size, Type: "file"})
			total += size
		}
	}

	hash, err := n.putDirectory(ctx, links)
	if err != nil {
		return orbit.Link{}, err
	}
	*nodes = append(*nodes, orbit.AddedNode{Name: name, Hash: hash})
	return orbit.Link{Name: filepath.Base(absPath), Hash: hash, Size: total, Type: "directory"}, nil
}

func (n *Node) putDirectory(ctx context.Context, links []orbit.Link) (string, error) {
	sorted := append([]orbit.Link{}, links...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	data, err := json.Marshal(directory{Links: sorted})
	if err != nil {
		return "", fmt.Errorf("encoding directory: %w", err)
	}
	return n.put(ctx, dirPrefix, data)
}

// ObjectPut stores data as a raw block.
func (n *Node) ObjectPut(ctx context.Context, data []byte) (string, error) {
	return n.put(ctx, rawPrefix, data)
}

func (n *Node) put(ctx context.Context, prefix cid.Prefix, data []byte) (string, error) {
	c, err := prefix.Sum(data)
	if err != nil {
		return "", fmt.Errorf("hashing block: %w", err)
	}
	key := c.String()

	exists, err := n.blocks.Has(ctx, key)
	if err != nil {
		return "", fmt.Errorf("checking block %s: %w", key, err)
	}
	if exists {
		return key, nil
	}
	if err := n.blocks.Put(ctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
		return "", fmt.Errorf("storing block %s: %w", key, err)
	}
	return key, nil
}

// ObjectGet returns the object at hash: Data for raw blocks, Links for
// directories.
func (n *Node) ObjectGet(ctx context.Context, hash string) (*orbit.Object, error) {
	c, data, err := n.get(ctx, hash)
	if err != nil {
		return nil, err
	}

	switch c.Type() {
	case cid.Raw:
		return &orbit.Object{Hash: hash, Data: data, Links: []orbit.Link{}}, nil
	case cid.DagJSON:
		links, err := decodeDirectory(hash, data)
		if err != nil {
			return nil, err
		}
		return &orbit.Object{Hash: hash, Links: links}, nil
	default:
		return nil, fmt.Errorf("unsupported codec %d for %s", c.Type(), hash)
	}
}

// Ls lists the object at hash. Files list with no links.
func (n *Node) Ls(ctx context.Context, hash string) (*orbit.Listing, error) {
	obj, err := n.ObjectGet(ctx, hash)
	if err != nil {
		return nil, err
	}
	return &orbit.Listing{Objects: []orbit.Object{{Hash: obj.Hash, Links: obj.Links}}}, nil
}

// get reads and verifies the block at hash.
func (n *Node) get(ctx context.Context, hash string) (cid.Cid, []byte, error) {
	c, err := cid.Decode(hash)
	if err != nil {
		return cid.Undef, nil, fmt.Errorf("invalid hash %q: %w", hash, err)
	}

	var buf bytes.Buffer
	if err := n.blocks.Get(ctx, c.String(), &buf); err != nil {
		return cid.Undef, nil, fmt.Errorf("reading block %s: %w", hash, err)
	}

	check, err := c.Prefix().Sum(buf.Bytes())
	if err != nil {
		return cid.Undef, nil, fmt.Errorf("hashing block %s: %w", hash, err)
	}
	if !check.Equals(c) {
		return cid.Undef, nil, fmt.Errorf("block %s is corrupt", hash)
	}
	return c, buf.Bytes(), nil
}

func decodeDirectory(hash string, data []byte) ([]orbit.Link, error) {
	var d directory
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decoding directory %s: %w", hash, err)
	}
	if d.Links == nil {
		d.Links = []orbit.Link{}
	}
	return d.Links, nil
}
