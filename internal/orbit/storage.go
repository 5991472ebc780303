package orbit

import "context"

// AddOptions controls Storage.Add.
type AddOptions struct {
	Recursive bool
}

// AddedNode is one node created by Storage.Add.
type AddedNode struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
}

// Link is a named reference from a directory object to another object.
type Link struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size int64  `json:"Size"`
	Type string `json:"Type"` // "file" or "directory"
}

// Object is a stored object as returned by ObjectGet and Ls.
type Object struct {
	Hash  string `json:"Hash"`
	Data  []byte `json:"Data,omitempty"`
	Links []Link `json:"Links"`
}

// Listing is the result of Storage.Ls.
type Listing struct {
	Objects []Object `json:"Objects"`
}

// Storage is the content-addressable storage network. Identical bytes always
// produce identical hashes.
type Storage interface {
	// Add uploads a local file or directory tree and returns every node
	// created, in upload order. For a directory the storage network appends
	// a wrapping node with an empty name as the final element.
	Add(ctx context.Context, path string, opts AddOptions) ([]AddedNode, error)

	// Ls lists the links of the object at hash.
	Ls(ctx context.Context, hash string) (*Listing, error)

	// ObjectGet returns the object stored at hash.
	ObjectGet(ctx context.Context, hash string) (*Object, error)

	// ObjectPut stores data as a single object and returns its hash.
	ObjectPut(ctx context.Context, data []byte) (string, error)

	// SwarmPeers returns the addresses of the peers currently known.
	SwarmPeers(ctx context.Context) ([]string, error)
}
