package orbit

import (
	"context"
	"encoding/json"
	"time"
)

// PostType discriminates the records published to the storage network.
type PostType string

const (
	PostMessage   PostType = "message"
	PostFile      PostType = "file"
	PostDirectory PostType = "directory"
)

// Post is an immutable record stored on the storage network. Hash is assigned
// by the storage network and is not part of the stored bytes.
type Post struct {
	Hash      string          `json:"-"`
	Type      PostType        `json:"type"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"ts"`
}

// MessageRecord is the data of a message post.
type MessageRecord struct {
	Content string `json:"content"`
	From    string `json:"from"`
}

// FileEntry is the data of a file or directory post. Directory is derived
// from the post type and is not serialized.
type FileEntry struct {
	Name      string `json:"name"`
	Hash      string `json:"hash"`
	Size      int64  `json:"size"`
	From      string `json:"from"`
	Directory bool   `json:"-"`
}

// Message decodes the data of a message post.
func (p *Post) Message() (*MessageRecord, error) {
	var m MessageRecord
	if err := json.Unmarshal(p.Data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// File decodes the data of a file or directory post.
func (p *Post) File() (*FileEntry, error) {
	var f FileEntry
	if err := json.Unmarshal(p.Data, &f); err != nil {
		return nil, err
	}
	f.Directory = p.Type == PostDirectory
	return &f, nil
}

// PostFactory publishes posts to the storage network.
type PostFactory interface {
	Create(ctx context.Context, storage Storage, typ PostType, data any) (*Post, error)

	// Decode parses the stored bytes of a post.
	Decode(hash string, data []byte) (*Post, error)
}
