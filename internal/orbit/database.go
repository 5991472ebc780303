package orbit

import (
	"context"
	"time"
)

// User is the identity a session is authenticated as.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Network describes the network a session is connected to.
type Network struct {
	Name string `json:"name"`
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Entry is a single record of a channel log. Value is the hash that was
// appended (normally a post hash); Hash identifies the entry itself and is
// what cursor bounds refer to.
type Entry struct {
	Hash      string    `json:"hash"`
	Value     string    `json:"value"`
	From      string    `json:"from"`
	Seq       int64     `json:"seq"`
	CreatedAt time.Time `json:"ts"`
}

// ConnectRequest carries everything the database needs to open a session.
type ConnectRequest struct {
	Host      string
	Port      int
	Username  string
	Password  string
	Storage   Storage
	CacheFile string
}

// Database opens sessions against the append-only log network.
type Database interface {
	Connect(ctx context.Context, req ConnectRequest) (Session, error)
}

// SessionEventKind names the notifications a session emits.
type SessionEventKind string

const (
	SessionData   SessionEventKind = "data"
	SessionLoad   SessionEventKind = "load"
	SessionLoaded SessionEventKind = "loaded"
)

// SessionEvent is a notification from a session. Entry is only set for
// SessionData; Action only for SessionLoad and SessionLoaded.
type SessionEvent struct {
	Kind    SessionEventKind
	Channel string
	Action  string
	Entry   Entry
}

// Session is one authenticated connection to the log network.
type Session interface {
	User() User
	Network() Network

	// Subscribe registers fn for every event the session emits and returns
	// a function that removes the registration.
	Subscribe(fn func(SessionEvent)) (unsubscribe func())

	// Channel opens the log of a channel, creating it if needed.
	Channel(ctx context.Context, name, password string) (Log, error)

	// Disconnect closes every log opened through the session and releases it.
	Disconnect() error
}

// IteratorOptions bounds a cursor query. LT and GTE are entry hashes; empty
// means unbounded. A negative Limit means no limit.
type IteratorOptions struct {
	Limit int
	LT    string
	GTE   string
}

// Log is the handle of one open channel log.
type Log interface {
	Add(ctx context.Context, hash string) (Entry, error)
	Iterator(ctx context.Context, opts IteratorOptions) (Cursor, error)
	Close() error
}

// Cursor is a prepared, bounded query over a log.
type Cursor interface {
	// Collect returns the entries the cursor covers, oldest first.
	Collect(ctx context.Context) ([]Entry, error)
}
