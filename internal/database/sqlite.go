// Package database implements the append-only log database the chat client
// runs on, backed by a local SQLite cache file.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"orbit-go/internal/database/migrations"
	"orbit-go/internal/encryption"
	"orbit-go/internal/orbit"
)

// MemoryPath selects a cache that lives only as long as its session.
const MemoryPath = ":memory:"

// ErrEntryNotFound is returned when an iterator bound names an unknown entry.
var ErrEntryNotFound = errors.New("entry not found")

// Options configures a SQLiteDatabase. Zero fields get working defaults.
type Options struct {
	// NetworkName is reported by every session's Network.
	NetworkName string

	// Path overrides ConnectRequest.CacheFile when set.
	Path string

	Verifier encryption.Verifier
	Clock    orbit.Clock
	IDs      orbit.IDGenerator
	Logger   orbit.Logger
}

// SQLiteDatabase implements orbit.Database. Each session owns its own
// connection to the cache file.
type SQLiteDatabase struct {
	opts Options
}

var _ orbit.Database = (*SQLiteDatabase)(nil)

// NewSQLiteDatabase creates a database with the given options.
func NewSQLiteDatabase(opts Options) *SQLiteDatabase {
	if opts.Verifier == nil {
		opts.Verifier = encryption.NewAgeVerifier(0)
	}
	if opts.Clock == nil {
		opts.Clock = orbit.RealClock{}
	}
	if opts.IDs == nil {
		opts.IDs = orbit.UUIDGenerator{}
	}
	if opts.Logger == nil {
		opts.Logger = orbit.NewNopLogger()
	}
	return &SQLiteDatabase{opts: opts}
}

// OpenConnection opens and configures a SQLite connection to path and brings
// its schema up to date.
func OpenConnection(path string) (*sql.DB, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: an in-memory cache exists per connection, and SQLite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrations.CheckDBMigrationStatus(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Connect opens the cache and authenticates req.Username. The first connect
// of a username registers it with req.Password.
func (d *SQLiteDatabase) Connect(ctx context.Context, req orbit.ConnectRequest) (orbit.Session, error) {
	path := d.opts.Path
	if path == "" {
		path = req.CacheFile
	}
	if path == "" {
		return nil, fmt.Errorf("no cache file configured")
	}
	if req.Username == "" {
		return nil, fmt.Errorf("username is required")
	}

	db, err := OpenConnection(path)
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}
	d.opts.Logger.Debug("cache opened", "path", path)

	user, err := d.authenticate(ctx, db, req.Username, req.Password)
	if err != nil {
		db.Close()
		return nil, err
	}

	return newSession(db, d.opts, user, orbit.Network{
		Name: d.opts.NetworkName,
		Host: req.Host,
		Port: req.Port,
	}), nil
}

// authenticate finds or registers username and checks password.
func (d *SQLiteDatabase) authenticate(ctx context.Context, db *sql.DB, username, password string) (orbit.User, error) {
	now := d.opts.Clock.Now().UnixNano()

	var id string
	var stored []byte
	err := db.QueryRowContext(ctx,
		"SELECT id, verifier FROM users WHERE username = ?", username).Scan(&id, &stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		verifier, err := newVerifier(d.opts.Verifier, password)
		if err != nil {
			return orbit.User{}, err
		}
		id = d.opts.IDs.New()
		if _, err := db.ExecContext(ctx,
			"INSERT INTO users (id, username, verifier, created_at, last_seen_at) VALUES (?, ?, ?, ?, ?)",
			id, username, verifier, now, now); err != nil {
			return orbit.User{}, fmt.Errorf("registering user %s: %w", username, err)
		}
		d.opts.Logger.Info("user registered", "user", username, "id", id)
	case err != nil:
		return orbit.User{}, fmt.Errorf("looking up user %s: %w", username, err)
	default:
		if err := checkPassword(d.opts.Verifier, stored, password); err != nil {
			return orbit.User{}, fmt.Errorf("authenticating %s: %w", username, err)
		}
		if _, err := db.ExecContext(ctx,
			"UPDATE users SET last_seen_at = ? WHERE id = ?", now, id); err != nil {
			return orbit.User{}, fmt.Errorf("updating user %s: %w", username, err)
		}
	}
	return orbit.User{ID: id, Username: username}, nil
}

// newVerifier returns nil for an empty password, which stays unprotected.
func newVerifier(v encryption.Verifier, password string) ([]byte, error) {
	if password == "" {
		return nil, nil
	}
	verifier, err := v.NewVerifier(password)
	if err != nil {
		return nil, fmt.Errorf("deriving password verifier: %w", err)
	}
	return verifier, nil
}

// checkPassword requires password to match stored. A nil stored verifier
// only matches the empty password.
func checkPassword(v encryption.Verifier, stored []byte, password string) error {
	switch {
	case stored == nil && password == "":
		return nil
	case stored == nil || password == "":
		return encryption.ErrWrongPassword
	default:
		return v.Verify(stored, password)
	}
}
