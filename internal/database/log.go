package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"

	"orbit-go/internal/orbit"
)

var entryPrefix = cid.Prefix{Version: 1, Codec: cid.DagJSON, MhType: mh.SHA2_256, MhLength: -1}

// entryNode is the canonical encoding an entry hash is computed over. Next
// chains each entry to the previous head of its channel.
type entryNode struct {
	Channel string `json:"channel"`
	Value   string `json:"value"`
	From    string `json:"from"`
	TS      int64  `json:"ts"`
	Next    string `json:"next,omitempty"`
}

func entryHash(n entryNode) (string, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("encoding entry: %w", err)
	}
	c, err := entryPrefix.Sum(data)
	if err != nil {
		return "", fmt.Errorf("hashing entry: %w", err)
	}
	return c.String(), nil
}

// channelLog implements orbit.Log for one channel of a session.
type channelLog struct {
	session *session
	channel string

	mu     sync.Mutex
	closed bool
}

var _ orbit.Log = (*channelLog)(nil)

func (l *channelLog) markClosed() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

func (l *channelLog) usable() error {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed || l.session.isClosed() {
		return orbit.ErrClosed
	}
	return nil
}

// Add appends hash to the channel as the session user and emits a data event
// once the entry is stored.
func (l *channelLog) Add(ctx context.Context, hash string) (orbit.Entry, error) {
	if err := l.usable(); err != nil {
		return orbit.Entry{}, err
	}

	s := l.session
	ts := s.opts.Clock.Now().UTC()
	entry := orbit.Entry{Value: hash, From: s.user.ID, CreatedAt: time.Unix(0, ts.UnixNano()).UTC()}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return orbit.Entry{}, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var head string
	err = tx.QueryRowContext(ctx,
		"SELECT hash FROM entries WHERE channel = ? ORDER BY seq DESC LIMIT 1", l.channel).Scan(&head)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return orbit.Entry{}, fmt.Errorf("reading head of %s: %w", l.channel, err)
	}

	entry.Hash, err = entryHash(entryNode{
		Channel: l.channel,
		Value:   hash,
		From:    entry.From,
		TS:      ts.UnixNano(),
		Next:    head,
	})
	if err != nil {
		return orbit.Entry{}, err
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO entries (hash, channel, value, author_id, created_at) VALUES (?, ?, ?, ?, ?)",
		entry.Hash, l.channel, hash, entry.From, ts.UnixNano())
	if err != nil {
		return orbit.Entry{}, fmt.Errorf("appending to %s: %w", l.channel, err)
	}
	if entry.Seq, err = res.LastInsertId(); err != nil {
		return orbit.Entry{}, fmt.Errorf("reading entry sequence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return orbit.Entry{}, fmt.Errorf("committing transaction: %w", err)
	}

	s.emit(orbit.SessionEvent{Kind: orbit.SessionData, Channel: l.channel, Entry: entry})
	return entry, nil
}

// Iterator prepares a query for the newest opts.Limit entries after GTE
// (inclusive) and before LT (exclusive).
func (l *channelLog) Iterator(ctx context.Context, opts orbit.IteratorOptions) (orbit.Cursor, error) {
	if err := l.usable(); err != nil {
		return nil, err
	}

	c := &cursor{log: l, limit: opts.Limit, lt: math.MaxInt64, gte: 0}
	if c.limit < 0 {
		c.limit = -1 // SQLite: no limit
	}

	var err error
	if opts.LT != "" {
		if c.lt, err = l.seqOf(ctx, opts.LT); err != nil {
			return nil, err
		}
	}
	if opts.GTE != "" {
		if c.gte, err = l.seqOf(ctx, opts.GTE); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (l *channelLog) seqOf(ctx context.Context, hash string) (int64, error) {
	var seq int64
	err := l.session.db.QueryRowContext(ctx,
		"SELECT seq FROM entries WHERE channel = ? AND hash = ?", l.channel, hash).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s in %s", ErrEntryNotFound, hash, l.channel)
	}
	if err != nil {
		return 0, fmt.Errorf("looking up entry %s: %w", hash, err)
	}
	return seq, nil
}

// Close releases the handle. Later calls are no-ops.
func (l *channelLog) Close() error {
	l.markClosed()
	l.session.forget(l)
	return nil
}

type cursor struct {
	log     *channelLog
	limit   int
	lt, gte int64
}

func (c *cursor) Collect(ctx context.Context) ([]orbit.Entry, error) {
	if err := c.log.usable(); err != nil {
		return nil, err
	}

	rows, err := c.log.session.db.QueryContext(ctx, `
		SELECT seq, hash, value, author_id, created_at FROM entries
		WHERE channel = ? AND seq < ? AND seq >= ?
		ORDER BY seq DESC
		LIMIT ?`,
		c.log.channel, c.lt, c.gte, c.limit)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", c.log.channel, err)
	}
	defer rows.Close()

	entries := []orbit.Entry{}
	for rows.Next() {
		var e orbit.Entry
		var ts int64
		if err := rows.Scan(&e.Seq, &e.Hash, &e.Value, &e.From, &ts); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.CreatedAt = time.Unix(0, ts).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading entries: %w", err)
	}

	slices.Reverse(entries)
	return entries, nil
}
