package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"orbit-go/internal/orbit"
)

// session implements orbit.Session over one cache connection.
type session struct {
	db      *sql.DB
	opts    Options
	user    orbit.User
	network orbit.Network

	mu      sync.Mutex
	closed  bool
	logs    map[*channelLog]struct{}
	subs    map[int]func(orbit.SessionEvent)
	nextSub int
}

var _ orbit.Session = (*session)(nil)

func newSession(db *sql.DB, opts Options, user orbit.User, network orbit.Network) *session {
	return &session{
		db:      db,
		opts:    opts,
		user:    user,
		network: network,
		logs:    make(map[*channelLog]struct{}),
		subs:    make(map[int]func(orbit.SessionEvent)),
	}
}

func (s *session) User() orbit.User       { return s.user }
func (s *session) Network() orbit.Network { return s.network }

func (s *session) Subscribe(fn func(orbit.SessionEvent)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// emit calls every subscriber outside the lock, in subscription order.
func (s *session) emit(ev orbit.SessionEvent) {
	s.mu.Lock()
	fns := make([]func(orbit.SessionEvent), 0, len(s.subs))
	for id := 0; id < s.nextSub; id++ {
		if fn, ok := s.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (s *session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Channel opens the log of name. The first open of a channel creates it
// with password; later opens must present the same password.
func (s *session) Channel(ctx context.Context, name, password string) (orbit.Log, error) {
	if name == "" {
		return nil, fmt.Errorf("channel name is required")
	}
	if s.isClosed() {
		return nil, orbit.ErrClosed
	}

	s.emit(orbit.SessionEvent{Kind: orbit.SessionLoad, Channel: name, Action: "join"})

	if err := s.openChannel(ctx, name, password); err != nil {
		return nil, err
	}

	l := &channelLog{session: s, channel: name}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, orbit.ErrClosed
	}
	s.logs[l] = struct{}{}
	s.mu.Unlock()

	s.opts.Logger.Debug("channel opened", "channel", name)
	s.emit(orbit.SessionEvent{Kind: orbit.SessionLoaded, Channel: name, Action: "join"})
	return l, nil
}

func (s *session) openChannel(ctx context.Context, name, password string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var stored []byte
	err = tx.QueryRowContext(ctx, "SELECT verifier FROM channels WHERE name = ?", name).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		verifier, err := newVerifier(s.opts.Verifier, password)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO channels (name, verifier, created_at) VALUES (?, ?, ?)",
			name, verifier, s.opts.Clock.Now().UnixNano()); err != nil {
			return fmt.Errorf("creating channel %s: %w", name, err)
		}
	case err != nil:
		return fmt.Errorf("looking up channel %s: %w", name, err)
	default:
		if err := checkPassword(s.opts.Verifier, stored, password); err != nil {
			return fmt.Errorf("opening channel %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *session) forget(l *channelLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, l)
}

// Disconnect closes every open log and the cache connection. Later calls
// are no-ops.
func (s *session) Disconnect() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	logs := make([]*channelLog, 0, len(s.logs))
	for l := range s.logs {
		logs = append(logs, l)
	}
	s.logs = nil
	s.subs = make(map[int]func(orbit.SessionEvent))
	s.mu.Unlock()

	for _, l := range logs {
		l.markClosed()
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing cache: %w", err)
	}
	return nil
}
