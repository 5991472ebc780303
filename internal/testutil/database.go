package testutil

import (
	"context"
	"fmt"
	"sync"

	"orbit-go/internal/orbit"
)

// FakeDatabase is an in-memory orbit.Database handing out FakeSessions.
type FakeDatabase struct {
	mu       sync.Mutex
	requests []orbit.ConnectRequest
	sessions []*FakeSession

	NetworkName string

	// ConnectErr, when set, fails every Connect.
	ConnectErr error
}

var _ orbit.Database = (*FakeDatabase)(nil)

// NewFakeDatabase creates a FakeDatabase whose sessions report networkName.
func NewFakeDatabase(networkName string) *FakeDatabase {
	return &FakeDatabase{NetworkName: networkName}
}

func (d *FakeDatabase) Connect(ctx context.Context, req orbit.ConnectRequest) (orbit.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.requests = append(d.requests, req)
	if d.ConnectErr != nil {
		return nil, d.ConnectErr
	}
	s := NewFakeSession(
		orbit.User{ID: "user-" + req.Username, Username: req.Username},
		orbit.Network{Name: d.NetworkName, Host: req.Host, Port: req.Port},
	)
	d.sessions = append(d.sessions, s)
	return s, nil
}

// Requests returns every request passed to Connect.
func (d *FakeDatabase) Requests() []orbit.ConnectRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]orbit.ConnectRequest(nil), d.requests...)
}

// Sessions returns every session handed out, oldest first.
func (d *FakeDatabase) Sessions() []*FakeSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*FakeSession(nil), d.sessions...)
}

// LastSession returns the most recent session, or nil.
func (d *FakeDatabase) LastSession() *FakeSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sessions) == 0 {
		return nil
	}
	return d.sessions[len(d.sessions)-1]
}

// FakeSession is an in-memory orbit.Session. Entries are shared by every
// handle opened on the same channel.
type FakeSession struct {
	mu           sync.Mutex
	user         orbit.User
	network      orbit.Network
	subs         map[int]func(orbit.SessionEvent)
	nextSub      int
	logs         []*FakeLog
	entries      map[string][]orbit.Entry
	nextEntry    int
	disconnected int

	// ChannelErr fails Channel after the load notice.
	ChannelErr error

	// DisconnectErr is returned by Disconnect.
	DisconnectErr error

	// BeforeChannelReturn runs inside Channel just before the log is returned.
	BeforeChannelReturn func(name string)
}

var _ orbit.Session = (*FakeSession)(nil)

// NewFakeSession creates a live session.
func NewFakeSession(user orbit.User, network orbit.Network) *FakeSession {
	return &FakeSession{
		user:    user,
		network: network,
		subs:    make(map[int]func(orbit.SessionEvent)),
		entries: make(map[string][]orbit.Entry),
	}
}

func (s *FakeSession) User() orbit.User       { return s.user }
func (s *FakeSession) Network() orbit.Network { return s.network }

func (s *FakeSession) Subscribe(fn func(orbit.SessionEvent)) func() {
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

// Subscribers returns the number of live subscriptions.
func (s *FakeSession) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Emit delivers ev to every subscriber, in subscription order.
func (s *FakeSession) Emit(ev orbit.SessionEvent) {
	s.mu.Lock()
	var fns []func(orbit.SessionEvent)
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

func (s *FakeSession) Channel(ctx context.Context, name, password string) (orbit.Log, error) {
	if s.Disconnected() {
		return nil, orbit.ErrClosed
	}
	s.Emit(orbit.SessionEvent{Kind: orbit.SessionLoad, Channel: name, Action: "join"})
	if s.ChannelErr != nil {
		return nil, s.ChannelErr
	}

	l := &FakeLog{session: s, channel: name}
	s.mu.Lock()
	s.logs = append(s.logs, l)
	s.mu.Unlock()

	s.Emit(orbit.SessionEvent{Kind: orbit.SessionLoaded, Channel: name, Action: "join"})
	if s.BeforeChannelReturn != nil {
		s.BeforeChannelReturn(name)
	}
	return l, nil
}

// Logs returns every handle opened on channel name.
func (s *FakeSession) Logs(name string) []*FakeLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*FakeLog
	for _, l := range s.logs {
		if l.channel == name {
			out = append(out, l)
		}
	}
	return out
}

// Entries returns the entries of channel name, oldest first.
func (s *FakeSession) Entries(name string) []orbit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]orbit.Entry(nil), s.entries[name]...)
}

// Seed appends entries with the given values to a channel without emitting.
func (s *FakeSession) Seed(name string, values ...string) []orbit.Entry {
	out := make([]orbit.Entry, 0, len(values))
	for _, v := range values {
		out = append(out, s.appendEntry(name, v))
	}
	return out
}

func (s *FakeSession) appendEntry(name, value string) orbit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEntry++
	e := orbit.Entry{
		Hash:  fmt.Sprintf("entry-%d", s.nextEntry),
		Value: value,
		From:  s.user.ID,
		Seq:   int64(s.nextEntry),
	}
	s.entries[name] = append(s.entries[name], e)
	return e
}

// Disconnected reports whether Disconnect was called.
func (s *FakeSession) Disconnected() bool {
	return s.DisconnectCount() > 0
}

// DisconnectCount returns how many times Disconnect was called.
func (s *FakeSession) DisconnectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnected
}

func (s *FakeSession) Disconnect() error {
	s.mu.Lock()
	s.disconnected++
	logs := append([]*FakeLog(nil), s.logs...)
	s.subs = make(map[int]func(orbit.SessionEvent))
	s.mu.Unlock()

	for _, l := range logs {
		l.markClosed()
	}
	return s.DisconnectErr
}

// FakeLog is the orbit.Log handed out by FakeSession.
type FakeLog struct {
	session *FakeSession
	channel string

	mu     sync.Mutex
	closed bool
	closes int

	AddErr      error
	IteratorErr error
	CollectErr  error

	// IgnoreLimit makes cursors return every entry in range.
	IgnoreLimit bool

	// Iterators records the options of every Iterator call.
	Iterators []orbit.IteratorOptions
}

var _ orbit.Log = (*FakeLog)(nil)

func (l *FakeLog) markClosed() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

// Closed reports whether the handle was closed, directly or by Disconnect.
func (l *FakeLog) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// CloseCount returns how many times Close was called.
func (l *FakeLog) CloseCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closes
}

func (l *FakeLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closes++
	l.closed = true
	return nil
}

func (l *FakeLog) Add(ctx context.Context, hash string) (orbit.Entry, error) {
	if l.Closed() {
		return orbit.Entry{}, orbit.ErrClosed
	}
	if l.AddErr != nil {
		return orbit.Entry{}, l.AddErr
	}
	e := l.session.appendEntry(l.channel, hash)
	l.session.Emit(orbit.SessionEvent{Kind: orbit.SessionData, Channel: l.channel, Entry: e})
	return e, nil
}

func (l *FakeLog) Iterator(ctx context.Context, opts orbit.IteratorOptions) (orbit.Cursor, error) {
	l.mu.Lock()
	l.Iterators = append(l.Iterators, opts)
	closed := l.closed
	l.mu.Unlock()

	if closed {
		return nil, orbit.ErrClosed
	}
	if l.IteratorErr != nil {
		return nil, l.IteratorErr
	}
	return &fakeCursor{log: l, opts: opts}, nil
}

type fakeCursor struct {
	log  *FakeLog
	opts orbit.IteratorOptions
}

// Collect returns the newest Limit entries with index >= GTE and < LT.
func (c *fakeCursor) Collect(ctx context.Context) ([]orbit.Entry, error) {
	if c.log.Closed() {
		return nil, orbit.ErrClosed
	}
	if c.log.CollectErr != nil {
		return nil, c.log.CollectErr
	}

	all := c.log.session.Entries(c.log.channel)
	lo, hi := 0, len(all)
	for i, e := range all {
		if e.Hash == c.opts.GTE {
			lo = i
		}
		if e.Hash == c.opts.LT {
			hi = i
		}
	}
	if lo > hi {
		lo = hi
	}
	window := all[lo:hi]
	if !c.log.IgnoreLimit && c.opts.Limit >= 0 && len(window) > c.opts.Limit {
		window = window[len(window)-c.opts.Limit:]
	}
	return window, nil
}
