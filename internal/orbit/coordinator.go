package orbit

import (
	"context"
	"sync"
)

// CommandHandler runs a slash command typed into a channel. args are the
// whitespace-separated words following the command name.
type CommandHandler func(ctx context.Context, channel string, args []string) error

// Options configures a Coordinator.
type Options struct {
	// Network is used when Connect is given an empty address.
	Network Network

	// CacheFile is where the database keeps local session state.
	CacheFile string

	// Commands maps command names (without the leading slash) to handlers.
	Commands map[string]CommandHandler
}

// Coordinator owns the single live session of a chat client together with
// the channels joined through it. All state changes and failures are
// published on its EventBus.
type Coordinator struct {
	database Database
	storage  Storage
	posts    PostFactory
	fsmgr    FilesystemManager
	logger   Logger
	opts     Options

	bus      *EventBus
	reporter *ErrorReporter
	channels *ChannelRegistry

	// mu guards session and unsubscribe. Only Connect and Disconnect write them.
	mu          sync.RWMutex
	session     Session
	unsubscribe func()
}

// NewCoordinator creates a disconnected Coordinator with its own EventBus.
func NewCoordinator(database Database, storage Storage, posts PostFactory, fsmgr FilesystemManager, logger Logger, opts Options) *Coordinator {
	bus := NewEventBus()
	return &Coordinator{
		database: database,
		storage:  storage,
		posts:    posts,
		fsmgr:    fsmgr,
		logger:   logger,
		opts:     opts,
		bus:      bus,
		reporter: NewErrorReporter(bus, logger),
		channels: NewChannelRegistry(),
	}
}

// Bus returns the bus the coordinator publishes on.
func (c *Coordinator) Bus() *EventBus {
	return c.bus
}

// Session returns the live session, or nil when disconnected.
func (c *Coordinator) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Connected reports whether a session is live.
func (c *Coordinator) Connected() bool {
	return c.Session() != nil
}

func (c *Coordinator) currentSession() (Session, error) {
	s := c.Session()
	if s == nil {
		return nil, ErrNotConnected
	}
	return s, nil
}

// User returns the identity of the live session.
func (c *Coordinator) User() (User, error) {
	s, err := c.currentSession()
	if err != nil {
		return User{}, err
	}
	return s.User(), nil
}

// Network returns the network of the live session.
func (c *Coordinator) Network() (Network, error) {
	s, err := c.currentSession()
	if err != nil {
		return Network{}, err
	}
	return s.Network(), nil
}

// Announce republishes the current session as a network event, for
// observers that attach after Connect.
func (c *Coordinator) Announce() {
	c.bus.Publish(Event{Name: EventNetwork, Session: c.Session()})
}

// SwarmPeers returns the peers known to the storage network.
func (c *Coordinator) SwarmPeers(ctx context.Context) ([]string, error) {
	peers, err := c.storage.SwarmPeers(ctx)
	if err != nil {
		return nil, c.reporter.Report(newErrorf(ConnectionError, "swarm peers", "listing peers: %w", err))
	}
	return peers, nil
}
