package orbit

import (
	"context"
	"fmt"
	"net"
	"strconv"
)

// Connect opens a session as username on the network at address ("host:port").
// An empty address uses the configured network. Any live session is torn down
// first. On failure the coordinator is left disconnected, one orbit.error is
// published, and a network event with a nil session follows.
func (c *Coordinator) Connect(ctx context.Context, address, username, password string) error {
	// Disconnect reports its own failures; the old session is gone either way.
	_ = c.Disconnect()

	network, err := c.resolveNetwork(address)
	if err != nil {
		return c.failConnect(newError(ConnectionError, "connect", err))
	}

	c.logger.Info("connecting", "host", network.Host, "port", network.Port, "user", username)
	c.logger.Debug("loading cache", "path", c.opts.CacheFile)

	session, err := c.database.Connect(ctx, ConnectRequest{
		Host:      network.Host,
		Port:      network.Port,
		Username:  username,
		Password:  password,
		Storage:   c.storage,
		CacheFile: c.opts.CacheFile,
	})
	if err != nil {
		return c.failConnect(newErrorf(ConnectionError, "connect",
			"connecting to %s:%d as %s: %w", network.Host, network.Port, username, err))
	}
	if session == nil {
		return c.failConnect(newErrorf(ConnectionError, "connect", "database returned no session"))
	}

	c.mu.Lock()
	prev := c.detachLocked()
	c.session = session
	c.unsubscribe = session.Subscribe(c.bridge)
	c.mu.Unlock()

	// A concurrent Connect won the first race; tear its session down now.
	if prev != nil {
		_ = c.teardown(prev)
	}

	n := session.Network()
	c.logger.Info("connected", "network", n.Name, "host", n.Host, "port", n.Port, "user", session.User().Username)
	c.bus.Publish(Event{Name: EventNetwork, Session: session})
	return nil
}

// Disconnect closes the live session and forgets every joined channel.
// It is a no-op when already disconnected.
func (c *Coordinator) Disconnect() error {
	c.mu.Lock()
	d := c.detachLocked()
	c.mu.Unlock()

	if d == nil {
		return nil
	}
	return c.teardown(d)
}

type detached struct {
	session     Session
	unsubscribe func()
	logs        []Log
}

// detachLocked clears the session and the registry. Caller must hold c.mu.
func (c *Coordinator) detachLocked() *detached {
	if c.session == nil {
		return nil
	}
	d := &detached{
		session:     c.session,
		unsubscribe: c.unsubscribe,
		logs:        c.channels.clear(),
	}
	c.session = nil
	c.unsubscribe = nil
	return d
}

func (c *Coordinator) teardown(d *detached) error {
	if d.unsubscribe != nil {
		d.unsubscribe()
	}

	n := d.session.Network()
	c.logger.Warn("disconnected", "network", n.Name, "host", n.Host, "port", n.Port)

	for _, log := range d.logs {
		if err := log.Close(); err != nil {
			c.logger.Debug("closing channel log", "error", err)
		}
	}

	var result error
	if err := d.session.Disconnect(); err != nil {
		result = c.reporter.Report(newErrorf(ConnectionError, "disconnect", "closing session: %w", err))
	}

	c.bus.Publish(Event{Name: EventNetwork})
	return result
}

func (c *Coordinator) failConnect(err error) error {
	c.reporter.Report(err)
	c.bus.Publish(Event{Name: EventNetwork})
	return err
}

// bridge republishes session notifications on the bus.
func (c *Coordinator) bridge(e SessionEvent) {
	switch e.Kind {
	case SessionData:
		c.bus.Publish(Event{Name: EventMessage, Channel: e.Channel, Message: e.Entry})
	case SessionLoad:
		c.bus.Publish(Event{Name: EventDBLoad, Action: e.Action, Channel: e.Channel})
	case SessionLoaded:
		c.bus.Publish(Event{Name: EventDBLoaded, Action: e.Action, Channel: e.Channel})
	}
}

func (c *Coordinator) resolveNetwork(address string) (Network, error) {
	if address == "" {
		if c.opts.Network.Host == "" {
			return Network{}, fmt.Errorf("no address given and no network configured")
		}
		return c.opts.Network, nil
	}

	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return Network{}, fmt.Errorf("parsing address %q: %w", address, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return Network{}, fmt.Errorf("invalid port in address %q", address)
	}
	return Network{Name: c.opts.Network.Name, Host: host, Port: port}, nil
}
