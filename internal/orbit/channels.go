package orbit

import "context"

// Join opens the log of a channel and registers it. Joining a channel that is
// already registered changes nothing and publishes nothing, but still returns
// its membership.
func (c *Coordinator) Join(ctx context.Context, name, password string) (Membership, error) {
	op := "join #" + name
	c.logger.Debug("join", "channel", name)

	session, err := c.currentSession()
	if err != nil {
		return Membership{}, c.reporter.Report(newError(ChannelError, op, err))
	}

	membership := Membership{Name: name, Modes: map[string]string{}}
	if c.channels.Has(name) {
		return membership, nil
	}

	log, err := session.Channel(ctx, name, password)
	if err != nil {
		return Membership{}, c.reporter.Report(newErrorf(ChannelError, op, "opening channel log: %w", err))
	}

	// Register only if the session we opened through is still the live one;
	// holding the read lock keeps Disconnect out until we are done.
	c.mu.RLock()
	live := c.session == session
	added := live && c.channels.add(name, password, log)
	c.mu.RUnlock()

	if !added {
		if err := log.Close(); err != nil {
			c.logger.Debug("closing unused channel log", "channel", name, "error", err)
		}
		if !live {
			return Membership{}, c.reporter.Report(newError(ChannelError, op, ErrNotConnected))
		}
		return membership, nil
	}

	c.bus.Publish(Event{Name: EventChannelsUpdated, Channels: c.channels.List()})
	return membership, nil
}

// Leave closes and unregisters a channel. Leaving a channel that is not
// registered does nothing.
func (c *Coordinator) Leave(name string) {
	log, ok := c.channels.remove(name)
	if !ok {
		return
	}
	if err := log.Close(); err != nil {
		c.logger.Debug("closing channel log", "channel", name, "error", err)
	}
	c.logger.Debug("left channel", "channel", name)
	c.bus.Publish(Event{Name: EventChannelsUpdated, Channels: c.channels.List()})
}

// Channels returns the joined channels sorted by name.
func (c *Coordinator) Channels() []ChannelInfo {
	return c.channels.List()
}
