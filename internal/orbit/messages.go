package orbit

import (
	"context"
	"errors"
	"strings"
)

// Query bounds a Retrieve call. LessThan and GreaterThanOrEqual are entry
// hashes; empty means unbounded. A negative Limit means no limit.
type Query struct {
	LessThan           string
	GreaterThanOrEqual string
	Limit              int
}

// MessagePage is the result of Retrieve.
type MessagePage struct {
	Channel  string  `json:"channel"`
	Messages []Entry `json:"messages"`
}

// Send publishes text as a message post and appends it to a channel.
// Text starting with "/" is a command, except for the "/me" action which is
// sent like any other message.
func (c *Coordinator) Send(ctx context.Context, channelName, text string) error {
	if isCommand(text) {
		return c.runCommand(ctx, channelName, text)
	}

	op := "send #" + channelName
	session, err := c.currentSession()
	if err != nil {
		return c.reporter.Report(newError(MessageError, op, err))
	}
	log, ok := c.channels.Log(channelName)
	if !ok {
		return c.reporter.Report(newError(MessageError, op, ErrChannelNotJoined))
	}

	c.logger.Debug("sending message", "channel", channelName, "text", text)
	post, err := c.posts.Create(ctx, c.storage, PostMessage, MessageRecord{
		Content: text,
		From:    session.User().ID,
	})
	if err != nil {
		return c.reporter.Report(newErrorf(MessageError, op, "creating post: %w", err))
	}

	if _, err := log.Add(ctx, post.Hash); err != nil {
		return c.reporter.Report(newErrorf(MessageError, op, "appending to log: %w", err))
	}
	return nil
}

func isCommand(text string) bool {
	if !strings.HasPrefix(text, "/") {
		return false
	}
	return text != "/me" && !strings.HasPrefix(text, "/me ")
}

func (c *Coordinator) runCommand(ctx context.Context, channelName, text string) error {
	fields := strings.Fields(text)
	name := strings.TrimPrefix(fields[0], "/")
	c.logger.Debug("command", "channel", channelName, "command", name)

	op := "send #" + channelName
	handler, ok := c.opts.Commands[name]
	if !ok {
		return c.reporter.Report(newErrorf(MessageError, op, "%w: /%s", ErrUnsupportedCommand, name))
	}
	if err := handler(ctx, channelName, fields[1:]); err != nil {
		// Coordinator operations run by the handler have reported already.
		var reported *Error
		if errors.As(err, &reported) {
			return err
		}
		return c.reporter.Report(newErrorf(MessageError, op, "/%s: %w", name, err))
	}
	return nil
}

// Retrieve returns up to q.Limit entries of a channel, oldest first.
// Ordering and bound inclusivity follow the log's cursor semantics.
func (c *Coordinator) Retrieve(ctx context.Context, channelName string, q Query) (MessagePage, error) {
	op := "retrieve #" + channelName
	c.logger.Debug("get messages", "channel", channelName, "lt", q.LessThan, "gte", q.GreaterThanOrEqual, "limit", q.Limit)

	if _, err := c.currentSession(); err != nil {
		return MessagePage{}, c.reporter.Report(newError(MessageError, op, err))
	}
	log, ok := c.channels.Log(channelName)
	if !ok {
		return MessagePage{}, c.reporter.Report(newError(MessageError, op, ErrChannelNotJoined))
	}

	page := MessagePage{Channel: channelName, Messages: []Entry{}}
	if q.Limit == 0 {
		return page, nil
	}

	cursor, err := log.Iterator(ctx, IteratorOptions{
		Limit: q.Limit,
		LT:    q.LessThan,
		GTE:   q.GreaterThanOrEqual,
	})
	if err != nil {
		return MessagePage{}, c.reporter.Report(newErrorf(MessageError, op, "building cursor: %w", err))
	}
	entries, err := cursor.Collect(ctx)
	if err != nil {
		return MessagePage{}, c.reporter.Report(newErrorf(MessageError, op, "collecting entries: %w", err))
	}

	if q.Limit > 0 && len(entries) > q.Limit {
		entries = entries[len(entries)-q.Limit:]
	}
	if entries != nil {
		page.Messages = entries
	}
	return page, nil
}

// GetPost fetches and decodes the post stored at hash.
func (c *Coordinator) GetPost(ctx context.Context, hash string) (*Post, error) {
	op := "get post " + hash
	obj, err := c.storage.ObjectGet(ctx, hash)
	if err != nil {
		return nil, c.reporter.Report(newErrorf(MessageError, op, "fetching object: %w", err))
	}
	post, err := c.posts.Decode(hash, obj.Data)
	if err != nil {
		return nil, c.reporter.Report(newErrorf(MessageError, op, "decoding post: %w", err))
	}
	return post, nil
}
