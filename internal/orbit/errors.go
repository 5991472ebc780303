package orbit

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected       = errors.New("not connected")
	ErrChannelNotJoined   = errors.New("channel not joined")
	ErrFileNotFound       = errors.New("file not found")
	ErrUnsupportedCommand = errors.New("unsupported command")
	ErrEmptyUpload        = errors.New("storage returned no nodes")

	// ErrClosed is returned by collaborators for operations on a log or
	// session that has already been closed.
	ErrClosed = errors.New("closed")
)

// ErrorKind classifies failures by the operation family that produced them.
type ErrorKind int

const (
	ConnectionError ErrorKind = iota + 1
	ChannelError
	MessageError
	FileError
	DirectoryLookupError
)

func (k ErrorKind) String() string {
	switch k {
	case ConnectionError:
		return "connection"
	case ChannelError:
		return "channel"
	case MessageError:
		return "message"
	case FileError:
		return "file"
	case DirectoryLookupError:
		return "directory lookup"
	default:
		return "unknown"
	}
}

// Error is the error type returned by every Coordinator operation.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func newError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func newErrorf(kind ErrorKind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// ErrorReporter turns failures into a log line and a single orbit.error event.
type ErrorReporter struct {
	bus    *EventBus
	logger Logger
}

// NewErrorReporter creates a reporter publishing on bus.
func NewErrorReporter(bus *EventBus, logger Logger) *ErrorReporter {
	return &ErrorReporter{bus: bus, logger: logger}
}

// Report logs err and publishes it as orbit.error. It returns err unchanged
// so callers can report and return in one statement. A nil err is ignored.
func (r *ErrorReporter) Report(err error) error {
	if err == nil {
		return nil
	}

	args := []any{"error", err}
	var e *Error
	if errors.As(err, &e) {
		args = append(args, "kind", e.Kind.String())
	}
	r.logger.Error("operation failed", args...)
	r.bus.Publish(Event{Name: EventError, Err: err.Error()})
	return err
}
