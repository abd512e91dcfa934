// Package watcher provides file system watching for the project module.
//
// A FileWatcher follows a single file path, such as a workflow definition
// file, and reports when it is changed, created or deleted. The file does
// not have to exist when watching starts; only its parent directory does.
package watcher

import (
	"errors"
	"time"

	"go.uber.org/zap"
)

// Common errors returned by watcher operations.
var (
	ErrPathNotExist = errors.New("path does not exist")
	ErrNotDirectory = errors.New("parent path is not a directory")
)

// Op is the kind of change observed on the watched file.
type Op uint8

const (
	// OpChanged indicates the file contents or metadata changed.
	OpChanged Op = iota + 1
	// OpCreated indicates the file appeared.
	OpCreated
	// OpDeleted indicates the file was removed or renamed away.
	OpDeleted
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpChanged:
		return "changed"
	case OpCreated:
		return "created"
	case OpDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Event represents a change to the watched file.
type Event struct {
	// Path is the absolute path of the watched file.
	Path string

	// Op is the operation that occurred.
	Op Op

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Stats provides watcher status information.
type Stats struct {
	// TotalEvents is the number of events delivered.
	TotalEvents int64

	// DroppedEvents is the number of events dropped on a full channel.
	DroppedEvents int64

	// Errors is the total number of errors encountered.
	Errors int64

	// LastError is the most recent error, if any.
	LastError error

	// StartTime is when the watcher was started.
	StartTime time.Time
}

// Watcher reports changes to one file.
type Watcher interface {
	// Path returns the absolute path being watched.
	Path() string

	// Events returns the channel of change events.
	// The channel is closed when the watcher is closed.
	Events() <-chan Event

	// Errors returns the channel of watcher errors.
	// The channel is closed when the watcher is closed.
	Errors() <-chan error

	// Close stops the watcher and releases resources.
	Close() error
}

// Config holds watcher configuration options.
type Config struct {
	// BufferSize is the size of the event and error channels.
	// Default: 16
	BufferSize int

	// Logger receives debug output for every event. Default: no-op.
	Logger *zap.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize: 16,
		Logger:     zap.NewNop(),
	}
}

// WatcherOption configures a watcher.
type WatcherOption func(*Config)

// WithBufferSize sets the channel buffer size.
func WithBufferSize(size int) WatcherOption {
	return func(c *Config) {
		c.BufferSize = size
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) WatcherOption {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}
