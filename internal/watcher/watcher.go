package watcher

import (
	"context"
	"time"
)

// Kind identifies the semantic shape of a FileEvent (spec.md §4.8's
// Modified/Deleted/Renamed sum type).
type Kind int

const (
	// Modified covers both file creation and content modification; the
	// synchroniser treats both identically (re-chunk and re-embed).
	Modified Kind = iota
	// Deleted indicates a file or directory was removed.
	Deleted
	// Renamed indicates a file or directory moved from OldPath to Path.
	Renamed
)

// String returns a human-readable representation of the event kind.
func (k Kind) String() string {
	switch k {
	case Modified:
		return "MODIFIED"
	case Deleted:
		return "DELETED"
	case Renamed:
		return "RENAMED"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is the sum type from spec.md §4.8: Modified(path),
// Deleted(path), or Renamed(from, to). Paths are normalised
// (internal/pathutil.Normalize) before being emitted.
type FileEvent struct {
	Kind    Kind
	Path    string
	OldPath string // only set when Kind == Renamed
	IsDir   bool

	// Timestamp is when the event was detected.
	Timestamp time.Time
}

// Watcher is the interface spec.md §4.8 describes: start(debounce_ms),
// poll_events() -> []FileEvent (non-blocking drain), is_started(), stop().
// The debounce window and root path are supplied at construction instead
// of to Start — better Go idiom without changing the contract.
type Watcher interface {
	Start(ctx context.Context) error
	PollEvents() []FileEvent
	IsStarted() bool
	Stop() error
}

// Options configures watcher behavior.
type Options struct {
	// DebounceWindow is the time to wait before coalescing rapid raw
	// events for the same path into one. Default: 200ms. Overridable via
	// the SEMCODE_FSW_DEBOUNCE_MS environment knob (spec.md §6).
	DebounceWindow time.Duration

	// PollInterval is the scan interval used by the polling fallback.
	// Default: 5s.
	PollInterval time.Duration

	// EventBufferSize bounds the internal event queue. Default: 1000.
	EventBufferSize int

	// ExtraExcludeDirs are additional directory basenames to never
	// descend into, beyond the built-in excluded-directory list.
	ExtraExcludeDirs []string
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  200 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 1000,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = d.DebounceWindow
	}
	if o.PollInterval == 0 {
		o.PollInterval = d.PollInterval
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = d.EventBufferSize
	}
	return o
}
