// Package events carries status information from the deployment core to a
// display layer without ever blocking on it.
package events

import "time"

type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a single log line for the display layer.
type Event struct {
	Time    time.Time
	Level   Level
	Message string
}

// WalletSummary is the per-wallet portion of a status snapshot.
type WalletSummary struct {
	Address  string
	Deployed int
	Failed   int
}

// Snapshot is a periodic status frame: per-wallet totals plus the time
// remaining until the next cycle starts.
type Snapshot struct {
	Wallets   []WalletSummary
	NextCycle time.Duration
}

// Sink receives events and snapshots. Implementations must not block the
// caller; producers treat every call as fire-and-forget.
type Sink interface {
	Event(Event)
	Snapshot(Snapshot)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Event(Event)       {}
func (Nop) Snapshot(Snapshot) {}

// Bus is a buffered Sink. When a buffer is full the frame is dropped rather
// than blocking the producer: the display layer is cosmetic, the deployment
// loop is not.
type Bus struct {
	events    chan Event
	snapshots chan Snapshot
}

func NewBus(buffer int) *Bus {
	if buffer < 1 {
		buffer = 1
	}
	return &Bus{
		events:    make(chan Event, buffer),
		snapshots: make(chan Snapshot, buffer),
	}
}

func (b *Bus) Event(e Event) {
	select {
	case b.events <- e:
	default:
	}
}

func (b *Bus) Snapshot(s Snapshot) {
	select {
	case b.snapshots <- s:
	default:
	}
}

// Events exposes the consumer side of the log stream.
func (b *Bus) Events() <-chan Event { return b.events }

// Snapshots exposes the consumer side of the status stream.
func (b *Bus) Snapshots() <-chan Snapshot { return b.snapshots }

// Close releases both streams. Producers must not be active concurrently.
func (b *Bus) Close() {
	close(b.events)
	close(b.snapshots)
}

// Emit is a convenience for building a timestamped Event.
func Emit(s Sink, level Level, message string) {
	s.Event(Event{Time: time.Now(), Level: level, Message: message})
}
