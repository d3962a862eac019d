package client

import (
	"chat-presence/domain"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultTypingWindow is how long a typing indicator survives without a new signal.
const DefaultTypingWindow = 2 * time.Second

type TypingState int

const (
	Idle TypingState = iota
	ShowingTyping
)

func (s TypingState) String() string {
	switch s {
	case Idle:
		return "idle"
	case ShowingTyping:
		return "typing"
	default:
		return "unknown"
	}
}

// TypingDebouncer turns a stream of typing signals into a steady indicator
// for the counterpart currently viewed. Each active signal re-arms the expiry timer.
type TypingDebouncer struct {
	mu          sync.Mutex
	clock       clock.Clock
	window      time.Duration
	self        domain.UserID
	counterpart domain.UserID
	state       TypingState
	label       string
	timer       *clock.Timer
	generation  uint64
	closed      bool
	onChange    func(state TypingState, label string)
}

// NewTypingDebouncer builds a debouncer for self. onChange may be nil; it is never called with the lock held.
func NewTypingDebouncer(clk clock.Clock, self domain.UserID, window time.Duration,
	onChange func(state TypingState, label string)) *TypingDebouncer {
	if window <= 0 {
		window = DefaultTypingWindow
	}
	return &TypingDebouncer{clock: clk, self: self, window: window, onChange: onChange}
}

// View switches the watched counterpart. Any pending indicator is cleared.
func (d *TypingDebouncer) View(counterpart domain.UserID) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.counterpart = counterpart
	changed := d.resetLocked()
	d.mu.Unlock()
	if changed {
		d.notify(Idle, "")
	}
}

// Observe applies one inbound signal. Signals from anybody else than the viewed counterpart are ignored.
func (d *TypingDebouncer) Observe(signal domain.TypingSignal) {
	d.mu.Lock()
	if d.closed || d.counterpart == "" || signal.SenderID == d.self ||
		signal.SenderID != d.counterpart || signal.RecipientID != d.self {
		d.mu.Unlock()
		return
	}
	if !signal.IsTyping {
		changed := d.resetLocked()
		d.mu.Unlock()
		if changed {
			d.notify(Idle, "")
		}
		return
	}

	d.stopTimerLocked()
	generation := d.generation
	d.timer = d.clock.AfterFunc(d.window, func() { d.expire(generation) })
	changed := d.state != ShowingTyping || d.label != signal.Label()
	d.state = ShowingTyping
	d.label = signal.Label()
	label := d.label
	d.mu.Unlock()
	if changed {
		d.notify(ShowingTyping, label)
	}
}

func (d *TypingDebouncer) State() TypingState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Label is "<name> is typing..." while showing, empty otherwise.
func (d *TypingDebouncer) Label() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.label
}

// Close cancels the pending timer for good. Later signals are ignored.
func (d *TypingDebouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.stopTimerLocked()
	d.state = Idle
	d.label = ""
}

func (d *TypingDebouncer) expire(generation uint64) {
	d.mu.Lock()
	// A stopped timer may still fire when it lost the race with Stop.
	if d.closed || generation != d.generation || d.state == Idle {
		d.mu.Unlock()
		return
	}
	d.state = Idle
	d.label = ""
	d.timer = nil
	d.mu.Unlock()
	d.notify(Idle, "")
}

func (d *TypingDebouncer) resetLocked() bool {
	d.stopTimerLocked()
	changed := d.state != Idle
	d.state = Idle
	d.label = ""
	return changed
}

func (d *TypingDebouncer) stopTimerLocked() {
	d.generation++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *TypingDebouncer) notify(state TypingState, label string) {
	if d.onChange != nil {
		d.onChange(state, label)
	}
}
