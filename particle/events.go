package particle

// EventKind enumerates the association decisions a particle can make for an
// observation.
type EventKind int

const (
	// Clutter marks an observation discarded as unassociated noise
	Clutter EventKind = iota
	// Assoc marks an observation assigned to an existing target
	Assoc
	// Birth marks an observation that spawned a new target
	Birth
	// Death marks a target pruned after sustained low likelihood
	Death
)

// String implements the Stringer interface.
func (k EventKind) String() string {
	switch k {
	case Clutter:
		return "clutter"
	case Assoc:
		return "assoc"
	case Birth:
		return "birth"
	case Death:
		return "death"
	}
	return "unknown"
}

// Event is a single association decision made by a particle.
type Event struct {
	// Time is the tracker time step of the decision
	Time int
	// Kind is the decision kind
	Kind EventKind
	// TargetID is the affected target identity; -1 for clutter
	TargetID int
}

// EventLog is a bounded append-only ring buffer of association events. Once
// full, appending evicts the oldest event.
type EventLog struct {
	buf  []Event
	next int
	n    int
}

// NewEventLog creates a new event log holding at most size events.
// Non-positive sizes allocate a single slot log.
func NewEventLog(size int) *EventLog {
	if size <= 0 {
		size = 1
	}

	return &EventLog{buf: make([]Event, size)}
}

// Append records the event e, evicting the oldest record when full.
func (l *EventLog) Append(e Event) {
	l.buf[l.next] = e
	l.next = (l.next + 1) % len(l.buf)
	if l.n < len(l.buf) {
		l.n++
	}
}

// Events returns the recorded events, oldest first.
func (l *EventLog) Events() []Event {
	out := make([]Event, l.n)
	start := l.next - l.n
	if start < 0 {
		start += len(l.buf)
	}
	for i := 0; i < l.n; i++ {
		out[i] = l.buf[(start+i)%len(l.buf)]
	}

	return out
}

// Len returns the number of recorded events.
func (l *EventLog) Len() int {
	return l.n
}

// Cap returns the log capacity.
func (l *EventLog) Cap() int {
	return len(l.buf)
}

// Clone returns a deep copy of the log.
func (l *EventLog) Clone() *EventLog {
	buf := make([]Event, len(l.buf))
	copy(buf, l.buf)

	return &EventLog{
		buf:  buf,
		next: l.next,
		n:    l.n,
	}
}
