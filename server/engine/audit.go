package engine

import "sync"

type AuditKind string

const (
	AuditObservation AuditKind = "observation"
	AuditOverride    AuditKind = "override"
	AuditCommand     AuditKind = "command"
	AuditOutcome     AuditKind = "outcome"
	AuditWarning     AuditKind = "warning"
	AuditRejected    AuditKind = "rejected"
)

// AuditEntry is one append-only record of a state mutation or a rejected
// attempt. Entries are never mutated after Append assigns their sequence.
type AuditEntry struct {
	Seq       int64     `json:"seq"`
	Timestamp float64   `json:"timestamp"`
	Kind      AuditKind `json:"kind"`
	// Event names the mutation: cardAdded, roundStarted, handSplit,
	// handDoubled, cardOverridden, roundFinalized, shoeReset, lowConfidence.
	Event  string `json:"event"`
	Before any    `json:"before,omitempty"`
	After  any    `json:"after,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Listener receives committed audit entries in commit order.
type Listener func(AuditEntry)

// AuditLog is the append-only forensic trail. Subscribers are notified in
// registration order, synchronously, so downstream consumers observe the
// same causal order the engine committed.
type AuditLog struct {
	mu        sync.Mutex
	seq       int64
	entries   []AuditEntry
	listeners []Listener
}

func NewAuditLog() *AuditLog { return &AuditLog{} }

// Subscribe registers a listener for future entries.
func (l *AuditLog) Subscribe(fn Listener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Append assigns the next sequence number, stores the entry, and fans it out.
func (l *AuditLog) Append(e AuditEntry) AuditEntry {
	l.mu.Lock()
	l.seq++
	e.Seq = l.seq
	l.entries = append(l.entries, e)
	listeners := l.listeners
	l.mu.Unlock()
	for _, fn := range listeners {
		fn(e)
	}
	return e
}

// Entries returns a copy of the full trail.
func (l *AuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]AuditEntry(nil), l.entries...)
}

func (l *AuditLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
