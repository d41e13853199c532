package download

import "sync"

// Entry is the progress record of one file
type Entry struct {
	FileName   string
	Downloaded int64
	Total      int64   // 0 when the remote size is unknown
	Percentage float64 // 0-100, or IndeterminatePercent
	State      State
}

// Percent returns the percentage to display; completed entries always report 100
func (e Entry) Percent() float64 {
	if e.State == StateCompleted {
		return 100
	}
	return e.Percentage
}

// Snapshot partitions the ledger entries by state, each in first-update order
type Snapshot struct {
	Completed  []Entry
	InProgress []Entry
	Errored    []Entry
}

// Len returns the number of entries across all sections
func (s Snapshot) Len() int {
	return len(s.Completed) + len(s.InProgress) + len(s.Errored)
}

// Ledger is the shared progress record for a run. Each key is written by
// one worker; readers get a copy of every entry taken under the lock.
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string
}

// NewLedger creates an empty ledger
func NewLedger() *Ledger {
	return &Ledger{
		entries: make(map[string]*Entry),
	}
}

// entry returns the entry for name, creating it in insertion order. Caller holds mu.
func (l *Ledger) entry(name string) *Entry {
	e, ok := l.entries[name]
	if !ok {
		e = &Entry{FileName: name, State: StatePending}
		l.entries[name] = e
		l.order = append(l.order, name)
	}
	return e
}

// Upsert records transfer progress for name. Updates to a terminal entry are
// ignored and Downloaded never moves backwards.
func (l *Ledger) Upsert(name string, downloaded, total int64, percentage float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.entry(name)
	if e.State.IsTerminal() {
		return
	}

	if downloaded > e.Downloaded {
		e.Downloaded = downloaded
	}
	e.Total = total
	e.Percentage = clampPercent(percentage)
	e.State = StateTransferring
}

// MarkCompleted moves name to Completed unless it already errored
func (l *Ledger) MarkCompleted(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.entry(name)
	if e.State.IsTerminal() {
		return
	}
	e.State = StateCompleted
}

// MarkErrored moves name to Errored unless it already completed.
// The entry is created when the failure happened before any progress.
func (l *Ledger) MarkErrored(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.entry(name)
	if e.State.IsTerminal() {
		return
	}
	e.State = StateErrored
}

// Get returns a copy of the entry for name
func (l *Ledger) Get(name string) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, ok := l.entries[name]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Len returns the number of entries
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// Snapshot copies every entry into its section
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var snap Snapshot
	for _, name := range l.order {
		e := *l.entries[name]
		switch e.State {
		case StateCompleted:
			snap.Completed = append(snap.Completed, e)
		case StateErrored:
			snap.Errored = append(snap.Errored, e)
		default:
			snap.InProgress = append(snap.InProgress, e)
		}
	}
	return snap
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return IndeterminatePercent
	}
	if p > 100 {
		return 100
	}
	return p
}
