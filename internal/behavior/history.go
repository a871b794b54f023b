package behavior

import "encoding/json"

// DefaultHistoryLimit bounds the outcomes kept per statute.
const DefaultHistoryLimit = 256

// Outcome is one recorded consequence of a decision.
type Outcome struct {
	Complied bool    `json:"complied"`
	Outcome  float64 `json:"outcome"`
}

// OutcomeLog is a fixed-capacity ring of outcomes for one statute.
// When full, the oldest entry is overwritten.
type OutcomeLog struct {
	buf   []Outcome
	start int
	n     int
	total uint64
}

// NewOutcomeLog creates a log holding at most limit outcomes (minimum 1).
func NewOutcomeLog(limit int) *OutcomeLog {
	if limit < 1 {
		limit = 1
	}
	return &OutcomeLog{buf: make([]Outcome, limit)}
}

// Add appends an outcome, evicting the oldest if the log is full.
func (l *OutcomeLog) Add(o Outcome) {
	if l.n < len(l.buf) {
		l.buf[(l.start+l.n)%len(l.buf)] = o
		l.n++
	} else {
		l.buf[l.start] = o
		l.start = (l.start + 1) % len(l.buf)
	}
	l.total++
}

// Len returns the number of retained outcomes.
func (l *OutcomeLog) Len() int {
	return l.n
}

// Cap returns the capacity.
func (l *OutcomeLog) Cap() int {
	return len(l.buf)
}

// Total returns how many outcomes were ever added, including evicted ones.
func (l *OutcomeLog) Total() uint64 {
	return l.total
}

// Entries returns retained outcomes oldest first.
func (l *OutcomeLog) Entries() []Outcome {
	out := make([]Outcome, l.n)
	for i := 0; i < l.n; i++ {
		out[i] = l.buf[(l.start+i)%len(l.buf)]
	}
	return out
}

// Clone returns an independent copy.
func (l *OutcomeLog) Clone() *OutcomeLog {
	c := &OutcomeLog{
		buf:   make([]Outcome, len(l.buf)),
		start: l.start,
		n:     l.n,
		total: l.total,
	}
	copy(c.buf, l.buf)
	return c
}

// MarshalJSON encodes the retained outcomes as a chronological list.
func (l *OutcomeLog) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Entries())
}

// UnmarshalJSON rebuilds the ring from a chronological list. Capacity is the
// list length or DefaultHistoryLimit, whichever is larger.
func (l *OutcomeLog) UnmarshalJSON(b []byte) error {
	var entries []Outcome
	if err := json.Unmarshal(b, &entries); err != nil {
		return err
	}
	*l = *NewOutcomeLog(max(len(entries), DefaultHistoryLimit))
	for _, o := range entries {
		l.Add(o)
	}
	return nil
}
