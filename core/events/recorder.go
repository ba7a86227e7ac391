package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"agrichain/core/types"
)

// Record is one entry in the recent-event feed served to external indexers
// and dashboards.
type Record struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	EmittedAt  int64             `json:"emittedAt"`
}

// Recorder is an Emitter that keeps the most recent events in a ring buffer.
// Emission is best-effort: a full buffer drops the oldest record, never the
// emitting operation.
type Recorder struct {
	mu       sync.RWMutex
	capacity int
	records  []Record
	nowFn    func() int64
}

// NewRecorder creates a recorder holding up to capacity events.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Recorder{
		capacity: capacity,
		nowFn:    func() int64 { return time.Now().Unix() },
	}
}

// SetNowFunc overrides the timestamp source. Primarily intended for tests.
func (r *Recorder) SetNowFunc(now func() int64) {
	if now != nil {
		r.nowFn = now
	}
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	carrier, ok := evt.(interface{ Event() *types.Event })
	if !ok {
		return
	}
	payload := carrier.Event()
	if payload == nil {
		return
	}
	attributes := make(map[string]string, len(payload.Attributes))
	for k, v := range payload.Attributes {
		attributes[k] = v
	}
	record := Record{
		ID:         uuid.NewString(),
		Type:       payload.Type,
		Attributes: attributes,
		EmittedAt:  r.nowFn(),
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	if len(r.records) > r.capacity {
		r.records = r.records[len(r.records)-r.capacity:]
	}
}

// Recent returns up to limit of the newest records, newest last. A
// non-positive limit returns everything retained.
func (r *Recorder) Recent(limit int) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := len(r.records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Record, n)
	copy(out, r.records[len(r.records)-n:])
	return out
}
