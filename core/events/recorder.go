package events

import "sync"

// Entry is a recorded event together with its emission sequence number.
type Entry struct {
	Sequence uint64
	Event    Event
}

// Recorder retains a bounded, in-order history of emitted events so the RPC
// surface can serve them to indexers and UIs. The zero value is not usable;
// construct with NewRecorder.
type Recorder struct {
	mu      sync.RWMutex
	limit   int
	nextSeq uint64
	entries []Entry
}

// NewRecorder creates a recorder that keeps at most limit events, discarding
// the oldest first. A non-positive limit falls back to 1024.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 1024
	}
	return &Recorder{limit: limit}
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSeq++
	r.entries = append(r.entries, Entry{Sequence: r.nextSeq, Event: evt})
	if len(r.entries) > r.limit {
		r.entries = r.entries[len(r.entries)-r.limit:]
	}
}

// List returns up to limit recorded entries whose sequence is strictly greater
// than afterSeq, oldest first. limit <= 0 means no cap.
func (r *Recorder) List(afterSeq uint64, limit int) []Entry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		if entry.Sequence <= afterSeq {
			continue
		}
		out = append(out, entry)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Buffer accumulates events during a single operation so they can be forwarded
// to a downstream emitter only once the operation commits. It is not safe for
// concurrent use; the node serializes operations.
type Buffer struct {
	pending []Event
}

// Emit implements the Emitter interface by queueing the event.
func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.pending = append(b.pending, evt)
}

// Flush forwards all queued events to sink in emission order and clears the
// buffer. A nil sink simply drops the events.
func (b *Buffer) Flush(sink Emitter) {
	if b == nil {
		return
	}
	if sink != nil {
		for _, evt := range b.pending {
			sink.Emit(evt)
		}
	}
	b.pending = nil
}

// Discard clears queued events without forwarding them.
func (b *Buffer) Discard() {
	if b == nil {
		return
	}
	b.pending = nil
}
