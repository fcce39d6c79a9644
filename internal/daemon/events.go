package daemon

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

const (
	eventSnapshot     = "snapshot"
	eventPendingDelta = "pending_delta"
)

// hub keeps the last few events and fans new ones out to stream
// subscribers. A subscriber that falls behind misses events rather than
// stalling the poll loop; it can catch up from the ring by ID.
type hub struct {
	mu     sync.Mutex
	size   int
	lastID int64
	ring   []Event
	subs   map[chan Event]struct{}
}

func newHub(size int) *hub {
	return &hub{size: size, subs: make(map[chan Event]struct{})}
}

// publish stamps ev with the next ID and delivers it.
func (h *hub) publish(ev Event) Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastID++
	ev.ID = h.lastID
	h.ring = append(h.ring, ev)
	if over := len(h.ring) - h.size; over > 0 {
		h.ring = h.ring[over:]
	}
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return ev
}

// since returns the retained events with an ID above after.
func (h *hub) since(after int64) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, ev := range h.ring {
		if ev.ID > after {
			return append([]Event(nil), h.ring[i:]...)
		}
	}
	return []Event{}
}

// subscribe registers a stream and returns the retained events after the
// given ID, taken atomically with the registration so nothing is lost or
// sent twice.
func (h *hub) subscribe(after int64) (<-chan Event, []Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	var backlog []Event
	for _, ev := range h.ring {
		if ev.ID > after {
			backlog = append(backlog, ev)
		}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	return ch, backlog, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

func (h *hub) counts() (events, subscribers int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.ring), len(h.subs)
}

// writeSSE writes one server-sent event. Events without an ID (the
// greeting snapshot) omit the id field so they do not move Last-Event-ID.
func writeSSE(w io.Writer, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if ev.ID > 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", ev.ID); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}

func newEvent(typ string, at time.Time, snap Snapshot, d Delta) Event {
	return Event{Type: typ, Timestamp: at, Snapshot: snap, Delta: d}
}
