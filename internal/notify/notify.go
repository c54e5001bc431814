// Package notify holds the user-visible port indicator and fans arbiter
// notifications out to subscribers such as the control API's event stream.
package notify

import (
	"sync"
	"time"

	"github.com/ardnew/otgmode/pkg"
	"github.com/ardnew/otgmode/port"
)

// Event kinds.
const (
	KindStatus              = "status"
	KindDevicesDisconnected = "devices_disconnected"
)

// subscriberBuffer is the channel depth given to each subscriber.
const subscriberBuffer = 16

// Event is one notification delivered to subscribers.
type Event struct {
	Kind      string      `json:"kind"`
	Notice    port.Notice `json:"notice"`
	Connected bool        `json:"connected"`
	Mode      string      `json:"mode,omitempty"`
	Time      time.Time   `json:"time"`
}

// Hub implements port.Notifier and port.Announcer.
type Hub struct {
	mu          sync.RWMutex
	notice      port.Notice
	updated     time.Time
	subscribers []chan Event
	now         func() time.Time
}

var (
	_ port.Notifier  = (*Hub)(nil)
	_ port.Announcer = (*Hub)(nil)
)

// NewHub creates a hub with the indicator hidden.
func NewHub() *Hub {
	return &Hub{now: time.Now}
}

// Notify replaces the indicator and broadcasts a status event.
func (h *Hub) Notify(notice port.Notice) {
	h.mu.Lock()
	h.notice = notice
	h.updated = h.now()
	ev := h.statusLocked()
	h.mu.Unlock()

	pkg.LogInfo(pkg.ComponentNotify, "indicator", "notice", notice)
	h.broadcast(ev)
}

// AnnounceDisconnected broadcasts the "all devices disconnected" event.
func (h *Hub) AnnounceDisconnected() {
	h.mu.RLock()
	ev := Event{
		Kind:      KindDevicesDisconnected,
		Notice:    h.notice,
		Connected: h.notice.Connected(),
		Time:      h.now(),
	}
	h.mu.RUnlock()

	pkg.LogDebug(pkg.ComponentNotify, "devices disconnected")
	h.broadcast(ev)
}

// Status returns the current indicator as a status event.
func (h *Hub) Status() Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.statusLocked()
}

// Notice returns the current indicator.
func (h *Hub) Notice() port.Notice {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.notice
}

// Subscribe returns a channel that receives every subsequent event. The
// current status is queued first.
func (h *Hub) Subscribe() chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	ch <- h.statusLocked()
	h.subscribers = append(h.subscribers, ch)
	return ch
}

// Unsubscribe removes ch and closes it.
func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, sub := range h.subscribers {
		if sub == ch {
			h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (h *Hub) statusLocked() Event {
	ev := Event{
		Kind:      KindStatus,
		Notice:    h.notice,
		Connected: h.notice.Connected(),
		Time:      h.updated,
	}
	if m, ok := h.notice.Mode(); ok {
		ev.Mode = m.String()
	}
	return ev
}

// broadcast never blocks the arbiter; a full subscriber misses the event.
func (h *Hub) broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
			pkg.LogWarn(pkg.ComponentNotify, "subscriber full, event dropped", "kind", ev.Kind)
		}
	}
}
