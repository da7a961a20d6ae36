// internal/app/system/unreadsync/hub.go
package unreadsync

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Count is the single message shape carried on the sync channel. Every UI
// surface showing an unread badge (nav badge, dashboard tile, notifications
// page) receives the same Count stream and must end up displaying the same
// number.
type Count struct {
	UserID    primitive.ObjectID `json:"-"`
	Unread    int64              `json:"unreadCount"`
	EmittedAt time.Time          `json:"emittedAt"`
}

// subscriberBuffer bounds each subscriber's channel. When a slow consumer
// falls behind, the oldest pending count is dropped: only the newest value
// matters, and a dropped broadcast is healed by the next reconciliation.
const subscriberBuffer = 8

// Subscriber is one attached UI surface.
type Subscriber struct {
	ID     string
	UserID primitive.ObjectID
	C      <-chan Count

	ch chan Count
}

// Hub is the in-process broadcast channel for unread counts.
//
// The contract mirrors the storage-event pattern the browser surfaces use:
// a count is only ever published immediately after an authoritative fetch or
// a just-applied local mutation, never speculatively, so any delivered value
// is at least as fresh as whatever a surface currently displays. The hub
// additionally enforces last-writer-wins by EmittedAt, so a stale broadcast
// that lost a race with a newer fetch is discarded rather than delivered.
type Hub struct {
	mu     sync.RWMutex
	subs   map[primitive.ObjectID]map[string]*Subscriber
	latest map[primitive.ObjectID]Count
	log    *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[primitive.ObjectID]map[string]*Subscriber),
		latest: make(map[primitive.ObjectID]Count),
		log:    logger,
	}
}

// Subscribe attaches a new surface for the user. The returned subscriber
// immediately receives the hub's latest known count, if any, so a surface
// mounting after a broadcast does not start blank.
func (h *Hub) Subscribe(userID primitive.ObjectID) *Subscriber {
	sub := &Subscriber{
		ID:     uuid.NewString(),
		UserID: userID,
		ch:     make(chan Count, subscriberBuffer),
	}
	sub.C = sub.ch

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[string]*Subscriber)
	}
	h.subs[userID][sub.ID] = sub
	last, ok := h.latest[userID]
	h.mu.Unlock()

	if ok {
		sub.ch <- last
	}
	return sub
}

// Unsubscribe detaches a surface. The channel is deliberately left open:
// Publish sends outside the hub lock, so a close here could race a send in
// flight and panic the publisher. A detached subscriber simply stops being a
// delivery target and its channel is reclaimed once the consumer drops it.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.subs[sub.UserID]
	if !ok {
		return
	}
	if _, ok := group[sub.ID]; !ok {
		return
	}
	delete(group, sub.ID)
	if len(group) == 0 {
		delete(h.subs, sub.UserID)
	}
}

// Publish delivers a count to every surface subscribed for its user.
// Counts older than the latest one already published for that user are
// dropped (last-writer-wins); delivery never blocks the publisher.
func (h *Hub) Publish(c Count) {
	if c.EmittedAt.IsZero() {
		c.EmittedAt = time.Now().UTC()
	}

	h.mu.Lock()
	if last, ok := h.latest[c.UserID]; ok && c.EmittedAt.Before(last.EmittedAt) {
		h.mu.Unlock()
		h.log.Debug("dropping stale unread broadcast",
			zap.String("user_id", c.UserID.Hex()),
			zap.Time("emitted_at", c.EmittedAt),
			zap.Time("latest", last.EmittedAt))
		return
	}
	h.latest[c.UserID] = c
	targets := make([]*Subscriber, 0, len(h.subs[c.UserID]))
	for _, sub := range h.subs[c.UserID] {
		targets = append(targets, sub)
	}
	h.mu.Unlock()

	for _, sub := range targets {
		for {
			select {
			case sub.ch <- c:
			default:
				// Full buffer: discard the oldest queued value and retry.
				select {
				case <-sub.ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// Latest returns the most recent count published for the user.
func (h *Hub) Latest(userID primitive.ObjectID) (Count, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.latest[userID]
	return c, ok
}

// SubscribedUsers returns the users that currently have at least one
// attached surface. The reconciler uses this to limit its periodic fetch to
// users someone is actually looking at.
func (h *Hub) SubscribedUsers() []primitive.ObjectID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]primitive.ObjectID, 0, len(h.subs))
	for id := range h.subs {
		out = append(out, id)
	}
	return out
}
