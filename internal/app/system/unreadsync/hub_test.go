package unreadsync

import (
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func drain(sub *Subscriber) []Count {
	var out []Count
	for {
		select {
		case c, ok := <-sub.C:
			if !ok {
				return out
			}
			out = append(out, c)
		default:
			return out
		}
	}
}

func TestPublish_DeliversToAllSubscribers(t *testing.T) {
	hub := NewHub(zap.NewNop())
	user := primitive.NewObjectID()

	a := hub.Subscribe(user)
	b := hub.Subscribe(user)
	c := hub.Subscribe(user)

	hub.Publish(Count{UserID: user, Unread: 3})

	for i, sub := range []*Subscriber{a, b, c} {
		got := drain(sub)
		if len(got) != 1 || got[0].Unread != 3 {
			t.Errorf("subscriber %d: got %v, want one count of 3", i, got)
		}
	}
}

func TestPublish_DoesNotCrossUsers(t *testing.T) {
	hub := NewHub(zap.NewNop())
	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()

	subAlice := hub.Subscribe(alice)
	subBob := hub.Subscribe(bob)

	hub.Publish(Count{UserID: alice, Unread: 5})

	if got := drain(subAlice); len(got) != 1 || got[0].Unread != 5 {
		t.Errorf("alice: got %v, want one count of 5", got)
	}
	if got := drain(subBob); len(got) != 0 {
		t.Errorf("bob received a count for alice: %v", got)
	}
}

func TestPublish_StaleBroadcastDropped(t *testing.T) {
	hub := NewHub(zap.NewNop())
	user := primitive.NewObjectID()
	now := time.Now().UTC()

	hub.Publish(Count{UserID: user, Unread: 2, EmittedAt: now})

	sub := hub.Subscribe(user)
	drain(sub) // consume the replayed latest

	// A broadcast emitted before the latest applied value must never
	// overwrite it.
	hub.Publish(Count{UserID: user, Unread: 9, EmittedAt: now.Add(-time.Second)})

	if got := drain(sub); len(got) != 0 {
		t.Errorf("stale broadcast was delivered: %v", got)
	}
	if latest, _ := hub.Latest(user); latest.Unread != 2 {
		t.Errorf("latest = %d, want 2", latest.Unread)
	}
}

func TestSubscribe_ReplaysLatestOnMount(t *testing.T) {
	hub := NewHub(zap.NewNop())
	user := primitive.NewObjectID()

	hub.Publish(Count{UserID: user, Unread: 7})

	// A surface mounting after the broadcast still sees the value without
	// waiting for the next publish.
	late := hub.Subscribe(user)
	got := drain(late)
	if len(got) != 1 || got[0].Unread != 7 {
		t.Errorf("late subscriber: got %v, want one count of 7", got)
	}
}

func TestPublish_SlowSubscriberKeepsNewest(t *testing.T) {
	hub := NewHub(zap.NewNop())
	user := primitive.NewObjectID()
	sub := hub.Subscribe(user)

	base := time.Now().UTC()
	for i := 0; i < subscriberBuffer*3; i++ {
		hub.Publish(Count{UserID: user, Unread: int64(i), EmittedAt: base.Add(time.Duration(i) * time.Millisecond)})
	}

	got := drain(sub)
	if len(got) == 0 {
		t.Fatal("no counts delivered")
	}
	newest := got[len(got)-1]
	want := int64(subscriberBuffer*3 - 1)
	if newest.Unread != want {
		t.Errorf("newest delivered count = %d, want %d", newest.Unread, want)
	}
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	hub := NewHub(zap.NewNop())
	user := primitive.NewObjectID()
	sub := hub.Subscribe(user)

	hub.Unsubscribe(sub)
	hub.Publish(Count{UserID: user, Unread: 1})

	if got := drain(sub); len(got) != 0 {
		t.Errorf("detached subscriber still received %v", got)
	}
	if users := hub.SubscribedUsers(); len(users) != 0 {
		t.Errorf("SubscribedUsers = %v, want empty", users)
	}
	// Unsubscribing twice is a no-op.
	hub.Unsubscribe(sub)
}

func TestPublish_ConcurrentWithUnsubscribe(t *testing.T) {
	// A surface disconnecting while a broadcast for its user is in flight
	// must never panic the publisher. Run with -race.
	hub := NewHub(zap.NewNop())
	user := primitive.NewObjectID()

	for i := 0; i < 2000; i++ {
		sub := hub.Subscribe(user)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			hub.Publish(Count{UserID: user, Unread: int64(i)})
		}()
		go func() {
			defer wg.Done()
			hub.Unsubscribe(sub)
		}()
		wg.Wait()
	}
}

func TestConvergence_AllSurfacesAgree(t *testing.T) {
	hub := NewHub(zap.NewNop())
	user := primitive.NewObjectID()

	subs := make([]*Subscriber, 4)
	for i := range subs {
		subs[i] = hub.Subscribe(user)
	}

	base := time.Now().UTC()
	hub.Publish(Count{UserID: user, Unread: 4, EmittedAt: base})
	hub.Publish(Count{UserID: user, Unread: 1, EmittedAt: base.Add(time.Millisecond)})

	for i, sub := range subs {
		got := drain(sub)
		if len(got) == 0 {
			t.Fatalf("subscriber %d received nothing", i)
		}
		if final := got[len(got)-1]; final.Unread != 1 {
			t.Errorf("subscriber %d converged on %d, want 1", i, final.Unread)
		}
	}
}
