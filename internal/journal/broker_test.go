package journal_test

import (
	"testing"
	"time"

	"github.com/dlots/foreman/internal/journal"
	"github.com/dlots/foreman/internal/model"
)

func TestBrokerPublishToSubscriber(t *testing.T) {
	b := journal.NewBroker()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Publish(model.Event{Kind: model.EventSpawned, WorkerID: 1})

	select {
	case ev := <-ch:
		if ev.Kind != model.EventSpawned || ev.WorkerID != 1 {
			t.Errorf("got event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}
}

func TestBrokerUnsubscribe(t *testing.T) {
	b := journal.NewBroker()
	ch, unsub := b.Subscribe()
	unsub()

	b.Publish(model.Event{Kind: model.EventKilled, WorkerID: 2})

	select {
	case ev, ok := <-ch:
		if ok {
			t.Errorf("received event %+v after unsubscribe", ev)
		}
	default:
	}
}

func TestBrokerSlowSubscriberDoesNotBlock(t *testing.T) {
	b := journal.NewBroker()
	_, unsub := b.Subscribe()
	defer unsub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Overflow the subscriber buffer; extra events must be dropped.
		for i := range 200 {
			b.Publish(model.Event{Kind: model.EventReset, WorkerID: uint64(i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestBrokerCloseClosesSubscribers(t *testing.T) {
	b := journal.NewBroker()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel after Close")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber channel not closed")
	}
}

func TestBrokerLateSubscribeAfterClose(t *testing.T) {
	b := journal.NewBroker()
	b.Close()

	ch, unsub := b.Subscribe()
	defer unsub()

	if _, ok := <-ch; ok {
		t.Error("late subscriber got an open channel, want closed")
	}

	// Publishing after Close is a silent no-op.
	b.Publish(model.Event{Kind: model.EventShutdown})
}
