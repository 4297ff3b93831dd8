package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

type testEvent struct {
	BaseEvent
	Value int
}

func (e testEvent) EventName() string { return "test.event" }

func TestPublishSyncDeliversInOrder(t *testing.T) {
	bus := NewInMemoryBus(nil)

	var got []int
	bus.Subscribe("test.event", HandlerFunc(func(_ context.Context, ev Event) error {
		got = append(got, ev.(testEvent).Value)
		return nil
	}))
	bus.Subscribe("test.event", HandlerFunc(func(_ context.Context, ev Event) error {
		got = append(got, ev.(testEvent).Value*10)
		return nil
	}))

	if err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent(), Value: 7}); err != nil {
		t.Fatalf("PublishSync: %v", err)
	}

	if len(got) != 2 || got[0] != 7 || got[1] != 70 {
		t.Errorf("handlers saw %v, want [7 70]", got)
	}
}

func TestPublishSyncStopsOnFirstError(t *testing.T) {
	bus := NewInMemoryBus(nil)
	boom := errors.New("boom")

	called := 0
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		called++
		return boom
	}))
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		called++
		return nil
	}))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	if !errors.Is(err, boom) {
		t.Fatalf("PublishSync error = %v, want boom", err)
	}
	if called != 1 {
		t.Errorf("called = %d, want 1", called)
	}
}

func TestPublishIsAsynchronousAndIgnoresUnknownEvents(t *testing.T) {
	bus := NewInMemoryBus(nil)

	done := make(chan struct{})
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		close(done)
		return nil
	}))

	// Publishing an event nobody subscribed to must not panic.
	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent()})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async handler never ran")
	}
}
