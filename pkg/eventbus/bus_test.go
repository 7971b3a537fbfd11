package eventbus

import (
	"sync"
	"testing"

	"github.com/user/clipdeck/pkg/adapters/logger"
)

func TestBus_Publish(t *testing.T) {
	bus := New(logger.NewNoop())

	var received Event
	bus.Subscribe(TypeRecordingStarted, func(e Event) {
		received = e
	})

	bus.Publish(NewRecordingStarted("vid-1", "/tmp/rec"))

	if received == nil {
		t.Fatal("handler should have received the event")
	}
	started, ok := received.(RecordingStarted)
	if !ok || started.VideoID != "vid-1" {
		t.Errorf("unexpected event %#v", received)
	}
	if received.Timestamp().IsZero() {
		t.Error("expected a timestamp")
	}
}

func TestBus_OrderSpecificThenWildcard(t *testing.T) {
	bus := New(logger.NewNoop())

	var order []string
	bus.SubscribeAll(func(Event) { order = append(order, "all") })
	bus.Subscribe(TypePlaybackEnded, func(Event) { order = append(order, "first") })
	bus.Subscribe(TypePlaybackEnded, func(Event) { order = append(order, "second") })
	bus.Subscribe(TypeEditorFailed, func(Event) { order = append(order, "other") })

	bus.Publish(NewPlaybackEnded("vid"))

	want := []string{"first", "second", "all"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New(logger.NewNoop())

	calls := 0
	id := bus.Subscribe(TypeRenderFinished, func(Event) { calls++ })

	if !bus.Unsubscribe(id) {
		t.Fatal("expected subscription to be found")
	}
	if bus.Unsubscribe(id) {
		t.Error("second unsubscribe should report false")
	}
	bus.Publish(NewRenderFinished("vid", "/out.mp4", ""))

	if calls != 0 {
		t.Errorf("unsubscribed handler was called %d times", calls)
	}
	if bus.SubscriptionCount() != 0 {
		t.Errorf("expected no subscriptions, got %d", bus.SubscriptionCount())
	}
}

func TestBus_PanicIsolation(t *testing.T) {
	bus := New(logger.NewNoop())

	called := false
	bus.Subscribe(TypeRecordingFailed, func(Event) { panic("boom") })
	bus.Subscribe(TypeRecordingFailed, func(Event) { called = true })

	bus.Publish(NewRecordingFailed("vid", "IOFailure", "disk full"))

	if !called {
		t.Error("a panicking handler must not stop delivery")
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := New(logger.NewNoop())

	var mu sync.Mutex
	count := 0
	bus.SubscribeAll(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bus.Publish(NewEditorStateChanged("vid", i, true))
		}(i)
	}
	wg.Wait()

	if count != 20 {
		t.Errorf("expected 20 deliveries, got %d", count)
	}
}
