package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, b *Bus, kinds ...Kind) (*Subscription, func() []Event) {
	t.Helper()
	var mu sync.Mutex
	var got []Event
	sub := b.Subscribe(func(ev Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	}, kinds...)
	return sub, func() []Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]Event(nil), got...)
	}
}

func TestBus_DeliversInOrder(t *testing.T) {
	b := New()
	defer b.Close()
	sub, events := collect(t, b)

	b.Publish(Event{Kind: Connected})
	b.Publish(Event{Kind: AlarmsUpdated, Partial: true})
	b.Publish(Event{Kind: Disconnected})

	sub.Unsubscribe()
	got := events()
	require.Len(t, got, 3)
	assert.Equal(t, Connected, got[0].Kind)
	assert.Equal(t, AlarmsUpdated, got[1].Kind)
	assert.True(t, got[1].Partial)
	assert.Equal(t, Disconnected, got[2].Kind)
	assert.False(t, got[0].At.IsZero(), "publish stamps the event time")
}

func TestBus_FiltersByKind(t *testing.T) {
	b := New()
	defer b.Close()
	sub, events := collect(t, b, ConfigurationUpdated)

	b.Publish(Event{Kind: Connected})
	b.Publish(Event{Kind: ConfigurationUpdated})

	sub.Unsubscribe()
	got := events()
	require.Len(t, got, 1)
	assert.Equal(t, ConfigurationUpdated, got[0].Kind)
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	defer b.Close()
	sub, events := collect(t, b)

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 0, b.Subscribers())

	b.Publish(Event{Kind: Connected})
	assert.Empty(t, events())
}

func TestBus_PublishNeverBlocks(t *testing.T) {
	b := NewWithQueueSize(1)
	release := make(chan struct{})
	sub := b.Subscribe(func(Event) { <-release })

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(Event{Kind: AlarmsUpdated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
	close(release)
	sub.Unsubscribe()
}

func TestBus_CloseDetachesAll(t *testing.T) {
	b := New()
	_, _ = collect(t, b)
	_, _ = collect(t, b)
	require.Equal(t, 2, b.Subscribers())

	b.Close()
	assert.Equal(t, 0, b.Subscribers())

	// Publishing and subscribing after close are harmless
	b.Publish(Event{Kind: Connected})
	late := b.Subscribe(func(Event) {})
	late.Unsubscribe()
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "alarms_updated", AlarmsUpdated.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
