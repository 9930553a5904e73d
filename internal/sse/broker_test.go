package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(ch chan []byte) []string {
	time.Sleep(50 * time.Millisecond)
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	assert.Equal(t, 0, b.ClientCount())

	ch := b.Subscribe()
	assert.Equal(t, 1, b.ClientCount())

	b.Unsubscribe(ch)
	assert.Equal(t, 0, b.ClientCount())
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypePinRequested, Data: map[string]string{"kind": "note"}})

	select {
	case msg := <-ch:
		assert.Contains(t, string(msg), "event: surface.pin_requested")
		assert.Contains(t, string(msg), `"kind":"note"`)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishRedraw_SkipsIdenticalFingerprint(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishRedraw(3, "aaa", map[string]int{"surface_id": 3})
	b.PublishRedraw(3, "aaa", map[string]int{"surface_id": 3})
	b.PublishRedraw(4, "aaa", map[string]int{"surface_id": 4})
	b.PublishRedraw(3, "bbb", map[string]int{"surface_id": 3})

	msgs := drain(ch)
	require.Len(t, msgs, 3)
	for _, m := range msgs {
		assert.Contains(t, m, "event: surface.redraw")
	}
}

func TestPublishRemoved_ResetsRedrawHistory(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishRedraw(3, "aaa", nil)
	b.PublishRemoved([]int{3})
	b.PublishRemoved(nil)
	b.PublishRedraw(3, "aaa", nil)

	msgs := drain(ch)
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[1], `"surface_ids":[3]`)
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/host/events", nil)
	req = req.WithContext(ctx)
	w := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	b.Publish(Event{Type: TypeForeground, Data: map[string]bool{"active": true}})
	require.Eventually(t, func() bool {
		return strings.Contains(w.body(), "event: service.foreground")
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done

	assert.Eventually(t, func() bool { return b.ClientCount() == 0 }, time.Second, 10*time.Millisecond,
		"client not cleaned up after disconnect")
}

func TestSSEHandler_KeepAlive(t *testing.T) {
	b := NewBroker(10 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/host/events", nil).WithContext(ctx)
	w := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}

	b.ServeHTTP(w, req)
	assert.Contains(t, w.body(), ": keepalive")
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	assert.Len(t, drain(ch), clientBufferSize)
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(time.Second)
	ch := b.Subscribe()
	require.Equal(t, 1, b.ClientCount())

	b.Close()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "expected subscriber channel to be closed")
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	assert.Equal(t, 0, b.ClientCount())

	// Should be safe no-op after close.
	assert.NotPanics(t, func() {
		b.Publish(Event{Type: TypeRedraw})
		b.PublishRedraw(1, "x", nil)
		b.PublishRemoved([]int{1})
		b.Unsubscribe(ch)
	})

	_, ok := <-b.Subscribe()
	assert.False(t, ok, "subscribe after close returns a closed channel")
}

func TestSubscribe_ReplaysLatestRedraws(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	b.PublishRedraw(7, "old", map[string]string{"v": "old"})
	b.PublishRedraw(7, "new", map[string]string{"v": "new"})
	b.PublishRedraw(2, "two", map[string]string{"v": "two"})
	b.PublishRedraw(9, "nine", nil)
	b.PublishRemoved([]int{9})

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	msgs := drain(ch)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], `"v":"two"`, "first replay is surface 2")
	assert.Contains(t, msgs[1], `"v":"new"`, "second replay is the latest of surface 7")
}

func TestSubscribe_OrderedAfterEarlierPublishes(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	// Published before Subscribe returns: the client sees it once, via replay.
	b.PublishRedraw(1, "a", map[string]string{"v": "a"})
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)
	b.PublishRedraw(1, "b", map[string]string{"v": "b"})

	msgs := drain(ch)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], `"v":"a"`)
	assert.Contains(t, msgs[1], `"v":"b"`)
}

// syncRecorder guards the body against the concurrent reader in tests.
type syncRecorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func (r *syncRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(p)
}

func (r *syncRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ResponseRecorder.Flush()
}

func (r *syncRecorder) body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Body.String()
}
