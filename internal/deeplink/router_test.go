package deeplink

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/glance/internal/metrics"
	"github.com/starford/glance/internal/models"
)

func newRouter() *Router {
	return NewRouter(NewLinks(""), nil, metrics.New())
}

func TestRouter_NewReminderPulledOnce(t *testing.T) {
	r := newRouter()
	require.Equal(t, Idle, r.State())

	assert.True(t, r.Deliver(NewInboundSignal("glance://new_reminder")))
	assert.Equal(t, PendingDelivery, r.State())

	msg, ok := r.Pull()
	require.True(t, ok)
	assert.Equal(t, models.NewReminderMessage(), msg)

	for i := 0; i < 3; i++ {
		_, ok = r.Pull()
		assert.False(t, ok)
	}
	assert.Equal(t, Idle, r.State())
}

func TestRouter_SameInstanceDeliveredOnce(t *testing.T) {
	r := newRouter()
	sig := NewInboundSignal("glance://open_note?id=n1")

	assert.True(t, r.Deliver(sig))
	_, ok := r.Pull()
	require.True(t, ok)

	assert.False(t, r.Deliver(sig))
	_, ok = r.Pull()
	assert.False(t, ok)
}

func TestRouter_DistinctInstancesSamePayload(t *testing.T) {
	r := newRouter()
	const uri = "glance://open_note?id=n1"

	pulls := 0
	for _, sig := range []*InboundSignal{NewInboundSignal(uri), NewInboundSignal(uri)} {
		r.Deliver(sig)
		if _, ok := r.Pull(); ok {
			pulls++
		}
	}
	assert.Equal(t, 2, pulls)
}

func TestRouter_CopiedSignalKeepsIdentity(t *testing.T) {
	r := newRouter()
	sig := NewInboundSignal("glance://new_reminder")
	dup := *sig

	assert.True(t, r.Deliver(sig))
	assert.False(t, r.Deliver(&dup))
}

func TestRouter_UnrecognizedDropped(t *testing.T) {
	r := newRouter()
	r.Deliver(NewInboundSignal("glance://open_reminder?id=r1"))

	assert.False(t, r.Deliver(NewInboundSignal("glance://share?text=x")))
	assert.False(t, r.Deliver(nil))

	msg, ok := r.Pull()
	require.True(t, ok)
	assert.Equal(t, models.OpenReminderMessage("r1"), msg)
}

func TestRouter_LaterSignalReplacesPending(t *testing.T) {
	r := newRouter()
	r.Deliver(NewInboundSignal("glance://open_note?id=n1"))
	r.Deliver(NewInboundSignal("glance://open_note?id=n2"))

	msg, ok := r.Pull()
	require.True(t, ok)
	assert.Equal(t, "n2", msg.ContentID)
}

func TestRouter_EmptyInstanceAssigned(t *testing.T) {
	r := newRouter()
	sig := &InboundSignal{URI: "glance://new_reminder"}
	assert.True(t, r.Deliver(sig))
	assert.NotEmpty(t, sig.Instance)
}

func TestRouter_ConcurrentDeliverAndPull(t *testing.T) {
	r := newRouter()
	const n = 200

	var mu sync.Mutex
	pulled := 0
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			r.Deliver(NewInboundSignal("glance://new_reminder"))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			if _, ok := r.Pull(); ok {
				mu.Lock()
				pulled++
				mu.Unlock()
			}
		}
	}()
	wg.Wait()
	if _, ok := r.Pull(); ok {
		pulled++
	}
	assert.LessOrEqual(t, pulled, n)
	assert.Positive(t, pulled)
	assert.Equal(t, Idle, r.State())
}
