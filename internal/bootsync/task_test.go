package bootsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/glance/internal/apperr"
	"github.com/starford/glance/internal/metrics"
)

type fakeRuntime struct {
	run func(ctx context.Context) error
}

func (f fakeRuntime) RunTask(ctx context.Context, _, _ string) error { return f.run(ctx) }

type fakeInspector bool

func (f fakeInspector) ForegroundRunning() bool { return bool(f) }

type countingLock struct {
	mu       sync.Mutex
	acquired int
	released int
}

func (l *countingLock) Acquire(string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acquired++
}

func (l *countingLock) Release(string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.released++
}

func (l *countingLock) counts() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquired, l.released
}

type countingNotifier struct{ countingLock }

func (n *countingNotifier) StartForeground(id string) { n.Acquire(id) }
func (n *countingNotifier) StopForeground(id string)  { n.Release(id) }

func TestRun_Completes(t *testing.T) {
	lock := &countingLock{}
	note := &countingNotifier{}
	task := NewTask(fakeRuntime{run: func(context.Context) error { return nil }}, fakeInspector(false), lock, nil,
		WithForegroundNotifier(note), WithMetrics(metrics.New()))

	id, err := task.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, id, 26)

	a, r := lock.counts()
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, r)
	a, r = note.counts()
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, r)
}

func TestRun_TimeoutReleases(t *testing.T) {
	lock := &countingLock{}
	rt := fakeRuntime{run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	task := NewTask(rt, nil, lock, nil, WithTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := task.Run(context.Background())
	assert.ErrorIs(t, err, apperr.ErrTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)

	a, r := lock.counts()
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, r)
}

func TestRun_TimeoutReleasesWithUncooperativeRuntime(t *testing.T) {
	lock := &countingLock{}
	note := &countingNotifier{}
	release := make(chan struct{})
	defer close(release)
	rt := fakeRuntime{run: func(context.Context) error {
		<-release
		return nil
	}}
	task := NewTask(rt, nil, lock, nil, WithTimeout(50*time.Millisecond), WithForegroundNotifier(note))

	start := time.Now()
	_, err := task.Run(context.Background())
	assert.ErrorIs(t, err, apperr.ErrTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)

	_, r := lock.counts()
	assert.Equal(t, 1, r)
	_, r = note.counts()
	assert.Equal(t, 1, r)

	// The single-flight guard does not wait for the abandoned runtime.
	task.runtime = fakeRuntime{run: func(context.Context) error { return nil }}
	_, err = task.Run(context.Background())
	assert.NoError(t, err)
}

func TestRun_PanicReleases(t *testing.T) {
	lock := &countingLock{}
	task := NewTask(fakeRuntime{run: func(context.Context) error { panic("boom") }}, nil, lock, nil)

	_, err := task.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	_, r := lock.counts()
	assert.Equal(t, 1, r)

	// The single-flight guard is released too.
	task.runtime = fakeRuntime{run: func(context.Context) error { return nil }}
	_, err = task.Run(context.Background())
	assert.NoError(t, err)
}

func TestRun_FailureReported(t *testing.T) {
	boom := errors.New("sync failed")
	task := NewTask(fakeRuntime{run: func(context.Context) error { return boom }}, nil, nil, nil)

	_, err := task.Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRun_SingleFlight(t *testing.T) {
	started := make(chan struct{})
	finish := make(chan struct{})
	rt := fakeRuntime{run: func(context.Context) error {
		close(started)
		<-finish
		return nil
	}}
	task := NewTask(rt, nil, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := task.Run(context.Background())
		done <- err
	}()
	<-started

	_, err := task.Run(context.Background())
	assert.ErrorIs(t, err, apperr.ErrBusy)

	close(finish)
	assert.NoError(t, <-done)
}

func TestRun_Disabled(t *testing.T) {
	task := NewTask(nil, nil, nil, nil)
	_, err := task.Run(context.Background())
	assert.ErrorIs(t, err, ErrDisabled)
	assert.False(t, task.OnBootCompleted())
}

func TestOnBootCompleted_SkipsWhenForeground(t *testing.T) {
	called := false
	task := NewTask(fakeRuntime{run: func(context.Context) error { called = true; return nil }}, fakeInspector(true), nil, nil)

	assert.False(t, task.OnBootCompleted())
	task.Close()
	assert.False(t, called)
}

func TestOnBootCompleted_RunsInBackground(t *testing.T) {
	ran := make(chan struct{})
	lock := &countingLock{}
	task := NewTask(fakeRuntime{run: func(context.Context) error { close(ran); return nil }}, fakeInspector(false), lock, nil)

	require.True(t, task.OnBootCompleted())
	<-ran
	task.Close()

	_, r := lock.counts()
	assert.Equal(t, 1, r)
}

func TestClose_CancelsBackgroundRun(t *testing.T) {
	started := make(chan struct{})
	lock := &countingLock{}
	rt := fakeRuntime{run: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}}
	task := NewTask(rt, nil, lock, nil, WithTimeout(time.Minute))

	require.True(t, task.OnBootCompleted())
	<-started
	task.Close()

	a, r := lock.counts()
	assert.Equal(t, a, r)
}
