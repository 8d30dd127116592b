package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/overrides"
)

type recordingSaver struct {
	mu    sync.Mutex
	saved []overrides.State
	err   error
}

func (s *recordingSaver) SaveState(st overrides.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, st)
	return s.err
}

func (s *recordingSaver) calls() []overrides.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]overrides.State(nil), s.saved...)
}

func stateWithExtras(n int) overrides.State {
	st := overrides.State{Sessions: overrides.SessionOverrides{}, Payments: overrides.PaymentOverrides{}}
	for i := 0; i < n; i++ {
		st.Extras = append(st.Extras, models.Session{ID: "extra", PatientID: "p1"})
	}
	return st
}

func TestScheduleCoalescesSnapshots(t *testing.T) {
	saver := &recordingSaver{}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	w := NewWriter(saver, 20*time.Millisecond, metrics)

	w.Schedule(stateWithExtras(1))
	w.Schedule(stateWithExtras(2))
	w.Schedule(stateWithExtras(3))

	require.Eventually(t, func() bool { return len(saver.calls()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, saver.calls()[0].Extras, 3)
	assert.False(t, w.Pending())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.coalesced))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.writesTotal.WithLabelValues("ok")))
}

func TestFlushWritesImmediately(t *testing.T) {
	saver := &recordingSaver{}
	w := NewWriter(saver, time.Hour, nil)

	w.Schedule(stateWithExtras(1))
	assert.True(t, w.Pending())
	require.NoError(t, w.Flush(context.Background()))
	require.Len(t, saver.calls(), 1)

	// Nothing pending: no second write.
	require.NoError(t, w.Flush(context.Background()))
	assert.Len(t, saver.calls(), 1)
}

func TestBackgroundFailureIsSwallowedAndCounted(t *testing.T) {
	saver := &recordingSaver{err: errors.New("disk full")}
	metrics := NewMetrics(prometheus.NewRegistry())
	w := NewWriter(saver, 5*time.Millisecond, metrics)

	w.Schedule(stateWithExtras(1))
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.writesTotal.WithLabelValues("error")) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestFlushReportsFailure(t *testing.T) {
	saver := &recordingSaver{err: errors.New("disk full")}
	w := NewWriter(saver, time.Hour, nil)
	w.Schedule(stateWithExtras(1))
	assert.EqualError(t, w.Flush(context.Background()), "disk full")
}

func TestScheduleSnapshotsAreIsolated(t *testing.T) {
	saver := &recordingSaver{}
	w := NewWriter(saver, time.Hour, nil)

	st := stateWithExtras(1)
	w.Schedule(st)
	st.Extras[0].ID = "mutated"
	require.NoError(t, w.Flush(context.Background()))
	assert.Equal(t, "extra", saver.calls()[0].Extras[0].ID)
}

func TestCloseRejectsLaterSnapshots(t *testing.T) {
	saver := &recordingSaver{}
	w := NewWriter(saver, time.Millisecond, nil)
	w.Schedule(stateWithExtras(1))
	require.NoError(t, w.Close(context.Background()))

	w.Schedule(stateWithExtras(2))
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, saver.calls(), 1)
	assert.False(t, w.Pending())
}

// gatedSaver blocks every write until release is closed and records writes
// that arrive after it was marked closed.
type gatedSaver struct {
	recordingSaver
	release chan struct{}
	started chan struct{}

	mu         sync.Mutex
	storeShut  bool
	afterClose int
}

func newGatedSaver() *gatedSaver {
	return &gatedSaver{release: make(chan struct{}), started: make(chan struct{}, 8)}
}

func (s *gatedSaver) SaveState(st overrides.State) error {
	s.started <- struct{}{}
	<-s.release
	s.mu.Lock()
	if s.storeShut {
		s.afterClose++
	}
	s.mu.Unlock()
	return s.recordingSaver.SaveState(st)
}

func (s *gatedSaver) shut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storeShut = true
}

func TestCloseWaitsForAbandonedWrite(t *testing.T) {
	saver := newGatedSaver()
	w := NewWriter(saver, time.Hour, nil)
	w.Schedule(stateWithExtras(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	closed := make(chan error, 1)
	go func() { closed <- w.Close(ctx) }()

	select {
	case <-closed:
		t.Fatal("Close returned while a write was still running")
	case <-time.After(30 * time.Millisecond):
	}

	close(saver.release)
	err := <-closed
	assert.ErrorIs(t, err, context.Canceled)
	saver.shut()

	time.Sleep(20 * time.Millisecond)
	assert.Len(t, saver.calls(), 1)
	assert.Zero(t, saver.afterClose)
}

func TestWritesLandInScheduleOrder(t *testing.T) {
	saver := newGatedSaver()
	w := NewWriter(saver, time.Hour, nil)

	w.Schedule(stateWithExtras(1))
	flushed := make(chan error, 1)
	go func() { flushed <- w.Flush(context.Background()) }()
	<-saver.started

	// A newer snapshot whose timer fires while the first write is blocked.
	w.Schedule(stateWithExtras(2))
	fired := make(chan struct{})
	go func() {
		w.fire()
		close(fired)
	}()

	close(saver.release)
	require.NoError(t, <-flushed)
	<-fired

	calls := saver.calls()
	require.Len(t, calls, 2)
	assert.Len(t, calls[0].Extras, 1)
	assert.Len(t, calls[1].Extras, 2)
}
