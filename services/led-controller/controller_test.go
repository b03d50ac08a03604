package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/summmmi/socket.ooo/internal/ledcolor"
	"github.com/summmmi/socket.ooo/internal/noise"
	"github.com/summmmi/socket.ooo/internal/profile"
)

type fakeSink struct {
	mu     sync.Mutex
	states []State
}

func (s *fakeSink) Broadcast(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, st)
}

func (s *fakeSink) last() (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.states) == 0 {
		return State{}, false
	}
	return s.states[len(s.states)-1], true
}

type controllerFixture struct {
	ctrl    *Controller
	sampler *noise.Sampler
	pub     *fakePublisher
	rec     *fakeRecorder
	sink    *fakeSink
	metrics *Metrics
	cancel  context.CancelFunc
}

func startController(t *testing.T) *controllerFixture {
	t.Helper()
	sink := &fakeSink{}
	f := startControllerWithSink(t, sink)
	f.sink = sink
	return f
}

func startControllerWithSink(t *testing.T, sink StateSink) *controllerFixture {
	t.Helper()

	f := &controllerFixture{
		sampler: noise.NewSampler(noise.DefaultProfile()),
		pub:     &fakePublisher{},
		rec:     &fakeRecorder{},
		metrics: NewMetrics(prometheus.NewRegistry()),
	}
	d := NewDispatcher(f.pub, f.rec, DispatchConfig{
		Topic:      "arduino/led/color",
		Mode:       profile.ModeRGB,
		Correction: ledcolor.DefaultCorrection(),
	}, discardLogger(), f.metrics)
	f.ctrl = NewController(f.sampler, d, sink, 5*time.Millisecond, discardLogger(), f.metrics)

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go f.ctrl.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-f.ctrl.stopped
		d.Wait()
	})
	return f
}

func (f *controllerFixture) state(t *testing.T) State {
	t.Helper()
	st, err := f.ctrl.State(context.Background())
	require.NoError(t, err)
	return st
}

func (f *controllerFixture) waitFor(t *testing.T, cond func(State) bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		st, err := f.ctrl.State(context.Background())
		return err == nil && cond(st)
	}, 2*time.Second, 5*time.Millisecond)
}

func TestControllerBroadcastsInitialState(t *testing.T) {
	f := startController(t)

	require.Eventually(t, func() bool {
		_, ok := f.sink.last()
		return ok
	}, time.Second, 5*time.Millisecond)

	st, _ := f.sink.last()
	assert.Equal(t, f.sampler.Blocks(noise.Offset{}, 0), st.Raw)
	assert.Equal(t, "disconnected", st.Connection)
	for i := range st.Raw {
		assert.Equal(t, ledcolor.RGBToHex(st.Raw[i]), st.Colors[i])
		assert.Equal(t, ledcolor.Correct(st.Raw[i]), st.Corrected[i])
	}
}

func TestControllerDragMovesOffset(t *testing.T) {
	f := startController(t)
	ctx := context.Background()

	require.NoError(t, f.ctrl.PointerDown(ctx, PointerInput{X: 10, Y: 10}))
	assert.True(t, f.state(t).Dragging)

	require.NoError(t, f.ctrl.PointerMove(ctx, PointerInput{X: 15, Y: 20}))
	require.NoError(t, f.ctrl.PointerMove(ctx, PointerInput{X: 25, Y: 15}))
	assert.Equal(t, noise.Offset{X: 15, Y: 5}, f.state(t).Offset)

	require.NoError(t, f.ctrl.PointerUp(ctx))
	require.NoError(t, f.ctrl.PointerMove(ctx, PointerInput{X: 500, Y: 500}))

	st := f.state(t)
	assert.False(t, st.Dragging)
	assert.Equal(t, noise.Offset{X: 15, Y: 5}, st.Offset, "move without drag is ignored")
}

func TestControllerPanResamples(t *testing.T) {
	f := startController(t)

	require.NoError(t, f.ctrl.Pan(context.Background(), PanInput{DX: 400, DY: -250}))

	want := f.sampler.Blocks(noise.Offset{X: 400, Y: -250}, 0)
	f.waitFor(t, func(st State) bool { return st.Raw == want })
	assert.Greater(t, testutil.ToFloat64(f.metrics.samples), 0.0)
}

func TestControllerConnectionEvents(t *testing.T) {
	f := startController(t)

	f.ctrl.ConnEvent(EventAttempt)
	f.waitFor(t, func(st State) bool { return st.Connection == "connecting" })

	f.ctrl.ConnEvent(EventConnected)
	f.waitFor(t, func(st State) bool { return st.Connection == "connected" })
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.connection))

	f.ctrl.ConnEvent(EventLost)
	f.waitFor(t, func(st State) bool { return st.Connection == "disconnected" })
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.connection))
}

func TestControllerTransmitUsesCurrentBlocks(t *testing.T) {
	f := startController(t)
	ctx := context.Background()

	f.ctrl.ConnEvent(EventConnected)
	f.waitFor(t, func(st State) bool { return st.Connection == "connected" })

	require.NoError(t, f.ctrl.Pan(ctx, PanInput{DX: 120, DY: 80}))
	want := f.sampler.Blocks(noise.Offset{X: 120, Y: 80}, 0)
	f.waitFor(t, func(st State) bool { return st.Raw == want })

	tx, err := f.ctrl.Transmit(ctx)
	require.NoError(t, err)
	assert.True(t, tx.Published)
	assert.Equal(t, ledcolor.Correct(want[0]), tx.Payload.Block1)
	assert.Equal(t, ledcolor.Correct(want[1]), tx.Payload.Block2)
	assert.Equal(t, ledcolor.Correct(want[2]), tx.Payload.Block3)

	require.Eventually(t, func() bool { return len(f.pub.messages()) == 1 && len(f.rec.records()) == 1 },
		time.Second, 5*time.Millisecond)
}

func TestControllerTransmitWhileDisconnected(t *testing.T) {
	f := startController(t)

	tx, err := f.ctrl.Transmit(context.Background())
	require.NoError(t, err)
	assert.False(t, tx.Published)

	require.Eventually(t, func() bool { return len(f.rec.records()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, f.pub.messages())
}

func TestControllerStopped(t *testing.T) {
	f := startController(t)
	f.cancel()
	<-f.ctrl.stopped

	_, err := f.ctrl.State(context.Background())
	require.ErrorIs(t, err, ErrStopped)

	// Události po zastavení se zahodí, nic se nezablokuje.
	f.ctrl.ConnEvent(EventConnected)
}
