package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/summmmi/socket.ooo/internal/ledcolor"
	"github.com/summmmi/socket.ooo/internal/profile"
	"github.com/summmmi/socket.ooo/internal/store"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	done := make(chan struct{})
	close(done)
	return &fakeToken{err: err, done: done}
}

func (t *fakeToken) Wait() bool                       { return true }
func (t *fakeToken) WaitTimeout(d time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}            { return t.done }
func (t *fakeToken) Error() error                     { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return newFakeToken(p.err)
}

func (p *fakePublisher) messages() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.msgs...)
}

type fakeRecorder struct {
	mu   sync.Mutex
	recs []store.Record
	err  error
}

func (r *fakeRecorder) Insert(ctx context.Context, rec store.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.recs = append(r.recs, rec)
	return nil
}

func (r *fakeRecorder) records() []store.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]store.Record(nil), r.recs...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2025, 3, 14, 15, 9, 26, 535_000_000, time.UTC)

func newTestDispatcher(pub Publisher, rec Recorder, mode profile.PayloadMode) (*Dispatcher, *Metrics) {
	metrics := NewMetrics(prometheus.NewRegistry())
	d := NewDispatcher(pub, rec, DispatchConfig{
		Topic:      "arduino/led/color",
		Mode:       mode,
		Correction: ledcolor.DefaultCorrection(),
	}, discardLogger(), metrics)
	d.now = func() time.Time { return fixedNow }
	return d, metrics
}

func edgeCount(m *Metrics, edge, result string) float64 {
	return testutil.ToFloat64(m.transmissions.WithLabelValues(edge, result))
}

var sampleBlocks = [3]ledcolor.RGB{
	{R: 200, G: 50, B: 50},
	{R: 255, G: 0, B: 255},
	{R: 0, G: 255, B: 255},
}

func TestTransmitPublishesCorrectedPayload(t *testing.T) {
	pub := &fakePublisher{}
	rec := &fakeRecorder{}
	d, metrics := newTestDispatcher(pub, rec, profile.ModeRGB)

	tx, err := d.Transmit(sampleBlocks, true)
	require.NoError(t, err)
	d.Wait()

	assert.True(t, tx.Published)
	assert.True(t, tx.Recorded)

	msgs := pub.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "arduino/led/color", msgs[0].topic)
	assert.Equal(t, byte(0), msgs[0].qos)
	assert.False(t, msgs[0].retained)
	assert.Equal(t, tx.Body, msgs[0].payload)

	var got struct {
		Block1    ledcolor.RGB `json:"block1"`
		Block2    ledcolor.RGB `json:"block2"`
		Block3    ledcolor.RGB `json:"block3"`
		Timestamp string       `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(msgs[0].payload, &got))
	assert.Equal(t, ledcolor.Correct(sampleBlocks[0]), got.Block1)
	assert.Equal(t, ledcolor.Correct(sampleBlocks[1]), got.Block2)
	assert.Equal(t, ledcolor.Correct(sampleBlocks[2]), got.Block3)
	assert.Equal(t, "2025-03-14T15:09:26.535Z", got.Timestamp)

	ts, err := time.Parse(time.RFC3339Nano, got.Timestamp)
	require.NoError(t, err)
	assert.True(t, ts.Equal(fixedNow))

	assert.Equal(t, 1.0, edgeCount(metrics, "publish", "sent"))
	assert.Equal(t, 1.0, edgeCount(metrics, "persist", "stored"))
}

func TestTransmitRecordsColorList(t *testing.T) {
	rec := &fakeRecorder{}
	d, _ := newTestDispatcher(&fakePublisher{}, rec, profile.ModeRGB)

	_, err := d.Transmit(sampleBlocks, true)
	require.NoError(t, err)
	d.Wait()

	recs := rec.records()
	require.Len(t, recs, 1)
	assert.Equal(t, "2025-03-14T15:09:26.535Z", recs[0].Timestamp)

	var colors []ledcolor.RGB
	require.NoError(t, json.Unmarshal([]byte(recs[0].Color), &colors))
	require.Len(t, colors, 3)
	for i, c := range colors {
		assert.Equal(t, ledcolor.Correct(sampleBlocks[i]), c)
	}
}

func TestTransmitCorrectsOnlyOnce(t *testing.T) {
	pub := &fakePublisher{}
	d, _ := newTestDispatcher(pub, nil, profile.ModeRGB)

	tx, err := d.Transmit(sampleBlocks, true)
	require.NoError(t, err)
	d.Wait()

	once := ledcolor.Correct(sampleBlocks[0])
	assert.Equal(t, once, tx.Payload.Block1)
	assert.NotEqual(t, ledcolor.Correct(once), tx.Payload.Block1)
}

func TestTransmitHSVMode(t *testing.T) {
	pub := &fakePublisher{}
	d, _ := newTestDispatcher(pub, nil, profile.ModeHSV)

	_, err := d.Transmit(sampleBlocks, true)
	require.NoError(t, err)
	d.Wait()

	msgs := pub.messages()
	require.Len(t, msgs, 1)

	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(msgs[0].payload, &got))

	var hsv ledcolor.HSV
	require.NoError(t, json.Unmarshal(got["block1"], &hsv))
	assert.Equal(t, ledcolor.Correct(sampleBlocks[0]).HSV(), hsv)
}

func TestTransmitSkipsPublishWhenDisconnected(t *testing.T) {
	pub := &fakePublisher{}
	rec := &fakeRecorder{}
	d, metrics := newTestDispatcher(pub, rec, profile.ModeRGB)

	tx, err := d.Transmit(sampleBlocks, false)
	require.NoError(t, err)
	d.Wait()

	assert.False(t, tx.Published)
	assert.Empty(t, pub.messages())
	assert.Len(t, rec.records(), 1, "persist edge does not depend on the broker")
	assert.Equal(t, 1.0, edgeCount(metrics, "publish", "skipped"))
}

func TestPublishFailureDoesNotAffectPersist(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker gone")}
	rec := &fakeRecorder{}
	d, metrics := newTestDispatcher(pub, rec, profile.ModeRGB)

	_, err := d.Transmit(sampleBlocks, true)
	require.NoError(t, err)
	d.Wait()

	assert.Equal(t, 1.0, edgeCount(metrics, "publish", "failed"))
	assert.Equal(t, 1.0, edgeCount(metrics, "persist", "stored"))
	assert.Len(t, rec.records(), 1)
}

func TestPersistFailureDoesNotAffectPublish(t *testing.T) {
	pub := &fakePublisher{}
	rec := &fakeRecorder{err: errors.New("relation does not exist")}
	d, metrics := newTestDispatcher(pub, rec, profile.ModeRGB)

	_, err := d.Transmit(sampleBlocks, true)
	require.NoError(t, err)
	d.Wait()

	assert.Len(t, pub.messages(), 1)
	assert.Equal(t, 1.0, edgeCount(metrics, "persist", "failed"))
	assert.Equal(t, 1.0, edgeCount(metrics, "publish", "sent"))
}

func TestTransmitWithoutRecorder(t *testing.T) {
	d, metrics := newTestDispatcher(&fakePublisher{}, nil, profile.ModeRGB)

	tx, err := d.Transmit(sampleBlocks, true)
	require.NoError(t, err)
	d.Wait()

	assert.False(t, tx.Recorded)
	assert.Equal(t, 1.0, edgeCount(metrics, "persist", "disabled"))
}

func TestTransmitName(t *testing.T) {
	pub := &fakePublisher{}
	rec := &fakeRecorder{}
	d, _ := newTestDispatcher(pub, rec, profile.ModeRGB)

	tx, err := d.TransmitName(" Red ", true)
	require.NoError(t, err)
	d.Wait()

	assert.Equal(t, []byte("red"), tx.Body)
	msgs := pub.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []byte("red"), msgs[0].payload)

	recs := rec.records()
	require.Len(t, recs, 1)
	assert.Equal(t, "red", recs[0].Color)
}

func TestTransmitNameRejectsUnknown(t *testing.T) {
	pub := &fakePublisher{}
	d, _ := newTestDispatcher(pub, nil, profile.ModeRGB)

	_, err := d.TransmitName("purple", true)
	require.ErrorIs(t, err, ErrUnknownColor)
	assert.Empty(t, pub.messages())
}
