package main

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLogClient struct {
	fakePublisher
	openMu sync.Mutex
	open   bool
}

func (c *fakeLogClient) IsConnectionOpen() bool {
	c.openMu.Lock()
	defer c.openMu.Unlock()
	return c.open
}

func TestMqttLogWriterPublishesLines(t *testing.T) {
	client := &fakeLogClient{open: true}
	logger := slog.New(slog.NewJSONHandler(NewMqttLogWriter(client, "led-controller"), nil))

	logger.Info("první")
	logger.Info("druhá")

	msgs := client.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "logs/led-controller", msgs[0].topic)
	assert.Contains(t, string(msgs[0].payload), `"msg":"první"`)
	assert.Contains(t, string(msgs[1].payload), `"msg":"druhá"`)
}

func TestMqttLogWriterDropsWhenDisconnected(t *testing.T) {
	client := &fakeLogClient{}
	w := NewMqttLogWriter(client, "led-controller")

	n, err := w.Write([]byte("line\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Empty(t, client.messages())
}

func TestMqttLogWriterCopiesBuffer(t *testing.T) {
	client := &fakeLogClient{open: true}
	w := NewMqttLogWriter(client, "led-controller")

	buf := []byte("abc")
	_, err := w.Write(buf)
	require.NoError(t, err)
	buf[0] = 'x'

	assert.Equal(t, []byte("abc"), client.messages()[0].payload)
}
