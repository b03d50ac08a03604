package main

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// logPublisher je část mqtt.Client, kterou log writer potřebuje.
type logPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnectionOpen() bool
}

// MqttLogWriter je io.Writer, který zrcadlí řádky slog do topicu logs/<služba>.
// Odtud je sbírá log-collector.
type MqttLogWriter struct {
	client logPublisher
	topic  string
}

func NewMqttLogWriter(client logPublisher, serviceName string) *MqttLogWriter {
	return &MqttLogWriter{
		client: client,
		topic:  fmt.Sprintf("logs/%s", serviceName),
	}
}

// Write nikdy nečeká na token ani nevrací chybu: výpadek brokeru nesmí
// zastavit logování na stdout. Bez spojení se řádek zahodí.
func (w *MqttLogWriter) Write(p []byte) (int, error) {
	if !w.client.IsConnectionOpen() {
		return len(p), nil
	}

	// slog buffer p po návratu znovu použije.
	payload := make([]byte, len(p))
	copy(payload, p)

	w.client.Publish(w.topic, 0, false, payload)
	return len(p), nil
}
