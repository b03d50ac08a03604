package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

func main() {
	// Vlastní logy jen na stdout, jinak by se collector sbíral sám.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := LoadConfig()
	logger.Info("Startuji Log Collector", "dir", cfg.LogDir, "topic", cfg.LogTopic, "services", cfg.Services)

	sink, err := NewLogSink(cfg.LogDir, cfg.Services, cfg.MaxLineBytes)
	if err != nil {
		logger.Error("Kritická chyba", "error", err)
		os.Exit(1)
	}

	// Callback pro každou logovací zprávu z jakékoliv služby.
	messageHandler := func(client mqtt.Client, msg mqtt.Message) {
		if err := sink.Handle(msg.Topic(), msg.Payload()); err != nil {
			logger.Warn("Zprávu nelze zapsat", "topic", msg.Topic(), "error", err)
		}
	}

	// Veřejný broker: client ID musí být unikátní.
	clientID := cfg.MQTTClientID + "-" + uuid.New().String()[:8]
	opts := mqtt.NewClientOptions().AddBroker(cfg.MQTTBroker).SetClientID(clientID)
	opts.SetDefaultPublishHandler(messageHandler)
	opts.SetAutoReconnect(true)
	// Po reconnectu se subscription obnoví.
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		if token := c.Subscribe(cfg.LogTopic, 0, nil); token.Wait() && token.Error() != nil {
			logger.Error("Subscribe failed", "error", token.Error())
			return
		}
		logger.Info("Poslouchám logy", "topic", cfg.LogTopic)
	})
	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		logger.Warn("Spojení s MQTT brokerem ztraceno", "error", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		logger.Error("MQTT Connection failed", "error", token.Error())
		os.Exit(1)
	}
	defer client.Disconnect(250)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Log Collector ukončen")
}
