package main

import (
	"os"
	"strconv"
	"strings"
)

// Config drží nastavení Log Collectoru. Vše z ENV proměnných.
type Config struct {
	// MQTTBroker: stejný broker, do kterého led-controller zrcadlí logy.
	MQTTBroker   string
	MQTTClientID string

	// LogTopic: wildcard nad logs/<služba>.
	LogTopic string

	// LogDir: adresář pro <služba>.log (v Dockeru namapovaný volume).
	LogDir string

	// Services: služby, jejichž logy se ukládají. Ostatní topicy pod
	// logs/ se zahodí, broker je veřejný.
	Services []string

	// MaxLineBytes: delší zprávy se zahodí.
	MaxLineBytes int
}

func LoadConfig() Config {
	return Config{
		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://broker.hivemq.com:1883"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "led-log-collector"),
		LogTopic:     getEnv("LOG_TOPIC", "logs/#"),
		LogDir:       getEnv("LOG_DIR", "/var/log/led"),
		Services:     splitList(getEnv("LOG_SERVICES", "led-controller,color-api")),
		MaxLineBytes: getInt("LOG_MAX_LINE_BYTES", 64*1024),
	}
}

// splitList rozdělí seznam oddělený čárkami, prázdné položky vynechá.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
