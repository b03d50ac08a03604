package main

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config drží nastavení ovladače LED pásku.
// Připojení (broker, databáze, porty) jsou v ENV, vzhled a korekce barev
// v YAML profilu (PROFILE_PATH).
type Config struct {
	// MQTT Konfigurace
	MQTTBroker   string
	MQTTClientID string // Prefix, ke kterému se přidá náhodná přípona (veřejný broker)
	LEDTopic     string // Topic, který poslouchá Arduino
	MQTTLogs     bool   // Zrcadlit logy do MQTT (logs/led-controller)

	// Databáze jsou volitelné. Prázdný POSTGRES_URL = barvy se neukládají.
	PostgresURL string
	ValkeyAddr  string
	CacheTTL    time.Duration // Expirace setu posledních barev ve Valkey

	ProfilePath string

	HTTPPort       string
	SampleInterval time.Duration // Perioda vzorkování pole šumu
	InsertTimeout  time.Duration // 0 = bez timeoutu
	LogLevel       string
}

// LoadConfig načte konfiguraci. Pokud proměnná chybí, použije default.
func LoadConfig() Config {
	return Config{
		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://broker.hivemq.com:1883"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "led-controller"),
		LEDTopic:     getEnv("LED_TOPIC", "arduino/led/color"),
		MQTTLogs:     getEnv("MQTT_LOGS", "false") == "true",

		PostgresURL: getEnv("POSTGRES_URL", ""),
		ValkeyAddr:  getEnv("VALKEY_ADDR", ""),
		CacheTTL:    getDuration("CACHE_TTL", 10*time.Minute),

		ProfilePath: getEnv("PROFILE_PATH", ""),

		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		SampleInterval: getDuration("SAMPLE_INTERVAL", 50*time.Millisecond),
		InsertTimeout:  getDuration("INSERT_TIMEOUT", 5*time.Second),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getDuration čte Go duration ("50ms", "5s"). Neplatná hodnota = fallback.
func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback.String()))
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// parseLevel převede LOG_LEVEL na slog.Level (neznámá hodnota = info).
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
