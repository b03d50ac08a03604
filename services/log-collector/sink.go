package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	// ErrBadTopic vrací Handle pro topic, ze kterého nejde určit služba.
	ErrBadTopic = errors.New("invalid log topic")
	// ErrUnknownService: služba není v povoleném seznamu.
	ErrUnknownService = errors.New("service not allowed")
	// ErrLineTooLong: zpráva přesahuje limit velikosti.
	ErrLineTooLong = errors.New("log line too long")
)

// LogSink připisuje řádky logů do <dir>/<služba>.log.
// Soubor se otevírá pro každý zápis (Open-Write-Close), rotace přes
// logrotate pak nepotřebuje žádný signál.
// Soubory vznikají jen pro služby z allowed.
type LogSink struct {
	dir     string
	allowed map[string]bool
	maxLine int
	mu      sync.Mutex
}

// NewLogSink vytvoří adresář, pokud neexistuje. maxLine <= 0 = bez limitu.
func NewLogSink(dir string, services []string, maxLine int) (*LogSink, error) {
	if len(services) == 0 {
		return nil, errors.New("seznam povolených služeb je prázdný")
	}
	allowed := make(map[string]bool, len(services))
	for _, name := range services {
		if _, err := ServiceFromTopic("logs/" + name); err != nil {
			return nil, fmt.Errorf("neplatné jméno služby %q", name)
		}
		allowed[name] = true
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("nelze vytvořit adresář pro logy: %w", err)
	}
	return &LogSink{dir: dir, allowed: allowed, maxLine: maxLine}, nil
}

// ServiceFromTopic vrátí jméno služby z topicu logs/<služba>[/...].
func ServiceFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: %q", ErrBadTopic, topic)
	}

	name := parts[1]
	// Jméno tvoří cestu k souboru, nesmí z adresáře utéct.
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `\`) {
		return "", fmt.Errorf("%w: %q", ErrBadTopic, topic)
	}
	return name, nil
}

// Handle zapíše payload jedné MQTT zprávy.
func (s *LogSink) Handle(topic string, payload []byte) error {
	service, err := ServiceFromTopic(topic)
	if err != nil {
		return err
	}
	return s.Append(service, payload)
}

// Append připíše řádek. Chybějící koncový \n se doplní (slog ho posílá,
// jiní klienti nemusí).
func (s *LogSink) Append(service string, data []byte) error {
	if !s.allowed[service] {
		return fmt.Errorf("%w: %q", ErrUnknownService, service)
	}
	if s.maxLine > 0 && len(data) > s.maxLine {
		return fmt.Errorf("%w: %d bajtů", ErrLineTooLong, len(data))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filename := filepath.Join(s.dir, service+".log")
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return err
	}
	if len(data) == 0 || data[len(data)-1] != '\n' {
		if _, err := f.WriteString("\n"); err != nil {
			return err
		}
	}
	return nil
}
