package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/summmmi/socket.ooo/internal/ledcolor"
	"github.com/summmmi/socket.ooo/internal/profile"
	"github.com/summmmi/socket.ooo/internal/store"
)

// isoLayout odpovídá JavaScriptovému Date.toISOString() (milisekundy, Z).
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// publishTimeout omezuje čekání na token u QoS 0 (lokální odeslání do socketu).
const publishTimeout = 10 * time.Second

// ErrUnknownColor vrací TransmitName pro jméno, které firmware nezná.
var ErrUnknownColor = errors.New("unknown color name")

// Barvy, které umí první verze firmwaru jako holý řetězec.
var legacyNames = map[string]bool{"red": true, "green": true, "blue": true}

// Publisher je část mqtt.Client, kterou dispatcher potřebuje.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Recorder ukládá historii odeslaných barev (store.Repository).
type Recorder interface {
	Insert(ctx context.Context, rec store.Record) error
}

// DispatchConfig jsou neměnné parametry odesílání.
type DispatchConfig struct {
	Topic         string
	Mode          profile.PayloadMode
	Correction    ledcolor.Correction
	InsertTimeout time.Duration
}

// Dispatcher posílá barvy dvěma nezávislými cestami:
// publish do MQTT (QoS 0, fire-and-forget) a insert do databáze.
// Žádná z nich neblokuje volajícího ani tu druhou, nic se neopakuje ani nefrontuje.
type Dispatcher struct {
	pub     Publisher
	rec     Recorder
	cfg     DispatchConfig
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time

	wg sync.WaitGroup
}

// NewDispatcher vytvoří dispatcher. pub i rec mohou být nil.
func NewDispatcher(pub Publisher, rec Recorder, cfg DispatchConfig, logger *slog.Logger, metrics *Metrics) *Dispatcher {
	return &Dispatcher{
		pub:     pub,
		rec:     rec,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Correct provede korekci barvy pro LED čip podle profilu.
func (d *Dispatcher) Correct(c ledcolor.RGB) ledcolor.RGB {
	return d.cfg.Correction.Apply(c)
}

// Transmit zkoriguje tři navzorkované barvy (právě jednou), sestaví payload
// a spustí obě cesty. Vrací se hned, jak jsou obě cesty spuštěné.
func (d *Dispatcher) Transmit(raw [3]ledcolor.RGB, connected bool) (Transmission, error) {
	var blocks [3]any
	for i, c := range raw {
		corrected := d.Correct(c)
		if d.cfg.Mode == profile.ModeHSV {
			blocks[i] = corrected.HSV()
		} else {
			blocks[i] = corrected
		}
	}

	payload := Payload{
		Block1:    blocks[0],
		Block2:    blocks[1],
		Block3:    blocks[2],
		Timestamp: d.now().UTC().Format(isoLayout),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Transmission{}, fmt.Errorf("serializace payloadu: %w", err)
	}
	colorList, err := json.Marshal(blocks)
	if err != nil {
		return Transmission{}, fmt.Errorf("serializace barev: %w", err)
	}

	tx := Transmission{Payload: payload, Body: body}
	tx.Published = d.publish(body, connected)
	tx.Recorded = d.persist(store.Record{Color: string(colorList), Timestamp: payload.Timestamp})
	return tx, nil
}

// TransmitName pošle holé jméno barvy (red, green, blue) jako v první verzi ovladače.
func (d *Dispatcher) TransmitName(name string, connected bool) (Transmission, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !legacyNames[name] {
		return Transmission{}, fmt.Errorf("%w: %q", ErrUnknownColor, name)
	}

	ts := d.now().UTC().Format(isoLayout)
	tx := Transmission{Body: []byte(name)}
	tx.Published = d.publish(tx.Body, connected)
	tx.Recorded = d.persist(store.Record{Color: name, Timestamp: ts})
	return tx, nil
}

// Wait počká na dokončení rozběhnutých publish/insert operací.
// Nic neruší, používá se při vypínání.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) publish(body []byte, connected bool) bool {
	if d.pub == nil || !connected {
		d.logger.Info("Broker není připojen, barvy se neodesílají", "topic", d.cfg.Topic)
		d.metrics.edge("publish", "skipped")
		return false
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		// QoS 0, retained = false
		token := d.pub.Publish(d.cfg.Topic, 0, false, body)
		if !token.WaitTimeout(publishTimeout) {
			d.logger.Error("Publikace do MQTT nedokončena", "topic", d.cfg.Topic, "timeout", publishTimeout)
			d.metrics.edge("publish", "failed")
			return
		}
		if err := token.Error(); err != nil {
			d.logger.Error("Chyba při publikaci do MQTT", "topic", d.cfg.Topic, "error", err)
			d.metrics.edge("publish", "failed")
			return
		}
		d.logger.Debug("Barvy odeslány", "topic", d.cfg.Topic, "payload", string(body))
		d.metrics.edge("publish", "sent")
	}()
	return true
}

func (d *Dispatcher) persist(rec store.Record) bool {
	if d.rec == nil {
		d.metrics.edge("persist", "disabled")
		return false
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx := context.Background()
		if d.cfg.InsertTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.cfg.InsertTimeout)
			defer cancel()
		}

		if err := d.rec.Insert(ctx, rec); err != nil {
			d.logger.Error("Chyba při ukládání barvy", store.ErrorAttrs(err)...)
			d.metrics.edge("persist", "failed")
			return
		}
		d.logger.Debug("Barva uložena", "color", rec.Color)
		d.metrics.edge("persist", "stored")
	}()
	return true
}
