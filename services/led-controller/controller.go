package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/summmmi/socket.ooo/internal/ledcolor"
	"github.com/summmmi/socket.ooo/internal/noise"
)

// ErrStopped vrací Controller po ukončení smyčky.
var ErrStopped = errors.New("controller stopped")

// StateSink dostává každý změněný snímek stavu (websocket Hub).
type StateSink interface {
	Broadcast(State)
}

// loopState vlastní výhradně goroutina Run, proto nepotřebuje zámek.
type loopState struct {
	offset   noise.Offset
	dragging bool
	pointer  PointerInput
	t        float64
	blocks   [3]ledcolor.RGB
	conn     ConnState
}

// Controller je jediná smyčka událostí ovladače. Ukazatel, odesílání,
// dotazy na stav, události brokeru i periodické vzorkování se zpracují
// postupně jedno po druhém v Run.
type Controller struct {
	sampler    *noise.Sampler
	dispatcher *Dispatcher
	sink       StateSink
	logger     *slog.Logger
	metrics    *Metrics
	interval   time.Duration

	cmds    chan func(*loopState)
	events  chan ConnEvent
	stopped chan struct{}
}

// NewController vytvoří ovladač. sink může být nil.
func NewController(sampler *noise.Sampler, dispatcher *Dispatcher, sink StateSink, interval time.Duration, logger *slog.Logger, metrics *Metrics) *Controller {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &Controller{
		sampler:    sampler,
		dispatcher: dispatcher,
		sink:       sink,
		logger:     logger,
		metrics:    metrics,
		interval:   interval,
		cmds:       make(chan func(*loopState)),
		events:     make(chan ConnEvent, 16),
		stopped:    make(chan struct{}),
	}
}

// Run je smyčka událostí. Skončí zrušením ctx: zastaví vzorkování,
// rozběhnuté publish/insert operace dispatcheru nechá doběhnout.
func (c *Controller) Run(ctx context.Context) {
	defer close(c.stopped)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	start := time.Now()
	st := &loopState{}
	st.blocks = c.sampler.Blocks(st.offset, 0)
	c.broadcast(st)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Smyčka ovladače ukončena")
			return

		case <-ticker.C:
			if ts := c.sampler.Profile().TimeScale; ts > 0 {
				st.t = time.Since(start).Seconds() * ts
			}
			c.resample(st)

		case fn := <-c.cmds:
			fn(st)

		case ev := <-c.events:
			next := ReduceConn(st.conn, ev)
			if next != st.conn {
				c.logger.Info("Stav spojení s brokerem", "from", st.conn.String(), "to", next.String(), "event", ev.String())
				st.conn = next
				c.metrics.connection.Set(float64(next))
				c.broadcast(st)
			}
		}
	}
}

// ConnEvent předá událost z MQTT klienta do smyčky.
func (c *Controller) ConnEvent(ev ConnEvent) {
	select {
	case c.events <- ev:
	case <-c.stopped:
	}
}

// PointerDown začne tažení.
func (c *Controller) PointerDown(ctx context.Context, p PointerInput) error {
	return c.do(ctx, func(st *loopState) {
		st.dragging = true
		st.pointer = p
		c.broadcast(st)
	})
}

// PointerMove posune offset o pohyb ukazatele, ale jen během tažení.
func (c *Controller) PointerMove(ctx context.Context, p PointerInput) error {
	return c.do(ctx, func(st *loopState) {
		if !st.dragging {
			return
		}
		st.offset.X += p.X - st.pointer.X
		st.offset.Y += p.Y - st.pointer.Y
		st.pointer = p
	})
}

// PointerUp ukončí tažení.
func (c *Controller) PointerUp(ctx context.Context) error {
	return c.do(ctx, func(st *loopState) {
		if st.dragging {
			st.dragging = false
			c.broadcast(st)
		}
	})
}

// Pan posune offset přímo (bez tažení).
func (c *Controller) Pan(ctx context.Context, in PanInput) error {
	return c.do(ctx, func(st *loopState) {
		st.offset.X += in.DX
		st.offset.Y += in.DY
	})
}

// Transmit odešle naposledy navzorkované barvy.
func (c *Controller) Transmit(ctx context.Context) (Transmission, error) {
	var (
		tx  Transmission
		err error
	)
	doErr := c.do(ctx, func(st *loopState) {
		tx, err = c.dispatcher.Transmit(st.blocks, st.conn == Connected)
	})
	if doErr != nil {
		return Transmission{}, doErr
	}
	return tx, err
}

// TransmitName odešle legacy jméno barvy.
func (c *Controller) TransmitName(ctx context.Context, name string) (Transmission, error) {
	var (
		tx  Transmission
		err error
	)
	doErr := c.do(ctx, func(st *loopState) {
		tx, err = c.dispatcher.TransmitName(name, st.conn == Connected)
	})
	if doErr != nil {
		return Transmission{}, doErr
	}
	return tx, err
}

// State vrátí aktuální snímek stavu.
func (c *Controller) State(ctx context.Context) (State, error) {
	var s State
	err := c.do(ctx, func(st *loopState) {
		s = c.snapshot(st)
	})
	return s, err
}

func (c *Controller) resample(st *loopState) {
	c.metrics.samples.Inc()
	blocks := c.sampler.Blocks(st.offset, st.t)
	if blocks == st.blocks {
		return
	}
	st.blocks = blocks
	c.broadcast(st)
}

func (c *Controller) snapshot(st *loopState) State {
	s := State{
		Offset:     st.offset,
		Dragging:   st.dragging,
		Time:       st.t,
		Raw:        st.blocks,
		Connection: st.conn.String(),
	}
	for i, b := range st.blocks {
		s.Colors[i] = ledcolor.RGBToHex(b)
		s.Corrected[i] = c.dispatcher.Correct(b)
	}
	return s
}

func (c *Controller) broadcast(st *loopState) {
	if c.sink != nil {
		c.sink.Broadcast(c.snapshot(st))
	}
}

// do pošle příkaz do smyčky a počká na jeho provedení.
func (c *Controller) do(ctx context.Context, fn func(*loopState)) error {
	done := make(chan struct{})
	cmd := func(st *loopState) {
		defer close(done)
		fn(st)
	}

	select {
	case c.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		return ErrStopped
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
