package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// UI může běžet na jiném portu (vývojový server).
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client je jedno websocket spojení UI.
type Client struct {
	ID   string
	Send chan []byte
}

type directMsg struct {
	client *Client
	data   []byte
}

// Hub rozesílá snímky stavu všem připojeným klientům.
// Broadcast nikdy neblokuje smyčku ovladače: drží se jen poslední stav
// a Run ho rozešle, jakmile může. Mezilehlé snímky se zahodí.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	direct     chan directMsg
	notify     chan struct{}
	done       chan struct{}

	mu     sync.Mutex
	latest []byte

	logger *slog.Logger
}

// NewHub vytvoří Hub. Smyčku je třeba spustit přes Run.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan directMsg),
		notify:     make(chan struct{}, 1),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Broadcast uloží snímek a probudí Run.
func (h *Hub) Broadcast(s State) {
	data, err := json.Marshal(Message{Type: MessageTypeState, Data: s})
	if err != nil {
		h.logger.Error("Chyba serializace stavu", "error", err)
		return
	}

	h.mu.Lock()
	h.latest = data
	h.mu.Unlock()

	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// Run je smyčka Hubu. Po zrušení ctx zavře všechna klientská spojení.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.logger.Info("Hub zastaven")
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Info("Websocket klient připojen", "client", client.ID, "total", len(h.clients))
			// Nový klient hned dostane aktuální stav.
			if data := h.snapshot(); data != nil {
				h.send(client, data)
			}

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.logger.Info("Websocket klient odpojen", "client", client.ID, "total", len(h.clients))
			}

		case m := <-h.direct:
			if h.clients[m.client] {
				h.send(m.client, m.data)
			}

		case <-h.notify:
			data := h.snapshot()
			if data == nil {
				continue
			}
			for client := range h.clients {
				h.send(client, data)
			}
		}
	}
}

// Register přidá klienta. Vrací false, pokud Hub už neběží.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister odebere klienta.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Reply pošle zprávu jen jednomu klientovi (odpověď na jeho požadavek).
func (h *Hub) Reply(client *Client, data []byte) {
	select {
	case h.direct <- directMsg{client: client, data: data}:
	case <-h.done:
	}
}

func (h *Hub) snapshot() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

// send volá jen Run. Pomalý klient s plným bufferem je odpojen.
func (h *Hub) send(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		close(client.Send)
		delete(h.clients, client)
		h.logger.Warn("Websocket klient nestíhá, odpojuji", "client", client.ID)
	}
}

// StreamHandler obsluhuje /ws: stav ven, ukazatel a odeslání dovnitř.
type StreamHandler struct {
	hub    *Hub
	ctrl   *Controller
	logger *slog.Logger
}

func NewStreamHandler(hub *Hub, ctrl *Controller, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{hub: hub, ctrl: ctrl, logger: logger}
}

// ServeHTTP: GET /ws
func (s *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Websocket upgrade selhal", "error", err)
		return
	}

	client := &Client{
		ID:   uuid.New().String(),
		Send: make(chan []byte, sendBuffer),
	}
	if !s.hub.Register(client) {
		conn.Close()
		return
	}

	go s.writePump(conn, client)
	go s.readPump(conn, client)
}

func (s *StreamHandler) readPump(conn *websocket.Conn, client *Client) {
	defer func() {
		s.hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("Websocket chyba", "client", client.ID, "error", err)
			}
			return
		}

		reply, err := s.handle(data)
		if errors.Is(err, ErrStopped) {
			return
		}
		if err != nil {
			reply = &Message{Type: MessageTypeError, Data: err.Error()}
		}
		if reply == nil {
			continue
		}

		out, err := json.Marshal(reply)
		if err != nil {
			s.logger.Error("Chyba serializace odpovědi", "error", err)
			continue
		}
		s.hub.Reply(client, out)
	}
}

// handle provede jednu příchozí zprávu. Pohyb ukazatele nemá odpověď,
// nový stav přijde přes Broadcast.
func (s *StreamHandler) handle(data []byte) (*Message, error) {
	var msg struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	switch msg.Type {
	case MessageTypePointerDown, MessageTypePointerMove:
		var p PointerInput
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return nil, err
		}
		if msg.Type == MessageTypePointerDown {
			return nil, s.ctrl.PointerDown(ctx, p)
		}
		return nil, s.ctrl.PointerMove(ctx, p)

	case MessageTypePointerUp:
		return nil, s.ctrl.PointerUp(ctx)

	case MessageTypePan:
		var in PanInput
		if err := json.Unmarshal(msg.Data, &in); err != nil {
			return nil, err
		}
		return nil, s.ctrl.Pan(ctx, in)

	case MessageTypeTransmit:
		tx, err := s.ctrl.Transmit(ctx)
		if err != nil {
			return nil, err
		}
		return &Message{Type: MessageTypeTransmitted, Data: tx}, nil

	case MessageTypeTransmitName:
		var in NameInput
		if err := json.Unmarshal(msg.Data, &in); err != nil {
			return nil, err
		}
		tx, err := s.ctrl.TransmitName(ctx, in.Name)
		if err != nil {
			return nil, err
		}
		return &Message{Type: MessageTypeTransmitted, Data: tx}, nil

	default:
		s.logger.Warn("Neznámý typ zprávy", "type", msg.Type)
		return nil, nil
	}
}

func (s *StreamHandler) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
