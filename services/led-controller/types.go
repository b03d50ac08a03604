package main

import (
	"github.com/summmmi/socket.ooo/internal/ledcolor"
	"github.com/summmmi/socket.ooo/internal/noise"
)

// Payload je JSON zpráva pro Arduino (topic arduino/led/color).
// Bloky jsou ledcolor.RGB nebo ledcolor.HSV podle payload_mode v profilu.
type Payload struct {
	Block1    any    `json:"block1"`
	Block2    any    `json:"block2"`
	Block3    any    `json:"block3"`
	Timestamp string `json:"timestamp"`
}

// Transmission je výsledek jednoho odeslání: payload a přesně odeslané bajty.
type Transmission struct {
	Payload Payload `json:"payload"`
	Body    []byte  `json:"-"`
	// Published je false, pokud broker nebyl připojen a zpráva se vůbec neodeslala.
	Published bool `json:"published"`
	// Recorded je false, pokud není nastavená databáze.
	Recorded bool `json:"recorded"`
}

// State je snímek stavu ovladače pro API a websocket.
type State struct {
	Offset     noise.Offset    `json:"offset"`
	Dragging   bool            `json:"dragging"`
	Time       float64         `json:"time"`
	Colors     [3]string       `json:"colors"` // hex pro UI
	Raw        [3]ledcolor.RGB `json:"raw"`
	Corrected  [3]ledcolor.RGB `json:"corrected"`
	Connection string          `json:"connection"`
}

// Message je obálka websocket protokolu: {"type": ..., "data": ...}.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Typy websocket zpráv.
const (
	MessageTypeState        = "state"
	MessageTypeTransmitted  = "transmitted"
	MessageTypeError        = "error"
	MessageTypePointerDown  = "pointer_down"
	MessageTypePointerMove  = "pointer_move"
	MessageTypePointerUp    = "pointer_up"
	MessageTypePan          = "pan"
	MessageTypeTransmit     = "transmit"
	MessageTypeTransmitName = "transmit_name"
)

// PointerInput je poloha ukazatele v pixelech obrazovky.
type PointerInput struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PanInput je přímý posun offsetu.
type PanInput struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// NameInput je legacy požadavek na pojmenovanou barvu.
type NameInput struct {
	Name string `json:"name"`
}
