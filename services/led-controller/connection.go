package main

// ConnState je stav spojení s MQTT brokerem.
// Mění se pouze přes ReduceConn, nikdy přímo z callbacků paho klienta.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ConnEvent je událost z MQTT klienta.
type ConnEvent int

const (
	EventAttempt      ConnEvent = iota // pokus o spojení (SetConnectionAttemptHandler)
	EventReconnecting                  // automatický reconnect (SetReconnectingHandler)
	EventConnected                     // handshake OK (SetOnConnectHandler)
	EventLost                          // spojení spadlo (SetConnectionLostHandler)
	EventError                         // Connect token vrátil chybu
	EventClosed                        // vlastní Disconnect při vypínání
)

func (e ConnEvent) String() string {
	switch e {
	case EventAttempt:
		return "attempt"
	case EventReconnecting:
		return "reconnecting"
	case EventConnected:
		return "connected"
	case EventLost:
		return "lost"
	case EventError:
		return "error"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ReduceConn vrací nový stav spojení po události.
//
//	disconnected --attempt/reconnecting--> connecting --connected--> connected
//	* --lost/error/closed--> disconnected
//
// Pokus o spojení nad už navázaným spojením stav nemění.
func ReduceConn(s ConnState, ev ConnEvent) ConnState {
	switch ev {
	case EventAttempt, EventReconnecting:
		if s == Connected {
			return Connected
		}
		return Connecting
	case EventConnected:
		return Connected
	case EventLost, EventError, EventClosed:
		return Disconnected
	default:
		return s
	}
}
