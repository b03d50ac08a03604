package main

// ColorDTO je jeden řádek led_colors v odpovědi API.
// Color je buď holé jméno (legacy), nebo JSON pole tří barev.
type ColorDTO struct {
	ID        int64  `json:"id,omitempty"`
	Color     string `json:"color"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse je tělo odpovědi při chybě.
type ErrorResponse struct {
	Error string `json:"error"`
}
