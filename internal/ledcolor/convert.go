// Package ledcolor obsahuje převody barevných prostorů a korekci barev
// pro LED pásek (WS2812). Všechny funkce jsou čisté, bez stavu a bez I/O.
package ledcolor

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// RGB je barva s 8 bity na kanál. Tak ji očekává firmware na Arduinu.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// HSV je barva v odstínu (0-360) a sytosti/jasu ve škále 0-255.
type HSV struct {
	H int `json:"h"`
	S int `json:"s"`
	V int `json:"v"`
}

// White je fallback pro všechny nečitelné vstupy.
var White = RGB{R: 255, G: 255, B: 255}

var (
	hexPattern = regexp.MustCompile(`(?i)^#?([0-9a-f]{2})([0-9a-f]{2})([0-9a-f]{2})$`)
	rgbPattern = regexp.MustCompile(`(?i)^rgba?\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})\s*(?:,\s*[\d.]+\s*)?\)$`)
	hslPattern = regexp.MustCompile(`(?i)^hsl\(\s*(\d+(?:\.\d+)?)\s*,\s*(\d+(?:\.\d+)?)%\s*,\s*(\d+(?:\.\d+)?)%\s*\)$`)
)

// Pojmenované barvy z první verze ovladače (tlačítka Red/Green/Blue).
var namedColors = map[string]RGB{
	"red":   {R: 255},
	"green": {G: 255},
	"blue":  {B: 255},
	"white": White,
	"black": {},
}

// HSLToRGB převede HSL (h 0-360, s a l 0-100) na RGB.
// Odstín se zabalí do rozsahu 0-360, sytost a světlost se oříznou na 0-100.
func HSLToRGB(h, s, l float64) RGB {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	s = clamp(s, 0, 100) / 100
	l = clamp(l, 0, 100) / 100

	// colorful.Hsl sám řeší achromatický případ (s == 0 -> r = g = b = l).
	return FromColorful(colorful.Hsl(h, s, l))
}

// HexToRGB rozparsuje "#RRGGBB". Při neplatném vstupu vrací bílou, ne chybu.
func HexToRGB(hex string) RGB {
	if !hexPattern.MatchString(strings.TrimSpace(hex)) {
		return White
	}
	hex = strings.TrimSpace(hex)
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	c, err := colorful.Hex(strings.ToLower(hex))
	if err != nil {
		return White
	}
	return FromColorful(c)
}

// RGBToHex vrací "#rrggbb" (malá písmena).
func RGBToHex(c RGB) string {
	return c.Colorful().Hex()
}

// RGBToHSV rozloží barvu podle maxima a minima kanálů.
// max == 0 znamená s = 0, max == min znamená h = 0.
func RGBToHSV(c RGB) HSV {
	h, s, v := c.Colorful().Hsv()
	return HSV{
		H: int(math.Round(h)),
		S: int(math.Round(s * 255)),
		V: int(math.Round(v * 255)),
	}
}

// Parse přečte barvu tak, jak ji ukládá UI nebo databáze:
// "#rrggbb", "rgb(r, g, b)", "hsl(h, s%, l%)" nebo jméno ("red", ...).
// Cokoliv jiného skončí jako neprůhledná bílá.
func Parse(s string) RGB {
	if c, ok := Lookup(s); ok {
		return c
	}
	return White
}

// Lookup je Parse bez fallbacku: ok == false znamená nečitelný vstup.
func Lookup(s string) (RGB, bool) {
	s = strings.TrimSpace(s)

	if c, ok := namedColors[strings.ToLower(s)]; ok {
		return c, true
	}
	if hexPattern.MatchString(s) {
		return HexToRGB(s), true
	}
	if m := rgbPattern.FindStringSubmatch(s); m != nil {
		var ch [3]uint8
		for i := range ch {
			v, err := strconv.Atoi(m[i+1])
			if err != nil || v > 255 {
				return RGB{}, false
			}
			ch[i] = uint8(v)
		}
		return RGB{R: ch[0], G: ch[1], B: ch[2]}, true
	}
	if m := hslPattern.FindStringSubmatch(s); m != nil {
		h, _ := strconv.ParseFloat(m[1], 64)
		sat, _ := strconv.ParseFloat(m[2], 64)
		l, _ := strconv.ParseFloat(m[3], 64)
		return HSLToRGB(h, sat, l), true
	}
	return RGB{}, false
}

// Lerp lineárně smíchá dvě barvy: round(a*(1-t) + b*t) po kanálech.
func Lerp(a, b RGB, t float64) RGB {
	t = clamp(t, 0, 1)
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x)*(1-t) + float64(y)*t))
	}
	return RGB{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B)}
}

// Colorful vrací barvu v reprezentaci knihovny go-colorful (kanály 0-1).
func (c RGB) Colorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// FromColorful převede barvu z go-colorful zpět na 8 bitů na kanál.
func FromColorful(c colorful.Color) RGB {
	r, g, b := c.Clamped().RGB255()
	return RGB{R: r, G: g, B: b}
}

// HSV je zkratka pro RGBToHSV.
func (c RGB) HSV() HSV { return RGBToHSV(c) }

func (c RGB) String() string { return RGBToHex(c) }

func (c HSV) String() string { return fmt.Sprintf("hsv(%d, %d, %d)", c.H, c.S, c.V) }

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
