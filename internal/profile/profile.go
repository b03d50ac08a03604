// Package profile načítá nastavení barevné pipeline (šum + korekce + formát payloadu)
// z YAML souboru. Připojení k brokeru a databázím se řeší v ENV (config.go služeb).
package profile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/summmmi/socket.ooo/internal/ledcolor"
	"github.com/summmmi/socket.ooo/internal/noise"
)

// PayloadMode určuje, v jakém barevném prostoru posíláme bloky na zařízení.
type PayloadMode string

const (
	ModeRGB PayloadMode = "rgb"
	ModeHSV PayloadMode = "hsv"
)

// Profile je celá konfigurace pipeline: jak se barvy vybírají, jak se
// korigují a jak se posílají.
type Profile struct {
	Noise      noise.Profile       `yaml:"noise"`
	Correction ledcolor.Correction `yaml:"correction"`
	Payload    PayloadMode         `yaml:"payload_mode"`
}

// Default vrací profil bez souboru.
func Default() *Profile {
	return &Profile{
		Noise:      noise.DefaultProfile(),
		Correction: ledcolor.DefaultCorrection(),
		Payload:    ModeRGB,
	}
}

// Load načte profil ze souboru. Prázdná cesta znamená výchozí profil.
// YAML se dekóduje přes výchozí profil: klíč, který v souboru chybí,
// si nechá výchozí hodnotu, uvedená nula zůstane nulou.
func Load(path string) (*Profile, error) {
	if path == "" {
		return Default(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	p := Default()
	if err := yaml.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}

	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Profile) validate() error {
	switch p.Payload {
	case ModeRGB, ModeHSV:
	default:
		return fmt.Errorf("payload_mode must be %q or %q, got %q", ModeRGB, ModeHSV, p.Payload)
	}
	if p.Noise.Octaves < 1 || p.Noise.Octaves > 8 {
		return fmt.Errorf("noise.octaves must be between 1 and 8, got %d", p.Noise.Octaves)
	}
	if p.Noise.TimeScale < 0 {
		return fmt.Errorf("noise.time_scale must not be negative")
	}
	if p.Correction.Gamma <= 0 {
		return fmt.Errorf("correction.gamma must be positive, got %g", p.Correction.Gamma)
	}
	if p.Correction.Ceiling < 0 || p.Correction.Ceiling > 1 {
		return fmt.Errorf("correction.ceiling must be between 0 and 1, got %g", p.Correction.Ceiling)
	}
	if p.Correction.SecondaryMinSum >= p.Correction.SecondaryMaxSum {
		return fmt.Errorf("correction.secondary_min_sum must be below secondary_max_sum")
	}
	for name, c := range map[string]string{"noise.color1": p.Noise.Color1, "noise.color2": p.Noise.Color2} {
		if _, ok := ledcolor.Lookup(c); !ok {
			return fmt.Errorf("%s: unrecognized color %q", name, c)
		}
	}
	return nil
}
