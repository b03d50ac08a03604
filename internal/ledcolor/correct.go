package ledcolor

import "math"

// Correction popisuje korekci barvy pro konkrétní čip LED pásku.
// WS2812 vykresluje smíšené barvy "rozmazaně" (kanály do sebe prosvítají),
// proto barvu před odesláním tlačíme k sytým primárním a sekundárním odstínům.
//
// Klíče chybějící v YAML profilu si nechají hodnotu z DefaultCorrection.
type Correction struct {
	// Krok 1: zvýraznění dominantního kanálu.
	DominantThreshold float64 `yaml:"dominant_threshold"`
	DominantBoost     float64 `yaml:"dominant_boost"`
	OtherScale        float64 `yaml:"other_scale"`

	// Krok 2: korekce sekundárních odstínů (žlutá, purpurová, azurová).
	SecondaryMinSum   float64 `yaml:"secondary_min_sum"`
	SecondaryMaxSum   float64 `yaml:"secondary_max_sum"`
	SecondaryChannel  float64 `yaml:"secondary_channel"`
	SecondaryBoost    float64 `yaml:"secondary_boost"`
	SecondarySuppress float64 `yaml:"secondary_suppress"`

	// Krok 3 a 4: gama a strop jasu.
	Gamma   float64 `yaml:"gamma"`
	Ceiling float64 `yaml:"ceiling"`
}

// DefaultCorrection vrací profil naladěný na WS2812 pásek.
func DefaultCorrection() Correction {
	return Correction{
		DominantThreshold: 0.3,
		DominantBoost:     2.5,
		OtherScale:        0.1,
		SecondaryMinSum:   0.6,
		SecondaryMaxSum:   1.5,
		SecondaryChannel:  0.2,
		SecondaryBoost:    1.8,
		SecondarySuppress: 0.05,
		Gamma:             1.8,
		Ceiling:           0.9,
	}
}

// Correct použije výchozí profil.
func Correct(c RGB) RGB {
	return DefaultCorrection().Apply(c)
}

// Apply provede korekci. Transformace je ztrátová a nevratná,
// na jeden vzorek se smí použít právě jednou.
func (p Correction) Apply(c RGB) RGB {
	ch := [3]float64{float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255}

	// 1. Dominantní kanál. Při shodě vyhrává červená, pak zelená.
	if math.Max(ch[0], math.Max(ch[1], ch[2])) > p.DominantThreshold {
		dom := 0
		if ch[1] > ch[dom] {
			dom = 1
		}
		if ch[2] > ch[dom] {
			dom = 2
		}
		for i := range ch {
			if i == dom {
				ch[i] = math.Min(ch[i]*p.DominantBoost, 1)
			} else {
				ch[i] *= p.OtherScale
			}
		}
	}

	// 2. Sekundární odstíny: dva kanály nad prahem, třetí pod ním.
	sum := ch[0] + ch[1] + ch[2]
	if sum > p.SecondaryMinSum && sum < p.SecondaryMaxSum {
		above, below, weak := 0, 0, -1
		for i, v := range ch {
			switch {
			case v > p.SecondaryChannel:
				above++
			case v < p.SecondaryChannel:
				below++
				weak = i
			}
		}
		if above == 2 && below == 1 {
			for i := range ch {
				if i == weak {
					ch[i] *= p.SecondarySuppress
				} else {
					ch[i] = math.Min(ch[i]*p.SecondaryBoost, 1)
				}
			}
		}
	}

	// 3. Gama, 4. strop jasu, 5. zpět na 0-255.
	var out [3]uint8
	for i, v := range ch {
		v = math.Pow(math.Max(v, 0), 1/p.Gamma)
		v = math.Min(v*p.Ceiling, 1)
		out[i] = uint8(math.Round(math.Max(v, 0) * 255))
	}
	return RGB{R: out[0], G: out[1], B: out[2]}
}
