// Package noise generuje plynulé, deterministické pole šumu, ze kterého
// se vybírají barvy pro tři segmenty LED pásku.
package noise

import (
	"math"

	"github.com/ojrac/opensimplex-go"

	"github.com/summmmi/socket.ooo/internal/ledcolor"
)

// Offset je nasčítaná vzdálenost tažení ukazatelem. Nemá žádné meze.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point je poloha v jednotkovém čtverci (0-1, y roste směrem dolů).
type Point struct {
	X float64
	Y float64
}

// Positions jsou pevná místa vzorkování: horní, prostřední a spodní segment pásku.
var Positions = [3]Point{{0.5, 0.2}, {0.5, 0.5}, {0.5, 0.8}}

// Profile nastavuje vzhled pole. YAML profil se dekóduje přes DefaultProfile.
type Profile struct {
	Seed int64 `yaml:"seed"`

	// Základní barvy, mezi kterými se míchá (hex, rgb() nebo hsl()).
	Color1 string `yaml:"color1"`
	Color2 string `yaml:"color2"`

	// Drift převádí offset (pixely tažení) na posun v poli šumu.
	Drift float64 `yaml:"drift"`
	// ScaleWobble je amplituda sinusového "dýchání" měřítka podle offsetu.
	ScaleWobble float64 `yaml:"scale_wobble"`
	Octaves     int     `yaml:"octaves"`
	Persistence float64 `yaml:"persistence"`
	Warp        float64 `yaml:"warp"`

	// TimeScale > 0 rozpohybuje pole i bez tažení (sekundy * TimeScale).
	TimeScale float64 `yaml:"time_scale"`
}

// DefaultProfile odpovídá pozadí z webového ovladače: purpurová a azurová.
func DefaultProfile() Profile {
	return Profile{
		Seed:        1337,
		Color1:      "hsl(300, 100%, 50%)",
		Color2:      "hsl(180, 100%, 50%)",
		Drift:       0.0002,
		ScaleWobble: 0.2,
		Octaves:     4,
		Persistence: 0.5,
		Warp:        0.08,
	}
}

// PixelReader umí vrátit skutečně vykreslený pixel. Pokud vykreslování
// není k dispozici, vrací ok == false a sampler použije výpočet v uzavřeném tvaru.
type PixelReader interface {
	PixelAt(x, y float64) (ledcolor.RGB, bool)
}

// Sampler vybírá barvy z pole šumu. Nemá měnitelný stav kromě připojeného
// PixelReaderu, takže stejné argumenty dávají vždy stejný výsledek.
type Sampler struct {
	noise   opensimplex.Noise
	profile Profile
	base1   ledcolor.RGB
	base2   ledcolor.RGB
	reader  PixelReader
}

// NewSampler vytvoří sampler s pevným seedem z profilu.
func NewSampler(p Profile) *Sampler {
	if p.Octaves < 1 {
		p.Octaves = 1
	}
	return &Sampler{
		noise:   opensimplex.New(p.Seed),
		profile: p,
		base1:   ledcolor.Parse(p.Color1),
		base2:   ledcolor.Parse(p.Color2),
	}
}

// SetReader připojí (nebo s nil odpojí) backend pro čtení pixelů.
func (s *Sampler) SetReader(r PixelReader) {
	s.reader = r
}

// Profile vrací profil, se kterým sampler pracuje.
func (s *Sampler) Profile() Profile { return s.profile }

// Bases vrací obě základní barvy převedené na RGB.
func (s *Sampler) Bases() (ledcolor.RGB, ledcolor.RGB) { return s.base1, s.base2 }

// Value vrací skalár 0-1 pro bod (x, y) při daném offsetu a čase.
// Dvě fraktální OpenSimplex pole s měřítkem kolísajícím podle offsetu
// se sečtou a přemapují do 0-1.
func (s *Sampler) Value(x, y float64, off Offset, t float64) float64 {
	p := s.profile

	u := x + off.X*p.Drift
	v := y + off.Y*p.Drift

	scale1 := 0.8 + math.Sin(off.X*0.003)*p.ScaleWobble
	scale2 := 0.8 + math.Cos(off.Y*0.003)*p.ScaleWobble

	// Společné zkroucení prostoru (domain warping).
	wu := s.fbm(u, v, t*0.1, 3) * p.Warp
	wv := s.fbm(u+5.2, v+1.3, t*0.1, 3) * p.Warp

	n1 := s.fbm(u*scale1+wu, v*scale1+wv, t*0.05, p.Octaves)
	n2 := s.fbm(u*scale2+wu+17.3, v*scale2+wv+9.1, t*0.04, p.Octaves)

	return math.Max(0, math.Min(1, 0.5+(n1+n2)/4))
}

// ColorAt vrací barvu v bodě. S připojeným PixelReaderem čte vykreslený
// pixel, jinak smíchá základní barvy poměrem Value.
func (s *Sampler) ColorAt(x, y float64, off Offset, t float64) ledcolor.RGB {
	if s.reader != nil {
		if c, ok := s.reader.PixelAt(x, y); ok {
			return c
		}
	}
	return ledcolor.Lerp(s.base1, s.base2, s.Value(x, y, off, t))
}

// Blocks navzorkuje tři pevné pozice (horní, prostřední, spodní segment).
func (s *Sampler) Blocks(off Offset, t float64) [3]ledcolor.RGB {
	var out [3]ledcolor.RGB
	for i, pos := range Positions {
		out[i] = s.ColorAt(pos.X, pos.Y, off, t)
	}
	return out
}

func (s *Sampler) fbm(x, y, z float64, octaves int) float64 {
	value := 0.0
	amplitude := 0.5
	frequency := 1.0
	for i := 0; i < octaves; i++ {
		value += amplitude * s.noise.Eval3(x*frequency, y*frequency, z)
		frequency *= 2
		amplitude *= s.profile.Persistence
	}
	return value
}
