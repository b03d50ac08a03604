package noise

import (
	"image"
	"image/color"

	"github.com/summmmi/socket.ooo/internal/ledcolor"
)

// Render vykreslí pole do obrázku w x h. Slouží pro náhled (preview.png).
// Pixely se počítají vždy v uzavřeném tvaru, připojený PixelReader se ignoruje.
func (s *Sampler) Render(w, h int, off Offset, t float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for py := 0; py < h; py++ {
		y := (float64(py) + 0.5) / float64(h)
		for px := 0; px < w; px++ {
			x := (float64(px) + 0.5) / float64(w)
			c := ledcolor.Lerp(s.base1, s.base2, s.Value(x, y, off, t))
			img.SetRGBA(px, py, color.RGBA{R: c.R, G: c.G, B: c.B, A: 255})
		}
	}
	return img
}

// ImageReader čte pixely z libovolného image.Image (např. snímek z renderu).
type ImageReader struct {
	Img image.Image
}

// PixelAt převede souřadnice 0-1 na pixel. Mimo obrázek vrací ok == false.
func (r ImageReader) PixelAt(x, y float64) (ledcolor.RGB, bool) {
	if r.Img == nil || x < 0 || x > 1 || y < 0 || y > 1 {
		return ledcolor.RGB{}, false
	}
	b := r.Img.Bounds()
	if b.Empty() {
		return ledcolor.RGB{}, false
	}
	px := b.Min.X + min(int(x*float64(b.Dx())), b.Dx()-1)
	py := b.Min.Y + min(int(y*float64(b.Dy())), b.Dy()-1)

	c := color.RGBAModel.Convert(r.Img.At(px, py)).(color.RGBA)
	return ledcolor.RGB{R: c.R, G: c.G, B: c.B}, true
}
