package analytics

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// The parsed font is immutable and shared; faces carry glyph caches and are
// created per canvas.
var (
	fontOnce sync.Once
	fontTTF  *truetype.Font
	fontErr  error
)

func loadFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		fontTTF, fontErr = truetype.Parse(goregular.TTF)
	})
	return fontTTF, fontErr
}

// canvas is a drawing context owned by a single render call.
type canvas struct {
	dc    *gg.Context
	font  *truetype.Font
	faces map[float64]font.Face
}

func newCanvas(width, height int) (*canvas, error) {
	f, err := loadFont()
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	dc := gg.NewContextForRGBA(img)
	dc.SetRGB(1, 1, 1)
	dc.DrawRectangle(0, 0, float64(width), float64(height))
	dc.Fill()

	return &canvas{dc: dc, font: f, faces: make(map[float64]font.Face)}, nil
}

func (c *canvas) setFontSize(size float64) {
	face, ok := c.faces[size]
	if !ok {
		face = truetype.NewFace(c.font, &truetype.Options{Size: size})
		c.faces[size] = face
	}
	c.dc.SetFontFace(face)
}

// close releases the canvas' font faces. Safe to call more than once.
func (c *canvas) close() {
	for size, face := range c.faces {
		_ = face.Close()
		delete(c.faces, size)
	}
}

// encode renders the canvas as PNG and returns it base64-encoded.
func (c *canvas) encode() (string, error) {
	var buf bytes.Buffer
	if err := c.dc.EncodePNG(&buf); err != nil {
		return "", fmt.Errorf("failed to encode png: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (c *canvas) drawStringCentered(text string, x, y float64) {
	c.dc.DrawStringAnchored(text, x, y, 0.5, 0.5)
}

func (c *canvas) drawStringRotated(text string, x, y, degrees float64) {
	c.dc.Push()
	c.dc.RotateAbout(gg.Radians(degrees), x, y)
	c.dc.DrawStringAnchored(text, x, y, 1, 0.5)
	c.dc.Pop()
}

// coolwarm anchors: blue at -1, light grey at 0, red at +1.
var (
	coolLow  = [3]float64{0.230, 0.299, 0.754}
	coolMid  = [3]float64{0.865, 0.865, 0.865}
	coolHigh = [3]float64{0.706, 0.016, 0.150}
)

// divergingColor maps v in [-1,1] onto a blue–grey–red scale.
func divergingColor(v float64) color.RGBA {
	if math.IsNaN(v) {
		v = 0
	}
	v = math.Max(-1, math.Min(1, v))

	from, to, t := coolMid, coolHigh, v
	if v < 0 {
		from, to, t = coolMid, coolLow, -v
	}
	ch := func(i int) uint8 {
		return uint8(math.Round(255 * (from[i] + (to[i]-from[i])*t)))
	}
	return color.RGBA{R: ch(0), G: ch(1), B: ch(2), A: 255}
}

// Line colours for comparison charts.
var palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}
