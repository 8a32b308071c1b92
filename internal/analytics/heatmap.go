package analytics

import (
	"fmt"
	"math"
)

const (
	heatmapWidth  = 1000
	heatmapHeight = 800
)

// RenderHeatmap draws an annotated correlation heatmap and returns it as a
// base64-encoded PNG.
func RenderHeatmap(m *CorrMatrix, title string) (string, error) {
	if m == nil || len(m.Columns) == 0 {
		return "", fmt.Errorf("empty correlation matrix")
	}

	c, err := newCanvas(heatmapWidth, heatmapHeight)
	if err != nil {
		return "", err
	}
	defer c.close()

	const (
		left   = 150.0
		top    = 70.0
		right  = 140.0
		bottom = 150.0
	)
	grid := math.Min(heatmapWidth-left-right, heatmapHeight-top-bottom)
	n := len(m.Columns)
	cell := grid / float64(n)

	// Title
	c.dc.SetHexColor("#000000")
	c.setFontSize(20)
	c.drawStringCentered(fmt.Sprintf("Correlation Matrix - %s", title), left+grid/2, top/2)

	// Cells with annotations
	annotSize := math.Max(9, math.Min(16, cell/5))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := m.Values[i][j]
			x := left + float64(j)*cell
			y := top + float64(i)*cell

			c.dc.SetColor(divergingColor(v))
			c.dc.DrawRectangle(x, y, cell, cell)
			c.dc.Fill()

			c.dc.SetHexColor("#ffffff")
			c.dc.SetLineWidth(0.5)
			c.dc.DrawRectangle(x, y, cell, cell)
			c.dc.Stroke()

			if math.Abs(v) > 0.6 {
				c.dc.SetHexColor("#ffffff")
			} else {
				c.dc.SetHexColor("#000000")
			}
			c.setFontSize(annotSize)
			c.drawStringCentered(fmt.Sprintf("%.2f", v), x+cell/2, y+cell/2)
		}
	}

	// Axis labels
	c.dc.SetHexColor("#000000")
	c.setFontSize(13)
	for i, name := range m.Columns {
		mid := float64(i)*cell + cell/2
		c.dc.DrawStringAnchored(name, left-8, top+mid, 1, 0.5)
		c.drawStringRotated(name, left+mid, top+grid+10, -45)
	}

	// Colour bar
	barX := left + grid + 40
	const barW = 20.0
	const strips = 100
	stripH := grid / strips
	for s := 0; s < strips; s++ {
		v := 1 - 2*(float64(s)+0.5)/strips
		c.dc.SetColor(divergingColor(v))
		c.dc.DrawRectangle(barX, top+float64(s)*stripH, barW, stripH+0.5)
		c.dc.Fill()
	}
	c.dc.SetHexColor("#000000")
	c.dc.SetLineWidth(1)
	c.dc.DrawRectangle(barX, top, barW, grid)
	c.dc.Stroke()
	c.setFontSize(12)
	for _, tick := range []float64{1, 0.5, 0, -0.5, -1} {
		y := top + (1-tick)/2*grid
		c.dc.DrawLine(barX+barW, y, barX+barW+5, y)
		c.dc.Stroke()
		c.dc.DrawStringAnchored(fmt.Sprintf("%.1f", tick), barX+barW+8, y, 0, 0.5)
	}

	return c.encode()
}
