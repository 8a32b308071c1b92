package analytics

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/earthscape/climate-analytics/internal/climate"
)

const (
	comparisonWidth  = 1000
	comparisonHeight = 600
)

type series struct {
	name   string
	values []float64
}

// RenderComparison draws one line per requested variable present in ds
// against the date column (or row position when the table has no dates).
// Unknown variable names are skipped.
func RenderComparison(ds *climate.Dataset, variables []string, title string) (string, error) {
	if ds.Empty() {
		return "", fmt.Errorf("empty dataset")
	}

	var lines []series
	for _, v := range variables {
		if !ds.HasColumn(v) {
			continue
		}
		if _, numeric := (climate.Record{}).Value(v); !numeric {
			continue
		}
		lines = append(lines, series{name: v, values: ds.Column(v)})
	}

	useDates := ds.HasColumn(climate.ColDate)
	xs := make([]float64, ds.Len())
	for i := range xs {
		if useDates {
			xs[i] = float64(ds.At(i).Date.Unix())
		} else {
			xs[i] = float64(i)
		}
	}
	xMin, xMax := bounds(xs)
	yMin, yMax := math.Inf(1), math.Inf(-1)
	for _, s := range lines {
		lo, hi := bounds(s.values)
		yMin = math.Min(yMin, lo)
		yMax = math.Max(yMax, hi)
	}
	xMin, xMax = widen(xMin, xMax, 0)
	yMin, yMax = widen(yMin, yMax, 0.05)

	c, err := newCanvas(comparisonWidth, comparisonHeight)
	if err != nil {
		return "", err
	}
	defer c.close()

	const (
		left   = 90.0
		right  = 40.0
		top    = 60.0
		bottom = 80.0
	)
	plotW := comparisonWidth - left - right
	plotH := comparisonHeight - top - bottom
	px := func(x float64) float64 { return left + (x-xMin)/(xMax-xMin)*plotW }
	py := func(y float64) float64 { return top + plotH - (y-yMin)/(yMax-yMin)*plotH }

	// Title
	c.dc.SetHexColor("#000000")
	c.setFontSize(18)
	c.drawStringCentered(fmt.Sprintf("Comparison: %s (%s)", strings.Join(variables, ", "), title), comparisonWidth/2, top/2)

	// Axes and ticks
	c.dc.SetLineWidth(1)
	c.dc.DrawRectangle(left, top, plotW, plotH)
	c.dc.Stroke()
	c.setFontSize(12)
	const ticks = 5
	for i := 0; i <= ticks; i++ {
		f := float64(i) / ticks

		x := xMin + f*(xMax-xMin)
		sx := px(x)
		c.dc.DrawLine(sx, top+plotH, sx, top+plotH+5)
		c.dc.Stroke()
		var label string
		if useDates {
			label = time.Unix(int64(x), 0).UTC().Format("2006-01-02")
		} else {
			label = fmt.Sprintf("%.0f", x)
		}
		c.dc.DrawStringAnchored(label, sx, top+plotH+18, 0.5, 0.5)

		y := yMin + f*(yMax-yMin)
		sy := py(y)
		c.dc.DrawLine(left-5, sy, left, sy)
		c.dc.Stroke()
		c.dc.DrawStringAnchored(fmt.Sprintf("%.4g", y), left-8, sy, 1, 0.5)
	}
	c.setFontSize(14)
	xLabel := "Index"
	if useDates {
		xLabel = "Date"
	}
	c.drawStringCentered(xLabel, left+plotW/2, comparisonHeight-bottom/3)
	c.dc.Push()
	c.dc.RotateAbout(-math.Pi/2, 20, top+plotH/2)
	c.drawStringCentered("Values", 20, top+plotH/2)
	c.dc.Pop()

	// Lines; a missing value breaks the line.
	c.dc.SetLineWidth(1.5)
	for i, s := range lines {
		c.dc.SetHexColor(palette[i%len(palette)])
		drawn := 0
		pen := false
		for k, v := range s.values {
			if math.IsNaN(v) {
				pen = false
				continue
			}
			if pen {
				c.dc.LineTo(px(xs[k]), py(v))
			} else {
				c.dc.NewSubPath()
				c.dc.MoveTo(px(xs[k]), py(v))
				pen = true
			}
			drawn++
		}
		c.dc.Stroke()
		if drawn == 1 {
			for k, v := range s.values {
				if !math.IsNaN(v) {
					c.dc.DrawCircle(px(xs[k]), py(v), 3)
					c.dc.Fill()
				}
			}
		}
	}

	// Legend
	c.setFontSize(12)
	for i, s := range lines {
		ly := top + 15 + float64(i)*18
		c.dc.SetHexColor(palette[i%len(palette)])
		c.dc.DrawLine(left+10, ly, left+35, ly)
		c.dc.Stroke()
		c.dc.SetHexColor("#000000")
		c.dc.DrawStringAnchored(s.name, left+42, ly, 0, 0.5)
	}

	return c.encode()
}

// bounds returns the min and max finite values; (+Inf, -Inf) if none.
func bounds(vs []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// widen pads [lo, hi] by frac of its span and guards empty or degenerate ranges.
func widen(lo, hi, frac float64) (float64, float64) {
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return 0, 1
	}
	if hi == lo {
		return lo - 1, hi + 1
	}
	pad := (hi - lo) * frac
	return lo - pad, hi + pad
}
