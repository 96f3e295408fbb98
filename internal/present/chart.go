package present

import (
	"math"
	"strconv"
	"strings"

	"github.com/newthinker/btdesk/internal/core"
)

// Axis is the value range of one plotted series.
type Axis struct {
	Min float64
	Max float64
}

// Chart is the equity curve projected into a Width x Height box.
// Price uses the left axis and equity the right; each is scaled to its
// own range. Y grows downward as in SVG.
type Chart struct {
	Width  float64
	Height float64

	PricePoints  string
	EquityPoints string
	PriceAxis    Axis
	EquityAxis   Axis

	FirstDate string
	LastDate  string
}

// Project builds chart geometry. It returns false for an empty curve.
func Project(curve []core.EquityPoint, width, height float64) (Chart, bool) {
	if len(curve) == 0 || width <= 0 || height <= 0 {
		return Chart{}, false
	}

	prices := make([]float64, len(curve))
	equity := make([]float64, len(curve))
	for i, p := range curve {
		prices[i] = p.Price
		equity[i] = p.Equity
	}

	c := Chart{
		Width:      width,
		Height:     height,
		PriceAxis:  axisOf(prices),
		EquityAxis: axisOf(equity),
		FirstDate:  curve[0].Date,
		LastDate:   curve[len(curve)-1].Date,
	}
	c.PricePoints = polyline(prices, c.PriceAxis, width, height)
	c.EquityPoints = polyline(equity, c.EquityAxis, width, height)
	return c, true
}

func axisOf(values []float64) Axis {
	a := Axis{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, v := range values {
		a.Min = math.Min(a.Min, v)
		a.Max = math.Max(a.Max, v)
	}
	return a
}

// scale maps v into [0,1]; a flat axis maps to the middle.
func (a Axis) scale(v float64) float64 {
	if a.Max == a.Min {
		return 0.5
	}
	return (v - a.Min) / (a.Max - a.Min)
}

func polyline(values []float64, axis Axis, width, height float64) string {
	var b strings.Builder
	step := 0.0
	if len(values) > 1 {
		step = width / float64(len(values)-1)
	}
	for i, v := range values {
		if i > 0 {
			b.WriteByte(' ')
		}
		x := step * float64(i)
		if len(values) == 1 {
			x = width / 2
		}
		y := height - axis.scale(v)*height
		b.WriteString(strconv.FormatFloat(x, 'f', 1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(y, 'f', 1, 64))
	}
	return b.String()
}

var blocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders values as width block characters, sampling evenly.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	if width > len(values) {
		width = len(values)
	}

	axis := axisOf(values)
	out := make([]rune, width)
	for i := range out {
		idx := i * (len(values) - 1) / max(width-1, 1)
		level := int(math.Round(axis.scale(values[idx]) * float64(len(blocks)-1)))
		out[i] = blocks[level]
	}
	return string(out)
}

// Series extracts one field from the curve.
func Series(curve []core.EquityPoint, equity bool) []float64 {
	out := make([]float64, len(curve))
	for i, p := range curve {
		if equity {
			out[i] = p.Equity
		} else {
			out[i] = p.Price
		}
	}
	return out
}
