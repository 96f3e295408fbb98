// Package layout holds the resizable two-pane split state.
package layout

import (
	"fmt"
	"math"
)

// Variant bounds the left pane's share of the container, in percent.
type Variant struct {
	Name    string
	Min     float64
	Max     float64
	Initial float64
}

// Built-in variants.
var (
	Wide   = Variant{Name: "wide", Min: 30, Max: 70, Initial: 35}
	Narrow = Variant{Name: "narrow", Min: 20, Max: 60, Initial: 35}
)

// VariantByName resolves a configured variant.
func VariantByName(name string) (Variant, error) {
	switch name {
	case "", Wide.Name:
		return Wide, nil
	case Narrow.Name:
		return Narrow, nil
	}
	return Variant{}, fmt.Errorf("unknown layout variant: %q", name)
}

// Clamp limits pct to the variant's bounds.
func (v Variant) Clamp(pct float64) float64 {
	return math.Min(math.Max(pct, v.Min), v.Max)
}

// Phase is the drag state.
type Phase int

const (
	Idle Phase = iota
	Dragging
)

func (p Phase) String() string {
	if p == Dragging {
		return "dragging"
	}
	return "idle"
}

// Splitter tracks the left pane width. Methods return an updated copy;
// the receiver is never modified.
type Splitter struct {
	variant Variant
	phase   Phase
	percent float64

	// captured on Down
	startX     float64
	startWidth float64
	container  float64
}

// NewSplitter starts idle at the variant's initial width.
func NewSplitter(v Variant) Splitter {
	return Splitter{variant: v, percent: v.Clamp(v.Initial)}
}

func (s Splitter) Variant() Variant { return s.variant }
func (s Splitter) Phase() Phase     { return s.phase }

// Percent is the left pane's share of the container.
func (s Splitter) Percent() float64 { return s.percent }

// SelectionSuppressed reports whether text selection should be disabled,
// which holds for the whole drag gesture.
func (s Splitter) SelectionSuppressed() bool { return s.phase == Dragging }

// Down begins a drag at pointer x over a container of the given width.
// Ignored while already dragging or when the container has no width.
func (s Splitter) Down(x, containerWidth float64) Splitter {
	if s.phase == Dragging || containerWidth <= 0 {
		return s
	}
	s.phase = Dragging
	s.startX = x
	s.container = containerWidth
	s.startWidth = s.percent / 100 * containerWidth
	return s
}

// Move recomputes the width from the pointer offset since Down.
func (s Splitter) Move(x float64) Splitter {
	if s.phase != Dragging {
		return s
	}
	dx := x - s.startX
	s.percent = s.variant.Clamp((s.startWidth + dx) / s.container * 100)
	return s
}

// Up ends the drag.
func (s Splitter) Up() Splitter {
	if s.phase != Dragging {
		return s
	}
	s.phase = Idle
	s.startX, s.startWidth, s.container = 0, 0, 0
	return s
}

// Resize adapts to a new container width. The percentage is kept; a drag
// in progress is rescaled so it continues from the same relative point.
func (s Splitter) Resize(containerWidth float64) Splitter {
	if containerWidth <= 0 || s.phase != Dragging {
		return s
	}
	s.startWidth = s.startWidth / s.container * containerWidth
	s.container = containerWidth
	return s
}

// Split divides total columns into left and right widths, leaving gutter
// columns for the handle between them.
func (s Splitter) Split(total, gutter int) (left, right int) {
	avail := total - gutter
	if avail <= 0 {
		return 0, 0
	}
	left = int(math.Round(float64(avail) * s.percent / 100))
	return left, avail - left
}
