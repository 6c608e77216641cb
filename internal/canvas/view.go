package canvas

import (
	"canvaslab/internal/models"
)

// Viewport is the client's pan/zoom state. Persisted across reloads.
type Viewport struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

const (
	// MinScale and MaxScale bound the zoom level everywhere a scale is
	// computed or restored.
	MinScale = 0.1
	MaxScale = 2.0

	// DefaultFitPadding is the margin, in viewport pixels, left around
	// content by ZoomToFit.
	DefaultFitPadding = 40.0
)

func clampScale(s float64) float64 {
	if s < MinScale {
		return MinScale
	}
	if s > MaxScale {
		return MaxScale
	}
	return s
}

// ZoomToFit computes the viewport that shows every shape, centered, with
// the given padding. Pure function of its inputs.
//
// An empty shape set or zero-area content would divide by zero; those
// cases return the identity viewport instead of propagating NaN/Inf into
// persisted or broadcast state.
func ZoomToFit(shapes []*models.Shape, viewportWidth, viewportHeight, padding float64) Viewport {
	if len(shapes) == 0 {
		return Viewport{Scale: 1}
	}

	minX, minY := shapes[0].X, shapes[0].Y
	maxX, maxY := minX, minY
	for _, s := range shapes {
		x1, x2 := s.X, s.X+s.Width
		if x2 < x1 {
			x1, x2 = x2, x1 // in-progress drags may have negative width
		}
		y1, y2 := s.Y, s.Y+s.Height
		if y2 < y1 {
			y1, y2 = y2, y1
		}
		if x1 < minX {
			minX = x1
		}
		if y1 < minY {
			minY = y1
		}
		if x2 > maxX {
			maxX = x2
		}
		if y2 > maxY {
			maxY = y2
		}
	}

	contentW := maxX - minX
	contentH := maxY - minY
	if contentW <= 0 || contentH <= 0 {
		return Viewport{Scale: 1}
	}

	scale := clampScale(min(
		(viewportWidth-2*padding)/contentW,
		(viewportHeight-2*padding)/contentH,
	))

	// Center the bounding box in the viewport at the chosen scale.
	return Viewport{
		Scale:   scale,
		OffsetX: (viewportWidth-contentW*scale)/2 - minX*scale,
		OffsetY: (viewportHeight-contentH*scale)/2 - minY*scale,
	}
}
