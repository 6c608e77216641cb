package canvas

import (
	"github.com/google/uuid"

	"canvaslab/internal/models"
)

// Default styling applied by the factory. Text shapes get a muted stroke
// and start selected so the user can type immediately.
const (
	defaultStrokeWidth = 2.0
	defaultStrokeColor = "#1e1e1e"
	defaultFillColor   = "transparent"
	defaultOpacity     = 1.0

	textStrokeColor = "#495057"
)

// NewShape constructs a shape of the given kind at (x, y) with kind-specific
// default styling. Width/height start at 0; the in-progress drag grows them.
// The id is a fresh UUID, collision-free across clients without coordination.
func NewShape(kind models.ShapeKind, x, y float64) *models.Shape {
	s := &models.Shape{
		ID:          uuid.NewString(),
		Kind:        kind,
		X:           x,
		Y:           y,
		StrokeWidth: defaultStrokeWidth,
		StrokeStyle: models.StrokeSolid,
		StrokeColor: defaultStrokeColor,
		FillColor:   defaultFillColor,
		Opacity:     defaultOpacity,
	}

	if kind == models.KindText {
		s.StrokeColor = textStrokeColor
		s.IsSelected = true
	}

	return s
}
