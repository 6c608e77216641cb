package models

// ShapeKind enumerates the drawable shape types supported by the canvas.
type ShapeKind string

const (
	KindRectangle ShapeKind = "rectangle"
	KindEllipse   ShapeKind = "ellipse"
	KindLine      ShapeKind = "line"
	KindArrow     ShapeKind = "arrow"
	KindText      ShapeKind = "text"
)

// StrokeStyle enumerates stroke dash styles.
type StrokeStyle string

const (
	StrokeSolid  StrokeStyle = "solid"
	StrokeDashed StrokeStyle = "dashed"
	StrokeDotted StrokeStyle = "dotted"
)

// Shape is one drawable entity on the canvas.
//
// The id is client-generated (UUID) and immutable for the shape's lifetime.
// Width/Height may legitimately be negative mid-drag; normalization happens
// at render time, never in the data model.
type Shape struct {
	ID       string    `json:"id"`
	Kind     ShapeKind `json:"kind"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Width    float64   `json:"width"`
	Height   float64   `json:"height"`
	Rotation float64   `json:"rotation"` // degrees

	StrokeWidth float64     `json:"strokeWidth"`
	StrokeStyle StrokeStyle `json:"strokeStyle"`
	StrokeColor string      `json:"strokeColor"`
	FillColor   string      `json:"fillColor"`
	Opacity     float64     `json:"opacity"` // [0, 1]

	// Text payload, used when Kind == KindText.
	Text string `json:"text,omitempty"`

	// Transient UI flags. Local-only: never serialized, never broadcast,
	// and excluded from equality/merge decisions.
	IsSelected bool `json:"-"`
	IsDragging bool `json:"-"`
	IsHovered  bool `json:"-"`
}

// Clone returns a deep copy of the shape with transient UI flags cleared.
// Copies stored in commits and history entries must not alias live state.
func (s *Shape) Clone() *Shape {
	if s == nil {
		return nil
	}
	c := *s
	c.IsSelected = false
	c.IsDragging = false
	c.IsHovered = false
	return &c
}

// ShapePatch is a field-level diff against a shape. Nil fields are left
// untouched. ID and Kind are deliberately absent: an update can never move
// a shape to a different identity or kind.
type ShapePatch struct {
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`

	StrokeWidth *float64     `json:"strokeWidth,omitempty"`
	StrokeStyle *StrokeStyle `json:"strokeStyle,omitempty"`
	StrokeColor *string      `json:"strokeColor,omitempty"`
	FillColor   *string      `json:"fillColor,omitempty"`
	Opacity     *float64     `json:"opacity,omitempty"`

	Text *string `json:"text,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p *ShapePatch) IsEmpty() bool {
	if p == nil {
		return true
	}
	return p.X == nil && p.Y == nil && p.Width == nil && p.Height == nil &&
		p.Rotation == nil && p.StrokeWidth == nil && p.StrokeStyle == nil &&
		p.StrokeColor == nil && p.FillColor == nil && p.Opacity == nil &&
		p.Text == nil
}

// Apply merges the patch into the shape. ID and Kind are preserved by
// construction: the patch has no way to express them.
func (s *Shape) Apply(p *ShapePatch) {
	if p == nil {
		return
	}
	if p.X != nil {
		s.X = *p.X
	}
	if p.Y != nil {
		s.Y = *p.Y
	}
	if p.Width != nil {
		s.Width = *p.Width
	}
	if p.Height != nil {
		s.Height = *p.Height
	}
	if p.Rotation != nil {
		s.Rotation = *p.Rotation
	}
	if p.StrokeWidth != nil {
		s.StrokeWidth = *p.StrokeWidth
	}
	if p.StrokeStyle != nil {
		s.StrokeStyle = *p.StrokeStyle
	}
	if p.StrokeColor != nil {
		s.StrokeColor = *p.StrokeColor
	}
	if p.FillColor != nil {
		s.FillColor = *p.FillColor
	}
	if p.Opacity != nil {
		s.Opacity = *p.Opacity
	}
	if p.Text != nil {
		s.Text = *p.Text
	}
}

// Inverse builds the patch that undoes applying p to the shape's current
// state. Only fields present in p are captured.
func (s *Shape) Inverse(p *ShapePatch) *ShapePatch {
	inv := &ShapePatch{}
	if p == nil {
		return inv
	}
	if p.X != nil {
		v := s.X
		inv.X = &v
	}
	if p.Y != nil {
		v := s.Y
		inv.Y = &v
	}
	if p.Width != nil {
		v := s.Width
		inv.Width = &v
	}
	if p.Height != nil {
		v := s.Height
		inv.Height = &v
	}
	if p.Rotation != nil {
		v := s.Rotation
		inv.Rotation = &v
	}
	if p.StrokeWidth != nil {
		v := s.StrokeWidth
		inv.StrokeWidth = &v
	}
	if p.StrokeStyle != nil {
		v := s.StrokeStyle
		inv.StrokeStyle = &v
	}
	if p.StrokeColor != nil {
		v := s.StrokeColor
		inv.StrokeColor = &v
	}
	if p.FillColor != nil {
		v := s.FillColor
		inv.FillColor = &v
	}
	if p.Opacity != nil {
		v := s.Opacity
		inv.Opacity = &v
	}
	if p.Text != nil {
		v := s.Text
		inv.Text = &v
	}
	return inv
}
