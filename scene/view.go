package scene

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/gmlewis/segmesh/surface"
)

// View represents a 3D view. Its bounding box and axis label decorations
// are visible by default and are part of anything exported from the view.
type View struct {
	ID         string
	Width      int
	Height     int
	Background string // hex color

	axisLabelsVisible bool
	boxVisible        bool
}

// NewView returns a view with the default size and decorations visible.
func NewView(id string) *View {
	return &View{
		ID:                id,
		Width:             800,
		Height:            800,
		Background:        "#7f7fb2",
		axisLabelsVisible: true,
		boxVisible:        true,
	}
}

// SetAxisLabelsVisible shows or hides the axis labels.
func (v *View) SetAxisLabelsVisible(visible bool) { v.axisLabelsVisible = visible }

// SetBoxVisible shows or hides the bounding box.
func (v *View) SetBoxVisible(visible bool) { v.boxVisible = visible }

// AxisLabelsVisible reports whether the axis labels are shown.
func (v *View) AxisLabelsVisible() bool { return v.axisLabelsVisible }

// BoxVisible reports whether the bounding box is shown.
func (v *View) BoxVisible() bool { return v.boxVisible }

// Polyline is a named line strip drawn by the view.
type Polyline struct {
	Name   string
	Points []mgl64.Vec3
}

// Decorations returns the visible decorations framing the given meshes:
// the 12 edges of their bounding box and one axis line per world
// direction, named after the direction it points to.
func (v *View) Decorations(meshes ...*surface.Mesh) []Polyline {
	if !v.boxVisible && !v.axisLabelsVisible {
		return nil
	}
	min, max, ok := bounds(meshes)
	if !ok {
		return nil
	}

	var result []Polyline
	if v.boxVisible {
		corner := func(x, y, z int) mgl64.Vec3 {
			pick := func(axis, bit int) float64 {
				if bit == 0 {
					return min[axis]
				}
				return max[axis]
			}
			return mgl64.Vec3{pick(0, x), pick(1, y), pick(2, z)}
		}
		for a := 0; a < 2; a++ {
			for b := 0; b < 2; b++ {
				result = append(result,
					Polyline{Name: "BoundingBox", Points: []mgl64.Vec3{corner(0, a, b), corner(1, a, b)}},
					Polyline{Name: "BoundingBox", Points: []mgl64.Vec3{corner(a, 0, b), corner(a, 1, b)}},
					Polyline{Name: "BoundingBox", Points: []mgl64.Vec3{corner(a, b, 0), corner(a, b, 1)}},
				)
			}
		}
	}
	if v.axisLabelsVisible {
		for axis, label := range []string{"R", "A", "S"} {
			end := min
			end[axis] = max[axis]
			result = append(result, Polyline{Name: "AxisLabel_" + label, Points: []mgl64.Vec3{min, end}})
		}
	}
	return result
}

func bounds(meshes []*surface.Mesh) (min, max mgl64.Vec3, ok bool) {
	for _, m := range meshes {
		if m == nil || m.Empty() {
			continue
		}
		lo, hi := m.Bounds()
		if !ok {
			min, max, ok = lo, hi, true
			continue
		}
		for i := 0; i < 3; i++ {
			if lo[i] < min[i] {
				min[i] = lo[i]
			}
			if hi[i] > max[i] {
				max[i] = hi[i]
			}
		}
	}
	return min, max, ok
}
