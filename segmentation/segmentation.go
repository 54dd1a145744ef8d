// Package segmentation turns a labeled volume into named segments and
// generates their closed-surface representations.
package segmentation

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gmlewis/segmesh/nifti"
	"github.com/gmlewis/segmesh/surface"
	"github.com/gmlewis/segmesh/voxels"
)

// searchIters is the number of bisection steps marching cubes uses to
// place each vertex on the mask boundary.
const searchIters = 8

// Options control how segments are derived and surfaced.
type Options struct {
	// LabelName names the anatomical structure, e.g. "liver". Segment
	// names are derived from it.
	LabelName string
	// SplitComponents creates one segment per 6-connected component
	// instead of one per label value.
	SplitComponents bool
	// Step is the marching cubes sampling step in voxels (default 1).
	Step float64
	// LPS writes surfaces in LPS instead of RAS world coordinates.
	LPS bool
}

// Segment represents one named region of a segmentation.
type Segment struct {
	ID    string
	Name  string
	Color [3]float64
	// Value is the label value of the region in the volume.
	Value int32
	// Component is the component ID when split by connectivity, else 0.
	Component int32
	Voxels    int
	// Min and Max are the inclusive voxel bounding box.
	Min, Max [3]int
}

// Segmentation is a labeled volume loaded under a name, holding its
// segments in enumeration order.
type Segmentation struct {
	name       string
	opts       Options
	grid       *voxels.Grid
	components *voxels.Grid
	ijkToWorld mgl64.Mat4

	segments []*Segment
	byID     map[string]*Segment

	closedSurface bool
	surfaces      map[string]*surface.Mesh
}

// New builds a segmentation named name from a label volume; 0 is
// background. The segmentation shares the labels of vol, which must not be
// modified afterwards.
func New(name string, vol *nifti.Volume, opts Options) *Segmentation {
	if opts.Step <= 0 {
		opts.Step = 1
	}

	grid := &voxels.Grid{Dims: vol.Dims, Values: vol.Labels}

	xform := vol.Affine()
	if opts.LPS {
		xform = mgl64.Scale3D(-1, -1, 1).Mul4(xform)
	}

	s := &Segmentation{
		name:       name,
		opts:       opts,
		grid:       grid,
		ijkToWorld: xform,
		byID:       map[string]*Segment{},
	}

	if opts.SplitComponents {
		var comps []*voxels.Component
		s.components, comps = grid.ConnectedComponents()
		for _, c := range comps {
			s.add(&Segment{
				ID:        fmt.Sprintf("Segment_%v_%v", c.Value, c.Index),
				Name:      fmt.Sprintf("%v_%v", s.labelName(c.Value), c.Index),
				Value:     c.Value,
				Component: c.ID,
				Voxels:    c.Count,
				Min:       c.Min,
				Max:       c.Max,
			})
		}
	} else {
		labels := grid.Labels()
		for _, l := range labels {
			name := s.labelName(l.Value)
			if len(labels) == 1 {
				name = s.opts.LabelName
			}
			s.add(&Segment{
				ID:     fmt.Sprintf("Segment_%v", l.Value),
				Name:   name,
				Value:  l.Value,
				Voxels: l.Count,
				Min:    l.Min,
				Max:    l.Max,
			})
		}
	}

	return s
}

func (s *Segmentation) labelName(value int32) string {
	if s.opts.LabelName == "" {
		return fmt.Sprintf("Segment_%v", value)
	}
	return fmt.Sprintf("%v_%v", s.opts.LabelName, value)
}

func (s *Segmentation) add(seg *Segment) {
	if seg.Name == "" {
		seg.Name = seg.ID
	}
	seg.Color = palette[len(s.segments)%len(palette)]
	s.segments = append(s.segments, seg)
	s.byID[seg.ID] = seg
}

// Name returns the name the segmentation was loaded under.
func (s *Segmentation) Name() string { return s.name }

// NumberOfSegments returns the number of segments.
func (s *Segmentation) NumberOfSegments() int { return len(s.segments) }

// NthSegmentID returns the ID of the n-th segment (0-based).
func (s *Segmentation) NthSegmentID(n int) string { return s.segments[n].ID }

// Segment returns the segment with the given ID.
func (s *Segmentation) Segment(id string) (*Segment, bool) {
	seg, ok := s.byID[id]
	return seg, ok
}

// Dims returns the voxel dimensions of the underlying volume.
func (s *Segmentation) Dims() [3]int { return s.grid.Dims }

// IJKToWorld returns the voxel-to-world transform surfaces are written in.
func (s *Segmentation) IJKToWorld() mgl64.Mat4 { return s.ijkToWorld }

// Contains reports whether voxel (i,j,k) belongs to seg.
func (s *Segmentation) Contains(seg *Segment, i, j, k int) bool {
	if !s.grid.InBounds(i, j, k) {
		return false
	}
	n := s.grid.Index(i, j, k)
	if seg.Component != 0 {
		return s.components.Values[n] == seg.Component
	}
	return s.grid.Values[n] == seg.Value
}

// palette holds segment display colors, assigned in enumeration order.
var palette = [][3]float64{
	{0.502, 0.682, 0.502},
	{0.945, 0.839, 0.569},
	{0.694, 0.478, 0.396},
	{0.435, 0.722, 0.824},
	{0.847, 0.396, 0.310},
	{0.867, 0.510, 0.396},
	{0.565, 0.933, 0.565},
	{0.753, 0.408, 0.690},
}
