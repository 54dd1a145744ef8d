package segmentation

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/unixpickle/model3d/model3d"

	"github.com/gmlewis/segmesh/surface"
)

// CreateClosedSurfaceRepresentation generates a closed surface for every
// segment. It returns false when the volume geometry cannot produce
// surfaces (an empty dimension or a singular voxel-to-world transform).
// Calling it again is a no-op.
func (s *Segmentation) CreateClosedSurfaceRepresentation() bool {
	if s.closedSurface {
		return true
	}
	if !s.validGeometry() {
		return false
	}

	s.surfaces = make(map[string]*surface.Mesh, len(s.segments))
	for _, seg := range s.segments {
		if m := s.extract(seg); !m.Empty() {
			s.surfaces[seg.ID] = m
		}
	}
	s.closedSurface = true
	return true
}

// ClosedSurface returns the closed surface of the segment with the given
// ID. It returns false if the representation was not created or the
// segment produced no surface.
func (s *Segmentation) ClosedSurface(id string) (*surface.Mesh, bool) {
	m, ok := s.surfaces[id]
	return m, ok
}

func (s *Segmentation) validGeometry() bool {
	for _, d := range s.grid.Dims {
		if d < 1 {
			return false
		}
	}
	for _, v := range s.ijkToWorld {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return s.ijkToWorld.Det() != 0
}

// extract runs marching cubes over the segment mask in voxel space and
// maps the result into world coordinates.
func (s *Segmentation) extract(seg *Segment) *surface.Mesh {
	solid := &segmentSolid{s: s, seg: seg}
	mesh := model3d.MarchingCubesSearch(solid, s.opts.Step, searchIters)

	b := surface.NewBuilder(seg.Name, seg.Color)
	for _, t := range mesh.TriangleSlice() {
		b.Add(vec3(t[0]), vec3(t[1]), vec3(t[2]))
	}
	return b.Mesh().Transform(s.ijkToWorld)
}

func vec3(c model3d.Coord3D) mgl64.Vec3 {
	return mgl64.Vec3{c.X, c.Y, c.Z}
}

// segmentSolid exposes one segment mask as a model3d.Solid in voxel
// coordinates, padded by one voxel so the surface closes at the bounds.
type segmentSolid struct {
	s   *Segmentation
	seg *Segment
}

func (ss *segmentSolid) Min() model3d.Coord3D {
	return model3d.Coord3D{
		X: float64(ss.seg.Min[0]) - 1,
		Y: float64(ss.seg.Min[1]) - 1,
		Z: float64(ss.seg.Min[2]) - 1,
	}
}

func (ss *segmentSolid) Max() model3d.Coord3D {
	return model3d.Coord3D{
		X: float64(ss.seg.Max[0]) + 1,
		Y: float64(ss.seg.Max[1]) + 1,
		Z: float64(ss.seg.Max[2]) + 1,
	}
}

func (ss *segmentSolid) Contains(c model3d.Coord3D) bool {
	i, j, k := int(math.Round(c.X)), int(math.Round(c.Y)), int(math.Round(c.Z))
	if i < ss.seg.Min[0] || j < ss.seg.Min[1] || k < ss.seg.Min[2] ||
		i > ss.seg.Max[0] || j > ss.seg.Max[1] || k > ss.seg.Max[2] {
		return false
	}
	return ss.s.Contains(ss.seg, i, j, k)
}
