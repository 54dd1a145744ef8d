// Package binvox writes segment voxel masks as binvox files.
package binvox

import (
	"math"

	"github.com/gmlewis/stldice/v4/binvox"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/gmlewis/segmesh/segmentation"
)

// Write writes the voxels of seg, cropped to its bounding box, to
// filename. The binvox translation and scale place the voxels at their
// world position for axis-aligned volumes.
func Write(filename string, s *segmentation.Segmentation, seg *segmentation.Segment) error {
	var n [3]int
	for i := range n {
		n[i] = seg.Max[i] - seg.Min[i] + 1
	}
	if seg.Voxels == 0 || n[0] < 1 || n[1] < 1 || n[2] < 1 {
		return errors.Errorf("binvox %v: segment %v is empty", filename, seg.ID)
	}

	xform := s.IJKToWorld()
	origin := xform.Mul4x1(mgl64.Vec4{float64(seg.Min[0]), float64(seg.Min[1]), float64(seg.Min[2]), 1})
	var scale float64
	for i := range n {
		size := float64(n[i]) * xform.Col(i).Vec3().Len()
		scale = math.Max(scale, size)
	}

	b := binvox.New(n[0], n[1], n[2], origin[0], origin[1], origin[2], scale, false)
	for k := 0; k < n[2]; k++ {
		for j := 0; j < n[1]; j++ {
			for i := 0; i < n[0]; i++ {
				if s.Contains(seg, seg.Min[0]+i, seg.Min[1]+j, seg.Min[2]+k) {
					b.Add(i, j, k)
				}
			}
		}
	}

	if err := b.Write(filename, 0, 0, 0, b.NX, b.NY, b.NZ); err != nil {
		return errors.Wrapf(err, "binvox %v", filename)
	}
	return nil
}
