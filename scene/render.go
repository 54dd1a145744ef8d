package scene

import (
	"math"

	"github.com/fogleman/fauxgl"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/gmlewis/segmesh/surface"
)

const (
	fovy = 30
	near = 1
	far  = 10
)

var (
	eye    = fauxgl.V(3, -3, 2)
	center = fauxgl.V(0, 0, 0)
	up     = fauxgl.V(0, 0, 1)
	light  = fauxgl.V(0.75, -1, 0.5).Normalize()
)

// Snapshot renders the meshes in the view with a software rasterizer and
// saves the image as a PNG file. The meshes are scaled together to fit
// the view, each drawn in its own color.
func (v *View) Snapshot(filename string, meshes []*surface.Mesh) error {
	min, max, ok := bounds(meshes)
	if !ok {
		return errors.New("snapshot: nothing to render")
	}
	mid := min.Add(max).Mul(0.5)
	size := max.Sub(min)
	scale := 2 / math.Max(size[0], math.Max(size[1], size[2]))
	if scale <= 0 || math.IsInf(scale, 0) || math.IsNaN(scale) {
		scale = 1
	}
	toView := func(p mgl64.Vec3) fauxgl.Vector {
		p = p.Sub(mid).Mul(scale)
		return fauxgl.V(p[0], p[1], p[2])
	}

	context := fauxgl.NewContext(v.Width, v.Height)
	context.ClearColorBufferWith(fauxgl.HexColor(v.Background))
	aspect := float64(v.Width) / float64(v.Height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(fovy, aspect, near, far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	context.Shader = shader

	for _, m := range meshes {
		if m == nil || m.Empty() {
			continue
		}
		tris := make([]*fauxgl.Triangle, 0, m.NumTriangles())
		for n := 0; n < m.NumTriangles(); n++ {
			p0, p1, p2 := m.Triangle(n)
			tris = append(tris, fauxgl.NewTriangleForPoints(toView(p0), toView(p1), toView(p2)))
		}
		shader.ObjectColor = fauxgl.Color{R: m.Color[0], G: m.Color[1], B: m.Color[2], A: 1}
		context.DrawMesh(fauxgl.NewTriangleMesh(tris))
	}

	if err := fauxgl.SavePNG(filename, context.Image()); err != nil {
		return errors.Wrapf(err, "snapshot %v", filename)
	}
	return nil
}
