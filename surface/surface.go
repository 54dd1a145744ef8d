// Package surface provides the indexed triangle mesh shared by the mesh
// writers.
package surface

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Mesh is an indexed triangle mesh in world coordinates (millimeters).
// Faces are wound counter-clockwise when seen from outside.
type Mesh struct {
	Name     string
	Color    [3]float64 // RGB in [0,1]
	Vertices []mgl64.Vec3
	Faces    [][3]int
}

// Builder accumulates triangles into a Mesh, merging identical vertices.
type Builder struct {
	m     *Mesh
	index map[mgl64.Vec3]int
}

// NewBuilder returns a builder for a mesh with the given name and color.
func NewBuilder(name string, color [3]float64) *Builder {
	return &Builder{
		m:     &Mesh{Name: name, Color: color},
		index: map[mgl64.Vec3]int{},
	}
}

// Add appends the triangle (p0,p1,p2). Degenerate triangles whose
// vertices are not distinct are dropped.
func (b *Builder) Add(p0, p1, p2 mgl64.Vec3) {
	ia, ib, ic := b.vertex(p0), b.vertex(p1), b.vertex(p2)
	if ia == ib || ib == ic || ia == ic {
		return
	}
	b.m.Faces = append(b.m.Faces, [3]int{ia, ib, ic})
}

func (b *Builder) vertex(v mgl64.Vec3) int {
	if i, ok := b.index[v]; ok {
		return i
	}
	i := len(b.m.Vertices)
	b.m.Vertices = append(b.m.Vertices, v)
	b.index[v] = i
	return i
}

// Mesh returns the accumulated mesh.
func (b *Builder) Mesh() *Mesh {
	return b.m
}

// NumTriangles returns the number of faces.
func (m *Mesh) NumTriangles() int {
	return len(m.Faces)
}

// Empty reports whether the mesh has no faces.
func (m *Mesh) Empty() bool {
	return len(m.Faces) == 0
}

// Triangle returns the three corners of face n.
func (m *Mesh) Triangle(n int) (a, b, c mgl64.Vec3) {
	f := m.Faces[n]
	return m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
}

// FaceNormal returns the unit normal of face n, or the zero vector for a
// zero-area face.
func (m *Mesh) FaceNormal(n int) mgl64.Vec3 {
	a, b, c := m.Triangle(n)
	cross := b.Sub(a).Cross(c.Sub(a))
	l := cross.Len()
	if l == 0 {
		return mgl64.Vec3{}
	}
	return cross.Mul(1 / l)
}

// VertexNormals returns area-weighted unit normals for every vertex.
func (m *Mesh) VertexNormals() []mgl64.Vec3 {
	normals := make([]mgl64.Vec3, len(m.Vertices))
	for _, f := range m.Faces {
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		cross := b.Sub(a).Cross(c.Sub(a))
		for _, i := range f {
			normals[i] = normals[i].Add(cross)
		}
	}
	for i, n := range normals {
		if l := n.Len(); l > 0 {
			normals[i] = n.Mul(1 / l)
		}
	}
	return normals
}

// Bounds returns the axis-aligned bounding box of the mesh.
// An empty mesh returns zero vectors.
func (m *Mesh) Bounds() (min, max mgl64.Vec3) {
	if len(m.Vertices) == 0 {
		return min, max
	}
	min, max = m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		for i := 0; i < 3; i++ {
			min[i] = math.Min(min[i], v[i])
			max[i] = math.Max(max[i], v[i])
		}
	}
	return min, max
}

// Closed reports whether the mesh is watertight: every edge is shared by
// exactly two faces that traverse it in opposite directions.
func (m *Mesh) Closed() bool {
	if len(m.Faces) == 0 {
		return false
	}
	type edge [2]int
	directed := make(map[edge]int, 3*len(m.Faces))
	for _, f := range m.Faces {
		for n := 0; n < 3; n++ {
			directed[edge{f[n], f[(n+1)%3]}]++
		}
	}
	for e, count := range directed {
		if count != 1 || directed[edge{e[1], e[0]}] != 1 {
			return false
		}
	}
	return true
}

// Transform returns a copy of the mesh with every vertex mapped by xform.
// Face winding is reversed when xform mirrors space so that normals keep
// pointing outward.
func (m *Mesh) Transform(xform mgl64.Mat4) *Mesh {
	out := &Mesh{
		Name:     m.Name,
		Color:    m.Color,
		Vertices: make([]mgl64.Vec3, len(m.Vertices)),
		Faces:    make([][3]int, len(m.Faces)),
	}
	for i, v := range m.Vertices {
		out.Vertices[i] = xform.Mul4x1(v.Vec4(1)).Vec3()
	}
	flip := xform.Det() < 0
	for i, f := range m.Faces {
		if flip {
			f[1], f[2] = f[2], f[1]
		}
		out.Faces[i] = f
	}
	return out
}
