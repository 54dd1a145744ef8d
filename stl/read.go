package stl

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/gmlewis/segmesh/surface"
)

// ReadFile reads the triangles of a binary or ASCII STL file.
func ReadFile(filename string) ([]Tri, error) {
	buf, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	tris, err := Read(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "read %v", filename)
	}
	return tris, nil
}

// Read decodes STL file contents. The binary layout is recognized by its
// triangle count matching the data length; anything else starting with
// "solid" is parsed as ASCII.
func Read(buf []byte) ([]Tri, error) {
	if len(buf) >= headerSize+4 {
		count := binary.LittleEndian.Uint32(buf[headerSize:])
		if int64(len(buf)) == headerSize+4+int64(count)*triSize {
			tris := make([]Tri, count)
			r := bytes.NewReader(buf[headerSize+4:])
			if err := binary.Read(r, binary.LittleEndian, tris); err != nil {
				return nil, errors.Wrap(err, "read triangles")
			}
			return tris, nil
		}
	}
	if bytes.HasPrefix(bytes.TrimSpace(buf), []byte("solid")) {
		return readASCII(bytes.NewReader(buf))
	}
	return nil, errors.New("not an STL file")
}

// ToMesh joins the triangles into an indexed mesh, merging shared
// vertices. Stored normals are dropped.
func ToMesh(name string, tris []Tri) *surface.Mesh {
	b := surface.NewBuilder(name, [3]float64{})
	v := func(p [3]float32) mgl64.Vec3 {
		return mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])}
	}
	for _, t := range tris {
		b.Add(v(t.V1), v(t.V2), v(t.V3))
	}
	return b.Mesh()
}
