package export

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/gmlewis/segmesh/surface"
)

type plyFace struct {
	N uint8
	V [3]int32
}

// WritePLY writes m as a binary little-endian PLY file with per-vertex
// normals and the mesh color.
func WritePLY(w io.Writer, m *surface.Mesh) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ply\n")
	fmt.Fprintf(bw, "format binary_little_endian 1.0\n")
	fmt.Fprintf(bw, "comment segmesh %v\n", strings.ReplaceAll(m.Name, "\n", " "))
	fmt.Fprintf(bw, "element vertex %v\n", len(m.Vertices))
	for _, p := range []string{"x", "y", "z", "nx", "ny", "nz"} {
		fmt.Fprintf(bw, "property float %v\n", p)
	}
	for _, p := range []string{"red", "green", "blue"} {
		fmt.Fprintf(bw, "property uchar %v\n", p)
	}
	fmt.Fprintf(bw, "element face %v\n", len(m.Faces))
	fmt.Fprintf(bw, "property list uchar int vertex_indices\n")
	fmt.Fprintf(bw, "end_header\n")

	rgb := [3]uint8{}
	for i, c := range m.Color {
		rgb[i] = uint8(clamp01(c)*255 + 0.5)
	}
	normals := m.VertexNormals()
	for i, v := range m.Vertices {
		n := normals[i]
		vertex := struct {
			P, N [3]float32
			C    [3]uint8
		}{
			P: [3]float32{float32(v[0]), float32(v[1]), float32(v[2])},
			N: [3]float32{float32(n[0]), float32(n[1]), float32(n[2])},
			C: rgb,
		}
		if err := binary.Write(bw, binary.LittleEndian, &vertex); err != nil {
			return errors.Wrapf(err, "write vertex %v", i)
		}
	}
	for i, f := range m.Faces {
		face := plyFace{N: 3, V: [3]int32{int32(f[0]), int32(f[1]), int32(f[2])}}
		if err := binary.Write(bw, binary.LittleEndian, &face); err != nil {
			return errors.Wrapf(err, "write face %v", i)
		}
	}
	return bw.Flush()
}

// WritePLYFile writes m to filename as a binary PLY file.
func WritePLYFile(filename string, m *surface.Mesh) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := WritePLY(f, m); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %v", filename)
	}
	return f.Close()
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
