package stl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/gmlewis/segmesh/surface"
)

// WriteASCII writes m as an ASCII STL solid.
func WriteASCII(w io.Writer, m *surface.Mesh) error {
	name := strings.ReplaceAll(m.Name, " ", "_")
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "solid %v\n", name)
	for n := 0; n < m.NumTriangles(); n++ {
		a, b, c := m.Triangle(n)
		t := NewTri(m.FaceNormal(n), a, b, c)
		fmt.Fprintf(bw, "  facet normal %g %g %g\n", t.N[0], t.N[1], t.N[2])
		fmt.Fprintf(bw, "    outer loop\n")
		for _, v := range [][3]float32{t.V1, t.V2, t.V3} {
			fmt.Fprintf(bw, "      vertex %g %g %g\n", v[0], v[1], v[2])
		}
		fmt.Fprintf(bw, "    endloop\n")
		fmt.Fprintf(bw, "  endfacet\n")
	}
	fmt.Fprintf(bw, "endsolid %v\n", name)
	return bw.Flush()
}

// WriteASCIIFile writes m to filename as an ASCII STL file.
func WriteASCIIFile(filename string, m *surface.Mesh) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := WriteASCII(f, m); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %v", filename)
	}
	return f.Close()
}

func readASCII(r io.Reader) ([]Tri, error) {
	var tris []Tri
	var t Tri
	var nv int
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "facet":
			if len(fields) != 5 || fields[1] != "normal" {
				return nil, errors.Errorf("line %v: bad facet", line)
			}
			if err := parse3(&t.N, fields[2:]); err != nil {
				return nil, errors.Wrapf(err, "line %v", line)
			}
			nv = 0
		case "vertex":
			if len(fields) != 4 || nv > 2 {
				return nil, errors.Errorf("line %v: bad vertex", line)
			}
			dst := []*[3]float32{&t.V1, &t.V2, &t.V3}[nv]
			if err := parse3(dst, fields[1:]); err != nil {
				return nil, errors.Wrapf(err, "line %v", line)
			}
			nv++
		case "endfacet":
			if nv != 3 {
				return nil, errors.Errorf("line %v: facet has %v vertices", line, nv)
			}
			tris = append(tris, t)
			t = Tri{}
		}
	}
	return tris, scanner.Err()
}

func parse3(dst *[3]float32, fields []string) error {
	for i, f := range fields {
		if _, err := fmt.Sscan(f, &dst[i]); err != nil {
			return errors.Wrapf(err, "parse %q", f)
		}
	}
	return nil
}
