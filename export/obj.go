package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/gmlewis/segmesh/scene"
	"github.com/gmlewis/segmesh/surface"
)

const decorationMaterial = "decoration"

// ExportOBJ exports m through view as prefix.obj and its material
// library prefix.mtl.
func ExportOBJ(prefix string, view *scene.View, m *surface.Mesh) error {
	decorations := view.Decorations(m)
	mtlName := prefix + OBJ.Companion

	if err := writeFile(mtlName, func(w io.Writer) error {
		return writeMTL(w, m, len(decorations) > 0)
	}); err != nil {
		return err
	}
	return writeFile(prefix+OBJ.Ext, func(w io.Writer) error {
		return writeOBJ(w, filepath.Base(mtlName), m, decorations)
	})
}

func materialName(m *surface.Mesh) string {
	return strings.Join(strings.Fields(m.Name), "_") + "_material"
}

func writeMTL(w io.Writer, m *surface.Mesh, decorations bool) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# segmesh material library\n")
	fmt.Fprintf(bw, "newmtl %v\n", materialName(m))
	fmt.Fprintf(bw, "Ka 0 0 0\n")
	fmt.Fprintf(bw, "Kd %g %g %g\n", m.Color[0], m.Color[1], m.Color[2])
	fmt.Fprintf(bw, "Ks 0.2 0.2 0.2\n")
	fmt.Fprintf(bw, "Ns 40\n")
	fmt.Fprintf(bw, "d 1\n")
	fmt.Fprintf(bw, "illum 2\n")
	if decorations {
		fmt.Fprintf(bw, "\nnewmtl %v\n", decorationMaterial)
		fmt.Fprintf(bw, "Kd 1 1 1\n")
		fmt.Fprintf(bw, "illum 0\n")
	}
	return bw.Flush()
}

func writeOBJ(w io.Writer, mtllib string, m *surface.Mesh, decorations []scene.Polyline) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# segmesh\n")
	fmt.Fprintf(bw, "mtllib %v\n", mtllib)

	fmt.Fprintf(bw, "o %v\n", strings.Join(strings.Fields(m.Name), "_"))
	for _, v := range m.Vertices {
		fmt.Fprintf(bw, "v %g %g %g\n", v[0], v[1], v[2])
	}
	for _, n := range m.VertexNormals() {
		fmt.Fprintf(bw, "vn %g %g %g\n", n[0], n[1], n[2])
	}
	fmt.Fprintf(bw, "usemtl %v\n", materialName(m))
	for _, f := range m.Faces {
		a, b, c := f[0]+1, f[1]+1, f[2]+1
		fmt.Fprintf(bw, "f %v//%v %v//%v %v//%v\n", a, a, b, b, c, c)
	}

	next := len(m.Vertices) + 1
	for _, d := range decorations {
		fmt.Fprintf(bw, "o %v\n", d.Name)
		fmt.Fprintf(bw, "usemtl %v\n", decorationMaterial)
		for _, p := range d.Points {
			fmt.Fprintf(bw, "v %g %g %g\n", p[0], p[1], p[2])
		}
		fmt.Fprintf(bw, "l")
		for i := range d.Points {
			fmt.Fprintf(bw, " %v", next+i)
		}
		fmt.Fprintf(bw, "\n")
		next += len(d.Points)
	}
	return bw.Flush()
}

func writeFile(filename string, write func(w io.Writer) error) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %v", filename)
	}
	return f.Close()
}
