package export

import (
	"github.com/pkg/errors"

	"github.com/gmlewis/segmesh/scene"
	"github.com/gmlewis/segmesh/stl"
	"github.com/gmlewis/segmesh/surface"
)

// WriteGeometry writes m to filename using a geometry writer (STL or PLY).
func WriteGeometry(filename string, m *surface.Mesh, f Format) error {
	switch f {
	case STL:
		return stl.WriteFile(filename, m)
	case PLY:
		return WritePLYFile(filename, m)
	}
	return errors.Wrapf(ErrUnsupportedFormat, "%v is not a geometry format", f)
}

// ExportScene exports m through view with a scene exporter (OBJ or GLTF).
// prefix is the output path without extension.
func ExportScene(prefix string, view *scene.View, m *surface.Mesh, f Format) error {
	switch f {
	case OBJ:
		return ExportOBJ(prefix, view, m)
	case GLTF:
		return ExportGLTF(prefix, view, m)
	}
	return errors.Wrapf(ErrUnsupportedFormat, "%v is not a scene format", f)
}

// Write exports m with the writer f calls for. prefix is the output path
// without extension.
func Write(prefix string, view *scene.View, m *surface.Mesh, f Format) error {
	if f.NeedsView {
		return ExportScene(prefix, view, m, f)
	}
	return WriteGeometry(prefix+f.Ext, m, f)
}
