package export

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/gmlewis/segmesh/scene"
	"github.com/gmlewis/segmesh/surface"
)

// ExportGLTF exports m through view as prefix.gltf with its geometry in
// the external buffer prefix.bin.
func ExportGLTF(prefix string, view *scene.View, m *surface.Mesh) error {
	doc := gltf.NewDocument()
	doc.Asset.Generator = "segmesh"

	positions := make([][3]float32, len(m.Vertices))
	for i, v := range m.Vertices {
		positions[i] = [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
	}
	normals := make([][3]float32, len(m.Vertices))
	for i, n := range m.VertexNormals() {
		normals[i] = [3]float32{float32(n[0]), float32(n[1]), float32(n[2])}
	}
	indices := make([]uint32, 0, 3*len(m.Faces))
	for _, f := range m.Faces {
		indices = append(indices, uint32(f[0]), uint32(f[1]), uint32(f[2]))
	}

	doc.Materials = []*gltf.Material{{
		Name:        materialName(m),
		DoubleSided: true,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float64{m.Color[0], m.Color[1], m.Color[2], 1},
			MetallicFactor:  gltf.Float(0),
		},
	}}
	doc.Meshes = []*gltf.Mesh{{
		Name: m.Name,
		Primitives: []*gltf.Primitive{{
			Indices: gltf.Index(modeler.WriteIndices(doc, indices)),
			Attributes: gltf.PrimitiveAttributes{
				gltf.POSITION: modeler.WritePosition(doc, positions),
				gltf.NORMAL:   modeler.WriteNormal(doc, normals),
			},
			Material: gltf.Index(0),
		}},
	}}
	doc.Nodes = []*gltf.Node{{Name: m.Name, Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	if decorations := view.Decorations(m); len(decorations) > 0 {
		addDecorations(doc, decorations)
	}

	if len(doc.Buffers) == 0 {
		return errors.Errorf("gltf %v: no buffer written", prefix)
	}
	doc.Buffers[0].URI = filepath.Base(prefix) + GLTF.Companion

	if err := gltf.Save(doc, prefix+GLTF.Ext); err != nil {
		return errors.Wrapf(err, "save %v", prefix+GLTF.Ext)
	}
	return nil
}

// addDecorations adds each polyline as a line-strip mesh with its own node.
func addDecorations(doc *gltf.Document, decorations []scene.Polyline) {
	material := len(doc.Materials)
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name: decorationMaterial,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float64{1, 1, 1, 1},
		},
	})

	for _, d := range decorations {
		points := make([][3]float32, len(d.Points))
		for i, p := range d.Points {
			points[i] = [3]float32{float32(p[0]), float32(p[1]), float32(p[2])}
		}
		mesh := len(doc.Meshes)
		doc.Meshes = append(doc.Meshes, &gltf.Mesh{
			Name: d.Name,
			Primitives: []*gltf.Primitive{{
				Mode: gltf.PrimitiveLineStrip,
				Attributes: gltf.PrimitiveAttributes{
					gltf.POSITION: modeler.WritePosition(doc, points),
				},
				Material: gltf.Index(material),
			}},
		})
		doc.Nodes = append(doc.Nodes, &gltf.Node{Name: d.Name, Mesh: gltf.Index(mesh)})
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, len(doc.Nodes)-1)
	}
}
