// Package scene holds the shared state of loaded segmentations and the 3D
// view that scene-based exporters render from.
//
// A Scene is not safe for concurrent use. Callers load one case at a time
// and Clear the scene before loading the next.
package scene

import (
	"github.com/pkg/errors"

	"github.com/gmlewis/segmesh/nifti"
	"github.com/gmlewis/segmesh/segmentation"
)

// Scene represents the loaded nodes and the 3D view.
type Scene struct {
	nodes []*segmentation.Segmentation
	view  *View
}

// New returns an empty scene with a single 3D view.
func New() *Scene {
	return &Scene{view: NewView("View1")}
}

// LoadSegmentation reads a label volume and adds it to the scene as a
// segmentation named name.
func (s *Scene) LoadSegmentation(filename, name string, opts segmentation.Options) (*segmentation.Segmentation, error) {
	vol, err := nifti.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "load segmentation")
	}
	node := segmentation.New(name, vol, opts)
	s.nodes = append(s.nodes, node)
	return node, nil
}

// Nodes returns the loaded segmentations in load order.
func (s *Scene) Nodes() []*segmentation.Segmentation {
	return s.nodes
}

// Node returns the first segmentation loaded under name.
func (s *Scene) Node(name string) (*segmentation.Segmentation, bool) {
	for _, n := range s.nodes {
		if n.Name() == name {
			return n, true
		}
	}
	return nil, false
}

// View returns the 3D view.
func (s *Scene) View() *View {
	return s.view
}

// Clear removes every loaded node. View settings are kept.
func (s *Scene) Clear() {
	for i := range s.nodes {
		s.nodes[i] = nil
	}
	s.nodes = s.nodes[:0]
}
