package batch

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/gmlewis/segmesh/binvox"
	"github.com/gmlewis/segmesh/export"
	"github.com/gmlewis/segmesh/report"
	"github.com/gmlewis/segmesh/scene"
	"github.com/gmlewis/segmesh/segmentation"
	"github.com/gmlewis/segmesh/surface"
)

// Exporter writes the segment surfaces of one segmentation volume.
type Exporter struct {
	Scene   *scene.Scene
	Format  export.Format
	Options segmentation.Options
	// Binvox also writes each segment mask as <prefix>.binvox.
	Binvox bool
	// Preview renders all surfaces of a case to <case>_preview.png.
	Preview bool

	log zerolog.Logger
}

// NewExporter returns an exporter writing format f through sc.
func NewExporter(sc *scene.Scene, f export.Format, logger zerolog.Logger) *Exporter {
	return &Exporter{Scene: sc, Format: f, log: logger}
}

// CaseName returns the case a segmentation file belongs to: the directory
// two levels above it.
func CaseName(path string) string {
	return filepath.Base(filepath.Dir(filepath.Dir(path)))
}

// ExportSegmentation loads the volume at path into the scene and writes
// one mesh per segment with a closed surface into dest. It returns the
// number of segments of the volume, or report.StatusNoClosedSurface when
// no closed surface could be generated. The caller clears the scene.
func (e *Exporter) ExportSegmentation(path, dest string) (int, error) {
	name := CaseName(path)
	node, err := e.Scene.LoadSegmentation(path, name, e.Options)
	if err != nil {
		return 0, err
	}

	if !node.CreateClosedSurfaceRepresentation() {
		return report.StatusNoClosedSurface, nil
	}

	n := node.NumberOfSegments()
	if n == 0 {
		return 0, nil
	}

	view := e.Scene.View()
	if e.Format.NeedsView {
		view.SetAxisLabelsVisible(false)
		view.SetBoxVisible(false)
	}

	var meshes []*surface.Mesh
	for i := 0; i < n; i++ {
		id := node.NthSegmentID(i)
		m, ok := node.ClosedSurface(id)
		if !ok {
			e.log.Debug().Str("case", name).Str("segment", id).Msg("no closed surface for segment, skipping")
			continue
		}

		prefix := filepath.Join(dest, fmt.Sprintf("%v_%v", name, id))
		e.log.Info().Msgf("Writing: %v", prefix+e.Format.Ext)
		if err := export.Write(prefix, view, m, e.Format); err != nil {
			return 0, errors.Wrapf(err, "export %v", id)
		}

		if e.Binvox {
			seg, _ := node.Segment(id)
			if err := binvox.Write(prefix+".binvox", node, seg); err != nil {
				return 0, err
			}
		}
		meshes = append(meshes, m)
	}

	if e.Preview && len(meshes) > 0 {
		filename := filepath.Join(dest, name+"_preview.png")
		e.log.Info().Msgf("Writing: %v", filename)
		if err := view.Snapshot(filename, meshes); err != nil {
			return 0, err
		}
	}

	return n, nil
}
