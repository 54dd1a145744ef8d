// Package export writes segment surfaces to mesh files.
//
// STL and PLY are plain geometry writers. OBJ and GLTF render through the
// scene view, so decorations that are visible in the view end up in the
// exported file as line geometry.
package export

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrUnsupportedFormat is returned by ParseFormat for unknown formats.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Format describes one supported output format.
type Format struct {
	// Name is the lower-case format name used in directory names.
	Name string
	// Ext is the extension of the primary file, including the dot.
	Ext string
	// Companion is the extension of the file written alongside the
	// primary one, if any.
	Companion string
	// Binary reports whether the primary file is binary.
	Binary bool
	// NeedsView reports whether the format is exported through the
	// scene view rather than written from geometry alone.
	NeedsView bool
}

// The supported formats.
var (
	STL  = Format{Name: "stl", Ext: ".stl", Binary: true}
	PLY  = Format{Name: "ply", Ext: ".ply", Binary: true}
	OBJ  = Format{Name: "obj", Ext: ".obj", Companion: ".mtl", NeedsView: true}
	GLTF = Format{Name: "gltf", Ext: ".gltf", Companion: ".bin", NeedsView: true}
)

// Formats returns every supported format.
func Formats() []Format {
	return []Format{OBJ, STL, PLY, GLTF}
}

// ParseFormat returns the format with the given name, ignoring case.
func ParseFormat(name string) (Format, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, f := range Formats() {
		if f.Name == n {
			return f, nil
		}
	}
	return Format{}, errors.Wrapf(ErrUnsupportedFormat, "%q", name)
}

func (f Format) String() string { return f.Name }

// Files returns the names of the files written for the given prefix.
func (f Format) Files(prefix string) []string {
	files := []string{prefix + f.Ext}
	if f.Companion != "" {
		files = append(files, prefix+f.Companion)
	}
	return files
}
