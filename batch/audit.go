package batch

import (
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/gmlewis/segmesh/export"
	"github.com/gmlewis/segmesh/report"
)

// CaseFiles compares the recorded status of a case with the mesh files
// found for it in an output directory.
type CaseFiles struct {
	report.Record
	// Meshes lists the primary mesh files of the case, sorted.
	Meshes []string
}

// OK reports whether the files agree with the status: a case with a
// negative status has no meshes, and a case with n segments has at most n
// (segments without a surface are not written).
func (c CaseFiles) OK() bool {
	if c.Status < 0 {
		return len(c.Meshes) == 0
	}
	return len(c.Meshes) <= c.Status
}

// Audit matches the mesh files of format f in dir against records. Files
// that belong to no recorded case are returned as orphans.
func Audit(dir string, f export.Format, records []report.Record) (cases []CaseFiles, orphans []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, errors.Wrap(err, "audit")
	}

	byCase := map[string]*CaseFiles{}
	for _, r := range records {
		cases = append(cases, CaseFiles{Record: r})
	}
	for i := range cases {
		byCase[cases[i].PatientID] = &cases[i]
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, f.Ext) {
			continue
		}
		i := strings.Index(name, "_Segment_")
		if i < 0 {
			orphans = append(orphans, name)
			continue
		}
		c, ok := byCase[name[:i]]
		if !ok {
			orphans = append(orphans, name)
			continue
		}
		c.Meshes = append(c.Meshes, name)
	}

	for i := range cases {
		sort.Strings(cases[i].Meshes)
	}
	sort.Strings(orphans)
	return cases, orphans, nil
}
