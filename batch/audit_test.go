package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gmlewis/segmesh/export"
	"github.com/gmlewis/segmesh/report"
)

func TestAudit(t *testing.T) {
	tmp := t.TempDir()
	data := filepath.Join(tmp, "Foo")
	writeCase(t, data, "s001", "heart", 1, 1, 2)
	mkCase(t, data, "s002")
	res := run(t, Config{DataRoot: data, ExportRoot: tmp, Label: "heart", Format: "obj"})

	if err := os.WriteFile(filepath.Join(res.OutputDir, "stray.obj"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	records, err := report.ReadFile(res.SummaryPath)
	if err != nil {
		t.Fatal(err)
	}
	cases, orphans, err := Audit(res.OutputDir, export.OBJ, records)
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}

	want := []CaseFiles{
		{Record: report.Record{PatientID: "s001", Status: 2}, Meshes: []string{"s001_Segment_1.obj", "s001_Segment_2.obj"}},
		{Record: report.Record{PatientID: "s002", Status: report.StatusMissing}},
	}
	if diff := cmp.Diff(want, cases); diff != "" {
		t.Errorf("cases mismatch (-want +got):\n%v", diff)
	}
	for _, c := range cases {
		if !c.OK() {
			t.Errorf("%v not OK", c.PatientID)
		}
	}
	if diff := cmp.Diff([]string{"stray.obj"}, orphans); diff != "" {
		t.Errorf("orphans mismatch (-want +got):\n%v", diff)
	}
}

func TestCaseFilesOK(t *testing.T) {
	tests := []struct {
		c    CaseFiles
		want bool
	}{
		{c: CaseFiles{Record: report.Record{Status: 2}, Meshes: []string{"a", "b"}}, want: true},
		{c: CaseFiles{Record: report.Record{Status: 2}, Meshes: []string{"a"}}, want: true},
		{c: CaseFiles{Record: report.Record{Status: 1}, Meshes: []string{"a", "b"}}},
		{c: CaseFiles{Record: report.Record{Status: report.StatusSkipped}, Meshes: []string{"a"}}},
		{c: CaseFiles{Record: report.Record{Status: report.StatusNoClosedSurface}}, want: true},
	}
	for i, tt := range tests {
		if got := tt.c.OK(); got != tt.want {
			t.Errorf("test #%v: OK = %v, want %v", i, got, tt.want)
		}
	}
}
