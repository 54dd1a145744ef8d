package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/gmlewis/segmesh/export"
	"github.com/gmlewis/segmesh/nifti"
	"github.com/gmlewis/segmesh/report"
	"github.com/gmlewis/segmesh/segmentation"
)

// writeCase writes <root>/<id>/segmentations/<label>.nii.gz holding one
// small cube per label value.
func writeCase(t *testing.T, root, id, label string, spacing float64, labels ...int) {
	t.Helper()
	v := nifti.New([3]int{16, 8, 8}, [3]float64{spacing, spacing, spacing}, [3]float64{})
	for n, value := range labels {
		for k := 2; k < 5; k++ {
			for j := 2; j < 5; j++ {
				for i := 2 + 5*n; i < 5+5*n; i++ {
					v.Set(i, j, k, int32(value))
				}
			}
		}
	}
	dir := filepath.Join(root, id, "segmentations")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := nifti.WriteFile(filepath.Join(dir, label+".nii.gz"), v); err != nil {
		t.Fatal(err)
	}
}

// mkCase creates a case directory without a segmentation file.
func mkCase(t *testing.T, root, id string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(root, id, "segmentations"), 0755); err != nil {
		t.Fatal(err)
	}
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func run(t *testing.T, cfg Config) *Result {
	t.Helper()
	d, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func TestRun(t *testing.T) {
	tmp := t.TempDir()
	data := filepath.Join(tmp, "Foo")
	exportRoot := filepath.Join(tmp, "out", "nested")
	writeCase(t, data, "s001", "liver", 1, 1, 2)
	mkCase(t, data, "s002")
	writeCase(t, data, "s003", "liver", 1, 1)

	res := run(t, Config{
		DataRoot:   data,
		ExportRoot: exportRoot,
		Label:      "liver",
		Format:     "STL",
		Skip:       []string{"s003", "s999"},
	})

	wantRecords := []report.Record{
		{PatientID: "s001", Status: 2},
		{PatientID: "s002", Status: report.StatusMissing},
		{PatientID: "s003", Status: report.StatusSkipped},
	}
	if diff := cmp.Diff(wantRecords, res.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%v", diff)
	}
	if res.Processed != 2 {
		t.Errorf("Processed = %v, want 2", res.Processed)
	}
	if diff := cmp.Diff([]string{"s999"}, res.UnusedSkips); diff != "" {
		t.Errorf("UnusedSkips mismatch (-want +got):\n%v", diff)
	}

	if want := filepath.Join(exportRoot, "Foo__liver__stl"); res.OutputDir != want {
		t.Errorf("OutputDir = %v, want %v", res.OutputDir, want)
	}
	if diff := cmp.Diff([]string{"s001_Segment_1.stl", "s001_Segment_2.stl"}, listFiles(t, res.OutputDir)); diff != "" {
		t.Errorf("output files mismatch (-want +got):\n%v", diff)
	}

	if want := filepath.Join(exportRoot, "Foo__liver__stl__log.log"); res.SummaryPath != want {
		t.Errorf("SummaryPath = %v, want %v", res.SummaryPath, want)
	}
	buf, err := os.ReadFile(res.SummaryPath)
	if err != nil {
		t.Fatal(err)
	}
	wantLog := "s001 exported 2 segments\ns002 doesn't have segmentation\ns003 is skipped\n"
	if diff := cmp.Diff(wantLog, string(buf)); diff != "" {
		t.Errorf("summary log mismatch (-want +got):\n%v", diff)
	}
}

func TestRunTableSummary(t *testing.T) {
	tmp := t.TempDir()
	data := filepath.Join(tmp, "Foo")
	writeCase(t, data, "s001", "liver", 1, 1)
	mkCase(t, data, "s002")

	res := run(t, Config{
		DataRoot:   data,
		ExportRoot: tmp,
		Label:      "liver",
		Format:     "ply",
		Summary:    " XLSX ",
	})
	if want := filepath.Join(tmp, "Foo__liver__ply__log.xlsx"); res.SummaryPath != want {
		t.Errorf("SummaryPath = %v, want %v", res.SummaryPath, want)
	}
	got, err := report.ReadTable(res.SummaryPath)
	if err != nil {
		t.Fatal(err)
	}
	want := []report.Record{{PatientID: "s001", Status: 1}, {PatientID: "s002", Status: report.StatusMissing}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%v", diff)
	}
}

func TestRunDebugLimit(t *testing.T) {
	tmp := t.TempDir()
	data := filepath.Join(tmp, "Foo")
	for i := 1; i <= 12; i++ {
		mkCase(t, data, fmt.Sprintf("s%03d", i))
	}

	res := run(t, Config{DataRoot: data, ExportRoot: tmp, Label: "heart", Format: "stl", Debug: true})
	if res.Processed != 11 || len(res.Records) != 11 {
		t.Errorf("Processed = %v, records = %v, want 11 and 11", res.Processed, len(res.Records))
	}
	if last := res.Records[len(res.Records)-1].PatientID; last != "s011" {
		t.Errorf("last case = %v, want s011", last)
	}

	res = run(t, Config{DataRoot: data, ExportRoot: tmp, Label: "heart", Format: "stl"})
	if res.Processed != 12 {
		t.Errorf("Processed without debug = %v, want 12", res.Processed)
	}
}

func TestRunSkippedCasesDoNotCountTowardsDebugLimit(t *testing.T) {
	tmp := t.TempDir()
	data := filepath.Join(tmp, "Foo")
	var skip []string
	for i := 1; i <= 14; i++ {
		id := fmt.Sprintf("s%03d", i)
		mkCase(t, data, id)
		if i <= 3 {
			skip = append(skip, id)
		}
	}

	res := run(t, Config{DataRoot: data, ExportRoot: tmp, Label: "heart", Format: "stl", Debug: true, Skip: skip})
	if res.Processed != 11 || len(res.Records) != 14 {
		t.Errorf("Processed = %v, records = %v, want 11 and 14", res.Processed, len(res.Records))
	}
}

func TestRunOverwritesOutput(t *testing.T) {
	tmp := t.TempDir()
	data := filepath.Join(tmp, "Foo")
	writeCase(t, data, "s001", "heart", 1, 1)

	stale := filepath.Join(tmp, "Foo__heart__stl", "stale.stl")
	if err := os.MkdirAll(filepath.Dir(stale), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	res := run(t, Config{DataRoot: data, ExportRoot: tmp, Label: "heart", Format: "stl"})
	if res.OutputDir != filepath.Dir(stale) {
		t.Errorf("OutputDir = %v, want %v", res.OutputDir, filepath.Dir(stale))
	}
	if diff := cmp.Diff([]string{"s001_Segment_1.stl"}, listFiles(t, res.OutputDir)); diff != "" {
		t.Errorf("output files mismatch (-want +got):\n%v", diff)
	}
}

func TestRunStatuses(t *testing.T) {
	tmp := t.TempDir()
	data := filepath.Join(tmp, "Foo")
	writeCase(t, data, "s001", "heart", 0, 1) // zero spacing
	writeCase(t, data, "s002", "heart", 1)    // empty mask

	res := run(t, Config{DataRoot: data, ExportRoot: tmp, Label: "heart", Format: "stl"})
	want := []report.Record{
		{PatientID: "s001", Status: report.StatusNoClosedSurface},
		{PatientID: "s002", Status: 0},
	}
	if diff := cmp.Diff(want, res.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%v", diff)
	}
	if files := listFiles(t, res.OutputDir); len(files) != 0 {
		t.Errorf("unexpected output files %v", files)
	}
}

func TestRunSegmentWithoutSurface(t *testing.T) {
	tmp := t.TempDir()
	data := filepath.Join(tmp, "Foo")
	v := nifti.New([3]int{20, 20, 20}, [3]float64{1, 1, 1}, [3]float64{})
	for k := 1; k < 15; k++ {
		for j := 1; j < 15; j++ {
			for i := 1; i < 15; i++ {
				v.Set(i, j, k, 1)
			}
		}
	}
	// Too small to be sampled with a step of 5 voxels.
	v.Set(18, 18, 18, 2)
	dir := filepath.Join(data, "s001", "segmentations")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := nifti.WriteFile(filepath.Join(dir, "heart.nii.gz"), v); err != nil {
		t.Fatal(err)
	}

	res := run(t, Config{
		DataRoot:     data,
		ExportRoot:   tmp,
		Label:        "heart",
		Format:       "stl",
		Segmentation: segmentation.Options{Step: 5},
	})
	if diff := cmp.Diff([]report.Record{{PatientID: "s001", Status: 2}}, res.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%v", diff)
	}
	if diff := cmp.Diff([]string{"s001_Segment_1.stl"}, listFiles(t, res.OutputDir)); diff != "" {
		t.Errorf("output files mismatch (-want +got):\n%v", diff)
	}
}

func TestRunSceneFormats(t *testing.T) {
	for _, format := range []string{"obj", "gltf"} {
		t.Run(format, func(t *testing.T) {
			tmp := t.TempDir()
			data := filepath.Join(tmp, "Foo")
			writeCase(t, data, "s001", "heart", 1.5, 1, 2)

			d, err := New(Config{DataRoot: data, ExportRoot: tmp, Label: "heart", Format: format}, zerolog.Nop())
			if err != nil {
				t.Fatal(err)
			}
			res, err := d.Run(context.Background())
			if err != nil {
				t.Fatal(err)
			}

			f := d.Format()
			var want []string
			for _, id := range []string{"Segment_1", "Segment_2"} {
				want = append(want, f.Files("s001_"+id)...)
			}
			sort.Strings(want)
			if diff := cmp.Diff(want, listFiles(t, res.OutputDir)); diff != "" {
				t.Errorf("output files mismatch (-want +got):\n%v", diff)
			}
			if d.scene.View().BoxVisible() || d.scene.View().AxisLabelsVisible() {
				t.Errorf("view decorations still visible after a scene export")
			}

			if f == export.OBJ {
				buf, err := os.ReadFile(filepath.Join(res.OutputDir, "s001_Segment_1.obj"))
				if err != nil {
					t.Fatal(err)
				}
				if strings.Contains(string(buf), "\nl ") {
					t.Errorf("obj contains view decorations")
				}
			}
		})
	}
}

func TestRunExtras(t *testing.T) {
	tmp := t.TempDir()
	data := filepath.Join(tmp, "Foo")
	writeCase(t, data, "s001", "heart", 1, 1, 2)

	res := run(t, Config{
		DataRoot:   data,
		ExportRoot: tmp,
		Label:      "heart",
		Format:     "stl",
		Binvox:     true,
		Preview:    true,
		Zip:        true,
	})
	want := []string{
		"s001_Segment_1.binvox", "s001_Segment_1.stl",
		"s001_Segment_2.binvox", "s001_Segment_2.stl",
		"s001_preview.png",
	}
	if diff := cmp.Diff(want, listFiles(t, res.OutputDir)); diff != "" {
		t.Errorf("output files mismatch (-want +got):\n%v", diff)
	}
	if fi, err := os.Stat(res.ArchivePath); err != nil || fi.Size() == 0 {
		t.Errorf("Stat(%v) = %v, %v", res.ArchivePath, fi, err)
	}
}

func TestRunSplitComponents(t *testing.T) {
	tmp := t.TempDir()
	data := filepath.Join(tmp, "Foo")
	writeCase(t, data, "s001", "rib", 1, 3, 3)

	res := run(t, Config{
		DataRoot:     data,
		ExportRoot:   tmp,
		Label:        "rib",
		Format:       "stl",
		Segmentation: segmentation.Options{SplitComponents: true},
	})
	if diff := cmp.Diff([]string{"s001_Segment_3_1.stl", "s001_Segment_3_2.stl"}, listFiles(t, res.OutputDir)); diff != "" {
		t.Errorf("output files mismatch (-want +got):\n%v", diff)
	}
}

func TestRunEngineErrorFlushesSummary(t *testing.T) {
	tmp := t.TempDir()
	data := filepath.Join(tmp, "Foo")
	writeCase(t, data, "s001", "heart", 1, 1)
	mkCase(t, data, "s002")
	if err := os.WriteFile(filepath.Join(data, "s002", "segmentations", "heart.nii.gz"), []byte("corrupt"), 0644); err != nil {
		t.Fatal(err)
	}
	writeCase(t, data, "s003", "heart", 1, 1)

	d, err := New(Config{DataRoot: data, ExportRoot: tmp, Label: "heart", Format: "stl"}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	res, err := d.Run(context.Background())
	if err == nil {
		t.Fatalf("Run succeeded on a corrupt volume")
	}
	buf, rerr := os.ReadFile(res.SummaryPath)
	if rerr != nil {
		t.Fatal(rerr)
	}
	if got, want := string(buf), "s001 exported 1 segments\n"; got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
	if len(d.scene.Nodes()) != 0 {
		t.Errorf("scene not cleared after failure")
	}
}

func TestRunOversizedVolumeFlushesSummary(t *testing.T) {
	tmp := t.TempDir()
	data := filepath.Join(tmp, "Foo")
	writeCase(t, data, "s001", "heart", 1, 1)
	mkCase(t, data, "s002")
	v := nifti.New([3]int{2, 2, 2}, [3]float64{1, 1, 1}, [3]float64{})
	v.Header.Dim[1], v.Header.Dim[2], v.Header.Dim[3] = 1000, 1000, 500
	if err := nifti.WriteFile(filepath.Join(data, "s002", "segmentations", "heart.nii.gz"), v); err != nil {
		t.Fatal(err)
	}

	d, err := New(Config{DataRoot: data, ExportRoot: tmp, Label: "heart", Format: "stl", Summary: report.KindTable}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	res, err := d.Run(context.Background())
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("Run = %v, want %v", err, io.ErrUnexpectedEOF)
	}
	got, err := report.ReadTable(res.SummaryPath)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]report.Record{{PatientID: "s001", Status: 1}}, got); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%v", diff)
	}
}

func TestRunCanceled(t *testing.T) {
	tmp := t.TempDir()
	data := filepath.Join(tmp, "Foo")
	mkCase(t, data, "s001")

	d, err := New(Config{DataRoot: data, ExportRoot: tmp, Label: "heart", Format: "stl"}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := d.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want %v", err, context.Canceled)
	}
	if len(res.Records) != 0 {
		t.Errorf("records = %v, want none", res.Records)
	}
}

func TestNewErrors(t *testing.T) {
	tmp := t.TempDir()
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "format", cfg: Config{DataRoot: tmp, ExportRoot: tmp, Label: "heart", Format: "fbx"}},
		{name: "summary", cfg: Config{DataRoot: tmp, ExportRoot: tmp, Label: "heart", Format: "stl", Summary: "csv"}},
		{name: "label", cfg: Config{DataRoot: tmp, ExportRoot: tmp, Format: "stl"}},
		{name: "paths", cfg: Config{Label: "heart", Format: "stl"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg, zerolog.Nop()); err == nil {
				t.Errorf("New succeeded")
			}
		})
	}

	exportRoot := filepath.Join(tmp, "never")
	_, err := New(Config{DataRoot: tmp, ExportRoot: exportRoot, Label: "heart", Format: "fbx"}, zerolog.Nop())
	if !errors.Is(err, export.ErrUnsupportedFormat) {
		t.Errorf("New = %v, want %v", err, export.ErrUnsupportedFormat)
	}
	if _, err := os.Stat(exportRoot); err == nil {
		t.Errorf("export root created for an invalid config")
	}
}
