package zipper

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zip"
)

func TestArchive(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "Totalsegmentator_dataset__heart__stl")
	files := map[string]string{
		"s0001_Segment_1.stl": "solid a",
		"s0002_Segment_1.stl": "solid b",
		"sub/notes.txt":       "hello",
	}
	for name, body := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}

	zipName := filepath.Join(root, "out.zip")
	if err := Archive(dir, zipName); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	r, err := zip.OpenReader(zipName)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	got := map[string]string{}
	var order []string
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		buf, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		got[f.Name] = string(buf)
		order = append(order, f.Name)
	}

	want := map[string]string{
		"Totalsegmentator_dataset__heart__stl/s0001_Segment_1.stl": "solid a",
		"Totalsegmentator_dataset__heart__stl/s0002_Segment_1.stl": "solid b",
		"Totalsegmentator_dataset__heart__stl/sub/notes.txt":       "hello",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("archive mismatch (-want +got):\n%v", diff)
	}
	if diff := cmp.Diff([]string{
		"Totalsegmentator_dataset__heart__stl/s0001_Segment_1.stl",
		"Totalsegmentator_dataset__heart__stl/s0002_Segment_1.stl",
		"Totalsegmentator_dataset__heart__stl/sub/notes.txt",
	}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%v", diff)
	}
}

func TestArchiveMissingDir(t *testing.T) {
	root := t.TempDir()
	if err := Archive(filepath.Join(root, "missing"), filepath.Join(root, "out.zip")); err == nil {
		t.Errorf("Archive of missing directory succeeded")
	}
}
