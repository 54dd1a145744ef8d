package voxels

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLabels(t *testing.T) {
	g := NewGrid([3]int{4, 3, 2})
	g.Set(1, 1, 0, 2)
	g.Set(3, 2, 1, 2)
	g.Set(0, 0, 1, 1)

	want := []*Label{
		{Value: 1, Count: 1, Min: [3]int{0, 0, 1}, Max: [3]int{0, 0, 1}},
		{Value: 2, Count: 2, Min: [3]int{1, 1, 0}, Max: [3]int{3, 2, 1}},
	}
	if diff := cmp.Diff(want, g.Labels()); diff != "" {
		t.Errorf("Labels mismatch (-want +got):\n%v", diff)
	}

	if got := NewGrid([3]int{2, 2, 2}).Labels(); len(got) != 0 {
		t.Errorf("empty grid Labels = %v, want none", got)
	}
}

func TestConnectedComponents(t *testing.T) {
	// Two slices of a 6x4 grid. Label 1 forms a U shape that only joins
	// in the second slice; label 2 has two separate blobs.
	slices := [][]int32{
		{
			1, 0, 1, 0, 2, 2,
			1, 0, 1, 0, 0, 0,
			0, 0, 0, 0, 0, 0,
			2, 0, 0, 0, 0, 0,
		},
		{
			1, 1, 1, 0, 0, 0,
			0, 0, 0, 0, 0, 0,
			0, 0, 0, 0, 0, 0,
			2, 0, 0, 0, 0, 0,
		},
	}
	g := NewGrid([3]int{6, 4, 2})
	for k, s := range slices {
		copy(g.Values[k*24:], s)
	}

	ids, comps := g.ConnectedComponents()

	want := []*Component{
		{Label: Label{Value: 1, Count: 7, Min: [3]int{0, 0, 0}, Max: [3]int{2, 1, 1}}, ID: 1, Index: 1},
		{Label: Label{Value: 2, Count: 2, Min: [3]int{4, 0, 0}, Max: [3]int{5, 0, 0}}, ID: 2, Index: 1},
		{Label: Label{Value: 2, Count: 2, Min: [3]int{0, 3, 0}, Max: [3]int{0, 3, 1}}, ID: 3, Index: 2},
	}
	if diff := cmp.Diff(want, comps); diff != "" {
		t.Errorf("components mismatch (-want +got):\n%v", diff)
	}

	tests := []struct {
		i, j, k int
		want    int32
	}{
		{0, 0, 0, 1},
		{2, 1, 0, 1},
		{1, 0, 1, 1},
		{1, 0, 0, 0},
		{5, 0, 0, 2},
		{0, 3, 1, 3},
	}
	for _, tt := range tests {
		if got := ids.At(tt.i, tt.j, tt.k); got != tt.want {
			t.Errorf("ids.At(%v,%v,%v) = %v, want %v", tt.i, tt.j, tt.k, got, tt.want)
		}
	}
}
