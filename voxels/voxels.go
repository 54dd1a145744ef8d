// Package voxels analyzes dense 3D label grids.
package voxels

import "sort"

// Grid represents a dense 3D grid of integer labels where 0 is background.
// Values are stored with i varying fastest, then j, then k.
type Grid struct {
	Dims   [3]int
	Values []int32
}

// NewGrid returns an all-background grid with the given dimensions.
func NewGrid(dims [3]int) *Grid {
	return &Grid{Dims: dims, Values: make([]int32, dims[0]*dims[1]*dims[2])}
}

// Index returns the offset of voxel (i,j,k) in Values.
func (g *Grid) Index(i, j, k int) int {
	return i + g.Dims[0]*(j+g.Dims[1]*k)
}

// InBounds reports whether (i,j,k) lies inside the grid.
func (g *Grid) InBounds(i, j, k int) bool {
	return i >= 0 && j >= 0 && k >= 0 && i < g.Dims[0] && j < g.Dims[1] && k < g.Dims[2]
}

// At returns the label of voxel (i,j,k), or 0 outside the grid.
func (g *Grid) At(i, j, k int) int32 {
	if !g.InBounds(i, j, k) {
		return 0
	}
	return g.Values[g.Index(i, j, k)]
}

// Set sets the label of voxel (i,j,k).
func (g *Grid) Set(i, j, k int, label int32) {
	g.Values[g.Index(i, j, k)] = label
}

// Label summarizes all voxels carrying one label value.
type Label struct {
	Value int32
	Count int
	// Min and Max are the inclusive voxel bounding box.
	Min, Max [3]int
}

func (l *Label) add(i, j, k int) {
	p := [3]int{i, j, k}
	if l.Count == 0 {
		l.Min, l.Max = p, p
	} else {
		for n := range p {
			if p[n] < l.Min[n] {
				l.Min[n] = p[n]
			}
			if p[n] > l.Max[n] {
				l.Max[n] = p[n]
			}
		}
	}
	l.Count++
}

// Labels returns the statistics of every nonzero label in ascending
// label order.
func (g *Grid) Labels() []*Label {
	byValue := map[int32]*Label{}
	g.each(func(i, j, k int, value int32) {
		l, ok := byValue[value]
		if !ok {
			l = &Label{Value: value}
			byValue[value] = l
		}
		l.add(i, j, k)
	})

	// Generate labels in consistent, repeatable order.
	result := make([]*Label, 0, len(byValue))
	for _, l := range byValue {
		result = append(result, l)
	}
	sort.Slice(result, func(a, b int) bool { return result[a].Value < result[b].Value })
	return result
}

// each calls f for every nonzero voxel in storage order.
func (g *Grid) each(f func(i, j, k int, value int32)) {
	var n int
	for k := 0; k < g.Dims[2]; k++ {
		for j := 0; j < g.Dims[1]; j++ {
			for i := 0; i < g.Dims[0]; i++ {
				if v := g.Values[n]; v != 0 {
					f(i, j, k, v)
				}
				n++
			}
		}
	}
}
