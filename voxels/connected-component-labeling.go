package voxels

import "sort"

// Component represents one 6-connected region of voxels sharing a label.
type Component struct {
	Label
	// ID is the value used for this component in the ID grid returned by
	// ConnectedComponents. IDs start at 1.
	ID int32
	// Index numbers the components of the same label from 1, in order of
	// first appearance in storage order.
	Index int
}

// ConnectedComponents labels the 6-connected components of every nonzero
// label. It returns a grid of component IDs (0 for background) and the
// components sorted by label value, then Index.
func (g *Grid) ConnectedComponents() (*Grid, []*Component) {
	ids := NewGrid(g.Dims)

	// First pass: provisional labels with equivalences.
	parent := []int32{0}
	find := func(x int32) int32 {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int32) {
		ra, rb := find(a), find(b)
		switch {
		case ra < rb:
			parent[rb] = ra
		case rb < ra:
			parent[ra] = rb
		}
	}

	g.each(func(i, j, k int, value int32) {
		var minLabel int32
		for _, n := range [][3]int{{i - 1, j, k}, {i, j - 1, k}, {i, j, k - 1}} {
			if g.At(n[0], n[1], n[2]) != value {
				continue
			}
			neighbor := ids.At(n[0], n[1], n[2])
			if minLabel == 0 {
				minLabel = neighbor
				continue
			}
			union(minLabel, neighbor)
			if neighbor < minLabel {
				minLabel = neighbor
			}
		}
		if minLabel == 0 {
			minLabel = int32(len(parent))
			parent = append(parent, minLabel)
		}
		ids.Set(i, j, k, minLabel)
	})

	// Second pass: resolve equivalences and renumber in order of first
	// appearance.
	renumber := map[int32]*Component{}
	perLabel := map[int32]int{}
	var comps []*Component
	ids.each(func(i, j, k int, provisional int32) {
		root := find(provisional)
		c, ok := renumber[root]
		if !ok {
			value := g.At(i, j, k)
			perLabel[value]++
			c = &Component{
				Label: Label{Value: value},
				ID:    int32(len(comps) + 1),
				Index: perLabel[value],
			}
			renumber[root] = c
			comps = append(comps, c)
		}
		c.add(i, j, k)
		ids.Set(i, j, k, c.ID)
	})

	sorted := append([]*Component(nil), comps...)
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a].Value != sorted[b].Value {
			return sorted[a].Value < sorted[b].Value
		}
		return sorted[a].Index < sorted[b].Index
	})
	return ids, sorted
}
