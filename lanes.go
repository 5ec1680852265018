package danmaku

// LaneTable holds one ordered slice of placements per lane. Index 0 of a lane
// is its tail (oldest, leftmost); the last element is its head (newest).
// The table is a plain container: lane choice, motion and eviction live in
// Engine.
type LaneTable struct {
	lanes [][]*Placement
}

// NewLaneTable creates a table with n empty lanes. n < 1 is treated as 1.
func NewLaneTable(n int) *LaneTable {
	if n < 1 {
		n = 1
	}
	return &LaneTable{lanes: make([][]*Placement, n)}
}

// Len returns the number of lanes.
func (t *LaneTable) Len() int {
	return len(t.lanes)
}

// Lane returns the placements of lane i, tail first. The returned slice MUST
// NOT be mutated.
func (t *LaneTable) Lane(i int) []*Placement {
	return t.lanes[i]
}

// Head returns the newest placement in lane i, or nil if the lane is empty.
func (t *LaneTable) Head(i int) *Placement {
	l := t.lanes[i]
	if len(l) == 0 {
		return nil
	}
	return l[len(l)-1]
}

// ForEachLane calls fn for every lane in index order.
func (t *LaneTable) ForEachLane(fn func(i int, lane []*Placement)) {
	for i, l := range t.lanes {
		fn(i, l)
	}
}

// Append adds p as the new head of lane i.
func (t *LaneTable) Append(i int, p *Placement) {
	t.lanes[i] = append(t.lanes[i], p)
}

// Remove deletes p from lane i, preserving the order of the remaining
// placements. Reports whether p was found.
func (t *LaneTable) Remove(i int, p *Placement) bool {
	l := t.lanes[i]
	for j := range l {
		if l[j] == p {
			copy(l[j:], l[j+1:])
			l[len(l)-1] = nil
			t.lanes[i] = l[:len(l)-1]
			return true
		}
	}
	return false
}

// Clear empties every lane.
func (t *LaneTable) Clear() {
	for i := range t.lanes {
		clear(t.lanes[i])
		t.lanes[i] = t.lanes[i][:0]
	}
}

// Count returns the total number of placements across all lanes.
func (t *LaneTable) Count() int {
	n := 0
	for _, l := range t.lanes {
		n += len(l)
	}
	return n
}

// Empty reports whether every lane is empty.
func (t *LaneTable) Empty() bool {
	for _, l := range t.lanes {
		if len(l) > 0 {
			return false
		}
	}
	return true
}
