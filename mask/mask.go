package mask

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/fvapprox/model"
)

// Mask is a partition of items into groups.
type Mask struct {
	groupOf []int
	members []*roaring.Bitmap
}

// fromAssignment builds a mask from the group index of every item.
// Group indices must lie in [0, groups).
func fromAssignment(groupOf []int, groups int) *Mask {
	members := make([]*roaring.Bitmap, groups)
	for g := range members {
		members[g] = roaring.New()
	}
	for i, g := range groupOf {
		members[g].Add(uint32(i))
	}
	for _, bm := range members {
		bm.RunOptimize()
	}
	return &Mask{groupOf: groupOf, members: members}
}

// Groups returns the number of groups (rows of the matrix view).
func (m *Mask) Groups() int { return len(m.members) }

// Items returns the number of items (columns of the matrix view).
func (m *Mask) Items() int { return len(m.groupOf) }

// GroupOf returns the group owning item i.
func (m *Mask) GroupOf(i int) int { return m.groupOf[i] }

// Assignment returns a copy of the per-item group indices.
func (m *Mask) Assignment() []int {
	out := make([]int, len(m.groupOf))
	copy(out, m.groupOf)
	return out
}

// Members returns the items of group g. The bitmap is a copy.
func (m *Mask) Members(g int) *roaring.Bitmap { return m.members[g].Clone() }

// First returns the lowest item of group g.
func (m *Mask) First(g int) int { return int(m.members[g].Minimum()) }

// Sizes returns the number of items in each group.
func (m *Mask) Sizes() []int {
	out := make([]int, len(m.members))
	for g, bm := range m.members {
		out[g] = int(bm.GetCardinality())
	}
	return out
}

// Dense materializes the Groups() × Items() 0/1 matrix.
func (m *Mask) Dense() *mat.Dense {
	if m.Groups() == 0 || m.Items() == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(m.Groups(), m.Items(), nil)
	for g, bm := range m.members {
		it := bm.Iterator()
		for it.HasNext() {
			out.Set(g, int(it.Next()), 1)
		}
	}
	return out
}

// CheckItems returns a shape error unless the mask spans exactly n items.
func (m *Mask) CheckItems(what string, n int) error {
	if m.Items() != n {
		return &model.ShapeError{What: what, Expected: [2]int{m.Items(), 1}, Actual: [2]int{n, 1}}
	}
	return nil
}

func (m *Mask) String() string {
	return fmt.Sprintf("Mask(%dx%d)", m.Groups(), m.Items())
}
