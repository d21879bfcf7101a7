// Package layout positions nodes: deterministic grid and circular
// arrangements, a force-directed simulation, and the state machine that
// decides which of them currently owns node positions.
package layout

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/graphlens/pkg/graphstore"
	"github.com/vanderheijden86/graphlens/pkg/model"
)

// DefaultCell is the grid cell size in simulation units.
const DefaultCell = 100

// SortBy selects the attribute static layouts order nodes by.
type SortBy int

const (
	SortNone SortBy = iota
	SortType
	SortTotalDegree
	SortInDegree
	SortOutDegree
)

var sortNames = map[string]SortBy{
	"":             SortNone,
	"none":         SortNone,
	"type":         SortType,
	"total-degree": SortTotalDegree,
	"total":        SortTotalDegree,
	"in-degree":    SortInDegree,
	"in":           SortInDegree,
	"out-degree":   SortOutDegree,
	"out":          SortOutDegree,
}

func (b SortBy) String() string {
	switch b {
	case SortType:
		return "type"
	case SortTotalDegree:
		return "total-degree"
	case SortInDegree:
		return "in-degree"
	case SortOutDegree:
		return "out-degree"
	}
	return "none"
}

// SortKey is a sort attribute plus direction.
type SortKey struct {
	By   SortBy
	Desc bool
}

// ParseSortKey parses an attribute name ("type", "total-degree",
// "in-degree", "out-degree") and an order ("asc" or "desc").
func ParseSortKey(by, order string) (SortKey, error) {
	b, ok := sortNames[strings.ToLower(by)]
	if !ok {
		return SortKey{}, fmt.Errorf("unknown sort attribute %q", by)
	}
	switch strings.ToLower(order) {
	case "", "asc":
		return SortKey{By: b}, nil
	case "desc":
		return SortKey{By: b, Desc: true}, nil
	}
	return SortKey{}, fmt.Errorf("unknown sort order %q", order)
}

// Sort orders ids by key. The sort is stable so ties keep their incoming
// order.
func Sort(store *graphstore.Store, ids []string, key SortKey) []string {
	out := slices.Clone(ids)
	if key.By == SortNone {
		return out
	}
	cmp := func(a, b string) int {
		switch key.By {
		case SortType:
			na, _ := store.Node(a)
			nb, _ := store.Node(b)
			return model.CompareIDs(na.TypeID, nb.TypeID)
		case SortTotalDegree:
			return store.DegreeOf(a, model.DirTotal) - store.DegreeOf(b, model.DirTotal)
		case SortInDegree:
			return store.DegreeOf(a, model.DirIn) - store.DegreeOf(b, model.DirIn)
		case SortOutDegree:
			return store.DegreeOf(a, model.DirOut) - store.DegreeOf(b, model.DirOut)
		}
		return 0
	}
	slices.SortStableFunc(out, func(a, b string) int {
		if key.Desc {
			return cmp(b, a)
		}
		return cmp(a, b)
	})
	return out
}

// Grid places ids row-major on a square grid ceil(sqrt(n)) cells wide.
func Grid(ids []string, cell float64) map[string]r2.Vec {
	if cell <= 0 {
		cell = DefaultCell
	}
	pos := make(map[string]r2.Vec, len(ids))
	if len(ids) == 0 {
		return pos
	}
	side := int(math.Ceil(math.Sqrt(float64(len(ids)))))
	for i, id := range ids {
		pos[id] = r2.Vec{
			X: float64(i%side) * cell,
			Y: float64(i/side) * cell,
		}
	}
	return pos
}

// Circular places ids evenly on the unit circle, starting at 12 o'clock.
// Screen y grows downwards, so increasing angle runs clockwise.
func Circular(ids []string) map[string]r2.Vec {
	pos := make(map[string]r2.Vec, len(ids))
	n := float64(len(ids))
	for i, id := range ids {
		a := 2*math.Pi*float64(i)/n - math.Pi/2
		pos[id] = r2.Vec{X: math.Cos(a), Y: math.Sin(a)}
	}
	return pos
}
