package knn

import (
	"fmt"
	"slices"
	"strings"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/born-ml/pointops/internal/arena"
)

// Strategy selects how exact neighbors are found.
type Strategy int

const (
	// Auto uses the k-d tree for large reference sets and brute force otherwise.
	Auto Strategy = iota
	// Brute compares every query against every reference point.
	Brute
	// KDTree builds a per-element k-d tree for the duration of one call.
	KDTree
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case Auto:
		return "auto"
	case Brute:
		return "brute"
	case KDTree:
		return "kdtree"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy parses "auto", "brute" or "kdtree".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Auto, nil
	case "brute", "bruteforce", "flat":
		return Brute, nil
	case "kdtree", "kd-tree", "tree":
		return KDTree, nil
	default:
		return 0, fmt.Errorf("unknown knn strategy %q", s)
	}
}

// resolve picks the concrete strategy for a reference set of n points.
func (s Strategy) resolve(n, kdTreeMinPoints int) Strategy {
	if s != Auto {
		return s
	}
	if n >= kdTreeMinPoints {
		return KDTree
	}
	return Brute
}

// index answers exact k-nearest queries over one element's reference cloud.
// An index is acquired per batch element per call and released before the
// call returns.
type index interface {
	// Search appends the k nearest neighbors of q to dst[:0] in ascending
	// (distance, index) order.
	Search(q [arena.Dim]float64, k int, dst []Neighbor) []Neighbor
	Release()
}

func acquireIndex(ref arena.Cloud, s Strategy) (index, error) {
	switch s {
	case Brute:
		return &bruteIndex{ref: ref}, nil
	case KDTree:
		return newKDIndex(ref), nil
	default:
		return nil, fmt.Errorf("knn: unresolved strategy %s", s)
	}
}

// bruteIndex is the all-pairs scan.
type bruteIndex struct {
	ref arena.Cloud
}

func (b *bruteIndex) Search(q [arena.Dim]float64, k int, dst []Neighbor) []Neighbor {
	top := newTopK(k, dst)
	for i := 0; i < b.ref.Len(); i++ {
		top.Offer(Neighbor{Index: i, Dist: arena.SquaredDistance(b.ref.At(i), q)})
	}
	return top.Sorted()
}

func (b *bruteIndex) Release() {
	b.ref = nil
}

// kdIndex wraps a gonum k-d tree.
//
// The tree finds the k-th smallest distance r; a second radius query then
// collects every point within r so ties at the boundary are resolved by
// index exactly as the brute-force scan resolves them.
type kdIndex struct {
	tree *kdtree.Tree
	buf  []Neighbor
}

func newKDIndex(ref arena.Cloud) *kdIndex {
	pts := make(kdPoints, ref.Len())
	for i := range pts {
		pts[i] = kdPoint{p: ref.At(i), idx: i}
	}
	return &kdIndex{tree: kdtree.New(pts, false)}
}

func (t *kdIndex) Search(q [arena.Dim]float64, k int, dst []Neighbor) []Neighbor {
	query := kdPoint{p: q, idx: -1}

	nearest := kdtree.NewNKeeper(k)
	t.tree.NearestSet(nearest, query)
	r := 0.0
	for _, c := range nearest.Heap {
		if c.Comparable != nil && c.Dist > r {
			r = c.Dist
		}
	}

	// The margin only widens the candidate set; membership is decided below
	// with the exact distance.
	within := kdtree.NewDistKeeper(r + r*1e-9 + 1e-12)
	t.tree.NearestSet(within, query)

	cands := t.buf[:0]
	for _, c := range within.Heap {
		if c.Comparable == nil {
			continue
		}
		p := c.Comparable.(kdPoint)
		d := arena.SquaredDistance(p.p, q)
		if d <= r {
			cands = append(cands, Neighbor{Index: p.idx, Dist: d})
		}
	}
	slices.SortFunc(cands, func(a, b Neighbor) int {
		switch {
		case closer(a, b):
			return -1
		case closer(b, a):
			return 1
		default:
			return 0
		}
	})
	t.buf = cands

	return append(dst[:0], cands[:min(k, len(cands))]...)
}

func (t *kdIndex) Release() {
	t.tree = nil
	t.buf = nil
}

// kdPoint is a reference point that remembers its position in the element.
type kdPoint struct {
	p   [arena.Dim]float64
	idx int
}

// Compare returns the signed distance of p from the plane through c perpendicular to d.
func (p kdPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.p[d] - c.(kdPoint).p[d]
}

func (p kdPoint) Dims() int { return arena.Dim }

func (p kdPoint) Distance(c kdtree.Comparable) float64 {
	return arena.SquaredDistance(p.p, c.(kdPoint).p)
}

// kdPoints satisfies kdtree.Interface.
type kdPoints []kdPoint

func (p kdPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p kdPoints) Len() int                              { return len(p) }
func (p kdPoints) Pivot(d kdtree.Dim) int                { return kdPlane{Dim: d, kdPoints: p}.Pivot() }
func (p kdPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// kdPlane sorts points along one dimension for median selection.
type kdPlane struct {
	kdtree.Dim
	kdPoints
}

func (p kdPlane) Less(i, j int) bool {
	return p.kdPoints[i].p[p.Dim] < p.kdPoints[j].p[p.Dim]
}

func (p kdPlane) Pivot() int {
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.kdPoints = p.kdPoints[start:end]
	return p
}

func (p kdPlane) Swap(i, j int) {
	p.kdPoints[i], p.kdPoints[j] = p.kdPoints[j], p.kdPoints[i]
}
