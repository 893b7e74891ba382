// Package arena stores a batch of point clouds as one flat coordinate buffer
// with per-element offsets and lengths.
//
// Every primitive converts its caller-layout tensors into a PointArena once,
// then hands each worker a read-only view of one element. Elements never share
// storage, so workers need no synchronization.
package arena

import (
	"fmt"

	"github.com/born-ml/pointops/internal/tensor"
)

// Dim is the coordinate width of every stored point.
const Dim = 3

// PointArena is a flat xyz buffer for B point clouds.
type PointArena struct {
	coords  []float64 // x0 y0 z0 x1 y1 z1 ... for all elements back to back
	offsets []int     // first point of element b
	lengths []int     // point count of element b
}

// New allocates an arena for elements of the given point counts.
func New(lengths []int) *PointArena {
	offsets := make([]int, len(lengths))
	total := 0
	for b, n := range lengths {
		offsets[b] = total
		total += n
	}
	return &PointArena{
		coords:  make([]float64, total*Dim),
		offsets: offsets,
		lengths: append([]int(nil), lengths...),
	}
}

// FromTensor copies a (B, N, 3) or (B, 3, N) float tensor into a new arena.
func FromTensor(t *tensor.RawTensor, layout tensor.Layout) (*PointArena, error) {
	if t.Rank() != 3 || !t.DType().IsFloat() {
		return nil, fmt.Errorf("arena: expected rank-3 float tensor, got %s %v", t.DType(), t.Shape())
	}
	pointAxis, coordAxis := layout.PointAxes()
	shape := t.Shape()
	if shape[coordAxis] != Dim {
		return nil, fmt.Errorf("arena: coordinate axis has size %d, want %d", shape[coordAxis], Dim)
	}

	batch, n := shape[0], shape[pointAxis]
	lengths := make([]int, batch)
	for b := range lengths {
		lengths[b] = n
	}
	a := New(lengths)

	src := t.Float64s()
	if layout == tensor.ChannelsLast {
		copy(a.coords, src)
		return a, nil
	}

	// (B, 3, N) -> interleaved xyz.
	for b := 0; b < batch; b++ {
		base := b * Dim * n
		dst := a.coords[b*n*Dim : (b+1)*n*Dim]
		for c := 0; c < Dim; c++ {
			row := src[base+c*n : base+(c+1)*n]
			for i, v := range row {
				dst[i*Dim+c] = v
			}
		}
	}
	return a, nil
}

// Len returns the number of batch elements.
func (a *PointArena) Len() int {
	return len(a.lengths)
}

// Points returns the point count of element b.
func (a *PointArena) Points(b int) int {
	return a.lengths[b]
}

// Element returns the interleaved coordinates of element b.
// The slice aliases the arena.
func (a *PointArena) Element(b int) Cloud {
	start := a.offsets[b] * Dim
	return Cloud(a.coords[start : start+a.lengths[b]*Dim])
}

// Cloud is one element's interleaved xyz coordinates.
type Cloud []float64

// Len returns the number of points.
func (c Cloud) Len() int {
	return len(c) / Dim
}

// At returns point i.
func (c Cloud) At(i int) [Dim]float64 {
	return [Dim]float64{c[i*Dim], c[i*Dim+1], c[i*Dim+2]}
}

// Set overwrites point i.
func (c Cloud) Set(i int, p [Dim]float64) {
	c[i*Dim], c[i*Dim+1], c[i*Dim+2] = p[0], p[1], p[2]
}

// SquaredDistance is the squared Euclidean distance between two points.
// Every primitive ranks by this one function so results agree bit for bit.
func SquaredDistance(p, q [Dim]float64) float64 {
	dx := p[0] - q[0]
	dy := p[1] - q[1]
	dz := p[2] - q[2]
	// Explicit conversions keep the compiler from fusing into FMA.
	return float64(dx*dx) + float64(dy*dy) + float64(dz*dz)
}
