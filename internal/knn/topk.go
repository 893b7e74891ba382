package knn

// Neighbor is one candidate reference point for a query.
type Neighbor struct {
	Index int     // Reference point index within its batch element
	Dist  float64 // Squared Euclidean distance to the query
}

// closer orders neighbors by distance, then by ascending index.
func closer(a, b Neighbor) bool {
	if a.Dist != b.Dist {
		return a.Dist < b.Dist
	}
	return a.Index < b.Index
}

// topK keeps the k best neighbors seen so far in a bounded max-heap whose
// root is the current worst kept neighbor.
type topK struct {
	k     int
	items []Neighbor
}

func newTopK(k int, buf []Neighbor) *topK {
	return &topK{k: k, items: buf[:0]}
}

// Offer inserts n if it beats the worst kept neighbor.
func (t *topK) Offer(n Neighbor) {
	if len(t.items) < t.k {
		t.items = append(t.items, n)
		t.siftUp(len(t.items) - 1)
		return
	}
	if !closer(n, t.items[0]) {
		return
	}
	t.items[0] = n
	t.siftDown(0)
}

// Sorted drains the heap into ascending (distance, index) order.
func (t *topK) Sorted() []Neighbor {
	out := t.items
	for n := len(out); n > 1; n-- {
		out[0], out[n-1] = out[n-1], out[0]
		t.items = out[:n-1]
		t.siftDown(0)
	}
	t.items = out
	return out
}

// worse is the heap order: the root is the farthest neighbor.
func (t *topK) worse(i, j int) bool {
	return closer(t.items[j], t.items[i])
}

func (t *topK) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !t.worse(i, p) {
			return
		}
		t.items[i], t.items[p] = t.items[p], t.items[i]
		i = p
	}
}

func (t *topK) siftDown(i int) {
	n := len(t.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && t.worse(r, l) {
			best = r
		}
		if !t.worse(best, i) {
			return
		}
		t.items[i], t.items[best] = t.items[best], t.items[i]
		i = best
	}
}
