package hnsw

import "container/heap"

// Compile time check to ensure candidateQueue satisfies the heap interface.
var _ heap.Interface = (*candidateQueue)(nil)

// candidate is one entry in a candidate queue: a graph node and its
// distance to the query.
type candidate struct {
	node     uint32
	distance float32
	index    int
}

// candidateQueue is a distance-ordered heap of graph nodes. With max
// set it behaves as a max-heap (furthest on top), which is what the
// search uses to cheaply evict the worst candidate; otherwise it is a
// min-heap.
type candidateQueue struct {
	max   bool
	items []*candidate
}

func (q *candidateQueue) Len() int { return len(q.items) }

func (q *candidateQueue) Less(i, j int) bool {
	if q.max {
		return q.items[i].distance > q.items[j].distance
	}
	return q.items[i].distance < q.items[j].distance
}

func (q *candidateQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].index, q.items[j].index = i, j
}

func (q *candidateQueue) Push(x any) {
	item, _ := x.(*candidate)
	item.index = len(q.items)
	q.items = append(q.items, item)
}

func (q *candidateQueue) Pop() any {
	old := q.items
	n := len(old)
	if n == 0 {
		return nil
	}
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	q.items = old[:n-1]
	return item
}

// top returns the head of the queue without removing it.
func (q *candidateQueue) top() *candidate {
	return q.items[0]
}
