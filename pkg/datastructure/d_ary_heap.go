package datastructure

import (
	"errors"
)

var ErrEmptyHeap = errors.New("heap is empty")

// PriorityQueueNode heap entry ordered by (rank, tie)
type PriorityQueueNode[T comparable] struct {
	rank    float64
	tie     int
	item    T
	itemPos int
}

func NewPriorityQueueNode[T comparable](rank float64, tie int, item T) *PriorityQueueNode[T] {
	return &PriorityQueueNode[T]{rank: rank, tie: tie, item: item}
}

func (p *PriorityQueueNode[T]) GetItem() T {
	return p.item
}

func (p *PriorityQueueNode[T]) GetRank() float64 {
	return p.rank
}

func (p *PriorityQueueNode[T]) GetTie() int {
	return p.tie
}

func (p *PriorityQueueNode[T]) less(o *PriorityQueueNode[T]) bool {
	if p.rank != o.rank {
		return p.rank < o.rank
	}
	return p.tie < o.tie
}

// MinHeap d-ary min heap with decrease-key
type MinHeap[T comparable] struct {
	heap []*PriorityQueueNode[T]
	d    int
}

func NewFourAryHeap[T comparable]() *MinHeap[T] {
	return NewdAryHeap[T](4)
}

func NewdAryHeap[T comparable](d int) *MinHeap[T] {
	return &MinHeap[T]{
		heap: make([]*PriorityQueueNode[T], 0),
		d:    d,
	}
}

func (h *MinHeap[T]) parent(index int) int {
	return (index - 1) / h.d
}

func (h *MinHeap[T]) heapifyUp(index int) {
	for index != 0 && h.heap[index].less(h.heap[h.parent(index)]) {
		h.swap(index, h.parent(index))
		index = h.parent(index)
	}
}

func (h *MinHeap[T]) heapifyDown(index int) {
	for {
		first := index*h.d + 1
		if first >= len(h.heap) {
			return
		}
		last := min(first+h.d, len(h.heap))

		smallest := first
		for i := first + 1; i < last; i++ {
			if h.heap[i].less(h.heap[smallest]) {
				smallest = i
			}
		}
		if !h.heap[smallest].less(h.heap[index]) {
			return
		}
		h.swap(index, smallest)
		index = smallest
	}
}

func (h *MinHeap[T]) swap(i, j int) {
	h.heap[i], h.heap[j] = h.heap[j], h.heap[i]
	h.heap[i].itemPos = i
	h.heap[j].itemPos = j
}

func (h *MinHeap[T]) IsEmpty() bool {
	return len(h.heap) == 0
}

func (h *MinHeap[T]) Size() int {
	return len(h.heap)
}

func (h *MinHeap[T]) Insert(node *PriorityQueueNode[T]) {
	h.heap = append(h.heap, node)
	node.itemPos = len(h.heap) - 1
	h.heapifyUp(node.itemPos)
}

// ExtractMin pops the smallest (rank, tie) node.
func (h *MinHeap[T]) ExtractMin() (*PriorityQueueNode[T], error) {
	if h.IsEmpty() {
		return nil, ErrEmptyHeap
	}
	root := h.heap[0]
	h.swap(0, len(h.heap)-1)
	h.heap = h.heap[:len(h.heap)-1]
	root.itemPos = -1
	if len(h.heap) > 0 {
		h.heapifyDown(0)
	}
	return root, nil
}

// DecreaseKey lowers the rank of a node still in the heap.
func (h *MinHeap[T]) DecreaseKey(node *PriorityQueueNode[T], rank float64, tie int) error {
	pos := node.itemPos
	if pos < 0 || pos >= len(h.heap) || h.heap[pos] != node {
		return errors.New("node is not in the heap")
	}
	if rank > node.rank || (rank == node.rank && tie > node.tie) {
		return errors.New("new key is larger than the current key")
	}
	node.rank = rank
	node.tie = tie
	h.heapifyUp(pos)
	return nil
}
