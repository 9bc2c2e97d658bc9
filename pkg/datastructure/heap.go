// Package datastructure holds the addressable priority queue shared by the
// coarseners and the refiners.
package datastructure

import (
	"cmp"
	"container/heap"
)

// MaxHeap is an addressable max-priority queue over dense int ids in
// [0, capacity). Keys can be updated or removed by id in O(log n). Equal
// keys are ordered by ascending id so that Top is deterministic.
type MaxHeap[K cmp.Ordered] struct {
	q queue[K]
}

type item[K cmp.Ordered] struct {
	id  int
	key K
}

// queue implements heap.Interface. pos[id] is the index of id in items or -1.
type queue[K cmp.Ordered] struct {
	items []item[K]
	pos   []int
}

func (q *queue[K]) Len() int { return len(q.items) }

func (q *queue[K]) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.key != b.key {
		return a.key > b.key
	}
	return a.id < b.id
}

func (q *queue[K]) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.pos[q.items[i].id] = i
	q.pos[q.items[j].id] = j
}

func (q *queue[K]) Push(x any) {
	it := x.(item[K])
	q.pos[it.id] = len(q.items)
	q.items = append(q.items, it)
}

func (q *queue[K]) Pop() any {
	last := len(q.items) - 1
	it := q.items[last]
	q.items = q.items[:last]
	q.pos[it.id] = -1
	return it
}

// NewMaxHeap creates an empty heap for ids in [0, capacity).
func NewMaxHeap[K cmp.Ordered](capacity int) *MaxHeap[K] {
	pos := make([]int, capacity)
	for i := range pos {
		pos[i] = -1
	}
	return &MaxHeap[K]{q: queue[K]{pos: pos}}
}

func (h *MaxHeap[K]) Len() int { return h.q.Len() }

func (h *MaxHeap[K]) Empty() bool { return h.q.Len() == 0 }

// Contains reports whether id is in the heap.
func (h *MaxHeap[K]) Contains(id int) bool { return h.q.pos[id] >= 0 }

// Push inserts id, which must not be contained yet.
func (h *MaxHeap[K]) Push(id int, key K) {
	heap.Push(&h.q, item[K]{id: id, key: key})
}

// Update sets the key of a contained id.
func (h *MaxHeap[K]) Update(id int, key K) {
	i := h.q.pos[id]
	h.q.items[i].key = key
	heap.Fix(&h.q, i)
}

// Upsert inserts id or updates its key.
func (h *MaxHeap[K]) Upsert(id int, key K) {
	if h.Contains(id) {
		h.Update(id, key)
		return
	}
	h.Push(id, key)
}

// Key returns the key of a contained id.
func (h *MaxHeap[K]) Key(id int) K { return h.q.items[h.q.pos[id]].key }

// Remove deletes id if it is contained.
func (h *MaxHeap[K]) Remove(id int) {
	if i := h.q.pos[id]; i >= 0 {
		heap.Remove(&h.q, i)
	}
}

// Top returns the id and key with the largest key without removing it.
func (h *MaxHeap[K]) Top() (int, K) {
	it := h.q.items[0]
	return it.id, it.key
}

// Pop removes and returns the entry with the largest key.
func (h *MaxHeap[K]) Pop() (int, K) {
	it := heap.Pop(&h.q).(item[K])
	return it.id, it.key
}

// Clear empties the heap, keeping its capacity.
func (h *MaxHeap[K]) Clear() {
	for _, it := range h.q.items {
		h.q.pos[it.id] = -1
	}
	h.q.items = h.q.items[:0]
}
