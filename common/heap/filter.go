// Copyright 2022 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package heap

import (
	"container/heap"

	"golang.org/x/exp/constraints"
)

type Elem[T any, W constraints.Ordered] struct {
	Value  T
	Weight W
}

type entry[T any, W constraints.Ordered] struct {
	Elem[T, W]
	seq int
}

// _heap is a min-heap. Among equal weights, the later pushed element is smaller so
// that it is evicted first.
type _heap[T any, W constraints.Ordered] struct {
	entries []entry[T, W]
}

func (h *_heap[T, W]) Len() int {
	return len(h.entries)
}

func (h *_heap[T, W]) Less(i, j int) bool {
	if h.entries[i].Weight != h.entries[j].Weight {
		return h.entries[i].Weight < h.entries[j].Weight
	}
	return h.entries[i].seq > h.entries[j].seq
}

func (h *_heap[T, W]) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
}

func (h *_heap[T, W]) Push(x interface{}) {
	h.entries = append(h.entries, x.(entry[T, W]))
}

func (h *_heap[T, W]) Pop() interface{} {
	old := h.entries
	item := old[len(old)-1]
	h.entries = old[0 : len(old)-1]
	return item
}

// TopKFilter filters out top k items with maximum weights. Ties are resolved in favor
// of the element pushed first, so the output is a stable sort of the input.
type TopKFilter[T any, W constraints.Ordered] struct {
	_heap[T, W]
	k   int
	seq int
}

// NewTopKFilter creates a top k filter.
func NewTopKFilter[T any, W constraints.Ordered](k int) *TopKFilter[T, W] {
	return &TopKFilter[T, W]{k: k}
}

// Push pushes the element x onto the heap.
// The complexity is O(log n) where n = h.Count().
func (filter *TopKFilter[T, W]) Push(item T, weight W) {
	if filter.k <= 0 {
		return
	}
	heap.Push(&filter._heap, entry[T, W]{Elem: Elem[T, W]{Value: item, Weight: weight}, seq: filter.seq})
	filter.seq++
	if filter.Len() > filter.k {
		heap.Pop(&filter._heap)
	}
}

// PopAll pops all items in the filter with decreasing order.
func (filter *TopKFilter[T, W]) PopAll() []Elem[T, W] {
	elems := make([]Elem[T, W], filter.Len())
	for i := len(elems) - 1; i >= 0; i-- {
		elems[i] = heap.Pop(&filter._heap).(entry[T, W]).Elem
	}
	return elems
}

// PopAllValues pops all values in the filter with decreasing order of weights.
func (filter *TopKFilter[T, W]) PopAllValues() []T {
	elems := filter.PopAll()
	values := make([]T, len(elems))
	for i, elem := range elems {
		values[i] = elem.Value
	}
	return values
}
