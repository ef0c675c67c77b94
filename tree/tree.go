// Package tree builds Huffman prefix trees from symbol weights and derives code tables from them.
package tree

import "container/heap"

// Entry is one symbol of the alphabet together with its occurrence count.
type Entry struct {
	Symbol byte
	Count  uint64
}

// Node is a Huffman tree node.
//
// A leaf has no children and carries a Symbol. An internal node has a Zero child and,
// except for the root of a single-symbol tree, a One child. Weight of an internal node
// is the sum of its children's weights.
type Node struct {
	Symbol byte
	Weight uint64
	Zero   *Node
	One    *Node
}

// IsLeaf reports whether n carries a symbol.
func (n *Node) IsLeaf() bool {
	return n.Zero == nil && n.One == nil
}

// Child returns the child selected by bit, or nil when that branch is missing.
func (n *Node) Child(one bool) *Node {
	if one {
		return n.One
	}
	return n.Zero
}

// Leaves returns the number of leaves under n.
func (n *Node) Leaves() int {
	if n == nil {
		return 0
	}
	if n.IsLeaf() {
		return 1
	}
	return n.Zero.Leaves() + n.One.Leaves()
}

// item wraps a node with its insertion sequence so that equal weights pop in a fixed order.
type item struct {
	node *Node
	seq  int
}

type nodeHeap []item

func (h nodeHeap) Len() int { return len(h) }

func (h nodeHeap) Less(i, j int) bool {
	if h[i].node.Weight != h[j].node.Weight {
		return h[i].node.Weight < h[j].node.Weight
	}
	return h[i].seq < h[j].seq
}

func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *nodeHeap) Push(x any) {
	*h = append(*h, x.(item))
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Build constructs a Huffman tree from entries.
//
// Entries with a zero count are ignored. An empty input yields a nil root. A single
// distinct symbol yields an internal root whose Zero child is the only leaf, so that
// the symbol receives the one-bit code "0".
//
// Ties between equal weights are broken by insertion order: leaves are inserted in
// the order given, and each merged node is sequenced after everything already queued.
// Callers that need identical trees across runs must pass entries in the same order.
func Build(entries []Entry) *Node {
	h := make(nodeHeap, 0, len(entries))
	seq := 0
	for _, e := range entries {
		if e.Count == 0 {
			continue
		}
		h = append(h, item{node: &Node{Symbol: e.Symbol, Weight: e.Count}, seq: seq})
		seq++
	}
	switch len(h) {
	case 0:
		return nil
	case 1:
		only := h[0].node
		return &Node{Weight: only.Weight, Zero: only}
	}

	heap.Init(&h)
	for h.Len() > 1 {
		zero := heap.Pop(&h).(item).node
		one := heap.Pop(&h).(item).node
		heap.Push(&h, item{
			node: &Node{Weight: zero.Weight + one.Weight, Zero: zero, One: one},
			seq:  seq,
		})
		seq++
	}
	return heap.Pop(&h).(item).node
}
