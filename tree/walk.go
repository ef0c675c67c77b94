package tree

import "errors"

// ErrDeadEnd is returned when a bit selects a branch the tree does not have.
var ErrDeadEnd = errors.New("huffman traversal reached a missing branch")

// Walker decodes symbols by descending the tree one bit at a time.
type Walker struct {
	root *Node
	cur  *Node
}

// NewWalker returns a walker positioned at root.
func NewWalker(root *Node) *Walker {
	return &Walker{root: root, cur: root}
}

// Step descends along bit. When a leaf is reached its symbol is returned with
// ok set, and the walker resets to the root.
func (w *Walker) Step(one bool) (sym byte, ok bool, err error) {
	if w.cur == nil {
		return 0, false, ErrDeadEnd
	}
	next := w.cur.Child(one)
	if next == nil {
		return 0, false, ErrDeadEnd
	}
	if next.IsLeaf() {
		w.cur = w.root
		return next.Symbol, true, nil
	}
	w.cur = next
	return 0, false, nil
}

// AtRoot reports whether the walker is between symbols.
func (w *Walker) AtRoot() bool {
	return w.cur == w.root
}
