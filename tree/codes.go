package tree

import (
	"errors"
	"strings"
)

// MaxCodeLen is the longest code a Table can hold.
//
// Reaching it requires a total weight on the order of the 66th Fibonacci number,
// far beyond any in-memory input.
const MaxCodeLen = 64

// ErrCodeTooLong is returned by Codes when a leaf sits deeper than MaxCodeLen.
var ErrCodeTooLong = errors.New("huffman code exceeds 64 bits")

// Code is a root-to-leaf path. The first edge taken is the most significant of the
// Len low bits of Bits; a Zero edge is bit 0 and a One edge is bit 1.
type Code struct {
	Bits uint64
	Len  int
}

// String renders the code as a string of '0' and '1' characters.
func (c Code) String() string {
	var sb strings.Builder
	sb.Grow(c.Len)
	for i := c.Len - 1; i >= 0; i-- {
		if c.Bits>>uint(i)&1 == 1 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// HasPrefix reports whether p is a prefix of c.
func (c Code) HasPrefix(p Code) bool {
	if p.Len > c.Len {
		return false
	}
	return c.Bits>>uint(c.Len-p.Len) == p.Bits
}

// Table maps every symbol to its code. Symbols absent from the tree have a zero Len.
type Table [256]Code

// Lookup returns the code for sym and whether sym is present.
func (t *Table) Lookup(sym byte) (Code, bool) {
	c := t[sym]
	return c, c.Len > 0
}

// Len returns the number of symbols with a code.
func (t *Table) Len() int {
	n := 0
	for i := range t {
		if t[i].Len > 0 {
			n++
		}
	}
	return n
}

// Codes walks root depth-first and returns the code of every leaf.
// A nil root yields an empty table.
func Codes(root *Node) (*Table, error) {
	t := new(Table)
	if root == nil {
		return t, nil
	}
	if root.IsLeaf() {
		// Only reachable for hand-built trees; Build always wraps a lone leaf.
		t[root.Symbol] = Code{Bits: 0, Len: 1}
		return t, nil
	}
	if err := assign(t, root, Code{}); err != nil {
		return nil, err
	}
	return t, nil
}

func assign(t *Table, n *Node, prefix Code) error {
	if n == nil {
		return nil
	}
	if n.IsLeaf() {
		t[n.Symbol] = prefix
		return nil
	}
	if prefix.Len == MaxCodeLen {
		return ErrCodeTooLong
	}
	if err := assign(t, n.Zero, Code{Bits: prefix.Bits << 1, Len: prefix.Len + 1}); err != nil {
		return err
	}
	return assign(t, n.One, Code{Bits: prefix.Bits<<1 | 1, Len: prefix.Len + 1})
}

// Depths returns the code length of every leaf symbol without materializing codes.
func Depths(root *Node) map[byte]int {
	depths := make(map[byte]int)
	var walk func(n *Node, d int)
	walk = func(n *Node, d int) {
		if n == nil {
			return
		}
		if n.IsLeaf() {
			if d == 0 {
				d = 1
			}
			depths[n.Symbol] = d
			return
		}
		walk(n.Zero, d+1)
		walk(n.One, d+1)
	}
	walk(root, 0)
	return depths
}
