package huffz

import (
	"bytes"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/seiflotfy/huffz/tree"
)

// cachedTree pairs a tree with the serialized frequencies it was built from, so a
// fingerprint collision is detected instead of returning the wrong tree.
type cachedTree struct {
	freqs []byte
	root  *tree.Node
}

// treeCache memoizes tree.Build by frequency table. Trees are never mutated after
// construction, so one tree may serve concurrent decodes.
type treeCache struct {
	lru *lru.Cache[uint64, cachedTree]
}

func newTreeCache(size int) (*treeCache, error) {
	c, err := lru.New[uint64, cachedTree](size)
	if err != nil {
		return nil, err
	}
	return &treeCache{lru: c}, nil
}

func (c *treeCache) get(f *FrequencyTable) *tree.Node {
	key := appendFrequencies(nil, f)
	sum := xxhash.Sum64(key)
	if hit, ok := c.lru.Get(sum); ok && bytes.Equal(hit.freqs, key) {
		return hit.root
	}
	root := tree.Build(f.Entries())
	c.lru.Add(sum, cachedTree{freqs: key, root: root})
	return root
}

func (c *treeCache) len() int {
	return c.lru.Len()
}
