package btree

import "github.com/arlobytes/pagedb/internal/record"

// node is one B+-tree node: a leaf holds (key, RID) data entries; an
// internal node additionally holds numKeys+1 children, and its own
// (key, RID) pairs are separators promoted up from a child split (the RID
// travels with the key and is never duplicated in the child it came from —
// see SPEC_FULL.md §9 open question 4).
type node struct {
	isLeaf   bool
	keys     []record.Key
	rids     []record.RID
	children []*node
}

func newLeaf() *node {
	return &node{isLeaf: true}
}

func newInternal() *node {
	return &node{isLeaf: false}
}

func (n *node) numKeys() int { return len(n.keys) }

// indexOf returns the smallest index i such that key <= n.keys[i], or
// len(n.keys) if key is greater than every key in the node.
func (n *node) indexOf(key record.Key) (int, error) {
	i := 0
	for i < len(n.keys) {
		c, err := key.Compare(n.keys[i])
		if err != nil {
			return 0, err
		}
		if c <= 0 {
			break
		}
		i++
	}
	return i, nil
}

// insertAt inserts (key, rid) at position i, shifting later entries right.
func (n *node) insertAt(i int, key record.Key, rid record.RID) {
	n.keys = append(n.keys, record.Key{})
	copy(n.keys[i+1:], n.keys[i:])
	n.keys[i] = key

	n.rids = append(n.rids, record.RID{})
	copy(n.rids[i+1:], n.rids[i:])
	n.rids[i] = rid
}

// removeAt removes the entry at position i, shifting later entries left.
func (n *node) removeAt(i int) {
	n.keys = append(n.keys[:i], n.keys[i+1:]...)
	n.rids = append(n.rids[:i], n.rids[i+1:]...)
}

// insertChildAt inserts child at position i among n.children.
func (n *node) insertChildAt(i int, child *node) {
	n.children = append(n.children, nil)
	copy(n.children[i+1:], n.children[i:])
	n.children[i] = child
}

// removeChildAt removes the child at position i.
func (n *node) removeChildAt(i int) {
	n.children = append(n.children[:i], n.children[i+1:]...)
}
