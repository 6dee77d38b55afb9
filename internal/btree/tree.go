// Package btree implements an in-memory B+-tree index keyed by a single
// record.Key of a fixed kind, mapping keys to record.RID values.
//
// The tree's backing page file (see SPEC_FULL.md §6 and §9) exists only so
// that create/open/delete have filesystem semantics matching the rest of the
// engine; tree contents themselves are not persisted and are rebuilt empty
// on every OpenBtree, per the Non-goals.
package btree

import (
	"fmt"
	"log/slog"
	"strings"

	"go.uber.org/atomic"

	"github.com/arlobytes/pagedb/internal/pagefile"
	"github.com/arlobytes/pagedb/internal/record"
)

// Tree is one B+-tree index handle. Fan-out and key kind are bound to the
// handle at creation, not kept as process-wide state (SPEC_FULL.md §9, open
// question 3).
type Tree struct {
	name     string
	keyKind  record.KeyKind
	fanOut   int
	maxKeys  int
	minKeys  int
	root     *node
	numNodes int
	numEntries int

	file   *pagefile.File
	closed atomic.Bool
	log    *slog.Logger
}

// CreateBtree creates the tree's backing page file and returns a handle to a
// fresh, empty tree with key kind keyKind and fan-out parameter n (giving
// MAX_KEYS = 2n-1, MIN_KEYS = floor(MAX_KEYS/2)).
func CreateBtree(path string, keyKind record.KeyKind, n int) (*Tree, error) {
	if n < 1 {
		return nil, ErrInvalidFanOut
	}
	if err := pagefile.CreatePageFile(path, pagefile.DefaultPageSize); err != nil {
		return nil, err
	}
	f, err := pagefile.OpenPageFile(path, pagefile.DefaultPageSize)
	if err != nil {
		return nil, err
	}
	return newTree(f, keyKind, n), nil
}

// OpenBtree opens the tree's backing page file and returns a handle to a
// fresh, empty tree (see the package doc comment: contents are never
// persisted across close/open).
func OpenBtree(path string, keyKind record.KeyKind, n int) (*Tree, error) {
	if n < 1 {
		return nil, ErrInvalidFanOut
	}
	f, err := pagefile.OpenPageFile(path, pagefile.DefaultPageSize)
	if err != nil {
		return nil, err
	}
	return newTree(f, keyKind, n), nil
}

// DeleteBtree removes the tree's backing page file.
func DeleteBtree(path string) error {
	return pagefile.DestroyPageFile(path)
}

func newTree(f *pagefile.File, keyKind record.KeyKind, n int) *Tree {
	maxKeys := 2*n - 1
	t := &Tree{
		name:    f.Name(),
		keyKind: keyKind,
		fanOut:  n,
		maxKeys: maxKeys,
		minKeys: maxKeys / 2,
		root:    newLeaf(),
		numNodes: 1,
		file:    f,
		log:     slog.Default().With("component", "btree", "tree", f.Name()),
	}
	return t
}

// Close releases the backing page file. Further operations on t return
// ErrTreeClosed.
func (t *Tree) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	return t.file.ClosePageFile()
}

func (t *Tree) checkOpen() error {
	if t.closed.Load() {
		return ErrTreeClosed
	}
	return nil
}

func (t *Tree) checkKind(key record.Key) error {
	if key.Kind != t.keyKind {
		return fmt.Errorf("%w: tree holds %s keys, got %s", record.ErrKeyKindMismatch, t.keyKind, key.Kind)
	}
	return nil
}

// NumEntries returns the number of (key, RID) pairs currently in the tree.
func (t *Tree) NumEntries() int { return t.numEntries }

// NumNodes returns the number of nodes currently allocated in the tree.
func (t *Tree) NumNodes() int { return t.numNodes }

// KeyKind returns the key kind this tree was created with.
func (t *Tree) KeyKind() record.KeyKind { return t.keyKind }

// FindKey looks up key and returns its RID. Equality is checked at every
// node visited, internal or leaf, because a split promotes its middle entry
// entirely out of the child — some entries live only at the internal level
// (SPEC_FULL.md §9, open question 4).
func (t *Tree) FindKey(key record.Key) (record.RID, error) {
	if err := t.checkOpen(); err != nil {
		return record.NoRID, err
	}
	if err := t.checkKind(key); err != nil {
		return record.NoRID, err
	}
	n := t.root
	for {
		i, err := n.indexOf(key)
		if err != nil {
			return record.NoRID, err
		}
		if i < n.numKeys() {
			if eq, err := n.keys[i].Compare(key); err == nil && eq == 0 {
				return n.rids[i], nil
			}
		}
		if n.isLeaf {
			return record.NoRID, ErrKeyNotFound
		}
		n = n.children[i]
	}
}

// Insert adds (key, rid) to the tree, splitting nodes top-down as needed.
func (t *Tree) Insert(key record.Key, rid record.RID) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	if err := t.checkKind(key); err != nil {
		return err
	}
	if t.root.numKeys() == t.maxKeys {
		oldRoot := t.root
		newRoot := newInternal()
		newRoot.children = append(newRoot.children, oldRoot)
		t.root = newRoot
		t.numNodes++
		if err := t.splitChild(newRoot, 0); err != nil {
			return err
		}
	}
	t.numEntries++
	return t.insertNonFull(t.root, key, rid)
}

// splitChild splits the full child at parent.children[i] about its middle,
// promoting the middle (key, RID) into parent at position i.
func (t *Tree) splitChild(parent *node, i int) error {
	c := parent.children[i]
	mid := t.maxKeys / 2

	sibling := &node{isLeaf: c.isLeaf}
	sibling.keys = append(sibling.keys, c.keys[mid+1:]...)
	sibling.rids = append(sibling.rids, c.rids[mid+1:]...)
	if !c.isLeaf {
		sibling.children = append(sibling.children, c.children[mid+1:]...)
		c.children = c.children[:mid+1]
	}
	midKey, midRID := c.keys[mid], c.rids[mid]
	c.keys = c.keys[:mid]
	c.rids = c.rids[:mid]

	parent.insertAt(i, midKey, midRID)
	parent.insertChildAt(i+1, sibling)
	t.numNodes++
	return nil
}

func (t *Tree) insertNonFull(n *node, key record.Key, rid record.RID) error {
	i, err := n.indexOf(key)
	if err != nil {
		return err
	}
	if n.isLeaf {
		n.insertAt(i, key, rid)
		return nil
	}
	child := n.children[i]
	if child.numKeys() == t.maxKeys {
		if err := t.splitChild(n, i); err != nil {
			return err
		}
		if c, err := key.Compare(n.keys[i]); err == nil && c > 0 {
			i++
		}
	}
	return t.insertNonFull(n.children[i], key, rid)
}

// Delete removes key from the tree, rebalancing underflowing nodes on the
// way back up. Returns ErrKeyNotFound if key is absent.
func (t *Tree) Delete(key record.Key) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	if err := t.checkKind(key); err != nil {
		return err
	}
	found, err := t.deleteRecursive(t.root, key)
	if err != nil {
		return err
	}
	if !found {
		return ErrKeyNotFound
	}
	t.numEntries--
	if !t.root.isLeaf && t.root.numKeys() == 0 {
		t.root = t.root.children[0]
		t.numNodes--
	}
	return nil
}

// deleteRecursive removes key from the subtree rooted at n, reporting
// whether the key was found. Underflow handling runs after every recursive
// descent into a child, regardless of which of the three deletion cases
// applied to n itself — a uniform rule rather than the original's
// traverse-only repair, since the tree invariant ("every non-root node has
// >= MIN_KEYS keys") is unconditional.
func (t *Tree) deleteRecursive(n *node, key record.Key) (bool, error) {
	i, err := n.indexOf(key)
	if err != nil {
		return false, err
	}

	if i < n.numKeys() {
		if eq, err := n.keys[i].Compare(key); err == nil && eq == 0 {
			if n.isLeaf {
				n.removeAt(i)
				return true, nil
			}
			return true, t.deleteFromInternal(n, i)
		}
	}

	if n.isLeaf {
		return false, nil
	}

	found, err := t.deleteRecursive(n.children[i], key)
	if err != nil || !found {
		return found, err
	}
	t.handleUnderflow(n, i)
	return true, nil
}

// deleteFromInternal replaces n's entry at i (found in an internal node)
// with its in-order predecessor or successor, drawn from whichever adjacent
// child currently has enough keys to spare, then deletes that borrowed
// entry from the child it came from.
func (t *Tree) deleteFromInternal(n *node, i int) error {
	left := n.children[i]
	right := n.children[i+1]

	switch {
	case left.numKeys() >= t.minKeys:
		predKey, predRID := t.maxEntry(left)
		n.keys[i], n.rids[i] = predKey, predRID
		if _, err := t.deleteRecursive(left, predKey); err != nil {
			return err
		}
		t.handleUnderflow(n, i)
		return nil
	case right.numKeys() >= t.minKeys:
		succKey, succRID := t.minEntry(right)
		n.keys[i], n.rids[i] = succKey, succRID
		if _, err := t.deleteRecursive(right, succKey); err != nil {
			return err
		}
		t.handleUnderflow(n, i+1)
		return nil
	default:
		// Neither child can spare an entry: merge them (and n's separator)
		// into one node, then retry the deletion of the original entry,
		// which now lives inside the merged child.
		key, _ := n.keys[i], n.rids[i]
		t.mergeChildren(n, i)
		_, err := t.deleteRecursive(n.children[i], key)
		return err
	}
}

func (t *Tree) maxEntry(n *node) (record.Key, record.RID) {
	for !n.isLeaf {
		n = n.children[len(n.children)-1]
	}
	last := n.numKeys() - 1
	return n.keys[last], n.rids[last]
}

func (t *Tree) minEntry(n *node) (record.Key, record.RID) {
	for !n.isLeaf {
		n = n.children[0]
	}
	return n.keys[0], n.rids[0]
}

// handleUnderflow repairs n.children[i] if it has fewer than MIN_KEYS keys,
// by borrowing from a sibling or, failing that, merging with one.
func (t *Tree) handleUnderflow(n *node, i int) {
	child := n.children[i]
	if child.numKeys() >= t.minKeys {
		return
	}

	if i > 0 && n.children[i-1].numKeys() > t.minKeys {
		t.borrowFromLeft(n, i)
		return
	}
	if i < len(n.children)-1 && n.children[i+1].numKeys() > t.minKeys {
		t.borrowFromRight(n, i)
		return
	}
	if i > 0 {
		t.mergeChildren(n, i-1)
		return
	}
	t.mergeChildren(n, i)
}

// borrowFromLeft rotates the left sibling's last entry through parent[i-1]
// into child i.
func (t *Tree) borrowFromLeft(n *node, i int) {
	left := n.children[i-1]
	child := n.children[i]

	lastIdx := left.numKeys() - 1
	borrowedKey, borrowedRID := left.keys[lastIdx], left.rids[lastIdx]

	child.insertAt(0, n.keys[i-1], n.rids[i-1])
	n.keys[i-1], n.rids[i-1] = borrowedKey, borrowedRID
	left.removeAt(lastIdx)

	if !left.isLeaf {
		lastChild := left.children[len(left.children)-1]
		left.children = left.children[:len(left.children)-1]
		child.insertChildAt(0, lastChild)
	}
}

// borrowFromRight rotates the right sibling's first entry through
// parent[i] into child i.
func (t *Tree) borrowFromRight(n *node, i int) {
	right := n.children[i+1]
	child := n.children[i]

	borrowedKey, borrowedRID := right.keys[0], right.rids[0]

	child.insertAt(child.numKeys(), n.keys[i], n.rids[i])
	n.keys[i], n.rids[i] = borrowedKey, borrowedRID
	right.removeAt(0)

	if !right.isLeaf {
		firstChild := right.children[0]
		right.children = right.children[1:]
		child.insertChildAt(child.numKeys(), firstChild)
	}
}

// mergeChildren merges n.children[i], n.keys[i], and n.children[i+1] into a
// single node at position i, removing the separator and the right sibling.
func (t *Tree) mergeChildren(n *node, i int) {
	left := n.children[i]
	right := n.children[i+1]

	left.keys = append(left.keys, n.keys[i])
	left.rids = append(left.rids, n.rids[i])
	left.keys = append(left.keys, right.keys...)
	left.rids = append(left.rids, right.rids...)
	if !left.isLeaf {
		left.children = append(left.children, right.children...)
	}

	n.removeAt(i)
	n.removeChildAt(i + 1)
	t.numNodes--
}

// String renders the tree as an indented outline, for debugging and tests.
func (t *Tree) String() string {
	var b strings.Builder
	t.writeNode(&b, t.root, 0)
	return b.String()
}

func (t *Tree) writeNode(b *strings.Builder, n *node, depth int) {
	indent := strings.Repeat("  ", depth)
	for i, k := range n.keys {
		fmt.Fprintf(b, "%s%v -> %v\n", indent, k, n.rids[i])
		if !n.isLeaf {
			t.writeNode(b, n.children[i], depth+1)
		}
	}
	if !n.isLeaf {
		t.writeNode(b, n.children[len(n.children)-1], depth+1)
	}
}
