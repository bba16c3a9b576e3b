// Package btree implements a disk-backed B+tree index over fixed-size
// records keyed by a signed 32-bit integer, built on top of the pager.
package btree

import (
	"sort"

	"github.com/sirupsen/logrus"

	"tinysqlite/pager"
)

// Options configures a Tree.
type Options struct {
	Pager  pager.Options
	Logger logrus.FieldLogger
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}

// Tree is a disk-backed B+tree over a single pager. It is the only client
// that understands page contents; the pager is purely a cache of buffers
// keyed by page number.
type Tree struct {
	pager       *pager.Pager
	log         logrus.FieldLogger
	rootPageNum uint32
	numRows     uint32
}

// Open opens (creating if absent) the database at path and returns a Tree
// ready for Insert/Delete/Find/ScanStart.
func Open(path string, opts Options) (*Tree, error) {
	opts = opts.withDefaults()

	p, err := pager.Open(path, opts.Pager)
	if err != nil {
		return nil, err
	}

	t := &Tree{pager: p, log: opts.Logger}

	if p.NumPages() == 0 {
		if err := t.bootstrap(); err != nil {
			return nil, err
		}
		return t, nil
	}

	headerPg, err := t.getPage(0)
	if err != nil {
		return nil, err
	}
	h := readDBHeader(headerPg.Data[:])

	if h.rootPageNum == 0 || int(h.rootPageNum) >= p.NumPages() {
		return nil, fatalf("corrupt header: root_page_num %d out of range (pages=%d)", h.rootPageNum, p.NumPages())
	}
	if int(h.nextFreePage) != p.NumPages() {
		return nil, fatalf("corrupt header: next_free_page %d does not match on-disk page count %d", h.nextFreePage, p.NumPages())
	}

	t.rootPageNum = h.rootPageNum
	t.numRows = h.numRows
	t.log.WithFields(logrus.Fields{"root": t.rootPageNum, "rows": t.numRows}).Info("btree: opened")
	return t, nil
}

// bootstrap initializes a fresh database: page 0 is the header, page 1 is
// an empty leaf root.
func (t *Tree) bootstrap() error {
	headerPageNum, err := t.allocatePage()
	if err != nil {
		return err
	}
	if headerPageNum != 0 {
		return fatalf("bootstrap: expected header page 0, got %d", headerPageNum)
	}

	rootPageNum, err := t.allocatePage()
	if err != nil {
		return err
	}
	rootPg, err := t.getPage(rootPageNum)
	if err != nil {
		return err
	}
	initLeaf(rootPg.Data[:])
	setIsRoot(rootPg.Data[:], true)

	t.rootPageNum = rootPageNum
	t.numRows = 0
	t.log.WithField("root", rootPageNum).Info("btree: initialized fresh database")
	return nil
}

// Close writes the header and flushes every resident page.
func (t *Tree) Close() error {
	headerPg, err := t.getPage(0)
	if err != nil {
		return err
	}
	writeDBHeader(headerPg.Data[:], dbHeader{
		numRows:      t.numRows,
		rootPageNum:  t.rootPageNum,
		nextFreePage: uint32(t.pager.NumPages()),
	})
	t.log.WithFields(logrus.Fields{"root": t.rootPageNum, "rows": t.numRows}).Info("btree: closing")
	return t.pager.Close()
}

// NumRows reports the informational live-row count carried in the header.
func (t *Tree) NumRows() uint32 {
	return t.numRows
}

// RootPageNum reports the current root page number.
func (t *Tree) RootPageNum() uint32 {
	return t.rootPageNum
}

func (t *Tree) allocatePage() (uint32, error) {
	n, err := t.pager.AllocatePage()
	if err != nil {
		return 0, wrapFatal(err, "allocate page")
	}
	return n, nil
}

func (t *Tree) getPage(n uint32) (*pager.Page, error) {
	pg, err := t.pager.GetPage(n)
	if err != nil {
		return nil, wrapFatal(err, "get page")
	}
	return pg, nil
}

// maxKey returns the greatest key reachable from pageNum: for a leaf, the
// key of its last cell (0 if empty — a transient case that must never be
// observed once an operation completes); for an internal node, the
// recursive max_key of its right_child.
func (t *Tree) maxKey(pageNum uint32) (int32, error) {
	pg, err := t.getPage(pageNum)
	if err != nil {
		return 0, err
	}
	if isLeaf(pg.Data[:]) {
		n := leafNumCells(pg.Data[:])
		if n == 0 {
			return 0, nil
		}
		return leafKeyAt(pg.Data[:], int(n-1)), nil
	}
	return t.maxKey(internalRightChild(pg.Data[:]))
}

// findLeafForKey descends from the root to the leaf that should contain
// key, using the max-key separator rule: the smallest index i with
// key[i] >= target identifies child[i]; if none exists, descend right_child.
func (t *Tree) findLeafForKey(key int32) (uint32, error) {
	pageNum := t.rootPageNum
	for {
		pg, err := t.getPage(pageNum)
		if err != nil {
			return 0, err
		}
		if isLeaf(pg.Data[:]) {
			return pageNum, nil
		}
		numKeys := int(internalNumKeys(pg.Data[:]))
		i := sort.Search(numKeys, func(i int) bool { return internalKeyAt(pg.Data[:], i) >= key })
		if i < numKeys {
			pageNum = internalChildAt(pg.Data[:], i)
		} else {
			pageNum = internalRightChild(pg.Data[:])
		}
	}
}

// collectChildren returns an internal node's full child list: its cells'
// child pointers followed by right_child, in ascending key order.
func collectChildren(pg *pager.Page) []uint32 {
	numKeys := int(internalNumKeys(pg.Data[:]))
	children := make([]uint32, 0, numKeys+1)
	for i := 0; i < numKeys; i++ {
		children = append(children, internalChildAt(pg.Data[:], i))
	}
	children = append(children, internalRightChild(pg.Data[:]))
	return children
}

// sortChildrenByMaxKey sorts children ascending by the max key of each
// child's subtree, in place.
func (t *Tree) sortChildrenByMaxKey(children []uint32) error {
	type keyed struct {
		page uint32
		key  int32
	}
	pairs := make([]keyed, len(children))
	for i, c := range children {
		k, err := t.maxKey(c)
		if err != nil {
			return err
		}
		pairs[i] = keyed{page: c, key: k}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })
	for i := range children {
		children[i] = pairs[i].page
	}
	return nil
}

// updateChildKey finds childPageNum among parentPageNum's cells and
// rewrites its stored key. It is a no-op if childPageNum is the
// right_child, which carries no stored key.
func (t *Tree) updateChildKey(parentPageNum, childPageNum uint32, newKey int32) error {
	parent, err := t.getPage(parentPageNum)
	if err != nil {
		return err
	}
	numKeys := int(internalNumKeys(parent.Data[:]))
	for i := 0; i < numKeys; i++ {
		if internalChildAt(parent.Data[:], i) == childPageNum {
			setInternalKeyAt(parent.Data[:], i, newKey)
			return nil
		}
	}
	if internalRightChild(parent.Data[:]) == childPageNum {
		return nil
	}
	return fatalf("updateChildKey: child page %d not found among parent %d's children", childPageNum, parentPageNum)
}

// childIndex returns childPageNum's position among parentPageNum's
// children, where index == num_keys denotes the right_child slot.
func (t *Tree) childIndex(parentPageNum, childPageNum uint32) (int, error) {
	parent, err := t.getPage(parentPageNum)
	if err != nil {
		return 0, err
	}
	numKeys := int(internalNumKeys(parent.Data[:]))
	for i := 0; i < numKeys; i++ {
		if internalChildAt(parent.Data[:], i) == childPageNum {
			return i, nil
		}
	}
	if internalRightChild(parent.Data[:]) == childPageNum {
		return numKeys, nil
	}
	return 0, fatalf("childIndex: child page %d not found among parent %d's children", childPageNum, parentPageNum)
}

// childPageAtIndex returns the child page number at idx, where
// idx == num_keys denotes the right_child slot.
func (t *Tree) childPageAtIndex(parentPageNum uint32, idx int) (uint32, error) {
	parent, err := t.getPage(parentPageNum)
	if err != nil {
		return 0, err
	}
	numKeys := int(internalNumKeys(parent.Data[:]))
	if idx == numKeys {
		return internalRightChild(parent.Data[:]), nil
	}
	return internalChildAt(parent.Data[:], idx), nil
}

// rebuildInternal rewrites pageNum as an internal node over children
// (already sorted ascending by subtree max key), preserving the page's own
// is_root and parent fields. Every child is re-parented to pageNum with
// is_root cleared. Requires 2 <= len(children) <= InternalMaxChildren.
func (t *Tree) rebuildInternal(pageNum uint32, children []uint32) error {
	if len(children) < 2 || len(children) > InternalMaxChildren {
		return fatalf("rebuildInternal: page %d given %d children (need 2..%d)", pageNum, len(children), InternalMaxChildren)
	}

	page, err := t.getPage(pageNum)
	if err != nil {
		return err
	}

	keys := make([]int32, len(children)-1)
	for i := 0; i < len(children)-1; i++ {
		k, err := t.maxKey(children[i])
		if err != nil {
			return err
		}
		keys[i] = k
	}

	for _, c := range children {
		childPg, err := t.getPage(c)
		if err != nil {
			return err
		}
		setParentPage(childPg.Data[:], pageNum)
		setIsRoot(childPg.Data[:], false)
	}

	wasRoot := isRoot(page.Data[:])
	parent := parentPage(page.Data[:])
	initInternal(page.Data[:])
	setIsRoot(page.Data[:], wasRoot)
	setParentPage(page.Data[:], parent)

	for i := 0; i < len(children)-1; i++ {
		setInternalChildAt(page.Data[:], i, children[i])
		setInternalKeyAt(page.Data[:], i, keys[i])
	}
	setInternalRightChild(page.Data[:], children[len(children)-1])
	setInternalNumKeys(page.Data[:], uint32(len(children)-1))
	return nil
}
