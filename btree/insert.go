package btree

import (
	"sort"

	"tinysqlite/row"
)

// Insert adds r keyed by r.ID. It returns ErrDuplicateKey if the key
// already exists and r's validation error if a field is too long; any
// other error is a *FatalError (I/O failure, exhausted page space).
func (t *Tree) Insert(r row.Row) error {
	if err := r.Validate(); err != nil {
		return err
	}

	leafPageNum, err := t.findLeafForKey(r.ID)
	if err != nil {
		return err
	}
	leaf, err := t.getPage(leafPageNum)
	if err != nil {
		return err
	}

	numCells := int(leafNumCells(leaf.Data[:]))
	idx := sort.Search(numCells, func(i int) bool { return leafKeyAt(leaf.Data[:], i) >= r.ID })
	if idx < numCells && leafKeyAt(leaf.Data[:], idx) == r.ID {
		return ErrDuplicateKey
	}

	rowBuf := make([]byte, row.Size)
	if err := row.Serialize(r, rowBuf); err != nil {
		return err
	}

	if numCells < LeafMaxCells {
		leafShiftCellsRight(leaf.Data[:], idx, numCells)
		setLeafCell(leaf.Data[:], idx, r.ID, rowBuf)
		setLeafNumCells(leaf.Data[:], uint32(numCells+1))
		t.numRows++
		return nil
	}

	t.log.WithField("key", r.ID).Debug("btree: leaf full, splitting")
	if err := t.splitLeafAndInsert(leafPageNum, idx, r.ID, rowBuf); err != nil {
		return err
	}
	t.numRows++
	return nil
}

// splitLeafAndInsert splits the full leaf at oldPageNum, inserting the new
// cell at insertIdx among its LeafMaxCells existing cells, and propagates
// the split upward.
func (t *Tree) splitLeafAndInsert(oldPageNum uint32, insertIdx int, key int32, rowBuf []byte) error {
	old, err := t.getPage(oldPageNum)
	if err != nil {
		return err
	}

	type cell struct {
		key int32
		row []byte
	}
	const total = LeafMaxCells + 1
	cells := make([]cell, 0, total)
	inserted := false
	for i := 0; i < LeafMaxCells; i++ {
		if i == insertIdx {
			cells = append(cells, cell{key, rowBuf})
			inserted = true
		}
		cells = append(cells, cell{leafKeyAt(old.Data[:], i), append([]byte(nil), leafRowAt(old.Data[:], i)...)})
	}
	if !inserted {
		cells = append(cells, cell{key, rowBuf})
	}

	mid := total / 2

	newPageNum, err := t.allocatePage()
	if err != nil {
		return err
	}
	newPage, err := t.getPage(newPageNum)
	if err != nil {
		return err
	}
	initLeaf(newPage.Data[:])
	setIsRoot(newPage.Data[:], false)
	setParentPage(newPage.Data[:], parentPage(old.Data[:]))
	setLeafNextLeaf(newPage.Data[:], leafNextLeaf(old.Data[:]))
	setLeafNextLeaf(old.Data[:], newPageNum)

	for i := 0; i < mid; i++ {
		setLeafCell(old.Data[:], i, cells[i].key, cells[i].row)
	}
	setLeafNumCells(old.Data[:], uint32(mid))

	for i := mid; i < total; i++ {
		setLeafCell(newPage.Data[:], i-mid, cells[i].key, cells[i].row)
	}
	setLeafNumCells(newPage.Data[:], uint32(total-mid))

	return t.insertIntoParent(oldPageNum, newPageNum)
}

// insertIntoParent hooks right (newly split off left's sibling) into
// left's parent, or grows the tree by one level if left was the root.
func (t *Tree) insertIntoParent(leftPageNum, rightPageNum uint32) error {
	left, err := t.getPage(leftPageNum)
	if err != nil {
		return err
	}

	if isRoot(left.Data[:]) {
		return t.createNewRoot(rightPageNum)
	}

	parentPageNum := parentPage(left.Data[:])
	leftMax, err := t.maxKey(leftPageNum)
	if err != nil {
		return err
	}
	if err := t.updateChildKey(parentPageNum, leftPageNum, leftMax); err != nil {
		return err
	}
	return t.insertChildIntoInternal(parentPageNum, rightPageNum)
}

// insertChildIntoInternal adds newChildPageNum among nodePageNum's
// children, splitting nodePageNum (and propagating further up, or growing
// the tree) if that overflows InternalMaxChildren.
func (t *Tree) insertChildIntoInternal(nodePageNum uint32, newChildPageNum uint32) error {
	node, err := t.getPage(nodePageNum)
	if err != nil {
		return err
	}

	children := collectChildren(node)
	children = append(children, newChildPageNum)
	if err := t.sortChildrenByMaxKey(children); err != nil {
		return err
	}

	if len(children) <= InternalMaxChildren {
		return t.rebuildInternal(nodePageNum, children)
	}

	t.log.WithField("page", nodePageNum).Debug("btree: internal node full, splitting")

	leftCount := len(children) / 2
	leftChildren := append([]uint32(nil), children[:leftCount]...)
	rightChildren := append([]uint32(nil), children[leftCount:]...)

	newNodePageNum, err := t.allocatePage()
	if err != nil {
		return err
	}
	newNode, err := t.getPage(newNodePageNum)
	if err != nil {
		return err
	}
	initInternal(newNode.Data[:])
	setIsRoot(newNode.Data[:], false)
	setParentPage(newNode.Data[:], parentPage(node.Data[:]))

	if err := t.rebuildInternal(nodePageNum, leftChildren); err != nil {
		return err
	}
	if err := t.rebuildInternal(newNodePageNum, rightChildren); err != nil {
		return err
	}

	if isRoot(node.Data[:]) {
		return t.createNewRoot(newNodePageNum)
	}

	grandparentPageNum := parentPage(node.Data[:])
	leftMax, err := t.maxKey(nodePageNum)
	if err != nil {
		return err
	}
	if err := t.updateChildKey(grandparentPageNum, nodePageNum, leftMax); err != nil {
		return err
	}
	return t.insertChildIntoInternal(grandparentPageNum, newNodePageNum)
}

// createNewRoot grows the tree by one level. The root page number never
// changes: the current root's bytes are copied into a freshly allocated
// page L (any children of L are re-parented to L), the root page is
// reinitialized as an internal node, and L and rightChildPageNum become its
// two children.
func (t *Tree) createNewRoot(rightChildPageNum uint32) error {
	rootPg, err := t.getPage(t.rootPageNum)
	if err != nil {
		return err
	}

	lPageNum, err := t.allocatePage()
	if err != nil {
		return err
	}
	lPg, err := t.getPage(lPageNum)
	if err != nil {
		return err
	}
	lPg.Data = rootPg.Data
	setIsRoot(lPg.Data[:], false)
	setParentPage(lPg.Data[:], t.rootPageNum)
	if !isLeaf(lPg.Data[:]) {
		for _, c := range collectChildren(lPg) {
			childPg, err := t.getPage(c)
			if err != nil {
				return err
			}
			setParentPage(childPg.Data[:], lPageNum)
		}
	}

	initInternal(rootPg.Data[:])
	setIsRoot(rootPg.Data[:], true)
	setParentPage(rootPg.Data[:], 0)

	children := []uint32{lPageNum, rightChildPageNum}
	if err := t.sortChildrenByMaxKey(children); err != nil {
		return err
	}

	t.log.WithFields(map[string]interface{}{"root": t.rootPageNum, "left": lPageNum, "right": rightChildPageNum}).Info("btree: root split, tree height increased")
	return t.rebuildInternal(t.rootPageNum, children)
}
