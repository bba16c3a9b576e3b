package btree

import (
	"sort"

	"tinysqlite/row"
)

// Cursor addresses a single leaf cell by page number and index. It is a
// plain value: holding one across a mutation is unsafe, since splits,
// merges, and root collapses can move the cell it pointed to. Obtain a
// fresh cursor via Find or ScanStart after any Insert or Delete.
type Cursor struct {
	tree       *Tree
	pageNum    uint32
	cellNum    int
	endOfTable bool
}

// Find locates key. The returned cursor's EndOfTable is true when key is
// absent and the insertion point would fall past the leaf's last cell;
// callers that need "does this key exist" should compare Key() against
// key after checking EndOfTable.
func (t *Tree) Find(key int32) (*Cursor, error) {
	leafPageNum, err := t.findLeafForKey(key)
	if err != nil {
		return nil, err
	}
	leaf, err := t.getPage(leafPageNum)
	if err != nil {
		return nil, err
	}
	numCells := int(leafNumCells(leaf.Data[:]))
	idx := sort.Search(numCells, func(i int) bool { return leafKeyAt(leaf.Data[:], i) >= key })
	return &Cursor{tree: t, pageNum: leafPageNum, cellNum: idx, endOfTable: idx == numCells}, nil
}

// ScanStart returns a cursor positioned at the first cell of the
// leftmost leaf, for an in-order scan of every row.
func (t *Tree) ScanStart() (*Cursor, error) {
	pageNum := t.rootPageNum
	for {
		pg, err := t.getPage(pageNum)
		if err != nil {
			return nil, err
		}
		if isLeaf(pg.Data[:]) {
			break
		}
		if internalNumKeys(pg.Data[:]) > 0 {
			pageNum = internalChildAt(pg.Data[:], 0)
		} else {
			pageNum = internalRightChild(pg.Data[:])
		}
	}

	leaf, err := t.getPage(pageNum)
	if err != nil {
		return nil, err
	}
	return &Cursor{tree: t, pageNum: pageNum, cellNum: 0, endOfTable: leafNumCells(leaf.Data[:]) == 0}, nil
}

// EndOfTable reports whether the cursor has advanced past the last row.
func (c *Cursor) EndOfTable() bool {
	return c.endOfTable
}

// Key returns the key at the cursor's current position.
func (c *Cursor) Key() (int32, error) {
	leaf, err := c.tree.getPage(c.pageNum)
	if err != nil {
		return 0, err
	}
	return leafKeyAt(leaf.Data[:], c.cellNum), nil
}

// Value deserializes the row at the cursor's current position.
func (c *Cursor) Value() (row.Row, error) {
	leaf, err := c.tree.getPage(c.pageNum)
	if err != nil {
		return row.Row{}, err
	}
	return row.Deserialize(leafRowAt(leaf.Data[:], c.cellNum))
}

// Advance moves the cursor to the next cell, following the leaf chain via
// next_leaf when the current leaf is exhausted.
func (c *Cursor) Advance() error {
	leaf, err := c.tree.getPage(c.pageNum)
	if err != nil {
		return err
	}
	numCells := int(leafNumCells(leaf.Data[:]))
	c.cellNum++
	if c.cellNum < numCells {
		return nil
	}

	next := leafNextLeaf(leaf.Data[:])
	if next == 0 {
		c.endOfTable = true
		return nil
	}
	c.pageNum = next
	c.cellNum = 0
	nextPg, err := c.tree.getPage(next)
	if err != nil {
		return err
	}
	c.endOfTable = leafNumCells(nextPg.Data[:]) == 0
	return nil
}
