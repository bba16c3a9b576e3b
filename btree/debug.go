package btree

import "fmt"

// NodeDescription is one line of a tree dump: a page's type, depth, and
// contents, suitable for the REPL's `.btree` meta-command.
type NodeDescription struct {
	Page  uint32
	Depth int
	Leaf  bool
	Keys  []int32
}

// Structure walks the tree depth-first and describes every node, root
// first, matching the shape sqlite's `.btree`-style tutorials print.
func (t *Tree) Structure() ([]NodeDescription, error) {
	var out []NodeDescription
	if err := t.describe(t.rootPageNum, 0, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Tree) describe(pageNum uint32, depth int, out *[]NodeDescription) error {
	pg, err := t.getPage(pageNum)
	if err != nil {
		return err
	}

	if isLeaf(pg.Data[:]) {
		n := int(leafNumCells(pg.Data[:]))
		keys := make([]int32, n)
		for i := 0; i < n; i++ {
			keys[i] = leafKeyAt(pg.Data[:], i)
		}
		*out = append(*out, NodeDescription{Page: pageNum, Depth: depth, Leaf: true, Keys: keys})
		return nil
	}

	numKeys := int(internalNumKeys(pg.Data[:]))
	keys := make([]int32, numKeys)
	children := make([]uint32, numKeys+1)
	for i := 0; i < numKeys; i++ {
		keys[i] = internalKeyAt(pg.Data[:], i)
		children[i] = internalChildAt(pg.Data[:], i)
	}
	children[numKeys] = internalRightChild(pg.Data[:])
	*out = append(*out, NodeDescription{Page: pageNum, Depth: depth, Leaf: false, Keys: keys})

	for _, c := range children {
		if err := t.describe(c, depth+1, out); err != nil {
			return err
		}
	}
	return nil
}

func (n NodeDescription) String() string {
	kind := "internal"
	if n.Leaf {
		kind = "leaf"
	}
	indent := ""
	for i := 0; i < n.Depth; i++ {
		indent += "  "
	}
	return fmt.Sprintf("%s- %s (page %d) keys=%v", indent, kind, n.Page, n.Keys)
}

// DebugValidate recomputes num_rows from a full leaf scan and compares it
// against the header-carried count, then runs Validate. num_rows is kept
// authoritative on the hot path (never recomputed there); this exists
// purely so debug builds and tests can catch drift between the counter
// and the tree's actual contents.
func (t *Tree) DebugValidate() error {
	c, err := t.ScanStart()
	if err != nil {
		return err
	}
	var n uint32
	for !c.EndOfTable() {
		n++
		if err := c.Advance(); err != nil {
			return err
		}
	}
	if n != t.numRows {
		return fatalf("debugValidate: header num_rows %d, leaf scan counted %d", t.numRows, n)
	}
	return t.Validate()
}

// Validate walks the whole tree and checks the structural invariants
// every stable state must satisfy: ascending sorted keys per node,
// correct parent pointers, occupancy bounds on non-root nodes, and a
// single is_root page. It is intended for tests, not the hot path.
func (t *Tree) Validate() error {
	rootPg, err := t.getPage(t.rootPageNum)
	if err != nil {
		return err
	}
	if !isRoot(rootPg.Data[:]) {
		return fatalf("validate: root page %d missing is_root", t.rootPageNum)
	}
	return t.validateNode(t.rootPageNum, 0)
}

func (t *Tree) validateNode(pageNum uint32, parentPageNum uint32) error {
	pg, err := t.getPage(pageNum)
	if err != nil {
		return err
	}
	if pageNum != t.rootPageNum && parentPage(pg.Data[:]) != parentPageNum {
		return fatalf("validate: page %d has parent %d, want %d", pageNum, parentPage(pg.Data[:]), parentPageNum)
	}
	if pageNum != t.rootPageNum && isRoot(pg.Data[:]) {
		return fatalf("validate: non-root page %d has is_root set", pageNum)
	}

	if isLeaf(pg.Data[:]) {
		n := int(leafNumCells(pg.Data[:]))
		if pageNum != t.rootPageNum && n < LeafMinCells {
			return fatalf("validate: leaf %d underflows with %d cells", pageNum, n)
		}
		if n > LeafMaxCells {
			return fatalf("validate: leaf %d overflows with %d cells", pageNum, n)
		}
		for i := 1; i < n; i++ {
			if leafKeyAt(pg.Data[:], i-1) >= leafKeyAt(pg.Data[:], i) {
				return fatalf("validate: leaf %d keys not strictly ascending at index %d", pageNum, i)
			}
		}
		return nil
	}

	numKeys := int(internalNumKeys(pg.Data[:]))
	if pageNum != t.rootPageNum && numKeys < InternalMinKeys {
		return fatalf("validate: internal %d underflows with %d keys", pageNum, numKeys)
	}
	if numKeys > InternalMaxKeys {
		return fatalf("validate: internal %d overflows with %d keys", pageNum, numKeys)
	}
	for i := 1; i < numKeys; i++ {
		if internalKeyAt(pg.Data[:], i-1) >= internalKeyAt(pg.Data[:], i) {
			return fatalf("validate: internal %d keys not strictly ascending at index %d", pageNum, i)
		}
	}

	for i := 0; i < numKeys; i++ {
		child := internalChildAt(pg.Data[:], i)
		childMax, err := t.maxKey(child)
		if err != nil {
			return err
		}
		if childMax != internalKeyAt(pg.Data[:], i) {
			return fatalf("validate: internal %d cell %d stored key %d != child max %d", pageNum, i, internalKeyAt(pg.Data[:], i), childMax)
		}
		if err := t.validateNode(child, pageNum); err != nil {
			return err
		}
	}
	return t.validateNode(internalRightChild(pg.Data[:]), pageNum)
}
