package btree

import "sort"

// Delete removes the row keyed by key. It returns ErrKeyNotFound if no
// such row exists.
func (t *Tree) Delete(key int32) error {
	leafPageNum, err := t.findLeafForKey(key)
	if err != nil {
		return err
	}
	leaf, err := t.getPage(leafPageNum)
	if err != nil {
		return err
	}

	numCells := int(leafNumCells(leaf.Data[:]))
	idx := sort.Search(numCells, func(i int) bool { return leafKeyAt(leaf.Data[:], i) >= key })
	if idx >= numCells || leafKeyAt(leaf.Data[:], idx) != key {
		return ErrKeyNotFound
	}

	leafShiftCellsLeft(leaf.Data[:], idx, numCells)
	setLeafNumCells(leaf.Data[:], uint32(numCells-1))
	t.numRows--

	if !isRoot(leaf.Data[:]) && numCells-1 < LeafMinCells {
		return t.rebalanceLeaf(leafPageNum)
	}
	return nil
}

// rebalanceLeaf restores leafPageNum's minimum occupancy by, in order:
// borrowing from the left sibling, borrowing from the right sibling,
// merging into the left sibling, or merging the right sibling into this
// leaf. leafPageNum is assumed non-root.
func (t *Tree) rebalanceLeaf(leafPageNum uint32) error {
	leaf, err := t.getPage(leafPageNum)
	if err != nil {
		return err
	}
	parentPageNum := parentPage(leaf.Data[:])
	idx, err := t.childIndex(parentPageNum, leafPageNum)
	if err != nil {
		return err
	}
	parent, err := t.getPage(parentPageNum)
	if err != nil {
		return err
	}
	numKeysParent := int(internalNumKeys(parent.Data[:]))

	if idx > 0 {
		leftPageNum, err := t.childPageAtIndex(parentPageNum, idx-1)
		if err != nil {
			return err
		}
		leftPg, err := t.getPage(leftPageNum)
		if err != nil {
			return err
		}
		leftCount := int(leafNumCells(leftPg.Data[:]))
		if leftCount > LeafMinCells {
			curCount := int(leafNumCells(leaf.Data[:]))
			leafShiftCellsRight(leaf.Data[:], 0, curCount)
			lastKey := leafKeyAt(leftPg.Data[:], leftCount-1)
			lastRow := append([]byte(nil), leafRowAt(leftPg.Data[:], leftCount-1)...)
			setLeafCell(leaf.Data[:], 0, lastKey, lastRow)
			setLeafNumCells(leaf.Data[:], uint32(curCount+1))
			setLeafNumCells(leftPg.Data[:], uint32(leftCount-1))
			newLeftMax, err := t.maxKey(leftPageNum)
			if err != nil {
				return err
			}
			return t.updateChildKey(parentPageNum, leftPageNum, newLeftMax)
		}
	}

	if idx < numKeysParent {
		rightPageNum, err := t.childPageAtIndex(parentPageNum, idx+1)
		if err != nil {
			return err
		}
		rightPg, err := t.getPage(rightPageNum)
		if err != nil {
			return err
		}
		rightCount := int(leafNumCells(rightPg.Data[:]))
		if rightCount > LeafMinCells {
			curCount := int(leafNumCells(leaf.Data[:]))
			firstKey := leafKeyAt(rightPg.Data[:], 0)
			firstRow := append([]byte(nil), leafRowAt(rightPg.Data[:], 0)...)
			setLeafCell(leaf.Data[:], curCount, firstKey, firstRow)
			setLeafNumCells(leaf.Data[:], uint32(curCount+1))
			leafShiftCellsLeft(rightPg.Data[:], 0, rightCount)
			setLeafNumCells(rightPg.Data[:], uint32(rightCount-1))
			newCurMax, err := t.maxKey(leafPageNum)
			if err != nil {
				return err
			}
			return t.updateChildKey(parentPageNum, leafPageNum, newCurMax)
		}
	}

	if idx > 0 {
		leftPageNum, err := t.childPageAtIndex(parentPageNum, idx-1)
		if err != nil {
			return err
		}
		leftPg, err := t.getPage(leftPageNum)
		if err != nil {
			return err
		}
		leftCount := int(leafNumCells(leftPg.Data[:]))
		curCount := int(leafNumCells(leaf.Data[:]))
		for i := 0; i < curCount; i++ {
			setLeafCell(leftPg.Data[:], leftCount+i, leafKeyAt(leaf.Data[:], i), leafRowAt(leaf.Data[:], i))
		}
		setLeafNumCells(leftPg.Data[:], uint32(leftCount+curCount))
		setLeafNextLeaf(leftPg.Data[:], leafNextLeaf(leaf.Data[:]))
		if err := t.removeChildFromInternal(parentPageNum, leafPageNum); err != nil {
			return err
		}
		return t.maybeShrinkRoot()
	}

	rightPageNum, err := t.childPageAtIndex(parentPageNum, idx+1)
	if err != nil {
		return err
	}
	rightPg, err := t.getPage(rightPageNum)
	if err != nil {
		return err
	}
	rightCount := int(leafNumCells(rightPg.Data[:]))
	curCount := int(leafNumCells(leaf.Data[:]))
	for i := 0; i < rightCount; i++ {
		setLeafCell(leaf.Data[:], curCount+i, leafKeyAt(rightPg.Data[:], i), leafRowAt(rightPg.Data[:], i))
	}
	setLeafNumCells(leaf.Data[:], uint32(curCount+rightCount))
	setLeafNextLeaf(leaf.Data[:], leafNextLeaf(rightPg.Data[:]))
	if err := t.removeChildFromInternal(parentPageNum, rightPageNum); err != nil {
		return err
	}
	return t.maybeShrinkRoot()
}

// removeChildFromInternal drops childPageNum from parentPageNum's child
// list and rebuilds it. A parent left with a single child is set to the
// transient num_keys==0 degenerate form (cleaned up only by
// maybeShrinkRoot, when parentPageNum is root). If the parent then falls
// below its minimum key count, it is rebalanced in turn.
func (t *Tree) removeChildFromInternal(parentPageNum, childPageNum uint32) error {
	parent, err := t.getPage(parentPageNum)
	if err != nil {
		return err
	}
	all := collectChildren(parent)
	children := make([]uint32, 0, len(all)-1)
	for _, c := range all {
		if c != childPageNum {
			children = append(children, c)
		}
	}

	switch {
	case len(children) >= 2:
		if err := t.rebuildInternal(parentPageNum, children); err != nil {
			return err
		}
	case len(children) == 1:
		parent, err := t.getPage(parentPageNum)
		if err != nil {
			return err
		}
		setInternalNumKeys(parent.Data[:], 0)
		setInternalRightChild(parent.Data[:], children[0])
	default:
		return fatalf("removeChildFromInternal: parent %d left with zero children", parentPageNum)
	}

	parent, err = t.getPage(parentPageNum)
	if err != nil {
		return err
	}
	newNumKeys := int(internalNumKeys(parent.Data[:]))
	minKeys := InternalMinKeys
	if isRoot(parent.Data[:]) {
		minKeys = 0
	}
	if newNumKeys < minKeys {
		return t.rebalanceInternal(parentPageNum)
	}
	return nil
}

// rebalanceInternal mirrors rebalanceLeaf one level up: it borrows or
// merges whole children across sibling boundaries instead of individual
// cells. nodePageNum is assumed non-root.
func (t *Tree) rebalanceInternal(nodePageNum uint32) error {
	node, err := t.getPage(nodePageNum)
	if err != nil {
		return err
	}
	parentPageNum := parentPage(node.Data[:])
	idx, err := t.childIndex(parentPageNum, nodePageNum)
	if err != nil {
		return err
	}
	parent, err := t.getPage(parentPageNum)
	if err != nil {
		return err
	}
	numKeysParent := int(internalNumKeys(parent.Data[:]))

	if idx > 0 {
		leftPageNum, err := t.childPageAtIndex(parentPageNum, idx-1)
		if err != nil {
			return err
		}
		leftPg, err := t.getPage(leftPageNum)
		if err != nil {
			return err
		}
		leftNumKeys := int(internalNumKeys(leftPg.Data[:]))
		if leftNumKeys > InternalMinKeys {
			nodeChildren := collectChildren(node)
			leftChildren := collectChildren(leftPg)
			moved := leftChildren[len(leftChildren)-1]
			leftChildren = leftChildren[:len(leftChildren)-1]
			nodeChildren = append([]uint32{moved}, nodeChildren...)
			if err := t.rebuildInternal(leftPageNum, leftChildren); err != nil {
				return err
			}
			if err := t.rebuildInternal(nodePageNum, nodeChildren); err != nil {
				return err
			}
			leftMax, err := t.maxKey(leftPageNum)
			if err != nil {
				return err
			}
			if err := t.updateChildKey(parentPageNum, leftPageNum, leftMax); err != nil {
				return err
			}
			nodeMax, err := t.maxKey(nodePageNum)
			if err != nil {
				return err
			}
			return t.updateChildKey(parentPageNum, nodePageNum, nodeMax)
		}
	}

	if idx < numKeysParent {
		rightPageNum, err := t.childPageAtIndex(parentPageNum, idx+1)
		if err != nil {
			return err
		}
		rightPg, err := t.getPage(rightPageNum)
		if err != nil {
			return err
		}
		rightNumKeys := int(internalNumKeys(rightPg.Data[:]))
		if rightNumKeys > InternalMinKeys {
			nodeChildren := collectChildren(node)
			rightChildren := collectChildren(rightPg)
			moved := rightChildren[0]
			rightChildren = rightChildren[1:]
			nodeChildren = append(nodeChildren, moved)
			if err := t.rebuildInternal(nodePageNum, nodeChildren); err != nil {
				return err
			}
			if err := t.rebuildInternal(rightPageNum, rightChildren); err != nil {
				return err
			}
			nodeMax, err := t.maxKey(nodePageNum)
			if err != nil {
				return err
			}
			if err := t.updateChildKey(parentPageNum, nodePageNum, nodeMax); err != nil {
				return err
			}
			rightMax, err := t.maxKey(rightPageNum)
			if err != nil {
				return err
			}
			return t.updateChildKey(parentPageNum, rightPageNum, rightMax)
		}
	}

	if idx > 0 {
		leftPageNum, err := t.childPageAtIndex(parentPageNum, idx-1)
		if err != nil {
			return err
		}
		leftPg, err := t.getPage(leftPageNum)
		if err != nil {
			return err
		}
		merged := append(collectChildren(leftPg), collectChildren(node)...)
		if err := t.rebuildInternal(leftPageNum, merged); err != nil {
			return err
		}
		if err := t.removeChildFromInternal(parentPageNum, nodePageNum); err != nil {
			return err
		}
		return t.maybeShrinkRoot()
	}

	rightPageNum, err := t.childPageAtIndex(parentPageNum, idx+1)
	if err != nil {
		return err
	}
	rightPg, err := t.getPage(rightPageNum)
	if err != nil {
		return err
	}
	merged := append(collectChildren(node), collectChildren(rightPg)...)
	if err := t.rebuildInternal(nodePageNum, merged); err != nil {
		return err
	}
	if err := t.removeChildFromInternal(parentPageNum, rightPageNum); err != nil {
		return err
	}
	return t.maybeShrinkRoot()
}

// maybeShrinkRoot collapses a root internal node that has been emptied to
// its single remaining child (num_keys == 0), promoting that child to
// root and shrinking the tree by one level. It is a no-op otherwise.
func (t *Tree) maybeShrinkRoot() error {
	rootPg, err := t.getPage(t.rootPageNum)
	if err != nil {
		return err
	}
	if isLeaf(rootPg.Data[:]) {
		return nil
	}
	if internalNumKeys(rootPg.Data[:]) != 0 {
		return nil
	}

	child := internalRightChild(rootPg.Data[:])
	childPg, err := t.getPage(child)
	if err != nil {
		return err
	}
	setIsRoot(childPg.Data[:], true)
	setParentPage(childPg.Data[:], 0)

	t.log.WithFields(map[string]interface{}{"old_root": t.rootPageNum, "new_root": child}).Info("btree: root collapsed, tree height decreased")
	t.rootPageNum = child
	return nil
}
