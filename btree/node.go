package btree

import (
	"encoding/binary"

	"tinysqlite/row"
)

// The functions in this file are O(1) typed views over a raw page buffer.
// Writing through one mutates the page in place; the tree relies on this
// to make structural changes durable once the pager flushes the page.

func nodeType(page []byte) uint8 {
	return page[typeOffset]
}

func setNodeType(page []byte, t uint8) {
	page[typeOffset] = t
}

func isLeaf(page []byte) bool {
	return nodeType(page) == nodeTypeLeaf
}

func isRoot(page []byte) bool {
	return page[isRootOffset] != 0
}

func setIsRoot(page []byte, v bool) {
	if v {
		page[isRootOffset] = 1
	} else {
		page[isRootOffset] = 0
	}
}

func parentPage(page []byte) uint32 {
	return binary.LittleEndian.Uint32(page[parentOffset : parentOffset+parentSize])
}

func setParentPage(page []byte, n uint32) {
	binary.LittleEndian.PutUint32(page[parentOffset:parentOffset+parentSize], n)
}

// --- leaf node accessors ---

func leafNumCells(page []byte) uint32 {
	return binary.LittleEndian.Uint32(page[leafNumCellsOffset : leafNumCellsOffset+leafNumCellsSize])
}

func setLeafNumCells(page []byte, n uint32) {
	binary.LittleEndian.PutUint32(page[leafNumCellsOffset:leafNumCellsOffset+leafNumCellsSize], n)
}

func leafNextLeaf(page []byte) uint32 {
	return binary.LittleEndian.Uint32(page[leafNextLeafOffset : leafNextLeafOffset+leafNextLeafSize])
}

func setLeafNextLeaf(page []byte, n uint32) {
	binary.LittleEndian.PutUint32(page[leafNextLeafOffset:leafNextLeafOffset+leafNextLeafSize], n)
}

func leafCellOffset(i int) int {
	return leafHeaderSize + i*leafCellSize
}

func leafKeyAt(page []byte, i int) int32 {
	off := leafCellOffset(i)
	return int32(binary.LittleEndian.Uint32(page[off : off+leafCellKeySize]))
}

func setLeafKeyAt(page []byte, i int, key int32) {
	off := leafCellOffset(i)
	binary.LittleEndian.PutUint32(page[off:off+leafCellKeySize], uint32(key))
}

// leafRowAt returns the row.Size-byte slice holding cell i's payload.
func leafRowAt(page []byte, i int) []byte {
	off := leafCellOffset(i) + leafCellKeySize
	return page[off : off+row.Size]
}

func setLeafCell(page []byte, i int, key int32, rowBuf []byte) {
	setLeafKeyAt(page, i, key)
	copy(leafRowAt(page, i), rowBuf)
}

// leafShiftCellsRight moves cells [from, numCells) one slot to the right,
// making room for an insertion at `from`. Caller must ensure capacity.
func leafShiftCellsRight(page []byte, from, numCells int) {
	src := page[leafCellOffset(from):leafCellOffset(numCells)]
	dst := page[leafCellOffset(from+1):leafCellOffset(numCells + 1)]
	copy(dst, src)
}

// leafShiftCellsLeft moves cells [from+1, numCells) one slot to the left,
// closing the gap left by removing cell `from`.
func leafShiftCellsLeft(page []byte, from, numCells int) {
	src := page[leafCellOffset(from+1):leafCellOffset(numCells)]
	dst := page[leafCellOffset(from):leafCellOffset(numCells - 1)]
	copy(dst, src)
}

func initLeaf(page []byte) {
	for i := range page {
		page[i] = 0
	}
	setNodeType(page, nodeTypeLeaf)
}

// --- internal node accessors ---

func internalNumKeys(page []byte) uint32 {
	return binary.LittleEndian.Uint32(page[internalNumKeysOffset : internalNumKeysOffset+internalNumKeysSize])
}

func setInternalNumKeys(page []byte, n uint32) {
	binary.LittleEndian.PutUint32(page[internalNumKeysOffset:internalNumKeysOffset+internalNumKeysSize], n)
}

func internalRightChild(page []byte) uint32 {
	return binary.LittleEndian.Uint32(page[internalRightChildOffset : internalRightChildOffset+internalRightChildSize])
}

func setInternalRightChild(page []byte, n uint32) {
	binary.LittleEndian.PutUint32(page[internalRightChildOffset:internalRightChildOffset+internalRightChildSize], n)
}

func internalCellOffset(i int) int {
	return internalHeaderSize + i*internalCellSize
}

func internalChildAt(page []byte, i int) uint32 {
	off := internalCellOffset(i)
	return binary.LittleEndian.Uint32(page[off : off+internalCellChildSize])
}

func setInternalChildAt(page []byte, i int, child uint32) {
	off := internalCellOffset(i)
	binary.LittleEndian.PutUint32(page[off:off+internalCellChildSize], child)
}

func internalKeyAt(page []byte, i int) int32 {
	off := internalCellOffset(i) + internalCellChildSize
	return int32(binary.LittleEndian.Uint32(page[off : off+internalCellKeySize]))
}

func setInternalKeyAt(page []byte, i int, key int32) {
	off := internalCellOffset(i) + internalCellChildSize
	binary.LittleEndian.PutUint32(page[off:off+internalCellKeySize], uint32(key))
}

func initInternal(page []byte) {
	for i := range page {
		page[i] = 0
	}
	setNodeType(page, nodeTypeInternal)
}

// childAt returns the page number of child i of an internal node, where
// i == numKeys addresses the right_child.
func childAt(page []byte, i int) uint32 {
	if i == int(internalNumKeys(page)) {
		return internalRightChild(page)
	}
	return internalChildAt(page, i)
}
