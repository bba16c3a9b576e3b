package btree

import "encoding/binary"

// dbHeader mirrors page 0: num_rows, root_page_num, next_free_page, each a
// little-endian uint32, with the remainder of the page zero.
type dbHeader struct {
	numRows      uint32
	rootPageNum  uint32
	nextFreePage uint32
}

func readDBHeader(page []byte) dbHeader {
	return dbHeader{
		numRows:      binary.LittleEndian.Uint32(page[headerNumRowsOffset : headerNumRowsOffset+4]),
		rootPageNum:  binary.LittleEndian.Uint32(page[headerRootPageNumOffset : headerRootPageNumOffset+4]),
		nextFreePage: binary.LittleEndian.Uint32(page[headerNextFreePageOffset : headerNextFreePageOffset+4]),
	}
}

func writeDBHeader(page []byte, h dbHeader) {
	for i := range page {
		page[i] = 0
	}
	binary.LittleEndian.PutUint32(page[headerNumRowsOffset:headerNumRowsOffset+4], h.numRows)
	binary.LittleEndian.PutUint32(page[headerRootPageNumOffset:headerRootPageNumOffset+4], h.rootPageNum)
	binary.LittleEndian.PutUint32(page[headerNextFreePageOffset:headerNextFreePageOffset+4], h.nextFreePage)
}
