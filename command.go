package main

import (
	"fmt"
	"strings"

	"tinysqlite/btree"
)

type MetaCommandResult int

const (
	MetaCommandSuccess MetaCommandResult = iota
	MetaCommandUnrecognizedCommand
	MetaCommandExit
)

// handleMetaCommand dispatches a leading-dot command: .exit, .btree (dump
// tree structure), .constants (print layout constants), .validate (run
// DebugValidate).
func handleMetaCommand(line string, tr *btree.Tree) MetaCommandResult {
	switch strings.TrimSpace(line) {
	case ".exit":
		return MetaCommandExit
	case ".btree":
		printBTree(tr)
		return MetaCommandSuccess
	case ".constants":
		printConstants()
		return MetaCommandSuccess
	case ".validate":
		if err := tr.DebugValidate(); err != nil {
			fmt.Println("validation failed:", err)
		} else {
			fmt.Println("tree is valid")
		}
		return MetaCommandSuccess
	default:
		return MetaCommandUnrecognizedCommand
	}
}

func printConstants() {
	fmt.Println("Constants:")
	fmt.Printf("ROW_SIZE: %d\n", rowSize())
	fmt.Printf("LEAF_MAX_CELLS: %d\n", btree.LeafMaxCells)
	fmt.Printf("LEAF_MIN_CELLS: %d\n", btree.LeafMinCells)
	fmt.Printf("INTERNAL_MAX_KEYS: %d\n", btree.InternalMaxKeys)
	fmt.Printf("INTERNAL_MAX_CHILDREN: %d\n", btree.InternalMaxChildren)
	fmt.Printf("INTERNAL_MIN_KEYS: %d\n", btree.InternalMinKeys)
}
