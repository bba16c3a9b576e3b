package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"tinysqlite/btree"
	"tinysqlite/row"
)

func rowSize() int {
	return row.Size
}

// printSelect renders every row in tr as a table, walking the tree
// in key order via ScanStart/Advance.
func printSelect(tr *btree.Tree) error {
	c, err := tr.ScanStart()
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"id", "username", "email"})

	for !c.EndOfTable() {
		r, err := c.Value()
		if err != nil {
			return err
		}
		table.Append([]string{strconv.Itoa(int(r.ID)), r.Username, r.Email})
		if err := c.Advance(); err != nil {
			return err
		}
	}
	table.Render()
	return nil
}

// printBTree renders the tree's structure as a single table, one row per
// node in btree.Tree.Structure's depth-first order, with a depth column.
func printBTree(tr *btree.Tree) {
	nodes, err := tr.Structure()
	if err != nil {
		fmt.Println("structure:", err)
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"page", "depth", "type", "keys"})
	for _, n := range nodes {
		kind := "internal"
		if n.Leaf {
			kind = "leaf"
		}
		table.Append([]string{
			strconv.Itoa(int(n.Page)),
			strconv.Itoa(n.Depth),
			kind,
			fmt.Sprint(n.Keys),
		})
	}
	table.Render()
}
