package main

import (
	"errors"
	"fmt"
	"os"

	"tinysqlite/btree"
	"tinysqlite/pager"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	tr, err := btree.Open(cfg.DBPath, btree.Options{
		Pager: pager.Options{TableMaxPages: cfg.TableMaxPages},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}

	ls, err := newLineSource()
	if err != nil {
		fmt.Fprintln(os.Stderr, "readline:", err)
		os.Exit(1)
	}
	defer ls.Close()

	exitCode := 0
	for {
		line, ok, err := ls.readLine()
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			break
		}
		if !ok {
			break
		}
		if line == "" {
			continue
		}

		if line[0] == '.' {
			switch handleMetaCommand(line, tr) {
			case MetaCommandExit:
				goto shutdown
			case MetaCommandSuccess:
				continue
			case MetaCommandUnrecognizedCommand:
				fmt.Printf("Unrecognized command %q\n", line)
				continue
			}
		}

		var stmt Statement
		result, err := prepareStatement(line, &stmt)
		switch result {
		case PrepareUnrecognizedStatement:
			fmt.Printf("Unrecognized keyword at start of %q\n", line)
			continue
		case PrepareSyntaxError:
			fmt.Println("syntax error:", err)
			continue
		}

		if execErr := executeStatement(tr, &stmt); execErr != nil {
			var fatal *btree.FatalError
			if errors.As(execErr, &fatal) {
				fmt.Fprintln(os.Stderr, "fatal:", fatal)
				exitCode = 1
				goto shutdown
			}
			fmt.Println("error:", execErr)
		}
	}

shutdown:
	if err := tr.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "close:", err)
		os.Exit(1)
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func executeStatement(tr *btree.Tree, stmt *Statement) error {
	switch stmt.Type {
	case StatementInsert:
		if err := tr.Insert(stmt.RowToInsert); err != nil {
			return err
		}
		fmt.Println("Executed.")
		return nil
	case StatementDelete:
		if err := tr.Delete(stmt.DeleteKey); err != nil {
			return err
		}
		fmt.Println("Executed.")
		return nil
	case StatementSelect:
		return printSelect(tr)
	}
	return nil
}
