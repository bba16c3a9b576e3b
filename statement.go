package main

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"tinysqlite/row"
)

type StatementType int

const (
	StatementInsert StatementType = iota
	StatementSelect
	StatementDelete
)

type PrepareResult int

const (
	PrepareSuccess PrepareResult = iota
	PrepareUnrecognizedStatement
	PrepareSyntaxError
)

// Statement is a prepared textual command: "insert <id> <username>
// <email>", "select", or "delete <id>".
type Statement struct {
	Type        StatementType
	RowToInsert row.Row
	DeleteKey   int32
}

// prepareStatement parses input into stmt. It supports exactly three
// verbs: "insert <id> <username> <email>", "select", and "delete <id>".
func prepareStatement(input string, stmt *Statement) (PrepareResult, error) {
	switch {
	case strings.HasPrefix(input, "insert"):
		return prepareInsert(input, stmt)
	case input == "select":
		stmt.Type = StatementSelect
		return PrepareSuccess, nil
	case strings.HasPrefix(input, "delete"):
		return prepareDelete(input, stmt)
	default:
		return PrepareUnrecognizedStatement, nil
	}
}

func prepareInsert(input string, stmt *Statement) (PrepareResult, error) {
	fields := strings.Fields(input)
	if len(fields) != 4 {
		return PrepareSyntaxError, errors.New(`expected "insert <id> <username> <email>"`)
	}
	id, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil {
		return PrepareSyntaxError, errors.Wrap(err, "id must be an integer")
	}

	stmt.Type = StatementInsert
	stmt.RowToInsert = row.Row{
		ID:       int32(id),
		Username: fields[2],
		Email:    fields[3],
	}
	if err := stmt.RowToInsert.Validate(); err != nil {
		return PrepareSyntaxError, err
	}
	return PrepareSuccess, nil
}

func prepareDelete(input string, stmt *Statement) (PrepareResult, error) {
	fields := strings.Fields(input)
	if len(fields) != 2 {
		return PrepareSyntaxError, errors.New(`expected "delete <id>"`)
	}
	id, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil {
		return PrepareSyntaxError, errors.Wrap(err, "id must be an integer")
	}
	stmt.Type = StatementDelete
	stmt.DeleteKey = int32(id)
	return PrepareSuccess, nil
}
