package orm

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NodeKind discriminates QueryNode implementations.
type NodeKind string

const (
	NodeInsert NodeKind = "InsertQueryNode"
	NodeUpdate NodeKind = "UpdateQueryNode"
	NodeDelete NodeKind = "DeleteQueryNode"
)

// QueryNode is the statement shape handed to mutation observers.
// The set of implementations is closed: *InsertNode, *UpdateNode, *DeleteNode.
type QueryNode interface {
	Kind() NodeKind
	queryNode()
}

// InsertNode carries the columns and rows of an INSERT.
type InsertNode struct {
	Table   string
	Columns []string
	Rows    [][]any
}

// ColumnUpdate is one "column = value" assignment of an UPDATE.
type ColumnUpdate struct {
	Column string
	Value  any
}

// UpdateNode carries the SET list of an UPDATE.
type UpdateNode struct {
	Table   string
	Updates []ColumnUpdate
}

// DeleteNode marks a DELETE.
type DeleteNode struct {
	Table string
}

func (*InsertNode) Kind() NodeKind { return NodeInsert }
func (*UpdateNode) Kind() NodeKind { return NodeUpdate }
func (*DeleteNode) Kind() NodeKind { return NodeDelete }

func (*InsertNode) queryNode() {}
func (*UpdateNode) queryNode() {}
func (*DeleteNode) queryNode() {}

// ExtractMutationData returns the column/value pairs a node writes.
//
// For inserts it zips the columns with the first row (missing values are nil);
// for updates it maps each assigned column to its value. Any other node,
// including nil, yields nil.
func ExtractMutationData(node QueryNode) map[string]any {
	switch n := node.(type) {
	case *InsertNode:
		var first []any
		if len(n.Rows) > 0 {
			first = n.Rows[0]
		}
		out := make(map[string]any, len(n.Columns))
		for i, col := range n.Columns {
			if i < len(first) {
				out[col] = first[i]
			} else {
				out[col] = nil
			}
		}
		return out

	case *UpdateNode:
		out := make(map[string]any, len(n.Updates))
		for _, u := range n.Updates {
			out[u.Column] = u.Value
		}
		return out
	}
	return nil
}

// nodeFromStatement reads the clauses GORM built for the statement.
// It returns nil when the expected clause is absent (e.g. raw SQL).
func nodeFromStatement(stmt *gorm.Statement, action Action) QueryNode {
	switch action {
	case ActionCreate:
		c, ok := stmt.Clauses["VALUES"]
		if !ok {
			return nil
		}
		values, ok := c.Expression.(clause.Values)
		if !ok {
			return nil
		}
		node := &InsertNode{Table: stmt.Table, Rows: values.Values}
		for _, col := range values.Columns {
			node.Columns = append(node.Columns, col.Name)
		}
		return node

	case ActionUpdate:
		c, ok := stmt.Clauses["SET"]
		if !ok {
			return nil
		}
		set, ok := c.Expression.(clause.Set)
		if !ok {
			return nil
		}
		node := &UpdateNode{Table: stmt.Table}
		for _, a := range set {
			node.Updates = append(node.Updates, ColumnUpdate{Column: a.Column.Name, Value: a.Value})
		}
		return node

	case ActionDelete:
		return &DeleteNode{Table: stmt.Table}
	}
	return nil
}
