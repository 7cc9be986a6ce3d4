package orm

import (
	"context"

	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Auth is the caller identity attached to a client. It is passed to plugins
// untouched; nothing in this package enforces it.
type Auth struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// ComputedField builds the SQL expression for a read-only field.
// The builder is bound to the model's table.
type ComputedField func(eb ExprBuilder) clause.Expression

// ComputedFields maps model name to field name to expression.
// Field names may be Go field names or column names.
type ComputedFields map[string]map[string]ComputedField

// Procedure is a named operation invoked with Client.Call.
type Procedure func(ctx context.Context, c *Client, args ...any) (any, error)

// Options configures New.
type Options struct {
	// Models lists pointers to the model structs the client serves.
	Models []any

	ComputedFields ComputedFields
	Procedures     map[string]Procedure
	Plugins        []Plugin

	// Logger replaces the GORM logger for this client when set.
	Logger gormlogger.Interface
}
