package orm

import (
	"fmt"
	"strings"

	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// binaryOperators lists what ExprBuilder.Binary accepts.
var binaryOperators = map[string]struct{}{
	"=": {}, "<>": {}, "!=": {}, "<": {}, "<=": {}, ">": {}, ">=": {},
	"+": {}, "-": {}, "*": {}, "/": {}, "%": {}, "||": {},
	"LIKE": {}, "NOT LIKE": {}, "AND": {}, "OR": {},
}

// ExprBuilder builds SQL expressions bound to one model's table.
type ExprBuilder struct {
	sch *schema.Schema
}

func newExprBuilder(sch *schema.Schema) ExprBuilder {
	return ExprBuilder{sch: sch}
}

// column resolves a Go field name or column name to the column name.
func (eb ExprBuilder) column(field string) string {
	if eb.sch != nil {
		if f := lookupField(eb.sch, field); f != nil && f.DBName != "" {
			return f.DBName
		}
	}
	return field
}

// Ref references a field of the current model.
func (eb ExprBuilder) Ref(field string) clause.Expression {
	return colRef{col: clause.Column{Table: clause.CurrentTable, Name: eb.column(field)}}
}

// RefTable references a column of another table.
func (eb ExprBuilder) RefTable(table, column string) clause.Expression {
	return colRef{col: clause.Column{Table: table, Name: column}}
}

// Val binds v as a query parameter.
func (eb ExprBuilder) Val(v any) clause.Expression {
	return value{v: v}
}

// Not negates e.
func (eb ExprBuilder) Not(e clause.Expression) clause.Expression {
	return notExpr{e: e}
}

// Binary builds "l op r". r may be an expression or a plain value.
func (eb ExprBuilder) Binary(l clause.Expression, op string, r any) clause.Expression {
	return binary{l: l, op: strings.ToUpper(strings.TrimSpace(op)), r: asExpr(r)}
}

// Cmp is shorthand for Binary(Ref(field), op, value).
func (eb ExprBuilder) Cmp(field, op string, v any) clause.Expression {
	return eb.Binary(eb.Ref(field), op, v)
}

// CountWhere counts rows of table whose column equals ref, as a scalar subquery.
func (eb ExprBuilder) CountWhere(table, column string, ref clause.Expression) clause.Expression {
	return countWhere{table: table, column: column, ref: ref}
}

func asExpr(v any) clause.Expression {
	if e, ok := v.(clause.Expression); ok {
		return e
	}
	return value{v: v}
}

type colRef struct{ col clause.Column }

func (c colRef) Build(b clause.Builder) { b.WriteQuoted(c.col) }

type value struct{ v any }

func (v value) Build(b clause.Builder) { b.AddVar(b, v.v) }

type notExpr struct{ e clause.Expression }

func (n notExpr) Build(b clause.Builder) {
	b.WriteString("NOT (")
	n.e.Build(b)
	b.WriteByte(')')
}

type paren struct{ e clause.Expression }

func (p paren) Build(b clause.Builder) {
	b.WriteByte('(')
	p.e.Build(b)
	b.WriteByte(')')
}

type binary struct {
	l  clause.Expression
	op string
	r  clause.Expression
}

func (e binary) Build(b clause.Builder) {
	if _, ok := binaryOperators[e.op]; !ok {
		_ = b.AddError(fmt.Errorf("unsupported operator %q", e.op))
		return
	}
	b.WriteByte('(')
	e.l.Build(b)
	b.WriteString(" " + e.op + " ")
	e.r.Build(b)
	b.WriteByte(')')
}

type countWhere struct {
	table  string
	column string
	ref    clause.Expression
}

func (c countWhere) Build(b clause.Builder) {
	b.WriteString("(SELECT COUNT(*) FROM ")
	b.WriteQuoted(clause.Table{Name: c.table})
	b.WriteString(" WHERE ")
	b.WriteQuoted(clause.Column{Table: c.table, Name: c.column})
	b.WriteString(" = ")
	c.ref.Build(b)
	b.WriteByte(')')
}

// aliased renders "(expr) AS alias" for the select list.
type aliased struct {
	e     clause.Expression
	alias string
}

func (a aliased) Build(b clause.Builder) {
	b.WriteByte('(')
	a.e.Build(b)
	b.WriteString(") AS ")
	b.WriteQuoted(a.alias)
}

// selectList renders "current_table.*, (computed) AS name, ...".
type selectList struct {
	computed []aliased
}

func (s selectList) Build(b clause.Builder) {
	b.WriteQuoted(clause.Table{Name: clause.CurrentTable})
	b.WriteString(".*")
	for _, c := range s.computed {
		b.WriteString(", ")
		c.Build(b)
	}
}
