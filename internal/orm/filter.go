package orm

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/deppfellow/ormdemo/internal/errs"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// Reserved Where keys.
const (
	// ExprKey holds an ExprFunc mixed into a structured filter.
	ExprKey = "$expr"
	// OrKey holds a []Where; at least one must match.
	OrKey = "OR"
	// NotKey holds a Where that must not match.
	NotKey = "NOT"
)

// Where filters rows by field. Values are literals (equality), nil (IS NULL)
// or a Cond built with Equals, Gt, In, Contains, ...
//
//	orm.Where{"role": "USER", orm.ExprKey: orm.ExprFunc(func(eb orm.ExprBuilder) clause.Expression {
//		return eb.Cmp("email", "LIKE", "%@zenstack.dev")
//	})}
type Where map[string]any

// ExprFunc builds a raw boolean condition for the model being filtered.
type ExprFunc func(eb ExprBuilder) clause.Expression

// Cond is a comparison against a field.
type Cond struct {
	Op    string
	Value any

	// escaped marks a LIKE pattern whose literal part was escaped with '\'.
	escaped bool
}

func Equals(v any) Cond { return Cond{Op: "=", Value: v} }
func Not(v any) Cond { return Cond{Op: "<>", Value: v} }
func Gt(v any) Cond { return Cond{Op: ">", Value: v} }
func Gte(v any) Cond { return Cond{Op: ">=", Value: v} }
func Lt(v any) Cond { return Cond{Op: "<", Value: v} }
func Lte(v any) Cond { return Cond{Op: "<=", Value: v} }
func In(v ...any) Cond { return Cond{Op: "IN", Value: v} }
func NotIn(v ...any) Cond { return Cond{Op: "NOT IN", Value: v} }
// Contains, StartsWith and EndsWith match s literally; '%' and '_' in s are
// not wildcards.
func Contains(s string) Cond { return likeCond("%" + escapeLike(s) + "%") }
func StartsWith(s string) Cond { return likeCond(escapeLike(s) + "%") }
func EndsWith(s string) Cond { return likeCond("%" + escapeLike(s)) }

func likeCond(pattern string) Cond {
	return Cond{Op: "LIKE", Value: pattern, escaped: true}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// likeEscaped renders "lhs LIKE ? ESCAPE '\'".
type likeEscaped struct {
	lhs     clause.Expression
	pattern any
}

func (l likeEscaped) Build(b clause.Builder) {
	b.WriteByte('(')
	l.lhs.Build(b)
	b.WriteString(" LIKE ")
	b.AddVar(b, l.pattern)
	b.WriteString(` ESCAPE '\'`)
	b.WriteByte(')')
}

// isNull renders "lhs IS [NOT] NULL".
type isNull struct {
	lhs clause.Expression
	not bool
}

func (n isNull) Build(b clause.Builder) {
	n.lhs.Build(b)
	if n.not {
		b.WriteString(" IS NOT NULL")
	} else {
		b.WriteString(" IS NULL")
	}
}

// inList renders "lhs [NOT] IN (...)".
type inList struct {
	lhs    clause.Expression
	values any
	not    bool
}

func (in inList) Build(b clause.Builder) {
	in.lhs.Build(b)
	if in.not {
		b.WriteString(" NOT IN ")
	} else {
		b.WriteString(" IN ")
	}
	b.AddVar(b, in.values)
}

// conditions turns w into expressions for the model sch, in key order.
func (c *Client) conditions(sch *schema.Schema, w Where) ([]clause.Expression, error) {
	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	eb := newExprBuilder(sch)
	conds := make([]clause.Expression, 0, len(keys))
	for _, key := range keys {
		v := w[key]
		switch key {
		case ExprKey:
			fn, ok := v.(ExprFunc)
			if !ok {
				raw, isFunc := v.(func(ExprBuilder) clause.Expression)
				if !isFunc {
					return nil, errs.NewValidationError(fmt.Sprintf("%s must be an ExprFunc, got %T", ExprKey, v), nil, nil)
				}
				fn = raw
			}
			conds = append(conds, fn(eb))

		case OrKey:
			alts, ok := v.([]Where)
			if !ok {
				return nil, errs.NewValidationError(fmt.Sprintf("%s must be a []Where, got %T", OrKey, v), nil, nil)
			}
			ors := make([]clause.Expression, 0, len(alts))
			for _, alt := range alts {
				sub, err := c.conditions(sch, alt)
				if err != nil {
					return nil, err
				}
				if len(sub) == 0 {
					sub = []clause.Expression{clause.Expr{SQL: "1 = 1"}}
				}
				ors = append(ors, clause.And(sub...))
			}
			if len(ors) > 0 {
				conds = append(conds, clause.Or(ors...))
			}

		case NotKey:
			inner, ok := v.(Where)
			if !ok {
				return nil, errs.NewValidationError(fmt.Sprintf("%s must be a Where, got %T", NotKey, v), nil, nil)
			}
			sub, err := c.conditions(sch, inner)
			if err != nil {
				return nil, err
			}
			if len(sub) > 0 {
				conds = append(conds, eb.Not(clause.And(sub...)))
			}

		default:
			lhs, err := c.fieldExpr(sch, eb, key)
			if err != nil {
				return nil, err
			}
			cond, err := compare(lhs, v)
			if err != nil {
				return nil, err
			}
			conds = append(conds, cond)
		}
	}
	return conds, nil
}

// fieldExpr returns the column reference for key, or the computed expression
// when key names a computed field.
func (c *Client) fieldExpr(sch *schema.Schema, eb ExprBuilder, key string) (clause.Expression, error) {
	f := lookupField(sch, key)
	if f == nil || f.DBName == "" {
		return nil, errs.NewValidationError(fmt.Sprintf("unknown field %q on model %s", key, sch.Name), nil,
			[]errs.FieldError{{Field: key, Error: "unknown field"}})
	}
	if fn, ok := c.computed[sch.Name][f.DBName]; ok {
		return paren{e: fn(eb)}, nil
	}
	return colRef{col: clause.Column{Table: clause.CurrentTable, Name: f.DBName}}, nil
}

func compare(lhs clause.Expression, v any) (clause.Expression, error) {
	cond, ok := v.(Cond)
	if !ok {
		cond = Equals(v)
	}

	op := strings.ToUpper(cond.Op)
	switch op {
	case "IN", "NOT IN":
		return inList{lhs: lhs, values: cond.Value, not: op == "NOT IN"}, nil
	case "=", "<>":
		if isNil(cond.Value) {
			return isNull{lhs: lhs, not: op == "<>"}, nil
		}
	case "LIKE":
		if cond.escaped {
			return likeEscaped{lhs: lhs, pattern: cond.Value}, nil
		}
	}

	if _, ok := binaryOperators[op]; !ok {
		return nil, errs.NewValidationError(fmt.Sprintf("unsupported operator %q", cond.Op), nil, nil)
	}
	return binary{l: lhs, op: op, r: value{v: cond.Value}}, nil
}

// isNil reports whether v is nil or a nil pointer, map, slice or interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
