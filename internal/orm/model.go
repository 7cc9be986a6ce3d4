package orm

import (
	"context"
	"fmt"
	"reflect"

	"github.com/deppfellow/ormdemo/internal/errs"
	"github.com/deppfellow/ormdemo/internal/sqlerr"
	"github.com/deppfellow/ormdemo/internal/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// Query selects rows for the find, count and delete operations.
type Query struct {
	Where   Where
	Include []string
	OrderBy []OrderBy
	Take    int
	Skip    int
}

// OrderBy sorts by a field or computed field.
type OrderBy struct {
	Field string
	Desc  bool
}

// Data is a field → value map for updates.
type Data map[string]any

// CreateArgs are the interceptable arguments of Create. Data is a *T.
type CreateArgs struct {
	Data    any
	Include []string
}

// UpdateArgs are the interceptable arguments of Update and UpdateMany.
type UpdateArgs struct {
	Where   Where
	Data    Data
	Include []string
}

// Model is a typed accessor for one registered model.
type Model[T any] struct {
	c   *Client
	sch *schema.Schema
	err error
}

// For returns the accessor for model type T on c. Operations fail if T was
// not listed in Options.Models.
func For[T any](c *Client) *Model[T] {
	name := reflect.TypeOf((*T)(nil)).Elem().Name()
	sch, ok := c.models[name]
	if !ok {
		return &Model[T]{c: c, err: errs.NewNotFoundError(fmt.Sprintf("model %q is not registered", name), nil)}
	}
	return &Model[T]{c: c, sch: sch}
}

// Name returns the model name, or "" for an unregistered type.
func (m *Model[T]) Name() string {
	if m.sch == nil {
		return ""
	}
	return m.sch.Name
}

// Create validates value, inserts it together with any nested associations,
// and returns it re-read with computed fields and the requested includes.
func (m *Model[T]) Create(ctx context.Context, value *T, include ...string) (*T, error) {
	res, err := m.run(ctx, OpCreate, &CreateArgs{Data: value, Include: include}, func(ctx context.Context, args any) (any, error) {
		a, err := argsAs[*CreateArgs](OpCreate, args)
		if err != nil {
			return nil, err
		}
		v, ok := a.Data.(*T)
		if !ok || v == nil {
			return nil, errs.NewValidationError(fmt.Sprintf("create %s: data must be a non-nil *%s", m.sch.Name, m.sch.Name), nil, nil)
		}
		if err := validation.Struct(v); err != nil {
			return nil, err
		}
		if err := m.c.session(ctx).Create(v).Error; err != nil {
			return nil, err
		}
		return m.reload(ctx, v, a.Include)
	})
	return one[T](res, err)
}

// Update applies data to the single row matching where and returns it re-read.
func (m *Model[T]) Update(ctx context.Context, where Where, data Data, include ...string) (*T, error) {
	res, err := m.run(ctx, OpUpdate, &UpdateArgs{Where: where, Data: data, Include: include}, func(ctx context.Context, args any) (any, error) {
		a, err := argsAs[*UpdateArgs](OpUpdate, args)
		if err != nil {
			return nil, err
		}
		set, err := m.assignments(a.Data)
		if err != nil {
			return nil, err
		}
		row, err := m.first(ctx, Query{Where: a.Where})
		if err != nil {
			return nil, err
		}
		if err := m.c.session(ctx).Model(row).Updates(set).Error; err != nil {
			return nil, err
		}
		return m.reload(ctx, row, a.Include)
	})
	return one[T](res, err)
}

// UpdateMany applies data to every row matching where. An empty where updates all rows.
func (m *Model[T]) UpdateMany(ctx context.Context, where Where, data Data) (int64, error) {
	res, err := m.run(ctx, OpUpdateMany, &UpdateArgs{Where: where, Data: data}, func(ctx context.Context, args any) (any, error) {
		a, err := argsAs[*UpdateArgs](OpUpdateMany, args)
		if err != nil {
			return nil, err
		}
		set, err := m.assignments(a.Data)
		if err != nil {
			return nil, err
		}
		tx, err := m.scope(ctx, a.Where, true)
		if err != nil {
			return nil, err
		}
		tx = tx.Updates(set)
		return tx.RowsAffected, tx.Error
	})
	return count(res, err)
}

// FindMany returns every row matching q.
func (m *Model[T]) FindMany(ctx context.Context, q Query) ([]T, error) {
	res, err := m.run(ctx, OpFindMany, &q, func(ctx context.Context, args any) (any, error) {
		a, err := argsAs[*Query](OpFindMany, args)
		if err != nil {
			return nil, err
		}
		return m.findMany(ctx, *a)
	})
	if err != nil {
		return nil, err
	}
	rows, ok := res.([]T)
	if !ok {
		return nil, errs.NewInternalError(fmt.Errorf("%s: unexpected result %T", OpFindMany, res))
	}
	return rows, nil
}

// FindFirst returns the first row matching q, or a not-found error.
func (m *Model[T]) FindFirst(ctx context.Context, q Query) (*T, error) {
	res, err := m.run(ctx, OpFindFirst, &q, func(ctx context.Context, args any) (any, error) {
		a, err := argsAs[*Query](OpFindFirst, args)
		if err != nil {
			return nil, err
		}
		return m.first(ctx, *a)
	})
	return one[T](res, err)
}

// FindUnique returns the row matching where, or a not-found error.
func (m *Model[T]) FindUnique(ctx context.Context, where Where, include ...string) (*T, error) {
	q := Query{Where: where, Include: include}
	res, err := m.run(ctx, OpFindUnique, &q, func(ctx context.Context, args any) (any, error) {
		a, err := argsAs[*Query](OpFindUnique, args)
		if err != nil {
			return nil, err
		}
		return m.first(ctx, *a)
	})
	return one[T](res, err)
}

// Count returns the number of rows matching where.
func (m *Model[T]) Count(ctx context.Context, where Where) (int64, error) {
	q := Query{Where: where}
	res, err := m.run(ctx, OpCount, &q, func(ctx context.Context, args any) (any, error) {
		a, err := argsAs[*Query](OpCount, args)
		if err != nil {
			return nil, err
		}
		tx, err := m.scope(ctx, a.Where, false)
		if err != nil {
			return nil, err
		}
		var n int64
		err = tx.Count(&n).Error
		return n, err
	})
	return count(res, err)
}

// Delete removes the row matching where and returns it as it was.
func (m *Model[T]) Delete(ctx context.Context, where Where) (*T, error) {
	q := Query{Where: where}
	res, err := m.run(ctx, OpDelete, &q, func(ctx context.Context, args any) (any, error) {
		a, err := argsAs[*Query](OpDelete, args)
		if err != nil {
			return nil, err
		}
		row, err := m.first(ctx, Query{Where: a.Where})
		if err != nil {
			return nil, err
		}
		if err := m.c.session(ctx).Delete(row).Error; err != nil {
			return nil, err
		}
		return row, nil
	})
	return one[T](res, err)
}

// DeleteMany removes every row matching where. An empty where deletes all rows.
func (m *Model[T]) DeleteMany(ctx context.Context, where Where) (int64, error) {
	q := Query{Where: where}
	res, err := m.run(ctx, OpDeleteMany, &q, func(ctx context.Context, args any) (any, error) {
		a, err := argsAs[*Query](OpDeleteMany, args)
		if err != nil {
			return nil, err
		}
		tx, err := m.scope(ctx, a.Where, true)
		if err != nil {
			return nil, err
		}
		tx = tx.Delete(new(T))
		return tx.RowsAffected, tx.Error
	})
	return count(res, err)
}

func (m *Model[T]) run(ctx context.Context, op string, args any, fn Proceed) (any, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.c.intercept(ctx, m.sch.Name, op, args, fn)
}

// scope starts a statement on T filtered by where.
func (m *Model[T]) scope(ctx context.Context, where Where, allowGlobal bool) (*gorm.DB, error) {
	tx := m.c.session(ctx)
	if allowGlobal && len(where) == 0 {
		tx = tx.Session(&gorm.Session{AllowGlobalUpdate: true})
	}
	tx = tx.Model(new(T))

	conds, err := m.c.conditions(m.sch, where)
	if err != nil {
		return nil, err
	}
	if len(conds) > 0 {
		tx = tx.Where(clause.And(conds...))
	}
	return tx, nil
}

func (m *Model[T]) findMany(ctx context.Context, q Query) ([]T, error) {
	tx, err := m.scope(ctx, q.Where, false)
	if err != nil {
		return nil, err
	}
	tx = m.c.withComputed(tx, m.sch)
	if tx, err = m.c.preload(tx, m.sch, q.Include); err != nil {
		return nil, err
	}

	for _, o := range q.OrderBy {
		col, err := m.orderColumn(o.Field)
		if err != nil {
			return nil, err
		}
		tx = tx.Order(clause.OrderByColumn{Column: col, Desc: o.Desc})
	}
	if q.Take > 0 {
		tx = tx.Limit(q.Take)
	}
	if q.Skip > 0 {
		tx = tx.Offset(q.Skip)
	}

	rows := make([]T, 0)
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (m *Model[T]) first(ctx context.Context, q Query) (*T, error) {
	q.Take = 1
	rows, err := m.findMany(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, sqlerr.NotFound(m.sch.Table, nil)
	}
	return &rows[0], nil
}

// reload re-reads v by primary key with computed fields and includes.
func (m *Model[T]) reload(ctx context.Context, v *T, include []string) (*T, error) {
	pk := m.sch.PrioritizedPrimaryField
	if pk == nil {
		return v, nil
	}
	id, zero := pk.ValueOf(ctx, reflect.ValueOf(v).Elem())
	if zero {
		return v, nil
	}
	return m.first(ctx, Query{Where: Where{pk.DBName: id}, Include: include})
}

// orderColumn resolves an OrderBy field. Computed fields sort by their alias.
func (m *Model[T]) orderColumn(field string) (clause.Column, error) {
	f := lookupField(m.sch, field)
	if f == nil || f.DBName == "" {
		return clause.Column{}, errs.NewValidationError(fmt.Sprintf("unknown order field %q on model %s", field, m.sch.Name), nil, nil)
	}
	if _, ok := m.c.computed[m.sch.Name][f.DBName]; ok {
		return clause.Column{Name: f.DBName}, nil
	}
	return clause.Column{Table: clause.CurrentTable, Name: f.DBName}, nil
}

// assignments validates data against the model and keys it by column.
func (m *Model[T]) assignments(data Data) (map[string]any, error) {
	if len(data) == 0 {
		return nil, errs.NewValidationError(fmt.Sprintf("update %s: no fields to update", m.sch.Name), nil, nil)
	}

	set := make(map[string]any, len(data))
	for k, v := range data {
		f := lookupField(m.sch, k)
		if f == nil || f.DBName == "" || !f.Updatable {
			return nil, errs.NewValidationError(fmt.Sprintf("field %q of %s cannot be updated", k, m.sch.Name), nil,
				[]errs.FieldError{{Field: k, Error: "not updatable"}})
		}
		if tag := f.Tag.Get("validate"); tag != "" {
			if err := validation.Var(k, v, tag); err != nil {
				return nil, err
			}
		}
		set[f.DBName] = v
	}
	return set, nil
}

func argsAs[A any](op string, args any) (A, error) {
	a, ok := args.(A)
	if !ok {
		var zero A
		return zero, errs.NewInternalError(fmt.Errorf("%s: unexpected args %T", op, args))
	}
	return a, nil
}

func one[T any](res any, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	v, ok := res.(*T)
	if !ok {
		return nil, errs.NewInternalError(fmt.Errorf("unexpected result %T", res))
	}
	return v, nil
}

func count(res any, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	n, ok := res.(int64)
	if !ok {
		return 0, errs.NewInternalError(fmt.Errorf("unexpected result %T", res))
	}
	return n, nil
}
