package orm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/deppfellow/ormdemo/internal/errs"
	"github.com/deppfellow/ormdemo/internal/sqlerr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// Client is the configured entry point. It is safe for concurrent use and
// never mutated after construction.
type Client struct {
	db         *gorm.DB
	models     map[string]*schema.Schema
	computed   map[string]map[string]ComputedField
	procedures map[string]Procedure
	plugins    []Plugin
	auth       *Auth
}

// New builds a client over db.
//
// Every computed field must belong to a registered model and name a
// read-only field of it (gorm tag "->"). Every procedure needs a name and a body.
func New(db *gorm.DB, opts Options) (*Client, error) {
	if db == nil {
		return nil, fmt.Errorf("orm: nil *gorm.DB")
	}
	if opts.Logger != nil {
		db = db.Session(&gorm.Session{Logger: opts.Logger})
	}

	c := &Client{
		db:         db,
		models:     make(map[string]*schema.Schema, len(opts.Models)),
		computed:   make(map[string]map[string]ComputedField),
		procedures: make(map[string]Procedure, len(opts.Procedures)),
	}

	cache := &sync.Map{}
	for _, m := range opts.Models {
		sch, err := schema.Parse(m, cache, db.NamingStrategy)
		if err != nil {
			return nil, fmt.Errorf("orm: parse model %T: %w", m, err)
		}
		c.models[sch.Name] = sch
	}

	for model, fields := range opts.ComputedFields {
		sch, ok := c.models[model]
		if !ok {
			return nil, fmt.Errorf("orm: computed fields for unknown model %q", model)
		}
		for name, fn := range fields {
			f := lookupField(sch, name)
			if f == nil || f.DBName == "" {
				return nil, fmt.Errorf("orm: computed field %s.%s has no matching struct field", model, name)
			}
			if f.Creatable || f.Updatable {
				return nil, fmt.Errorf("orm: computed field %s.%s must be read-only (gorm:\"->\")", model, name)
			}
			if fn == nil {
				return nil, fmt.Errorf("orm: computed field %s.%s has no expression", model, name)
			}
			if c.computed[model] == nil {
				c.computed[model] = make(map[string]ComputedField)
			}
			c.computed[model][f.DBName] = fn
		}
	}

	for name, p := range opts.Procedures {
		if name == "" || p == nil {
			return nil, fmt.Errorf("orm: procedure %q is incomplete", name)
		}
		c.procedures[name] = p
	}

	if err := registerCallbacks(db); err != nil {
		return nil, fmt.Errorf("orm: register callbacks: %w", err)
	}

	for _, p := range opts.Plugins {
		c = c.Use(p)
	}
	return c, nil
}

func (c *Client) clone() *Client {
	cp := *c
	cp.plugins = append([]Plugin(nil), c.plugins...)
	return &cp
}

// WithAuth returns a client carrying auth.
func (c *Client) WithAuth(auth Auth) *Client {
	cp := c.clone()
	cp.auth = &auth
	return cp
}

// Auth returns the attached auth context, or nil.
func (c *Client) Auth() *Auth {
	return c.auth
}

// Use returns a client with p added. A plugin whose ID is already
// registered replaces the old one in place.
func (c *Client) Use(p Plugin) *Client {
	cp := c.clone()
	for i, existing := range cp.plugins {
		if existing.ID() == p.ID() {
			cp.plugins[i] = p
			return cp
		}
	}
	cp.plugins = append(cp.plugins, p)
	return cp
}

// Unuse returns a client without the plugin registered under id.
func (c *Client) Unuse(id string) *Client {
	cp := c.clone()
	kept := cp.plugins[:0]
	for _, p := range cp.plugins {
		if p.ID() != id {
			kept = append(kept, p)
		}
	}
	cp.plugins = kept
	return cp
}

// Plugins returns the IDs of the registered plugins in order.
func (c *Client) Plugins() []string {
	ids := make([]string, 0, len(c.plugins))
	for _, p := range c.plugins {
		ids = append(ids, p.ID())
	}
	return ids
}

// Procedures returns the registered procedure names, sorted.
func (c *Client) Procedures() []string {
	names := make([]string, 0, len(c.procedures))
	for name := range c.procedures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call invokes the procedure registered under name.
func (c *Client) Call(ctx context.Context, name string, args ...any) (any, error) {
	p, ok := c.procedures[name]
	if !ok {
		return nil, errs.NewNotFoundError(fmt.Sprintf("procedure %q not found", name), nil)
	}
	return p(ctx, c, args...)
}

// Transaction runs fn with a client bound to a database transaction.
// The transaction commits if fn returns nil and rolls back otherwise.
func (c *Client) Transaction(ctx context.Context, fn func(tx *Client) error) error {
	return c.db.WithContext(c.bind(ctx)).Transaction(func(tx *gorm.DB) error {
		txc := c.clone()
		txc.db = tx
		return fn(txc)
	})
}

// DB exposes the underlying GORM handle.
func (c *Client) DB() *gorm.DB {
	return c.db
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// bind stores this client's observers and auth in ctx for the GORM callbacks.
func (c *Client) bind(ctx context.Context) context.Context {
	st := &hookState{auth: c.auth}
	for _, p := range c.plugins {
		if o, ok := p.(MutationObserver); ok {
			st.observers = append(st.observers, o)
		}
	}
	return withHookState(ctx, st)
}

// session starts a fresh statement bound to ctx.
func (c *Client) session(ctx context.Context) *gorm.DB {
	return c.db.WithContext(ctx)
}

// intercept runs final through the QueryInterceptor chain.
// Errors are normalized before interceptors see them.
func (c *Client) intercept(ctx context.Context, model, op string, args any, final Proceed) (any, error) {
	next := func(ctx context.Context, args any) (any, error) {
		res, err := final(ctx, args)
		return res, sqlerr.HandleError(err)
	}

	for i := len(c.plugins) - 1; i >= 0; i-- {
		qi, ok := c.plugins[i].(QueryInterceptor)
		if !ok {
			continue
		}
		inner := next
		next = func(ctx context.Context, args any) (any, error) {
			return qi.OnQuery(ctx, QueryContext{
				Model:     model,
				Operation: op,
				Args:      args,
				Auth:      c.auth,
				Client:    c,
			}, inner)
		}
	}

	return next(c.bind(ctx), args)
}

// withComputed selects the model's columns plus its computed fields.
func (c *Client) withComputed(tx *gorm.DB, sch *schema.Schema) *gorm.DB {
	fields := c.computed[sch.Name]
	if len(fields) == 0 {
		return tx
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	eb := newExprBuilder(sch)
	list := selectList{computed: make([]aliased, 0, len(names))}
	for _, name := range names {
		list.computed = append(list.computed, aliased{e: fields[name](eb), alias: name})
	}
	return tx.Clauses(clause.Select{Expression: list})
}

// preload adds includes by relation name, selecting the related model's
// computed fields too.
func (c *Client) preload(tx *gorm.DB, sch *schema.Schema, include []string) (*gorm.DB, error) {
	for _, name := range include {
		rel := lookupRelation(sch, name)
		if rel == nil {
			return nil, errs.NewValidationError(fmt.Sprintf("unknown relation %q on model %s", name, sch.Name), nil,
				[]errs.FieldError{{Field: name, Error: "unknown relation"}})
		}
		related := rel.FieldSchema
		if known, ok := c.models[related.Name]; ok {
			related = known
		}
		tx = tx.Preload(rel.Name, func(db *gorm.DB) *gorm.DB {
			return c.withComputed(db, related)
		})
	}
	return tx, nil
}

// lookupField resolves a Go field name, column name or lowerCamel field name.
func lookupField(sch *schema.Schema, name string) *schema.Field {
	if f := sch.LookUpField(name); f != nil {
		return f
	}
	for _, f := range sch.Fields {
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

func lookupRelation(sch *schema.Schema, name string) *schema.Relationship {
	if rel, ok := sch.Relationships.Relations[name]; ok {
		return rel
	}
	for relName, rel := range sch.Relationships.Relations {
		if strings.EqualFold(relName, name) {
			return rel
		}
	}
	return nil
}
