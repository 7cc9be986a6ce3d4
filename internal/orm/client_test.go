package orm

import (
	"context"
	"errors"
	"testing"

	"github.com/deppfellow/ormdemo/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/clause"
)

// tagger appends its id to a shared log around every operation.
type tagger struct {
	id  string
	log *[]string
}

func (tg tagger) ID() string { return tg.id }

func (tg tagger) OnQuery(ctx context.Context, q QueryContext, proceed Proceed) (any, error) {
	*tg.log = append(*tg.log, tg.id+">")
	res, err := proceed(ctx, q.Args)
	*tg.log = append(*tg.log, tg.id+"<")
	return res, err
}

func TestNew_RejectsBadOptions(t *testing.T) {
	db := newTestDB(t)
	models := []any{&User{}, &Post{}, &Profile{}}
	ref := func(eb ExprBuilder) clause.Expression { return eb.Ref("title") }

	tests := []struct {
		name string
		opts Options
	}{
		{"unknown model", Options{Models: models, ComputedFields: ComputedFields{"Comment": {"x": ref}}}},
		{"unknown field", Options{Models: models, ComputedFields: ComputedFields{"Post": {"missing": ref}}}},
		{"writable field", Options{Models: models, ComputedFields: ComputedFields{"Post": {"title": ref}}}},
		{"nil expression", Options{Models: models, ComputedFields: ComputedFields{"Post": {"newTitle": nil}}}},
		{"nil procedure", Options{Models: models, Procedures: map[string]Procedure{"signUp": nil}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(db, tt.opts)
			assert.Error(t, err)
		})
	}

	_, err := New(nil, Options{})
	assert.Error(t, err)
}

func TestClient_UseUnuse(t *testing.T) {
	c := newTestClient(t, Options{})
	var log []string

	a := c.Use(tagger{id: "a", log: &log}).Use(tagger{id: "b", log: &log})
	assert.Empty(t, c.Plugins())
	assert.Equal(t, []string{"a", "b"}, a.Plugins())

	replaced := a.Use(tagger{id: "a", log: &log})
	assert.Equal(t, []string{"a", "b"}, replaced.Plugins())

	assert.Equal(t, []string{"b"}, a.Unuse("a").Plugins())
	assert.Equal(t, []string{"a", "b"}, a.Plugins())
}

func TestClient_WithAuth(t *testing.T) {
	c := newTestClient(t, Options{})
	assert.Nil(t, c.Auth())

	authed := c.WithAuth(Auth{ID: "1", Role: "ADMIN"})
	require.NotNil(t, authed.Auth())
	assert.Equal(t, "ADMIN", authed.Auth().Role)
	assert.Nil(t, c.Auth())
}

func TestClient_InterceptorOrder(t *testing.T) {
	var log []string
	c := newTestClient(t, Options{}).
		Use(tagger{id: "outer", log: &log}).
		Use(tagger{id: "inner", log: &log})

	_, err := For[User](c).Count(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer>", "inner>", "inner<", "outer<"}, log)
}

type rewriter struct{}

func (rewriter) ID() string { return "rewriter" }

func (rewriter) OnQuery(ctx context.Context, q QueryContext, proceed Proceed) (any, error) {
	if args, ok := q.Args.(*Query); ok && q.Operation == OpFindMany {
		narrowed := *args
		narrowed.Where = Where{"role": "ADMIN"}
		return proceed(ctx, &narrowed)
	}
	return proceed(ctx, q.Args)
}

type blocker struct{}

func (blocker) ID() string { return "blocker" }

func (blocker) OnQuery(context.Context, QueryContext, Proceed) (any, error) {
	return nil, errors.New("blocked")
}

func TestClient_InterceptorRewritesAndShortCircuits(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, Options{})
	users := For[User](c)

	_, err := users.Create(ctx, &User{Email: "a@zenstack.dev", Role: "ADMIN"})
	require.NoError(t, err)
	_, err = users.Create(ctx, &User{Email: "u@zenstack.dev", Role: "USER"})
	require.NoError(t, err)

	found, err := For[User](c.Use(rewriter{})).FindMany(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "a@zenstack.dev", found[0].Email)

	_, err = For[User](c.Use(blocker{})).FindMany(ctx, Query{})
	assert.EqualError(t, err, "blocked")
}

func TestClient_InterceptorSeesNormalizedErrors(t *testing.T) {
	r := &recorder{id: "r"}
	c := newTestClient(t, Options{}).Use(r)

	_, err := For[User](c).FindUnique(context.Background(), Where{"email": "nobody@zenstack.dev"})
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
	assert.Equal(t, []string{"r>User.findUnique", "r<User.findUnique"}, r.calls)
}

func TestClient_Call(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, Options{Procedures: map[string]Procedure{
		"signUp": func(ctx context.Context, c *Client, args ...any) (any, error) {
			email, _ := args[0].(string)
			return For[User](c).Create(ctx, &User{Email: email})
		},
	}})
	assert.Equal(t, []string{"signUp"}, c.Procedures())

	res, err := c.Call(ctx, "signUp", "marvin@zenstack.dev")
	require.NoError(t, err)
	u, ok := res.(*User)
	require.True(t, ok)
	assert.Equal(t, "marvin@zenstack.dev", u.Email)
	assert.Equal(t, "USER", u.Role)

	_, err = c.Call(ctx, "signIn")
	assert.True(t, errs.IsNotFound(err))
}

func TestClient_Transaction(t *testing.T) {
	ctx := context.Background()
	r := &recorder{id: "r"}
	c := newTestClient(t, Options{}).Use(r)

	err := c.Transaction(ctx, func(tx *Client) error {
		assert.Equal(t, []string{"r"}, tx.Plugins())
		if _, err := For[User](tx).Create(ctx, &User{Email: "tx@zenstack.dev"}); err != nil {
			return err
		}
		return errors.New("rollback")
	})
	assert.EqualError(t, err, "rollback")

	n, err := For[User](c).Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	err = c.Transaction(ctx, func(tx *Client) error {
		_, err := For[User](tx).Create(ctx, &User{Email: "tx@zenstack.dev"})
		return err
	})
	require.NoError(t, err)

	n, err = For[User](c).Count(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestClient_MutationObserver(t *testing.T) {
	ctx := context.Background()
	r := &recorder{id: "r"}
	c := newTestClient(t, Options{}).WithAuth(Auth{ID: "1", Role: "ADMIN"}).Use(r)
	users := For[User](c)

	_, err := users.Create(ctx, &User{
		Email: "yiming@gmail.com",
		Role:  "ADMIN",
		Posts: []Post{{Title: "Post1"}, {Title: "Post2", Published: true}},
	})
	require.NoError(t, err)

	require.Len(t, r.mutations, 2)
	assert.Equal(t, "User", r.mutations[0].Model, "parent insert is reported first")
	assert.Equal(t, "Post", r.mutations[1].Model)
	byModel := map[string]MutationArgs{}
	for _, m := range r.mutations {
		assert.Equal(t, ActionCreate, m.Action)
		require.NotNil(t, m.Auth)
		assert.Equal(t, "1", m.Auth.ID)
		byModel[m.Model] = m
	}

	userData := ExtractMutationData(byModel["User"].QueryNode)
	assert.Equal(t, "yiming@gmail.com", userData["email"])
	assert.Equal(t, "ADMIN", userData["role"])

	postNode, ok := byModel["Post"].QueryNode.(*InsertNode)
	require.True(t, ok)
	assert.Len(t, postNode.Rows, 2)
	assert.Equal(t, "Post1", ExtractMutationData(postNode)["title"])

	r.mutations = nil
	_, err = users.Update(ctx, Where{"email": "yiming@gmail.com"}, Data{"name": "Yiming"})
	require.NoError(t, err)
	require.Len(t, r.mutations, 1)
	assert.Equal(t, ActionUpdate, r.mutations[0].Action)
	updated := ExtractMutationData(r.mutations[0].QueryNode)
	assert.Equal(t, "Yiming", updated["name"])
	assert.Contains(t, updated, "updated_at")

	r.mutations = nil
	n, err := users.UpdateMany(ctx, Where{"role": "ADMIN"}, Data{"role": "USER"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	require.Len(t, r.mutations, 1)
	assert.Equal(t, "USER", ExtractMutationData(r.mutations[0].QueryNode)["role"])

	r.mutations = nil
	_, err = users.UpdateMany(ctx, Where{"email": "nobody@zenstack.dev"}, Data{"name": "x"})
	require.NoError(t, err)
	assert.Empty(t, r.mutations, "no rows changed")

	_, err = For[Post](c).DeleteMany(ctx, nil)
	require.NoError(t, err)
	require.Len(t, r.mutations, 1)
	assert.Equal(t, ActionDelete, r.mutations[0].Action)
	assert.Equal(t, NodeDelete, r.mutations[0].QueryNode.Kind())
	assert.Nil(t, ExtractMutationData(r.mutations[0].QueryNode))
}

func TestExtractMutationData(t *testing.T) {
	insert := &InsertNode{
		Columns: []string{"email", "name", "role"},
		Rows:    [][]any{{"a@zenstack.dev", nil}, {"b@zenstack.dev", "B", "USER"}},
	}
	assert.Equal(t, map[string]any{"email": "a@zenstack.dev", "name": nil, "role": nil}, ExtractMutationData(insert))

	assert.Equal(t, map[string]any{"email": nil}, ExtractMutationData(&InsertNode{Columns: []string{"email"}}))

	update := &UpdateNode{Updates: []ColumnUpdate{{Column: "role", Value: "ADMIN"}}}
	assert.Equal(t, map[string]any{"role": "ADMIN"}, ExtractMutationData(update))

	assert.Nil(t, ExtractMutationData(&DeleteNode{}))
	assert.Nil(t, ExtractMutationData(nil))
}
