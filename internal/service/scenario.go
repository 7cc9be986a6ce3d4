package service

import (
	"context"
	"fmt"
	"io"

	"github.com/deppfellow/ormdemo/internal/errs"
	"github.com/deppfellow/ormdemo/internal/lib/utils"
	"github.com/deppfellow/ormdemo/internal/orm"
	"github.com/deppfellow/ormdemo/internal/repository"
	"github.com/deppfellow/ormdemo/internal/schema"
	"github.com/rs/zerolog"
	"gorm.io/gorm/clause"
)

// Report holds every result the scenario printed.
type Report struct {
	User1          *schema.User    `json:"user1"`
	Profile        *schema.Profile `json:"profile"`
	User2          *schema.User    `json:"user2"`
	UpdatedUser2   *schema.User    `json:"updatedUser2"`
	MixedFilter    []schema.User   `json:"mixedFilter"`
	ComputedFilter []schema.User   `json:"computedFilter"`
	SignedUp       *schema.User    `json:"signedUp"`
}

// Scenario is the fixed create/update/find sequence run by the CLI.
type Scenario struct {
	client *orm.Client
	repos  *repository.Repositories
	out    io.Writer
	log    zerolog.Logger
}

func NewScenario(client *orm.Client, repos *repository.Repositories, out io.Writer, log zerolog.Logger) *Scenario {
	return &Scenario{client: client, repos: repos, out: out, log: log}
}

// Run clears all data, then creates, updates and queries users, posts and a
// profile, printing each result. The first failure aborts the run.
func (s *Scenario) Run(ctx context.Context) (*Report, error) {
	if err := s.reset(ctx); err != nil {
		return nil, err
	}

	r := &Report{}
	var err error

	r.User1, err = s.repos.Users.Create(ctx, &schema.User{
		Email: "yiming@gmail.com",
		Role:  schema.RoleAdmin,
		Posts: []schema.Post{
			{Title: "Post1", Content: ptr("An unpublished post"), Published: false},
			{Title: "Post2", Content: ptr("A published post"), Published: true},
		},
	}, "posts")
	if err := s.print("User created:", r.User1, err); err != nil {
		return nil, err
	}

	r.Profile, err = s.repos.Profiles.Create(ctx, &schema.Profile{
		UserID: r.User1.ID,
		Age:    ptr(30),
		Bio:    ptr("This is a sample profile"),
	})
	if err := s.print("Profile created:", r.Profile, err); err != nil {
		return nil, err
	}

	r.User2, err = s.repos.Users.Create(ctx, &schema.User{
		Email: "jiasheng@zenstack.dev",
		Role:  schema.RoleUser,
		Posts: []schema.Post{
			{Title: "Post3", Content: ptr("Another unpublished post"), Published: false},
		},
	}, "posts")
	if err := s.print("User created:", r.User2, err); err != nil {
		return nil, err
	}

	r.UpdatedUser2, err = s.repos.Users.Update(ctx, orm.Where{"id": r.User2.ID}, orm.Data{"role": schema.RoleAdmin})
	if err := s.print("User 2 updated:", r.UpdatedUser2, err); err != nil {
		return nil, err
	}

	// Structured filter mixed with a raw expression.
	r.MixedFilter, err = s.repos.Users.FindMany(ctx, orm.Query{Where: orm.Where{
		"role": schema.RoleUser,
		orm.ExprKey: orm.ExprFunc(func(eb orm.ExprBuilder) clause.Expression {
			return eb.Cmp("email", "LIKE", "%@zenstack.dev")
		}),
	}})
	if err := s.print("User found with mixed filter:", r.MixedFilter, err); err != nil {
		return nil, err
	}

	r.ComputedFilter, err = s.repos.Users.FindMany(ctx, orm.Query{Where: orm.Where{
		"role":      schema.RoleAdmin,
		"postCount": orm.Gt(1),
	}})
	if err := s.print("User found with computed field:", r.ComputedFilter, err); err != nil {
		return nil, err
	}

	res, err := s.client.Call(ctx, SignUpProcedure, "marvin@zenstack.dev", "Marvin")
	if err == nil {
		var ok bool
		if r.SignedUp, ok = res.(*schema.User); !ok {
			err = errs.NewInternalError(fmt.Errorf("%s returned %T", SignUpProcedure, res))
		}
	}
	if err := s.print("User signed up:", r.SignedUp, err); err != nil {
		return nil, err
	}

	return r, nil
}

// reset deletes posts, profiles and users, children first.
func (s *Scenario) reset(ctx context.Context) error {
	if _, err := s.repos.Posts.DeleteMany(ctx, nil); err != nil {
		return fmt.Errorf("clean up posts: %w", err)
	}
	if _, err := s.repos.Profiles.DeleteMany(ctx, nil); err != nil {
		return fmt.Errorf("clean up profiles: %w", err)
	}
	if _, err := s.repos.Users.DeleteMany(ctx, nil); err != nil {
		return fmt.Errorf("clean up users: %w", err)
	}
	return nil
}

// print writes v under label, or wraps stepErr with the label.
func (s *Scenario) print(label string, v any, stepErr error) error {
	if stepErr != nil {
		s.log.Error().Err(stepErr).Str("step", label).Msg("scenario step failed")
		return fmt.Errorf("%s %w", label, stepErr)
	}
	return utils.PrintJSON(s.out, label, v)
}

func ptr[T any](v T) *T { return &v }
