package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/deppfellow/ormdemo/internal/config"
	"github.com/deppfellow/ormdemo/internal/errs"
	"github.com/deppfellow/ormdemo/internal/plugins"
	"github.com/deppfellow/ormdemo/internal/repository"
	"github.com/deppfellow/ormdemo/internal/schema"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Discard,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)
	require.NoError(t, db.AutoMigrate(schema.Models()...))
	return db
}

func newTestScenario(t *testing.T) (*Scenario, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	var out, logs bytes.Buffer
	log := zerolog.New(&logs)

	client, err := NewClient(newTestDB(t), config.Default(), log)
	require.NoError(t, err)
	require.Equal(t, []string{plugins.CostLoggerID, plugins.MutationLoggerID}, client.Plugins())

	svc := NewService(client, repository.NewRepositories(client), &out, log)
	return svc.Scenario, &out, &logs
}

func TestScenario_Run(t *testing.T) {
	s, out, logs := newTestScenario(t)

	r, err := s.Run(context.Background())
	require.NoError(t, err)

	require.NotNil(t, r.User1)
	assert.Equal(t, schema.RoleAdmin, r.User1.Role)
	assert.EqualValues(t, 2, r.User1.PostCount)
	require.Len(t, r.User1.Posts, 2)
	for _, p := range r.User1.Posts {
		assert.Equal(t, p.Title, p.NewTitle)
		assert.Equal(t, !p.Published, p.IsNotPublished)
	}

	require.NotNil(t, r.Profile)
	assert.Equal(t, r.User1.ID, r.Profile.UserID)
	require.NotNil(t, r.Profile.AgePlus2)
	assert.Equal(t, 32, *r.Profile.AgePlus2)

	require.NotNil(t, r.User2)
	assert.Equal(t, schema.RoleUser, r.User2.Role)
	assert.Len(t, r.User2.Posts, 1)

	require.NotNil(t, r.UpdatedUser2)
	assert.Equal(t, r.User2.ID, r.UpdatedUser2.ID)
	assert.Equal(t, schema.RoleAdmin, r.UpdatedUser2.Role)

	assert.Empty(t, r.MixedFilter)

	require.Len(t, r.ComputedFilter, 1)
	assert.Equal(t, "yiming@gmail.com", r.ComputedFilter[0].Email)

	require.NotNil(t, r.SignedUp)
	assert.Equal(t, "marvin@zenstack.dev", r.SignedUp.Email)
	require.NotNil(t, r.SignedUp.Name)
	assert.Equal(t, "Marvin", *r.SignedUp.Name)
	assert.Equal(t, schema.RoleUser, r.SignedUp.Role)

	printed := out.String()
	for _, label := range []string{
		"User created:",
		"Profile created:",
		"User 2 updated:",
		"User found with mixed filter: []",
		"User found with computed field:",
		"User signed up:",
	} {
		assert.Contains(t, printed, label)
	}
	assert.Equal(t, 2, strings.Count(printed, "User created:"))

	logged := logs.String()
	assert.Contains(t, logged, `"message":"cost"`)
	assert.Contains(t, logged, `"message":"entity mutation"`)
	assert.Contains(t, logged, `"procedure":"signUp"`)

	mutations := entityMutations(t, logged)
	require.NotEmpty(t, mutations)
	assert.Equal(t, "User", mutations[0]["model"])

	var updates []map[string]any
	for _, m := range mutations {
		if m["action"] == "update" {
			updates = append(updates, m)
		}
	}
	require.Len(t, updates, 1)
	assert.Equal(t, "User", updates[0]["model"])
	data, ok := updates[0]["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ADMIN", data["role"])
}

func entityMutations(t *testing.T, logged string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(logged), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		if m["message"] == "entity mutation" {
			out = append(out, m)
		}
	}
	return out
}

func TestScenario_RunTwiceStartsClean(t *testing.T) {
	s, _, _ := newTestScenario(t)
	ctx := context.Background()

	_, err := s.Run(ctx)
	require.NoError(t, err)
	r, err := s.Run(ctx)
	require.NoError(t, err)

	n, err := s.repos.Users.Count(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Len(t, r.ComputedFilter, 1)
}

func TestSignUp_RejectsBadArguments(t *testing.T) {
	s, _, _ := newTestScenario(t)
	ctx := context.Background()

	_, err := s.client.Call(ctx, SignUpProcedure, "only-email@zenstack.dev")
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = s.client.Call(ctx, SignUpProcedure, 42, "Marvin")
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = s.client.Call(ctx, SignUpProcedure, "not-an-email", "Marvin")
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}
