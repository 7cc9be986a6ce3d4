package orm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type User struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email" validate:"required,email"`
	Name      *string   `json:"name"`
	Role      string    `gorm:"not null;default:USER" json:"role" validate:"omitempty,oneof=ADMIN USER"`
	Posts     []Post    `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"posts,omitempty" validate:"dive"`
	Profile   *Profile  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`

	PostCount int64 `gorm:"->;-:migration" json:"postCount"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type Post struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Title     string    `gorm:"not null" json:"title" validate:"required"`
	Content   *string   `json:"content"`
	Published bool      `gorm:"not null;default:false" json:"published"`
	AuthorID  string    `gorm:"not null;index" json:"authorId"`

	NewTitle       string `gorm:"->;-:migration" json:"newTitle"`
	IsNotPublished bool   `gorm:"->;-:migration" json:"isNotPublished"`
}

func (p *Post) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

type Profile struct {
	ID     string `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"userId"`
	Age    *int   `json:"age"`

	AgePlus2 *int `gorm:"->;-:migration" json:"agePlus2"`
}

func (p *Profile) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func testComputed() ComputedFields {
	return ComputedFields{
		"Post": {
			"newTitle": func(eb ExprBuilder) clause.Expression { return eb.Ref("title") },
			"isNotPublished": func(eb ExprBuilder) clause.Expression {
				return eb.Not(eb.Ref("published"))
			},
		},
		"User": {
			"postCount": func(eb ExprBuilder) clause.Expression {
				return eb.CountWhere("posts", "author_id", eb.Ref("id"))
			},
		},
		"Profile": {
			"agePlus2": func(eb ExprBuilder) clause.Expression {
				return eb.Binary(eb.Ref("age"), "+", 2)
			},
		},
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Discard,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)
	require.NoError(t, db.AutoMigrate(&User{}, &Post{}, &Profile{}))
	return db
}

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()

	opts.Models = []any{&User{}, &Post{}, &Profile{}}
	if opts.ComputedFields == nil {
		opts.ComputedFields = testComputed()
	}
	c, err := New(newTestDB(t), opts)
	require.NoError(t, err)
	return c
}

// recorder is a plugin that logs what it sees.
type recorder struct {
	id string

	mu        sync.Mutex
	calls     []string
	mutations []MutationArgs
}

func (r *recorder) ID() string { return r.id }

func (r *recorder) OnQuery(ctx context.Context, q QueryContext, proceed Proceed) (any, error) {
	r.add(r.id + ">" + q.Model + "." + q.Operation)
	res, err := proceed(ctx, q.Args)
	r.add(r.id + "<" + q.Model + "." + q.Operation)
	return res, err
}

func (r *recorder) AfterEntityMutation(_ context.Context, args MutationArgs) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mutations = append(r.mutations, args)
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }
