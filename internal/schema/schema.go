// Package schema holds the data model served by the client: the User, Post
// and Profile entities and the SQL expressions behind their computed fields.
//
// Tables are created by the SQL migrations in internal/database; the gorm tags
// here mirror them so AutoMigrate produces an equivalent schema in tests.
package schema

import (
	"time"

	"github.com/deppfellow/ormdemo/internal/validation"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is a user's role.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

type User struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Email     string    `gorm:"uniqueIndex:users_email_key;not null" json:"email" validate:"required,email"`
	Name      *string   `json:"name"`
	Role      Role      `gorm:"not null;default:USER" json:"role" validate:"omitempty,oneof=ADMIN USER"`

	Posts   []Post   `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"posts,omitempty" validate:"dive"`
	Profile *Profile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`

	// PostCount is computed.
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
	Title     string    `gorm:"not null" json:"title" validate:"required,max=255"`
	Content   *string   `json:"content"`
	Published bool      `gorm:"not null;default:false" json:"published"`
	AuthorID  string    `gorm:"not null;index" json:"authorId"`

	// NewTitle and IsNotPublished are computed.
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
	ID     string  `gorm:"primaryKey" json:"id"`
	UserID string  `gorm:"uniqueIndex:profiles_user_id_key;not null" json:"userId" validate:"required"`
	Age    *int    `json:"age" validate:"omitempty,min=0"`
	Bio    *string `json:"bio"`

	// AgePlus2 is computed.
	AgePlus2 *int `gorm:"->;-:migration" json:"agePlus2"`
}

// Validate checks that the profile points at a well-formed user id.
func (p *Profile) Validate() error {
	if !validation.IsValidUUID(p.UserID) {
		return validation.CustomValidationErrors{{Field: "userId", Message: "must be a valid user id"}}
	}
	return nil
}

func (p *Profile) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Models lists the entities in dependency order.
func Models() []any {
	return []any{&User{}, &Post{}, &Profile{}}
}
