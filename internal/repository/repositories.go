package repository

import (
	"github.com/deppfellow/ormdemo/internal/orm"
	"github.com/deppfellow/ormdemo/internal/schema"
)

// Repositories is a container for all repository instances.
//
// Each accessor is bound to the client it was built from, so plugins and
// auth attached to that client apply to every call.
type Repositories struct {
	Users    *orm.Model[schema.User]
	Posts    *orm.Model[schema.Post]
	Profiles *orm.Model[schema.Profile]
}

// NewRepositories constructs the repository container over client.
func NewRepositories(client *orm.Client) *Repositories {
	return &Repositories{
		Users:    orm.For[schema.User](client),
		Posts:    orm.For[schema.Post](client),
		Profiles: orm.For[schema.Profile](client),
	}
}
