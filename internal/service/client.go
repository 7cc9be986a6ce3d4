package service

import (
	"github.com/deppfellow/ormdemo/internal/config"
	"github.com/deppfellow/ormdemo/internal/orm"
	"github.com/deppfellow/ormdemo/internal/plugins"
	"github.com/deppfellow/ormdemo/internal/schema"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// NewClient builds the client used by the scenario: the schema's models and
// computed fields, the signUp procedure, the auth context from cfg, then the
// cost logger and the mutation logger, in that order.
func NewClient(db *gorm.DB, cfg *config.Config, log zerolog.Logger) (*orm.Client, error) {
	client, err := orm.New(db, orm.Options{
		Models:         schema.Models(),
		ComputedFields: schema.ComputedFields(),
		Procedures:     Procedures(log),
	})
	if err != nil {
		return nil, err
	}

	if cfg.Client.AuthID != "" {
		client = client.WithAuth(orm.Auth{ID: cfg.Client.AuthID, Role: cfg.Client.AuthRole})
	}

	return client.
		Use(plugins.NewCostLogger(log)).
		Use(plugins.NewMutationLogger(log)), nil
}
