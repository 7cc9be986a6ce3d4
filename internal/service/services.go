package service

import (
	"io"

	"github.com/deppfellow/ormdemo/internal/orm"
	"github.com/deppfellow/ormdemo/internal/repository"
	"github.com/rs/zerolog"
)

type Services struct {
	Scenario *Scenario
}

func NewService(client *orm.Client, repos *repository.Repositories, out io.Writer, log zerolog.Logger) *Services {
	return &Services{
		Scenario: NewScenario(client, repos, out, log),
	}
}
