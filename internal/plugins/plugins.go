// Package plugins contains the client plugins wired into the demo run:
// a per-operation cost logger and an entity mutation logger.
package plugins

import (
	"context"
	"time"

	"github.com/deppfellow/ormdemo/internal/orm"
	"github.com/rs/zerolog"
)

const (
	CostLoggerID     = "cost-logger"
	MutationLoggerID = "mutation-logger"
)

// CostLogger logs how long each model operation took, errors included.
type CostLogger struct {
	log zerolog.Logger
	now func() time.Time
}

func NewCostLogger(log zerolog.Logger) *CostLogger {
	return &CostLogger{log: log, now: time.Now}
}

func (p *CostLogger) ID() string { return CostLoggerID }

func (p *CostLogger) OnQuery(ctx context.Context, q orm.QueryContext, proceed orm.Proceed) (any, error) {
	start := p.now()
	res, err := proceed(ctx, q.Args)
	took := p.now().Sub(start)

	event := p.log.Info()
	if err != nil {
		event = p.log.Warn().Err(err)
	}
	event.
		Str("model", q.Model).
		Str("operation", q.Operation).
		Dur("took", took).
		Msg("cost")
	return res, err
}

// MutationLogger logs the column values written by inserts and updates.
// Deletes carry no values and are skipped.
type MutationLogger struct {
	log zerolog.Logger
}

func NewMutationLogger(log zerolog.Logger) *MutationLogger {
	return &MutationLogger{log: log}
}

func (p *MutationLogger) ID() string { return MutationLoggerID }

func (p *MutationLogger) AfterEntityMutation(_ context.Context, args orm.MutationArgs) {
	if args.QueryNode == nil {
		return
	}
	switch args.QueryNode.Kind() {
	case orm.NodeInsert, orm.NodeUpdate:
	default:
		return
	}

	event := p.log.Info().
		Str("model", args.Model).
		Str("action", string(args.Action)).
		Interface("data", orm.ExtractMutationData(args.QueryNode))
	if args.Auth != nil {
		event = event.Str("auth_id", args.Auth.ID)
	}
	event.Msg("entity mutation")
}
