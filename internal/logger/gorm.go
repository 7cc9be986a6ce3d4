package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormOptions selects what the GORM adapter writes.
type GormOptions struct {
	// Queries logs every statement with its duration and affected rows.
	Queries bool
	// Errors logs failed statements (record-not-found excluded).
	Errors bool
	// SlowThreshold logs statements slower than this at warn. Zero disables.
	SlowThreshold time.Duration
}

// GormLogger adapts zerolog to gorm.io/gorm/logger.Interface.
type GormLogger struct {
	log    zerolog.Logger
	opts   GormOptions
	silent bool
}

var _ gormlogger.Interface = (*GormLogger)(nil)

// NewGormLogger returns a GORM logger writing to log.
func NewGormLogger(log zerolog.Logger, opts GormOptions) *GormLogger {
	return &GormLogger{
		log:  log.With().Str("component", "orm").Logger(),
		opts: opts,
	}
}

// LogMode implements gormlogger.Interface.
//
// Silent mutes the adapter; Info (as set by db.Debug()) turns query logging on.
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.silent = level == gormlogger.Silent
	if level >= gormlogger.Info {
		cp.opts.Queries = true
	}
	return &cp
}

func (l *GormLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.silent {
		return
	}
	l.log.Info().Ctx(ctx).Msg(fmt.Sprintf(msg, args...))
}

func (l *GormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.silent {
		return
	}
	l.log.Warn().Ctx(ctx).Msg(fmt.Sprintf(msg, args...))
}

func (l *GormLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.silent {
		return
	}
	l.log.Error().Ctx(ctx).Msg(fmt.Sprintf(msg, args...))
}

// Trace implements gormlogger.Interface; GORM calls it once per statement.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && l.opts.Errors && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.log.Error().Ctx(ctx).
			Err(err).
			Str("sql", sql).
			Int64("rows", rows).
			Dur("elapsed", elapsed).
			Msg("query failed")

	case l.opts.SlowThreshold > 0 && elapsed > l.opts.SlowThreshold:
		sql, rows := fc()
		l.log.Warn().Ctx(ctx).
			Str("sql", sql).
			Int64("rows", rows).
			Dur("elapsed", elapsed).
			Dur("threshold", l.opts.SlowThreshold).
			Msg("slow query")

	case l.opts.Queries:
		sql, rows := fc()
		l.log.Debug().Ctx(ctx).
			Str("sql", sql).
			Int64("rows", rows).
			Dur("elapsed", elapsed).
			Msg("query")
	}
}
