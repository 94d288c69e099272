package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// slowQueryThreshold is the elapsed time above which a statement is logged as slow.
const slowQueryThreshold = 200 * time.Millisecond

// queryLogger routes GORM statement logs into zerolog.
type queryLogger struct {
	log        zerolog.Logger
	level      logger.LogLevel
	logQueries bool
	logParams  bool
}

var (
	_ logger.Interface  = (*queryLogger)(nil)
	_ gorm.ParamsFilter = (*queryLogger)(nil)
)

func newQueryLogger(cfg Config) *queryLogger {
	zl := cfg.logger()

	level := cfg.LogLevel
	if level == 0 {
		level = logger.Warn
	}
	if cfg.LogQueries && level < logger.Info {
		level = logger.Info
	}

	return &queryLogger{
		log:        zl.With().Str("component", "gorm").Logger(),
		level:      level,
		logQueries: cfg.LogQueries,
		logParams:  cfg.LogParams,
	}
}

// LogMode returns a copy of the logger at the given level.
func (l *queryLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *queryLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Info {
		l.log.Info().Msgf(msg, data...)
	}
}

func (l *queryLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Warn {
		l.log.Warn().Msgf(msg, data...)
	}
}

func (l *queryLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Error {
		l.log.Error().Msgf(msg, data...)
	}
}

// Trace logs a finished statement. Failures and slow statements are always
// reported; everything else only when query logging is on.
func (l *queryLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.log.Error().
			Err(err).
			Str("sql", sql).
			Int64("rows", rows).
			Dur("elapsed", elapsed).
			Msg("Query failed")
	case elapsed > slowQueryThreshold && l.level >= logger.Warn:
		sql, rows := fc()
		l.log.Warn().
			Str("sql", sql).
			Int64("rows", rows).
			Dur("elapsed", elapsed).
			Msg("Slow query")
	case l.logQueries && l.level >= logger.Info:
		sql, rows := fc()
		l.log.Debug().
			Str("sql", sql).
			Int64("rows", rows).
			Dur("elapsed", elapsed).
			Msg("Query")
	}
}

// ParamsFilter drops bound parameters from logged SQL unless parameter
// logging is on, leaving placeholders in place.
func (l *queryLogger) ParamsFilter(_ context.Context, sql string, params ...interface{}) (string, []interface{}) {
	if l.logParams {
		return sql, params
	}
	return sql, nil
}
