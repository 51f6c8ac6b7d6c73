package log

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// gormLoggerAdapter routes GORM's SQL logging through a LoggerService.
type gormLoggerAdapter struct {
	log   LoggerService
	level gormLogger.LogLevel
}

// NewGormLogger creates a GORM logger writing through log. SQL statements are
// only traced when log runs at debug level.
func NewGormLogger(log LoggerService) gormLogger.Interface {
	level := gormLogger.Warn
	if log.Level() <= Debug {
		level = gormLogger.Info
	}

	return &gormLoggerAdapter{
		log:   log,
		level: level,
	}
}

func (g *gormLoggerAdapter) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *gormLoggerAdapter) Info(_ context.Context, msg string, args ...any) {
	if g.level >= gormLogger.Info {
		g.log.Info(msg, args...)
	}
}

func (g *gormLoggerAdapter) Warn(_ context.Context, msg string, args ...any) {
	if g.level >= gormLogger.Warn {
		g.log.Warn(msg, args...)
	}
}

func (g *gormLoggerAdapter) Error(_ context.Context, msg string, args ...any) {
	if g.level >= gormLogger.Error {
		g.log.Error(msg, args...)
	}
}

func (g *gormLoggerAdapter) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormLogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= gormLogger.Error:
		sql, rows := fc()
		g.log.Debug("SQL failed after %s (rows: %d): %s: %v", elapsed, rows, sql, err)
	case elapsed > slowQueryThreshold && g.level >= gormLogger.Warn:
		sql, rows := fc()
		g.log.Warn("Slow SQL took %s (rows: %d): %s", elapsed, rows, sql)
	case g.level >= gormLogger.Info:
		sql, rows := fc()
		g.log.Debug("SQL %s (rows: %d): %s", elapsed, rows, sql)
	}
}
