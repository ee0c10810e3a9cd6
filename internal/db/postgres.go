package db

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/hpungsan/qet/internal/config"
	"github.com/hpungsan/qet/internal/errors"
)

// KVEntry maps qet_kv, the remote counterpart of the SQLite kv table.
type KVEntry struct {
	Area      string    `gorm:"column:area;type:text;primaryKey"`
	Key       string    `gorm:"column:key;type:text;primaryKey"`
	Value     string    `gorm:"column:value;type:jsonb;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (KVEntry) TableName() string { return "qet_kv" }

// PostgresArea is a storage.Area stored in Postgres, used for the synced
// settings area so several machines share one settings record.
type PostgresArea struct {
	gdb  *gorm.DB
	area string
}

// OpenPostgres connects to cfg.SyncDatabaseURL and migrates qet_kv.
func OpenPostgres(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	if cfg == nil || strings.TrimSpace(cfg.SyncDatabaseURL) == "" {
		return nil, fmt.Errorf("sync database url is not configured")
	}

	// gorm's default logger writes to stdout, which carries the MCP protocol.
	gormLogger := logger.New(log.New(os.Stderr, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  resolveGormLogLevel(cfg.LogLevel),
		IgnoreRecordNotFoundError: true,
	})

	gdb, err := gorm.Open(postgres.Open(cfg.SyncDatabaseURL), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get gorm sql db: %w", err)
	}

	maxOpen := cfg.DBMaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 4
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(max(1, min(cfg.DBMaxIdleConns, maxOpen)))
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := gdb.WithContext(ctx).AutoMigrate(&KVEntry{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("auto-migrate schema: %w", err)
	}

	return gdb, nil
}

// NewPostgresArea returns the named area stored in gdb.
func NewPostgresArea(gdb *gorm.DB, area string) *PostgresArea {
	return &PostgresArea{gdb: gdb, area: area}
}

// Get retrieves the value stored under key.
func (a *PostgresArea) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry KVEntry
	err := a.gdb.WithContext(ctx).
		Where("area = ? AND key = ?", a.area, key).
		Take(&entry).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewInternal(err)
	}
	return []byte(entry.Value), true, nil
}

// Set upserts the value stored under key.
func (a *PostgresArea) Set(ctx context.Context, key string, value []byte) error {
	entry := KVEntry{Area: a.area, Key: key, Value: string(value), UpdatedAt: time.Now().UTC()}
	err := a.gdb.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "area"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Remove deletes key from the area.
func (a *PostgresArea) Remove(ctx context.Context, key string) error {
	err := a.gdb.WithContext(ctx).
		Where("area = ? AND key = ?", a.area, key).
		Delete(&KVEntry{}).Error
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func resolveGormLogLevel(appLogLevel string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(appLogLevel)) {
	case "trace", "debug":
		return logger.Info
	case "error":
		return logger.Error
	case "disabled":
		return logger.Silent
	default:
		return logger.Warn
	}
}
