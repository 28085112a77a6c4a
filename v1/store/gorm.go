package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Aleph-Alpha/workbench/v1/logger"
)

// GormStore persists records in a table managed by gorm. T must be a gorm
// model whose primary key column holds RecordID.
type GormStore[T Record] struct {
	db       *gorm.DB
	idColumn string
	logger   logger.Logger
	pending  *pending[T]
}

var _ RecordStore[Record] = (*GormStore[Record])(nil)

// NewGormStore migrates the table for T and returns a store on db.
// idColumn names the primary key column and defaults to "id".
func NewGormStore[T Record](ctx context.Context, db *gorm.DB, idColumn string, log logger.Logger) (*GormStore[T], error) {
	if idColumn == "" {
		idColumn = "id"
	}
	var model T
	if err := db.WithContext(ctx).AutoMigrate(&model); err != nil {
		return nil, fmt.Errorf("store: migrating %T: %w", model, err)
	}
	return &GormStore[T]{db: db, idColumn: idColumn, logger: log, pending: newPending[T]()}, nil
}

func (s *GormStore[T]) LoadAll(ctx context.Context) ([]T, error) {
	var persisted []T
	if err := s.db.WithContext(ctx).Order(clause.OrderByColumn{Column: clause.Column{Name: s.idColumn}}).Find(&persisted).Error; err != nil {
		return nil, fmt.Errorf("store: loading records: %w", err)
	}
	return apply(persisted, s.pending.snapshot()), nil
}

func (s *GormStore[T]) Upsert(ctx context.Context, rec T) error {
	s.pending.upsert(rec)
	return nil
}

func (s *GormStore[T]) Delete(ctx context.Context, id string) error {
	s.pending.remove(id)
	return nil
}

// Save applies the buffered changes in one transaction.
func (s *GormStore[T]) Save(ctx context.Context) error {
	changes := s.pending.snapshot()
	if len(changes) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range changes {
			if c.deleted {
				var model T
				if err := tx.Where(clause.Eq{Column: clause.Column{Name: s.idColumn}, Value: c.id}).Delete(&model).Error; err != nil {
					return err
				}
				continue
			}
			rec := c.rec
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: saving %d changes: %w", len(changes), err)
	}

	s.pending.commit(changes)
	s.logger.Debug("record store saved", nil, map[string]interface{}{
		"backend": BackendPostgres,
		"changes": len(changes),
	})
	return nil
}

// OpenGorm connects to PostgreSQL with the pool limits from cfg.
func OpenGorm(cfg GormConfig) (*gorm.DB, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DbName, sslMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("store: connecting to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("store: getting database instance: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen == 0 {
		maxOpen = 4
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle == 0 {
		maxIdle = 2
	}
	maxLifetime := cfg.ConnMaxLifetime
	if maxLifetime == 0 {
		maxLifetime = 5 * time.Minute
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(maxLifetime)

	return db, nil
}

// CloseGorm releases the pool behind db.
func CloseGorm(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
