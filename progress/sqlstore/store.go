// Package sqlstore provides a core.ProgressStore backed by gorm. Records are
// insert-only; the auto-increment sequence preserves append order.
package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/progress"
)

type progressRow struct {
	Seq       uint   `gorm:"primaryKey;autoIncrement"`
	ID        string `gorm:"uniqueIndex;size:64"`
	UserID    string `gorm:"index;size:128"`
	Chapter   string
	Topic     string
	AgentRole string `gorm:"size:32"`
	Goals     string
	Feedback  string
	Report    string
	CreatedAt time.Time
}

func (progressRow) TableName() string { return "progress_records" }

func fromRecord(rec core.ProgressRecord) progressRow {
	return progressRow{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Chapter:   rec.Chapter,
		Topic:     rec.Topic,
		AgentRole: rec.AgentRole,
		Goals:     rec.Goals,
		Feedback:  rec.Feedback,
		Report:    rec.Report,
		CreatedAt: rec.CreatedAt,
	}
}

func (r progressRow) record() core.ProgressRecord {
	return core.ProgressRecord{
		ID:        r.ID,
		UserID:    r.UserID,
		Chapter:   r.Chapter,
		Topic:     r.Topic,
		AgentRole: r.AgentRole,
		Goals:     r.Goals,
		Feedback:  r.Feedback,
		Report:    r.Report,
		CreatedAt: r.CreatedAt,
	}
}

// Store implements core.ProgressStore on a SQL database.
type Store struct {
	db *gorm.DB
}

// Open opens a SQLite database at dsn (":memory:" for a private in-memory
// database) and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open progress database: %w", err)
	}
	return New(db)
}

// New wraps an existing gorm handle and migrates the schema. SQLite handles
// are pinned to one connection so in-memory databases survive.
func New(db *gorm.DB) (*Store, error) {
	if db.Dialector.Name() == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&progressRow{}); err != nil {
		return nil, fmt.Errorf("migrate progress schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Append inserts rec as a new row.
func (s *Store) Append(ctx context.Context, rec core.ProgressRecord) error {
	if err := progress.Prepare(&rec); err != nil {
		return err
	}
	row := fromRecord(rec)
	return s.db.WithContext(ctx).Create(&row).Error
}

// List returns the learner's records in append order.
func (s *Store) List(ctx context.Context, userID string) ([]core.ProgressRecord, error) {
	var rows []progressRow
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("seq asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]core.ProgressRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
