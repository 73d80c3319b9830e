package snapshot

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EngineSnapshot struct {
	Name      string `gorm:"primaryKey"`
	Engine    string
	Data      []byte
	BookSize  int
	UpdatedAt time.Time
}

func (EngineSnapshot) TableName() string {
	return "engine_snapshots"
}

// SQLStore keeps snapshots in the engine_snapshots table.
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *SQLStore) Save(ctx context.Context, snap Snapshot) error {
	if err := validateName(snap.Name); err != nil {
		return err
	}
	record := &EngineSnapshot{
		Name:     snap.Name,
		Engine:   snap.Engine,
		Data:     snap.Data,
		BookSize: snap.BookSize,
	}
	return s.dbWithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"engine", "data", "book_size", "updated_at"}),
	}).Create(record).Error
}

func (s *SQLStore) Load(ctx context.Context, name string) (Snapshot, error) {
	if err := validateName(name); err != nil {
		return Snapshot{}, err
	}

	var record EngineSnapshot
	err := s.dbWithContext(ctx).Where("name = ?", name).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Name: record.Name, Engine: record.Engine, BookSize: record.BookSize, Data: record.Data}, nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
