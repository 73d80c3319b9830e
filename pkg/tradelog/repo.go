package tradelog

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ITrade interface {
	BulkCreate(ctx context.Context, records []*TradeRecord) error
	ListBySeller(ctx context.Context, sellerID uint64) ([]*TradeRecord, error)
}

type TradeSQLRepo struct {
	db *gorm.DB
}

func NewTradeSQLRepo(db *gorm.DB) *TradeSQLRepo {
	return &TradeSQLRepo{
		db: db,
	}
}

func (r *TradeSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// BulkCreate inserts records, skipping any already stored.
func (r *TradeSQLRepo) BulkCreate(ctx context.Context, records []*TradeRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.dbWithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_id"}, {Name: "seq"}, {Name: "idx"}},
		DoNothing: true,
	}).Create(records).Error
}

func (r *TradeSQLRepo) ListBySeller(ctx context.Context, sellerID uint64) ([]*TradeRecord, error) {
	var out []*TradeRecord
	err := r.dbWithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("run_id, seq, idx").
		Find(&out).Error
	return out, err
}
