package tradelog

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is one row of the trades table. (RunID, Seq, Idx) is unique,
// so replaying an envelope never duplicates rows.
type TradeRecord struct {
	ID        uint64 `gorm:"primaryKey"`
	RunID     string
	Engine    string
	Seq       uint64
	Idx       int
	BuyerID   uint64
	SellerID  uint64
	Qty       int64
	Price     int64
	Notional  decimal.Decimal `gorm:"type:numeric(38)"`
	CreatedAt time.Time
}

func (TradeRecord) TableName() string {
	return "trades"
}
