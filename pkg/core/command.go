package core

// Command is one of PlaceSell, CancelSell, BuyByQty or BuyByBudget.
type Command interface {
	Kind() string
}

// PlaceSell rests a new sell order on the book.
type PlaceSell struct {
	ID        ID        `json:"id"`
	Price     Price     `json:"price"`
	Qty       AssetQty  `json:"qty"`
	Timestamp Timestamp `json:"timestamp"`
}

// CancelSell removes a resting sell order.
type CancelSell struct {
	ID ID `json:"id"`
}

// BuyByQty buys up to Qty units at whatever the book asks.
type BuyByQty struct {
	ID        ID        `json:"id"`
	Qty       AssetQty  `json:"qty"`
	Timestamp Timestamp `json:"timestamp"`
}

// BuyByBudget buys as many units as Budget affords, cheapest first.
type BuyByBudget struct {
	ID        ID        `json:"id"`
	Budget    Money     `json:"budget"`
	Timestamp Timestamp `json:"timestamp"`
}

const (
	KindPlaceSell   = "PlaceSell"
	KindCancelSell  = "CancelSell"
	KindBuyByQty    = "BuyByQty"
	KindBuyByBudget = "BuyByBudget"
)

func (PlaceSell) Kind() string   { return KindPlaceSell }
func (CancelSell) Kind() string  { return KindCancelSell }
func (BuyByQty) Kind() string    { return KindBuyByQty }
func (BuyByBudget) Kind() string { return KindBuyByBudget }
