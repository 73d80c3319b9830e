package core

// Event is one output record of Engine.Submit.
type Event interface {
	Kind() string
}

type Accepted struct{}

// Rejected carries a human readable diagnostic, not an error code.
type Rejected struct {
	Reason string `json:"reason"`
}

// Trade is one fill against one resting order, at the resting price.
type Trade struct {
	BuyerID  ID       `json:"buyer_id"`
	SellerID ID       `json:"seller_id"`
	Qty      AssetQty `json:"qty"`
	Price    Price    `json:"price"`
}

// SellUpdated follows a Trade that left the resting order partially filled.
type SellUpdated struct{}

// SellClosed follows a Trade that exhausted the resting order, or a cancel.
type SellClosed struct{}

type BuyResultQty struct {
	Filled AssetQty `json:"filled"`
}

type BuyResultBudget struct {
	Spent  Money    `json:"spent"`
	Filled AssetQty `json:"filled"`
}

const (
	KindAccepted        = "Accepted"
	KindRejected        = "Rejected"
	KindTrade           = "Trade"
	KindSellUpdated     = "SellUpdated"
	KindSellClosed      = "SellClosed"
	KindBuyResultQty    = "BuyResultQty"
	KindBuyResultBudget = "BuyResultBudget"
)

func (Accepted) Kind() string        { return KindAccepted }
func (Rejected) Kind() string        { return KindRejected }
func (Trade) Kind() string           { return KindTrade }
func (SellUpdated) Kind() string     { return KindSellUpdated }
func (SellClosed) Kind() string      { return KindSellClosed }
func (BuyResultQty) Kind() string    { return KindBuyResultQty }
func (BuyResultBudget) Kind() string { return KindBuyResultBudget }

// Reject builds a Rejected event.
func Reject(reason string) []Event {
	return []Event{Rejected{Reason: reason}}
}
