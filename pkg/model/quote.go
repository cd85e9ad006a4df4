package model

import "time"

// QuoteStatus is the quote lifecycle state.
type QuoteStatus string

const (
	StatusActive          QuoteStatus = "ACTIVE"
	StatusExpired         QuoteStatus = "EXPIRED"
	StatusDepositReceived QuoteStatus = "DEPOSIT_RECEIVED"
	StatusExecuting       QuoteStatus = "EXECUTING"
	StatusCompleted       QuoteStatus = "COMPLETED"
	StatusFailed          QuoteStatus = "FAILED"
)

// quoteTransitions is the only legal edge set. Terminal states have no
// outgoing edges; everything else is an InvalidTransitionError.
var quoteTransitions = map[QuoteStatus][]QuoteStatus{
	StatusActive:          {StatusDepositReceived, StatusExpired},
	StatusDepositReceived: {StatusExecuting},
	StatusExecuting:       {StatusCompleted, StatusFailed},
}

// IsTerminal reports whether no further transition is accepted.
func (s QuoteStatus) IsTerminal() bool {
	return s == StatusExpired || s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether s -> next is a legal edge.
func (s QuoteStatus) CanTransitionTo(next QuoteStatus) bool {
	for _, allowed := range quoteTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Quote is the central entity: one requested cross-chain swap, from
// creation through deposit, execution and terminal settlement. Amounts
// are integer base-unit strings end to end; floats never touch money.
type Quote struct {
	QuoteID string `json:"quoteId"`

	SellAsset                 Asset  `json:"sellAsset"`
	BuyAsset                  Asset  `json:"buyAsset"`
	SellAmountBaseUnit        string `json:"sellAmountBaseUnit"`
	ExpectedBuyAmountBaseUnit string `json:"expectedBuyAmountBaseUnit"`

	// DepositAddress is derived for this quote alone and owned by the
	// broker for the quote's lifetime. ReceiveAddress is caller-supplied.
	DepositAddress string `json:"depositAddress"`
	ReceiveAddress string `json:"receiveAddress"`

	// AddressIndex is the derivation index behind DepositAddress,
	// allocated once from the store's sequence.
	AddressIndex uint32 `json:"addressIndex"`

	// SwapperName/SwapperType are fixed at creation and must stay
	// consistent with the registry's classification table.
	SwapperName SwapperName `json:"swapperName"`
	SwapperType SwapperType `json:"swapperType"`

	// GasOverheadBaseUnit compensates the broker's own broadcast cost.
	// Present only for SERVICE_WALLET quotes; empty otherwise.
	GasOverheadBaseUnit string `json:"gasOverheadBaseUnit,omitempty"`

	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	ExecutedAt *time.Time `json:"executedAt,omitempty"`

	DepositTxHash   string `json:"depositTxHash,omitempty"`
	ExecutionTxHash string `json:"executionTxHash,omitempty"`

	Status QuoteStatus `json:"status"`

	// Version is the row version used for compare-and-swap updates;
	// every committed transition increments it.
	Version int64 `json:"version"`
}

// IsExpired reports whether the quote's deposit window has closed.
func (q *Quote) IsExpired(now time.Time) bool {
	return !now.Before(q.ExpiresAt)
}
