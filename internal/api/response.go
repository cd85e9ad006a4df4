package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/swap-broker/internal/chain"
	"github.com/Checker-Finance/swap-broker/internal/monitor"
	"github.com/Checker-Finance/swap-broker/pkg/model"
)

// QuoteResponse is the wire shape of a quote for both creation and
// lookup.
type QuoteResponse struct {
	QuoteID                   string     `json:"quoteId"`
	SellAssetID               string     `json:"sellAssetId"`
	BuyAssetID                string     `json:"buyAssetId"`
	SellAmountBaseUnit        string     `json:"sellAmountBaseUnit"`
	ExpectedBuyAmountBaseUnit string     `json:"expectedBuyAmountBaseUnit"`
	GasOverheadBaseUnit       string     `json:"gasOverheadBaseUnit,omitempty"`
	DepositAddress            string     `json:"depositAddress"`
	ReceiveAddress            string     `json:"receiveAddress"`
	SwapperName               string     `json:"swapperName"`
	SwapperType               string     `json:"swapperType"`
	Status                    string     `json:"status"`
	QRData                    string     `json:"qrData,omitempty"`
	DepositTxHash             string     `json:"depositTxHash,omitempty"`
	ExecutionTxHash           string     `json:"executionTxHash,omitempty"`
	ExecutedAt                *time.Time `json:"executedAt,omitempty"`
	CreatedAt                 time.Time  `json:"createdAt"`
	ExpiresAt                 time.Time  `json:"expiresAt"`
}

// QuoteResolveResponse is the outcome of an ops-driven resolve: the
// refreshed quote plus what the kick achieved.
type QuoteResolveResponse struct {
	Quote      QuoteResponse    `json:"quote"`
	Resolution monitor.Progress `json:"resolution"`
}

func toQuoteResponse(q *model.Quote) QuoteResponse {
	resp := QuoteResponse{
		QuoteID:                   q.QuoteID,
		SellAssetID:               q.SellAsset.ID,
		BuyAssetID:                q.BuyAsset.ID,
		SellAmountBaseUnit:        q.SellAmountBaseUnit,
		ExpectedBuyAmountBaseUnit: q.ExpectedBuyAmountBaseUnit,
		GasOverheadBaseUnit:       q.GasOverheadBaseUnit,
		DepositAddress:            q.DepositAddress,
		ReceiveAddress:            q.ReceiveAddress,
		SwapperName:               string(q.SwapperName),
		SwapperType:               string(q.SwapperType),
		Status:                    string(q.Status),
		DepositTxHash:             q.DepositTxHash,
		ExecutionTxHash:           q.ExecutionTxHash,
		ExecutedAt:                q.ExecutedAt,
		CreatedAt:                 q.CreatedAt,
		ExpiresAt:                 q.ExpiresAt,
	}
	// Wallet apps read the deposit leg from the QR payload; amounts are
	// stored validated, so a parse failure only drops the convenience
	// field.
	if amount, err := decimal.NewFromString(q.SellAmountBaseUnit); err == nil {
		resp.QRData = chain.PaymentURI(q.SellAsset, q.DepositAddress, amount)
	}
	return resp
}
