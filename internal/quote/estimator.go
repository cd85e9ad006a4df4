package quote

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/swap-broker/pkg/model"
)

// RouteEstimator prices the buy leg of a prospective swap in buy-asset
// base units.
type RouteEstimator interface {
	EstimateBuyAmount(ctx context.Context, sell, buy model.Asset, sellAmountBaseUnit decimal.Decimal) (decimal.Decimal, error)
}

// StaticEstimator converts through fixed USD reference prices. It stands
// in for the routing system's live quotes until that service ships;
// deterministic rates keep quote creation reproducible meanwhile.
type StaticEstimator struct {
	prices map[string]decimal.Decimal // asset ID -> USD per whole coin
}

func NewStaticEstimator() *StaticEstimator {
	return &StaticEstimator{prices: map[string]decimal.Decimal{
		"BTC":   decimal.NewFromInt(65000),
		"ETH":   decimal.NewFromInt(3500),
		"SOL":   decimal.NewFromInt(150),
		"RUNE":  decimal.NewFromInt(5),
		"CACAO": decimal.RequireFromString("0.55"),
	}}
}

func (e *StaticEstimator) EstimateBuyAmount(_ context.Context, sell, buy model.Asset, sellAmountBaseUnit decimal.Decimal) (decimal.Decimal, error) {
	sellPrice, ok := e.prices[sell.ID]
	if !ok {
		return decimal.Zero, &model.ValidationError{Field: "sellAssetId", Reason: "no reference price for " + sell.ID}
	}
	buyPrice, ok := e.prices[buy.ID]
	if !ok {
		return decimal.Zero, &model.ValidationError{Field: "buyAssetId", Reason: "no reference price for " + buy.ID}
	}

	sellWhole := sellAmountBaseUnit.Shift(-sell.Precision)
	buyWhole := sellWhole.Mul(sellPrice).Div(buyPrice)
	return buyWhole.Shift(buy.Precision).Floor(), nil
}
