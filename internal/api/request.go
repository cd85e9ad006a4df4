package api

import "fmt"

// QuoteCreateRequest is the payload for brokering a new swap quote.
type QuoteCreateRequest struct {
	SellAssetID        string `json:"sellAssetId"`
	BuyAssetID         string `json:"buyAssetId"`
	SellAmountBaseUnit string `json:"sellAmountBaseUnit"`
	ReceiveAddress     string `json:"receiveAddress"`
	SwapperName        string `json:"swapperName"`
}

// Validate checks required fields are present. Semantic validation
// (asset catalog, amount shape, swapper classification) happens in the
// quote service.
func (r QuoteCreateRequest) Validate() error {
	if r.SellAssetID == "" {
		return fmt.Errorf("sellAssetId is required")
	}
	if r.BuyAssetID == "" {
		return fmt.Errorf("buyAssetId is required")
	}
	if r.SellAmountBaseUnit == "" {
		return fmt.Errorf("sellAmountBaseUnit is required")
	}
	if r.ReceiveAddress == "" {
		return fmt.Errorf("receiveAddress is required")
	}
	return nil
}
