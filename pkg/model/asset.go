package model

import "fmt"

// ChainFamily groups chains by address format and transaction shape.
// It decides how deposit addresses are derived, how deposits are
// detected, and which payment-URI scheme a quote response carries.
type ChainFamily string

const (
	ChainFamilyEVM    ChainFamily = "evm"
	ChainFamilyUTXO   ChainFamily = "utxo"
	ChainFamilyCosmos ChainFamily = "cosmos"
	ChainFamilySolana ChainFamily = "solana"
)

// Asset describes one swappable asset in the static catalog.
type Asset struct {
	ID          string      `json:"assetId"`
	Symbol      string      `json:"symbol"`
	Name        string      `json:"name"`
	Precision   int32       `json:"precision"`
	ChainFamily ChainFamily `json:"chainFamily"`

	// Chain is the slug of the asset's native chain ("bitcoin",
	// "ethereum", ...). It doubles as the payment-URI scheme and as the
	// tx-index path segment. Not serialized.
	Chain string `json:"-"`

	// Bech32HRP is the address prefix for cosmos-family assets ("thor",
	// "maya"). Empty for other families.
	Bech32HRP string `json:"-"`
}

// assetCatalog is the fixed set of assets the broker quotes today.
// Adding an asset means adding one entry here; derivation, deposit
// detection and URI rendering key off ChainFamily.
var assetCatalog = map[string]Asset{
	"BTC": {
		ID:          "BTC",
		Symbol:      "BTC",
		Name:        "Bitcoin",
		Precision:   8,
		ChainFamily: ChainFamilyUTXO,
		Chain:       "bitcoin",
	},
	"ETH": {
		ID:          "ETH",
		Symbol:      "ETH",
		Name:        "Ethereum",
		Precision:   18,
		ChainFamily: ChainFamilyEVM,
		Chain:       "ethereum",
	},
	"SOL": {
		ID:          "SOL",
		Symbol:      "SOL",
		Name:        "Solana",
		Precision:   9,
		ChainFamily: ChainFamilySolana,
		Chain:       "solana",
	},
	"RUNE": {
		ID:          "RUNE",
		Symbol:      "RUNE",
		Name:        "THORChain Rune",
		Precision:   8,
		ChainFamily: ChainFamilyCosmos,
		Chain:       "thorchain",
		Bech32HRP:   "thor",
	},
	"CACAO": {
		ID:          "CACAO",
		Symbol:      "CACAO",
		Name:        "Maya Protocol Cacao",
		Precision:   10,
		ChainFamily: ChainFamilyCosmos,
		Chain:       "mayachain",
		Bech32HRP:   "maya",
	},
}

// AssetByID resolves a catalog asset. Unknown IDs are a validation
// failure, never a silent default.
func AssetByID(id string) (Asset, error) {
	a, ok := assetCatalog[id]
	if !ok {
		return Asset{}, &ValidationError{Field: "assetId", Reason: fmt.Sprintf("unknown asset %q", id)}
	}
	return a, nil
}

// Assets returns the full catalog (order unspecified).
func Assets() []Asset {
	out := make([]Asset, 0, len(assetCatalog))
	for _, a := range assetCatalog {
		out = append(out, a)
	}
	return out
}
