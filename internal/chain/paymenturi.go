package chain

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/swap-broker/pkg/model"
)

// PaymentURI renders the payment request a wallet scans to fund a quote.
// EVM chains follow EIP-681 with the value in base units; UTXO chains
// follow BIP-21 with the amount in whole coins; Solana mirrors the
// Solana Pay convention. Cosmos-family chains have no widely supported
// amount parameter, so the address rides the bare scheme.
func PaymentURI(asset model.Asset, address string, amountBaseUnit decimal.Decimal) string {
	switch asset.ChainFamily {
	case model.ChainFamilyEVM:
		return fmt.Sprintf("%s:%s?value=%s", asset.Chain, address, amountBaseUnit.String())
	case model.ChainFamilyUTXO, model.ChainFamilySolana:
		return fmt.Sprintf("%s:%s?amount=%s", asset.Chain, address, amountBaseUnit.Shift(-asset.Precision).String())
	default:
		return fmt.Sprintf("%s:%s", asset.Chain, address)
	}
}
