package model

// SwapperName identifies a swap provider integration.
type SwapperName string

const (
	ChainflipProvider   SwapperName = "ChainflipProvider"
	NearIntentsProvider SwapperName = "NearIntentsProvider"
	ThorchainProvider   SwapperName = "ThorchainProvider"
	JupiterProvider     SwapperName = "JupiterProvider"
	RelayProvider       SwapperName = "RelayProvider"
	MayachainProvider   SwapperName = "MayachainProvider"
	ButterSwapProvider  SwapperName = "ButterSwapProvider"
	BebopProvider       SwapperName = "BebopProvider"
)

// SwapperType decides who executes the settlement once the deposit lands.
//
// DIRECT providers own the deposit address: their infrastructure observes
// the deposit and settles autonomously, and the broker only polls status.
// SERVICE_WALLET providers deliver the deposit into the broker's own
// wallet, and the broker must sign and broadcast the settlement itself.
type SwapperType string

const (
	SwapperTypeDirect        SwapperType = "DIRECT"
	SwapperTypeServiceWallet SwapperType = "SERVICE_WALLET"
)
