package swapper

import (
	"context"

	"github.com/Checker-Finance/swap-broker/pkg/model"
)

// placeholderStrategy registers a SERVICE_WALLET provider whose
// execution path has not been built. Quotes routed to one stay pending
// rather than failing, and the result says exactly what is missing.
type placeholderStrategy struct {
	name model.SwapperName
}

func (s placeholderStrategy) Name() model.SwapperName { return s.name }

func (s placeholderStrategy) Execute(_ context.Context, q *model.Quote) model.SwapExecutionResult {
	if q.ExecutionTxHash != "" {
		return model.SwapExecutionResult{
			Success:         true,
			ExecutionTxHash: q.ExecutionTxHash,
			SwapperName:     s.name,
			Metadata:        map[string]any{model.MetaStatus: "already_broadcast"},
		}
	}
	return model.SwapExecutionResult{
		Success:     false,
		SwapperName: s.name,
		Metadata: map[string]any{
			model.MetaNeedsImplementation: true,
			"reason":                      string(s.name) + " execution is not implemented",
		},
	}
}

// NewJupiter routes Solana swaps through Jupiter. Execution pending the
// Solana signer.
func NewJupiter() placeholderStrategy { return placeholderStrategy{name: model.JupiterProvider} }

// NewRelay routes cross-chain swaps through Relay. Execution pending.
func NewRelay() placeholderStrategy { return placeholderStrategy{name: model.RelayProvider} }

// NewButterSwap routes swaps through ButterSwap. Execution pending.
func NewButterSwap() placeholderStrategy { return placeholderStrategy{name: model.ButterSwapProvider} }

// NewBebop routes EVM swaps through Bebop. Execution pending.
func NewBebop() placeholderStrategy { return placeholderStrategy{name: model.BebopProvider} }
