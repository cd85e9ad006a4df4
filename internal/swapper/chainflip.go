package swapper

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Checker-Finance/swap-broker/internal/httpclient"
	"github.com/Checker-Finance/swap-broker/internal/metrics"
	"github.com/Checker-Finance/swap-broker/pkg/model"
)

// ChainflipStrategy polls Chainflip's broker API for swaps keyed by the
// deposit address. DIRECT: Chainflip watches the address and settles on
// its own; this strategy only observes.
type ChainflipStrategy struct {
	baseURL string
	exec    *httpclient.Executor
	logger  *zap.Logger
}

func NewChainflip(baseURL string, exec *httpclient.Executor, logger *zap.Logger) *ChainflipStrategy {
	return &ChainflipStrategy{baseURL: strings.TrimRight(baseURL, "/"), exec: exec, logger: logger}
}

func (s *ChainflipStrategy) Name() model.SwapperName { return model.ChainflipProvider }

type chainflipSwap struct {
	State             string `json:"state"`
	DestinationTxHash string `json:"destinationTxHash"`
}

func (s *ChainflipStrategy) Execute(ctx context.Context, q *model.Quote) model.SwapExecutionResult {
	if q.ExecutionTxHash != "" {
		return model.SwapExecutionResult{
			Success:         true,
			ExecutionTxHash: q.ExecutionTxHash,
			SwapperName:     s.Name(),
			Metadata:        map[string]any{model.MetaStatus: "already_recorded"},
		}
	}

	url := fmt.Sprintf("%s/v2/swaps/%s", s.baseURL, q.DepositAddress)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return pendingNetworkResult(s.Name(), err)
	}

	var swap chainflipSwap
	if err := s.exec.DoJSON(ctx, req, "provider:chainflip", &swap); err != nil {
		// Includes 404 while Chainflip has not indexed the deposit yet;
		// unknown is never failed.
		metrics.IncExternalError("chainflip")
		s.logger.Warn("swap.chainflip_status_unavailable",
			zap.String("quote_id", q.QuoteID),
			zap.Error(err),
		)
		return pendingNetworkResult(s.Name(), err)
	}

	return directResultFromStatus(s.Name(), swap.State, swap.DestinationTxHash)
}
