package swapper

import (
	"context"

	oneclick "github.com/defuse-protocol/one-click-sdk-go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/swap-broker/internal/metrics"
	"github.com/Checker-Finance/swap-broker/pkg/model"
)

// NearIntentsStrategy polls the NEAR Intents 1Click API for execution
// status, keyed by the deposit address. DIRECT: the solver network picks
// up the deposit and settles it.
type NearIntentsStrategy struct {
	client *oneclick.APIClient
	jwt    string
	logger *zap.Logger
}

// NewNearIntents builds the strategy. baseURL overrides the SDK's
// default server (used against test doubles); empty keeps the default.
func NewNearIntents(baseURL, jwt string, logger *zap.Logger) *NearIntentsStrategy {
	cfg := oneclick.NewConfiguration()
	if baseURL != "" {
		cfg.Servers = oneclick.ServerConfigurations{{URL: baseURL}}
	}
	return &NearIntentsStrategy{
		client: oneclick.NewAPIClient(cfg),
		jwt:    jwt,
		logger: logger,
	}
}

func (s *NearIntentsStrategy) Name() model.SwapperName { return model.NearIntentsProvider }

func (s *NearIntentsStrategy) Execute(ctx context.Context, q *model.Quote) model.SwapExecutionResult {
	if q.ExecutionTxHash != "" {
		return model.SwapExecutionResult{
			Success:         true,
			ExecutionTxHash: q.ExecutionTxHash,
			SwapperName:     s.Name(),
			Metadata:        map[string]any{model.MetaStatus: "already_recorded"},
		}
	}

	authed := context.WithValue(ctx, oneclick.ContextAccessToken, s.jwt)
	status, httpResp, err := s.client.OneClickAPI.GetExecutionStatus(authed).
		DepositAddress(q.DepositAddress).
		Execute()
	if httpResp != nil {
		defer httpResp.Body.Close()
	}
	if err != nil {
		metrics.IncExternalError("near_intents")
		s.logger.Warn("swap.near_intents_status_unavailable",
			zap.String("quote_id", q.QuoteID),
			zap.Error(err),
		)
		return pendingNetworkResult(s.Name(), err)
	}

	destTxHash := ""
	details := status.GetSwapDetails()
	if txs := details.GetDestinationChainTxHashes(); len(txs) > 0 {
		destTxHash = txs[0].GetHash()
	}

	return directResultFromStatus(s.Name(), status.GetStatus(), destTxHash)
}
