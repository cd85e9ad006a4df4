// Package swapper executes the settlement leg of a quote through the
// provider the quote was brokered on. DIRECT providers are polled for
// status; SERVICE_WALLET providers are settled by building, signing and
// broadcasting a transaction from the broker's own wallet.
package swapper

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Checker-Finance/swap-broker/internal/metrics"
	"github.com/Checker-Finance/swap-broker/internal/registry"
	"github.com/Checker-Finance/swap-broker/pkg/model"
)

// Executor dispatches execution to the registered strategy for the
// quote's swapper. It never lets a strategy failure escape as an error
// or panic; every attempt folds into a SwapExecutionResult.
type Executor struct {
	registry *registry.Registry
	logger   *zap.Logger
}

func NewExecutor(reg *registry.Registry, logger *zap.Logger) *Executor {
	return &Executor{registry: reg, logger: logger}
}

// ExecuteSwap runs one execution attempt for q.
func (e *Executor) ExecuteSwap(ctx context.Context, q *model.Quote) (res model.SwapExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("swap.execute_panic",
				zap.String("quote_id", q.QuoteID),
				zap.String("swapper", string(q.SwapperName)),
				zap.Any("panic", r),
			)
			// A panic is a bug, not a confirmed swap failure; keep the
			// quote retryable.
			res = model.SwapExecutionResult{
				Success:     false,
				Error:       fmt.Sprintf("strategy panic: %v", r),
				SwapperName: q.SwapperName,
				SwapperType: q.SwapperType,
				Metadata:    map[string]any{model.MetaStatus: "panic"},
			}
		}
	}()

	strat, typ, err := e.registry.StrategyFor(q.SwapperName)
	if err != nil {
		res = model.SwapExecutionResult{
			Success:     false,
			Error:       err.Error(),
			SwapperName: q.SwapperName,
			SwapperType: q.SwapperType,
		}
		// A classified swapper with no strategy is a deployment gap;
		// keep its quotes alive for the build that fills it.
		if !strings.Contains(err.Error(), "unknown swapper") {
			res.Metadata = map[string]any{model.MetaStatus: "strategy_unregistered"}
		}
		metrics.IncExecution(string(q.SwapperName), outcome(&res))
		return res
	}

	res = strat.Execute(ctx, q)
	res.SwapperName = q.SwapperName
	res.SwapperType = typ

	metrics.IncExecution(string(q.SwapperName), outcome(&res))
	e.logger.Info("swap.execute_result",
		zap.String("quote_id", q.QuoteID),
		zap.String("swapper", string(q.SwapperName)),
		zap.Bool("success", res.Success),
		zap.Bool("pending", res.Pending()),
		zap.String("tx_hash", res.ExecutionTxHash),
		zap.String("error", res.Error),
	)
	return res
}

// IsSwapPending reports whether the swap behind q is still in flight.
func (e *Executor) IsSwapPending(q *model.Quote) bool {
	return q.Status == model.StatusDepositReceived || q.Status == model.StatusExecuting
}

// RetrySwap re-runs execution for a quote already past its deposit.
// Idempotent: terminal quotes replay their recorded outcome, and live
// strategies return the recorded broadcast instead of signing twice.
func (e *Executor) RetrySwap(ctx context.Context, q *model.Quote) (model.SwapExecutionResult, error) {
	switch q.Status {
	case model.StatusCompleted:
		return model.SwapExecutionResult{
			Success:         true,
			ExecutionTxHash: q.ExecutionTxHash,
			SwapperName:     q.SwapperName,
			SwapperType:     q.SwapperType,
			Metadata:        map[string]any{model.MetaStatus: "already_completed"},
		}, nil
	case model.StatusFailed, model.StatusExpired:
		return model.SwapExecutionResult{
			Success:     false,
			Error:       fmt.Sprintf("quote is terminal: %s", q.Status),
			SwapperName: q.SwapperName,
			SwapperType: q.SwapperType,
		}, nil
	case model.StatusDepositReceived, model.StatusExecuting:
		return e.ExecuteSwap(ctx, q), nil
	default:
		return model.SwapExecutionResult{}, &model.ValidationError{
			Field:  "status",
			Reason: fmt.Sprintf("quote %s has no received deposit to execute", q.QuoteID),
		}
	}
}

func outcome(res *model.SwapExecutionResult) string {
	switch {
	case res.Success:
		return "ok"
	case res.Pending() || res.NeedsImplementation():
		return "pending"
	default:
		return "failed"
	}
}

// directResultFromStatus maps a DIRECT provider's reported state onto an
// execution result. Terminal success needs the destination hash; a
// terminal failure report is the one case allowed to fail the swap.
func directResultFromStatus(name model.SwapperName, status, destTxHash string) model.SwapExecutionResult {
	switch strings.ToUpper(status) {
	case "SUCCESS", "COMPLETE", "COMPLETED":
		if destTxHash != "" {
			return model.SwapExecutionResult{
				Success:         true,
				ExecutionTxHash: destTxHash,
				SwapperName:     name,
				Metadata:        map[string]any{model.MetaStatus: strings.ToUpper(status)},
			}
		}
		// Settled upstream but the hash is not visible yet; poll again.
		return model.SwapExecutionResult{
			Success:     false,
			SwapperName: name,
			Metadata:    map[string]any{model.MetaStatus: strings.ToUpper(status)},
		}
	case "FAILED", "REFUNDED":
		return model.SwapExecutionResult{
			Success:     false,
			Error:       fmt.Sprintf("provider reported %s", strings.ToUpper(status)),
			SwapperName: name,
			Metadata:    map[string]any{"terminalState": strings.ToUpper(status)},
		}
	case "":
		// Indexed but no state yet; same treatment as unreachable.
		return model.SwapExecutionResult{
			Success:     false,
			SwapperName: name,
			Metadata:    map[string]any{model.MetaPendingExternalCheck: true},
		}
	default:
		return model.SwapExecutionResult{
			Success:     false,
			SwapperName: name,
			Metadata:    map[string]any{model.MetaStatus: status},
		}
	}
}

// pendingNetworkResult is the uniform answer when a provider cannot be
// reached: unknown is not failed, so the attempt stays retryable.
func pendingNetworkResult(name model.SwapperName, err error) model.SwapExecutionResult {
	return model.SwapExecutionResult{
		Success:     false,
		Error:       err.Error(),
		SwapperName: name,
		Metadata:    map[string]any{model.MetaPendingExternalCheck: true},
	}
}
