package model

// Metadata keys shared across execution strategies. Strategies may add
// provider-specific keys (swap ids, raw payloads) alongside these.
const (
	MetaStatus               = "status"
	MetaPendingExternalCheck = "pendingExternalCheck"
	MetaNeedsImplementation  = "needsImplementation"
)

// SwapExecutionResult is the outcome of one execution attempt. It is
// produced fresh per attempt and never persisted as its own entity; the
// caller folds it into the Quote record.
//
// Success=false does not necessarily mean the swap failed: DIRECT
// status checks report pending progress the same way, tagged through
// Metadata. A result only justifies FAILED when the strategy returned a
// confirmed non-retryable error.
type SwapExecutionResult struct {
	Success         bool           `json:"success"`
	ExecutionTxHash string         `json:"executionTxHash,omitempty"`
	Error           string         `json:"error,omitempty"`
	SwapperName     SwapperName    `json:"swapperName"`
	SwapperType     SwapperType    `json:"swapperType"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Pending reports whether the attempt ended without a terminal answer:
// the deposit exists on-chain, so the swap must eventually resolve and
// the monitor keeps re-polling.
func (r *SwapExecutionResult) Pending() bool {
	if r.Success {
		return false
	}
	if r.Metadata == nil {
		return false
	}
	if v, ok := r.Metadata[MetaPendingExternalCheck].(bool); ok && v {
		return true
	}
	if v, ok := r.Metadata[MetaStatus].(string); ok && v != "" {
		return true
	}
	return false
}

// NeedsImplementation reports whether the strategy is a registered
// placeholder that cannot execute yet.
func (r *SwapExecutionResult) NeedsImplementation() bool {
	if r.Metadata == nil {
		return false
	}
	v, ok := r.Metadata[MetaNeedsImplementation].(bool)
	return ok && v
}
