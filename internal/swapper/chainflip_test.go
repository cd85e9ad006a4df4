package swapper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/swap-broker/pkg/model"
)

func chainflipServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/v2/swaps/0xdeposit", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestChainflip_CompletedSwap(t *testing.T) {
	srv, _ := chainflipServer(t, http.StatusOK,
		`{"state":"COMPLETED","destinationTxHash":"0xsettled"}`)

	strat := NewChainflip(srv.URL, testHTTPExecutor(), zap.NewNop())
	res := strat.Execute(context.Background(), directQuote(t, model.ChainflipProvider))

	assert.True(t, res.Success)
	assert.Equal(t, "0xsettled", res.ExecutionTxHash)
	assert.False(t, res.Pending())
}

func TestChainflip_InFlightSwapStaysPending(t *testing.T) {
	srv, _ := chainflipServer(t, http.StatusOK,
		`{"state":"SWAPPING","destinationTxHash":""}`)

	strat := NewChainflip(srv.URL, testHTTPExecutor(), zap.NewNop())
	res := strat.Execute(context.Background(), directQuote(t, model.ChainflipProvider))

	assert.False(t, res.Success)
	assert.True(t, res.Pending())
	assert.Equal(t, "SWAPPING", res.Metadata[model.MetaStatus])
}

func TestChainflip_RefundIsTerminalFailure(t *testing.T) {
	srv, _ := chainflipServer(t, http.StatusOK,
		`{"state":"REFUNDED","destinationTxHash":""}`)

	strat := NewChainflip(srv.URL, testHTTPExecutor(), zap.NewNop())
	res := strat.Execute(context.Background(), directQuote(t, model.ChainflipProvider))

	assert.False(t, res.Success)
	assert.False(t, res.Pending(), "a provider-confirmed refund is final")
	assert.Contains(t, res.Error, "REFUNDED")
}

func TestChainflip_OutageKeepsQuoteRetryable(t *testing.T) {
	srv, _ := chainflipServer(t, http.StatusInternalServerError, `upstream down`)

	strat := NewChainflip(srv.URL, testHTTPExecutor(), zap.NewNop())
	res := strat.Execute(context.Background(), directQuote(t, model.ChainflipProvider))

	assert.False(t, res.Success)
	assert.True(t, res.Pending())
	pending, _ := res.Metadata[model.MetaPendingExternalCheck].(bool)
	assert.True(t, pending)
	assert.NotEmpty(t, res.Error)
}

func TestChainflip_RecordedHashShortCircuits(t *testing.T) {
	srv, hits := chainflipServer(t, http.StatusOK, `{}`)

	strat := NewChainflip(srv.URL, testHTTPExecutor(), zap.NewNop())
	q := directQuote(t, model.ChainflipProvider)
	q.ExecutionTxHash = "0xrecorded"

	res := strat.Execute(context.Background(), q)
	require.True(t, res.Success)
	assert.Equal(t, "0xrecorded", res.ExecutionTxHash)
	assert.Equal(t, int64(0), hits.Load(), "replay must not hit the provider")
}
