package api

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/swap-broker/internal/monitor"
	"github.com/Checker-Finance/swap-broker/pkg/model"
)

type mockResolver struct {
	progress monitor.Progress
	calls    atomic.Int64
}

func (m *mockResolver) ResolveQuote(_ context.Context, _ *model.Quote) monitor.Progress {
	m.calls.Add(1)
	return m.progress
}

type mockRetrier struct {
	result model.SwapExecutionResult
	err    error
	calls  atomic.Int64
}

func (m *mockRetrier) RetrySwap(_ context.Context, _ *model.Quote) (model.SwapExecutionResult, error) {
	m.calls.Add(1)
	return m.result, m.err
}

func newResolveApp(svc QuoteService, resolver QuoteResolver, retrier SwapRetrier) *fiber.App {
	app := fiber.New()
	handler := NewQuoteResolveHandler(zap.NewNop(), svc, resolver, retrier)
	app.Post("/api/v1/quotes/:quote_id/resolve", handler.ResolveQuote)
	return app
}

func TestResolveQuote_LiveQuoteRunsThePipeline(t *testing.T) {
	var gets atomic.Int64
	svc := &mockQuoteService{
		getFn: func(_ context.Context, quoteID string) (*model.Quote, error) {
			require.Equal(t, "q-live", quoteID)
			if gets.Add(1) == 1 {
				return makeQuote(t, "q-live", model.StatusActive), nil
			}
			refreshed := makeQuote(t, "q-live", model.StatusCompleted)
			refreshed.DepositTxHash = "0xfunding"
			refreshed.ExecutionTxHash = "0xexec"
			executedAt := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)
			refreshed.ExecutedAt = &executedAt
			return refreshed, nil
		},
	}
	resolver := &mockResolver{progress: monitor.Progress{Matched: true, Completed: true}}
	retrier := &mockRetrier{}

	app := newResolveApp(svc, resolver, retrier)
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/quotes/q-live/resolve", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result QuoteResolveResponse
	decodeBody(t, resp, &result)
	assert.True(t, result.Resolution.Matched)
	assert.True(t, result.Resolution.Completed)
	assert.Equal(t, "COMPLETED", result.Quote.Status)
	assert.Equal(t, "0xexec", result.Quote.ExecutionTxHash)

	assert.Equal(t, int64(1), resolver.calls.Load())
	assert.Equal(t, int64(0), retrier.calls.Load())
	assert.Equal(t, int64(2), gets.Load(), "response reflects the refreshed record")
}

func TestResolveQuote_TerminalQuoteReplaysOutcome(t *testing.T) {
	svc := &mockQuoteService{
		getFn: func(_ context.Context, _ string) (*model.Quote, error) {
			q := makeQuote(t, "q-done", model.StatusCompleted)
			q.ExecutionTxHash = "0xdone"
			return q, nil
		},
	}
	resolver := &mockResolver{}
	retrier := &mockRetrier{
		result: model.SwapExecutionResult{Success: true, ExecutionTxHash: "0xdone"},
	}

	app := newResolveApp(svc, resolver, retrier)
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/quotes/q-done/resolve", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result QuoteResolveResponse
	decodeBody(t, resp, &result)
	assert.True(t, result.Resolution.Completed)
	assert.False(t, result.Resolution.Failed)
	assert.Equal(t, "COMPLETED", result.Quote.Status)

	assert.Equal(t, int64(1), retrier.calls.Load())
	assert.Equal(t, int64(0), resolver.calls.Load(), "terminal quotes never re-enter the pipeline")
}

func TestResolveQuote_UnknownQuoteMapsTo404(t *testing.T) {
	svc := &mockQuoteService{
		getFn: func(_ context.Context, quoteID string) (*model.Quote, error) {
			return nil, &model.NotFoundError{Entity: "quote", ID: quoteID}
		},
	}
	app := newResolveApp(svc, &mockResolver{}, &mockRetrier{})

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/quotes/q-ghost/resolve", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestResolveQuote_StoreErrorMapsTo500(t *testing.T) {
	svc := &mockQuoteService{
		getFn: func(_ context.Context, _ string) (*model.Quote, error) {
			return nil, fmt.Errorf("postgres unavailable")
		},
	}
	app := newResolveApp(svc, &mockResolver{}, &mockRetrier{})

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/quotes/q-any/resolve", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
