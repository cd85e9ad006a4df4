package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Checker-Finance/swap-broker/internal/monitor"
	"github.com/Checker-Finance/swap-broker/pkg/model"
)

// QuoteResolver pushes one quote through the deposit/execution pipeline
// outside the tick cycle.
type QuoteResolver interface {
	ResolveQuote(ctx context.Context, q *model.Quote) monitor.Progress
}

// SwapRetrier replays the recorded outcome of a quote that already
// settled.
type SwapRetrier interface {
	RetrySwap(ctx context.Context, q *model.Quote) (model.SwapExecutionResult, error)
}

// QuoteResolveHandler re-drives a quote on demand: senders report
// payments faster than block explorers index them, and ops wants a kick
// that does not wait for the next tick.
type QuoteResolveHandler struct {
	logger   *zap.Logger
	service  QuoteService
	resolver QuoteResolver
	retrier  SwapRetrier
}

// NewQuoteResolveHandler creates a new QuoteResolveHandler.
func NewQuoteResolveHandler(logger *zap.Logger, service QuoteService, resolver QuoteResolver, retrier SwapRetrier) *QuoteResolveHandler {
	return &QuoteResolveHandler{
		logger:   logger,
		service:  service,
		resolver: resolver,
		retrier:  retrier,
	}
}

// ResolveQuote handles POST /api/v1/quotes/:quote_id/resolve.
// It looks up the quote, runs it through the same pipeline as a monitor
// tick, and returns the refreshed state. Terminal quotes replay their
// recorded outcome instead.
func (h *QuoteResolveHandler) ResolveQuote(c *fiber.Ctx) error {
	quoteID := c.Params("quote_id")
	if quoteID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "quote_id is required"})
	}

	// 1. Look up the quote.
	q, err := h.service.GetQuote(c.Context(), quoteID)
	if err != nil {
		return errorResponse(c, err)
	}

	// 2. Terminal quotes are immutable; replay the recorded outcome.
	if q.Status.IsTerminal() {
		res, err := h.retrier.RetrySwap(c.Context(), q)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(QuoteResolveResponse{
			Quote: toQuoteResponse(q),
			Resolution: monitor.Progress{
				Completed: res.Success,
				Failed:    !res.Success,
			},
		})
	}

	// 3. Live quote: one immediate pass of deposit matching and
	// execution.
	progress := h.resolver.ResolveQuote(c.Context(), q)
	h.logger.Info("api.quote_resolved",
		zap.String("quote_id", quoteID),
		zap.Bool("matched", progress.Matched),
		zap.Bool("completed", progress.Completed),
		zap.Bool("failed", progress.Failed),
		zap.Int("errors", progress.Errors))

	// 4. Return the refreshed record.
	refreshed, err := h.service.GetQuote(c.Context(), quoteID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(QuoteResolveResponse{
		Quote:      toQuoteResponse(refreshed),
		Resolution: progress,
	})
}
