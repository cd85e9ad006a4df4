package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Checker-Finance/swap-broker/internal/quote"
	"github.com/Checker-Finance/swap-broker/pkg/model"
)

// QuoteService defines the quote operations used by the handler.
type QuoteService interface {
	CreateQuote(ctx context.Context, p quote.CreateQuoteParams) (*model.Quote, error)
	GetQuote(ctx context.Context, quoteID string) (*model.Quote, error)
}

// QuoteHandler handles HTTP API requests for the quote lifecycle.
type QuoteHandler struct {
	logger  *zap.Logger
	service QuoteService
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(logger *zap.Logger, service QuoteService) *QuoteHandler {
	return &QuoteHandler{logger: logger, service: service}
}

// CreateQuoteHandler handles POST /api/v1/quotes.
func (h *QuoteHandler) CreateQuoteHandler(c *fiber.Ctx) error {
	var req QuoteCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	q, err := h.service.CreateQuote(c.Context(), quote.CreateQuoteParams{
		SellAssetID:        req.SellAssetID,
		BuyAssetID:         req.BuyAssetID,
		SellAmountBaseUnit: req.SellAmountBaseUnit,
		ReceiveAddress:     req.ReceiveAddress,
		SwapperName:        req.SwapperName,
	})
	if err != nil {
		h.logger.Warn("api.create_quote_failed",
			zap.String("sell", req.SellAssetID),
			zap.String("buy", req.BuyAssetID),
			zap.String("swapper", req.SwapperName),
			zap.Error(err))
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toQuoteResponse(q))
}

// GetQuoteHandler handles GET /api/v1/quotes/:quote_id.
func (h *QuoteHandler) GetQuoteHandler(c *fiber.Ctx) error {
	quoteID := c.Params("quote_id")
	if quoteID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "quote_id is required"})
	}

	q, err := h.service.GetQuote(c.Context(), quoteID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(toQuoteResponse(q))
}

// errorResponse maps service errors onto the three client-visible
// classes: bad request, not found, and everything else.
func errorResponse(c *fiber.Ctx, err error) error {
	switch {
	case model.IsValidation(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case model.IsNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
