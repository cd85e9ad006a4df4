// Package quote owns the quote lifecycle: creation, lookup, and the
// state-machine transitions every other component funnels through.
package quote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/swap-broker/internal/metrics"
	"github.com/Checker-Finance/swap-broker/internal/registry"
	"github.com/Checker-Finance/swap-broker/internal/store"
	"github.com/Checker-Finance/swap-broker/pkg/model"
)

// defaultSwapper routes quotes that name no swapper. Thorchain is the
// reference route until the routing system picks per-pair.
const defaultSwapper = model.ThorchainProvider

// AddressDeriver hands out the deposit address for a quote.
type AddressDeriver interface {
	DeriveAddress(asset model.Asset, index uint32) (string, error)
}

// StatusPublisher fans committed transitions out to the event bus.
type StatusPublisher interface {
	PublishStatusChange(ctx context.Context, event model.QuoteStatusChangedEvent) error
}

// Service drives quote creation and state transitions. All collaborators
// are injected; nothing here reaches for process globals.
type Service struct {
	store        store.Store
	wallet       AddressDeriver
	estimator    RouteEstimator
	publisher    StatusPublisher // nil disables event publishing
	logger       *zap.Logger
	quoteTTL     time.Duration
	gasOverheads map[model.ChainFamily]string
	now          func() time.Time
}

func NewService(
	st store.Store,
	wallet AddressDeriver,
	estimator RouteEstimator,
	publisher StatusPublisher,
	quoteTTL time.Duration,
	gasOverheads map[model.ChainFamily]string,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:        st,
		wallet:       wallet,
		estimator:    estimator,
		publisher:    publisher,
		logger:       logger,
		quoteTTL:     quoteTTL,
		gasOverheads: gasOverheads,
		now:          time.Now,
	}
}

// CreateQuoteParams is the validated-at-the-edge shape of a quote request.
type CreateQuoteParams struct {
	SellAssetID        string
	BuyAssetID         string
	SellAmountBaseUnit string
	ReceiveAddress     string
	SwapperName        string
}

// CreateQuote validates, prices, derives a deposit address and persists
// a new ACTIVE quote. Validation failures reject the request before any
// record exists; a failure at any later step leaves no quote behind
// either, because the row insert is the final act.
func (s *Service) CreateQuote(ctx context.Context, p CreateQuoteParams) (*model.Quote, error) {
	sell, err := model.AssetByID(p.SellAssetID)
	if err != nil {
		return nil, err
	}
	buy, err := model.AssetByID(p.BuyAssetID)
	if err != nil {
		return nil, err
	}
	if sell.ID == buy.ID {
		return nil, &model.ValidationError{Field: "buyAssetId", Reason: "sell and buy assets must differ"}
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(p.SellAmountBaseUnit))
	if err != nil {
		return nil, &model.ValidationError{Field: "sellAmountBaseUnit", Reason: "must be an integer amount in base units"}
	}
	if !amount.IsInteger() || !amount.IsPositive() {
		return nil, &model.ValidationError{Field: "sellAmountBaseUnit", Reason: "must be a positive integer in base units"}
	}
	if strings.TrimSpace(p.ReceiveAddress) == "" {
		return nil, &model.ValidationError{Field: "receiveAddress", Reason: "must not be empty"}
	}

	name := model.SwapperName(p.SwapperName)
	if p.SwapperName == "" {
		name = defaultSwapper
	}
	swapperType, err := registry.Classify(name)
	if err != nil {
		return nil, err
	}

	expected, err := s.estimator.EstimateBuyAmount(ctx, sell, buy, amount)
	if err != nil {
		return nil, fmt.Errorf("estimate route: %w", err)
	}

	// The broker fronts broadcast gas only when it settles the swap
	// itself; DIRECT providers carry their own costs.
	gasOverhead := ""
	if swapperType == model.SwapperTypeServiceWallet {
		gasOverhead = s.gasOverheads[sell.ChainFamily]
	}

	index, err := s.store.AllocateAddressIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate address index: %w", err)
	}
	depositAddr, err := s.wallet.DeriveAddress(sell, index)
	if err != nil {
		return nil, fmt.Errorf("derive deposit address: %w", err)
	}

	now := s.now().UTC()
	q := &model.Quote{
		QuoteID:                   uuid.NewString(),
		SellAsset:                 sell,
		BuyAsset:                  buy,
		SellAmountBaseUnit:        amount.String(),
		ExpectedBuyAmountBaseUnit: expected.String(),
		DepositAddress:            depositAddr,
		ReceiveAddress:            strings.TrimSpace(p.ReceiveAddress),
		AddressIndex:              index,
		SwapperName:               name,
		SwapperType:               swapperType,
		GasOverheadBaseUnit:       gasOverhead,
		CreatedAt:                 now,
		ExpiresAt:                 now.Add(s.quoteTTL),
		Status:                    model.StatusActive,
		Version:                   1,
	}

	if err := s.store.CreateQuote(ctx, q); err != nil {
		return nil, fmt.Errorf("persist quote: %w", err)
	}

	metrics.IncQuoteCreated(string(name), string(swapperType))
	s.logger.Info("quote.created",
		zap.String("quote_id", q.QuoteID),
		zap.String("sell_asset", sell.ID),
		zap.String("buy_asset", buy.ID),
		zap.String("swapper", string(name)),
		zap.String("type", string(swapperType)),
		zap.String("deposit_address", depositAddr),
		zap.Time("expires_at", q.ExpiresAt),
	)
	return q, nil
}

// GetQuote returns the current state of a quote.
func (s *Service) GetQuote(ctx context.Context, quoteID string) (*model.Quote, error) {
	return s.store.GetQuote(ctx, quoteID)
}

// Transition commits q's move to next. The caller sets the transition's
// payload fields (tx hashes, executedAt) on q first. The edge is checked
// against the state machine, then written with compare-and-swap; the
// loser of a concurrent race gets InvalidTransitionError and q is left
// on its previous status.
func (s *Service) Transition(ctx context.Context, q *model.Quote, next model.QuoteStatus) error {
	if !q.Status.CanTransitionTo(next) {
		return &model.InvalidTransitionError{QuoteID: q.QuoteID, From: q.Status, To: next}
	}

	prev := q.Status
	q.Status = next
	if err := s.store.UpdateQuoteCAS(ctx, q, q.Version); err != nil {
		q.Status = prev
		return err
	}

	metrics.IncTransition(string(prev), string(next))
	s.logger.Info("quote.transition",
		zap.String("quote_id", q.QuoteID),
		zap.String("from", string(prev)),
		zap.String("to", string(next)),
	)

	if s.publisher != nil {
		event := model.QuoteStatusChangedEvent{
			QuoteID:         q.QuoteID,
			SwapperName:     q.SwapperName,
			SwapperType:     q.SwapperType,
			OldStatus:       prev,
			NewStatus:       next,
			DepositTxHash:   q.DepositTxHash,
			ExecutionTxHash: q.ExecutionTxHash,
			Timestamp:       s.now().UTC(),
		}
		if perr := s.publisher.PublishStatusChange(ctx, event); perr != nil {
			s.logger.Warn("quote.status_publish_failed",
				zap.String("quote_id", q.QuoteID),
				zap.Error(perr),
			)
		}
	}
	return nil
}
