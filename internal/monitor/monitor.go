// Package monitor watches open quotes: it expires stale ones, matches
// on-chain deposits against what each quote expects, and drives matched
// quotes through execution. One monitor goroutine per process; row
// versions in the store keep concurrent instances safe.
package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/swap-broker/internal/chain"
	"github.com/Checker-Finance/swap-broker/internal/metrics"
	"github.com/Checker-Finance/swap-broker/internal/store"
	"github.com/Checker-Finance/swap-broker/pkg/model"
)

const (
	defaultInterval       = 30 * time.Second
	defaultCallTimeout    = 15 * time.Second
	defaultMaxConcurrency = 8
)

// DepositSource lists inbound transfers credited to an address.
type DepositSource interface {
	Deposits(ctx context.Context, asset model.Asset, address string) ([]chain.Deposit, error)
}

// QuoteTransitioner applies a guarded status transition and persists it.
type QuoteTransitioner interface {
	Transition(ctx context.Context, q *model.Quote, next model.QuoteStatus) error
}

// SwapRunner runs one execution attempt for a quote.
type SwapRunner interface {
	ExecuteSwap(ctx context.Context, q *model.Quote) model.SwapExecutionResult
}

// Config bounds the monitor's cadence and fan-out. Zero values take the
// defaults above.
type Config struct {
	Interval       time.Duration
	CallTimeout    time.Duration
	MaxConcurrency int
}

// Monitor owns the periodic tick. All collaborators are injected;
// nothing here reaches for package-level state.
type Monitor struct {
	store       store.Store
	deposits    DepositSource
	quotes      QuoteTransitioner
	executor    SwapRunner
	logger      *zap.Logger
	interval    time.Duration
	callTimeout time.Duration
	maxWorkers  int

	running atomic.Bool
	stopCh  chan struct{}
}

func New(st store.Store, deposits DepositSource, quotes QuoteTransitioner, executor SwapRunner, cfg Config, logger *zap.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaultMaxConcurrency
	}
	return &Monitor{
		store:       st,
		deposits:    deposits,
		quotes:      quotes,
		executor:    executor,
		logger:      logger,
		interval:    cfg.Interval,
		callTimeout: cfg.CallTimeout,
		maxWorkers:  cfg.MaxConcurrency,
		stopCh:      make(chan struct{}),
	}
}

// TickSummary is what one tick did. Returned for tests and logged once
// per tick.
type TickSummary struct {
	Skipped   bool
	Processed int
	Expired   int
	Matched   int
	Completed int
	Failed    int
	Errors    int
	Duration  time.Duration
}

// quoteOutcome folds one quote's progress into the tick summary.
type quoteOutcome struct {
	matched   bool
	completed bool
	failed    bool
	errs      int
}

// Start launches the tick loop. Each tick runs in its own goroutine so a
// slow tick delays nothing; RunTick's guard turns overlaps into skips.
func (m *Monitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.logger.Info("monitor.started",
			zap.Duration("interval", m.interval),
			zap.Duration("call_timeout", m.callTimeout),
			zap.Int("max_concurrency", m.maxWorkers),
		)

		for {
			select {
			case <-ctx.Done():
				m.logger.Info("monitor.stopped", zap.String("reason", "context"))
				return
			case <-m.stopCh:
				m.logger.Info("monitor.stopped", zap.String("reason", "shutdown"))
				return
			case <-ticker.C:
				go m.RunTick(ctx, time.Now().UTC())
			}
		}
	}()
}

// Stop signals the tick loop to exit.
func (m *Monitor) Stop() {
	close(m.stopCh)
}

// RunTick performs one monitoring pass at the given logical time. Ticks
// never overlap: a call that arrives while one is running is skipped,
// not queued. Expiry is swept before any chain lookups so a deposit
// observed after the deadline cannot resurrect a quote.
func (m *Monitor) RunTick(ctx context.Context, now time.Time) TickSummary {
	if !m.running.CompareAndSwap(false, true) {
		m.logger.Warn("monitor.tick_skipped")
		return TickSummary{Skipped: true}
	}
	defer m.running.Store(false)

	start := time.Now()
	var sum TickSummary

	open, err := m.store.ListQuotesByStatus(ctx,
		model.StatusActive, model.StatusDepositReceived, model.StatusExecuting)
	if err != nil {
		metrics.IncError("monitor", "list_quotes")
		m.logger.Error("monitor.list_failed", zap.Error(err))
		sum.Errors++
		sum.Duration = time.Since(start)
		return sum
	}
	metrics.OpenQuotesGauge.Set(float64(len(open)))
	sum.Processed = len(open)

	work := make([]*model.Quote, 0, len(open))
	for _, q := range open {
		if q.Status == model.StatusActive && !q.ExpiresAt.After(now) {
			if err := m.quotes.Transition(ctx, q, model.StatusExpired); err != nil {
				// Lost the row version race: another instance got here first.
				sum.Errors++
				m.logger.Warn("monitor.expire_failed",
					zap.String("quote_id", q.QuoteID),
					zap.Error(err),
				)
				continue
			}
			sum.Expired++
			continue
		}
		work = append(work, q)
	}

	// Bounded fan-out; each quote is processed in isolation so one
	// provider outage never stalls the rest of the book.
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, m.maxWorkers)
	)
	for _, q := range work {
		q := q
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			out := m.processQuote(ctx, q, now)

			mu.Lock()
			if out.matched {
				sum.Matched++
			}
			if out.completed {
				sum.Completed++
			}
			if out.failed {
				sum.Failed++
			}
			sum.Errors += out.errs
			mu.Unlock()
		}()
	}
	wg.Wait()

	sum.Duration = time.Since(start)
	metrics.MonitorTickDuration.Observe(sum.Duration.Seconds())
	m.logger.Info("monitor.tick",
		zap.Int("processed", sum.Processed),
		zap.Int("expired", sum.Expired),
		zap.Int("matched", sum.Matched),
		zap.Int("completed", sum.Completed),
		zap.Int("failed", sum.Failed),
		zap.Int("errors", sum.Errors),
		zap.Duration("duration", sum.Duration),
	)
	return sum
}

// Progress is the externally visible outcome of pushing a single quote
// through the pipeline outside the tick cycle.
type Progress struct {
	Matched   bool `json:"matched"`
	Completed bool `json:"completed"`
	Failed    bool `json:"failed"`
	Errors    int  `json:"errors"`
}

// ResolveQuote runs one quote through the same pipeline as a tick,
// immediately. Backs the ops resolve endpoint for when a sender reports
// a payment before the next tick picks it up. Safe alongside a running
// tick; row versions arbitrate.
func (m *Monitor) ResolveQuote(ctx context.Context, q *model.Quote) Progress {
	out := m.processQuote(ctx, q, time.Now().UTC())
	return Progress{
		Matched:   out.matched,
		Completed: out.completed,
		Failed:    out.failed,
		Errors:    out.errs,
	}
}

func (m *Monitor) processQuote(ctx context.Context, q *model.Quote, now time.Time) quoteOutcome {
	switch q.Status {
	case model.StatusActive:
		return m.checkDeposit(ctx, q, now)
	case model.StatusDepositReceived, model.StatusExecuting:
		return m.execute(ctx, q, now)
	default:
		return quoteOutcome{}
	}
}

// checkDeposit looks for a single inbound transfer covering the full
// sell amount. Partial deposits are never summed; they sit until the
// sender completes them or the quote expires.
func (m *Monitor) checkDeposit(ctx context.Context, q *model.Quote, now time.Time) (out quoteOutcome) {
	expected, err := decimal.NewFromString(q.SellAmountBaseUnit)
	if err != nil {
		out.errs++
		m.logger.Error("monitor.unreadable_sell_amount",
			zap.String("quote_id", q.QuoteID),
			zap.String("amount", q.SellAmountBaseUnit),
		)
		return out
	}

	callCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
	deposits, err := m.deposits.Deposits(callCtx, q.SellAsset, q.DepositAddress)
	cancel()
	if err != nil {
		// Index outage or timeout: the quote stays ACTIVE for the next
		// tick, it is never failed for this.
		out.errs++
		m.logger.Warn("monitor.deposit_check_failed",
			zap.String("quote_id", q.QuoteID),
			zap.String("chain", q.SellAsset.Chain),
			zap.Error(err),
		)
		return out
	}

	for _, d := range deposits {
		if !d.AmountBaseUnit.GreaterThanOrEqual(expected) {
			continue
		}

		q.DepositTxHash = d.TxHash
		if err := m.quotes.Transition(ctx, q, model.StatusDepositReceived); err != nil {
			out.errs++
			m.logger.Warn("monitor.deposit_claim_lost",
				zap.String("quote_id", q.QuoteID),
				zap.Error(err),
			)
			return out
		}
		metrics.DepositsMatchedTotal.Inc()
		out.matched = true
		m.logger.Info("monitor.deposit_matched",
			zap.String("quote_id", q.QuoteID),
			zap.String("tx_hash", d.TxHash),
			zap.String("amount", d.AmountBaseUnit.String()),
		)

		// Same worker drives execution; the sender should not wait a
		// full interval after paying.
		exec := m.execute(ctx, q, now)
		out.completed = exec.completed
		out.failed = exec.failed
		out.errs += exec.errs
		return out
	}
	return out
}

// execute moves a funded quote through its strategy and folds the
// attempt into a status change. Pending results leave the quote
// EXECUTING for the next tick.
func (m *Monitor) execute(ctx context.Context, q *model.Quote, now time.Time) (out quoteOutcome) {
	if q.Status == model.StatusDepositReceived {
		if err := m.quotes.Transition(ctx, q, model.StatusExecuting); err != nil {
			out.errs++
			m.logger.Warn("monitor.execute_claim_lost",
				zap.String("quote_id", q.QuoteID),
				zap.Error(err),
			)
			return out
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
	res := m.executor.ExecuteSwap(callCtx, q)
	cancel()

	switch {
	case res.Success:
		if res.ExecutionTxHash != "" {
			q.ExecutionTxHash = res.ExecutionTxHash
		}
		executedAt := now.UTC()
		q.ExecutedAt = &executedAt
		if err := m.quotes.Transition(ctx, q, model.StatusCompleted); err != nil {
			out.errs++
			m.logger.Warn("monitor.complete_claim_lost",
				zap.String("quote_id", q.QuoteID),
				zap.Error(err),
			)
			return out
		}
		out.completed = true

	case res.Pending() || res.NeedsImplementation():
		// Still in flight, or waiting on a strategy build. Re-polled
		// next tick.

	default:
		if err := m.quotes.Transition(ctx, q, model.StatusFailed); err != nil {
			out.errs++
			m.logger.Warn("monitor.fail_claim_lost",
				zap.String("quote_id", q.QuoteID),
				zap.Error(err),
			)
			return out
		}
		out.failed = true
		m.logger.Error("monitor.swap_failed",
			zap.String("quote_id", q.QuoteID),
			zap.Error(&model.ExecutionError{Swapper: q.SwapperName, Reason: res.Error}),
		)
	}
	return out
}
