package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Checker-Finance/swap-broker/pkg/model"
)

// Store is the persistence contract for quotes. Postgres is the source
// of truth; Redis fronts reads with a TTL cache.
//
// Expected schema:
//
//	CREATE SCHEMA IF NOT EXISTS broker;
//	CREATE SEQUENCE IF NOT EXISTS broker.address_index_seq;
//	CREATE TABLE broker.swap_quote (
//	    quote_id                      TEXT PRIMARY KEY,
//	    sell_asset                    TEXT        NOT NULL,
//	    buy_asset                     TEXT        NOT NULL,
//	    sell_amount_base_unit         TEXT        NOT NULL,
//	    expected_buy_amount_base_unit TEXT        NOT NULL,
//	    deposit_address               TEXT        NOT NULL,
//	    receive_address               TEXT        NOT NULL,
//	    address_index                 BIGINT      NOT NULL,
//	    swapper_name                  TEXT        NOT NULL,
//	    swapper_type                  TEXT        NOT NULL,
//	    gas_overhead_base_unit        TEXT        NOT NULL DEFAULT '',
//	    created_at                    TIMESTAMPTZ NOT NULL,
//	    expires_at                    TIMESTAMPTZ NOT NULL,
//	    executed_at                   TIMESTAMPTZ,
//	    deposit_tx_hash               TEXT        NOT NULL DEFAULT '',
//	    execution_tx_hash             TEXT        NOT NULL DEFAULT '',
//	    status                        TEXT        NOT NULL,
//	    version                       BIGINT      NOT NULL
//	);
//	CREATE INDEX swap_quote_status_idx ON broker.swap_quote (status);
type Store interface {
	CreateQuote(ctx context.Context, q *model.Quote) error
	GetQuote(ctx context.Context, quoteID string) (*model.Quote, error)
	ListQuotesByStatus(ctx context.Context, statuses ...model.QuoteStatus) ([]*model.Quote, error)
	UpdateQuoteCAS(ctx context.Context, q *model.Quote, expectedVersion int64) error
	AllocateAddressIndex(ctx context.Context) (uint32, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	HealthCheck(ctx context.Context) error
	Close() error
}

type HybridStore struct {
	redis    *redis.Client
	PG       *pgxpool.Pool
	logger   *zap.Logger
	cacheTTL time.Duration
}

type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// NewHybrid creates a Redis-first, Postgres-backed store. cacheTTL
// bounds how long a quote read can lag its row after a cache refresh is
// lost.
func NewHybrid(redisAddr string, redisDB int, pgURL string, pgPoolConfig PGPoolConfig, cacheTTL time.Duration, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   redisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	var pgPool *pgxpool.Pool
	if pgURL != "" {
		cfg, err := pgxpool.ParseConfig(pgURL)
		if err != nil {
			return nil, fmt.Errorf("invalid pg config: %w", err)
		}
		if pgPoolConfig.MaxConns > 0 {
			cfg.MaxConns = pgPoolConfig.MaxConns
		}
		if pgPoolConfig.MinConns > 0 {
			cfg.MinConns = pgPoolConfig.MinConns
		}
		if pgPoolConfig.MaxConnLifetime > 0 {
			cfg.MaxConnLifetime = pgPoolConfig.MaxConnLifetime
		}
		if pgPoolConfig.MaxConnIdleTime > 0 {
			cfg.MaxConnIdleTime = pgPoolConfig.MaxConnIdleTime
		}
		if pgPoolConfig.HealthCheckPeriod > 0 {
			cfg.HealthCheckPeriod = pgPoolConfig.HealthCheckPeriod
		}
		pgPool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	return &HybridStore{redis: rdb, PG: pgPool, logger: logger, cacheTTL: cacheTTL}, nil
}

func quoteKey(quoteID string) string { return "quote:" + quoteID }

const insertQuoteSQL = `
	INSERT INTO broker.swap_quote (
		quote_id, sell_asset, buy_asset,
		sell_amount_base_unit, expected_buy_amount_base_unit,
		deposit_address, receive_address, address_index,
		swapper_name, swapper_type, gas_overhead_base_unit,
		created_at, expires_at, status, version
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
`

// CreateQuote persists a new quote and write-through caches it. The
// caller initializes status and version.
func (s *HybridStore) CreateQuote(ctx context.Context, q *model.Quote) error {
	if s.PG == nil {
		return fmt.Errorf("postgres unavailable")
	}
	_, err := s.PG.Exec(ctx, insertQuoteSQL,
		q.QuoteID, q.SellAsset.ID, q.BuyAsset.ID,
		q.SellAmountBaseUnit, q.ExpectedBuyAmountBaseUnit,
		q.DepositAddress, q.ReceiveAddress, int64(q.AddressIndex),
		string(q.SwapperName), string(q.SwapperType), q.GasOverheadBaseUnit,
		q.CreatedAt, q.ExpiresAt, string(q.Status), q.Version,
	)
	if err != nil {
		s.logger.Error("store.pg.insert_quote_failed", zap.Error(err), zap.String("quote_id", q.QuoteID))
		return err
	}
	s.cacheQuote(ctx, q)
	return nil
}

const selectQuoteSQL = `
	SELECT quote_id, sell_asset, buy_asset,
	       sell_amount_base_unit, expected_buy_amount_base_unit,
	       deposit_address, receive_address, address_index,
	       swapper_name, swapper_type, gas_overhead_base_unit,
	       created_at, expires_at, executed_at,
	       deposit_tx_hash, execution_tx_hash, status, version
	FROM broker.swap_quote
	WHERE quote_id = $1
	LIMIT 1;
`

// GetQuote reads through the cache. A miss falls back to Postgres and
// backfills; an unknown ID is NotFoundError.
func (s *HybridStore) GetQuote(ctx context.Context, quoteID string) (*model.Quote, error) {
	var cached model.Quote
	err := s.GetJSON(ctx, quoteKey(quoteID), &cached)
	if err == nil {
		// Catalog-only asset fields don't survive JSON; re-resolve them.
		if rerr := rehydrateAssets(&cached); rerr == nil {
			return &cached, nil
		}
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn("store.cache.read_failed", zap.Error(err), zap.String("quote_id", quoteID))
	}

	q, err := s.getQuotePG(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	s.cacheQuote(ctx, q)
	return q, nil
}

func (s *HybridStore) getQuotePG(ctx context.Context, quoteID string) (*model.Quote, error) {
	if s.PG == nil {
		return nil, fmt.Errorf("postgres unavailable")
	}
	q, err := scanQuote(s.PG.QueryRow(ctx, selectQuoteSQL, quoteID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &model.NotFoundError{Entity: "quote", ID: quoteID}
	}
	if err != nil {
		return nil, fmt.Errorf("read quote %s: %w", quoteID, err)
	}
	return q, nil
}

const selectByStatusSQL = `
	SELECT quote_id, sell_asset, buy_asset,
	       sell_amount_base_unit, expected_buy_amount_base_unit,
	       deposit_address, receive_address, address_index,
	       swapper_name, swapper_type, gas_overhead_base_unit,
	       created_at, expires_at, executed_at,
	       deposit_tx_hash, execution_tx_hash, status, version
	FROM broker.swap_quote
	WHERE status = ANY($1)
	ORDER BY created_at;
`

// ListQuotesByStatus reads from Postgres only: the monitor needs row
// versions that are current, not cached.
func (s *HybridStore) ListQuotesByStatus(ctx context.Context, statuses ...model.QuoteStatus) ([]*model.Quote, error) {
	if s.PG == nil {
		return nil, fmt.Errorf("postgres unavailable")
	}
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}

	rows, err := s.PG.Query(ctx, selectByStatusSQL, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []*model.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

const casUpdateSQL = `
	UPDATE broker.swap_quote
	SET status = $1,
	    deposit_tx_hash = $2,
	    execution_tx_hash = $3,
	    executed_at = $4,
	    version = version + 1
	WHERE quote_id = $5 AND version = $6;
`

// UpdateQuoteCAS commits q's mutable fields if and only if the row still
// carries expectedVersion. Zero rows affected means another writer got
// there first; the caller's transition loses and must not proceed. On
// success q.Version is bumped and the cache refreshed.
func (s *HybridStore) UpdateQuoteCAS(ctx context.Context, q *model.Quote, expectedVersion int64) error {
	if s.PG == nil {
		return fmt.Errorf("postgres unavailable")
	}
	tag, err := s.PG.Exec(ctx, casUpdateSQL,
		string(q.Status), q.DepositTxHash, q.ExecutionTxHash, q.ExecutedAt,
		q.QuoteID, expectedVersion,
	)
	if err != nil {
		s.logger.Error("store.pg.cas_update_failed", zap.Error(err), zap.String("quote_id", q.QuoteID))
		return err
	}
	if tag.RowsAffected() == 0 {
		// Lost the race. Report the state that won so the caller can see
		// which transition beat it.
		ite := &model.InvalidTransitionError{QuoteID: q.QuoteID, To: q.Status}
		if current, getErr := s.getQuotePG(ctx, q.QuoteID); getErr == nil {
			ite.From = current.Status
		}
		return ite
	}

	q.Version = expectedVersion + 1
	s.cacheQuote(ctx, q)
	return nil
}

// AllocateAddressIndex hands out the next derivation index. Sequence
// values are never reused, so no two quotes can share a deposit address.
func (s *HybridStore) AllocateAddressIndex(ctx context.Context) (uint32, error) {
	if s.PG == nil {
		return 0, fmt.Errorf("postgres unavailable")
	}
	var idx int64
	if err := s.PG.QueryRow(ctx, `SELECT nextval('broker.address_index_seq');`).Scan(&idx); err != nil {
		return 0, fmt.Errorf("allocate address index: %w", err)
	}
	return uint32(idx), nil
}

func (s *HybridStore) cacheQuote(ctx context.Context, q *model.Quote) {
	if err := s.SetJSON(ctx, quoteKey(q.QuoteID), q, s.cacheTTL); err != nil {
		s.logger.Warn("store.cache.write_failed", zap.Error(err), zap.String("quote_id", q.QuoteID))
	}
}

func rehydrateAssets(q *model.Quote) error {
	sell, err := model.AssetByID(q.SellAsset.ID)
	if err != nil {
		return err
	}
	buy, err := model.AssetByID(q.BuyAsset.ID)
	if err != nil {
		return err
	}
	q.SellAsset, q.BuyAsset = sell, buy
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuote(row rowScanner) (*model.Quote, error) {
	var (
		q            model.Quote
		sellID       string
		buyID        string
		addressIndex int64
		swapperName  string
		swapperType  string
		status       string
	)
	err := row.Scan(
		&q.QuoteID, &sellID, &buyID,
		&q.SellAmountBaseUnit, &q.ExpectedBuyAmountBaseUnit,
		&q.DepositAddress, &q.ReceiveAddress, &addressIndex,
		&swapperName, &swapperType, &q.GasOverheadBaseUnit,
		&q.CreatedAt, &q.ExpiresAt, &q.ExecutedAt,
		&q.DepositTxHash, &q.ExecutionTxHash, &status, &q.Version,
	)
	if err != nil {
		return nil, err
	}

	if q.SellAsset, err = model.AssetByID(sellID); err != nil {
		return nil, fmt.Errorf("rehydrate sell asset: %w", err)
	}
	if q.BuyAsset, err = model.AssetByID(buyID); err != nil {
		return nil, fmt.Errorf("rehydrate buy asset: %w", err)
	}
	q.AddressIndex = uint32(addressIndex)
	q.SwapperName = model.SwapperName(swapperName)
	q.SwapperType = model.SwapperType(swapperType)
	q.Status = model.QuoteStatus(status)
	return &q, nil
}

func (s *HybridStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, data, ttl).Err()
}

func (s *HybridStore) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (s *HybridStore) HealthCheck(ctx context.Context) error {
	if s.redis == nil {
		return fmt.Errorf("redis not initialized")
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if s.PG != nil {
		if err := s.PG.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
	}
	return nil
}

func (s *HybridStore) Close() error {
	if s.PG != nil {
		s.PG.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
