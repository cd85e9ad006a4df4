package swapper

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/swap-broker/internal/httpclient"
	"github.com/Checker-Finance/swap-broker/internal/metrics"
	"github.com/Checker-Finance/swap-broker/pkg/model"
)

// EVMKeySource hands out the signing key behind a derivation index.
type EVMKeySource interface {
	EVMKey(index uint32) (*ecdsa.PrivateKey, error)
}

// EVMBroadcaster signs and submits an EVM transaction, returning its
// hash. Implementations serialize per sending account.
type EVMBroadcaster interface {
	SignAndBroadcast(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, value *big.Int, data []byte) (string, error)
}

// PoolStrategy settles SERVICE_WALLET quotes through a THORChain-style
// liquidity network: resolve the chain's inbound vault, then move the
// deposit there with a swap memo. Implemented for EVM sell assets; other
// chain families report needsImplementation until their signers land.
type PoolStrategy struct {
	name        model.SwapperName
	nodeURL     string
	inboundPath string
	rateKey     string
	notation    map[string]string // asset ID -> pool asset notation
	exec        *httpclient.Executor
	keys        EVMKeySource
	broadcaster EVMBroadcaster
	logger      *zap.Logger
}

// NewThorchain settles swaps through THORChain vaults.
func NewThorchain(nodeURL string, exec *httpclient.Executor, keys EVMKeySource, broadcaster EVMBroadcaster, logger *zap.Logger) *PoolStrategy {
	return &PoolStrategy{
		name:        model.ThorchainProvider,
		nodeURL:     strings.TrimRight(nodeURL, "/"),
		inboundPath: "/thorchain/inbound_addresses",
		rateKey:     "provider:thornode",
		notation: map[string]string{
			"BTC":  "BTC.BTC",
			"ETH":  "ETH.ETH",
			"RUNE": "THOR.RUNE",
		},
		exec:        exec,
		keys:        keys,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// NewMayachain settles swaps through Maya Protocol vaults. Same node API
// shape as THORChain with Maya's own pools.
func NewMayachain(nodeURL string, exec *httpclient.Executor, keys EVMKeySource, broadcaster EVMBroadcaster, logger *zap.Logger) *PoolStrategy {
	return &PoolStrategy{
		name:        model.MayachainProvider,
		nodeURL:     strings.TrimRight(nodeURL, "/"),
		inboundPath: "/mayachain/inbound_addresses",
		rateKey:     "provider:mayanode",
		notation: map[string]string{
			"BTC":   "BTC.BTC",
			"ETH":   "ETH.ETH",
			"CACAO": "MAYA.CACAO",
		},
		exec:        exec,
		keys:        keys,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

func (s *PoolStrategy) Name() model.SwapperName { return s.name }

// inboundAddress mirrors the node's inbound_addresses entries.
type inboundAddress struct {
	Chain   string `json:"chain"`
	Address string `json:"address"`
	Halted  bool   `json:"halted"`
}

// inboundChainCode maps an asset's native chain to the node's chain code.
var inboundChainCode = map[string]string{
	"ethereum": "ETH",
	"bitcoin":  "BTC",
}

func (s *PoolStrategy) Execute(ctx context.Context, q *model.Quote) model.SwapExecutionResult {
	// Idempotency: a recorded broadcast is the result. Never sign twice
	// for the same quote.
	if q.ExecutionTxHash != "" {
		return model.SwapExecutionResult{
			Success:         true,
			ExecutionTxHash: q.ExecutionTxHash,
			SwapperName:     s.name,
			Metadata:        map[string]any{model.MetaStatus: "already_broadcast"},
		}
	}

	if q.SellAsset.ChainFamily != model.ChainFamilyEVM {
		return model.SwapExecutionResult{
			Success:     false,
			SwapperName: s.name,
			Metadata: map[string]any{
				model.MetaNeedsImplementation: true,
				"reason":                      fmt.Sprintf("no %s signer for chain family %s", s.name, q.SellAsset.ChainFamily),
			},
		}
	}

	memoAsset, ok := s.notation[q.BuyAsset.ID]
	if !ok {
		return model.SwapExecutionResult{
			Success:     false,
			SwapperName: s.name,
			Metadata: map[string]any{
				model.MetaNeedsImplementation: true,
				"reason":                      fmt.Sprintf("%s has no pool notation for %s", s.name, q.BuyAsset.ID),
			},
		}
	}

	vault, err := s.resolveInbound(ctx, q.SellAsset)
	if err != nil {
		metrics.IncExternalError(s.rateKey)
		return model.SwapExecutionResult{
			Success:     false,
			Error:       err.Error(),
			SwapperName: s.name,
			Metadata:    map[string]any{model.MetaStatus: "inbound_unavailable"},
		}
	}

	amount, err := decimal.NewFromString(q.SellAmountBaseUnit)
	if err != nil {
		return model.SwapExecutionResult{
			Success:     false,
			Error:       fmt.Sprintf("unreadable sell amount %q: %v", q.SellAmountBaseUnit, err),
			SwapperName: s.name,
			Metadata:    map[string]any{"terminalState": "BAD_AMOUNT"},
		}
	}

	key, err := s.keys.EVMKey(q.AddressIndex)
	if err != nil {
		return model.SwapExecutionResult{
			Success:     false,
			Error:       err.Error(),
			SwapperName: s.name,
			Metadata:    map[string]any{model.MetaStatus: "key_unavailable"},
		}
	}

	memo := fmt.Sprintf("=:%s:%s", memoAsset, q.ReceiveAddress)
	hash, err := s.broadcaster.SignAndBroadcast(ctx, key, common.HexToAddress(vault), amount.BigInt(), []byte(memo))
	if err != nil {
		// The broadcast may or may not have landed; stay retryable and
		// let the next attempt re-read the nonce.
		metrics.IncExternalError("evm_rpc")
		s.logger.Warn("swap.broadcast_failed",
			zap.String("quote_id", q.QuoteID),
			zap.String("swapper", string(s.name)),
			zap.Error(err),
		)
		return model.SwapExecutionResult{
			Success:     false,
			Error:       err.Error(),
			SwapperName: s.name,
			Metadata:    map[string]any{model.MetaStatus: "broadcast_unconfirmed"},
		}
	}

	s.logger.Info("swap.broadcast",
		zap.String("quote_id", q.QuoteID),
		zap.String("swapper", string(s.name)),
		zap.String("vault", vault),
		zap.String("memo", memo),
		zap.String("tx_hash", hash),
	)
	return model.SwapExecutionResult{
		Success:         true,
		ExecutionTxHash: hash,
		SwapperName:     s.name,
		Metadata: map[string]any{
			model.MetaStatus: "broadcast",
			"vault":          vault,
			"memo":           memo,
		},
	}
}

// resolveInbound returns the active vault address for the sell asset's
// chain. Halted chains are treated as unavailable, not as failures.
func (s *PoolStrategy) resolveInbound(ctx context.Context, sell model.Asset) (string, error) {
	code, ok := inboundChainCode[sell.Chain]
	if !ok {
		return "", fmt.Errorf("no inbound chain code for %s", sell.Chain)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.nodeURL+s.inboundPath, nil)
	if err != nil {
		return "", err
	}

	var inbounds []inboundAddress
	if err := s.exec.DoJSON(ctx, req, s.rateKey, &inbounds); err != nil {
		return "", &model.ExternalUnavailable{Target: s.rateKey, Err: err}
	}

	for _, in := range inbounds {
		if in.Chain != code {
			continue
		}
		if in.Halted {
			return "", &model.ExternalUnavailable{Target: s.rateKey, Err: fmt.Errorf("chain %s is halted", code)}
		}
		return in.Address, nil
	}
	return "", &model.ExternalUnavailable{Target: s.rateKey, Err: fmt.Errorf("no inbound address for chain %s", code)}
}
