package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/Checker-Finance/swap-broker/pkg/model"
)

const (
	transferGasLimit = 21000
	fallbackGasLimit = 100000
)

// EVMSigner signs and broadcasts settlement transactions from derived
// deposit accounts. Broadcasts from the same account are serialized so
// concurrent executions cannot race on the nonce; distinct accounts
// proceed in parallel.
type EVMSigner struct {
	client  *ethclient.Client
	chainID *big.Int
	logger  *zap.Logger

	mu    sync.Mutex
	locks map[common.Address]*sync.Mutex
}

// NewEVMSigner connects to the EVM JSON-RPC endpoint at rpcURL.
func NewEVMSigner(rpcURL string, chainID int64, logger *zap.Logger) (*EVMSigner, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial evm rpc %s: %w", rpcURL, err)
	}
	return &EVMSigner{
		client:  client,
		chainID: big.NewInt(chainID),
		logger:  logger,
		locks:   make(map[common.Address]*sync.Mutex),
	}, nil
}

func (s *EVMSigner) accountLock(from common.Address) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[from]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[from] = lock
	}
	return lock
}

// SignAndBroadcast builds a legacy transaction carrying data, signs it
// with key and submits it, returning the transaction hash. RPC failures
// surface as ExternalUnavailable so callers treat them as transient.
func (s *EVMSigner) SignAndBroadcast(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, value *big.Int, data []byte) (string, error) {
	from := crypto.PubkeyToAddress(key.PublicKey)

	lock := s.accountLock(from)
	lock.Lock()
	defer lock.Unlock()

	nonce, err := s.client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", &model.ExternalUnavailable{Target: "evm_rpc", Err: fmt.Errorf("pending nonce for %s: %w", from.Hex(), err)}
	}

	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", &model.ExternalUnavailable{Target: "evm_rpc", Err: fmt.Errorf("suggest gas price: %w", err)}
	}

	gasLimit := uint64(transferGasLimit)
	if len(data) > 0 {
		msg := ethereum.CallMsg{From: from, To: &to, Value: value, Data: data}
		if estimated, err := s.client.EstimateGas(ctx, msg); err == nil {
			gasLimit = estimated * 120 / 100
		} else {
			gasLimit = fallbackGasLimit
		}
	}

	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(s.chainID), key)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return "", &model.ExternalUnavailable{Target: "evm_rpc", Err: fmt.Errorf("broadcast from %s: %w", from.Hex(), err)}
	}

	hash := signed.Hash().Hex()
	s.logger.Info("wallet.evm_broadcast",
		zap.String("tx_hash", hash),
		zap.String("from", from.Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("nonce", nonce),
	)
	return hash, nil
}
