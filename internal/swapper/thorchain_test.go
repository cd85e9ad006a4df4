package swapper

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/swap-broker/pkg/model"
)

type stubKeySource struct {
	key *ecdsa.PrivateKey
	err error
}

func (s *stubKeySource) EVMKey(uint32) (*ecdsa.PrivateKey, error) { return s.key, s.err }

type capturingBroadcaster struct {
	to    common.Address
	value *big.Int
	data  []byte
	calls int
	err   error
}

func (b *capturingBroadcaster) SignAndBroadcast(_ context.Context, _ *ecdsa.PrivateKey, to common.Address, value *big.Int, data []byte) (string, error) {
	b.calls++
	b.to, b.value, b.data = to, value, data
	if b.err != nil {
		return "", b.err
	}
	return "0xbroadcast", nil
}

func inboundServer(t *testing.T, wantPath, body string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, wantPath, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func serviceWalletQuote(t *testing.T, name model.SwapperName, sellID, buyID, receive string) *model.Quote {
	t.Helper()
	return &model.Quote{
		QuoteID:                   "q-pool",
		SellAsset:                 mustAsset(t, sellID),
		BuyAsset:                  mustAsset(t, buyID),
		SellAmountBaseUnit:        "1000000000000000000",
		ExpectedBuyAmountBaseUnit: "700000000",
		GasOverheadBaseUnit:       "2100000000000000",
		DepositAddress:            "0xdeposit",
		AddressIndex:              7,
		ReceiveAddress:            receive,
		SwapperName:               name,
		SwapperType:               model.SwapperTypeServiceWallet,
		Status:                    model.StatusExecuting,
		Version:                   3,
	}
}

func testKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key
}

func TestThorchain_BroadcastsVaultTransferWithMemo(t *testing.T) {
	srv, _ := inboundServer(t, "/thorchain/inbound_addresses", `[
		{"chain":"BTC","address":"bc1qvault","halted":false},
		{"chain":"ETH","address":"0x00000000000000000000000000000000000000aa","halted":false}
	]`)
	bc := &capturingBroadcaster{}
	strat := NewThorchain(srv.URL, testHTTPExecutor(), &stubKeySource{key: testKey(t)}, bc, zap.NewNop())

	q := serviceWalletQuote(t, model.ThorchainProvider, "ETH", "RUNE", "thor1receiver")
	res := strat.Execute(context.Background(), q)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "0xbroadcast", res.ExecutionTxHash)
	assert.Equal(t, 1, bc.calls)
	assert.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000000aa"), bc.to)
	assert.Equal(t, "1000000000000000000", bc.value.String())
	assert.Equal(t, "=:THOR.RUNE:thor1receiver", string(bc.data))
	assert.Equal(t, "=:THOR.RUNE:thor1receiver", res.Metadata["memo"])
}

func TestMayachain_UsesItsOwnPathAndPools(t *testing.T) {
	srv, _ := inboundServer(t, "/mayachain/inbound_addresses", `[
		{"chain":"ETH","address":"0x00000000000000000000000000000000000000bb","halted":false}
	]`)
	bc := &capturingBroadcaster{}
	strat := NewMayachain(srv.URL, testHTTPExecutor(), &stubKeySource{key: testKey(t)}, bc, zap.NewNop())

	q := serviceWalletQuote(t, model.MayachainProvider, "ETH", "CACAO", "maya1receiver")
	res := strat.Execute(context.Background(), q)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "=:MAYA.CACAO:maya1receiver", string(bc.data))
}

func TestThorchain_HaltedChainStaysRetryable(t *testing.T) {
	srv, _ := inboundServer(t, "/thorchain/inbound_addresses", `[
		{"chain":"ETH","address":"0x00000000000000000000000000000000000000aa","halted":true}
	]`)
	bc := &capturingBroadcaster{}
	strat := NewThorchain(srv.URL, testHTTPExecutor(), &stubKeySource{key: testKey(t)}, bc, zap.NewNop())

	res := strat.Execute(context.Background(), serviceWalletQuote(t, model.ThorchainProvider, "ETH", "RUNE", "thor1receiver"))

	assert.False(t, res.Success)
	assert.True(t, res.Pending())
	assert.Equal(t, "inbound_unavailable", res.Metadata[model.MetaStatus])
	assert.Equal(t, 0, bc.calls, "never sign against a halted chain")
}

func TestThorchain_NonEVMSellNeedsImplementation(t *testing.T) {
	srv, hits := inboundServer(t, "/thorchain/inbound_addresses", `[]`)
	strat := NewThorchain(srv.URL, testHTTPExecutor(), &stubKeySource{key: testKey(t)}, &capturingBroadcaster{}, zap.NewNop())

	res := strat.Execute(context.Background(), serviceWalletQuote(t, model.ThorchainProvider, "BTC", "ETH", "0xreceiver"))

	assert.False(t, res.Success)
	assert.True(t, res.NeedsImplementation())
	assert.Equal(t, int64(0), hits.Load())
}

func TestThorchain_UnsupportedPoolNeedsImplementation(t *testing.T) {
	srv, hits := inboundServer(t, "/thorchain/inbound_addresses", `[]`)
	strat := NewThorchain(srv.URL, testHTTPExecutor(), &stubKeySource{key: testKey(t)}, &capturingBroadcaster{}, zap.NewNop())

	res := strat.Execute(context.Background(), serviceWalletQuote(t, model.ThorchainProvider, "ETH", "SOL", "So1Receiver"))

	assert.False(t, res.Success)
	assert.True(t, res.NeedsImplementation())
	assert.Equal(t, int64(0), hits.Load())
}

func TestThorchain_BroadcastErrorStaysRetryable(t *testing.T) {
	srv, _ := inboundServer(t, "/thorchain/inbound_addresses", `[
		{"chain":"ETH","address":"0x00000000000000000000000000000000000000aa","halted":false}
	]`)
	bc := &capturingBroadcaster{err: errors.New("rpc: connection refused")}
	strat := NewThorchain(srv.URL, testHTTPExecutor(), &stubKeySource{key: testKey(t)}, bc, zap.NewNop())

	res := strat.Execute(context.Background(), serviceWalletQuote(t, model.ThorchainProvider, "ETH", "RUNE", "thor1receiver"))

	// The transaction may have landed despite the error; the next attempt
	// must be able to check and retry.
	assert.False(t, res.Success)
	assert.True(t, res.Pending())
	assert.Equal(t, "broadcast_unconfirmed", res.Metadata[model.MetaStatus])
}

func TestThorchain_RecordedBroadcastIsNotRepeated(t *testing.T) {
	srv, hits := inboundServer(t, "/thorchain/inbound_addresses", `[]`)
	bc := &capturingBroadcaster{}
	strat := NewThorchain(srv.URL, testHTTPExecutor(), &stubKeySource{key: testKey(t)}, bc, zap.NewNop())

	q := serviceWalletQuote(t, model.ThorchainProvider, "ETH", "RUNE", "thor1receiver")
	q.ExecutionTxHash = "0xalready"

	res := strat.Execute(context.Background(), q)
	require.True(t, res.Success)
	assert.Equal(t, "0xalready", res.ExecutionTxHash)
	assert.Equal(t, 0, bc.calls)
	assert.Equal(t, int64(0), hits.Load())
}
