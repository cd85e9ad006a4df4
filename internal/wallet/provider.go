package wallet

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcutil"
	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"

	"github.com/Checker-Finance/swap-broker/pkg/model"
)

// utxoHRP is the mainnet bech32 prefix for witness-v0 deposit addresses.
const utxoHRP = "bc"

// Provider derives deterministic per-chain deposit addresses from a
// single service seed. Stateless given (family, index): the same inputs
// always produce the same address, and distinct (family, index) pairs
// produce independent keys through HMAC-SHA256 domain separation, so
// two quotes can only collide if they were handed the same index.
type Provider struct {
	seed []byte
}

// NewProvider builds a Provider from a hex-encoded seed.
func NewProvider(seedHex string) (*Provider, error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("wallet seed is not valid hex: %w", err)
	}
	if len(seed) < 16 {
		return nil, fmt.Errorf("wallet seed too short: %d bytes", len(seed))
	}
	return &Provider{seed: seed}, nil
}

// childSecret returns the 32-byte key material for (family, index).
func (p *Provider) childSecret(family model.ChainFamily, index uint32) []byte {
	mac := hmac.New(sha256.New, p.seed)
	mac.Write([]byte(family))
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], index)
	mac.Write(idx[:])
	return mac.Sum(nil)
}

// DeriveAddress returns the deposit address for the asset's chain at the
// given derivation index.
func (p *Provider) DeriveAddress(asset model.Asset, index uint32) (string, error) {
	switch asset.ChainFamily {
	case model.ChainFamilyEVM:
		key, err := p.EVMKey(index)
		if err != nil {
			return "", err
		}
		return crypto.PubkeyToAddress(key.PublicKey).Hex(), nil
	case model.ChainFamilyUTXO:
		return p.utxoAddress(index)
	case model.ChainFamilyCosmos:
		if asset.Bech32HRP == "" {
			return "", fmt.Errorf("asset %s has no bech32 prefix", asset.ID)
		}
		return p.cosmosAddress(asset.Bech32HRP, index)
	case model.ChainFamilySolana:
		return p.solanaAddress(index), nil
	default:
		return "", fmt.Errorf("unsupported chain family %q", asset.ChainFamily)
	}
}

// EVMKey returns the secp256k1 key behind the EVM deposit address at
// index. SERVICE_WALLET strategies sign settlement transactions with it.
func (p *Provider) EVMKey(index uint32) (*ecdsa.PrivateKey, error) {
	child := p.childSecret(model.ChainFamilyEVM, index)
	key, err := crypto.ToECDSA(child)
	if err != nil {
		return nil, fmt.Errorf("derive evm key at index %d: %w", index, err)
	}
	return key, nil
}

func (p *Provider) utxoAddress(index uint32) (string, error) {
	child := p.childSecret(model.ChainFamilyUTXO, index)
	key, err := crypto.ToECDSA(child)
	if err != nil {
		return "", fmt.Errorf("derive utxo key at index %d: %w", index, err)
	}

	prog, err := bech32.ConvertBits(btcutil.Hash160(crypto.CompressPubkey(&key.PublicKey)), 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert witness program bits: %w", err)
	}
	// witness version 0 precedes the converted program
	return bech32.Encode(utxoHRP, append([]byte{0x00}, prog...))
}

func (p *Provider) cosmosAddress(hrp string, index uint32) (string, error) {
	child := p.childSecret(model.ChainFamilyCosmos, index)
	key, err := crypto.ToECDSA(child)
	if err != nil {
		return "", fmt.Errorf("derive cosmos key at index %d: %w", index, err)
	}

	conv, err := bech32.ConvertBits(btcutil.Hash160(crypto.CompressPubkey(&key.PublicKey)), 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert address bits: %w", err)
	}
	return bech32.Encode(hrp, conv)
}

func (p *Provider) solanaAddress(index uint32) string {
	child := p.childSecret(model.ChainFamilySolana, index)
	key := ed25519.NewKeyFromSeed(child)
	return solana.PublicKeyFromBytes(key.Public().(ed25519.PublicKey)).String()
}
