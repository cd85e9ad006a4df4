// Package chain talks to per-chain transaction indexes to detect
// deposits and renders the wallet-scannable payment URIs that quote
// responses carry.
package chain

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/swap-broker/internal/httpclient"
	"github.com/Checker-Finance/swap-broker/pkg/model"
)

// Deposit is one inbound transfer observed at a deposit address.
type Deposit struct {
	TxHash         string
	AmountBaseUnit decimal.Decimal
}

// txRecord mirrors the tx-index wire format. Values arrive in base
// units as JSON strings to keep precision out of float territory.
type txRecord struct {
	TxHash        string          `json:"txHash"`
	To            string          `json:"to"`
	ValueBaseUnit decimal.Decimal `json:"valueBaseUnit"`
}

// IndexClient queries the chain tx-index service. One deployment fronts
// every supported chain; the chain slug routes the lookup.
type IndexClient struct {
	baseURL string
	exec    *httpclient.Executor
}

func NewIndexClient(baseURL string, exec *httpclient.Executor) *IndexClient {
	return &IndexClient{baseURL: strings.TrimRight(baseURL, "/"), exec: exec}
}

// Deposits lists inbound transfers to address on the asset's chain.
// Index failures surface as ExternalUnavailable: the caller must treat
// them as transient, never as proof that no deposit exists.
func (c *IndexClient) Deposits(ctx context.Context, asset model.Asset, address string) ([]Deposit, error) {
	url := fmt.Sprintf("%s/%s/api/v1/address/%s/txs", c.baseURL, asset.Chain, address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build tx-index request: %w", err)
	}

	var records []txRecord
	if err := c.exec.DoJSON(ctx, req, "index:"+asset.Chain, &records); err != nil {
		return nil, &model.ExternalUnavailable{Target: "chain_index", Err: err}
	}

	deposits := make([]Deposit, 0, len(records))
	for _, r := range records {
		// Some indexes return the address's full tx history; keep only
		// transfers INTO the watched address.
		if r.To != "" && !strings.EqualFold(r.To, address) {
			continue
		}
		deposits = append(deposits, Deposit{TxHash: r.TxHash, AmountBaseUnit: r.ValueBaseUnit})
	}
	return deposits, nil
}
