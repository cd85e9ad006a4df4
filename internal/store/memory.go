package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Checker-Finance/swap-broker/pkg/model"
)

// MemoryStore is an in-process Store with the same CAS contract as the
// hybrid store. It backs unit tests and local development without
// Postgres or Redis.
type MemoryStore struct {
	mu        sync.Mutex
	quotes    map[string]*model.Quote
	kv        map[string][]byte
	nextIndex uint32
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		quotes: make(map[string]*model.Quote),
		kv:     make(map[string][]byte),
	}
}

func (m *MemoryStore) CreateQuote(_ context.Context, q *model.Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *q
	m.quotes[q.QuoteID] = &cp
	return nil
}

func (m *MemoryStore) GetQuote(_ context.Context, quoteID string) (*model.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[quoteID]
	if !ok {
		return nil, &model.NotFoundError{Entity: "quote", ID: quoteID}
	}
	cp := *q
	return &cp, nil
}

func (m *MemoryStore) ListQuotesByStatus(_ context.Context, statuses ...model.QuoteStatus) ([]*model.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[model.QuoteStatus]bool, len(statuses))
	for _, st := range statuses {
		wanted[st] = true
	}

	var out []*model.Quote
	for _, q := range m.quotes {
		if wanted[q.Status] {
			cp := *q
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// UpdateQuoteCAS applies q's mutable fields if the stored version still
// matches expectedVersion, mirroring the SQL compare-and-swap.
func (m *MemoryStore) UpdateQuoteCAS(_ context.Context, q *model.Quote, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.quotes[q.QuoteID]
	if !ok || stored.Version != expectedVersion {
		ite := &model.InvalidTransitionError{QuoteID: q.QuoteID, To: q.Status}
		if ok {
			ite.From = stored.Status
		}
		return ite
	}

	stored.Status = q.Status
	stored.DepositTxHash = q.DepositTxHash
	stored.ExecutionTxHash = q.ExecutionTxHash
	stored.ExecutedAt = q.ExecutedAt
	stored.Version = expectedVersion + 1
	q.Version = stored.Version
	return nil
}

func (m *MemoryStore) AllocateAddressIndex(_ context.Context) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextIndex++
	return m.nextIndex, nil
}

func (m *MemoryStore) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = data
	return nil
}

func (m *MemoryStore) GetJSON(_ context.Context, key string, dest any) error {
	m.mu.Lock()
	data, ok := m.kv[key]
	m.mu.Unlock()
	if !ok {
		return redis.Nil
	}
	return json.Unmarshal(data, dest)
}

func (m *MemoryStore) HealthCheck(_ context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
