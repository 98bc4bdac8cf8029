package collector

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"Watchtower/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// It serves both quotes and FX rates.
type MockFetcher struct {
	mu     sync.Mutex
	Quotes map[string]*model.Quote
	Rates  model.FxRates
	Err    error
	calls  int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchQuote(_ context.Context, symbol string) (*model.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return nil, m.Err
	}
	q, ok := m.Quotes[strings.ToUpper(symbol)]
	if !ok || q == nil {
		return nil, fmt.Errorf("mock %s: %w", symbol, ErrUnsupportedSymbol)
	}
	cp := *q
	return &cp, nil
}

func (m *MockFetcher) FetchRates(_ context.Context) (model.FxRates, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return model.FxRates{}, m.Err
	}
	if m.Rates.USD <= 0 || m.Rates.EUR <= 0 {
		return model.FxRates{}, fmt.Errorf("mock: no rates configured")
	}
	return m.Rates, nil
}

// SetQuote replaces the quote returned for symbol.
func (m *MockFetcher) SetQuote(symbol string, q *model.Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Quotes == nil {
		m.Quotes = make(map[string]*model.Quote)
	}
	m.Quotes[strings.ToUpper(symbol)] = q
}

// Calls returns how many quotes were requested.
func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
