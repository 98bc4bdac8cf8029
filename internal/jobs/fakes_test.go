package jobs

import (
	"context"
	"errors"
	"sync"

	"Watchtower/internal/calculator"
	"Watchtower/internal/model"
)

type fakeQuotes struct {
	mu     sync.Mutex
	quotes map[string]*model.Quote
}

func newFakeQuotes() *fakeQuotes {
	return &fakeQuotes{quotes: make(map[string]*model.Quote)}
}

func (f *fakeQuotes) set(symbol string, q *model.Quote) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if q == nil {
		delete(f.quotes, symbol)
		return
	}
	f.quotes[symbol] = q
}

func (f *fakeQuotes) Quote(_ context.Context, _, symbol string) (*model.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quotes[symbol]
	if !ok {
		return nil, errors.New("no quote")
	}
	cp := *q
	return &cp, nil
}

func (f *fakeQuotes) Rates(_ context.Context) model.FxRates { return calculator.DefaultFxRates }

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *fakeNotifier) Send(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, text)
	return nil
}

func (n *fakeNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sent...)
}
