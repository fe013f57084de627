package domain

import (
	"errors"
	"sync"
)

var ErrOrderBookNotFound = errors.New("order book not found")

// OrderBookStorage is a registry of live order books keyed by pair. Every
// pair owns an independent OrderBook; nothing is shared between them.
type OrderBookStorage struct {
	mu      sync.RWMutex
	storage map[string]*OrderBook
}

func NewOrderBookStorage() *OrderBookStorage {
	return &OrderBookStorage{
		storage: make(map[string]*OrderBook),
	}
}

func (o *OrderBookStorage) Add(symbol *MarketSymbol, orderBook *OrderBook) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.storage[symbol.String()] = orderBook
}

func (o *OrderBookStorage) Get(symbol *MarketSymbol) (*OrderBook, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	orderBook, ok := o.storage[symbol.String()]
	if !ok {
		return nil, ErrOrderBookNotFound
	}

	return orderBook, nil
}

func (o *OrderBookStorage) OrderBookCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return len(o.storage)
}
