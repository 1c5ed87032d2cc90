package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

// Order states used by MemoryStore
const (
	StatePending  = "pending_payment"
	StateCanceled = "canceled"
)

// Fixtures is the file format accepted by LoadFixtures
type Fixtures struct {
	Orders []Order               `json:"orders"`
	Quotes map[string][]CartItem `json:"quotes"`
}

// MemoryStore is an in-process OrderStore and CartStore. It lets the service
// run without a host platform and backs the tests.
type MemoryStore struct {
	orders      map[string]*Order
	quotes      map[string][]CartItem
	activeQuote map[string]bool
	addresses   map[string]Address
	mu          sync.RWMutex
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:      make(map[string]*Order),
		quotes:      make(map[string][]CartItem),
		activeQuote: make(map[string]bool),
		addresses:   make(map[string]Address),
	}
}

// LoadFixtures reads orders and quotes from a JSON file
func (m *MemoryStore) LoadFixtures(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixtures: %w", err)
	}

	var fixtures Fixtures
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("parse fixtures: %w", err)
	}

	for _, order := range fixtures.Orders {
		m.AddOrder(order)
	}
	for quoteID, items := range fixtures.Quotes {
		m.SetQuoteItems(quoteID, items)
	}
	return nil
}

// AddOrder stores a copy of order
func (m *MemoryStore) AddOrder(order Order) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if order.State == "" {
		order.State = StatePending
	}
	m.orders[order.ID] = cloneOrder(&order)
}

// SetQuoteItems replaces the items of a quote
func (m *MemoryStore) SetQuoteItems(quoteID string, items []CartItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[quoteID] = append([]CartItem(nil), items...)
}

// IsQuoteActive reports whether RestoreQuote was called for quoteID
func (m *MemoryStore) IsQuoteActive(quoteID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeQuote[quoteID]
}

func (m *MemoryStore) ResolveOrder(ctx context.Context, orderID string) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	return cloneOrder(order), nil
}

func (m *MemoryStore) GetOrderByQuoteID(ctx context.Context, quoteID string) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, order := range m.orders {
		if order.QuoteID == quoteID {
			return cloneOrder(order), nil
		}
	}
	return nil, fmt.Errorf("order for quote %s: %w", quoteID, ErrNotFound)
}

func (m *MemoryStore) CancelOrder(ctx context.Context, order *Order, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.orders[order.ID]
	if !ok {
		return fmt.Errorf("order %s: %w", order.ID, ErrNotFound)
	}
	stored.State = StateCanceled
	stored.CancelReason = reason
	order.State = StateCanceled
	order.CancelReason = reason
	return nil
}

func (m *MemoryStore) SaveAddress(ctx context.Context, address *Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if address.ID == "" {
		address.ID = uuid.New().String()
	}
	m.addresses[address.ID] = *address
	return nil
}

func (m *MemoryStore) AttachBillingAddress(ctx context.Context, order *Order, address Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.orders[order.ID]
	if !ok {
		return fmt.Errorf("order %s: %w", order.ID, ErrNotFound)
	}
	a := address
	stored.BillingAddress = &a
	b := address
	order.BillingAddress = &b
	return nil
}

func (m *MemoryStore) QuoteItems(ctx context.Context, quoteID string) ([]CartItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items, ok := m.quotes[quoteID]
	if !ok {
		return nil, fmt.Errorf("quote %s: %w", quoteID, ErrNotFound)
	}
	return append([]CartItem(nil), items...), nil
}

func (m *MemoryStore) RestoreQuote(ctx context.Context, quoteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.quotes[quoteID]; !ok {
		return fmt.Errorf("quote %s: %w", quoteID, ErrNotFound)
	}
	m.activeQuote[quoteID] = true
	return nil
}

func cloneOrder(order *Order) *Order {
	out := *order
	if order.Payment != nil {
		p := *order.Payment
		out.Payment = &p
	}
	if order.BillingAddress != nil {
		a := *order.BillingAddress
		out.BillingAddress = &a
	}
	if order.ShippingAddress != nil {
		a := *order.ShippingAddress
		out.ShippingAddress = &a
	}
	return &out
}
