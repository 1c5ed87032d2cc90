package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mstgnz/signpay/infra/config"
	"github.com/mstgnz/signpay/infra/opensearch"
	"github.com/mstgnz/signpay/provider"
	"github.com/mstgnz/signpay/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	testBaseURL    = "https://shop.example.com"
	testGovID      = "19800101-1234"
	testOrgID      = "556677-8899"
	testContactID  = "19750505-4321"
	testCardNumber = "4111 1111 1111 1111"
)

type mockClient struct {
	openSession  func(ctx context.Context, req provider.SessionRequest) (*provider.PaymentSessionResult, error)
	finalize     func(ctx context.Context, orderRef string) (*provider.PaymentSessionResult, error)
	fetchAddress func(ctx context.Context, govID string, customerType provider.CustomerType) (*provider.ResolvedAddress, error)

	mu           sync.Mutex
	requests     []provider.SessionRequest
	finalizeRefs []string
	lookups      []provider.CustomerType
}

func (m *mockClient) Initialize(config map[string]string) error { return nil }

func (m *mockClient) GetRequiredConfig(environment string) []provider.ConfigField { return nil }

func (m *mockClient) ValidateConfig(config map[string]string) error { return nil }

func (m *mockClient) OpenSession(ctx context.Context, req provider.SessionRequest) (*provider.PaymentSessionResult, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.openSession == nil {
		return nil, errors.New("unexpected OpenSession call")
	}
	return m.openSession(ctx, req)
}

func (m *mockClient) Finalize(ctx context.Context, orderRef string) (*provider.PaymentSessionResult, error) {
	m.mu.Lock()
	m.finalizeRefs = append(m.finalizeRefs, orderRef)
	m.mu.Unlock()
	if m.finalize == nil {
		return nil, errors.New("unexpected Finalize call")
	}
	return m.finalize(ctx, orderRef)
}

func (m *mockClient) FetchAddress(ctx context.Context, govID string, customerType provider.CustomerType) (*provider.ResolvedAddress, error) {
	m.mu.Lock()
	m.lookups = append(m.lookups, customerType)
	m.mu.Unlock()
	if m.fetchAddress == nil {
		return nil, errors.New("unexpected FetchAddress call")
	}
	return m.fetchAddress(ctx, govID, customerType)
}

func statusResult(status provider.PaymentStatus, signingURL string) func(context.Context, provider.SessionRequest) (*provider.PaymentSessionResult, error) {
	return func(ctx context.Context, req provider.SessionRequest) (*provider.PaymentSessionResult, error) {
		return &provider.PaymentSessionResult{
			PaymentID:      "pay-" + req.PreferredID,
			Status:         status,
			ApprovedAmount: decimal.RequireFromString("1250.00"),
			SigningURL:     signingURL,
		}, nil
	}
}

type eventRecorder struct {
	mu     sync.Mutex
	events []opensearch.CheckoutEvent
}

func (r *eventRecorder) LogCheckoutEvent(ctx context.Context, event opensearch.CheckoutEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) last() opensearch.CheckoutEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return opensearch.CheckoutEvent{}
	}
	return r.events[len(r.events)-1]
}

// cancelFailingStore behaves like MemoryStore but never cancels
type cancelFailingStore struct {
	*MemoryStore
}

func (s cancelFailingStore) CancelOrder(ctx context.Context, order *Order, reason string) error {
	return errors.New("database is locked")
}

func testMethods(t *testing.T) *config.MethodConfig {
	t.Helper()
	methods := config.NewMethodConfig()
	require.NoError(t, methods.Parse("signpay_invoice:INVOICE,signpay_b2b_invoice:INVOICE:LEGAL,signpay_card:CARD:NATURAL,signpay_newcard:NEW_CARD:NATURAL"))
	return methods
}

func testAddress() *Address {
	return &Address{
		FirstName: "Anna",
		LastName:  "Svensson",
		Street:    [2]string{"Storgatan 1", ""},
		City:      "Stockholm",
		PostCode:  "11122",
		CountryID: "SE",
		Telephone: "0701234567",
		Email:     "anna@example.com",
	}
}

func testOrder() Order {
	return Order{
		ID:                 "1001",
		IncrementID:        "000001001",
		QuoteID:            "501",
		Payment:            &Payment{Method: "signpay_invoice"},
		BillingAddress:     testAddress(),
		CustomerEmail:      "anna@example.com",
		Currency:           "SEK",
		GrandTotal:         decimal.RequireFromString("1250.00"),
		ShippingAmount:     decimal.RequireFromString("49.00"),
		ShippingTaxPercent: decimal.RequireFromString("25"),
		DiscountAmount:     decimal.RequireFromString("-100.00"),
	}
}

func testItems() []CartItem {
	return []CartItem{
		{
			SKU:          "SKU-1",
			Name:         "Coffee mug",
			Quantity:     decimal.NewFromInt(2),
			PriceExclTax: decimal.RequireFromString("200.00"),
			TaxPercent:   decimal.RequireFromString("25"),
		},
		{
			SKU:          "SKU-2",
			Name:         "Tea pot",
			Quantity:     decimal.NewFromInt(1),
			PriceExclTax: decimal.RequireFromString("600.00"),
			TaxPercent:   decimal.RequireFromString("25"),
		},
	}
}

type fixture struct {
	store    *MemoryStore
	sessions *session.MemoryStore
	cs       *session.CheckoutSession
	platform *session.PlatformSession
	host     HostSession
	client   *mockClient
	events   *eventRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := NewMemoryStore()
	store.AddOrder(testOrder())
	store.SetQuoteItems("501", testItems())

	sessions := session.NewMemoryStore()
	t.Cleanup(func() { sessions.Close() })

	platform := session.NewPlatformSession(sessions, "sess-1")
	return &fixture{
		store:    store,
		sessions: sessions,
		cs:       session.New(sessions, "sess-1", "signpay_"),
		platform: platform,
		host:     NewHostSession(platform),
		client:   &mockClient{},
		events:   &eventRecorder{},
	}
}

// otherDevice returns the sessions of a browser that did not start checkout
func (f *fixture) otherDevice(id string) (*session.CheckoutSession, HostSession) {
	platform := session.NewPlatformSession(f.sessions, id)
	return session.New(f.sessions, id, "signpay_"), NewHostSession(platform)
}

func (f *fixture) storeIdentity(t *testing.T) {
	t.Helper()
	require.NoError(t, f.cs.SetGovernmentID(testGovID))
	require.NoError(t, f.cs.SetIsCompany(false))
}

func (f *fixture) orchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	return NewOrchestrator(f.store, f.store, f.client, testMethods(t), AssemblerSettings{
		BaseURL:     testBaseURL,
		UnitMeasure: "st",
	}, f.events, "mock")
}

func (f *fixture) reconciler(reject ...string) *Reconciler {
	return NewReconciler(f.store, f.client, reject, f.events, "mock")
}

func (f *fixture) order(t *testing.T) *Order {
	t.Helper()
	order, err := f.store.ResolveOrder(context.Background(), "1001")
	require.NoError(t, err)
	return order
}
