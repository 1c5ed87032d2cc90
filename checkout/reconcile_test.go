package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/mstgnz/signpay/provider"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finalizeWith(status provider.PaymentStatus, customer provider.ResolvedCustomer) func(context.Context, string) (*provider.PaymentSessionResult, error) {
	return func(ctx context.Context, orderRef string) (*provider.PaymentSessionResult, error) {
		return &provider.PaymentSessionResult{
			PaymentID:      "pay-" + orderRef,
			Status:         status,
			ApprovedAmount: decimal.RequireFromString("1250.00"),
			Customer:       customer,
		}, nil
	}
}

var naturalCustomer = provider.ResolvedCustomer{
	GovernmentID: testGovID,
	Type:         provider.CustomerNatural,
	Address: provider.ResolvedAddress{
		FirstName:   "Anna-Karin",
		LastName:    "Svensson Berg",
		FullName:    "Anna-Karin Svensson Berg",
		AddressRow1: "Kungsgatan 10",
		AddressRow2: "lgh 1102",
		PostalArea:  "Uppsala",
		PostalCode:  "75320",
		Country:     "SE",
	},
}

var legalCustomer = provider.ResolvedCustomer{
	GovernmentID: testOrgID,
	Type:         provider.CustomerLegal,
	Address: provider.ResolvedAddress{
		FullName:    "Acme Holding AB",
		AddressRow1: "Industrivagen 5",
		PostalArea:  "Malmo",
		PostalCode:  "21120",
		Country:     "SE",
	},
}

func (f *fixture) signedSession(t *testing.T) {
	t.Helper()
	f.storeIdentity(t)
	require.NoError(t, f.cs.SetPaymentSession("https://provider.example.com/sign/abc", "pay-1"))
	require.NoError(t, f.cs.SetFailureReturnURL(testBaseURL+"/checkout"))
}

func (f *fixture) assertSessionCleared(t *testing.T) {
	t.Helper()
	for _, get := range []func() (string, bool){f.cs.GovernmentID, f.cs.PaymentSigningURL, f.cs.PaymentID, f.cs.FailureReturnURL} {
		_, ok := get()
		assert.False(t, ok)
	}
}

func TestReconcile_NaturalPerson(t *testing.T) {
	f := newFixture(t)
	f.signedSession(t)
	f.client.finalize = finalizeWith(provider.StatusFinalized, naturalCustomer)

	res, err := f.reconciler().Reconcile(context.Background(), "501", f.cs, f.host)
	require.NoError(t, err)

	assert.True(t, res.Succeeded())
	assert.False(t, res.Skipped)
	assert.True(t, res.AddressUpdated)
	assert.Equal(t, []string{"000001001"}, f.client.finalizeRefs, "finalize uses the increment id")

	billing := f.order(t).BillingAddress
	require.NotNil(t, billing)
	assert.Equal(t, "Anna-Karin", billing.FirstName)
	assert.Equal(t, "Svensson Berg", billing.LastName)
	assert.Empty(t, billing.Company)
	assert.Equal(t, [2]string{"Kungsgatan 10", "lgh 1102"}, billing.Street)
	assert.Equal(t, "Uppsala", billing.City)
	assert.Equal(t, "75320", billing.PostCode)
	assert.Equal(t, "0701234567", billing.Telephone, "fields the provider does not know are kept")
	assert.NotEmpty(t, billing.ID)

	assert.True(t, f.host.IsReconciled("501"))
	f.assertSessionCleared(t)

	event := f.events.last()
	assert.Equal(t, "reconcile", event.Operation)
	assert.Equal(t, "FINALIZED", event.Outcome)
	assert.Equal(t, "pay-000001001", event.PaymentID)
}

func TestReconcile_LegalAddressMapping(t *testing.T) {
	f := newFixture(t)
	f.signedSession(t)
	f.client.finalize = finalizeWith(provider.StatusBooked, legalCustomer)

	res, err := f.reconciler().Reconcile(context.Background(), "501", f.cs, f.host)
	require.NoError(t, err)
	require.True(t, res.Succeeded())

	billing := f.order(t).BillingAddress
	assert.Equal(t, "Acme Holding AB", billing.Company)
	assert.Equal(t, "Anna", billing.FirstName, "person names are untouched for companies")
	assert.Equal(t, "Svensson", billing.LastName)
	assert.Equal(t, [2]string{"Industrivagen 5", ""}, billing.Street)
	assert.Equal(t, "Malmo", billing.City)
	assert.Equal(t, "21120", billing.PostCode)
}

func TestReconcile_RejectedStatus(t *testing.T) {
	tests := []struct {
		name      string
		reject    []string
		status    provider.PaymentStatus
		succeeded bool
	}{
		{"denied with default set", nil, provider.StatusDenied, false},
		{"frozen with default set", nil, provider.StatusFrozen, true},
		{"frozen when configured", []string{"denied", "FROZEN"}, provider.StatusFrozen, false},
		{"blank entries fall back to default", []string{" "}, provider.StatusDenied, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.signedSession(t)
			f.client.finalize = finalizeWith(tt.status, naturalCustomer)

			res, err := f.reconciler(tt.reject...).Reconcile(context.Background(), "501", f.cs, f.host)
			require.NoError(t, err, "finalize problems never abort reconciliation")
			assert.Equal(t, tt.succeeded, res.Succeeded())
			assert.Equal(t, tt.succeeded, res.AddressUpdated)
			f.assertSessionCleared(t)

			if !tt.succeeded {
				assert.Equal(t, KindReconcile, KindOf(res.FinalizeErr))
				assert.Equal(t, FinalizingMessage, CustomerMessage(res.FinalizeErr))
				assert.Equal(t, "Anna", f.order(t).BillingAddress.FirstName)
				assert.False(t, f.host.IsReconciled("501"))
			}
		})
	}
}

func TestReconcile_FinalizeTransportError(t *testing.T) {
	f := newFixture(t)
	f.signedSession(t)
	f.client.finalize = func(ctx context.Context, orderRef string) (*provider.PaymentSessionResult, error) {
		return nil, provider.NewError("transport_error", "timeout", 0, provider.ErrTransport)
	}

	res, err := f.reconciler().Reconcile(context.Background(), "501", f.cs, f.host)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.False(t, res.Succeeded())
	assert.True(t, errors.Is(res.FinalizeErr, provider.ErrTransport))
	assert.Nil(t, res.Result)
	assert.Equal(t, "FAILED", f.events.last().Outcome)
	f.assertSessionCleared(t)
}

func TestReconcile_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.signedSession(t)
	f.client.finalize = finalizeWith(provider.StatusFinalized, naturalCustomer)
	reconciler := f.reconciler()

	first, err := reconciler.Reconcile(context.Background(), "501", f.cs, f.host)
	require.NoError(t, err)
	assert.False(t, first.Skipped)

	second, err := reconciler.Reconcile(context.Background(), "501", f.cs, f.host)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.True(t, second.Succeeded())

	assert.Len(t, f.client.finalizeRefs, 1)
	assert.Equal(t, "SKIPPED", f.events.last().Outcome)
}

func TestReconcile_OtherDevice(t *testing.T) {
	f := newFixture(t)
	f.signedSession(t)
	f.client.finalize = finalizeWith(provider.StatusFinalized, naturalCustomer)

	cs, host := f.otherDevice("sess-2")
	res, err := f.reconciler().Reconcile(context.Background(), "501", cs, host)
	require.NoError(t, err)
	assert.True(t, res.Succeeded())

	assert.True(t, host.IsActiveOrder(res.Order), "order is restored into the new host session")
	assert.Equal(t, "501", host.LastQuoteID())
}

func TestReconcile_LocateErrors(t *testing.T) {
	for _, quoteID := range []string{"", "0", "999"} {
		t.Run("quote_"+quoteID, func(t *testing.T) {
			f := newFixture(t)
			f.signedSession(t)

			res, err := f.reconciler().Reconcile(context.Background(), quoteID, f.cs, f.host)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, KindData, KindOf(err))
			assert.Empty(t, f.client.finalizeRefs)
			f.assertSessionCleared(t)
		})
	}
}

func TestReconcile_AddressFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.signedSession(t)
	f.client.finalize = finalizeWith(provider.StatusFinalized, provider.ResolvedCustomer{Type: provider.CustomerNatural})

	res, err := f.reconciler().Reconcile(context.Background(), "501", f.cs, f.host)
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.False(t, res.AddressUpdated)
	assert.Equal(t, "Storgatan 1", f.order(t).BillingAddress.Street[0])
}

func TestReconcile_FailedFinalizeIsNotRetried(t *testing.T) {
	f := newFixture(t)
	f.signedSession(t)
	f.client.finalize = finalizeWith(provider.StatusDenied, naturalCustomer)
	reconciler := f.reconciler()

	first, err := reconciler.Reconcile(context.Background(), "501", f.cs, f.host)
	require.NoError(t, err)
	require.False(t, first.Succeeded())
	assert.False(t, first.Skipped)

	second, err := reconciler.Reconcile(context.Background(), "501", f.cs, f.host)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.False(t, second.Succeeded())
	assert.Equal(t, FinalizingMessage, CustomerMessage(second.FinalizeErr))
	assert.Equal(t, "1001", second.Order.ID)

	assert.Len(t, f.client.finalizeRefs, 1)
	assert.Equal(t, "SKIPPED", f.events.last().Outcome)
}

func TestReconcile_NewOrderClearsFailedFinalize(t *testing.T) {
	f := newFixture(t)
	f.signedSession(t)
	f.client.finalize = finalizeWith(provider.StatusDenied, naturalCustomer)

	_, err := f.reconciler().Reconcile(context.Background(), "501", f.cs, f.host)
	require.NoError(t, err)
	require.True(t, f.host.FinalizeFailed("501"))

	require.NoError(t, f.host.RecordPlacedOrder(f.order(t)))
	assert.False(t, f.host.FinalizeFailed("501"))
}

// restoreFailingHost cannot take the order back into the host session
type restoreFailingHost struct {
	HostSession
}

func (h restoreFailingHost) Restore(order *Order) error {
	return errors.New("session storage unavailable")
}

func TestReconcile_RestoreFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.signedSession(t)
	f.client.finalize = finalizeWith(provider.StatusFinalized, naturalCustomer)

	cs, host := f.otherDevice("sess-2")
	res, err := f.reconciler().Reconcile(context.Background(), "501", cs, restoreFailingHost{host})
	require.Error(t, err)
	assert.Nil(t, res)

	assert.Equal(t, KindData, KindOf(err))
	assert.Equal(t, SessionMessage, CustomerMessage(err))
	assert.Empty(t, f.client.finalizeRefs)
	assert.Equal(t, "FAILED", f.events.last().Outcome)
}

func TestReconcile_FinalizesUnderOrderIDWithoutIncrementID(t *testing.T) {
	f := newFixture(t)
	order := testOrder()
	order.IncrementID = ""
	f.store.AddOrder(order)
	f.signedSession(t)
	f.client.finalize = finalizeWith(provider.StatusFinalized, naturalCustomer)

	res, err := f.reconciler().Reconcile(context.Background(), "501", f.cs, f.host)
	require.NoError(t, err)
	assert.True(t, res.Succeeded())

	assert.Equal(t, []string{"1001"}, f.client.finalizeRefs, "finalize uses the id the session was opened under")
}
