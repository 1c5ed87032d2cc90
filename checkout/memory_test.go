package checkout

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixturesJSON = `{
	"orders": [
		{
			"id": "2001",
			"incrementId": "000002001",
			"quoteId": "701",
			"payment": {"method": "signpay_invoice"},
			"billingAddress": {"firstName": "Ola", "lastName": "Nordmann", "street": ["Karl Johans gate 1", ""], "city": "Oslo", "postCode": "0154", "countryId": "NO"},
			"customerEmail": "ola@example.com",
			"currency": "NOK",
			"grandTotal": "499.00",
			"shippingAmount": "0",
			"shippingTaxPercent": "0",
			"discountAmount": "0"
		}
	],
	"quotes": {
		"701": [{"sku": "BOOK-1", "name": "Book", "quantity": "1", "priceExclTax": "399.20", "taxPercent": "25"}]
	}
}`

func TestMemoryStore_LoadFixtures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.json")
	require.NoError(t, os.WriteFile(path, []byte(fixturesJSON), 0o600))

	store := NewMemoryStore()
	require.NoError(t, store.LoadFixtures(path))

	order, err := store.GetOrderByQuoteID(context.Background(), "701")
	require.NoError(t, err)
	assert.Equal(t, "2001", order.ID)
	assert.Equal(t, StatePending, order.State)
	assert.Equal(t, "499", order.GrandTotal.String())
	assert.Equal(t, "Oslo", order.BillingAddress.City)

	items, err := store.QuoteItems(context.Background(), "701")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "399.2", items[0].PriceExclTax.String())
}

func TestMemoryStore_LoadFixtures_Errors(t *testing.T) {
	store := NewMemoryStore()
	assert.Error(t, store.LoadFixtures(filepath.Join(t.TempDir(), "missing.json")))

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	assert.Error(t, store.LoadFixtures(path))
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	store.AddOrder(testOrder())

	order, err := store.ResolveOrder(context.Background(), "1001")
	require.NoError(t, err)
	order.BillingAddress.City = "Changed"
	order.Payment.Method = "changed"

	again, err := store.ResolveOrder(context.Background(), "1001")
	require.NoError(t, err)
	assert.Equal(t, "Stockholm", again.BillingAddress.City)
	assert.Equal(t, "signpay_invoice", again.Payment.Method)
}

func TestMemoryStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	missing := &Order{ID: "missing"}

	_, err := store.ResolveOrder(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetOrderByQuoteID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.QuoteItems(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.RestoreQuote(ctx, "missing"), ErrNotFound)
	assert.ErrorIs(t, store.CancelOrder(ctx, missing, ReasonFailed), ErrNotFound)
	assert.ErrorIs(t, store.AttachBillingAddress(ctx, missing, Address{}), ErrNotFound)
}

func TestMemoryStore_SaveAddressAssignsID(t *testing.T) {
	store := NewMemoryStore()
	address := testAddress()

	require.NoError(t, store.SaveAddress(context.Background(), address))
	assert.NotEmpty(t, address.ID)

	id := address.ID
	require.NoError(t, store.SaveAddress(context.Background(), address))
	assert.Equal(t, id, address.ID)
}
