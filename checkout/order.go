package checkout

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by stores when a record does not exist
var ErrNotFound = errors.New("not found")

// Cancel reasons recorded on orders
const (
	ReasonCreditDenied  = "credit_denied"
	ReasonFailed        = "authorization_failed"
	ReasonSigningFailed = "signing_failed"
)

// Address is a host platform address
type Address struct {
	ID        string    `json:"id,omitempty"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Company   string    `json:"company,omitempty"`
	Street    [2]string `json:"street"`
	City      string    `json:"city"`
	PostCode  string    `json:"postCode"`
	CountryID string    `json:"countryId"`
	Telephone string    `json:"telephone,omitempty"`
	Email     string    `json:"email,omitempty"`
}

// Payment is the payment record attached to an order
type Payment struct {
	Method    string `json:"method"`
	PaymentID string `json:"paymentId,omitempty"`
}

// Order is a host platform order
type Order struct {
	ID                 string          `json:"id"`
	IncrementID        string          `json:"incrementId"`
	QuoteID            string          `json:"quoteId"`
	Payment            *Payment        `json:"payment,omitempty"`
	BillingAddress     *Address        `json:"billingAddress,omitempty"`
	ShippingAddress    *Address        `json:"shippingAddress,omitempty"`
	CustomerEmail      string          `json:"customerEmail"`
	Currency           string          `json:"currency"`
	GrandTotal         decimal.Decimal `json:"grandTotal"`
	ShippingAmount     decimal.Decimal `json:"shippingAmount"`
	ShippingTaxPercent decimal.Decimal `json:"shippingTaxPercent"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
	State              string          `json:"state"`
	CancelReason       string          `json:"cancelReason,omitempty"`
}

// Reference is the id the payment is opened and finalized under: the display
// id, or the order id when the host has not assigned one
func (o *Order) Reference() string {
	if o.IncrementID != "" {
		return o.IncrementID
	}
	return o.ID
}

// CartItem is one line of the quote an order was placed from
type CartItem struct {
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Quantity     decimal.Decimal `json:"quantity"`
	PriceExclTax decimal.Decimal `json:"priceExclTax"`
	TaxPercent   decimal.Decimal `json:"taxPercent"`
}

// OrderStore gives access to host orders and addresses
type OrderStore interface {
	ResolveOrder(ctx context.Context, orderID string) (*Order, error)
	GetOrderByQuoteID(ctx context.Context, quoteID string) (*Order, error)
	CancelOrder(ctx context.Context, order *Order, reason string) error
	SaveAddress(ctx context.Context, address *Address) error
	AttachBillingAddress(ctx context.Context, order *Order, address Address) error
}

// CartStore gives access to host quotes
type CartStore interface {
	QuoteItems(ctx context.Context, quoteID string) ([]CartItem, error)
	// RestoreQuote makes a quote active again so the customer can retry
	RestoreQuote(ctx context.Context, quoteID string) error
}

// HostSession is the host platform's notion of the customer's current order
type HostSession interface {
	IsActiveOrder(order *Order) bool
	Restore(order *Order) error
	RecordPlacedOrder(order *Order) error
	LastQuoteID() string
	IsReconciled(quoteID string) bool
	MarkReconciled(quoteID string) error
	// FinalizeFailed reports a quote whose finalize already failed; it is
	// answered from the record instead of calling the provider again
	FinalizeFailed(quoteID string) bool
	MarkFinalizeFailed(quoteID string) error
}

// IsSentinelQuoteID reports whether quoteID is one of the values meaning "unset"
func IsSentinelQuoteID(quoteID string) bool {
	return quoteID == "" || quoteID == "0"
}
