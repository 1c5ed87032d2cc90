package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the provider's verdict on a payment session
type PaymentStatus string

const (
	StatusDenied    PaymentStatus = "DENIED"
	StatusSigning   PaymentStatus = "SIGNING"
	StatusFrozen    PaymentStatus = "FROZEN"
	StatusBooked    PaymentStatus = "BOOKED"
	StatusFinalized PaymentStatus = "FINALIZED"
)

// ParseStatus normalizes a provider status. Unknown values are rejected.
func ParseStatus(value string) (PaymentStatus, error) {
	status := PaymentStatus(strings.ToUpper(strings.TrimSpace(value)))
	switch status {
	case StatusDenied, StatusSigning, StatusFrozen, StatusBooked, StatusFinalized:
		return status, nil
	}
	return "", fmt.Errorf("%w: unknown payment status %q", ErrMalformedResponse, value)
}

// CustomerType tells the provider whether the customer is a person or a company
type CustomerType string

const (
	CustomerNatural CustomerType = "NATURAL"
	CustomerLegal   CustomerType = "LEGAL"
)

// CustomerTypeFor maps the company flag to a customer type
func CustomerTypeFor(isCompany bool) CustomerType {
	if isCompany {
		return CustomerLegal
	}
	return CustomerNatural
}

// LineType classifies an order line
type LineType string

const (
	LineOrder    LineType = "ORDER_LINE"
	LineShipping LineType = "SHIPPING_FEE"
	LineDiscount LineType = "DISCOUNT"
)

// ConfigField represents a required configuration field for a payment provider
type ConfigField struct {
	Key         string `json:"key"`
	Required    bool   `json:"required"`
	Type        string `json:"type"` // "string", "number", "url", "boolean"
	Description string `json:"description"`
	Example     string `json:"example"`
	Pattern     string `json:"pattern,omitempty"`
	MinLength   int    `json:"minLength,omitempty"`
	MaxLength   int    `json:"maxLength,omitempty"`
}

// Customer identifies who is paying
type Customer struct {
	GovernmentID        string       `json:"governmentId"`
	Phone               string       `json:"phone,omitempty"`
	Email               string       `json:"email,omitempty"`
	Type                CustomerType `json:"type"`
	ContactGovernmentID string       `json:"contactGovernmentId,omitempty"`
}

// Card carries card data for card based payment methods
type Card struct {
	Number string           `json:"cardNumber,omitempty"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

// Address is a billing or delivery address as sent to the provider
type Address struct {
	FullName    string `json:"fullName,omitempty"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	AddressRow1 string `json:"addressRow1"`
	AddressRow2 string `json:"addressRow2,omitempty"`
	PostalArea  string `json:"postalArea"`
	PostalCode  string `json:"postalCode"`
	CountryCode string `json:"countryCode"`
}

// OrderLine is one priced line of the payment
type OrderLine struct {
	ArtNo                string          `json:"artNo"`
	Description          string          `json:"description"`
	Quantity             decimal.Decimal `json:"quantity"`
	UnitMeasure          string          `json:"unitMeasure"`
	UnitAmountWithoutVat decimal.Decimal `json:"unitAmountWithoutVat"`
	VatPct               decimal.Decimal `json:"vatPct"`
	Type                 LineType        `json:"type"`
}

// RiskFlags are the merchant's fraud/booking preferences
type RiskFlags struct {
	WaitForFraudControl bool `json:"waitForFraudControl"`
	AnnulIfFrozen       bool `json:"annulIfFrozen"`
	FinalizeIfBooked    bool `json:"finalizeIfBooked"`
}

// SessionRequest is everything needed to open a payment session. It is built
// once per authorization attempt and not modified afterwards.
type SessionRequest struct {
	PaymentMethodID string      `json:"paymentMethodId"`
	PreferredID     string      `json:"preferredId"`
	Customer        Customer    `json:"customer"`
	Card            *Card       `json:"card,omitempty"`
	BillingAddress  Address     `json:"billingAddress"`
	DeliveryAddress Address     `json:"deliveryAddress"`
	OrderLines      []OrderLine `json:"orderLines"`
	SuccessURL      string      `json:"successUrl"`
	FailureURL      string      `json:"failureUrl"`
	RiskFlags
}

// ResolvedAddress is an address as the provider knows it
type ResolvedAddress struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	FullName    string `json:"fullName"`
	AddressRow1 string `json:"addressRow1"`
	AddressRow2 string `json:"addressRow2"`
	PostalArea  string `json:"postalArea"`
	PostalCode  string `json:"postalCode"`
	Country     string `json:"country"`
}

// ResolvedCustomer is the customer as the provider resolved it
type ResolvedCustomer struct {
	GovernmentID string          `json:"governmentId"`
	Phone        string          `json:"phone"`
	Email        string          `json:"email"`
	Type         CustomerType    `json:"type"`
	Address      ResolvedAddress `json:"address"`
}

// PaymentSessionResult is the provider's answer to OpenSession or Finalize
type PaymentSessionResult struct {
	PaymentID      string           `json:"paymentId"`
	Status         PaymentStatus    `json:"status"`
	ApprovedAmount decimal.Decimal  `json:"approvedAmount"`
	SigningURL     string           `json:"signingUrl,omitempty"`
	Customer       ResolvedCustomer `json:"customer"`
}

// SessionClient defines the interface every signing-capable payment provider implements
type SessionClient interface {
	// Initialize sets up the client with credentials and endpoints
	Initialize(config map[string]string) error

	// GetRequiredConfig returns the configuration fields required for this provider
	GetRequiredConfig(environment string) []ConfigField

	// ValidateConfig validates the provided configuration against provider requirements
	ValidateConfig(config map[string]string) error

	// OpenSession registers the payment and returns the initial decision
	OpenSession(ctx context.Context, request SessionRequest) (*PaymentSessionResult, error)

	// Finalize completes a signed payment identified by the merchant's order reference
	Finalize(ctx context.Context, orderRef string) (*PaymentSessionResult, error)

	// FetchAddress looks up the registered address for a government id
	FetchAddress(ctx context.Context, governmentID string, customerType CustomerType) (*ResolvedAddress, error)
}

// ProviderFactory is a function type that creates a new SessionClient
type ProviderFactory func() SessionClient
