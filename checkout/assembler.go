package checkout

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/mstgnz/signpay/infra/config"
	"github.com/mstgnz/signpay/provider"
	"github.com/mstgnz/signpay/session"
	"github.com/shopspring/decimal"
)

// Callback paths registered with the provider
const (
	SignedPath  = "/v1/checkout/signed"
	FailurePath = "/v1/checkout/failure"
	SuccessPath = "/v1/checkout/success"
	SignPath    = "/v1/checkout/sign"
)

// AssemblerSettings are the merchant settings used when building a session request
type AssemblerSettings struct {
	BaseURL     string
	UnitMeasure string
	RiskFlags   provider.RiskFlags
}

// BuildSessionRequest assembles the payment session request for an order.
// It reads only its arguments and returns a new value on every call.
func BuildSessionRequest(order *Order, items []CartItem, identity session.Identity, method config.PaymentMethod, settings AssemblerSettings) (provider.SessionRequest, error) {
	const op = "assemble"

	if order == nil || order.ID == "" {
		return provider.SessionRequest{}, newError(KindData, op, OrderMessage, errors.New("order id is missing"))
	}
	if identity.GovernmentID == "" {
		return provider.SessionRequest{}, newError(KindValidation, op, MissingIDMessage, errors.New("government id is missing from session"))
	}

	req := provider.SessionRequest{
		PaymentMethodID: method.Code,
		PreferredID:     order.Reference(),
		RiskFlags:       settings.RiskFlags,
	}

	// customer
	req.Customer = provider.Customer{
		GovernmentID: identity.GovernmentID,
		Email:        order.CustomerEmail,
		Type:         provider.CustomerTypeFor(identity.IsCompany),
	}
	if identity.IsCompany {
		req.Customer.ContactGovernmentID = identity.ContactGovernmentID
	}

	// card
	if method.CardData() {
		card := &provider.Card{Number: identity.CardNumber}
		if identity.CardAmount != nil {
			amount := *identity.CardAmount
			card.Amount = &amount
		}
		req.Card = card
	}

	// addresses
	if order.BillingAddress == nil {
		return provider.SessionRequest{}, newError(KindData, op, GenericMessage, fmt.Errorf("order %s has no billing address", order.ID))
	}
	req.Customer.Phone = order.BillingAddress.Telephone
	if req.Customer.Email == "" {
		req.Customer.Email = order.BillingAddress.Email
	}
	req.BillingAddress = toProviderAddress(*order.BillingAddress, identity.IsCompany)

	delivery := order.BillingAddress
	if order.ShippingAddress != nil {
		delivery = order.ShippingAddress
	}
	req.DeliveryAddress = toProviderAddress(*delivery, identity.IsCompany)

	// lines
	req.OrderLines = buildOrderLines(order, items, settings.UnitMeasure)

	// callbacks
	query := url.Values{}
	query.Set("order_id", order.ID)
	query.Set("quote_id", order.QuoteID)
	base := strings.TrimRight(settings.BaseURL, "/")
	req.SuccessURL = base + SignedPath + "?" + query.Encode()
	req.FailureURL = base + FailurePath + "?" + query.Encode()

	return req, nil
}

func toProviderAddress(a Address, isCompany bool) provider.Address {
	out := provider.Address{
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		FullName:    strings.TrimSpace(a.FirstName + " " + a.LastName),
		AddressRow1: a.Street[0],
		AddressRow2: a.Street[1],
		PostalArea:  a.City,
		PostalCode:  a.PostCode,
		CountryCode: a.CountryID,
	}
	if isCompany && a.Company != "" {
		out.FullName = a.Company
	}
	return out
}

func buildOrderLines(order *Order, items []CartItem, unitMeasure string) []provider.OrderLine {
	lines := make([]provider.OrderLine, 0, len(items)+2)

	for _, item := range items {
		lines = append(lines, provider.OrderLine{
			ArtNo:                item.SKU,
			Description:          item.Name,
			Quantity:             item.Quantity,
			UnitMeasure:          unitMeasure,
			UnitAmountWithoutVat: item.PriceExclTax,
			VatPct:               item.TaxPercent,
			Type:                 provider.LineOrder,
		})
	}

	if order.ShippingAmount.GreaterThan(decimal.Zero) {
		lines = append(lines, provider.OrderLine{
			ArtNo:                "shipping",
			Description:          "Shipping",
			Quantity:             decimal.NewFromInt(1),
			UnitMeasure:          unitMeasure,
			UnitAmountWithoutVat: order.ShippingAmount,
			VatPct:               order.ShippingTaxPercent,
			Type:                 provider.LineShipping,
		})
	}

	// discounts are always sent as a negative amount, whatever sign the host uses
	if !order.DiscountAmount.IsZero() {
		lines = append(lines, provider.OrderLine{
			ArtNo:                "discount",
			Description:          "Discount",
			Quantity:             decimal.NewFromInt(1),
			UnitMeasure:          unitMeasure,
			UnitAmountWithoutVat: order.DiscountAmount.Abs().Neg(),
			VatPct:               decimal.Zero,
			Type:                 provider.LineDiscount,
		})
	}

	return lines
}
