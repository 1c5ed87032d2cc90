package resurs

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/mstgnz/signpay/provider"
	"github.com/shopspring/decimal"
)

// Request payloads. Amounts travel as JSON numbers.

type wirePayment struct {
	PaymentMethodID     string           `json:"paymentMethodId"`
	PreferredID         string           `json:"preferredId"`
	Customer            wireCustomer     `json:"customer"`
	Card                *wireCard        `json:"card,omitempty"`
	BillingAddress      provider.Address `json:"billingAddress"`
	DeliveryAddress     provider.Address `json:"deliveryAddress"`
	OrderLines          []wireOrderLine  `json:"orderLines"`
	Signing             wireSigning      `json:"signing"`
	WaitForFraudControl bool             `json:"waitForFraudControl"`
	AnnulIfFrozen       bool             `json:"annulIfFrozen"`
	FinalizeIfBooked    bool             `json:"finalizeIfBooked"`
}

type wireCustomer struct {
	GovernmentID        string `json:"governmentId"`
	Phone               string `json:"phone,omitempty"`
	Email               string `json:"email,omitempty"`
	Type                string `json:"type"`
	ContactGovernmentID string `json:"contactGovernmentId,omitempty"`
}

type wireCard struct {
	CardNumber string       `json:"cardNumber,omitempty"`
	Amount     *json.Number `json:"amount,omitempty"`
}

type wireOrderLine struct {
	ArtNo                string      `json:"artNo"`
	Description          string      `json:"description"`
	Quantity             json.Number `json:"quantity"`
	UnitMeasure          string      `json:"unitMeasure"`
	UnitAmountWithoutVat json.Number `json:"unitAmountWithoutVat"`
	VatPct               json.Number `json:"vatPct"`
	Type                 string      `json:"type"`
}

type wireSigning struct {
	SuccessURL string `json:"successUrl"`
	FailURL    string `json:"failUrl"`
}

func toWirePayment(r provider.SessionRequest) wirePayment {
	w := wirePayment{
		PaymentMethodID: r.PaymentMethodID,
		PreferredID:     r.PreferredID,
		Customer: wireCustomer{
			GovernmentID:        r.Customer.GovernmentID,
			Phone:               r.Customer.Phone,
			Email:               r.Customer.Email,
			Type:                string(r.Customer.Type),
			ContactGovernmentID: r.Customer.ContactGovernmentID,
		},
		BillingAddress:      r.BillingAddress,
		DeliveryAddress:     r.DeliveryAddress,
		OrderLines:          make([]wireOrderLine, len(r.OrderLines)),
		Signing:             wireSigning{SuccessURL: r.SuccessURL, FailURL: r.FailureURL},
		WaitForFraudControl: r.WaitForFraudControl,
		AnnulIfFrozen:       r.AnnulIfFrozen,
		FinalizeIfBooked:    r.FinalizeIfBooked,
	}

	if r.Card != nil {
		w.Card = &wireCard{CardNumber: r.Card.Number}
		if r.Card.Amount != nil {
			amount := number(*r.Card.Amount)
			w.Card.Amount = &amount
		}
	}

	for i, line := range r.OrderLines {
		w.OrderLines[i] = wireOrderLine{
			ArtNo:                line.ArtNo,
			Description:          line.Description,
			Quantity:             number(line.Quantity),
			UnitMeasure:          line.UnitMeasure,
			UnitAmountWithoutVat: number(line.UnitAmountWithoutVat),
			VatPct:               number(line.VatPct),
			Type:                 string(line.Type),
		}
	}

	return w
}

// Response payloads. Every field is optional on the wire; normalize applies
// defaults so nothing past this file sees a nil.

type wirePaymentResult struct {
	PaymentID         *string          `json:"paymentId"`
	BookPaymentStatus *string          `json:"bookPaymentStatus"`
	ApprovedAmount    *decimal.Decimal `json:"approvedAmount"`
	SigningURL        *string          `json:"signingUrl"`
	Customer          *wireResolved    `json:"customer"`
}

type wireResolved struct {
	GovernmentID *string      `json:"governmentId"`
	Phone        *string      `json:"phone"`
	Email        *string      `json:"email"`
	Type         *string      `json:"type"`
	Address      *wireAddress `json:"address"`
}

type wireAddress struct {
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	FullName    *string `json:"fullName"`
	AddressRow1 *string `json:"addressRow1"`
	AddressRow2 *string `json:"addressRow2"`
	PostalArea  *string `json:"postalArea"`
	PostalCode  *string `json:"postalCode"`
	Country     *string `json:"country"`
}

type wireError struct {
	ErrorCode   string `json:"errorCode"`
	Description string `json:"description"`
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func (w wirePaymentResult) normalize() (*provider.PaymentSessionResult, error) {
	paymentID := str(w.PaymentID)
	if paymentID == "" {
		return nil, errors.New("paymentId is missing")
	}

	status, err := provider.ParseStatus(str(w.BookPaymentStatus))
	if err != nil {
		return nil, err
	}

	result := &provider.PaymentSessionResult{
		PaymentID:      paymentID,
		Status:         status,
		ApprovedAmount: decimal.Zero,
		SigningURL:     str(w.SigningURL),
		Customer:       provider.ResolvedCustomer{Type: provider.CustomerNatural},
	}

	if w.ApprovedAmount != nil {
		result.ApprovedAmount = *w.ApprovedAmount
	}

	if c := w.Customer; c != nil {
		result.Customer.GovernmentID = str(c.GovernmentID)
		result.Customer.Phone = str(c.Phone)
		result.Customer.Email = str(c.Email)
		if strings.EqualFold(str(c.Type), string(provider.CustomerLegal)) {
			result.Customer.Type = provider.CustomerLegal
		}
		if c.Address != nil {
			result.Customer.Address = c.Address.normalize()
		}
	}

	return result, nil
}

func (w wireAddress) normalize() provider.ResolvedAddress {
	return provider.ResolvedAddress{
		FirstName:   str(w.FirstName),
		LastName:    str(w.LastName),
		FullName:    str(w.FullName),
		AddressRow1: str(w.AddressRow1),
		AddressRow2: str(w.AddressRow2),
		PostalArea:  str(w.PostalArea),
		PostalCode:  str(w.PostalCode),
		Country:     strings.ToUpper(str(w.Country)),
	}
}
