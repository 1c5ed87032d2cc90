package checkout

import (
	"testing"

	"github.com/mstgnz/signpay/infra/config"
	"github.com/mstgnz/signpay/provider"
	"github.com/mstgnz/signpay/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	invoiceMethod = config.PaymentMethod{Code: "signpay_invoice", Type: config.MethodInvoice}
	cardMethod    = config.PaymentMethod{Code: "signpay_card", Type: config.MethodCard, CustomerType: config.CustomerNatural}
	testSettings  = AssemblerSettings{
		BaseURL:     testBaseURL + "/",
		UnitMeasure: "st",
		RiskFlags:   provider.RiskFlags{WaitForFraudControl: true},
	}
)

func TestBuildSessionRequest_NaturalPerson(t *testing.T) {
	order := testOrder()

	req, err := BuildSessionRequest(&order, testItems(), session.Identity{GovernmentID: testGovID}, invoiceMethod, testSettings)
	require.NoError(t, err)

	assert.Equal(t, "signpay_invoice", req.PaymentMethodID)
	assert.Equal(t, "000001001", req.PreferredID)
	assert.True(t, req.WaitForFraudControl)
	assert.Nil(t, req.Card)

	assert.Equal(t, provider.Customer{
		GovernmentID: testGovID,
		Phone:        "0701234567",
		Email:        "anna@example.com",
		Type:         provider.CustomerNatural,
	}, req.Customer)

	assert.Equal(t, "Anna Svensson", req.BillingAddress.FullName)
	assert.Equal(t, "Storgatan 1", req.BillingAddress.AddressRow1)
	assert.Equal(t, "Stockholm", req.BillingAddress.PostalArea)
	assert.Equal(t, "11122", req.BillingAddress.PostalCode)
	assert.Equal(t, "SE", req.BillingAddress.CountryCode)
	assert.Equal(t, req.BillingAddress, req.DeliveryAddress, "delivery falls back to billing")

	require.Len(t, req.OrderLines, 4)
	assert.Equal(t, provider.LineOrder, req.OrderLines[0].Type)
	assert.Equal(t, "SKU-1", req.OrderLines[0].ArtNo)
	assert.Equal(t, "Coffee mug", req.OrderLines[0].Description)
	assert.True(t, req.OrderLines[0].Quantity.Equal(decimal.NewFromInt(2)))
	assert.True(t, req.OrderLines[0].UnitAmountWithoutVat.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, "st", req.OrderLines[0].UnitMeasure)
	assert.Equal(t, "SKU-2", req.OrderLines[1].ArtNo)

	shipping := req.OrderLines[2]
	assert.Equal(t, provider.LineShipping, shipping.Type)
	assert.True(t, shipping.UnitAmountWithoutVat.Equal(decimal.NewFromInt(49)))
	assert.True(t, shipping.VatPct.Equal(decimal.NewFromInt(25)))
	assert.True(t, shipping.Quantity.Equal(decimal.NewFromInt(1)))

	discount := req.OrderLines[3]
	assert.Equal(t, provider.LineDiscount, discount.Type)
	assert.True(t, discount.UnitAmountWithoutVat.Equal(decimal.NewFromInt(-100)))

	assert.Equal(t, "https://shop.example.com/v1/checkout/signed?order_id=1001&quote_id=501", req.SuccessURL)
	assert.Equal(t, "https://shop.example.com/v1/checkout/failure?order_id=1001&quote_id=501", req.FailureURL)
}

func TestBuildSessionRequest_Company(t *testing.T) {
	order := testOrder()
	order.BillingAddress.Company = "Acme AB"
	order.ShippingAddress = &Address{
		FirstName: "Erik",
		LastName:  "Lund",
		Company:   "Acme Lager",
		Street:    [2]string{"Hamnvagen 2", "Port 4"},
		City:      "Goteborg",
		PostCode:  "41101",
		CountryID: "SE",
	}

	identity := session.Identity{GovernmentID: testOrgID, ContactGovernmentID: testContactID, IsCompany: true}
	req, err := BuildSessionRequest(&order, testItems(), identity, invoiceMethod, testSettings)
	require.NoError(t, err)

	assert.Equal(t, provider.CustomerLegal, req.Customer.Type)
	assert.Equal(t, testContactID, req.Customer.ContactGovernmentID)
	assert.Equal(t, "Acme AB", req.BillingAddress.FullName)
	assert.Equal(t, "Acme Lager", req.DeliveryAddress.FullName)
	assert.Equal(t, "Port 4", req.DeliveryAddress.AddressRow2)
	assert.Equal(t, "Goteborg", req.DeliveryAddress.PostalArea)
}

func TestBuildSessionRequest_ContactIgnoredForPerson(t *testing.T) {
	order := testOrder()
	identity := session.Identity{GovernmentID: testGovID, ContactGovernmentID: testContactID}

	req, err := BuildSessionRequest(&order, nil, identity, invoiceMethod, testSettings)
	require.NoError(t, err)
	assert.Empty(t, req.Customer.ContactGovernmentID)
}

func TestBuildSessionRequest_CardData(t *testing.T) {
	order := testOrder()
	amount := decimal.RequireFromString("5000")
	identity := session.Identity{GovernmentID: testGovID, CardNumber: testCardNumber, CardAmount: &amount}

	req, err := BuildSessionRequest(&order, nil, identity, cardMethod, testSettings)
	require.NoError(t, err)
	require.NotNil(t, req.Card)
	assert.Equal(t, testCardNumber, req.Card.Number)
	require.NotNil(t, req.Card.Amount)
	assert.True(t, req.Card.Amount.Equal(amount))

	// card data is never sent for methods that do not use it
	req, err = BuildSessionRequest(&order, nil, identity, invoiceMethod, testSettings)
	require.NoError(t, err)
	assert.Nil(t, req.Card)
}

func TestBuildSessionRequest_OptionalLines(t *testing.T) {
	tests := []struct {
		name     string
		shipping string
		discount string
		expected []provider.LineType
		discAmt  string
	}{
		{"no shipping or discount", "0", "0", []provider.LineType{provider.LineOrder}, ""},
		{"shipping only", "10", "0", []provider.LineType{provider.LineOrder, provider.LineShipping}, ""},
		{"positive discount is negated", "0", "30", []provider.LineType{provider.LineOrder, provider.LineDiscount}, "-30"},
		{"negative discount kept negative", "0", "-30", []provider.LineType{provider.LineOrder, provider.LineDiscount}, "-30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := testOrder()
			order.ShippingAmount = decimal.RequireFromString(tt.shipping)
			order.DiscountAmount = decimal.RequireFromString(tt.discount)

			req, err := BuildSessionRequest(&order, testItems()[:1], session.Identity{GovernmentID: testGovID}, invoiceMethod, testSettings)
			require.NoError(t, err)

			var types []provider.LineType
			for _, line := range req.OrderLines {
				types = append(types, line.Type)
			}
			assert.Equal(t, tt.expected, types)

			if tt.discAmt != "" {
				last := req.OrderLines[len(req.OrderLines)-1]
				assert.True(t, last.UnitAmountWithoutVat.Equal(decimal.RequireFromString(tt.discAmt)))
				assert.True(t, last.VatPct.IsZero())
			}
		})
	}
}

func TestBuildSessionRequest_Errors(t *testing.T) {
	tests := []struct {
		name     string
		order    func() *Order
		identity session.Identity
		kind     Kind
	}{
		{"nil order", func() *Order { return nil }, session.Identity{GovernmentID: testGovID}, KindData},
		{"missing order id", func() *Order { o := testOrder(); o.ID = ""; return &o }, session.Identity{GovernmentID: testGovID}, KindData},
		{"missing government id", func() *Order { o := testOrder(); return &o }, session.Identity{}, KindValidation},
		{"missing billing address", func() *Order { o := testOrder(); o.BillingAddress = nil; return &o }, session.Identity{GovernmentID: testGovID}, KindData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildSessionRequest(tt.order(), testItems(), tt.identity, invoiceMethod, testSettings)
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}
}

func TestBuildSessionRequest_PreferredIDFallback(t *testing.T) {
	order := testOrder()
	order.IncrementID = ""

	req, err := BuildSessionRequest(&order, nil, session.Identity{GovernmentID: testGovID}, invoiceMethod, testSettings)
	require.NoError(t, err)
	assert.Equal(t, "1001", req.PreferredID)
	assert.Equal(t, order.Reference(), req.PreferredID)
}

func TestBuildSessionRequest_DoesNotShareState(t *testing.T) {
	order := testOrder()
	items := testItems()
	identity := session.Identity{GovernmentID: testGovID}

	first, err := BuildSessionRequest(&order, items, identity, invoiceMethod, testSettings)
	require.NoError(t, err)
	second, err := BuildSessionRequest(&order, items, identity, invoiceMethod, testSettings)
	require.NoError(t, err)

	first.OrderLines[0].ArtNo = "changed"
	first.Customer.Email = "changed@example.com"

	assert.Equal(t, "SKU-1", second.OrderLines[0].ArtNo)
	assert.Equal(t, "anna@example.com", second.Customer.Email)
	assert.Equal(t, "SKU-1", items[0].SKU)
}
