package checkout

import (
	"fmt"
	"strings"

	"github.com/mstgnz/signpay/identity"
	"github.com/mstgnz/signpay/infra/config"
	"github.com/mstgnz/signpay/infra/logger"
	"github.com/mstgnz/signpay/session"
	"github.com/shopspring/decimal"
)

// IdentitySubmission is the identity and card data entered at checkout
type IdentitySubmission struct {
	IsCompany    bool
	GovID        string
	ContactGovID string
	CardNumber   string
	CardAmount   string
	Method       string
	Country      string
}

// IdentityService validates identity submissions and stores them in the checkout session
type IdentityService struct {
	methods        *config.MethodConfig
	defaultCountry string
}

// NewIdentityService creates an identity service
func NewIdentityService(methods *config.MethodConfig, defaultCountry string) *IdentityService {
	return &IdentityService{
		methods:        methods,
		defaultCountry: strings.ToUpper(defaultCountry),
	}
}

// Submit validates sub and replaces the customer info held by cs. Nothing is
// written when validation fails.
func (s *IdentityService) Submit(cs *session.CheckoutSession, sub IdentitySubmission) error {
	const op = "identity"

	country := strings.ToUpper(strings.TrimSpace(sub.Country))
	if country == "" {
		country = s.defaultCountry
	}
	if !identity.SupportedCountry(country) {
		return newError(KindValidation, op, CountryMessage, fmt.Errorf("unsupported country %q", country))
	}

	if strings.TrimSpace(sub.Method) == "" {
		return newError(KindValidation, op, MissingMethod, fmt.Errorf("payment method is missing"))
	}
	method, err := s.methods.Get(sub.Method)
	if err != nil {
		return newError(KindValidation, op, MissingMethod, err)
	}
	if !method.Accepts(sub.IsCompany) {
		return newError(KindValidation, op, MissingMethod,
			fmt.Errorf("method %s does not accept company=%t", method.Code, sub.IsCompany))
	}

	govID := strings.TrimSpace(sub.GovID)
	if govID == "" {
		return newError(KindValidation, op, MissingIDMessage, fmt.Errorf("government id is missing"))
	}
	if !identity.ValidGovernmentID(govID, sub.IsCompany, country, false) {
		return newError(KindValidation, op, InvalidIDMessage, fmt.Errorf("invalid government id %s", identity.Mask(govID)))
	}

	contactID := ""
	if sub.IsCompany {
		contactID = strings.TrimSpace(sub.ContactGovID)
		if !identity.ValidGovernmentID(contactID, false, country, false) {
			return newError(KindValidation, op, InvalidContactMessage, fmt.Errorf("invalid contact government id %s", identity.Mask(contactID)))
		}
	}

	cardNumber := strings.TrimSpace(sub.CardNumber)
	if !identity.ValidCardNumber(cardNumber, !method.RequiresCardNumber()) {
		return newError(KindValidation, op, InvalidCardMessage, fmt.Errorf("invalid card number %s", identity.Mask(cardNumber)))
	}

	var amount *decimal.Decimal
	if raw := strings.TrimSpace(sub.CardAmount); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil || !parsed.IsPositive() {
			return newError(KindValidation, op, InvalidAmountMessage, fmt.Errorf("invalid card amount %q", raw))
		}
		amount = &parsed
	}

	if err := s.store(cs, govID, contactID, sub.IsCompany, method, cardNumber, amount); err != nil {
		err = newError(KindData, op, SessionMessage, err)
		logger.Error("Failed to store identity", err, logger.LogContext{SessionID: cs.ID()})
		return err
	}

	logger.Debug("Identity stored", logger.LogContext{
		SessionID: cs.ID(),
		Fields: map[string]any{
			"gov_id":     identity.Mask(govID),
			"is_company": sub.IsCompany,
			"method":     method.Code,
			"country":    country,
		},
	})
	return nil
}

// store replaces the customer info in one session write, so a failing store
// leaves the previous identity in place
func (s *IdentityService) store(cs *session.CheckoutSession, govID, contactID string, isCompany bool, method config.PaymentMethod, cardNumber string, amount *decimal.Decimal) error {
	id := session.Identity{
		GovernmentID:        govID,
		ContactGovernmentID: contactID,
		IsCompany:           isCompany,
	}
	if method.CardData() {
		id.CardNumber = cardNumber
		id.CardAmount = amount
	}
	return cs.ReplaceCustomerInfo(id)
}
