package session

import (
	"strconv"

	"github.com/mstgnz/signpay/infra/logger"
	"github.com/shopspring/decimal"
)

// Keys stored by CheckoutSession, before prefixing
const (
	KeyGovernmentID        = "government_id"
	KeyContactGovernmentID = "contact_government_id"
	KeyIsCompany           = "is_company"
	KeyCardNumber          = "card_number"
	KeyCardAmount          = "card_amount"
	KeySigningURL          = "signing_url"
	KeyPaymentID           = "payment_id"
	KeyFailureReturnURL    = "failure_return_url"
)

var (
	customerKeys = []string{KeyGovernmentID, KeyContactGovernmentID, KeyIsCompany, KeyCardNumber, KeyCardAmount}
	paymentKeys  = []string{KeySigningURL, KeyPaymentID, KeyFailureReturnURL}
)

// Identity is a read-only snapshot of the customer data held in the session
type Identity struct {
	GovernmentID        string
	ContactGovernmentID string
	IsCompany           bool
	CardNumber          string
	CardAmount          *decimal.Decimal
}

// CheckoutSession is the state of one checkout attempt for one customer.
// Every mutation is written to the store immediately.
type CheckoutSession struct {
	store  Store
	id     string
	prefix string
}

// New returns the checkout session identified by sessionID
func New(store Store, sessionID, prefix string) *CheckoutSession {
	return &CheckoutSession{
		store:  store,
		id:     sessionID,
		prefix: prefix,
	}
}

// ID returns the session id
func (s *CheckoutSession) ID() string {
	return s.id
}

// Key returns the namespaced store key for name
func (s *CheckoutSession) Key(name string) string {
	return s.prefix + name
}

func (s *CheckoutSession) set(name, value string) error {
	return s.store.Set(s.id, s.Key(name), value)
}

func (s *CheckoutSession) get(name string) (string, bool) {
	value, ok, err := s.store.Get(s.id, s.Key(name))
	if err != nil {
		logger.Warn("Failed to read checkout session value", logger.LogContext{
			SessionID: s.id,
			Fields:    map[string]any{"key": name, "error": err.Error()},
		})
		return "", false
	}
	return value, ok
}

func (s *CheckoutSession) unset(names ...string) error {
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = s.Key(name)
	}
	return s.store.Delete(s.id, keys...)
}

func (s *CheckoutSession) SetGovernmentID(id string) error {
	return s.set(KeyGovernmentID, id)
}

func (s *CheckoutSession) GovernmentID() (string, bool) {
	return s.get(KeyGovernmentID)
}

func (s *CheckoutSession) UnsetGovernmentID() error {
	return s.unset(KeyGovernmentID)
}

// SetContactGovernmentID stores the natural-person id of a company's contact
func (s *CheckoutSession) SetContactGovernmentID(id string) error {
	return s.set(KeyContactGovernmentID, id)
}

func (s *CheckoutSession) ContactGovernmentID() (string, bool) {
	return s.get(KeyContactGovernmentID)
}

func (s *CheckoutSession) UnsetContactGovernmentID() error {
	return s.unset(KeyContactGovernmentID)
}

// SetIsCompany stores the customer type. Switching to a natural person drops
// any contact government id.
func (s *CheckoutSession) SetIsCompany(isCompany bool) error {
	if err := s.set(KeyIsCompany, strconv.FormatBool(isCompany)); err != nil {
		return err
	}
	if !isCompany {
		return s.UnsetContactGovernmentID()
	}
	return nil
}

// IsCompany reports the stored customer type; absent means natural person
func (s *CheckoutSession) IsCompany() bool {
	value, ok := s.get(KeyIsCompany)
	if !ok {
		return false
	}
	isCompany, err := strconv.ParseBool(value)
	return err == nil && isCompany
}

func (s *CheckoutSession) UnsetIsCompany() error {
	return s.unset(KeyIsCompany)
}

func (s *CheckoutSession) SetCardNumber(number string) error {
	return s.set(KeyCardNumber, number)
}

func (s *CheckoutSession) CardNumber() (string, bool) {
	return s.get(KeyCardNumber)
}

func (s *CheckoutSession) UnsetCardNumber() error {
	return s.unset(KeyCardNumber)
}

func (s *CheckoutSession) SetCardAmount(amount decimal.Decimal) error {
	return s.set(KeyCardAmount, amount.String())
}

// CardAmount returns the stored card amount; unparsable values count as absent
func (s *CheckoutSession) CardAmount() (decimal.Decimal, bool) {
	value, ok := s.get(KeyCardAmount)
	if !ok {
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}

func (s *CheckoutSession) UnsetCardAmount() error {
	return s.unset(KeyCardAmount)
}

func (s *CheckoutSession) SetPaymentSigningURL(url string) error {
	return s.set(KeySigningURL, url)
}

func (s *CheckoutSession) PaymentSigningURL() (string, bool) {
	return s.get(KeySigningURL)
}

func (s *CheckoutSession) UnsetPaymentSigningURL() error {
	return s.unset(KeySigningURL)
}

func (s *CheckoutSession) SetPaymentID(id string) error {
	return s.set(KeyPaymentID, id)
}

func (s *CheckoutSession) PaymentID() (string, bool) {
	return s.get(KeyPaymentID)
}

func (s *CheckoutSession) UnsetPaymentID() error {
	return s.unset(KeyPaymentID)
}

// SetFailureReturnURL stores where the customer goes back to when signing fails
func (s *CheckoutSession) SetFailureReturnURL(url string) error {
	return s.set(KeyFailureReturnURL, url)
}

func (s *CheckoutSession) FailureReturnURL() (string, bool) {
	return s.get(KeyFailureReturnURL)
}

func (s *CheckoutSession) UnsetFailureReturnURL() error {
	return s.unset(KeyFailureReturnURL)
}

// SetPaymentSession stores the signing url and payment id of an opened
// payment session. An empty signing url is removed rather than stored.
func (s *CheckoutSession) SetPaymentSession(signingURL, paymentID string) error {
	if err := s.SetPaymentID(paymentID); err != nil {
		return err
	}
	if signingURL == "" {
		return s.UnsetPaymentSigningURL()
	}
	return s.SetPaymentSigningURL(signingURL)
}

// Identity returns the customer data currently held by the session
func (s *CheckoutSession) Identity() Identity {
	id := Identity{IsCompany: s.IsCompany()}
	id.GovernmentID, _ = s.GovernmentID()
	if id.IsCompany {
		id.ContactGovernmentID, _ = s.ContactGovernmentID()
	}
	id.CardNumber, _ = s.CardNumber()
	if amount, ok := s.CardAmount(); ok {
		id.CardAmount = &amount
	}
	return id
}

// ReplaceCustomerInfo swaps the stored customer info for id in a single store
// write. Fields id leaves empty are removed, and the contact id is only kept
// for companies.
func (s *CheckoutSession) ReplaceCustomerInfo(id Identity) error {
	values := map[string]string{
		s.Key(KeyGovernmentID): id.GovernmentID,
		s.Key(KeyIsCompany):    strconv.FormatBool(id.IsCompany),
	}
	if id.IsCompany && id.ContactGovernmentID != "" {
		values[s.Key(KeyContactGovernmentID)] = id.ContactGovernmentID
	}
	if id.CardNumber != "" {
		values[s.Key(KeyCardNumber)] = id.CardNumber
	}
	if id.CardAmount != nil {
		values[s.Key(KeyCardAmount)] = id.CardAmount.String()
	}

	var remove []string
	for _, name := range customerKeys {
		if _, ok := values[s.Key(name)]; !ok {
			remove = append(remove, s.Key(name))
		}
	}
	return s.store.Replace(s.id, values, remove)
}

// UnsetCustomerInfo removes identity and card data
func (s *CheckoutSession) UnsetCustomerInfo() error {
	return s.unset(customerKeys...)
}

// UnsetPaymentInfo removes the payment session data and failure anchor
func (s *CheckoutSession) UnsetPaymentInfo() error {
	return s.unset(paymentKeys...)
}

// UnsetAll removes every key this session owns. Safe to call repeatedly.
func (s *CheckoutSession) UnsetAll() error {
	if err := s.UnsetCustomerInfo(); err != nil {
		return err
	}
	return s.UnsetPaymentInfo()
}
