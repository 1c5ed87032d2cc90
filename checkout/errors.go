package checkout

import (
	"errors"
	"fmt"
)

// Kind classifies checkout failures
type Kind string

const (
	// KindValidation means the customer supplied invalid data
	KindValidation Kind = "validation"
	// KindData means host data (order, quote, session) is missing or inconsistent
	KindData Kind = "data"
	// KindProvider means the payment provider failed or refused
	KindProvider Kind = "provider"
	// KindReconcile means a signed payment could not be completed
	KindReconcile Kind = "reconcile"
)

// Customer facing messages
const (
	GenericMessage    = "Something went wrong while processing your payment. Please try again or contact the store."
	DeniedMessage     = "Your payment was not approved. Please choose another payment method."
	AddressMessage    = "We could not find an address for the given identification number."
	MissingIDMessage  = "Please enter your social security number or organization number."
	MissingMethod     = "Please choose a payment method."
	OrderMessage      = "We could not find your order. Please contact the store."
	SessionMessage    = "Your checkout session has expired. Please start again."
	FinalizingMessage = "Your payment was signed but could not be completed. Please contact the store."

	InvalidIDMessage      = "The social security number or organization number is not valid."
	InvalidContactMessage = "Please enter a valid social security number for the contact person."
	InvalidCardMessage    = "The card number is not valid."
	InvalidAmountMessage  = "The card amount must be a positive number."
	CountryMessage        = "Payments are not available for the selected country."
)

// Error is a checkout failure. Message is safe to show to the customer,
// Err keeps the detail for logs.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CustomerMessage returns the text that may be shown to the customer
func (e *Error) CustomerMessage() string {
	return e.Message
}

func newError(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// KindOf returns the kind of a checkout error, or "" for other errors
func KindOf(err error) Kind {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return ""
}

// CustomerMessage returns a customer safe message for any error
func CustomerMessage(err error) string {
	var cerr *Error
	if errors.As(err, &cerr) && cerr.Message != "" {
		return cerr.Message
	}
	return GenericMessage
}
