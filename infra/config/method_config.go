package config

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Payment method types understood by the checkout
const (
	MethodInvoice         = "INVOICE"
	MethodCard            = "CARD"
	MethodNewCard         = "NEW_CARD"
	MethodRevolvingCredit = "REVOLVING_CREDIT"
	MethodPartPayment     = "PART_PAYMENT"
)

// Customer types a method can be restricted to
const (
	CustomerNatural = "NATURAL"
	CustomerLegal   = "LEGAL"
)

const defaultMethods = "signpay_invoice:INVOICE," +
	"signpay_b2b_invoice:INVOICE:LEGAL," +
	"signpay_partpayment:PART_PAYMENT:NATURAL," +
	"signpay_revolving:REVOLVING_CREDIT:NATURAL," +
	"signpay_card:CARD:NATURAL," +
	"signpay_newcard:NEW_CARD:NATURAL"

// PaymentMethod describes one checkout payment method
type PaymentMethod struct {
	Code         string `json:"code"`
	Type         string `json:"type"`
	CustomerType string `json:"customerType,omitempty"` // empty accepts both
}

// CardData reports whether card number/amount are sent with the payment session
func (m PaymentMethod) CardData() bool {
	return m.Type == MethodCard || m.Type == MethodNewCard
}

// RequiresCardNumber reports whether the customer must submit an existing card number
func (m PaymentMethod) RequiresCardNumber() bool {
	return m.Type == MethodCard
}

// Accepts reports whether the method can be used by a company (true) or a person (false)
func (m PaymentMethod) Accepts(isCompany bool) bool {
	switch m.CustomerType {
	case CustomerLegal:
		return isCompany
	case CustomerNatural:
		return !isCompany
	default:
		return true
	}
}

// MethodConfig manages the payment methods available to the checkout
type MethodConfig struct {
	methods map[string]PaymentMethod
	mu      sync.RWMutex
}

// NewMethodConfig creates an empty method catalog
func NewMethodConfig() *MethodConfig {
	return &MethodConfig{
		methods: make(map[string]PaymentMethod),
	}
}

// LoadFromEnv loads methods from PAYMENT_METHODS ("code:TYPE[:CUSTOMER_TYPE],...")
func (c *MethodConfig) LoadFromEnv() error {
	return c.Parse(GetEnv("PAYMENT_METHODS", defaultMethods))
}

// Parse adds every method of a PAYMENT_METHODS formatted definition
func (c *MethodConfig) Parse(definition string) error {
	for _, item := range strings.Split(definition, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		parts := strings.Split(item, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return fmt.Errorf("invalid payment method definition %q", item)
		}

		method := PaymentMethod{
			Code: strings.TrimSpace(parts[0]),
			Type: strings.ToUpper(strings.TrimSpace(parts[1])),
		}
		if len(parts) == 3 {
			method.CustomerType = strings.ToUpper(strings.TrimSpace(parts[2]))
		}

		if err := c.Set(method); err != nil {
			return err
		}
	}
	return nil
}

// Set registers or replaces a method
func (c *MethodConfig) Set(method PaymentMethod) error {
	if method.Code == "" {
		return fmt.Errorf("method code cannot be empty")
	}

	switch method.Type {
	case MethodInvoice, MethodCard, MethodNewCard, MethodRevolvingCredit, MethodPartPayment:
	default:
		return fmt.Errorf("method %s: unknown type %q", method.Code, method.Type)
	}

	switch method.CustomerType {
	case "", CustomerNatural, CustomerLegal:
	default:
		return fmt.Errorf("method %s: unknown customer type %q", method.Code, method.CustomerType)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.methods[method.Code] = method
	return nil
}

// Get returns the method registered under code
func (c *MethodConfig) Get(code string) (PaymentMethod, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	method, exists := c.methods[code]
	if !exists {
		return PaymentMethod{}, fmt.Errorf("payment method '%s' is not configured", code)
	}
	return method, nil
}

// GetAvailableMethods returns all configured methods sorted by code
func (c *MethodConfig) GetAvailableMethods() []PaymentMethod {
	c.mu.RLock()
	defer c.mu.RUnlock()

	methods := make([]PaymentMethod, 0, len(c.methods))
	for _, method := range c.methods {
		methods = append(methods, method)
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i].Code < methods[j].Code })
	return methods
}
