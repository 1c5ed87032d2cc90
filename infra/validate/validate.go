// Package validate registers the checkout specific tags on the shared validator
package validate

import (
	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/signpay/identity"
	"github.com/mstgnz/signpay/infra/config"
	"github.com/shopspring/decimal"
)

// CustomValidate registers custom tags on the application validator
func CustomValidate() {
	Register(config.App().Validator)
}

// Register adds the custom tags to v
//
//	cardnumber: card number in the format accepted by the provider
//	country:    ISO country code with identity rules
//	decimal:    positive decimal amount
func Register(v *validator.Validate) {
	_ = v.RegisterValidation("cardnumber", func(fl validator.FieldLevel) bool {
		return identity.ValidCardNumber(fl.Field().String(), false)
	})

	_ = v.RegisterValidation("country", func(fl validator.FieldLevel) bool {
		return identity.SupportedCountry(fl.Field().String())
	})

	_ = v.RegisterValidation("decimal", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsPositive()
	})
}
