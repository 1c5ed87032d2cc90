// Package identity validates customer identifiers (government ids, organization
// numbers, phone numbers and card numbers) using per-country format rules.
//
// All functions are pure. The same rule table is exported through Rules so the
// storefront can run identical pre-submit checks; those checks are advisory and
// the functions in this package remain authoritative.
package identity

import (
	"regexp"
	"sort"
	"strings"
)

// Kind identifies which identifier a rule applies to
type Kind string

const (
	KindSSN          Kind = "ssn"
	KindOrganization Kind = "organization"
	KindPhone        Kind = "phone"
	KindCard         Kind = "card"
)

// Rule describes one format rule. Country is empty for country independent rules.
type Rule struct {
	Country string `json:"country,omitempty"`
	Kind    Kind   `json:"kind"`
	Pattern string `json:"pattern"`
}

type countryRules struct {
	ssn   *regexp.Regexp
	org   *regexp.Regexp
	phone *regexp.Regexp
}

var cardPattern = regexp.MustCompile(`^[1-9][0-9]{3} ?[0-9]{4} ?[0-9]{4} ?[0-9]{4}$`)

var rules = map[string]countryRules{
	"SE": {
		ssn:   regexp.MustCompile(`^(18\d{2}|19\d{2}|20\d{2}|\d{2})(0[1-9]|1[0-2])(0[1-9]|[12][0-9]|3[01])[-+]?\d{4}$`),
		org:   regexp.MustCompile(`^(16\d{2}|18\d{2}|19\d{2}|20\d{2}|\d{2})\d{2}\d{2}[-+]?\d{4}$`),
		phone: regexp.MustCompile(`^(0|\+46|0046)[ -]?(200|20|70|73|76|74|[1-9][0-9]{0,2})([ -]?[0-9]){5,8}$`),
	},
	"NO": {
		ssn:   regexp.MustCompile(`^(0[1-9]|[12][0-9]|3[01])(0[1-9]|1[0-2])\d{2}-?\d{5}$`),
		org:   regexp.MustCompile(`^[89]([ -]?[0-9]){8}$`),
		phone: regexp.MustCompile(`^(\+47|0047)?[ -]?[2-9]([ -]?[0-9]){7}$`),
	},
	"FI": {
		ssn:   regexp.MustCompile(`^\d{6}[-+A]\d{3}[0-9ABCDEFHJKLMNPRSTUVWXY]$`),
		org:   regexp.MustCompile(`^\d{7}-?\d$`),
		phone: regexp.MustCompile(`^(\+358|00358|0)[- ]?(1[1-9]|[2-9]|10[1-9]|20[1-9]|29|30[1-9]|4[0-9]{1,3}|50[0-9]{0,2}|71|73|75[0-9]{2,3})([- ]?[0-9]){3,10}$`),
	},
	// Denmark exposes no organization number rule.
	"DK": {
		ssn:   regexp.MustCompile(`^(3[01]|[12][0-9]|0[1-9])(1[0-2]|0[1-9])\d{2}-?\d{4}$`),
		phone: regexp.MustCompile(`^(\+45|0045)?[ -]?[2-9]([ -]?[0-9]){7}$`),
	},
}

func lookup(country string) (countryRules, bool) {
	r, ok := rules[strings.ToUpper(strings.TrimSpace(country))]
	return r, ok
}

// SupportedCountry reports whether any rule exists for the given ISO country code
func SupportedCountry(country string) bool {
	_, ok := lookup(country)
	return ok
}

// ValidGovernmentID validates a social security number (isCompany false) or an
// organization number (isCompany true) for country. Unsupported countries and
// countries without a rule for the requested type never validate.
func ValidGovernmentID(id string, isCompany bool, country string, allowEmpty bool) bool {
	if allowEmpty && id == "" {
		return true
	}

	r, ok := lookup(country)
	if !ok {
		return false
	}

	pattern := r.ssn
	if isCompany {
		pattern = r.org
	}
	if pattern == nil {
		return false
	}

	return pattern.MatchString(id)
}

// ValidCardNumber validates a 16 digit card number, optionally grouped in four
// blocks separated by single spaces.
func ValidCardNumber(number string, allowEmpty bool) bool {
	if allowEmpty && number == "" {
		return true
	}
	return cardPattern.MatchString(number)
}

// ValidPhone validates a phone number for country
func ValidPhone(phone, country string, allowEmpty bool) bool {
	if allowEmpty && phone == "" {
		return true
	}

	r, ok := lookup(country)
	if !ok || r.phone == nil {
		return false
	}

	return r.phone.MatchString(phone)
}

// Rules returns the complete rule table sorted by country and kind
func Rules() []Rule {
	out := []Rule{{Kind: KindCard, Pattern: cardPattern.String()}}

	for country, r := range rules {
		if r.ssn != nil {
			out = append(out, Rule{Country: country, Kind: KindSSN, Pattern: r.ssn.String()})
		}
		if r.org != nil {
			out = append(out, Rule{Country: country, Kind: KindOrganization, Pattern: r.org.String()})
		}
		if r.phone != nil {
			out = append(out, Rule{Country: country, Kind: KindPhone, Pattern: r.phone.String()})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Country != out[j].Country {
			return out[i].Country < out[j].Country
		}
		return out[i].Kind < out[j].Kind
	})

	return out
}

// Mask hides all but the last four characters of an identifier for logging
func Mask(value string) string {
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}
