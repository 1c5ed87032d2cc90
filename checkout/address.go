package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/mstgnz/signpay/identity"
	"github.com/mstgnz/signpay/infra/logger"
	"github.com/mstgnz/signpay/provider"
)

// AddressService looks up registered addresses at the provider
type AddressService struct {
	client         provider.SessionClient
	defaultCountry string
}

// NewAddressService creates an address service
func NewAddressService(client provider.SessionClient, defaultCountry string) *AddressService {
	return &AddressService{
		client:         client,
		defaultCountry: strings.ToUpper(defaultCountry),
	}
}

// Lookup returns the address registered for govID
func (s *AddressService) Lookup(ctx context.Context, govID string, isCompany bool, country string) (*provider.ResolvedAddress, error) {
	const op = "address"

	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" {
		country = s.defaultCountry
	}
	govID = strings.TrimSpace(govID)

	if govID == "" {
		return nil, newError(KindValidation, op, MissingIDMessage, fmt.Errorf("government id is missing"))
	}
	if !identity.ValidGovernmentID(govID, isCompany, country, false) {
		return nil, newError(KindValidation, op, InvalidIDMessage, fmt.Errorf("invalid government id %s for %s", identity.Mask(govID), country))
	}

	address, err := s.client.FetchAddress(ctx, govID, provider.CustomerTypeFor(isCompany))
	if err != nil {
		err = newError(KindProvider, op, AddressMessage, err)
		logger.Warn("Address lookup failed", logger.LogContext{
			Fields: map[string]any{"gov_id": identity.Mask(govID), "error": err.Error()},
		})
		return nil, err
	}
	return address, nil
}
