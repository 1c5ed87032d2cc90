package resurs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mstgnz/signpay/infra/logger"
	"github.com/mstgnz/signpay/provider"
	"github.com/shopspring/decimal"
)

const (
	// API URLs
	apiSandboxURL    = "https://merchant-api.integration.resurs.com"
	apiProductionURL = "https://merchant-api.resurs.com"

	// API Endpoints
	endpointPayments = "/checkout/payments"
	endpointFinalize = "/checkout/payments/%s/finalize" // %s is the url escaped order reference
	endpointAddress  = "/customers/address"

	providerName = "resurs"
)

// ResursProvider implements provider.SessionClient for a signing credit provider
// speaking JSON over HTTPS with basic authentication
type ResursProvider struct {
	username     string
	password     string
	baseURL      string
	isProduction bool
	httpClient   *provider.ProviderHTTPClient
}

// NewProvider creates a new, uninitialized client
func NewProvider() provider.SessionClient {
	return &ResursProvider{}
}

// GetRequiredConfig returns the configuration fields required for the client
func (p *ResursProvider) GetRequiredConfig(environment string) []provider.ConfigField {
	example := apiSandboxURL
	if environment == "production" {
		example = apiProductionURL
	}

	return []provider.ConfigField{
		{
			Key:         "username",
			Required:    true,
			Type:        "string",
			Description: "Merchant API username",
			Example:     "webshop_user",
			MinLength:   3,
		},
		{
			Key:         "password",
			Required:    true,
			Type:        "string",
			Description: "Merchant API password",
			Example:     "s3cr3t",
			MinLength:   3,
		},
		{
			Key:         "baseURL",
			Required:    false,
			Type:        "url",
			Description: "API base URL, derived from environment when empty",
			Example:     example,
		},
		{
			Key:         "timeout",
			Required:    false,
			Type:        "number",
			Description: "Request timeout in seconds",
			Example:     "30",
		},
	}
}

// ValidateConfig validates the provided configuration
func (p *ResursProvider) ValidateConfig(config map[string]string) error {
	return provider.ValidateConfigFields(providerName, config, p.GetRequiredConfig(config["environment"]))
}

// Initialize sets up credentials and the HTTP client
func (p *ResursProvider) Initialize(conf map[string]string) error {
	p.username = conf["username"]
	p.password = conf["password"]

	if p.username == "" || p.password == "" {
		return errors.New("resurs: username and password are required")
	}

	p.isProduction = conf["environment"] == "production"
	p.baseURL = strings.TrimRight(conf["baseURL"], "/")
	if p.baseURL == "" {
		p.baseURL = apiSandboxURL
		if p.isProduction {
			p.baseURL = apiProductionURL
		}
	}

	timeout := 30 * time.Second
	if seconds, err := strconv.Atoi(conf["timeout"]); err == nil && seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}

	httpConfig := provider.CreateHTTPClientConfig(p.baseURL, p.isProduction, timeout)
	httpConfig.Username = p.username
	httpConfig.Password = p.password
	p.httpClient = provider.NewProviderHTTPClient(httpConfig)

	return nil
}

// OpenSession registers the payment and returns the provider's initial decision
func (p *ResursProvider) OpenSession(ctx context.Context, request provider.SessionRequest) (*provider.PaymentSessionResult, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	if err := validateSessionRequest(request); err != nil {
		return nil, err
	}

	resp, err := p.httpClient.SendJSON(ctx, &provider.HTTPRequest{
		Method:   http.MethodPost,
		Endpoint: endpointPayments,
		Body:     toWirePayment(request),
	})
	if err != nil {
		return nil, p.mapError(resp, err)
	}

	return p.decodePaymentResult(resp)
}

// Finalize completes a signed payment identified by the merchant order reference
func (p *ResursProvider) Finalize(ctx context.Context, orderRef string) (*provider.PaymentSessionResult, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(orderRef) == "" {
		return nil, provider.NewError("invalid_request", "order reference is required", 0, provider.ErrInvalidRequest)
	}

	resp, err := p.httpClient.SendJSON(ctx, &provider.HTTPRequest{
		Method:   http.MethodPost,
		Endpoint: fmt.Sprintf(endpointFinalize, url.PathEscape(orderRef)),
	})
	if err != nil {
		return nil, p.mapError(resp, err)
	}

	return p.decodePaymentResult(resp)
}

// FetchAddress looks up the registered address of a person or company
func (p *ResursProvider) FetchAddress(ctx context.Context, governmentID string, customerType provider.CustomerType) (*provider.ResolvedAddress, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(governmentID) == "" {
		return nil, provider.NewError("invalid_request", "government id is required", 0, provider.ErrInvalidRequest)
	}

	resp, err := p.httpClient.SendJSON(ctx, &provider.HTTPRequest{
		Method:   http.MethodGet,
		Endpoint: endpointAddress,
		QueryParams: map[string]string{
			"governmentId": governmentID,
			"customerType": string(customerType),
		},
	})
	if err != nil {
		return nil, p.mapError(resp, err)
	}

	var raw wireAddress
	if err := p.httpClient.ParseJSONResponse(resp, &raw); err != nil {
		return nil, err
	}

	address := raw.normalize()
	return &address, nil
}

func (p *ResursProvider) ready() error {
	if p.httpClient == nil {
		return errors.New("resurs: client is not initialized")
	}
	return nil
}

func (p *ResursProvider) decodePaymentResult(resp *provider.HTTPResponse) (*provider.PaymentSessionResult, error) {
	var raw wirePaymentResult
	if err := p.httpClient.ParseJSONResponse(resp, &raw); err != nil {
		return nil, err
	}

	result, err := raw.normalize()
	if err != nil {
		return nil, provider.NewError("malformed_response", err.Error(), resp.StatusCode, provider.ErrMalformedResponse)
	}

	logger.Debug("Payment session result", logger.LogContext{
		Provider: providerName,
		Fields:   map[string]any{"payment_id": result.PaymentID, "status": string(result.Status)},
	})

	return result, nil
}

// mapError replaces the generic HTTP error with the provider's own error code
// when the response body carries one
func (p *ResursProvider) mapError(resp *provider.HTTPResponse, err error) error {
	var perr *provider.Error
	if resp == nil || !errors.As(err, &perr) {
		return err
	}

	var body wireError
	if json.Unmarshal(resp.Body, &body) != nil || body.ErrorCode == "" {
		return err
	}

	return provider.NewError(body.ErrorCode, body.Description, resp.StatusCode, provider.ErrorForStatus(resp.StatusCode))
}

func validateSessionRequest(request provider.SessionRequest) error {
	var missing []string
	if request.PaymentMethodID == "" {
		missing = append(missing, "paymentMethodId")
	}
	if request.PreferredID == "" {
		missing = append(missing, "preferredId")
	}
	if request.Customer.GovernmentID == "" {
		missing = append(missing, "customer.governmentId")
	}
	if len(request.OrderLines) == 0 {
		missing = append(missing, "orderLines")
	}
	if request.SuccessURL == "" || request.FailureURL == "" {
		missing = append(missing, "signing urls")
	}

	if len(missing) > 0 {
		return provider.NewError("invalid_request", "missing "+strings.Join(missing, ", "), 0, provider.ErrInvalidRequest)
	}
	return nil
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
