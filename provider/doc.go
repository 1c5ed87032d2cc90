// Package provider defines the contract between the checkout and a payment
// provider that authorizes payments through a customer signing step.
//
// # Core Concepts
//
//   - SessionClient: the interface every provider implements
//   - SessionRequest: the payment session as assembled from an order
//   - PaymentSessionResult: the provider's decision, with its PaymentStatus
//   - ProviderRegistry: provider registration and discovery
//
// # Payment Statuses
//
// A payment session answers with one of:
//
//   - DENIED: the payment was refused
//   - SIGNING: the customer must sign at SigningURL
//   - FROZEN: accepted, held for manual fraud review
//   - BOOKED: accepted, waiting to be finalized
//   - FINALIZED: accepted and completed
//
// Any other value is rejected by ParseStatus.
//
// # Basic Usage
//
//	client, err := provider.InitializeProvider("resurs", map[string]string{
//	    "baseURL":     "https://provider.example.com",
//	    "username":    "merchant",
//	    "password":    "secret",
//	    "environment": "production",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := client.OpenSession(ctx, request)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if result.Status == provider.StatusSigning {
//	    // redirect the customer to result.SigningURL
//	}
//
// # Provider Registration
//
// Providers register themselves from an init function:
//
//	import _ "github.com/mstgnz/signpay/provider/resurs" // Auto-registers resurs
//
// Or manually:
//
//	provider.Register("myprovider", func() provider.SessionClient {
//	    return &MyProvider{}
//	})
//
// GetRequiredConfig describes the settings a provider needs and
// ValidateConfigFields checks a configuration map against it.
//
// # Error Handling
//
// Transport and HTTP failures are returned as *Error values carrying the
// provider's error code and the HTTP status. ErrorForStatus maps common
// status codes to sentinel errors that can be matched with errors.Is.
//
// # HTTP Client
//
// ProviderHTTPClient sends JSON requests with basic auth, a per request
// timeout and keep-alive connection reuse. Providers build on it instead of
// using net/http directly.
package provider
