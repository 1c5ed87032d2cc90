package checkout

import (
	"fmt"
	"strings"

	"github.com/mstgnz/signpay/infra/logger"
	"github.com/mstgnz/signpay/session"
)

// Redirector sends the customer to the provider's signing page
type Redirector struct {
	baseURL string
}

// NewRedirector creates a redirector for the shop at baseURL
func NewRedirector(baseURL string) *Redirector {
	return &Redirector{baseURL: strings.TrimRight(baseURL, "/")}
}

// Resolve returns where the customer should go next. The referrer is kept as
// the page to return to if signing fails.
func (r *Redirector) Resolve(cs *session.CheckoutSession, referrer string) (string, error) {
	if referrer != "" {
		if err := cs.SetFailureReturnURL(referrer); err != nil {
			err = newError(KindData, "redirect", SessionMessage, fmt.Errorf("store failure anchor: %w", err))
			logger.Error("Failed to resolve signing redirect", err, logger.LogContext{SessionID: cs.ID()})
			return "", err
		}
	}

	if signingURL, ok := cs.PaymentSigningURL(); ok && signingURL != "" {
		return signingURL, nil
	}
	return r.baseURL + SuccessPath, nil
}

// FailureTarget returns the stored failure anchor or the shop's checkout page
func (r *Redirector) FailureTarget(cs *session.CheckoutSession) string {
	if anchor, ok := cs.FailureReturnURL(); ok && anchor != "" {
		return anchor
	}
	return r.baseURL + "/"
}
