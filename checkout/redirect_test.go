package checkout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedirector_Resolve(t *testing.T) {
	tests := []struct {
		name       string
		signingURL string
		referrer   string
		expected   string
		anchor     string
	}{
		{"signing url present", "https://provider.example.com/sign/abc", testBaseURL + "/checkout", "https://provider.example.com/sign/abc", testBaseURL + "/checkout"},
		{"no signing url", "", testBaseURL + "/checkout", testBaseURL + SuccessPath, testBaseURL + "/checkout"},
		{"no referrer", "https://provider.example.com/sign/abc", "", "https://provider.example.com/sign/abc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.signingURL != "" {
				require.NoError(t, f.cs.SetPaymentSession(tt.signingURL, "pay-1"))
			}

			target, err := NewRedirector(testBaseURL+"/").Resolve(f.cs, tt.referrer)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, target)

			anchor, _ := f.cs.FailureReturnURL()
			assert.Equal(t, tt.anchor, anchor)
		})
	}
}

func TestRedirector_FailureTarget(t *testing.T) {
	f := newFixture(t)
	redirector := NewRedirector(testBaseURL)

	assert.Equal(t, testBaseURL+"/", redirector.FailureTarget(f.cs))

	require.NoError(t, f.cs.SetFailureReturnURL(testBaseURL+"/checkout#payment"))
	assert.Equal(t, testBaseURL+"/checkout#payment", redirector.FailureTarget(f.cs))
}

func TestFailureService_Handle(t *testing.T) {
	f := newFixture(t)
	f.signedSession(t)

	service := NewFailureService(f.store, f.store, NewRedirector(testBaseURL), f.events)
	target := service.Handle(context.Background(), "501", f.cs)

	assert.Equal(t, testBaseURL+"/checkout", target)

	order := f.order(t)
	assert.Equal(t, StateCanceled, order.State)
	assert.Equal(t, ReasonSigningFailed, order.CancelReason)
	assert.True(t, f.store.IsQuoteActive("501"))

	_, ok := f.cs.PaymentSigningURL()
	assert.False(t, ok)
	_, ok = f.cs.FailureReturnURL()
	assert.False(t, ok)
	_, ok = f.cs.GovernmentID()
	assert.True(t, ok, "identity is kept so the customer can retry")

	event := f.events.last()
	assert.Equal(t, "signing_failure", event.Operation)
	assert.Equal(t, "1001", event.OrderID)
}

func TestFailureService_UnknownQuote(t *testing.T) {
	f := newFixture(t)

	service := NewFailureService(f.store, f.store, NewRedirector(testBaseURL), nil)
	for _, quoteID := range []string{"", "0", "999"} {
		assert.Equal(t, testBaseURL+"/", service.Handle(context.Background(), quoteID, f.cs))
	}
	assert.Empty(t, f.order(t).CancelReason)
}
