package opensearch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_LogCheckoutEvent(t *testing.T) {
	client, cluster := newTestClient(t, true)
	logger := NewLogger(client)

	err := logger.LogCheckoutEvent(context.Background(), CheckoutEvent{
		Operation: "authorize",
		Outcome:   "REDIRECT_FOR_SIGNING",
		OrderID:   "42",
		QuoteID:   "7",
		PaymentID: "pay-1",
	})
	require.NoError(t, err)

	docs := cluster.docs(CheckoutEventIndex)
	require.Len(t, docs, 1)

	var stored CheckoutEvent
	require.NoError(t, json.Unmarshal(docs[0], &stored))
	assert.NotEmpty(t, stored.EventID, "event id is generated")
	assert.False(t, stored.Timestamp.IsZero(), "timestamp is set")
	assert.Equal(t, "REDIRECT_FOR_SIGNING", stored.Outcome)
	assert.Equal(t, "7", stored.QuoteID)
}

func TestLogger_LogCheckoutEvent_RetryOverwrites(t *testing.T) {
	client, cluster := newTestClient(t, true)
	logger := NewLogger(client)

	event := CheckoutEvent{EventID: "evt-1", Operation: "reconcile", Outcome: "FAILED", QuoteID: "7"}
	require.NoError(t, logger.LogCheckoutEvent(context.Background(), event))

	event.Outcome = "FINALIZED"
	require.NoError(t, logger.LogCheckoutEvent(context.Background(), event))

	docs := cluster.docs(CheckoutEventIndex)
	require.Len(t, docs, 1)

	var stored CheckoutEvent
	require.NoError(t, json.Unmarshal(docs[0], &stored))
	assert.Equal(t, "FINALIZED", stored.Outcome)
}

func TestLogger_DisabledLogging(t *testing.T) {
	client, cluster := newTestClient(t, false)
	logger := NewLogger(client)

	assert.NoError(t, logger.LogCheckoutEvent(context.Background(), CheckoutEvent{Operation: "authorize"}))
	assert.NoError(t, logger.LogSystemEvent(context.Background(), map[string]string{"message": "hi"}))
	assert.Empty(t, cluster.docs(CheckoutEventIndex))
	assert.Empty(t, cluster.docs(SystemLogIndex))

	_, err := logger.GetQuoteEvents(context.Background(), "7")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestLogger_LogSystemEvent(t *testing.T) {
	client, cluster := newTestClient(t, true)
	logger := NewLogger(client)

	require.NoError(t, logger.LogSystemEvent(context.Background(), map[string]string{"message": "started"}))
	assert.Len(t, cluster.docs(SystemLogIndex), 1)
}

func TestLogger_GetQuoteEvents(t *testing.T) {
	client, cluster := newTestClient(t, true)
	cluster.searchHit = []CheckoutEvent{
		{EventID: "e2", Operation: "reconcile", QuoteID: "7"},
		{EventID: "e1", Operation: "authorize", QuoteID: "7"},
	}
	logger := NewLogger(client)

	events, err := logger.GetQuoteEvents(context.Background(), "7")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "reconcile", events[0].Operation)
	assert.Equal(t, "authorize", events[1].Operation)

	query, _ := json.Marshal(cluster.lastQuery)
	assert.JSONEq(t, `{
		"query": {"term": {"quote_id": "7"}},
		"sort": [{"timestamp": {"order": "asc"}}],
		"size": 100
	}`, string(query))
}

func TestSanitizeForLog(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		shouldRedact bool
	}{
		{"card number", `{"card_number": "9000 0000 0001 0000"}`, true},
		{"government id", `{"governmentId":"198001010001"}`, true},
		{"contact government id", `{"contact_gov_id": "198001010001"}`, true},
		{"query parameter", `gov_id=198001010001&is_company=false`, true},
		{"password", `{"password": "secret"}`, true},
		{"no sensitive data", `{"amount": 100, "currency": "SEK"}`, false},
		{"empty input", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeForLog(tt.input)

			if tt.shouldRedact {
				assert.Contains(t, result, "***REDACTED***")
				assert.NotContains(t, result, "198001010001")
				assert.NotContains(t, result, "9000 0000 0001 0000")
			} else {
				assert.Equal(t, tt.input, result)
			}
		})
	}
}

func TestSanitizeForLog_KeepsOtherQueryParameters(t *testing.T) {
	result := SanitizeForLog("gov_id=198001010001&is_company=false")
	assert.Equal(t, "gov_id=***REDACTED***&is_company=false", result)
}
