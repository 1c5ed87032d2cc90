package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// CheckoutEvent is one decision taken during authorization or reconciliation
type CheckoutEvent struct {
	EventID        string         `json:"event_id"`
	Timestamp      time.Time      `json:"timestamp"`
	Operation      string         `json:"operation"`
	Outcome        string         `json:"outcome"`
	SessionID      string         `json:"session_id,omitempty"`
	OrderID        string         `json:"order_id,omitempty"`
	IncrementID    string         `json:"increment_id,omitempty"`
	QuoteID        string         `json:"quote_id,omitempty"`
	PaymentID      string         `json:"payment_id,omitempty"`
	PaymentStatus  string         `json:"payment_status,omitempty"`
	Provider       string         `json:"provider,omitempty"`
	ApprovedAmount string         `json:"approved_amount,omitempty"`
	Error          ErrorInfo      `json:"error,omitempty"`
	Fields         map[string]any `json:"fields,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrDisabled is returned by reads when OpenSearch logging is switched off
var ErrDisabled = errors.New("opensearch logging is disabled")

// quoteTimelineSize bounds the events returned for one quote
const quoteTimelineSize = 100

// Logger writes checkout events and system logs to OpenSearch
type Logger struct {
	client *Client
}

// NewLogger creates a new OpenSearch logger
func NewLogger(client *Client) *Logger {
	return &Logger{client: client}
}

// LogCheckoutEvent indexes a checkout event under its event id, so a retried
// request overwrites instead of duplicating it
func (l *Logger) LogCheckoutEvent(ctx context.Context, event CheckoutEvent) error {
	if !l.client.IsEnabled() {
		return nil
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}

	return l.index(ctx, CheckoutEventIndex, event.EventID, event)
}

// LogSystemEvent indexes a system log entry
func (l *Logger) LogSystemEvent(ctx context.Context, entry any) error {
	if !l.client.IsEnabled() {
		return nil
	}
	return l.index(ctx, SystemLogIndex, "", entry)
}

func (l *Logger) index(ctx context.Context, indexName, documentID string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	res, err := opensearchapi.IndexRequest{
		Index:      indexName,
		DocumentID: documentID,
		Body:       bytes.NewReader(body),
	}.Do(ctx, l.client.GetClient())
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch error: %s", res.String())
	}
	return nil
}

// SearchCheckoutEvents runs query against the checkout events, oldest first
func (l *Logger) SearchCheckoutEvents(ctx context.Context, query map[string]any, size int) ([]CheckoutEvent, error) {
	if !l.client.IsEnabled() {
		return nil, ErrDisabled
	}
	if size <= 0 {
		size = quoteTimelineSize
	}

	payload, err := json.Marshal(map[string]any{
		"query": query,
		"sort":  []map[string]any{{"timestamp": map[string]string{"order": "asc"}}},
		"size":  size,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := opensearchapi.SearchRequest{
		Index: []string{CheckoutEventIndex},
		Body:  bytes.NewReader(payload),
	}.Do(ctx, l.client.GetClient())
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("opensearch search error: %s", res.String())
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source CheckoutEvent `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}

	events := make([]CheckoutEvent, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		events = append(events, hit.Source)
	}
	return events, nil
}

// GetQuoteEvents returns the authorization and reconciliation history of a
// quote in the order it happened
func (l *Logger) GetQuoteEvents(ctx context.Context, quoteID string) ([]CheckoutEvent, error) {
	return l.SearchCheckoutEvents(ctx, map[string]any{
		"term": map[string]any{"quote_id": quoteID},
	}, quoteTimelineSize)
}

type redaction struct {
	field string
	pair  *regexp.Regexp
	param *regexp.Regexp
}

// redactions cover customer identifiers and back office credentials
var redactions = func() []redaction {
	fields := []string{
		"cardNumber", "card_number", "governmentId", "government_id", "gov_id",
		"contactGovernmentId", "contact_government_id", "contact_gov_id",
		"password", "token", "authorization",
	}

	out := make([]redaction, 0, len(fields))
	for _, field := range fields {
		out = append(out, redaction{
			field: field,
			pair:  regexp.MustCompile(fmt.Sprintf(`"%s"\s*:\s*"[^"]*"`, field)),
			param: regexp.MustCompile(fmt.Sprintf(`\b%s=[^&\s]+`, field)),
		})
	}
	return out
}()

// SanitizeForLog masks identifiers and credentials in a JSON body or query string
func SanitizeForLog(data string) string {
	for _, r := range redactions {
		data = r.pair.ReplaceAllString(data, fmt.Sprintf(`"%s":"***REDACTED***"`, r.field))
		data = r.param.ReplaceAllString(data, r.field+"=***REDACTED***")
	}
	return data
}
