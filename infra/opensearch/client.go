package opensearch

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mstgnz/signpay/infra/config"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// Index names used by the service
const (
	SystemLogIndex     = "signpay-system-logs"
	CheckoutEventIndex = "signpay-checkout-events"
)

const systemLogMapping = `{
	"mappings": {
		"properties": {
			"timestamp":   {"type": "date", "format": "strict_date_optional_time||epoch_millis"},
			"level":       {"type": "keyword"},
			"message":     {"type": "text"},
			"component":   {"type": "keyword"},
			"function":    {"type": "keyword"},
			"session_id":  {"type": "keyword"},
			"order_id":    {"type": "keyword"},
			"provider":    {"type": "keyword"},
			"request_id":  {"type": "keyword"},
			"error":       {"type": "text"},
			"environment": {"type": "keyword"},
			"service":     {"type": "keyword"}
		}
	},
	"settings": {"number_of_shards": 1, "number_of_replicas": 0}
}`

const checkoutEventMapping = `{
	"mappings": {
		"properties": {
			"event_id":        {"type": "keyword"},
			"timestamp":       {"type": "date", "format": "strict_date_optional_time||epoch_millis"},
			"operation":       {"type": "keyword"},
			"outcome":         {"type": "keyword"},
			"session_id":      {"type": "keyword"},
			"order_id":        {"type": "keyword"},
			"increment_id":    {"type": "keyword"},
			"quote_id":        {"type": "keyword"},
			"payment_id":      {"type": "keyword"},
			"payment_status":  {"type": "keyword"},
			"provider":        {"type": "keyword"},
			"approved_amount": {"type": "keyword"},
			"error": {
				"type": "object",
				"properties": {
					"kind":    {"type": "keyword"},
					"message": {"type": "text"}
				}
			}
		}
	},
	"settings": {"number_of_shards": 1, "number_of_replicas": 0}
}`

// Client wraps the OpenSearch client
type Client struct {
	client *opensearch.Client
	config *config.AppConfig
}

// NewClient creates a new OpenSearch client
func NewClient(cfg *config.AppConfig) (*Client, error) {
	opensearchConfig := opensearch.Config{
		Addresses: []string{cfg.OpenSearchURL},
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.Environment != "production",
			},
		},
		MaxRetries:    3,
		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(i int) time.Duration {
			return time.Duration(i) * 100 * time.Millisecond
		},
	}

	if cfg.OpenSearchUser != "" && cfg.OpenSearchPass != "" {
		opensearchConfig.Username = cfg.OpenSearchUser
		opensearchConfig.Password = cfg.OpenSearchPass
	}

	client, err := opensearch.NewClient(opensearchConfig)
	if err != nil {
		return nil, err
	}

	osClient := &Client{
		client: client,
		config: cfg,
	}

	if cfg.EnableLogging {
		if err := osClient.setupIndices(context.Background()); err != nil {
			log.Printf("Warning: Failed to setup OpenSearch indices: %v", err)
		}
	}

	return osClient, nil
}

// GetClient returns the underlying OpenSearch client
func (c *Client) GetClient() *opensearch.Client {
	return c.client
}

// IsEnabled returns whether OpenSearch logging is enabled
func (c *Client) IsEnabled() bool {
	return c.config.EnableLogging
}

// Ping checks that the cluster answers
func (c *Client) Ping(ctx context.Context) error {
	res, err := opensearchapi.PingRequest{}.Do(ctx, c.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch ping: %s", res.Status())
	}
	return nil
}

// indexDefinitions are created in order when logging is enabled
var indexDefinitions = []struct {
	name    string
	mapping string
}{
	{SystemLogIndex, systemLogMapping},
	{CheckoutEventIndex, checkoutEventMapping},
}

// setupIndices creates every missing index and reports the ones that failed
func (c *Client) setupIndices(ctx context.Context) error {
	var failed []string
	for _, def := range indexDefinitions {
		if err := c.createIndexIfNotExists(ctx, def.name, def.mapping); err != nil {
			log.Printf("Error preparing index %s: %v", def.name, err)
			failed = append(failed, def.name)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("indices not ready: %s", strings.Join(failed, ", "))
	}
	return nil
}

func (c *Client) createIndexIfNotExists(ctx context.Context, name, mapping string) error {
	exists, err := c.indexExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	req := opensearchapi.IndicesCreateRequest{
		Index: name,
		Body:  strings.NewReader(mapping),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index creation error: %s", res.String())
	}

	log.Printf("Created OpenSearch index: %s", name)
	return nil
}

func (c *Client) indexExists(ctx context.Context, name string) (bool, error) {
	req := opensearchapi.IndicesExistsRequest{
		Index: []string{name},
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	return res.StatusCode == http.StatusOK, nil
}
