package checkout

import (
	"context"

	"github.com/mstgnz/signpay/infra/logger"
	"github.com/mstgnz/signpay/infra/opensearch"
)

// EventSink receives every authorization and reconciliation decision
type EventSink interface {
	LogCheckoutEvent(ctx context.Context, event opensearch.CheckoutEvent) error
}

func emit(ctx context.Context, sink EventSink, event opensearch.CheckoutEvent) {
	if sink == nil {
		return
	}
	if err := sink.LogCheckoutEvent(ctx, event); err != nil {
		logger.Warn("Failed to record checkout event", logger.LogContext{
			SessionID: event.SessionID,
			OrderID:   event.OrderID,
			Fields:    map[string]any{"operation": event.Operation, "error": err.Error()},
		})
	}
}

func errorInfo(err error) opensearch.ErrorInfo {
	if err == nil {
		return opensearch.ErrorInfo{}
	}
	return opensearch.ErrorInfo{
		Kind:    string(KindOf(err)),
		Message: opensearch.SanitizeForLog(err.Error()),
	}
}
