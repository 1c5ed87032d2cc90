package checkout

import (
	"context"

	"github.com/mstgnz/signpay/infra/logger"
	"github.com/mstgnz/signpay/infra/opensearch"
	"github.com/mstgnz/signpay/session"
)

// FailureService handles customers returning from a failed or aborted signing
type FailureService struct {
	orders     OrderStore
	carts      CartStore
	redirector *Redirector
	events     EventSink
}

// NewFailureService creates a failure service. events may be nil.
func NewFailureService(orders OrderStore, carts CartStore, redirector *Redirector, events EventSink) *FailureService {
	return &FailureService{
		orders:     orders,
		carts:      carts,
		redirector: redirector,
		events:     events,
	}
}

// Handle cancels the order placed from quoteID, restores its quote so the
// customer can try again and returns the page the customer signed from.
// Every step is best effort.
func (f *FailureService) Handle(ctx context.Context, quoteID string, cs *session.CheckoutSession) string {
	target := f.redirector.FailureTarget(cs)
	logCtx := logger.LogContext{SessionID: cs.ID(), Fields: map[string]any{"quote_id": quoteID}}

	event := opensearch.CheckoutEvent{
		Operation: "signing_failure",
		Outcome:   "CANCELLED",
		SessionID: cs.ID(),
		QuoteID:   quoteID,
	}

	if !IsSentinelQuoteID(quoteID) {
		if order, err := f.orders.GetOrderByQuoteID(ctx, quoteID); err != nil {
			logger.Warn("Signing failure for unknown quote", logCtx)
		} else {
			event.OrderID = order.ID
			event.IncrementID = order.IncrementID
			if err := f.orders.CancelOrder(ctx, order, ReasonSigningFailed); err != nil {
				logger.Error("Failed to cancel order after signing failure", err, logCtx)
			}
		}

		if err := f.carts.RestoreQuote(ctx, quoteID); err != nil {
			logger.Error("Failed to restore quote", err, logCtx)
		}
	}

	if err := cs.UnsetPaymentInfo(); err != nil {
		logger.Error("Failed to clear payment info", err, logCtx)
	}

	emit(ctx, f.events, event)
	return target
}
