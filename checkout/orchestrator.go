package checkout

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mstgnz/signpay/infra/config"
	"github.com/mstgnz/signpay/infra/logger"
	"github.com/mstgnz/signpay/infra/opensearch"
	"github.com/mstgnz/signpay/provider"
	"github.com/mstgnz/signpay/session"
)

// State is the step an authorization attempt stopped at
type State string

const (
	StateStart         State = "START"
	StateAssembling    State = "ASSEMBLING"
	StateSessionOpened State = "SESSION_OPENED"
	StateDecide        State = "DECIDE"
)

// OutcomeKind is the decision taken for an authorization attempt
type OutcomeKind string

const (
	OutcomeAccepted           OutcomeKind = "ACCEPTED"
	OutcomeRedirectForSigning OutcomeKind = "REDIRECT_FOR_SIGNING"
	OutcomeDenied             OutcomeKind = "DENIED"
	OutcomeFailed             OutcomeKind = "FAILED"
)

// Outcome is the result of Authorize
type Outcome struct {
	Kind        OutcomeKind            `json:"outcome"`
	State       State                  `json:"state"`
	OrderID     string                 `json:"orderId,omitempty"`
	PaymentID   string                 `json:"paymentId,omitempty"`
	Status      provider.PaymentStatus `json:"status,omitempty"`
	SigningURL  string                 `json:"-"`
	RedirectURL string                 `json:"redirectUrl,omitempty"`
	Message     string                 `json:"message,omitempty"`
}

// Orchestrator decides how a placed order is authorized
type Orchestrator struct {
	orders       OrderStore
	carts        CartStore
	client       provider.SessionClient
	methods      *config.MethodConfig
	settings     AssemblerSettings
	events       EventSink
	providerName string
}

// NewOrchestrator creates an orchestrator. events may be nil.
func NewOrchestrator(orders OrderStore, carts CartStore, client provider.SessionClient, methods *config.MethodConfig, settings AssemblerSettings, events EventSink, providerName string) *Orchestrator {
	return &Orchestrator{
		orders:       orders,
		carts:        carts,
		client:       client,
		methods:      methods,
		settings:     settings,
		events:       events,
		providerName: providerName,
	}
}

// Authorize opens a payment session for orderID and decides the outcome.
// The returned error is non-nil only for FAILED outcomes.
func (o *Orchestrator) Authorize(ctx context.Context, orderID string, cs *session.CheckoutSession, host HostSession) (*Outcome, error) {
	const op = "authorize"
	outcome := &Outcome{State: StateStart, OrderID: orderID}

	order, err := o.orders.ResolveOrder(ctx, orderID)
	if err != nil {
		return o.fail(ctx, cs, nil, outcome, newError(KindData, op, OrderMessage, fmt.Errorf("resolve order %s: %w", orderID, err)))
	}
	if order.Payment == nil || order.Payment.Method == "" {
		return o.fail(ctx, cs, order, outcome, newError(KindData, op, MissingMethod, fmt.Errorf("order %s has no payment record", order.ID)))
	}

	method, err := o.methods.Get(order.Payment.Method)
	if err != nil {
		return o.fail(ctx, cs, order, outcome, newError(KindData, op, MissingMethod, err))
	}

	outcome.State = StateAssembling
	items, err := o.carts.QuoteItems(ctx, order.QuoteID)
	if err != nil {
		return o.fail(ctx, cs, order, outcome, newError(KindData, op, GenericMessage, fmt.Errorf("quote %s items: %w", order.QuoteID, err)))
	}

	req, err := BuildSessionRequest(order, items, cs.Identity(), method, o.settings)
	if err != nil {
		return o.fail(ctx, cs, order, outcome, err)
	}

	result, err := o.client.OpenSession(ctx, req)
	if err != nil {
		return o.fail(ctx, cs, order, outcome, newError(KindProvider, op, GenericMessage, err))
	}

	outcome.State = StateSessionOpened
	outcome.PaymentID = result.PaymentID
	outcome.Status = result.Status

	outcome.State = StateDecide
	switch result.Status {
	case provider.StatusDenied:
		o.cancel(ctx, order, ReasonCreditDenied)
		outcome.Kind = OutcomeDenied
		outcome.Message = DeniedMessage
		o.record(ctx, cs, order, outcome, result, nil)
		return outcome, nil

	case provider.StatusSigning:
		if result.SigningURL == "" {
			return o.fail(ctx, cs, order, outcome, newError(KindProvider, op, GenericMessage,
				fmt.Errorf("%w: SIGNING status without signing url", provider.ErrMalformedResponse)))
		}
		if err := o.accept(order, cs, host, result.SigningURL, result.PaymentID); err != nil {
			return o.fail(ctx, cs, order, outcome, newError(KindData, op, SessionMessage, err))
		}
		outcome.Kind = OutcomeRedirectForSigning
		outcome.SigningURL = result.SigningURL
		outcome.RedirectURL = o.url(SignPath)

	case provider.StatusFrozen, provider.StatusBooked, provider.StatusFinalized:
		// the pair is written as one unit: no signing step, so the payment id
		// is stored and any signing url from an earlier attempt is removed
		if err := o.accept(order, cs, host, "", result.PaymentID); err != nil {
			return o.fail(ctx, cs, order, outcome, newError(KindData, op, SessionMessage, err))
		}
		outcome.Kind = OutcomeAccepted
		outcome.RedirectURL = o.url(SuccessPath) + "?quote_id=" + url.QueryEscape(order.QuoteID)

	default:
		return o.fail(ctx, cs, order, outcome, newError(KindProvider, op, GenericMessage,
			fmt.Errorf("%w: unexpected status %q", provider.ErrMalformedResponse, result.Status)))
	}

	logger.Info("Payment session opened", logger.LogContext{
		SessionID: cs.ID(),
		OrderID:   order.ID,
		Provider:  o.providerName,
		Fields: map[string]any{
			"payment_id": result.PaymentID,
			"status":     string(result.Status),
			"outcome":    string(outcome.Kind),
		},
	})
	o.record(ctx, cs, order, outcome, result, nil)
	return outcome, nil
}

// accept stores the payment session and hands the order to the host session
func (o *Orchestrator) accept(order *Order, cs *session.CheckoutSession, host HostSession, signingURL, paymentID string) error {
	if err := cs.SetPaymentSession(signingURL, paymentID); err != nil {
		return fmt.Errorf("store payment session: %w", err)
	}
	if err := host.RecordPlacedOrder(order); err != nil {
		return fmt.Errorf("record placed order: %w", err)
	}
	if err := cs.UnsetCustomerInfo(); err != nil {
		logger.Warn("Failed to clear customer info", logger.LogContext{
			SessionID: cs.ID(),
			OrderID:   order.ID,
			Fields:    map[string]any{"error": err.Error()},
		})
	}
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, cs *session.CheckoutSession, order *Order, outcome *Outcome, err error) (*Outcome, error) {
	outcome.Kind = OutcomeFailed
	outcome.Message = CustomerMessage(err)

	logCtx := logger.LogContext{
		SessionID: cs.ID(),
		OrderID:   outcome.OrderID,
		Provider:  o.providerName,
		Fields:    map[string]any{"state": string(outcome.State), "kind": string(KindOf(err))},
	}
	logger.Error("Payment authorization failed", err, logCtx)

	if order != nil {
		o.cancel(ctx, order, ReasonFailed)
	}
	o.record(ctx, cs, order, outcome, nil, err)
	return outcome, err
}

// cancel logs cancel failures instead of returning them
func (o *Orchestrator) cancel(ctx context.Context, order *Order, reason string) {
	if err := o.orders.CancelOrder(ctx, order, reason); err != nil {
		logger.Error("Failed to cancel order", err, logger.LogContext{
			OrderID:  order.ID,
			Provider: o.providerName,
			Fields:   map[string]any{"reason": reason},
		})
	}
}

func (o *Orchestrator) record(ctx context.Context, cs *session.CheckoutSession, order *Order, outcome *Outcome, result *provider.PaymentSessionResult, err error) {
	event := opensearch.CheckoutEvent{
		Operation: "authorize",
		Outcome:   string(outcome.Kind),
		SessionID: cs.ID(),
		OrderID:   outcome.OrderID,
		PaymentID: outcome.PaymentID,
		Provider:  o.providerName,
		Error:     errorInfo(err),
		Fields:    map[string]any{"state": string(outcome.State)},
	}
	if order != nil {
		event.IncrementID = order.IncrementID
		event.QuoteID = order.QuoteID
	}
	if result != nil {
		event.PaymentStatus = string(result.Status)
		event.ApprovedAmount = result.ApprovedAmount.String()
	}
	emit(ctx, o.events, event)
}

func (o *Orchestrator) url(path string) string {
	return strings.TrimRight(o.settings.BaseURL, "/") + path
}
