package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mstgnz/signpay/infra/logger"
	"github.com/mstgnz/signpay/infra/opensearch"
	"github.com/mstgnz/signpay/provider"
	"github.com/mstgnz/signpay/session"
)

// errFinalizeFailed marks a result answered from an earlier failed finalize
var errFinalizeFailed = errors.New("finalize already failed for this quote")

// ReconcileResult describes what reconciliation did for one quote
type ReconcileResult struct {
	Order          *Order
	QuoteID        string
	Skipped        bool
	Result         *provider.PaymentSessionResult
	FinalizeErr    error
	AddressUpdated bool
}

// Succeeded reports whether the signed payment was completed
func (r *ReconcileResult) Succeeded() bool {
	return r.FinalizeErr == nil
}

// Reconciler completes signed payment sessions
type Reconciler struct {
	orders       OrderStore
	client       provider.SessionClient
	reject       map[provider.PaymentStatus]bool
	events       EventSink
	providerName string
}

// NewReconciler creates a reconciler. Finalize results with a status in
// rejectStatuses are treated as failures; an empty list rejects DENIED only.
func NewReconciler(orders OrderStore, client provider.SessionClient, rejectStatuses []string, events EventSink, providerName string) *Reconciler {
	reject := make(map[provider.PaymentStatus]bool)
	for _, s := range rejectStatuses {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			reject[provider.PaymentStatus(s)] = true
		}
	}
	if len(reject) == 0 {
		reject[provider.StatusDenied] = true
	}

	return &Reconciler{
		orders:       orders,
		client:       client,
		reject:       reject,
		events:       events,
		providerName: providerName,
	}
}

// Reconcile finalizes the payment of the order placed from quoteID. Finalize
// is called at most once per quote and host session: later calls answer from
// the recorded outcome, whether it succeeded or failed. An error is returned
// only when the order cannot be located or restored into the host session;
// provider failures are reported through the result. The checkout session is
// always cleared.
func (r *Reconciler) Reconcile(ctx context.Context, quoteID string, cs *session.CheckoutSession, host HostSession) (*ReconcileResult, error) {
	const op = "reconcile"
	log := logger.WithSession(cs.ID()).WithQuote(quoteID).WithProvider(r.providerName)

	defer func() {
		if err := cs.UnsetAll(); err != nil {
			log.With("error", err.Error()).Warn("Failed to clear checkout session")
		}
	}()

	if IsSentinelQuoteID(quoteID) {
		err := newError(KindData, op, OrderMessage, fmt.Errorf("invalid quote id %q", quoteID))
		r.record(ctx, cs, &ReconcileResult{QuoteID: quoteID}, "FAILED", err)
		return nil, err
	}

	order, err := r.orders.GetOrderByQuoteID(ctx, quoteID)
	if err != nil {
		err = newError(KindData, op, OrderMessage, fmt.Errorf("order for quote %s: %w", quoteID, err))
		log.Error("Reconciliation could not locate order", err)
		r.record(ctx, cs, &ReconcileResult{QuoteID: quoteID}, "FAILED", err)
		return nil, err
	}

	res := &ReconcileResult{Order: order, QuoteID: quoteID}
	log = log.WithOrder(order.ID)

	if !host.IsActiveOrder(order) {
		if err := host.Restore(order); err != nil {
			err = newError(KindData, op, SessionMessage, fmt.Errorf("restore order %s into host session: %w", order.ID, err))
			log.Error("Failed to restore order into host session", err)
			r.record(ctx, cs, res, "FAILED", err)
			return nil, err
		}
	}

	switch {
	case host.IsReconciled(quoteID):
		res.Skipped = true
		log.Debug("Quote already reconciled")
		r.record(ctx, cs, res, "SKIPPED", nil)
		return res, nil
	case host.FinalizeFailed(quoteID):
		res.Skipped = true
		res.FinalizeErr = newError(KindReconcile, op, FinalizingMessage, errFinalizeFailed)
		log.Debug("Finalize already failed for quote")
		r.record(ctx, cs, res, "SKIPPED", res.FinalizeErr)
		return res, nil
	}

	result, err := r.client.Finalize(ctx, order.Reference())
	switch {
	case err != nil:
		res.FinalizeErr = newError(KindReconcile, op, FinalizingMessage, err)
	case r.reject[result.Status]:
		res.Result = result
		res.FinalizeErr = newError(KindReconcile, op, FinalizingMessage,
			fmt.Errorf("payment %s finalized with status %s", result.PaymentID, result.Status))
	default:
		res.Result = result
	}

	if res.FinalizeErr != nil {
		log.Error("Failed to finalize signed payment", res.FinalizeErr)
		if err := host.MarkFinalizeFailed(quoteID); err != nil {
			log.Error("Failed to record failed finalize", err)
		}
		r.record(ctx, cs, res, "FAILED", res.FinalizeErr)
		return res, nil
	}

	log = log.With("payment_id", result.PaymentID).With("status", string(result.Status))

	if err := host.MarkReconciled(quoteID); err != nil {
		log.Error("Failed to mark quote reconciled", err)
	}

	if err := r.reconcileAddress(ctx, order, result.Customer); err != nil {
		log.With("reason", err.Error()).Info("Billing address not updated from provider")
	} else {
		res.AddressUpdated = true
	}

	log.Info("Signed payment finalized")
	r.record(ctx, cs, res, "FINALIZED", nil)
	return res, nil
}

// reconcileAddress copies the address the provider resolved onto the order's
// billing address
func (r *Reconciler) reconcileAddress(ctx context.Context, order *Order, customer provider.ResolvedCustomer) error {
	resolved := customer.Address
	if resolved.AddressRow1 == "" && resolved.PostalCode == "" {
		return fmt.Errorf("provider returned no address")
	}

	var address Address
	if order.BillingAddress != nil {
		address = *order.BillingAddress
	}

	if customer.Type == provider.CustomerLegal {
		address.Company = resolved.FullName
	} else {
		address.FirstName = resolved.FirstName
		address.LastName = resolved.LastName
	}
	address.Street = [2]string{resolved.AddressRow1, resolved.AddressRow2}
	address.PostCode = resolved.PostalCode
	address.City = resolved.PostalArea
	address.CountryID = resolved.Country

	if err := r.orders.SaveAddress(ctx, &address); err != nil {
		return fmt.Errorf("save address: %w", err)
	}
	if err := r.orders.AttachBillingAddress(ctx, order, address); err != nil {
		return fmt.Errorf("attach billing address: %w", err)
	}
	return nil
}

func (r *Reconciler) record(ctx context.Context, cs *session.CheckoutSession, res *ReconcileResult, outcome string, err error) {
	event := opensearch.CheckoutEvent{
		Operation: "reconcile",
		Outcome:   outcome,
		SessionID: cs.ID(),
		QuoteID:   res.QuoteID,
		Provider:  r.providerName,
		Error:     errorInfo(err),
	}
	if res.Order != nil {
		event.OrderID = res.Order.ID
		event.IncrementID = res.Order.IncrementID
	}
	if res.Result != nil {
		event.PaymentID = res.Result.PaymentID
		event.PaymentStatus = string(res.Result.Status)
		event.ApprovedAmount = res.Result.ApprovedAmount.String()
	}
	emit(ctx, r.events, event)
}
