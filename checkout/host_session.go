package checkout

import "github.com/mstgnz/signpay/session"

type platformHost struct {
	ps *session.PlatformSession
}

// NewHostSession adapts a platform session to HostSession
func NewHostSession(ps *session.PlatformSession) HostSession {
	return &platformHost{ps: ps}
}

func (h *platformHost) IsActiveOrder(order *Order) bool {
	return order != nil &&
		h.ps.LastOrderID() == order.ID &&
		h.ps.LastQuoteID() == order.QuoteID
}

func (h *platformHost) Restore(order *Order) error {
	return h.ps.RecordOrder(order.ID, order.IncrementID, order.QuoteID)
}

// RecordPlacedOrder also forgets an earlier failed finalize, since the new
// order gets its own payment session
func (h *platformHost) RecordPlacedOrder(order *Order) error {
	if err := h.ps.RecordOrder(order.ID, order.IncrementID, order.QuoteID); err != nil {
		return err
	}
	return h.ps.ClearFinalizeFailed()
}

func (h *platformHost) LastQuoteID() string {
	return h.ps.LastQuoteID()
}

func (h *platformHost) IsReconciled(quoteID string) bool {
	return h.ps.IsReconciled(quoteID)
}

func (h *platformHost) MarkReconciled(quoteID string) error {
	return h.ps.MarkReconciled(quoteID)
}

func (h *platformHost) FinalizeFailed(quoteID string) bool {
	return h.ps.IsFinalizeFailed(quoteID)
}

func (h *platformHost) MarkFinalizeFailed(quoteID string) error {
	return h.ps.MarkFinalizeFailed(quoteID)
}
