package session

import "github.com/mstgnz/signpay/infra/logger"

// Host platform keys, shared with the storefront
const (
	KeyLastQuoteID        = "last_quote_id"
	KeyLastSuccessQuoteID = "last_success_quote_id"
	KeyLastOrderID        = "last_order_id"
	KeyLastRealOrderID    = "last_real_order_id"
	KeyReconciledQuoteID  = "reconciled_quote_id"
	KeyFailedQuoteID      = "finalize_failed_quote_id"
)

// PlatformSession is the host platform's view of the customer session: which
// order was placed last and which quote has already been reconciled.
type PlatformSession struct {
	store Store
	id    string
}

// NewPlatformSession returns the platform session identified by sessionID
func NewPlatformSession(store Store, sessionID string) *PlatformSession {
	return &PlatformSession{store: store, id: sessionID}
}

func (p *PlatformSession) get(key string) string {
	value, _, err := p.store.Get(p.id, key)
	if err != nil {
		logger.Warn("Failed to read platform session value", logger.LogContext{
			SessionID: p.id,
			Fields:    map[string]any{"key": key, "error": err.Error()},
		})
		return ""
	}
	return value
}

func (p *PlatformSession) LastQuoteID() string {
	return p.get(KeyLastQuoteID)
}

func (p *PlatformSession) LastSuccessQuoteID() string {
	return p.get(KeyLastSuccessQuoteID)
}

func (p *PlatformSession) LastOrderID() string {
	return p.get(KeyLastOrderID)
}

func (p *PlatformSession) LastRealOrderID() string {
	return p.get(KeyLastRealOrderID)
}

// SetLastQuoteID records the quote currently being checked out
func (p *PlatformSession) SetLastQuoteID(quoteID string) error {
	return p.store.Set(p.id, KeyLastQuoteID, quoteID)
}

// RecordOrder points the session at a placed order
func (p *PlatformSession) RecordOrder(orderID, incrementID, quoteID string) error {
	values := [][2]string{
		{KeyLastQuoteID, quoteID},
		{KeyLastSuccessQuoteID, quoteID},
		{KeyLastOrderID, orderID},
		{KeyLastRealOrderID, incrementID},
	}
	for _, kv := range values {
		if err := p.store.Set(p.id, kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

// IsReconciled reports whether quoteID has already been reconciled in this session
func (p *PlatformSession) IsReconciled(quoteID string) bool {
	return quoteID != "" && p.get(KeyReconciledQuoteID) == quoteID
}

func (p *PlatformSession) MarkReconciled(quoteID string) error {
	return p.store.Set(p.id, KeyReconciledQuoteID, quoteID)
}

// IsFinalizeFailed reports whether finalizing quoteID already failed in this
// session. Such a quote is not finalized again until a new order is recorded.
func (p *PlatformSession) IsFinalizeFailed(quoteID string) bool {
	return quoteID != "" && p.get(KeyFailedQuoteID) == quoteID
}

func (p *PlatformSession) MarkFinalizeFailed(quoteID string) error {
	return p.store.Set(p.id, KeyFailedQuoteID, quoteID)
}

// ClearFinalizeFailed forgets a failed finalize, used when a new order is placed
func (p *PlatformSession) ClearFinalizeFailed() error {
	return p.store.Delete(p.id, KeyFailedQuoteID)
}
