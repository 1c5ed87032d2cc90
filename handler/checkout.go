package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/signpay/checkout"
	"github.com/mstgnz/signpay/identity"
	"github.com/mstgnz/signpay/infra/logger"
	"github.com/mstgnz/signpay/infra/middle"
	"github.com/mstgnz/signpay/infra/response"
	"github.com/mstgnz/signpay/provider"
	"github.com/mstgnz/signpay/session"
)

// IdentitySubmitter stores validated customer identity in the checkout session
type IdentitySubmitter interface {
	Submit(cs *session.CheckoutSession, sub checkout.IdentitySubmission) error
}

// AddressLookup resolves the registered address of a customer
type AddressLookup interface {
	Lookup(ctx context.Context, govID string, isCompany bool, country string) (*provider.ResolvedAddress, error)
}

// Authorizer opens the payment session for a placed order
type Authorizer interface {
	Authorize(ctx context.Context, orderID string, cs *session.CheckoutSession, host checkout.HostSession) (*checkout.Outcome, error)
}

// SigningRedirector decides where the customer goes to sign
type SigningRedirector interface {
	Resolve(cs *session.CheckoutSession, referrer string) (string, error)
}

// SessionReconciler completes signed payments
type SessionReconciler interface {
	Reconcile(ctx context.Context, quoteID string, cs *session.CheckoutSession, host checkout.HostSession) (*checkout.ReconcileResult, error)
}

// FailureHandler handles customers returning from a failed signing
type FailureHandler interface {
	Handle(ctx context.Context, quoteID string, cs *session.CheckoutSession) string
}

// CheckoutServices groups the services behind the checkout endpoints
type CheckoutServices struct {
	Identity   IdentitySubmitter
	Address    AddressLookup
	Authorizer Authorizer
	Redirector SigningRedirector
	Reconciler SessionReconciler
	Failures   FailureHandler
}

// CheckoutHandler handles the checkout HTTP endpoints
type CheckoutHandler struct {
	services CheckoutServices
	sessions session.Store
	prefix   string
	baseURL  string
	validate *validator.Validate
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(services CheckoutServices, sessions session.Store, prefix, baseURL string, validate *validator.Validate) *CheckoutHandler {
	return &CheckoutHandler{
		services: services,
		sessions: sessions,
		prefix:   prefix,
		baseURL:  strings.TrimRight(baseURL, "/"),
		validate: validate,
	}
}

// IdentityRequest is the body of POST /identity
type IdentityRequest struct {
	IsCompany    bool   `json:"is_company"`
	GovID        string `json:"gov_id" validate:"required"`
	ContactGovID string `json:"contact_gov_id,omitempty"`
	CardNumber   string `json:"card_number,omitempty" validate:"omitempty,cardnumber"`
	CardAmount   string `json:"card_amount,omitempty" validate:"omitempty,decimal"`
	Method       string `json:"method" validate:"required"`
	Country      string `json:"country,omitempty" validate:"omitempty,country"`
}

// MessageBody carries a customer facing message, empty on success
type MessageBody struct {
	Message string `json:"message"`
}

// IdentityResponse is the body returned by POST /identity
type IdentityResponse struct {
	Error MessageBody `json:"error"`
}

// AddressResponse is the body returned by GET /address
type AddressResponse struct {
	Address *provider.ResolvedAddress `json:"address,omitempty"`
	Error   MessageBody               `json:"error"`
}

// SuccessPage is the body returned by GET /success
type SuccessPage struct {
	OrderID     string `json:"order_id"`
	IncrementID string `json:"increment_id"`
	Completed   bool   `json:"completed"`
	Message     string `json:"message,omitempty"`
}

// checkoutSession returns the sessions of the calling customer
func (h *CheckoutHandler) checkoutSession(r *http.Request) (*session.CheckoutSession, checkout.HostSession, bool) {
	sessionID := middle.GetSessionID(r.Context())
	if sessionID == "" {
		return nil, nil, false
	}
	cs := session.New(h.sessions, sessionID, h.prefix)
	host := checkout.NewHostSession(session.NewPlatformSession(h.sessions, sessionID))
	return cs, host, true
}

// SubmitIdentity handles POST /identity
func (h *CheckoutHandler) SubmitIdentity(w http.ResponseWriter, r *http.Request) {
	cs, _, ok := h.checkoutSession(r)
	if !ok {
		_ = response.WriteJSON(w, http.StatusBadRequest, IdentityResponse{Error: MessageBody{checkout.SessionMessage}})
		return
	}

	var req IdentityRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		_ = response.WriteJSON(w, http.StatusBadRequest, IdentityResponse{Error: MessageBody{checkout.GenericMessage}})
		return
	}

	if err := h.validate.Struct(req); err != nil {
		_ = response.WriteJSON(w, http.StatusBadRequest, IdentityResponse{Error: MessageBody{validationMessage(err)}})
		return
	}

	err := h.services.Identity.Submit(cs, checkout.IdentitySubmission{
		IsCompany:    req.IsCompany,
		GovID:        req.GovID,
		ContactGovID: req.ContactGovID,
		CardNumber:   req.CardNumber,
		CardAmount:   req.CardAmount,
		Method:       req.Method,
		Country:      req.Country,
	})
	if err != nil {
		_ = response.WriteJSON(w, statusForError(err), IdentityResponse{Error: MessageBody{checkout.CustomerMessage(err)}})
		return
	}

	_ = response.WriteJSON(w, http.StatusOK, IdentityResponse{})
}

// LookupAddress handles GET /address
func (h *CheckoutHandler) LookupAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	query := r.URL.Query()
	isCompany, _ := strconv.ParseBool(query.Get("is_company"))

	address, err := h.services.Address.Lookup(ctx, query.Get("gov_id"), isCompany, query.Get("country"))
	if err != nil {
		_ = response.WriteJSON(w, statusForError(err), AddressResponse{Error: MessageBody{checkout.CustomerMessage(err)}})
		return
	}

	_ = response.WriteJSON(w, http.StatusOK, AddressResponse{Address: address})
}

// Rules handles GET /rules
func (h *CheckoutHandler) Rules(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, "Identity rules", identity.Rules())
}

// Authorize handles POST /orders/{orderID}/authorize
func (h *CheckoutHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		response.Error(w, http.StatusBadRequest, checkout.OrderMessage, nil)
		return
	}

	cs, host, ok := h.checkoutSession(r)
	if !ok {
		response.Error(w, http.StatusBadRequest, checkout.SessionMessage, nil)
		return
	}

	outcome, err := h.services.Authorizer.Authorize(ctx, orderID, cs, host)
	if err != nil {
		status := statusForError(err)
		resp := response.Response{Code: status, Success: false, Message: checkout.CustomerMessage(err)}
		if outcome != nil {
			resp.Data = outcome
		}
		_ = response.WriteJSON(w, status, resp)
		return
	}

	message := "Payment authorized"
	switch outcome.Kind {
	case checkout.OutcomeRedirectForSigning:
		message = "Payment requires signing"
	case checkout.OutcomeDenied:
		message = outcome.Message
	}
	response.Success(w, http.StatusOK, message, outcome)
}

// Sign handles GET /sign
func (h *CheckoutHandler) Sign(w http.ResponseWriter, r *http.Request) {
	cs, _, ok := h.checkoutSession(r)
	if !ok {
		http.Redirect(w, r, h.baseURL+"/", http.StatusFound)
		return
	}

	target, err := h.services.Redirector.Resolve(cs, r.Referer())
	if err != nil {
		response.Error(w, http.StatusInternalServerError, checkout.CustomerMessage(err), nil)
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// Signed handles POST /signed, the provider's success callback
func (h *CheckoutHandler) Signed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	quoteID := r.URL.Query().Get("quote_id")
	cs, host, ok := h.checkoutSession(r)
	if !ok {
		http.Redirect(w, r, h.failureURL(quoteID), http.StatusFound)
		return
	}

	if _, err := h.services.Reconciler.Reconcile(ctx, quoteID, cs, host); err != nil {
		http.Redirect(w, r, h.failureURL(quoteID), http.StatusFound)
		return
	}

	http.Redirect(w, r, h.baseURL+checkout.SuccessPath+"?quote_id="+url.QueryEscape(quoteID), http.StatusFound)
}

// Success handles GET /success
func (h *CheckoutHandler) Success(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	cs, host, ok := h.checkoutSession(r)
	if !ok {
		response.Error(w, http.StatusBadRequest, checkout.SessionMessage, nil)
		return
	}
	defer func() {
		if err := cs.UnsetAll(); err != nil {
			logger.Warn("Failed to clear checkout session after success page", logger.LogContext{SessionID: cs.ID()})
		}
	}()

	quoteID := r.URL.Query().Get("quote_id")
	if quoteID == "" {
		quoteID = host.LastQuoteID()
	}

	res, err := h.services.Reconciler.Reconcile(ctx, quoteID, cs, host)
	if err != nil {
		// the order could not be located or restored, send the customer to
		// the failure page where the cart is rebuilt
		http.Redirect(w, r, h.failureURL(quoteID), http.StatusFound)
		return
	}

	page := SuccessPage{
		OrderID:     res.Order.ID,
		IncrementID: res.Order.IncrementID,
		Completed:   res.Succeeded(),
	}
	if !res.Succeeded() {
		page.Message = checkout.CustomerMessage(res.FinalizeErr)
	}

	response.Success(w, http.StatusOK, "Thank you for your order", page)
}

// Failure handles GET /failure, the provider's failure callback
func (h *CheckoutHandler) Failure(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	cs, _, ok := h.checkoutSession(r)
	if !ok {
		http.Redirect(w, r, h.baseURL+"/", http.StatusFound)
		return
	}

	target := h.services.Failures.Handle(ctx, r.URL.Query().Get("quote_id"), cs)
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *CheckoutHandler) failureURL(quoteID string) string {
	return h.baseURL + checkout.FailurePath + "?quote_id=" + url.QueryEscape(quoteID)
}

// statusForError maps a checkout error kind to an HTTP status code
func statusForError(err error) int {
	switch checkout.KindOf(err) {
	case checkout.KindValidation:
		return http.StatusBadRequest
	case checkout.KindData:
		return http.StatusUnprocessableEntity
	case checkout.KindProvider, checkout.KindReconcile:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// validationMessage picks the customer message for the first invalid field
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return checkout.GenericMessage
	}

	switch verrs[0].Field() {
	case "GovID":
		return checkout.MissingIDMessage
	case "Method":
		return checkout.MissingMethod
	case "CardNumber":
		return checkout.InvalidCardMessage
	case "CardAmount":
		return checkout.InvalidAmountMessage
	case "Country":
		return checkout.CountryMessage
	default:
		return checkout.GenericMessage
	}
}
