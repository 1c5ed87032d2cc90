// Package handler provides the HTTP handlers of the signpay checkout.
//
// Customer state lives in a server side checkout session identified by a
// cookie (see middle.SessionMiddleware). Handlers never read identity data
// from the request once it has been submitted; they load it from the session.
//
// # Checkout Handler
//
// The CheckoutHandler drives the two phase authorization:
//
//	checkoutHandler := handler.NewCheckoutHandler(services, store, prefix, baseURL, validator)
//
//	r.Post("/v1/checkout/identity", checkoutHandler.SubmitIdentity)
//	r.Get("/v1/checkout/address", checkoutHandler.LookupAddress)
//	r.Get("/v1/checkout/rules", checkoutHandler.Rules)
//	r.Post("/v1/checkout/orders/{orderID}/authorize", checkoutHandler.Authorize)
//	r.Get("/v1/checkout/sign", checkoutHandler.Sign)
//	r.Post("/v1/checkout/signed", checkoutHandler.Signed)
//	r.Get("/v1/checkout/success", checkoutHandler.Success)
//	r.Get("/v1/checkout/failure", checkoutHandler.Failure)
//
// Identity submission answers with {"error":{"message":""}}; a non empty
// message is shown to the customer as is.
//
// Authorization returns the outcome of the payment session:
//
//	{
//	  "code": 200,
//	  "success": true,
//	  "message": "Payment requires signing",
//	  "data": {
//	    "outcome": "REDIRECT_FOR_SIGNING",
//	    "state": "DECIDE",
//	    "orderId": "1001",
//	    "paymentId": "000001001",
//	    "status": "SIGNING",
//	    "redirectUrl": "https://shop.example.com/v1/checkout/sign"
//	  }
//	}
//
// The signing URL itself is kept in the session and only handed out by
// the /sign redirect.
//
// # Callbacks
//
// The provider returns the customer to /signed or /failure. Both answer
// with 302 redirects; /signed reconciles the payment before redirecting to
// the success page, /failure cancels the order and restores the cart.
//
// # Error Handling
//
// Checkout errors carry a kind that selects the status code:
//
//   - validation: 400 Bad Request
//   - data: 422 Unprocessable Entity
//   - provider, reconcile: 502 Bad Gateway
//   - anything else: 500 Internal Server Error
//
// Only customer safe messages are written to responses.
//
// # Events and Health
//
// EventsHandler exposes the checkout event history recorded in OpenSearch
// to back office users (bearer token protected). HealthHandler reports the
// session store, the payment provider and OpenSearch.
package handler
