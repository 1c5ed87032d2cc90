// Package signpay authorizes storefront orders through a payment provider
// that requires the customer to sign the payment on the provider's own pages.
//
// # Overview
//
// Authorization happens in two phases. When an order is placed, signpay opens
// a payment session at the provider and decides what happens next from the
// status the provider answers with. If the customer has to sign, the browser
// is redirected to the provider; the provider later sends the customer back
// to a success or failure callback where signpay completes (finalizes) or
// cancels the order.
//
//	┌─────────────────┐    ┌─────────────────┐    ┌─────────────────┐
//	│                 │    │                 │    │                 │
//	│   Storefront    │◄──►│     signpay     │◄──►│    Payment      │
//	│   (checkout)    │    │                 │    │    Provider     │
//	│                 │    │                 │    │                 │
//	└─────────────────┘    └─────────────────┘    └─────────────────┘
//	         ▲                                             │
//	         └──────────── signing redirect ───────────────┘
//
// # Checkout Flow
//
//  1. POST /v1/checkout/identity stores the customer's government id, the
//     chosen payment method and (for card methods) card data in the checkout
//     session.
//  2. POST /v1/checkout/orders/{orderID}/authorize opens the payment session.
//     DENIED cancels the order, SIGNING returns a redirect to /v1/checkout/sign,
//     FROZEN, BOOKED and FINALIZED accept the order immediately.
//  3. GET /v1/checkout/sign remembers where the customer came from and sends
//     the browser to the provider's signing page.
//  4. The provider returns the customer to /v1/checkout/signed (the payment is
//     finalized and the billing address reconciled) or to /v1/checkout/failure
//     (the order is canceled and the cart restored).
//
// # Packages
//
//   - identity: country specific checks for government ids, card numbers and phones
//   - session: checkout session storage (memory or SQLite) and its typed views
//   - checkout: the payment assembler, authorization orchestrator, signing
//     redirect, reconciliation and failure handling
//   - provider: the provider client contract and registry; provider/resurs is
//     the bundled implementation
//   - handler, router: the HTTP surface
//   - infra: configuration, logging, OpenSearch, middleware and responses
//
// # Configuration
//
// All settings come from environment variables (optionally loaded from .env):
//
//	APP_URL=https://shop.example.com
//	PAYMENT_PROVIDER=resurs
//	PROVIDER_URL=https://provider.example.com
//	PROVIDER_USERNAME=merchant
//	PROVIDER_PASSWORD=secret
//	SESSION_BACKEND=sqlite
//	PAYMENT_METHODS=signpay_invoice:INVOICE,signpay_card:CARD:NATURAL
//
// # Adding a Provider
//
//  1. Implement the provider.SessionClient interface
//  2. Add the provider package under provider/{provider}/
//  3. Register the provider in provider/{provider}/register.go
//  4. Import the package for its side effect in router/routes.go
package signpay
