// Package httpapi exposes the agent client over a small chi router: health,
// issuer onboarding, transaction waits, the onboarding ledger, inbound agent
// webhooks and Prometheus metrics.
package httpapi
