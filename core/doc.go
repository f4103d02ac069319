// Package core contains the issuer agent runtime: backend selection, bearer
// token caching, readiness polling, tenant onboarding and transaction
// polling. Transport, token issuance and persistence are supplied through the
// interfaces in contracts.go; core must not import their implementations.
package core
