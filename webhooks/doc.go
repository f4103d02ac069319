// Package webhooks receives the event callbacks a tenant's agent posts to the
// webhook URL registered during onboarding.
package webhooks
