package sqlstore

import "github.com/goliatone/go-issuer-agent/core"

var (
	_ core.OnboardingRecorder = (*OnboardingStore)(nil)
	_ core.OnboardingReader   = (*OnboardingStore)(nil)
	_ OnboardingLedger        = (*CachedOnboardingStore)(nil)
)
