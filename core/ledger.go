package core

import (
	"context"
	"time"
)

type OnboardingStatus string

const (
	OnboardingStatusInProgress OnboardingStatus = "in_progress"
	OnboardingStatusCompleted  OnboardingStatus = "completed"
	OnboardingStatusFailed     OnboardingStatus = "failed"
)

// OnboardingRecord is the persisted view of one onboarding run. Wallet keys
// are never part of it.
type OnboardingRecord struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	TenantID  string           `json:"tenant_id,omitempty"`
	WalletID  string           `json:"wallet_id,omitempty"`
	Stage     OnboardingStage  `json:"stage"`
	Status    OnboardingStatus `json:"status"`
	PublicDID string           `json:"public_did,omitempty"`
	LastError string           `json:"last_error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type OnboardingReader interface {
	GetOnboarding(ctx context.Context, id string) (OnboardingRecord, error)
	ListOnboardings(ctx context.Context, name string) ([]OnboardingRecord, error)
}
