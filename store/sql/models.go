package sqlstore

import (
	"time"

	"github.com/goliatone/go-issuer-agent/core"
	"github.com/uptrace/bun"
)

type onboardingRecord struct {
	bun.BaseModel `bun:"table:issuer_onboardings,alias:io"`

	ID        string    `bun:"id,pk"`
	Name      string    `bun:"name,notnull"`
	TenantID  string    `bun:"tenant_id,notnull"`
	WalletID  string    `bun:"wallet_id,notnull"`
	Stage     string    `bun:"stage,notnull"`
	Status    string    `bun:"status,notnull"`
	PublicDID string    `bun:"public_did,notnull"`
	LastError string    `bun:"last_error,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newOnboardingRecord(id string, name string, state core.OnboardingState, now time.Time) *onboardingRecord {
	record := &onboardingRecord{
		ID:        id,
		Name:      name,
		Status:    string(core.OnboardingStatusInProgress),
		CreatedAt: now,
	}
	record.apply(state, now)
	return record
}

// apply copies the non-secret parts of state onto the record. The wallet key
// is never persisted.
func (r *onboardingRecord) apply(state core.OnboardingState, now time.Time) {
	if state.TenantID != "" {
		r.TenantID = state.TenantID
	}
	if state.WalletID != "" {
		r.WalletID = state.WalletID
	}
	if state.PublicDID != "" {
		r.PublicDID = state.PublicDID
	}
	if state.Stage != "" {
		r.Stage = string(state.Stage)
	}
	if state.Stage == core.StageCompleted {
		r.Status = string(core.OnboardingStatusCompleted)
	}
	r.UpdatedAt = now
}

func (r *onboardingRecord) toDomain() core.OnboardingRecord {
	if r == nil {
		return core.OnboardingRecord{}
	}
	return core.OnboardingRecord{
		ID:        r.ID,
		Name:      r.Name,
		TenantID:  r.TenantID,
		WalletID:  r.WalletID,
		Stage:     core.OnboardingStage(r.Stage),
		Status:    core.OnboardingStatus(r.Status),
		PublicDID: r.PublicDID,
		LastError: r.LastError,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}
