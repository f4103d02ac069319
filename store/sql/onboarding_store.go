package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-issuer-agent/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// OnboardingStore is the SQL ledger of onboarding runs. It records progress
// only; it never drives the workflow.
type OnboardingStore struct {
	db   *bun.DB
	repo repository.Repository[*onboardingRecord]
	now  func() time.Time
}

func NewOnboardingStore(db *bun.DB) (*OnboardingStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*onboardingRecord](db, onboardingHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid onboarding repository wiring: %w", err)
		}
	}
	return &OnboardingStore{
		db:   db,
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *OnboardingStore) Start(ctx context.Context, name string, state core.OnboardingState) (string, error) {
	if s == nil || s.repo == nil {
		return "", fmt.Errorf("sqlstore: onboarding store is not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", core.BadInputError("tenant name is required")
	}
	if state.Stage == "" {
		state.Stage = core.StageCreated
	}
	record := newOnboardingRecord(uuid.NewString(), name, state, s.now())
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (s *OnboardingStore) Advance(ctx context.Context, id string, state core.OnboardingState) error {
	return s.update(ctx, id, func(record *onboardingRecord, now time.Time) {
		record.apply(state, now)
	})
}

func (s *OnboardingStore) Fail(ctx context.Context, id string, state core.OnboardingState, reason string) error {
	return s.update(ctx, id, func(record *onboardingRecord, now time.Time) {
		record.apply(state, now)
		record.Status = string(core.OnboardingStatusFailed)
		record.LastError = strings.TrimSpace(reason)
	})
}

func (s *OnboardingStore) update(ctx context.Context, id string, mutate func(*onboardingRecord, time.Time)) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: onboarding store is not configured")
	}
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return core.BadInputError("onboarding id is required")
	}
	current, err := s.find(ctx, trimmedID)
	if err != nil {
		return err
	}
	mutate(current, s.now())
	_, err = s.repo.Update(ctx, current, repository.UpdateByID(trimmedID))
	return err
}

func (s *OnboardingStore) GetOnboarding(ctx context.Context, id string) (core.OnboardingRecord, error) {
	if s == nil || s.db == nil {
		return core.OnboardingRecord{}, fmt.Errorf("sqlstore: onboarding store is not configured")
	}
	record, err := s.find(ctx, strings.TrimSpace(id))
	if err != nil {
		return core.OnboardingRecord{}, err
	}
	return record.toDomain(), nil
}

// ListOnboardings returns every run for name, newest first.
func (s *OnboardingStore) ListOnboardings(ctx context.Context, name string) ([]core.OnboardingRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: onboarding store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("name", "=", strings.TrimSpace(name)),
		repository.OrderBy("created_at DESC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.OnboardingRecord, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *OnboardingStore) find(ctx context.Context, id string) (*onboardingRecord, error) {
	record := &onboardingRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.NotFoundError(fmt.Sprintf("onboarding %q not found", id), err)
		}
		return nil, err
	}
	return record, nil
}
