// Package management covers the owner-facing lead operations: listing,
// updates, lifecycle transitions and opt-outs. Attribute changes are
// announced on the event bus so scoring stays decoupled.
package management

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"realtorbuddy_backend/internal/compliance"
	"realtorbuddy_backend/internal/events"
	"realtorbuddy_backend/internal/leads/repository"
	"realtorbuddy_backend/platform/apperr"
	"realtorbuddy_backend/platform/logger"
	"realtorbuddy_backend/platform/phone"
)

var ErrLeadNotFound = apperr.NotFound("lead not found")

type Repository interface {
	GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (repository.Lead, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]repository.Lead, error)
	Update(ctx context.Context, id, userID uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error)
	UpdateStatus(ctx context.Context, id, userID uuid.UUID, status repository.LeadStatus) (repository.Lead, error)
	MarkOptedOut(ctx context.Context, id uuid.UUID) error
}

type ComplianceWriter interface {
	Append(ctx context.Context, leadID uuid.UUID, eventType compliance.EventType, details json.RawMessage) error
}

// UpdateInput is a full replacement of the lead's editable attributes.
type UpdateInput struct {
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	PreferredChannel string
	Budget           float64
	Timeline         *string
	Motivation       *string
	LenderStatus     string
	ResponseRate     *float64
	LastContactDate  *time.Time
}

type Service struct {
	repo       Repository
	compliance ComplianceWriter
	bus        events.Bus
	log        *logger.Logger
}

func NewService(repo Repository, complianceWriter ComplianceWriter, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		compliance: complianceWriter,
		bus:        bus,
		log:        log,
	}
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]repository.Lead, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) Get(ctx context.Context, id, userID uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.GetByIDForUser(ctx, id, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, ErrLeadNotFound
	}
	return lead, err
}

// Update replaces the lead's attributes and publishes a LeadUpdated event
// naming every field that actually changed. Scoring listens for the fields
// it cares about.
func (s *Service) Update(ctx context.Context, id, userID uuid.UUID, input UpdateInput) (repository.Lead, error) {
	existing, err := s.Get(ctx, id, userID)
	if err != nil {
		return repository.Lead{}, err
	}

	params := repository.UpdateLeadParams{
		FirstName:        input.FirstName,
		LastName:         input.LastName,
		Email:            input.Email,
		Phone:            phone.NormalizeE164(input.Phone),
		PreferredChannel: repository.Channel(input.PreferredChannel),
		Budget:           input.Budget,
		Timeline:         input.Timeline,
		Motivation:       input.Motivation,
		LenderStatus:     repository.LenderStatus(input.LenderStatus),
		ResponseRate:     input.ResponseRate,
		LastContactDate:  input.LastContactDate,
	}
	if params.PreferredChannel == "" {
		params.PreferredChannel = existing.PreferredChannel
	}
	if params.LenderStatus == "" {
		params.LenderStatus = existing.LenderStatus
	}

	changed := changedFields(existing, params)

	updated, err := s.repo.Update(ctx, id, userID, params)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, ErrLeadNotFound
	}
	if err != nil {
		return repository.Lead{}, fmt.Errorf("update lead: %w", err)
	}

	if len(changed) > 0 {
		s.bus.Publish(ctx, events.LeadUpdated{
			BaseEvent:     events.NewBaseEvent(),
			LeadID:        id,
			UserID:        userID,
			ChangedFields: changed,
		})
	}

	return updated, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id, userID uuid.UUID, status repository.LeadStatus) (repository.Lead, error) {
	switch status {
	case repository.StatusNew, repository.StatusActive, repository.StatusClosed, repository.StatusIncomplete:
	default:
		return repository.Lead{}, apperr.New(apperr.KindValidation, fmt.Sprintf("status %q cannot be set directly", status))
	}

	lead, err := s.repo.UpdateStatus(ctx, id, userID, status)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, ErrLeadNotFound
	}
	return lead, err
}

// OptOut records the compliance event and retires the lead from all future
// outreach. The order matters: the compliance record is the guard's source
// of truth, so it lands first.
func (s *Service) OptOut(ctx context.Context, id, userID uuid.UUID, reason string) error {
	if _, err := s.Get(ctx, id, userID); err != nil {
		return err
	}

	details, _ := json.Marshal(map[string]string{"reason": reason})
	if err := s.compliance.Append(ctx, id, compliance.EventOptOut, details); err != nil {
		return fmt.Errorf("record opt-out: %w", err)
	}
	if err := s.repo.MarkOptedOut(ctx, id); err != nil {
		return fmt.Errorf("mark opted out: %w", err)
	}

	s.log.Info("lead opted out", "lead_id", id.String())
	s.bus.Publish(ctx, events.LeadOptedOut{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    id,
	})
	return nil
}

func changedFields(before repository.Lead, after repository.UpdateLeadParams) []string {
	var changed []string
	if before.FirstName != after.FirstName {
		changed = append(changed, "firstName")
	}
	if before.LastName != after.LastName {
		changed = append(changed, "lastName")
	}
	if before.Email != after.Email {
		changed = append(changed, "email")
	}
	if before.Phone != after.Phone {
		changed = append(changed, "phone")
	}
	if before.PreferredChannel != after.PreferredChannel {
		changed = append(changed, "preferredChannel")
	}
	if before.Budget != after.Budget {
		changed = append(changed, "budget")
	}
	if !equalStrPtr(before.Timeline, after.Timeline) {
		changed = append(changed, "timeline")
	}
	if !equalStrPtr(before.Motivation, after.Motivation) {
		changed = append(changed, "motivation")
	}
	if before.LenderStatus != after.LenderStatus {
		changed = append(changed, "lenderStatus")
	}
	if !equalFloatPtr(before.ResponseRate, after.ResponseRate) {
		changed = append(changed, "responseRate")
	}
	if !equalTimePtr(before.LastContactDate, after.LastContactDate) {
		changed = append(changed, "lastContactDate")
	}
	return changed
}

func equalStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalFloatPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
