// Package intake standardizes incoming leads. New leads arrive from manual
// entry, chatbot conversations or imports; intake validates the mandatory
// fields, normalizes contact details, detects duplicates and records the
// compliance trail before the lead enters scoring.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"realtorbuddy_backend/internal/compliance"
	"realtorbuddy_backend/internal/events"
	"realtorbuddy_backend/internal/leads/repository"
	"realtorbuddy_backend/platform/apperr"
	"realtorbuddy_backend/platform/logger"
	"realtorbuddy_backend/platform/phone"
	"realtorbuddy_backend/platform/validator"
)

type Repository interface {
	Create(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error)
	FindByEmailOrPhone(ctx context.Context, email, phoneNumber string) (*repository.Lead, error)
}

type ComplianceWriter interface {
	Append(ctx context.Context, leadID uuid.UUID, eventType compliance.EventType, details json.RawMessage) error
}

// Input is a raw incoming lead before normalization.
type Input struct {
	FirstName        string  `validate:"required"`
	LastName         string  `validate:"required"`
	Email            string  `validate:"required,email"`
	Phone            string  `validate:"omitempty,min=7"`
	PreferredChannel string  `validate:"omitempty,oneof=whatsapp email"`
	Source           string  `validate:"omitempty,max=100"`
	Budget           float64 `validate:"required,gt=0"`
	Timeline         string  `validate:"required"`
	Motivation       string
	LenderStatus     string `validate:"omitempty,oneof=Pre-Approved Pre-Qualified 'Application Submitted' 'Not Applied' Unknown"`
	ConsentGiven     bool
}

type Service struct {
	repo       Repository
	compliance ComplianceWriter
	bus        events.Bus
	validate   *validator.Validator
	log        *logger.Logger
}

func NewService(repo Repository, complianceWriter ComplianceWriter, bus events.Bus, validate *validator.Validator, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		compliance: complianceWriter,
		bus:        bus,
		validate:   validate,
		log:        log,
	}
}

// Process validates and normalizes one incoming lead for the given owner.
// Invalid input returns a Validation error; a duplicate is stored with
// Duplicate status and returned without error so the caller sees the merge
// target. Valid new leads are stored with status New and announced on the
// bus, which triggers the first scoring pass.
func (s *Service) Process(ctx context.Context, userID uuid.UUID, input Input) (repository.Lead, error) {
	if err := s.validate.Struct(input); err != nil {
		return repository.Lead{}, apperr.Wrap(apperr.KindValidation, "lead intake validation failed", err)
	}

	params := normalize(userID, input)

	existing, err := s.repo.FindByEmailOrPhone(ctx, params.Email, params.Phone)
	if err != nil {
		return repository.Lead{}, fmt.Errorf("duplicate check: %w", err)
	}
	if existing != nil {
		params.Status = repository.StatusDuplicate
		lead, err := s.repo.Create(ctx, params)
		if err != nil {
			return repository.Lead{}, fmt.Errorf("store duplicate lead: %w", err)
		}
		s.log.Info("duplicate lead detected",
			"lead_id", lead.ID.String(),
			"merged_with", existing.ID.String(),
		)
		return lead, nil
	}

	lead, err := s.repo.Create(ctx, params)
	if err != nil {
		return repository.Lead{}, fmt.Errorf("store lead: %w", err)
	}

	details, _ := json.Marshal(map[string]any{
		"source":        lead.Source,
		"consent_given": input.ConsentGiven,
	})
	if err := s.compliance.Append(ctx, lead.ID, compliance.EventLeadIntake, details); err != nil {
		s.log.DatabaseError("record intake compliance event", err)
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		UserID:    userID,
		Source:    lead.Source,
	})

	return lead, nil
}

func normalize(userID uuid.UUID, input Input) repository.CreateLeadParams {
	channel := repository.Channel(input.PreferredChannel)
	if channel == "" {
		channel = repository.ChannelWhatsApp
	}
	lender := repository.LenderStatus(input.LenderStatus)
	if lender == "" {
		lender = repository.LenderUnknown
	}
	source := strings.TrimSpace(input.Source)
	if source == "" {
		source = "Manual"
	}

	params := repository.CreateLeadParams{
		UserID:           userID,
		FirstName:        strings.TrimSpace(input.FirstName),
		LastName:         strings.TrimSpace(input.LastName),
		Email:            strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:            phone.NormalizeE164(input.Phone),
		PreferredChannel: channel,
		Source:           source,
		Budget:           input.Budget,
		LenderStatus:     lender,
		Status:           repository.StatusNew,
	}
	if t := strings.TrimSpace(input.Timeline); t != "" {
		params.Timeline = &t
	}
	if m := strings.TrimSpace(input.Motivation); m != "" {
		params.Motivation = &m
	}
	return params
}
