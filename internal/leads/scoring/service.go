package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"realtorbuddy_backend/internal/events"
	"realtorbuddy_backend/internal/leads/repository"
	"realtorbuddy_backend/platform/logger"
)

// Repository is the persistence surface the scoring service needs.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	UpdateScore(ctx context.Context, id uuid.UUID, score int, classification repository.Tier, card string, scoredAt time.Time) error
	AppendScoreHistory(ctx context.Context, entry repository.ScoreHistoryEntry) error
}

// Attributes whose change invalidates the persisted score. Changes to
// anything else (contact info, status) leave the score alone.
var watchedFields = map[string]struct{}{
	"budget":          {},
	"timeline":        {},
	"motivation":      {},
	"lenderStatus":    {},
	"lastContactDate": {},
	"responseRate":    {},
}

type Service struct {
	repo Repository
	bus  events.Bus
	log  *logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		bus:  bus,
		log:  log,
		now:  time.Now,
	}
}

// RegisterEventHandlers subscribes the service to the lead lifecycle events
// that should trigger a (re)score.
func (s *Service) RegisterEventHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(s.handleLeadCreated))
	bus.Subscribe(events.LeadUpdated{}.EventName(), events.HandlerFunc(s.handleLeadUpdated))
}

func (s *Service) handleLeadCreated(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadCreated)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	_, err := s.Rescore(ctx, e.LeadID)
	return err
}

func (s *Service) handleLeadUpdated(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadUpdated)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	if !touchesWatchedField(e.ChangedFields) {
		return nil
	}
	_, err := s.Rescore(ctx, e.LeadID)
	return err
}

func touchesWatchedField(changed []string) bool {
	for _, f := range changed {
		if _, ok := watchedFields[f]; ok {
			return true
		}
	}
	return false
}

// Rescore evaluates the lead's current attributes, persists the derived
// fields and the history entry, and announces the new score.
func (s *Service) Rescore(ctx context.Context, leadID uuid.UUID) (Result, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return Result{}, fmt.Errorf("load lead for scoring: %w", err)
	}

	now := s.now()
	result := Score(SnapshotFromLead(lead), now)

	if err := s.repo.UpdateScore(ctx, leadID, result.Score, result.Classification, result.Explanation, now); err != nil {
		return Result{}, fmt.Errorf("persist score: %w", err)
	}

	subScores, err := json.Marshal(result.SubScores)
	if err != nil {
		return Result{}, fmt.Errorf("encode sub-scores: %w", err)
	}
	if err := s.repo.AppendScoreHistory(ctx, repository.ScoreHistoryEntry{
		LeadID:             leadID,
		Score:              result.Score,
		Classification:     result.Classification,
		SubScores:          subScores,
		ExplainabilityCard: result.Explanation,
	}); err != nil {
		// History is an audit trail, not the source of truth. Log and move on.
		s.log.DatabaseError("append score history", err)
	}

	s.log.LeadScored(leadID.String(), result.Score, string(result.Classification))

	s.bus.Publish(ctx, events.LeadScored{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         leadID,
		Score:          result.Score,
		Classification: string(result.Classification),
	})

	return result, nil
}

// SnapshotFromLead projects the scoring inputs out of a lead row.
func SnapshotFromLead(lead repository.Lead) Snapshot {
	return Snapshot{
		Budget:          lead.Budget,
		Timeline:        lead.Timeline,
		LenderStatus:    lead.LenderStatus,
		Motivation:      lead.Motivation,
		ResponseRate:    lead.ResponseRate,
		LastContactDate: lead.LastContactDate,
	}
}
