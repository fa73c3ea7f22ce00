package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"realtorbuddy_backend/internal/events"
	"realtorbuddy_backend/internal/leads/repository"
	"realtorbuddy_backend/platform/logger"
)

type fakeRepo struct {
	lead         repository.Lead
	scoreUpdates int
	lastScore    int
	lastTier     repository.Tier
	lastCard     string
	history      []repository.ScoreHistoryEntry
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	lead := f.lead
	lead.ID = id
	return lead, nil
}

func (f *fakeRepo) UpdateScore(_ context.Context, _ uuid.UUID, score int, tier repository.Tier, card string, _ time.Time) error {
	f.scoreUpdates++
	f.lastScore = score
	f.lastTier = tier
	f.lastCard = card
	return nil
}

func (f *fakeRepo) AppendScoreHistory(_ context.Context, entry repository.ScoreHistoryEntry) error {
	f.history = append(f.history, entry)
	return nil
}

type capturingBus struct {
	published []events.Event
}

func (b *capturingBus) Publish(_ context.Context, event events.Event)          { b.published = append(b.published, event) }
func (b *capturingBus) PublishSync(_ context.Context, event events.Event) error { b.published = append(b.published, event); return nil }
func (b *capturingBus) Subscribe(string, events.Handler)                        {}

func newTestService(repo *fakeRepo, bus *capturingBus) *Service {
	svc := NewService(repo, bus, logger.New("development"))
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestRescorePersistsAndPublishes(t *testing.T) {
	repo := &fakeRepo{lead: repository.Lead{
		Budget:       600000,
		Timeline:     strPtr("immediate"),
		LenderStatus: repository.LenderPreApproved,
	}}
	bus := &capturingBus{}
	svc := newTestService(repo, bus)

	result, err := svc.Rescore(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Rescore: %v", err)
	}
	if repo.scoreUpdates != 1 {
		t.Fatalf("expected one score update, got %d", repo.scoreUpdates)
	}
	if repo.lastTier != repository.TierHot {
		t.Fatalf("persisted tier %s, want Hot", repo.lastTier)
	}
	if repo.lastCard != result.Explanation {
		t.Fatalf("persisted card %q differs from result %q", repo.lastCard, result.Explanation)
	}
	if len(repo.history) != 1 {
		t.Fatalf("expected one history entry, got %d", len(repo.history))
	}

	if len(bus.published) != 1 {
		t.Fatalf("expected one published event, got %d", len(bus.published))
	}
	scored, ok := bus.published[0].(events.LeadScored)
	if !ok {
		t.Fatalf("published %T, want LeadScored", bus.published[0])
	}
	if scored.Score != result.Score || scored.Classification != string(result.Classification) {
		t.Fatalf("event %+v does not match result %+v", scored, result)
	}
}

func TestLeadUpdatedTriggersOnlyForWatchedFields(t *testing.T) {
	cases := []struct {
		name     string
		fields   []string
		rescored bool
	}{
		{"budget change", []string{"budget"}, true},
		{"timeline change", []string{"timeline"}, true},
		{"lender change", []string{"lenderStatus"}, true},
		{"contact info only", []string{"email", "phone"}, false},
		{"mixed", []string{"email", "motivation"}, true},
		{"none", nil, false},
	}
	for _, tc := range cases {
		repo := &fakeRepo{lead: repository.Lead{Budget: 250000}}
		svc := newTestService(repo, &capturingBus{})

		err := svc.handleLeadUpdated(context.Background(), events.LeadUpdated{
			BaseEvent:     events.NewBaseEvent(),
			LeadID:        uuid.New(),
			ChangedFields: tc.fields,
		})
		if err != nil {
			t.Fatalf("%s: handleLeadUpdated: %v", tc.name, err)
		}
		if got := repo.scoreUpdates > 0; got != tc.rescored {
			t.Errorf("%s: rescored=%v, want %v", tc.name, got, tc.rescored)
		}
	}
}

func TestLeadCreatedTriggersRescore(t *testing.T) {
	repo := &fakeRepo{lead: repository.Lead{Budget: 250000}}
	svc := newTestService(repo, &capturingBus{})

	err := svc.handleLeadCreated(context.Background(), events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    uuid.New(),
	})
	if err != nil {
		t.Fatalf("handleLeadCreated: %v", err)
	}
	if repo.scoreUpdates != 1 {
		t.Fatalf("expected one score update, got %d", repo.scoreUpdates)
	}
}
