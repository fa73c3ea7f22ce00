package cadence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"realtorbuddy_backend/internal/events"
	"realtorbuddy_backend/internal/leads/repository"
	"realtorbuddy_backend/internal/outreach"
	"realtorbuddy_backend/platform/logger"
)

var runNow = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

type claimCall struct {
	id          uuid.UUID
	version     int64
	nextAction  time.Time
	lastContact *time.Time
}

type fakeLeads struct {
	mu         sync.Mutex
	byTier     map[repository.Tier][]repository.Lead
	claims     []claimCall
	claimDeny  bool
	claimedIDs map[uuid.UUID]bool
}

func (f *fakeLeads) ListActiveByTier(_ context.Context, tier repository.Tier) ([]repository.Lead, error) {
	return f.byTier[tier], nil
}

func (f *fakeLeads) ClaimNextAction(_ context.Context, id uuid.UUID, version int64, nextAction time.Time, lastContact *time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claims = append(f.claims, claimCall{id: id, version: version, nextAction: nextAction, lastContact: lastContact})
	if f.claimDeny {
		return false, nil
	}
	// Mimic the conditional update: only the first claim per lead wins.
	if f.claimedIDs == nil {
		f.claimedIDs = make(map[uuid.UUID]bool)
	}
	if f.claimedIDs[id] {
		return false, nil
	}
	f.claimedIDs[id] = true
	return true, nil
}

type fakeCompliance struct {
	optedOut map[uuid.UUID]bool
}

func (f *fakeCompliance) HasOptOut(_ context.Context, leadID uuid.UUID) (bool, error) {
	return f.optedOut[leadID], nil
}

type fakeOutreach struct {
	mu          sync.Mutex
	records     []outreach.AppendParams
	recentSince map[uuid.UUID]bool
}

func (f *fakeOutreach) Append(_ context.Context, params outreach.AppendParams) (outreach.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, params)
	return outreach.Record{
		ID: uuid.New(), LeadID: params.LeadID, UserID: params.UserID,
		Channel: params.Channel, Status: params.Status, Tier: params.Tier,
	}, nil
}

func (f *fakeOutreach) HasOutboundSince(_ context.Context, leadID uuid.UUID, _ time.Time) (bool, error) {
	return f.recentSince[leadID], nil
}

type fakeDispatcher struct {
	mu    sync.Mutex
	sent  []string
	fail  bool
}

func (f *fakeDispatcher) Send(_ context.Context, _ repository.Channel, destination, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("gateway unreachable")
	}
	f.sent = append(f.sent, destination)
	return nil
}

type nullBus struct{}

func (nullBus) Publish(context.Context, events.Event)            {}
func (nullBus) PublishSync(context.Context, events.Event) error  { return nil }
func (nullBus) Subscribe(string, events.Handler)                 {}

type fixedContent struct{}

func (fixedContent) MarketTrend() string  { return "stable" }
func (fixedContent) FinancingTip() string { return "Consider getting pre-approved before shopping to strengthen your offers" }
func (fixedContent) NewListingsCount() int { return 4 }

type testConfig struct{}

func (testConfig) GetCadenceWorkerCount() int            { return 4 }
func (testConfig) GetCadenceLeadTimeout() time.Duration  { return 5 * time.Second }

func newTestService(leads *fakeLeads, compliance *fakeCompliance, store *fakeOutreach, dispatcher *fakeDispatcher) *Service {
	svc := NewService(leads, compliance, store, dispatcher, fixedContent{}, nullBus{}, logger.New("development"), testConfig{})
	svc.now = func() time.Time { return runNow }
	return svc
}

func activeLead(tier repository.Tier, lastContact *time.Time) repository.Lead {
	return repository.Lead{
		ID:               uuid.New(),
		UserID:           uuid.New(),
		FirstName:        "Jordan",
		Email:            "jordan@example.com",
		Phone:            "+14155550123",
		PreferredChannel: repository.ChannelWhatsApp,
		Budget:           350000,
		Status:           repository.StatusActive,
		Classification:   tier,
		Version:          3,
		LastContactDate:  lastContact,
	}
}

func TestIsDueBoundaries(t *testing.T) {
	threshold := tierThresholds[repository.TierHot]
	cases := []struct {
		name        string
		lastContact *time.Time
		want        bool
	}{
		{"never contacted", nil, true},
		{"exactly two days", timePtr(runNow.Add(-48 * time.Hour)), true},
		{"just under two days", timePtr(runNow.Add(-48*time.Hour + time.Minute)), false},
		{"well past", timePtr(runNow.Add(-10 * 24 * time.Hour)), true},
	}
	for _, tc := range cases {
		lead := activeLead(repository.TierHot, tc.lastContact)
		if got := isDue(lead, threshold, runNow); got != tc.want {
			t.Errorf("%s: isDue = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestOptOutShortCircuits(t *testing.T) {
	lead := activeLead(repository.TierWarm, nil)
	leads := &fakeLeads{byTier: map[repository.Tier][]repository.Lead{repository.TierWarm: {lead}}}
	store := &fakeOutreach{}
	dispatcher := &fakeDispatcher{}
	svc := newTestService(leads, &fakeCompliance{optedOut: map[uuid.UUID]bool{lead.ID: true}}, store, dispatcher)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(store.records) != 0 {
		t.Fatalf("opted-out lead got %d outreach records", len(store.records))
	}
	if len(leads.claims) != 0 {
		t.Fatalf("opted-out lead was claimed")
	}
	if len(dispatcher.sent) != 0 {
		t.Fatalf("opted-out lead was dispatched to")
	}
}

func TestAntiSpamGuard(t *testing.T) {
	lead := activeLead(repository.TierWarm, timePtr(runNow.Add(-10*24*time.Hour)))
	leads := &fakeLeads{byTier: map[repository.Tier][]repository.Lead{repository.TierWarm: {lead}}}
	store := &fakeOutreach{recentSince: map[uuid.UUID]bool{lead.ID: true}}
	dispatcher := &fakeDispatcher{}
	svc := newTestService(leads, &fakeCompliance{}, store, dispatcher)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(store.records) != 0 || len(dispatcher.sent) != 0 {
		t.Fatalf("lead with recent outbound was re-contacted")
	}
}

func TestHotLeadProducesDraft(t *testing.T) {
	lead := activeLead(repository.TierHot, nil)
	leads := &fakeLeads{byTier: map[repository.Tier][]repository.Lead{repository.TierHot: {lead}}}
	store := &fakeOutreach{}
	dispatcher := &fakeDispatcher{}
	svc := newTestService(leads, &fakeCompliance{}, store, dispatcher)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(dispatcher.sent) != 0 {
		t.Fatalf("hot lead must never be dispatched automatically")
	}
	if len(store.records) != 1 {
		t.Fatalf("expected one draft record, got %d", len(store.records))
	}
	rec := store.records[0]
	if rec.Status != outreach.StatusDraft || !rec.RequiresApproval {
		t.Fatalf("record %+v is not an approval draft", rec)
	}

	if len(leads.claims) != 1 {
		t.Fatalf("expected one claim, got %d", len(leads.claims))
	}
	claim := leads.claims[0]
	if claim.lastContact != nil {
		t.Fatalf("draft must not advance lastContactDate")
	}
	if want := runNow.Add(48 * time.Hour); !claim.nextAction.Equal(want) {
		t.Fatalf("nextAction = %v, want %v", claim.nextAction, want)
	}
	if claim.version != lead.Version {
		t.Fatalf("claim used version %d, want %d", claim.version, lead.Version)
	}
}

func TestWarmLeadDispatched(t *testing.T) {
	lead := activeLead(repository.TierWarm, timePtr(runNow.Add(-8*24*time.Hour)))
	leads := &fakeLeads{byTier: map[repository.Tier][]repository.Lead{repository.TierWarm: {lead}}}
	store := &fakeOutreach{}
	dispatcher := &fakeDispatcher{}
	svc := newTestService(leads, &fakeCompliance{}, store, dispatcher)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(dispatcher.sent) != 1 || dispatcher.sent[0] != lead.Phone {
		t.Fatalf("expected one dispatch to %s, got %v", lead.Phone, dispatcher.sent)
	}
	if len(store.records) != 1 {
		t.Fatalf("expected one record, got %d", len(store.records))
	}
	rec := store.records[0]
	if rec.Status != outreach.StatusSent || rec.RequiresApproval {
		t.Fatalf("record %+v, want auto-sent", rec)
	}

	claim := leads.claims[0]
	if claim.lastContact == nil || !claim.lastContact.Equal(runNow) {
		t.Fatalf("dispatch must set lastContactDate to run time, got %v", claim.lastContact)
	}
	if want := runNow.Add(7 * 24 * time.Hour); !claim.nextAction.Equal(want) {
		t.Fatalf("nextAction = %v, want %v", claim.nextAction, want)
	}
}

func TestDispatchFailureRecordsFailedAndAdvancesCadence(t *testing.T) {
	lead := activeLead(repository.TierNurture, nil)
	leads := &fakeLeads{byTier: map[repository.Tier][]repository.Lead{repository.TierNurture: {lead}}}
	store := &fakeOutreach{}
	dispatcher := &fakeDispatcher{fail: true}
	svc := newTestService(leads, &fakeCompliance{}, store, dispatcher)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(store.records) != 1 || store.records[0].Status != outreach.StatusFailed {
		t.Fatalf("expected one Failed record, got %+v", store.records)
	}
	// The cadence still advances: failure is a normal step, not a retry loop.
	claim := leads.claims[0]
	if want := runNow.Add(30 * 24 * time.Hour); !claim.nextAction.Equal(want) {
		t.Fatalf("nextAction = %v, want %v", claim.nextAction, want)
	}
	if claim.lastContact == nil {
		t.Fatalf("failed dispatch must still set lastContactDate")
	}
}

func TestLostClaimSkipsSilently(t *testing.T) {
	lead := activeLead(repository.TierWarm, nil)
	leads := &fakeLeads{
		byTier:    map[repository.Tier][]repository.Lead{repository.TierWarm: {lead}},
		claimDeny: true,
	}
	store := &fakeOutreach{}
	dispatcher := &fakeDispatcher{}
	svc := newTestService(leads, &fakeCompliance{}, store, dispatcher)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(store.records) != 0 || len(dispatcher.sent) != 0 {
		t.Fatalf("lost claim must not produce records or dispatches")
	}
}

func TestConcurrentRunsProduceOneRecord(t *testing.T) {
	lead := activeLead(repository.TierHot, nil)
	leads := &fakeLeads{byTier: map[repository.Tier][]repository.Lead{repository.TierHot: {lead}}}
	store := &fakeOutreach{}
	dispatcher := &fakeDispatcher{}
	svc := newTestService(leads, &fakeCompliance{}, store, dispatcher)

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.Run(context.Background())
		}()
	}
	wg.Wait()

	if len(store.records) != 1 {
		t.Fatalf("two overlapping runs produced %d records, want exactly 1", len(store.records))
	}
}

func TestNurtureEndToEnd(t *testing.T) {
	// Minimal attributes, never contacted: classified Nurture, and a run with
	// no prior outreach dispatches exactly one message.
	lead := activeLead(repository.TierNurture, nil)
	lead.Budget = 50000
	lead.PreferredChannel = repository.ChannelEmail

	leads := &fakeLeads{byTier: map[repository.Tier][]repository.Lead{repository.TierNurture: {lead}}}
	store := &fakeOutreach{}
	dispatcher := &fakeDispatcher{}
	svc := newTestService(leads, &fakeCompliance{}, store, dispatcher)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(store.records) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(store.records))
	}
	rec := store.records[0]
	if rec.Status != outreach.StatusSent {
		t.Fatalf("nurture follow-up must dispatch, got status %s", rec.Status)
	}
	if rec.Channel != repository.ChannelEmail {
		t.Fatalf("expected email channel, got %s", rec.Channel)
	}
	if dispatcher.sent[0] != lead.Email {
		t.Fatalf("dispatched to %s, want %s", dispatcher.sent[0], lead.Email)
	}
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func TestDispatchPublishesLastContactChange(t *testing.T) {
	lead := activeLead(repository.TierWarm, nil)
	leads := &fakeLeads{byTier: map[repository.Tier][]repository.Lead{repository.TierWarm: {lead}}}
	bus := &recordingBus{}
	svc := NewService(leads, &fakeCompliance{}, &fakeOutreach{}, &fakeDispatcher{}, fixedContent{}, bus, logger.New("development"), testConfig{})
	svc.now = func() time.Time { return runNow }

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var updated *events.LeadUpdated
	for _, e := range bus.events {
		if u, ok := e.(events.LeadUpdated); ok {
			updated = &u
		}
	}
	if updated == nil {
		t.Fatalf("advancing lastContactDate must publish LeadUpdated, events: %v", bus.events)
	}
	if updated.LeadID != lead.ID {
		t.Fatalf("LeadUpdated for %s, want %s", updated.LeadID, lead.ID)
	}
	if len(updated.ChangedFields) != 1 || updated.ChangedFields[0] != "lastContactDate" {
		t.Fatalf("ChangedFields = %v, want [lastContactDate]", updated.ChangedFields)
	}
}

func TestHotDraftDoesNotPublishLeadUpdated(t *testing.T) {
	lead := activeLead(repository.TierHot, nil)
	leads := &fakeLeads{byTier: map[repository.Tier][]repository.Lead{repository.TierHot: {lead}}}
	bus := &recordingBus{}
	svc := NewService(leads, &fakeCompliance{}, &fakeOutreach{}, &fakeDispatcher{}, fixedContent{}, bus, logger.New("development"), testConfig{})
	svc.now = func() time.Time { return runNow }

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, e := range bus.events {
		if _, ok := e.(events.LeadUpdated); ok {
			t.Fatalf("drafting leaves lastContactDate untouched, no LeadUpdated expected")
		}
	}
}

// hangingDispatcher holds the send open until the per-lead budget expires.
type hangingDispatcher struct{}

func (hangingDispatcher) Send(ctx context.Context, _ repository.Channel, _, _, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

// ctxCheckingOutreach refuses writes on an expired context, like pgx would.
type ctxCheckingOutreach struct {
	fakeOutreach
}

func (f *ctxCheckingOutreach) Append(ctx context.Context, params outreach.AppendParams) (outreach.Record, error) {
	if err := ctx.Err(); err != nil {
		return outreach.Record{}, err
	}
	return f.fakeOutreach.Append(ctx, params)
}

type shortTimeoutConfig struct{}

func (shortTimeoutConfig) GetCadenceWorkerCount() int           { return 1 }
func (shortTimeoutConfig) GetCadenceLeadTimeout() time.Duration { return 20 * time.Millisecond }

func TestHungDispatcherStillRecordsFailure(t *testing.T) {
	lead := activeLead(repository.TierWarm, nil)
	leads := &fakeLeads{byTier: map[repository.Tier][]repository.Lead{repository.TierWarm: {lead}}}
	store := &ctxCheckingOutreach{}
	svc := NewService(leads, &fakeCompliance{}, store, hangingDispatcher{}, fixedContent{}, nullBus{}, logger.New("development"), shortTimeoutConfig{})
	svc.now = func() time.Time { return runNow }

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(leads.claims) != 1 {
		t.Fatalf("expected one claim, got %d", len(leads.claims))
	}
	if len(store.records) != 1 {
		t.Fatalf("cadence advanced but the audit trail got %d records, want one Failed record", len(store.records))
	}
	if store.records[0].Status != outreach.StatusFailed {
		t.Fatalf("record status = %s, want %s", store.records[0].Status, outreach.StatusFailed)
	}
}

func timePtr(t time.Time) *time.Time { return &t }

