package management

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"realtorbuddy_backend/internal/compliance"
	"realtorbuddy_backend/internal/events"
	"realtorbuddy_backend/internal/leads/repository"
	"realtorbuddy_backend/platform/apperr"
	"realtorbuddy_backend/platform/logger"
)

type fakeRepo struct {
	lead     repository.Lead
	optedOut []uuid.UUID
	statuses []repository.LeadStatus
}

func (f *fakeRepo) GetByIDForUser(_ context.Context, id, _ uuid.UUID) (repository.Lead, error) {
	lead := f.lead
	lead.ID = id
	return lead, nil
}

func (f *fakeRepo) ListByUser(context.Context, uuid.UUID) ([]repository.Lead, error) {
	return []repository.Lead{f.lead}, nil
}

func (f *fakeRepo) Update(_ context.Context, id, _ uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error) {
	lead := f.lead
	lead.ID = id
	lead.FirstName = params.FirstName
	lead.Budget = params.Budget
	lead.Timeline = params.Timeline
	return lead, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id, _ uuid.UUID, status repository.LeadStatus) (repository.Lead, error) {
	f.statuses = append(f.statuses, status)
	lead := f.lead
	lead.ID = id
	lead.Status = status
	return lead, nil
}

func (f *fakeRepo) MarkOptedOut(_ context.Context, id uuid.UUID) error {
	f.optedOut = append(f.optedOut, id)
	return nil
}

type fakeCompliance struct {
	appended []compliance.EventType
}

func (f *fakeCompliance) Append(_ context.Context, _ uuid.UUID, eventType compliance.EventType, _ json.RawMessage) error {
	f.appended = append(f.appended, eventType)
	return nil
}

type capturingBus struct {
	published []events.Event
}

func (b *capturingBus) Publish(_ context.Context, e events.Event)           { b.published = append(b.published, e) }
func (b *capturingBus) PublishSync(_ context.Context, e events.Event) error { b.published = append(b.published, e); return nil }
func (b *capturingBus) Subscribe(string, events.Handler)                    {}

func baseLead() repository.Lead {
	timeline := "60 days"
	return repository.Lead{
		FirstName:        "Noor",
		LastName:         "Haddad",
		Email:            "noor@example.com",
		Phone:            "+14155550188",
		PreferredChannel: repository.ChannelWhatsApp,
		Budget:           280000,
		Timeline:         &timeline,
		LenderStatus:     repository.LenderPreQualified,
		Status:           repository.StatusActive,
	}
}

func baseInput(lead repository.Lead) UpdateInput {
	return UpdateInput{
		FirstName:        lead.FirstName,
		LastName:         lead.LastName,
		Email:            lead.Email,
		Phone:            lead.Phone,
		PreferredChannel: string(lead.PreferredChannel),
		Budget:           lead.Budget,
		Timeline:         lead.Timeline,
		Motivation:       lead.Motivation,
		LenderStatus:     string(lead.LenderStatus),
		ResponseRate:     lead.ResponseRate,
		LastContactDate:  lead.LastContactDate,
	}
}

func TestUpdatePublishesChangedFields(t *testing.T) {
	repo := &fakeRepo{lead: baseLead()}
	bus := &capturingBus{}
	svc := NewService(repo, &fakeCompliance{}, bus, logger.New("development"))

	input := baseInput(repo.lead)
	input.Budget = 520000
	newTimeline := "30 days"
	input.Timeline = &newTimeline

	if _, err := svc.Update(context.Background(), uuid.New(), uuid.New(), input); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if len(bus.published) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.published))
	}
	updated := bus.published[0].(events.LeadUpdated)
	want := map[string]bool{"budget": true, "timeline": true}
	if len(updated.ChangedFields) != len(want) {
		t.Fatalf("ChangedFields = %v, want budget and timeline", updated.ChangedFields)
	}
	for _, f := range updated.ChangedFields {
		if !want[f] {
			t.Fatalf("unexpected changed field %q", f)
		}
	}
}

func TestUpdateWithoutChangesStaysQuiet(t *testing.T) {
	repo := &fakeRepo{lead: baseLead()}
	bus := &capturingBus{}
	svc := NewService(repo, &fakeCompliance{}, bus, logger.New("development"))

	if _, err := svc.Update(context.Background(), uuid.New(), uuid.New(), baseInput(repo.lead)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(bus.published) != 0 {
		t.Fatalf("no-op update published %d events", len(bus.published))
	}
}

func TestUpdateStatusRejectsGuardedStates(t *testing.T) {
	repo := &fakeRepo{lead: baseLead()}
	svc := NewService(repo, &fakeCompliance{}, &capturingBus{}, logger.New("development"))

	for _, status := range []repository.LeadStatus{repository.StatusOptedOut, repository.StatusDuplicate} {
		_, err := svc.UpdateStatus(context.Background(), uuid.New(), uuid.New(), status)
		if apperr.GetKind(err) != apperr.KindValidation {
			t.Errorf("status %s: expected validation error, got %v", status, err)
		}
	}
	if len(repo.statuses) != 0 {
		t.Fatalf("guarded status was persisted")
	}

	if _, err := svc.UpdateStatus(context.Background(), uuid.New(), uuid.New(), repository.StatusClosed); err != nil {
		t.Fatalf("UpdateStatus(Closed): %v", err)
	}
}

func TestOptOutRecordsComplianceFirst(t *testing.T) {
	repo := &fakeRepo{lead: baseLead()}
	comp := &fakeCompliance{}
	bus := &capturingBus{}
	svc := NewService(repo, comp, bus, logger.New("development"))

	leadID := uuid.New()
	if err := svc.OptOut(context.Background(), leadID, uuid.New(), "sms STOP"); err != nil {
		t.Fatalf("OptOut: %v", err)
	}

	if len(comp.appended) != 1 || comp.appended[0] != compliance.EventOptOut {
		t.Fatalf("compliance events = %v", comp.appended)
	}
	if len(repo.optedOut) != 1 || repo.optedOut[0] != leadID {
		t.Fatalf("lead not marked opted out: %v", repo.optedOut)
	}
	if len(bus.published) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.published))
	}
	if _, ok := bus.published[0].(events.LeadOptedOut); !ok {
		t.Fatalf("published %T, want LeadOptedOut", bus.published[0])
	}
}
