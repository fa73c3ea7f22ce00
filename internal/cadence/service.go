// Package cadence runs the outreach scheduler. Each run selects stale active
// leads per tier, walks them through the guard chain, claims them with a
// conditional update and either drafts (Hot) or dispatches (Warm, Nurture)
// a follow-up.
package cadence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"realtorbuddy_backend/internal/events"
	"realtorbuddy_backend/internal/leads/repository"
	"realtorbuddy_backend/internal/outreach"
	"realtorbuddy_backend/platform/logger"
)

// Per-tier staleness thresholds. A lead becomes a candidate once this much
// time has passed since its last contact.
var tierThresholds = map[repository.Tier]time.Duration{
	repository.TierHot:     2 * 24 * time.Hour,
	repository.TierWarm:    7 * 24 * time.Hour,
	repository.TierNurture: 30 * 24 * time.Hour,
}

const antiSpamWindow = 24 * time.Hour

// recordTimeout bounds the audit-trail insert separately from the per-lead
// budget, which a hung dispatcher may have fully consumed.
const recordTimeout = 10 * time.Second

// LeadStore is the lead persistence surface the scheduler needs.
type LeadStore interface {
	ListActiveByTier(ctx context.Context, tier repository.Tier) ([]repository.Lead, error)
	ClaimNextAction(ctx context.Context, id uuid.UUID, expectedVersion int64, nextAction time.Time, lastContact *time.Time) (bool, error)
}

// ComplianceReader answers the opt-out guard.
type ComplianceReader interface {
	HasOptOut(ctx context.Context, leadID uuid.UUID) (bool, error)
}

// OutreachStore records outreach and answers the anti-spam guard.
type OutreachStore interface {
	Append(ctx context.Context, params outreach.AppendParams) (outreach.Record, error)
	HasOutboundSince(ctx context.Context, leadID uuid.UUID, since time.Time) (bool, error)
}

type Config interface {
	GetCadenceWorkerCount() int
	GetCadenceLeadTimeout() time.Duration
}

type Service struct {
	leads       LeadStore
	compliance  ComplianceReader
	outreach    OutreachStore
	dispatcher  outreach.Dispatcher
	content     ContentProvider
	bus         events.Bus
	log         *logger.Logger
	workers     int
	leadTimeout time.Duration
	now         func() time.Time
}

func NewService(
	leads LeadStore,
	compliance ComplianceReader,
	outreachStore OutreachStore,
	dispatcher outreach.Dispatcher,
	content ContentProvider,
	bus events.Bus,
	log *logger.Logger,
	cfg Config,
) *Service {
	return &Service{
		leads:       leads,
		compliance:  compliance,
		outreach:    outreachStore,
		dispatcher:  dispatcher,
		content:     content,
		bus:         bus,
		log:         log,
		workers:     cfg.GetCadenceWorkerCount(),
		leadTimeout: cfg.GetCadenceLeadTimeout(),
		now:         time.Now,
	}
}

// Run executes one complete cadence batch. Candidates are processed
// concurrently and independently; no single lead's failure aborts the batch,
// so Run only returns an error when it cannot list candidates at all.
func (s *Service) Run(ctx context.Context) error {
	now := s.now()

	type candidate struct {
		lead repository.Lead
		tier repository.Tier
	}
	var candidates []candidate

	for _, tier := range repository.Tiers {
		leads, err := s.leads.ListActiveByTier(ctx, tier)
		if err != nil {
			s.log.DatabaseError("list cadence candidates", err)
			continue
		}
		threshold := tierThresholds[tier]
		for _, lead := range leads {
			if isDue(lead, threshold, now) {
				candidates = append(candidates, candidate{lead: lead, tier: tier})
			}
		}
	}

	s.log.Info("cadence run", "candidates", len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, c := range candidates {
		g.Go(func() error {
			s.processLead(gctx, c.lead, c.tier, now)
			return nil
		})
	}
	return g.Wait()
}

// isDue reports whether the lead is stale enough for its tier. A lead that
// was never contacted is always due.
func isDue(lead repository.Lead, threshold time.Duration, now time.Time) bool {
	if lead.LastContactDate == nil {
		return true
	}
	return now.Sub(*lead.LastContactDate) >= threshold
}

// processLead walks one candidate through guards, claim and routing. Every
// failure is logged and swallowed; siblings in the batch are unaffected.
func (s *Service) processLead(ctx context.Context, lead repository.Lead, tier repository.Tier, now time.Time) {
	ctx, cancel := context.WithTimeout(ctx, s.leadTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("cadence panic", "lead_id", lead.ID.String(), "panic", r)
		}
	}()

	optedOut, err := s.compliance.HasOptOut(ctx, lead.ID)
	if err != nil {
		s.log.DatabaseError("opt-out guard", err)
		return
	}
	if optedOut {
		s.log.OutreachSkipped(lead.ID.String(), "opted out")
		return
	}

	contacted, err := s.outreach.HasOutboundSince(ctx, lead.ID, now.Add(-antiSpamWindow))
	if err != nil {
		s.log.DatabaseError("anti-spam guard", err)
		return
	}
	if contacted {
		s.log.OutreachSkipped(lead.ID.String(), "outbound within anti-spam window")
		return
	}

	if tier == repository.TierHot {
		s.draftFollowUp(ctx, lead, now)
		return
	}
	s.dispatchFollowUp(ctx, lead, tier, now)
}

// draftFollowUp creates a Draft record for human approval. No dispatch
// happens and lastContactDate stays untouched until the draft is acted on.
func (s *Service) draftFollowUp(ctx context.Context, lead repository.Lead, now time.Time) {
	nextAction := now.Add(tierThresholds[repository.TierHot])
	claimed, err := s.leads.ClaimNextAction(ctx, lead.ID, lead.Version, nextAction, nil)
	if err != nil {
		s.log.DatabaseError("claim hot lead", err)
		return
	}
	if !claimed {
		s.log.OutreachSkipped(lead.ID.String(), "claimed by concurrent run")
		return
	}

	msg := Compose(lead, repository.TierHot, s.content)
	s.appendRecord(ctx, lead, repository.TierHot, msg, outreach.StatusDraft, true)
}

// dispatchFollowUp sends the composed message for Warm and Nurture leads.
// Delivery failure downgrades the record to Failed; the cadence still
// advances so a broken channel cannot tighten the contact loop.
func (s *Service) dispatchFollowUp(ctx context.Context, lead repository.Lead, tier repository.Tier, now time.Time) {
	nextAction := now.Add(tierThresholds[tier])
	claimed, err := s.leads.ClaimNextAction(ctx, lead.ID, lead.Version, nextAction, &now)
	if err != nil {
		s.log.DatabaseError("claim lead", err)
		return
	}
	if !claimed {
		s.log.OutreachSkipped(lead.ID.String(), "claimed by concurrent run")
		return
	}

	msg := Compose(lead, tier, s.content)
	channel := preferredChannel(lead)

	// The claim advanced lastContactDate, which the scoring engine watches
	// for the recency bonus.
	s.bus.Publish(ctx, events.LeadUpdated{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        lead.ID,
		UserID:        lead.UserID,
		ChangedFields: []string{"lastContactDate"},
	})

	status := outreach.StatusSent
	if err := s.dispatcher.Send(ctx, channel, destination(lead, channel), msg.Subject, msg.Content); err != nil {
		s.log.DispatchFailed(lead.ID.String(), string(channel), err)
		status = outreach.StatusFailed
	}

	s.appendRecord(ctx, lead, tier, msg, status, false)
}

func (s *Service) appendRecord(ctx context.Context, lead repository.Lead, tier repository.Tier, msg Message, status outreach.Status, requiresApproval bool) {
	// A dispatch that burned the whole per-lead budget must not also cost
	// the record of the attempt.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	channel := preferredChannel(lead)
	rec, err := s.outreach.Append(ctx, outreach.AppendParams{
		LeadID:           lead.ID,
		UserID:           lead.UserID,
		Channel:          channel,
		Subject:          msg.Subject,
		Content:          msg.Content,
		Direction:        outreach.DirectionOutbound,
		Status:           status,
		Tier:             tier,
		RequiresApproval: requiresApproval,
	})
	if err != nil {
		s.log.DatabaseError("append outreach record", err)
		return
	}

	s.bus.Publish(ctx, events.OutreachRecorded{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    rec.LeadID,
		Channel:   string(rec.Channel),
		Status:    string(rec.Status),
		Tier:      string(rec.Tier),
	})
}

func preferredChannel(lead repository.Lead) repository.Channel {
	if lead.PreferredChannel == repository.ChannelEmail {
		return repository.ChannelEmail
	}
	return repository.ChannelWhatsApp
}

func destination(lead repository.Lead, channel repository.Channel) string {
	if channel == repository.ChannelEmail {
		return lead.Email
	}
	return lead.Phone
}
