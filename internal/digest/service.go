package digest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"realtorbuddy_backend/internal/leads/repository"
	"realtorbuddy_backend/internal/outreach"
	"realtorbuddy_backend/platform/logger"
)

type UserStore interface {
	ListActiveUsers(ctx context.Context) ([]User, error)
	AppendReport(ctx context.Context, userID uuid.UUID, content string, leadIDs []uuid.UUID, roi ROI, generatedAt time.Time) error
}

type LeadReader interface {
	ListByUserStatuses(ctx context.Context, userID uuid.UUID, statuses []repository.LeadStatus) ([]repository.Lead, error)
	CountClosedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
}

type MessageCounter interface {
	CountByLeadSince(ctx context.Context, userID uuid.UUID, since time.Time) (map[uuid.UUID]int, error)
	CountByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
}

type Service struct {
	users      UserStore
	leads      LeadReader
	messages   MessageCounter
	dispatcher outreach.Dispatcher
	log        *logger.Logger
	now        func() time.Time
}

func NewService(users UserStore, leads LeadReader, messages MessageCounter, dispatcher outreach.Dispatcher, log *logger.Logger) *Service {
	return &Service{
		users:      users,
		leads:      leads,
		messages:   messages,
		dispatcher: dispatcher,
		log:        log,
		now:        time.Now,
	}
}

// Run generates and sends one report per active user. A failure for one user
// is logged and does not block the others.
func (s *Service) Run(ctx context.Context) error {
	users, err := s.users.ListActiveUsers(ctx)
	if err != nil {
		s.log.DatabaseError("list active users", err)
		return err
	}

	for _, user := range users {
		if err := s.reportForUser(ctx, user); err != nil {
			s.log.Error("digest failed", "user_id", user.ID.String(), "error", err.Error())
		}
	}
	return nil
}

func (s *Service) reportForUser(ctx context.Context, user User) error {
	now := s.now()
	weekAgo := now.Add(-7 * 24 * time.Hour)
	monthAgo := now.Add(-30 * 24 * time.Hour)

	leads, err := s.leads.ListByUserStatuses(ctx, user.ID, []repository.LeadStatus{repository.StatusNew, repository.StatusActive})
	if err != nil {
		return err
	}
	interactions, err := s.messages.CountByLeadSince(ctx, user.ID, weekAgo)
	if err != nil {
		return err
	}

	ranked := make([]RankedLead, len(leads))
	for i, lead := range leads {
		ranked[i] = RankedLead{Lead: lead, Engagement: engagementFactor(interactions[lead.ID])}
	}
	top5 := rankTop5(ranked)

	messages, err := s.messages.CountByUserSince(ctx, user.ID, monthAgo)
	if err != nil {
		return err
	}
	deals, err := s.leads.CountClosedSince(ctx, user.ID, monthAgo)
	if err != nil {
		return err
	}
	roi := computeROI(messages, deals)

	content := buildReport(top5, roi, now.Format("1/2/2006"))
	subject := "Daily Top 5 Leads - " + now.Format("1/2/2006")

	channel := repository.ChannelWhatsApp
	dest := user.Phone
	if user.PreferredChannel == string(repository.ChannelEmail) {
		channel = repository.ChannelEmail
		dest = user.Email
	}
	if err := s.dispatcher.Send(ctx, channel, dest, subject, content); err != nil {
		// The archive still gets the report; delivery problems are operator
		// concerns, not data loss.
		s.log.DispatchFailed(user.ID.String(), string(channel), err)
	}

	leadIDs := make([]uuid.UUID, len(top5))
	for i, rl := range top5 {
		leadIDs[i] = rl.Lead.ID
	}
	return s.users.AppendReport(ctx, user.ID, content, leadIDs, roi, now)
}
