package repository

import (
	"time"

	"github.com/google/uuid"
)

// Tier is the priority classification produced by the scoring engine.
type Tier string

const (
	TierHot     Tier = "Hot"
	TierWarm    Tier = "Warm"
	TierNurture Tier = "Nurture"
)

// Tiers lists all tiers in priority order, highest first.
var Tiers = []Tier{TierHot, TierWarm, TierNurture}

// LenderStatus describes how far along a lead is with financing.
type LenderStatus string

const (
	LenderPreApproved          LenderStatus = "Pre-Approved"
	LenderPreQualified         LenderStatus = "Pre-Qualified"
	LenderApplicationSubmitted LenderStatus = "Application Submitted"
	LenderNotApplied           LenderStatus = "Not Applied"
	LenderUnknown              LenderStatus = "Unknown"
)

// LeadStatus is the lead lifecycle state. Active leads participate in the
// cadence; the intake states precede activation.
type LeadStatus string

const (
	StatusNew        LeadStatus = "New"
	StatusIncomplete LeadStatus = "Incomplete"
	StatusDuplicate  LeadStatus = "Duplicate"
	StatusActive     LeadStatus = "Active"
	StatusOptedOut   LeadStatus = "OptedOut"
	StatusClosed     LeadStatus = "Closed"
)

// Channel identifies how a lead prefers to be contacted.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
)

// Lead is the central entity. The scoring engine writes only the derived
// fields (Score, Classification, ExplainabilityCard, LastScoredAt) and the
// cadence scheduler writes only LastContactDate, NextActionDate and Version.
type Lead struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	PreferredChannel Channel
	Source           string

	// Raw scoring attributes, owned by the lead's user.
	Budget          float64
	Timeline        *string
	Motivation      *string
	LenderStatus    LenderStatus
	ResponseRate    *float64
	LastContactDate *time.Time

	// Derived attributes, written only by the scoring engine.
	Score              int
	Classification     Tier
	ExplainabilityCard *string
	LastScoredAt       *time.Time

	Status         LeadStatus
	NextActionDate *time.Time
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FullName returns the lead's display name.
func (l Lead) FullName() string {
	if l.LastName == "" {
		return l.FirstName
	}
	return l.FirstName + " " + l.LastName
}

// ScoreHistoryEntry is one audit record per scoring pass.
type ScoreHistoryEntry struct {
	ID                 uuid.UUID
	LeadID             uuid.UUID
	Score              int
	Classification     Tier
	SubScores          []byte // JSON breakdown per factor
	ExplainabilityCard string
	CreatedAt          time.Time
}
