// Package transport defines the JSON shapes of the leads API.
package transport

import (
	"time"

	"realtorbuddy_backend/internal/leads/repository"
	"realtorbuddy_backend/internal/outreach"
)

type CreateLeadRequest struct {
	FirstName        string  `json:"firstName"`
	LastName         string  `json:"lastName"`
	Email            string  `json:"email"`
	Phone            string  `json:"phone"`
	PreferredChannel string  `json:"preferredChannel"`
	Source           string  `json:"source"`
	Budget           float64 `json:"budget"`
	Timeline         string  `json:"timeline"`
	Motivation       string  `json:"motivation"`
	LenderStatus     string  `json:"lenderStatus"`
	ConsentGiven     bool    `json:"consentGiven"`
}

type UpdateLeadRequest struct {
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone"`
	PreferredChannel string     `json:"preferredChannel"`
	Budget           float64    `json:"budget"`
	Timeline         *string    `json:"timeline"`
	Motivation       *string    `json:"motivation"`
	LenderStatus     string     `json:"lenderStatus"`
	ResponseRate     *float64   `json:"responseRate"`
	LastContactDate  *time.Time `json:"lastContactDate"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type OptOutRequest struct {
	Reason string `json:"reason"`
}

type LeadResponse struct {
	ID                 string     `json:"id"`
	FirstName          string     `json:"firstName"`
	LastName           string     `json:"lastName"`
	Email              string     `json:"email"`
	Phone              string     `json:"phone"`
	PreferredChannel   string     `json:"preferredChannel"`
	Source             string     `json:"source"`
	Budget             float64    `json:"budget"`
	Timeline           *string    `json:"timeline"`
	Motivation         *string    `json:"motivation"`
	LenderStatus       string     `json:"lenderStatus"`
	ResponseRate       *float64   `json:"responseRate"`
	LastContactDate    *time.Time `json:"lastContactDate"`
	Score              int        `json:"score"`
	Classification     string     `json:"classification"`
	ExplainabilityCard *string    `json:"explainabilityCard"`
	LastScoredAt       *time.Time `json:"lastScoredAt"`
	Status             string     `json:"status"`
	NextActionDate     *time.Time `json:"nextActionDate"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

func ToLeadResponse(lead repository.Lead) LeadResponse {
	return LeadResponse{
		ID:                 lead.ID.String(),
		FirstName:          lead.FirstName,
		LastName:           lead.LastName,
		Email:              lead.Email,
		Phone:              lead.Phone,
		PreferredChannel:   string(lead.PreferredChannel),
		Source:             lead.Source,
		Budget:             lead.Budget,
		Timeline:           lead.Timeline,
		Motivation:         lead.Motivation,
		LenderStatus:       string(lead.LenderStatus),
		ResponseRate:       lead.ResponseRate,
		LastContactDate:    lead.LastContactDate,
		Score:              lead.Score,
		Classification:     string(lead.Classification),
		ExplainabilityCard: lead.ExplainabilityCard,
		LastScoredAt:       lead.LastScoredAt,
		Status:             string(lead.Status),
		NextActionDate:     lead.NextActionDate,
		CreatedAt:          lead.CreatedAt,
		UpdatedAt:          lead.UpdatedAt,
	}
}

func ToLeadResponses(leads []repository.Lead) []LeadResponse {
	out := make([]LeadResponse, len(leads))
	for i, lead := range leads {
		out[i] = ToLeadResponse(lead)
	}
	return out
}

type ScoreResponse struct {
	Score              int    `json:"score"`
	Classification     string `json:"classification"`
	ExplainabilityCard string `json:"explainabilityCard"`
}

type MessageLogResponse struct {
	ID               string    `json:"id"`
	LeadID           string    `json:"leadId"`
	Channel          string    `json:"channel"`
	Subject          string    `json:"subject"`
	Content          string    `json:"content"`
	Direction        string    `json:"direction"`
	Status           string    `json:"status"`
	Tier             string    `json:"tier"`
	RequiresApproval bool      `json:"requiresApproval"`
	CreatedAt        time.Time `json:"createdAt"`
}

func ToMessageLogResponses(records []outreach.Record) []MessageLogResponse {
	out := make([]MessageLogResponse, len(records))
	for i, rec := range records {
		out[i] = MessageLogResponse{
			ID:               rec.ID.String(),
			LeadID:           rec.LeadID.String(),
			Channel:          string(rec.Channel),
			Subject:          rec.Subject,
			Content:          rec.Content,
			Direction:        string(rec.Direction),
			Status:           string(rec.Status),
			Tier:             string(rec.Tier),
			RequiresApproval: rec.RequiresApproval,
			CreatedAt:        rec.CreatedAt,
		}
	}
	return out
}
