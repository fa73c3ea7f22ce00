package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"realtorbuddy_backend/internal/leads/intake"
	"realtorbuddy_backend/internal/leads/management"
	"realtorbuddy_backend/internal/leads/repository"
	"realtorbuddy_backend/internal/leads/scoring"
	"realtorbuddy_backend/internal/leads/transport"
	"realtorbuddy_backend/internal/outreach"
	"realtorbuddy_backend/platform/httpkit"
)

const msgInvalidRequest = "invalid request"

// MessageLogReader exposes the outreach log to the API.
type MessageLogReader interface {
	ListByLead(ctx context.Context, leadID, userID uuid.UUID) ([]outreach.Record, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]outreach.Record, error)
}

type Handler struct {
	intake     *intake.Service
	management *management.Service
	scoring    *scoring.Service
	logs       MessageLogReader
}

func New(intakeSvc *intake.Service, managementSvc *management.Service, scoringSvc *scoring.Service, logs MessageLogReader) *Handler {
	return &Handler{
		intake:     intakeSvc,
		management: managementSvc,
		scoring:    scoringSvc,
		logs:       logs,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	leads := rg.Group("/leads")
	leads.GET("", h.List)
	leads.POST("", h.Create)
	leads.GET("/:id", h.GetByID)
	leads.PUT("/:id", h.Update)
	leads.PATCH("/:id/status", h.UpdateStatus)
	leads.POST("/:id/rescore", h.Rescore)
	leads.POST("/:id/opt-out", h.OptOut)
	leads.GET("/:id/logs", h.ListLeadLogs)

	rg.GET("/logs", h.ListLogs)
}

func (h *Handler) Create(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.intake.Process(c.Request.Context(), userID, intake.Input{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		Phone:            req.Phone,
		PreferredChannel: req.PreferredChannel,
		Source:           req.Source,
		Budget:           req.Budget,
		Timeline:         req.Timeline,
		Motivation:       req.Motivation,
		LenderStatus:     req.LenderStatus,
		ConsentGiven:     req.ConsentGiven,
	})
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToLeadResponse(lead))
}

func (h *Handler) List(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	leads, err := h.management.List(c.Request.Context(), userID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, transport.ToLeadResponses(leads))
}

func (h *Handler) GetByID(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.management.Get(c.Request.Context(), id, userID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) Update(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.management.Update(c.Request.Context(), id, userID, management.UpdateInput{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		Phone:            req.Phone,
		PreferredChannel: req.PreferredChannel,
		Budget:           req.Budget,
		Timeline:         req.Timeline,
		Motivation:       req.Motivation,
		LenderStatus:     req.LenderStatus,
		ResponseRate:     req.ResponseRate,
		LastContactDate:  req.LastContactDate,
	})
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.management.UpdateStatus(c.Request.Context(), id, userID, repository.LeadStatus(req.Status))
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// Rescore forces a scoring pass outside the event-driven triggers. Useful
// after imports and for operator corrections.
func (h *Handler) Rescore(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	// Ownership check before scoring touches the lead.
	if _, err := h.management.Get(c.Request.Context(), id, userID); err != nil {
		httpkit.DomainError(c, err)
		return
	}

	result, err := h.scoring.Rescore(c.Request.Context(), id)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, transport.ScoreResponse{
		Score:              result.Score,
		Classification:     string(result.Classification),
		ExplainabilityCard: result.Explanation,
	})
}

func (h *Handler) OptOut(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.OptOutRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.management.OptOut(c.Request.Context(), id, userID, req.Reason); err != nil {
		httpkit.DomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ListLeadLogs(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	records, err := h.logs.ListByLead(c.Request.Context(), id, userID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, transport.ToMessageLogResponses(records))
}

func (h *Handler) ListLogs(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	records, err := h.logs.ListByUser(c.Request.Context(), userID, 100)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, transport.ToMessageLogResponses(records))
}

func callerID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(httpkit.ContextUserIDKey)
	if !exists {
		httpkit.Error(c, http.StatusUnauthorized, "unauthorized", nil)
		c.Abort()
		return uuid.Nil, false
	}
	raw, _ := value.(string)
	userID, err := uuid.Parse(raw)
	if err != nil {
		httpkit.Error(c, http.StatusUnauthorized, "unauthorized", nil)
		c.Abort()
		return uuid.Nil, false
	}
	return userID, true
}
