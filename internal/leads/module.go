// Package leads provides the lead prioritization bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"realtorbuddy_backend/internal/compliance"
	"realtorbuddy_backend/internal/events"
	apphttp "realtorbuddy_backend/internal/http"
	"realtorbuddy_backend/internal/leads/handler"
	"realtorbuddy_backend/internal/leads/intake"
	"realtorbuddy_backend/internal/leads/management"
	"realtorbuddy_backend/internal/leads/repository"
	"realtorbuddy_backend/internal/leads/scoring"
	"realtorbuddy_backend/internal/outreach"
	"realtorbuddy_backend/platform/logger"
	"realtorbuddy_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	intake     *intake.Service
	management *management.Service
	scoring    *scoring.Service
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	// Shared repositories
	repo := repository.New(pool)
	complianceRepo := compliance.NewRepository(pool)
	outreachRepo := outreach.NewRepository(pool)

	// Focused services (vertical slices)
	intakeSvc := intake.NewService(repo, complianceRepo, eventBus, val, log)
	managementSvc := management.NewService(repo, complianceRepo, eventBus, log)
	scoringSvc := scoring.NewService(repo, eventBus, log)

	// Scoring reacts to lead lifecycle events (intake and profile updates).
	scoringSvc.RegisterEventHandlers(eventBus)

	h := handler.New(intakeSvc, managementSvc, scoringSvc, outreachRepo)

	return &Module{
		handler:    h,
		intake:     intakeSvc,
		management: managementSvc,
		scoring:    scoringSvc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// ScoringService returns the scoring service for external use.
func (m *Module) ScoringService() *scoring.Service {
	return m.scoring
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// All leads routes require an authenticated owner
	m.handler.RegisterRoutes(ctx.Protected)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
