package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/ai-travel-planner/internal/domain/planner"
	"github.com/yanqian/ai-travel-planner/internal/infra/config"
)

const documentFilename = "itinerary.pdf"

// Handler wires the HTTP transport to the planner service.
type Handler struct {
	plannerSvc planner.Service
	tokens     SessionTokens
	sessionTTL time.Duration
	logger     *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(cfg *config.Config, plannerSvc planner.Service, tokens SessionTokens, logger *slog.Logger) *Handler {
	return &Handler{
		plannerSvc: plannerSvc,
		tokens:     tokens,
		sessionTTL: cfg.Session.TTL,
		logger:     logger.With("component", "http.handler"),
	}
}

type createSessionRequest struct {
	ClientName string `json:"clientName" binding:"max=200"`
}

type clientNameRequest struct {
	ClientName string `json:"clientName" binding:"max=200"`
}

type tripRequest struct {
	TripText string `json:"tripText" binding:"max=20000"`
}

type explorerRequest struct {
	Input     string `json:"input" binding:"max=2000"`
	Interests string `json:"interests" binding:"max=2000"`
	Pace      string `json:"pace" binding:"omitempty,oneof=slow moderate fast"`
	StartTime string `json:"startTime" binding:"omitempty,datetime=15:04"`
}

type updateRequest struct {
	ChangeRequest string `json:"changeRequest" binding:"max=4000"`
}

type sessionView struct {
	ID             string       `json:"id"`
	ClientName     string       `json:"clientName"`
	Mode           planner.Mode `json:"mode,omitempty"`
	Status         string       `json:"status,omitempty"`
	Report         string       `json:"report,omitempty"`
	HasPlan        bool         `json:"hasPlan"`
	HasDocument    bool         `json:"hasDocument"`
	GeneratedLocal string       `json:"generatedLocal,omitempty"`
	GeneratedISO   string       `json:"generatedIso,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

func newSessionView(s *planner.Session) sessionView {
	return sessionView{
		ID:             s.ID,
		ClientName:     s.ClientName,
		Mode:           s.Mode,
		Status:         s.Status,
		Report:         s.Report,
		HasPlan:        s.HasPlan(),
		HasDocument:    s.DocumentKey != "",
		GeneratedLocal: s.GeneratedLocal,
		GeneratedISO:   s.GeneratedISO,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

// CreateSession starts a planning session and hands back its token.
func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.plannerSvc.CreateSession(c.Request.Context(), req.ClientName)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	token, expiresAt, err := h.tokens.Issue(session.ID, h.sessionTTL)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	setSessionCookie(c, token, expiresAt)
	h.logger.Info("session created", "session_id", session.ID)
	c.JSON(http.StatusCreated, gin.H{
		"session":   newSessionView(session),
		"token":     token,
		"expiresAt": expiresAt.UTC(),
	})
}

// GetSession returns the caller's session.
func (h *Handler) GetSession(c *gin.Context) {
	id, _ := getSessionID(c)
	session, err := h.plannerSvc.Session(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, newSessionView(session))
}

// SetClientName updates the name printed on reports.
func (h *Handler) SetClientName(c *gin.Context) {
	var req clientNameRequest
	if !bindJSON(c, &req) {
		return
	}
	id, _ := getSessionID(c)
	session, err := h.plannerSvc.SetClientName(c.Request.Context(), id, req.ClientName)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, newSessionView(session))
}

// PlanTrip runs Trip Planner mode.
func (h *Handler) PlanTrip(c *gin.Context) {
	var req tripRequest
	if !bindJSON(c, &req) {
		return
	}
	id, _ := getSessionID(c)
	h.respondGeneration(c, func() (planner.Generation, error) {
		return h.plannerSvc.PlanTrip(c.Request.Context(), id, req.TripText)
	})
}

// ExploreCity runs City Explorer mode.
func (h *Handler) ExploreCity(c *gin.Context) {
	var req explorerRequest
	if !bindJSON(c, &req) {
		return
	}
	id, _ := getSessionID(c)
	in := planner.ExploreInput{
		Input:     req.Input,
		Interests: req.Interests,
		Pace:      req.Pace,
		StartTime: req.StartTime,
	}
	h.respondGeneration(c, func() (planner.Generation, error) {
		return h.plannerSvc.ExploreCity(c.Request.Context(), id, in)
	})
}

// UpdatePlan applies a change request to the current plan.
func (h *Handler) UpdatePlan(c *gin.Context) {
	var req updateRequest
	if !bindJSON(c, &req) {
		return
	}
	id, _ := getSessionID(c)
	h.respondGeneration(c, func() (planner.Generation, error) {
		return h.plannerSvc.Update(c.Request.Context(), id, req.ChangeRequest)
	})
}

// Report serves the plain-text report.
func (h *Handler) Report(c *gin.Context) {
	id, _ := getSessionID(c)
	report, err := h.plannerSvc.Report(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(report))
}

// Document serves the rendered PDF.
func (h *Handler) Document(c *gin.Context) {
	id, _ := getSessionID(c)
	doc, err := h.plannerSvc.Document(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+documentFilename+`"`)
	c.Data(http.StatusOK, "application/pdf", doc)
}

// History lists recent conversation entries.
func (h *Handler) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer", err))
			return
		}
		limit = parsed
	}
	id, _ := getSessionID(c)
	entries, err := h.plannerSvc.History(c.Request.Context(), id, limit)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// ParseTrip previews how trip text will be read without running the agent.
func (h *Handler) ParseTrip(c *gin.Context) {
	var req tripRequest
	if !bindJSON(c, &req) {
		return
	}
	preview, err := h.plannerSvc.ParseTrip(req.TripText)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, preview)
}

// Policy lists the destination policy.
func (h *Handler) Policy(c *gin.Context) {
	c.JSON(http.StatusOK, h.plannerSvc.Policy())
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) respondGeneration(c *gin.Context, run func() (planner.Generation, error)) {
	gen, err := run()
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	if gen.Status == planner.StatusSchemaMismatch {
		h.logger.Warn("agent output did not match the plan schema", "mode", gen.Mode)
	}
	c.JSON(http.StatusOK, gen)
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return false
	}
	return true
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
