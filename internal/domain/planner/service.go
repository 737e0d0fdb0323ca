package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/yanqian/ai-travel-planner/internal/domain/trip"
	apperrors "github.com/yanqian/ai-travel-planner/pkg/errors"
	"github.com/yanqian/ai-travel-planner/pkg/util"
)

const noResponseText = "No response received from agent."

// Service exposes the travel planning workflow over explicit sessions.
type Service interface {
	CreateSession(ctx context.Context, clientName string) (*Session, error)
	Session(ctx context.Context, id string) (*Session, error)
	SetClientName(ctx context.Context, id, clientName string) (*Session, error)
	PlanTrip(ctx context.Context, id, tripText string) (Generation, error)
	ExploreCity(ctx context.Context, id string, in ExploreInput) (Generation, error)
	Update(ctx context.Context, id, changeRequest string) (Generation, error)
	Report(ctx context.Context, id string) (string, error)
	Document(ctx context.Context, id string) ([]byte, error)
	History(ctx context.Context, id string, limit int) ([]HistoryEntry, error)
	ParseTrip(raw string) (ParsePreview, error)
	Policy() PolicyView
}

type service struct {
	cfg       Config
	sessions  SessionStore
	documents DocumentStore
	agent     Agent
	renderer  Renderer
	guard     Guard
	logger    *slog.Logger
	now       func() time.Time
	locks     *sessionLocks
}

// NewService wires up the planner domain.
func NewService(cfg Config, sessions SessionStore, documents DocumentStore, agent Agent, renderer Renderer, guard Guard, logger *slog.Logger) Service {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &service{
		cfg:       cfg,
		sessions:  sessions,
		documents: documents,
		agent:     agent,
		renderer:  renderer,
		guard:     guard,
		logger:    logger.With("component", "planner.service"),
		now:       util.NowUTC,
		locks:     newSessionLocks(),
	}
}

func (s *service) CreateSession(ctx context.Context, clientName string) (*Session, error) {
	now := s.now()
	session := &Session{
		ID:         uuid.NewString(),
		ClientName: strings.TrimSpace(clientName),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	s.logger.Info("session created", "session", session.ID)
	return session, nil
}

func (s *service) Session(ctx context.Context, id string) (*Session, error) {
	session, found, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, "failed to load session", err)
	}
	if !found {
		return nil, apperrors.Wrap(apperrors.CodeNotFound, "session not found or expired", nil)
	}
	return session, nil
}

func (s *service) SetClientName(ctx context.Context, id, clientName string) (*Session, error) {
	if !s.locks.acquire(id) {
		return nil, errSessionBusy()
	}
	defer s.locks.release(id)

	session, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	session.ClientName = strings.TrimSpace(clientName)
	session.UpdatedAt = s.now()
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *service) PlanTrip(ctx context.Context, id, tripText string) (Generation, error) {
	if strings.TrimSpace(tripText) == "" {
		return Generation{}, apperrors.Wrap(apperrors.CodeInvalidInput, "Please paste trip input first.", nil)
	}
	if err := s.guard.Check(tripText); err != nil {
		return Generation{}, err
	}
	stops, err := trip.Parse(tripText)
	if err != nil {
		return Generation{}, err
	}
	return s.generate(ctx, id, tripText, func(session *Session) (Mode, string, error) {
		return ModeTripPlanner, BuildAgentRequest(stops, session.ClientName), nil
	})
}

func (s *service) ExploreCity(ctx context.Context, id string, in ExploreInput) (Generation, error) {
	if strings.TrimSpace(in.Input) == "" {
		return Generation{}, apperrors.Wrap(apperrors.CodeInvalidInput, "Please enter a city and date.", nil)
	}
	if err := s.guard.Check(in.Input + "\n" + in.Interests); err != nil {
		return Generation{}, err
	}
	box, err := trip.ParseExplorerBox(in.Input)
	if err != nil {
		return Generation{}, err
	}

	// Activities turn the request into a one-stop trip.
	if box.HasActivities {
		stops, err := trip.Parse(box.TripText)
		if err != nil {
			return Generation{}, err
		}
		return s.generate(ctx, id, in.Input, func(session *Session) (Mode, string, error) {
			return ModeTripPlanner, BuildAgentRequest(stops, session.ClientName), nil
		})
	}

	instruction := BuildCityExplorerRequest(ExplorerRequest{
		City:      box.City,
		Date:      box.Date,
		Interests: in.Interests,
		StartTime: in.StartTime,
		Pace:      in.Pace,
	})
	return s.generate(ctx, id, in.Input, func(*Session) (Mode, string, error) {
		return ModeCityExplorer, instruction, nil
	})
}

func (s *service) Update(ctx context.Context, id, changeRequest string) (Generation, error) {
	changeRequest = strings.TrimSpace(changeRequest)
	if changeRequest == "" {
		return Generation{}, apperrors.Wrap(apperrors.CodeInvalidInput, "Type a change request first.", nil)
	}
	if err := s.guard.Check(changeRequest); err != nil {
		return Generation{}, err
	}

	// The plan is read under the session lock so a concurrent generation cannot
	// swap it between the check and the request.
	return s.generate(ctx, id, changeRequest, func(current *Session) (Mode, string, error) {
		if !current.HasPlan() {
			return "", "", apperrors.Wrap(apperrors.CodeInvalidInput, "Generate a plan first.", nil)
		}
		fallback := current.Mode
		if !fallback.valid() {
			fallback = ModeTripPlanner
		}
		return DetectMode(current.Plan, fallback), BuildUpdateRequest(string(current.Plan), changeRequest), nil
	})
}

// generate runs one agent round-trip for the session and stores the outcome.
// prepare sees the session loaded under the lock and picks the mode and
// instruction; an error from it aborts before the agent is called.
func (s *service) generate(ctx context.Context, id, userInput string, prepare func(*Session) (Mode, string, error)) (Generation, error) {
	if !s.locks.acquire(id) {
		return Generation{}, errSessionBusy()
	}
	defer s.locks.release(id)

	session, err := s.Session(ctx, id)
	if err != nil {
		return Generation{}, err
	}

	mode, instruction, err := prepare(session)
	if err != nil {
		return Generation{}, err
	}

	now := s.now()
	local, iso := util.LocalAndISO(now, s.cfg.Location)
	result, err := s.agent.Run(ctx, instruction)
	if err != nil {
		s.logger.Error("agent run failed", "session", id, "mode", mode, "error", err)
		return Generation{}, err
	}

	gen := Generation{
		Status:         StatusOK,
		Mode:           mode,
		GeneratedLocal: local,
		GeneratedISO:   iso,
		Usage:          result.Usage,
		ToolCalls:      len(result.ToolCalls),
	}
	previousDoc := session.DocumentKey
	session.Mode = mode
	session.GeneratedLocal = local
	session.GeneratedISO = iso
	session.DocumentKey = ""
	session.History = append(session.History, HistoryEntry{Role: "user", Content: userInput, At: now})

	plan, ok := normalizePlan(result.Text, iso, session.ClientName)
	if !ok {
		gen.Status = StatusSchemaMismatch
		gen.Report = result.Text
		if strings.TrimSpace(gen.Report) == "" {
			gen.Report = noResponseText
		}
		session.Plan = nil
		s.logger.Warn("agent response is not a JSON object", "session", id, "mode", mode, "bytes", len(result.Text))
	} else {
		report, err := FormatReport(plan, mode, ReportMeta{
			ClientName:     session.ClientName,
			GeneratedLocal: local,
			GeneratedISO:   iso,
		})
		if err != nil {
			return Generation{}, apperrors.Wrap(apperrors.CodeSchemaMismatch, "failed to format plan", err)
		}
		gen.Report = report
		session.Plan = plan

		key, err := s.storeDocument(ctx, mode, session.ClientName, report)
		if err != nil {
			return Generation{}, err
		}
		session.DocumentKey = key
		gen.HasDocument = key != ""
	}

	session.Status = gen.Status
	session.Report = gen.Report
	session.History = append(session.History, HistoryEntry{Role: "assistant", Content: gen.Report, At: now})
	session.UpdatedAt = now
	if err := s.save(ctx, session); err != nil {
		return Generation{}, err
	}
	if previousDoc != "" {
		if err := s.documents.Delete(ctx, previousDoc); err != nil {
			s.logger.Warn("failed to delete superseded document", "session", id, "key", previousDoc, "error", err)
		}
	}

	s.logger.Info("plan generated",
		"session", id,
		"mode", mode,
		"status", gen.Status,
		"toolCalls", gen.ToolCalls,
		"totalTokens", gen.Usage.TotalTokens,
		"estimatedTokens", gen.Usage.Estimated,
	)
	return gen, nil
}

// storeDocument renders the report and stores it. A render failure withholds the
// document without failing the generation.
func (s *service) storeDocument(ctx context.Context, mode Mode, clientName, report string) (string, error) {
	doc, err := s.renderer.Render(mode.title(), clientName, report)
	if err != nil {
		s.logger.Error("document render failed", "mode", mode, "error", err)
		return "", nil
	}
	key := uuid.NewString()
	if err := s.documents.Put(ctx, key, doc, s.cfg.SessionTTL); err != nil {
		return "", apperrors.Wrap(apperrors.CodeStorage, "failed to store document", err)
	}
	return key, nil
}

func (s *service) Report(ctx context.Context, id string) (string, error) {
	session, err := s.Session(ctx, id)
	if err != nil {
		return "", err
	}
	if session.Report == "" {
		return "", apperrors.Wrap(apperrors.CodeNotFound, "no report has been generated yet", nil)
	}
	return session.Report, nil
}

func (s *service) Document(ctx context.Context, id string) ([]byte, error) {
	session, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.DocumentKey == "" {
		return nil, apperrors.Wrap(apperrors.CodeNotFound, "no document is available for this session", nil)
	}
	doc, found, err := s.documents.Get(ctx, session.DocumentKey)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, "failed to load document", err)
	}
	if !found {
		return nil, apperrors.Wrap(apperrors.CodeNotFound, "document expired", nil)
	}
	return doc, nil
}

func (s *service) History(ctx context.Context, id string, limit int) ([]HistoryEntry, error) {
	session, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.cfg.HistoryLimit
	}
	if len(session.History) == 0 {
		return []HistoryEntry{}, nil
	}
	return lo.Subset(session.History, -limit, uint(limit)), nil
}

func (s *service) ParseTrip(raw string) (ParsePreview, error) {
	stops, err := trip.Parse(raw)
	if err != nil {
		return ParsePreview{}, err
	}
	return ParsePreview{Stops: stops}, nil
}

func (s *service) Policy() PolicyView {
	return PolicyView{
		BlockedDestinations: s.guard.BlockedDestinations(),
		AllowedRegions:      s.guard.AllowedRegions(),
	}
}

func (s *service) save(ctx context.Context, session *Session) error {
	if err := s.sessions.Save(ctx, session, s.cfg.SessionTTL); err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, "failed to save session", err)
	}
	return nil
}

// normalizePlan decodes the agent text as a JSON object, stamps generated_at and
// client_name, and re-encodes it without HTML escaping.
func normalizePlan(text, generatedISO, clientName string) (json.RawMessage, bool) {
	text = strings.TrimSpace(text)
	if !isObject(json.RawMessage(text)) {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var plan map[string]any
	if err := dec.Decode(&plan); err != nil || plan == nil {
		return nil, false
	}

	plan["generated_at"] = generatedISO
	if clientName != "" {
		plan["client_name"] = clientName
	} else if _, ok := plan["client_name"]; !ok {
		plan["client_name"] = ""
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(plan); err != nil {
		return nil, false
	}
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n")), true
}

func errSessionBusy() error {
	return apperrors.Wrap(apperrors.CodeSessionBusy, "a request is already running for this session", nil)
}

type sessionLocks struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{busy: make(map[string]struct{})}
}

func (l *sessionLocks) acquire(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.busy[id]; ok {
		return false
	}
	l.busy[id] = struct{}{}
	return true
}

func (l *sessionLocks) release(id string) {
	l.mu.Lock()
	delete(l.busy, id)
	l.mu.Unlock()
}
