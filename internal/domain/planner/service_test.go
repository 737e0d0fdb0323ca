package planner

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/ai-travel-planner/internal/domain/agent"
	"github.com/yanqian/ai-travel-planner/internal/domain/policy"
	apperrors "github.com/yanqian/ai-travel-planner/pkg/errors"
	"github.com/yanqian/ai-travel-planner/pkg/metrics"
)

type stubSessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	err      error
	gets     int
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{sessions: make(map[string]Session)}
}

func (s *stubSessionStore) Get(_ context.Context, id string) (*Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	session, ok := s.sessions[id]
	if !ok {
		return nil, false, nil
	}
	return &session, true, nil
}

func (s *stubSessionStore) Save(_ context.Context, session *Session, _ time.Duration) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

type stubDocumentStore struct {
	docs    map[string][]byte
	deleted []string
}

func (s *stubDocumentStore) Put(_ context.Context, key string, data []byte, _ time.Duration) error {
	s.docs[key] = data
	return nil
}

func (s *stubDocumentStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	doc, ok := s.docs[key]
	return doc, ok, nil
}

func (s *stubDocumentStore) Delete(_ context.Context, key string) error {
	delete(s.docs, key)
	s.deleted = append(s.deleted, key)
	return nil
}

type stubAgent struct {
	outputs      []string
	err          error
	instructions []string
	block        chan struct{}
}

func (s *stubAgent) Run(_ context.Context, instruction string) (agent.Result, error) {
	if s.block != nil {
		<-s.block
	}
	s.instructions = append(s.instructions, instruction)
	if s.err != nil {
		return agent.Result{}, s.err
	}
	out := ""
	if len(s.outputs) > 0 {
		out = s.outputs[0]
		s.outputs = s.outputs[1:]
	}
	return agent.Result{
		Text:      out,
		Usage:     metrics.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		ToolCalls: []agent.ToolCallRecord{{Name: agent.ToolCityLatLng}},
	}, nil
}

type stubRenderer struct {
	titles []string
	err    error
}

func (s *stubRenderer) Render(title, clientName, content string) ([]byte, error) {
	s.titles = append(s.titles, title)
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF " + clientName + "\n" + content), nil
}

type serviceFixture struct {
	svc      *service
	sessions *stubSessionStore
	docs     *stubDocumentStore
	agent    *stubAgent
	renderer *stubRenderer
}

func newServiceFixture(outputs ...string) *serviceFixture {
	fx := &serviceFixture{
		sessions: newStubSessionStore(),
		docs:     &stubDocumentStore{docs: make(map[string][]byte)},
		agent:    &stubAgent{outputs: outputs},
		renderer: &stubRenderer{},
	}
	guard := policy.NewGuard(policy.Config{
		BlockedDestinations: []string{"North Korea"},
		AllowedRegions:      []string{"North America", "Asia"},
	})
	svc := NewService(Config{SessionTTL: time.Hour, Location: time.FixedZone("EST", -5*3600)},
		fx.sessions, fx.docs, fx.agent, fx.renderer, guard,
		slog.New(slog.NewTextHandler(io.Discard, nil))).(*service)
	svc.now = func() time.Time { return time.Date(2026, 1, 20, 19, 5, 0, 0, time.UTC) }
	fx.svc = svc
	return fx
}

const planOutput = `{"executive_summary":"Great trip","generated_at":"yesterday","client_name":"Model Name","scope":"Toronto","cities":[{"city":"Toronto","date":"2026-02-01","schedule":[{"start":"09:00","end":"11:00","activity":"CN Tower & Ripley's","address":"290 Bremner Blvd"}],"insights":{"weather":"Cold","umbrella":"No","air_quality":"Good"},"risk":{"weather_risk":3,"air_quality_risk":2,"overall_risk":3},"packing":["Coat"]}]}`

func TestPlanTripGeneratesReportAndDocument(t *testing.T) {
	fx := newServiceFixture(planOutput)
	ctx := context.Background()

	session, err := fx.svc.CreateSession(ctx, " Acme Corp ")
	require.NoError(t, err)
	require.Equal(t, "Acme Corp", session.ClientName)

	gen, err := fx.svc.PlanTrip(ctx, session.ID, "City1: Toronto 2026-02-01\nCN Tower;09:00-11:00")
	require.NoError(t, err)
	require.Equal(t, StatusOK, gen.Status)
	require.Equal(t, ModeTripPlanner, gen.Mode)
	require.True(t, gen.HasDocument)
	require.Equal(t, "2026-01-20 14:05", gen.GeneratedLocal)
	require.Equal(t, "2026-01-20T14:05:00-05:00", gen.GeneratedISO)
	require.Equal(t, 15, gen.Usage.TotalTokens)
	require.Equal(t, 1, gen.ToolCalls)
	require.Contains(t, gen.Report, "Prepared for: Acme Corp")
	require.Contains(t, gen.Report, "09:00–11:00 | CN Tower & Ripley's")

	require.Len(t, fx.agent.instructions, 1)
	require.True(t, strings.HasPrefix(fx.agent.instructions[0], "Client: Acme Corp\n"))
	require.Contains(t, fx.agent.instructions[0], "  * CN Tower;09:00-11:00")
	require.Equal(t, []string{"Travel Planner — Itinerary"}, fx.renderer.titles)

	stored, err := fx.svc.Session(ctx, session.ID)
	require.NoError(t, err)
	var plan map[string]any
	require.NoError(t, json.Unmarshal(stored.Plan, &plan))
	require.Equal(t, "2026-01-20T14:05:00-05:00", plan["generated_at"])
	require.Equal(t, "Acme Corp", plan["client_name"])
	require.Contains(t, string(stored.Plan), "CN Tower & Ripley's")

	doc, err := fx.svc.Document(ctx, session.ID)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(doc), "%PDF Acme Corp"))

	report, err := fx.svc.Report(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, gen.Report, report)

	history, err := fx.svc.History(ctx, session.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "user", history[0].Role)
	require.Equal(t, "assistant", history[1].Role)
}

func TestPlanTripKeepsModelClientNameWhenSessionHasNone(t *testing.T) {
	fx := newServiceFixture(planOutput)
	ctx := context.Background()
	session, err := fx.svc.CreateSession(ctx, "")
	require.NoError(t, err)

	_, err = fx.svc.PlanTrip(ctx, session.ID, "City1: Toronto 2026-02-01")
	require.NoError(t, err)

	stored, err := fx.svc.Session(ctx, session.ID)
	require.NoError(t, err)
	var plan map[string]any
	require.NoError(t, json.Unmarshal(stored.Plan, &plan))
	require.Equal(t, "Model Name", plan["client_name"])
	require.NotContains(t, stored.Report, "Prepared for:")
}

func TestPlanTripSchemaMismatch(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{name: "prose", output: "Sorry, I cannot help with that.", want: "Sorry, I cannot help with that."},
		{name: "array", output: `["Toronto"]`, want: `["Toronto"]`},
		{name: "empty", output: "", want: "No response received from agent."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fx := newServiceFixture(planOutput, tc.output)
			ctx := context.Background()
			session, err := fx.svc.CreateSession(ctx, "")
			require.NoError(t, err)

			_, err = fx.svc.PlanTrip(ctx, session.ID, "City1: Toronto 2026-02-01")
			require.NoError(t, err)
			first, err := fx.svc.Session(ctx, session.ID)
			require.NoError(t, err)

			gen, err := fx.svc.PlanTrip(ctx, session.ID, "City1: Toronto 2026-02-01")
			require.NoError(t, err)
			require.Equal(t, StatusSchemaMismatch, gen.Status)
			require.Equal(t, tc.want, gen.Report)
			require.False(t, gen.HasDocument)

			stored, err := fx.svc.Session(ctx, session.ID)
			require.NoError(t, err)
			require.False(t, stored.HasPlan())
			require.Empty(t, stored.DocumentKey)
			require.Equal(t, []string{first.DocumentKey}, fx.docs.deleted)

			_, err = fx.svc.Document(ctx, session.ID)
			require.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
		})
	}
}

func TestPlanTripRejectsBadInput(t *testing.T) {
	fx := newServiceFixture(planOutput)
	ctx := context.Background()
	session, err := fx.svc.CreateSession(ctx, "")
	require.NoError(t, err)

	_, err = fx.svc.PlanTrip(ctx, session.ID, "   ")
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))

	_, err = fx.svc.PlanTrip(ctx, session.ID, "Toronto tomorrow")
	require.True(t, apperrors.IsCode(err, apperrors.CodeParse))

	_, err = fx.svc.PlanTrip(ctx, session.ID, "City1: Pyongyang North Korea 2026-02-01")
	require.True(t, apperrors.IsCode(err, apperrors.CodePolicyViolation))

	require.Empty(t, fx.agent.instructions)
}

func TestPlanTripUnknownSession(t *testing.T) {
	fx := newServiceFixture(planOutput)

	_, err := fx.svc.PlanTrip(context.Background(), "missing", "City1: Toronto 2026-02-01")
	require.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestPlanTripAgentFailure(t *testing.T) {
	fx := newServiceFixture()
	fx.agent.err = apperrors.Wrap(apperrors.CodeAgent, "language model request failed", errors.New("boom"))
	ctx := context.Background()
	session, err := fx.svc.CreateSession(ctx, "")
	require.NoError(t, err)

	_, err = fx.svc.PlanTrip(ctx, session.ID, "City1: Toronto 2026-02-01")
	require.True(t, apperrors.IsCode(err, apperrors.CodeAgent))

	stored, err := fx.svc.Session(ctx, session.ID)
	require.NoError(t, err)
	require.Empty(t, stored.History)
}

func TestPlanTripWithholdsDocumentWhenRenderFails(t *testing.T) {
	fx := newServiceFixture(planOutput)
	fx.renderer.err = errors.New("font missing")
	ctx := context.Background()
	session, err := fx.svc.CreateSession(ctx, "")
	require.NoError(t, err)

	gen, err := fx.svc.PlanTrip(ctx, session.ID, "City1: Toronto 2026-02-01")
	require.NoError(t, err)
	require.Equal(t, StatusOK, gen.Status)
	require.False(t, gen.HasDocument)
	require.NotEmpty(t, gen.Report)
}

func TestExploreCity(t *testing.T) {
	explorerOutput := `{"city":"Tokyo","date":"2026-04-02","summary":"Relaxed","schedule":[],"tips":[],"weather":"Mild","air_quality":"Good","packing":[]}`

	t.Run("explorer layout without activities", func(t *testing.T) {
		fx := newServiceFixture(explorerOutput)
		ctx := context.Background()
		session, err := fx.svc.CreateSession(ctx, "")
		require.NoError(t, err)

		gen, err := fx.svc.ExploreCity(ctx, session.ID, ExploreInput{Input: "City: Tokyo 2026-04-02", Interests: "food", Pace: "slow"})
		require.NoError(t, err)
		require.Equal(t, ModeCityExplorer, gen.Mode)
		require.Contains(t, gen.Report, "Destination: Tokyo — 2026-04-02")
		require.Contains(t, fx.agent.instructions[0], "- Pace: slow (slow/moderate/fast)")
		require.Contains(t, fx.agent.instructions[0], "- Interests: food")
		require.Equal(t, []string{"Travel Planner — City Explorer"}, fx.renderer.titles)
	})

	t.Run("activities reroute to multi-city", func(t *testing.T) {
		fx := newServiceFixture(planOutput)
		ctx := context.Background()
		session, err := fx.svc.CreateSession(ctx, "")
		require.NoError(t, err)

		gen, err := fx.svc.ExploreCity(ctx, session.ID, ExploreInput{Input: "Toronto 2026-02-01\nCN Tower;09:00-11:00"})
		require.NoError(t, err)
		require.Equal(t, ModeTripPlanner, gen.Mode)
		require.Contains(t, fx.agent.instructions[0], "- Toronto on 2026-02-01\n  * CN Tower;09:00-11:00")
	})

	t.Run("policy covers interests", func(t *testing.T) {
		fx := newServiceFixture(explorerOutput)
		ctx := context.Background()
		session, err := fx.svc.CreateSession(ctx, "")
		require.NoError(t, err)

		_, err = fx.svc.ExploreCity(ctx, session.ID, ExploreInput{Input: "Seoul 2026-04-02", Interests: "day trip to north korea"})
		require.True(t, apperrors.IsCode(err, apperrors.CodePolicyViolation))
	})

	t.Run("bad first line", func(t *testing.T) {
		fx := newServiceFixture(explorerOutput)
		ctx := context.Background()
		session, err := fx.svc.CreateSession(ctx, "")
		require.NoError(t, err)

		_, err = fx.svc.ExploreCity(ctx, session.ID, ExploreInput{Input: "Tokyo"})
		require.True(t, apperrors.IsCode(err, apperrors.CodeParse))
	})
}

func TestUpdate(t *testing.T) {
	updated := strings.Replace(planOutput, "Great trip", "Even better trip", 1)
	fx := newServiceFixture(planOutput, updated)
	ctx := context.Background()
	session, err := fx.svc.CreateSession(ctx, "Acme Corp")
	require.NoError(t, err)

	_, err = fx.svc.Update(ctx, session.ID, "Add a museum")
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
	require.Equal(t, "Generate a plan first.", apperrors.MessageOf(err))

	_, err = fx.svc.PlanTrip(ctx, session.ID, "City1: Toronto 2026-02-01")
	require.NoError(t, err)
	before, err := fx.svc.Session(ctx, session.ID)
	require.NoError(t, err)

	_, err = fx.svc.Update(ctx, session.ID, "  ")
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))

	gen, err := fx.svc.Update(ctx, session.ID, "Add a museum")
	require.NoError(t, err)
	require.Equal(t, ModeTripPlanner, gen.Mode)
	require.Contains(t, gen.Report, "Even better trip")

	instruction := fx.agent.instructions[1]
	require.Contains(t, instruction, "CURRENT JSON:\n"+string(before.Plan)+"\n\n")
	require.Contains(t, instruction, "USER REQUEST:\nAdd a museum\n")
	require.Equal(t, []string{before.DocumentKey}, fx.docs.deleted)
}

func TestUpdateChecksPlanUnderSessionLock(t *testing.T) {
	fx := newServiceFixture(planOutput)
	ctx := context.Background()
	session, err := fx.svc.CreateSession(ctx, "")
	require.NoError(t, err)

	fx.sessions.gets = 0
	_, err = fx.svc.Update(ctx, session.ID, "Add a museum")
	require.Equal(t, "Generate a plan first.", apperrors.MessageOf(err))
	require.Equal(t, 1, fx.sessions.gets)
	require.Empty(t, fx.agent.instructions)

	// While a generation holds the lock the planless check is not reached.
	fx.agent.block = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := fx.svc.PlanTrip(ctx, session.ID, "City1: Toronto 2026-02-01")
		done <- err
	}()
	require.Eventually(t, func() bool {
		_, err := fx.svc.Update(ctx, session.ID, "Add a museum")
		return apperrors.IsCode(err, apperrors.CodeSessionBusy)
	}, time.Second, 5*time.Millisecond)
	close(fx.agent.block)
	require.NoError(t, <-done)
}

func TestSessionBusy(t *testing.T) {
	fx := newServiceFixture(planOutput)
	fx.agent.block = make(chan struct{})
	ctx := context.Background()
	session, err := fx.svc.CreateSession(ctx, "")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := fx.svc.PlanTrip(ctx, session.ID, "City1: Toronto 2026-02-01")
		done <- err
	}()

	require.Eventually(t, func() bool {
		_, err := fx.svc.SetClientName(ctx, session.ID, "x")
		return apperrors.IsCode(err, apperrors.CodeSessionBusy)
	}, time.Second, 5*time.Millisecond)

	_, err = fx.svc.PlanTrip(ctx, session.ID, "City1: Toronto 2026-02-01")
	require.True(t, apperrors.IsCode(err, apperrors.CodeSessionBusy))

	close(fx.agent.block)
	require.NoError(t, <-done)
}

func TestHistoryReturnsTail(t *testing.T) {
	fx := newServiceFixture(planOutput, planOutput, planOutput, planOutput)
	ctx := context.Background()
	session, err := fx.svc.CreateSession(ctx, "")
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := fx.svc.PlanTrip(ctx, session.ID, "City1: Toronto 2026-02-01")
		require.NoError(t, err)
	}

	history, err := fx.svc.History(ctx, session.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 6)

	history, err = fx.svc.History(ctx, session.ID, 20)
	require.NoError(t, err)
	require.Len(t, history, 8)
}

func TestHistoryEmptySessionEncodesAsArray(t *testing.T) {
	fx := newServiceFixture()
	ctx := context.Background()
	session, err := fx.svc.CreateSession(ctx, "")
	require.NoError(t, err)

	history, err := fx.svc.History(ctx, session.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, history)
	raw, err := json.Marshal(history)
	require.NoError(t, err)
	require.Equal(t, "[]", string(raw))
}

func TestParseTripAndPolicy(t *testing.T) {
	fx := newServiceFixture()

	preview, err := fx.svc.ParseTrip("City1: Toronto 2026-02-01\nCN Tower;09:00-11:00\nCity2: Montreal 2026-02-02")
	require.NoError(t, err)
	require.Len(t, preview.Stops, 2)
	require.Equal(t, []string{"CN Tower;09:00-11:00"}, preview.Stops[0].Activities)

	view := fx.svc.Policy()
	require.Equal(t, []string{"North Korea"}, view.BlockedDestinations)
	require.Equal(t, []string{"North America", "Asia"}, view.AllowedRegions)
}
