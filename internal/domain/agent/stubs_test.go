package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/yanqian/ai-travel-planner/internal/domain/conditions"
	"github.com/yanqian/ai-travel-planner/internal/domain/policy"
	"github.com/yanqian/ai-travel-planner/internal/infra/llm/chatgpt"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func f(v float64) *float64 { return &v }

type stubGeocoder struct {
	places  map[string]Place
	err     error
	queries []string
}

func (s *stubGeocoder) SearchText(_ context.Context, query string) (Place, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return Place{}, s.err
	}
	place, ok := s.places[query]
	if !ok {
		return Place{}, ErrNoResults
	}
	return place, nil
}

type stubForecast struct {
	forecast *conditions.HourlyForecast
	err      error
	calls    int
}

func (s *stubForecast) HourlyForecast(context.Context, float64, float64) (*conditions.HourlyForecast, error) {
	s.calls++
	return s.forecast, s.err
}

type stubAirQuality struct {
	payload conditions.AirQualityPayload
}

func (s *stubAirQuality) Lookup(context.Context, float64, float64) conditions.AirQualityPayload {
	return s.payload
}

type stubSuggester struct {
	names []string
	calls int
}

func (s *stubSuggester) Suggest(context.Context, string) []string {
	s.calls++
	return s.names
}

type stubChatClient struct {
	responses []chatgpt.ChatCompletionResponse
	err       error
	requests  []chatgpt.ChatCompletionRequest
}

func (s *stubChatClient) CreateChatCompletion(_ context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return chatgpt.ChatCompletionResponse{}, s.err
	}
	if len(s.responses) == 0 {
		return chatgpt.ChatCompletionResponse{}, errors.New("no scripted response")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

type fixedCounter struct{}

func (fixedCounter) CountMessages(messages []chatgpt.Message) int { return 10 * len(messages) }
func (fixedCounter) Count(text string) int                        { return len(text) }

func testGuard() *policy.Guard {
	return policy.NewGuard(policy.Config{BlockedDestinations: []string{"North Korea"}})
}

func oneDayForecast() *conditions.HourlyForecast {
	return &conditions.HourlyForecast{
		Timezone: "America/Toronto",
		Hourly: conditions.HourlySeries{
			Time:                     []string{"2026-02-01T09:00", "2026-02-01T12:00"},
			Temperature:              []*float64{f(12), f(14)},
			ApparentTemperature:      []*float64{f(11), f(13)},
			PrecipitationProbability: []*float64{f(20), f(45)},
			WindSpeed:                []*float64{f(10), f(20)},
		},
	}
}

type fixture struct {
	geocoder  *stubGeocoder
	forecast  *stubForecast
	air       *stubAirQuality
	suggester *stubSuggester
	toolbox   *Toolbox
}

func newFixture() *fixture {
	fx := &fixture{
		geocoder: &stubGeocoder{places: map[string]Place{
			"Toronto":           {Name: "Toronto", FormattedAddress: "Toronto, ON, Canada", Lat: 43.65, Lng: -79.38, Timezone: "America/Toronto"},
			"CN Tower, Toronto": {Name: "CN Tower", FormattedAddress: "290 Bremner Blvd, Toronto, ON", Lat: 43.6426, Lng: -79.3871},
		}},
		forecast:  &stubForecast{forecast: oneDayForecast()},
		air:       &stubAirQuality{},
		suggester: &stubSuggester{names: []string{"CN Tower", "Royal Ontario Museum"}},
	}
	fx.toolbox = NewToolbox(ToolboxConfig{BadAQIThreshold: 101}, testGuard(), fx.geocoder, fx.forecast, fx.air, fx.suggester, discardLogger())
	return fx
}
