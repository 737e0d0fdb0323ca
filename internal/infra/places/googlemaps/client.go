package googlemaps

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"googlemaps.github.io/maps"

	"github.com/yanqian/ai-travel-planner/internal/domain/agent"
	"github.com/yanqian/ai-travel-planner/internal/infra/upstream"
)

const defaultCacheSize = 512

// Config configures the Places text search.
type Config struct {
	APIKey    string
	BaseURL   string
	Language  string
	CacheSize int
}

// TimezoneFinder resolves an IANA zone name for a point.
type TimezoneFinder interface {
	GetTimezoneName(lng, lat float64) string
}

// Client resolves free text to places with Google Places text search. Results are
// cached by normalized query.
type Client struct {
	maps     *maps.Client
	language string
	breaker  *upstream.Client
	cache    *lru.Cache[string, agent.Place]
	zones    TimezoneFinder
	logger   *slog.Logger
}

// NewClient builds the places client. zones may be nil.
func NewClient(cfg Config, breaker *upstream.Client, zones TimezoneFinder, logger *slog.Logger) (*Client, error) {
	opts := []maps.ClientOption{maps.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, maps.WithBaseURL(cfg.BaseURL))
	}
	mc, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, agent.Place](size)
	if err != nil {
		return nil, fmt.Errorf("create places cache: %w", err)
	}
	return &Client{
		maps:     mc,
		language: cfg.Language,
		breaker:  breaker,
		cache:    cache,
		zones:    zones,
		logger:   logger.With("component", "places.googlemaps"),
	}, nil
}

// SearchText returns the first text search hit for query.
func (c *Client) SearchText(ctx context.Context, query string) (agent.Place, error) {
	key := strings.ToLower(strings.Join(strings.Fields(query), " "))
	if place, ok := c.cache.Get(key); ok {
		return place, nil
	}

	var resp maps.PlacesSearchResponse
	err := c.breaker.Call(func() error {
		var err error
		resp, err = c.maps.TextSearch(ctx, &maps.TextSearchRequest{
			Query:    query,
			Language: c.language,
		})
		return err
	})
	if err != nil {
		return agent.Place{}, fmt.Errorf("places api error: %w", err)
	}
	if len(resp.Results) == 0 {
		return agent.Place{}, fmt.Errorf("%w: %s", agent.ErrNoResults, query)
	}

	hit := resp.Results[0]
	place := agent.Place{
		Name:             hit.Name,
		FormattedAddress: hit.FormattedAddress,
		PlaceID:          hit.PlaceID,
		Lat:              hit.Geometry.Location.Lat,
		Lng:              hit.Geometry.Location.Lng,
	}
	if c.zones != nil {
		place.Timezone = c.zones.GetTimezoneName(place.Lng, place.Lat)
	}
	c.cache.Add(key, place)
	c.logger.Debug("place resolved", "query", query, "placeId", place.PlaceID)
	return place, nil
}
