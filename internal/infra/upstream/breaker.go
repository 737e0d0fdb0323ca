package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

const maxBodyBytes = 4 << 20

// ErrCircuitOpen is returned while the breaker rejects calls to a failing upstream.
var ErrCircuitOpen = errors.New("upstream circuit open")

// StatusError reports a 5xx answer. It counts as a breaker failure.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Status)
}

// Response is a fully read upstream answer.
type Response struct {
	Status int
	Body   []byte
}

// OK reports a 2xx status.
func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Client sends HTTP requests through a circuit breaker. Transport errors and 5xx
// answers trip the breaker; 4xx answers are returned to the caller as-is.
type Client struct {
	http    *http.Client
	circuit *gobreaker.CircuitBreaker
}

// NewClient builds a breaker-guarded client named after the upstream.
func NewClient(name string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	log := logger.With("component", "upstream."+name)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit state changed", "from", from.String(), "to", to.String())
		},
	})
	return &Client{http: httpClient, circuit: cb}
}

// Do executes req with ctx. For 5xx answers both the Response and a *StatusError
// are returned.
func (c *Client) Do(ctx context.Context, req *http.Request) (Response, error) {
	result, err := c.circuit.Execute(func() (interface{}, error) {
		resp, err := c.http.Do(req.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("read upstream body: %w", err)
		}
		out := Response{Status: resp.StatusCode, Body: body}
		if resp.StatusCode >= 500 {
			return out, &StatusError{Status: resp.StatusCode, Body: body}
		}
		return out, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return Response{}, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	out, _ := result.(Response)
	return out, err
}

// Call runs fn through the circuit for SDK clients that own their transport.
func (c *Client) Call(fn func() error) error {
	_, err := c.circuit.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	return err
}
