// Package agent is an HTTP client for the conversational-agent service
// (Parlant-compatible REST API).
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ai-tutor-backend/internal/logger"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	SourceCustomer = "customer"
	SourceAIAgent  = "ai_agent"
	KindMessage    = "message"
)

var ErrUnavailable = errors.New("agent service unavailable")

// APIError is a non-2xx response from the agent service.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("agent api %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the agent service.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type Agent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Session struct {
	ID          string    `json:"id"`
	AgentID     string    `json:"agent_id"`
	CustomerID  string    `json:"customer_id,omitempty"`
	CreationUTC time.Time `json:"creation_utc"`
	Title       string    `json:"title,omitempty"`
}

type EventRequest struct {
	Source    string `json:"source"`
	Kind      string `json:"kind"`
	Message   string `json:"message,omitempty"`
	ExtraInfo string `json:"extra_info,omitempty"`
}

type Event struct {
	ID            string         `json:"id"`
	Source        string         `json:"source"`
	Kind          string         `json:"kind"`
	Offset        int            `json:"offset"`
	CreationUTC   time.Time      `json:"creation_utc"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
}

// Message returns the text carried by a message event.
func (e Event) Message() (string, bool) {
	if e.Data == nil {
		return "", false
	}
	msg, ok := e.Data["message"].(string)
	if !ok || msg == "" {
		return "", false
	}
	return msg, true
}

type ListEventsParams struct {
	Source    string
	Kinds     []string
	MinOffset int
	// WaitForData is how long the server may block for new events. Zero
	// returns immediately.
	WaitForData time.Duration
}

func (p ListEventsParams) query() url.Values {
	q := url.Values{}
	if p.Source != "" {
		q.Set("source", p.Source)
	}
	if len(p.Kinds) > 0 {
		q.Set("kinds", strings.Join(p.Kinds, ","))
	}
	q.Set("min_offset", strconv.Itoa(p.MinOffset))
	if p.WaitForData > 0 {
		q.Set("wait_for_data", strconv.Itoa(int(p.WaitForData.Seconds())))
	}
	return q
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "AgentAPI",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		// 4xx answers mean the service is up
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < 500
			}
			return err == nil
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
	}
}

func (c *Client) RetrieveAgent(ctx context.Context, agentID string) (*Agent, error) {
	var out Agent
	if err := c.do(ctx, http.MethodGet, "/agents/"+url.PathEscape(agentID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateSession(ctx context.Context, agentID string, allowGreeting bool) (*Session, error) {
	q := url.Values{"allow_greeting": {strconv.FormatBool(allowGreeting)}}
	body := map[string]string{"agent_id": agentID}

	var out Session
	if err := c.do(ctx, http.MethodPost, "/sessions", q, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateEvent(ctx context.Context, sessionID string, req EventRequest) (*Event, error) {
	var out Event
	path := "/sessions/" + url.PathEscape(sessionID) + "/events"
	if err := c.do(ctx, http.MethodPost, path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListEvents(ctx context.Context, sessionID string, params ListEventsParams) ([]Event, error) {
	var out []Event
	path := "/sessions/" + url.PathEscape(sessionID) + "/events"
	if err := c.do(ctx, http.MethodGet, path, params.query(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	tracer := otel.Tracer("agent-client")
	ctx, span := tracer.Start(ctx, "agent."+strings.ToLower(method))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("agent.path", path),
	)

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, method, path, query, body, out)
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return err
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("agent api %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}
