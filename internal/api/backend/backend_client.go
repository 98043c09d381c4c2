// Package backend talks to the trip backend's REST API: chat sessions, place search and hotel offers.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/naver-ai-trip/agent-trip/internal/types"
)

var ErrNotFound = errors.New("backend resource not found")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.StatusCode, e.Body)
}

// Client is the backend capability set used by the chat pipeline.
type Client interface {
	GetSessionContext(ctx context.Context, token, sessionID string) (types.SessionContext, error)
	SendMessage(ctx context.Context, token, sessionID string, msg OutgoingMessage) error
	SearchPlaces(ctx context.Context, token, query string) ([]types.Place, error)
	SearchNearbyPlaces(ctx context.Context, token string, req NearbyRequest) ([]types.Place, error)
	SearchHotelOffers(ctx context.Context, token string, params types.HotelSearchParams) (*types.HotelOffersResult, error)
}

type OutgoingMessage struct {
	Message  string         `json:"message"`
	FromRole string         `json:"from_role"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type NearbyRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    int     `json:"radius"`
	Query     string  `json:"query,omitempty"`
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *HTTPClient) GetSessionContext(ctx context.Context, token, sessionID string) (types.SessionContext, error) {
	var envelope struct {
		Data struct {
			Context types.SessionContext `json:"context"`
		} `json:"data"`
	}
	path := "/chat-sessions/" + url.PathEscape(sessionID)
	if err := c.do(ctx, "GetSessionContext", http.MethodGet, path, token, nil, &envelope); err != nil {
		return types.SessionContext{}, err
	}
	return envelope.Data.Context, nil
}

func (c *HTTPClient) SendMessage(ctx context.Context, token, sessionID string, msg OutgoingMessage) error {
	path := "/chat-sessions/" + url.PathEscape(sessionID) + "/messages"
	return c.do(ctx, "SendMessage", http.MethodPost, path, token, msg, nil)
}

func (c *HTTPClient) SearchPlaces(ctx context.Context, token, query string) ([]types.Place, error) {
	var envelope struct {
		Data []backendPlace `json:"data"`
	}
	body := map[string]string{"query": query}
	if err := c.do(ctx, "SearchPlaces", http.MethodPost, "/places/search", token, body, &envelope); err != nil {
		return nil, err
	}
	return toPlaces(envelope.Data), nil
}

func (c *HTTPClient) SearchNearbyPlaces(ctx context.Context, token string, req NearbyRequest) ([]types.Place, error) {
	var envelope struct {
		Data []backendPlace `json:"data"`
	}
	if err := c.do(ctx, "SearchNearbyPlaces", http.MethodPost, "/places/search-nearby", token, req, &envelope); err != nil {
		return nil, err
	}
	return toPlaces(envelope.Data), nil
}

func (c *HTTPClient) SearchHotelOffers(ctx context.Context, token string, params types.HotelSearchParams) (*types.HotelOffersResult, error) {
	var result types.HotelOffersResult
	if err := c.do(ctx, "SearchHotelOffers", http.MethodPost, "/hotels/search-with-offers", token, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) do(ctx context.Context, op, method, path, token string, in, out any) error {
	ctx, span := otel.Tracer("BackendClient").Start(ctx, op, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	))
	defer span.End()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode == http.StatusNotFound {
		span.SetStatus(codes.Error, "not found")
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected status")
		c.logger.WarnContext(ctx, "Backend returned error status",
			slog.String("operation", op), slog.Int("status", resp.StatusCode))
		return fmt.Errorf("%s: %w", op, err)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to decode %s response: %w", op, err)
		}
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
