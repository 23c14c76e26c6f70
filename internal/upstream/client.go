// Package upstream is the gateway's client for the remote training-data API,
// the single source of truth for sessions, activities and plan execution.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tridash/gateway/internal/domain"
)

// TrainingAPI defines every call the gateway makes against the training
// backend. Services depend on this interface so tests can count and fake the
// calls.
type TrainingAPI interface {
	// SeasonSessions returns every session of the athlete's season (calendar
	// year) in one call; range filtering happens gateway-side.
	SeasonSessions(ctx context.Context, athleteID string, year int) ([]domain.CalendarSession, error)
	// Activities returns tracker activities in [from, to] (YYYY-MM-DD, inclusive).
	Activities(ctx context.Context, athleteID, from, to string) ([]domain.CompletedActivity, error)
	// UpdateSessionStatus proxies an explicit athlete action. Never retried.
	UpdateSessionStatus(ctx context.Context, athleteID, sessionID string, status domain.SessionStatus) error
	// StartPlanGeneration kicks off an asynchronous generation job.
	StartPlanGeneration(ctx context.Context, athleteID string, req domain.GenerationRequest) (string, error)
	// GenerationStatus polls a generation job.
	GenerationStatus(ctx context.Context, athleteID, jobID string) (*domain.GenerationJob, error)
	// PreviewExecution asks the backend to check a draft against the persisted
	// calendar. Idempotent and safe to repeat; conflicts come back as data.
	PreviewExecution(ctx context.Context, athleteID string, weeks []domain.WeekPlan, startDate, timezone string) ([]domain.ExecutionConflict, error)
	// CommitExecution writes the draft into the calendar. Never retried.
	CommitExecution(ctx context.Context, athleteID string, weeks []domain.WeekPlan, startDate, timezone string) (*domain.ExecutionResult, error)
}

// Client is the HTTP implementation of TrainingAPI.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Compile-time check.
var _ TrainingAPI = (*Client)(nil)

// NewClient creates a training API client. token is the service-to-service
// bearer credential; timeout bounds every individual request.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// --- TrainingAPI Implementation ---

func (c *Client) SeasonSessions(ctx context.Context, athleteID string, year int) ([]domain.CalendarSession, error) {
	var resp struct {
		Sessions []domain.CalendarSession `json:"sessions"`
	}
	query := url.Values{"year": {strconv.Itoa(year)}}
	path := fmt.Sprintf("/v1/athletes/%s/sessions", url.PathEscape(athleteID))
	if err := c.getJSON(ctx, path, query, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

func (c *Client) Activities(ctx context.Context, athleteID, from, to string) ([]domain.CompletedActivity, error) {
	var resp struct {
		Activities []domain.CompletedActivity `json:"activities"`
	}
	query := url.Values{"from": {from}, "to": {to}}
	path := fmt.Sprintf("/v1/athletes/%s/activities", url.PathEscape(athleteID))
	if err := c.getJSON(ctx, path, query, &resp); err != nil {
		return nil, err
	}
	return resp.Activities, nil
}

func (c *Client) UpdateSessionStatus(ctx context.Context, athleteID, sessionID string, status domain.SessionStatus) error {
	payload := struct {
		Status domain.SessionStatus `json:"status"`
	}{Status: status}
	path := fmt.Sprintf("/v1/athletes/%s/sessions/%s/status", url.PathEscape(athleteID), url.PathEscape(sessionID))
	return c.postJSON(ctx, path, payload, nil)
}

func (c *Client) StartPlanGeneration(ctx context.Context, athleteID string, req domain.GenerationRequest) (string, error) {
	var resp struct {
		JobID string `json:"job_id"`
	}
	path := fmt.Sprintf("/v1/athletes/%s/plans/generate", url.PathEscape(athleteID))
	if err := c.postJSON(ctx, path, req, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("training api: generation accepted without a job id")
	}
	return resp.JobID, nil
}

func (c *Client) GenerationStatus(ctx context.Context, athleteID, jobID string) (*domain.GenerationJob, error) {
	var job domain.GenerationJob
	path := fmt.Sprintf("/v1/athletes/%s/plans/jobs/%s", url.PathEscape(athleteID), url.PathEscape(jobID))
	if err := c.getJSON(ctx, path, nil, &job); err != nil {
		return nil, err
	}
	if job.JobID == "" {
		job.JobID = jobID
	}
	return &job, nil
}

// executionPayload is shared by preview and commit: the same sessions, dates
// and timezone go to both endpoints so the check and the write see identical
// input.
type executionPayload struct {
	StartDate string            `json:"start_date"`
	Timezone  string            `json:"timezone"`
	Weeks     []domain.WeekPlan `json:"weeks"`
}

func (c *Client) PreviewExecution(ctx context.Context, athleteID string, weeks []domain.WeekPlan, startDate, timezone string) ([]domain.ExecutionConflict, error) {
	var resp struct {
		Conflicts []domain.ExecutionConflict `json:"conflicts"`
	}
	payload := executionPayload{StartDate: startDate, Timezone: timezone, Weeks: weeks}
	path := fmt.Sprintf("/v1/athletes/%s/plans/execute/preview", url.PathEscape(athleteID))
	if err := c.postJSON(ctx, path, payload, &resp); err != nil {
		return nil, err
	}
	return resp.Conflicts, nil
}

func (c *Client) CommitExecution(ctx context.Context, athleteID string, weeks []domain.WeekPlan, startDate, timezone string) (*domain.ExecutionResult, error) {
	var result domain.ExecutionResult
	payload := executionPayload{StartDate: startDate, Timezone: timezone, Weeks: weeks}
	path := fmt.Sprintf("/v1/athletes/%s/plans/execute", url.PathEscape(athleteID))
	if err := c.postJSON(ctx, path, payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// --- Transport Helpers ---

// getJSON performs a GET with a single retry on transient failures. The
// caller's context still bounds both attempts; a cancelled context is never
// retried.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	err := c.do(ctx, http.MethodGet, path, query, nil, out)
	if err != nil && IsTransient(err) && ctx.Err() == nil {
		err = c.do(ctx, http.MethodGet, path, query, nil, out)
	}
	return err
}

// postJSON performs a POST with no retry. Writes are proxied user actions;
// repeating one on a timeout could double-apply it.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("training api: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("training api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("training api: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("training api: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, data)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("training api: decode response: %w", err)
		}
	}
	return nil
}
