// Package client talks to the talentflow REST API and implements
// board.Backend over HTTP.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/johnwards/talentflow/internal/api"
	"github.com/johnwards/talentflow/internal/board"
	"github.com/johnwards/talentflow/internal/domain"
)

var _ board.Backend = (*Client)(nil)

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode int
	Envelope   api.Error
}

func (e *APIError) Error() string {
	if e.Envelope.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s (%s)", e.StatusCode, e.Envelope.Message, e.Envelope.Category)
}

// Category returns the error category reported by the server.
func (e *APIError) Category() string {
	return e.Envelope.Category
}

// Client wraps http.Client with helpers for JSON requests.
type Client struct {
	BaseURL string
	Bearer  string
	HTTP    *http.Client
}

// New creates a new Client.
func New(baseURL, bearer string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), Bearer: bearer, HTTP: &http.Client{}}
}

// FetchPipeline returns the pipeline of a job.
func (c *Client) FetchPipeline(ctx context.Context, jobID string) (*domain.Pipeline, error) {
	var p domain.Pipeline
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs/"+url.PathEscape(jobID)+"/pipeline", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SavePipeline replaces the pipeline of a job.
func (c *Client) SavePipeline(ctx context.Context, jobID string, p *domain.Pipeline) (*domain.Pipeline, error) {
	var saved domain.Pipeline
	if err := c.do(ctx, http.MethodPut, "/api/v1/jobs/"+url.PathEscape(jobID)+"/pipeline", p, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// FetchApplications returns every application of a job.
func (c *Client) FetchApplications(ctx context.Context, jobID string) ([]domain.Application, error) {
	var out api.CollectionResponse[domain.Application]
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs/"+url.PathEscape(jobID)+"/applications", nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// UpdateStage moves an application to another stage.
func (c *Client) UpdateStage(ctx context.Context, applicationID string, req domain.StageChangeRequest) (*domain.Application, error) {
	var a domain.Application
	if err := c.do(ctx, http.MethodPost, "/api/v1/applications/"+url.PathEscape(applicationID)+"/stage", req, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// BulkUpdateStatus sets the status of several applications in one call.
func (c *Client) BulkUpdateStatus(ctx context.Context, req domain.BulkStatusRequest) (*domain.BulkStatusResult, error) {
	var res domain.BulkStatusResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/applications/bulk-status", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.Bearer)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = sonic.Unmarshal(data, &apiErr.Envelope)
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
