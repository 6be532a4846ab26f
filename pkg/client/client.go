// Package client is a Go SDK for the ProjectHub proposal service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/terra-clan/projecthub/internal/models"
)

// Client talks to the proposal service REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new proposal service client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ErrUnavailable wraps failures to reach the service at all
var ErrUnavailable = errors.New("proposal service unavailable")

type tokenKey struct{}

// WithToken attaches a bearer token to every request made with ctx
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

// envelope is the response body of every endpoint
type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// authEnvelope is the login response, which carries token and user at the top level
type authEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	User    *models.Account `json:"user"`
}

// Topics

// ListTopics fetches the full topic catalog
func (c *Client) ListTopics(ctx context.Context) ([]models.Topic, error) {
	topics, err := call[[]models.Topic](ctx, c, http.MethodGet, "/api/topics", nil).Unwrap()
	if err != nil {
		return nil, err
	}
	if topics == nil {
		topics = []models.Topic{}
	}
	return topics, nil
}

// CreateTopic adds a topic to the catalog
func (c *Client) CreateTopic(ctx context.Context, draft models.TopicDraft) (*models.Topic, error) {
	return call[*models.Topic](ctx, c, http.MethodPost, "/api/topics", draft).Unwrap()
}

// DeleteTopic removes a topic from the catalog
func (c *Client) DeleteTopic(ctx context.Context, id string) error {
	_, err := call[json.RawMessage](ctx, c, http.MethodDelete, "/api/topics/"+url.PathEscape(id), nil).Unwrap()
	return err
}

// Auth

// Login authenticates an account
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error) {
	return c.authenticate(ctx, "/api/auth/login", req).Unwrap()
}

// Register creates an account and logs it in. The password confirmation is
// checked before any request is made.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResult, error) {
	if err := req.CheckPasswords(); err != nil {
		return nil, err
	}
	return c.authenticate(ctx, "/api/auth/register", req).Unwrap()
}

func (c *Client) authenticate(ctx context.Context, path string, body interface{}) Result[*models.AuthResult] {
	status, raw, err := c.doRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return Err[*models.AuthResult](err)
	}

	var env authEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Err[*models.AuthResult](decodeFailure(status, raw, err))
	}
	if status >= 400 || !env.Success {
		return Err[*models.AuthResult](&APIError{StatusCode: status, Message: env.Message})
	}

	return Ok(&models.AuthResult{Message: env.Message, Token: env.Token, User: env.User})
}

// Proposals

// SubmitProposal files a new pending proposal
func (c *Client) SubmitProposal(ctx context.Context, req models.SubmitProposalRequest) (*models.ProposalRecord, error) {
	return call[*models.ProposalRecord](ctx, c, http.MethodPost, "/api/proposals", req).Unwrap()
}

// ListProposals fetches every submitted proposal
func (c *Client) ListProposals(ctx context.Context) ([]models.ProposalRecord, error) {
	records, err := call[[]models.ProposalRecord](ctx, c, http.MethodGet, "/api/proposals/admin/all", nil).Unwrap()
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.ProposalRecord{}
	}
	return records, nil
}

// UpdateProposalStatus relabels a proposal and attaches reviewer feedback
func (c *Client) UpdateProposalStatus(ctx context.Context, id string, update models.StatusUpdate) (*models.ProposalRecord, error) {
	return call[*models.ProposalRecord](ctx, c, http.MethodPut, "/api/proposals/admin/update/"+url.PathEscape(id), update).Unwrap()
}

// DeleteProposal removes a proposal
func (c *Client) DeleteProposal(ctx context.Context, id string) error {
	_, err := call[json.RawMessage](ctx, c, http.MethodDelete, "/api/proposals/"+url.PathEscape(id), nil).Unwrap()
	return err
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	status, raw, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	if status >= 400 {
		return &APIError{StatusCode: status, Message: strings.TrimSpace(string(raw))}
	}
	return nil
}

// call performs a request and decodes the data of the envelope
func call[T any](ctx context.Context, c *Client, method, path string, body interface{}) Result[T] {
	status, raw, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return Err[T](err)
	}

	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return Err[T](decodeFailure(status, raw, err))
	}

	if status >= 400 || !env.Success {
		apiErr := &APIError{StatusCode: status, Message: env.Message}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			if apiErr.Message == "" {
				apiErr.Message = env.Error.Message
			}
		}
		return Err[T](apiErr)
	}

	return Ok(env.Data)
}

func decodeFailure(status int, raw []byte, err error) error {
	if status >= 400 {
		return &APIError{StatusCode: status, Message: strings.TrimSpace(string(raw))}
	}
	return fmt.Errorf("failed to unmarshal response: %w", err)
}

// doRequest performs an HTTP request and returns the status and body
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token, ok := ctx.Value(tokenKey{}).(string); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: request failed: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: failed to read response: %w", ErrUnavailable, err)
	}

	return resp.StatusCode, respBody, nil
}
