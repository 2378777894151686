// Package rest provides the HTTP client for the persistence API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/loomengine/loom/pkg/domain"
	"github.com/loomengine/loom/pkg/ports"
)

const defaultTimeout = 30 * time.Second

// Client implements ports.Remote against the persistence API. Policy
// failures arrive as wire codes and are mapped back to the domain
// sentinel errors, so callers use errors.Is exactly as they would with
// an in-process remote.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ ports.Remote = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured service URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// do issues a request and decodes the response into out (when non-nil).
// Non-2xx responses become errors; recognized wire codes become domain
// sentinels.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil && body.Code != "" {
		if sentinel := domain.ErrorForCode(body.Code); sentinel != nil {
			return sentinel
		}
	}
	msg := body.Error
	if msg == "" {
		msg = strings.TrimSpace(string(data))
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("remote returned %d: %s", resp.StatusCode, msg)
}

// EnsureWorkflow registers a workflow ID with the service. Idempotent.
func (c *Client) EnsureWorkflow(ctx context.Context, workflowID string) error {
	body := map[string]string{"id": workflowID}
	return c.do(ctx, http.MethodPost, "/workflows", body, nil)
}

// ListWorkflows returns the registered workflow IDs.
func (c *Client) ListWorkflows(ctx context.Context) ([]string, error) {
	var ids []string
	if err := c.do(ctx, http.MethodGet, "/workflows", nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListNodes implements ports.Remote.
func (c *Client) ListNodes(ctx context.Context, workflowID string) ([]domain.Node, error) {
	var nodes []domain.Node
	if err := c.do(ctx, http.MethodGet, "/workflows/"+workflowID+"/nodes", nil, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// ListConnections implements ports.Remote.
func (c *Client) ListConnections(ctx context.Context, workflowID string) ([]domain.Connection, error) {
	var conns []domain.Connection
	if err := c.do(ctx, http.MethodGet, "/workflows/"+workflowID+"/connections", nil, &conns); err != nil {
		return nil, err
	}
	return conns, nil
}

// Graph implements ports.Remote.
func (c *Client) Graph(ctx context.Context, workflowID string) (domain.GraphDescriptor, error) {
	var desc domain.GraphDescriptor
	if err := c.do(ctx, http.MethodGet, "/workflows/"+workflowID+"/graph", nil, &desc); err != nil {
		return domain.GraphDescriptor{}, err
	}
	return desc, nil
}

// Modules implements ports.Remote.
func (c *Client) Modules(ctx context.Context) ([]domain.Module, error) {
	var modules []domain.Module
	if err := c.do(ctx, http.MethodGet, "/modules", nil, &modules); err != nil {
		return nil, err
	}
	return modules, nil
}

// CreateNode implements ports.Remote.
func (c *Client) CreateNode(ctx context.Context, workflowID string, draft domain.NodeDraft) (domain.Node, error) {
	var node domain.Node
	if err := c.do(ctx, http.MethodPost, "/workflows/"+workflowID+"/nodes", draft, &node); err != nil {
		return domain.Node{}, err
	}
	return node, nil
}

// UpdateNode implements ports.Remote.
func (c *Client) UpdateNode(ctx context.Context, nodeID string, patch domain.NodePatch) (domain.Node, error) {
	var node domain.Node
	if err := c.do(ctx, http.MethodPut, "/nodes/"+nodeID, patch, &node); err != nil {
		return domain.Node{}, err
	}
	return node, nil
}

// DeleteNode implements ports.Remote.
func (c *Client) DeleteNode(ctx context.Context, nodeID string) error {
	return c.do(ctx, http.MethodDelete, "/nodes/"+nodeID, nil, nil)
}

// CreateConnection implements ports.Remote.
func (c *Client) CreateConnection(ctx context.Context, workflowID string, draft domain.ConnectionDraft) (domain.Connection, error) {
	var conn domain.Connection
	if err := c.do(ctx, http.MethodPost, "/workflows/"+workflowID+"/connections", draft, &conn); err != nil {
		return domain.Connection{}, err
	}
	return conn, nil
}

// DeleteConnection implements ports.Remote.
func (c *Client) DeleteConnection(ctx context.Context, connectionID string) error {
	return c.do(ctx, http.MethodDelete, "/connections/"+connectionID, nil, nil)
}
