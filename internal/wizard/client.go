package wizard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/prdforge/prdforge/internal/gateway"
	"github.com/prdforge/prdforge/internal/project"
	"github.com/prdforge/prdforge/internal/storage"
)

// Client talks to a remote prdforge server, implementing both Generator and
// ProjectAPI over its HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL. token may be empty
// for anonymous use.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, token: token, http: httpClient}
}

type generatePayload struct {
	gateway.Request
	Stream bool `json:"stream,omitempty"`
}

// Complete runs a buffered generation call.
func (c *Client) Complete(ctx context.Context, req gateway.Request) (string, error) {
	resp, err := c.post(ctx, "/api/v1/generate", generatePayload{Request: req})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.statusError(resp)
	}

	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode generation response: %w", err)
	}
	return body.Message, nil
}

// Stream runs a streamed generation call, relaying the chunked response body
// as fragments. A response without a body is fatal.
func (c *Client) Stream(ctx context.Context, req gateway.Request) (<-chan gateway.Fragment, error) {
	resp, err := c.post(ctx, "/api/v1/generate", generatePayload{Request: req, Stream: true})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, c.statusError(resp)
	}
	if resp.Body == nil {
		return nil, fmt.Errorf("streaming response has no body")
	}

	out := make(chan gateway.Fragment)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		buf := make([]byte, 4096)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				select {
				case out <- gateway.Fragment{Text: string(buf[:n])}:
				case <-ctx.Done():
					return
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				out <- gateway.Fragment{Err: err}
				return
			}
		}
	}()
	return out, nil
}

// Create persists a new project.
func (c *Client) Create(ctx context.Context, p *project.Project) (*project.Project, error) {
	resp, err := c.post(ctx, "/api/v1/projects", p)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}
	return decodeProject(resp.Body)
}

// Get fetches a project by id.
func (c *Client) Get(ctx context.Context, id string) (*project.Project, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/projects/"+id, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}
	return decodeProject(resp.Body)
}

// Update patches a project.
func (c *Client) Update(ctx context.Context, id string, patch *project.Patch) (*project.Project, error) {
	resp, err := c.do(ctx, http.MethodPatch, "/api/v1/projects/"+id, patch)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}
	return decodeProject(resp.Body)
}

// Delete removes a project.
func (c *Client) Delete(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/api/v1/projects/"+id, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, path, payload)
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	return resp, nil
}

// statusError maps error responses to the store's sentinel errors so the
// workflow treats local and remote stores uniformly.
func (c *Client) statusError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusNotFound:
		return storage.ErrNotFound
	case http.StatusForbidden, http.StatusUnauthorized:
		return storage.ErrForbidden
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("server error (%d)", resp.StatusCode)
}

func decodeProject(r io.Reader) (*project.Project, error) {
	var p project.Project
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}
	return &p, nil
}
