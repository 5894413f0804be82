package gist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	BaseURL = "https://api.github.com"
)

// Client is a GitHub Gist API client bound to one gist
type Client struct {
	baseURL    string
	token      string
	gistID     string
	httpClient *http.Client
}

// File is a single file inside a gist. GitHub cuts Content short for
// large files and sets Truncated; the full text is then at RawURL.
type File struct {
	Content   string `json:"content"`
	Truncated bool   `json:"truncated,omitempty"`
	RawURL    string `json:"raw_url,omitempty"`
}

type gistResponse struct {
	ID    string          `json:"id"`
	Files map[string]File `json:"files"`
}

type updateRequest struct {
	Files map[string]File `json:"files"`
}

// NewClient creates a new gist client
func NewClient(token, gistID string, timeout time.Duration) *Client {
	return &Client{
		baseURL: BaseURL,
		token:   token,
		gistID:  gistID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetBaseURL points the client at another API host
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// IsConfigured returns true if both the token and gist ID are set
func (c *Client) IsConfigured() bool {
	return c.token != "" && c.gistID != ""
}

// doRequest performs an authenticated request against the gist
func (c *Client) doRequest(ctx context.Context, method string, body interface{}) ([]byte, error) {
	return c.doURL(ctx, method, c.baseURL+"/gists/"+c.gistID, body)
}

func (c *Client) doURL(ctx context.Context, method, url string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// GetFile returns the content of filename, or "" if the gist has no such
// file. Truncated files are fetched in full from their raw URL.
func (c *Client) GetFile(ctx context.Context, filename string) (string, error) {
	data, err := c.doRequest(ctx, http.MethodGet, nil)
	if err != nil {
		return "", err
	}

	var g gistResponse
	if err := json.Unmarshal(data, &g); err != nil {
		return "", fmt.Errorf("decode gist: %w", err)
	}

	f := g.Files[filename]
	if !f.Truncated {
		return f.Content, nil
	}
	if f.RawURL == "" {
		return "", fmt.Errorf("gist file %s is truncated and has no raw_url", filename)
	}

	raw, err := c.doURL(ctx, http.MethodGet, f.RawURL, nil)
	if err != nil {
		return "", fmt.Errorf("fetch raw %s: %w", filename, err)
	}
	return string(raw), nil
}

// UpdateFile replaces the content of filename
func (c *Client) UpdateFile(ctx context.Context, filename, content string) error {
	req := updateRequest{Files: map[string]File{filename: {Content: content}}}
	_, err := c.doRequest(ctx, http.MethodPatch, req)
	return err
}
