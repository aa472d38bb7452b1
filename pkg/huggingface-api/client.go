package hfapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/canirun/canirun/pkg/xio"
)

const (
	DefaultBaseURL = "https://huggingface.co/api/models"

	maxResponseSize = 16 << 20
)

var (
	// ErrNotFound is wrapped by errors for repositories or files the hub does not serve.
	ErrNotFound = errors.New("not found on the hub")
	// ErrUnauthorized is wrapped by 401 and 403 responses, typically gated repositories
	// requested without an accepted license or token.
	ErrUnauthorized = errors.New("not authorized by the hub")
)

// Model represents a model from the Hugging Face API
type Model struct {
	ModelID      string   `json:"modelId"`
	Author       string   `json:"author"`
	Downloads    int      `json:"downloads"`
	Likes        int      `json:"likes"`
	LastModified string   `json:"lastModified"`
	PipelineTag  string   `json:"pipeline_tag"`
	Private      bool     `json:"private"`
	Tags         []string `json:"tags"`
	LibraryName  string   `json:"library_name"`
}

// SafetensorsInfo is the parameter count the hub computes from the weight files.
type SafetensorsInfo struct {
	Parameters map[string]int64 `json:"parameters"`
	Total      int64            `json:"total"`
}

// ModelInfo is the detailed repository view returned by /api/models/<repo>.
type ModelInfo struct {
	ID          string           `json:"id"`
	Author      string           `json:"author"`
	Downloads   int              `json:"downloads"`
	Likes       int              `json:"likes"`
	PipelineTag string           `json:"pipeline_tag"`
	Tags        []string         `json:"tags"`
	Gated       any              `json:"gated"`
	Safetensors *SafetensorsInfo `json:"safetensors,omitempty"`
	Siblings    []struct {
		RFilename string `json:"rfilename"`
	} `json:"siblings"`
}

// IsGated reports whether the repository requires accepting a license. The hub sends
// false or a string such as "auto".
func (m *ModelInfo) IsGated() bool {
	switch g := m.Gated.(type) {
	case bool:
		return g
	case string:
		return g != ""
	}
	return false
}

// FileInfo represents file information from HuggingFace
type FileInfo struct {
	Type string   `json:"type"`
	Oid  string   `json:"oid"`
	Size int64    `json:"size"`
	Path string   `json:"path"`
	LFS  *LFSInfo `json:"lfs,omitempty"`
}

// LFSInfo represents LFS (Large File Storage) information
type LFSInfo struct {
	Oid         string `json:"oid"`
	Size        int64  `json:"size"`
	PointerSize int    `json:"pointerSize"`
}

// SearchParams represents the parameters for searching models
type SearchParams struct {
	Sort      string `json:"sort"`
	Direction int    `json:"direction"`
	Limit     int    `json:"limit"`
	Search    string `json:"search"`
	Filter    string `json:"filter"`
}

// Client represents a Hugging Face API client
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

type ClientOption func(*Client)

// WithToken authenticates requests, which gated repositories require.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// NewClient creates a new Hugging Face API client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the current base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetBaseURL sets a new base URL (useful for testing)
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// host is the hub root, e.g. https://huggingface.co.
func (c *Client) host() string {
	return strings.TrimSuffix(strings.TrimSuffix(c.baseURL, "/"), "/api/models")
}

// SearchModels searches for models using the Hugging Face API
func (c *Client) SearchModels(ctx context.Context, params SearchParams) ([]Model, error) {
	q := url.Values{}
	if params.Sort != "" {
		q.Add("sort", params.Sort)
	}
	if params.Direction != 0 {
		q.Add("direction", fmt.Sprintf("%d", params.Direction))
	}
	if params.Limit > 0 {
		q.Add("limit", fmt.Sprintf("%d", params.Limit))
	}
	if params.Search != "" {
		q.Add("search", params.Search)
	}
	if params.Filter != "" {
		q.Add("filter", params.Filter)
	}

	var models []Model
	if err := c.getJSON(ctx, c.baseURL+"?"+q.Encode(), "models", &models); err != nil {
		return nil, err
	}
	return models, nil
}

// GetModelInfo fetches repository details, including the safetensors parameter total
func (c *Client) GetModelInfo(ctx context.Context, repoID string) (*ModelInfo, error) {
	var info ModelInfo
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%s", strings.TrimSuffix(c.baseURL, "/"), repoID), "model info", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListFiles lists the files at the root of a HuggingFace repository
func (c *Client) ListFiles(ctx context.Context, repoID string) ([]FileInfo, error) {
	var files []FileInfo
	if err := c.getJSON(ctx, fmt.Sprintf("%s/api/models/%s/tree/main", c.host(), repoID), "files", &files); err != nil {
		return nil, err
	}
	return files, nil
}

// GetConfig downloads the repository's config.json
func (c *Client) GetConfig(ctx context.Context, repoID string) (*ModelConfig, error) {
	var cfg ModelConfig
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%s/resolve/main/config.json", c.host(), repoID), "config", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GGUFFiles keeps the .gguf files of a listing.
func GGUFFiles(files []FileInfo) []FileInfo {
	var res []FileInfo
	for _, f := range files {
		if f.Type != "directory" && strings.EqualFold(path.Ext(f.Path), ".gguf") {
			res = append(res, f)
		}
	}
	return res
}

// FileURL is the download URL of a file in repoID.
func (c *Client) FileURL(repoID, file string) string {
	return fmt.Sprintf("%s/%s/resolve/main/%s", c.host(), repoID, file)
}

func (c *Client) getJSON(ctx context.Context, u, what string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: failed to fetch %s. Status code: %d", ErrNotFound, what, resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: failed to fetch %s. Status code: %d", ErrUnauthorized, what, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("failed to fetch %s. Status code: %d", what, resp.StatusCode)
	}

	body, err := xio.ReadAll(ctx, resp.Body, maxResponseSize)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}
