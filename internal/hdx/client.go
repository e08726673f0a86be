// Package hdx talks to the CKAN action API of the Humanitarian Data Exchange.
package hdx

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

	"github.com/sony/gobreaker"

	"github.com/hdx-scrapers/icpac-cdi/internal/cdi"
	"github.com/hdx-scrapers/icpac-cdi/internal/resilience"
)

// DefaultSiteURL is the production HDX site.
const DefaultSiteURL = "https://data.humdata.org"

// ErrNoWriteAccess is returned when the API key cannot create datasets in an organization.
var ErrNoWriteAccess = errors.New("no write access to organization")

// Client is a minimal CKAN action API client.
type Client struct {
	baseURL string
	apiKey  string

	// uploads get their own timeout; both share the catalog breaker
	api     resilience.Config
	uploads resilience.Config
	circuit *gobreaker.CircuitBreaker
}

// Config configures a Client.
type Config struct {
	SiteURL   string
	APIKey    string
	UserAgent string
	// Timeout bounds each action call.
	Timeout time.Duration
	// UploadTimeout bounds each resource upload.
	UploadTimeout time.Duration
	// Backoff defaults to resilience.DefaultBackoff.
	Backoff resilience.BackoffConfig
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Body       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	}

	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

// IsNotFoundError checks if an error is a 404 Not Found error.
func IsNotFoundError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}

	return false
}

// NewClient creates a new API client.
func NewClient(cfg Config) *Client {
	if cfg.SiteURL == "" {
		cfg.SiteURL = DefaultSiteURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 30 * time.Minute
	}
	if cfg.Backoff == (resilience.BackoffConfig{}) {
		cfg.Backoff = resilience.DefaultBackoff
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.SiteURL, "/"),
		apiKey:  cfg.APIKey,
		api: resilience.Config{
			Client:    &http.Client{Timeout: cfg.Timeout},
			Backoff:   cfg.Backoff,
			UserAgent: cfg.UserAgent,
		},
		uploads: resilience.Config{
			Client:    &http.Client{Timeout: cfg.UploadTimeout},
			Backoff:   cfg.Backoff,
			UserAgent: cfg.UserAgent,
		},
		circuit: resilience.NewCircuitBreaker("hdx"),
	}
}

// envelope is the CKAN response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Type    string `json:"__type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) actionURL(action string, query url.Values) string {
	u := c.baseURL + "/api/3/action/" + action
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Action calls a CKAN action. A nil body issues a GET; otherwise body is sent as JSON.
func (c *Client) Action(ctx context.Context, action string, query url.Values, body, result any) error {
	var (
		method   = http.MethodGet
		jsonData []byte
	)

	if body != nil {
		var err error
		jsonData, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		method = http.MethodPost
	}

	return c.do(ctx, c.api, result, func() (*http.Request, error) {
		var reqBody io.Reader
		if body != nil {
			reqBody = bytes.NewReader(jsonData)
		}
		req, err := http.NewRequest(method, c.actionURL(action, query), reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	})
}

// do sends the request built by buildRequest and decodes the CKAN envelope
// into result.
func (c *Client) do(ctx context.Context, cfg resilience.Config, result any, buildRequest func() (*http.Request, error)) error {
	resp, err := resilience.Do(ctx, cfg, c.circuit, func() (*http.Request, error) {
		req, err := buildRequest()
		if err != nil {
			return nil, err
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", c.apiKey)
		}
		return req, nil
	})

	var se *resilience.StatusError
	if errors.As(err, &se) {
		return apiError(se.StatusCode, []byte(se.Body))
	}
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !env.Success {
		return apiError(resp.StatusCode, respBody)
	}

	if result != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, result); err != nil {
			return fmt.Errorf("failed to decode result: %w", err)
		}
	}

	return nil
}

// apiError builds an APIError from a failed response, reading the CKAN error
// message when the body carries one.
func apiError(status int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Body:       string(body),
	}

	var env envelope
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		apiErr.Message = env.Error.Message
		if env.Error.Type == "Not Found Error" {
			apiErr.StatusCode = http.StatusNotFound
		}
	}
	return apiErr
}

type ckanResource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ckanPackage struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Resources []ckanResource `json:"resources"`
}

func (c *Client) showPackage(ctx context.Context, name string) (ckanPackage, error) {
	var pkg ckanPackage
	err := c.Action(ctx, "package_show", url.Values{"id": {name}}, nil, &pkg)
	return pkg, err
}

// ReadDataset returns the dataset called name and its resources in catalog order.
// It returns cdi.ErrDatasetNotFound when the dataset does not exist.
func (c *Client) ReadDataset(ctx context.Context, name string) (cdi.PublishedDataset, error) {
	pkg, err := c.showPackage(ctx, name)
	if IsNotFoundError(err) {
		return cdi.PublishedDataset{}, fmt.Errorf("%w: %s", cdi.ErrDatasetNotFound, name)
	}
	if err != nil {
		return cdi.PublishedDataset{}, err
	}

	ds := cdi.PublishedDataset{ID: pkg.ID, Name: pkg.Name}
	for _, r := range pkg.Resources {
		ds.Resources = append(ds.Resources, cdi.PublishedResource{ID: r.ID, Name: r.Name})
	}
	return ds, nil
}

// CheckWriteAccess verifies that the API key may create datasets in organization.
func (c *Client) CheckWriteAccess(ctx context.Context, organization string) error {
	var orgs []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := c.Action(ctx, "organization_list_for_user", url.Values{"permission": {"create_dataset"}}, nil, &orgs); err != nil {
		return fmt.Errorf("list organizations: %w", err)
	}
	for _, o := range orgs {
		if o.Name == organization || o.ID == organization {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNoWriteAccess, organization)
}
