// Package themeparks is a client for the public live wait-time API.
package themeparks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bryan-buckman/parkline/internal/model"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://api.themeparks.wiki/v1"

// maxErrorBody caps how much of a failed response body ends up in an error.
const maxErrorBody = 200

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("themeparks %s: status %d: %s", e.Path, e.StatusCode, e.Body)
}

// ChildEntity is one entry of an entity's children listing.
type ChildEntity struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	EntityType model.EntityType `json:"entityType"`
	ParentID   string           `json:"parentId,omitempty"`
	Slug       string           `json:"slug,omitempty"`
}

// DestinationPark is a park listed under a destination.
type DestinationPark struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Destination is a resort grouping one or more parks.
type Destination struct {
	ID    string            `json:"id"`
	Name  string            `json:"name"`
	Slug  string            `json:"slug,omitempty"`
	Parks []DestinationPark `json:"parks"`
}

type liveResponse struct {
	LiveData struct {
		Entities []model.LiveEntity `json:"entities"`
	} `json:"liveData"`
}

type childrenResponse struct {
	Children []ChildEntity `json:"children"`
}

type destinationsResponse struct {
	Destinations []Destination `json:"destinations"`
}

// Client talks to the wait-time API. It does not retry and relies on the
// caller's context for deadlines.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client. An empty baseURL selects DefaultBaseURL and a nil
// httpClient selects http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// Live returns the live entities of a park. A feed without entities yields an
// empty slice.
func (c *Client) Live(ctx context.Context, parkID string) ([]model.LiveEntity, error) {
	var resp liveResponse
	if err := c.get(ctx, "/entity/"+url.PathEscape(parkID)+"/live", &resp); err != nil {
		return nil, err
	}
	if resp.LiveData.Entities == nil {
		return []model.LiveEntity{}, nil
	}
	return resp.LiveData.Entities, nil
}

// Entity returns the raw detail document of a single entity.
func (c *Client) Entity(ctx context.Context, entityID string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/entity/"+url.PathEscape(entityID), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Children lists the child entities of an entity.
func (c *Client) Children(ctx context.Context, entityID string) ([]ChildEntity, error) {
	var resp childrenResponse
	if err := c.get(ctx, "/entity/"+url.PathEscape(entityID)+"/children", &resp); err != nil {
		return nil, err
	}
	if resp.Children == nil {
		return []ChildEntity{}, nil
	}
	return resp.Children, nil
}

// Destinations lists every destination known to the API.
func (c *Client) Destinations(ctx context.Context) ([]Destination, error) {
	var resp destinationsResponse
	if err := c.get(ctx, "/destinations", &resp); err != nil {
		return nil, err
	}
	if resp.Destinations == nil {
		return []Destination{}, nil
	}
	return resp.Destinations, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
