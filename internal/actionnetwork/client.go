// Package actionnetwork talks to the Action Network OSDI API: people, tags and taggings.
package actionnetwork

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
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the Action Network API v2 root.
const DefaultBaseURL = "https://actionnetwork.org/api/v2"

const sinceLayout = "2006-01-02T15:04:05"

var (
	// ErrUnexpectedStatus is returned when the API answers with a non-2xx status.
	ErrUnexpectedStatus = errors.New("action network API returned unexpected status")
	// ErrNotFound additionally marks a 404 answer.
	ErrNotFound = errors.New("resource not found")
)

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an Action Network API client. Every request waits on the rate limiter.
type Client struct {
	client  HTTPClient    // HTTP client for making requests
	baseURL string        // API root without a trailing slash
	apiKey  string        // OSDI API token of the group
	limiter *rate.Limiter // Keeps requests under the API's rate limit
	log     *slog.Logger  // Logger for logging operations
}

// NewClient creates a Client with a timeout-bounded HTTP client.
// Action Network allows 4 requests per second, which is used when rateLimit is not positive.
func NewClient(baseURL, apiKey string, timeout time.Duration, rateLimit int, log *slog.Logger) *Client {
	const defaultRateLimit = 4
	if rateLimit <= 0 {
		rateLimit = defaultRateLimit
	}

	return NewClientWithHTTP(
		&http.Client{Timeout: timeout},
		baseURL,
		apiKey,
		rate.NewLimiter(rate.Limit(rateLimit), 1),
		log,
	)
}

// NewClientWithHTTP allows injecting a custom HTTP client and limiter.
func NewClientWithHTTP(client HTTPClient, baseURL, apiKey string, limiter *rate.Limiter, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		limiter: limiter,
		log:     log,
	}
}

// RejectedRecord is a person record that failed validation.
type RejectedRecord struct {
	Raw string
	Err error
}

// PeoplePage is one page of the people listing.
type PeoplePage struct {
	People     []Person
	Rejected   []RejectedRecord
	Page       int
	TotalPages int
}

// Last reports whether no further pages follow this one.
func (p PeoplePage) Last() bool {
	return (len(p.People) == 0 && len(p.Rejected) == 0) || p.Page >= p.TotalPages
}

// Tag is a tag definition from the tag catalog.
type Tag struct {
	ID   string
	Name string
}

// TagPage is one page of the tag catalog.
type TagPage struct {
	Tags       []Tag
	Page       int
	TotalPages int
}

type halPage struct {
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
	Embedded   struct {
		People   []json.RawMessage `json:"osdi:people"`
		Tags     []tagRecord       `json:"osdi:tags"`
		Taggings []taggingRecord   `json:"osdi:taggings"`
	} `json:"_embedded"`
}

type tagRecord struct {
	Identifiers []string `json:"identifiers"`
	Name        string   `json:"name"`
}

type taggingRecord struct {
	Links struct {
		Tag struct {
			Href string `json:"href"`
		} `json:"osdi:tag"`
	} `json:"_links"`
}

type taggingRequest struct {
	Links struct {
		Person struct {
			Href string `json:"href"`
		} `json:"osdi:person"`
	} `json:"_links"`
}

// ListPeople returns one page of people, optionally only those modified after since.
func (c *Client) ListPeople(ctx context.Context, page int, since *time.Time) (PeoplePage, error) {
	params := url.Values{"page": {strconv.Itoa(page)}}
	if since != nil {
		params.Set("filter", fmt.Sprintf("modified_date gt '%s'", since.UTC().Format(sinceLayout)))
	}

	var resp halPage
	if err := c.do(ctx, http.MethodGet, "/people", params, nil, &resp); err != nil {
		return PeoplePage{}, fmt.Errorf("failed to list people page %d: %w", page, err)
	}

	result := PeoplePage{Page: page, TotalPages: resp.TotalPages}
	for _, raw := range resp.Embedded.People {
		person, err := ParsePerson(raw)
		if err != nil {
			result.Rejected = append(result.Rejected, RejectedRecord{Raw: string(raw), Err: err})
			continue
		}
		result.People = append(result.People, person)
	}

	return result, nil
}

// GetPerson fetches a single person by identifier.
func (c *Client) GetPerson(ctx context.Context, personID string) (Person, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/people/"+url.PathEscape(personID), nil, nil, &raw); err != nil {
		return Person{}, fmt.Errorf("failed to get person %s: %w", personID, err)
	}

	person, err := ParsePerson(raw)
	if err != nil {
		return Person{}, fmt.Errorf("failed to parse person %s: %w", personID, err)
	}

	return person, nil
}

// ListTags returns one page of the tag catalog.
func (c *Client) ListTags(ctx context.Context, page int) (TagPage, error) {
	params := url.Values{"page": {strconv.Itoa(page)}}

	var resp halPage
	if err := c.do(ctx, http.MethodGet, "/tags", params, nil, &resp); err != nil {
		return TagPage{}, fmt.Errorf("failed to list tags page %d: %w", page, err)
	}

	result := TagPage{Page: page, TotalPages: resp.TotalPages}
	for _, record := range resp.Embedded.Tags {
		id, ok := identifierFrom(record.Identifiers)
		if !ok {
			c.log.DebugContext(ctx, "Skipping tag without identifier", "name", record.Name)
			continue
		}
		result.Tags = append(result.Tags, Tag{ID: id, Name: record.Name})
	}

	return result, nil
}

// ListTaggings returns the identifiers of every tag currently applied to the person.
func (c *Client) ListTaggings(ctx context.Context, personID string) ([]string, error) {
	var tagIDs []string
	path := "/people/" + url.PathEscape(personID) + "/taggings"

	for page := 1; ; page++ {
		var resp halPage
		params := url.Values{"page": {strconv.Itoa(page)}}
		if err := c.do(ctx, http.MethodGet, path, params, nil, &resp); err != nil {
			return nil, fmt.Errorf("failed to list taggings of person %s: %w", personID, err)
		}

		for _, tagging := range resp.Embedded.Taggings {
			href := strings.TrimRight(tagging.Links.Tag.Href, "/")
			if href == "" {
				continue
			}
			tagIDs = append(tagIDs, href[strings.LastIndex(href, "/")+1:])
		}

		if len(resp.Embedded.Taggings) == 0 || page >= resp.TotalPages {
			break
		}
	}

	return tagIDs, nil
}

// AddTagging applies the tag to the person.
func (c *Client) AddTagging(ctx context.Context, tagID, personID string) error {
	var body taggingRequest
	body.Links.Person.Href = c.baseURL + "/people/" + url.PathEscape(personID)

	path := "/tags/" + url.PathEscape(tagID) + "/taggings"
	params := url.Values{"background_request": {"true"}}
	if err := c.do(ctx, http.MethodPost, path, params, body, nil); err != nil {
		return fmt.Errorf("failed to tag person %s with %s: %w", personID, tagID, err)
	}

	return nil
}

// RemoveTagging removes the tag from the person.
func (c *Client) RemoveTagging(ctx context.Context, tagID, personID string) error {
	path := "/tags/" + url.PathEscape(tagID) + "/taggings/" + url.PathEscape(personID)
	params := url.Values{"background_request": {"true"}}
	if err := c.do(ctx, http.MethodDelete, path, params, nil, nil); err != nil {
		return fmt.Errorf("failed to untag person %s from %s: %w", personID, tagID, err)
	}

	return nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("OSDI-API-Token", c.apiKey)
	req.Header.Set("Accept", "application/hal+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.DebugContext(ctx, "Action Network request", "method", method, "url", reqURL)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	c.log.DebugContext(ctx, "Action Network response", "status", resp.StatusCode, "bytes", len(respBody))

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w: %d", ErrUnexpectedStatus, ErrNotFound, resp.StatusCode)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err = json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
