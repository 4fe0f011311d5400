// Package mailchimp implements the client for the remote contact store.
//
// The store addresses audience members by the MD5 hash of the lowercased
// email address. All calls are single-attempt: row-level sync never retries
// a failed remote call, so no retry wrapper is layered on the HTTP client.
package mailchimp

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rtlmb/member-sync/internal/config"
)

// ErrNotFound is returned when the remote store has no member for the key.
var ErrNotFound = errors.New("mailchimp: member not found")

// HTTPDoer is the interface for executing HTTP requests.
// *http.Client satisfies it; tests substitute fakes.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the remote contact store API client.
type Client struct {
	baseURL    string
	apiKey     string
	audienceID string
	httpClient HTTPDoer
}

// NewClient creates a new contact store client.
func NewClient(cfg config.MailchimpConfig) *Client {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		audienceID: cfg.AudienceID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client HTTPDoer) {
	c.httpClient = client
}

// SubscriberHash returns the remote store's lookup key for an email:
// the hex MD5 of the lowercased address.
func SubscriberHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(email)))
	return hex.EncodeToString(sum[:])
}

// doRequest performs an authenticated request against the API. Non-2xx
// responses become errors carrying the API's detail message when present;
// 404 maps to ErrNotFound so callers can branch on it.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	// The API ignores the username; the key carries the credentials.
	req.SetBasicAuth("anystring", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Detail != "" {
			return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, apiErr.Detail)
		}
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// GetContact fetches a member by email. A missing member is a valid outcome
// and returns (nil, nil), not an error.
func (c *Client) GetContact(ctx context.Context, email string) (*Contact, error) {
	endpoint := fmt.Sprintf("/lists/%s/members/%s", c.audienceID, SubscriberHash(email))
	respBody, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}

	var m memberResponse
	if err := json.Unmarshal(respBody, &m); err != nil {
		return nil, fmt.Errorf("failed to parse member response: %w", err)
	}
	contact := &Contact{
		EmailAddress: m.EmailAddress,
		Status:       m.Status,
		MergeFields:  m.MergeFields,
	}
	for _, tag := range m.Tags {
		contact.Tags = append(contact.Tags, tag.Name)
	}
	return contact, nil
}

// UpdateContact writes the full member payload against the email's hash.
// Returns ErrNotFound when the member does not exist yet.
func (c *Client) UpdateContact(ctx context.Context, contact Contact) error {
	endpoint := fmt.Sprintf("/lists/%s/members/%s", c.audienceID, SubscriberHash(contact.EmailAddress))
	if _, err := c.doRequest(ctx, http.MethodPut, endpoint, contact); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("update contact: %w", err)
	}
	return nil
}

// CreateContact adds a new member to the audience.
func (c *Client) CreateContact(ctx context.Context, contact Contact) error {
	endpoint := fmt.Sprintf("/lists/%s/members", c.audienceID)
	if _, err := c.doRequest(ctx, http.MethodPost, endpoint, contact); err != nil {
		return fmt.Errorf("create contact: %w", err)
	}
	return nil
}

// UpdateTags activates the given tags on a member. The remote endpoint is
// additive; tags carried by the member but absent here are left alone.
func (c *Client) UpdateTags(ctx context.Context, email string, tags []string) error {
	update := tagUpdate{}
	for _, tag := range tags {
		update.Tags = append(update.Tags, tagEntry{Name: tag, Status: "active"})
	}
	endpoint := fmt.Sprintf("/lists/%s/members/%s/tags", c.audienceID, SubscriberHash(email))
	if _, err := c.doRequest(ctx, http.MethodPost, endpoint, update); err != nil {
		return fmt.Errorf("update tags: %w", err)
	}
	return nil
}

// Ping verifies connectivity and credentials by fetching the audience.
func (c *Client) Ping(ctx context.Context) error {
	endpoint := fmt.Sprintf("/lists/%s", c.audienceID)
	if _, err := c.doRequest(ctx, http.MethodGet, endpoint, nil); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
