package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Document is the wire form of a preference set. The account service encodes
// booleans as strings; mapping to typed values happens in the prefs package.
type Document struct {
	BionicReading string `json:"bionicReading"`
	BodyFont      string `json:"bodyFont"`
}

// Client communicates with the account service's preferences API over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a Client targeting the given account service base URL. An
// empty token is valid and simply yields an unauthenticated session.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		// Deadlines come from the per-call contexts below.
		httpClient: &http.Client{},
	}
}

// authStatusResponse mirrors the JSON returned by GET /v1/auth/status.
type authStatusResponse struct {
	Authenticated bool `json:"authenticated"`
}

// AuthStatus reports whether the configured token identifies an active
// session.
func (c *Client) AuthStatus(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/auth/status", nil)
	if err != nil {
		return false, fmt.Errorf("creating auth status request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("requesting auth status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("auth status: unexpected status %d", resp.StatusCode)
	}

	var status authStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return false, fmt.Errorf("decoding auth status: %w", err)
	}
	return status.Authenticated, nil
}

// FetchPreferences retrieves the stored preference document for the session.
func (c *Client) FetchPreferences(ctx context.Context) (Document, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/preferences", nil)
	if err != nil {
		return Document{}, fmt.Errorf("creating preferences request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("requesting preferences: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("preferences: unexpected status %d", resp.StatusCode)
	}

	var doc Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decoding preferences: %w", err)
	}
	return doc, nil
}

// WritePreference persists a single preference field. The value travels in
// its string form; the response body carries no contract beyond the status.
func (c *Client) WritePreference(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	body, err := json.Marshal(map[string]string{key: value})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+"/v1/preferences", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating preference write request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("writing preference %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("write %s: unexpected status %d", key, resp.StatusCode)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
