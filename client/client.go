package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/carlmjohnson/versioninfo"

	"github.com/imposterwatch/imposterwatch/syntax"
)

// APIClient makes atproto XRPC calls against a single host (PDS or entryway).
type APIClient struct {
	// If nil, http.DefaultClient is used. See util.RobustHTTPClient.
	HTTPClient *http.Client
	Host       string
	Auth       AuthMethod
	UserAgent  string

	// Set after a successful login.
	AccountDID *syntax.DID
}

func NewAPIClient(host string) *APIClient {
	return &APIClient{
		Host: strings.TrimSuffix(host, "/"),
	}
}

// Post is a helper for JSON-to-JSON "procedure" endpoints. If out is non-nil, the response body is decoded into it.
func (c *APIClient) Post(ctx context.Context, endpoint string, body any, out any) error {
	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return err
	}

	u, err := url.Parse(c.Host)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API host must be a full URL, got %q", c.Host)
	}
	u.Path = "/xrpc/" + endpoint

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(bodyJSON))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !(resp.StatusCode >= 200 && resp.StatusCode < 300) {
		var eb ErrorBody
		if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil {
			return &APIError{StatusCode: resp.StatusCode}
		}
		return eb.APIError(resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("expected JSON response body: %w", err)
		}
	}
	return nil
}

// Do sends a request, adding the User-Agent header and authentication if configured.
func (c *APIClient) Do(req *http.Request) (*http.Response, error) {
	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	ua := c.UserAgent
	if ua == "" {
		ua = "imposterwatch/" + versioninfo.Short()
	}
	req.Header.Set("User-Agent", ua)

	if c.Auth != nil {
		return c.Auth.DoWithAuth(hc, req)
	}
	return hc.Do(req)
}
