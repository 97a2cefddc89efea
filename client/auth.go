package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/imposterwatch/imposterwatch/syntax"
)

type AuthMethod interface {
	DoWithAuth(c *http.Client, req *http.Request) (*http.Response, error)
}

type SessionData struct {
	AccessToken  string
	RefreshToken string
	AccountDID   syntax.DID
	Host         string
}

// PasswordAuth is a session created with com.atproto.server.createSession. Expired access tokens are refreshed once
// per failing request.
type PasswordAuth struct {
	Session SessionData

	lk sync.Mutex
}

type createSessionInput struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type sessionOutput struct {
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
	Did        string `json:"did"`
	Handle     string `json:"handle,omitempty"`
	Active     *bool  `json:"active,omitempty"`
	Status     string `json:"status,omitempty"`
}

func (a *PasswordAuth) accessToken() string {
	a.lk.Lock()
	defer a.lk.Unlock()
	return a.Session.AccessToken
}

func (a *PasswordAuth) DoWithAuth(c *http.Client, req *http.Request) (*http.Response, error) {
	token := a.accessToken()
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}

	// on success, or most errors, just return HTTP response
	if resp.StatusCode != http.StatusBadRequest || !strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		return resp, nil
	}

	defer resp.Body.Close()
	var eb ErrorBody
	if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil {
		return nil, &APIError{StatusCode: resp.StatusCode}
	}
	if eb.Name != "ExpiredToken" {
		return nil, eb.APIError(resp.StatusCode)
	}

	if err := a.Refresh(req.Context(), c, token); err != nil {
		return nil, fmt.Errorf("refreshing session: %w", err)
	}

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		retry.Body, err = req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("API request retry GetBody failed: %w", err)
		}
	}
	retry.Header.Set("Authorization", "Bearer "+a.accessToken())
	return c.Do(retry)
}

// Refresh swaps the session tokens using the refresh token. If another caller already refreshed since staleAccess was
// read, this is a no-op.
func (a *PasswordAuth) Refresh(ctx context.Context, c *http.Client, staleAccess string) error {
	a.lk.Lock()
	defer a.lk.Unlock()

	if staleAccess != "" && staleAccess != a.Session.AccessToken {
		return nil
	}

	u := a.Session.Host + "/xrpc/com.atproto.server.refreshSession"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return err
	}
	// NOTE: using refresh token here, not access token
	req.Header.Set("Authorization", "Bearer "+a.Session.RefreshToken)

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

	var out sessionOutput
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	a.Session.AccessToken = out.AccessJwt
	a.Session.RefreshToken = out.RefreshJwt
	return nil
}

// LoginWithPassword creates a session on host and returns a client authenticated as that account.
func LoginWithPassword(ctx context.Context, httpClient *http.Client, host, identifier, password string) (*APIClient, error) {
	if identifier == "" || password == "" {
		return nil, fmt.Errorf("login requires both identifier and password")
	}
	c := NewAPIClient(host)
	c.HTTPClient = httpClient

	var out sessionOutput
	if err := c.Post(ctx, "com.atproto.server.createSession", createSessionInput{
		Identifier: identifier,
		Password:   password,
	}, &out); err != nil {
		return nil, err
	}

	if out.Active != nil && !*out.Active {
		return nil, fmt.Errorf("account is disabled: %v", out.Status)
	}
	did, err := syntax.ParseDID(out.Did)
	if err != nil {
		return nil, fmt.Errorf("createSession returned invalid DID: %w", err)
	}

	c.Auth = &PasswordAuth{
		Session: SessionData{
			AccessToken:  out.AccessJwt,
			RefreshToken: out.RefreshJwt,
			AccountDID:   did,
			Host:         c.Host,
		},
	}
	c.AccountDID = &did
	return c, nil
}
