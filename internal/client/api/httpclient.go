package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/blindvote/blindvote/internal/common"
	"github.com/sethvargo/go-retry"
)

// HTTPClient implements Client over the server's JSON REST API. Transient
// transport failures are retried with fibonacci backoff before surfacing as
// common.ErrNetwork.
type HTTPClient struct {
	baseURL     string
	http        *http.Client
	accessToken string
	maxRetries  uint64
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
	}
}

// SetTimeout overrides the per-request timeout.
func (c *HTTPClient) SetTimeout(d time.Duration) {
	c.http.Timeout = d
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// do performs one request with retries, decoding a JSON response into out
// when out is non-nil.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewFibonacci(200*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.accessToken != "" {
			req.Header.Set(common.AccessTokenHeaderName, "Bearer "+c.accessToken)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return retry.RetryableError(fmt.Errorf("%w: %v", common.ErrNetwork, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			return retry.RetryableError(fmt.Errorf("%w: status %d", common.ErrNetwork, resp.StatusCode))
		}

		if resp.StatusCode >= 400 {
			var er errorResponse
			if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
				return common.ErrorInternal
			}
			return common.ErrorFromCode(er.Code)
		}

		if out == nil {
			io.Copy(io.Discard, resp.Body)
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}

func (c *HTTPClient) Register(ctx context.Context, username, displayName, password string) error {
	body := map[string]string{"username": username, "display_name": displayName, "password": password}
	return c.do(ctx, http.MethodPost, "/api/v1/register", body, nil)
}

// Login stores the access token for subsequent authenticated calls.
func (c *HTTPClient) Login(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/login", body, &resp); err != nil {
		return err
	}
	c.accessToken = resp.AccessToken
	return nil
}

func (c *HTTPClient) RegisterPublicKey(ctx context.Context, publicKeyPEM string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/keys", map[string]string{"public_key_pem": publicKeyPEM}, nil)
}

func (c *HTTPClient) Me(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodGet, "/api/v1/me", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) ListActiveElections(ctx context.Context) ([]Election, error) {
	var list []Election
	if err := c.do(ctx, http.MethodGet, "/api/v1/elections", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *HTTPClient) GetElection(ctx context.Context, electionID int64) (*Election, error) {
	var e Election
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/elections/%d", electionID), nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *HTTPClient) ElectionPublicKey(ctx context.Context, electionID int64) (string, error) {
	var resp struct {
		PublicKeyPEM string `json:"public_key_pem"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/elections/%d/public-key", electionID), nil, &resp); err != nil {
		return "", err
	}
	return resp.PublicKeyPEM, nil
}

func (c *HTTPClient) IssueToken(ctx context.Context, electionID int64, blindedToken string) (*BlindToken, error) {
	var t BlindToken
	body := map[string]string{"blinded_token": blindedToken}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/elections/%d/tokens", electionID), body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *HTTPClient) TokenStatus(ctx context.Context, electionID int64) (*BlindToken, error) {
	var t BlindToken
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/elections/%d/tokens/status", electionID), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *HTTPClient) CastVote(ctx context.Context, electionID int64, ballot Ballot) (*Receipt, error) {
	var r Receipt
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/elections/%d/votes", electionID), ballot, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *HTTPClient) HasVoted(ctx context.Context, electionID int64) (bool, error) {
	var resp struct {
		HasVoted bool `json:"has_voted"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/elections/%d/has-voted", electionID), nil, &resp); err != nil {
		return false, err
	}
	return resp.HasVoted, nil
}

func (c *HTTPClient) GetReceipt(ctx context.Context, electionID int64) (*Receipt, error) {
	var r Receipt
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/elections/%d/receipt", electionID), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *HTTPClient) Results(ctx context.Context, electionID int64) (*Results, error) {
	var r Results
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/elections/%d/results", electionID), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *HTTPClient) AuditTokens(ctx context.Context, electionID *int64) (*AuditReport, error) {
	path := "/api/v1/admin/tokens"
	if electionID != nil {
		path = fmt.Sprintf("%s?election_id=%d", path, *electionID)
	}
	var report AuditReport
	if err := c.do(ctx, http.MethodGet, path, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
