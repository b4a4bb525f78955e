package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"ipsagent/internal"
	"ipsagent/internal/config"
)

// CredentialStore resolves the bearer token for backend calls. The session
// store implements it; an empty token falls back to the configured one.
type CredentialStore interface {
	Token() (string, error)
}

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *limiter
	creds      CredentialStore
}

type AssignPayload struct {
	DriverID         int64  `json:"driverId"`
	AssignedQuantity int    `json:"assignedQuantity"`
	DeliveryDate     string `json:"deliveryDate,omitempty"`
}

type statusPayload struct {
	Status internal.Status `json:"status"`
}

func NewClient(cfg config.Config, creds CredentialStore) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.APITimeoutMs) * time.Millisecond},
		limiter:    newLimiter(cfg.APIRateLimitRPS),
		creds:      creds,
	}
}

func (c *Client) Drivers(ctx context.Context) ([]internal.Driver, error) {
	var out []internal.Driver
	if err := c.getJSON(ctx, "/auth/drivers/all", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RequestsForProject(ctx context.Context, projectID int64) ([]internal.MaterialRequest, error) {
	var out []internal.MaterialRequest
	if err := c.getJSON(ctx, fmt.Sprintf("/material-requests/project/%d/all", projectID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AllRequests(ctx context.Context) ([]internal.MaterialRequest, error) {
	var out []internal.MaterialRequest
	if err := c.getJSON(ctx, "/material-requests/all", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PendingRequests(ctx context.Context) ([]internal.MaterialRequest, error) {
	var out []internal.MaterialRequest
	if err := c.getJSON(ctx, "/material-requests/pending", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeliveriesByDriver(ctx context.Context, driverID int64) ([]internal.Delivery, error) {
	var out []internal.Delivery
	if err := c.getJSON(ctx, fmt.Sprintf("/deliveries/driver/%d", driverID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Assign submits one assignment action. The backend rejects a quantity
// above the request's remaining balance; the call is made once, never
// retried, because assignment is not idempotent.
func (c *Client) Assign(ctx context.Context, requestID int64, payload AssignPayload) (internal.MaterialRequest, error) {
	var out internal.MaterialRequest
	path := fmt.Sprintf("/material-requests/%d/assign", requestID)
	if err := c.sendJSON(ctx, http.MethodPost, path, payload, &out); err != nil {
		return internal.MaterialRequest{}, err
	}
	return out, nil
}

func (c *Client) UpdateDeliveryStatus(ctx context.Context, deliveryID int64, status internal.Status) (internal.Delivery, error) {
	if !internal.IsAllowedUpdateStatus(status) {
		return internal.Delivery{}, fmt.Errorf("invalid status: %s", status)
	}
	var out internal.Delivery
	path := fmt.Sprintf("/deliveries/%d/status", deliveryID)
	if err := c.sendJSON(ctx, http.MethodPut, path, statusPayload{Status: status}, &out); err != nil {
		return internal.Delivery{}, err
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		c.limiter.wait()

		body, retryable, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			if retryable && attempt < 5 {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = err
				continue
			}
			return err
		}
		return json.Unmarshal(body, out)
	}

	if lastErr == nil {
		lastErr = errors.New("request failed")
	}
	return lastErr
}

// sendJSON performs a single mutating call; transport and server errors
// surface immediately so the caller can report the exact failed action.
func (c *Client) sendJSON(ctx context.Context, method, path string, payload, out any) error {
	c.limiter.wait()

	blob, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	body, _, err := c.do(ctx, method, path, blob)
	if err != nil {
		return err
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, bool, error) {
	token, err := c.token()
	if err != nil {
		return nil, false, err
	}
	if token == "" {
		return nil, false, errors.New("missing API token: run session:set or set IPS_API_TOKEN")
	}

	url := strings.TrimRight(c.cfg.APIBaseURL, "/") + path
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}

	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, true, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, isRetryableStatus(resp.StatusCode), fmt.Errorf("ips api error: status=%d body=%s", resp.StatusCode, string(body))
	}

	return body, false, nil
}

func (c *Client) token() (string, error) {
	if c.creds != nil {
		token, err := c.creds.Token()
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(token) != "" {
			return token, nil
		}
	}
	return strings.TrimSpace(c.cfg.APIToken), nil
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
