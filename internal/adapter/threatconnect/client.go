// Package threatconnect implements the intel platform ports against the
// ThreatConnect v2 REST API.
package threatconnect

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hive-corporation/threatbridge/internal/core/ports"
)

// Client talks to a ThreatConnect instance. Every request is signed with
// the account's HMAC-SHA256 secret. Each API call is a single attempt; the
// pipeline owns failure handling.
type Client struct {
	accessID   string
	secretKey  string
	owner      string
	baseURL    *url.URL
	httpClient *http.Client
}

// NewClient connects a client to the given API base URL. owner is the
// default organization resources are created under.
func NewClient(accessID, secretKey, owner, baseURL string) (*Client, error) {
	if accessID == "" || secretKey == "" {
		return nil, fmt.Errorf("threatconnect credentials are required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api base url: %s", baseURL)
	}
	return &Client{
		accessID:  accessID,
		secretKey: secretKey,
		owner:     owner,
		baseURL:   u,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (c *Client) Incidents() ports.IncidentBuilder {
	return incidentBuilder{c: c}
}

func (c *Client) Indicators() ports.IndicatorBuilder {
	return indicatorBuilder{c: c}
}

// apiResponse is the envelope every v2 endpoint returns.
type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do performs one signed API call. On failure the returned error carries
// the platform's own message text verbatim; callers classify rejections by
// that message.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	// path may contain escaped segments; splice it verbatim so they are
	// not escaped a second time.
	fullURL := strings.TrimRight(c.baseURL.String(), "/") + path
	if c.owner != "" {
		fullURL += "?owner=" + url.QueryEscape(c.owner)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.sign(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("threatconnect request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("threatconnect returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if resp.StatusCode >= 400 || envelope.Status == "Failure" {
		msg := envelope.Message
		if msg == "" {
			msg = resp.Status
		}
		return fmt.Errorf("threatconnect: %s", msg)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

// sign sets the Timestamp header and the "TC <id>:<signature>" Authorization
// header. The signature covers path+query exactly as sent, the method, and
// the timestamp.
func (c *Client) sign(req *http.Request) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	msg := fmt.Sprintf("%s:%s:%s", req.URL.RequestURI(), req.Method, timestamp)

	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(msg))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req.Header.Set("Timestamp", timestamp)
	req.Header.Set("Authorization", fmt.Sprintf("TC %s:%s", c.accessID, signature))
}
