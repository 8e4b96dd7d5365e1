package adplatform

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
	"strings"
	"time"

	"adpilot/contexts/campaign-builder/launch-service/domain/entities"
	domainerrors "adpilot/contexts/campaign-builder/launch-service/domain/errors"
	"adpilot/contexts/campaign-builder/launch-service/ports"
)

const (
	DefaultTimeout   = 12 * time.Second
	maxErrorBodySize = 64 << 10
)

// Client is the RemoteEntityClient over the ad platform's Graph-style REST
// API. Every call carries its own deadline.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		Timeout:    timeout,
		Logger:     logger,
	}
}

type createResponse struct {
	ID string `json:"id"`
}

type errorEnvelope struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (c *Client) Create(ctx context.Context, req ports.RemoteRequest) (string, error) {
	body, err := c.do(ctx, http.MethodPost, ports.RemoteCreate, req)
	if err != nil {
		return "", err
	}
	var decoded createResponse
	if err := json.Unmarshal(body, &decoded); err != nil || strings.TrimSpace(decoded.ID) == "" {
		return "", &domainerrors.RemoteAPIError{
			Kind:       string(req.Kind),
			Operation:  string(ports.RemoteCreate),
			StatusCode: http.StatusOK,
			Message:    "ad platform response did not include an id",
		}
	}
	return decoded.ID, nil
}

func (c *Client) Update(ctx context.Context, req ports.RemoteRequest) error {
	_, err := c.do(ctx, http.MethodPost, ports.RemoteUpdate, req)
	return err
}

func (c *Client) Delete(ctx context.Context, req ports.RemoteRequest) error {
	_, err := c.do(ctx, http.MethodDelete, ports.RemoteDelete, req)
	return err
}

func (c *Client) Get(ctx context.Context, req ports.RemoteRequest) (map[string]any, error) {
	body, err := c.do(ctx, http.MethodGet, ports.RemoteGet, req)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &domainerrors.RemoteAPIError{
			Kind:       string(req.Kind),
			Operation:  string(ports.RemoteGet),
			StatusCode: http.StatusOK,
			Message:    "ad platform returned a malformed response",
		}
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method string, operation ports.RemoteOperation, req ports.RemoteRequest) ([]byte, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := c.BaseURL + "/" + strings.TrimLeft(req.Path, "/")
	var reader io.Reader
	if method == http.MethodPost && req.Payload != nil {
		raw, err := json.Marshal(req.Payload)
		if err != nil {
			return nil, &domainerrors.RemoteAPIError{
				Kind:      string(req.Kind),
				Operation: string(operation),
				Message:   "payload could not be encoded",
				Cause:     err,
			}
		}
		reader = bytes.NewReader(raw)
	}
	if method == http.MethodGet && req.Payload != nil {
		query := url.Values{}
		for key, value := range req.Payload {
			query.Set(key, fmt.Sprint(value))
		}
		endpoint += "?" + query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, &domainerrors.RemoteAPIError{
			Kind:      string(req.Kind),
			Operation: string(operation),
			Message:   "request could not be built",
			Transport: true,
			Cause:     err,
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if reader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token := strings.TrimSpace(req.Credential); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		message := "could not reach the ad platform"
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			message = fmt.Sprintf("ad platform did not respond within %s", timeout)
		}
		c.logger().Warn("remote call failed",
			"event", "adplatform_transport_failed",
			"module", "campaign-builder/launch-service",
			"layer", "adapter",
			"kind", string(req.Kind),
			"operation", string(operation),
			"error", err.Error(),
		)
		return nil, &domainerrors.RemoteAPIError{
			Kind:      string(req.Kind),
			Operation: string(operation),
			Message:   message,
			Transport: true,
			Cause:     err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, normalizeError(req.Kind, operation, resp.StatusCode, raw)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domainerrors.RemoteAPIError{
			Kind:       string(req.Kind),
			Operation:  string(operation),
			StatusCode: resp.StatusCode,
			Message:    "ad platform response could not be read",
			Transport:  true,
			Cause:      err,
		}
	}
	return body, nil
}

// normalizeError turns a non-2xx body into a RemoteAPIError. Only the
// platform's structured message is kept.
func normalizeError(kind entities.StageKind, operation ports.RemoteOperation, status int, raw []byte) *domainerrors.RemoteAPIError {
	out := &domainerrors.RemoteAPIError{
		Kind:       string(kind),
		Operation:  string(operation),
		StatusCode: status,
	}
	var envelope errorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != nil {
		out.Message = strings.TrimSpace(envelope.Error.Message)
		out.Type = strings.TrimSpace(envelope.Error.Type)
		out.Code = envelope.Error.Code
	}
	if out.Message == "" {
		out.Message = fmt.Sprintf("ad platform returned %d %s", status, http.StatusText(status))
	}
	return out
}

func isTimeout(err error) bool {
	var timeoutErr interface{ Timeout() bool }
	return errors.As(err, &timeoutErr) && timeoutErr.Timeout()
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
