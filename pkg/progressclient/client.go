package progressclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	drafthttp "adpilot/contexts/campaign-builder/draft-service/transport/http"
	launchhttp "adpilot/contexts/campaign-builder/launch-service/transport/http"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid request")
)

// APIError is a non-2xx answer from the adpilot API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("adpilot api %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("adpilot api %d %s: %s", e.StatusCode, e.Code, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrConflict:
		return e.StatusCode == http.StatusConflict
	case ErrInvalid:
		return e.StatusCode == http.StatusBadRequest
	}
	return false
}

// Client talks to the adpilot HTTP API.
type Client struct {
	BaseURL    string
	UserID     string
	HTTPClient *http.Client
}

func NewClient(baseURL string, userID string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		UserID:     strings.TrimSpace(userID),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) SubmitLaunch(ctx context.Context, idempotencyKey string, req launchhttp.SubmitLaunchRequest) (launchhttp.SubmitLaunchResponse, error) {
	var out launchhttp.SubmitLaunchResponse
	headers := http.Header{}
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		headers.Set("Idempotency-Key", key)
	}
	err := c.doJSON(ctx, http.MethodPost, "/v1/launches", headers, req, &out)
	return out, err
}

func (c *Client) GetJob(ctx context.Context, jobID string) (launchhttp.JobDTO, error) {
	var out launchhttp.JobResponse
	err := c.doJSON(ctx, http.MethodGet, "/v1/jobs/"+url.PathEscape(jobID), nil, nil, &out)
	return out.Job, err
}

func (c *Client) ListEvents(ctx context.Context, jobID string, afterSeq int64) ([]launchhttp.ProgressEventDTO, error) {
	path := "/v1/jobs/" + url.PathEscape(jobID) + "/events"
	if afterSeq > 0 {
		path += "?after_seq=" + strconv.FormatInt(afterSeq, 10)
	}
	var out launchhttp.ListEventsResponse
	err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &out)
	return out.Items, err
}

func (c *Client) CancelJob(ctx context.Context, jobID string) (launchhttp.JobDTO, error) {
	var out launchhttp.JobResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/jobs/"+url.PathEscape(jobID)+"/cancel", nil, nil, &out)
	return out.Job, err
}

func (c *Client) GetDraft(ctx context.Context, draftID string) (drafthttp.DraftDTO, error) {
	var out drafthttp.DraftResponse
	err := c.doJSON(ctx, http.MethodGet, "/v1/drafts/"+url.PathEscape(draftID), nil, nil, &out)
	return out.Draft, err
}

// UpdateDraft writes payload if the draft is still at version. A stale
// version comes back as ErrConflict.
func (c *Client) UpdateDraft(ctx context.Context, draftID string, payload json.RawMessage, version int) (drafthttp.DraftDTO, error) {
	req := drafthttp.UpdateDraftRequest{
		Payload: payload,
		Version: json.RawMessage(strconv.Itoa(version)),
	}
	var out drafthttp.DraftResponse
	err := c.doJSON(ctx, http.MethodPatch, "/v1/drafts/"+url.PathEscape(draftID), nil, req, &out)
	return out.Draft, err
}

// Stream reads the job's server-sent events and hands each message to fn
// until the server ends the stream, fn fails, or ctx ends.
func (c *Client) Stream(ctx context.Context, jobID string, afterSeq int64, fn func(launchhttp.StreamMessage) error) error {
	endpoint := c.BaseURL + "/v1/jobs/" + url.PathEscape(jobID) + "/stream"
	if afterSeq > 0 {
		endpoint += "?after_seq=" + strconv.FormatInt(afterSeq, 10)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	c.authorize(req)

	// streams outlive the unary timeout
	streamClient := *c.httpClient()
	streamClient.Timeout = 0
	resp, err := streamClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	reader := bufio.NewReader(resp.Body)
	var data bytes.Buffer
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if data.Len() == 0 {
				continue
			}
			var message launchhttp.StreamMessage
			if err := json.Unmarshal(data.Bytes(), &message); err != nil {
				return fmt.Errorf("decode stream message: %w", err)
			}
			data.Reset()
			if err := fn(message); err != nil {
				return err
			}
			if message.Type == "end" {
				return nil
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
}

func (c *Client) doJSON(ctx context.Context, method string, path string, headers http.Header, body any, target any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if target == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

func (c *Client) authorize(req *http.Request) {
	if c.UserID != "" {
		req.Header.Set("X-User-Id", c.UserID)
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

func decodeAPIError(resp *http.Response) error {
	out := &APIError{StatusCode: resp.StatusCode}
	var envelope launchhttp.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &envelope); err == nil {
		out.Code = envelope.Code
		out.Message = envelope.Message
	}
	if out.Message == "" {
		out.Message = http.StatusText(resp.StatusCode)
	}
	return out
}
