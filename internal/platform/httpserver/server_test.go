package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	draftservice "adpilot/contexts/campaign-builder/draft-service"
	draftentities "adpilot/contexts/campaign-builder/draft-service/domain/entities"
	launchservice "adpilot/contexts/campaign-builder/launch-service"
	launchhttp "adpilot/contexts/campaign-builder/launch-service/transport/http"
	"adpilot/internal/platform/messaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const specJSON = `{"adAccountId":"123","campaign":{"name":"Spring"},"adSets":[{"adSetName":"Core","creatives":[{"name":"Hero"}]}]}`

type testEnv struct {
	server *httptest.Server
	launch launchservice.Module
}

func newTestEnv(t *testing.T, drafts ...draftentities.Draft) testEnv {
	t.Helper()
	launch := launchservice.NewInMemoryModule(nil, nil)
	draftModule := draftservice.NewInMemoryModule(drafts, nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, launch.Consumer.Start(ctx))

	srv := New(launch, draftModule, Options{
		Broker:     messaging.NewBroker(nil),
		StreamPoll: 20 * time.Millisecond,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		launch.Queue.Close()
	})
	return testEnv{server: ts, launch: launch}
}

func (e testEnv) do(t *testing.T, method string, path string, userID string, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func errorCode(t *testing.T, raw []byte) string {
	t.Helper()
	var envelope launchhttp.ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &envelope))
	return envelope.Code
}

func TestSubmitRequiresUser(t *testing.T) {
	env := newTestEnv(t)
	resp, raw := env.do(t, http.MethodPost, "/v1/launches", "", `{"specification":`+specJSON+`}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "missing_user", errorCode(t, raw))
}

func TestSubmitRejectsBadBodies(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.do(t, http.MethodPost, "/v1/launches", "user-1", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_json", errorCode(t, raw))

	resp, raw = env.do(t, http.MethodPost, "/v1/launches", "user-1", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_submission", errorCode(t, raw))
}

func TestLaunchRunsToDoneAndStreamEnds(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.do(t, http.MethodPost, "/v1/launches", "user-1", `{"specification":`+specJSON+`}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var submitted launchhttp.SubmitLaunchResponse
	require.NoError(t, json.Unmarshal(raw, &submitted))
	require.NotEmpty(t, submitted.JobID)
	assert.Len(t, submitted.Nodes, 4)

	streamResp, err := http.Get(env.server.URL + "/v1/jobs/" + submitted.JobID + "/stream")
	require.NoError(t, err)
	defer streamResp.Body.Close()
	require.Equal(t, http.StatusOK, streamResp.StatusCode)
	assert.Equal(t, "text/event-stream", streamResp.Header.Get("Content-Type"))

	kinds := make([]string, 0)
	scanner := bufio.NewScanner(streamResp.Body)
	deadline := time.AfterFunc(5*time.Second, func() { streamResp.Body.Close() })
	defer deadline.Stop()
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			kinds = append(kinds, strings.TrimPrefix(line, "event: "))
		}
	}
	require.NotEmpty(t, kinds)
	assert.Equal(t, "job", kinds[0])
	assert.Equal(t, "end", kinds[len(kinds)-1])
	assert.Contains(t, kinds, "event")

	resp, raw = env.do(t, http.MethodGet, "/v1/jobs/"+submitted.JobID, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var job launchhttp.JobResponse
	require.NoError(t, json.Unmarshal(raw, &job))
	assert.Equal(t, "done", job.Job.Status)
	assert.Equal(t, 100, job.Job.Percent)

	resp, raw = env.do(t, http.MethodGet, "/v1/jobs/"+submitted.JobID+"/events?after_seq=2", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page launchhttp.ListEventsResponse
	require.NoError(t, json.Unmarshal(raw, &page))
	require.NotEmpty(t, page.Items)
	assert.Equal(t, int64(3), page.Items[0].Seq)

	resp, raw = env.do(t, http.MethodPost, "/v1/jobs/"+submitted.JobID+"/cancel", "user-1", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "job_terminal", errorCode(t, raw))
}

func TestJobLookupsReturnNotFound(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.do(t, http.MethodGet, "/v1/jobs/ghost", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "job_not_found", errorCode(t, raw))

	resp, _ = env.do(t, http.MethodGet, "/v1/jobs/ghost/stream", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, raw = env.do(t, http.MethodGet, "/v1/jobs/ghost/events?after_seq=-1", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_after_seq", errorCode(t, raw))
}

func TestDraftVersioning(t *testing.T) {
	env := newTestEnv(t, draftentities.Draft{
		DraftID: "d1",
		UserID:  "user-1",
		Payload: json.RawMessage(`{"campaign":{"name":"v1"}}`),
		Status:  draftentities.DraftStatusPending,
		Version: 1,
	})

	resp, raw := env.do(t, http.MethodPatch, "/v1/drafts/d1", "user-1", `{"payload":{"campaign":{"name":"v2"}},"version":"1"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_version", errorCode(t, raw))

	resp, raw = env.do(t, http.MethodPatch, "/v1/drafts/d1", "user-1", `{"payload":{"campaign":{"name":"v2"}},"version":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, raw = env.do(t, http.MethodPatch, "/v1/drafts/d1", "user-1", `{"payload":{"campaign":{"name":"v3"}},"version":1}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "version_conflict", errorCode(t, raw))

	resp, raw = env.do(t, http.MethodGet, "/v1/drafts/d1", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `"version":2`)
	assert.Contains(t, string(raw), `"v2"`)

	resp, _ = env.do(t, http.MethodGet, "/v1/drafts/nope", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDraftCallbackReplay(t *testing.T) {
	env := newTestEnv(t)
	body := `{"draftId":"d9","userId":"user-1","payload":{"adAccountId":"act_1"}}`

	resp, raw := env.do(t, http.MethodPost, "/v1/drafts/callback", "", body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Contains(t, string(raw), `"replayed":false`)

	resp, raw = env.do(t, http.MethodPost, "/v1/drafts/callback", "", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `"replayed":true`)

	resp, raw = env.do(t, http.MethodPost, "/v1/drafts/callback", "", `{"draftId":"d9","userId":"user-2","payload":{}}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "idempotency_conflict", errorCode(t, raw))
}

func TestHealthAndSwagger(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := env.do(t, http.MethodGet, "/swagger/doc.json", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "/v1/launches")
}
