package engine

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRestClient(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"create when name unknown":        testUpsertCreates,
		"update when name exists":         testUpsertUpdates,
		"numeric remote ids survive":      testNumericRemoteId,
		"retry on transient server error": testActivateRetries,
		"no retry on create":              testCreateDoesNotRetry,
		"no retry on client error":        testClientErrorNotRetried,
		"webhook fires exactly once":      testWebhookSingleShot,
		"webhook success":                 testWebhookSuccess,
	} {
		t.Run(scenario, fn)
	}
}

func newClient(baseUrl string) Client {
	return NewRestClient(Config{BaseUrl: baseUrl, WebhookBaseUrl: baseUrl, ApiKey: "secret"})
}

func testUpsertCreates(t *testing.T) {
	var creates int32
	var gotApiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/workflows":
			gotApiKey = r.Header.Get("X-N8N-API-KEY")
			w.Write([]byte(`{"data":[]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/workflows":
			atomic.AddInt32(&creates, 1)
			w.Write([]byte(`{"id":"wf-9","name":"HRFlow 1: Demo"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	res, err := newClient(srv.URL).UpsertDocument(context.Background(), &Document{Name: "HRFlow 1: Demo"})
	require.NoError(t, err)

	require.True(t, res.Created)
	require.Equal(t, "wf-9", res.RemoteId)
	require.Equal(t, int32(1), atomic.LoadInt32(&creates))
	require.Equal(t, "secret", gotApiKey)
}

func testUpsertUpdates(t *testing.T) {
	var puts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/workflows":
			w.Write([]byte(`{"data":[{"id":"wf-7","name":"HRFlow 2: Other"},{"id":"wf-8","name":"HRFlow 1: Demo"}]}`))
		case r.Method == http.MethodPut && r.URL.Path == "/api/v1/workflows/wf-8":
			atomic.AddInt32(&puts, 1)
			w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	res, err := newClient(srv.URL).UpsertDocument(context.Background(), &Document{Name: "HRFlow 1: Demo"})
	require.NoError(t, err)

	require.False(t, res.Created)
	require.Equal(t, "wf-8", res.RemoteId)
	require.Equal(t, int32(1), atomic.LoadInt32(&puts))
}

func testNumericRemoteId(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`{"data":[]}`))
		default:
			w.Write([]byte(`{"id":123,"name":"HRFlow 1: Demo"}`))
		}
	}))
	defer srv.Close()

	res, err := newClient(srv.URL).UpsertDocument(context.Background(), &Document{Name: "HRFlow 1: Demo"})
	require.NoError(t, err)

	require.Equal(t, "123", res.RemoteId)
}

func testActivateRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/workflows/wf-1/activate", r.URL.Path)
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	err := newClient(srv.URL).Activate(context.Background(), "wf-1")
	require.NoError(t, err)
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func testCreateDoesNotRetry(t *testing.T) {
	var creates int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`{"data":[]}`))
			return
		}
		atomic.AddInt32(&creates, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).UpsertDocument(context.Background(), &Document{Name: "HRFlow 1: Demo"})

	require.Error(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&creates))
	var re RequestError
	require.ErrorAs(t, err, &re)
	require.Equal(t, "create", re.Op)
	require.Equal(t, http.StatusInternalServerError, re.StatusCode)
}

func testClientErrorNotRetried(t *testing.T) {
	var lookups int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&lookups, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).UpsertDocument(context.Background(), &Document{Name: "HRFlow 1: Demo"})

	require.True(t, IsRequestError(err))
	require.Equal(t, int32(1), atomic.LoadInt32(&lookups))
	var re RequestError
	require.ErrorAs(t, err, &re)
	require.Equal(t, "lookup", re.Op)
	require.Equal(t, http.StatusUnauthorized, re.StatusCode)
}

func testWebhookSingleShot(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).InvokeWebhook(context.Background(), "hrflow-1-x", map[string]any{})

	require.True(t, IsRequestError(err))
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func testWebhookSuccess(t *testing.T) {
	var gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	resp, err := newClient(srv.URL).InvokeWebhook(context.Background(), "hrflow-1-x",
		map[string]any{"employee": map[string]any{"name": "Ada"}})
	require.NoError(t, err)

	require.Equal(t, "/webhook/hrflow-1-x", gotPath)
	require.JSONEq(t, `{"employee":{"name":"Ada"}}`, string(gotBody))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"ok":true}`, string(resp.Body))
}
