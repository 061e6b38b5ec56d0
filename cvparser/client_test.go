package cvparser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/parse", r.URL.Path)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "https://cdn.test/cv.pdf", r.PostForm.Get("url"))
		w.Write([]byte(`{
			"success": true,
			"source": "url",
			"filename": "cv.pdf",
			"data": {
				"name": "Ada Lovelace",
				"email": "ada@corp.test",
				"phone": "+44 1234",
				"skills": ["Go", "SQL"],
				"experience_years": 7,
				"education": ["BSc Mathematics"],
				"raw_text": "Ada Lovelace..."
			}
		}`))
	}))
	defer srv.Close()

	parsed, err := NewRestClient(srv.URL).ParseURL(context.Background(), "https://cdn.test/cv.pdf")
	require.NoError(t, err)

	require.True(t, parsed.Success)
	require.Equal(t, "url", parsed.Source)
	require.Equal(t, "Ada Lovelace", parsed.Data.Name)
	require.Equal(t, "ada@corp.test", parsed.Data.Email)
	require.Equal(t, 7, parsed.Data.ExperienceYears)
	require.Equal(t, []string{"Go", "SQL"}, parsed.Data.Skills)
}

func TestParseURLServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotImplemented)
		w.Write([]byte(`{"detail":"URL parsing is not supported for this document type"}`))
	}))
	defer srv.Close()

	_, err := NewRestClient(srv.URL).ParseURL(context.Background(), "https://cdn.test/cv.pdf")

	var se ServiceError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusNotImplemented, se.StatusCode)
	require.Contains(t, se.Detail, "not supported")
	require.Contains(t, err.Error(), "cv parser replied 501")
}

func TestParseURLPlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	_, err := NewRestClient(srv.URL).ParseURL(context.Background(), "https://cdn.test/cv.pdf")

	var se ServiceError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "upstream exploded", se.Detail)
}

func TestHealth(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer healthy.Close()
	require.NoError(t, NewRestClient(healthy.URL).Health(context.Background()))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	require.Error(t, NewRestClient(down.URL).Health(context.Background()))
}
