package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/search", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "A-123456", body["identifier"])

		w.Write([]byte(`{"result":{"identifier":"A123456","best":{"path":"/docs/a.pdf","pages":[2]},"decided_by":"doc_date"},"scanned":3,"total":3,"failures":[{"path":"/docs/x.pdf","error":"broken"}]}`))
	}))
	defer srv.Close()

	resp, err := New(srv.URL).Search(context.Background(), "", "A-123456")
	require.NoError(t, err)

	require.NotNil(t, resp.Result)
	assert.Equal(t, "/docs/a.pdf", resp.Result.Best.Path)
	assert.Equal(t, []int{2}, resp.Result.Best.Pages)
	assert.Equal(t, 3, resp.Scanned)
	require.Len(t, resp.Failures, 1)
	assert.Equal(t, "broken", resp.Failures[0].Error)
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "api error", status: http.StatusBadRequest, body: `{"error":{"code":"IDENTIFIER_REQUIRED","message":"identifier is required"}}`, wantErr: "identifier is required (IDENTIFIER_REQUIRED)"},
		{name: "plain error", status: http.StatusBadGateway, body: "upstream down", wantErr: "upstream down"},
		{name: "bad json", status: http.StatusOK, body: "{", wantErr: "unmarshal response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL).Search(context.Background(), "", "A-1")
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestWaitJob(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/jobs/abc", r.URL.Path)
		n := polls.Add(1)
		status := "running"
		if n >= 3 {
			status = "completed"
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "abc", "status": status, "progress": n, "total": 3})
	}))
	defer srv.Close()

	var seen []int
	job, err := New(srv.URL).WaitJob(context.Background(), "abc", time.Millisecond, func(j *Job) {
		seen = append(seen, j.Progress)
	})
	require.NoError(t, err)
	assert.True(t, job.Done())
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestNew_Defaults(t *testing.T) {
	t.Setenv("PDFMATCH_SERVER_URL", "")
	t.Setenv("PDFMATCH_CLIENT_TIMEOUT", "30s")
	c := New("")
	assert.Equal(t, "http://localhost:8080", c.baseURL)
	assert.Equal(t, 30*time.Second, c.httpClient.Timeout)

	t.Setenv("PDFMATCH_SERVER_URL", "http://pdf.local:9000/")
	assert.Equal(t, "http://pdf.local:9000", New("").baseURL)
}
