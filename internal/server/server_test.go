package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sprjihoon/pdf01/internal/config"
	"github.com/sprjihoon/pdf01/internal/document"
	"github.com/sprjihoon/pdf01/internal/history"
	"github.com/sprjihoon/pdf01/internal/metrics"
	"github.com/sprjihoon/pdf01/internal/server"
	"github.com/sprjihoon/pdf01/internal/service"
	"github.com/sprjihoon/pdf01/internal/storage"
	"github.com/sprjihoon/pdf01/internal/storage/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	srv  *server.Server
	dir  string
	jobs *service.JobManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store := document.NewMemoryStore()
	for name, pages := range map[string][]string{
		"a.pdf": {"cover", "주문 A-123456"},
		"b.pdf": {"B-654321"},
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))
		store.Put(document.NewMemory(path, pages))
	}

	hist, err := history.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { hist.Close() })

	cfg := config.Default()
	cfg.Search.Folder = dir
	m := metrics.NewCollector()
	search, err := service.NewSearchService(cfg, store, nil, hist, m, nil)
	require.NoError(t, err)

	jobs := service.NewJobManager(nil)
	srv, err := server.New("test", server.Deps{Search: search, Jobs: jobs, History: hist, Metrics: m}, nil)
	require.NoError(t, err)
	return &testEnv{srv: srv, dir: dir, jobs: jobs}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.srv.App().Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)
	assert.NotEmpty(t, resp.Header.Get(server.RequestIDHeader))
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/search", map[string]string{"identifier": "A-123456"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var got struct {
		Result struct {
			Identifier string `json:"identifier"`
			Best       struct {
				Path  string `json:"path"`
				Pages []int  `json:"pages"`
			} `json:"best"`
			DecidedBy string `json:"decided_by"`
		} `json:"result"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "A123456", got.Result.Identifier)
	assert.Equal(t, filepath.Join(env.dir, "a.pdf"), got.Result.Best.Path)
	assert.Equal(t, []int{2}, got.Result.Best.Pages)
	assert.Equal(t, "modified_time", got.Result.DecidedBy)
	assert.Equal(t, 2, got.Total)

	resp, body = env.do(t, http.MethodGet, "/api/history/searches?limit=5", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"identifier":"A123456"`)
}

func TestSearch_BadRequests(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body any
		code string
	}{
		{name: "missing identifier", body: map[string]string{}, code: "IDENTIFIER_REQUIRED"},
		{name: "missing folder", body: map[string]string{"identifier": "A-1", "folder": "/does/not/exist"}, code: "SEARCH_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodPost, "/api/search", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, string(body), tt.code)
		})
	}
}

func TestMatch(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/match", map[string]any{
		"identifiers": []string{"A-100001", "A-200002"},
		"pages":       []string{"order A-200002", "order A-100001", "notes"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var got struct {
		Order     []int             `json:"order"`
		Labels    map[string]string `json:"labels"`
		Matched   int               `json:"matched"`
		Unmatched int               `json:"unmatched"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, []int{1, 0, 2}, got.Order)
	assert.Equal(t, map[string]string{"0": "1", "1": "2"}, got.Labels)
	assert.Equal(t, 2, got.Matched)
	assert.Equal(t, 0, got.Unmatched)
}

func TestMatch_BadRequests(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/match", map[string]any{"pages": []string{"x"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "NO_RECORDS")

	resp, body = env.do(t, http.MethodPost, "/api/match", map[string]any{"identifiers": []string{"A"}, "threshold": 120})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "INVALID_THRESHOLD")
}

func TestIndexJob(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/index", map[string]string{})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	var job struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &job))
	require.NotEmpty(t, job.ID)

	env.jobs.Wait()

	resp, body = env.do(t, http.MethodGet, "/api/jobs/"+job.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"completed"`)
	assert.Contains(t, string(body), "B654321")

	resp, _ = env.do(t, http.MethodGet, "/api/jobs/unknown", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRun_Disabled(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodPost, "/api/runs", map[string]string{"records_path": "a.csv", "pdf_path": "a.pdf"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "MATCH_DISABLED")
}

// newRunEnv serves match runs over an in-memory scanned and text document.
func newRunEnv(t *testing.T, st storage.Storage) *testEnv {
	t.Helper()
	store := document.NewMemoryStore(
		document.NewMemory("scan.pdf", []string{"", ""}),
		document.NewMemory("in.pdf", []string{"주문서 A-100001 " + strings.Repeat("상품 내역 ", 12)}),
	)
	match, err := service.NewMatchService(config.Default(), store, st, nil, nil)
	require.NoError(t, err)

	jobs := service.NewJobManager(nil)
	srv, err := server.New("test", server.Deps{Match: match, Jobs: jobs}, nil)
	require.NoError(t, err)
	return &testEnv{srv: srv, dir: t.TempDir(), jobs: jobs}
}

func TestRun_ChecksDocumentFirst(t *testing.T) {
	tests := []struct {
		name       string
		pdfPath    string
		wantStatus int
		wantCode   string
		wantJobs   int
	}{
		{name: "scanned document", pdfPath: "scan.pdf", wantStatus: http.StatusUnprocessableEntity, wantCode: "NO_TEXT_LAYER"},
		{name: "missing document", pdfPath: "missing.pdf", wantStatus: http.StatusBadRequest, wantCode: "DOCUMENT_UNREADABLE"},
		{name: "text document", pdfPath: "in.pdf", wantStatus: http.StatusAccepted, wantJobs: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newRunEnv(t, nil)
			resp, body := env.do(t, http.MethodPost, "/api/runs", map[string]string{
				"records_path": filepath.Join(env.dir, "orders.csv"),
				"pdf_path":     tt.pdfPath,
				"output_dir":   env.dir,
			})
			env.jobs.Wait()

			assert.Equal(t, tt.wantStatus, resp.StatusCode, string(body))
			if tt.wantCode != "" {
				assert.Contains(t, string(body), tt.wantCode)
				assert.Contains(t, string(body), "request_id")
			}
			assert.Len(t, env.jobs.ListJobs(), tt.wantJobs)
		})
	}
}

func TestRunFile(t *testing.T) {
	st := new(mocks.MockStorage)
	st.On("Get", mock.Anything, "runs/abc/ordered_20240101.pdf").
		Return(io.NopCloser(strings.NewReader("%PDF-1.7")), storage.ObjectInfo{Size: 8, ContentType: "application/pdf"}, nil)
	st.On("Get", mock.Anything, "runs/abc/gone.pdf").
		Return(nil, storage.ObjectInfo{}, storage.ErrNotFound)
	env := newRunEnv(t, st)

	resp, body := env.do(t, http.MethodGet, "/api/runs/abc/files/ordered_20240101.pdf", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "%PDF-1.7", string(body))
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "ordered_20240101.pdf")

	resp, body = env.do(t, http.MethodGet, "/api/runs/abc/files/gone.pdf", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "NOT_FOUND")
	st.AssertExpectations(t)
}

func TestRunFile_Disabled(t *testing.T) {
	resp, body := newRunEnv(t, nil).do(t, http.MethodGet, "/api/runs/abc/files/a.pdf", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "STORAGE_DISABLED")

	resp, body = newTestEnv(t).do(t, http.MethodGet, "/api/runs/abc/files/a.pdf", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "MATCH_DISABLED")
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/healthz", nil)
	env.do(t, http.MethodPost, "/api/search", map[string]string{"identifier": "A-123456"})

	resp, body := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	text := string(body)
	assert.Contains(t, text, `pdfmatch_http_requests_total{method="GET",path="/healthz",status="200"} 1`)
	assert.True(t, strings.Contains(text, "pdfmatch_files_scanned_total"), text)
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "NOT_FOUND")
}

func TestServerRun_JobsTimeout(t *testing.T) {
	jobs := service.NewJobManager(nil)
	release := make(chan struct{})
	defer close(release)
	jobs.Start(context.Background(), "match", func(ctx context.Context, job *service.Job) (any, error) {
		<-release
		return nil, nil
	})

	srv, err := server.New("test", server.Deps{Jobs: jobs, JobsTimeout: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, "127.0.0.1:0") }()
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run still waiting on a blocked job")
	}
	assert.Equal(t, 1, jobs.Active())
}
