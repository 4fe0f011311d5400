package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtlmb/member-sync/internal/config"
	"github.com/rtlmb/member-sync/internal/domain"
	syncsvc "github.com/rtlmb/member-sync/internal/service/sync"
	"github.com/rtlmb/member-sync/internal/worker"
)

// fakeSyncService records calls and returns canned results.
type fakeSyncService struct {
	importResult *syncsvc.ImportResult
	importErr    error
	resyncResult *syncsvc.ResyncResult
	resyncErr    error
	subscribeErr error
	run          *domain.ImportRun

	lastSubscribe syncsvc.SubscribeRequest
	lastImportDry bool
	lastImportCSV []byte
}

func (f *fakeSyncService) Import(_ context.Context, _ string, csvData []byte, dryRun bool) (*syncsvc.ImportResult, error) {
	f.lastImportCSV = csvData
	f.lastImportDry = dryRun
	return f.importResult, f.importErr
}

func (f *fakeSyncService) Resync(_ context.Context, email string) (*syncsvc.ResyncResult, error) {
	return f.resyncResult, f.resyncErr
}

func (f *fakeSyncService) Subscribe(_ context.Context, req syncsvc.SubscribeRequest) error {
	f.lastSubscribe = req
	return f.subscribeErr
}

func (f *fakeSyncService) GetRun(_ context.Context, id string) (*domain.ImportRun, error) {
	if f.run == nil || f.run.ID != id {
		return nil, syncsvc.ErrRunNotFound
	}
	return f.run, nil
}

const testSecret = "test-admin-secret"

func testConfig() config.Config {
	return config.Config{
		Admin:  config.AdminConfig{Secret: testSecret},
		Import: config.ImportConfig{Workers: 1, MaxUploadSize: 10 << 20},
		RateLimit: config.RateLimitConfig{
			SubscribeLimit:  5,
			SubscribeWindow: 900,
			AdminLimit:      10,
			AdminWindow:     3600,
		},
	}
}

func setupTestServer(t *testing.T, svc SyncService) http.Handler {
	t.Helper()
	return SetupRoutes(NewHandlers(svc, testConfig()), testConfig(), nil)
}

func multipartCSV(t *testing.T, csv string, dryRun bool) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("csv", "members.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(csv))
	require.NoError(t, err)
	if dryRun {
		require.NoError(t, mw.WriteField("dryRun", "true"))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	handler := setupTestServer(t, &fakeSyncService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminEndpoints_RequireBearerSecret(t *testing.T) {
	handler := setupTestServer(t, &fakeSyncService{})

	cases := []struct {
		name, auth string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"wrong secret", "Bearer nope"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			body, contentType := multipartCSV(t, "header\nrow", false)
			req := httptest.NewRequest(http.MethodPost, "/api/admin/import-members", body)
			req.Header.Set("Content-Type", contentType)
			if c.auth != "" {
				req.Header.Set("Authorization", c.auth)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestImportMembers(t *testing.T) {
	svc := &fakeSyncService{
		importResult: &syncsvc.ImportResult{
			RunID:   "run-1",
			Created: 2,
			Updated: 1,
			Errors:  []domain.ImportRowError{{Row: 3, Email: "bad@example.com", Error: "boom"}},
		},
	}
	handler := setupTestServer(t, svc)

	body, contentType := multipartCSV(t, "first,last,email,s,r\nJohn,Doe,john@example.com,2023-01-01,2099-01-01", false)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/import-members", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+testSecret)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool   `json:"success"`
		RunID   string `json:"run_id"`
		Result  struct {
			Created int                     `json:"created"`
			Updated int                     `json:"updated"`
			Errors  []domain.ImportRowError `json:"errors"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, 2, resp.Result.Created)
	assert.Equal(t, 1, resp.Result.Updated)
	require.Len(t, resp.Result.Errors, 1)
	assert.Equal(t, 3, resp.Result.Errors[0].Row)

	assert.False(t, svc.lastImportDry)
	assert.Contains(t, string(svc.lastImportCSV), "john@example.com")
}

func TestImportMembers_DryRunFlag(t *testing.T) {
	svc := &fakeSyncService{importResult: &syncsvc.ImportResult{RunID: "run-2", DryRun: true}}
	handler := setupTestServer(t, svc)

	body, contentType := multipartCSV(t, "header\nrow", true)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/import-members", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+testSecret)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.lastImportDry)
}

func TestImportMembers_NoFile(t *testing.T) {
	handler := setupTestServer(t, &fakeSyncService{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("dryRun", "false"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/import-members", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testSecret)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No CSV file provided")
}

func TestImportMembers_EmptyFile(t *testing.T) {
	svc := &fakeSyncService{importErr: syncsvc.ErrEmptyFile}
	handler := setupTestServer(t, svc)

	body, contentType := multipartCSV(t, "header-only\n", false)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/import-members", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+testSecret)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResyncContact(t *testing.T) {
	svc := &fakeSyncService{
		resyncResult: &syncsvc.ResyncResult{
			Email:         "john@example.com",
			ConsentAt:     time.Date(2025, 5, 20, 9, 30, 0, 0, time.UTC),
			ConsentSource: domain.ConsentSourceCSVImport,
			Tags:          []string{domain.TagMember},
		},
	}
	handler := setupTestServer(t, svc)

	body := bytes.NewBufferString(`{"email":"john@example.com"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/resync-contact", body)
	req.Header.Set("Authorization", "Bearer "+testSecret)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Contact resynced successfully")
	assert.Contains(t, rec.Body.String(), domain.TagMember)
}

func TestResyncContact_NotFound(t *testing.T) {
	svc := &fakeSyncService{resyncErr: syncsvc.ErrNoConsent}
	handler := setupTestServer(t, svc)

	body := bytes.NewBufferString(`{"email":"ghost@example.com"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/resync-contact", body)
	req.Header.Set("Authorization", "Bearer "+testSecret)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResyncContact_InvalidEmail(t *testing.T) {
	handler := setupTestServer(t, &fakeSyncService{})

	body := bytes.NewBufferString(`{"email":"not-an-email"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/resync-contact", body)
	req.Header.Set("Authorization", "Bearer "+testSecret)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscribe(t *testing.T) {
	svc := &fakeSyncService{}
	handler := setupTestServer(t, svc)

	body := bytes.NewBufferString(`{"email":"reader@example.com","fname":"Read","consent_ip":"203.0.113.9"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/newsletter/subscribe", body)
	req.Header.Set("User-Agent", "test-agent/1.0")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "reader@example.com", svc.lastSubscribe.Email)
	assert.Equal(t, "203.0.113.9", svc.lastSubscribe.ConsentIP)
	assert.Equal(t, "test-agent/1.0", svc.lastSubscribe.UserAgent)
}

func TestSubscribe_Validation(t *testing.T) {
	handler := setupTestServer(t, &fakeSyncService{})

	cases := []struct {
		name, body string
	}{
		{"bad email", `{"email":"nope","consent_ip":"203.0.113.9"}`},
		{"bad ip", `{"email":"ok@example.com","consent_ip":"not-an-ip"}`},
		{"malformed json", `{`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/newsletter/subscribe",
				bytes.NewBufferString(c.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSubscribe_RateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	limiter := worker.NewRateLimiter(client)

	cfg := testConfig()
	cfg.RateLimit.SubscribeLimit = 2
	handler := SetupRoutes(NewHandlers(&fakeSyncService{}, cfg), cfg, limiter)

	do := func() int {
		body := bytes.NewBufferString(`{"email":"reader@example.com","consent_ip":"203.0.113.9"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/newsletter/subscribe", body)
		req.RemoteAddr = "203.0.113.9:43210"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
}

func TestGetImportRun(t *testing.T) {
	completed := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)
	svc := &fakeSyncService{run: &domain.ImportRun{
		ID:          "run-1",
		FileName:    "members.csv",
		TotalRows:   3,
		CreatedRows: 3,
		Status:      domain.RunCompleted,
		CompletedAt: &completed,
	}}
	handler := setupTestServer(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/import-runs/run-1", nil)
	req.Header.Set("Authorization", "Bearer "+testSecret)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "members.csv")

	req = httptest.NewRequest(http.MethodGet, "/api/admin/import-runs/missing", nil)
	req.Header.Set("Authorization", "Bearer "+testSecret)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUsageEndpoints(t *testing.T) {
	handler := setupTestServer(t, &fakeSyncService{})

	req := httptest.NewRequest(http.MethodGet, "/api/newsletter/subscribe", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "consent_ip")

	req = httptest.NewRequest(http.MethodGet, "/api/admin/import-members", nil)
	req.Header.Set("Authorization", "Bearer "+testSecret)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "renewal_date")
}
