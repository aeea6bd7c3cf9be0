package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sykell/bookmarks/internal/config"
	"github.com/sykell/bookmarks/internal/db"
	"github.com/sykell/bookmarks/internal/importer"
	"github.com/sykell/bookmarks/internal/logger"
	"github.com/sykell/bookmarks/internal/middleware"
	"github.com/sykell/bookmarks/internal/service"
	"github.com/sykell/bookmarks/internal/testhelpers"
)

const testSecret = "api-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	user   db.User
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	conn := testhelpers.NewTestDB(t)
	user, err := service.CreateUser(context.Background(), conn, "alice", "password123")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Auth.JWTSecret = testSecret
	cfg.Import.MaxRows = 10

	log := logger.NewNop()
	svc := importer.NewService(service.NewImportStore(conn), log, importer.Options{
		BatchSize: cfg.Import.BatchSize,
		MaxRows:   cfg.Import.MaxRows,
	})

	token, _, err := middleware.GenerateToken(testSecret, user.ID, user.Username, time.Hour)
	require.NoError(t, err)

	return &testServer{
		router: NewRouter(RouterDeps{DB: conn, Importer: svc, Config: cfg, Log: log}),
		db:     conn,
		user:   *user,
		token:  token,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		return w
	}

	w := post(`{"username":"alice","password":"password123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[LoginResponse](t, w)
	assert.Equal(t, s.user.ID, resp.UserID)

	user, err := middleware.ValidateToken(resp.Token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	assert.Equal(t, http.StatusUnauthorized, post(`{"username":"alice","password":"wrong-password"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, post(`{"username":"nobody","password":"password123"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"username":"al"}`).Code)
}

func TestImportsRequireAuth(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/imports/preview", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPreviewAndCommitFlow(t *testing.T) {
	s := newTestServer(t)
	testhelpers.CreateLink(t, s.db, s.user.ID, "https://example.com/", "Example")

	preview := s.do(t, http.MethodPost, "/imports/preview", map[string]any{
		"rows": []map[string]any{
			{"row_number": 2, "values": map[string]any{"url": "https://a.com", "tags": "news, Tech"}},
			{"row_number": 3, "values": map[string]any{"url": "https://a.com/"}},
			{"row_number": 4, "values": map[string]any{"url": "not a url"}},
			{"row_number": 5, "values": map[string]any{"url": "https://example.com", "title": nil}},
			{"row_number": 6, "values": map[string]any{"url": "https://b.com", "tags": "tech", "title": "B"}},
		},
		"mapping": map[string]string{"url": "url", "title": "title", "tags": "tags"},
	})
	require.Equal(t, http.StatusOK, preview.Code, preview.Body.String())

	result := decode[importer.PreviewResult](t, preview)
	assert.Equal(t, importer.PreviewSummary{Total: 5, Ready: 2, Duplicates: 2, Errors: 1}, result.Summary)

	rows := make([]importer.CommitRow, 0, len(result.Rows.Ready))
	for _, r := range result.Rows.Ready {
		rows = append(rows, importer.CommitRow{RowNumber: r.RowNumber, URL: r.URL, Title: r.Title, Tags: r.Tags})
	}

	commit := s.do(t, http.MethodPost, "/imports/commit", importer.CommitRequest{Rows: rows, Source: "csv:links.csv"})
	require.Equal(t, http.StatusOK, commit.Code, commit.Body.String())

	committed := decode[importer.CommitResult](t, commit)
	assert.Equal(t, importer.CommitSummary{Total: 2, Imported: 2, Status: db.ImportCompleted}, committed.Summary)

	list := s.do(t, http.MethodGet, "/links?tag=tech&sort=title%20asc", nil)
	require.Equal(t, http.StatusOK, list.Code)
	var page struct {
		Data  []db.Link `json:"data"`
		Total int64     `json:"total"`
	}
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &page))
	assert.Equal(t, int64(2), page.Total)

	imports := s.do(t, http.MethodGet, "/imports", nil)
	require.Equal(t, http.StatusOK, imports.Code)
	assert.Contains(t, imports.Body.String(), committed.ImportID)

	detail := s.do(t, http.MethodGet, "/imports/"+committed.ImportID, nil)
	require.Equal(t, http.StatusOK, detail.Code)
	imp := decode[db.Import](t, detail)
	assert.Equal(t, "csv:links.csv", imp.Source)
	assert.Equal(t, 2, imp.ImportedRows)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/imports/does-not-exist", nil).Code)
}

func TestPreviewRejectsBadRequests(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"empty rows", map[string]any{"rows": []any{}, "mapping": map[string]string{"url": "url"}}},
		{"missing mapping", map[string]any{"rows": []map[string]any{{"row_number": 2, "values": map[string]any{}}}}},
		{"wrong types", map[string]any{"rows": "nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/imports/preview", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCommitRejectsTooManyRows(t *testing.T) {
	s := newTestServer(t)

	rows := make([]importer.CommitRow, 11)
	for i := range rows {
		url := fmt.Sprintf("https://site%d.com/", i)
		rows[i] = importer.CommitRow{RowNumber: i + 2, URL: url, Title: url}
	}

	w := s.do(t, http.MethodPost, "/imports/commit", importer.CommitRequest{Rows: rows})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var count int64
	require.NoError(t, s.db.Model(&db.Import{}).Count(&count).Error)
	assert.Zero(t, count)
}

func uploadRequest(t *testing.T, token, fileName, content string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/imports/parse", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestParseUpload(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, uploadRequest(t, s.token, "bookmarks.csv", "Link,Name,Labels\nhttps://a.com,A,go\n"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[ParseResponse](t, w)
	assert.Equal(t, "bookmarks.csv", resp.FileName)
	assert.Equal(t, "csv:bookmarks.csv", resp.Source)
	assert.Equal(t, []string{"Link", "Name", "Labels"}, resp.Headers)
	assert.Equal(t, importer.FieldMapping{URL: "Link", Title: "Name", Tags: "Labels"}, resp.Mapping)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, 2, resp.Rows[0].RowNumber)

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, uploadRequest(t, s.token, "bookmarks.txt", "url\nhttps://a.com\n"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, uploadRequest(t, s.token, "empty.csv", "url\n"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetLink(t *testing.T) {
	s := newTestServer(t)
	link := testhelpers.CreateLink(t, s.db, s.user.ID, "https://a.com/", "A")
	other := testhelpers.CreateUser(t, s.db, "bob")
	foreign := testhelpers.CreateLink(t, s.db, other.ID, "https://b.com/", "B")

	w := s.do(t, http.MethodGet, fmt.Sprintf("/links/%d", link.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://a.com/", decode[db.Link](t, w).URL)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, fmt.Sprintf("/links/%d", foreign.ID), nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/links/abc", nil).Code)
}
