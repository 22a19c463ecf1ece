package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/openshelf/internal/broadcast"
	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/database/books"
	"github.com/openshelf/openshelf/internal/database/imports"
	"github.com/openshelf/openshelf/internal/database/reviews"
	"github.com/openshelf/openshelf/internal/database/shelves"
	"github.com/openshelf/openshelf/internal/entities"
	"github.com/openshelf/openshelf/internal/services"
)

const importCSV = `Book Id,Title,Author,ISBN13,My Rating,My Review,Exclusive Shelf,Date Added,Date Read
38,The Fifth Season,N.K. Jemisin,"=""9780316229296""",5,,read,2020/10/21,2020/10/28
48,Too Like the Lightning,Ada Palmer,"=""9780765378002""",3,,to-read,2020/10/21,
`

// stubCatalog knows no books: rows fail resolution unless tests seed
// local books first.
type stubCatalog struct{}

func (stubCatalog) ResolveByISBN(ctx context.Context, isbn string) (*services.CatalogBook, error) {
	return nil, services.ErrBookNotFound
}

func (stubCatalog) SearchOrCreate(ctx context.Context, title, author string) (*services.CatalogBook, error) {
	return nil, services.ErrBookNotFound
}

type stubDispatcher struct {
	nextID int
}

func (d *stubDispatcher) DispatchImport(jobID uint) (string, error) {
	d.nextID++
	return fmt.Sprintf("%d", d.nextID), nil
}

func (d *stubDispatcher) DispatchItem(itemID uint) (string, error) {
	d.nextID++
	return fmt.Sprintf("%d", d.nextID), nil
}

type testServer struct {
	router  *gin.Engine
	db      *database.Database
	repo    *imports.Repository
	service *services.ImportService
	user    *entities.User
}

func setupServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	user, err := db.CreateUser("mouse", "mouse@example.com")
	require.NoError(t, err)

	repo := imports.NewRepository(db.DB)
	service := services.NewImportService(
		repo,
		books.NewRepository(db.DB),
		shelves.NewRepository(db.DB),
		reviews.NewRepository(db.DB),
		stubCatalog{},
		&stubDispatcher{},
		broadcast.Noop{},
	)

	router := NewRouter(RouterConfig{
		Imports: NewImportsController(service, repo, db),
		Health:  NewHealthController(db, "test"),
	})

	return &testServer{
		router:  router,
		db:      db,
		repo:    repo,
		service: service,
		user:    user,
	}
}

func multipartImport(t *testing.T, fields map[string]string, csv string) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	part, err := writer.CreateFormFile("file", "export.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestCreateImport(t *testing.T) {
	server := setupServer(t)

	body, contentType := multipartImport(t, map[string]string{
		"user_id":         fmt.Sprintf("%d", server.user.ID),
		"source":          "goodreads",
		"privacy":         "unlisted",
		"include_reviews": "true",
	}, importCSV)

	req := httptest.NewRequest(http.MethodPost, "/api/imports", body)
	req.Header.Set("Content-Type", contentType)
	rec := server.do(req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var summary JobSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "goodreads", summary.Source)
	assert.True(t, summary.IncludeReviews)
	assert.Equal(t, entities.PrivacyUnlisted, summary.Privacy)
	assert.Equal(t, 2, summary.ItemCount)
	assert.Equal(t, 2, summary.PendingCount)
	assert.Equal(t, "1", summary.TaskID)
}

func TestCreateImportUnknownSource(t *testing.T) {
	server := setupServer(t)

	body, contentType := multipartImport(t, map[string]string{
		"user_id": fmt.Sprintf("%d", server.user.ID),
		"source":  "bookdepository",
	}, importCSV)

	req := httptest.NewRequest(http.MethodPost, "/api/imports", body)
	req.Header.Set("Content-Type", contentType)
	rec := server.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateImportMalformedFile(t *testing.T) {
	server := setupServer(t)

	malformed := "Book Id,Title,Author\n1,No Author Book,\n"
	body, contentType := multipartImport(t, map[string]string{
		"user_id": fmt.Sprintf("%d", server.user.ID),
		"source":  "goodreads",
	}, malformed)

	req := httptest.NewRequest(http.MethodPost, "/api/imports", body)
	req.Header.Set("Content-Type", contentType)
	rec := server.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "line 2")
}

func TestCreateImportUnknownUser(t *testing.T) {
	server := setupServer(t)

	body, contentType := multipartImport(t, map[string]string{
		"user_id": "9999",
		"source":  "goodreads",
	}, importCSV)

	req := httptest.NewRequest(http.MethodPost, "/api/imports", body)
	req.Header.Set("Content-Type", contentType)
	rec := server.do(req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetImport(t *testing.T) {
	server := setupServer(t)

	job := createJobViaService(t, server)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/imports/%d", job.ID), nil)
	rec := server.do(req)

	require.Equal(t, http.StatusOK, rec.Code)

	var summary JobSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, job.ID, summary.ID)
	assert.Equal(t, 2, summary.ItemCount)
}

func TestGetImportNotFound(t *testing.T) {
	server := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/imports/9999", nil)
	rec := server.do(req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListFailedItems(t *testing.T) {
	server := setupServer(t)

	job := createJobViaService(t, server)
	items, err := server.repo.ItemsForJob(job.ID)
	require.NoError(t, err)
	require.NoError(t, server.repo.MarkItemFailed(items[0].ID, "could not resolve"))

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/imports/%d/items?failed=true", job.ID), nil)
	rec := server.do(req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Items []entities.ImportItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response.Items, 1)
	assert.Equal(t, items[0].ID, response.Items[0].ID)
}

func TestRetryImport(t *testing.T) {
	server := setupServer(t)

	job := createJobViaService(t, server)
	items, err := server.repo.ItemsForJob(job.ID)
	require.NoError(t, err)
	require.NoError(t, server.repo.MarkItemFailed(items[0].ID, "could not resolve"))
	require.NoError(t, server.repo.MarkItemFailed(items[1].ID, "could not resolve"))

	payload, err := json.Marshal(RetryRequest{ItemIDs: []uint{items[0].ID}})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/imports/%d/retry", job.ID), bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := server.do(req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var summary JobSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.NotEqual(t, job.ID, summary.ID)
	assert.Equal(t, 1, summary.ItemCount)
	assert.NotEmpty(t, summary.TaskID)
}

func TestRetryImportNothingFailed(t *testing.T) {
	server := setupServer(t)

	job := createJobViaService(t, server)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/imports/%d/retry", job.ID), nil)
	rec := server.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func createJobViaService(t *testing.T, server *testServer) *entities.ImportJob {
	rows := []entities.FieldMap{
		{entities.FieldID: "38", entities.FieldTitle: "The Fifth Season", entities.FieldAuthor: "N.K. Jemisin"},
		{entities.FieldID: "48", entities.FieldTitle: "Too Like the Lightning", entities.FieldAuthor: "Ada Palmer"},
	}
	job, err := server.repo.CreateJob(server.user.ID, "goodreads", false, entities.PrivacyPublic, rows)
	require.NoError(t, err)
	return job
}

func TestHealthEndpoint(t *testing.T) {
	server := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := server.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status": "healthy"`)
	assert.Contains(t, rec.Body.String(), `"database": "ok"`)
}
