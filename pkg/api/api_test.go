package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marmos91/rmshelf/pkg/docstore"
	"github.com/marmos91/rmshelf/pkg/session"
	contentmemory "github.com/marmos91/rmshelf/pkg/store/content/memory"
	kvmemory "github.com/marmos91/rmshelf/pkg/store/kv/memory"
	"github.com/marmos91/rmshelf/pkg/store/metadata"
	"github.com/marmos91/rmshelf/pkg/store/metadata/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router  http.Handler
	backend *memory.MemoryDocumentStore
	store   *docstore.Store
	holder  *session.Holder
}

func setupWith(t *testing.T, cfg Config, latency memory.LatencyConfig) *testEnv {
	t.Helper()
	ctx := context.Background()
	clock := func() time.Time { return testNow }

	backend := memory.NewMemoryDocumentStore(memory.MemoryDocumentStoreConfig{
		Seed:    true,
		Latency: latency,
		Now:     clock,
	})
	blobs, err := contentmemory.NewMemoryContentStore(ctx)
	require.NoError(t, err)

	store := docstore.New(backend, blobs, docstore.Config{Now: clock})
	require.NoError(t, store.Load(ctx))

	holder, err := session.NewHolder(kvmemory.NewMemoryStore(), session.Config{
		Secret: []byte("test-secret-0123456789"),
		Now:    clock,
	})
	require.NoError(t, err)

	cfg.Health = backend
	cfg.Now = clock
	return &testEnv{
		router:  NewRouter(store, holder, cfg),
		backend: backend,
		store:   store,
		holder:  holder,
	}
}

func setup(t *testing.T) *testEnv {
	return setupWith(t, Config{}, memory.LatencyConfig{})
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// login signs in through the API and returns the user token.
func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/session", "", gin.H{"device_code": "abcd1234"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Credentials)
	return resp.Credentials.UserToken
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func names(items []documentView) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}

func TestHealthz(t *testing.T) {
	e := setup(t)

	rec := e.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["loaded"])
}

func TestDocumentRoutesRequireSession(t *testing.T) {
	e := setup(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/documents"},
		{http.MethodPost, "/api/v1/folders"},
		{http.MethodPost, "/api/v1/documents/delete"},
		{http.MethodPost, "/api/v1/uploads"},
		{http.MethodPost, "/api/v1/refresh"},
		{http.MethodGet, "/api/v1/selection"},
		{http.MethodDelete, "/api/v1/session"},
	}
	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			rec := e.do(t, r.method, r.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			rec = e.do(t, r.method, r.path, "not-a-token", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	e := setup(t)

	rec := e.do(t, http.MethodGet, "/api/v1/session", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[sessionResponse](t, rec).Authenticated)

	rec = e.do(t, http.MethodPost, "/api/v1/session", "", gin.H{"device_code": " abcd1234 "})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[sessionResponse](t, rec)
	require.NotNil(t, created.Credentials)
	assert.True(t, strings.HasPrefix(created.Credentials.DeviceToken, "device_ABCD1234_"))
	assert.Equal(t, session.DefaultEmail, created.Profile.Email)
	token := created.Credentials.UserToken

	// tokens are only handed out at login
	rec = e.do(t, http.MethodGet, "/api/v1/session", "", nil)
	current := decode[sessionResponse](t, rec)
	assert.True(t, current.Authenticated)
	assert.Nil(t, current.Credentials)
	assert.Equal(t, session.DefaultSyncVersion, current.Profile.SyncVersion)

	rec = e.do(t, http.MethodGet, "/api/v1/documents", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodDelete, "/api/v1/session", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/v1/documents", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, e.holder.IsAuthenticated())
}

func TestLogin_InvalidInput(t *testing.T) {
	e := setup(t)

	rec := e.do(t, http.MethodPost, "/api/v1/session", "", gin.H{"device_code": "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", decode[errorBody](t, rec).Code)

	rec = e.do(t, http.MethodPost, "/api/v1/session", "", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.False(t, e.holder.IsAuthenticated())
}

func TestLogin_RateLimited(t *testing.T) {
	e := setupWith(t, Config{LoginPerMinute: 1, LoginBurst: 2}, memory.LatencyConfig{})

	for i := 0; i < 2; i++ {
		rec := e.do(t, http.MethodPost, "/api/v1/session", "", gin.H{"device_code": "bad"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}

	rec := e.do(t, http.MethodPost, "/api/v1/session", "", gin.H{"device_code": "abcd1234"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", decode[errorBody](t, rec).Code)
}

func TestListDocuments(t *testing.T) {
	e := setup(t)
	token := e.login(t)

	t.Run("root by name", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/api/v1/documents?path=/", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		l := decode[listingResponse](t, rec)
		assert.True(t, l.Found)
		assert.Equal(t, "Home", l.Location)
		assert.Equal(t, []string{"My Notebooks", "PDFs"}, names(l.Items))
		assert.Equal(t, "/1", l.Items[0].Path)
		assert.Empty(t, l.Items[0].SizeLabel)
		assert.Equal(t, 2, l.Count)
	})

	t.Run("folder by size descending", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/api/v1/documents?path=/1&sort=size&order=desc", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		l := decode[listingResponse](t, rec)
		assert.Equal(t, []string{"Research Notes", "Meeting Minutes"}, names(l.Items))
		assert.Equal(t, "1.95 MB", l.Items[0].SizeLabel)
		assert.Equal(t, "1 day ago", l.Items[0].ModifiedLabel)
		assert.Equal(t, []string{"Home", "My Notebooks"}, l.Breadcrumbs)
		assert.Equal(t, "size", l.Sort)
		assert.Equal(t, "desc", l.Order)
	})

	t.Run("unknown path is empty", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/api/v1/documents?path=/nope", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		l := decode[listingResponse](t, rec)
		assert.False(t, l.Found)
		assert.Empty(t, l.Items)
	})

	t.Run("invalid sort", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/api/v1/documents?sort=colour", token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCreateFolder(t *testing.T) {
	e := setup(t)
	token := e.login(t)

	rec := e.do(t, http.MethodPost, "/api/v1/folders", token, gin.H{"name": "  ", "path": "/"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", decode[errorBody](t, rec).Code)

	rec = e.do(t, http.MethodPost, "/api/v1/folders", token, gin.H{"name": "Drafts", "path": "/nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[errorBody](t, rec).Code)

	rec = e.do(t, http.MethodPost, "/api/v1/folders", token, gin.H{"name": "Drafts", "path": "/1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[map[string]any](t, rec)
	assert.Equal(t, "Drafts", created["name"])
	assert.Equal(t, "CollectionType", created["type"])
	assert.Equal(t, "1", created["parent"])
	assert.EqualValues(t, 1, created["version"])

	rec = e.do(t, http.MethodGet, "/api/v1/documents?path=/1", token, nil)
	assert.Contains(t, names(decode[listingResponse](t, rec).Items), "Drafts")
}

func TestCreateFolder_BackendFailureSetsErrorSlot(t *testing.T) {
	e := setup(t)
	token := e.login(t)

	e.backend.Inject(metadata.OpCreate, nil, 1)

	rec := e.do(t, http.MethodPost, "/api/v1/folders", token, gin.H{"name": "Drafts"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "operation_failed", decode[errorBody](t, rec).Code)

	rec = e.do(t, http.MethodGet, "/api/v1/status", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[statusResponse](t, rec).Error)

	rec = e.do(t, http.MethodDelete, "/api/v1/status/error", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/v1/status", token, nil)
	assert.Empty(t, decode[statusResponse](t, rec).Error)
}

func TestListDocuments_ErrorSlotReplacesItems(t *testing.T) {
	e := setup(t)
	token := e.login(t)

	e.backend.Inject(metadata.OpCreate, nil, 1)
	rec := e.do(t, http.MethodPost, "/api/v1/folders", token, gin.H{"name": "Drafts", "path": "/1"})
	require.Equal(t, http.StatusBadGateway, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/v1/documents?path=/1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	l := decode[listingResponse](t, rec)
	assert.NotEmpty(t, l.Error)
	assert.Empty(t, l.Items)
	assert.Zero(t, l.Count)
	assert.True(t, l.Found)

	// a successful refresh restores the listing
	rec = e.do(t, http.MethodPost, "/api/v1/navigate", token, gin.H{"path": "/1"})
	require.Equal(t, http.StatusOK, rec.Code)
	l = decode[listingResponse](t, rec)
	assert.Empty(t, l.Error)
	assert.Equal(t, []string{"Meeting Minutes", "Research Notes"}, names(l.Items))
}

func TestRequestBinding(t *testing.T) {
	e := setup(t)
	token := e.login(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   gin.H
		field  string
	}{
		{"folder without name", http.MethodPost, "/api/v1/folders", gin.H{"path": "/1"}, "Name"},
		{"delete without ids", http.MethodPost, "/api/v1/documents/delete", gin.H{"continue_on_error": true}, "IDs"},
		{"delete with blank id", http.MethodPost, "/api/v1/documents/delete", gin.H{"ids": []string{"2", ""}}, "IDs[1]"},
		{"update without fields", http.MethodPatch, "/api/v1/documents/2", gin.H{}, "Name"},
		{"rename and move", http.MethodPatch, "/api/v1/documents/2", gin.H{"name": "x", "path": "/"}, "Name"},
		{"selection without ids", http.MethodPut, "/api/v1/selection", gin.H{}, "IDs"},
		{"toggle without id", http.MethodPost, "/api/v1/selection/toggle", gin.H{}, "ID"},
		{"navigate without path", http.MethodPost, "/api/v1/navigate", gin.H{}, "Path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, tt.method, tt.path, token, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			body := decode[errorBody](t, rec)
			assert.Equal(t, "validation", body.Code)
			assert.True(t, strings.HasPrefix(body.Error, tt.field+":"), body.Error)
		})
	}

	// selecting through the delete flag needs no ids
	rec := e.do(t, http.MethodPost, "/api/v1/documents/delete", token, gin.H{"selection": true})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteDocuments(t *testing.T) {
	e := setup(t)
	token := e.login(t)

	t.Run("non-empty folder alone", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/api/v1/documents/delete", token, gin.H{"ids": []string{"1"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		resp := decode[batchResponse](t, rec)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, "not_empty", resp.Items[0].Code)
		assert.Equal(t, 1, resp.Failed)
	})

	t.Run("absent id is a no-op", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/api/v1/documents/delete", token, gin.H{"ids": []string{"missing"}})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, decode[batchResponse](t, rec).Succeeded)
	})

	t.Run("folder with contents", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/api/v1/documents/delete", token, gin.H{"ids": []string{"1", "2", "3"}})
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decode[batchResponse](t, rec)
		assert.Equal(t, 3, resp.Succeeded)
		assert.Equal(t, []string{"1", "2", "3"}, []string{resp.Items[0].ID, resp.Items[1].ID, resp.Items[2].ID})

		_, ok := e.store.Document("1")
		assert.False(t, ok)
	})

	t.Run("missing ids", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/api/v1/documents/delete", token, gin.H{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDeleteSelection(t *testing.T) {
	e := setup(t)
	token := e.login(t)

	rec := e.do(t, http.MethodPut, "/api/v1/selection", token, gin.H{"ids": []string{"5", "4"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"4", "5"}, decode[selectionResponse](t, rec).IDs)

	rec = e.do(t, http.MethodPost, "/api/v1/documents/delete", token, gin.H{"selection": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[batchResponse](t, rec).Succeeded)

	rec = e.do(t, http.MethodGet, "/api/v1/selection", token, nil)
	assert.Equal(t, 0, decode[selectionResponse](t, rec).Count)
}

func TestSelectionRoutes(t *testing.T) {
	e := setup(t)
	token := e.login(t)

	rec := e.do(t, http.MethodPut, "/api/v1/selection", token, gin.H{"ids": []string{"2", "nope"}})
	assert.Equal(t, []string{"2"}, decode[selectionResponse](t, rec).IDs)

	rec = e.do(t, http.MethodPost, "/api/v1/selection/toggle", token, gin.H{"id": "3"})
	assert.Equal(t, []string{"2", "3"}, decode[selectionResponse](t, rec).IDs)

	rec = e.do(t, http.MethodGet, "/api/v1/documents?path=/1", token, nil)
	l := decode[listingResponse](t, rec)
	assert.True(t, l.AllSelected)
	assert.True(t, l.Items[0].Selected)

	rec = e.do(t, http.MethodPost, "/api/v1/selection/all", token, gin.H{"path": "/"})
	assert.Equal(t, []string{"1", "4"}, decode[selectionResponse](t, rec).IDs)

	rec = e.do(t, http.MethodDelete, "/api/v1/selection", token, nil)
	assert.Equal(t, []string{}, decode[selectionResponse](t, rec).IDs)
}

func TestUpdateDocument(t *testing.T) {
	e := setup(t)
	token := e.login(t)

	rec := e.do(t, http.MethodPatch, "/api/v1/documents/2", token, gin.H{"name": "Renamed"})
	require.Equal(t, http.StatusOK, rec.Code)
	renamed := decode[map[string]any](t, rec)
	assert.Equal(t, "Renamed", renamed["name"])
	assert.EqualValues(t, 2, renamed["version"])

	rec = e.do(t, http.MethodPatch, "/api/v1/documents/5", token, gin.H{"path": "/1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", decode[map[string]any](t, rec)["parent"])

	rec = e.do(t, http.MethodPatch, "/api/v1/documents/2", token, gin.H{"name": "x", "path": "/"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPatch, "/api/v1/documents/2", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPatch, "/api/v1/documents/missing", token, gin.H{"name": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNavigateAndRefresh(t *testing.T) {
	e := setup(t)
	token := e.login(t)

	rec := e.do(t, http.MethodPost, "/api/v1/navigate", token, gin.H{"path": "/1"})
	require.Equal(t, http.StatusOK, rec.Code)
	l := decode[listingResponse](t, rec)
	assert.Equal(t, "/1", l.Path)
	assert.Equal(t, 2, l.Count)

	rec = e.do(t, http.MethodPost, "/api/v1/navigate", token, gin.H{"path": "/nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "/1", e.store.CurrentPath())

	rec = e.do(t, http.MethodPost, "/api/v1/refresh?sort=modified", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	l = decode[listingResponse](t, rec)
	assert.Equal(t, "/1", l.Path)
	assert.Equal(t, []string{"Meeting Minutes", "Research Notes"}, names(l.Items))

	// listing without a path uses the current one
	rec = e.do(t, http.MethodGet, "/api/v1/documents", token, nil)
	assert.Equal(t, "/1", decode[listingResponse](t, rec).Path)
}

func multipartBody(t *testing.T, files map[string][]byte, order []string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, name := range order {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(files[name])
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func (e *testEnv) upload(t *testing.T, token, path string, files map[string][]byte, order []string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, files, order)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads?path="+path, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestUpload(t *testing.T) {
	e := setup(t)
	token := e.login(t)

	files := map[string][]byte{
		"notes.pdf": []byte("%PDF-1.7"),
		"photo.png": []byte("png"),
		"book.EPUB": []byte("epub!"),
	}
	rec := e.upload(t, token, "/4", files, []string{"notes.pdf", "photo.png", "book.EPUB"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[batchResponse](t, rec)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, 2, resp.Succeeded)
	require.NotNil(t, resp.Items[0].Document)
	assert.Equal(t, "notes", resp.Items[0].Document.Name)
	assert.Equal(t, "book", resp.Items[1].Document.Name)
	assert.Equal(t, int64(5), resp.Items[1].Document.Size())

	rec = e.do(t, http.MethodGet, "/api/v1/documents?path=/4", token, nil)
	assert.Equal(t, []string{"book", "notes", "Technical Manual.pdf"}, names(decode[listingResponse](t, rec).Items))
}

func TestUpload_Errors(t *testing.T) {
	e := setupWith(t, Config{MaxUploadBytes: 1024}, memory.LatencyConfig{})
	token := e.login(t)

	rec := e.upload(t, token, "/nope", map[string][]byte{"a.pdf": []byte("a")}, []string{"a.pdf"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	big := bytes.Repeat([]byte("x"), 4096)
	rec = e.upload(t, token, "/", map[string][]byte{"big.pdf": big}, []string{"big.pdf"})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/v1/uploads", token, gin.H{"files": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_BusyWhileInFlight(t *testing.T) {
	e := setupWith(t, Config{}, memory.LatencyConfig{Upload: 300 * time.Millisecond})
	token := e.login(t)

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		first <- e.upload(t, token, "/", map[string][]byte{"a.pdf": []byte("a")}, []string{"a.pdf"})
	}()

	require.Eventually(t, func() bool {
		return e.store.Busy(docstore.ActionUpload)
	}, time.Second, 5*time.Millisecond)

	rec := e.upload(t, token, "/", map[string][]byte{"b.pdf": []byte("b")}, []string{"b.pdf"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "busy", decode[errorBody](t, rec).Code)

	assert.Equal(t, http.StatusOK, (<-first).Code)
}
