package web

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-claude-transcripts/internal/annotation"
	"github.com/penwyp/go-claude-transcripts/internal/data/archive"
)

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServesOutputDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>index</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "annotations.json"), []byte(`{"version":"1.0"}`), 0o644))

	h := NewServer(dir, nil).Handler()

	rec := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>index</h1>")
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	rec = do(t, h, http.MethodGet, "/annotations.json", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, "ok", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/annotations", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "api disabled without an archive")
}

func TestAnnotationAPI(t *testing.T) {
	kv := archive.NewMemoryKV()
	h := NewServer(t.TempDir(), kv).Handler()

	rec := do(t, h, http.MethodGet, "/api/annotations", "")
	assert.Equal(t, "[]", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/annotations/annotations:s", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	store := annotation.NewStore("annotations:s")
	store.Now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	_, err := store.Add(annotation.AnchorRef{PromptIndex: 1, SubPosition: 1, Digest: "0badcafe"}, "hello", 1)
	require.NoError(t, err)
	doc, err := annotation.MarshalDocument(store.Export())
	require.NoError(t, err)

	rec = do(t, h, http.MethodPut, "/api/annotations/annotations:s", string(doc))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"imported":1,"skipped":0}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/annotations/annotations:s", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	parsed, _, err := annotation.ParseDocument(body)
	require.NoError(t, err)
	require.Len(t, parsed.Annotations, 1)
	assert.Equal(t, "hello", parsed.Annotations[0].Text)

	rec = do(t, h, http.MethodPut, "/api/annotations/annotations:s", "not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/annotations", "")
	assert.JSONEq(t, `["annotations:s"]`, rec.Body.String())
}

type readOnlyKV struct {
	archive.KV
}

func (readOnlyKV) Put(string, []byte) error {
	return errors.New("archive is read-only")
}

func TestAnnotationAPIStoreFailure(t *testing.T) {
	h := NewServer(t.TempDir(), readOnlyKV{archive.NewMemoryKV()}).Handler()

	rec := do(t, h, http.MethodPut, "/api/annotations/annotations:s", `{"annotations":[]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "archive is read-only")
}
