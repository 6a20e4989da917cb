package handlers_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"iter"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/lehigh-university-libraries/solarscan/internal/analysis"
	"github.com/lehigh-university-libraries/solarscan/internal/handlers"
	"github.com/lehigh-university-libraries/solarscan/internal/providers"
	"github.com/lehigh-university-libraries/solarscan/internal/solar"
	"github.com/lehigh-university-libraries/solarscan/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var minimalPNG = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D}

// recordingProvider returns scripted chunks and records the prompts it saw.
type recordingProvider struct {
	mu      sync.Mutex
	prompts []string
	chunks  []providers.Chunk
}

func (p *recordingProvider) GenerateStream(_ context.Context, req providers.Request) iter.Seq2[providers.Chunk, error] {
	p.mu.Lock()
	p.prompts = append(p.prompts, req.Prompt)
	p.mu.Unlock()
	return func(yield func(providers.Chunk, error) bool) {
		for _, c := range p.chunks {
			if !yield(c, nil) {
				return
			}
		}
	}
}

func (p *recordingProvider) lastPrompt() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.prompts) == 0 {
		return ""
	}
	return p.prompts[len(p.prompts)-1]
}

func newTestServer(t *testing.T, p providers.Provider, maxUpload int64) (*httptest.Server, *storage.TransientStore) {
	t.Helper()
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)

	orch := solar.New(p, store, solar.Options{Model: "gemini-test"})
	svc := analysis.NewService(orch, store, slog.Default())
	h, err := handlers.New(svc, slog.Default(), maxUpload)
	require.NoError(t, err)

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv, store
}

func multipartBody(t *testing.T, fields map[string]string, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postAnalyze(t *testing.T, srv *httptest.Server, fields map[string]string, filename string, data []byte) *http.Response {
	t.Helper()
	body, contentType := multipartBody(t, fields, filename, data)
	resp, err := http.Post(srv.URL+"/analyze", contentType, body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, r io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(r).Decode(&out))
	return out
}

func assertStoreEmpty(t *testing.T, store *storage.TransientStore) {
	t.Helper()
	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAnalyzeSuccess(t *testing.T) {
	p := &recordingProvider{chunks: []providers.Chunk{
		providers.TextChunk(`{"estimated_panels": 24}`),
		providers.ImageChunk("image/png", []byte("annotated")),
	}}
	srv, store := newTestServer(t, p, 1<<20)

	resp := postAnalyze(t, srv, map[string]string{"additional_text": "Pune, flat roof"}, "roof.png", minimalPNG)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	body := decode(t, resp.Body)
	assert.Equal(t, `{"estimated_panels": 24}`, body["text_response"])
	assert.Equal(t, base64.StdEncoding.EncodeToString(minimalPNG), body["uploaded_image"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("annotated")), body["generated_image"])
	assert.NotContains(t, body, "image_path")
	assert.Contains(t, p.lastPrompt(), "Additional context: Pune, flat roof")
	assertStoreEmpty(t, store)
}

func TestAnalyzeAdditionalTextFromQuery(t *testing.T) {
	p := &recordingProvider{}
	srv, _ := newTestServer(t, p, 1<<20)

	body, contentType := multipartBody(t, nil, "roof.png", minimalPNG)
	resp, err := http.Post(srv.URL+"/analyze?additional_text=tin+roof", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, p.lastPrompt(), "Additional context: tin roof")
}

func TestAnalyzeEmptyStream(t *testing.T) {
	srv, store := newTestServer(t, &recordingProvider{}, 1<<20)

	resp := postAnalyze(t, srv, nil, "roof.png", minimalPNG)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp.Body)
	assert.Equal(t, "", body["text_response"])
	assert.NotContains(t, body, "generated_image")
	assertStoreEmpty(t, store)
}

func TestAnalyzeMissingFile(t *testing.T) {
	srv, _ := newTestServer(t, &recordingProvider{}, 1<<20)

	resp := postAnalyze(t, srv, map[string]string{"additional_text": "x"}, "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "file is required", decode(t, resp.Body)["detail"])
}

func TestAnalyzeNonImage(t *testing.T) {
	srv, store := newTestServer(t, &recordingProvider{}, 1<<20)

	resp := postAnalyze(t, srv, nil, "notes.txt", []byte("this is a text file, not a rooftop"))
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	detail, _ := decode(t, resp.Body)["detail"].(string)
	assert.Contains(t, detail, "not a supported image")
	assertStoreEmpty(t, store)
}

func TestAnalyzeBlockedIsServerError(t *testing.T) {
	p := &recordingProvider{chunks: []providers.Chunk{{Kind: providers.ChunkBlocked, BlockReason: "SAFETY"}}}
	srv, store := newTestServer(t, p, 1<<20)

	resp := postAnalyze(t, srv, nil, "roof.png", minimalPNG)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "provider blocked the request: SAFETY", decode(t, resp.Body)["detail"])
	assertStoreEmpty(t, store)
}

func TestAnalyzeTooLarge(t *testing.T) {
	srv, _ := newTestServer(t, &recordingProvider{}, 16)

	data := append(append([]byte{}, minimalPNG...), make([]byte, 64)...)
	resp := postAnalyze(t, srv, nil, "roof.png", data)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestAnalyzeMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, &recordingProvider{}, 1<<20)

	resp, err := http.Get(srv.URL + "/analyze")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestIndex(t *testing.T) {
	srv, _ := newTestServer(t, &recordingProvider{}, 10<<20)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), `name="additional_text"`)
	assert.Contains(t, string(page), "max 10 MB")
}

func TestHealthcheck(t *testing.T) {
	srv, _ := newTestServer(t, &recordingProvider{}, 1<<20)

	resp, err := http.Get(srv.URL + "/healthcheck")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(body))
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, &recordingProvider{}, 1<<20)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/analyze", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://example.org", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	assert.True(t, strings.Contains(resp.Header.Get("Access-Control-Allow-Methods"), "POST"))
	assert.Equal(t, "content-type", resp.Header.Get("Access-Control-Allow-Headers"))
}

func TestCORSSimpleRequest(t *testing.T) {
	srv, _ := newTestServer(t, &recordingProvider{}, 1<<20)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthcheck", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}
