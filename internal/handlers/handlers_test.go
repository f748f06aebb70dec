package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/lehigh-university-libraries/nocap/internal/config"
	"github.com/lehigh-university-libraries/nocap/internal/models"
	"github.com/lehigh-university-libraries/nocap/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	caption string
	err     error
}

func (s stubProvider) DescribeImage(ctx context.Context, cfg providers.Config) (string, error) {
	return s.caption, s.err
}

type client struct {
	t      *testing.T
	server *httptest.Server
	http   *http.Client
}

func newClient(t *testing.T, h *Handler) *client {
	t.Helper()
	server := httptest.NewServer(h.Routes())
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, server: server, http: &http.Client{Jar: jar}}
}

func newHandler() *Handler {
	return New(config.Config{MaxUploadMB: 1, CaptionProvider: "stub", CaptionPrompt: "describe"})
}

func buildZip(t *testing.T, files map[string]string, order ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func (c *client) upload(filename string, data []byte) *http.Response {
	c.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(c.t, err)
	_, err = part.Write(data)
	require.NoError(c.t, err)
	require.NoError(c.t, mw.Close())

	resp, err := c.http.Post(c.server.URL+"/api/upload", mw.FormDataContentType(), &body)
	require.NoError(c.t, err)
	return resp
}

func (c *client) post(path string, payload any) *http.Response {
	c.t.Helper()
	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(c.t, err)
		body = bytes.NewReader(data)
	}
	resp, err := c.http.Post(c.server.URL+path, "application/json", body)
	require.NoError(c.t, err)
	return resp
}

func (c *client) get(path string) *http.Response {
	c.t.Helper()
	resp, err := c.http.Get(c.server.URL + path)
	require.NoError(c.t, err)
	return resp
}

func decodeView(t *testing.T, resp *http.Response) models.ReviewView {
	t.Helper()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view models.ReviewView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	return view
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return data
}

func TestReviewWorkflow(t *testing.T) {
	c := newClient(t, newHandler())

	view := decodeView(t, c.get("/api/review"))
	assert.False(t, view.HasUpload)

	data := buildZip(t, map[string]string{
		"cats/a.png": "png-a",
		"cats/a.txt": "a seeded cat",
		"b.jpg":      "jpg-b",
	}, "cats/a.png", "cats/a.txt", "b.jpg")

	resp := c.upload("pets.zip", data)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var uploaded struct {
		Message string            `json:"message"`
		Images  int               `json:"images"`
		Seeded  int               `json:"seeded"`
		Review  models.ReviewView `json:"review"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&uploaded))
	assert.Equal(t, "Detected 2 images", uploaded.Message)
	assert.Equal(t, 1, uploaded.Seeded)
	assert.Equal(t, "a seeded cat", uploaded.Review.Caption)
	assert.Equal(t, "Captioning image 1 of 2", uploaded.Review.ProgressText)

	img := c.get("/api/review/image")
	assert.Equal(t, "image/png", img.Header.Get("Content-Type"))
	assert.Equal(t, "png-a", string(readBody(t, img)))

	download := c.get("/api/download")
	readBody(t, download)
	assert.Equal(t, http.StatusConflict, download.StatusCode)

	view = decodeView(t, c.post("/api/review/save", map[string]string{"caption": "a cat"}))
	assert.Equal(t, 1, view.Position)
	assert.Equal(t, "b.jpg", view.Current.Identifier)
	assert.Equal(t, "", view.Caption)

	view = decodeView(t, c.post("/api/review/save", map[string]string{"caption": "a bee"}))
	assert.True(t, view.Complete)
	assert.Equal(t, "pets_captions.zip", view.DownloadName)

	download = c.get("/api/download")
	archive := readBody(t, download)
	require.Equal(t, http.StatusOK, download.StatusCode)
	assert.Equal(t, "application/zip", download.Header.Get("Content-Type"))
	assert.Contains(t, download.Header.Get("Content-Disposition"), "pets_captions.zip")

	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a.png", "a.txt", "b.jpg", "b.txt"}, names)
}

func TestRepeatUploadKeepsProgress(t *testing.T) {
	c := newClient(t, newHandler())
	data := buildZip(t, map[string]string{"a.png": "1", "b.png": "2"}, "a.png", "b.png")

	readBody(t, c.upload("set.zip", data))
	decodeView(t, c.post("/api/review/save", map[string]string{"caption": "first"}))

	resp := c.upload("set.zip", data)
	defer resp.Body.Close()
	var repeated struct {
		Reset  bool              `json:"reset"`
		Review models.ReviewView `json:"review"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&repeated))
	assert.False(t, repeated.Reset)
	assert.Equal(t, 1, repeated.Review.Position)

	decodeView(t, c.post("/api/review/reset", nil))
	readBody(t, c.upload("set.zip", data))
	view := decodeView(t, c.get("/api/review"))
	assert.Equal(t, 0, view.Position)
}

func TestUploadRejections(t *testing.T) {
	c := newClient(t, newHandler())

	resp := c.upload("notes.txt", []byte("hello"))
	readBody(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = c.upload("broken.zip", []byte("not a zip"))
	readBody(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	view := decodeView(t, c.get("/api/review"))
	assert.False(t, view.HasUpload)

	resp = c.get("/api/upload")
	readBody(t, resp)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestUploadTooLarge(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "huge.zip")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("x"), 2*1024*1024))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	newHandler().HandleUpload(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestEndEarly(t *testing.T) {
	c := newClient(t, newHandler())
	data := buildZip(t, map[string]string{"a.png": "1", "b.png": "2"}, "a.png", "b.png")
	readBody(t, c.upload("set.zip", data))

	decodeView(t, c.post("/api/review/save", map[string]string{"caption": "one"}))
	view := decodeView(t, c.post("/api/review/end", nil))
	assert.True(t, view.Complete)
	assert.True(t, view.EndedEarly)
	assert.Equal(t, 1, view.Captioned)

	resp := c.get("/api/review/image")
	readBody(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	download := c.get("/api/download")
	archive := readBody(t, download)
	require.Equal(t, http.StatusOK, download.StatusCode)
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	require.NoError(t, err)
	assert.Len(t, zr.File, 2)
}

func TestDownloadWithoutUpload(t *testing.T) {
	c := newClient(t, newHandler())
	resp := c.get("/api/download")
	readBody(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionsAreIsolated(t *testing.T) {
	h := newHandler()
	first := newClient(t, h)
	second := &client{t: t, server: first.server, http: &http.Client{}}
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	second.http.Jar = jar

	readBody(t, first.upload("set.zip", buildZip(t, map[string]string{"a.png": "1"}, "a.png")))

	assert.True(t, decodeView(t, first.get("/api/review")).HasUpload)
	assert.False(t, decodeView(t, second.get("/api/review")).HasUpload)
}

func TestSuggest(t *testing.T) {
	h := newHandler()
	h.Captioning().WithProvider("stub", stubProvider{caption: "Caption: a red fox"})
	c := newClient(t, h)

	resp := c.post("/api/review/suggest", map[string]string{})
	readBody(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	readBody(t, c.upload("set.zip", buildZip(t, map[string]string{"fox.jpg": "1"}, "fox.jpg")))

	resp = c.post("/api/review/suggest", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var suggestion map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&suggestion))
	assert.Equal(t, "a red fox", suggestion["caption"])
	assert.Equal(t, "fox.jpg", suggestion["image"])

	view := decodeView(t, c.get("/api/review"))
	assert.Equal(t, 0, view.Position)
	assert.Equal(t, "", view.Caption)
}

func TestSuggestProviderFailure(t *testing.T) {
	h := newHandler()
	h.Captioning().WithProvider("stub", stubProvider{err: errors.New("model offline")})
	c := newClient(t, h)
	readBody(t, c.upload("set.zip", buildZip(t, map[string]string{"fox.jpg": "1"}, "fox.jpg")))

	resp := c.post("/api/review/suggest", nil)
	body := readBody(t, resp)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, string(body), "model offline")
}

func TestInfrastructureRoutes(t *testing.T) {
	c := newClient(t, newHandler())

	resp := c.get("/healthcheck")
	assert.Equal(t, "OK", string(readBody(t, resp)))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	resp = c.get("/")
	page := readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(page), "<title>nocap</title>")
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))

	resp = c.get("/app.js")
	readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = c.get("/metrics")
	metricsBody := readBody(t, resp)
	assert.True(t, strings.Contains(string(metricsBody), "nocap_http_requests_total"))
}

func TestRequestIDIsPropagated(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(requestIDFrom(r.Context())))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Body.String())
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
