package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"anjungan-print-agent/internal/config"
	"anjungan-print-agent/internal/models"
	"anjungan-print-agent/internal/render"
	"anjungan-print-agent/internal/update"
)

// fakeSubmitter records what was submitted where, reading the temp file
// contents before the dispatch envelope deletes it.
type fakeSubmitter struct {
	shareTarget   string
	printerTarget string
	written       []byte
	lastPath      string
	copyErr       error
	printErr      error
}

func (f *fakeSubmitter) CopyToShare(ctx context.Context, path, share string) error {
	f.shareTarget = share
	f.lastPath = path
	f.written, _ = os.ReadFile(path)
	return f.copyErr
}

func (f *fakeSubmitter) PrintDocument(ctx context.Context, path, printer string) error {
	f.printerTarget = printer
	f.lastPath = path
	f.written, _ = os.ReadFile(path)
	return f.printErr
}

type fakeEnumerator struct {
	printers []models.PrinterInfo
	err      error
}

func (f *fakeEnumerator) ListPrinters(ctx context.Context) ([]models.PrinterInfo, error) {
	return f.printers, f.err
}

type fakeRenderer struct {
	pdf     []byte
	err     error
	lastReq render.Request
}

func (f *fakeRenderer) RenderHTML(ctx context.Context, req render.Request) ([]byte, error) {
	f.lastReq = req
	return f.pdf, f.err
}

func (f *fakeRenderer) Close() error { return nil }

type fakeUpdater struct{ err error }

func (f *fakeUpdater) Apply(ctx context.Context, url, version string) (*update.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &update.Result{Message: "applied", Version: version}, nil
}

type testEnv struct {
	router     *gin.Engine
	submitter  *fakeSubmitter
	enumerator *fakeEnumerator
	renderer   *fakeRenderer
	server     *Server
}

func newTestEnv(t *testing.T, mutate func(cfg *config.Config)) *testEnv {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.CORSOrigin = "*"
	cfg.Print.ShareHost = "127.0.0.1"
	cfg.Print.TempDir = t.TempDir()
	cfg.Print.PrintTimeout = time.Minute
	if mutate != nil {
		mutate(cfg)
	}

	env := &testEnv{
		submitter:  &fakeSubmitter{},
		enumerator: &fakeEnumerator{},
		renderer:   &fakeRenderer{pdf: []byte("%PDF-1.4 fake")},
	}
	env.server = NewServer(cfg, zap.NewNop(), env.submitter, env.enumerator, env.renderer, &fakeUpdater{})
	env.router = env.server.Router()
	return env
}

func (e *testEnv) post(t *testing.T, path, body string, headers ...map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for _, h := range headers {
		for k, v := range h {
			req.Header.Set(k, v)
		}
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func (e *testEnv) get(t *testing.T, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestPrintRawBase64(t *testing.T) {
	env := newTestEnv(t, nil)
	w, resp := env.post(t, "/print-raw", `{"printerShare":"POS1","rawBase64":"SGVsbG8="}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	assert.NotEmpty(t, resp["requestId"])
	assert.Equal(t, `\\127.0.0.1\POS1`, env.submitter.shareTarget)
	assert.Equal(t, []byte("Hello"), env.submitter.written)

	_, statErr := os.Stat(env.submitter.lastPath)
	assert.True(t, os.IsNotExist(statErr), "temp file must be deleted after dispatch")
}

func TestPrintRawHexField(t *testing.T) {
	env := newTestEnv(t, nil)
	w, resp := env.post(t, "/print-raw", `{"printer":"POS1","rawHex":"1b4001"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, []byte{0x1b, 0x40, 0x01}, env.submitter.written)
}

func TestPrintRawMissingPayload(t *testing.T) {
	env := newTestEnv(t, nil)
	w, resp := env.post(t, "/print-raw", `{"printerShare":"POS1"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["error"], "Raw payload is required")
	assert.Empty(t, env.submitter.shareTarget, "nothing must reach the printer")
}

func TestPrintRawMissingTarget(t *testing.T) {
	env := newTestEnv(t, nil)
	w, resp := env.post(t, "/print-raw", `{"rawBase64":"SGVsbG8="}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp["error"], "printer share is required")
}

func TestPrintRawInvalidHexIsClientError(t *testing.T) {
	env := newTestEnv(t, nil)
	w, resp := env.post(t, "/print-raw", `{"printerShare":"POS1","rawHex":"zz"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, resp["success"])
}

func TestPrintRawSubmissionFailureIsServerError(t *testing.T) {
	env := newTestEnv(t, nil)
	env.submitter.copyErr = errors.New("share unreachable")

	w, resp := env.post(t, "/print-raw", `{"printerShare":"POS1","rawBase64":"SGVsbG8="}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["error"], "share unreachable")

	_, statErr := os.Stat(env.submitter.lastPath)
	assert.True(t, os.IsNotExist(statErr), "temp file must be deleted on failure too")
}

func TestPrintLabelNewlineDefault(t *testing.T) {
	env := newTestEnv(t, nil)
	w, _ := env.post(t, "/print-label", `{"printerShare":"POS1","data":"A\nB"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []byte("A\r\nB"), env.submitter.written)
}

func TestPrintLabelNewlineDisabled(t *testing.T) {
	env := newTestEnv(t, nil)
	w, _ := env.post(t, "/print-label", `{"printerShare":"POS1","data":"A\nB","newline":false}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []byte("A\nB"), env.submitter.written)
}

func TestPrintLabelCRLFNotDoubled(t *testing.T) {
	env := newTestEnv(t, nil)
	w, _ := env.post(t, "/print-label", `{"printerShare":"POS1","data":"A\r\nB\rC"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []byte("A\r\nB\r\nC"), env.submitter.written)
}

func TestPrintLabelBase64(t *testing.T) {
	env := newTestEnv(t, nil)
	w, _ := env.post(t, "/print-label", `{"printerShare":"POS1","dataBase64":"XlhBCg"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []byte("^XA\n"), env.submitter.written)
}

func TestPrintLabelMissingData(t *testing.T) {
	env := newTestEnv(t, nil)
	w, resp := env.post(t, "/print-label", `{"printerShare":"POS1"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp["error"], "Label data is required")
}

func TestPrintPDF(t *testing.T) {
	env := newTestEnv(t, nil)
	w, resp := env.post(t, "/print-pdf", `{"printer":"HP LaserJet","pdfBase64":"JVBERi0xLjQ="}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "HP LaserJet", env.submitter.printerTarget)
	assert.Equal(t, []byte("%PDF-1.4"), env.submitter.written)
}

func TestPrintPDFMissingBody(t *testing.T) {
	env := newTestEnv(t, nil)
	w, resp := env.post(t, "/print-pdf", `{"printer":"HP LaserJet"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp["error"], "pdfBase64 is required")
}

func TestPrintHTML(t *testing.T) {
	env := newTestEnv(t, nil)
	w, resp := env.post(t, "/print-html", `{"printer":"Receipt","html":"<b>Hi</b>","width":576,"heightPx":800}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "Receipt", env.submitter.printerTarget)
	assert.Equal(t, env.renderer.pdf, env.submitter.written)
	assert.Equal(t, "<b>Hi</b>", env.renderer.lastReq.HTML)
	assert.Equal(t, 576, env.renderer.lastReq.WidthPx)
	assert.Equal(t, 800, env.renderer.lastReq.HeightPx)
}

func TestPrintHTMLRenderFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.renderer.err = errors.New("browser crashed")

	w, resp := env.post(t, "/print-html", `{"printer":"Receipt","html":"<b>Hi</b>"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, resp["error"], "HTML rendering failed")
	assert.Empty(t, env.submitter.printerTarget, "nothing must be printed when rendering fails")
}

func TestPrintHTMLMissingHTML(t *testing.T) {
	env := newTestEnv(t, nil)
	w, resp := env.post(t, "/print-html", `{"printer":"Receipt"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp["error"], "html content is required")
}

func TestListPrinters(t *testing.T) {
	env := newTestEnv(t, nil)
	env.enumerator.printers = []models.PrinterInfo{{Name: "POS1"}, {Name: "HP LaserJet"}}

	w, resp := env.get(t, "/printers")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, []any{"POS1", "HP LaserJet"}, resp["printers"])
}

func TestListPrintersFailureStillSucceeds(t *testing.T) {
	env := newTestEnv(t, nil)
	env.enumerator.err = errors.New("enumeration blew up")

	w, resp := env.get(t, "/printers")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, []any{}, resp["printers"])
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	w, resp := env.get(t, "/")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "running", resp["status"])
	assert.NotEmpty(t, resp["time"])
}

func TestJobsHistoryRecordsDispatches(t *testing.T) {
	env := newTestEnv(t, nil)
	env.post(t, "/print-raw", `{"printerShare":"POS1","rawBase64":"SGVsbG8="}`)

	_, resp := env.get(t, "/jobs")
	jobs, ok := resp["jobs"].([]any)
	require.True(t, ok)
	require.Len(t, jobs, 1)

	job := jobs[0].(map[string]any)
	assert.Equal(t, "raw", job["operation"])
	assert.Equal(t, `\\127.0.0.1\POS1`, job["target"])
	assert.Equal(t, true, job["success"])
	assert.Equal(t, float64(5), job["bytes"])
}

func TestAPIKeyGate(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Server.APIKey = "sekrit"
	})

	w, resp := env.post(t, "/print-raw", `{"printerShare":"POS1","rawBase64":"SGVsbG8="}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, resp["success"])

	w, resp = env.post(t, "/print-raw", `{"printerShare":"POS1","rawBase64":"SGVsbG8="}`,
		map[string]string{"x-api-key": "sekrit"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
}

func TestRequestIDEchoed(t *testing.T) {
	env := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "abc-123", resp["requestId"])
}

func TestInvalidJSONBody(t *testing.T) {
	env := newTestEnv(t, nil)
	w, resp := env.post(t, "/print-raw", `{not json`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp["error"], "invalid JSON")
}

func TestUpdateEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	w, resp := env.post(t, "/update", `{"url":"http://localhost/agent.bin","version":"2.1.0"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "2.1.0", resp["version"])

	w, resp = env.post(t, "/update", `{"url":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, resp["success"])
}
