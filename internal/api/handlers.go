package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"anjungan-print-agent/internal/config"
	"anjungan-print-agent/internal/device"
	"anjungan-print-agent/internal/models"
	"anjungan-print-agent/internal/payload"
	"anjungan-print-agent/internal/printing"
	"anjungan-print-agent/internal/render"
	"anjungan-print-agent/internal/update"
)

// Server wires the HTTP surface to the print, render and update
// capabilities. Everything it depends on is injected so tests can run
// against fakes.
type Server struct {
	cfg      *config.Config
	log      *zap.Logger
	submit   printing.Submitter
	printers printing.Enumerator
	renderer render.Renderer
	history  *History
	hub      *Hub
	updater  update.Applier
}

func NewServer(cfg *config.Config, log *zap.Logger, submit printing.Submitter,
	printers printing.Enumerator, renderer render.Renderer, updater update.Applier) *Server {

	s := &Server{
		cfg:      cfg,
		log:      log,
		submit:   submit,
		printers: printers,
		renderer: renderer,
		history:  NewHistory(100),
		hub:      NewHub(log),
		updater:  updater,
	}
	s.history.SetOnUpdate(s.hub.Broadcast)
	return s
}

// Router assembles the gin engine with the shared middleware envelope.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(RequestID())
	r.Use(RequestLogger(s.log))
	r.Use(Recovery(s.log))
	r.Use(CORS(s.cfg.Server.CORSOrigin))
	r.Use(APIKey(s.cfg.Server.APIKey))

	r.GET("/", s.handleHealth)
	r.GET("/printers", s.handlePrinters)
	r.GET("/jobs", s.handleJobs)
	r.GET("/ws", s.hub.Handle(s.history))
	r.POST("/print-raw", s.handlePrintRaw)
	r.POST("/print-label", s.handlePrintLabel)
	r.POST("/print-pdf", s.handlePrintPDF)
	r.POST("/print-html", s.handlePrintHTML)
	r.POST("/update", s.handleUpdate)
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"status":    "running",
		"version":   models.AgentVersion,
		"time":      time.Now().Format(time.RFC3339),
		"device":    device.Info(),
		"requestId": getRequestID(c),
	})
}

func (s *Server) handlePrinters(c *gin.Context) {
	list, err := s.printers.ListPrinters(c.Request.Context())
	if err != nil {
		// Enumeration never fails the request: no printers is a state,
		// not a fault.
		s.log.Warn("printer enumeration failed", zap.Error(err))
		list = []models.PrinterInfo{}
	}

	names := make([]string, 0, len(list))
	for _, p := range list {
		names = append(names, p.Name)
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"printers":  names,
		"details":   list,
		"requestId": getRequestID(c),
	})
}

func (s *Server) handleJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"jobs":      s.history.Recent(),
		"requestId": getRequestID(c),
	})
}

func (s *Server) handlePrintRaw(c *gin.Context) {
	body, ok := s.bindBody(c)
	if !ok {
		return
	}

	share, err := payload.ResolveShare(body, s.cfg.Print.ShareHost)
	if err != nil {
		s.respondError(c, models.OpRaw, "", fmt.Errorf("printer share is required (printerShare, printer, share or shareName): %w", err))
		return
	}

	data, err := payload.Extract(body)
	if err != nil {
		if errors.Is(err, models.ErrMissingPayload) {
			err = fmt.Errorf("Raw payload is required (provide rawBase64, rawHex, rawBytes, data or payload): %w", err)
		}
		s.respondError(c, models.OpRaw, share, err)
		return
	}

	s.dispatch(c, models.OpRaw, share, data, printing.ExtRaw, func(ctx context.Context, path string) error {
		return s.submit.CopyToShare(ctx, path, share)
	})
}

func (s *Server) handlePrintLabel(c *gin.Context) {
	body, ok := s.bindBody(c)
	if !ok {
		return
	}

	share, err := payload.ResolveShare(body, s.cfg.Print.ShareHost)
	if err != nil {
		s.respondError(c, models.OpLabel, "", fmt.Errorf("printer share is required (printerShare, printer, share or shareName): %w", err))
		return
	}

	var data []byte
	switch {
	case asString(body["dataBase64"]) != "":
		decoded, ok := payload.DecodeBase64Tolerant(asString(body["dataBase64"]))
		if !ok {
			s.respondError(c, models.OpLabel, share,
				fmt.Errorf("%w: dataBase64 is not valid base64", models.ErrInvalidEncoding))
			return
		}
		data = decoded
	case asString(body["data"]) != "":
		text := asString(body["data"])
		// Label printers expect CRLF-terminated command lines; on by
		// default, opt out with newline:false.
		if normalizeNewlines(body) {
			text = toCRLF(text)
		}
		data = []byte(text)
	default:
		s.respondError(c, models.OpLabel, share,
			fmt.Errorf("Label data is required (provide data or dataBase64): %w", models.ErrMissingPayload))
		return
	}

	s.dispatch(c, models.OpLabel, share, data, printing.ExtLabel, func(ctx context.Context, path string) error {
		return s.submit.CopyToShare(ctx, path, share)
	})
}

func (s *Server) handlePrintPDF(c *gin.Context) {
	body, ok := s.bindBody(c)
	if !ok {
		return
	}

	printer, err := payload.ResolveTarget(body)
	if err != nil {
		s.respondError(c, models.OpPDF, "", fmt.Errorf("printer name is required: %w", err))
		return
	}

	encoded := asString(body["pdfBase64"])
	if encoded == "" {
		s.respondError(c, models.OpPDF, printer,
			fmt.Errorf("pdfBase64 is required: %w", models.ErrMissingPayload))
		return
	}
	data, decOK := payload.DecodeBase64Tolerant(encoded)
	if !decOK {
		s.respondError(c, models.OpPDF, printer,
			fmt.Errorf("%w: pdfBase64 is not valid base64", models.ErrInvalidEncoding))
		return
	}

	s.dispatch(c, models.OpPDF, printer, data, printing.ExtPDF, func(ctx context.Context, path string) error {
		return s.submit.PrintDocument(ctx, path, printer)
	})
}

func (s *Server) handlePrintHTML(c *gin.Context) {
	body, ok := s.bindBody(c)
	if !ok {
		return
	}

	printer, err := payload.ResolveTarget(body)
	if err != nil {
		s.respondError(c, models.OpHTML, "", fmt.Errorf("printer name is required: %w", err))
		return
	}

	html := asString(body["html"])
	if strings.TrimSpace(html) == "" {
		s.respondError(c, models.OpHTML, printer,
			fmt.Errorf("html content is required: %w", models.ErrMissingPayload))
		return
	}

	pdf, err := s.renderer.RenderHTML(c.Request.Context(), render.Request{
		HTML:     html,
		WidthPx:  asInt(body["width"]),
		HeightPx: asInt(body["heightPx"]),
	})
	if err != nil {
		s.respondError(c, models.OpHTML, printer, fmt.Errorf("HTML rendering failed: %w", err))
		return
	}

	s.dispatch(c, models.OpHTML, printer, pdf, printing.ExtPDF, func(ctx context.Context, path string) error {
		return s.submit.PrintDocument(ctx, path, printer)
	})
}

func (s *Server) handleUpdate(c *gin.Context) {
	var req struct {
		URL     string `json:"url"`
		Version string `json:"version"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" || req.Version == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":   false,
			"error":     "url and version are required",
			"requestId": getRequestID(c),
		})
		return
	}

	result, err := s.updater.Apply(c.Request.Context(), req.URL, req.Version)
	if err != nil {
		s.log.Error("self-update failed", zap.Error(err), zap.String("request_id", getRequestID(c)))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":   false,
			"error":     fmt.Sprintf("update failed: %v", err),
			"requestId": getRequestID(c),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   result.Message,
		"version":   result.Version,
		"requestId": getRequestID(c),
	})
}

// dispatch is the shared tail of all four print operations: temp file in,
// OS submission, temp file out, event record, structured response.
func (s *Server) dispatch(c *gin.Context, op, target string, data []byte, ext string,
	submit func(ctx context.Context, path string) error) {

	start := time.Now()
	err := printing.WithTempFile(s.cfg.Print.TempDir, ext, data, func(path string) error {
		return submit(c.Request.Context(), path)
	})

	s.record(c, op, target, len(data), start, err)
	if err != nil {
		s.respondError(c, op, target, fmt.Errorf("print submission failed: %w", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   fmt.Sprintf("%s job sent to %s (%d bytes)", op, target, len(data)),
		"requestId": getRequestID(c),
	})
}

func (s *Server) record(c *gin.Context, op, target string, size int, start time.Time, err error) {
	event := models.DispatchEvent{
		RequestID: getRequestID(c),
		Operation: op,
		Target:    target,
		Bytes:     size,
		Success:   err == nil,
		Elapsed:   time.Since(start).String(),
		CreatedAt: time.Now().Format(time.RFC3339),
	}
	if err != nil {
		event.Error = err.Error()
	}
	s.history.Add(event)
}

// respondError maps the error taxonomy onto HTTP statuses: bad input is the
// client's fault, failed submissions and renders are ours.
func (s *Server) respondError(c *gin.Context, op, target string, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, models.ErrInvalidEncoding) ||
		errors.Is(err, models.ErrMissingPayload) ||
		errors.Is(err, models.ErrMissingTarget) {
		status = http.StatusBadRequest
	}

	if status >= 500 {
		s.log.Error("print operation failed",
			zap.String("operation", op),
			zap.String("target", target),
			zap.String("request_id", getRequestID(c)),
			zap.Error(err))
	}

	c.JSON(status, gin.H{
		"success":   false,
		"error":     err.Error(),
		"requestId": getRequestID(c),
	})
}

func (s *Server) bindBody(c *gin.Context) (payload.Body, bool) {
	var body payload.Body
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":   false,
			"error":     "invalid JSON request body",
			"requestId": getRequestID(c),
		})
		return nil, false
	}
	return body, true
}

func asString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}

// normalizeNewlines reads the label handler's newline option, defaulting to
// true when absent.
func normalizeNewlines(body payload.Body) bool {
	if v, ok := body["newline"].(bool); ok {
		return v
	}
	return true
}

// toCRLF rewrites any line-ending convention to CRLF without doubling
// already-correct sequences.
func toCRLF(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}
