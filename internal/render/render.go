package render

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"anjungan-print-agent/internal/config"
)

// Request describes one HTML-to-PDF rendering job. Dimensions are CSS
// pixels at 96 dpi; HeightPx zero means "measure the content".
type Request struct {
	HTML     string
	WidthPx  int
	HeightPx int
}

// Renderer rasterizes HTML into PDF bytes.
type Renderer interface {
	RenderHTML(ctx context.Context, req Request) ([]byte, error)
	Close() error
}

// Content height is taken from the designated print element when the page
// has one, otherwise from the document body.
const measureHeightJS = `(function() {
	var el = document.querySelector('#print-area');
	var h = el ? el.scrollHeight : document.body.scrollHeight;
	return Math.ceil(h);
})()`

// ChromeRenderer drives a headless Chrome over the DevTools protocol. The
// allocator is shared; each render gets its own browser context which is
// always cancelled, success or failure.
type ChromeRenderer struct {
	cfg         config.RenderConfig
	log         *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

func NewChromeRenderer(cfg config.RenderConfig, log *zap.Logger) *ChromeRenderer {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &ChromeRenderer{cfg: cfg, log: log, allocCtx: allocCtx, allocCancel: allocCancel}
}

// RenderHTML loads the HTML into a fresh browser context, measures the
// content height unless the caller fixed one, and prints a single PDF page
// sized to the content.
func (r *ChromeRenderer) RenderHTML(ctx context.Context, req Request) ([]byte, error) {
	if strings.TrimSpace(req.HTML) == "" {
		return nil, fmt.Errorf("html content is empty")
	}

	timeout := r.cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			r.log.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer browserCancel()

	widthPx := req.WidthPx
	if widthPx <= 0 {
		widthPx = r.cfg.DefaultWidth
	}

	start := time.Now()
	var pdfData []byte

	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, req.HTML).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			heightPx := req.HeightPx
			if heightPx <= 0 {
				var measured float64
				if err := chromedp.Evaluate(measureHeightJS, &measured).Do(ctx); err != nil {
					return fmt.Errorf("height measurement failed: %w", err)
				}
				heightPx = int(math.Ceil(measured))
				// Collapsed or unstyled content measures near zero;
				// clamp to something a cutter can handle.
				if heightPx < r.cfg.MinHeight {
					heightPx = r.cfg.MinHeight
				}
			}

			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(pxToInches(widthPx)).
				WithPaperHeight(pxToInches(heightPx)).
				WithMarginTop(0).
				WithMarginRight(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithPreferCSSPageSize(false).
				Do(ctx)
			if err != nil {
				return err
			}
			pdfData = data
			return nil
		}),
	)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("PDF rendering timed out after %v", timeout)
		}
		return nil, fmt.Errorf("chromedp rendering failed: %w", err)
	}
	if len(pdfData) == 0 {
		return nil, fmt.Errorf("rendering produced an empty PDF")
	}

	r.log.Info("HTML rendered to PDF",
		zap.Int("bytes", len(pdfData)),
		zap.Int("width_px", widthPx),
		zap.Duration("duration", time.Since(start)))
	return pdfData, nil
}

// Close releases the shared Chrome allocator.
func (r *ChromeRenderer) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}

// Chrome's printToPDF takes paper dimensions in inches; CSS renders at
// 96 px per inch.
func pxToInches(px int) float64 {
	return float64(px) / 96.0
}

var _ Renderer = (*ChromeRenderer)(nil)
