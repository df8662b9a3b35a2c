package printing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"anjungan-print-agent/internal/config"
	"anjungan-print-agent/internal/models"
)

// Submitter hands a prepared file to an OS print primitive.
type Submitter interface {
	// CopyToShare writes the file verbatim to a printer share (raw mode,
	// no driver processing).
	CopyToShare(ctx context.Context, path, share string) error
	// PrintDocument submits the file to a named printer through the
	// document-print path.
	PrintDocument(ctx context.Context, path, printer string) error
}

// Enumerator lists the printers visible to the agent.
type Enumerator interface {
	ListPrinters(ctx context.Context) ([]models.PrinterInfo, error)
}

const defaultCUPSURL = "http://127.0.0.1:631/"

// Spooler implements Submitter and Enumerator on top of the host OS:
// cmd/PowerShell on Windows, lp/lpstat and CUPS IPP elsewhere.
type Spooler struct {
	cfg     config.PrintConfig
	log     *zap.Logger
	cupsURL string
}

func NewSpooler(cfg config.PrintConfig, log *zap.Logger) *Spooler {
	if cfg.PrintTimeout == 0 {
		cfg.PrintTimeout = 2 * time.Minute
	}
	return &Spooler{cfg: cfg, log: log, cupsURL: defaultCUPSURL}
}

var (
	_ Submitter  = (*Spooler)(nil)
	_ Enumerator = (*Spooler)(nil)
)
