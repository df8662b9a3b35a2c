package printing

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/OpenPrinting/goipp"
	"go.uber.org/zap"

	"anjungan-print-agent/internal/models"
)

// ListPrinters asks the local CUPS instance over IPP first and falls back to
// the OS shell query when IPP errors or reports nothing. Both sources empty
// is a valid state (kiosk with no printer configured yet), never an error.
func (s *Spooler) ListPrinters(ctx context.Context) ([]models.PrinterInfo, error) {
	printers, err := s.ippPrinters(ctx)
	if err != nil || len(printers) == 0 {
		if err != nil {
			s.log.Warn("IPP printer query failed, falling back to shell", zap.Error(err))
		}
		printers, err = s.shellPrinters(ctx)
		if err != nil {
			s.log.Warn("shell printer query failed", zap.Error(err))
			return []models.PrinterInfo{}, nil
		}
	}
	if printers == nil {
		printers = []models.PrinterInfo{}
	}
	return printers, nil
}

// ippPrinters issues CUPS-Get-Printers against the local CUPS scheduler.
func (s *Spooler) ippPrinters(ctx context.Context) ([]models.PrinterInfo, error) {
	req := goipp.NewRequest(goipp.DefaultVersion, goipp.OpCupsGetPrinters, 1)
	req.Operation.Add(goipp.MakeAttribute("attributes-charset",
		goipp.TagCharset, goipp.String("utf-8")))
	req.Operation.Add(goipp.MakeAttribute("attributes-natural-language",
		goipp.TagLanguage, goipp.String("en-us")))

	requested := goipp.MakeAttribute("requested-attributes",
		goipp.TagKeyword, goipp.String("printer-name"))
	requested.Values.Add(goipp.TagKeyword, goipp.String("device-uri"))
	requested.Values.Add(goipp.TagKeyword, goipp.String("media-supported"))
	req.Operation.Add(requested)

	payload, err := req.EncodeBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode IPP request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cupsURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", goipp.ContentType)

	httpResp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("CUPS request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("CUPS returned status %s", httpResp.Status)
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	var msg goipp.Message
	if err := msg.DecodeBytes(body); err != nil {
		return nil, fmt.Errorf("failed to decode IPP response: %w", err)
	}

	var printers []models.PrinterInfo
	for _, group := range msg.Groups {
		if group.Tag != goipp.TagPrinterGroup {
			continue
		}
		var p models.PrinterInfo
		for _, attr := range group.Attrs {
			if len(attr.Values) == 0 {
				continue
			}
			switch attr.Name {
			case "printer-name":
				p.Name = attr.Values[0].V.String()
			case "device-uri":
				p.DeviceID = attr.Values[0].V.String()
			case "media-supported":
				for _, v := range attr.Values {
					p.PaperSizes = append(p.PaperSizes, v.V.String())
				}
			}
		}
		if p.Name != "" {
			printers = append(printers, p)
		}
	}
	return printers, nil
}
