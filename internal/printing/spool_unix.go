//go:build darwin || linux

package printing

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"anjungan-print-agent/internal/models"
)

// CopyToShare submits the file in raw mode so printer control language
// passes through the spooler untouched. UNC share paths from the resolver
// are reduced to the CUPS queue name.
func (s *Spooler) CopyToShare(ctx context.Context, path, share string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PrintTimeout)
	defer cancel()

	queue := shareQueueName(share)
	cmd := exec.CommandContext(ctx, "lp", "-d", queue, "-o", "raw", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("raw print to %s timed out", queue)
		}
		return fmt.Errorf("lp raw submission failed: %v, output: %s", err, string(output))
	}
	return nil
}

// PrintDocument submits the file to a named printer through the normal
// driver path.
func (s *Spooler) PrintDocument(ctx context.Context, path, printer string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PrintTimeout)
	defer cancel()

	args := []string{}
	if printer != "" {
		args = append(args, "-d", printer)
	}
	args = append(args, path)

	cmd := exec.CommandContext(ctx, "lp", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("printing to %s timed out", printer)
		}
		return fmt.Errorf("lp failed: %v, output: %s", err, string(output))
	}
	return nil
}

// shellPrinters is the fallback enumeration source when CUPS IPP is not
// answering: parse `lpstat -a` output.
func (s *Spooler) shellPrinters(ctx context.Context) ([]models.PrinterInfo, error) {
	cmd := exec.CommandContext(ctx, "lpstat", "-a")
	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var printers []models.PrinterInfo
	for _, line := range strings.Split(string(output), "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 {
			printers = append(printers, models.PrinterInfo{Name: fields[0]})
		}
	}
	return printers, nil
}

// shareQueueName reduces `\\host\name` to `name`; bare names pass through.
func shareQueueName(share string) string {
	trimmed := strings.TrimPrefix(share, `\\`)
	if i := strings.LastIndex(trimmed, `\`); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
