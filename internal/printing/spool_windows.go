//go:build windows

package printing

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"anjungan-print-agent/internal/models"
)

// CopyToShare performs a binary copy of the file to the printer share, the
// classic `copy /b file \\host\share` raw-print path for thermal and label
// printers.
func (s *Spooler) CopyToShare(ctx context.Context, path, share string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PrintTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "cmd", "/c", "copy", "/b", path, share)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("raw copy to %s timed out", share)
		}
		return fmt.Errorf("share copy failed: %v, output: %s", err, string(output))
	}
	return nil
}

// PrintDocument prints through SumatraPDF when a copy sits next to the agent
// binary (truly silent), otherwise through the shell PrintTo verb.
func (s *Spooler) PrintDocument(ctx context.Context, path, printer string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PrintTimeout)
	defer cancel()

	if sumatra := findSumatraPDF(); sumatra != "" {
		var args []string
		if printer != "" {
			args = append(args, "-print-to", printer)
		} else {
			args = append(args, "-print-to-default")
		}
		args = append(args, "-silent", path)

		cmd := exec.CommandContext(ctx, sumatra, args...)
		if output, err := cmd.CombinedOutput(); err == nil {
			return nil
		} else {
			s.log.Warn(fmt.Sprintf("SumatraPDF failed: %v, output: %s; using PrintTo fallback", err, string(output)))
		}
	}

	var script string
	if printer != "" {
		script = fmt.Sprintf(`Start-Process -FilePath "%s" -Verb PrintTo -ArgumentList '"%s"' -WindowStyle Hidden -Wait`, path, printer)
	} else {
		script = fmt.Sprintf(`Start-Process -FilePath "%s" -Verb Print -WindowStyle Hidden -Wait`, path)
	}

	cmd := exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command", script)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("printing to %s timed out", printer)
		}
		return fmt.Errorf("windows print failed: %v, output: %s", err, string(output))
	}
	return nil
}

func findSumatraPDF() string {
	if exePath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exePath), "SumatraPDF.exe")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	if found, err := exec.LookPath("SumatraPDF.exe"); err == nil {
		return found
	}
	return ""
}

// shellPrinters queries the spooler through PowerShell and parses its JSON
// output. ConvertTo-Json emits a bare object for a single printer and an
// array otherwise.
func (s *Spooler) shellPrinters(ctx context.Context) ([]models.PrinterInfo, error) {
	cmd := exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command",
		"Get-Printer | Select-Object Name,DriverName | ConvertTo-Json -Compress")
	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	raw := strings.TrimSpace(string(output))
	if raw == "" {
		return nil, nil
	}

	type psPrinter struct {
		Name       string `json:"Name"`
		DriverName string `json:"DriverName"`
	}

	var entries []psPrinter
	if strings.HasPrefix(raw, "{") {
		var single psPrinter
		if err := json.Unmarshal([]byte(raw), &single); err != nil {
			return nil, fmt.Errorf("failed to parse Get-Printer output: %w", err)
		}
		entries = []psPrinter{single}
	} else if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("failed to parse Get-Printer output: %w", err)
	}

	var printers []models.PrinterInfo
	for _, e := range entries {
		if e.Name != "" {
			printers = append(printers, models.PrinterInfo{Name: e.Name, DeviceID: e.DriverName})
		}
	}
	return printers, nil
}
