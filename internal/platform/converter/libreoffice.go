// Package converter turns rendered DOCX reports into PDF using an external
// office suite.
package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// ErrUnavailable wraps every conversion failure. Callers fall back to the
// unconverted document.
var ErrUnavailable = errors.New("document conversion unavailable")

// Converter converts a DOCX document to PDF.
type Converter interface {
	Convert(ctx context.Context, docx []byte) ([]byte, error)
}

// LibreOffice runs soffice in headless mode.
type LibreOffice struct {
	Binary  string
	Timeout time.Duration
	logger  zerolog.Logger
}

// NewLibreOffice creates a converter that runs binary with the given timeout.
func NewLibreOffice(binary string, timeout time.Duration, logger zerolog.Logger) *LibreOffice {
	return &LibreOffice{
		Binary:  binary,
		Timeout: timeout,
		logger:  logger.With().Str("component", "converter").Logger(),
	}
}

// Convert writes docx to a scratch directory and asks the office suite to
// convert it. Conversion succeeded only if the PDF exists afterwards.
func (l *LibreOffice) Convert(ctx context.Context, docx []byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "examreport-convert-*")
	if err != nil {
		return nil, fmt.Errorf("%w: scratch dir: %v", ErrUnavailable, err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "report.docx")
	dst := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(src, docx, 0o600); err != nil {
		return nil, fmt.Errorf("%w: write source: %v", ErrUnavailable, err)
	}

	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	// A private profile lets several conversions run at once.
	profile := "-env:UserInstallation=file://" + filepath.ToSlash(filepath.Join(dir, "profile"))
	cmd := exec.CommandContext(ctx, l.Binary, profile,
		"--headless", "--convert-to", "pdf", "--outdir", dir, src)
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	out, runErr := cmd.CombinedOutput()

	pdf, err := os.ReadFile(dst)
	if err != nil {
		l.logger.Warn().
			Err(runErr).
			Str("output", truncate(string(out), 512)).
			Dur("elapsed", time.Since(start)).
			Msg("conversion produced no output")
		if runErr == nil {
			runErr = err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, runErr)
	}

	l.logger.Debug().Dur("elapsed", time.Since(start)).Int("bytes", len(pdf)).Msg("converted report")
	return pdf, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
