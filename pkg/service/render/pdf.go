package render

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// chromiumCandidates are looked up in PATH when no browser path is configured
var chromiumCandidates = []string{
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"chrome",
	"microsoft-edge",
	"msedge",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
}

// DefaultPDFTimeout bounds a single conversion
const DefaultPDFTimeout = 2 * time.Minute

// FindChromium returns the first headless capable browser found
func FindChromium() (string, bool) {
	for _, name := range chromiumCandidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, true
		}
	}
	return "", false
}

// PDFConverter prints HTML reports to PDF with a headless Chromium
type PDFConverter struct {
	binary  string
	timeout time.Duration
}

// PDFOption configures a PDFConverter
type PDFOption func(*PDFConverter)

// WithPDFTimeout sets the conversion timeout
func WithPDFTimeout(d time.Duration) PDFOption {
	return func(x *PDFConverter) {
		x.timeout = d
	}
}

// NewPDFConverter creates a converter. An empty binary means the browser is
// searched in PATH.
func NewPDFConverter(binary string, opts ...PDFOption) *PDFConverter {
	x := &PDFConverter{binary: binary, timeout: DefaultPDFTimeout}
	if x.binary == "" {
		x.binary, _ = FindChromium()
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Available returns true if a browser was found
func (x *PDFConverter) Available() bool {
	return x.binary != ""
}

// Convert prints htmlPath to pdfPath. Charts are given time to load from the CDN.
func (x *PDFConverter) Convert(ctx context.Context, htmlPath, pdfPath string) error {
	if !x.Available() {
		return goerr.New("no chromium browser available for PDF conversion")
	}

	absHTML, err := filepath.Abs(htmlPath)
	if err != nil {
		return goerr.Wrap(err, "failed to resolve HTML path", goerr.V("path", htmlPath))
	}
	absPDF, err := filepath.Abs(pdfPath)
	if err != nil {
		return goerr.Wrap(err, "failed to resolve PDF path", goerr.V("path", pdfPath))
	}
	fileURL := (&url.URL{Scheme: "file", Path: filepath.ToSlash(absHTML)}).String()

	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	args := []string{
		"--headless",
		"--disable-gpu",
		"--no-sandbox",
		"--no-pdf-header-footer",
		"--run-all-compositor-stages-before-draw",
		"--virtual-time-budget=10000",
		"--print-to-pdf=" + absPDF,
		fileURL,
	}
	ctxlog.From(ctx).Debug("Converting report to PDF", "browser", x.binary, "html", absHTML, "pdf", absPDF)

	out, err := exec.CommandContext(ctx, x.binary, args...).CombinedOutput()
	if err != nil {
		return goerr.Wrap(err, "PDF conversion failed",
			goerr.V("browser", x.binary),
			goerr.V("output", string(out)))
	}

	if st, err := os.Stat(absPDF); err != nil || st.Size() == 0 {
		return goerr.New("browser did not produce a PDF",
			goerr.V("browser", x.binary),
			goerr.V("output", string(out)))
	}
	return nil
}

// WriteInstructions writes a text file explaining how to produce the PDF by hand
func WriteInstructions(path, htmlPath string) error {
	text := fmt.Sprintf(`PDF Generation Instructions
===========================

No Chromium based browser was found to convert the HTML report to PDF.

To generate the PDF automatically:

1. Install Chromium or Google Chrome, or pass its location with --chromium-path
2. Re-run the report generation

Alternatively, open the HTML report in a web browser and use Print to PDF
(A4, background graphics enabled).

HTML Report Location: %s
`, htmlPath)

	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return goerr.Wrap(err, "failed to write PDF instructions", goerr.V("path", path))
	}
	return nil
}
