package render

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/secmon-lab/caselens/pkg/domain/types"
)

// Output file name suffixes
const (
	HTMLSuffix         = "_executive_report.html"
	PDFSuffix          = "_executive_report.pdf"
	JSONSuffix         = "_analytics.json"
	InstructionsSuffix = "_pdf_instructions.txt"
	BatchSummaryPrefix = "tac_batch_summary_"
)

// Publisher writes the requested output files of processed inputs
type Publisher struct {
	html   *HTMLRenderer
	pdf    *PDFConverter
	outDir string
}

// NewPublisher creates a Publisher writing into outDir
func NewPublisher(html *HTMLRenderer, pdf *PDFConverter, outDir string) *Publisher {
	return &Publisher{html: html, pdf: pdf, outDir: outDir}
}

// OutDir returns the output directory
func (x *Publisher) OutDir() string {
	return x.outDir
}

// Publish writes every requested format for one file.
//
// PDF is printed from the HTML report. When no browser is available an
// instructions file is written instead and reported as a substitute. The HTML
// report is removed again when only PDF was requested and the PDF was
// produced.
func (x *Publisher) Publish(ctx context.Context, result *model.FileResult, formats []types.OutputFormat, generatedAt time.Time) ([]model.GeneratedFile, error) {
	logger := ctxlog.From(ctx)

	if err := os.MkdirAll(x.outDir, 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create output directory", goerr.V("dir", x.outDir))
	}

	want := make(map[types.OutputFormat]bool)
	for _, f := range formats {
		want[f] = true
	}

	base := OutputBase(result)
	var files []model.GeneratedFile

	if want[types.OutputFormatHTML] || want[types.OutputFormatPDF] {
		htmlPath := filepath.Join(x.outDir, base+HTMLSuffix)
		if err := writeFile(htmlPath, func(w io.Writer) error {
			return x.html.Render(w, result, generatedAt)
		}); err != nil {
			return files, err
		}
		logger.Info("Generated HTML report", "path", htmlPath)

		keepHTML := want[types.OutputFormatHTML]
		if want[types.OutputFormatPDF] {
			pdfFile, err := x.publishPDF(ctx, base, htmlPath)
			if err != nil {
				return files, err
			}
			files = append(files, *pdfFile)
			if pdfFile.Substitute {
				keepHTML = true
			}
		}

		if keepHTML {
			files = append([]model.GeneratedFile{{Format: types.OutputFormatHTML, Path: htmlPath}}, files...)
		} else if err := os.Remove(htmlPath); err != nil {
			logger.Warn("Failed to remove intermediate HTML report", "path", htmlPath, "error", err)
		}
	}

	if want[types.OutputFormatJSON] {
		jsonPath := filepath.Join(x.outDir, base+JSONSuffix)
		if err := writeFile(jsonPath, func(w io.Writer) error {
			return WriteJSON(w, result, generatedAt)
		}); err != nil {
			return files, err
		}
		logger.Info("Generated analytics JSON", "path", jsonPath)
		files = append(files, model.GeneratedFile{Format: types.OutputFormatJSON, Path: jsonPath})
	}

	return files, nil
}

func (x *Publisher) publishPDF(ctx context.Context, base, htmlPath string) (*model.GeneratedFile, error) {
	logger := ctxlog.From(ctx)
	pdfPath := filepath.Join(x.outDir, base+PDFSuffix)

	if x.pdf != nil && x.pdf.Available() {
		err := x.pdf.Convert(ctx, htmlPath, pdfPath)
		if err == nil {
			logger.Info("Generated PDF report", "path", pdfPath)
			return &model.GeneratedFile{Format: types.OutputFormatPDF, Path: pdfPath}, nil
		}
		logger.Warn("PDF conversion failed, writing instructions instead", "error", err)
	} else {
		logger.Warn("No browser found for PDF conversion, writing instructions instead")
	}

	instructions := filepath.Join(x.outDir, base+InstructionsSuffix)
	if err := WriteInstructions(instructions, htmlPath); err != nil {
		return nil, err
	}
	return &model.GeneratedFile{Format: types.OutputFormatPDF, Path: instructions, Substitute: true}, nil
}

// PublishBatch writes the batch summary page
func (x *Publisher) PublishBatch(ctx context.Context, batch *model.BatchResult, generatedAt time.Time) (*model.GeneratedFile, error) {
	if err := os.MkdirAll(x.outDir, 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create output directory", goerr.V("dir", x.outDir))
	}

	path := filepath.Join(x.outDir, BatchSummaryPrefix+generatedAt.Format("20060102_150405")+".html")
	if err := writeFile(path, func(w io.Writer) error {
		return x.html.RenderBatch(w, batch, generatedAt)
	}); err != nil {
		return nil, err
	}
	ctxlog.From(ctx).Info("Generated batch summary", "path", path)
	return &model.GeneratedFile{Format: types.OutputFormatHTML, Path: path}, nil
}

func writeFile(path string, render func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return goerr.Wrap(err, "failed to create output file", goerr.V("path", path))
	}
	if err := render(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return goerr.Wrap(err, "failed to close output file", goerr.V("path", path))
	}
	return nil
}
