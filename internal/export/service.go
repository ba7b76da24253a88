package export

import (
	"context"
	"fmt"
)

// Converter turns rendered HTML into another document format.
type Converter func(ctx context.Context, html string, title string) (*Result, error)

// Service provides CV export functionality
type Service struct {
	pdf  Converter
	docx Converter
}

// NewService creates an export service backed by headless Chrome and pandoc.
func NewService() *Service {
	return &Service{pdf: exportPDF, docx: exportDOCX}
}

// NewServiceWithConverters replaces the external converters, mainly for tests.
func NewServiceWithConverters(pdf, docx Converter) *Service {
	return &Service{pdf: pdf, docx: docx}
}

// Export renders the CV in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	html, err := RenderCVHTML(newTemplateData(req))
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	title := req.Portfolio.Personal.Name + " CV"

	switch req.Format {
	case FormatHTML:
		return &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF, "":
		return s.pdf(ctx, html, title)
	case FormatDOCX:
		return s.docx(ctx, html, title)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
}
