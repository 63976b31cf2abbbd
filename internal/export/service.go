package export

import (
	"context"
	"fmt"
	"time"

	"buildwise/api/internal/home"
)

type renderFunc func(ctx context.Context, html, title string) (*Result, error)

// Service renders home reports.
type Service struct {
	pdf  renderFunc
	docx renderFunc
	now  func() time.Time
}

func NewService() *Service {
	return &Service{pdf: exportPDF, docx: exportDOCX, now: time.Now}
}

// Export renders h in the requested format.
func (s *Service) Export(ctx context.Context, h home.Home, format Format) (*Result, error) {
	html, err := RenderReportHTML(BuildReport(h, s.now().UTC()))
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	title := h.Name + " report"

	switch format {
	case FormatHTML, "":
		return &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF:
		return s.pdf(ctx, html, title)
	case FormatDOCX:
		return s.docx(ctx, html, title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
