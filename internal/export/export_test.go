package export

import (
	"context"
	"errors"
	"strings"
	"testing"

	"folio/api/internal/content"
	"folio/api/internal/i18n"
)

func samplePortfolio() content.Portfolio {
	return content.Portfolio{
		Personal: content.PersonalInfo{Name: "Avery Quinn", Title: "Software Engineer", Bio: "Builds <fast> services."},
		Contact:  content.ContactInfo{Email: "avery@example.com", Location: "Montreal"},
		Categories: []content.CategoryView{{
			SkillCategory: content.SkillCategory{ID: "c1", Title: "Backend"},
			Skills:        []content.Skill{{Name: "Go"}, {Name: "SQL"}},
		}},
		Projects: []content.Project{{Title: "Portfolio", Technologies: []string{"Go", "Redis"}}},
		Experiences: []content.Experience{{
			Title: "Developer", Company: "Acme", Period: "2023 - 2024",
			Responsibilities: []string{"APIs"},
		}},
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Avery Quinn CV", "Avery-Quinn-CV"},
		{"Élise Côté CV", "lise-Ct-CV"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "cv"},
		{"Very Long Title That Exceeds Fifty Characters Limit", "Very-Long-Title-That-Exceeds-Fifty-Characters-Limi"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := sanitizeFilename(tt.input); result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},
		{"test+sign", "test%2Bsign"},
		{"special<>", "special%3C%3E"},
		{"normal-text.txt", "normal-text.txt"},
		{"é", "%C3%A9"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := percentEncodeForDataURL(tt.input); result != tt.expected {
				t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRenderCVHTML(t *testing.T) {
	html, err := RenderCVHTML(newTemplateData(Request{
		Portfolio: samplePortfolio(),
		Localizer: i18n.MustLoad().Localizer(i18n.French),
	}))
	if err != nil {
		t.Fatalf("RenderCVHTML() error = %v", err)
	}

	for _, want := range []string{"Avery Quinn", "Developer, Acme", "Go, Redis", `lang="fr"`, "Expérience", "Compétences"} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
	if strings.Contains(html, "<fast>") {
		t.Error("bio must be escaped")
	}
	if strings.Contains(html, "Formation") {
		t.Error("empty education section should be omitted")
	}
}

func TestExportDispatchesByFormat(t *testing.T) {
	var pdfCalls, docxCalls int
	svc := NewServiceWithConverters(
		func(_ context.Context, html, title string) (*Result, error) {
			pdfCalls++
			if !strings.Contains(html, "Avery Quinn") || title != "Avery Quinn CV" {
				t.Errorf("unexpected pdf input title=%q", title)
			}
			return &Result{Data: []byte("%PDF"), Filename: "cv.pdf", MimeType: "application/pdf"}, nil
		},
		func(context.Context, string, string) (*Result, error) {
			docxCalls++
			return nil, ErrDOCXDependencyMissing
		},
	)
	ctx := context.Background()
	req := Request{Portfolio: samplePortfolio(), Localizer: i18n.MustLoad().Localizer(i18n.English)}

	req.Format = FormatPDF
	if result, err := svc.Export(ctx, req); err != nil || string(result.Data) != "%PDF" {
		t.Fatalf("pdf export: %v", err)
	}

	req.Format = FormatHTML
	result, err := svc.Export(ctx, req)
	if err != nil {
		t.Fatalf("html export: %v", err)
	}
	if result.Filename != "Avery-Quinn-CV.html" || !strings.HasPrefix(result.MimeType, "text/html") {
		t.Errorf("unexpected html result %s %s", result.Filename, result.MimeType)
	}

	req.Format = FormatDOCX
	if _, err := svc.Export(ctx, req); !errors.Is(err, ErrDOCXDependencyMissing) {
		t.Fatalf("expected missing dependency, got %v", err)
	}

	req.Format = "odt"
	if _, err := svc.Export(ctx, req); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
	if pdfCalls != 1 || docxCalls != 1 {
		t.Errorf("unexpected converter calls pdf=%d docx=%d", pdfCalls, docxCalls)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != FormatPDF {
		t.Fatalf("expected default pdf, got %q %v", f, err)
	}
	if _, err := ParseFormat("rtf"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported, got %v", err)
	}
}
