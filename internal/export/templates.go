package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"

	"folio/api/internal/content"
	"folio/api/internal/i18n"
)

//go:embed templates/*.html
var templateFS embed.FS

var cvTemplate = template.Must(
	template.New("cv.html").Funcs(template.FuncMap{
		"lower": strings.ToLower,
		"join":  strings.Join,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
	}).ParseFS(templateFS, "templates/cv.html"),
)

// TemplateData holds data for CV template rendering
type TemplateData struct {
	content.Portfolio
	Lang        i18n.Lang
	GeneratedAt time.Time
	t           i18n.Localizer
}

// T looks up an interface string in the request language.
func (d TemplateData) T(key string) string {
	return d.t.T(key)
}

func newTemplateData(req Request) TemplateData {
	return TemplateData{
		Portfolio:   req.Portfolio,
		Lang:        req.Localizer.Lang,
		GeneratedAt: time.Now(),
		t:           req.Localizer,
	}
}

// RenderCVHTML renders the CV template with provided data
func RenderCVHTML(data TemplateData) (string, error) {
	if data.Lang == "" {
		data.Lang = i18n.English
	}
	var buf bytes.Buffer
	if err := cvTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
