package app

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"folio/api/internal/content"
	"folio/api/internal/i18n"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(
	template.New("pages").Funcs(template.FuncMap{
		"colorClass": content.ColorClass,
	}).ParseFS(templateFS, "templates/*.html"),
)

type adminView struct {
	UserName string
	Panel    PanelView
}

type pageData struct {
	content.Portfolio
	Lang  i18n.Lang
	Other i18n.Lang
	Year  int
	// Admin is nil for anonymous visitors; the trigger and panel are only
	// rendered when it is set.
	Admin *adminView
	t     i18n.Localizer
}

func (d pageData) T(key string) string {
	return d.t.T(key)
}

type errorPageData struct {
	Lang      i18n.Lang
	ReloadURL string
	t         i18n.Localizer
}

func (d errorPageData) T(key string) string {
	return d.t.T(key)
}

func renderPage(localizer i18n.Localizer, portfolio content.Portfolio, admin *adminView) ([]byte, error) {
	var buf bytes.Buffer
	err := pageTemplates.ExecuteTemplate(&buf, "page.html", pageData{
		Portfolio: portfolio,
		Lang:      localizer.Lang,
		Other:     localizer.Other(),
		Year:      time.Now().Year(),
		Admin:     admin,
		t:         localizer,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeSessionErrorPage replaces the whole page when the session could not be
// checked. The reload link points back at the request.
func writeSessionErrorPage(w http.ResponseWriter, r *http.Request, localizer i18n.Localizer) {
	var buf bytes.Buffer
	reload := r.URL.RequestURI()
	if reload == "" {
		reload = "/"
	}
	err := pageTemplates.ExecuteTemplate(&buf, "error.html", errorPageData{
		Lang:      localizer.Lang,
		ReloadURL: reload,
		t:         localizer,
	})
	if err != nil {
		http.Error(w, localizer.T("error.session_body"), http.StatusServiceUnavailable)
		return
	}
	writeHTML(w, http.StatusServiceUnavailable, buf.Bytes())
}
