package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"folio/api/internal/assets"
	"folio/api/internal/auth"
	"folio/api/internal/authpw"
	"folio/api/internal/content"
	"folio/api/internal/contentsync"
	"folio/api/internal/email"
	"folio/api/internal/export"
	"folio/api/internal/i18n"
	"folio/api/internal/search"
	"folio/api/internal/store"
)

// SessionCookie carries the access token for page loads.
const SessionCookie = "folio_session"

type HTTPServer struct {
	service      *Service
	corsOrigin   string
	secureCookie bool
}

func NewHTTPServer(service *Service, corsOrigin string, secureCookie bool) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin, secureCookie: secureCookie}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}
	readOnly := r.Method == http.MethodGet || r.Method == http.MethodHead

	if readOnly && r.URL.Path == "/" {
		s.handlePage(w, r)
		return
	}

	if readOnly && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if readOnly && r.URL.Path == "/api/ready" {
		// Check database connectivity
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if readOnly && r.URL.Path == "/api/content" {
		portfolio, err := s.service.PublicContent(r.Context())
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, portfolio)
		return
	}

	if readOnly && r.URL.Path == "/api/search" {
		query := r.URL.Query()
		limit := clampInt(parseIntDefault(query.Get("limit"), 20), 1, 50)
		offset := clampInt(parseIntDefault(query.Get("offset"), 0), 0, 1000)
		writeJSON(w, http.StatusOK, s.service.Search(search.Query{
			Text:       strings.TrimSpace(query.Get("q")),
			FilterType: search.ResultType(strings.TrimSpace(query.Get("type"))),
			Limit:      limit,
			Offset:     offset,
		}))
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/contact" {
		var body email.ContactMessage
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		delivery, err := s.service.Contact(body)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, delivery)
		return
	}

	if readOnly && r.URL.Path == "/api/cv.pdf" {
		format, err := export.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			s.fail(w, err)
			return
		}
		result, err := s.service.ExportCV(r.Context(), i18n.FromContext(r.Context()), format)
		if err != nil {
			s.fail(w, err)
			return
		}
		w.Header().Set("Content-Type", result.MimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Data)
		return
	}

	parts := splitPath(r.URL.Path)

	if readOnly && len(parts) == 3 && parts[0] == "api" && parts[1] == "i18n" {
		lang, ok := i18n.ParseLang(parts[2])
		if !ok {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Unknown language", nil)
			return
		}
		table, _ := s.service.Translator().Table(lang)
		writeJSON(w, http.StatusOK, map[string]any{"lang": lang, "messages": table})
		return
	}

	if readOnly && r.URL.Path == "/api/session" {
		token := requestToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		current, err := s.service.RestoreSession(r.Context(), token)
		if err != nil {
			if isAuthError(err) {
				writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
				return
			}
			log.Printf("session check failed: %v", err)
			writeError(w, http.StatusServiceUnavailable, "SESSION_CHECK_FAILED", "Session check failed", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"userName":      current.UserName,
			"userId":        current.UserID,
			"sessionId":     current.SessionID,
			"panelOpen":     s.service.PanelOpen(current.SessionID),
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/login" {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		issued, err := s.service.Login(r.Context(), body.Email, body.Password)
		if err != nil {
			s.fail(w, err)
			return
		}
		s.setSessionCookie(w, issued)
		writeJSON(w, http.StatusOK, sessionPayload(issued))
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/refresh" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		issued, err := s.service.Refresh(r.Context(), body.RefreshToken)
		if err != nil {
			if isAuthError(err) {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
				return
			}
			s.fail(w, err)
			return
		}
		s.setSessionCookie(w, issued)
		writeJSON(w, http.StatusOK, sessionPayload(issued))
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/logout" {
		current := Session{}
		if token := requestToken(r); token != "" {
			if parsed, err := s.service.CurrentSession(r.Context(), token); err == nil {
				current = parsed
			}
		}
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = decodeBody(r, &body)
		if err := s.service.Logout(r.Context(), current, body.RefreshToken); err != nil {
			log.Printf("logout: %v", err)
		}
		s.clearSessionCookie(w)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if len(parts) >= 2 && parts[0] == "api" && parts[1] == "admin" {
		current, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		s.handleAdmin(w, r, current, parts[2:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
}

func (s *HTTPServer) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	localizer := i18n.FromContext(ctx)

	var admin *adminView
	if token := requestToken(r); token != "" {
		current, err := s.service.RestoreSession(ctx, token)
		switch {
		case err == nil:
			panel, err := s.service.Panel(ctx, current)
			if err != nil {
				log.Printf("admin panel unavailable: %v", err)
				break
			}
			admin = &adminView{UserName: current.UserName, Panel: panel}
		case isAuthError(err):
		default:
			log.Printf("session check failed: %v", err)
			writeSessionErrorPage(w, r, localizer)
			return
		}
	}

	portfolio, err := s.service.PublicContent(ctx)
	if err != nil {
		s.fail(w, err)
		return
	}
	body, err := renderPage(localizer, portfolio, admin)
	if err != nil {
		s.fail(w, fmt.Errorf("render page: %w", err))
		return
	}
	writeHTML(w, http.StatusOK, body)
}

func (s *HTTPServer) handleAdmin(w http.ResponseWriter, r *http.Request, current Session, parts []string) {
	ctx := r.Context()

	switch {
	case len(parts) == 1 && parts[0] == "panel" && r.Method == http.MethodGet:
		view, err := s.service.Panel(ctx, current)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return

	case len(parts) == 2 && parts[0] == "panel" && parts[1] == "open" && r.Method == http.MethodPost:
		view, err := s.service.ReloadPanel(ctx, current)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return

	case len(parts) == 1 && parts[0] == "history" && r.Method == http.MethodGet:
		limit := clampInt(parseIntDefault(r.URL.Query().Get("limit"), 50), 1, 200)
		entries, err := s.service.History(limit)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
		return

	case len(parts) == 2 && parts[0] == "cv" && parts[1] == "publish" && r.Method == http.MethodPost:
		published, err := s.service.PublishCV(ctx, current, i18n.FromContext(ctx))
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, published)
		return
	}

	if len(parts) == 0 || len(parts) > 2 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}
	kind, err := content.ParseKind(parts[0])
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
		return
	}

	if kind == content.KindSettings && len(parts) == 2 {
		s.handleSetting(w, r, current, parts[1])
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodPost:
		var raw json.RawMessage
		if err := decodeBody(r, &raw); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		saved, err := s.service.SaveRecord(ctx, current, kind, raw, "")
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)

	case len(parts) == 2 && r.Method == http.MethodPut:
		var raw json.RawMessage
		if err := decodeBody(r, &raw); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		saved, err := s.service.SaveRecord(ctx, current, kind, raw, parts[1])
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)

	case len(parts) == 2 && r.Method == http.MethodDelete:
		if err := s.service.DeleteRecord(ctx, current, kind, parts[1]); err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": parts[1]})

	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleSetting(w http.ResponseWriter, r *http.Request, current Session, key string) {
	switch r.Method {
	case http.MethodPut:
		var body struct {
			Value json.RawMessage `json:"value"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		setting, err := s.service.ReplaceSetting(r.Context(), current, key, body.Value)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, setting)

	case http.MethodPatch:
		var fields map[string]any
		if err := decodeBody(r, &fields); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		setting, err := s.service.PatchSetting(r.Context(), current, key, fields)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, setting)

	case http.MethodDelete:
		s.fail(w, &content.ValidationError{Kind: content.KindSettings, Fields: map[string]string{"key": "settings cannot be deleted"}})

	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

// requireSession rejects the request before any content is read.
func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := requestToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	current, err := s.service.CurrentSession(r.Context(), token)
	if err != nil {
		if isAuthError(err) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return Session{}, false
		}
		log.Printf("session check failed: %v", err)
		writeError(w, http.StatusServiceUnavailable, "SESSION_CHECK_FAILED", "Session check failed", nil)
		return Session{}, false
	}
	return current, true
}

func (s *HTTPServer) setSessionCookie(w http.ResponseWriter, issued Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    issued.Token,
		Path:     "/",
		Expires:  issued.ExpiresAt,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *HTTPServer) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func sessionPayload(issued Session) map[string]any {
	return map[string]any{
		"token":        issued.Token,
		"refreshToken": issued.RefreshToken,
		"userName":     issued.UserName,
		"userId":       issued.UserID,
		"sessionId":    issued.SessionID,
		"expiresAt":    issued.ExpiresAt,
	}
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		localizer := s.service.Translator().Localizer(i18n.ResolveLang(r))
		ctx = i18n.WithLocalizer(ctx, localizer)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)
		writer.Header().Set("Content-Language", string(localizer.Lang))

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func (s *HTTPServer) fail(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	writeError(w, status, code, message, details)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

// requestToken prefers the Authorization header over the session cookie.
func requestToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

func isAuthError(err error) bool {
	return errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken)
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func parseIntDefault(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func clampInt(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var validationErr *content.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", validationErr.Error(), validationErr.Fields
	}
	if errors.Is(err, email.ErrInvalidContact) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil
	}
	var cascadeErr *contentsync.CascadeError
	if errors.As(err, &cascadeErr) {
		return http.StatusBadGateway, "CASCADE_PARTIAL", "Skills were removed but the category was not", map[string]any{
			"categoryId":    cascadeErr.CategoryID,
			"skillsRemoved": cascadeErr.SkillsRemoved,
		}
	}
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, authpw.ErrInvalidCredentials) {
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil
	}
	if isAuthError(err) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	if errors.Is(err, contentsync.ErrClosed) {
		return http.StatusConflict, "PANEL_CLOSED", "Admin panel is closed", nil
	}
	var remoteErr *contentsync.RemoteError
	if errors.As(err, &remoteErr) {
		return http.StatusBadGateway, "STORE_ERROR", "Content store rejected the change", map[string]any{"op": remoteErr.Op, "kind": remoteErr.Kind}
	}
	if errors.Is(err, export.ErrUnsupportedFormat) {
		return http.StatusBadRequest, "UNSUPPORTED_FORMAT", "Unsupported export format", nil
	}
	if errors.Is(err, export.ErrPDFDependencyMissing) || errors.Is(err, export.ErrDOCXDependencyMissing) {
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export is not available on this server", nil
	}
	if errors.Is(err, assets.ErrNotConfigured) {
		return http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Object storage not configured", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
