package app

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"folio/api/internal/content"
	"folio/api/internal/contentsync"
	"folio/api/internal/export"
	"folio/api/internal/i18n"
	"folio/api/internal/journal"
	"folio/api/internal/session"
)

const panelLoadTimeout = 20 * time.Second

// PanelView is what the admin panel renders.
type PanelView struct {
	SessionID      string                 `json:"sessionId"`
	OpenedAt       time.Time              `json:"openedAt"`
	Content        contentsync.Snapshot   `json:"content"`
	CachedProjects []content.Project      `json:"cachedProjects"`
	LastLoad       contentsync.LoadReport `json:"lastLoad"`
}

// openPanel runs when a session becomes authenticated. The persisted project
// blob is read before the first load so the panel can show it immediately.
func (s *Service) openPanel(event session.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), panelLoadTimeout)
	defer cancel()
	ctx = journal.WithAuthor(ctx, event.DisplayName)

	cached, err := s.cache.Load(ctx)
	if err != nil {
		log.Printf("projectcache: read failed: %v", err)
		cached = []content.Project{}
	}
	p := &panel{
		syncer:   contentsync.New(s.store, s.observers...),
		projects: cached,
		openedAt: s.now(),
	}

	s.panelMu.Lock()
	if previous := s.panels[event.SessionID]; previous != nil {
		previous.syncer.Close()
	}
	s.panels[event.SessionID] = p
	s.panelMu.Unlock()

	if _, err := p.syncer.LoadAll(ctx); err != nil {
		log.Printf("admin panel %s: load: %v", event.SessionID, err)
	}
}

func (s *Service) closePanel(event session.Event) {
	s.panelMu.Lock()
	p := s.panels[event.SessionID]
	delete(s.panels, event.SessionID)
	s.panelMu.Unlock()
	if p != nil {
		p.syncer.Close()
	}
}

func (s *Service) lookupPanel(sessionID string) *panel {
	s.panelMu.Lock()
	defer s.panelMu.Unlock()
	return s.panels[sessionID]
}

// panelFor returns the session's panel, restoring it when the session is
// valid but nothing opened one yet (for example after a restart).
func (s *Service) panelFor(current Session) (*panel, error) {
	if p := s.lookupPanel(current.SessionID); p != nil {
		return p, nil
	}
	s.hub.Publish(current.event(session.Authenticated, session.ReasonRestore))
	if p := s.lookupPanel(current.SessionID); p != nil {
		return p, nil
	}
	return nil, contentsync.ErrClosed
}

func (s *Service) PanelOpen(sessionID string) bool {
	return s.lookupPanel(sessionID) != nil
}

func (p *panel) view(sessionID string) PanelView {
	return PanelView{
		SessionID:      sessionID,
		OpenedAt:       p.openedAt,
		Content:        p.syncer.Snapshot(),
		CachedProjects: p.projects,
		LastLoad:       p.syncer.LastLoad(),
	}
}

func (s *Service) Panel(_ context.Context, current Session) (PanelView, error) {
	p, err := s.panelFor(current)
	if err != nil {
		return PanelView{}, err
	}
	return p.view(current.SessionID), nil
}

// ReloadPanel runs a fresh LoadAll. Tables that fail to load are reported in
// the view's LastLoad rather than as an error.
func (s *Service) ReloadPanel(ctx context.Context, current Session) (PanelView, error) {
	p, err := s.panelFor(current)
	if err != nil {
		return PanelView{}, err
	}
	if _, err := p.syncer.LoadAll(s.authored(ctx, current)); err != nil {
		var loadErr *contentsync.LoadError
		if !errors.As(err, &loadErr) {
			return PanelView{}, err
		}
	}
	return p.view(current.SessionID), nil
}

// SaveRecord decodes raw as a kind record and saves it. A non-empty id wins
// over any id in the body.
func (s *Service) SaveRecord(ctx context.Context, current Session, kind content.Kind, raw json.RawMessage, id string) (content.Record, error) {
	record, err := content.Decode(kind, raw)
	if err != nil {
		return nil, invalidBody(err)
	}
	if id = strings.TrimSpace(id); id != "" {
		record = content.WithID(record, id)
	}
	p, err := s.panelFor(current)
	if err != nil {
		return nil, err
	}
	return p.syncer.Save(s.authored(ctx, current), record)
}

func (s *Service) DeleteRecord(ctx context.Context, current Session, kind content.Kind, id string) error {
	p, err := s.panelFor(current)
	if err != nil {
		return err
	}
	return p.syncer.Delete(s.authored(ctx, current), kind, id)
}

func (s *Service) ReplaceSetting(ctx context.Context, current Session, key string, value json.RawMessage) (content.Setting, error) {
	p, err := s.panelFor(current)
	if err != nil {
		return content.Setting{}, err
	}
	return p.syncer.UpdateSetting(s.authored(ctx, current), key, value)
}

func (s *Service) PatchSetting(ctx context.Context, current Session, key string, fields map[string]any) (content.Setting, error) {
	if len(fields) == 0 {
		return content.Setting{}, &content.ValidationError{Kind: content.KindSettings, Fields: map[string]string{"value": "must contain at least one field"}}
	}
	p, err := s.panelFor(current)
	if err != nil {
		return content.Setting{}, err
	}
	return p.syncer.PatchSetting(s.authored(ctx, current), key, fields)
}

// PublishedCV is the uploaded CV and the setting that now links to it.
type PublishedCV struct {
	URL     string          `json:"url"`
	Setting content.Setting `json:"setting"`
}

// PublishCV renders the panel's content as a PDF, uploads it and points
// social_links.cv_url at the upload.
func (s *Service) PublishCV(ctx context.Context, current Session, localizer i18n.Localizer) (PublishedCV, error) {
	if s.assets == nil {
		return PublishedCV{}, domainError(http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Object storage not configured", nil)
	}
	p, err := s.panelFor(current)
	if err != nil {
		return PublishedCV{}, err
	}

	var records []content.Record
	for _, kind := range content.Kinds {
		mirrored, err := p.syncer.Records(kind)
		if err != nil {
			return PublishedCV{}, err
		}
		records = append(records, mirrored...)
	}
	portfolio, err := content.BuildPortfolio(content.SplitRecords(records))
	if err != nil {
		return PublishedCV{}, err
	}

	result, err := s.export(ctx, portfolio, localizer, export.FormatPDF)
	if err != nil {
		return PublishedCV{}, err
	}
	url, err := s.assets.Put(ctx, "cv/"+string(localizer.Lang)+"/"+result.Filename, result.Data, result.MimeType)
	if err != nil {
		return PublishedCV{}, err
	}
	setting, err := p.syncer.PatchSetting(s.authored(ctx, current), content.SettingSocialLinks, map[string]any{"cv_url": url})
	if err != nil {
		return PublishedCV{}, err
	}
	return PublishedCV{URL: url, Setting: setting}, nil
}

func (s *Service) History(limit int) ([]journal.Entry, error) {
	if s.journal == nil {
		return []journal.Entry{}, nil
	}
	return s.journal.History(limit)
}

func (s *Service) authored(ctx context.Context, current Session) context.Context {
	return journal.WithAuthor(ctx, current.UserName)
}
