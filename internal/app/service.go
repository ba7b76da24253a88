package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"folio/api/internal/auth"
	"folio/api/internal/authpw"
	"folio/api/internal/config"
	"folio/api/internal/content"
	"folio/api/internal/contentsync"
	"folio/api/internal/email"
	"folio/api/internal/export"
	"folio/api/internal/i18n"
	"folio/api/internal/journal"
	"folio/api/internal/projectcache"
	"folio/api/internal/search"
	"folio/api/internal/session"
	"folio/api/internal/store"
	"folio/api/internal/util"
)

// Session is an authenticated owner session.
type Session struct {
	Token        string
	RefreshToken string
	SessionID    string
	UserID       string
	UserName     string
	JTI          string
	ExpiresAt    time.Time
}

func (s Session) event(state session.State, reason session.Reason) session.Event {
	return session.Event{
		SessionID:   s.SessionID,
		UserID:      s.UserID,
		DisplayName: s.UserName,
		State:       state,
		Reason:      reason,
	}
}

type contentStore interface {
	contentsync.Store
	CountRows(ctx context.Context, kind content.Kind) (int, error)
	Ping(ctx context.Context) error
}

type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, session store.RefreshSession, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.RefreshSession, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
	RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)
	RevokeSession(ctx context.Context, sessionID string, until time.Time) error
	IsSessionRevoked(ctx context.Context, sessionID string) (bool, error)
}

type searcher interface {
	Search(q search.Query) search.Response
}

type mailer interface {
	SendContact(msg email.ContactMessage) (email.Delivery, error)
}

type cvExporter interface {
	Export(ctx context.Context, req export.Request) (*export.Result, error)
}

type assetStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type historyLog interface {
	contentsync.Observer
	History(limit int) ([]journal.Entry, error)
}

// Deps are the collaborators a Service is built from. Store, Sessions and
// Owner are required; a nil optional dependency disables its feature.
type Deps struct {
	Store      contentStore
	Sessions   sessionStore
	Owner      *authpw.Service
	Translator *i18n.Translator
	Cache      *projectcache.Cache
	Search     *search.Service
	Mailer     mailer
	Exporter   cvExporter
	Assets     assetStore
	Journal    historyLog
}

// panel is the admin panel of one authenticated session.
type panel struct {
	syncer   *contentsync.Synchronizer
	projects []content.Project
	openedAt time.Time
}

type Service struct {
	cfg        config.Config
	store      contentStore
	sessions   sessionStore
	owner      *authpw.Service
	translator *i18n.Translator
	cache      *projectcache.Cache
	search     searcher
	mailer     mailer
	exporter   cvExporter
	assets     assetStore
	journal    historyLog
	observers  []contentsync.Observer

	hub  *session.Hub
	gate *session.Gate
	now  func() time.Time

	panelMu sync.Mutex
	panels  map[string]*panel
}

func New(cfg config.Config, deps Deps) *Service {
	s := &Service{
		cfg:        cfg,
		store:      deps.Store,
		sessions:   deps.Sessions,
		owner:      deps.Owner,
		translator: deps.Translator,
		cache:      deps.Cache,
		mailer:     deps.Mailer,
		exporter:   deps.Exporter,
		assets:     deps.Assets,
		journal:    deps.Journal,
		hub:        session.NewHub(),
		now:        time.Now,
		panels:     make(map[string]*panel),
	}
	if s.translator == nil {
		s.translator = i18n.MustLoad()
	}
	if s.cache == nil {
		s.cache = projectcache.New(nil)
	}
	s.observers = append(s.observers, s.cache)
	if deps.Search != nil {
		s.search = deps.Search
		s.observers = append(s.observers, deps.Search)
	}
	if deps.Journal != nil {
		s.observers = append(s.observers, deps.Journal)
	}
	s.gate = session.NewGate(s.openPanel, s.closePanel)
	s.hub.Subscribe(s.gate.Handle)
	return s
}

// Bootstrap inserts the starter content when seeding is enabled and the
// projects table is empty.
func (s *Service) Bootstrap(ctx context.Context) error {
	if !s.cfg.Seed {
		return nil
	}
	count, err := s.store.CountRows(ctx, content.KindProjects)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	seed := content.DefaultSeed()
	for _, setting := range seed.Settings {
		if _, err := s.store.UpsertSetting(ctx, setting.Key, setting.Value); err != nil {
			return fmt.Errorf("seed setting %s: %w", setting.Key, err)
		}
	}
	for _, group := range seed.Categories {
		stored, err := s.store.Insert(ctx, group.Category)
		if err != nil {
			return fmt.Errorf("seed category %s: %w", group.Category.Title, err)
		}
		for _, skill := range group.Skills {
			skill.CategoryID = stored.RecordID()
			if _, err := s.store.Insert(ctx, skill); err != nil {
				return fmt.Errorf("seed skill %s: %w", skill.Name, err)
			}
		}
	}
	records := make([]content.Record, 0, len(seed.Projects)+len(seed.Education)+len(seed.Experiences))
	for _, project := range seed.Projects {
		records = append(records, project)
	}
	for _, education := range seed.Education {
		records = append(records, education)
	}
	for _, experience := range seed.Experiences {
		records = append(records, experience)
	}
	for _, record := range records {
		if _, err := s.store.Insert(ctx, record); err != nil {
			return fmt.Errorf("seed %s: %w", record.RecordKind(), err)
		}
	}
	log.Printf("seeded starter content")
	return nil
}

// Ping checks the health of service dependencies (database, etc.)
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// OnSessionChange subscribes fn to session events.
func (s *Service) OnSessionChange(fn func(session.Event)) func() {
	return s.hub.Subscribe(fn)
}

func (s *Service) Translator() *i18n.Translator {
	return s.translator
}

func (s *Service) Login(ctx context.Context, emailAddress, password string) (Session, error) {
	owner, err := s.owner.SignIn(ctx, authpw.SignInRequest{Email: emailAddress, Password: password})
	if err != nil {
		return Session{}, err
	}
	issued, err := s.issueSession(ctx, store.RefreshSession{
		UserID:      owner.ID,
		SessionID:   util.NewID("sid"),
		DisplayName: owner.DisplayName,
	})
	if err != nil {
		return Session{}, err
	}
	s.hub.Publish(issued.event(session.Authenticated, session.ReasonLogin))
	return issued, nil
}

// Refresh rotates the refresh token. The session id carries over.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return Session{}, auth.ErrInvalidToken
	}
	tokenHash := auth.HashToken(refreshToken)
	existing, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}
	if err := s.checkSessionLive(ctx, existing.SessionID); err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	issued, err := s.issueSession(ctx, existing)
	if err != nil {
		return Session{}, err
	}
	s.hub.Publish(issued.event(session.Authenticated, session.ReasonRefresh))
	return issued, nil
}

func (s *Service) issueSession(ctx context.Context, refresh store.RefreshSession) (Session, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  refresh.UserID,
		Name: refresh.DisplayName,
		SID:  refresh.SessionID,
		JTI:  jti,
		Exp:  expiresAt,
	})
	if err != nil {
		return Session{}, err
	}

	refreshToken, err := authpw.GenerateToken()
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refreshToken), refresh, now.Add(s.cfg.RefreshTTL)); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refreshToken,
		SessionID:    refresh.SessionID,
		UserID:       refresh.UserID,
		UserName:     refresh.DisplayName,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

// CurrentSession validates token once. Invalid and expired tokens report the
// auth sentinels; any other error means the session could not be checked.
func (s *Service) CurrentSession(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) && claims.SID != "" {
			s.hub.Publish(session.Event{SessionID: claims.SID, UserID: claims.Sub, State: session.Anonymous, Reason: session.ReasonExpired})
		}
		return Session{}, err
	}
	revoked, err := s.sessions.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, fmt.Errorf("check session: %w", err)
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}
	if err := s.checkSessionLive(ctx, claims.SID); err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		SessionID: claims.SID,
		UserID:    claims.Sub,
		UserName:  claims.Name,
		JTI:       claims.JTI,
		ExpiresAt: claims.Exp,
	}, nil
}

// checkSessionLive rejects tokens of a session that was logged out, including
// ones issued before its last refresh.
func (s *Service) checkSessionLive(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	revoked, err := s.sessions.IsSessionRevoked(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if revoked {
		return auth.ErrInvalidToken
	}
	return nil
}

// RestoreSession is CurrentSession for a page load: a valid session is
// announced so its admin panel opens if it is not open yet.
func (s *Service) RestoreSession(ctx context.Context, token string) (Session, error) {
	current, err := s.CurrentSession(ctx, token)
	if err != nil {
		return Session{}, err
	}
	s.hub.Publish(current.event(session.Authenticated, session.ReasonRestore))
	return current, nil
}

func (s *Service) Logout(ctx context.Context, current Session, refreshToken string) error {
	var errs []error
	if current.JTI != "" {
		if err := s.sessions.RevokeAccessToken(ctx, current.JTI, current.ExpiresAt); err != nil {
			errs = append(errs, err)
		}
	}
	if refreshToken != "" {
		if err := s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken)); err != nil {
			errs = append(errs, err)
		}
	}
	if current.SessionID != "" {
		if err := s.sessions.RevokeSession(ctx, current.SessionID, s.now().Add(s.cfg.RefreshTTL)); err != nil {
			errs = append(errs, err)
		}
		s.hub.Publish(current.event(session.Anonymous, session.ReasonLogout))
	}
	return errors.Join(errs...)
}

// PublicContent builds the public read model straight from the store. When
// the projects table cannot be read the persisted project blob is used.
func (s *Service) PublicContent(ctx context.Context) (content.Portfolio, error) {
	var records []content.Record
	for _, kind := range content.Kinds {
		listed, err := s.store.List(ctx, kind)
		if err == nil {
			records = append(records, listed...)
			continue
		}
		if kind != content.KindProjects {
			return content.Portfolio{}, fmt.Errorf("list %s: %w", kind, err)
		}
		cached, cacheErr := s.cache.Load(ctx)
		if cacheErr != nil {
			return content.Portfolio{}, fmt.Errorf("list %s: %w", kind, err)
		}
		log.Printf("projects read failed, serving %d cached projects: %v", len(cached), err)
		for _, project := range cached {
			records = append(records, project)
		}
	}
	return content.BuildPortfolio(content.SplitRecords(records))
}

func (s *Service) Search(q search.Query) search.Response {
	if s.search == nil || strings.TrimSpace(q.Text) == "" {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

func (s *Service) Contact(msg email.ContactMessage) (email.Delivery, error) {
	if s.mailer == nil {
		return email.Delivery{}, domainError(http.StatusServiceUnavailable, "CONTACT_UNAVAILABLE", "Contact form not configured", nil)
	}
	return s.mailer.SendContact(msg)
}

// ExportCV renders the public content as a CV document.
func (s *Service) ExportCV(ctx context.Context, localizer i18n.Localizer, format export.Format) (*export.Result, error) {
	portfolio, err := s.PublicContent(ctx)
	if err != nil {
		return nil, err
	}
	return s.export(ctx, portfolio, localizer, format)
}

func (s *Service) export(ctx context.Context, portfolio content.Portfolio, localizer i18n.Localizer, format export.Format) (*export.Result, error) {
	if s.exporter == nil {
		return nil, export.ErrPDFDependencyMissing
	}
	return s.exporter.Export(ctx, export.Request{Portfolio: portfolio, Format: format, Localizer: localizer})
}
