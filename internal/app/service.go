package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"sheetsync/api/internal/auth"
	"sheetsync/api/internal/authpw"
	"sheetsync/api/internal/config"
	"sheetsync/api/internal/grid"
	"sheetsync/api/internal/realtime"
	"sheetsync/api/internal/search"
	"sheetsync/api/internal/session"
	"sheetsync/api/internal/store"
	"sheetsync/api/internal/theme"
	"sheetsync/api/internal/transfer"
)

type Session struct {
	Token     string
	UserID    string
	Email     string
	JTI       string
	ExpiresAt time.Time
}

// TableWrite is the body of a table insert or update. A missing field is
// written as an empty array.
type TableWrite struct {
	Data      json.RawMessage `json:"data"`
	Columns   json.RawMessage `json:"columns"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

type welcomeMailer interface {
	IsConfigured() bool
	SendWelcomeEmail(to, appURL string) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type Service struct {
	cfg      config.Config
	store    store.Store
	sessions session.Store
	users    *authpw.Service
	broker   realtime.Broker
	search   *search.Service
	mailer   welcomeMailer
	now      func() time.Time
}

func New(cfg config.Config, dataStore store.Store, sessions session.Store, broker realtime.Broker, searchService *search.Service) *Service {
	if searchService == nil {
		searchService = search.NewService(nil)
	}
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		users:    authpw.NewService(dataStore),
		broker:   broker,
		search:   searchService,
		now:      time.Now,
	}
}

// WithMailer enables the welcome email on sign-up.
func (s *Service) WithMailer(m welcomeMailer) *Service {
	s.mailer = m
	return s
}

func (s *Service) SignUp(ctx context.Context, email, password string) (store.User, error) {
	user, err := s.users.SignUp(ctx, authpw.SignUpRequest{Email: email, Password: password})
	if err != nil {
		return store.User{}, authError(err)
	}

	if s.mailer != nil && s.mailer.IsConfigured() {
		go func(to string) {
			if err := s.mailer.SendWelcomeEmail(to, s.cfg.PublicURL); err != nil {
				log.Printf("email: welcome %s: %v", to, err)
			}
		}(user.Email)
	}
	return user, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.SignIn(ctx, authpw.SignInRequest{Email: email, Password: password})
	if err != nil {
		return Session{}, authError(err)
	}
	return s.issueSession(ctx, user)
}

func authError(err error) error {
	switch {
	case errors.Is(err, authpw.ErrInvalidInput):
		message := strings.TrimPrefix(err.Error(), authpw.ErrInvalidInput.Error()+": ")
		return validationError(message)
	case errors.Is(err, authpw.ErrEmailTaken):
		return &DomainError{Status: http.StatusConflict, Code: codeEmailExists, Message: "Email already registered"}
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return &DomainError{Status: http.StatusUnauthorized, Code: codeBadLogin, Message: "Invalid email or password"}
	}
	return err
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	token, claims, err := auth.NewAccessToken([]byte(s.cfg.JWTSecret), user.ID, user.Email, s.cfg.AccessTTL, s.now())
	if err != nil {
		return Session{}, err
	}
	data := session.Data{UserID: user.ID, Email: user.Email, CreatedAt: s.now().UTC()}
	if err := s.sessions.Save(ctx, claims.JTI, data, claims.ExpiresAt()); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	return Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		JTI:       claims.JTI,
		ExpiresAt: claims.ExpiresAt(),
	}, nil
}

// SessionFromToken verifies token and checks it has not been signed out.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	data, err := s.sessions.Lookup(ctx, claims.JTI)
	if errors.Is(err, session.ErrNotFound) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    data.UserID,
		Email:     data.Email,
		JTI:       claims.JTI,
		ExpiresAt: claims.ExpiresAt(),
	}, nil
}

func (s *Service) Logout(ctx context.Context, sess Session) error {
	if sess.JTI == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, sess.JTI)
}

func (s *Service) LatestTable(ctx context.Context) (store.TableRecord, error) {
	rec, err := s.store.LatestTable(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return store.TableRecord{}, notFoundError("No table saved yet")
	}
	return rec, err
}

func (s *Service) GetTable(ctx context.Context, id string) (store.TableRecord, error) {
	rec, err := s.store.GetTable(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.TableRecord{}, notFoundError("Table not found")
	}
	return rec, err
}

func (s *Service) InsertTable(ctx context.Context, in TableWrite) (store.TableRecord, error) {
	data, err := validateWrite(&in)
	if err != nil {
		return store.TableRecord{}, err
	}
	rec, err := s.store.InsertTable(ctx, in.Data, in.Columns)
	if err != nil {
		return store.TableRecord{}, err
	}
	s.afterWrite(ctx, realtime.Insert, rec, data)
	return rec, nil
}

// UpdateTable replaces the whole record. Concurrent writers are last write
// wins.
func (s *Service) UpdateTable(ctx context.Context, id string, in TableWrite) (store.TableRecord, error) {
	data, err := validateWrite(&in)
	if err != nil {
		return store.TableRecord{}, err
	}
	var updatedAt time.Time
	if in.UpdatedAt != nil {
		updatedAt = *in.UpdatedAt
	}
	rec, err := s.store.UpdateTable(ctx, id, in.Data, in.Columns, updatedAt)
	if errors.Is(err, store.ErrNotFound) {
		return store.TableRecord{}, notFoundError("Table not found")
	}
	if err != nil {
		return store.TableRecord{}, err
	}
	s.afterWrite(ctx, realtime.Update, rec, data)
	return rec, nil
}

// validateWrite fills missing fields with empty arrays and rejects bodies
// no client could load back.
func validateWrite(in *TableWrite) (grid.Grid, error) {
	if len(in.Data) == 0 || string(in.Data) == "null" {
		in.Data = json.RawMessage("[]")
	}
	if len(in.Columns) == 0 || string(in.Columns) == "null" {
		in.Columns = json.RawMessage("[]")
	}
	data, ok := grid.ParseData(in.Data)
	if !ok {
		return nil, validationError("data must be an array of rows")
	}
	if _, ok := grid.ParseColumns(in.Columns); !ok {
		return nil, validationError("columns must be an array")
	}
	return data, nil
}

// afterWrite broadcasts the stored record and refreshes the search index.
// The write has already succeeded, so failures here are only logged.
func (s *Service) afterWrite(ctx context.Context, typ realtime.EventType, rec store.TableRecord, data grid.Grid) {
	if s.broker != nil {
		ev, err := realtime.NewEvent(typ, rec)
		if err == nil {
			err = s.broker.Publish(ctx, ev)
		}
		if err != nil {
			log.Printf("realtime: publish %s %s: %v", typ, rec.ID, err)
		}
	}
	s.search.IndexTable(rec.ID, data)
}

// ExportTable renders record id as a workbook.
func (s *Service) ExportTable(ctx context.Context, id string) ([]byte, error) {
	rec, err := s.GetTable(ctx, id)
	if err != nil {
		return nil, err
	}
	data, ok := grid.ParseData(rec.Data)
	if !ok {
		return nil, &DomainError{Status: http.StatusUnprocessableEntity, Code: codeInvalidTable, Message: "Stored data is not a grid"}
	}
	payload, err := transfer.ExportBytes(data)
	if err != nil {
		return nil, fmt.Errorf("export table %s: %w", id, err)
	}
	return payload, nil
}

func (s *Service) SearchTable(ctx context.Context, id, query string) (search.Result, error) {
	rec, err := s.GetTable(ctx, id)
	if err != nil {
		return search.Result{}, err
	}
	data, ok := grid.ParseData(rec.Data)
	if !ok {
		data = grid.Grid{}
	}
	return s.search.Search(rec.ID, data, strings.TrimSpace(query)), nil
}

func (s *Service) Themes() []theme.Theme {
	return theme.All()
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Checks reports the readiness of every backing service. ready is false
// when a required one is down; search falling back to memory is not fatal.
func (s *Service) Checks(ctx context.Context) (map[string]any, bool) {
	ready := true
	checks := map[string]any{}

	check := func(name string, p pinger) {
		if err := p.Ping(ctx); err != nil {
			ready = false
			checks[name] = map[string]any{"status": "error", "error": err.Error()}
			return
		}
		checks[name] = map[string]any{"status": "ok"}
	}
	check("database", s.store)
	check("sessions", s.sessions)
	if p, ok := s.broker.(pinger); ok {
		check("broker", p)
	}

	if s.search.Healthy() {
		checks["search"] = map[string]any{"status": "ok", "source": search.SourceMeili}
	} else {
		checks["search"] = map[string]any{"status": "ok", "source": search.SourceMemory}
	}
	return checks, ready
}
