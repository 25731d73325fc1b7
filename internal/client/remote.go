package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sheetsync/api/internal/grid"
	"sheetsync/api/internal/realtime"
	"sheetsync/api/internal/theme"
)

// APIError is a non-2xx response from sheetd.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("sheetd: %d %s", e.Status, e.Code)
	}
	return fmt.Sprintf("sheetd: %d %s: %s", e.Status, e.Code, e.Message)
}

// Remote talks to a sheetd server. It implements Records.
type Remote struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewRemote creates a client for baseURL.
func NewRemote(baseURL, token string) *Remote {
	return &Remote{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Session is the result of signing in.
type Session struct {
	Token  string `json:"accessToken"`
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// SearchResult is a server-side row search.
type SearchResult struct {
	Query  string `json:"query"`
	Rows   []int  `json:"rows"`
	Source string `json:"source"`
}

// Latest returns the most recently created record.
func (r *Remote) Latest(ctx context.Context) (Record, error) {
	var rec Record
	err := r.do(ctx, http.MethodGet, "/api/table", nil, &rec)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return Record{}, ErrNoRecord
	}
	return rec, err
}

// Insert creates a new record.
func (r *Remote) Insert(ctx context.Context, t grid.Table) (Record, error) {
	var rec Record
	err := r.do(ctx, http.MethodPost, "/api/table", Write{Data: t.Data, Columns: t.Columns}, &rec)
	return rec, err
}

// Update replaces the data and columns of record id.
func (r *Remote) Update(ctx context.Context, id string, t grid.Table, updatedAt time.Time) (Record, error) {
	var rec Record
	body := Write{Data: t.Data, Columns: t.Columns, UpdatedAt: &updatedAt}
	err := r.do(ctx, http.MethodPut, "/api/table/"+url.PathEscape(id), body, &rec)
	return rec, err
}

// SignUp creates an account.
func (r *Remote) SignUp(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	return r.do(ctx, http.MethodPost, "/api/auth/signup", body, nil)
}

// SignIn exchanges credentials for an access token.
func (r *Remote) SignIn(ctx context.Context, email, password string) (Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	err := r.do(ctx, http.MethodPost, "/api/auth/signin", body, &s)
	return s, err
}

// SignOut revokes the current token.
func (r *Remote) SignOut(ctx context.Context) error {
	return r.do(ctx, http.MethodPost, "/api/auth/signout", nil, nil)
}

// WhoAmI describes the session behind the current token.
type WhoAmI struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId"`
	Email         string `json:"email"`
	ExpiresAt     int64  `json:"expiresAt"`
}

// Session reports whether the token is still valid.
func (r *Remote) Session(ctx context.Context) (WhoAmI, error) {
	var out WhoAmI
	err := r.do(ctx, http.MethodGet, "/api/session", nil, &out)
	return out, err
}

// Themes lists the themes the server offers.
func (r *Remote) Themes(ctx context.Context) ([]theme.Theme, error) {
	var out struct {
		Themes []theme.Theme `json:"themes"`
	}
	err := r.do(ctx, http.MethodGet, "/api/themes", nil, &out)
	return out.Themes, err
}

// Search asks the server which rows of record id match q.
func (r *Remote) Search(ctx context.Context, id, q string) (SearchResult, error) {
	var out SearchResult
	path := "/api/table/" + url.PathEscape(id) + "/search?q=" + url.QueryEscape(q)
	err := r.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Export downloads the workbook for record id into w.
func (r *Remote) Export(ctx context.Context, id string, w io.Writer) error {
	req, err := r.request(ctx, http.MethodGet, "/api/table/"+url.PathEscape(id)+"/export", nil)
	if err != nil {
		return err
	}
	resp, err := r.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("export request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return decodeError(resp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("read export: %w", err)
	}
	return nil
}

// Events returns a subscriber for the server's realtime endpoint.
func (r *Remote) Events() realtime.Dialer {
	return realtime.Dialer{URL: RealtimeURL(r.BaseURL), Token: r.Token}
}

// RealtimeURL maps an http(s) base URL to the websocket endpoint.
func RealtimeURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/api/realtime"
}

func (r *Remote) request(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}
	return req, nil
}

func (r *Remote) do(ctx context.Context, method, path string, body, out any) error {
	req, err := r.request(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := r.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body)
	return &APIError{Status: resp.StatusCode, Code: body.Code, Message: body.Error}
}
