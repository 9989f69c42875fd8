// Package supabase is the concrete backing-service client. Rows are read
// and written through a PostgREST-style REST surface, sessions through a
// GoTrue-style auth surface, files through the storage surface, and change
// notifications through a websocket feed. Every failure is normalized to a
// classified domain error before it leaves this package.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"lumi/backend"
	"lumi/domain"
	"lumi/domain/entity"
)

const defaultTimeout = 30 * time.Second

// Config configures a Client.
type Config struct {
	// BaseURL is the project URL, e.g. https://xyz.supabase.co
	BaseURL string
	// AnonKey is the project's public API key
	AnonKey string
	// HTTPClient overrides the transport, mainly for tests
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client implements backend.Client against a Supabase-compatible service.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	logger  *zap.Logger
	auth    *authAPI
}

var _ backend.Client = (*Client)(nil)

// New creates a client. BaseURL and AnonKey are required.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	if cfg.AnonKey == "" {
		return nil, fmt.Errorf("backend anon key is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		anonKey: cfg.AnonKey,
		http:    httpClient,
		logger:  logger,
	}
	c.auth = &authAPI{client: c}
	return c, nil
}

// Auth returns the authentication surface.
func (c *Client) Auth() backend.Auth {
	return c.auth
}

// token returns the bearer token for requests: the session's access token
// when signed in, the anon key otherwise.
func (c *Client) token() string {
	if s := c.auth.Session(); s != nil && s.AccessToken != "" {
		return s.AccessToken
	}
	return c.anonKey
}

// restError is the error body shape of the REST and auth surfaces.
type restError struct {
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error"`
}

func (e restError) text() string {
	for _, s := range []string{e.Message, e.Msg, e.ErrorDescription, e.ErrorCode} {
		if s != "" {
			return s
		}
	}
	return ""
}

// do performs one HTTP exchange and decodes the response into out when
// non-nil. prefer is sent as the Prefer header when non-empty.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, prefer string, body, out any) (http.Header, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, domain.NewError(domain.KindUnknown, 0, "encode request", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, domain.NewError(domain.KindUnknown, 0, "build request", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.token())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%s %s: %w", method, path, domain.ErrAborted)
		}
		return nil, domain.NewError(domain.KindNetwork, 0, "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewError(domain.KindNetwork, 0, "read response", err)
	}

	if resp.StatusCode >= 400 {
		var body restError
		_ = json.Unmarshal(raw, &body)
		msg := body.text()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		kind := domain.Classify(resp.StatusCode, "", msg)
		c.logger.Debug("backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("kind", string(kind)),
		)
		return resp.Header, domain.NewError(kind, resp.StatusCode, msg, nil)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.Header, domain.NewError(domain.KindUnknown, resp.StatusCode, "decode response", err)
		}
	}
	return resp.Header, nil
}

// rows runs a REST read and decodes the row array.
func rows[T any](c *Client, ctx context.Context, table string, query url.Values) ([]T, error) {
	var out []T
	if _, err := c.do(ctx, http.MethodGet, "/rest/v1/"+table, query, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// one runs a REST read expected to yield at most one row.
func one[T any](c *Client, ctx context.Context, table string, query url.Values) (*T, error) {
	query.Set("limit", "1")
	out, err := rows[T](c, ctx, table, query)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, domain.ErrNotFound
	}
	return &out[0], nil
}

// write runs an insert or partial update and returns the stored row. The
// representation preference makes the service echo server-assigned fields
// (id, timestamps) back.
func write[T any](c *Client, ctx context.Context, method, table string, query url.Values, body any) (*T, error) {
	var out []T
	if _, err := c.do(ctx, method, "/rest/v1/"+table, query, "return=representation", body, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, domain.ErrNotFound
	}
	return &out[0], nil
}

// count runs a filtered read asking only for the exact row count, parsed
// from the Content-Range header.
func (c *Client) count(ctx context.Context, table string, query url.Values) (int, error) {
	query.Set("select", "id")
	query.Set("limit", "1")
	header, err := c.do(ctx, http.MethodGet, "/rest/v1/"+table, query, "count=exact", nil, nil)
	if err != nil {
		return 0, err
	}

	cr := header.Get("Content-Range")
	idx := strings.LastIndex(cr, "/")
	if idx < 0 {
		return 0, domain.NewError(domain.KindUnknown, 0, "missing count in response", nil)
	}
	n, err := strconv.Atoi(cr[idx+1:])
	if err != nil {
		return 0, domain.NewError(domain.KindUnknown, 0, "malformed count in response", err)
	}
	return n, nil
}

func eq(v string) string { return "eq." + v }

// --- tasks ---

func (c *Client) ListTasks(ctx context.Context, userID string) ([]entity.Task, error) {
	q := url.Values{}
	q.Set("user_id", eq(userID))
	q.Set("select", "*")
	q.Set("order", "created_at.desc")
	return rows[entity.Task](c, ctx, "tasks", q)
}

func (c *Client) GetTask(ctx context.Context, id string) (*entity.Task, error) {
	q := url.Values{}
	q.Set("id", eq(id))
	q.Set("select", "*")
	return one[entity.Task](c, ctx, "tasks", q)
}

func (c *Client) InsertTask(ctx context.Context, t *entity.Task) (*entity.Task, error) {
	return write[entity.Task](c, ctx, http.MethodPost, "tasks", url.Values{}, t)
}

func (c *Client) UpdateTask(ctx context.Context, id string, patch backend.Patch) (*entity.Task, error) {
	q := url.Values{}
	q.Set("id", eq(id))
	return write[entity.Task](c, ctx, http.MethodPatch, "tasks", q, patch)
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", eq(id))
	_, err := c.do(ctx, http.MethodDelete, "/rest/v1/tasks", q, "", nil, nil)
	return err
}

func (c *Client) CountOverdueTasks(ctx context.Context, userID, projectID string, before time.Time) (int, error) {
	q := url.Values{}
	q.Set("user_id", eq(userID))
	q.Set("completed", eq("false"))
	// Full timestamp, not date-only: a date-only bound would miss tasks due
	// today, which Task.IsOverdue counts once their midnight has passed.
	q.Set("due_date", "lt."+before.UTC().Format(time.RFC3339))
	if projectID != "" {
		q.Set("project_id", eq(projectID))
	}
	return c.count(ctx, "tasks", q)
}

// --- projects ---

func (c *Client) ListProjects(ctx context.Context, userID string) ([]entity.Project, error) {
	q := url.Values{}
	q.Set("user_id", eq(userID))
	q.Set("select", "*")
	q.Set("order", "name.asc")
	return rows[entity.Project](c, ctx, "projects", q)
}

func (c *Client) GetProject(ctx context.Context, id string) (*entity.Project, error) {
	q := url.Values{}
	q.Set("id", eq(id))
	q.Set("select", "*")
	return one[entity.Project](c, ctx, "projects", q)
}

func (c *Client) InsertProject(ctx context.Context, p *entity.Project) (*entity.Project, error) {
	return write[entity.Project](c, ctx, http.MethodPost, "projects", url.Values{}, p)
}

func (c *Client) UpdateProject(ctx context.Context, id string, patch backend.Patch) (*entity.Project, error) {
	q := url.Values{}
	q.Set("id", eq(id))
	return write[entity.Project](c, ctx, http.MethodPatch, "projects", q, patch)
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", eq(id))
	_, err := c.do(ctx, http.MethodDelete, "/rest/v1/projects", q, "", nil, nil)
	return err
}

// --- profiles ---

func (c *Client) GetProfile(ctx context.Context, userID string) (*entity.UserProfile, error) {
	q := url.Values{}
	q.Set("id", eq(userID))
	q.Set("select", "*")
	return one[entity.UserProfile](c, ctx, "profiles", q)
}

func (c *Client) InsertProfile(ctx context.Context, p *entity.UserProfile) error {
	_, err := c.do(ctx, http.MethodPost, "/rest/v1/profiles", url.Values{}, "return=minimal", p, nil)
	return err
}

func (c *Client) UpdateProfile(ctx context.Context, userID string, patch backend.Patch) (*entity.UserProfile, error) {
	q := url.Values{}
	q.Set("id", eq(userID))
	return write[entity.UserProfile](c, ctx, http.MethodPatch, "profiles", q, patch)
}

// --- storage ---

func (c *Client) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error {
	u := c.baseURL + "/storage/v1/object/" + bucket + "/" + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return domain.NewError(domain.KindUnknown, 0, "build request", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.token())
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("upload %s: %w", path, domain.ErrAborted)
		}
		return domain.NewError(domain.KindNetwork, 0, "upload failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		var body restError
		_ = json.Unmarshal(raw, &body)
		msg := body.text()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return domain.NewError(domain.Classify(resp.StatusCode, "", msg), resp.StatusCode, msg, nil)
	}
	return nil
}

func (c *Client) PublicURL(bucket, path string) string {
	return c.baseURL + "/storage/v1/object/public/" + bucket + "/" + path
}

// session/listener bookkeeping shared with the auth surface

type sessionState struct {
	mu        sync.Mutex
	session   *backend.Session
	listeners map[int]func(*backend.Session)
	nextID    int
}

func (s *sessionState) get() *backend.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *sessionState) set(sess *backend.Session) {
	s.mu.Lock()
	s.session = sess
	fns := make([]func(*backend.Session), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(sess)
	}
}

func (s *sessionState) listen(fn func(*backend.Session)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listeners == nil {
		s.listeners = make(map[int]func(*backend.Session))
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}
