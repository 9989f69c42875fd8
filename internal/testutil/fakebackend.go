// Package testutil provides an in-memory stand-in for the backing service:
// a REST row store, auth, object storage, and a change-feed socket, close
// enough to the real wire contract for client and facade tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// FeedEvent is a change event pushed to subscribed feed clients.
type FeedEvent struct {
	Type      string         `json:"type"`
	Table     string         `json:"table"`
	Record    map[string]any `json:"record,omitempty"`
	OldRecord map[string]any `json:"old_record,omitempty"`
}

type feedFrame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
}

type feedConn struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	topics map[string]bool
}

// FakeBackend is the in-memory service. Rows are generic maps so the REST
// surface can filter on any column the way the real service does.
type FakeBackend struct {
	mu     sync.Mutex
	tables map[string][]map[string]any
	files  map[string][]byte
	users  map[string]fakeUser // email -> user

	// failures > 0 makes the next REST calls answer failStatus
	failures   int
	failStatus int

	// Requests counts REST calls, for retry assertions
	Requests int

	server   *httptest.Server
	upgrader websocket.Upgrader

	connMu sync.Mutex
	conns  []*feedConn
}

type fakeUser struct {
	ID       string
	Password string
}

// NewFakeBackend starts the fake service.
func NewFakeBackend() *FakeBackend {
	gin.SetMode(gin.TestMode)

	f := &FakeBackend{
		tables: map[string][]map[string]any{
			"tasks":    {},
			"projects": {},
			"profiles": {},
		},
		files:      map[string][]byte{},
		users:      map[string]fakeUser{},
		failStatus: http.StatusInternalServerError,
		upgrader:   websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/auth/v1/token", f.handleToken)
	router.POST("/auth/v1/signup", f.handleSignup)
	router.POST("/auth/v1/logout", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.POST("/auth/v1/recover", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })

	rest := router.Group("/rest/v1")
	rest.Use(f.failureMiddleware)
	rest.GET("/:table", f.handleSelect)
	rest.POST("/:table", f.handleInsert)
	rest.PATCH("/:table", f.handleUpdate)
	rest.DELETE("/:table", f.handleDelete)

	router.POST("/storage/v1/object/:bucket/*path", f.handleUpload)
	router.GET("/realtime/v1/websocket", f.handleFeed)

	f.server = httptest.NewServer(router)
	return f
}

// URL returns the base URL of the fake service.
func (f *FakeBackend) URL() string { return f.server.URL }

// Close shuts the service down.
func (f *FakeBackend) Close() {
	f.connMu.Lock()
	for _, fc := range f.conns {
		_ = fc.conn.Close()
	}
	f.conns = nil
	f.connMu.Unlock()
	f.server.Close()
}

// RegisterUser adds a sign-in account and returns its user id.
func (f *FakeBackend) RegisterUser(email, password string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New().String()
	f.users[email] = fakeUser{ID: id, Password: password}
	return id
}

// FailNext makes the next n REST calls answer the given status.
func (f *FakeBackend) FailNext(n, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = n
	f.failStatus = status
}

// Seed inserts a row directly into a table.
func (f *FakeBackend) Seed(table string, row any) map[string]any {
	m := toRow(row)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[table] = append(f.tables[table], m)
	return m
}

// Rows returns a copy of a table's rows.
func (f *FakeBackend) Rows(table string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, len(f.tables[table]))
	copy(out, f.tables[table])
	return out
}

// File returns an uploaded object by bucket/path key.
func (f *FakeBackend) File(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[key]
	return data, ok
}

// toRow converts any JSON-taggable value into a generic row.
func toRow(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		panic(err)
	}
	return m
}

// --- auth ---

func (f *FakeBackend) handleToken(c *gin.Context) {
	if c.Query("grant_type") != "password" {
		c.JSON(http.StatusBadRequest, gin.H{"error_description": "unsupported grant type"})
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_description": err.Error()})
		return
	}

	f.mu.Lock()
	user, ok := f.users[req.Email]
	f.mu.Unlock()
	if !ok || user.Password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"error_description": "invalid login credentials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  "token-" + user.ID,
		"refresh_token": "refresh-" + user.ID,
		"expires_in":    3600,
		"user":          gin.H{"id": user.ID, "email": req.Email},
	})
}

func (f *FakeBackend) handleSignup(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_description": err.Error()})
		return
	}

	f.mu.Lock()
	if _, exists := f.users[req.Email]; exists {
		f.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"msg": "user already registered"})
		return
	}
	id := uuid.New().String()
	f.users[req.Email] = fakeUser{ID: id, Password: req.Password}
	f.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"access_token":  "token-" + id,
		"refresh_token": "refresh-" + id,
		"expires_in":    3600,
		"user":          gin.H{"id": id, "email": req.Email},
	})
}

// --- rest ---

func (f *FakeBackend) failureMiddleware(c *gin.Context) {
	f.mu.Lock()
	f.Requests++
	fail := f.failures > 0
	status := f.failStatus
	if fail {
		f.failures--
	}
	f.mu.Unlock()

	if fail {
		c.AbortWithStatusJSON(status, gin.H{"message": "injected failure"})
		return
	}
	c.Next()
}

// matches applies the eq./lt. filters from the query string to a row.
func matches(row map[string]any, query map[string][]string) bool {
	for col, vals := range query {
		switch col {
		case "select", "order", "limit", "offset":
			continue
		}
		if len(vals) == 0 {
			continue
		}
		v := vals[0]
		switch {
		case strings.HasPrefix(v, "eq."):
			if fmt.Sprint(row[col]) != v[3:] {
				return false
			}
		case strings.HasPrefix(v, "lt."):
			s, _ := row[col].(string)
			if s == "" || s >= v[3:] {
				return false
			}
		}
	}
	return true
}

func (f *FakeBackend) handleSelect(c *gin.Context) {
	table := c.Param("table")
	query := c.Request.URL.Query()

	f.mu.Lock()
	var out []map[string]any
	for _, row := range f.tables[table] {
		if matches(row, query) {
			out = append(out, row)
		}
	}
	f.mu.Unlock()

	total := len(out)
	if lim := c.Query("limit"); lim != "" {
		var n int
		fmt.Sscanf(lim, "%d", &n)
		if n >= 0 && n < len(out) {
			out = out[:n]
		}
	}
	if strings.Contains(c.GetHeader("Prefer"), "count=exact") {
		c.Header("Content-Range", fmt.Sprintf("0-%d/%d", len(out), total))
	}
	if out == nil {
		out = []map[string]any{}
	}
	c.JSON(http.StatusOK, out)
}

func (f *FakeBackend) handleInsert(c *gin.Context) {
	table := c.Param("table")
	var row map[string]any
	if err := c.ShouldBindJSON(&row); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	if id, _ := row["id"].(string); id == "" {
		row["id"] = uuid.New().String()
	}
	now := time.Now().UTC().Format(time.RFC3339)
	row["created_at"] = now
	row["updated_at"] = now

	f.mu.Lock()
	if table == "profiles" {
		for _, existing := range f.tables[table] {
			if existing["id"] == row["id"] {
				f.mu.Unlock()
				c.JSON(http.StatusConflict, gin.H{"message": "duplicate key value violates unique constraint"})
				return
			}
		}
	}
	f.tables[table] = append(f.tables[table], row)
	f.mu.Unlock()

	if strings.Contains(c.GetHeader("Prefer"), "return=representation") {
		c.JSON(http.StatusCreated, []map[string]any{row})
		return
	}
	c.Status(http.StatusCreated)
}

func (f *FakeBackend) handleUpdate(c *gin.Context) {
	table := c.Param("table")
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	query := c.Request.URL.Query()

	f.mu.Lock()
	var out []map[string]any
	for _, row := range f.tables[table] {
		if matches(row, query) {
			for k, v := range patch {
				if v == nil {
					delete(row, k)
					continue
				}
				row[k] = v
			}
			row["updated_at"] = time.Now().UTC().Format(time.RFC3339)
			out = append(out, row)
		}
	}
	f.mu.Unlock()

	if out == nil {
		out = []map[string]any{}
	}
	c.JSON(http.StatusOK, out)
}

func (f *FakeBackend) handleDelete(c *gin.Context) {
	table := c.Param("table")
	query := c.Request.URL.Query()

	f.mu.Lock()
	var kept []map[string]any
	for _, row := range f.tables[table] {
		if !matches(row, query) {
			kept = append(kept, row)
		}
	}
	f.tables[table] = kept
	f.mu.Unlock()

	c.Status(http.StatusNoContent)
}

// --- storage ---

func (f *FakeBackend) handleUpload(c *gin.Context) {
	bucket := c.Param("bucket")
	path := strings.TrimPrefix(c.Param("path"), "/")

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	f.mu.Lock()
	f.files[bucket+"/"+path] = data
	f.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"Key": bucket + "/" + path})
}

// --- change feed ---

func (f *FakeBackend) handleFeed(c *gin.Context) {
	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	fc := &feedConn{conn: conn, topics: map[string]bool{}}
	f.connMu.Lock()
	f.conns = append(f.conns, fc)
	f.connMu.Unlock()

	for {
		var frame feedFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		switch frame.Event {
		case "phx_join":
			fc.mu.Lock()
			fc.topics[frame.Topic] = true
			fc.mu.Unlock()
			f.reply(fc, frame.Topic, frame.Ref)
		case "phx_leave":
			fc.mu.Lock()
			delete(fc.topics, frame.Topic)
			fc.mu.Unlock()
		case "heartbeat":
			f.reply(fc, "phoenix", frame.Ref)
		}
	}
}

func (f *FakeBackend) reply(fc *feedConn, topic, ref string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	_ = fc.conn.WriteJSON(feedFrame{
		Topic:   topic,
		Event:   "phx_reply",
		Payload: json.RawMessage(`{"status":"ok"}`),
		Ref:     ref,
	})
}

// PushChange delivers a change event to every feed client joined to the
// matching topic.
func (f *FakeBackend) PushChange(userID string, ev FeedEvent) {
	topic := fmt.Sprintf("realtime:public:%s:user_id=eq.%s", ev.Table, userID)
	payload, err := json.Marshal(ev)
	if err != nil {
		panic(err)
	}
	frame := feedFrame{Topic: topic, Event: ev.Type, Payload: payload}

	f.connMu.Lock()
	conns := make([]*feedConn, len(f.conns))
	copy(conns, f.conns)
	f.connMu.Unlock()

	for _, fc := range conns {
		fc.mu.Lock()
		if fc.topics[topic] {
			_ = fc.conn.WriteJSON(frame)
		}
		fc.mu.Unlock()
	}
}
