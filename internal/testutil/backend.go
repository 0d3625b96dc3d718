// Package testutil provides a fake generation backend for tests.
package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/GriffinCanCode/Text2APK/client/internal/backend"
)

// Ending says what the fake does after a script's frames are sent.
type Ending int

const (
	// EndHold keeps the channel open and forwards Push frames until the
	// client disconnects.
	EndHold Ending = iota
	// EndClose sends a normal close frame.
	EndClose
	// EndDrop tears the TCP connection down without a close frame.
	EndDrop
)

// Script is what the fake sends on /ws/{id}.
type Script struct {
	Frames []string
	End    Ending
}

// Request is one recorded HTTP request.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// Backend is an in-process stand-in for the generation backend.
type Backend struct {
	Server *httptest.Server

	mu          sync.Mutex
	requests    []Request
	nextID      int
	generateErr int
	generateIDs []string
	frameworks  []backend.Framework
	categories  []backend.Category
	history     []backend.HistoryEntry
	historyErr  int
	catalogErr  int
	artifact    []byte
	scripts     map[string]Script
	pushes      map[string]chan string
	connects    map[string]int

	done      chan struct{}
	closeOnce sync.Once
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewBackend starts a fake backend and registers its shutdown with t.
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := &Backend{
		scripts:  make(map[string]Script),
		pushes:   make(map[string]chan string),
		connects: make(map[string]int),
		done:     make(chan struct{}),
		frameworks: []backend.Framework{
			{ID: "react_native", Name: "React Native"},
			{ID: "flutter", Name: "Flutter"},
		},
		categories: []backend.Category{
			{ID: "productivity", Name: "Productivity"},
		},
	}

	router := gin.New()
	router.Use(b.record)
	router.POST("/generate", b.handleGenerate)
	router.GET("/frameworks", b.handleFrameworks)
	router.GET("/categories", b.handleCategories)
	router.GET("/history", b.handleHistory)
	router.GET("/status/:id", b.handleStatus)
	router.GET("/health", b.handleHealth)
	router.GET("/download/:id", b.handleDownload)
	router.GET("/ws/:id", b.handleWS)

	b.Server = httptest.NewServer(router)
	t.Cleanup(b.Close)
	return b
}

// URL returns the base HTTP URL.
func (b *Backend) URL() string {
	return b.Server.URL
}

// Close stops the server and releases held channels.
func (b *Backend) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
		b.Server.Close()
	})
}

// FailGenerate makes POST /generate answer with code; 0 restores success.
func (b *Backend) FailGenerate(code int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generateErr = code
}

// QueueIDs fixes the ids handed out by POST /generate, in order.
func (b *Backend) QueueIDs(ids ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generateIDs = append(b.generateIDs, ids...)
}

// FailHistory makes GET /history answer with code; 0 restores success.
func (b *Backend) FailHistory(code int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.historyErr = code
}

// FailCatalog makes GET /frameworks and /categories answer with code.
func (b *Backend) FailCatalog(code int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.catalogErr = code
}

// SetHistory replaces the history served, newest first.
func (b *Backend) SetHistory(entries ...backend.HistoryEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append([]backend.HistoryEntry(nil), entries...)
}

// SetArtifact sets the bytes served by /download/{id}.
func (b *Backend) SetArtifact(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.artifact = data
}

// Script sets what /ws/{id} sends.
func (b *Backend) Script(id string, s Script) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scripts[id] = s
}

// Push queues a frame for a held channel.
func (b *Backend) Push(id, frame string) {
	b.pushChan(id) <- frame
}

// Connects returns how many times /ws/{id} was opened.
func (b *Backend) Connects(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connects[id]
}

// Requests returns the recorded requests matching path, or all when empty.
func (b *Backend) Requests(path string) []Request {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Request
	for _, r := range b.requests {
		if path == "" || r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (b *Backend) pushChan(id string) chan string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.pushes[id]
	if !ok {
		ch = make(chan string, 64)
		b.pushes[id] = ch
	}
	return ch
}

func (b *Backend) record(c *gin.Context) {
	var body []byte
	if c.Request.Body != nil {
		body, _ = io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
	}

	b.mu.Lock()
	b.requests = append(b.requests, Request{
		Method: c.Request.Method,
		Path:   c.Request.URL.Path,
		Query:  c.Request.URL.RawQuery,
		Body:   string(body),
	})
	b.mu.Unlock()

	c.Next()
}

func (b *Backend) handleGenerate(c *gin.Context) {
	b.mu.Lock()
	code := b.generateErr
	var id string
	if len(b.generateIDs) > 0 {
		id, b.generateIDs = b.generateIDs[0], b.generateIDs[1:]
	} else {
		b.nextID++
		id = "gen-" + strconv.Itoa(b.nextID)
	}
	b.mu.Unlock()

	if code != 0 {
		c.JSON(code, gin.H{"detail": "Generation failed: engine unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"generation_id":  id,
		"status":         "queued",
		"message":        "APK generation started successfully",
		"estimated_time": 180,
	})
}

func (b *Backend) handleFrameworks(c *gin.Context) {
	b.mu.Lock()
	code, fws := b.catalogErr, b.frameworks
	b.mu.Unlock()

	if code != 0 {
		c.JSON(code, gin.H{"detail": "catalog unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"frameworks": fws})
}

func (b *Backend) handleCategories(c *gin.Context) {
	b.mu.Lock()
	code, cats := b.catalogErr, b.categories
	b.mu.Unlock()

	if code != 0 {
		c.JSON(code, gin.H{"detail": "catalog unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

func (b *Backend) handleHistory(c *gin.Context) {
	b.mu.Lock()
	code, entries := b.historyErr, b.history
	b.mu.Unlock()

	if code != 0 {
		c.JSON(code, gin.H{"detail": "history unavailable"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid limit"})
		return
	}
	total := len(entries)
	if limit < len(entries) {
		entries = entries[:limit]
	}
	c.JSON(http.StatusOK, gin.H{"generations": entries, "total": total})
}

func (b *Backend) handleStatus(c *gin.Context) {
	id := c.Param("id")
	if id == "missing" {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Generation not found"})
		return
	}
	c.JSON(http.StatusOK, backend.GenerationStatus{
		GenerationID: id,
		Status:       "processing",
		Progress:     40,
		CurrentStage: "Generating application architecture",
	})
}

func (b *Backend) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, backend.Health{
		Status:       "healthy",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		EngineStatus: "operational",
	})
}

func (b *Backend) handleDownload(c *gin.Context) {
	b.mu.Lock()
	data := b.artifact
	b.mu.Unlock()

	if data == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Generation not found or not completed"})
		return
	}
	c.Data(http.StatusOK, "application/vnd.android.package-archive", data)
}

func (b *Backend) handleWS(c *gin.Context) {
	id := c.Param("id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	b.mu.Lock()
	script := b.scripts[id]
	b.connects[id]++
	b.mu.Unlock()
	push := b.pushChan(id)

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for _, frame := range script.Frames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			return
		}
	}

	switch script.End {
	case EndClose:
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		select {
		case <-gone:
		case <-time.After(2 * time.Second):
		}
	case EndDrop:
		return
	default:
		for {
			select {
			case frame := <-push:
				if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
					return
				}
			case <-gone:
				return
			case <-b.done:
				return
			}
		}
	}
}
