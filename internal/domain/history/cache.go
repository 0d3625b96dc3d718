package history

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/Text2APK/client/internal/backend"
	"github.com/GriffinCanCode/Text2APK/client/internal/infrastructure/logging"
	"github.com/GriffinCanCode/Text2APK/client/internal/infrastructure/monitoring"
)

const (
	// DefaultLimit is the number of records loaded when none is given.
	DefaultLimit = 5
	// SnippetLength bounds PromptSnippet, in runes.
	SnippetLength = 100
)

// Fetcher reads past generations from the backend.
type Fetcher interface {
	History(ctx context.Context, limit int) ([]backend.HistoryEntry, error)
}

// Record is one immutable history row.
type Record struct {
	ID            string    `json:"id"`
	AppName       string    `json:"app_name,omitempty"`
	PromptSnippet string    `json:"prompt_snippet"`
	Framework     string    `json:"framework,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	Downloadable  bool      `json:"downloadable"`
}

// FetchError wraps a failed history load.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to load history: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Cache) { c.logger = logging.OrNop(l).Component("history") }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// Cache holds the most recent history records.
type Cache struct {
	fetcher Fetcher
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu      sync.RWMutex
	records []Record
	limit   int
	loaded  time.Time
	seq     uint64 // last issued load
	applied uint64 // last load whose result was kept
}

// NewCache creates an empty cache.
func NewCache(fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		fetcher: fetcher,
		logger:  logging.Nop(),
		limit:   DefaultLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches the newest limit records and replaces the cache. A limit
// below one means DefaultLimit. On failure the contents are kept.
func (c *Cache) Load(ctx context.Context, limit int) error {
	if limit < 1 {
		limit = DefaultLimit
	}

	c.mu.Lock()
	c.limit = limit
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	entries, err := c.fetcher.History(ctx, limit)
	if err != nil {
		c.metrics.RecordHistoryRefresh("error")
		c.logger.Warn("History fetch failed, keeping cached records",
			zap.Int("limit", limit),
			zap.Error(err),
		)
		return &FetchError{Err: err}
	}

	records := toRecords(entries, limit)

	c.mu.Lock()
	defer c.mu.Unlock()

	// A newer load already landed
	if seq < c.applied {
		c.metrics.RecordHistoryRefresh("stale")
		return nil
	}
	c.applied = seq
	c.records = records
	c.loaded = time.Now()
	c.metrics.RecordHistoryRefresh("ok")
	c.logger.Debug("History refreshed", zap.Int("records", len(records)))
	return nil
}

// RefreshAfterCompletion reloads with the limit of the previous load.
func (c *Cache) RefreshAfterCompletion(ctx context.Context) error {
	return c.Load(ctx, c.Limit())
}

// Records returns a copy of the cached records, newest first.
func (c *Cache) Records() []Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.records)
}

// Limit returns the limit used by the last load.
func (c *Cache) Limit() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.limit
}

// LoadedAt returns when the cache was last replaced, or the zero time.
func (c *Cache) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

func toRecords(entries []backend.HistoryEntry, limit int) []Record {
	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, Record{
			ID:            e.ID,
			AppName:       e.AppName,
			PromptSnippet: Snippet(e.Prompt, SnippetLength),
			Framework:     e.RequestedFramework(),
			Status:        e.Status,
			CreatedAt:     parseTime(e.CreatedAt),
			Downloadable:  e.Status == "completed",
		})
	}

	slices.SortStableFunc(records, func(a, b Record) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records
}

// Snippet shortens s to at most n runes, marking the cut with "...".
func Snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:n]), " ") + "..."
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// parseTime accepts the backend's ISO timestamps, with or without a zone.
// Zone-less values are taken as UTC.
func parseTime(raw string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
