package history

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/Text2APK/client/internal/backend"
	"github.com/GriffinCanCode/Text2APK/client/internal/infrastructure/monitoring"
	fake "github.com/GriffinCanCode/Text2APK/client/internal/testutil"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) History(ctx context.Context, limit int) ([]backend.HistoryEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]backend.HistoryEntry), args.Error(1)
}

func entry(id, status, createdAt string) backend.HistoryEntry {
	return backend.HistoryEntry{
		ID:        id,
		Prompt:    "prompt for " + id,
		Framework: "react_native",
		Status:    status,
		CreatedAt: createdAt,
	}
}

func ids(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestLoadReplacesWholesale(t *testing.T) {
	fetcher := new(mockFetcher)
	metrics := monitoring.NewMetrics()
	cache := NewCache(fetcher, WithMetrics(metrics))

	fetcher.On("History", mock.Anything, 5).Return([]backend.HistoryEntry{
		entry("a", "completed", "2026-03-01T10:00:00Z"),
		entry("b", "failed", "2026-03-01T09:00:00Z"),
	}, nil).Once()
	require.NoError(t, cache.Load(context.Background(), 5))
	assert.Equal(t, []string{"a", "b"}, ids(cache.Records()))

	fetcher.On("History", mock.Anything, 5).Return([]backend.HistoryEntry{
		entry("c", "completed", "2026-03-02T10:00:00Z"),
	}, nil).Once()
	require.NoError(t, cache.Load(context.Background(), 5))
	assert.Equal(t, []string{"c"}, ids(cache.Records()))

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.HistoryRefreshes.WithLabelValues("ok")))
	assert.False(t, cache.LoadedAt().IsZero())
	fetcher.AssertExpectations(t)
}

func TestLoadDefaultsLimit(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("History", mock.Anything, DefaultLimit).Return([]backend.HistoryEntry{}, nil)
	cache := NewCache(fetcher)

	require.NoError(t, cache.Load(context.Background(), 0))
	assert.Equal(t, DefaultLimit, cache.Limit())
	assert.Empty(t, cache.Records())
	fetcher.AssertExpectations(t)
}

func TestLoadOrdersByRecencyAndTruncates(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("History", mock.Anything, 2).Return([]backend.HistoryEntry{
		entry("old", "completed", "2026-01-01T00:00:00Z"),
		entry("newest", "processing", "2026-01-03T00:00:00.123456"),
		entry("middle", "completed", "2026-01-02T00:00:00+02:00"),
	}, nil)
	cache := NewCache(fetcher)

	require.NoError(t, cache.Load(context.Background(), 2))
	assert.Equal(t, []string{"newest", "middle"}, ids(cache.Records()))
}

func TestRecordFields(t *testing.T) {
	long := strings.Repeat("build me a habit tracker ", 10)
	fetcher := new(mockFetcher)
	fetcher.On("History", mock.Anything, 5).Return([]backend.HistoryEntry{
		{
			ID:        "g1",
			AppName:   "Habits",
			Prompt:    long,
			Framework: "flutter",
			Status:    "completed",
			CreatedAt: "2026-03-01T10:00:00.5",
		},
		{
			ID:              "g2",
			Prompt:          "short\n prompt",
			Status:          "failed",
			CreatedAt:       "2026-02-01T10:00:00Z",
			UserPreferences: nil,
		},
	}, nil)
	cache := NewCache(fetcher)
	require.NoError(t, cache.Load(context.Background(), 5))

	records := cache.Records()
	require.Len(t, records, 2)

	r := records[0]
	assert.Equal(t, "Habits", r.AppName)
	assert.Equal(t, "flutter", r.Framework)
	assert.True(t, r.Downloadable)
	assert.True(t, strings.HasSuffix(r.PromptSnippet, "..."))
	assert.LessOrEqual(t, len([]rune(r.PromptSnippet)), SnippetLength+3)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 5e8, time.UTC), r.CreatedAt)

	assert.Equal(t, "short prompt", records[1].PromptSnippet)
	assert.False(t, records[1].Downloadable)
	assert.Empty(t, records[1].AppName)
}

func TestFailedLoadKeepsContents(t *testing.T) {
	fetcher := new(mockFetcher)
	metrics := monitoring.NewMetrics()
	cache := NewCache(fetcher, WithMetrics(metrics))

	fetcher.On("History", mock.Anything, 5).Return([]backend.HistoryEntry{
		entry("a", "completed", "2026-03-01T10:00:00Z"),
	}, nil).Once()
	require.NoError(t, cache.Load(context.Background(), 5))

	boom := errors.New("connection refused")
	fetcher.On("History", mock.Anything, 5).Return(nil, boom).Once()
	err := cache.Load(context.Background(), 5)

	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a"}, ids(cache.Records()))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HistoryRefreshes.WithLabelValues("error")))
}

func TestRefreshAfterCompletionReusesLimit(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("History", mock.Anything, 3).Return([]backend.HistoryEntry{}, nil).Twice()
	cache := NewCache(fetcher)

	require.NoError(t, cache.Load(context.Background(), 3))
	require.NoError(t, cache.RefreshAfterCompletion(context.Background()))
	fetcher.AssertExpectations(t)
}

func TestRecordsReturnsCopy(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("History", mock.Anything, 5).Return([]backend.HistoryEntry{
		entry("a", "completed", "2026-03-01T10:00:00Z"),
	}, nil)
	cache := NewCache(fetcher)
	require.NoError(t, cache.Load(context.Background(), 5))

	records := cache.Records()
	records[0].ID = "mutated"
	assert.Equal(t, "a", cache.Records()[0].ID)
}

func TestSnippet(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{in: "short", n: 10, want: "short"},
		{in: "  spaced \t out  ", n: 20, want: "spaced out"},
		{in: "abcdefghij", n: 4, want: "abcd..."},
		{in: "héllo wörld", n: 5, want: "héllo..."},
		{in: "two words", n: 4, want: "two..."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Snippet(tt.in, tt.n), tt.in)
	}
}

func TestLoadFromBackend(t *testing.T) {
	fb := fake.NewBackend(t)
	fb.SetHistory(
		entry("g3", "completed", "2026-03-03T10:00:00"),
		entry("g2", "failed", "2026-03-02T10:00:00"),
		entry("g1", "completed", "2026-03-01T10:00:00"),
	)
	client, err := backend.New(backend.Options{BaseURL: fb.URL(), Timeout: 5 * time.Second})
	require.NoError(t, err)

	cache := NewCache(client)
	require.NoError(t, cache.Load(context.Background(), 2))
	assert.Equal(t, []string{"g3", "g2"}, ids(cache.Records()))

	fb.FailHistory(http.StatusInternalServerError)
	assert.Error(t, cache.RefreshAfterCompletion(context.Background()))
	assert.Equal(t, []string{"g3", "g2"}, ids(cache.Records()))

	reqs := fb.Requests("/history")
	require.Len(t, reqs, 2)
	assert.Equal(t, "limit=2", reqs[1].Query)
}
