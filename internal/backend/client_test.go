package backend_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/Text2APK/client/internal/backend"
	"github.com/GriffinCanCode/Text2APK/client/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/Text2APK/client/internal/infrastructure/resilience"
	fake "github.com/GriffinCanCode/Text2APK/client/internal/testutil"
)

func newClient(t *testing.T, fb *fake.Backend, mutate ...func(*backend.Options)) *backend.Client {
	t.Helper()
	opts := backend.Options{BaseURL: fb.URL() + "/", Timeout: 5 * time.Second}
	for _, m := range mutate {
		m(&opts)
	}
	client, err := backend.New(opts)
	require.NoError(t, err)
	return client
}

func TestNewValidatesBaseURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "empty", url: ""},
		{name: "bad scheme", url: "ftp://example.com"},
		{name: "no host", url: "http://"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := backend.New(backend.Options{BaseURL: tt.url})
			assert.Error(t, err)
		})
	}
}

func TestURLs(t *testing.T) {
	tests := []struct {
		name     string
		opts     backend.Options
		wantBase string
		wantWS   string
	}{
		{
			name:     "derives ws from http",
			opts:     backend.Options{BaseURL: "http://localhost:8000/"},
			wantBase: "http://localhost:8000",
			wantWS:   "ws://localhost:8000",
		},
		{
			name:     "derives wss from https",
			opts:     backend.Options{BaseURL: "https://apk.example.com/api"},
			wantBase: "https://apk.example.com/api",
			wantWS:   "wss://apk.example.com/api",
		},
		{
			name:     "explicit ws url wins",
			opts:     backend.Options{BaseURL: "http://a:8000", WebSocketURL: "ws://b:9000/"},
			wantBase: "http://a:8000",
			wantWS:   "ws://b:9000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := backend.New(tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBase, c.BaseURL())
			assert.Equal(t, tt.wantWS, c.WebSocketURL())
		})
	}

	c, err := backend.New(backend.Options{BaseURL: "http://localhost:8000"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/download/g1", c.DownloadURL("g1"))
	assert.Equal(t, "http://localhost:8000/download/a%2Fb", c.DownloadURL("a/b"))
}

func TestCreateGeneration(t *testing.T) {
	fb := fake.NewBackend(t)
	fb.QueueIDs("g1", "g2")
	metrics := monitoring.NewMetrics()
	client := newClient(t, fb, func(o *backend.Options) {
		o.UserID = "user-7"
		o.Metrics = metrics
	})
	ctx := context.Background()

	t.Run("auto-select sends null preferences", func(t *testing.T) {
		resp, err := client.CreateGeneration(ctx, backend.GenerateRequest{Prompt: "Create a simple calculator app"})
		require.NoError(t, err)
		assert.Equal(t, "g1", resp.GenerationID)
		assert.Equal(t, "queued", resp.Status)

		reqs := fb.Requests("/generate")
		require.Len(t, reqs, 1)
		assert.JSONEq(t,
			`{"prompt":"Create a simple calculator app","user_preferences":null,"user_id":"user-7"}`,
			reqs[0].Body)
	})

	t.Run("framework preference is forwarded", func(t *testing.T) {
		resp, err := client.CreateGeneration(ctx, backend.GenerateRequest{Prompt: "A todo list", Framework: "flutter"})
		require.NoError(t, err)
		assert.Equal(t, "g2", resp.GenerationID)

		reqs := fb.Requests("/generate")
		require.Len(t, reqs, 2)
		assert.JSONEq(t,
			`{"prompt":"A todo list","user_preferences":{"framework":"flutter"},"user_id":"user-7"}`,
			reqs[1].Body)
	})

	t.Run("server error carries detail", func(t *testing.T) {
		fb.FailGenerate(http.StatusInternalServerError)
		defer fb.FailGenerate(0)

		_, err := client.CreateGeneration(ctx, backend.GenerateRequest{Prompt: "A todo list"})
		var se *backend.StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusInternalServerError, se.Code)
		assert.Equal(t, "Generation failed: engine unavailable", se.Detail)
		assert.True(t, se.Temporary())
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.BackendRequests.WithLabelValues("generate", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BackendRequests.WithLabelValues("generate", "500")))
}

func TestCatalogEndpoints(t *testing.T) {
	fb := fake.NewBackend(t)
	client := newClient(t, fb)
	ctx := context.Background()

	fws, err := client.Frameworks(ctx)
	require.NoError(t, err)
	require.Len(t, fws, 2)
	assert.Equal(t, backend.Framework{ID: "react_native", Name: "React Native"}, fws[0])

	cats, err := client.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "productivity", cats[0].ID)

	fb.FailCatalog(http.StatusServiceUnavailable)
	_, err = client.Frameworks(ctx)
	assert.Error(t, err)
}

func TestHistory(t *testing.T) {
	fb := fake.NewBackend(t)
	fb.SetHistory(
		backend.HistoryEntry{ID: "g3", Prompt: "third", Status: "completed", Framework: "flutter", CreatedAt: "2024-05-03T10:00:00"},
		backend.HistoryEntry{ID: "g2", Prompt: "second", Status: "failed", CreatedAt: "2024-05-02T10:00:00"},
		backend.HistoryEntry{ID: "g1", Prompt: "first", Status: "completed", CreatedAt: "2024-05-01T10:00:00"},
	)
	client := newClient(t, fb, func(o *backend.Options) { o.UserID = "u1" })

	entries, err := client.History(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "g3", entries[0].ID)
	assert.Equal(t, "flutter", entries[0].RequestedFramework())

	reqs := fb.Requests("/history")
	require.Len(t, reqs, 1)
	assert.Equal(t, "limit=2&user_id=u1", reqs[0].Query)
}

func TestStatusAndHealth(t *testing.T) {
	fb := fake.NewBackend(t)
	client := newClient(t, fb)
	ctx := context.Background()

	st, err := client.Status(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", st.GenerationID)
	assert.Equal(t, 40, st.Progress)

	_, err = client.Status(ctx, "missing")
	assert.ErrorIs(t, err, backend.ErrGenerationNotFound)

	h, err := client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
}

func TestDownload(t *testing.T) {
	fb := fake.NewBackend(t)
	client := newClient(t, fb)
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("missing artifact", func(t *testing.T) {
		dest := filepath.Join(dir, "missing.apk")
		_, err := client.Download(ctx, "g1", dest)
		assert.ErrorIs(t, err, backend.ErrGenerationNotFound)
		assert.NoFileExists(t, dest)
	})

	t.Run("zip payload", func(t *testing.T) {
		fb.SetArtifact(fake.APK(t))
		dest := filepath.Join(dir, "app.apk")

		mime, err := client.Download(ctx, "g1", dest)
		require.NoError(t, err)
		assert.NotEmpty(t, mime)
		assert.FileExists(t, dest)
	})

	t.Run("non archive payload is rejected", func(t *testing.T) {
		fb.SetArtifact([]byte("<html>oops</html>"))
		dest := filepath.Join(dir, "bad.apk")

		_, err := client.Download(ctx, "g1", dest)
		assert.ErrorIs(t, err, backend.ErrNotArchive)
		_, statErr := os.Stat(dest)
		assert.True(t, os.IsNotExist(statErr))
	})
}

func TestBreakerFailsFast(t *testing.T) {
	fb := fake.NewBackend(t)
	fb.FailGenerate(http.StatusBadGateway)
	breaker := resilience.New("test", resilience.Settings{
		Timeout:     time.Minute,
		ReadyToTrip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 2 },
	})
	client := newClient(t, fb, func(o *backend.Options) { o.Breaker = breaker })
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := client.CreateGeneration(ctx, backend.GenerateRequest{Prompt: "p"})
		require.Error(t, err)
	}
	require.Equal(t, resilience.StateOpen, client.BreakerState())

	_, err := client.CreateGeneration(ctx, backend.GenerateRequest{Prompt: "p"})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	// the open breaker never reached the server
	assert.Len(t, fb.Requests("/generate"), 2)
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	fb := fake.NewBackend(t)
	fb.FailGenerate(http.StatusBadRequest)
	breaker := resilience.New("test", resilience.Settings{
		ReadyToTrip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 1 },
	})
	client := newClient(t, fb, func(o *backend.Options) { o.Breaker = breaker })

	for i := 0; i < 3; i++ {
		_, err := client.CreateGeneration(context.Background(), backend.GenerateRequest{Prompt: "p"})
		var se *backend.StatusError
		require.True(t, errors.As(err, &se))
		assert.False(t, se.Temporary())
	}
	assert.Equal(t, resilience.StateClosed, client.BreakerState())
	assert.Zero(t, breaker.Counts().TotalFailures)
	assert.Len(t, fb.Requests("/generate"), 3)

	// the same injected breaker still counts server errors
	fb.FailGenerate(http.StatusServiceUnavailable)
	_, err := client.CreateGeneration(context.Background(), backend.GenerateRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, resilience.StateOpen, client.BreakerState())
}

func TestBreakerStatus(t *testing.T) {
	fb := fake.NewBackend(t)
	fb.FailGenerate(http.StatusBadGateway)
	client := newClient(t, fb)

	_, err := client.CreateGeneration(context.Background(), backend.GenerateRequest{Prompt: "p"})
	require.Error(t, err)

	status := client.BreakerStatus()
	assert.Equal(t, "generation-backend", status.Name)
	assert.Equal(t, "closed", status.State)
	assert.Equal(t, uint32(1), status.Requests)
	assert.Equal(t, uint32(1), status.ConsecutiveFailures)
}

func TestRateLimitHonorsContext(t *testing.T) {
	fb := fake.NewBackend(t)
	client := newClient(t, fb, func(o *backend.Options) { o.RequestsPerSecond = 0.01 })

	_, err := client.Health(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Health(ctx)
	assert.ErrorContains(t, err, "rate limit")
}
