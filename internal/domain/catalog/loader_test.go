package catalog

import (
	"context"
	"errors"
	"net/http"
	"sync"
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

func (m *mockFetcher) Frameworks(ctx context.Context) ([]backend.Framework, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]backend.Framework), args.Error(1)
}

func (m *mockFetcher) Categories(ctx context.Context) ([]backend.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]backend.Category), args.Error(1)
}

func TestLoadOnceFetchesOnce(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("Frameworks", mock.Anything).Return([]backend.Framework{
		{ID: "react_native", Name: "React Native"},
		{ID: "flutter", Name: "Flutter"},
		{ID: "flutter", Name: "Flutter again"},
		{ID: "auto", Name: "Auto"},
		{ID: "kotlin"},
	}, nil).Once()
	fetcher.On("Categories", mock.Anything).Return([]backend.Category{
		{ID: "games", Name: "Games"},
	}, nil).Once()
	ld := NewLoader(fetcher)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, ld.LoadOnce(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, []Descriptor{
		{ID: "react_native", DisplayName: "React Native"},
		{ID: "flutter", DisplayName: "Flutter"},
		{ID: "kotlin", DisplayName: "kotlin"},
	}, ld.Frameworks())
	assert.Equal(t, []Descriptor{{ID: "games", DisplayName: "Games"}}, ld.Categories())
	fetcher.AssertExpectations(t)
}

func TestChoicesStartWithAuto(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("Frameworks", mock.Anything).Return([]backend.Framework{{ID: "flutter", Name: "Flutter"}}, nil)
	fetcher.On("Categories", mock.Anything).Return([]backend.Category{}, nil)
	ld := NewLoader(fetcher)

	assert.Equal(t, []Descriptor{Auto}, ld.Choices())

	require.NoError(t, ld.LoadOnce(context.Background()))
	choices := ld.Choices()
	require.Len(t, choices, 2)
	assert.Equal(t, Auto, choices[0])
	assert.Equal(t, "flutter", choices[1].ID)

	d, ok := ld.Lookup("flutter")
	assert.True(t, ok)
	assert.Equal(t, "Flutter", d.DisplayName)
	_, ok = ld.Lookup("swing")
	assert.False(t, ok)
}

func TestAccepts(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("Frameworks", mock.Anything).Return([]backend.Framework{{ID: "flutter", Name: "Flutter"}}, nil)
	fetcher.On("Categories", mock.Anything).Return([]backend.Category{}, nil)
	ld := NewLoader(fetcher)

	// nothing to check against yet
	assert.True(t, ld.Accepts("anything"))

	require.NoError(t, ld.LoadOnce(context.Background()))
	assert.True(t, ld.Accepts(""))
	assert.True(t, ld.Accepts(AutoID))
	assert.True(t, ld.Accepts("flutter"))
	assert.False(t, ld.Accepts("swing"))
}

func TestFailureIsNonFatal(t *testing.T) {
	boom := errors.New("connection refused")
	fetcher := new(mockFetcher)
	fetcher.On("Frameworks", mock.Anything).Return(nil, boom).Once()
	fetcher.On("Categories", mock.Anything).Return([]backend.Category{{ID: "games", Name: "Games"}}, nil).Once()
	metrics := monitoring.NewMetrics()
	ld := NewLoader(fetcher, WithMetrics(metrics))

	err := ld.LoadOnce(context.Background())
	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "frameworks", ferr.Resource)
	assert.ErrorIs(t, err, boom)

	assert.Empty(t, ld.Frameworks())
	assert.Equal(t, []Descriptor{Auto}, ld.Choices())
	assert.Len(t, ld.Categories(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CatalogLoads.WithLabelValues("error")))

	// no retry
	assert.ErrorIs(t, ld.LoadOnce(context.Background()), boom)
	fetcher.AssertExpectations(t)
}

func TestLoadFromBackend(t *testing.T) {
	fb := fake.NewBackend(t)
	client, err := backend.New(backend.Options{BaseURL: fb.URL(), Timeout: 5 * time.Second})
	require.NoError(t, err)

	ld := NewLoader(client)
	require.NoError(t, ld.LoadOnce(context.Background()))
	assert.Len(t, ld.Frameworks(), 2)
	assert.Len(t, ld.Categories(), 1)

	failing := fake.NewBackend(t)
	failing.FailCatalog(http.StatusServiceUnavailable)
	client, err = backend.New(backend.Options{BaseURL: failing.URL(), Timeout: 5 * time.Second})
	require.NoError(t, err)

	empty := NewLoader(client)
	assert.Error(t, empty.LoadOnce(context.Background()))
	assert.Equal(t, []Descriptor{Auto}, empty.Choices())
	assert.Len(t, failing.Requests("/frameworks"), 1)
}
