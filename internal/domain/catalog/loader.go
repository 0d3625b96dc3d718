package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/Text2APK/client/internal/backend"
	"github.com/GriffinCanCode/Text2APK/client/internal/infrastructure/logging"
	"github.com/GriffinCanCode/Text2APK/client/internal/infrastructure/monitoring"
)

// AutoID is the pseudo-framework meaning "let the backend choose".
const AutoID = "auto"

// Auto is always offered first by Choices.
var Auto = Descriptor{ID: AutoID, DisplayName: "Auto-select"}

// Fetcher reads the catalog from the backend.
type Fetcher interface {
	Frameworks(ctx context.Context) ([]backend.Framework, error)
	Categories(ctx context.Context) ([]backend.Category, error)
}

// Descriptor is an immutable framework or category entry.
type Descriptor struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
	Description string `json:"description,omitempty"`
}

// FetchError reports which part of the catalog failed to load.
type FetchError struct {
	Resource string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Resource, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(ld *Loader) { ld.logger = logging.OrNop(l).Component("catalog") }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(ld *Loader) { ld.metrics = m }
}

// Loader fetches the catalog at most once.
type Loader struct {
	fetcher Fetcher
	logger  *logging.Logger
	metrics *monitoring.Metrics

	once       sync.Once
	loadErr    error
	mu         sync.RWMutex
	frameworks []Descriptor
	categories []Descriptor
	index      map[string]Descriptor
}

// NewLoader creates an unloaded catalog.
func NewLoader(fetcher Fetcher, opts ...Option) *Loader {
	ld := &Loader{
		fetcher: fetcher,
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// LoadOnce fetches frameworks and categories on the first call. Later calls
// return the first call's result without touching the network. Failures
// are logged and leave the affected list empty.
func (ld *Loader) LoadOnce(ctx context.Context) error {
	ld.once.Do(func() {
		ld.loadErr = ld.load(ctx)
	})
	return ld.loadErr
}

func (ld *Loader) load(ctx context.Context) error {
	var errs []error

	fws, err := ld.fetcher.Frameworks(ctx)
	if err != nil {
		errs = append(errs, &FetchError{Resource: "frameworks", Err: err})
		ld.metrics.RecordCatalogLoad("error")
		ld.logger.Warn("Framework catalog unavailable, offering auto-select only", zap.Error(err))
	} else {
		ld.metrics.RecordCatalogLoad("ok")
	}

	cats, err := ld.fetcher.Categories(ctx)
	if err != nil {
		errs = append(errs, &FetchError{Resource: "categories", Err: err})
		ld.logger.Warn("Category catalog unavailable", zap.Error(err))
	}

	frameworks := make([]Descriptor, 0, len(fws))
	index := make(map[string]Descriptor, len(fws))
	for _, f := range fws {
		if f.ID == "" || f.ID == AutoID {
			continue
		}
		d := Descriptor{ID: f.ID, DisplayName: f.Name, Description: f.Description}
		if d.DisplayName == "" {
			d.DisplayName = f.ID
		}
		if _, dup := index[d.ID]; dup {
			continue
		}
		index[d.ID] = d
		frameworks = append(frameworks, d)
	}

	categories := make([]Descriptor, 0, len(cats))
	for _, c := range cats {
		categories = append(categories, Descriptor{ID: c.ID, DisplayName: c.Name, Description: c.Description})
	}

	ld.mu.Lock()
	ld.frameworks = frameworks
	ld.categories = categories
	ld.index = index
	ld.mu.Unlock()

	ld.logger.Info("Catalog loaded",
		zap.Int("frameworks", len(frameworks)),
		zap.Int("categories", len(categories)),
	)
	return errors.Join(errs...)
}

// Frameworks returns the loaded frameworks in backend order.
func (ld *Loader) Frameworks() []Descriptor {
	ld.mu.RLock()
	defer ld.mu.RUnlock()
	return slices.Clone(ld.frameworks)
}

// Categories returns the loaded categories.
func (ld *Loader) Categories() []Descriptor {
	ld.mu.RLock()
	defer ld.mu.RUnlock()
	return slices.Clone(ld.categories)
}

// Choices returns Auto followed by every loaded framework.
func (ld *Loader) Choices() []Descriptor {
	ld.mu.RLock()
	defer ld.mu.RUnlock()
	out := make([]Descriptor, 0, len(ld.frameworks)+1)
	out = append(out, Auto)
	return append(out, ld.frameworks...)
}

// Lookup finds a framework by id.
func (ld *Loader) Lookup(id string) (Descriptor, bool) {
	ld.mu.RLock()
	defer ld.mu.RUnlock()
	d, ok := ld.index[id]
	return d, ok
}

// Accepts reports whether id may be requested. Auto is always accepted; with
// an empty catalog nothing can be checked, so every id is.
func (ld *Loader) Accepts(id string) bool {
	if id == "" || id == AutoID {
		return true
	}
	ld.mu.RLock()
	defer ld.mu.RUnlock()
	if len(ld.index) == 0 {
		return true
	}
	_, ok := ld.index[id]
	return ok
}
