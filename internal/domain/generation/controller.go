package generation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/Text2APK/client/internal/backend"
	"github.com/GriffinCanCode/Text2APK/client/internal/infrastructure/logging"
	"github.com/GriffinCanCode/Text2APK/client/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/Text2APK/client/internal/ws"
)

// AutoFramework is accepted as an explicit request for auto-selection.
const AutoFramework = "auto"

// Backend is the part of the generation backend the controller needs.
type Backend interface {
	CreateGeneration(ctx context.Context, req backend.GenerateRequest) (*backend.GenerateResponse, error)
	DownloadURL(generationID string) string
}

// ProgressChannel is a live subscription owned by the controller.
type ProgressChannel interface {
	Events() <-chan ws.Event
	Close() error
}

// ChannelOpener opens a progress channel for a generation id.
type ChannelOpener interface {
	Open(ctx context.Context, generationID string) (ProgressChannel, error)
}

// OpenerFunc adapts a function to ChannelOpener.
type OpenerFunc func(ctx context.Context, generationID string) (ProgressChannel, error)

// Open implements ChannelOpener.
func (f OpenerFunc) Open(ctx context.Context, generationID string) (ProgressChannel, error) {
	return f(ctx, generationID)
}

// DialerOpener opens channels with a ws.Dialer.
func DialerOpener(d *ws.Dialer) ChannelOpener {
	return OpenerFunc(func(ctx context.Context, generationID string) (ProgressChannel, error) {
		ch, err := d.Open(ctx, generationID)
		if err != nil {
			return nil, err
		}
		return ch, nil
	})
}

// HistoryRefresher is refreshed once per completed session.
type HistoryRefresher interface {
	RefreshAfterCompletion(ctx context.Context) error
}

// FrameworkValidator decides whether a framework id may be requested.
type FrameworkValidator interface {
	Accepts(frameworkID string) bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithHistory sets the cache refreshed after completion.
func WithHistory(h HistoryRefresher) Option {
	return func(c *Controller) { c.history = h }
}

// WithCatalog validates framework preferences before submission.
func WithCatalog(v FrameworkValidator) Option {
	return func(c *Controller) { c.catalog = v }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) { c.logger = logging.OrNop(l).Component("session") }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithObserver registers fn to receive a snapshot after every state change.
// fn runs with the controller locked and must not call back into it.
func WithObserver(fn func(Session)) Option {
	return func(c *Controller) { c.observer = fn }
}

// WithRefreshTimeout bounds the post-completion history refresh.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Controller) { c.refreshTimeout = d }
}

// Controller owns the current generation session and its progress channel.
// All state lives behind one mutex; events are applied by a single pump
// goroutine per channel, in arrival order.
type Controller struct {
	api            Backend
	channels       ChannelOpener
	history        HistoryRefresher
	catalog        FrameworkValidator
	logger         *logging.Logger
	metrics        *monitoring.Metrics
	observer       func(Session)
	refreshTimeout time.Duration

	mu      sync.Mutex
	session Session
	channel ProgressChannel
	epoch   uint64
	pumps   sync.WaitGroup
}

// NewController creates an idle controller.
func NewController(api Backend, channels ChannelOpener, opts ...Option) *Controller {
	c := &Controller{
		api:            api,
		channels:       channels,
		logger:         logging.Nop(),
		refreshTimeout: 10 * time.Second,
		session:        Session{Status: StatusIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Submit starts a new generation, replacing any current session. The
// returned error is a *ValidationError, a *SubmissionError, a
// *ws.ChannelError or ErrSuperseded.
func (c *Controller) Submit(ctx context.Context, prompt, framework string) (Session, error) {
	if err := c.validate(prompt, framework); err != nil {
		c.metrics.RecordSubmission("invalid")
		c.mu.Lock()
		defer c.mu.Unlock()
		c.session.Validation = err.Error()
		c.notifyLocked()
		return c.session, err
	}
	framework = normalizeFramework(framework)

	c.mu.Lock()
	c.releaseLocked()
	c.epoch++
	epoch := c.epoch
	c.session = Session{
		Prompt:    prompt,
		Framework: framework,
		Status:    StatusSubmitting,
	}
	c.notifyLocked()
	c.mu.Unlock()

	resp, err := c.api.CreateGeneration(ctx, backend.GenerateRequest{Prompt: prompt, Framework: framework})

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return c.Snapshot(), ErrSuperseded
	}
	if err != nil {
		subErr := &SubmissionError{Err: err}
		c.metrics.RecordSubmission("rejected")
		c.failLocked(subErr.Error())
		snap := c.session
		c.mu.Unlock()
		return snap, subErr
	}

	c.session.ID = resp.GenerationID
	c.session.RemoteStatus = resp.Status
	c.session.Status = StatusProcessing
	c.notifyLocked()
	c.mu.Unlock()

	c.metrics.RecordSubmission("accepted")
	c.logger.Info("Generation submitted",
		zap.String("generation_id", resp.GenerationID),
		zap.String("framework", frameworkLabel(framework)),
	)

	ch, err := c.channels.Open(ctx, resp.GenerationID)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Opened after the session was replaced: fence and release it
	if c.epoch != epoch {
		if ch != nil {
			_ = ch.Close()
		}
		return c.session, ErrSuperseded
	}
	if err != nil {
		c.failLocked(connectionMessage(err))
		return c.session, err
	}

	c.channel = ch
	c.pumps.Add(1)
	go c.pump(ch)
	return c.session, nil
}

// Reset discards the current session and releases its channel.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.releaseLocked()
	c.epoch++
	c.session = Session{Status: StatusIdle}
	c.notifyLocked()
}

// Close resets the controller and waits for channel readers to stop.
func (c *Controller) Close() {
	c.Reset()
	c.pumps.Wait()
}

func (c *Controller) validate(prompt, framework string) error {
	if strings.TrimSpace(prompt) == "" {
		return &ValidationError{Field: "prompt", Message: "must not be empty"}
	}
	fw := normalizeFramework(framework)
	if fw != "" && c.catalog != nil && !c.catalog.Accepts(fw) {
		return &ValidationError{Field: "framework", Message: fmt.Sprintf("unknown framework %q", fw)}
	}
	return nil
}

// pump applies one channel's events until the channel ends.
func (c *Controller) pump(ch ProgressChannel) {
	defer c.pumps.Done()

	for ev := range ch.Events() {
		if c.apply(ch, ev) {
			c.refreshHistory()
		}
	}
}

// apply mutates the session for one event and reports whether the history
// cache should be refreshed.
func (c *Controller) apply(ch ProgressChannel, ev ws.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ch != c.channel {
		c.metrics.RecordChannelDropped("stale")
		c.logger.Debug("Discarding event from stale channel", zap.String("type", string(ev.Type)))
		return false
	}

	s := &c.session
	if s.Status.Terminal() {
		return false
	}

	switch ev.Type {
	case ws.EventStatusUpdate:
		if p := clampProgress(ev.Progress); p > s.Progress {
			s.Progress = p
		}
		if ev.CurrentStage != "" {
			s.Stage = ev.CurrentStage
		}
		if ev.Status != "" {
			s.RemoteStatus = ev.Status
		}
		if ev.Status == string(StatusFailed) {
			msg := ev.Warning
			if msg == "" {
				msg = "generation failed"
			}
			c.failLocked(msg)
			return false
		}
		if ev.Warning != "" {
			s.Error = ev.Warning
			c.metrics.IncWarnings()
			c.logger.Warn("Generation reported a warning",
				zap.String("generation_id", s.ID),
				zap.String("warning", ev.Warning),
			)
		}
		c.notifyLocked()

	case ws.EventCompleted:
		s.Status = StatusCompleted
		s.RemoteStatus = string(StatusCompleted)
		s.Progress = 100
		s.Stage = StageCompleted
		s.DownloadURL = c.api.DownloadURL(s.ID)
		if ev.AppName != "" {
			s.AppName = ev.AppName
		}
		c.releaseLocked()
		c.metrics.RecordSessionFinished(string(StatusCompleted))
		c.logger.Info("Generation completed",
			zap.String("generation_id", s.ID),
			zap.String("download_url", s.DownloadURL),
		)
		c.notifyLocked()
		return true

	case ws.EventError:
		c.failLocked(connectionMessage(ev.Err))

	case ws.EventPing:
	}
	return false
}

func (c *Controller) refreshHistory() {
	if c.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
	defer cancel()

	if err := c.history.RefreshAfterCompletion(ctx); err != nil {
		c.logger.Debug("History refresh after completion failed", zap.Error(err))
	}
}

func (c *Controller) failLocked(msg string) {
	c.session.Status = StatusFailed
	c.session.Error = msg
	c.releaseLocked()
	c.metrics.RecordSessionFinished(string(StatusFailed))
	c.logger.Warn("Generation failed",
		zap.String("generation_id", c.session.ID),
		zap.String("error", msg),
	)
	c.notifyLocked()
}

// releaseLocked closes the owned channel; any later event from it is fenced.
func (c *Controller) releaseLocked() {
	if c.channel == nil {
		return
	}
	ch := c.channel
	c.channel = nil
	if err := ch.Close(); err != nil {
		c.logger.Debug("Progress channel close failed", zap.Error(err))
	}
}

func (c *Controller) notifyLocked() {
	if c.observer != nil {
		c.observer(c.session)
	}
}

func normalizeFramework(fw string) string {
	fw = strings.TrimSpace(fw)
	if strings.EqualFold(fw, AutoFramework) {
		return ""
	}
	return fw
}

func frameworkLabel(fw string) string {
	if fw == "" {
		return AutoFramework
	}
	return fw
}

func connectionMessage(err error) string {
	return "connection error: " + err.Error()
}
