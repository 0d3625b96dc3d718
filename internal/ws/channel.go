package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/Text2APK/client/internal/infrastructure/logging"
	"github.com/GriffinCanCode/Text2APK/client/internal/infrastructure/monitoring"
)

const controlWait = time.Second

// DialerOptions configures a Dialer.
type DialerOptions struct {
	// BaseURL is the ws:// or wss:// root; channels live at BaseURL/ws/{id}.
	BaseURL          string
	HandshakeTimeout time.Duration
	// IdleTimeout fails the channel when no frame arrives for this long.
	// The backend pings every 30s. Zero disables the deadline.
	IdleTimeout time.Duration
	ReadLimit   int64
	Logger      *logging.Logger
	Metrics     *monitoring.Metrics
}

// Dialer opens progress channels.
type Dialer struct {
	base      string
	dialer    *websocket.Dialer
	idle      time.Duration
	readLimit int64
	logger    *logging.Logger
	metrics   *monitoring.Metrics
}

// NewDialer validates the base URL and returns a Dialer.
func NewDialer(opts DialerOptions) (*Dialer, error) {
	u, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid websocket url %q: %w", opts.BaseURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid websocket url %q: scheme must be ws or wss", opts.BaseURL)
	}

	handshake := opts.HandshakeTimeout
	if handshake <= 0 {
		handshake = 10 * time.Second
	}

	return &Dialer{
		base: strings.TrimRight(u.String(), "/"),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshake,
		},
		idle:      opts.IdleTimeout,
		readLimit: opts.ReadLimit,
		logger:    logging.OrNop(opts.Logger).Component("progress"),
		metrics:   opts.Metrics,
	}, nil
}

// URL returns the channel address for a generation.
func (d *Dialer) URL(generationID string) string {
	return d.base + "/ws/" + url.PathEscape(generationID)
}

// Open subscribes to progress for one generation. The returned channel owns
// a reader goroutine until Close is called or the connection ends.
func (d *Dialer) Open(ctx context.Context, generationID string) (*Channel, error) {
	target := d.URL(generationID)

	conn, resp, err := d.dialer.DialContext(ctx, target, http.Header{"User-Agent": {"Text2APK-genctl/1.0"}})
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (handshake status %d)", err, resp.StatusCode)
		}
		return nil, &ChannelError{GenerationID: generationID, Err: err}
	}
	if d.readLimit > 0 {
		conn.SetReadLimit(d.readLimit)
	}

	c := &Channel{
		id:      generationID,
		conn:    conn,
		events:  make(chan Event, 16),
		done:    make(chan struct{}),
		idle:    d.idle,
		logger:  d.logger.With(zap.String("generation_id", generationID)),
		metrics: d.metrics,
	}
	conn.SetPingHandler(c.handlePing)

	d.metrics.IncChannels()
	go c.readLoop()

	c.logger.Debug("Progress channel opened", zap.String("url", target))
	return c, nil
}

// Channel is one live, receive-only progress subscription.
type Channel struct {
	id      string
	conn    *websocket.Conn
	events  chan Event
	done    chan struct{}
	idle    time.Duration
	logger  *zap.Logger
	metrics *monitoring.Metrics

	closing   atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// GenerationID returns the id the channel was opened for.
func (c *Channel) GenerationID() string {
	return c.id
}

// Events returns the inbound stream. It is closed when the reader stops.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Close releases the connection. Safe to call any number of times; after
// Close no error event is emitted.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		close(c.done)

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(controlWait))
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *Channel) readLoop() {
	defer close(c.events)
	defer c.metrics.DecChannels()

	completed := false
	for {
		c.extendDeadline()

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			switch {
			case c.closing.Load():
			case completed:
				c.logger.Debug("Progress channel closed after completion")
			default:
				chErr := &ChannelError{GenerationID: c.id, Err: classify(err)}
				c.logger.Warn("Progress channel failed", zap.Error(chErr))
				c.emit(Event{Type: EventError, Err: chErr})
			}
			return
		}

		ev, err := ParseEvent(data)
		if err != nil {
			reason := "malformed"
			if errors.Is(err, errUnknownType) {
				reason = "unknown_type"
			}
			c.metrics.RecordChannelDropped(reason)
			c.logger.Warn("Dropping progress message",
				zap.String("reason", reason),
				zap.ByteString("payload", truncate(data, 256)),
				zap.Error(err),
			)
			continue
		}

		c.metrics.RecordChannelMessage(string(ev.Type))
		if ev.Type == EventCompleted {
			completed = true
		}
		if !c.emit(ev) {
			return
		}
	}
}

func (c *Channel) emit(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

func (c *Channel) extendDeadline() {
	if c.idle > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.idle))
	}
}

func (c *Channel) handlePing(appData string) error {
	c.extendDeadline()
	err := c.conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(controlWait))
	var ne net.Error
	if errors.Is(err, websocket.ErrCloseSent) || (errors.As(err, &ne) && ne.Timeout()) {
		return nil
	}
	return err
}

func classify(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return fmt.Errorf("%w: %v", ErrUnexpectedClose, err)
	}
	return err
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
