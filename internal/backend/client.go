package backend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/Text2APK/client/internal/infrastructure/logging"
	"github.com/GriffinCanCode/Text2APK/client/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/Text2APK/client/internal/infrastructure/resilience"
)

const userAgent = "Text2APK-genctl/1.0"

// Options configures a Client.
type Options struct {
	BaseURL           string
	WebSocketURL      string
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 = unlimited
	UserID            string
	Logger            *logging.Logger
	Metrics           *monitoring.Metrics
	Breaker           *resilience.Breaker
}

// Client talks to the generation backend. Requests are rate limited and
// guarded by a circuit breaker; nothing is retried automatically.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	logger  *logging.Logger
	metrics *monitoring.Metrics

	baseURL string
	wsURL   string
	userID  string
}

// New creates a backend client.
func New(opts Options) (*Client, error) {
	base, err := normalizeBase(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	wsURL := strings.TrimRight(opts.WebSocketURL, "/")
	if wsURL == "" {
		wsURL, err = deriveWebSocketURL(base)
		if err != nil {
			return nil, err
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Pooled transport only; retries stay off
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.Logger = nil

	restyClient := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetTransport(retryClient.HTTPClient.Transport).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)

	breaker := opts.Breaker
	if breaker == nil {
		breaker = NewBreaker(opts.Logger)
	}

	return &Client{
		resty:   restyClient,
		limiter: newLimiter(opts.RequestsPerSecond),
		breaker: breaker,
		logger:  logging.OrNop(opts.Logger).Component("backend"),
		metrics: opts.Metrics,
		baseURL: base,
		wsURL:   wsURL,
		userID:  opts.UserID,
	}, nil
}

// NewBreaker returns the breaker used for backend calls.
func NewBreaker(logger *logging.Logger) *resilience.Breaker {
	log := logging.OrNop(logger)
	return resilience.New("generation-backend", resilience.Settings{
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsFailure: countsAsFailure,
		OnStateChange: func(name string, from, to resilience.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// BaseURL returns the normalized HTTP base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// WebSocketURL returns the base URL used for progress channels.
func (c *Client) WebSocketURL() string {
	return c.wsURL
}

// BreakerState exposes the circuit breaker state for health reporting.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// BreakerStatus summarizes the circuit breaker for the health endpoint.
type BreakerStatus struct {
	Name                string `json:"name"`
	State               string `json:"state"`
	Requests            uint32 `json:"requests"`
	ConsecutiveFailures uint32 `json:"consecutive_failures"`
}

// BreakerStatus reports the breaker's name, state and current window counts.
func (c *Client) BreakerStatus() BreakerStatus {
	state := c.breaker.State()
	counts := c.breaker.Counts()
	return BreakerStatus{
		Name:                c.breaker.Name(),
		State:               state.String(),
		Requests:            counts.Requests,
		ConsecutiveFailures: counts.ConsecutiveFailures,
	}
}

// DownloadURL builds the artifact locator for a generation. It performs no I/O.
func (c *Client) DownloadURL(generationID string) string {
	return c.baseURL + "/download/" + url.PathEscape(generationID)
}

// do sends one request through the limiter and the breaker.
func (c *Client) do(ctx context.Context, endpoint, method, path string, prepare func(*resty.Request)) (*resty.Response, error) {
	// An open breaker should not hold a limiter token
	if err := c.breaker.Allow(); err != nil {
		c.metrics.RecordBackendRequest(endpoint, "circuit_open", 0)
		return nil, fmt.Errorf("generation backend unavailable: %w", err)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	timer := monitoring.NewTimer(c.metrics, endpoint)

	// Errors the backend is not to blame for bypass the breaker's accounting,
	// whatever IsFailure the breaker was built with.
	var callerErr error
	resp, err := resilience.Do(c.breaker, func() (*resty.Response, error) {
		req := c.resty.R().
			SetContext(ctx).
			SetHeader("X-Request-ID", uuid.NewString())
		if prepare != nil {
			prepare(req)
		}

		resp, err := req.Execute(method, path)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}
		if resp.IsError() {
			statusErr := newStatusError(resp)
			if !countsAsFailure(statusErr) {
				callerErr = statusErr
				return resp, nil
			}
			return resp, statusErr
		}
		return resp, nil
	})
	if err == nil && callerErr != nil {
		err = callerErr
	}

	switch {
	case resp != nil:
		timer.Stop(strconv.Itoa(resp.StatusCode()))
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		timer.Stop("circuit_open")
		err = fmt.Errorf("generation backend unavailable: %w", err)
	default:
		timer.Stop("error")
	}

	if err != nil {
		c.logger.Debug("Backend request failed",
			zap.String("endpoint", endpoint),
			zap.String("method", method),
			zap.Error(err),
		)
	}
	return resp, err
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(rps), int(math.Max(1, math.Ceil(rps))))
}

func normalizeBase(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid backend url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid backend url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid backend url %q: missing host", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

func deriveWebSocketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return strings.TrimRight(u.String(), "/"), nil
}

func isNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}
