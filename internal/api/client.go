// Package api is the HTTP client for the duet backend's auth and account
// endpoints.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/duetapp/duet/internal/errors"
)

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Retries is the number of extra attempts for transient failures.
	Retries int
	// Debug logs each request and response at debug level.
	Debug      bool
	Logger     zerolog.Logger
	HTTPClient *http.Client
}

// Client talks to the backend. Methods return *errors.ClassifiedError for
// any non-2xx response or transport failure.
type Client struct {
	r   *resty.Client
	log zerolog.Logger
}

// New builds a Client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	log := cfg.Logger.With().Str("component", "api").Logger()

	var r *resty.Client
	if cfg.HTTPClient != nil {
		r = resty.NewWithClient(cfg.HTTPClient)
	} else {
		r = resty.New()
	}
	r.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout).
		SetLogger(restyLogger{log}).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			code := resp.StatusCode()
			return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
		})

	if cfg.Debug {
		r.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			req := resp.Request
			log.Debug().
				Str("method", req.Method).
				Str("url", req.URL).
				Int("status_code", resp.StatusCode()).
				Dur("elapsed", resp.Time()).
				Msg("HTTP response")
			return nil
		})
		r.OnError(func(req *resty.Request, err error) {
			log.Debug().Err(err).Str("method", req.Method).Str("url", req.URL).Msg("HTTP request failed")
		})
	}
	return &Client{r: r, log: log}
}

func (c *Client) request(ctx context.Context, token string) *resty.Request {
	req := c.r.R().SetContext(ctx)
	if token != "" {
		req.SetAuthToken(token)
	}
	return req
}

// check turns a resty outcome into a classified error.
func check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return errors.NewNetworkError(op, err)
	}
	if resp.IsError() {
		return errors.NewHTTPError(resp.StatusCode(), resp.String(), op)
	}
	return nil
}

type restyLogger struct{ log zerolog.Logger }

func (l restyLogger) Errorf(format string, v ...any) { l.log.Error().Msgf(format, v...) }
func (l restyLogger) Warnf(format string, v ...any)  { l.log.Warn().Msgf(format, v...) }
func (l restyLogger) Debugf(format string, v ...any) { l.log.Debug().Msgf(format, v...) }
