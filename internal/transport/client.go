package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client wraps an *http.Client with the pacing, retry, and decorrelated
// backoff discipline every outbound adapter in this module shares. It
// generalizes the teacher's generic GetJSON[T] retry loop
// (minis/08-http-client-retries): in addition to transport/decode failures,
// it recognizes a provider body that signals rate limiting and retries that
// the same way.
type Client struct {
	HTTP        *http.Client
	Pacer       *Pacer
	Backoff     *Backoff
	MaxRetries  int
	AdapterName string
	Logger      zerolog.Logger
}

// NewClient builds a Client with the spec's defaults (15s timeout, 5 retries).
func NewClient(adapterName string, requestsPerSecond float64, logger zerolog.Logger) *Client {
	return &Client{
		HTTP:        &http.Client{Timeout: 15 * time.Second},
		Pacer:       NewPacer(requestsPerSecond),
		Backoff:     NewBackoff(),
		MaxRetries:  5,
		AdapterName: adapterName,
		Logger:      logger,
	}
}

// Decoder inspects a successfully-fetched response body. It returns
// rateLimited=true when the provider body signals throttling (e.g. Etherscan's
// status="0" + "rate" message), in which case the call is retried exactly
// like a transport failure. Any other non-nil err is treated as a decode
// failure and also retried.
type Decoder func(body []byte) (rateLimited bool, err error)

// Get issues req, paced and retried, until decode succeeds, the provider
// stops signalling rate limiting, or MaxRetries is exhausted.
func (c *Client) Get(ctx context.Context, newRequest func(context.Context) (*http.Request, error), decode Decoder) error {
	var lastErr error

	for attempt := 0; attempt < c.MaxRetries; attempt++ {
		if err := c.Pacer.Wait(ctx); err != nil {
			return NewDataSourceError(c.AdapterName, err)
		}

		err := c.attempt(ctx, newRequest, decode)
		if err == nil {
			return nil
		}
		lastErr = err

		c.Logger.Debug().
			Str("adapter", c.AdapterName).
			Int("attempt", attempt).
			Err(err).
			Msg("request attempt failed")

		select {
		case <-time.After(c.Backoff.Duration(attempt)):
		case <-ctx.Done():
			return NewDataSourceError(c.AdapterName, ctx.Err())
		}
	}

	return NewDataSourceError(c.AdapterName, fmt.Errorf("exhausted %d retries: %w", c.MaxRetries, lastErr))
}

func (c *Client) attempt(ctx context.Context, newRequest func(context.Context) (*http.Request, error), decode Decoder) error {
	req, err := newRequest(ctx)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	rateLimited, err := decode(body)
	if rateLimited {
		return ErrRateLimited
	}
	if err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
