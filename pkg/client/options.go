package client

import (
	"net/http"
	"time"
)

// Option customizes a Client in NewClient.  Zero or invalid arguments
// leave the default in place.
type Option func(*Client)

// WithHTTPClient replaces the transport-level client, e.g. to add a proxy
// or mTLS.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each attempt.  The configured *http.Client is copied
// rather than modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			return
		}
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRetryMax caps retries of GET, PUT and DELETE.  Zero disables them.
func WithRetryMax(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retryMax = n
		}
	}
}

// WithRetryWait bounds the jittered backoff.  max is dropped when it is
// below min.
func WithRetryWait(min, max time.Duration) Option {
	return func(c *Client) {
		if min <= 0 {
			return
		}
		c.retryWaitMin = min
		if max >= min {
			c.retryWaitMax = max
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

//Personal.AI order the ending
