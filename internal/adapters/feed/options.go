package feed

import (
	"net/http"
	"time"

	"github.com/okian/ordertriage/pkg/logger"
)

// Option applies a configuration option to the Subscriber.
type Option func(*Subscriber)

// WithBackoff sets the reconnect policy.
func WithBackoff(b Backoff) Option {
	return func(s *Subscriber) {
		s.backoff = b
	}
}

// WithHTTPClient sets the client used for the upgrade handshake.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Subscriber) {
		s.httpClient = c
	}
}

// WithToken sends a bearer token on the handshake.
func WithToken(token string) Option {
	return func(s *Subscriber) {
		if token == "" {
			return
		}
		if s.header == nil {
			s.header = http.Header{}
		}
		s.header.Set("Authorization", "Bearer "+token)
	}
}

// WithPingInterval sets the keepalive period; 0 disables it.
func WithPingInterval(d time.Duration) Option {
	return func(s *Subscriber) {
		s.pingInterval = d
	}
}

// WithStableAfter sets how long a connection must stay up before it resets
// the reconnect policy.
func WithStableAfter(d time.Duration) Option {
	return func(s *Subscriber) {
		if d >= 0 {
			s.stableAfter = d
		}
	}
}

// WithLocation sets the zone naive timestamps in payloads are read in.
func WithLocation(loc *time.Location) Option {
	return func(s *Subscriber) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithRand replaces the jitter source; fn must return values in [0,1).
func WithRand(fn func() float64) Option {
	return func(s *Subscriber) {
		s.rnd = fn
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Subscriber) {
		if l != nil {
			s.logger = l
		}
	}
}
