package repository

import "time"

// Option applies a configuration option to the BoardStore.
type Option func(*BoardStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *BoardStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}
