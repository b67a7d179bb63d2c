package worker

import (
	"github.com/okian/ordertriage/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithNoticeHandler forwards system and emergency messages to h.
func WithNoticeHandler(h NoticeHandler) Option {
	return func(w *InMemoryWorker) {
		w.notice = h
	}
}

func withApplyHook(fn func()) Option {
	return func(w *InMemoryWorker) {
		w.onApply = fn
	}
}
