package extensions

import (
	"log/slog"

	observe "github.com/substrate-fn/observe"
)

// LoggingHook logs scheduler activity through slog. Successful
// recomputes, commits and callback firings log at Debug; contained
// recompute failures, which are otherwise invisible to callers, log at
// Error.
//
// Usage:
//
//	hook := extensions.NewLoggingHook(slog.NewJSONHandler(os.Stderr, nil))
//	m := observe.New(observe.WithHook(hook))
type LoggingHook struct {
	observe.BaseHook
	logger *slog.Logger
}

// NewLoggingHook creates a logging hook writing to the given handler.
func NewLoggingHook(handler slog.Handler) *LoggingHook {
	return &LoggingHook{
		BaseHook: observe.NewBaseHook("logging"),
		logger:   slog.New(handler),
	}
}

func (h *LoggingHook) OnRecompute(ev observe.RecomputeEvent) {
	if ev.Err != nil {
		h.logger.Error("recompute failed",
			"node", ev.Node.Name,
			"id", ev.Node.ID,
			"round", ev.Round,
			"duration", ev.Duration,
			"error", ev.Err,
		)
		return
	}
	h.logger.Debug("recompute",
		"node", ev.Node.Name,
		"id", ev.Node.ID,
		"round", ev.Round,
		"duration", ev.Duration,
	)
}

func (h *LoggingHook) OnCommit(ev observe.CommitEvent) {
	h.logger.Debug("commit",
		"node", ev.Node.Name,
		"id", ev.Node.ID,
		"version", ev.Version,
	)
}

func (h *LoggingHook) OnCallback(ev observe.CallbackEvent) {
	h.logger.Debug("callback",
		"node", ev.Node.Name,
		"id", ev.Node.ID,
		"version", ev.Version,
		"duration", ev.Duration,
	)
}
