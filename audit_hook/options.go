package audithook

import (
	"log/slog"
	"slices"
)

// Option configures an Extension.
type Option func(*Extension)

// WithActions limits recording to the listed actions. Without it every
// action in [AllActions] is recorded. Names outside AllActions are dropped.
func WithActions(actions ...string) Option {
	return func(e *Extension) {
		e.enabled = make(map[string]struct{}, len(actions))
		for _, a := range actions {
			if slices.Contains(AllActions, a) {
				e.enabled[a] = struct{}{}
			}
		}
	}
}

// WithLogger sets the logger used to report recorder failures.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extension) {
		if l != nil {
			e.logger = l
		}
	}
}
