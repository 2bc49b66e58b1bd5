package relayhook

// Option configures an Extension.
type Option func(*Extension)

// PayloadFunc builds a custom payload for one event type. args is the
// default payload and the result becomes event.Event.Data.
type PayloadFunc func(args any) (any, error)

// WithEvents limits the extension to the listed event types. By default
// every event type is sent.
func WithEvents(events ...string) Option {
	return func(h *Extension) {
		h.enabled = make(map[string]bool, len(events))
		for _, e := range events {
			h.enabled[e] = true
		}
	}
}

// WithPayloadFunc replaces the default payload for eventType.
func WithPayloadFunc(eventType string, fn PayloadFunc) Option {
	return func(h *Extension) {
		if h.payloads == nil {
			h.payloads = make(map[string]PayloadFunc)
		}
		h.payloads[eventType] = fn
	}
}
