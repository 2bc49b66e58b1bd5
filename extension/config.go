package extension

import "github.com/xraph/taskhub"

// Config holds configuration for the taskhub Forge extension.
type Config struct {
	// Hub holds the worker settings shared by every hub the extension builds.
	Hub taskhub.Config `json:"hub"`

	// DisableAutoStart leaves the runtime built but idle when the Forge
	// app starts. Call Runtime().Start yourself.
	DisableAutoStart bool `json:"disable_auto_start"`

	// RequireConfig makes Register fail when neither "extensions.taskhub"
	// nor "taskhub" is present in the app configuration.
	RequireConfig bool `json:"-"`
}

// DefaultConfig returns the extension defaults.
func DefaultConfig() Config {
	return Config{Hub: taskhub.DefaultConfig()}
}
