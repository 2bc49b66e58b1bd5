// Package config loads hub configuration through viper.
//
// Settings live under the "taskhub" key. Per-hub overrides live under
// "taskhub.hubs.<name>" and are layered over the shared settings:
//
//	taskhub:
//	  activity_concurrency: 8
//	  include_details: orchestrations
//	  hubs:
//	    billing:
//	      create_if_not_exists: true
//	      error_propagation_mode: failure_details
//	      shutdown_timeout: 10s
//
// Viper folds keys to lower case, so hub names in configuration files are
// case-insensitive even though hub lookups at runtime are not. Give hubs
// lower-case names when they are configured from files.
package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/xraph/taskhub"
)

const (
	// Root is the key all taskhub settings live under.
	Root = "taskhub"

	hubsKey = Root + ".hubs"
)

// SetDefaults registers the default hub settings with v.
func SetDefaults(v *viper.Viper) {
	d := taskhub.DefaultConfig()
	v.SetDefault(Root+".create_if_not_exists", d.CreateIfNotExists)
	v.SetDefault(Root+".include_details", d.IncludeDetails.String())
	v.SetDefault(Root+".error_propagation_mode", d.ErrorPropagationMode.String())
	v.SetDefault(Root+".orchestration_concurrency", d.OrchestrationConcurrency)
	v.SetDefault(Root+".activity_concurrency", d.ActivityConcurrency)
	v.SetDefault(Root+".dispatch_rate", d.DispatchRate)
	v.SetDefault(Root+".dispatch_burst", d.DispatchBurst)
	v.SetDefault(Root+".shutdown_timeout", d.ShutdownTimeout.String())
}

// Load returns the validated configuration of the named hub: the defaults,
// overlaid by the shared settings, overlaid by the hub's own section.
func Load(v *viper.Viper, name string) (taskhub.Config, error) {
	cfg := taskhub.DefaultConfig()
	if v.IsSet(Root) {
		if err := v.UnmarshalKey(Root, &cfg, decoderOptions); err != nil {
			return taskhub.Config{}, fmt.Errorf("taskhub/config: decode %s: %w", Root, err)
		}
	}
	if name != taskhub.DefaultName {
		key := hubKey(name)
		if v.IsSet(key) {
			if err := v.UnmarshalKey(key, &cfg, decoderOptions); err != nil {
				return taskhub.Config{}, fmt.Errorf("taskhub/config: decode %s: %w", key, err)
			}
		}
	}
	if err := cfg.Validate(); err != nil {
		return taskhub.Config{}, fmt.Errorf("taskhub/config: hub %q: %w", name, err)
	}
	return cfg, nil
}

// LoadAll loads every hub that has its own section, keyed by the hub name
// as viper reports it.
func LoadAll(v *viper.Viper) (map[string]taskhub.Config, error) {
	names := HubNames(v)
	out := make(map[string]taskhub.Config, len(names))
	for _, name := range names {
		cfg, err := Load(v, name)
		if err != nil {
			return nil, err
		}
		out[name] = cfg
	}
	return out, nil
}

// HubNames returns the names of the hubs with their own section, sorted.
func HubNames(v *viper.Viper) []string {
	hubs := v.GetStringMap(hubsKey)
	names := make([]string, 0, len(hubs))
	for name := range hubs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func hubKey(name string) string {
	return hubsKey + "." + strings.ToLower(name)
}

func decoderOptions(c *mapstructure.DecoderConfig) {
	c.DecodeHook = mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)
}
