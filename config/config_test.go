package config_test

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/xraph/taskhub"
	"github.com/xraph/taskhub/config"
)

const sample = `
taskhub:
  activity_concurrency: 16
  include_details: orchestrations
  dispatch_rate: 50
  dispatch_burst: 5
  hubs:
    billing:
      create_if_not_exists: true
      include_details: all
      error_propagation_mode: failure_details
      shutdown_timeout: 10s
    reports:
      orchestration_concurrency: 1
`

func readYAML(t *testing.T, doc string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(doc)); err != nil {
		t.Fatalf("read config: %v", err)
	}
	return v
}

func TestLoadDefaultsWithoutConfig(t *testing.T) {
	cfg, err := config.Load(viper.New(), "orders")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != taskhub.DefaultConfig() {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadSharedSettings(t *testing.T) {
	v := readYAML(t, sample)
	cfg, err := config.Load(v, taskhub.DefaultName)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ActivityConcurrency != 16 {
		t.Errorf("ActivityConcurrency = %d", cfg.ActivityConcurrency)
	}
	if cfg.OrchestrationConcurrency != taskhub.DefaultConfig().OrchestrationConcurrency {
		t.Errorf("OrchestrationConcurrency = %d, want default", cfg.OrchestrationConcurrency)
	}
	if cfg.IncludeDetails != taskhub.IncludeOrchestrations {
		t.Errorf("IncludeDetails = %v", cfg.IncludeDetails)
	}
	if cfg.DispatchRate != 50 || cfg.DispatchBurst != 5 {
		t.Errorf("rate = %v burst = %d", cfg.DispatchRate, cfg.DispatchBurst)
	}
	if cfg.CreateIfNotExists {
		t.Error("CreateIfNotExists leaked from a hub section")
	}
}

func TestLoadHubOverrides(t *testing.T) {
	v := readYAML(t, sample)
	cfg, err := config.Load(v, "billing")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.CreateIfNotExists {
		t.Error("CreateIfNotExists not applied")
	}
	if cfg.IncludeDetails != taskhub.IncludeAll {
		t.Errorf("IncludeDetails = %v", cfg.IncludeDetails)
	}
	if cfg.ErrorPropagationMode != taskhub.PropagateFailureDetails {
		t.Errorf("ErrorPropagationMode = %v", cfg.ErrorPropagationMode)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}
	if cfg.ActivityConcurrency != 16 {
		t.Errorf("shared ActivityConcurrency not inherited: %d", cfg.ActivityConcurrency)
	}
}

func TestLoadHubNamesAreCaseInsensitive(t *testing.T) {
	v := readYAML(t, sample)
	cfg, err := config.Load(v, "Billing")
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.CreateIfNotExists {
		t.Fatal("Billing should read the billing section")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	v := readYAML(t, `
taskhub:
  hubs:
    broken:
      activity_concurrency: 0
`)
	_, err := config.Load(v, "broken")
	if !errors.Is(err, taskhub.ErrInvalidConfig) {
		t.Fatalf("got %v, want ErrInvalidConfig", err)
	}
}

func TestLoadRejectsUnknownEnum(t *testing.T) {
	v := readYAML(t, `
taskhub:
  error_propagation_mode: sometimes
`)
	if _, err := config.Load(v, ""); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestLoadAll(t *testing.T) {
	v := readYAML(t, sample)
	if names := config.HubNames(v); !slices.Equal(names, []string{"billing", "reports"}) {
		t.Fatalf("HubNames = %q", names)
	}
	all, err := config.LoadAll(v)
	if err != nil {
		t.Fatal(err)
	}
	if all["reports"].OrchestrationConcurrency != 1 {
		t.Errorf("reports = %+v", all["reports"])
	}
	if !all["billing"].CreateIfNotExists {
		t.Errorf("billing = %+v", all["billing"])
	}
}

func TestSetDefaultsRoundTrip(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	cfg, err := config.Load(v, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != taskhub.DefaultConfig() {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
}

