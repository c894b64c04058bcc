package login

import (
	"testing"

	"jobscout/internal/config"
)

func TestIsEnabledRespectsConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoginMode.Enabled = true
	cfg.Mode.SkipLogin = false
	c := &Controller{cfg: cfg, state: StateIdle}
	if !c.IsEnabled() {
		t.Fatal("expected login to be enabled")
	}

	cfg.Mode.SkipLogin = true
	if c.IsEnabled() {
		t.Fatal("expected skip_login to disable the gate even with login_mode.enabled=true")
	}

	cfg.Mode.SkipLogin = false
	cfg.LoginMode.Enabled = false
	if c.IsEnabled() {
		t.Fatal("expected login_mode.enabled=false to disable the gate")
	}
}

func TestSuccessIndicatorsFallsBackToWebsiteConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Websites = map[string]config.WebsiteConfig{
		"example": {LoginCheckElement: ".dashboard"},
	}
	c := &Controller{cfg: cfg, state: StateIdle}
	indicators := c.successIndicators()
	if len(indicators) != 1 || indicators[0] != ".dashboard" {
		t.Fatalf("expected fallback to website login_check_element, got %v", indicators)
	}
}
