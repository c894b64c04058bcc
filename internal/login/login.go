// Package login implements C5: the login controller state machine that
// gates sensitive navigations behind a valid authenticated session, trying
// saved-session restore before falling back to interactive login.
package login

import (
	"time"

	"github.com/go-rod/rod"

	"jobscout/internal/browser"
	"jobscout/internal/config"
	"jobscout/internal/logging/types"
	"jobscout/internal/session"
	"jobscout/internal/xerrors"
)

// State is one node of the spec §4.5 state machine.
type State string

const (
	StateIdle       State = "idle"
	StateRestoring  State = "restoring"
	StateLoggedIn   State = "logged_in"
	StateManualLogin State = "manual_login"
	StateSaving     State = "saving"
)

// Controller orchestrates saved-session restore vs interactive login.
type Controller struct {
	cfg      *config.Config
	driver   *browser.Driver
	sessions *session.Store
	logger   types.Logger

	state            State
	lastValidatedAt  time.Time
}

// New builds a Controller bound to a driver and session store.
func New(cfg *config.Config, driver *browser.Driver, sessions *session.Store, logger types.Logger) *Controller {
	return &Controller{cfg: cfg, driver: driver, sessions: sessions, logger: logger, state: StateIdle}
}

// IsEnabled reports the configuration switch; when false, all gates pass
// trivially.
func (c *Controller) IsEnabled() bool {
	return c.cfg.LoginMode.Enabled && !c.cfg.Mode.SkipLogin
}

// State returns the controller's current state machine node.
func (c *Controller) State() State { return c.state }

// StartWorkflow runs the state machine up to MANUAL LOGIN (inclusive),
// polling at the configured interval; fails with a terminal LoginError
// after MaxLoginAttempts.
func (c *Controller) StartWorkflow(probeKeyword string) error {
	if !c.IsEnabled() {
		c.state = StateLoggedIn
		return nil
	}

	c.state = StateRestoring
	if c.cfg.Mode.UseSavedSession {
		if data, err := c.sessions.Load(c.cfg.Mode.SessionFile); err == nil && data != nil {
			page := c.driver.Page()
			if err := c.sessions.ApplyToBrowser(page, data); err == nil {
				if c.sessions.IsValid(page, c.successIndicators()) {
					c.state = StateLoggedIn
					c.lastValidatedAt = time.Now()
					c.logger.Info("restored session from disk", nil)
					return nil
				}
			} else {
				c.logger.Warn("failed to apply saved session", map[string]interface{}{"error": err.Error()})
			}
		}
	}

	c.state = StateManualLogin
	if err := c.manualLogin(); err != nil {
		return err
	}

	c.state = StateSaving
	if c.cfg.LoginMode.AutoSaveSession {
		if err := c.saveCurrentSession(); err != nil {
			c.logger.Warn("failed to persist session after manual login", map[string]interface{}{"error": err.Error()})
		}
	}

	c.state = StateLoggedIn
	c.lastValidatedAt = time.Now()
	return nil
}

func (c *Controller) manualLogin() error {
	page := c.driver.Page()
	loginURL := c.cfg.Login.LoginURL
	if loginURL == "" {
		for _, w := range c.cfg.Websites {
			if w.LoginURL != "" {
				loginURL = w.LoginURL
				break
			}
		}
	}
	if loginURL != "" {
		if err := page.Navigate(loginURL); err != nil {
			return xerrors.NewDriverError("navigate to login page", err)
		}
	}

	deadline := time.Now().Add(c.cfg.Login.WaitTimeout)
	attempts := 0
	for time.Now().Before(deadline) {
		attempts++
		if c.sessions.IsValid(page, c.successIndicators()) {
			return nil
		}
		if c.hasAnyIndicator(page, c.cfg.Login.FailureIndicators) {
			if attempts >= c.cfg.LoginMode.MaxLoginAttempts {
				return xerrors.NewLoginError("login failed after max attempts", attempts)
			}
		}
		time.Sleep(c.cfg.Login.CheckInterval)
	}
	return xerrors.NewLoginTimeoutError("login polling exhausted before success indicator appeared")
}

func (c *Controller) hasAnyIndicator(page *rod.Page, indicators []string) bool {
	return c.sessions.IsValid(page, indicators)
}

func (c *Controller) successIndicators() []string {
	if len(c.cfg.Login.SuccessIndicators) > 0 {
		return c.cfg.Login.SuccessIndicators
	}
	var all []string
	for _, w := range c.cfg.Websites {
		if w.LoginCheckElement != "" {
			all = append(all, w.LoginCheckElement)
		}
	}
	return all
}

func (c *Controller) saveCurrentSession() error {
	page := c.driver.Page()
	data := &session.Data{CurrentURL: page.MustInfo().URL}
	return c.sessions.Save(data, c.cfg.Mode.SessionFile)
}

// ValidateBeforeDetails re-checks login validity, but no more often than
// once per SessionValidationInterval. The check runs with
// preserve_current_page=true: it must never navigate the browser away from
// the page mid-pagination.
func (c *Controller) ValidateBeforeDetails(probeKeyword string) error {
	if !c.IsEnabled() {
		return nil
	}
	if time.Since(c.lastValidatedAt) < c.cfg.LoginMode.SessionValidationInterval {
		return nil
	}
	c.lastValidatedAt = time.Now()

	page := c.driver.Page()
	if c.sessions.IsValid(page, c.successIndicators()) {
		return nil
	}

	c.logger.Warn("session invalid mid-run, attempting recovery", nil)
	if c.cfg.Mode.UseSavedSession {
		if c.recoverSession() {
			return nil
		}
	}

	deadline := time.Now().Add(c.cfg.Login.WaitTimeout)
	for time.Now().Before(deadline) {
		if c.sessions.IsValid(page, c.successIndicators()) {
			return nil
		}
		time.Sleep(c.cfg.Login.CheckInterval)
	}
	return xerrors.NewLoginTimeoutError("session re-validation timed out; interactive re-login required")
}
