package login

import "time"

// recoverSession implements the bounded session-recovery retry loop from
// the original SessionRecovery.recover_session: a single silent-restore
// attempt can fail transiently (stale cookies not yet expired server-side,
// a slow redirect back to the logged-out state), so recovery is retried up
// to MaxRecoveryAttempts times with a short backoff before the caller falls
// back to interactive re-login. Distinct from StartWorkflow's one-shot
// restore, which only ever runs once at process start.
func (c *Controller) recoverSession() bool {
	attempts := c.cfg.LoginMode.MaxRecoveryAttempts
	if attempts <= 0 {
		attempts = 2
	}
	backoff := c.cfg.LoginMode.RecoveryBackoff
	if backoff <= 0 {
		backoff = 5 * time.Second
	}

	page := c.driver.Page()
	currentURL := page.MustInfo().URL

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			time.Sleep(backoff)
		}

		data, err := c.sessions.Load(c.cfg.Mode.SessionFile)
		if err != nil || data == nil {
			c.logger.Warn("session recovery: no saved session available", map[string]interface{}{"attempt": attempt})
			continue
		}

		if err := c.sessions.ApplyToBrowser(page, data); err != nil {
			c.logger.Warn("session recovery: failed to apply saved session", map[string]interface{}{"attempt": attempt, "error": err.Error()})
			continue
		}

		if c.sessions.IsValid(page, c.successIndicators()) {
			// Return to the page we were on before the recovery detour,
			// preserving pagination state.
			_ = page.Navigate(currentURL)
			_ = page.WaitLoad()
			c.logger.Info("session recovery succeeded", map[string]interface{}{"attempt": attempt})
			return true
		}

		c.logger.Warn("session recovery: restored session still invalid", map[string]interface{}{"attempt": attempt})
	}

	return false
}
