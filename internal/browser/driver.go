// Package browser implements the browser driver wrapper (C4): it creates,
// health-checks and recycles a single browser instance and applies
// anti-automation masking. It owns no scraping logic.
package browser

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"jobscout/internal/config"
	"jobscout/internal/logging/types"
)

// userAgentPool is a fixed pool of realistic desktop user agents; Create
// selects one at random each time a browser is spun up.
var userAgentPool = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
}

// Driver wraps a single rod.Browser, serving spec C4's create/is_alive/
// restart/quit/create_wait contract. It is not a pool: the extraction
// pipeline (C7) is strictly single-threaded over one browser instance.
type Driver struct {
	cfg      *config.Config
	logger   types.Logger
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	width    int
	height   int
}

// New builds a Driver from configuration without launching anything yet.
func New(cfg *config.Config, logger types.Logger) *Driver {
	w, h := parseWindowSize(cfg.Selenium.WindowSize)
	return &Driver{cfg: cfg, logger: logger, width: w, height: h}
}

func parseWindowSize(spec string) (int, int) {
	parts := strings.Split(spec, ",")
	if len(parts) != 2 {
		return 1920, 1080
	}
	w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 1920, 1080
	}
	return w, h
}

// Create launches a fresh browser, applies anti-automation masking and
// opens a single working page.
func (d *Driver) Create() error {
	l := launcher.New().
		Headless(d.cfg.Selenium.Headless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-gpu").
		Set("disable-dev-shm-usage")

	if chromePath := systemChromePath(); chromePath != "" {
		l = l.Bin(chromePath)
	}

	userAgent := userAgentPool[rand.Intn(len(userAgentPool))]
	l = l.Set("user-agent", userAgent)

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("connect to browser: %w", err)
	}

	page, err := stealth.Page(b)
	if err != nil {
		b.MustClose()
		return fmt.Errorf("create stealth page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width: d.width, Height: d.height, DeviceScaleFactor: 1,
	}); err != nil {
		d.logger.Warn("failed to set viewport", map[string]interface{}{"error": err.Error()})
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: userAgent}); err != nil {
		d.logger.Warn("failed to set user agent", map[string]interface{}{"error": err.Error()})
	}

	if err := rod.Try(func() { page.MustEval(maskingScript) }); err != nil {
		d.logger.Warn("failed to inject masking script", map[string]interface{}{"error": err.Error()})
	}

	d.launcher = l
	d.browser = b
	d.page = page
	d.logger.Info("browser created", map[string]interface{}{"user_agent": userAgent})
	return nil
}

// Page returns the current working page, valid only between Create and Quit.
func (d *Driver) Page() *rod.Page { return d.page }

// Browser returns the underlying rod.Browser handle.
func (d *Driver) Browser() *rod.Browser { return d.browser }

// IsAlive probes the driver by reading the current URL; any panic recovered
// by rod.Try means the session died.
func (d *Driver) IsAlive() bool {
	if d.browser == nil || d.page == nil {
		return false
	}
	return rod.Try(func() { d.page.MustInfo() }) == nil
}

// Restart tears down the current browser (if any) and creates a new one.
func (d *Driver) Restart() error {
	d.Quit()
	return d.Create()
}

// Quit releases the browser and launcher. Safe to call multiple times.
func (d *Driver) Quit() {
	if d.browser != nil {
		_ = rod.Try(func() { d.browser.MustClose() })
		d.browser = nil
		d.page = nil
	}
	if d.launcher != nil {
		d.launcher.Cleanup()
		d.launcher = nil
	}
}

// CreateWait returns a page handle whose operations are bounded by timeout,
// used by callers that need a context-scoped wait without rebuilding the
// driver (spec's create_wait(timeout)).
func (d *Driver) CreateWait(timeout time.Duration) *rod.Page {
	return d.page.Timeout(timeout)
}

const maskingScript = `() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
	Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
	Object.defineProperty(navigator, 'platform', { get: () => 'Win32' });
	Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => 8 });
	Object.defineProperty(navigator, 'deviceMemory', { get: () => 8 });
	window.chrome = { runtime: {} };
	const originalQuery = window.navigator.permissions.query;
	window.navigator.permissions.query = (parameters) => (
		parameters.name === 'notifications' ?
			Promise.resolve({ state: Notification.permission }) :
			originalQuery(parameters)
	);
	let RTCPeerConnection = window.RTCPeerConnection || window.mozRTCPeerConnection || window.webkitRTCPeerConnection;
	if (RTCPeerConnection) {
		window.RTCPeerConnection = function() { throw new Error('WebRTC is disabled'); };
	}
}`

func systemChromePath() string {
	if v := os.Getenv("CHROME_BIN"); v != "" {
		if _, err := os.Stat(v); err == nil {
			return v
		}
	}
	if v := os.Getenv("CHROME_PATH"); v != "" {
		if _, err := os.Stat(v); err == nil {
			return v
		}
	}
	for _, p := range []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/opt/google/chrome/chrome",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
