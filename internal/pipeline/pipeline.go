// Package pipeline implements C7, the extraction pipeline: the top-level
// loop that builds a search URL, paginates, dedupes against the job store,
// clicks through to detail pages, and persists everything it finds. This is
// the hardest component in the spec: it must preserve a fragile
// authenticated session across thousands of navigations and recover from
// session loss, CAPTCHA redirects, and anti-bot throttling without ever
// losing a list-level row that was already visible.
package pipeline

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"golang.org/x/time/rate"

	"jobscout/internal/browser"
	"jobscout/internal/captcha"
	"jobscout/internal/config"
	"jobscout/internal/fingerprint"
	"jobscout/internal/jobstore"
	"jobscout/internal/logging/types"
	"jobscout/internal/login"
	"jobscout/internal/parser"
	"jobscout/internal/xerrors"
	"jobscout/pkg/models"
)

// blockedURLSubstrings mark a navigation as a CAPTCHA/block/error redirect
// rather than genuine content (spec §4.7 step 4.d, §7 rate-limit kind).
var blockedURLSubstrings = []string{"captcha", "block", "error"}

// Pipeline drives C4 (browser) and C5 (login) to extract, dedupe and
// persist job listings for one keyword per run.
type Pipeline struct {
	cfg     *config.Config
	driver  *browser.Driver
	login   *login.Controller
	store   *jobstore.Store
	solver  captcha.CaptchaSolver
	logger  types.Logger
	limiter *rate.Limiter
}

// New builds a Pipeline. solver may be nil: it is stored on the Pipeline but
// never called; a detail page whose URL matches captcha/block/error is
// skipped, not solved.
func New(cfg *config.Config, driver *browser.Driver, loginCtl *login.Controller, store *jobstore.Store, solver captcha.CaptchaSolver, logger types.Logger) *Pipeline {
	pageDelay := cfg.Search.Strategy.PageDelay
	if pageDelay <= 0 {
		pageDelay = 2 * time.Second
	}
	return &Pipeline{
		cfg: cfg, driver: driver, login: loginCtl, store: store, solver: solver, logger: logger,
		limiter: rate.NewLimiter(rate.Every(pageDelay), 1),
	}
}

// Result summarizes one ExtractFromKeyword run.
type Result struct {
	Keyword      string
	TotalResults int
	PagesVisited int
	DetailsSaved int
	Recoverable  error // set when the run stopped early but progress is safe
}

// ExtractFromKeyword is C7's entry point: build search URL → paginate →
// dedupe → click-through for details → persist.
func (p *Pipeline) ExtractFromKeyword(ctx context.Context, keyword string, maxResults int, saveResults, extractDetails bool, maxPages int) (*Result, error) {
	result := &Result{Keyword: keyword}
	searchURL := BuildSearchURL(p.cfg, keyword)

	if !p.driver.IsAlive() {
		if err := p.driver.Create(); err != nil {
			return result, xerrors.NewDriverError("create browser for extraction run", err)
		}
	}

	if p.login.IsEnabled() {
		if err := p.login.StartWorkflow(keyword); err != nil {
			return result, err // login-terminal failures are whole-run failures
		}
	}

	page := p.driver.Page()
	if err := page.Navigate(searchURL); err != nil {
		return result, xerrors.NewDriverError("navigate to search URL", err)
	}
	if err := page.WaitLoad(); err != nil {
		p.logger.Warn("search page did not report load complete", map[string]interface{}{"error": err.Error()})
	}

	currentPage := 1
	remaining := maxResults

	for currentPage <= maxPages || maxPages <= 0 {
		select {
		case <-ctx.Done():
			result.Recoverable = ctx.Err()
			return result, nil
		default:
		}

		if !p.driver.IsAlive() {
			result.Recoverable = xerrors.NewDriverError("browser died mid-page", nil)
			return result, nil
		}

		if err := p.login.ValidateBeforeDetails(keyword); err != nil {
			result.Recoverable = err
			return result, nil
		}

		rows, err := parser.ParseJobList(page, p.cfg.Selectors.SearchPage, remaining)
		if err != nil {
			p.logger.Warn("page parse failed, stopping pagination", map[string]interface{}{"error": err.Error()})
			break
		}
		if len(rows) == 0 {
			break // empty page: spec §8 boundary behavior, not an error
		}

		newRows, err := p.dedupe(ctx, rows)
		if err != nil {
			p.logger.Warn("fingerprint dedup check failed, treating all rows as new", map[string]interface{}{"error": err.Error()})
			newRows = rows
		}

		if extractDetails {
			saved := p.harvestDetails(ctx, newRows, keyword, saveResults)
			result.DetailsSaved += saved
		} else if saveResults {
			for _, r := range newRows {
				job := rowToJob(r.Row, keyword, p.primaryWebsite())
				if _, err := p.store.SaveJob(ctx, job); err != nil {
					p.logger.Warn("failed to save list-only job", map[string]interface{}{"error": err.Error()})
				}
			}
		}
		result.TotalResults += len(newRows)
		result.PagesVisited = currentPage

		if maxResults > 0 {
			remaining = maxResults - result.TotalResults
			if remaining <= 0 {
				break
			}
		}

		if !parser.HasNextPage(page, p.cfg.Selectors.SearchPage) {
			break
		}

		_ = p.limiter.Wait(ctx)
		advanced, err := parser.NavigateToNextPage(page, p.cfg.Selectors.SearchPage)
		if err != nil || !advanced {
			break
		}
		currentPage++
	}

	if p.cfg.Mode.CloseOnComplete {
		p.driver.Quit()
	}
	return result, nil
}

// dedupe batch-checks fingerprints against the store and returns only the
// rows the store hasn't seen yet, preserving DOM order.
func (p *Pipeline) dedupe(ctx context.Context, rows []parser.RowWithElement) ([]parser.RowWithElement, error) {
	fps := make([]string, len(rows))
	for i, r := range rows {
		fps[i] = r.Row.Fingerprint
	}
	exists, err := p.store.BatchCheckFingerprints(ctx, fps)
	if err != nil {
		return nil, err
	}
	out := make([]parser.RowWithElement, 0, len(rows))
	seenThisPage := make(map[string]bool, len(rows))
	for _, r := range rows {
		if exists[r.Row.Fingerprint] || seenThisPage[r.Row.Fingerprint] {
			p.logger.Debug("skipping duplicate fingerprint", map[string]interface{}{"fingerprint": r.Row.Fingerprint})
			continue
		}
		seenThisPage[r.Row.Fingerprint] = true
		out = append(out, r)
	}
	return out, nil
}

// harvestDetails clicks through each new row's element in a second tab,
// parses the detail page, merges it with the list row, and persists it.
// Failures are per-item skips: the pipeline never aborts the batch.
func (p *Pipeline) harvestDetails(ctx context.Context, rows []parser.RowWithElement, keyword string, saveResults bool) int {
	page := p.driver.Page()
	saved := 0

	for _, r := range rows {
		select {
		case <-ctx.Done():
			return saved
		default:
		}

		job := rowToJob(r.Row, keyword, p.primaryWebsite())
		if saveResults {
			if _, err := p.store.SaveJob(ctx, job); err != nil {
				p.logger.Warn("failed to save list row before detail harvest", map[string]interface{}{"error": err.Error()})
			}
		}

		detail, url, err := p.harvestOne(r.Element, keyword)
		if err != nil {
			p.logger.Warn("detail harvest failed for item, skipping", map[string]interface{}{"error": err.Error(), "title": r.Row.Title})
			continue
		}
		if detail == nil {
			continue // CAPTCHA/block/error URL or failed parse: non-fatal, list row already persisted
		}
		if !saveResults {
			continue
		}
		detail.JobID = job.JobID
		if _, err := p.store.SaveJobDetail(ctx, detail, url); err != nil {
			p.logger.Warn("failed to persist job detail", map[string]interface{}{"error": err.Error()})
			continue
		}
		saved++
	}
	return saved
}

// harvestOne scrolls the element into view, optionally hovers, clicks it
// (opening the detail in a new tab), switches over, parses, and switches
// back — always returning the browser to the original handle.
func (p *Pipeline) harvestOne(el *rod.Element, keyword string) (*models.JobDetail, string, error) {
	browserHandle := p.driver.Browser()
	page := p.driver.Page()

	_ = rod.Try(func() { el.ScrollIntoView() })
	if rand.Float64() < 0.3 {
		_ = rod.Try(func() { el.Hover() })
	}

	originalPages, err := browserHandle.Pages()
	if err != nil {
		return nil, "", xerrors.NewDriverError("list browser pages before click", err)
	}
	originalCount := len(originalPages)
	originalPage := page

	if err := el.Click("left", 1); err != nil {
		return nil, "", xerrors.NewDriverError("click job element", err)
	}

	time.Sleep(500 * time.Millisecond) // allow the new tab to register
	after, err := browserHandle.Pages()
	if err != nil || len(after) <= originalCount {
		p.logger.Debug("no new tab opened after click", nil)
		return nil, "", nil
	}

	newPage := after[len(after)-1]
	defer func() {
		_ = newPage.Close()
		_ = rod.Try(func() { originalPage.Activate() })
	}()

	if err := newPage.WaitLoad(); err != nil {
		p.logger.Debug("detail tab did not report load complete", map[string]interface{}{"error": err.Error()})
	}

	var currentURL string
	_ = rod.Try(func() { currentURL = newPage.MustInfo().URL })

	if isBlockedURL(currentURL) {
		p.logger.Debug("detail navigation matched captcha/block/error URL", map[string]interface{}{"url": currentURL})
		return nil, currentURL, nil
	}

	detail, err := parser.ParseJobDetail(newPage, p.cfg.Selectors.JobDetail)
	if err != nil {
		return nil, currentURL, err
	}
	if detail == nil {
		return nil, currentURL, nil
	}
	detail.Industry = "" // left for an embedding/enrichment step external to C7
	result := &models.JobDetail{
		Salary: detail.Salary, Location: detail.Location, Experience: detail.Experience,
		Education: detail.Education, Description: detail.Description, Requirements: detail.Requirements,
		Benefits: detail.Benefits, PublishTime: detail.PublishTime, CompanyScale: detail.CompanyScale,
		Industry: detail.Industry, Keyword: keyword, ExtractedAt: time.Now().UTC(),
	}
	return result, currentURL, nil
}

func isBlockedURL(u string) bool {
	lower := strings.ToLower(u)
	for _, s := range blockedURLSubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func (p *Pipeline) primaryWebsite() string {
	for name := range p.cfg.Websites {
		return name
	}
	return ""
}

func rowToJob(row parser.Row, keyword, website string) *models.Job {
	return &models.Job{
		JobID:          fingerprint.JobID(row.Title, row.Company, ""),
		Title:          row.Title,
		Company:        row.Company,
		JobFingerprint: row.Fingerprint,
		Website:        website,
		CreatedAt:      time.Now().UTC(),
	}
}
