// Package parser implements C6: pure DOM-to-data extraction functions with
// no browser lifecycle of their own — list rows, detail-page fields, and
// pagination state, all resolved through a prioritized-selector-then-
// fallback policy.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"

	"jobscout/internal/config"
	"jobscout/internal/fingerprint"
	"jobscout/internal/xerrors"
)

// Fallback selector lists, walked only when the configured primary
// selector is empty or yields nothing (spec §4.6's resolution policy:
// "configured primary → hard-coded fallbacks").
var (
	fallbackContainers = []string{".job-list-item", ".job-item", "li.job-card", "[data-job-id]"}
	fallbackTitle      = []string{".job-title", ".title", "h3", "a.job-name"}
	fallbackCompany    = []string{".company-name", ".company", ".corp-name"}
	fallbackSalary     = []string{".salary", ".job-salary", ".pay"}
	fallbackLocation   = []string{".location", ".job-area", ".city"}
	fallbackExperience = []string{".experience", ".job-experience", ".exp"}
	fallbackEducation  = []string{".education", ".degree"}
	fallbackPublished  = []string{".publish-time", ".date", ".job-time"}
	fallbackDescription = []string{".job-description", "#job-detail", ".detail-content", ".description"}
	fallbackRequirements = []string{".job-requirements", ".requirements"}
	fallbackBenefits   = []string{".job-benefits", ".benefits", ".welfare"}
	fallbackNextPage   = []string{".pagination .next", "a.next-page", "[rel=next]"}
	fallbackPagination = []string{".pagination .active", ".pagination .current"}

	defaultUnknownCompany = "未知公司"
	defaultUnknownSalary  = "薪资面议"
)

// Row is one parsed job-list entry, with its fingerprint already assigned.
type Row struct {
	Title       string
	Company     string
	Salary      string
	Location    string
	Experience  string
	Education   string
	PublishTime string
	Fingerprint string
}

// RowWithElement pairs a parsed Row with the live DOM element it came from,
// built in a single pass so the (row, element) coupling stays local and
// testable instead of re-querying by index later (spec §9 design note).
type RowWithElement struct {
	Row     Row
	Element *rod.Element
}

// Detail is the parsed job-detail-page payload.
type Detail struct {
	Salary       string
	Location     string
	Experience   string
	Education    string
	Description  string
	Requirements []string
	Benefits     []string
	PublishTime  string
	CompanyScale string
	Industry     string
}

// PageInfo is the parsed pagination state of the current page.
type PageInfo struct {
	CurrentPage int
	HasNext     bool
	URL         string
	Title       string
}

func firstNonEmpty(primary string, fallbacks []string) []string {
	if primary != "" {
		return append([]string{primary}, fallbacks...)
	}
	return fallbacks
}

// textBySelectors walks selectors in order, returning the first element's
// trimmed text that resolves non-empty.
func textBySelectors(from *rod.Element, selectors []string) string {
	for _, sel := range selectors {
		el, err := from.Element(sel)
		if err != nil || el == nil {
			continue
		}
		txt, err := el.Text()
		if err != nil {
			continue
		}
		txt = strings.TrimSpace(txt)
		if txt != "" {
			return txt
		}
	}
	return ""
}

// ParseJobList finds the row container via the prioritized selector list,
// enumerates child items, and extracts fields with defaults for missing
// subfields rather than leaving them nil (spec §4.6).
func ParseJobList(page *rod.Page, selectors config.SelectorSet, maxResults int) ([]RowWithElement, error) {
	containerSelectors := firstNonEmpty(selectors.Container, fallbackContainers)

	var items rod.Elements
	var lastErr error
	for _, sel := range containerSelectors {
		found, err := page.Timeout(5 * time.Second).Elements(sel)
		if err != nil {
			lastErr = err
			continue
		}
		if len(found) > 0 {
			items = found
			break
		}
	}
	if len(items) == 0 {
		if lastErr != nil {
			return nil, xerrors.NewPageParseError("no job-list container resolved past fallback list", containerSelectors[len(containerSelectors)-1])
		}
		return nil, nil // empty page: spec §8 boundary behavior, not an error
	}

	titleSel := firstNonEmpty(selectors.Title, fallbackTitle)
	companySel := firstNonEmpty(selectors.Company, fallbackCompany)
	salarySel := firstNonEmpty(selectors.Salary, fallbackSalary)
	locationSel := firstNonEmpty(selectors.Location, fallbackLocation)
	expSel := firstNonEmpty(selectors.Experience, fallbackExperience)
	eduSel := firstNonEmpty(selectors.Education, fallbackEducation)
	pubSel := firstNonEmpty(selectors.PublishTime, fallbackPublished)

	rows := make([]RowWithElement, 0, len(items))
	for _, item := range items {
		if maxResults > 0 && len(rows) >= maxResults {
			break
		}
		row := Row{
			Title:       orDefault(textBySelectors(item, titleSel), ""),
			Company:     orDefault(textBySelectors(item, companySel), defaultUnknownCompany),
			Salary:      orDefault(textBySelectors(item, salarySel), defaultUnknownSalary),
			Location:    textBySelectors(item, locationSel),
			Experience:  textBySelectors(item, expSel),
			Education:   textBySelectors(item, eduSel),
			PublishTime: textBySelectors(item, pubSel),
		}
		row.Fingerprint = fingerprint.Fingerprint(row.Title, row.Company, row.Salary, row.Location)
		rows = append(rows, RowWithElement{Row: row, Element: item})
	}
	return rows, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

const descriptionFallbackJS = `() => {
	const candidates = Array.from(document.querySelectorAll('div, section, article'));
	let best = null, bestLen = 0;
	for (const el of candidates) {
		const len = (el.innerText || '').length;
		if (len > bestLen) { best = el; bestLen = len; }
	}
	return best ? best.innerText : '';
}`

// ParseJobDetail waits for document readiness, then tries a prioritized
// selector list for the description, including a JS fallback that scans
// candidate containers for the largest innerText. A detail with a <20-char
// description and empty requirements is a failed extraction (returns nil).
func ParseJobDetail(page *rod.Page, selectors config.SelectorSet) (*Detail, error) {
	if err := page.WaitLoad(); err != nil {
		return nil, xerrors.NewPageParseError("document did not reach load state", "")
	}

	descSelectors := firstNonEmpty(selectors.Description, fallbackDescription)
	description := ""
	for _, sel := range descSelectors {
		el, err := page.Timeout(3 * time.Second).Element(sel)
		if err != nil || el == nil {
			continue
		}
		txt, err := el.Text()
		if err == nil {
			txt = strings.TrimSpace(txt)
		}
		if txt != "" {
			description = txt
			break
		}
	}
	if description == "" {
		if err := rod.Try(func() {
			res := page.MustEval(descriptionFallbackJS)
			description = strings.TrimSpace(res.Str())
		}); err != nil {
			description = ""
		}
	}

	reqSelectors := firstNonEmpty(selectors.Requirements, fallbackRequirements)
	requirements := extractList(page, reqSelectors)
	benSelectors := firstNonEmpty(selectors.Benefits, fallbackBenefits)
	benefits := extractList(page, benSelectors)

	// rod's live queries miss list items rendered as unbroken text nodes
	// (no <li>/<br> the element-text walk can split on). Re-parse the raw
	// container HTML with goquery, which handles that markup directly,
	// whenever the live walk came back empty.
	if len(requirements) == 0 {
		requirements = extractListFromHTML(page, reqSelectors)
	}
	if len(benefits) == 0 {
		benefits = extractListFromHTML(page, benSelectors)
	}

	if len(description) < 20 && len(requirements) == 0 {
		return nil, nil
	}

	d := &Detail{
		Description:  description,
		Requirements: requirements,
		Benefits:     benefits,
	}
	if sel := firstNonEmpty(selectors.Salary, fallbackSalary); len(sel) > 0 {
		d.Salary = elementTextAny(page, sel)
	}
	if sel := firstNonEmpty(selectors.Location, fallbackLocation); len(sel) > 0 {
		d.Location = elementTextAny(page, sel)
	}
	if sel := firstNonEmpty(selectors.Experience, fallbackExperience); len(sel) > 0 {
		d.Experience = elementTextAny(page, sel)
	}
	if sel := firstNonEmpty(selectors.Education, fallbackEducation); len(sel) > 0 {
		d.Education = elementTextAny(page, sel)
	}
	if sel := firstNonEmpty(selectors.PublishTime, fallbackPublished); len(sel) > 0 {
		d.PublishTime = elementTextAny(page, sel)
	}
	return d, nil
}

func elementTextAny(page *rod.Page, selectors []string) string {
	for _, sel := range selectors {
		el, err := page.Timeout(2 * time.Second).Element(sel)
		if err != nil || el == nil {
			continue
		}
		if txt, err := el.Text(); err == nil {
			if t := strings.TrimSpace(txt); t != "" {
				return t
			}
		}
	}
	return ""
}

func extractList(page *rod.Page, selectors []string) []string {
	for _, sel := range selectors {
		els, err := page.Timeout(2 * time.Second).Elements(sel)
		if err != nil || len(els) == 0 {
			continue
		}
		out := make([]string, 0, len(els))
		for _, el := range els {
			if txt, err := el.Text(); err == nil {
				if t := strings.TrimSpace(txt); t != "" {
					out = append(out, t)
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// extractListFromHTML parses the container's raw HTML with goquery and
// splits it into one entry per list item, paragraph, or line break,
// covering requirement/benefit blocks that rod's element-text walk
// can't split because the page renders them without child tags.
func extractListFromHTML(page *rod.Page, selectors []string) []string {
	for _, sel := range selectors {
		el, err := page.Timeout(2 * time.Second).Element(sel)
		if err != nil || el == nil {
			continue
		}
		html, err := el.HTML()
		if err != nil || html == "" {
			continue
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			continue
		}
		var out []string
		doc.Find("li, p, br").Each(func(_ int, s *goquery.Selection) {
			if t := strings.TrimSpace(s.Text()); t != "" {
				out = append(out, t)
			}
		})
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// HasNextPage reports whether a next-page control resolves on the page.
func HasNextPage(page *rod.Page, selectors config.SelectorSet) bool {
	sels := firstNonEmpty(selectors.NextPage, fallbackNextPage)
	for _, sel := range sels {
		el, err := page.Timeout(2 * time.Second).Element(sel)
		if err == nil && el != nil {
			return true
		}
	}
	return false
}

// NavigateToNextPage clicks the next-page control; success is either a URL
// change or enough elapsed time for AJAX pagination to settle. Never
// raises: on failure it returns (false, nil) so the pipeline can stop
// cleanly instead of treating pagination exhaustion as an error.
func NavigateToNextPage(page *rod.Page, selectors config.SelectorSet) (bool, error) {
	sels := firstNonEmpty(selectors.NextPage, fallbackNextPage)
	before := ""
	_ = rod.Try(func() { before = page.MustInfo().URL })

	for _, sel := range sels {
		el, err := page.Timeout(2 * time.Second).Element(sel)
		if err != nil || el == nil {
			continue
		}
		if err := el.Click("left", 1); err != nil {
			continue
		}
		_ = page.WaitStable(1500 * time.Millisecond)

		after := ""
		_ = rod.Try(func() { after = page.MustInfo().URL })
		if after != before && after != "" {
			return true, nil
		}
		// AJAX pagination: no URL change, but enough time elapsed for
		// the new page to have rendered.
		return true, nil
	}
	return false, nil
}

var pageParamRe = []*regexp.Regexp{
	regexp.MustCompile(`[?&]page=(\d+)`),
	regexp.MustCompile(`[?&]p=(\d+)`),
	regexp.MustCompile(`[?&]pageNum=(\d+)`),
	regexp.MustCompile(`[?&]pageIndex=(\d+)`),
	regexp.MustCompile(`[?&]currentPage=(\d+)`),
}

// GetCurrentPageInfo parses the page number from URL query params (page, p,
// pageNum, pageIndex, currentPage) or from a pagination DOM element.
func GetCurrentPageInfo(page *rod.Page, selectors config.SelectorSet) PageInfo {
	info := PageInfo{CurrentPage: 1}
	_ = rod.Try(func() {
		ti := page.MustInfo()
		info.URL = ti.URL
		info.Title = ti.Title
	})

	for _, re := range pageParamRe {
		if m := re.FindStringSubmatch(info.URL); len(m) == 2 {
			if n, err := strconv.Atoi(m[1]); err == nil {
				info.CurrentPage = n
				break
			}
		}
	}
	if info.CurrentPage == 1 {
		sels := firstNonEmpty(selectors.PaginationInfo, fallbackPagination)
		for _, sel := range sels {
			el, err := page.Timeout(1 * time.Second).Element(sel)
			if err != nil || el == nil {
				continue
			}
			if txt, err := el.Text(); err == nil {
				if n, err := strconv.Atoi(strings.TrimSpace(txt)); err == nil {
					info.CurrentPage = n
				}
			}
			break
		}
	}
	info.HasNext = HasNextPage(page, selectors)
	return info
}
