// Package fingerprint implements C1: canonicalizing (title, company, salary,
// location) into a stable 12-hex-digit identity, and a weighted-similarity
// duplicate check over the same fields.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
)

// pairedPunctuation is stripped (both characters of the pair, independently)
// from every normalized field, including full-width variants and CJK
// guillemets/fancy quotes, per spec §4.1.
var pairedPunctuation = []rune{
	'(', ')', '[', ']', '{', '}',
	'（', '）', '［', '］', '｛', '｝', // full-width parens/brackets
	'《', '》', '〈', '〉', '「', '」', '『', '』',
	'“', '”', '‘', '’', '"', '\'',
}

var whitespaceRe = regexp.MustCompile(`\s+`)
var leadingIntRe = regexp.MustCompile(`\d+`)

var (
	urlNumericIDRe  = regexp.MustCompile(`/(\d+)\.html?`)
	urlJobIDParamRe = regexp.MustCompile(`(?i)jobid[=:](\d+)`)
)

var locationSuffixes = []string{"市", "区", "县", "省", "自治区", "特别行政区"}

func stripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
outer:
	for _, r := range s {
		for _, p := range pairedPunctuation {
			if r == p {
				continue outer
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// normalizeText lowercases, strips surrounding whitespace, collapses all
// internal whitespace away, and strips paired punctuation.
func normalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = stripPunctuation(s)
	s = whitespaceRe.ReplaceAllString(s, "")
	return s
}

// normalizeSalary lowercases, drops half- and full-width commas (thousands
// separators), extracts the two leading decimal integer runs, expresses any
// run of 1000 or more in thousands, and emits "{a}-{b}k", "{a}k", or "".
// "20,000-40,000" and "20000-40000" both normalize to "20-40k".
func normalizeSalary(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "，", "")
	matches := leadingIntRe.FindAllString(s, -1)
	for i, m := range matches {
		if n, err := strconv.Atoi(m); err == nil && n >= 1000 {
			matches[i] = strconv.Itoa(n / 1000)
		}
	}
	switch {
	case len(matches) >= 2:
		return matches[0] + "-" + matches[1] + "k"
	case len(matches) == 1:
		return matches[0] + "k"
	default:
		return ""
	}
}

// normalizeLocation lowercases, strips a fixed CJK administrative-suffix
// set, and removes spaces.
func normalizeLocation(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, suf := range locationSuffixes {
		s = strings.TrimSuffix(s, suf)
	}
	s = strings.ReplaceAll(s, " ", "")
	return s
}

// Fingerprint computes the 12-hex-char canonical identity of a listing.
func Fingerprint(title, company, salary, location string) string {
	parts := []string{
		normalizeText(title),
		normalizeText(company),
		normalizeSalary(salary),
		normalizeLocation(location),
	}
	joined := strings.Join(parts, "|")
	sum := md5.Sum([]byte(joined))
	return hex.EncodeToString(sum[:])[:12]
}

// JobID synthesizes the stable job_id identity, distinct from Fingerprint:
// where Fingerprint canonicalizes (title, company, salary, location) for
// dedup comparison, JobID identifies a specific listing record, preferring
// the numeric ID embedded in its detail URL and falling back to a hash of
// title+company+url when no such ID can be extracted (ported from
// _generate_job_id). The url is frequently unknown at the point a list row
// is first saved, in which case it is passed as "" and the hash degrades to
// title+company — the url is still backfilled onto the stored row
// separately (see jobstore.Store.UpdateJobWithDetailURL), just not into the
// id itself, so the id stays stable across that backfill.
func JobID(title, company, url string) string {
	if url != "" {
		if m := urlNumericIDRe.FindStringSubmatch(url); m != nil {
			return "qc_" + m[1]
		}
		if m := urlJobIDParamRe.FindStringSubmatch(url); m != nil {
			return "qc_" + m[1]
		}
	}
	content := title + "_" + company + "_" + url
	sum := md5.Sum([]byte(content))
	return "qc_" + hex.EncodeToString(sum[:])[:12]
}

// charSetJaccard computes Jaccard similarity over the rune sets of a and b.
func charSetJaccard(a, b string) float64 {
	setA := make(map[rune]struct{})
	for _, r := range a {
		setA[r] = struct{}{}
	}
	setB := make(map[rune]struct{})
	for _, r := range b {
		setB[r] = struct{}{}
	}
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	inter := 0
	for r := range setA {
		if _, ok := setB[r]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Job is the minimal shape IsDuplicate needs from a job record.
type Job struct {
	Fingerprint string
	Title       string
	Company     string
}

// IsDuplicate reports whether j1 and j2 are the same listing: either their
// fingerprints match, or their weighted title/company similarity clears
// threshold (default 0.9 per spec, caller-supplied here).
func IsDuplicate(j1, j2 Job, threshold float64) bool {
	if j1.Fingerprint != "" && j1.Fingerprint == j2.Fingerprint {
		return true
	}
	titleSim := charSetJaccard(normalizeText(j1.Title), normalizeText(j2.Title))
	companySim := charSetJaccard(normalizeText(j1.Company), normalizeText(j2.Company))
	weighted := 0.7*titleSim + 0.3*companySim
	return weighted >= threshold
}
