// Package scorer implements C11: five-dimension job/résumé scoring.
// Grounded on spec §4.11's explicit formulas; no teacher analog exists
// for this specific weighting scheme, so the implementation is a direct,
// literal translation structured the way the teacher structures
// multi-step pure computations (small named helpers per dimension,
// clamp/normalize at the boundary).
package scorer

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"jobscout/internal/resume"
	"jobscout/pkg/models"
)

// JobDoc is one retrieved document for a job, carrying the similarity
// score C9 attached (if any).
type JobDoc struct {
	DocumentType string
	Content      string
	SearchScore  *float64
}

// JobMetadata is the structured subset of job fields the scorer needs,
// independent of how C2/C8 actually store them.
type JobMetadata struct {
	RequiredExperienceYears *float64
	Description             string
	Industry                string
	SalaryMin               *float64
	SalaryMax               *float64
	Skills                  []string
}

// DimensionScores mirrors models.DimensionScores but is the scorer's own
// working type before it's projected onto the persisted model.
type DimensionScores = models.DimensionScores

// MatchAnalysis is the derived free-text/structured explanation.
type MatchAnalysis struct {
	Strengths       []string
	Weaknesses      []string
	Recommendations []string
	MatchedSkills   []string
	MissingSkills   []string
}

// MatchResult is C11's output.
type MatchResult struct {
	Overall       float64
	Dimensions    DimensionScores
	MatchLevel    models.MatchLevel
	Priority      models.PriorityLevel
	Confidence    float64
	Analysis      MatchAnalysis
}

// Weights are the five dimension weights, always normalized to sum 1.0.
type Weights struct {
	Semantic   float64
	Skills     float64
	Experience float64
	Industry   float64
	Salary     float64
}

func DefaultWeights() Weights {
	return Weights{Semantic: 0.40, Skills: 0.45, Experience: 0.05, Industry: 0.02, Salary: 0.08}
}

// Normalize rescales the weights to sum to 1.0, per spec §4.11.
func (w Weights) Normalize() Weights {
	sum := w.Semantic + w.Skills + w.Experience + w.Industry + w.Salary
	if sum <= 0 {
		return DefaultWeights()
	}
	return Weights{
		Semantic: w.Semantic / sum, Skills: w.Skills / sum, Experience: w.Experience / sum,
		Industry: w.Industry / sum, Salary: w.Salary / sum,
	}
}

// SkillTables holds the configured lookup tables D2/D4 consult. A zero
// value is safe to use — every lookup degrades to its documented default
// when a table entry is missing.
type SkillTables struct {
	Weights        map[string]float64   // skill -> weight, missing -> 1.0
	Synonyms       map[string][]string  // canonical -> variant/CN-EN synonyms (bidirectional lookup built at use)
	HighValueTiers map[string]int       // skill -> tier (1,2,3), bonus 0.04/0.06/0.08
	IndustryWeights map[string]float64  // industry -> weight in [0,1]
	IndustryCategories map[string][]string // category -> member industries
}

// Scorer computes MatchResult for a résumé against a retrieved job.
type Scorer struct {
	weights Weights
	tables  SkillTables
}

func New(weights Weights, tables SkillTables) *Scorer {
	return &Scorer{weights: weights.Normalize(), tables: tables}
}

// Score implements C11's entry point.
func (s *Scorer) Score(r *resume.Profile, docs []JobDoc, meta JobMetadata) MatchResult {
	d := DimensionScores{
		Semantic:   s.semanticSimilarity(docs),
		Industry:   s.industryMatch(r, meta),
		Salary:     s.salaryMatch(r, meta),
		Experience: s.experienceMatch(r, meta),
	}
	skillScore, matched, missing := s.skillsMatch(r, meta)
	d.Skills = skillScore

	overall := d.Semantic*s.weights.Semantic + d.Skills*s.weights.Skills +
		d.Experience*s.weights.Experience + d.Industry*s.weights.Industry + d.Salary*s.weights.Salary

	result := MatchResult{
		Overall:    overall,
		Dimensions: d,
		MatchLevel: matchLevel(overall),
		Priority:   priorityLevel(overall),
		Confidence: confidence(d),
		Analysis:   analyze(d, matched, missing),
	}
	return result
}

// --- D1 Semantic similarity ---

var docTypeHeuristic = map[string]float64{
	"overview": 0.8, "skills": 0.85, "responsibility": 0.7, "requirement": 0.75,
	"basic_requirements": 0.6, "company_info": 0.4, "unknown": 0.5,
}

func (s *Scorer) semanticSimilarity(docs []JobDoc) float64 {
	if len(docs) == 0 {
		return docTypeHeuristic["unknown"]
	}

	var withScore []JobDoc
	for _, d := range docs {
		if d.SearchScore != nil {
			withScore = append(withScore, d)
		}
	}
	if len(withScore) == 1 {
		return *withScore[0].SearchScore
	}
	if len(withScore) > 1 {
		var weightedSum, weightSum float64
		for _, d := range withScore {
			w := math.Pow(*d.SearchScore, 1.2)
			weightedSum += *d.SearchScore * w
			weightSum += w
		}
		if weightSum > 0 {
			return weightedSum / weightSum
		}
	}

	// fallback: heuristic on document_type plus a small length bonus, averaged.
	var total float64
	for _, d := range docs {
		score, ok := docTypeHeuristic[d.DocumentType]
		if !ok {
			score = docTypeHeuristic["unknown"]
		}
		switch {
		case len(d.Content) >= 500:
			score += 0.1
		case len(d.Content) >= 200:
			score += 0.05
		}
		total += clamp01(score)
	}
	return total / float64(len(docs))
}

// --- D2 Skills match ---

func (s *Scorer) skillsMatch(r *resume.Profile, meta JobMetadata) (float64, []string, []string) {
	if len(meta.Skills) == 0 {
		return 0.5, nil, nil
	}

	resumeSkills := lowerAll(r.GetAllSkills())
	jobSkills := lowerAll(meta.Skills)

	var weightedSum, weightSum float64
	var matched []string
	var missing []string
	for _, j := range jobSkills {
		w := s.skillWeight(j)
		weightSum += w
		if s.isMatched(j, resumeSkills) {
			weightedSum += w
			matched = append(matched, j)
		} else {
			missing = append(missing, j)
		}
	}
	score := 0.5
	if weightSum > 0 {
		score = weightedSum / weightSum
	}

	bonus := 0.0
	for _, rs := range resumeSkills {
		if tier, ok := s.tables.HighValueTiers[rs]; ok && !containsString(jobSkills, rs) {
			switch tier {
			case 1:
				bonus += 0.04
			case 2:
				bonus += 0.06
			case 3:
				bonus += 0.08
			}
		}
	}
	if bonus > 0.25 {
		bonus = 0.25
	}
	return clamp01(score + bonus), matched, missing
}

func (s *Scorer) skillWeight(skill string) float64 {
	if s.tables.Weights == nil {
		return 1.0
	}
	if w, ok := s.tables.Weights[skill]; ok {
		return w
	}
	return 1.0
}

// isMatched implements the 5-rule matching cascade from spec §4.11 D2.
func (s *Scorer) isMatched(jobSkill string, resumeSkills []string) bool {
	if containsString(resumeSkills, jobSkill) {
		return true
	}
	for _, rs := range resumeSkills {
		if s.synonymHit(jobSkill, rs) {
			return true
		}
		if substringMatch(jobSkill, rs) {
			return true
		}
		if compoundMatch(jobSkill, rs) {
			return true
		}
	}
	return false
}

func (s *Scorer) synonymHit(a, b string) bool {
	for canonical, variants := range s.tables.Synonyms {
		group := append([]string{canonical}, variants...)
		if containsString(group, a) && containsString(group, b) {
			return true
		}
	}
	return false
}

func substringMatch(a, b string) bool {
	if len(a) < 3 || len(b) < 3 {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func compoundMatch(a, b string) bool {
	ta := strings.Fields(a)
	tb := strings.Fields(b)
	if len(ta) < 2 || len(tb) < 2 {
		return false
	}
	setA := make(map[string]bool, len(ta))
	for _, t := range ta {
		setA[t] = true
	}
	common := 0
	for _, t := range tb {
		if setA[t] {
			common++
		}
	}
	if common < 2 {
		return false
	}
	smaller := len(ta)
	if len(tb) < smaller {
		smaller = len(tb)
	}
	return float64(common)/float64(smaller) >= 0.5
}

// --- D3 Experience match ---

var experienceYearsRe = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\+?\s*years?\s*of?\s*experience`),
	regexp.MustCompile(`(\d+)\+?\s*年.*经验`),
}

func (s *Scorer) experienceMatch(r *resume.Profile, meta JobMetadata) float64 {
	req := meta.RequiredExperienceYears
	if req == nil {
		req = parseRequiredYears(meta.Description)
	}
	if req == nil {
		return 0.9
	}

	have := r.TotalExperienceYears
	if have >= *req {
		if have <= 2*(*req) {
			return 1.0
		}
		return 0.95
	}
	if *req == 0 {
		return 1.0
	}
	return clamp01(have / *req)
}

func parseRequiredYears(description string) *float64 {
	for _, re := range experienceYearsRe {
		if m := re.FindStringSubmatch(description); len(m) == 2 {
			if n, err := strconv.ParseFloat(m[1], 64); err == nil {
				return &n
			}
		}
	}
	return nil
}

// --- D4 Industry match ---

func (s *Scorer) industryMatch(r *resume.Profile, meta JobMetadata) float64 {
	if meta.Industry == "" {
		return 0.7
	}
	jobIndustry := strings.ToLower(meta.Industry)

	for industry, weight := range r.IndustryExperience {
		li := strings.ToLower(industry)
		if strings.Contains(li, jobIndustry) || strings.Contains(jobIndustry, li) {
			return weight
		}
	}
	for _, workExp := range r.WorkExperiences {
		we := strings.ToLower(workExp.Industry)
		if we != "" && (strings.Contains(we, jobIndustry) || strings.Contains(jobIndustry, we)) {
			if w, ok := s.tables.IndustryWeights[jobIndustry]; ok {
				return w
			}
			return 0.6
		}
	}

	for _, members := range s.tables.IndustryCategories {
		hasJob := containsString(lowerAll(members), jobIndustry)
		if !hasJob {
			continue
		}
		for industry := range r.IndustryExperience {
			if containsString(lowerAll(members), strings.ToLower(industry)) {
				return 0.6
			}
		}
		for _, workExp := range r.WorkExperiences {
			if workExp.Industry != "" && containsString(lowerAll(members), strings.ToLower(workExp.Industry)) {
				return 0.6
			}
		}
	}
	return 0.0
}

// --- D5 Salary match ---

func (s *Scorer) salaryMatch(r *resume.Profile, meta JobMetadata) float64 {
	if r.ExpectedSalaryRange == nil || meta.SalaryMin == nil {
		return 0.8
	}
	rMin, rMax := r.ExpectedSalaryRange.Min, r.ExpectedSalaryRange.Max
	jMin := *meta.SalaryMin
	jMax := math.Inf(1)
	if meta.SalaryMax != nil {
		jMax = *meta.SalaryMax
	}

	overlapLow := math.Max(rMin, jMin)
	overlapHigh := math.Min(rMax, jMax)
	if overlapHigh > overlapLow {
		overlapSize := overlapHigh - overlapLow
		rRange := rMax - rMin
		jRange := jMax - jMin
		if math.IsInf(jRange, 1) {
			jRange = rRange
		}
		minRange := math.Min(rRange, jRange)
		if minRange <= 0 {
			return 0.8
		}
		return clamp01(overlapSize / minRange)
	}

	if !math.IsInf(jMax, 1) && rMax <= 1.2*jMin {
		return 0.9
	}

	rMid := (rMin + rMax) / 2
	jMidHigh := jMax
	if math.IsInf(jMidHigh, 1) {
		jMidHigh = jMin
	}
	jMid := (jMin + jMidHigh) / 2
	if jMid == 0 {
		return 0.2
	}
	gapRatio := math.Abs(rMid-jMid) / jMid
	switch {
	case gapRatio <= 0.2:
		return 0.8
	case gapRatio <= 0.4:
		return 0.6
	case gapRatio <= 0.6:
		return 0.4
	default:
		return 0.2
	}
}

// --- Derived classification ---

func matchLevel(overall float64) models.MatchLevel {
	switch {
	case overall >= 0.85:
		return models.MatchExcellent
	case overall >= 0.70:
		return models.MatchGood
	case overall >= 0.50:
		return models.MatchFair
	default:
		return models.MatchPoor
	}
}

func priorityLevel(overall float64) models.PriorityLevel {
	switch {
	case overall >= 0.85:
		return models.PriorityHigh
	case overall >= 0.70:
		return models.PriorityMedium
	case overall >= 0.50:
		return models.PriorityLow
	default:
		return models.PriorityNotRecommended
	}
}

func confidence(d DimensionScores) float64 {
	scores := []float64{d.Semantic, d.Skills, d.Experience, d.Industry, d.Salary}
	mean := 0.0
	for _, v := range scores {
		mean += v
	}
	mean /= float64(len(scores))
	variance := 0.0
	for _, v := range scores {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(scores))
	return math.Max(0.5, 1-variance)
}

func analyze(d DimensionScores, matched, missing []string) MatchAnalysis {
	a := MatchAnalysis{MatchedSkills: matched, MissingSkills: missing}
	if d.Skills >= 0.7 {
		a.Strengths = append(a.Strengths, "Strong skills alignment with job requirements")
	} else if d.Skills < 0.4 {
		a.Weaknesses = append(a.Weaknesses, "Significant skills gap versus job requirements")
		a.Recommendations = append(a.Recommendations, "Highlight or develop the missing skills before applying")
	}
	if d.Experience >= 0.9 {
		a.Strengths = append(a.Strengths, "Experience level matches or exceeds requirement")
	} else if d.Experience < 0.6 {
		a.Weaknesses = append(a.Weaknesses, "Experience below the job's stated requirement")
	}
	if d.Salary < 0.4 {
		a.Weaknesses = append(a.Weaknesses, "Salary expectations are misaligned with this role")
		a.Recommendations = append(a.Recommendations, "Confirm compensation range before investing further")
	}
	if d.Industry == 0 {
		a.Weaknesses = append(a.Weaknesses, "No industry overlap detected")
	}
	sort.Strings(a.MatchedSkills)
	sort.Strings(a.MissingSkills)
	return a
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func containsString(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}
