package scorer

import (
	"testing"

	"jobscout/internal/resume"
)

func floatPtr(f float64) *float64 { return &f }

func TestSemanticSimilarityPrefersAttachedScore(t *testing.T) {
	s := New(DefaultWeights(), SkillTables{})
	docs := []JobDoc{{SearchScore: floatPtr(0.9)}}
	got := s.semanticSimilarity(docs)
	if got != 0.9 {
		t.Fatalf("expected single attached score to pass through, got %v", got)
	}
}

func TestSemanticSimilarityWeightedMeanAcrossMultipleDocs(t *testing.T) {
	s := New(DefaultWeights(), SkillTables{})
	docs := []JobDoc{{SearchScore: floatPtr(0.9)}, {SearchScore: floatPtr(0.3)}}
	got := s.semanticSimilarity(docs)
	if got <= 0.3 || got >= 0.9 {
		t.Fatalf("expected weighted mean strictly between the two scores, got %v", got)
	}
}

func TestSemanticSimilarityFallsBackToDocumentTypeHeuristic(t *testing.T) {
	s := New(DefaultWeights(), SkillTables{})
	docs := []JobDoc{{DocumentType: "skills", Content: "short"}}
	got := s.semanticSimilarity(docs)
	if got != 0.85 {
		t.Fatalf("expected skills doc-type heuristic 0.85, got %v", got)
	}
}

func TestSkillsMatchEmptyJobSkillsReturnsHalf(t *testing.T) {
	s := New(DefaultWeights(), SkillTables{})
	r := &resume.Profile{}
	score, _, _ := s.skillsMatch(r, JobMetadata{})
	if score != 0.5 {
		t.Fatalf("expected 0.5 for empty job skills, got %v", score)
	}
}

func TestSkillsMatchExactAndSubstringRules(t *testing.T) {
	s := New(DefaultWeights(), SkillTables{})
	r := &resume.Profile{}
	r.AddSkillCategory(resume.SkillCategory{Skills: []string{"Golang", "Postgres"}})

	score, matched, missing := s.skillsMatch(r, JobMetadata{Skills: []string{"golang", "kubernetes"}})
	if len(matched) != 1 || matched[0] != "golang" {
		t.Fatalf("expected golang matched via exact membership, got %v", matched)
	}
	if len(missing) != 1 || missing[0] != "kubernetes" {
		t.Fatalf("expected kubernetes missing, got %v", missing)
	}
	if score <= 0 || score > 1 {
		t.Fatalf("score out of range: %v", score)
	}
}

func TestSkillsMatchCompoundMatchRule(t *testing.T) {
	s := New(DefaultWeights(), SkillTables{})
	r := &resume.Profile{}
	r.AddSkillCategory(resume.SkillCategory{Skills: []string{"distributed systems design"}})

	_, matched, _ := s.skillsMatch(r, JobMetadata{Skills: []string{"systems design experience"}})
	if len(matched) != 1 {
		t.Fatalf("expected compound token overlap to match, got matched=%v", matched)
	}
}

func TestExperienceMatchUnknownRequirementReturnsPoint9(t *testing.T) {
	s := New(DefaultWeights(), SkillTables{})
	r := &resume.Profile{TotalExperienceYears: 5}
	got := s.experienceMatch(r, JobMetadata{})
	if got != 0.9 {
		t.Fatalf("expected 0.9 for unknown requirement, got %v", got)
	}
}

func TestExperienceMatchMeetsAndExceedsRequirement(t *testing.T) {
	s := New(DefaultWeights(), SkillTables{})
	req := 3.0
	r := &resume.Profile{TotalExperienceYears: 4}
	if got := s.experienceMatch(r, JobMetadata{RequiredExperienceYears: &req}); got != 1.0 {
		t.Fatalf("expected 1.0 for have<=2*req, got %v", got)
	}

	r.TotalExperienceYears = 10 // more than 2x the requirement
	if got := s.experienceMatch(r, JobMetadata{RequiredExperienceYears: &req}); got != 0.95 {
		t.Fatalf("expected 0.95 beyond the 2x over-qualification band, got %v", got)
	}
}

func TestExperienceMatchBelowRequirement(t *testing.T) {
	s := New(DefaultWeights(), SkillTables{})
	req := 4.0
	r := &resume.Profile{TotalExperienceYears: 2}
	got := s.experienceMatch(r, JobMetadata{RequiredExperienceYears: &req})
	if got != 0.5 {
		t.Fatalf("expected have/req = 0.5, got %v", got)
	}
}

func TestIndustryMatchAbsentIndustryReturnsPoint7(t *testing.T) {
	s := New(DefaultWeights(), SkillTables{})
	r := &resume.Profile{}
	got := s.industryMatch(r, JobMetadata{})
	if got != 0.7 {
		t.Fatalf("expected 0.7 when job industry absent, got %v", got)
	}
}

func TestIndustryMatchWeightedOverlap(t *testing.T) {
	s := New(DefaultWeights(), SkillTables{})
	r := &resume.Profile{IndustryExperience: map[string]float64{"fintech": 0.8}}
	got := s.industryMatch(r, JobMetadata{Industry: "fintech"})
	if got != 0.8 {
		t.Fatalf("expected résumé-recorded industry weight 0.8, got %v", got)
	}
}

func TestSalaryMatchMissingReturnsPoint8(t *testing.T) {
	s := New(DefaultWeights(), SkillTables{})
	r := &resume.Profile{}
	got := s.salaryMatch(r, JobMetadata{})
	if got != 0.8 {
		t.Fatalf("expected 0.8 when salary data missing, got %v", got)
	}
}

func TestSalaryMatchOverlappingRanges(t *testing.T) {
	s := New(DefaultWeights(), SkillTables{})
	r := &resume.Profile{ExpectedSalaryRange: &resume.SalaryRange{Min: 80, Max: 120}}
	got := s.salaryMatch(r, JobMetadata{SalaryMin: floatPtr(100), SalaryMax: floatPtr(140)})
	if got <= 0 || got > 1 {
		t.Fatalf("expected an in-range overlap score, got %v", got)
	}
}

func TestWeightsNormalizeSumsToOne(t *testing.T) {
	w := Weights{Semantic: 2, Skills: 2, Experience: 2, Industry: 2, Salary: 2}.Normalize()
	sum := w.Semantic + w.Skills + w.Experience + w.Industry + w.Salary
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("expected weights to normalize to 1.0, got %v", sum)
	}
}

func TestDefaultSkillTablesSynonymLatticeMatchesAzureVariant(t *testing.T) {
	s := New(DefaultWeights(), DefaultSkillTables())
	r := &resume.Profile{}
	r.AddSkillCategory(resume.SkillCategory{Skills: []string{"Azure"}})

	_, matched, missing := s.skillsMatch(r, JobMetadata{Skills: []string{"azure data factory", "microsoft azure"}})
	if len(missing) != 0 {
		t.Fatalf("expected microsoft azure to resolve against résumé's azure via the synonym lattice, got missing=%v matched=%v", missing, matched)
	}
}

func TestDefaultSkillTablesIndustryCategoryBridgesPharmaAndHealthcare(t *testing.T) {
	s := New(DefaultWeights(), DefaultSkillTables())
	r := &resume.Profile{WorkExperiences: []resume.WorkExperience{{Industry: "制药"}}}

	got := s.industryMatch(r, JobMetadata{Industry: "Healthcare"})
	if got <= 0 {
		t.Fatalf("expected the healthcare industry category to bridge 制药 and Healthcare, got %v", got)
	}
}

func TestDefaultSkillTablesHighValueBonusRewardsUnrequestedCoreSkill(t *testing.T) {
	withTables := New(DefaultWeights(), DefaultSkillTables())
	withoutTables := New(DefaultWeights(), SkillTables{})
	r := &resume.Profile{}
	r.AddSkillCategory(resume.SkillCategory{Skills: []string{"golang", "databricks"}})

	// kubernetes stays unmatched so the base score is below 1.0 and the
	// bonus is not clamped away.
	meta := JobMetadata{Skills: []string{"golang", "kubernetes"}}
	scoreWith, _, _ := withTables.skillsMatch(r, meta)
	scoreWithout, _, _ := withoutTables.skillsMatch(r, meta)
	if scoreWith <= scoreWithout {
		t.Fatalf("expected databricks high-value bonus to raise the score above the untabled baseline, with=%v without=%v", scoreWith, scoreWithout)
	}
}

func TestScoreEndToEndProducesClassifiedResult(t *testing.T) {
	s := New(DefaultWeights(), SkillTables{})
	r := &resume.Profile{TotalExperienceYears: 5, ExpectedSalaryRange: &resume.SalaryRange{Min: 90, Max: 130}}
	r.AddSkillCategory(resume.SkillCategory{Skills: []string{"golang", "kubernetes", "postgres"}})

	result := s.Score(r, []JobDoc{{SearchScore: floatPtr(0.85)}}, JobMetadata{
		Skills:    []string{"golang", "kubernetes"},
		SalaryMin: floatPtr(100), SalaryMax: floatPtr(120),
	})

	if result.Overall <= 0 || result.Overall > 1 {
		t.Fatalf("overall score out of range: %v", result.Overall)
	}
	if result.MatchLevel == "" || result.Priority == "" {
		t.Fatalf("expected classification to be populated: %+v", result)
	}
	if result.Confidence < 0.5 {
		t.Fatalf("confidence should never fall below 0.5, got %v", result.Confidence)
	}
}
