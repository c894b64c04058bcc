// Package resume implements C10: a pure in-memory candidate profile type.
// Field names and summary-struct shape are grounded on the pack's
// resume_profile.go (ExperienceSummary/SkillSummary/profile-by-section
// loading), adapted to spec §3's attribute list; JSON struct-tag
// conventions follow the teacher's pkg/models package.
package resume

import "encoding/json"

// SkillCategory groups related skills under one proficiency level.
type SkillCategory struct {
	Name             string   `json:"name"`
	Skills           []string `json:"skills"`
	ProficiencyLevel string   `json:"proficiency_level,omitempty"`
	YearsExperience  *float64 `json:"years_experience,omitempty"`
}

// WorkExperience is one résumé work-history entry.
type WorkExperience struct {
	Company         string   `json:"company"`
	Position        string   `json:"position"`
	StartDate       string   `json:"start_date"`
	EndDate         string   `json:"end_date,omitempty"`
	DurationYears   float64  `json:"duration_years"`
	Responsibilities []string `json:"responsibilities,omitempty"`
	Achievements    []string `json:"achievements,omitempty"`
	Technologies    []string `json:"technologies,omitempty"`
	Industry        string   `json:"industry,omitempty"`
}

// SalaryRange is an expected compensation band.
type SalaryRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Profile is spec §3's ResumeProfile: an in-memory candidate model that
// may be persisted externally (C10 itself does no I/O).
type Profile struct {
	Name                 string             `json:"name" validate:"required"`
	Contact              string             `json:"contact,omitempty"`
	TotalExperienceYears float64            `json:"total_experience_years" validate:"gte=0"`
	CurrentPosition      string             `json:"current_position,omitempty"`
	CurrentCompany       string             `json:"current_company,omitempty"`
	SkillCategories      []SkillCategory    `json:"skill_categories"`
	WorkExperiences      []WorkExperience   `json:"work_experiences"`
	Education            []string           `json:"education,omitempty"`
	Projects             []string           `json:"projects,omitempty"`
	Certifications       []string           `json:"certifications,omitempty"`
	Languages            []string           `json:"languages,omitempty"`
	IndustryExperience   map[string]float64 `json:"industry_experience,omitempty"`
	PreferredPositions   []string           `json:"preferred_positions,omitempty"`
	ExpectedSalaryRange  *SalaryRange       `json:"expected_salary_range,omitempty"`
	CareerObjectives     []string           `json:"career_objectives,omitempty"`
	SoftSkills           []string           `json:"soft_skills,omitempty"`
	ProfileType          string             `json:"profile_type,omitempty"`
}

// GetAllSkills concatenates skill lists across categories, preserving
// insertion order (spec §3 invariant).
func (p *Profile) GetAllSkills() []string {
	var all []string
	for _, cat := range p.SkillCategories {
		all = append(all, cat.Skills...)
	}
	return all
}

// AddSkillCategory appends a new category, keeping insertion order.
func (p *Profile) AddSkillCategory(cat SkillCategory) {
	p.SkillCategories = append(p.SkillCategories, cat)
}

// AddWorkExperience appends a work-history entry and rolls its duration
// into TotalExperienceYears.
func (p *Profile) AddWorkExperience(we WorkExperience) {
	p.WorkExperiences = append(p.WorkExperiences, we)
	p.TotalExperienceYears += we.DurationYears
}

// CalculateIndustryExperienceYears approximates years spent per industry
// by summing WorkExperience.DurationYears grouped by Industry. This is
// distinct from IndustryExperience, whose values are prior weights in
// [0,1], not years (spec §3 invariant) — this method derives a
// years-based view directly from work history for callers that need it.
func (p *Profile) CalculateIndustryExperienceYears() map[string]float64 {
	years := make(map[string]float64)
	for _, we := range p.WorkExperiences {
		if we.Industry == "" {
			continue
		}
		years[we.Industry] += we.DurationYears
	}
	return years
}

// Serialize converts the profile to its canonical JSON mapping.
func (p *Profile) Serialize() ([]byte, error) {
	return json.Marshal(p)
}

// Deserialize parses a canonical JSON mapping into a Profile.
func Deserialize(data []byte) (*Profile, error) {
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
