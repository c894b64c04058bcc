package resume

import (
	"context"
	"testing"
)

func TestGetAllSkillsPreservesInsertionOrder(t *testing.T) {
	p := &Profile{}
	p.AddSkillCategory(SkillCategory{Name: "languages", Skills: []string{"Go", "Python"}})
	p.AddSkillCategory(SkillCategory{Name: "infra", Skills: []string{"Kubernetes", "Terraform"}})

	got := p.GetAllSkills()
	want := []string{"Go", "Python", "Kubernetes", "Terraform"}
	if len(got) != len(want) {
		t.Fatalf("expected %d skills, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("skill order mismatch at %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAddWorkExperienceAccumulatesTotalYears(t *testing.T) {
	p := &Profile{}
	p.AddWorkExperience(WorkExperience{Company: "Acme", DurationYears: 2.5, Industry: "tech"})
	p.AddWorkExperience(WorkExperience{Company: "Globex", DurationYears: 1.0, Industry: "finance"})

	if p.TotalExperienceYears != 3.5 {
		t.Fatalf("expected accumulated total 3.5, got %v", p.TotalExperienceYears)
	}
}

func TestCalculateIndustryExperienceYearsGroupsByIndustry(t *testing.T) {
	p := &Profile{}
	p.AddWorkExperience(WorkExperience{Company: "Acme", DurationYears: 2.0, Industry: "tech"})
	p.AddWorkExperience(WorkExperience{Company: "Initech", DurationYears: 1.5, Industry: "tech"})
	p.AddWorkExperience(WorkExperience{Company: "Globex", DurationYears: 3.0, Industry: "finance"})

	years := p.CalculateIndustryExperienceYears()
	if years["tech"] != 3.5 {
		t.Fatalf("expected tech = 3.5, got %v", years["tech"])
	}
	if years["finance"] != 3.0 {
		t.Fatalf("expected finance = 3.0, got %v", years["finance"])
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	p := &Profile{Name: "Jane Doe", TotalExperienceYears: 5}
	p.AddSkillCategory(SkillCategory{Name: "languages", Skills: []string{"Go"}})

	data, err := p.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	round, err := Deserialize(data)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if round.Name != p.Name || len(round.SkillCategories) != 1 {
		t.Fatalf("round trip mismatch: %+v", round)
	}
}

func TestStaticRegistryReturnsConfiguredDefault(t *testing.T) {
	p := &Profile{Name: "Default Candidate"}
	reg := NewStaticRegistry(p)

	got, err := reg.Default(context.Background())
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if got.Name != "Default Candidate" {
		t.Fatalf("expected configured default profile, got %+v", got)
	}
}

func TestStaticRegistryErrorsWhenUnset(t *testing.T) {
	reg := &StaticRegistry{}
	if _, err := reg.Default(context.Background()); err == nil {
		t.Fatal("expected an error when no default profile is configured")
	}
}
