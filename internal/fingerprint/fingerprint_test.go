package fingerprint

import "testing"

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("Senior Python Engineer", "ACME", "20,000-40,000", "Shanghai")
	b := Fingerprint("Senior Python Engineer", "ACME", "20,000-40,000", "Shanghai")
	if a != b {
		t.Fatalf("fingerprint not deterministic: %s != %s", a, b)
	}
	if len(a) != 12 {
		t.Fatalf("expected 12 hex chars, got %d (%s)", len(a), a)
	}
}

func TestFingerprintStableUnderWhitespaceAndSalaryFormat(t *testing.T) {
	a := Fingerprint(" Senior Python 工程师 ", "ACME (Shanghai)", "20,000-40,000", "上海市")
	b := Fingerprint("Senior Python 工程师", "ACME Shanghai", "20000-40000", "上海")
	if a != b {
		t.Fatalf("expected stable fingerprint across whitespace/punctuation/salary variants: %s != %s", a, b)
	}
}

func TestFingerprintEmptySalaryAndLocationStillValid(t *testing.T) {
	fp := Fingerprint("Engineer", "ACME", "", "")
	if len(fp) != 12 {
		t.Fatalf("expected 12-hex string even with empty salary/location, got %q", fp)
	}
}

func TestNormalizeSalary(t *testing.T) {
	cases := map[string]string{
		"20,000-40,000": "20-40k",
		"20000-40000":   "20-40k",
		"15k":           "15k",
		"面议":            "",
	}
	for in, want := range cases {
		if got := normalizeSalary(in); got != want {
			t.Errorf("normalizeSalary(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeLocation(t *testing.T) {
	cases := map[string]string{
		"上海市": "上海",
		"北京":  "北京",
		"广东省": "广东",
	}
	for in, want := range cases {
		if got := normalizeLocation(in); got != want {
			t.Errorf("normalizeLocation(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJobIDPrefersNumericURLSuffix(t *testing.T) {
	id := JobID("Senior Python Engineer", "ACME", "https://jobs.example.com/position/88213491.html")
	if id != "qc_88213491" {
		t.Fatalf("expected numeric id extracted from url, got %q", id)
	}
}

func TestJobIDPrefersJobIDQueryParam(t *testing.T) {
	id := JobID("Senior Python Engineer", "ACME", "https://jobs.example.com/view?jobid=4471002")
	if id != "qc_4471002" {
		t.Fatalf("expected id extracted from jobid query param, got %q", id)
	}
}

func TestJobIDFallsBackToHashWhenURLHasNoExtractableID(t *testing.T) {
	id := JobID("Senior Python Engineer", "ACME", "https://jobs.example.com/detail/abc")
	if len(id) != 15 || id[:3] != "qc_" {
		t.Fatalf("expected qc_-prefixed 12-hex hash fallback, got %q", id)
	}
}

func TestJobIDDistinctFromFingerprintFormula(t *testing.T) {
	title, company := "Senior Python Engineer", "ACME"
	jobID := JobID(title, company, "")
	fp := Fingerprint(title, company, "20,000-40,000", "Shanghai")
	if jobID == fp {
		t.Fatal("job_id and job_fingerprint must use distinct formulas")
	}
}

func TestJobIDStableAcrossEmptyURL(t *testing.T) {
	a := JobID("Engineer", "ACME", "")
	b := JobID("Engineer", "ACME", "")
	if a != b {
		t.Fatalf("expected deterministic id for repeated empty-url input: %s != %s", a, b)
	}
}

func TestIsDuplicateByFingerprint(t *testing.T) {
	j1 := Job{Fingerprint: "abc123def456", Title: "Engineer", Company: "ACME"}
	j2 := Job{Fingerprint: "abc123def456", Title: "Different Title", Company: "Other Co"}
	if !IsDuplicate(j1, j2, 0.9) {
		t.Fatal("expected duplicate when fingerprints match regardless of text")
	}
}

func TestIsDuplicateByTextSimilarity(t *testing.T) {
	j1 := Job{Title: "senior python engineer", Company: "acme"}
	j2 := Job{Title: "senior python engineer", Company: "acme"}
	if !IsDuplicate(j1, j2, 0.9) {
		t.Fatal("expected duplicate for identical title/company text")
	}

	j3 := Job{Title: "completely different role", Company: "other corp"}
	if IsDuplicate(j1, j3, 0.9) {
		t.Fatal("did not expect duplicate for dissimilar title/company")
	}
}
