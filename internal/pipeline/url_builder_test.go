package pipeline

import (
	"testing"

	"jobscout/internal/config"
)

func TestBuildSearchURLFieldOrderAndEscaping(t *testing.T) {
	cfg := &config.Config{}
	cfg.Search.BaseURL = "https://jobs.example.com/search"
	cfg.Search.JobArea = "上海"
	cfg.Search.SearchType = "default"
	cfg.Search.KeywordType = "position"

	got := BuildSearchURL(cfg, "golang 工程师")
	want := "https://jobs.example.com/search?jobArea=%E4%B8%8A%E6%B5%B7&keyword=golang+%E5%B7%A5%E7%A8%8B%E5%B8%88&searchType=default&keywordType=position"
	if got != want {
		t.Fatalf("BuildSearchURL mismatch:\n got:  %s\n want: %s", got, want)
	}
}
