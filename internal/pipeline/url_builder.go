package pipeline

import (
	"fmt"
	"net/url"

	"jobscout/internal/config"
)

// BuildSearchURL formats the search URL per spec §6:
// {base_url}?jobArea={job_area}&keyword={url-quoted keyword}&searchType={search_type}&keywordType={keyword_type}
func BuildSearchURL(cfg *config.Config, keyword string) string {
	return fmt.Sprintf("%s?jobArea=%s&keyword=%s&searchType=%s&keywordType=%s",
		cfg.Search.BaseURL,
		url.QueryEscape(cfg.Search.JobArea),
		url.QueryEscape(keyword),
		url.QueryEscape(cfg.Search.SearchType),
		url.QueryEscape(cfg.Search.KeywordType),
	)
}
