package config

import (
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration tree, mirroring the section list
// agreed for this pipeline: app, database, websites, selenium, crawler,
// login, login_mode, mode, search, selectors, rag_system, resume_matching,
// resume_matching_advanced.
type Config struct {
	App struct {
		Name        string `yaml:"name" default:"job-pipeline"`
		Environment string `yaml:"environment" default:"development"`
	} `yaml:"app"`

	Database struct {
		Path string `yaml:"path" default:"data/jobs.db"`
	} `yaml:"database"`

	// Server configures the thin HTTP surface in front of C12/C13 (spec
	// §1: out-of-scope glue, kept minimal, not a focus of the pipeline).
	Server struct {
		Host         string        `yaml:"host" default:"0.0.0.0"`
		Port         int           `yaml:"port" default:"8080"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
	} `yaml:"server"`

	Websites map[string]WebsiteConfig `yaml:"websites"`

	Selenium struct {
		Headless           bool          `yaml:"headless" default:"true"`
		WindowSize         string        `yaml:"window_size" default:"1920,1080"`
		PageLoadTimeout    time.Duration `yaml:"page_load_timeout" default:"30s"`
		ElementWaitTimeout time.Duration `yaml:"element_wait_timeout" default:"10s"`
		ImplicitWait       time.Duration `yaml:"implicit_wait" default:"5s"`
	} `yaml:"selenium"`

	Crawler struct {
		MaxRetries     int           `yaml:"max_retries" default:"3"`
		RequestTimeout time.Duration `yaml:"request_timeout" default:"30s"`
		StealthMode    bool          `yaml:"stealth_mode" default:"true"`
		Captcha        struct {
			Provider        string        `yaml:"provider" default:"2captcha"`
			APIKey          string        `yaml:"api_key"`
			Timeout         time.Duration `yaml:"timeout" default:"120s"`
			EnableAutoSolve bool          `yaml:"enable_auto_solve" default:"true"`
		} `yaml:"captcha"`
	} `yaml:"crawler"`

	Login struct {
		LoginURL           string        `yaml:"login_url"`
		WaitTimeout        time.Duration `yaml:"wait_timeout" default:"120s"`
		CheckInterval      time.Duration `yaml:"check_interval" default:"2s"`
		SuccessIndicators  []string      `yaml:"success_indicators"`
		FailureIndicators  []string      `yaml:"failure_indicators"`
	} `yaml:"login"`

	LoginMode struct {
		Enabled                   bool          `yaml:"enabled" default:"true"`
		MaxLoginAttempts          int           `yaml:"max_login_attempts" default:"3"`
		LoginRetryDelay           time.Duration `yaml:"login_retry_delay" default:"5s"`
		SessionValidationInterval time.Duration `yaml:"session_validation_interval" default:"300s"`
		AutoSaveSession           bool          `yaml:"auto_save_session" default:"true"`
		RequireLoginForDetails    bool          `yaml:"require_login_for_details" default:"true"`
		MaxRecoveryAttempts       int           `yaml:"max_recovery_attempts" default:"2"`
		RecoveryBackoff           time.Duration `yaml:"recovery_backoff" default:"5s"`
	} `yaml:"login_mode"`

	Mode struct {
		SkipLogin       bool          `yaml:"skip_login" default:"false"`
		UseSavedSession bool          `yaml:"use_saved_session" default:"true"`
		SessionFile     string        `yaml:"session_file" default:"data/session.json"`
		SessionTimeout  time.Duration `yaml:"session_timeout" default:"1h"`
		CloseOnComplete bool          `yaml:"close_on_complete" default:"false"`
		Development     bool          `yaml:"development" default:"false"`
		Debug           bool          `yaml:"debug" default:"false"`
	} `yaml:"mode"`

	Search struct {
		BaseURL     string `yaml:"base_url"`
		JobArea     string `yaml:"job_area"`
		KeywordType string `yaml:"keyword_type"`
		SearchType  string `yaml:"search_type"`
		Keywords    struct {
			Priority1 []string `yaml:"priority_1"`
			Priority2 []string `yaml:"priority_2"`
			Priority3 []string `yaml:"priority_3"`
		} `yaml:"keywords"`
		Strategy struct {
			MaxPages             int           `yaml:"max_pages" default:"10"`
			EnablePagination     bool          `yaml:"enable_pagination" default:"true"`
			PageDelay            time.Duration `yaml:"page_delay" default:"2s"`
			MaxResultsPerKeyword int           `yaml:"max_results_per_keyword" default:"200"`
		} `yaml:"strategy"`
	} `yaml:"search"`

	Selectors struct {
		SearchPage SelectorSet `yaml:"search_page"`
		JobDetail  SelectorSet `yaml:"job_detail"`
	} `yaml:"selectors"`

	RAGSystem struct {
		VectorDB struct {
			PersistDirectory string `yaml:"persist_directory" default:"chroma_db"`
			CollectionName   string `yaml:"collection_name" default:"jobs"`
			Embeddings       struct {
				Provider         string `yaml:"provider" default:"openai"`
				Model            string `yaml:"model" default:"text-embedding-3-small"`
				APIKey           string `yaml:"api_key"`
				LocalModelPath   string `yaml:"local_model_path"`
				PerformanceLevel string `yaml:"performance_level" default:"balanced"`
				ChineseOptimized bool   `yaml:"chinese_optimized" default:"false"`
				Offline          bool   `yaml:"offline" default:"false"`
			} `yaml:"embeddings"`
			TimeAwareSearch struct {
				EnableTimeBoost bool          `yaml:"enable_time_boost" default:"true"`
				FreshDataBoost  float64       `yaml:"fresh_data_boost" default:"0.2"`
				FreshDataDays   int           `yaml:"fresh_data_days" default:"7"`
				TimeDecayFactor float64       `yaml:"time_decay_factor" default:"0.1"`
				SearchStrategy  string        `yaml:"search_strategy" default:"hybrid"`
			} `yaml:"time_aware_search"`
		} `yaml:"vector_db"`
	} `yaml:"rag_system"`

	ResumeMatching struct {
		MatchingThreshold  float64  `yaml:"matching_threshold" default:"0.5"`
		MaxMatchesPerResume int     `yaml:"max_matches_per_resume" default:"50"`
		Algorithms         []string `yaml:"algorithms"`
		// DefaultProfilePath points at a serialized resume.Profile (spec §3
		// "may be persisted externally") used to seed C13's auto-repair
		// résumé registry. Empty disables auto-repair regardless of
		// monitor.auto_repair, since there is no résumé to score against.
		DefaultProfilePath string `yaml:"default_profile_path"`
	} `yaml:"resume_matching"`

	ResumeMatchingAdvanced struct {
		MatchingWeights struct {
			SemanticSimilarity float64 `yaml:"semantic_similarity" default:"0.40"`
			SkillsMatch        float64 `yaml:"skills_match" default:"0.45"`
			ExperienceMatch    float64 `yaml:"experience_match" default:"0.05"`
			IndustryMatch      float64 `yaml:"industry_match" default:"0.02"`
			SalaryMatch        float64 `yaml:"salary_match" default:"0.08"`
		} `yaml:"matching_weights"`
		MatchThresholds struct {
			Poor float64 `yaml:"poor" default:"0.5"`
		} `yaml:"match_thresholds"`
		DefaultSearchK int `yaml:"default_search_k" default:"30"`
		MaxResults     int `yaml:"max_results" default:"10"`
		TimeAwareMatching struct {
			Enabled  bool   `yaml:"enabled" default:"true"`
			Strategy string `yaml:"strategy" default:"hybrid"`
		} `yaml:"time_aware_matching"`
	} `yaml:"resume_matching_advanced"`

	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`

		Adapters []struct {
			Name    string                 `yaml:"name"`
			Type    string                 `yaml:"type"`
			Enabled bool                   `yaml:"enabled"`
			Options map[string]interface{} `yaml:"options"`
		} `yaml:"adapters"`
	} `yaml:"logging"`

	Redis struct {
		Enabled  bool          `yaml:"enabled" default:"false"`
		URL      string        `yaml:"url" default:"redis://localhost:6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db" default:"0"`
		Timeout  time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"redis"`

	Monitor struct {
		Interval        time.Duration `yaml:"interval" default:"6h"`
		MinMatchRate    float64       `yaml:"min_match_rate" default:"0.15"`
		MinAvgScore     float64       `yaml:"min_avg_score" default:"0.5"`
		AutoRepair      bool          `yaml:"auto_repair" default:"false"`
		AutoRepairLimit int           `yaml:"auto_repair_limit" default:"50"`
		HistorySize     int           `yaml:"history_size" default:"100"`
	} `yaml:"monitor"`
}

// WebsiteConfig is the per-website target contract (spec §6 websites.<name>).
type WebsiteConfig struct {
	Enabled              bool   `yaml:"enabled" default:"true"`
	BaseURL              string `yaml:"base_url"`
	LoginURL             string `yaml:"login_url"`
	SearchURL            string `yaml:"search_url"`
	LoginCheckElement    string `yaml:"login_check_element"`
	SubmitButtonSelector string `yaml:"submit_button_selector"`
}

// SelectorSet holds one configured primary selector per field; the page
// parser walks its own hard-coded fallback list when a field is empty here.
type SelectorSet struct {
	Container      string `yaml:"container"`
	Title          string `yaml:"title"`
	Company        string `yaml:"company"`
	Salary         string `yaml:"salary"`
	Location       string `yaml:"location"`
	Experience     string `yaml:"experience"`
	Education      string `yaml:"education"`
	Description    string `yaml:"description"`
	Requirements   string `yaml:"requirements"`
	Benefits       string `yaml:"benefits"`
	PublishTime    string `yaml:"publish_time"`
	NextPage       string `yaml:"next_page"`
	PaginationInfo string `yaml:"pagination_info"`
}

// expandEnvVars expands "${VAR}" and "${VAR:default}" then bare "$VAR"
// references in s against the process environment.
func expandEnvVars(s string) string {
	braced := regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:([^}]*))?\}`)
	s = braced.ReplaceAllStringFunc(s, func(match string) string {
		groups := braced.FindStringSubmatch(match)
		name, def := groups[1], groups[3]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return def
	})

	bare := regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	s = bare.ReplaceAllStringFunc(s, func(match string) string {
		name := match[1:]
		if val := os.Getenv(name); val != "" {
			return val
		}
		return match
	})

	return s
}

// LoadConfig loads defaults, then an optional YAML file (with ${VAR:default}
// expansion), then environment variable overrides, in that precedence order.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	c := &Config{}
	c.applyDefaults()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			expanded := expandEnvVars(string(data))
			if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
				return nil, err
			}
		}
	}

	c.loadFromEnv()
	c.normalizeWeights()

	return c, nil
}

func (c *Config) applyDefaults() {
	c.App.Name = "job-pipeline"
	c.App.Environment = "development"

	c.Database.Path = "data/jobs.db"

	c.Server.Host = "0.0.0.0"
	c.Server.Port = 8080
	c.Server.ReadTimeout = 30 * time.Second
	c.Server.WriteTimeout = 30 * time.Second

	c.Selenium.Headless = true
	c.Selenium.WindowSize = "1920,1080"
	c.Selenium.PageLoadTimeout = 30 * time.Second
	c.Selenium.ElementWaitTimeout = 10 * time.Second
	c.Selenium.ImplicitWait = 5 * time.Second

	c.Crawler.MaxRetries = 3
	c.Crawler.RequestTimeout = 30 * time.Second
	c.Crawler.StealthMode = true
	c.Crawler.Captcha.Provider = "2captcha"
	c.Crawler.Captcha.Timeout = 120 * time.Second
	c.Crawler.Captcha.EnableAutoSolve = true

	c.Login.WaitTimeout = 120 * time.Second
	c.Login.CheckInterval = 2 * time.Second

	c.LoginMode.Enabled = true
	c.LoginMode.MaxLoginAttempts = 3
	c.LoginMode.LoginRetryDelay = 5 * time.Second
	c.LoginMode.SessionValidationInterval = 300 * time.Second
	c.LoginMode.AutoSaveSession = true
	c.LoginMode.RequireLoginForDetails = true
	c.LoginMode.MaxRecoveryAttempts = 2
	c.LoginMode.RecoveryBackoff = 5 * time.Second

	c.Mode.UseSavedSession = true
	c.Mode.SessionFile = "data/session.json"
	c.Mode.SessionTimeout = time.Hour

	c.Search.Strategy.MaxPages = 10
	c.Search.Strategy.EnablePagination = true
	c.Search.Strategy.PageDelay = 2 * time.Second
	c.Search.Strategy.MaxResultsPerKeyword = 200

	c.RAGSystem.VectorDB.PersistDirectory = "chroma_db"
	c.RAGSystem.VectorDB.CollectionName = "jobs"
	c.RAGSystem.VectorDB.Embeddings.Provider = "openai"
	c.RAGSystem.VectorDB.Embeddings.Model = "text-embedding-3-small"
	c.RAGSystem.VectorDB.Embeddings.PerformanceLevel = "balanced"
	c.RAGSystem.VectorDB.TimeAwareSearch.EnableTimeBoost = true
	c.RAGSystem.VectorDB.TimeAwareSearch.FreshDataBoost = 0.2
	c.RAGSystem.VectorDB.TimeAwareSearch.FreshDataDays = 7
	c.RAGSystem.VectorDB.TimeAwareSearch.TimeDecayFactor = 0.1
	c.RAGSystem.VectorDB.TimeAwareSearch.SearchStrategy = "hybrid"

	c.ResumeMatching.MatchingThreshold = 0.5
	c.ResumeMatching.MaxMatchesPerResume = 50

	c.ResumeMatchingAdvanced.MatchingWeights.SemanticSimilarity = 0.40
	c.ResumeMatchingAdvanced.MatchingWeights.SkillsMatch = 0.45
	c.ResumeMatchingAdvanced.MatchingWeights.ExperienceMatch = 0.05
	c.ResumeMatchingAdvanced.MatchingWeights.IndustryMatch = 0.02
	c.ResumeMatchingAdvanced.MatchingWeights.SalaryMatch = 0.08
	c.ResumeMatchingAdvanced.MatchThresholds.Poor = 0.5
	c.ResumeMatchingAdvanced.DefaultSearchK = 30
	c.ResumeMatchingAdvanced.MaxResults = 10
	c.ResumeMatchingAdvanced.TimeAwareMatching.Enabled = true
	c.ResumeMatchingAdvanced.TimeAwareMatching.Strategy = "hybrid"

	c.Logging.Level = "info"
	c.Logging.Format = "json"
	c.Logging.Output = "stdout"

	c.Redis.Enabled = false
	c.Redis.URL = "redis://localhost:6379"
	c.Redis.DB = 0
	c.Redis.Timeout = 5 * time.Second

	c.Monitor.Interval = 6 * time.Hour
	c.Monitor.MinMatchRate = 0.15
	c.Monitor.MinAvgScore = 0.5
	c.Monitor.AutoRepairLimit = 50
	c.Monitor.HistorySize = 100
}

// normalizeWeights rescales resume_matching_advanced.matching_weights so the
// scorer weights sum to 1.0 after loading. That block is the only weight
// source read: resume_matching.algorithms is not consulted for weights.
func (c *Config) normalizeWeights() {
	w := &c.ResumeMatchingAdvanced.MatchingWeights
	sum := w.SemanticSimilarity + w.SkillsMatch + w.ExperienceMatch + w.IndustryMatch + w.SalaryMatch
	if sum <= 0 {
		w.SemanticSimilarity, w.SkillsMatch, w.ExperienceMatch, w.IndustryMatch, w.SalaryMatch = 0.40, 0.45, 0.05, 0.02, 0.08
		return
	}
	w.SemanticSimilarity /= sum
	w.SkillsMatch /= sum
	w.ExperienceMatch /= sum
	w.IndustryMatch /= sum
	w.SalaryMatch /= sum
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("CAPTCHA_API_KEY"); v != "" {
		c.Crawler.Captcha.APIKey = v
	}
	if v := os.Getenv("2CAPTCHA_API_KEY"); v != "" {
		c.Crawler.Captcha.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.RAGSystem.VectorDB.Embeddings.APIKey = v
	}
	if v := os.Getenv("RESUME_DEFAULT_PROFILE_PATH"); v != "" {
		c.ResumeMatching.DefaultProfilePath = v
	}
	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		c.Redis.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = db
		}
	}
	if v := os.Getenv("SESSION_FILE"); v != "" {
		c.Mode.SessionFile = v
	}
	if v := os.Getenv("MONITOR_AUTO_REPAIR"); v != "" {
		c.Monitor.AutoRepair = v == "true" || v == "1"
	}

	c.loadLoggingAdapterEnvVars()
}

// loadLoggingAdapterEnvVars mirrors the teacher's per-adapter environment
// override mechanism (kept generic rather than hard-coded to one vendor).
func (c *Config) loadLoggingAdapterEnvVars() {
	for i := range c.Logging.Adapters {
		adapter := &c.Logging.Adapters[i]
		if adapter.Type == "" {
			continue
		}
		prefix := "LOG_ADAPTER_" + adapter.Name
		if token := os.Getenv(prefix + "_TOKEN"); token != "" {
			if adapter.Options == nil {
				adapter.Options = make(map[string]interface{})
			}
			adapter.Options["token"] = token
		}
		if endpoint := os.Getenv(prefix + "_ENDPOINT"); endpoint != "" {
			if adapter.Options == nil {
				adapter.Options = make(map[string]interface{})
			}
			adapter.Options["endpoint"] = endpoint
		}
	}
}
