package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port         int           `yaml:"port" validate:"min=1,max=65535"`
		Host         string        `yaml:"host"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		IdleTimeout  time.Duration `yaml:"idle_timeout"`
	} `yaml:"server"`

	Browser    BrowserConfig    `yaml:"browser"`
	Consent    ConsentConfig    `yaml:"consent"`
	Challenge  ChallengeConfig  `yaml:"challenge"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Linked     LinkedConfig     `yaml:"linked"`
	Redis      RedisConfig      `yaml:"redis"`
	LLM        LLMConfig        `yaml:"llm"`

	BackgroundTasks BackgroundConfig `yaml:"background_tasks"`

	Logging struct {
		Level    string          `yaml:"level" validate:"oneof=debug info warn warning error fatal"`
		Format   string          `yaml:"format" validate:"oneof=json text"`
		Adapters []AdapterConfig `yaml:"adapters"`
	} `yaml:"logging"`
}

// AdapterConfig configures one logging adapter
type AdapterConfig struct {
	Name    string                 `yaml:"name"`
	Type    string                 `yaml:"type"`
	Enabled bool                   `yaml:"enabled"`
	Options map[string]interface{} `yaml:"options"`
}

// BrowserConfig configures the shared headless browser and its page slots
type BrowserConfig struct {
	Headless          bool          `yaml:"headless"`
	BinPath           string        `yaml:"bin_path"`
	SlotCount         int           `yaml:"slot_count" validate:"min=1,max=64"`
	LaunchRetries     int           `yaml:"launch_retries" validate:"min=0,max=5"`
	LaunchTimeout     time.Duration `yaml:"launch_timeout"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	UserAgent         string        `yaml:"user_agent"`
	AcceptLanguage    string        `yaml:"accept_language"`
	ViewportWidth     int           `yaml:"viewport_width" validate:"min=320"`
	ViewportHeight    int           `yaml:"viewport_height" validate:"min=240"`
	Stealth           bool          `yaml:"stealth"`
	BlockedHosts      []string      `yaml:"blocked_hosts"`
	AllowedPatterns   []string      `yaml:"allowed_patterns"`
}

// BackgroundConfig configures the asynchronous batch task manager
type BackgroundConfig struct {
	Workers         int           `yaml:"workers" validate:"min=1,max=64"`
	QueueSize       int           `yaml:"queue_size" validate:"min=1"`
	TaskTimeout     time.Duration `yaml:"task_timeout"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	MaxTaskAge      time.Duration `yaml:"max_task_age"`
}

// Cookie is a consent cookie seeded before any UI interaction
type Cookie struct {
	Name   string `yaml:"name"`
	Value  string `yaml:"value"`
	Domain string `yaml:"domain"`
	Path   string `yaml:"path"`
}

// ConsentConfig configures the cookie-consent wall handling
type ConsentConfig struct {
	PollIterations int               `yaml:"poll_iterations" validate:"min=1,max=50"`
	PollInterval   time.Duration     `yaml:"poll_interval"`
	SettleDelay    time.Duration     `yaml:"settle_delay"`
	Cookies        []Cookie          `yaml:"cookies"`
	StorageFlags   map[string]string `yaml:"storage_flags"`
	BannerPhrases  []string          `yaml:"banner_phrases"`
	VendorMarkers  []string          `yaml:"vendor_markers"`
	AcceptPhrases  []string          `yaml:"accept_phrases"`
	Vocabulary     []string          `yaml:"vocabulary"`
}

// ChallengeConfig configures the image challenge solving flow
type ChallengeConfig struct {
	Provider         string        `yaml:"provider" validate:"oneof=2captcha claude"`
	APIKey           string        `yaml:"api_key"`
	Timeout          time.Duration `yaml:"timeout"`
	PollingInterval  time.Duration `yaml:"polling_interval"`
	MaxCycles        int           `yaml:"max_cycles" validate:"min=1,max=10"`
	TimeBudget       time.Duration `yaml:"time_budget"`
	MinLength        int           `yaml:"min_length" validate:"min=0"`
	MaxLength        int           `yaml:"max_length" validate:"min=0"`
	CaseSensitive    bool          `yaml:"case_sensitive"`
	Language         string        `yaml:"language"`
	MinImageWidth    float64       `yaml:"min_image_width"`
	MinImageHeight   float64       `yaml:"min_image_height"`
	SettleDelay      time.Duration `yaml:"settle_delay"`
	ContactWait      time.Duration `yaml:"contact_wait"`
	ImageSelectors   []string      `yaml:"image_selectors"`
	InputSelectors   []string      `yaml:"input_selectors"`
	SubmitSelectors  []string      `yaml:"submit_selectors"`
	RefreshSelectors []string      `yaml:"refresh_selectors"`
	ChallengeCopy    []string      `yaml:"challenge_copy"`
	UnsupportedRunes string        `yaml:"unsupported_runes"`
}

// ExtractionConfig configures contact extraction
type ExtractionConfig struct {
	ContactSectionSelectors []string `yaml:"contact_section_selectors"`
	IgnoredEmailDomains     []string `yaml:"ignored_email_domains"`
	ExternalLinkMarkers     []string `yaml:"external_link_markers"`
}

// EnrichmentConfig configures the orchestrator
type EnrichmentConfig struct {
	TargetBaseURL       string        `yaml:"target_base_url" validate:"required,url"`
	BatchSize           int           `yaml:"batch_size" validate:"min=1,max=64"`
	BatchDelay          time.Duration `yaml:"batch_delay"`
	StepDelay           time.Duration `yaml:"step_delay"`
	JobTimeout          time.Duration `yaml:"job_timeout"`
	FollowExternalLinks bool          `yaml:"follow_external_links"`
}

// RateLimitConfig configures per-host politeness limiting
type RateLimitConfig struct {
	RequestsPerMinute int           `yaml:"requests_per_minute" validate:"min=1"`
	Burst             int           `yaml:"burst" validate:"min=1"`
	MaxFailures       int           `yaml:"max_failures" validate:"min=1"`
	ResetTimeout      time.Duration `yaml:"reset_timeout"`
}

// LinkedConfig configures fetching of cross-origin partner pages
type LinkedConfig struct {
	APIKey     string        `yaml:"api_key"`
	APIURL     string        `yaml:"api_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries" validate:"min=1,max=5"`
}

// RedisConfig configures the result sink
type RedisConfig struct {
	Enabled   bool          `yaml:"enabled"`
	URL       string        `yaml:"url"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	Timeout   time.Duration `yaml:"timeout"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// LLMConfig configures the vision model used by the claude challenge provider
type LLMConfig struct {
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"max_tokens" validate:"min=1"`
	Timeout   time.Duration `yaml:"timeout"`
}

var (
	bracedEnvVar = regexp.MustCompile(`\$\{([^}]+)\}`)
	bareEnvVar   = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// expandEnvVars expands environment variables in a string using ${VAR} or $VAR syntax.
// Unknown variables are left untouched.
func expandEnvVars(s string) string {
	s = bracedEnvVar.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})

	return bareEnvVar.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[1:]); val != "" {
			return val
		}
		return match
	})
}

// Default returns a configuration populated with built-in defaults
func Default() *Config {
	config := &Config{}

	config.Server.Port = 8080
	config.Server.Host = "0.0.0.0"
	config.Server.ReadTimeout = 30 * time.Second
	config.Server.WriteTimeout = 5 * time.Minute
	config.Server.IdleTimeout = 60 * time.Second

	config.Browser = BrowserConfig{
		Headless:          true,
		SlotCount:         6,
		LaunchRetries:     1,
		LaunchTimeout:     90 * time.Second,
		NavigationTimeout: 45 * time.Second,
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		AcceptLanguage:    "de-DE,de;q=0.9,en-US;q=0.8,en;q=0.7",
		ViewportWidth:     1920,
		ViewportHeight:    1080,
		Stealth:           true,
		BlockedHosts: []string{
			"google-analytics.com", "googletagmanager.com", "doubleclick.net",
			"facebook.net", "hotjar.com", "etracker.com", "webtrekk.net",
			"mapp.com", "adform.net", "criteo.com",
		},
		AllowedPatterns: []string{"captcha", "sicherheitsabfrage", "securimage"},
	}

	config.Consent = ConsentConfig{
		PollIterations: 8,
		PollInterval:   500 * time.Millisecond,
		SettleDelay:    700 * time.Millisecond,
		Cookies: []Cookie{
			{Name: "cookie_consent", Value: "accepted", Path: "/"},
			{Name: "CONSENTMGR", Value: "c1:1|c2:1|c3:1|ts:1700000000000|consent:true", Path: "/"},
		},
		StorageFlags: map[string]string{
			"cookie_consent":         "accepted",
			"ba_cookie_consent":      "all",
			"consent_tracking_given": "true",
		},
		BannerPhrases: []string{
			"Wir verwenden Cookies",
			"Diese Webseite verwendet Cookies",
			"Ihre Privatsphäre ist uns wichtig",
		},
		VendorMarkers: []string{
			"#usercentrics-root", "#onetrust-banner-sdk", "#CybotCookiebotDialog",
			"bahf-cookie-disclaimer-dpl3", "[id*='cookie-consent']", "[class*='cookie-banner']",
		},
		AcceptPhrases: []string{
			"Alle Cookies akzeptieren", "Alle akzeptieren", "Alle zulassen",
			"Akzeptieren", "Zustimmen", "Einverstanden",
			"Accept all", "Accept all cookies", "Allow all", "Accept",
		},
		Vocabulary: []string{"cookie", "consent", "datenschutz", "privacy", "einwilligung"},
	}

	config.Challenge = ChallengeConfig{
		Provider:        "2captcha",
		Timeout:         120 * time.Second,
		PollingInterval: 5 * time.Second,
		MaxCycles:       3,
		TimeBudget:      60 * time.Second,
		MinLength:       4,
		MaxLength:       8,
		CaseSensitive:   false,
		Language:        "de",
		MinImageWidth:   40,
		MinImageHeight:  15,
		SettleDelay:     1500 * time.Millisecond,
		ContactWait:     10 * time.Second,
		ImageSelectors: []string{
			"#kontaktdaten-captcha-image",
			"img[src*='captcha']",
			"img[id*='captcha']",
			"img[alt*='Sicherheitsabfrage']",
		},
		InputSelectors: []string{
			"#kontaktdaten-captcha-input",
			"input[name*='captcha']",
			"input[id*='captcha']",
			"input[aria-label*='Sicherheitsabfrage']",
		},
		SubmitSelectors: []string{
			"#kontaktdaten-captcha-absenden-button",
			"button[type='submit'][id*='captcha']",
			"form[id*='captcha'] button[type='submit']",
		},
		RefreshSelectors: []string{
			"#kontaktdaten-captcha-reload-button",
			"button[id*='captcha'][id*='reload']",
			"button[aria-label*='neues Bild']",
		},
		ChallengeCopy:    []string{"Sicherheitsabfrage", "dargestellten Zeichen", "captcha"},
		UnsupportedRunes: "äöüÄÖÜßéèêáàâíìîóòôúùûçñ",
	}

	config.Extraction = ExtractionConfig{
		ContactSectionSelectors: []string{
			"#detail-bewerbung-adresse",
			"#jobdetails-kontaktdaten-block",
			"[id*='kontaktdaten']",
			"[id*='bewerbung']",
		},
		IgnoredEmailDomains: []string{
			"arbeitsagentur.de", "example.com", "example.de", "domain.de",
			"sentry.io", "sentry-next.wixpress.com",
		},
		ExternalLinkMarkers: []string{"Kooperationspartner", "externe Seite", "Partnerseite"},
	}

	config.Enrichment = EnrichmentConfig{
		TargetBaseURL: "https://www.arbeitsagentur.de/jobsuche/jobdetail/",
		BatchSize:     3,
		BatchDelay:    5 * time.Second,
		StepDelay:     800 * time.Millisecond,
		JobTimeout:    3 * time.Minute,
	}

	config.RateLimit = RateLimitConfig{
		RequestsPerMinute: 30,
		Burst:             3,
		MaxFailures:       5,
		ResetTimeout:      2 * time.Minute,
	}

	config.Linked = LinkedConfig{
		APIURL:     "https://api.firecrawl.dev",
		Timeout:    60 * time.Second,
		MaxRetries: 2,
	}

	config.Redis = RedisConfig{
		URL:       "redis://localhost:6379",
		Timeout:   5 * time.Second,
		KeyPrefix: "jobleads:enrichment:",
		TTL:       30 * 24 * time.Hour,
	}

	config.LLM = LLMConfig{
		MaxTokens: 64,
		Timeout:   60 * time.Second,
	}

	config.BackgroundTasks.Workers = 2
	config.BackgroundTasks.QueueSize = 50
	config.BackgroundTasks.TaskTimeout = 2 * time.Hour
	config.BackgroundTasks.CleanupInterval = time.Hour
	config.BackgroundTasks.MaxTaskAge = 24 * time.Hour

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	return config
}

// LoadConfig loads configuration from defaults, the YAML file at configPath
// (if it exists) and environment variables, in that order.
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), config); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", configPath, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
		}
	}

	config.loadFromEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration against its struct constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Challenge.MaxLength > 0 && c.Challenge.MinLength > c.Challenge.MaxLength {
		return fmt.Errorf("invalid configuration: challenge.min_length (%d) exceeds challenge.max_length (%d)",
			c.Challenge.MinLength, c.Challenge.MaxLength)
	}
	return nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = strings.ToLower(logLevel)
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = strings.ToLower(logFormat)
	}

	if chromePath := os.Getenv("CHROME_BIN"); chromePath != "" {
		c.Browser.BinPath = chromePath
	}

	if headless := os.Getenv("BROWSER_HEADLESS"); headless != "" {
		c.Browser.Headless = headless == "true" || headless == "1"
	}

	if slots := os.Getenv("BROWSER_SLOT_COUNT"); slots != "" {
		if n, err := strconv.Atoi(slots); err == nil {
			c.Browser.SlotCount = n
		}
	}

	if provider := os.Getenv("CAPTCHA_PROVIDER"); provider != "" {
		c.Challenge.Provider = provider
	}

	if captchaAPIKey := os.Getenv("CAPTCHA_API_KEY"); captchaAPIKey != "" {
		c.Challenge.APIKey = captchaAPIKey
	}

	// Also support 2CAPTCHA_API_KEY for compatibility
	if captchaAPIKey := os.Getenv("2CAPTCHA_API_KEY"); captchaAPIKey != "" {
		c.Challenge.APIKey = captchaAPIKey
	}

	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		c.LLM.APIKey = apiKey
	}

	if model := os.Getenv("LLM_MODEL"); model != "" {
		c.LLM.Model = model
	}

	if baseURL := os.Getenv("TARGET_BASE_URL"); baseURL != "" {
		c.Enrichment.TargetBaseURL = baseURL
	}

	if follow := os.Getenv("FOLLOW_EXTERNAL_LINKS"); follow != "" {
		c.Enrichment.FollowExternalLinks = follow == "true" || follow == "1"
	}

	if firecrawlAPIKey := os.Getenv("FIRECRAWL_API_KEY"); firecrawlAPIKey != "" {
		c.Linked.APIKey = firecrawlAPIKey
	}

	if firecrawlAPIURL := os.Getenv("FIRECRAWL_API_URL"); firecrawlAPIURL != "" {
		c.Linked.APIURL = firecrawlAPIURL
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.URL = redisURL
		c.Redis.Enabled = true
	}

	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		c.Redis.Password = redisPassword
	}

	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			c.Redis.DB = db
		}
	}

	if redisTimeout := os.Getenv("REDIS_TIMEOUT"); redisTimeout != "" {
		if timeout, err := time.ParseDuration(redisTimeout); err == nil {
			c.Redis.Timeout = timeout
		}
	}
}
