package config

import (
	"log"
	"os"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv      = "PHARMAWATCH_CONFIG"
	listenAddrEnv      = "PHARMAWATCH_LISTEN_ADDR"
	logLevelEnv        = "PHARMAWATCH_LOG_LEVEL"
	refreshIntervalEnv = "PHARMAWATCH_REFRESH_INTERVAL"
	shortageFeedURLEnv = "PHARMAWATCH_SHORTAGE_FEED_URL"

	defaultListenAddr      = ":8000"
	defaultLogLevel        = "info"
	defaultInterval        = 15 * time.Minute
	defaultRetryDelay      = 5 * time.Second
	defaultMaxConcurrent   = 5
	defaultHTTPTimeout     = 30 * time.Second
	defaultUserAgent       = "PharmaWatch/1.0"
	defaultFeedEncoding    = "windows-1252"
	defaultMaxPages        = 200
	defaultShortageFeedURL = "https://anwendungen.pharmnet-bund.de/lieferengpassmeldungen/public/csv"
)

// Config holds high-level settings required across the application.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Logging      LoggingConfig      `yaml:"logging"`
	Refresh      RefreshConfig      `yaml:"refresh"`
	HTTP         HTTPConfig         `yaml:"http"`
	ShortageFeed ShortageFeedConfig `yaml:"shortageFeed"`
	Sites        []SiteConfig       `yaml:"sites"`
}

// ServerConfig describes the query API listener.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// RefreshConfig defines the refresh loop cadence and fan-out.
type RefreshConfig struct {
	Interval              time.Duration `yaml:"interval"`
	RetryDelay            time.Duration `yaml:"retryDelay"`
	MaxConcurrentRequests int           `yaml:"maxConcurrentRequests"`
}

// HTTPConfig configures the outbound client.
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"userAgent"`
}

// ShortageFeedConfig points at the CSV export and its character encoding.
type ShortageFeedConfig struct {
	URL      string `yaml:"url"`
	Encoding string `yaml:"encoding"`
}

// SiteConfig describes a single letter archive with its scanner strategy.
// PageURL must contain the {page} placeholder.
type SiteConfig struct {
	Name     string `yaml:"name"`
	Scanner  string `yaml:"scanner"`
	PageURL  string `yaml:"pageUrl"`
	BaseURL  string `yaml:"baseUrl"`
	MaxPages int    `yaml:"maxPages"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if fileCfg, err := Parse(raw); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	cfg.normalize()

	return cfg
}

// Parse decodes a YAML document without applying defaults.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(listenAddrEnv); v != "" {
		c.Server.Address = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(refreshIntervalEnv); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("config: invalid %s=%q: %v (keeping %s)", refreshIntervalEnv, v, err, c.Refresh.Interval)
		} else {
			c.Refresh.Interval = d
		}
	}

	if v := os.Getenv(shortageFeedURLEnv); v != "" {
		c.ShortageFeed.URL = v
	}
}

// normalize reverts unusable values to defaults.
func (c *Config) normalize() {
	if c.Refresh.Interval <= 0 {
		log.Printf("config: non-positive refresh interval %s, reverting to %s", c.Refresh.Interval, defaultInterval)
		c.Refresh.Interval = defaultInterval
	}
	if c.Refresh.RetryDelay <= 0 {
		log.Printf("config: non-positive retry delay %s, reverting to %s", c.Refresh.RetryDelay, defaultRetryDelay)
		c.Refresh.RetryDelay = defaultRetryDelay
	}
	if c.Refresh.MaxConcurrentRequests <= 0 {
		c.Refresh.MaxConcurrentRequests = defaultMaxConcurrent
	}
	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = defaultHTTPTimeout
	}
	if c.ShortageFeed.Encoding == "" {
		c.ShortageFeed.Encoding = defaultFeedEncoding
	} else if _, err := htmlindex.Get(c.ShortageFeed.Encoding); err != nil {
		log.Printf("config: unknown shortage feed encoding %q, reverting to %s", c.ShortageFeed.Encoding, defaultFeedEncoding)
		c.ShortageFeed.Encoding = defaultFeedEncoding
	}

	if len(c.Sites) == 0 {
		c.Sites = defaultSites()
	}
	for i := range c.Sites {
		if c.Sites[i].MaxPages <= 0 {
			c.Sites[i].MaxPages = defaultMaxPages
		}
		if c.Sites[i].Name == "" {
			c.Sites[i].Name = c.Sites[i].Scanner
		}
		if !strings.Contains(c.Sites[i].PageURL, "{page}") {
			log.Printf("config: site %s pageUrl has no {page} placeholder", c.Sites[i].Name)
		}
	}
}

func mergeConfig(base, override Config) Config {
	if override.Server.Address != "" {
		base.Server.Address = override.Server.Address
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Refresh.Interval != 0 {
		base.Refresh.Interval = override.Refresh.Interval
	}
	if override.Refresh.RetryDelay != 0 {
		base.Refresh.RetryDelay = override.Refresh.RetryDelay
	}
	if override.Refresh.MaxConcurrentRequests != 0 {
		base.Refresh.MaxConcurrentRequests = override.Refresh.MaxConcurrentRequests
	}

	if override.HTTP.Timeout != 0 {
		base.HTTP.Timeout = override.HTTP.Timeout
	}
	if override.HTTP.UserAgent != "" {
		base.HTTP.UserAgent = override.HTTP.UserAgent
	}

	if override.ShortageFeed.URL != "" {
		base.ShortageFeed.URL = override.ShortageFeed.URL
	}
	if override.ShortageFeed.Encoding != "" {
		base.ShortageFeed.Encoding = override.ShortageFeed.Encoding
	}

	if len(override.Sites) > 0 {
		base.Sites = override.Sites
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Server:  ServerConfig{Address: defaultListenAddr},
		Logging: LoggingConfig{Level: defaultLogLevel},
		Refresh: RefreshConfig{
			Interval:              defaultInterval,
			RetryDelay:            defaultRetryDelay,
			MaxConcurrentRequests: defaultMaxConcurrent,
		},
		HTTP: HTTPConfig{Timeout: defaultHTTPTimeout, UserAgent: defaultUserAgent},
		ShortageFeed: ShortageFeedConfig{
			URL:      defaultShortageFeedURL,
			Encoding: defaultFeedEncoding,
		},
		Sites: defaultSites(),
	}
}

func defaultSites() []SiteConfig {
	return []SiteConfig{
		{
			Name:     "pei",
			Scanner:  "pei",
			PageURL:  "https://www.pei.de/SiteGlobals/Forms/Suche/Sicherheitsinformationsuche_Formular.html?input_=170452&gtp=213258_list%253D{page}&resourceId=211336&submit.x=22&submit.y=14&templateQueryString=&sortOrder=score+desc&pageLocale=de",
			BaseURL:  "https://www.pei.de/",
			MaxPages: defaultMaxPages,
		},
		{
			Name:     "bfarm",
			Scanner:  "bfarm",
			PageURL:  "https://www.bfarm.de/DE/Arzneimittel/Pharmakovigilanz/Risikoinformationen/Rote-Hand-Briefe/_node.html?cms_gtp=964792_list%253D{page}",
			BaseURL:  "https://www.bfarm.de/",
			MaxPages: defaultMaxPages,
		},
	}
}
