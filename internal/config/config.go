package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "AIDIGEST_CONFIG"
	openAIAPIKeyEnv   = "OPENAI_API_KEY"
	openAIModelEnv    = "OPENAI_MODEL"
	slackWebhookEnv   = "SLACK_WEBHOOK_URL"
	sendGridAPIKeyEnv = "SENDGRID_API_KEY"
	emailFromEnv      = "EMAIL_FROM"
	emailToEnv        = "EMAIL_TO"
	httpAddrEnv       = "HTTP_ADDR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Selection     SelectionConfig    `yaml:"selection"`
	OpenAI        OpenAIConfig       `yaml:"openai"`
	Notifications NotificationConfig `yaml:"notifications"`
	Feeds         []FeedConfig       `yaml:"feeds"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// ServerConfig describes the HTTP trigger surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// SchedulerConfig defines the daily time-of-day the digest should run.
type SchedulerConfig struct {
	Hour     int            `yaml:"hour"`
	Minute   int            `yaml:"minute"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// SelectionConfig bounds which fetched articles enter a digest.
type SelectionConfig struct {
	LookbackHours int `yaml:"lookbackHours"`
	MaxArticles   int `yaml:"maxArticles"`
	PerFeedLimit  int `yaml:"perFeedLimit"`
	FeedTimeoutS  int `yaml:"feedTimeoutSeconds"`
	ExcerptLimit  int `yaml:"excerptLimit"`
}

// LookbackWindow converts the configured hours to a duration.
func (s SelectionConfig) LookbackWindow() time.Duration {
	return time.Duration(s.LookbackHours) * time.Hour
}

// FeedTimeout converts the configured per-feed timeout to a duration.
func (s SelectionConfig) FeedTimeout() time.Duration {
	return time.Duration(s.FeedTimeoutS) * time.Second
}

// OpenAIConfig defines how to contact the summarization API.
type OpenAIConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// NotificationConfig encapsulates outbound digest destinations.
type NotificationConfig struct {
	Slack SlackConfig `yaml:"slack"`
	Email EmailConfig `yaml:"email"`
}

// SlackConfig wires the incoming-webhook destination.
type SlackConfig struct {
	WebhookURL string `yaml:"webhookUrl"`
}

// EmailConfig wires the optional SendGrid destination.
type EmailConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
	From     string `yaml:"from"`
	FromName string `yaml:"fromName"`
	To       string `yaml:"to"`
}

// FeedConfig describes a single RSS/Atom endpoint.
type FeedConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// LoggingConfig controls slog verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides. An empty path falls back to the AIDIGEST_CONFIG variable.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Feeds) == 0 {
		cfg.Feeds = defaultConfig().Feeds
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.OpenAI.APIKey = v
	}

	if v := os.Getenv(openAIModelEnv); v != "" {
		c.OpenAI.Model = v
	}

	if v := os.Getenv(slackWebhookEnv); v != "" {
		c.Notifications.Slack.WebhookURL = v
	}

	if v := os.Getenv(sendGridAPIKeyEnv); v != "" {
		c.Notifications.Email.APIKey = v
	}

	if v := os.Getenv(emailFromEnv); v != "" {
		c.Notifications.Email.From = v
	}

	if v := os.Getenv(emailToEnv); v != "" {
		c.Notifications.Email.To = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.Server.Addr = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Server.Addr != "" {
		base.Server = override.Server
	}

	if override.Scheduler.Hour != 0 || override.Scheduler.Minute != 0 {
		base.Scheduler.Hour = override.Scheduler.Hour
		base.Scheduler.Minute = override.Scheduler.Minute
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Selection.LookbackHours > 0 {
		base.Selection.LookbackHours = override.Selection.LookbackHours
	}
	if override.Selection.MaxArticles > 0 {
		base.Selection.MaxArticles = override.Selection.MaxArticles
	}
	if override.Selection.PerFeedLimit > 0 {
		base.Selection.PerFeedLimit = override.Selection.PerFeedLimit
	}
	if override.Selection.FeedTimeoutS > 0 {
		base.Selection.FeedTimeoutS = override.Selection.FeedTimeoutS
	}
	if override.Selection.ExcerptLimit > 0 {
		base.Selection.ExcerptLimit = override.Selection.ExcerptLimit
	}

	if override.OpenAI.Endpoint != "" {
		base.OpenAI.Endpoint = override.OpenAI.Endpoint
	}
	if override.OpenAI.Model != "" {
		base.OpenAI.Model = override.OpenAI.Model
	}
	if override.OpenAI.APIKey != "" {
		base.OpenAI.APIKey = override.OpenAI.APIKey
	}
	if override.OpenAI.SystemPrompt != "" {
		base.OpenAI.SystemPrompt = override.OpenAI.SystemPrompt
	}

	if override.Notifications.Slack.WebhookURL != "" {
		base.Notifications.Slack.WebhookURL = override.Notifications.Slack.WebhookURL
	}
	if override.Notifications.Email.Endpoint != "" {
		base.Notifications.Email.Endpoint = override.Notifications.Email.Endpoint
	}
	if override.Notifications.Email.APIKey != "" {
		base.Notifications.Email.APIKey = override.Notifications.Email.APIKey
	}
	if override.Notifications.Email.From != "" {
		base.Notifications.Email.From = override.Notifications.Email.From
	}
	if override.Notifications.Email.FromName != "" {
		base.Notifications.Email.FromName = override.Notifications.Email.FromName
	}
	if override.Notifications.Email.To != "" {
		base.Notifications.Email.To = override.Notifications.Email.To
	}

	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}

	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Server:    ServerConfig{Addr: ":8888"},
		Scheduler: SchedulerConfig{Hour: 8, Minute: 0, Timezone: defaultTimezone, location: tz},
		Selection: SelectionConfig{
			LookbackHours: 24,
			MaxArticles:   12,
			PerFeedLimit:  2,
			FeedTimeoutS:  15,
			ExcerptLimit:  600,
		},
		OpenAI: OpenAIConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			APIKey:       "",
			SystemPrompt: "You summarize tech and AI news articles in two to three sentences.",
		},
		Notifications: NotificationConfig{
			Slack: SlackConfig{WebhookURL: ""},
			Email: EmailConfig{
				Endpoint: "https://api.sendgrid.com/v3/mail/send",
				FromName: "AI Digest",
			},
		},
		Feeds: []FeedConfig{
			{Name: "techcrunch", URL: "https://techcrunch.com/feed/"},
			{Name: "theverge", URL: "https://www.theverge.com/rss/index.xml"},
			{Name: "hackernews", URL: "https://hnrss.org/frontpage"},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
