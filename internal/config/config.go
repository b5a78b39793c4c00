package config

import (
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"IntelBrief/internal/domain"
	"IntelBrief/internal/topics"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "INTELBRIEF_CONFIG"
	logLevelEnv       = "INTELBRIEF_LOG_LEVEL"
	modelEnv          = "INTELBRIEF_MODEL"
	serverAddrEnv     = "INTELBRIEF_ADDR"
	ollamaHostEnv     = "OLLAMA_HOST"
	openAIKeyEnv      = "OPENAI_API_KEY"
	youtubeKeyEnv     = "YOUTUBE_API_KEY"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Provider names the completion API the model invoker talks to.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Model         ModelConfig        `yaml:"model"`
	Ollama        OllamaConfig       `yaml:"ollama"`
	OpenAI        OpenAIConfig       `yaml:"openai"`
	Dedup         DedupConfig        `yaml:"deduplication"`
	Sources       SourcesConfig      `yaml:"sources"`
	Forum         ForumConfig        `yaml:"forum"`
	YouTube       YouTubeConfig      `yaml:"youtube"`
	Extraction    ExtractionConfig   `yaml:"extraction"`
	Report        ReportConfig       `yaml:"report"`
	Topics        TopicsConfig       `yaml:"topics"`
	Storage       StorageConfig      `yaml:"storage"`
	Server        ServerConfig       `yaml:"server"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ModelConfig describes the primary/fallback pair and the sampling budget.
type ModelConfig struct {
	Provider            string        `yaml:"provider"`
	Primary             string        `yaml:"primary"`
	Fallback            string        `yaml:"fallback"`
	Temperature         float64       `yaml:"temperature"`
	ExtractionMaxTokens int           `yaml:"extractionMaxTokens"`
	ReportMaxTokens     int           `yaml:"reportMaxTokens"`
	Timeout             time.Duration `yaml:"timeout"`
}

// OllamaConfig points at a local Ollama server.
type OllamaConfig struct {
	Host string `yaml:"host"`
}

// OpenAIConfig defines how to contact an OpenAI-compatible API.
type OpenAIConfig struct {
	Endpoint     string `yaml:"endpoint"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// DedupConfig controls the fingerprint cache.
type DedupConfig struct {
	Enabled   bool   `yaml:"enabled"`
	CacheFile string `yaml:"cacheFile"`
}

// SourcesConfig lists default sources and per-kind caps for runs that do not
// name their own.
type SourcesConfig struct {
	Feeds      []string `yaml:"feeds"`
	Forums     []string `yaml:"forums"`
	Channels   []string `yaml:"channels"`
	FeedLimit  int      `yaml:"feedLimit"`
	ForumLimit int      `yaml:"forumLimit"`
	VideoLimit int      `yaml:"videoLimit"`
}

// ForumConfig tunes the Reddit fetcher.
type ForumConfig struct {
	BaseURL   string `yaml:"baseUrl"`
	UserAgent string `yaml:"userAgent"`
	Retries   int    `yaml:"retries"`
}

// YouTubeConfig holds the Data API credentials.
type YouTubeConfig struct {
	APIKey string `yaml:"apiKey"`
}

// ExtractionConfig tunes the content extractor.
type ExtractionConfig struct {
	MaxContentLength int `yaml:"maxContentLength"`
	QuickMaxItems    int `yaml:"quickMaxItems"`
}

// ReportConfig tunes brief composition.
type ReportConfig struct {
	MaxSections            int    `yaml:"maxSections"`
	MaxLength              int    `yaml:"maxLength"`
	TitleTemplate          string `yaml:"titleTemplate"`
	Format                 string `yaml:"format"`
	IncludeSummary         bool   `yaml:"includeSummary"`
	IncludeRecommendations bool   `yaml:"includeRecommendations"`
	ReviewerEmail          string `yaml:"reviewerEmail"`
}

// TopicsConfig overrides the keyword tables.
type TopicsConfig struct {
	OtherBucket bool         `yaml:"otherBucket"`
	Trend       topics.Table `yaml:"trend"`
	Report      topics.Table `yaml:"report"`
}

// StorageConfig locates stage artifacts.
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// ServerConfig describes the status API listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// SchedulerConfig defines when scheduled runs fire.
type SchedulerConfig struct {
	Enabled        bool           `yaml:"enabled"`
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides. path wins over INTELBRIEF_CONFIG. Keys missing from the file keep
// their defaults.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			fileCfg := defaultConfig()
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = fileCfg
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Topics.Trend) == 0 {
		cfg.Topics.Trend = topics.TrendTopics()
	}
	if len(cfg.Topics.Report) == 0 {
		cfg.Topics.Report = topics.ReportTopics()
	}

	return cfg
}

// DefaultSettings are the run settings used when a run does not specify its own.
func (c Config) DefaultSettings() domain.RunSettings {
	return domain.RunSettings{
		FeedURLs:               append([]string(nil), c.Sources.Feeds...),
		Forums:                 append([]string(nil), c.Sources.Forums...),
		Channels:               append([]string(nil), c.Sources.Channels...),
		FeedLimit:              c.Sources.FeedLimit,
		ForumLimit:             c.Sources.ForumLimit,
		VideoLimit:             c.Sources.VideoLimit,
		Model:                  c.Model.Primary,
		FallbackModel:          c.Model.Fallback,
		ReportFormat:           c.Report.Format,
		MaxLength:              c.Report.MaxLength,
		IncludeSummary:         c.Report.IncludeSummary,
		IncludeRecommendations: c.Report.IncludeRecommendations,
		ReviewerEmail:          c.Report.ReviewerEmail,
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(modelEnv); v != "" {
		c.Model.Primary = v
	}

	if v := os.Getenv(ollamaHostEnv); v != "" {
		if !strings.Contains(v, "://") {
			v = "http://" + v
		}
		c.Ollama.Host = v
	}

	if v := os.Getenv(openAIKeyEnv); v != "" {
		c.OpenAI.APIKey = v
	}

	if v := os.Getenv(youtubeKeyEnv); v != "" {
		c.YouTube.APIKey = v
	}

	if v := os.Getenv(serverAddrEnv); v != "" {
		c.Server.Addr = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
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

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Model: ModelConfig{
			Provider:            ProviderOllama,
			Primary:             "llama3.1",
			Fallback:            "mistral",
			Temperature:         0.7,
			ExtractionMaxTokens: 2000,
			ReportMaxTokens:     3000,
			Timeout:             2 * time.Minute,
		},
		Ollama: OllamaConfig{Host: "http://localhost:11434"},
		OpenAI: OpenAIConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			SystemPrompt: "You are an analyst who writes concise, factual intelligence briefs.",
		},
		Dedup: DedupConfig{Enabled: true, CacheFile: "data/cache/processed_content.json"},
		Sources: SourcesConfig{
			Feeds: []string{
				"https://feeds.feedburner.com/TechCrunch",
				"https://www.wired.com/feed/rss",
			},
			Forums:     []string{"technology", "artificial"},
			FeedLimit:  10,
			ForumLimit: 10,
			VideoLimit: 5,
		},
		Forum: ForumConfig{
			BaseURL:   "https://www.reddit.com",
			UserAgent: "intelbrief/1.0",
			Retries:   2,
		},
		Extraction: ExtractionConfig{MaxContentLength: 4000, QuickMaxItems: 3},
		Report: ReportConfig{
			MaxSections:            5,
			MaxLength:              5000,
			TitleTemplate:          "Culture Current Weekly Brief - {date}",
			Format:                 "markdown",
			IncludeSummary:         true,
			IncludeRecommendations: true,
		},
		Storage:   StorageConfig{Dir: "data"},
		Server:    ServerConfig{Addr: ":8080"},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * 1", Timezone: defaultTimezone, location: tz},
	}
}
