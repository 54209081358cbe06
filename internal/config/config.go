package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "NEWSRADAR_CONFIG"

	redisURLEnv        = "REDIS_URL"
	xBearerTokenEnv    = "X_BEARER_TOKEN"
	xSearchQueryEnv    = "X_SEARCH_QUERY"
	xAccountsEnv       = "X_ACCOUNTS"
	geminiAPIKeyEnv    = "GEMINI_API_KEY"
	geminiModelEnv     = "GEMINI_MODEL"
	discordBotTokenEnv = "DISCORD_BOT_TOKEN"
	discordChannelEnv  = "DISCORD_CHANNEL_ID"
	githubTokenEnv     = "GITHUB_TOKEN"
	githubReposEnv     = "GITHUB_REPOS"
	minEngagementEnv   = "MIN_ENGAGEMENT"
	fetchIntervalEnv   = "FETCH_INTERVAL_MINUTES"
	githubIntervalEnv  = "GITHUB_CHECK_INTERVAL_MINUTES"
	topNEnv            = "TOP_N"
	githubTopNEnv      = "GITHUB_TOP_N"
	maxResultsEnv      = "MAX_RESULTS"
	minAgeEnv          = "MIN_AGE_MINUTES"
	maxAgeEnv          = "MAX_AGE_MINUTES"
	scheduleStartEnv   = "SCHEDULE_START_HOUR"
	scheduleEndEnv     = "SCHEDULE_END_HOUR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Redis     RedisConfig     `yaml:"redis"`
	Social    SocialConfig    `yaml:"social"`
	GitHub    GitHubConfig    `yaml:"github"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Discord   DiscordConfig   `yaml:"discord"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// RedisConfig describes the store backend connection.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// SocialConfig drives the social-post fetch pipeline.
type SocialConfig struct {
	BearerToken   string   `yaml:"bearerToken"`
	SearchQuery   string   `yaml:"searchQuery"`
	Accounts      []string `yaml:"accounts"`
	MaxResults    int      `yaml:"maxResults"`
	TopN          int      `yaml:"topN"`
	MinAgeMinutes int      `yaml:"minAgeMinutes"`
	MaxAgeMinutes int      `yaml:"maxAgeMinutes"`
	MinEngagement int      `yaml:"minEngagement"`
	FetchInterval int      `yaml:"fetchIntervalMinutes"`
	Rubric        string   `yaml:"rubric"`
}

// GitHubConfig drives the repository-activity fetch pipeline.
type GitHubConfig struct {
	Token         string   `yaml:"token"`
	Repos         []string `yaml:"repos"`
	CheckInterval int      `yaml:"checkIntervalMinutes"`
	TopN          int      `yaml:"topN"`
	Rubric        string   `yaml:"rubric"`
}

// OracleConfig defines how to contact the classification oracle.
type OracleConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

// DiscordConfig wires the forum publisher.
type DiscordConfig struct {
	BotToken  string `yaml:"botToken"`
	ChannelID string `yaml:"channelId"`
}

// SchedulerConfig bounds when the pipelines are allowed to run.
type SchedulerConfig struct {
	Timezone  string         `yaml:"timezone"`
	StartHour int            `yaml:"startHour"`
	EndHour   int            `yaml:"endHour"`
	location  *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// LoggingConfig selects log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
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

	return cfg
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Redis.URL, redisURLEnv)
	setString(&c.Social.BearerToken, xBearerTokenEnv)
	setString(&c.Social.SearchQuery, xSearchQueryEnv)
	setString(&c.Oracle.APIKey, geminiAPIKeyEnv)
	setString(&c.Oracle.Model, geminiModelEnv)
	setString(&c.Discord.BotToken, discordBotTokenEnv)
	setString(&c.Discord.ChannelID, discordChannelEnv)
	setString(&c.GitHub.Token, githubTokenEnv)

	setList(&c.Social.Accounts, xAccountsEnv)
	setList(&c.GitHub.Repos, githubReposEnv)

	setInt(&c.Social.MinEngagement, minEngagementEnv)
	setInt(&c.Social.FetchInterval, fetchIntervalEnv)
	setInt(&c.Social.TopN, topNEnv)
	setInt(&c.Social.MaxResults, maxResultsEnv)
	setInt(&c.Social.MinAgeMinutes, minAgeEnv)
	setInt(&c.Social.MaxAgeMinutes, maxAgeEnv)
	setInt(&c.GitHub.CheckInterval, githubIntervalEnv)
	setInt(&c.GitHub.TopN, githubTopNEnv)
	setInt(&c.Scheduler.StartHour, scheduleStartEnv)
	setInt(&c.Scheduler.EndHour, scheduleEndEnv)
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		} else {
			log.Printf("config: %s=%q is not an integer, keeping %d", env, v, *dst)
		}
	}
}

func setList(dst *[]string, env string) {
	v := os.Getenv(env)
	if v == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
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
	if override.Redis.URL != "" {
		base.Redis = override.Redis
	}

	if override.Social.BearerToken != "" {
		base.Social.BearerToken = override.Social.BearerToken
	}
	if override.Social.SearchQuery != "" {
		base.Social.SearchQuery = override.Social.SearchQuery
	}
	if len(override.Social.Accounts) > 0 {
		base.Social.Accounts = override.Social.Accounts
	}
	if override.Social.MaxResults > 0 {
		base.Social.MaxResults = override.Social.MaxResults
	}
	if override.Social.TopN > 0 {
		base.Social.TopN = override.Social.TopN
	}
	if override.Social.MinAgeMinutes > 0 {
		base.Social.MinAgeMinutes = override.Social.MinAgeMinutes
	}
	if override.Social.MaxAgeMinutes > 0 {
		base.Social.MaxAgeMinutes = override.Social.MaxAgeMinutes
	}
	if override.Social.MinEngagement > 0 {
		base.Social.MinEngagement = override.Social.MinEngagement
	}
	if override.Social.FetchInterval > 0 {
		base.Social.FetchInterval = override.Social.FetchInterval
	}
	if override.Social.Rubric != "" {
		base.Social.Rubric = override.Social.Rubric
	}

	if override.GitHub.Token != "" {
		base.GitHub.Token = override.GitHub.Token
	}
	if len(override.GitHub.Repos) > 0 {
		base.GitHub.Repos = override.GitHub.Repos
	}
	if override.GitHub.CheckInterval > 0 {
		base.GitHub.CheckInterval = override.GitHub.CheckInterval
	}
	if override.GitHub.TopN > 0 {
		base.GitHub.TopN = override.GitHub.TopN
	}
	if override.GitHub.Rubric != "" {
		base.GitHub.Rubric = override.GitHub.Rubric
	}

	if override.Oracle.APIKey != "" {
		base.Oracle.APIKey = override.Oracle.APIKey
	}
	if override.Oracle.Model != "" {
		base.Oracle.Model = override.Oracle.Model
	}

	if override.Discord.BotToken != "" {
		base.Discord.BotToken = override.Discord.BotToken
	}
	if override.Discord.ChannelID != "" {
		base.Discord.ChannelID = override.Discord.ChannelID
	}

	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	if override.Scheduler.StartHour > 0 {
		base.Scheduler.StartHour = override.Scheduler.StartHour
	}
	if override.Scheduler.EndHour > 0 {
		base.Scheduler.EndHour = override.Scheduler.EndHour
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Redis: RedisConfig{URL: "redis://localhost:6379/0"},
		Social: SocialConfig{
			SearchQuery: `(Anthropic OR "Claude Code" OR OpenAI OR "AI agent" OR "AI coding" ` +
				`OR LLM OR "prompt engineering" OR agentic OR "multi-agent" ` +
				`OR "AI workflow" OR "AI tools" OR "model release") lang:en -is:retweet`,
			MaxResults:    30,
			TopN:          1,
			MinAgeMinutes: 30,
			MaxAgeMinutes: 120,
			MinEngagement: 3,
			FetchInterval: 30,
			Rubric:        defaultSocialRubric,
		},
		GitHub: GitHubConfig{
			Repos:         []string{"anthropics/claude-code", "openai/codex"},
			CheckInterval: 30,
			TopN:          3,
			Rubric:        defaultGitHubRubric,
		},
		Oracle: OracleConfig{Model: "gemini-2.0-flash"},
		Scheduler: SchedulerConfig{
			Timezone:  defaultTimezone,
			StartHour: 9,
			EndHour:   20,
			location:  tz,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
