package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	ThreatBridge ThreatBridgeConfig `yaml:"threatbridge"`
}

// ThreatBridgeConfig is the project configuration.
type ThreatBridgeConfig struct {
	ThreatConnect ThreatConnectConfig `yaml:"threatconnect"`
	Server        ServerConfig        `yaml:"server"`
	Intake        IntakeConfig        `yaml:"intake"`
	Notify        NotifyConfig        `yaml:"notify"`
}

// ThreatConnectConfig holds the platform credentials and provenance
// settings. Every field is required; there are no defaults.
type ThreatConnectConfig struct {
	APIAccessID        string `yaml:"api_access_id"`
	APISecretKey       string `yaml:"api_secret_key"`
	APIBaseURL         string `yaml:"api_base_url"`
	TargetSource       string `yaml:"target_source"`
	ReportLinkTemplate string `yaml:"report_link_template"`
}

// ServerConfig controls the webhook API server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// IntakeConfig controls report intake.
type IntakeConfig struct {
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig controls the Redis report queue.
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	Key          string        `yaml:"key"`
	BlockTimeout time.Duration `yaml:"block_timeout"`
}

// NotifyConfig controls optional notifications.
type NotifyConfig struct {
	Slack SlackConfig `yaml:"slack"`
}

// SlackConfig controls the Slack notifier; disabled when BotToken is empty.
type SlackConfig struct {
	BotToken    string `yaml:"bot_token"`
	Channel     string `yaml:"channel"`
	MentionTeam string `yaml:"mention_team"`
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyEnv overrides credentials and secrets from the environment, so they
// can stay out of the config file.
func (c *Config) ApplyEnv() {
	tc := &c.ThreatBridge.ThreatConnect
	if v := os.Getenv("TC_API_ACCESS_ID"); v != "" {
		tc.APIAccessID = v
	}
	if v := os.Getenv("TC_API_SECRET_KEY"); v != "" {
		tc.APISecretKey = v
	}
	if v := os.Getenv("TC_API_BASE_URL"); v != "" {
		tc.APIBaseURL = v
	}
	if v := os.Getenv("TC_TARGET_SOURCE"); v != "" {
		tc.TargetSource = v
	}
	if v := os.Getenv("TC_REPORT_LINK_TEMPLATE"); v != "" {
		tc.ReportLinkTemplate = v
	}
	if v := os.Getenv("SLACK_BOT_TOKEN"); v != "" {
		c.ThreatBridge.Notify.Slack.BotToken = v
	}
}

// Validate checks that every required ThreatConnect option is set.
func (c *Config) Validate() error {
	tc := c.ThreatBridge.ThreatConnect

	var missing []string
	if tc.APIAccessID == "" {
		missing = append(missing, "api_access_id")
	}
	if tc.APISecretKey == "" {
		missing = append(missing, "api_secret_key")
	}
	if tc.APIBaseURL == "" {
		missing = append(missing, "api_base_url")
	}
	if tc.TargetSource == "" {
		missing = append(missing, "target_source")
	}
	if tc.ReportLinkTemplate == "" {
		missing = append(missing, "report_link_template")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required threatconnect options: %s", strings.Join(missing, ", "))
	}
	return nil
}
