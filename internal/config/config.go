// Package config provides YAML-based configuration loading for ResQ.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level ResQ configuration, loaded from config.yaml.
// Flags on the start command override the node and network basics.
type Config struct {
	Node         NodeConfig         `yaml:"node"`
	Network      NetworkConfig      `yaml:"network"`
	Relay        RelayConfig        `yaml:"relay"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Uplink       UplinkConfig       `yaml:"uplink"`
	Feeds        FeedConfig         `yaml:"feeds"`
	Web          WebConfig          `yaml:"web"`
	Retention    RetentionConfig    `yaml:"retention"`
	LogFile      string             `yaml:"log_file"`
}

type NodeConfig struct {
	Label        string `yaml:"label"`
	IdentityFile string `yaml:"identity_file"`
	DBFile       string `yaml:"db_file"`
}

type NetworkConfig struct {
	Port               int    `yaml:"port"`
	BroadcastAddr      string `yaml:"broadcast_addr"`
	BeaconIntervalSecs int    `yaml:"beacon_interval_secs"`
}

type RelayConfig struct {
	TTL                int `yaml:"ttl"`
	DelayMillis        int `yaml:"delay_millis"`
	SOSDelayMillis     int `yaml:"sos_delay_millis"`
	JitterMillis       int `yaml:"jitter_millis"`
	MaxResends         int `yaml:"max_resends"`
	ResendIntervalSecs int `yaml:"resend_interval_secs"`
}

type ConnectivityConfig struct {
	ProbeAddr         string `yaml:"probe_addr"`
	ProbeTimeoutSecs  int    `yaml:"probe_timeout_secs"`
	CheckIntervalSecs int    `yaml:"check_interval_secs"`
}

// UplinkConfig selects the upstream notification channel. Kind is one of
// log, discord, slack, mqtt.
type UplinkConfig struct {
	Kind       string     `yaml:"kind"`
	WebhookURL string     `yaml:"webhook_url"`
	MQTT       MQTTConfig `yaml:"mqtt"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

type FeedConfig struct {
	URLs     []string `yaml:"urls"`
	Schedule string   `yaml:"schedule"`
}

type WebConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type RetentionConfig struct {
	MaxAgeDays int    `yaml:"max_age_days"`
	Schedule   string `yaml:"schedule"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in the standard deployment defaults.
func (c *Config) applyDefaults() {
	if c.Node.Label == "" {
		c.Node.Label = "Anonymous"
	}
	if c.Network.Port == 0 {
		c.Network.Port = 50000
	}
	if c.Network.BroadcastAddr == "" {
		c.Network.BroadcastAddr = "255.255.255.255"
	}
	if c.Network.BeaconIntervalSecs == 0 {
		c.Network.BeaconIntervalSecs = 2
	}
	if c.Relay.TTL == 0 {
		c.Relay.TTL = 6
	}
	if c.Relay.DelayMillis == 0 {
		c.Relay.DelayMillis = 200
	}
	if c.Relay.SOSDelayMillis == 0 {
		c.Relay.SOSDelayMillis = 50
	}
	if c.Relay.JitterMillis == 0 {
		c.Relay.JitterMillis = 100
	}
	if c.Relay.MaxResends == 0 {
		c.Relay.MaxResends = 6
	}
	if c.Relay.ResendIntervalSecs == 0 {
		c.Relay.ResendIntervalSecs = 5
	}
	if c.Connectivity.ProbeAddr == "" {
		c.Connectivity.ProbeAddr = "8.8.8.8:53"
	}
	if c.Connectivity.ProbeTimeoutSecs == 0 {
		c.Connectivity.ProbeTimeoutSecs = 2
	}
	if c.Connectivity.CheckIntervalSecs == 0 {
		c.Connectivity.CheckIntervalSecs = 5
	}
	if c.Uplink.Kind == "" {
		c.Uplink.Kind = "log"
	}
	if c.Feeds.Schedule == "" {
		c.Feeds.Schedule = "@every 30s"
	}
	if c.Web.Port == 0 {
		c.Web.Port = 8080
	}
	if c.Retention.MaxAgeDays == 0 {
		c.Retention.MaxAgeDays = 7
	}
	if c.Retention.Schedule == "" {
		c.Retention.Schedule = "@daily"
	}
	if c.LogFile == "" {
		c.LogFile = "resq.log"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Network.Port < 1 || c.Network.Port > 65535 {
		errs = append(errs, "network.port must be in 1..65535")
	}
	if c.Relay.TTL < 0 {
		errs = append(errs, "relay.ttl must not be negative")
	}
	switch c.Uplink.Kind {
	case "log":
	case "discord", "slack":
		if c.Uplink.WebhookURL == "" {
			errs = append(errs, "uplink.webhook_url is required for kind "+c.Uplink.Kind)
		}
	case "mqtt":
		if c.Uplink.MQTT.Broker == "" || c.Uplink.MQTT.Topic == "" {
			errs = append(errs, "uplink.mqtt.broker and uplink.mqtt.topic are required for kind mqtt")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown uplink.kind %q", c.Uplink.Kind))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
