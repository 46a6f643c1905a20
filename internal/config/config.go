package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PayFortConfig is the per-account gateway configuration. Every field used
// for signing or routing is required; Validate rejects a partial account at
// startup instead of failing on the first callback.
type PayFortConfig struct {
	MerchantIdentifier string `yaml:"merchant_identifier"`
	AccessCode         string `yaml:"access_code"`
	// Two distinct shared secrets: one signs outbound requests, the other
	// verifies inbound callbacks.
	SHARequestPhrase  string `yaml:"sha_request_phrase"`
	SHAResponsePhrase string `yaml:"sha_response_phrase"`
	SHAType           string `yaml:"sha_type"`
	BaseAPIURL        string `yaml:"base_api_url"`
	Currency          string `yaml:"currency"`
	SiteID            int64  `yaml:"site_id"`
	ReturnURL         string `yaml:"return_url"`
	ReceiptPageURL    string `yaml:"receipt_page_url"`
}

// StatusPageConfig holds the client-side retry budget embedded into the
// wait/poll page.
type StatusPageConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	WaitMs      int `yaml:"wait_ms"`
}

// AuditConfig stores parameters for the callback audit rules.
type AuditConfig struct {
	AmountThreshold      int64  `yaml:"amount_threshold"`
	FailureThreshold     int    `yaml:"failure_threshold"`
	FailureWindowSeconds int    `yaml:"failure_window_seconds"`
	ScorerURL            string `yaml:"scorer_url"`
}

type Config struct {
	App struct {
		Env string `yaml:"env"`
	} `yaml:"app"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Postgres struct {
		DSN string `yaml:"dsn"`
	} `yaml:"postgres"`
	Kafka struct {
		BootstrapServers string `yaml:"bootstrap_servers"`
		Topic            string `yaml:"topic"`
		DLQTopic         string `yaml:"dlq_topic"`
	} `yaml:"kafka"`
	Redis struct {
		Addr string `yaml:"addr"`
	} `yaml:"redis"`
	ClickHouse struct {
		Addr string `yaml:"addr"`
	} `yaml:"clickhouse"`
	Jaeger struct {
		Port string `yaml:"port"`
	} `yaml:"jaeger"`
	OIDC struct {
		URL      string `yaml:"url"`
		ClientID string `yaml:"client_id"`
	} `yaml:"oidc"`
	JWT struct {
		Secret      string `yaml:"secret"`
		OpsUsername string `yaml:"ops_username"`
		OpsPassword string `yaml:"ops_password"`
	} `yaml:"jwt"`
	RateLimit struct {
		Limit         int `yaml:"limit"`
		WindowSeconds int `yaml:"window_seconds"`
	} `yaml:"rate_limit"`
	PayFort    PayFortConfig    `yaml:"payfort"`
	StatusPage StatusPageConfig `yaml:"status_page"`
	Audit      AuditConfig      `yaml:"audit"`
}

func Load(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Substitute environment variables into the raw YAML before parsing.
	expandedFile := os.ExpandEnv(string(file))

	if err := yaml.Unmarshal([]byte(expandedFile), config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	config.applyDefaults()
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.PayFort.BaseAPIURL == "" {
		c.PayFort.BaseAPIURL = "https://sbcheckout.payfort.com/FortAPI/paymentPage"
	}
	if c.PayFort.Currency == "" {
		c.PayFort.Currency = "SAR"
	}
	if c.StatusPage.MaxAttempts == 0 {
		c.StatusPage.MaxAttempts = 12
	}
	if c.StatusPage.WaitMs == 0 {
		c.StatusPage.WaitMs = 3000
	}
	if c.RateLimit.Limit == 0 {
		c.RateLimit.Limit = 100
	}
	if c.RateLimit.WindowSeconds == 0 {
		c.RateLimit.WindowSeconds = 60
	}
}

// Validate checks the gateway account and retry parameters. The service
// refuses to start on any violation.
func (c *Config) Validate() error {
	required := map[string]string{
		"payfort.merchant_identifier": c.PayFort.MerchantIdentifier,
		"payfort.access_code":         c.PayFort.AccessCode,
		"payfort.sha_request_phrase":  c.PayFort.SHARequestPhrase,
		"payfort.sha_response_phrase": c.PayFort.SHAResponsePhrase,
		"payfort.sha_type":            c.PayFort.SHAType,
		"payfort.return_url":          c.PayFort.ReturnURL,
		"payfort.receipt_page_url":    c.PayFort.ReceiptPageURL,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("config: %s is required", name)
		}
	}
	if c.PayFort.SiteID <= 0 {
		return fmt.Errorf("config: payfort.site_id must be a positive integer")
	}
	if c.StatusPage.MaxAttempts <= 9 || c.StatusPage.MaxAttempts >= 30 {
		return fmt.Errorf("config: status_page.max_attempts must lie in (9,30), got %d", c.StatusPage.MaxAttempts)
	}
	if c.StatusPage.WaitMs <= 1000 || c.StatusPage.WaitMs >= 10000 {
		return fmt.Errorf("config: status_page.wait_ms must lie in (1000,10000), got %d", c.StatusPage.WaitMs)
	}
	return nil
}
