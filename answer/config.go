package answer

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config for the live client.
type Config struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"` // normalized with NormalizeBaseURL
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"` // default 60s
	Stub    bool          `yaml:"stub"`

	// Nil means the default (0.2 for answers, 0.3 for prompt rewrites);
	// an explicit 0 is kept.
	AskTemperature     *float64 `yaml:"ask_temperature"`
	ImproveTemperature *float64 `yaml:"improve_temperature"`

	// MaxResponseBytes caps the provider response body (default 4 MiB).
	MaxResponseBytes int64 `yaml:"max_response_bytes"`
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.AskTemperature == nil {
		c.AskTemperature = Temperature(0.2)
	}
	if c.ImproveTemperature == nil {
		c.ImproveTemperature = Temperature(0.3)
	}
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = 4 << 20
	}
	if c.BaseURL != "" {
		c.BaseURL = NormalizeBaseURL(c.BaseURL)
	}
}

// Temperature returns a pointer for the optional temperature fields.
func Temperature(v float64) *float64 { return &v }

// Validate reports the first missing live-mode setting.
func (c *Config) Validate() error {
	var missing []string
	if c.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.BaseURL == "" {
		missing = append(missing, "OPENAI_SERVER")
	}
	if c.Model == "" {
		missing = append(missing, "OPENAI_MODEL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s not set", ErrConfiguration, strings.Join(missing, ", "))
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: OPENAI_SERVER %q is not an http(s) URL", ErrConfiguration, c.BaseURL)
	}
	return nil
}

// NormalizeBaseURL strips trailing slashes and appends "/v1" unless the URL
// already ends with it. It is idempotent.
func NormalizeBaseURL(base string) string {
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, "/v1") {
		return base
	}
	return base + "/v1"
}
