package model

import "time"

// Config is the full sidenote configuration, loadable from YAML.
type Config struct {
	Segmentation SegmentationConfig `yaml:"segmentation" json:"segmentation"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator" json:"orchestrator"`
	LLM          LLMConfig          `yaml:"llm" json:"llm"`
	HTTP         HTTPConfig         `yaml:"http" json:"http"`
	Cache        CacheConfig        `yaml:"cache" json:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" json:"concurrency"`
	Output       OutputConfig       `yaml:"output" json:"output"`
}

// SegmentationConfig controls how documents are split.
type SegmentationConfig struct {
	Strategy string `yaml:"strategy" json:"strategy"` // "fixed", "paragraph", "structural"
	MaxSize  int    `yaml:"max_size" json:"max_size"` // Max segment length in bytes
	Overlap  int    `yaml:"overlap" json:"overlap"`   // Overlap between consecutive fixed segments
}

// OrchestratorConfig controls per-unit execution policy.
type OrchestratorConfig struct {
	UnitTimeout time.Duration `yaml:"unit_timeout" json:"unit_timeout"` // Ceiling per unit, retries included
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"` // Attempts per unit for transient errors
	RetryDelay  time.Duration `yaml:"retry_delay" json:"retry_delay"`   // Base delay, multiplied by attempt number
}

// LLMConfig configures the extraction-service provider.
type LLMConfig struct {
	Provider  string `yaml:"provider" json:"provider"` // "openai", "anthropic", "ollama"
	Model     string `yaml:"model" json:"model"`
	APIKey    string `yaml:"-" json:"-"` // From environment, never serialized
	BaseURL   string `yaml:"base_url" json:"base_url"`
	Timeout   int    `yaml:"timeout" json:"timeout"` // Seconds per API call
	MaxTokens int    `yaml:"max_tokens" json:"max_tokens"`

	// Requests per second per model, enforced by the rate limiter.
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `yaml:"burst" json:"burst"`
}

// HTTPConfig configures document fetching for URL sources.
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent     string        `yaml:"user_agent" json:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" json:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy" json:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy" json:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy" json:"no_proxy"`
}

// CacheConfig configures extraction-response caching.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" json:"enabled"`
	Dir       string        `yaml:"dir" json:"dir"` // Disk cache directory
	MemoryTTL time.Duration `yaml:"memory_ttl" json:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" json:"disk_ttl"`
}

// ConcurrencyConfig bounds parallelism inside units.
type ConcurrencyConfig struct {
	SegmentWorkers int `yaml:"segment_workers" json:"segment_workers"` // Concurrent extraction calls per unit
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" json:"verbose"`
	IncludeFooter bool `yaml:"include_footer" json:"include_footer"`
}

// DefaultConfig returns sensible defaults for all sections.
func DefaultConfig() *Config {
	return &Config{
		Segmentation: SegmentationConfig{
			Strategy: "structural",
			MaxSize:  4000,
			Overlap:  0,
		},
		Orchestrator: OrchestratorConfig{
			UnitTimeout: 5 * time.Minute,
			MaxAttempts: 2,
			RetryDelay:  2 * time.Second,
		},
		LLM: LLMConfig{
			Provider:          "openai",
			Model:             "",
			Timeout:           60,
			MaxTokens:         2000,
			RequestsPerSecond: 2,
			Burst:             4,
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "Sidenote/0.1 (+https://github.com/pmorozov/sidenote)",
			MaxBodyBytes:  2_000_000,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			SegmentWorkers: 4,
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}
