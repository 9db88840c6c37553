package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docsense/internal/qa"
)

type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"` // debug, info, warn, error

	// Auth. Empty disables bearer auth on the model endpoints.
	APIKey string `yaml:"api_key"`

	CORSOrigins    []string `yaml:"cors_origins"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`

	// Model endpoints
	QAModel          ModelEndpoint `yaml:"qa_model"`
	PolarityModel    ModelEndpoint `yaml:"polarity_model"`
	HelpfulnessModel ModelEndpoint `yaml:"helpfulness_model"`
	ModelToken       string        `yaml:"model_token"` // shared bearer token for endpoints without their own

	InferenceTimeout       time.Duration `yaml:"inference_timeout"`
	MaxConcurrentInference int           `yaml:"max_concurrent_inference"` // 0 = unbounded
	StatsWindow            time.Duration `yaml:"stats_window"`

	Refine RefineConfig `yaml:"refine"`
	QA     QAConfig     `yaml:"qa"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`

	Redis RedisConfig `yaml:"redis"`
}

// ModelEndpoint is a hosted model reachable over HTTP.
type ModelEndpoint struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// RefineConfig configures the optional generative answer rewrite.
type RefineConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// QAConfig holds the answer resolver tunables.
type QAConfig struct {
	ChunkSize       int     `yaml:"chunk_size"`
	OverlapFraction float64 `yaml:"overlap_fraction"`
	TopK            int     `yaml:"top_k"`
	ConfidenceFloor float64 `yaml:"confidence_floor"`
	MaxAnswerLength int     `yaml:"max_answer_length"`
}

// RedisConfig enables the extracted-text cache when Addrs is non-empty.
type RedisConfig struct {
	Addrs    []string      `yaml:"addrs"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// DefaultCORSOrigins are the local frontends allowed to call the API.
var DefaultCORSOrigins = []string{
	"http://127.0.0.1:5500",
	"http://localhost:5500",
	"http://127.0.0.1:3000",
	"http://localhost:3000",
	"http://127.0.0.1:3001",
	"http://localhost:3001",
	"null",
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:           "8000",
		LogLevel:       "info",
		CORSOrigins:    append([]string(nil), DefaultCORSOrigins...),
		MaxUploadBytes: 52428800, // 50MB

		QAModel:          ModelEndpoint{URL: "http://localhost:8081/qa"},
		PolarityModel:    ModelEndpoint{URL: "http://localhost:8081/polarity"},
		HelpfulnessModel: ModelEndpoint{URL: "http://localhost:8081/helpfulness"},

		InferenceTimeout:       60 * time.Second,
		MaxConcurrentInference: 1,
		StatsWindow:            time.Hour,

		Refine: RefineConfig{
			BaseURL:   "http://localhost:11434/v1",
			Model:     "qwen2.5:1.5b-instruct",
			MaxTokens: 128,
		},
		QA: QAConfig{
			ChunkSize:       2000,
			OverlapFraction: 0.2,
			TopK:            3,
			ConfidenceFloor: 0.05,
			MaxAnswerLength: 64,
		},

		PDFFallbackPdftotext: true,

		Redis: RedisConfig{TTL: time.Hour},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	data = expandEnvVars(data)
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = envOr("PORT", c.Port)
	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)
	c.APIKey = envOr("DOCSENSE_API_KEY", c.APIKey)
	c.CORSOrigins = envList("CORS_ORIGINS", c.CORSOrigins)
	c.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", c.MaxUploadBytes)

	c.QAModel.URL = envOr("QA_MODEL_URL", c.QAModel.URL)
	c.QAModel.Token = envOr("QA_MODEL_TOKEN", c.QAModel.Token)
	c.PolarityModel.URL = envOr("POLARITY_MODEL_URL", c.PolarityModel.URL)
	c.PolarityModel.Token = envOr("POLARITY_MODEL_TOKEN", c.PolarityModel.Token)
	c.HelpfulnessModel.URL = envOr("HELPFULNESS_MODEL_URL", c.HelpfulnessModel.URL)
	c.HelpfulnessModel.Token = envOr("HELPFULNESS_MODEL_TOKEN", c.HelpfulnessModel.Token)
	c.ModelToken = envOr("HF_API_TOKEN", c.ModelToken)

	c.InferenceTimeout = envDuration("INFERENCE_TIMEOUT", c.InferenceTimeout)
	c.MaxConcurrentInference = envInt("MAX_CONCURRENT_INFERENCE", c.MaxConcurrentInference)
	c.StatsWindow = envDuration("STATS_WINDOW", c.StatsWindow)

	c.Refine.Enabled = envBool("REFINE_ENABLED", c.Refine.Enabled)
	c.Refine.BaseURL = envOr("REFINE_BASE_URL", c.Refine.BaseURL)
	c.Refine.APIKey = envOr("REFINE_API_KEY", c.Refine.APIKey)
	c.Refine.Model = envOr("REFINE_MODEL", c.Refine.Model)
	c.Refine.MaxTokens = envInt("REFINE_MAX_TOKENS", c.Refine.MaxTokens)

	c.QA.ChunkSize = envInt("CHUNK_SIZE", c.QA.ChunkSize)
	c.QA.OverlapFraction = envFloat("CHUNK_OVERLAP_FRACTION", c.QA.OverlapFraction)
	c.QA.TopK = envInt("QA_TOP_K", c.QA.TopK)
	c.QA.ConfidenceFloor = envFloat("CONFIDENCE_FLOOR", c.QA.ConfidenceFloor)
	c.QA.MaxAnswerLength = envInt("MAX_ANSWER_LENGTH", c.QA.MaxAnswerLength)

	c.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", c.PDFFallbackPdftotext)

	c.Redis.Addrs = envList("REDIS_ADDRS", c.Redis.Addrs)
	c.Redis.Username = envOr("REDIS_USERNAME", c.Redis.Username)
	c.Redis.Password = envOr("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = envInt("REDIS_DB", c.Redis.DB)
	c.Redis.TTL = envDuration("TEXT_CACHE_TTL", c.Redis.TTL)
}

// applyDefaults repairs values that would leave the service unusable.
func (c *Config) applyDefaults() {
	def := Defaults()
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = def.MaxUploadBytes
	}
	if c.InferenceTimeout <= 0 {
		c.InferenceTimeout = def.InferenceTimeout
	}
	if c.StatsWindow <= 0 {
		c.StatsWindow = def.StatsWindow
	}
	if c.Refine.MaxTokens <= 0 {
		c.Refine.MaxTokens = def.Refine.MaxTokens
	}
	if c.Redis.TTL <= 0 {
		c.Redis.TTL = def.Redis.TTL
	}
	for _, m := range []*ModelEndpoint{&c.QAModel, &c.PolarityModel, &c.HelpfulnessModel} {
		if m.Token == "" {
			m.Token = c.ModelToken
		}
	}
}

func (c Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %q", c.Port)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	if c.QAModel.URL == "" {
		return fmt.Errorf("QA_MODEL_URL is required")
	}
	if c.PolarityModel.URL == "" {
		return fmt.Errorf("POLARITY_MODEL_URL is required")
	}
	if c.HelpfulnessModel.URL == "" {
		return fmt.Errorf("HELPFULNESS_MODEL_URL is required")
	}
	if c.MaxConcurrentInference < 0 {
		return fmt.Errorf("max_concurrent_inference must not be negative, got %d", c.MaxConcurrentInference)
	}
	if c.Refine.Enabled && (c.Refine.BaseURL == "" || c.Refine.Model == "") {
		return fmt.Errorf("refine.base_url and refine.model are required when refinement is enabled")
	}
	if c.QA.ChunkSize <= 0 {
		return fmt.Errorf("qa.chunk_size must be positive, got %d", c.QA.ChunkSize)
	}
	if c.QA.OverlapFraction < 0 || c.QA.OverlapFraction >= 1 {
		return fmt.Errorf("qa.overlap_fraction must be in [0, 1), got %g", c.QA.OverlapFraction)
	}
	if c.QA.TopK < 1 {
		return fmt.Errorf("qa.top_k must be at least 1, got %d", c.QA.TopK)
	}
	if c.QA.ConfidenceFloor < 0 || c.QA.ConfidenceFloor > 1 {
		return fmt.Errorf("qa.confidence_floor must be in [0, 1], got %g", c.QA.ConfidenceFloor)
	}
	if c.QA.MaxAnswerLength <= 0 {
		return fmt.Errorf("qa.max_answer_length must be positive, got %d", c.QA.MaxAnswerLength)
	}
	chunks := qa.Config{
		ChunkSize:       c.QA.ChunkSize,
		OverlapFraction: c.QA.OverlapFraction,
		MaxAnswerLength: c.QA.MaxAnswerLength,
	}.ChunkConfig()
	if err := chunks.Validate(); err != nil {
		return fmt.Errorf("qa.chunk_size %d is too small for qa.max_answer_length %d: %w",
			c.QA.ChunkSize, c.QA.MaxAnswerLength, err)
	}
	return nil
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList reads a comma-separated list, dropping empty items.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
