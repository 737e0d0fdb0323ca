package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	LLM        LLMConfig        `yaml:"llm"`
	Agent      AgentConfig      `yaml:"agent"`
	Maps       MapsConfig       `yaml:"maps"`
	Weather    WeatherConfig    `yaml:"weather"`
	AirQuality AirQualityConfig `yaml:"airQuality"`
	Policy     PolicyConfig     `yaml:"policy"`
	Session    SessionConfig    `yaml:"session"`
	Documents  DocumentsConfig  `yaml:"documents"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware. Plan generation has its
// own budget so polling reads cannot starve it.
type RateLimitConfig struct {
	Enabled             bool `yaml:"enabled"`
	RequestsPerMinute   int  `yaml:"requestsPerMinute"`
	Burst               int  `yaml:"burst"`
	GenerationPerMinute int  `yaml:"generationPerMinute"`
	GenerationBurst     int  `yaml:"generationBurst"`
}

// LLMConfig contains ChatGPT/OpenAI settings.
type LLMConfig struct {
	APIKey      string  `yaml:"apiKey"`
	BaseURL     string  `yaml:"baseUrl"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

// AgentConfig bounds the tool-calling loop.
type AgentConfig struct {
	MaxIterations          int           `yaml:"maxIterations"`
	Timeout                time.Duration `yaml:"timeout"`
	AttractionsTemperature float32       `yaml:"attractionsTemperature"`
}

// MapsConfig configures Google Places lookups.
type MapsConfig struct {
	APIKey    string `yaml:"apiKey"`
	CacheSize int    `yaml:"cacheSize"`
	Language  string `yaml:"language"`
}

// WeatherConfig configures the open-meteo forecast client.
type WeatherConfig struct {
	BaseURL     string `yaml:"baseUrl"`
	WindowHours int    `yaml:"windowHours"`
}

// AirQualityConfig configures the Google Air Quality client.
type AirQualityConfig struct {
	BaseURL         string `yaml:"baseUrl"`
	BadAQIThreshold int    `yaml:"badAqiThreshold"`
}

// PolicyConfig lists destination restrictions.
type PolicyConfig struct {
	BlockedDestinations []string `yaml:"blockedDestinations"`
	AllowedRegions      []string `yaml:"allowedRegions"`
}

// SessionConfig controls planner session lifetime and storage.
type SessionConfig struct {
	TTL         time.Duration `yaml:"ttl"`
	TokenSecret string        `yaml:"tokenSecret"`
	Timezone    string        `yaml:"timezone"`
	Valkey      ValkeyConfig  `yaml:"valkey"`
}

// ValkeyConfig contains connection information for session storage.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// DocumentsConfig controls where rendered PDFs are kept.
type DocumentsConfig struct {
	SweepInterval time.Duration `yaml:"sweepInterval"`
	// FontPath points at a UTF-8 TrueType font used for PDF text; empty keeps the
	// built-in Latin-1 fonts.
	FontPath string   `yaml:"fontPath"`
	R2       R2Config `yaml:"r2"`
}

// R2Config holds S3-compatible bucket credentials.
type R2Config struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_WRITE_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.WriteTimeout = parsed
		}
	}
	if v := firstEnv("LLM_API_KEY", "OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := firstEnv("LLM_MODEL", "OPENAI_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	if v := os.Getenv("AGENT_MAX_ITERATIONS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Agent.MaxIterations = parsed
		}
	}
	if v := os.Getenv("AGENT_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Agent.Timeout = parsed
		}
	}
	if v := firstEnv("MAPS_API_KEY", "GOOGLE_MAPS_API_KEY"); v != "" {
		cfg.Maps.APIKey = v
	}
	if v := os.Getenv("WEATHER_BASE_URL"); v != "" {
		cfg.Weather.BaseURL = v
	}
	if v := os.Getenv("AIR_QUALITY_BASE_URL"); v != "" {
		cfg.AirQuality.BaseURL = v
	}
	if v := os.Getenv("BAD_AQI_THRESHOLD"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.AirQuality.BadAQIThreshold = parsed
		}
	}
	if v := os.Getenv("BLOCKED_DESTINATIONS"); v != "" {
		cfg.Policy.BlockedDestinations = splitList(v)
	}
	if v := os.Getenv("ALLOWED_REGIONS"); v != "" {
		cfg.Policy.AllowedRegions = splitList(v)
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Session.TTL = parsed
		}
	}
	if v := os.Getenv("SESSION_TOKEN_SECRET"); v != "" {
		cfg.Session.TokenSecret = v
	}
	if v := os.Getenv("SESSION_TIMEZONE"); v != "" {
		cfg.Session.Timezone = v
	}
	if v := os.Getenv("SESSION_VALKEY_ENABLED"); v != "" {
		cfg.Session.Valkey.Enabled = parseBool(v)
	}
	if v := os.Getenv("SESSION_VALKEY_ADDR"); v != "" {
		cfg.Session.Valkey.Addr = v
	}
	if v := os.Getenv("DOCUMENTS_FONT_PATH"); v != "" {
		cfg.Documents.FontPath = v
	}
	if v := os.Getenv("DOCUMENTS_R2_ENABLED"); v != "" {
		cfg.Documents.R2.Enabled = parseBool(v)
	}
	if v := os.Getenv("DOCUMENTS_R2_ENDPOINT"); v != "" {
		cfg.Documents.R2.Endpoint = v
	}
	if v := os.Getenv("DOCUMENTS_R2_ACCESS_KEY"); v != "" {
		cfg.Documents.R2.AccessKey = v
	}
	if v := os.Getenv("DOCUMENTS_R2_SECRET_KEY"); v != "" {
		cfg.Documents.R2.SecretKey = v
	}
	if v := os.Getenv("DOCUMENTS_R2_BUCKET"); v != "" {
		cfg.Documents.R2.Bucket = v
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_GENERATION_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.GenerationPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_GENERATION_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.GenerationBurst = parsed
		}
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 4 * time.Minute,
			RateLimit: RateLimitConfig{
				Enabled:             true,
				RequestsPerMinute:   120,
				Burst:               30,
				GenerationPerMinute: 6,
				GenerationBurst:     3,
			},
		},
		LLM: LLMConfig{
			Model: "gpt-4o-mini",
		},
		Agent: AgentConfig{
			MaxIterations:          12,
			Timeout:                3 * time.Minute,
			AttractionsTemperature: 0.4,
		},
		Maps: MapsConfig{
			CacheSize: 512,
		},
		Weather: WeatherConfig{
			BaseURL:     "https://api.open-meteo.com/v1/forecast",
			WindowHours: 240,
		},
		AirQuality: AirQualityConfig{
			BaseURL:         "https://airquality.googleapis.com/v1",
			BadAQIThreshold: 101,
		},
		Policy: PolicyConfig{
			BlockedDestinations: []string{"North Korea"},
			AllowedRegions:      []string{"North America", "Asia"},
		},
		Session: SessionConfig{
			TTL:      12 * time.Hour,
			Timezone: "Local",
		},
		Documents: DocumentsConfig{
			SweepInterval: 10 * time.Minute,
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return errors.New("llm.apiKey cannot be empty")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model cannot be empty")
	}
	if strings.TrimSpace(c.Maps.APIKey) == "" {
		return errors.New("maps.apiKey cannot be empty")
	}
	if c.Agent.MaxIterations <= 0 {
		return errors.New("agent.maxIterations must be positive")
	}
	if c.Agent.Timeout <= 0 {
		return errors.New("agent.timeout must be positive")
	}
	if c.Weather.BaseURL == "" {
		return errors.New("weather.baseUrl cannot be empty")
	}
	if c.Weather.WindowHours <= 0 || c.Weather.WindowHours > 240 {
		return errors.New("weather.windowHours must be between 1 and 240")
	}
	if c.AirQuality.BaseURL == "" {
		return errors.New("airQuality.baseUrl cannot be empty")
	}
	if c.AirQuality.BadAQIThreshold <= 0 {
		return errors.New("airQuality.badAqiThreshold must be positive")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session.ttl must be positive")
	}
	if len(strings.TrimSpace(c.Session.TokenSecret)) < 16 {
		return errors.New("session.tokenSecret must be at least 16 characters")
	}
	if _, err := time.LoadLocation(c.Session.Timezone); err != nil {
		return fmt.Errorf("session.timezone: %w", err)
	}
	if c.Session.Valkey.Enabled && strings.TrimSpace(c.Session.Valkey.Addr) == "" {
		return errors.New("session.valkey.addr cannot be empty when valkey is enabled")
	}
	if c.Documents.R2.Enabled {
		if strings.TrimSpace(c.Documents.R2.Endpoint) == "" || strings.TrimSpace(c.Documents.R2.Bucket) == "" {
			return errors.New("documents.r2 endpoint and bucket are required when r2 is enabled")
		}
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
		if c.HTTP.RateLimit.GenerationPerMinute <= 0 || c.HTTP.RateLimit.GenerationBurst <= 0 {
			return errors.New("http.rateLimit generation budget must be positive")
		}
	}
	return nil
}

// Location resolves the configured report timezone, falling back to time.Local.
func (c SessionConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
