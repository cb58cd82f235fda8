package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type AuthConfig struct {
	Enabled bool     `yaml:"enabled"`
	APIKeys []string `yaml:"apiKeys"`
}

type RateLimitConfig struct {
	DefaultPerMinute int `yaml:"defaultPerMinute"`
}

// ApifyConfig configures the ad-library scraping actor.
type ApifyConfig struct {
	Token           string `yaml:"token"`
	ActorID         string `yaml:"actorId"`
	BaseURL         string `yaml:"baseURL"`
	Sync            bool   `yaml:"sync"`
	PollIntervalMs  int    `yaml:"pollIntervalMs"`
	MaxPollAttempts int    `yaml:"maxPollAttempts"`
	MinCount        int    `yaml:"minCount"`
}

// VertexConfig configures the service-account backed Vertex vision
// backend and its GCS staging bucket.
type VertexConfig struct {
	CredentialsFile string `yaml:"credentialsFile"`
	Project         string `yaml:"project"`
	Location        string `yaml:"location"`
	Model           string `yaml:"model"`
	Bucket          string `yaml:"bucket"`
}

type GeminiConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

type ClaudeConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

// VisionConfig groups the vision backends in dispatch priority order:
// vertex, then gemini, then claude (images only).
type VisionConfig struct {
	Vertex VertexConfig `yaml:"vertex"`
	Gemini GeminiConfig `yaml:"gemini"`
	Claude ClaudeConfig `yaml:"claude"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"`
	Model   string `yaml:"model"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

type GoogleLLMConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

// LLMConfig configures the text-generation providers used by the
// prompt wizard.
type LLMConfig struct {
	DefaultProvider string          `yaml:"defaultProvider"`
	OpenAI          OpenAIConfig    `yaml:"openai"`
	Anthropic       AnthropicConfig `yaml:"anthropic"`
	Google          GoogleLLMConfig `yaml:"google"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Apify     ApifyConfig     `yaml:"apify"`
	Vision    VisionConfig    `yaml:"vision"`
	LLM       LLMConfig       `yaml:"llm"`
}

func Load(path string) *Config {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		log.Fatalf("failed to decode config: %v", err)
	}

	return &cfg
}
