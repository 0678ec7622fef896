package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"whatsapp-bridge/internal/utils"
)

const (
	ProviderOpenAI = "OPENAI"
	ProviderAzure  = "AZURE"
	ProviderVLLM   = "VLLM"

	HistoryBackendMemory = "memory"
	HistoryBackendRedis  = "redis"

	defaultGraphBaseURL  = "https://graph.facebook.com"
	defaultGraphVersion  = "v19.0"
	defaultAzureAPIVer   = "2024-02-15-preview"
	defaultServerAddr    = ":8080"
	defaultMaxTurns      = 12
	defaultHistoryTTL    = 24 * time.Hour
	defaultRatePerMinute = 20
	defaultRateBurst     = 5
)

type Config struct {
	ServerAddr string
	WhatsApp   WhatsAppConfig
	LLM        LLMConfig
	History    HistoryConfig
	RateLimit  RateLimitConfig
	Logging    utils.LoggingConfig
}

// WhatsAppConfig carries the Meta Cloud API credentials and endpoints.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	VerifyToken   string
	AppSecret     string
	APIVersion    string
	GraphBaseURL  string
}

// LLMConfig is the resolved chat-completion backend configuration. Provider
// selection flattens the per-provider environment variables into one set of
// fields so the rest of the program never branches on provider names again.
type LLMConfig struct {
	Provider      string
	Model         string
	APIKey        string
	BaseURL       string
	AzureEndpoint string
	AzureAPIVer   string
	Temperature   float32
	MaxTokens     int
	TokenLimit    int
}

type HistoryConfig struct {
	Backend   string
	RedisAddr string
	TTL       time.Duration
	MaxTurns  int
}

type RateLimitConfig struct {
	PerMinute int
	Burst     int
}

var (
	cfg     *Config
	loadErr error
	once    sync.Once
)

// Load reads configuration from the environment exactly once. A .env file in
// the working directory is honoured when present.
func Load() (*Config, error) {
	once.Do(func() {
		cfg, loadErr = loadFromEnv()
	})
	return cfg, loadErr
}

func loadFromEnv() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	llm, err := resolveLLM()
	if err != nil {
		return nil, err
	}

	c := &Config{
		ServerAddr: getEnv("SERVER_ADDR", defaultServerAddr),
		WhatsApp: WhatsAppConfig{
			AccessToken:   strings.TrimSpace(os.Getenv("ACCESS_TOKEN")),
			PhoneNumberID: strings.TrimSpace(os.Getenv("PHONE_NUMBER_ID")),
			VerifyToken:   strings.TrimSpace(os.Getenv("VERIFY_TOKEN")),
			AppSecret:     strings.TrimSpace(os.Getenv("APP_SECRET")),
			APIVersion:    normalizeGraphVersion(getEnv("VERSION", defaultGraphVersion)),
			GraphBaseURL:  strings.TrimRight(getEnv("GRAPH_API_BASE", defaultGraphBaseURL), "/"),
		},
		LLM: llm,
		History: HistoryConfig{
			Backend:   strings.ToLower(getEnv("HISTORY_BACKEND", "memory")),
			RedisAddr: strings.TrimSpace(os.Getenv("REDIS_ADDR")),
			TTL:       parseDuration(getEnv("HISTORY_TTL", ""), defaultHistoryTTL),
			MaxTurns:  parsePositiveInt(getEnv("MAX_TURNS", ""), defaultMaxTurns),
		},
		RateLimit: RateLimitConfig{
			PerMinute: parsePositiveInt(getEnv("RATE_LIMIT_PER_MINUTE", ""), defaultRatePerMinute),
			Burst:     parsePositiveInt(getEnv("RATE_LIMIT_BURST", ""), defaultRateBurst),
		},
		Logging: utils.LoggingConfig{
			Level:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Encoding:     strings.ToLower(getEnv("LOG_ENCODING", "console")),
			Development:  parseBool(getEnv("LOG_DEVELOPMENT", "false"), false),
			EnableCaller: parseBool(getEnv("LOG_CALLER", "false"), false),
			ServiceName:  getEnv("SERVICE_NAME", "whatsapp-bridge"),
		},
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func resolveLLM() (LLMConfig, error) {
	provider := strings.ToUpper(getEnv("CHAT_API_PROVIDER", ProviderOpenAI))

	llm := LLMConfig{
		Provider:    provider,
		Temperature: parseFloat32(getEnv("LLM_TEMPERATURE", ""), 0.7),
		MaxTokens:   parsePositiveInt(getEnv("LLM_MAX_TOKENS", ""), 512),
		TokenLimit:  parsePositiveInt(getEnv("LLM_TOKEN_LIMIT", ""), 4096),
	}

	switch provider {
	case ProviderOpenAI:
		llm.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
		llm.Model = strings.TrimSpace(os.Getenv("OPENAI_MODEL_NAME"))
		llm.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("OPENAI_API_BASE")), "/")
		if missing := missingOf("OPENAI_API_KEY", llm.APIKey, "OPENAI_MODEL_NAME", llm.Model); len(missing) > 0 {
			return llm, missingEnvError(missing)
		}
	case ProviderAzure:
		llm.APIKey = strings.TrimSpace(os.Getenv("AZURE_OPENAI_API_KEY"))
		llm.Model = strings.TrimSpace(os.Getenv("AZURE_OPENAI_DEPLOYMENT_NAME"))
		llm.AzureEndpoint = strings.TrimRight(strings.TrimSpace(os.Getenv("AZURE_OPENAI_ENDPOINT")), "/")
		llm.AzureAPIVer = getEnv("AZURE_OPENAI_API_VERSION", defaultAzureAPIVer)
		if missing := missingOf(
			"AZURE_OPENAI_API_KEY", llm.APIKey,
			"AZURE_OPENAI_DEPLOYMENT_NAME", llm.Model,
			"AZURE_OPENAI_ENDPOINT", llm.AzureEndpoint,
		); len(missing) > 0 {
			return llm, missingEnvError(missing)
		}
	case ProviderVLLM:
		// vLLM serves the OpenAI wire format; "EMPTY" is the documented
		// placeholder key for unauthenticated deployments.
		llm.APIKey = getEnv("VLLM_API_KEY", "EMPTY")
		llm.Model = strings.TrimSpace(os.Getenv("VLLM_MODEL_NAME"))
		llm.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("VLLM_API_BASE")), "/")
		if missing := missingOf("VLLM_API_BASE", llm.BaseURL, "VLLM_MODEL_NAME", llm.Model); len(missing) > 0 {
			return llm, missingEnvError(missing)
		}
	default:
		return llm, fmt.Errorf(
			"invalid CHAT_API_PROVIDER %q: supported values are OPENAI, AZURE or VLLM", provider)
	}

	return llm, nil
}

func (c *Config) validate() error {
	missing := make([]string, 0, 3)

	if c.WhatsApp.AccessToken == "" {
		missing = append(missing, "ACCESS_TOKEN")
	}
	if c.WhatsApp.PhoneNumberID == "" {
		missing = append(missing, "PHONE_NUMBER_ID")
	}
	if c.WhatsApp.VerifyToken == "" {
		missing = append(missing, "VERIFY_TOKEN")
	}
	if c.WhatsApp.AppSecret == "" {
		missing = append(missing, "APP_SECRET")
	}

	if len(missing) > 0 {
		return missingEnvError(missing)
	}

	switch c.History.Backend {
	case HistoryBackendMemory:
	case HistoryBackendRedis:
		if c.History.RedisAddr == "" {
			return missingEnvError([]string{"REDIS_ADDR"})
		}
	default:
		return fmt.Errorf("invalid HISTORY_BACKEND %q: supported values are memory or redis", c.History.Backend)
	}

	return nil
}

func loadEnvFile() error {
	if err := godotenv.Load(); err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			// no .env present; environment variables are supplied externally
			return nil
		}
		return err
	}
	return nil
}

func normalizeGraphVersion(version string) string {
	version = strings.TrimSpace(version)
	if version == "" {
		return defaultGraphVersion
	}
	if !strings.HasPrefix(version, "v") {
		return "v" + version
	}
	return version
}

func missingOf(pairs ...string) []string {
	missing := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			missing = append(missing, pairs[i])
		}
	}
	return missing
}

func missingEnvError(names []string) error {
	return fmt.Errorf("missing required environment variables: %s", strings.Join(names, ", "))
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return strings.TrimSpace(fallback)
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parseFloat32(raw string, fallback float32) float32 {
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 32)
	if err != nil || value < 0 {
		return fallback
	}
	return float32(value)
}

func parseBool(raw string, fallback bool) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
