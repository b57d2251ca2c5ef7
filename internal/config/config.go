package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/turing-station/backend/internal/service/ai/gemini"
)

// Config aggregates every runtime setting of the server.
type Config struct {
	Server    ServerConfig
	Game      GameConfig
	AI        AIConfig
	RateLimit RateLimitConfig
	Ledger    LedgerConfig
}

// Load reads configuration from the environment. Invalid values fail startup.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	game, err := loadGameConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	limit, err := loadRateLimitConfig()
	if err != nil {
		return nil, err
	}

	ledger, err := loadLedgerConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Game: game, AI: ai, RateLimit: limit, Ledger: ledger}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr           string
	Env            string
	AllowedOrigins []string
}

// Development enables error details in responses and killer logging.
func (c ServerConfig) Development() bool {
	return c.Env == "development"
}

func loadServerConfig() (ServerConfig, error) {
	port := getEnvOrDefault("PORT", "8080")

	var addr string
	switch {
	case strings.Contains(port, ":"):
		// ":8080" and "127.0.0.1:8080" are used as-is.
		addr = port
	case strings.Contains(port, " "):
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	default:
		addr = ":" + port
	}

	var origins []string
	for _, o := range strings.Split(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return ServerConfig{
		Addr:           addr,
		Env:            strings.ToLower(getEnvOrDefault("APP_ENV", "production")),
		AllowedOrigins: origins,
	}, nil
}

// GameConfig tunes quotas and session expiry.
type GameConfig struct {
	MaxQuestions   int
	SessionTimeout time.Duration
	SweepInterval  time.Duration
}

func loadGameConfig() (GameConfig, error) {
	maxQuestions, err := parseIntEnv("MAX_QUESTIONS_PER_AGENT", 5)
	if err != nil {
		return GameConfig{}, err
	}
	if maxQuestions < 1 {
		return GameConfig{}, fmt.Errorf("MAX_QUESTIONS_PER_AGENT must be at least 1, got %d", maxQuestions)
	}

	timeoutMinutes, err := parseIntEnv("SESSION_TIMEOUT_MINUTES", 60)
	if err != nil {
		return GameConfig{}, err
	}
	if timeoutMinutes < 0 {
		return GameConfig{}, fmt.Errorf("SESSION_TIMEOUT_MINUTES must not be negative, got %d", timeoutMinutes)
	}

	sweep, err := parseDurationEnv("SESSION_SWEEP_INTERVAL", 10*time.Minute)
	if err != nil {
		return GameConfig{}, err
	}

	return GameConfig{
		MaxQuestions:   maxQuestions,
		SessionTimeout: time.Duration(timeoutMinutes) * time.Minute,
		SweepInterval:  sweep,
	}, nil
}

const (
	ProviderArk    = "ark"
	ProviderGemini = "gemini"
)

// AIConfig describes the completion provider.
type AIConfig struct {
	Provider       string
	APIKey         string
	AccessKey      string
	SecretKey      string
	Model          string
	BaseURL        string
	Region         string
	GeminiAPIKey   string
	GeminiModel    string
	Temperature    *float64
	TopP           *float64
	MaxTokens      *int
	StreamResponse bool
	Timeout        time.Duration
}

// Enabled reports whether the selected provider has the credentials it needs.
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderGemini:
		return c.GeminiAPIKey != "" && c.GeminiModel != ""
	default:
		return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
	}
}

func (c AIConfig) ProviderName() string {
	if c.Provider == "" {
		return ProviderArk
	}
	return c.Provider
}

func (c AIConfig) ModelName() string {
	if c.Provider == ProviderGemini {
		return c.GeminiModel
	}
	return c.Model
}

// NewChatModel builds the chat model for the selected provider.
func (c AIConfig) NewChatModel(ctx context.Context) (model.BaseChatModel, error) {
	if !c.Enabled() {
		if c.Provider == ProviderGemini {
			return nil, fmt.Errorf("gemini credentials missing: GEMINI_API_KEY and GEMINI_MODEL are required")
		}
		return nil, fmt.Errorf("ark credentials missing: provide ARK_API_KEY + Model or an ARK_ACCESS_KEY/ARK_SECRET_KEY pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	if c.Provider == ProviderGemini {
		return gemini.NewChatModel(ctx, gemini.Config{
			APIKey:      c.GeminiAPIKey,
			Model:       c.GeminiModel,
			Temperature: temperature,
			TopP:        topP,
			MaxTokens:   maxTokens,
		})
	}

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	})
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderArk))
	if provider != ProviderArk && provider != ProviderGemini {
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q: want %q or %q", provider, ProviderArk, ProviderGemini)
	}

	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}
	if temperature == nil {
		temperature = floatPtr(0.8)
	}

	topP, err := parseOptionalFloatEnv("AI_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}
	if maxTokens == nil {
		maxTokens = intPtr(250)
	}

	stream, err := parseBoolEnv("AI_STREAM", true)
	if err != nil {
		return AIConfig{}, err
	}

	timeout, err := parseDurationEnv("AI_TIMEOUT", 60*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		Provider:       provider,
		APIKey:         strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:      strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:      strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:          strings.TrimSpace(os.Getenv("Model")),
		BaseURL:        getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:         getEnvOrDefault("ARK_REGION", "cn-beijing"),
		GeminiAPIKey:   strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:    getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		Temperature:    temperature,
		TopP:           topP,
		MaxTokens:      maxTokens,
		StreamResponse: stream,
		Timeout:        timeout,
	}, nil
}

// RateLimitConfig bounds requests per client IP.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

func loadRateLimitConfig() (RateLimitConfig, error) {
	requests, err := parseIntEnv("RATE_LIMIT_REQUESTS", 100)
	if err != nil {
		return RateLimitConfig{}, err
	}
	window, err := parseDurationEnv("RATE_LIMIT_WINDOW", 15*time.Minute)
	if err != nil {
		return RateLimitConfig{}, err
	}
	return RateLimitConfig{Requests: requests, Window: window}, nil
}

const (
	LedgerSQLite   = "sqlite"
	LedgerSupabase = "supabase"
	LedgerNone     = "none"
)

// LedgerConfig selects where closed cases are archived.
type LedgerConfig struct {
	Driver      string
	DBPath      string
	SupabaseURL string
	SupabaseKey string
	Table       string
}

func loadLedgerConfig() (LedgerConfig, error) {
	cfg := LedgerConfig{
		Driver:      strings.ToLower(getEnvOrDefault("LEDGER_DRIVER", LedgerSQLite)),
		DBPath:      getEnvOrDefault("LEDGER_DB_PATH", "./data/turing-station.db"),
		SupabaseURL: strings.TrimSpace(os.Getenv("SUPABASE_URL")),
		SupabaseKey: strings.TrimSpace(os.Getenv("SUPABASE_KEY")),
		Table:       getEnvOrDefault("LEDGER_TABLE", "case_outcomes"),
	}

	switch cfg.Driver {
	case LedgerSQLite, LedgerNone:
	case LedgerSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			return LedgerConfig{}, fmt.Errorf("LEDGER_DRIVER=supabase requires SUPABASE_URL and SUPABASE_KEY")
		}
	default:
		return LedgerConfig{}, fmt.Errorf("invalid LEDGER_DRIVER value %q", cfg.Driver)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	val, err := parseOptionalIntEnv(key)
	if err != nil || val == nil {
		return defaultValue, err
	}
	return *val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }
