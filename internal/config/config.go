package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino/components/model"

	"github.com/zhouzirui/z-tutor/backend/internal/logger"
)

// 支持的大模型后端。
const (
	ProviderOllama = "ollama"
	ProviderArk    = "ark"
)

// 分类器运行模式。
const (
	ClassifierLLM     = "llm"
	ClassifierKeyword = "keyword"
)

// 历史记录存储后端。
const (
	HistorySQLite = "sqlite"
	HistoryMemory = "memory"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server        ServerConfig
	AI            AIConfig
	History       HistoryConfig
	Log           logger.Config
	RateLimit     RateLimitConfig
	DefaultUserID string
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	history, err := loadHistoryConfig()
	if err != nil {
		return nil, err
	}

	rateLimit, err := loadRateLimitConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		AI:        ai,
		History:   history,
		RateLimit: rateLimit,
		Log: logger.Config{
			Level:    getEnvOrDefault("LOG_LEVEL", "info"),
			Encoding: getEnvOrDefault("LOG_ENCODING", "console"),
		},
		DefaultUserID: getEnvOrDefault("DEFAULT_USER_ID", "guest"),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider       string
	Model          string
	BaseURL        string
	Timeout        time.Duration
	APIKey         string
	AccessKey      string
	SecretKey      string
	Region         string
	Temperature    *float64
	TopP           *float64
	MaxTokens      *int
	StreamResponse bool
	ClassifierMode string
	HistoryLimit   int
}

// Enabled 表示模型配置是否完整。Ollama 在本地运行，只需要模型名。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderOllama:
		return c.Model != "" && c.BaseURL != ""
	case ProviderArk:
		return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
	default:
		return false
	}
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("model configuration incomplete for provider %q", c.Provider)
	}

	switch c.Provider {
	case ProviderArk:
		return c.newArkChatModel(ctx)
	default:
		return ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: c.BaseURL,
			Model:   c.Model,
			Timeout: c.Timeout,
		})
	}
}

func (c AIConfig) newArkChatModel(ctx context.Context) (model.ChatModel, error) {
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

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("LLM_PROVIDER", ProviderOllama))
	if provider != ProviderOllama && provider != ProviderArk {
		return AIConfig{}, fmt.Errorf("invalid LLM_PROVIDER value %q", provider)
	}

	classifierMode := strings.ToLower(getEnvOrDefault("CLASSIFIER_MODE", ClassifierLLM))
	if classifierMode != ClassifierLLM && classifierMode != ClassifierKeyword {
		return AIConfig{}, fmt.Errorf("invalid CLASSIFIER_MODE value %q", classifierMode)
	}

	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	stream, err := parseBoolEnv("LLM_STREAM", true)
	if err != nil {
		return AIConfig{}, err
	}

	historyLimit := 20
	if override, err := parseOptionalIntEnv("HISTORY_LIMIT"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		if *override < 0 {
			return AIConfig{}, fmt.Errorf("invalid HISTORY_LIMIT value %d", *override)
		}
		historyLimit = *override
	}

	cfg := AIConfig{
		Provider:       provider,
		Temperature:    temperature,
		TopP:           topP,
		MaxTokens:      maxTokens,
		StreamResponse: stream,
		ClassifierMode: classifierMode,
		HistoryLimit:   historyLimit,
	}

	switch provider {
	case ProviderArk:
		cfg.APIKey = strings.TrimSpace(os.Getenv("ARK_API_KEY"))
		cfg.AccessKey = strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY"))
		cfg.SecretKey = strings.TrimSpace(os.Getenv("ARK_SECRET_KEY"))
		cfg.Model = strings.TrimSpace(os.Getenv("ARK_MODEL"))
		cfg.BaseURL = getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3")
		cfg.Region = getEnvOrDefault("ARK_REGION", "cn-beijing")
	default:
		timeout, err := parseOptionalIntEnv("OLLAMA_TIMEOUT_SECONDS")
		if err != nil {
			return AIConfig{}, err
		}
		cfg.Timeout = 120 * time.Second
		if timeout != nil {
			cfg.Timeout = time.Duration(*timeout) * time.Second
		}
		cfg.BaseURL = getEnvOrDefault("OLLAMA_BASE_URL", "http://localhost:11434")
		cfg.Model = getEnvOrDefault("OLLAMA_MODEL", "llama3.2:latest")
	}

	return cfg, nil
}

// HistoryConfig 描述会话历史的存储位置。
type HistoryConfig struct {
	Backend   string
	Path      string
	CacheSize int
}

func loadHistoryConfig() (HistoryConfig, error) {
	backend := strings.ToLower(getEnvOrDefault("HISTORY_BACKEND", HistorySQLite))
	if backend != HistorySQLite && backend != HistoryMemory {
		return HistoryConfig{}, fmt.Errorf("invalid HISTORY_BACKEND value %q", backend)
	}

	cacheSize := 256
	if override, err := parseOptionalIntEnv("TRANSCRIPT_CACHE_SIZE"); err != nil {
		return HistoryConfig{}, err
	} else if override != nil {
		if *override < 1 {
			cacheSize = 1
		} else {
			cacheSize = *override
		}
	}

	path := getEnvOrDefault("HISTORY_DB_PATH", "chat_history.db")
	if strings.ContainsAny(path, "?#") {
		return HistoryConfig{}, fmt.Errorf("invalid HISTORY_DB_PATH value %q: must not contain '?' or '#'", path)
	}

	return HistoryConfig{
		Backend:   backend,
		Path:      path,
		CacheSize: cacheSize,
	}, nil
}

// RateLimitConfig 限制单个用户每分钟的提问次数，0 表示不限制。
type RateLimitConfig struct {
	RequestsPerMinute int
}

func loadRateLimitConfig() (RateLimitConfig, error) {
	perMinute := 30
	if override, err := parseOptionalIntEnv("RATE_LIMIT_PER_MIN"); err != nil {
		return RateLimitConfig{}, err
	} else if override != nil {
		if *override < 0 {
			return RateLimitConfig{}, fmt.Errorf("invalid RATE_LIMIT_PER_MIN value %d", *override)
		}
		perMinute = *override
	}
	return RateLimitConfig{RequestsPerMinute: perMinute}, nil
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
