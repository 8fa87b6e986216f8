package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	LLM       LLMConfig
	Assistant AssistantConfig
	Weather   WeatherConfig
	Mail      MailConfig
	Auth      AuthConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host          string
	Port          int
	ReadTimeout   int
	WriteTimeout  int
	BodyLimit     int
	IsDevelopment bool
	// ProxyHeader is read for the client address, e.g. X-Forwarded-For.
	ProxyHeader    string
	TrustedProxies []string
}

type DatabaseConfig struct {
	Driver            string
	DSN               string
	MaxOpenConns      int
	QueryTimeoutMs    int
	MaxRetries        int
	RetryStepMs       int
	ReconnectDelaySec int
	HealthTimeoutSec  int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type LLMConfig struct {
	Provider        string
	Model           string
	APIKey          string
	BaseURL         string
	Temperature     float32
	TopK            int
	TopP            float32
	MaxOutputTokens int
	Retries         int
	TimeoutSec      int
}

type AssistantConfig struct {
	ContextPath string
	Rules       RulesConfig
}

// RulesConfig toggles individual post-processing rules.
type RulesConfig struct {
	Refusal          bool
	ShortWithLink    bool
	LinkPlacement    bool
	MissingKnowledge bool
	AppendLink       bool
}

type WeatherConfig struct {
	APIKey      string
	BaseURL     string
	CacheTTLSec int
	TimeoutSec  int
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

type AuthConfig struct {
	JWTSecret       string
	TokenTTLMinutes int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	ChatPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/portfolio-bff")

	return load(v)
}

// LoadFile reads a specific config file, still honouring env overrides.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("PORTFOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "pgx":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.QueryTimeoutMs <= 0 {
		return fmt.Errorf("database.queryTimeoutMs must be positive")
	}
	if c.Database.MaxRetries < 1 {
		return fmt.Errorf("database.maxRetries must be at least 1")
	}
	switch c.LLM.Provider {
	// genai is accepted as an alias of gemini.
	case "gemini", "genai", "openai":
	default:
		return fmt.Errorf("unsupported llm provider %q", c.LLM.Provider)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8081)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 60)
	v.SetDefault("server.bodyLimit", 10485760)
	v.SetDefault("server.isDevelopment", false)
	v.SetDefault("server.proxyHeader", "")
	v.SetDefault("server.trustedProxies", []string{})

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "./data/portfolio.db?_foreign_keys=on&_journal_mode=WAL")
	v.SetDefault("database.maxOpenConns", 10)
	v.SetDefault("database.queryTimeoutMs", 10000)
	v.SetDefault("database.maxRetries", 3)
	v.SetDefault("database.retryStepMs", 2000)
	v.SetDefault("database.reconnectDelaySec", 5)
	v.SetDefault("database.healthTimeoutSec", 5)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.apiKey", "")
	v.SetDefault("llm.model", "gemini-1.5-flash-latest")
	v.SetDefault("llm.baseURL", "")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.topK", 40)
	v.SetDefault("llm.topP", 0.8)
	v.SetDefault("llm.maxOutputTokens", 1500)
	v.SetDefault("llm.retries", 3)
	v.SetDefault("llm.timeoutSec", 60)

	v.SetDefault("assistant.contextPath", "")
	v.SetDefault("assistant.rules.refusal", true)
	v.SetDefault("assistant.rules.shortWithLink", true)
	v.SetDefault("assistant.rules.linkPlacement", true)
	v.SetDefault("assistant.rules.missingKnowledge", true)
	v.SetDefault("assistant.rules.appendLink", true)

	v.SetDefault("weather.apiKey", "")
	v.SetDefault("weather.baseURL", "https://api.openweathermap.org/data/2.5")
	v.SetDefault("weather.cacheTTLSec", 600)
	v.SetDefault("weather.timeoutSec", 10)

	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.to", "")

	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.tokenTTLMinutes", 60)

	v.SetDefault("cors.allowedOrigins", []string{"http://localhost:3000", "https://shivashankerportfolio.netlify.app"})

	v.SetDefault("rateLimit.chatPerMinute", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}
