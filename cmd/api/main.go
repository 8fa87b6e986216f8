package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/portfolio-bff/backend/internal/api"
	"github.com/portfolio-bff/backend/internal/api/handlers"
	"github.com/portfolio-bff/backend/internal/assistant"
	"github.com/portfolio-bff/backend/internal/auth"
	"github.com/portfolio-bff/backend/internal/cache"
	"github.com/portfolio-bff/backend/internal/cache/redis"
	"github.com/portfolio-bff/backend/internal/llm"
	"github.com/portfolio-bff/backend/internal/metrics"
	"github.com/portfolio-bff/backend/internal/middleware/ratelimit"
	"github.com/portfolio-bff/backend/internal/notify"
	"github.com/portfolio-bff/backend/internal/portfolio"
	"github.com/portfolio-bff/backend/internal/storage/executor"
	"github.com/portfolio-bff/backend/internal/storage/repository"
	"github.com/portfolio-bff/backend/internal/weather"
	"github.com/portfolio-bff/backend/pkg/config"
	appLogger "github.com/portfolio-bff/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting portfolio backend")
	metrics.Init()

	db := executor.New(executor.Config{
		Dialer:          executor.SQLDialer(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.MaxOpenConns),
		ReconnectDelay:  time.Duration(cfg.Database.ReconnectDelaySec) * time.Second,
		DefaultTimeout:  time.Duration(cfg.Database.QueryTimeoutMs) * time.Millisecond,
		DefaultAttempts: cfg.Database.MaxRetries,
		RetryStep:       time.Duration(cfg.Database.RetryStepMs) * time.Millisecond,
		HealthTimeout:   time.Duration(cfg.Database.HealthTimeoutSec) * time.Second,
		Observer:        metrics.ExecutorObserver{},
	})
	defer db.Close()
	db.Connect()

	repo := repository.New(db, repository.DialectFor(cfg.Database.Driver))
	initCtx, cancelInit := context.WithTimeout(context.Background(), time.Minute)
	if err := repo.InitSchema(initCtx); err != nil {
		appLogger.Warn("Failed to initialize schema, continuing without it", zap.Error(err))
	}
	cancelInit()

	responseCache := newCache(cfg)

	assistantSvc := assistant.NewService(
		loadPortfolio(cfg.Assistant.ContextPath),
		newLLMClient(cfg),
		assistant.RuleSet{
			Refusal:          cfg.Assistant.Rules.Refusal,
			ShortWithLink:    cfg.Assistant.Rules.ShortWithLink,
			LinkPlacement:    cfg.Assistant.Rules.LinkPlacement,
			MissingKnowledge: cfg.Assistant.Rules.MissingKnowledge,
			AppendLink:       cfg.Assistant.Rules.AppendLink,
		},
		appLogger.GetLogger(),
	)

	weatherSvc := weather.NewService(weather.Config{
		APIKey:   cfg.Weather.APIKey,
		BaseURL:  cfg.Weather.BaseURL,
		CacheTTL: time.Duration(cfg.Weather.CacheTTLSec) * time.Second,
		Timeout:  time.Duration(cfg.Weather.TimeoutSec) * time.Second,
		Cache:    responseCache,
	})

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		appLogger.Warn("JWT secret is not set; using an ephemeral secret, tokens will not survive a restart")
		if secret, err = auth.GenerateSecret(); err != nil {
			appLogger.Fatal("Failed to generate JWT secret", zap.Error(err))
		}
	}
	issuer, err := auth.NewIssuer(secret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)
	if err != nil {
		appLogger.Fatal("Failed to create token issuer", zap.Error(err))
	}

	chatLimiter := ratelimit.New(ratelimit.Config{
		MaxRequests: cfg.RateLimit.ChatPerMinute,
		Window:      time.Minute,
		Route:       "chat",
		Logger:      appLogger.GetLogger(),
	})
	defer chatLimiter.Stop()

	app := api.NewApp(api.Options{
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:      cfg.Server.BodyLimit,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		IsDevelopment:  cfg.Server.IsDevelopment,
		ProxyHeader:    cfg.Server.ProxyHeader,
		TrustedProxies: cfg.Server.TrustedProxies,
		RequestLog:     true,
		ChatLimiter:    chatLimiter,
	}, api.Handlers{
		System:      handlers.NewSystemHandler(db, repo),
		Chat:        handlers.NewChatHandler(assistantSvc),
		WebSocket:   handlers.NewWebSocketHandler(assistantSvc, chatLimiter),
		Reviews:     handlers.NewReviewHandler(repo),
		Submissions: handlers.NewSubmissionHandler(repo, newMailer(cfg), cfg.Mail.To),
		Auth:        handlers.NewAuthHandler(repo, issuer),
		Projects:    handlers.NewProjectHandler(repo),
		Weather:     handlers.NewWeatherHandler(weatherSvc),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Error("Server shutdown failed", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}

func loadPortfolio(path string) *portfolio.Context {
	if path == "" {
		return portfolio.Default()
	}
	pc, err := portfolio.Load(path)
	if err != nil {
		appLogger.Fatal("Failed to load portfolio context", zap.String("path", path), zap.Error(err))
	}
	return pc
}

func newLLMClient(cfg *config.Config) *llm.Client {
	generation := llm.GenerationConfig{
		Temperature:     cfg.LLM.Temperature,
		TopK:            cfg.LLM.TopK,
		TopP:            cfg.LLM.TopP,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
	}

	var provider llm.Provider
	switch cfg.LLM.Provider {
	case "openai":
		provider = llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey:     cfg.LLM.APIKey,
			BaseURL:    cfg.LLM.BaseURL,
			Model:      cfg.LLM.Model,
			Generation: generation,
		})
	default:
		provider = llm.NewGeminiProvider(llm.GeminiConfig{
			APIKey:     cfg.LLM.APIKey,
			BaseURL:    cfg.LLM.BaseURL,
			Model:      cfg.LLM.Model,
			Generation: generation,
		})
	}

	if cfg.LLM.APIKey == "" {
		appLogger.Warn("LLM API key is not set; chat requests will fail", zap.String("provider", provider.Name()))
	}

	return llm.NewClient(provider, llm.Config{
		Retries:   cfg.LLM.Retries,
		Timeout:   time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		OnAttempt: metrics.ObserveLLMAttempt,
	})
}

// newCache prefers Redis and falls back to process memory when Redis is
// disabled or unreachable.
func newCache(cfg *config.Config) cache.Cache {
	if !cfg.Redis.Enabled {
		return cache.NewMemory()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		appLogger.Warn("Redis unavailable, using in-memory cache", zap.Error(err))
		return cache.NewMemory()
	}
	return client
}

func newMailer(cfg *config.Config) notify.Mailer {
	if cfg.Mail.Host == "" {
		appLogger.Warn("SMTP host is not set; outgoing mail is dropped")
		return notify.NopMailer{}
	}
	return notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	})
}
