package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/portfolio-bff/backend/internal/cache"
	"github.com/portfolio-bff/backend/internal/metrics"
	"github.com/portfolio-bff/backend/pkg/circuitbreaker"
	"github.com/portfolio-bff/backend/pkg/logger"
	"github.com/portfolio-bff/backend/pkg/utils"
)

const (
	DefaultBaseURL  = "https://api.openweathermap.org/data/2.5"
	defaultCacheTTL = 10 * time.Minute
	defaultTimeout  = 10 * time.Second
	maxErrorBody    = 512
)

var (
	ErrMissingCoordinates = errors.New("latitude and longitude are required")
	ErrInvalidCoordinates = errors.New("latitude and longitude must be numbers in range")
	ErrMissingAPIKey      = errors.New("weather API key is missing")
)

type Kind string

const (
	Current  Kind = "weather"
	Forecast Kind = "forecast"
)

// UpstreamError is a non-2xx reply from the weather provider.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("weather provider returned status %d: %s", e.StatusCode, e.Body)
}

type Config struct {
	APIKey     string
	BaseURL    string
	CacheTTL   time.Duration
	Timeout    time.Duration
	HTTPClient *http.Client
	Cache      cache.Cache
	Breaker    *circuitbreaker.CircuitBreaker
	Logger     *zap.Logger
}

// Service proxies OpenWeather lookups. Identical lookups in flight share
// one upstream call and results are cached for CacheTTL.
type Service struct {
	apiKey     string
	baseURL    string
	cacheTTL   time.Duration
	timeout    time.Duration
	httpClient *http.Client
	cache      cache.Cache
	breaker    *circuitbreaker.CircuitBreaker
	logger     *zap.Logger

	group singleflight.Group
}

func NewService(cfg Config) *Service {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewMemory()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.Breaker == nil {
		cfg.Breaker = circuitbreaker.NewCircuitBreaker("weather", circuitbreaker.Config{
			Timeout:   30 * time.Second,
			IsFailure: countsAgainstBreaker,
			Logger:    cfg.Logger,
		})
	}

	return &Service{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		cacheTTL:   cfg.CacheTTL,
		timeout:    cfg.Timeout,
		httpClient: cfg.HTTPClient,
		cache:      cfg.Cache,
		breaker:    cfg.Breaker,
		logger:     cfg.Logger.With(zap.String("component", "weather")),
	}
}

// ParseCoordinates validates raw lat/lon query values.
func ParseCoordinates(lat, lon string) (float64, float64, error) {
	lat, lon = strings.TrimSpace(lat), strings.TrimSpace(lon)
	if lat == "" || lon == "" {
		return 0, 0, ErrMissingCoordinates
	}

	la, err := strconv.ParseFloat(lat, 64)
	if err != nil || la < -90 || la > 90 {
		return 0, 0, ErrInvalidCoordinates
	}
	lo, err := strconv.ParseFloat(lon, 64)
	if err != nil || lo < -180 || lo > 180 {
		return 0, 0, ErrInvalidCoordinates
	}
	return la, lo, nil
}

func (s *Service) Current(ctx context.Context, lat, lon string) (json.RawMessage, error) {
	return s.lookup(ctx, Current, lat, lon)
}

func (s *Service) Forecast(ctx context.Context, lat, lon string) (json.RawMessage, error) {
	return s.lookup(ctx, Forecast, lat, lon)
}

func (s *Service) lookup(ctx context.Context, kind Kind, lat, lon string) (json.RawMessage, error) {
	if _, _, err := ParseCoordinates(lat, lon); err != nil {
		return nil, err
	}
	if s.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	lat, lon = strings.TrimSpace(lat), strings.TrimSpace(lon)

	key := utils.CacheKey("weather", string(kind), lat, lon)

	var cached json.RawMessage
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("Weather cache read failed", zap.Error(err))
	}
	if hit {
		metrics.CacheHits.WithLabelValues("weather").Inc()
		return cached, nil
	}
	metrics.CacheMisses.WithLabelValues("weather").Inc()

	v, err, shared := s.group.Do(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		var body json.RawMessage
		err := s.breaker.Execute(fetchCtx, func() error {
			var fetchErr error
			body, fetchErr = s.fetch(fetchCtx, kind, lat, lon)
			return fetchErr
		})
		if err != nil {
			return nil, err
		}

		if err := s.cache.Set(fetchCtx, key, body, s.cacheTTL); err != nil {
			s.logger.Warn("Weather cache write failed", zap.Error(err))
		}
		return body, nil
	})
	if err != nil {
		s.logger.Error("Weather lookup failed",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return nil, err
	}

	if shared {
		s.logger.Debug("Weather lookup shared", zap.String("kind", string(kind)))
	}
	return v.(json.RawMessage), nil
}

func (s *Service) fetch(ctx context.Context, kind Kind, lat, lon string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("lat", lat)
	q.Set("lon", lon)
	q.Set("appid", s.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/"+string(kind)+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.New(utils.Redact(fmt.Sprintf("request failed: %v", err), s.apiKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: utils.Redact(string(body), s.apiKey)}
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("weather provider returned invalid JSON")
	}
	return json.RawMessage(body), nil
}

// Client errors such as a bad key or unknown coordinates do not open the
// circuit.
func countsAgainstBreaker(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.StatusCode >= http.StatusInternalServerError || ue.StatusCode == http.StatusTooManyRequests
	}
	return err != nil
}
