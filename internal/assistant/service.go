package assistant

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/portfolio-bff/backend/internal/llm"
	"github.com/portfolio-bff/backend/internal/metrics"
	"github.com/portfolio-bff/backend/internal/portfolio"
	"github.com/portfolio-bff/backend/pkg/logger"
)

var ErrInvalidInput = errors.New("invalid message input")

// Generator produces raw text for a prompt. *llm.Client implements it.
type Generator interface {
	Send(ctx context.Context, prompt string) (string, error)
}

type Request struct {
	Message string
	// AugmentPrompt wraps the message in the portfolio prompt before it is
	// sent upstream.
	AugmentPrompt bool
}

// Turn records one pass through the pipeline.
type Turn struct {
	ID             string
	Message        string
	Classification Classification
	Prompt         string
	UpstreamText   string
	Response       string
	ShortCircuited bool
	Latency        time.Duration
}

type Service struct {
	ctx    *portfolio.Context
	gen    Generator
	post   *PostProcessor
	logger *zap.Logger
}

func NewService(pc *portfolio.Context, gen Generator, rules RuleSet, log *zap.Logger) *Service {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Service{
		ctx:    pc,
		gen:    gen,
		post:   NewPostProcessor(pc, rules),
		logger: log.With(zap.String("component", "assistant")),
	}
}

func (s *Service) Context() *portfolio.Context {
	return s.ctx
}

// Ask runs classify, build, send and post-process in that order. Greetings
// and off-topic messages are answered without calling the generator.
func (s *Service) Ask(ctx context.Context, req Request) (*Turn, error) {
	start := time.Now()

	if strings.TrimSpace(req.Message) == "" {
		metrics.ChatRequests.WithLabelValues("invalid", "rejected").Inc()
		return nil, ErrInvalidInput
	}

	turn := &Turn{
		ID:      uuid.New().String(),
		Message: req.Message,
	}
	augmented := IsAugmented(req.Message, s.ctx)

	switch {
	case DetectGreeting(req.Message):
		turn.Classification = Greeting
		turn.Response = GreetingReply(s.ctx)
		turn.ShortCircuited = true
	case !augmented && !IsPortfolioRelated(req.Message):
		turn.Classification = OffTopic
		turn.Response = OffTopicReply(s.ctx)
		turn.ShortCircuited = true
	default:
		turn.Classification = OnTopic
	}

	if turn.ShortCircuited {
		return s.finish(turn, start, "short_circuit"), nil
	}

	turn.Prompt = req.Message
	if req.AugmentPrompt && !augmented {
		turn.Prompt = BuildPrompt(req.Message, s.ctx)
	}

	text, err := s.gen.Send(ctx, turn.Prompt)
	if err != nil {
		status, _ := Outcome(err)
		metrics.ChatRequests.WithLabelValues(turn.Classification.String(), "error_"+strconv.Itoa(status)).Inc()
		s.logger.Error("Chat turn failed",
			zap.String("turn_id", turn.ID),
			zap.Int("status", status),
			zap.Error(err),
		)
		return nil, err
	}

	turn.UpstreamText = text
	turn.Response = s.post.Process(text)

	return s.finish(turn, start, "answered"), nil
}

func (s *Service) finish(turn *Turn, start time.Time, outcome string) *Turn {
	turn.Latency = time.Since(start)

	class := turn.Classification.String()
	metrics.ChatRequests.WithLabelValues(class, outcome).Inc()
	metrics.ChatDuration.WithLabelValues(class).Observe(turn.Latency.Seconds())

	s.logger.Info("Chat turn completed",
		zap.String("turn_id", turn.ID),
		zap.String("classification", class),
		zap.Bool("short_circuit", turn.ShortCircuited),
		zap.Duration("latency", turn.Latency),
	)
	return turn
}

const (
	msgInvalidInput = "Invalid message input"
	msgRateLimited  = "Rate limit exceeded, please try again later."
	msgUpstreamDown = "Internal server error from the assistant provider. Please try again later."
	msgGeneric      = "Unable to get a response from the assistant. "
)

// Outcome maps a pipeline error to the HTTP status and message shown to the
// client.
func Outcome(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest, msgInvalidInput
	case llm.IsRateLimited(err):
		// Includes a retry budget exhausted on 429.
		return http.StatusTooManyRequests, msgRateLimited
	case llm.IsServerError(err):
		return http.StatusInternalServerError, msgUpstreamDown
	default:
		return http.StatusInternalServerError, msgGeneric + err.Error()
	}
}
