package handlers

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/portfolio-bff/backend/internal/assistant"
	"github.com/portfolio-bff/backend/pkg/logger"
)

const (
	wsTurnTimeout = 2 * time.Minute
	clientIPLocal = "clientIP"
)

// TurnLimiter charges one token per chat turn for a client key.
type TurnLimiter interface {
	Allow(key string) bool
	Message() string
}

type WebSocketHandler struct {
	assistant *assistant.Service
	limiter   TurnLimiter
}

// NewWebSocketHandler builds the streaming chat handler. A nil limiter
// leaves turns unmetered.
func NewWebSocketHandler(svc *assistant.Service, limiter TurnLimiter) *WebSocketHandler {
	return &WebSocketHandler{assistant: svc, limiter: limiter}
}

// wsMessage fields are loosely typed so a frame with a non-text message is
// answered with an error frame instead of ending the socket.
type wsMessage struct {
	Type                string `json:"type"`
	Message             any    `json:"message"`
	IsPortfolioQuestion any    `json:"isPortfolioQuestion"`
}

// Upgrade rejects plain HTTP requests and records the client address for
// per-turn rate limiting.
func (h *WebSocketHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals(clientIPLocal, c.IP())
	return c.Next()
}

// HandleConnection answers chat frames on one socket until the client
// disconnects. Each answer is streamed as a status frame, word chunks and a
// complete frame.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	clientIP, _ := c.Locals(clientIPLocal).(string)

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("WebSocket read ended", zap.Error(err))
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			_, text := assistant.Outcome(assistant.ErrInvalidInput)
			if err := h.sendError(c, text); err != nil {
				return
			}
			continue
		}

		if msg.Type != "chat" {
			if err := h.sendError(c, "Unsupported message type"); err != nil {
				return
			}
			continue
		}

		if h.limiter != nil && !h.limiter.Allow(clientIP) {
			logger.Warn("WebSocket chat rate limit exceeded", zap.String("ip", clientIP))
			if err := h.sendError(c, h.limiter.Message()); err != nil {
				return
			}
			continue
		}

		if err := h.streamResponse(c, msg); err != nil {
			logger.Error("Failed to stream response", zap.Error(err))
			return
		}
	}
}

func (h *WebSocketHandler) streamResponse(c *websocket.Conn, msg wsMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), wsTurnTimeout)
	defer cancel()

	if err := h.send(c, map[string]any{"type": "status", "content": "Processing message..."}); err != nil {
		return err
	}

	// A non-text message becomes empty and is rejected as invalid input.
	text, _ := msg.Message.(string)
	augment, _ := msg.IsPortfolioQuestion.(bool)

	turn, err := h.assistant.Ask(ctx, assistant.Request{
		Message:       text,
		AugmentPrompt: augment,
	})
	if err != nil {
		_, text := assistant.Outcome(err)
		return h.sendError(c, text)
	}

	words := splitIntoWords(turn.Response)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 && word != "\n" {
			chunk += " "
		}
		if err := h.send(c, map[string]any{"type": "chunk", "content": chunk}); err != nil {
			return err
		}
	}

	return h.send(c, map[string]any{
		"type":           "complete",
		"message_id":     turn.ID,
		"classification": turn.Classification.String(),
		"response":       turn.Response,
		"latency_ms":     turn.Latency.Milliseconds(),
	})
}

func (h *WebSocketHandler) send(c *websocket.Conn, frame map[string]any) error {
	return c.WriteJSON(frame)
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) error {
	return c.WriteJSON(map[string]any{
		"type":  "error",
		"error": errorMsg,
	})
}

// splitIntoWords splits on spaces and keeps newlines as their own tokens.
func splitIntoWords(text string) []string {
	var words []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}

	for _, r := range text {
		switch r {
		case ' ':
			flush()
		case '\n':
			flush()
			words = append(words, "\n")
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return words
}
