package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/portfolio-bff/backend/internal/assistant"
)

type ChatHandler struct {
	assistant *assistant.Service
}

func NewChatHandler(svc *assistant.Service) *ChatHandler {
	return &ChatHandler{assistant: svc}
}

type chatRequest struct {
	Message             string `json:"message"`
	IsPortfolioQuestion bool   `json:"isPortfolioQuestion"`
}

func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		status, msg := assistant.Outcome(assistant.ErrInvalidInput)
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}

	turn, err := h.assistant.Ask(c.UserContext(), assistant.Request{
		Message:       req.Message,
		AugmentPrompt: req.IsPortfolioQuestion,
	})
	if err != nil {
		status, msg := assistant.Outcome(err)
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}

	return c.JSON(fiber.Map{"response": turn.Response})
}
