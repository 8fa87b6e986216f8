package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/portfolio-bff/backend/internal/storage/repository"
	"github.com/portfolio-bff/backend/pkg/logger"
)

// ProjectHandler serves project likes and comments and the UK city list.
type ProjectHandler struct {
	repo *repository.Repository
}

func NewProjectHandler(repo *repository.Repository) *ProjectHandler {
	return &ProjectHandler{repo: repo}
}

func (h *ProjectHandler) Like(c *fiber.Ctx) error {
	feedback, err := h.repo.LikeProject(c.UserContext(), c.Params("id"))
	if err != nil {
		logger.Error("Failed to like project", zap.String("project", c.Params("id")), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Database error"})
	}
	return c.JSON(fiber.Map{"message": "Project liked successfully", "likes": feedback.LikeCount})
}

type commentRequest struct {
	Comment string `json:"comment" form:"comment"`
}

func (h *ProjectHandler) Comment(c *fiber.Ctx) error {
	var req commentRequest
	_ = c.BodyParser(&req)

	if _, err := h.repo.CommentProject(c.UserContext(), c.Params("id"), req.Comment); err != nil {
		if errors.Is(err, repository.ErrEmptyComment) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Comment cannot be empty"})
		}
		logger.Error("Failed to comment on project", zap.String("project", c.Params("id")), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Database error"})
	}
	return c.JSON(fiber.Map{"message": "Comment added successfully"})
}

func (h *ProjectHandler) UKCities(c *fiber.Ctx) error {
	cities, err := h.repo.ListUKCities(c.UserContext())
	if err != nil {
		logger.Error("Database query error", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database query error"})
	}
	return c.JSON(cities)
}
