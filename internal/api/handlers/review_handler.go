package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/portfolio-bff/backend/internal/storage/models"
	"github.com/portfolio-bff/backend/internal/storage/repository"
	"github.com/portfolio-bff/backend/pkg/logger"
)

type ReviewHandler struct {
	repo *repository.Repository
}

func NewReviewHandler(repo *repository.Repository) *ReviewHandler {
	return &ReviewHandler{repo: repo}
}

func reviewError(c *fiber.Ctx, status int, errMsg, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": errMsg, "message": message})
}

func (h *ReviewHandler) List(c *fiber.Ctx) error {
	grouped, err := h.repo.ListReviews(c.UserContext(), c.Query("category"))
	if err != nil {
		logger.Error("Failed to fetch reviews", zap.Error(err))
		return reviewError(c, fiber.StatusInternalServerError, "Internal server error", "Failed to fetch reviews")
	}
	return c.JSON(grouped)
}

func (h *ReviewHandler) ByCategory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	reviews, err := h.repo.ReviewsByCategory(c.UserContext(), c.Params("category"), limit, offset)
	if err != nil {
		logger.Error("Failed to fetch category reviews", zap.String("category", c.Params("category")), zap.Error(err))
		return reviewError(c, fiber.StatusInternalServerError, "Internal server error", "Failed to fetch category reviews")
	}
	return c.JSON(reviews)
}

func (h *ReviewHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.repo.ReviewStats(c.UserContext())
	if err != nil {
		logger.Error("Failed to fetch review statistics", zap.Error(err))
		return reviewError(c, fiber.StatusInternalServerError, "Internal server error", "Failed to fetch review statistics")
	}
	return c.JSON(stats)
}

func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	var in models.ReviewInput
	if err := c.BodyParser(&in); err != nil {
		return invalidReview(c, repository.ErrMissingReviewFields)
	}
	if err := repository.ValidateReview(in); err != nil {
		return invalidReview(c, err)
	}

	id, err := h.repo.CreateReview(c.UserContext(), in)
	if err != nil {
		logger.Error("Failed to add review", zap.Error(err))
		return reviewError(c, fiber.StatusInternalServerError, "Internal server error", "Failed to add review")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":  true,
		"message":  "Review added successfully",
		"reviewId": id,
	})
}

func (h *ReviewHandler) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return reviewNotFound(c)
	}

	var in models.ReviewInput
	if err := c.BodyParser(&in); err != nil {
		return invalidReview(c, repository.ErrMissingReviewFields)
	}
	if err := repository.ValidateReview(in); err != nil {
		return invalidReview(c, err)
	}

	if err := h.repo.UpdateReview(c.UserContext(), int64(id), in); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return reviewNotFound(c)
		}
		logger.Error("Failed to update review", zap.Int("id", id), zap.Error(err))
		return reviewError(c, fiber.StatusInternalServerError, "Internal server error", "Failed to update review")
	}

	return c.JSON(fiber.Map{"success": true, "message": "Review updated successfully"})
}

func (h *ReviewHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return reviewNotFound(c)
	}

	if err := h.repo.DeleteReview(c.UserContext(), int64(id)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return reviewNotFound(c)
		}
		logger.Error("Failed to delete review", zap.Int("id", id), zap.Error(err))
		return reviewError(c, fiber.StatusInternalServerError, "Internal server error", "Failed to delete review")
	}

	return c.JSON(fiber.Map{"success": true, "message": "Review deleted successfully"})
}

func invalidReview(c *fiber.Ctx, err error) error {
	if errors.Is(err, repository.ErrInvalidRating) {
		return reviewError(c, fiber.StatusBadRequest, "Invalid rating", "Rating must be between 1 and 5")
	}
	return reviewError(c, fiber.StatusBadRequest, "Missing required fields",
		"reviewer_name, category, rating, and review_text are required")
}

func reviewNotFound(c *fiber.Ctx) error {
	return reviewError(c, fiber.StatusNotFound, "Review not found", "No review found with the provided ID")
}
