package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/portfolio-bff/backend/internal/auth"
	"github.com/portfolio-bff/backend/internal/storage/repository"
	"github.com/portfolio-bff/backend/pkg/logger"
)

const claimsKey = "claims"

type AuthHandler struct {
	repo   *repository.Repository
	issuer *auth.Issuer
}

func NewAuthHandler(repo *repository.Repository, issuer *auth.Issuer) *AuthHandler {
	return &AuthHandler{repo: repo, issuer: issuer}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var reg auth.Registration
	_ = c.BodyParser(&reg)
	reg.Email = strings.ToLower(strings.TrimSpace(reg.Email))

	if errs := reg.Validate(); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}

	ctx := c.UserContext()
	_, err := h.repo.UserByEmail(ctx, reg.Email)
	switch {
	case err == nil:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "User already exists"})
	case !errors.Is(err, repository.ErrNotFound):
		logger.Error("Failed to look up user", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Database error"})
	}

	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		logger.Error("Failed to hash password", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Error saving user"})
	}

	if _, err := h.repo.CreateUser(ctx, reg.Name, reg.Email, hash); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "User already exists"})
		}
		logger.Error("Failed to save user", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Error saving user"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "User registered successfully"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	_ = c.BodyParser(&req)

	user, err := h.repo.UserByEmail(c.UserContext(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid email or password"})
		}
		logger.Error("Failed to look up user", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Database error"})
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid email or password"})
	}

	token, err := h.issuer.Issue(user.ID, user.Email)
	if err != nil {
		logger.Error("Failed to issue token", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Error signing token"})
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"user":    fiber.Map{"id": user.ID, "name": user.Name, "email": user.Email},
	})
}

// RequireToken rejects requests without a valid bearer token and stores the
// verified claims in Locals.
func (h *AuthHandler) RequireToken(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Unauthorized"})
	}

	claims, err := h.issuer.Verify(token)
	if err != nil {
		logger.Debug("Rejected token", zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Unauthorized"})
	}

	c.Locals(claimsKey, claims)
	return c.Next()
}

func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	claims, ok := c.Locals(claimsKey).(*auth.Claims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Unauthorized"})
	}
	return c.JSON(fiber.Map{"user": fiber.Map{"id": claims.ID, "email": claims.Email}})
}
