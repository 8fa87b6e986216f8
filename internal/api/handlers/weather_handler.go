package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/portfolio-bff/backend/internal/weather"
	"github.com/portfolio-bff/backend/pkg/logger"
)

type WeatherHandler struct {
	weather *weather.Service
}

func NewWeatherHandler(svc *weather.Service) *WeatherHandler {
	return &WeatherHandler{weather: svc}
}

func (h *WeatherHandler) Current(c *fiber.Ctx) error {
	return h.serve(c, h.weather.Current, "Failed to fetch weather data")
}

func (h *WeatherHandler) Forecast(c *fiber.Ctx) error {
	return h.serve(c, h.weather.Forecast, "Failed to fetch forecast data")
}

type weatherLookup func(ctx context.Context, lat, lon string) (json.RawMessage, error)

func (h *WeatherHandler) serve(c *fiber.Ctx, lookup weatherLookup, failure string) error {
	body, err := lookup(c.UserContext(), c.Query("lat"), c.Query("lon"))
	switch {
	case err == nil:
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(body)
	case errors.Is(err, weather.ErrMissingCoordinates):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Latitude and longitude are required"})
	case errors.Is(err, weather.ErrInvalidCoordinates):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Latitude and longitude must be valid coordinates"})
	default:
		logger.Error(failure, zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": failure, "message": err.Error()})
	}
}
