package validation

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var xssPattern = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)

type Config struct {
	MaxFieldLength      int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

// Middleware rejects write requests with an unexpected content type, a
// malformed JSON body, oversized string fields or script injection.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxFieldLength == 0 {
		cfg.MaxFieldLength = 5000
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json", "multipart/form-data", "application/x-www-form-urlencoded"}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch:
		default:
			return c.Next()
		}

		body := c.Body()
		if len(body) == 0 {
			return c.Next()
		}

		contentType := strings.ToLower(c.Get(fiber.HeaderContentType))
		if contentType != "" && !allowed(contentType, cfg.AllowedContentTypes) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"error": "Unsupported content type",
			})
		}

		if !strings.HasPrefix(contentType, fiber.MIMEApplicationJSON) {
			return c.Next()
		}

		var fields map[string]any
		if err := json.Unmarshal(body, &fields); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid JSON format",
			})
		}

		for name, v := range fields {
			s, ok := v.(string)
			if !ok {
				continue
			}
			if len(s) > cfg.MaxFieldLength {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Field " + name + " exceeds maximum length",
				})
			}
			if containsXSS(s) {
				cfg.Logger.Warn("Potential XSS attempt",
					zap.String("ip", c.IP()),
					zap.String("path", c.Path()),
					zap.String("field", name),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid request content",
				})
			}
		}

		return c.Next()
	}
}

func allowed(contentType string, types []string) bool {
	for _, t := range types {
		if strings.Contains(contentType, t) {
			return true
		}
	}
	return false
}

func containsXSS(input string) bool {
	return xssPattern.MatchString(input)
}
