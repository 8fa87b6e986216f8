package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/portfolio-bff/backend/internal/auth"
	"github.com/portfolio-bff/backend/internal/notify"
	"github.com/portfolio-bff/backend/internal/storage/models"
	"github.com/portfolio-bff/backend/internal/storage/repository"
	"github.com/portfolio-bff/backend/pkg/logger"
)

// SubmissionHandler serves the guest book, the contact form and references.
type SubmissionHandler struct {
	repo   *repository.Repository
	mailer notify.Mailer
	owner  string
}

func NewSubmissionHandler(repo *repository.Repository, mailer notify.Mailer, ownerEmail string) *SubmissionHandler {
	return &SubmissionHandler{repo: repo, mailer: mailer, owner: ownerEmail}
}

type guestRequest struct {
	Name string `json:"name" form:"name"`
}

func (h *SubmissionHandler) CreateGuest(c *fiber.Ctx) error {
	var req guestRequest
	_ = c.BodyParser(&req)

	if problems := repository.ValidateGuestName(req.Name); len(problems) > 0 {
		errs := make([]auth.FieldError, 0, len(problems))
		for _, p := range problems {
			errs = append(errs, auth.FieldError{Field: "name", Message: p})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}

	if _, err := h.repo.CreateGuest(c.UserContext(), req.Name); err != nil {
		logger.Error("Error saving guest name", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Error saving guest name.",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Guest name saved successfully!"})
}

// Contact mails the site owner first and only then stores the message.
func (h *SubmissionHandler) Contact(c *fiber.Ctx) error {
	var msg models.ContactMessage
	if err := c.BodyParser(&msg); err != nil || strings.TrimSpace(msg.Name) == "" ||
		!auth.ValidEmail(msg.Email) || strings.TrimSpace(msg.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Name, a valid email and a message are required"})
	}

	if err := h.mailer.Send(c.UserContext(), notify.ContactMessage(h.owner, msg.Name, msg.Email, msg.Message)); err != nil {
		logger.Error("Error sending contact email", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Error sending email"})
	}

	if _, err := h.repo.CreateContactMessage(c.UserContext(), msg); err != nil {
		logger.Error("Error saving contact message", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Message sent, but error saving to database"})
	}

	return c.JSON(fiber.Map{"message": "Message sent successfully"})
}

type referenceRequest struct {
	Name          string  `json:"name" form:"name"`
	Email         string  `json:"email" form:"email"`
	JobTitle      string  `json:"jobTitle" form:"jobTitle"`
	Company       string  `json:"company" form:"company"`
	Relationship  string  `json:"relationship" form:"relationship"`
	AboutMe       string  `json:"aboutMe" form:"aboutMe"`
	ImagePath     *string `json:"imagePath" form:"imagePath"`
	SignaturePath *string `json:"signaturePath" form:"signaturePath"`
	LORPath       *string `json:"lorPath" form:"lorPath"`
}

func (r referenceRequest) toModel() models.Reference {
	return models.Reference{
		Name:          strings.TrimSpace(r.Name),
		Email:         strings.TrimSpace(r.Email),
		JobTitle:      r.JobTitle,
		Company:       r.Company,
		Relationship:  r.Relationship,
		AboutMe:       r.AboutMe,
		ImagePath:     blankToNil(r.ImagePath),
		SignaturePath: blankToNil(r.SignaturePath),
		LORPath:       blankToNil(r.LORPath),
	}
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

func (h *SubmissionHandler) parseReference(c *fiber.Ctx) (models.Reference, bool) {
	var req referenceRequest
	if err := c.BodyParser(&req); err != nil {
		return models.Reference{}, false
	}
	ref := req.toModel()
	if ref.Name == "" || !auth.ValidEmail(ref.Email) {
		return models.Reference{}, false
	}
	return ref, true
}

// CreateReference stores the reference and then thanks the submitter. A
// failed confirmation mail does not fail the request.
func (h *SubmissionHandler) CreateReference(c *fiber.Ctx) error {
	ref, ok := h.parseReference(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Name and a valid email are required"})
	}

	id, err := h.repo.CreateReference(c.UserContext(), ref)
	if err != nil {
		logger.Error("Error saving reference", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to submit reference. Please try again later.",
		})
	}

	if err := h.mailer.Send(c.UserContext(), notify.ReferenceConfirmation(ref.Name, ref.Email)); err != nil {
		logger.Warn("Failed to send reference confirmation", zap.Int64("id", id), zap.Error(err))
	}

	return c.JSON(fiber.Map{"message": "Reference submitted successfully!"})
}

func (h *SubmissionHandler) ListReferences(c *fiber.Ctx) error {
	refs, err := h.repo.ListReferences(c.UserContext())
	if err != nil {
		logger.Error("Error fetching references", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch references"})
	}
	return c.JSON(refs)
}

func (h *SubmissionHandler) GetReference(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Reference not found"})
	}

	ref, err := h.repo.GetReference(c.UserContext(), int64(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Reference not found"})
		}
		logger.Error("Error fetching reference", zap.Int("id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch reference"})
	}
	return c.JSON(ref)
}

func (h *SubmissionHandler) UpdateReference(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Reference not found"})
	}

	ref, ok := h.parseReference(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name and a valid email are required"})
	}

	if err := h.repo.UpdateReference(c.UserContext(), int64(id), ref); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Reference not found"})
		}
		logger.Error("Error updating reference", zap.Int("id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update reference"})
	}

	return c.JSON(fiber.Map{"message": "Reference updated successfully!"})
}

func (h *SubmissionHandler) DeleteReference(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Reference not found"})
	}

	if err := h.repo.DeleteReference(c.UserContext(), int64(id)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Reference not found"})
		}
		logger.Error("Error deleting reference", zap.Int("id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete reference"})
	}

	return c.JSON(fiber.Map{"message": "Reference deleted successfully!"})
}
