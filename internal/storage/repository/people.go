package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/portfolio-bff/backend/internal/storage/executor"
	"github.com/portfolio-bff/backend/internal/storage/models"
)

var ErrInvalidGuestName = errors.New("invalid guest name")

var guestNamePattern = regexp.MustCompile(`^[A-Za-z\s]+$`)

// ValidateGuestName returns a message for every rule the name breaks.
func ValidateGuestName(name string) []string {
	var problems []string
	if strings.TrimSpace(name) == "" {
		problems = append(problems, "Name is required")
	}
	if !guestNamePattern.MatchString(name) {
		problems = append(problems, "Name must contain only letters and spaces")
	}
	return problems
}

func (r *Repository) CreateGuest(ctx context.Context, name string) (int64, error) {
	if problems := ValidateGuestName(name); len(problems) > 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidGuestName, strings.Join(problems, "; "))
	}

	rows, err := r.query(ctx,
		`INSERT INTO guests (name, created_at) VALUES (?, ?) RETURNING id`,
		name, r.now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save guest: %w", err)
	}
	return firstID(rows)
}

func (r *Repository) CreateContactMessage(ctx context.Context, msg models.ContactMessage) (int64, error) {
	rows, err := r.query(ctx,
		`INSERT INTO contact_messages (name, email, message, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
		msg.Name, msg.Email, msg.Message, r.now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save contact message: %w", err)
	}
	return firstID(rows)
}

// CreateUser stores a user whose password is already hashed. A taken email
// yields ErrDuplicate.
func (r *Repository) CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	now := r.now()
	rows, err := r.query(ctx,
		`INSERT INTO users (name, email, password_hash, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
		name, strings.ToLower(email), passwordHash, now.Unix(),
	)
	if err != nil {
		if IsDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := firstID(rows)
	if err != nil {
		return nil, err
	}

	r.logger.Info("User registered", zap.Int64("user_id", id))
	return &models.User{
		ID:           id,
		Name:         name,
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}, nil
}

func (r *Repository) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	rows, err := r.query(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?`,
		strings.ToLower(email),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return userFromRow(rows[0]), nil
}

func userFromRow(row executor.Row) *models.User {
	return &models.User{
		ID:           row.Int64("id"),
		Name:         row.String("name"),
		Email:        row.String("email"),
		PasswordHash: row.String("password_hash"),
		CreatedAt:    row.Time("created_at"),
	}
}
