package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/portfolio-bff/backend/internal/storage/executor"
	"github.com/portfolio-bff/backend/internal/storage/models"
	"github.com/portfolio-bff/backend/pkg/utils"
)

var (
	ErrMissingReviewFields = errors.New("reviewer_name, category, rating, and review_text are required")
	ErrInvalidRating       = errors.New("rating must be between 1 and 5")
)

// Shown on the stats endpoint alongside live counts.
const totalStudents = 580

const selectReviews = `
	SELECT r.id, r.reviewer_name, r.reviewer_role, r.program_id, r.category, r.rating,
	       r.review_text, r.skills, r.avatar, r.created_at, r.updated_at, p.program_name
	FROM reviews r
	LEFT JOIN programs p ON r.program_id = p.id`

func ValidateReview(in models.ReviewInput) error {
	if strings.TrimSpace(in.ReviewerName) == "" || strings.TrimSpace(in.Category) == "" ||
		in.Rating == 0 || strings.TrimSpace(in.ReviewText) == "" {
		return ErrMissingReviewFields
	}
	if in.Rating < 1 || in.Rating > 5 {
		return ErrInvalidRating
	}
	return nil
}

// ListReviews returns reviews grouped by known category, newest first.
// An empty category or "all" returns every category.
func (r *Repository) ListReviews(ctx context.Context, category string) (map[string][]models.ReviewView, error) {
	stmt := selectReviews
	var args []any
	if category != "" && category != "all" {
		stmt += ` WHERE r.category = ?`
		args = append(args, category)
	}
	stmt += ` ORDER BY r.created_at DESC, r.id DESC`

	rows, err := r.query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	grouped := make(map[string][]models.ReviewView, len(models.ReviewCategories))
	for _, c := range models.ReviewCategories {
		grouped[c] = []models.ReviewView{}
	}

	for _, row := range rows {
		review := r.reviewFromRow(row)
		if _, ok := grouped[review.Category]; ok {
			grouped[review.Category] = append(grouped[review.Category], ViewOf(review))
		}
	}
	return grouped, nil
}

func (r *Repository) ReviewsByCategory(ctx context.Context, category string, limit, offset int) ([]models.ReviewView, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.query(ctx,
		selectReviews+` WHERE r.category = ? ORDER BY r.created_at DESC, r.id DESC LIMIT ? OFFSET ?`,
		category, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s reviews: %w", category, err)
	}

	views := make([]models.ReviewView, 0, len(rows))
	for _, row := range rows {
		views = append(views, ViewOf(r.reviewFromRow(row)))
	}
	return views, nil
}

func (r *Repository) CreateReview(ctx context.Context, in models.ReviewInput) (int64, error) {
	if err := ValidateReview(in); err != nil {
		return 0, err
	}

	rows, err := r.query(ctx, `
		INSERT INTO reviews (
			reviewer_name, reviewer_role, program_id, category, rating,
			review_text, skills, avatar, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		in.ReviewerName, in.ReviewerRole, in.ProgramID, in.Category, in.Rating,
		in.ReviewText, encodeSkills(r.logger, in.Skills), utils.Initials(in.ReviewerName), r.now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert review: %w", err)
	}

	id, err := firstID(rows)
	if err != nil {
		return 0, fmt.Errorf("failed to insert review: %w", err)
	}

	r.logger.Info("Review added", zap.Int64("review_id", id), zap.String("category", in.Category))
	return id, nil
}

func (r *Repository) UpdateReview(ctx context.Context, id int64, in models.ReviewInput) error {
	if err := ValidateReview(in); err != nil {
		return err
	}

	rows, err := r.query(ctx, `
		UPDATE reviews SET
			reviewer_name = ?, reviewer_role = ?, program_id = ?,
			category = ?, rating = ?, review_text = ?, skills = ?,
			updated_at = ?
		WHERE id = ?
		RETURNING id`,
		in.ReviewerName, in.ReviewerRole, in.ProgramID,
		in.Category, in.Rating, in.ReviewText, encodeSkills(r.logger, in.Skills),
		r.now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	_, err = firstID(rows)
	return err
}

func (r *Repository) DeleteReview(ctx context.Context, id int64) error {
	rows, err := r.query(ctx, `DELETE FROM reviews WHERE id = ? RETURNING id`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	_, err = firstID(rows)
	return err
}

func (r *Repository) ReviewStats(ctx context.Context) (*models.ReviewStats, error) {
	totals, err := r.query(ctx, `SELECT COUNT(*) AS total_reviews, AVG(rating) AS average_rating FROM reviews`)
	if err != nil {
		return nil, fmt.Errorf("failed to read review stats: %w", err)
	}

	perCategory, err := r.query(ctx, `
		SELECT category, COUNT(*) AS count, AVG(rating) AS avg_rating
		FROM reviews
		GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to read category stats: %w", err)
	}

	stats := &models.ReviewStats{
		AverageRating: "5.0",
		TotalStudents: totalStudents,
		CategoryStats: make(map[string]models.CategoryStat, len(perCategory)),
	}
	if len(totals) > 0 {
		stats.TotalReviews = totals[0].Int64("total_reviews")
		if totals[0]["average_rating"] != nil {
			stats.AverageRating = fmt.Sprintf("%.1f", totals[0].Float64("average_rating"))
		}
	}
	for _, row := range perCategory {
		stats.CategoryStats[row.String("category")] = models.CategoryStat{
			Count:     row.Int64("count"),
			AvgRating: fmt.Sprintf("%.1f", row.Float64("avg_rating")),
		}
	}
	return stats, nil
}

func (r *Repository) reviewFromRow(row executor.Row) models.Review {
	review := models.Review{
		ID:           row.Int64("id"),
		ReviewerName: row.String("reviewer_name"),
		ReviewerRole: row.String("reviewer_role"),
		ProgramName:  row.String("program_name"),
		Category:     row.String("category"),
		Rating:       int(row.Int64("rating")),
		ReviewText:   row.String("review_text"),
		Skills:       decodeSkills(r.logger, row.Int64("id"), row.String("skills")),
		Avatar:       row.String("avatar"),
		CreatedAt:    row.Time("created_at"),
	}
	if row["program_id"] != nil {
		pid := row.Int64("program_id")
		review.ProgramID = &pid
	}
	if row["updated_at"] != nil {
		t := row.Time("updated_at")
		review.UpdatedAt = &t
	}
	return review
}

// ViewOf renders a review for the frontend.
func ViewOf(review models.Review) models.ReviewView {
	avatar := review.Avatar
	if avatar == "" {
		avatar = utils.Initials(review.ReviewerName)
	}
	skills := review.Skills
	if skills == nil {
		skills = []string{}
	}

	return models.ReviewView{
		ID:      review.ID,
		Name:    review.ReviewerName,
		Role:    review.ReviewerRole,
		Program: review.ProgramName,
		Rating:  review.Rating,
		Date:    utils.FormatDate(review.CreatedAt),
		Review:  review.ReviewText,
		Avatar:  avatar,
		Skills:  skills,
	}
}

func encodeSkills(log *zap.Logger, skills []string) any {
	if len(skills) == 0 {
		return nil
	}
	b, err := json.Marshal(skills)
	if err != nil {
		log.Warn("Failed to encode review skills", zap.Error(err))
		return nil
	}
	return string(b)
}

// decodeSkills tolerates legacy rows whose skills column is not a JSON
// array of strings.
func decodeSkills(log *zap.Logger, id int64, raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}

	var skills []string
	if err := json.Unmarshal([]byte(raw), &skills); err != nil || skills == nil {
		log.Debug("Invalid skills JSON on review", zap.Int64("review_id", id), zap.String("skills", raw))
		return []string{}
	}
	return skills
}
