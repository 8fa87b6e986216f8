package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/portfolio-bff/backend/internal/storage/executor"
	"github.com/portfolio-bff/backend/internal/storage/models"
)

var ErrEmptyComment = errors.New("comment cannot be empty")

func (r *Repository) LikeProject(ctx context.Context, projectID string) (*models.ProjectFeedback, error) {
	rows, err := r.query(ctx, `
		INSERT INTO project_feedback (id, like_count) VALUES (?, 1)
		ON CONFLICT (id) DO UPDATE SET like_count = project_feedback.like_count + 1
		RETURNING id, like_count, comments`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to like project: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return feedbackFromRow(rows[0]), nil
}

// CommentProject appends comment to the project's newline separated
// comment log.
func (r *Repository) CommentProject(ctx context.Context, projectID, comment string) (*models.ProjectFeedback, error) {
	if strings.TrimSpace(comment) == "" {
		return nil, ErrEmptyComment
	}

	rows, err := r.query(ctx, `
		INSERT INTO project_feedback (id, comments) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET comments = CASE
			WHEN project_feedback.comments = '' THEN excluded.comments
			ELSE project_feedback.comments || CAST(? AS TEXT) || excluded.comments
		END
		RETURNING id, like_count, comments`,
		projectID, comment, "\n",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to comment on project: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return feedbackFromRow(rows[0]), nil
}

func (r *Repository) ListUKCities(ctx context.Context) ([]models.UKCity, error) {
	rows, err := r.query(ctx, `SELECT id, name, county, latitude, longitude FROM uk_cities ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}

	cities := make([]models.UKCity, 0, len(rows))
	for _, row := range rows {
		cities = append(cities, models.UKCity{
			ID:        row.Int64("id"),
			Name:      row.String("name"),
			County:    row.String("county"),
			Latitude:  row.Float64("latitude"),
			Longitude: row.Float64("longitude"),
		})
	}
	return cities, nil
}

func (r *Repository) AddUKCity(ctx context.Context, city models.UKCity) (int64, error) {
	rows, err := r.query(ctx,
		`INSERT INTO uk_cities (name, county, latitude, longitude) VALUES (?, ?, ?, ?) RETURNING id`,
		city.Name, city.County, city.Latitude, city.Longitude,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to add city: %w", err)
	}
	return firstID(rows)
}

// Ping runs the trivial arithmetic query the status endpoint reports.
func (r *Repository) Ping(ctx context.Context) (int64, error) {
	rows, err := r.query(ctx, `SELECT 1 + 1 AS solution`)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, ErrNotFound
	}
	return rows[0].Int64("solution"), nil
}

func feedbackFromRow(row executor.Row) *models.ProjectFeedback {
	return &models.ProjectFeedback{
		ProjectID: row.String("id"),
		LikeCount: row.Int64("like_count"),
		Comments:  row.String("comments"),
	}
}
