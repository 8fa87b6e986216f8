package repository

import (
	"context"
	"fmt"

	"github.com/portfolio-bff/backend/internal/storage/executor"
	"github.com/portfolio-bff/backend/internal/storage/models"
)

const selectReferences = `
	SELECT id, name, email, job_title, company, relationship, about_me,
	       image_path, signature_path, lor_path, created_at
	FROM reference_submissions`

func (r *Repository) CreateReference(ctx context.Context, ref models.Reference) (int64, error) {
	rows, err := r.query(ctx, `
		INSERT INTO reference_submissions
			(name, email, job_title, company, relationship, about_me, image_path, signature_path, lor_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		ref.Name, ref.Email, ref.JobTitle, ref.Company, ref.Relationship, ref.AboutMe,
		ref.ImagePath, ref.SignaturePath, ref.LORPath, r.now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save reference: %w", err)
	}
	return firstID(rows)
}

func (r *Repository) ListReferences(ctx context.Context) ([]models.Reference, error) {
	rows, err := r.query(ctx, selectReferences+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}

	refs := make([]models.Reference, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, referenceFromRow(row))
	}
	return refs, nil
}

func (r *Repository) GetReference(ctx context.Context, id int64) (*models.Reference, error) {
	rows, err := r.query(ctx, selectReferences+` WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get reference: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	ref := referenceFromRow(rows[0])
	return &ref, nil
}

// UpdateReference overwrites the text fields of a reference. Nil file paths
// keep whatever is stored.
func (r *Repository) UpdateReference(ctx context.Context, id int64, ref models.Reference) error {
	rows, err := r.query(ctx, `
		UPDATE reference_submissions
		SET name = ?, email = ?, job_title = ?, company = ?, relationship = ?, about_me = ?,
		    image_path = COALESCE(?, image_path),
		    signature_path = COALESCE(?, signature_path),
		    lor_path = COALESCE(?, lor_path)
		WHERE id = ?
		RETURNING id`,
		ref.Name, ref.Email, ref.JobTitle, ref.Company, ref.Relationship, ref.AboutMe,
		ref.ImagePath, ref.SignaturePath, ref.LORPath, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update reference: %w", err)
	}
	_, err = firstID(rows)
	return err
}

func (r *Repository) DeleteReference(ctx context.Context, id int64) error {
	rows, err := r.query(ctx, `DELETE FROM reference_submissions WHERE id = ? RETURNING id`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reference: %w", err)
	}
	_, err = firstID(rows)
	return err
}

func referenceFromRow(row executor.Row) models.Reference {
	return models.Reference{
		ID:            row.Int64("id"),
		Name:          row.String("name"),
		Email:         row.String("email"),
		JobTitle:      row.String("job_title"),
		Company:       row.String("company"),
		Relationship:  row.String("relationship"),
		AboutMe:       row.String("about_me"),
		ImagePath:     row.NullString("image_path"),
		SignaturePath: row.NullString("signature_path"),
		LORPath:       row.NullString("lor_path"),
		CreatedAt:     row.Int64("created_at"),
	}
}
