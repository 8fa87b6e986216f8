package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/portfolio-bff/backend/internal/storage/executor"
	"github.com/portfolio-bff/backend/internal/storage/models"
	"github.com/portfolio-bff/backend/pkg/utils"
)

func noSleep(context.Context, time.Duration) error { return nil }

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	exec := executor.New(executor.Config{
		Dialer: executor.SQLDialer("sqlite3", dsn, 1),
		Logger: zap.NewNop(),
		Sleep:  noSleep,
	})
	t.Cleanup(func() { exec.Close() })

	exec.Connect()
	require.Eventually(t, func() bool { return exec.State() == executor.StateConnected },
		2*time.Second, 5*time.Millisecond)

	repo := New(exec, SQLite)
	repo.logger = zap.NewNop()
	require.NoError(t, repo.InitSchema(context.Background()))
	return repo
}

func fixedClock(repo *Repository, start time.Time) {
	now := start
	repo.now = func() time.Time {
		now = now.Add(time.Hour)
		return now
	}
}

func TestRebind(t *testing.T) {
	stmt := `SELECT * FROM reviews WHERE category = ? LIMIT ? OFFSET ?`
	assert.Equal(t, stmt, Rebind(SQLite, stmt))
	assert.Equal(t, `SELECT * FROM reviews WHERE category = $1 LIMIT $2 OFFSET $3`, Rebind(Postgres, stmt))
	assert.Equal(t, `SELECT 1`, Rebind(Postgres, `SELECT 1`))
	assert.Equal(t, Postgres, DialectFor("pgx"))
	assert.Equal(t, SQLite, DialectFor("sqlite3"))
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	assert.NoError(t, repo.InitSchema(context.Background()))
}

func TestValidateReview(t *testing.T) {
	valid := models.ReviewInput{ReviewerName: "Ada", Category: "general", Rating: 5, ReviewText: "Great"}
	assert.NoError(t, ValidateReview(valid))

	missing := valid
	missing.ReviewText = " "
	assert.ErrorIs(t, ValidateReview(missing), ErrMissingReviewFields)

	outOfRange := valid
	outOfRange.Rating = 6
	assert.ErrorIs(t, ValidateReview(outOfRange), ErrInvalidRating)
	outOfRange.Rating = -1
	assert.ErrorIs(t, ValidateReview(outOfRange), ErrInvalidRating)
}

func TestReviews_Lifecycle(t *testing.T) {
	repo := newTestRepository(t)
	fixedClock(repo, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	first, err := repo.CreateReview(ctx, models.ReviewInput{
		ReviewerName: "ada lovelace",
		Category:     models.CategoryStack360,
		Rating:       5,
		ReviewText:   "Excellent mentor",
		Skills:       []string{"React", "Node.js"},
	})
	require.NoError(t, err)

	second, err := repo.CreateReview(ctx, models.ReviewInput{
		ReviewerName: "Grace Hopper",
		ReviewerRole: "Engineer",
		Category:     models.CategoryStack360,
		Rating:       4,
		ReviewText:   "Clear explanations",
	})
	require.NoError(t, err)

	_, err = repo.CreateReview(ctx, models.ReviewInput{
		ReviewerName: "Unknown Cat",
		Category:     "bootcamp",
		Rating:       3,
		ReviewText:   "Not grouped",
	})
	require.NoError(t, err)

	grouped, err := repo.ListReviews(ctx, "all")
	require.NoError(t, err)
	require.Len(t, grouped, 4)
	require.Len(t, grouped[models.CategoryStack360], 2)
	assert.Empty(t, grouped[models.CategoryGeneral])
	assert.NotContains(t, grouped, "bootcamp")

	newest := grouped[models.CategoryStack360][0]
	assert.Equal(t, second, newest.ID)
	assert.Equal(t, "Engineer", newest.Role)
	assert.Equal(t, "GH", newest.Avatar)
	assert.Equal(t, []string{}, newest.Skills)

	oldest := grouped[models.CategoryStack360][1]
	assert.Equal(t, first, oldest.ID)
	assert.Equal(t, "AL", oldest.Avatar)
	assert.Equal(t, []string{"React", "Node.js"}, oldest.Skills)
	assert.Equal(t, utils.FormatDate(time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC).Local()), oldest.Date)
	assert.Equal(t, "", oldest.Program)

	page, err := repo.ReviewsByCategory(ctx, models.CategoryStack360, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, first, page[0].ID)

	err = repo.UpdateReview(ctx, first, models.ReviewInput{
		ReviewerName: "Ada Lovelace",
		Category:     models.CategoryCore360,
		Rating:       3,
		ReviewText:   "Updated",
	})
	require.NoError(t, err)

	core, err := repo.ListReviews(ctx, models.CategoryCore360)
	require.NoError(t, err)
	require.Len(t, core[models.CategoryCore360], 1)
	assert.Equal(t, "Updated", core[models.CategoryCore360][0].Review)
	assert.Empty(t, core[models.CategoryStack360])

	require.NoError(t, repo.DeleteReview(ctx, second))
	assert.ErrorIs(t, repo.DeleteReview(ctx, second), ErrNotFound)
	assert.ErrorIs(t, repo.UpdateReview(ctx, 999, models.ReviewInput{
		ReviewerName: "X", Category: "general", Rating: 1, ReviewText: "y",
	}), ErrNotFound)
}

func TestReviews_ProgramAndLegacySkills(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	rows, err := repo.query(ctx, `INSERT INTO programs (program_name) VALUES (?) RETURNING id`, "Stack 360")
	require.NoError(t, err)
	programID := rows[0].Int64("id")

	_, err = repo.query(ctx, `
		INSERT INTO reviews (reviewer_name, category, rating, review_text, skills, avatar, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		"Legacy Row", models.CategoryGeneral, 4, "old", "React, Node", nil, 0)
	require.NoError(t, err)

	id, err := repo.CreateReview(ctx, models.ReviewInput{
		ReviewerName: "Linus",
		ProgramID:    &programID,
		Category:     models.CategoryGeneral,
		Rating:       5,
		ReviewText:   "new",
	})
	require.NoError(t, err)

	grouped, err := repo.ListReviews(ctx, "")
	require.NoError(t, err)

	var legacy, linked models.ReviewView
	for _, v := range grouped[models.CategoryGeneral] {
		if v.ID == id {
			linked = v
		} else {
			legacy = v
		}
	}
	assert.Equal(t, "Stack 360", linked.Program)
	assert.Equal(t, []string{}, legacy.Skills)
	assert.Equal(t, "LR", legacy.Avatar)
	assert.Equal(t, "Unknown Date", legacy.Date)
}

func TestReviewStats(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	empty, err := repo.ReviewStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty.TotalReviews)
	assert.Equal(t, "5.0", empty.AverageRating)
	assert.Equal(t, 580, empty.TotalStudents)
	assert.Empty(t, empty.CategoryStats)

	for _, rating := range []int{5, 4, 4} {
		_, err := repo.CreateReview(ctx, models.ReviewInput{
			ReviewerName: "R", Category: models.CategoryCareer360, Rating: rating, ReviewText: "t",
		})
		require.NoError(t, err)
	}
	_, err = repo.CreateReview(ctx, models.ReviewInput{
		ReviewerName: "R", Category: models.CategoryGeneral, Rating: 2, ReviewText: "t",
	})
	require.NoError(t, err)

	stats, err := repo.ReviewStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalReviews)
	assert.Equal(t, "3.8", stats.AverageRating)
	assert.Equal(t, models.CategoryStat{Count: 3, AvgRating: "4.3"}, stats.CategoryStats[models.CategoryCareer360])
	assert.Equal(t, models.CategoryStat{Count: 1, AvgRating: "2.0"}, stats.CategoryStats[models.CategoryGeneral])
}

func TestGuests(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	id, err := repo.CreateGuest(ctx, "Jane Doe")
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = repo.CreateGuest(ctx, "R2-D2")
	assert.ErrorIs(t, err, ErrInvalidGuestName)

	assert.Equal(t, []string{"Name is required", "Name must contain only letters and spaces"}, ValidateGuestName(""))
	assert.Equal(t, []string{"Name must contain only letters and spaces"}, ValidateGuestName("J4ne"))
	assert.Empty(t, ValidateGuestName("Jane"))
}

func TestContactMessage(t *testing.T) {
	repo := newTestRepository(t)

	id, err := repo.CreateContactMessage(context.Background(), models.ContactMessage{
		Name: "Jane", Email: "jane@example.com", Message: "Hello",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestUsers(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.UserByEmail(ctx, "jane@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	user, err := repo.CreateUser(ctx, "Jane", "Jane@Example.com", "hash")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", user.Email)

	found, err := repo.UserByEmail(ctx, "JANE@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, "hash", found.PasswordHash)

	_, err = repo.CreateUser(ctx, "Other", "jane@example.com", "hash2")
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestReferences(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	image := "uploads/photo.png"
	id, err := repo.CreateReference(ctx, models.Reference{
		Name: "Sam", Email: "sam@example.com", JobTitle: "CTO", Company: "Acme",
		Relationship: "Manager", AboutMe: "Worked together", ImagePath: &image,
	})
	require.NoError(t, err)

	ref, err := repo.GetReference(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, ref.ImagePath)
	assert.Equal(t, image, *ref.ImagePath)
	assert.Nil(t, ref.LORPath)

	lor := "uploads/lor.pdf"
	require.NoError(t, repo.UpdateReference(ctx, id, models.Reference{
		Name: "Sam", Email: "sam@example.com", JobTitle: "CEO", LORPath: &lor,
	}))

	ref, err = repo.GetReference(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "CEO", ref.JobTitle)
	assert.Equal(t, image, *ref.ImagePath)
	assert.Equal(t, lor, *ref.LORPath)

	list, err := repo.ListReferences(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.DeleteReference(ctx, id))
	_, err = repo.GetReference(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.DeleteReference(ctx, id), ErrNotFound)
	assert.ErrorIs(t, repo.UpdateReference(ctx, id, models.Reference{Name: "x"}), ErrNotFound)
}

func TestProjectFeedback(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	fb, err := repo.LikeProject(ctx, "weather-app")
	require.NoError(t, err)
	assert.Equal(t, int64(1), fb.LikeCount)

	fb, err = repo.LikeProject(ctx, "weather-app")
	require.NoError(t, err)
	assert.Equal(t, int64(2), fb.LikeCount)

	fb, err = repo.CommentProject(ctx, "weather-app", "Nice maps")
	require.NoError(t, err)
	assert.Equal(t, "Nice maps", fb.Comments)
	assert.Equal(t, int64(2), fb.LikeCount)

	fb, err = repo.CommentProject(ctx, "weather-app", "Fast")
	require.NoError(t, err)
	assert.Equal(t, "Nice maps\nFast", fb.Comments)

	fb, err = repo.CommentProject(ctx, "blog", "First")
	require.NoError(t, err)
	assert.Equal(t, int64(0), fb.LikeCount)

	_, err = repo.CommentProject(ctx, "blog", "  ")
	assert.ErrorIs(t, err, ErrEmptyComment)
}

func TestUKCitiesAndPing(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.AddUKCity(ctx, models.UKCity{Name: "York", County: "North Yorkshire", Latitude: 53.96, Longitude: -1.08})
	require.NoError(t, err)
	_, err = repo.AddUKCity(ctx, models.UKCity{Name: "Bath", County: "Somerset", Latitude: 51.38, Longitude: -2.36})
	require.NoError(t, err)

	cities, err := repo.ListUKCities(ctx)
	require.NoError(t, err)
	require.Len(t, cities, 2)
	assert.Equal(t, "Bath", cities[0].Name)
	assert.InDelta(t, 53.96, cities[1].Latitude, 0.001)

	solution, err := repo.Ping(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), solution)
}

type failingQuerier struct{ err error }

func (f failingQuerier) Query(context.Context, string, ...any) ([]executor.Row, error) {
	return nil, f.err
}

func TestErrorsAreWrapped(t *testing.T) {
	boom := errors.New("boom")
	repo := New(failingQuerier{err: boom}, Postgres)

	_, err := repo.ListReviews(context.Background(), "")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to list reviews")

	_, err = repo.CreateUser(context.Background(), "a", "b", "c")
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsDuplicate(err))
}
