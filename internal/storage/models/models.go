package models

import "time"

// Review categories rendered as separate carousels by the frontend.
const (
	CategoryStack360  = "stack360"
	CategoryCareer360 = "career360"
	CategoryCore360   = "core360"
	CategoryGeneral   = "general"
)

var ReviewCategories = []string{CategoryStack360, CategoryCareer360, CategoryCore360, CategoryGeneral}

type Review struct {
	ID           int64
	ReviewerName string
	ReviewerRole string
	ProgramID    *int64
	ProgramName  string
	Category     string
	Rating       int
	ReviewText   string
	Skills       []string
	Avatar       string
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// ReviewInput is the writable part of a review.
type ReviewInput struct {
	ReviewerName string   `json:"reviewer_name"`
	ReviewerRole string   `json:"reviewer_role"`
	ProgramID    *int64   `json:"program_id"`
	Category     string   `json:"category"`
	Rating       int      `json:"rating"`
	ReviewText   string   `json:"review_text"`
	Skills       []string `json:"skills"`
}

// ReviewView is the shape the frontend renders.
type ReviewView struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Role    string   `json:"role"`
	Program string   `json:"program"`
	Rating  int      `json:"rating"`
	Date    string   `json:"date"`
	Review  string   `json:"review"`
	Avatar  string   `json:"avatar"`
	Skills  []string `json:"skills"`
}

type CategoryStat struct {
	Count     int64  `json:"count"`
	AvgRating string `json:"avgRating"`
}

type ReviewStats struct {
	TotalReviews  int64                   `json:"totalReviews"`
	AverageRating string                  `json:"averageRating"`
	TotalStudents int                     `json:"totalStudents"`
	CategoryStats map[string]CategoryStat `json:"categoryStats"`
}

type Guest struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type Reference struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	JobTitle      string  `json:"job_title"`
	Company       string  `json:"company"`
	Relationship  string  `json:"relationship"`
	AboutMe       string  `json:"about_me"`
	ImagePath     *string `json:"image_path"`
	SignaturePath *string `json:"signature_path"`
	LORPath       *string `json:"lor_path"`
	CreatedAt     int64   `json:"created_at"`
}

type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type ProjectFeedback struct {
	ProjectID string `json:"id"`
	LikeCount int64  `json:"like_count"`
	Comments  string `json:"comments"`
}

type UKCity struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	County    string  `json:"county"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
