package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/mvlbulankin/yamdb-final/internal/models"
	"gorm.io/gorm"
)

// CreateUser inserts a user with the given role.
func CreateUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    fmt.Sprintf("%s@example.com", username),
		Role:     role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return user
}

func CreateCategory(t *testing.T, db *gorm.DB, name, slug string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name, Slug: slug}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("Failed to create category %s: %v", slug, err)
	}
	return category
}

func CreateGenre(t *testing.T, db *gorm.DB, name, slug string) *models.Genre {
	t.Helper()
	genre := &models.Genre{Name: name, Slug: slug}
	if err := db.Create(genre).Error; err != nil {
		t.Fatalf("Failed to create genre %s: %v", slug, err)
	}
	return genre
}

// CreateTitle inserts a title with an optional category and genre links.
func CreateTitle(t *testing.T, db *gorm.DB, name string, year int, category *models.Category, genres ...*models.Genre) *models.Title {
	t.Helper()
	title := &models.Title{Name: name, Year: year}
	if category != nil {
		title.CategoryID = &category.ID
	}
	if err := db.Omit("Genres", "Category").Create(title).Error; err != nil {
		t.Fatalf("Failed to create title %s: %v", name, err)
	}
	for _, g := range genres {
		if err := db.Create(&models.TitleGenre{TitleID: title.ID, GenreID: g.ID}).Error; err != nil {
			t.Fatalf("Failed to link genre %s: %v", g.Slug, err)
		}
	}
	return title
}

func CreateReview(t *testing.T, db *gorm.DB, title *models.Title, author *models.User, score int) *models.Review {
	t.Helper()
	review := &models.Review{
		TitleID:  title.ID,
		AuthorID: author.ID,
		Text:     fmt.Sprintf("%s on %s", author.Username, title.Name),
		Score:    score,
		PubDate:  time.Now().UTC(),
	}
	if err := db.Omit("Title", "Author").Create(review).Error; err != nil {
		t.Fatalf("Failed to create review: %v", err)
	}
	return review
}

func CreateComment(t *testing.T, db *gorm.DB, review *models.Review, author *models.User, text string) *models.Comment {
	t.Helper()
	comment := &models.Comment{
		ReviewID: review.ID,
		AuthorID: author.ID,
		Text:     text,
		PubDate:  time.Now().UTC(),
	}
	if err := db.Omit("Review", "Author").Create(comment).Error; err != nil {
		t.Fatalf("Failed to create comment: %v", err)
	}
	return comment
}
