package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mvlbulankin/yamdb-final/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReviewRepository interface {
	TitleExists(ctx context.Context, titleID uint) (bool, error)
	AverageScore(ctx context.Context, titleID uint) (*float64, error)

	FindReview(ctx context.Context, id, titleID uint) (*models.Review, error)
	FindReviewByAuthor(ctx context.Context, titleID uint, authorID uuid.UUID) (*models.Review, error)
	ListReviewsForTitle(ctx context.Context, titleID uint) ([]models.Review, error)
	CreateReview(ctx context.Context, review *models.Review) error
	UpdateReview(ctx context.Context, id uint, fields map[string]interface{}) error
	DeleteReview(ctx context.Context, id uint) error

	FindComment(ctx context.Context, id, reviewID uint) (*models.Comment, error)
	ListComments(ctx context.Context, reviewID uint) ([]models.Comment, error)
	CreateComment(ctx context.Context, comment *models.Comment) error
	UpdateComment(ctx context.Context, id uint, fields map[string]interface{}) error
	DeleteComment(ctx context.Context, id uint) error
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) TitleExists(ctx context.Context, titleID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Title{}).Where("id = ?", titleID).Count(&count).Error
	return count > 0, err
}

// AverageScore returns nil when the title has no reviews.
func (r *reviewRepository) AverageScore(ctx context.Context, titleID uint) (*float64, error) {
	ratings, err := averageScores(r.db.WithContext(ctx), []uint{titleID})
	if err != nil {
		return nil, err
	}
	avg, ok := ratings[titleID]
	if !ok {
		return nil, nil
	}
	return &avg, nil
}

// FindReview only matches a review that belongs to titleID.
func (r *reviewRepository) FindReview(ctx context.Context, id, titleID uint) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("id = ? AND title_id = ?", id, titleID).
		First(&review).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) FindReviewByAuthor(ctx context.Context, titleID uint, authorID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		Where("title_id = ? AND author_id = ?", titleID, authorID).
		First(&review).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) ListReviewsForTitle(ctx context.Context, titleID uint) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("title_id = ?", titleID).
		Order("pub_date DESC, id DESC").
		Find(&reviews).Error
	return reviews, err
}

// CreateReview relies on uq_review_title_author; a concurrent duplicate
// surfaces as ErrDuplicate.
func (r *reviewRepository) CreateReview(ctx context.Context, review *models.Review) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(review).Error)
}

func (r *reviewRepository) UpdateReview(ctx context.Context, id uint, fields map[string]interface{}) error {
	return updateByID(r.db.WithContext(ctx), &models.Review{}, id, fields)
}

func (r *reviewRepository) DeleteReview(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("review_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return deleteByID(tx, &models.Review{}, id)
	})
}

// FindComment only matches a comment that belongs to reviewID.
func (r *reviewRepository) FindComment(ctx context.Context, id, reviewID uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("id = ? AND review_id = ?", id, reviewID).
		First(&comment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

func (r *reviewRepository) ListComments(ctx context.Context, reviewID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("review_id = ?", reviewID).
		Order("pub_date DESC, id DESC").
		Find(&comments).Error
	return comments, err
}

func (r *reviewRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error)
}

func (r *reviewRepository) UpdateComment(ctx context.Context, id uint, fields map[string]interface{}) error {
	return updateByID(r.db.WithContext(ctx), &models.Comment{}, id, fields)
}

func (r *reviewRepository) DeleteComment(ctx context.Context, id uint) error {
	return deleteByID(r.db.WithContext(ctx), &models.Comment{}, id)
}

func updateByID(db *gorm.DB, model interface{}, id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	result := db.Model(model).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func deleteByID(db *gorm.DB, model interface{}, id uint) error {
	result := db.Where("id = ?", id).Delete(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
