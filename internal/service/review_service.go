package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mvlbulankin/yamdb-final/internal/broker"
	"github.com/mvlbulankin/yamdb-final/internal/metrics"
	"github.com/mvlbulankin/yamdb-final/internal/models"
	"github.com/mvlbulankin/yamdb-final/internal/repository"
	"github.com/mvlbulankin/yamdb-final/pkg/logger"
	"go.uber.org/zap"
)

// ReviewPatch carries the mutable review fields. pub_date never changes.
type ReviewPatch struct {
	Text  *string
	Score *int
}

// ReviewService guards review integrity (one review per user and title,
// bounded scores) and keeps comments consistent with their review's title.
type ReviewService struct {
	reviews repository.ReviewRepository
	events  broker.Publisher
	now     func() time.Time
}

func NewReviewService(reviews repository.ReviewRepository, events broker.Publisher) *ReviewService {
	if events == nil {
		events = broker.NopPublisher{}
	}
	return &ReviewService{reviews: reviews, events: events, now: time.Now}
}

// Rating is the mean review score of a title, or nil when it has no reviews.
func (s *ReviewService) Rating(ctx context.Context, titleID uint) (*float64, error) {
	if err := s.requireTitle(ctx, titleID); err != nil {
		return nil, err
	}
	return s.reviews.AverageScore(ctx, titleID)
}

func (s *ReviewService) ListReviews(ctx context.Context, titleID uint) ([]models.Review, error) {
	if err := s.requireTitle(ctx, titleID); err != nil {
		return nil, err
	}
	return s.reviews.ListReviewsForTitle(ctx, titleID)
}

func (s *ReviewService) GetReview(ctx context.Context, titleID, reviewID uint) (*models.Review, error) {
	review, err := s.reviews.FindReview(ctx, reviewID, titleID)
	if err != nil {
		return nil, err
	}
	if review == nil {
		return nil, fmt.Errorf("%w: review %d of title %d", ErrNotFound, reviewID, titleID)
	}
	return review, nil
}

// ReviewOwner returns the author of a review, for ownership checks.
func (s *ReviewService) ReviewOwner(ctx context.Context, titleID, reviewID uint) (uuid.UUID, error) {
	review, err := s.GetReview(ctx, titleID, reviewID)
	if err != nil {
		return uuid.Nil, err
	}
	return review.AuthorID, nil
}

func (s *ReviewService) CreateReview(ctx context.Context, authorID uuid.UUID, titleID uint, score int, text string) (*models.Review, error) {
	if err := validateScore(score); err != nil {
		return nil, err
	}
	if err := validateRequiredText("text", text); err != nil {
		return nil, err
	}
	if err := s.requireTitle(ctx, titleID); err != nil {
		return nil, err
	}

	existing, err := s.reviews.FindReviewByAuthor(ctx, titleID, authorID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		metrics.ReviewConflicts.Inc()
		return nil, fmt.Errorf("%w: you have already reviewed this title", ErrConflict)
	}

	review := &models.Review{
		TitleID:  titleID,
		AuthorID: authorID,
		Text:     text,
		Score:    score,
		PubDate:  s.now().UTC(),
	}
	if err := s.reviews.CreateReview(ctx, review); err != nil {
		// The unique index is the real guard; the lookup above only
		// produces the friendlier early error.
		if errors.Is(err, repository.ErrDuplicate) {
			metrics.ReviewConflicts.Inc()
			logger.Log.Warn("Concurrent duplicate review rejected by storage",
				zap.String("author_id", authorID.String()),
				zap.Uint("title_id", titleID),
			)
			return nil, fmt.Errorf("%w: you have already reviewed this title", ErrConflict)
		}
		return nil, err
	}
	metrics.ReviewsCreated.Inc()

	created, err := s.GetReview(ctx, titleID, review.ID)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Review created",
		zap.Uint("review_id", created.ID),
		zap.Uint("title_id", titleID),
		zap.String("author", created.Author.Username),
		zap.Int("score", score),
	)
	s.publish(ctx, broker.Event{
		Type:     broker.ReviewCreated,
		TitleID:  titleID,
		ReviewID: created.ID,
		Author:   created.Author.Username,
		Score:    created.Score,
		Rating:   s.ratingOrNil(ctx, titleID),
	})
	return created, nil
}

func (s *ReviewService) UpdateReview(ctx context.Context, titleID, reviewID uint, patch ReviewPatch) (*models.Review, error) {
	fields := make(map[string]interface{})
	if patch.Score != nil {
		if err := validateScore(*patch.Score); err != nil {
			return nil, err
		}
		fields["score"] = *patch.Score
	}
	if patch.Text != nil {
		if err := validateRequiredText("text", *patch.Text); err != nil {
			return nil, err
		}
		fields["text"] = *patch.Text
	}

	if _, err := s.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	if err := s.reviews.UpdateReview(ctx, reviewID, fields); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: review %d", ErrNotFound, reviewID)
		}
		return nil, err
	}

	updated, err := s.GetReview(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		logger.Log.Info("Review updated", zap.Uint("review_id", reviewID))
		s.publish(ctx, broker.Event{
			Type:     broker.ReviewUpdated,
			TitleID:  titleID,
			ReviewID: reviewID,
			Author:   updated.Author.Username,
			Score:    updated.Score,
			Rating:   s.ratingOrNil(ctx, titleID),
		})
	}
	return updated, nil
}

func (s *ReviewService) DeleteReview(ctx context.Context, titleID, reviewID uint) error {
	review, err := s.GetReview(ctx, titleID, reviewID)
	if err != nil {
		return err
	}
	if err := s.reviews.DeleteReview(ctx, reviewID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: review %d", ErrNotFound, reviewID)
		}
		return err
	}

	logger.Log.Info("Review deleted", zap.Uint("review_id", reviewID), zap.Uint("title_id", titleID))
	s.publish(ctx, broker.Event{
		Type:     broker.ReviewDeleted,
		TitleID:  titleID,
		ReviewID: reviewID,
		Author:   review.Author.Username,
		Rating:   s.ratingOrNil(ctx, titleID),
	})
	return nil
}

func (s *ReviewService) ListComments(ctx context.Context, titleID, reviewID uint) ([]models.Comment, error) {
	if _, err := s.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	return s.reviews.ListComments(ctx, reviewID)
}

// GetComment resolves the full path: the review must belong to the title
// and the comment to the review.
func (s *ReviewService) GetComment(ctx context.Context, titleID, reviewID, commentID uint) (*models.Comment, error) {
	if _, err := s.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	comment, err := s.reviews.FindComment(ctx, commentID, reviewID)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		return nil, fmt.Errorf("%w: comment %d of review %d", ErrNotFound, commentID, reviewID)
	}
	return comment, nil
}

func (s *ReviewService) CommentOwner(ctx context.Context, titleID, reviewID, commentID uint) (uuid.UUID, error) {
	comment, err := s.GetComment(ctx, titleID, reviewID, commentID)
	if err != nil {
		return uuid.Nil, err
	}
	return comment.AuthorID, nil
}

func (s *ReviewService) CreateComment(ctx context.Context, authorID uuid.UUID, titleID, reviewID uint, text string) (*models.Comment, error) {
	if err := validateRequiredText("text", text); err != nil {
		return nil, err
	}
	if _, err := s.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ReviewID: reviewID,
		AuthorID: authorID,
		Text:     text,
		PubDate:  s.now().UTC(),
	}
	if err := s.reviews.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	created, err := s.GetComment(ctx, titleID, reviewID, comment.ID)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Comment created",
		zap.Uint("comment_id", created.ID),
		zap.Uint("review_id", reviewID),
		zap.String("author", created.Author.Username),
	)
	s.publish(ctx, broker.Event{
		Type:      broker.CommentCreated,
		TitleID:   titleID,
		ReviewID:  reviewID,
		CommentID: created.ID,
		Author:    created.Author.Username,
	})
	return created, nil
}

func (s *ReviewService) UpdateComment(ctx context.Context, titleID, reviewID, commentID uint, text *string) (*models.Comment, error) {
	if _, err := s.GetComment(ctx, titleID, reviewID, commentID); err != nil {
		return nil, err
	}
	if text != nil {
		if err := validateRequiredText("text", *text); err != nil {
			return nil, err
		}
		if err := s.reviews.UpdateComment(ctx, commentID, map[string]interface{}{"text": *text}); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: comment %d", ErrNotFound, commentID)
			}
			return nil, err
		}
		logger.Log.Info("Comment updated", zap.Uint("comment_id", commentID))
	}
	return s.GetComment(ctx, titleID, reviewID, commentID)
}

func (s *ReviewService) DeleteComment(ctx context.Context, titleID, reviewID, commentID uint) error {
	comment, err := s.GetComment(ctx, titleID, reviewID, commentID)
	if err != nil {
		return err
	}
	if err := s.reviews.DeleteComment(ctx, commentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: comment %d", ErrNotFound, commentID)
		}
		return err
	}

	logger.Log.Info("Comment deleted", zap.Uint("comment_id", commentID))
	s.publish(ctx, broker.Event{
		Type:      broker.CommentDeleted,
		TitleID:   titleID,
		ReviewID:  reviewID,
		CommentID: commentID,
		Author:    comment.Author.Username,
	})
	return nil
}

func (s *ReviewService) requireTitle(ctx context.Context, titleID uint) error {
	ok, err := s.reviews.TitleExists(ctx, titleID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: title %d", ErrNotFound, titleID)
	}
	return nil
}

func (s *ReviewService) ratingOrNil(ctx context.Context, titleID uint) *float64 {
	rating, err := s.reviews.AverageScore(ctx, titleID)
	if err != nil {
		logger.Log.Warn("Failed to compute rating for event", zap.Uint("title_id", titleID), zap.Error(err))
		return nil
	}
	return rating
}

// publish is best effort; the write has already committed.
func (s *ReviewService) publish(ctx context.Context, event broker.Event) {
	event.At = s.now().UTC()
	if err := s.events.Publish(ctx, event); err != nil {
		logger.Log.Warn("Failed to publish activity event",
			zap.String("type", string(event.Type)),
			zap.Uint("review_id", event.ReviewID),
			zap.Error(err),
		)
	}
}

func validateScore(score int) error {
	if score < models.MinScore || score > models.MaxScore {
		return fmt.Errorf("%w: score must be between %d and %d", ErrValidation, models.MinScore, models.MaxScore)
	}
	return nil
}
