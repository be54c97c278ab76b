package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mvlbulankin/yamdb-final/internal/middleware"
	"github.com/mvlbulankin/yamdb-final/internal/service"
)

type ReviewHandler struct {
	reviewService *service.ReviewService
}

func NewReviewHandler(reviewService *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

type CreateReviewRequest struct {
	Text  string `json:"text" binding:"required"`
	Score int    `json:"score" binding:"required,min=1,max=10"`
}

type PatchReviewRequest struct {
	Text  *string `json:"text"`
	Score *int    `json:"score" binding:"omitempty,min=1,max=10"`
}

type CreateCommentRequest struct {
	Text string `json:"text" binding:"required"`
}

type PatchCommentRequest struct {
	Text *string `json:"text"`
}

// GET /api/v1/titles/:title_id/reviews
func (h *ReviewHandler) ListReviews(c *gin.Context) {
	titleID, err := idParam(c, "title_id")
	if err != nil {
		respondError(c, err)
		return
	}
	reviews, err := h.reviewService.ListReviews(c.Request.Context(), titleID)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]ReviewResponse, 0, len(reviews))
	for i := range reviews {
		out = append(out, toReviewResponse(&reviews[i]))
	}
	c.JSON(http.StatusOK, newList(out))
}

// POST /api/v1/titles/:title_id/reviews
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	titleID, err := idParam(c, "title_id")
	if err != nil {
		respondError(c, err)
		return
	}
	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	subject := middleware.SubjectFrom(c)
	review, err := h.reviewService.CreateReview(c.Request.Context(), subject.UserID, titleID, req.Score, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toReviewResponse(review))
}

// GET /api/v1/titles/:title_id/reviews/:review_id
func (h *ReviewHandler) GetReview(c *gin.Context) {
	titleID, reviewID, err := titleAndReview(c)
	if err != nil {
		respondError(c, err)
		return
	}
	review, err := h.reviewService.GetReview(c.Request.Context(), titleID, reviewID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReviewResponse(review))
}

// PATCH /api/v1/titles/:title_id/reviews/:review_id
func (h *ReviewHandler) PatchReview(c *gin.Context) {
	titleID, reviewID, err := titleAndReview(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var req PatchReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	review, err := h.reviewService.UpdateReview(c.Request.Context(), titleID, reviewID, service.ReviewPatch{
		Text:  req.Text,
		Score: req.Score,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReviewResponse(review))
}

// DELETE /api/v1/titles/:title_id/reviews/:review_id
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	titleID, reviewID, err := titleAndReview(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.reviewService.DeleteReview(c.Request.Context(), titleID, reviewID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/v1/titles/:title_id/reviews/:review_id/comments
func (h *ReviewHandler) ListComments(c *gin.Context) {
	titleID, reviewID, err := titleAndReview(c)
	if err != nil {
		respondError(c, err)
		return
	}
	comments, err := h.reviewService.ListComments(c.Request.Context(), titleID, reviewID)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, toCommentResponse(&comments[i]))
	}
	c.JSON(http.StatusOK, newList(out))
}

// POST /api/v1/titles/:title_id/reviews/:review_id/comments
func (h *ReviewHandler) CreateComment(c *gin.Context) {
	titleID, reviewID, err := titleAndReview(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	subject := middleware.SubjectFrom(c)
	comment, err := h.reviewService.CreateComment(c.Request.Context(), subject.UserID, titleID, reviewID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCommentResponse(comment))
}

// GET /api/v1/titles/:title_id/reviews/:review_id/comments/:comment_id
func (h *ReviewHandler) GetComment(c *gin.Context) {
	titleID, reviewID, commentID, err := commentPath(c)
	if err != nil {
		respondError(c, err)
		return
	}
	comment, err := h.reviewService.GetComment(c.Request.Context(), titleID, reviewID, commentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCommentResponse(comment))
}

// PATCH /api/v1/titles/:title_id/reviews/:review_id/comments/:comment_id
func (h *ReviewHandler) PatchComment(c *gin.Context) {
	titleID, reviewID, commentID, err := commentPath(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var req PatchCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	comment, err := h.reviewService.UpdateComment(c.Request.Context(), titleID, reviewID, commentID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCommentResponse(comment))
}

// DELETE /api/v1/titles/:title_id/reviews/:review_id/comments/:comment_id
func (h *ReviewHandler) DeleteComment(c *gin.Context) {
	titleID, reviewID, commentID, err := commentPath(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.reviewService.DeleteComment(c.Request.Context(), titleID, reviewID, commentID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// reviewOwner feeds the ownership check for review updates and deletes.
func (h *ReviewHandler) reviewOwner(c *gin.Context) (uuid.UUID, error) {
	titleID, reviewID, err := titleAndReview(c)
	if err != nil {
		return uuid.Nil, err
	}
	return h.reviewService.ReviewOwner(c.Request.Context(), titleID, reviewID)
}

func (h *ReviewHandler) commentOwner(c *gin.Context) (uuid.UUID, error) {
	titleID, reviewID, commentID, err := commentPath(c)
	if err != nil {
		return uuid.Nil, err
	}
	return h.reviewService.CommentOwner(c.Request.Context(), titleID, reviewID, commentID)
}

func commentPath(c *gin.Context) (uint, uint, uint, error) {
	titleID, reviewID, err := titleAndReview(c)
	if err != nil {
		return 0, 0, 0, err
	}
	commentID, err := idParam(c, "comment_id")
	if err != nil {
		return 0, 0, 0, err
	}
	return titleID, reviewID, commentID, nil
}
