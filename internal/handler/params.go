package handler

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mvlbulankin/yamdb-final/internal/service"
)

// idParam parses a numeric path segment. Anything else addresses nothing.
func idParam(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %s %q", service.ErrNotFound, name, raw)
	}
	return uint(id), nil
}

func titleAndReview(c *gin.Context) (uint, uint, error) {
	titleID, err := idParam(c, "title_id")
	if err != nil {
		return 0, 0, err
	}
	reviewID, err := idParam(c, "review_id")
	if err != nil {
		return 0, 0, err
	}
	return titleID, reviewID, nil
}
