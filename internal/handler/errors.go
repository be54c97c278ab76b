package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/mvlbulankin/yamdb-final/internal/service"
	"github.com/mvlbulankin/yamdb-final/pkg/logger"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// respondError is the only place domain errors become HTTP responses.
func respondError(c *gin.Context, err error) {
	status, code := classify(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Log.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		message = "internal server error"
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: code, Message: message})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, service.ErrConflict):
		return http.StatusBadRequest, "conflict"
	case errors.Is(err, service.ErrInvalidCode):
		return http.StatusBadRequest, "invalid_code"
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized, "not_authenticated"
	case errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden, "permission_denied"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found"
	}
	return http.StatusInternalServerError, "internal_error"
}

func bindError(err error) error {
	var fields validator.ValidationErrors
	if errors.As(err, &fields) {
		problems := make([]string, 0, len(fields))
		for _, fe := range fields {
			problems = append(problems, fieldProblem(fe))
		}
		return fmt.Errorf("%w: %s", service.ErrValidation, strings.Join(problems, "; "))
	}
	return fmt.Errorf("%w: invalid request body: %v", service.ErrValidation, err)
}

func fieldProblem(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}

var jsonFieldNames sync.Once

// useJSONFieldNames makes binding errors report fields by their JSON key.
func useJSONFieldNames() {
	jsonFieldNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}
