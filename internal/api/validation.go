package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"microearn/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

// bindAndValidate decodes the JSON body into req and checks its validate
// tags. On failure it writes a 400 response and returns false.
func bindAndValidate(c *gin.Context, req any) bool {
	log := logger.Logger()

	if err := c.ShouldBindJSON(req); err != nil {
		log.Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return false
	}

	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"details": formatValidationError(err),
		})
		return false
	}

	return true
}

func formatValidationError(err error) map[string]string {
	out := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		out["request"] = err.Error()
		return out
	}

	for _, fieldError := range validationErrors {
		field := strings.ToLower(fieldError.Field())
		switch fieldError.Tag() {
		case "required":
			out[field] = fmt.Sprintf("%s is required", field)
		case "len":
			out[field] = fmt.Sprintf("%s must be exactly %s characters", field, fieldError.Param())
		case "numeric":
			out[field] = fmt.Sprintf("%s must contain digits only", field)
		case "min":
			out[field] = fmt.Sprintf("%s must be at least %s", field, fieldError.Param())
		case "max":
			out[field] = fmt.Sprintf("%s must be at most %s", field, fieldError.Param())
		case "oneof":
			out[field] = fmt.Sprintf("%s must be one of: %s", field, fieldError.Param())
		default:
			out[field] = fmt.Sprintf("%s is invalid", field)
		}
	}

	return out
}
