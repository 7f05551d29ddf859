package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	domainagg "github.com/gearstack/partsmarket-backend/internal/domain/aggregates"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
	"github.com/gearstack/partsmarket-backend/internal/services"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// RespondError translates service and aggregate errors into HTTP statuses.
// Retryable codes surface as 409 so clients re-run the command.
func RespondError(c *gin.Context, log *logger.Logger, err error) {
	if errors.Is(err, services.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, errorBody{Error: err.Error()})
		return
	}

	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		status := statusForCode(aggErr.Code)
		if status == http.StatusInternalServerError {
			log.Error("internal error", "op", aggErr.Op, "error", err)
			c.JSON(status, errorBody{Error: "internal error", Code: string(aggErr.Code)})
			return
		}
		c.JSON(status, errorBody{Error: aggErr.Message, Code: string(aggErr.Code)})
		return
	}

	if errors.Is(err, domain.ErrValidation) {
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error(), Code: string(domainagg.CodeValidation)})
		return
	}

	log.Error("unclassified error", "error", err)
	c.JSON(http.StatusInternalServerError, errorBody{Error: "internal error"})
}

func statusForCode(code domainagg.ErrorCode) int {
	switch code {
	case domainagg.CodeValidation:
		return http.StatusBadRequest
	case domainagg.CodeNotFound:
		return http.StatusNotFound
	case domainagg.CodeConflict, domainagg.CodeRetryable:
		return http.StatusConflict
	case domainagg.CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case domainagg.CodePreconditionFailed:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
