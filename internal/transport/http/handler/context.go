package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docvault/internal/app"
	"docvault/internal/rag"
	"docvault/internal/transport/http/middleware"
	"docvault/internal/transport/http/response"
)

func getUserIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func parseUUIDParam(c *gin.Context, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(key))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid "+key)
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps service and retrieval errors to the response envelope. Anything it does
// not recognise becomes a 500 carrying fallback, and the cause is attached for request logging.
func writeServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrAccessDenied):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
	case errors.Is(err, app.ErrDirectoryNotFound),
		errors.Is(err, app.ErrFileNotFound),
		errors.Is(err, app.ErrUserNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
	case errors.Is(err, rag.ErrNoContent):
		response.Error(c, http.StatusNotFound, response.CodeNoContent, err.Error())
	case errors.Is(err, app.ErrAlreadyMember), errors.Is(err, rag.ErrAlreadyIngested):
		response.Error(c, http.StatusConflict, response.CodeConflict, err.Error())
	case errors.Is(err, app.ErrFileTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeTooLarge, err.Error())
	case errors.Is(err, app.ErrStorageLimitExceeded):
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeStorageLimit, err.Error())
	case errors.Is(err, rag.ErrUnsupportedType):
		response.Error(c, http.StatusUnsupportedMediaType, response.CodeUnsupportedType, err.Error())
	case errors.Is(err, rag.ErrSummarization), errors.Is(err, rag.ErrEmbedding):
		_ = c.Error(err)
		response.Error(c, http.StatusBadGateway, response.CodeUpstream, fallback)
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
