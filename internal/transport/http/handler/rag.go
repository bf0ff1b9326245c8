package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docvault/internal/app"
	"docvault/internal/transport/http/response"
)

type RAGHandler struct {
	searchService *app.SearchService
}

type QueryRequest struct {
	Query          string    `json:"query" binding:"required"`
	OrganizationID uuid.UUID `json:"organization_id" binding:"required"`
	TopK           int       `json:"top_k" binding:"min=0,max=50"`
}

func NewRAGHandler(searchService *app.SearchService) *RAGHandler {
	return &RAGHandler{searchService: searchService}
}

// Query returns the best matching pages of the organization's ingested files, best first.
func (h *RAGHandler) Query(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	results, err := h.searchService.Query(c.Request.Context(), app.QueryInput{
		UserID:         userID,
		OrganizationID: req.OrganizationID,
		Query:          req.Query,
		TopK:           req.TopK,
	})
	if err != nil {
		writeServiceError(c, err, "query failed")
		return
	}
	response.OK(c, results)
}
