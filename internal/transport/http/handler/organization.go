package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docvault/internal/app"
	"docvault/internal/transport/http/response"
)

type OrganizationHandler struct {
	orgService *app.OrganizationService
}

type CreateOrganizationRequest struct {
	Name    string `json:"name" binding:"required"`
	IconSrc string `json:"icon_src" binding:"max=512"`
}

type AddMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"omitempty,oneof=admin member"`
}

func NewOrganizationHandler(orgService *app.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgService: orgService}
}

// List returns the descriptions of every organization the caller belongs to.
func (h *OrganizationHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	descriptions, err := h.orgService.ListDescriptions(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err, "list organizations failed")
		return
	}
	response.OK(c, descriptions)
}

func (h *OrganizationHandler) Create(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	var req CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	desc, err := h.orgService.CreateOrganization(c.Request.Context(), app.CreateOrganizationInput{
		UserID:  userID,
		Name:    req.Name,
		IconSrc: req.IconSrc,
	})
	if err != nil {
		writeServiceError(c, err, "create organization failed")
		return
	}
	response.OK(c, desc)
}

func (h *OrganizationHandler) AddMember(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	orgID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	membership, err := h.orgService.AddMember(c.Request.Context(), app.AddMemberInput{
		ActorID:        userID,
		OrganizationID: orgID,
		Email:          req.Email,
		Role:           req.Role,
	})
	if err != nil {
		writeServiceError(c, err, "add member failed")
		return
	}
	response.OK(c, membership)
}
