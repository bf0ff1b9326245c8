package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docvault/internal/app"
	"docvault/internal/transport/http/response"
)

type FilesystemHandler struct {
	fsService *app.FilesystemService
}

type CreateDirectoryRequest struct {
	ParentDirectoryID uuid.UUID `json:"parent_directory_id" binding:"required"`
	Name              string    `json:"name" binding:"required"`
}

func NewFilesystemHandler(fsService *app.FilesystemService) *FilesystemHandler {
	return &FilesystemHandler{fsService: fsService}
}

func (h *FilesystemHandler) CreateDirectory(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	var req CreateDirectoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	dir, err := h.fsService.CreateDirectory(c.Request.Context(), app.CreateDirectoryInput{
		UserID:   userID,
		ParentID: req.ParentDirectoryID,
		Name:     req.Name,
	})
	if err != nil {
		writeServiceError(c, err, "create directory failed")
		return
	}
	response.OK(c, dir)
}

func (h *FilesystemHandler) GetDirectory(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	dirID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	listing, err := h.fsService.GetDirectory(c.Request.Context(), userID, dirID)
	if err != nil {
		writeServiceError(c, err, "get directory failed")
		return
	}
	response.OK(c, listing)
}

// UploadFile accepts a multipart form with "file" and "parent_directory_id". Supported documents
// are ingested before the response is written.
func (h *FilesystemHandler) UploadFile(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	dirID, err := uuid.Parse(c.PostForm("parent_directory_id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid parent_directory_id")
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}

	f, err := header.Open()
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	result, err := h.fsService.UploadFile(c.Request.Context(), app.UploadFileInput{
		UserID:      userID,
		DirectoryID: dirID,
		Filename:    header.Filename,
		Content:     f,
	})
	if err != nil {
		writeServiceError(c, err, "upload failed")
		return
	}
	response.OK(c, result)
}

func (h *FilesystemHandler) GetFile(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	fileID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	detail, err := h.fsService.GetFile(c.Request.Context(), userID, fileID)
	if err != nil {
		writeServiceError(c, err, "get file failed")
		return
	}
	response.OK(c, detail)
}

func (h *FilesystemHandler) DeleteFile(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	fileID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.fsService.DeleteFile(c.Request.Context(), userID, fileID); err != nil {
		writeServiceError(c, err, "delete file failed")
		return
	}
	response.OK(c, gin.H{"deleted_file_id": fileID})
}
