package handlers

import (
	"io"
	"net/http"
	"strings"

	"booknest_backend/internal/storage"
	"booknest_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Upload size cap; covers and PDFs both fit comfortably.
const maxUploadBytes = 25 << 20

var allowedUploadFolders = map[string]bool{
	"covers": true,
	"pdfs":   true,
	"posts":  true,
}

// UploadHandler streams files to the blob store.
type UploadHandler struct {
	store storage.BlobStore
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(store storage.BlobStore) *UploadHandler {
	return &UploadHandler{store: store}
}

// Upload accepts a multipart file plus a target folder and returns the
// public URL.
func (h *UploadHandler) Upload(c *gin.Context) {
	folder := strings.ToLower(c.DefaultPostForm("folder", "covers"))
	if !allowedUploadFolders[folder] {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest,
			"Unknown upload folder.", ""))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed,
			"A file is required.", err.Error()))
		return
	}
	if fileHeader.Size > maxUploadBytes {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest,
			"File exceeds the upload size limit.", ""))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		utils.LogError(err, "Upload: failed to open multipart file")
		internalError(c, "read upload")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		utils.LogError(err, "Upload: failed to read multipart file")
		internalError(c, "read upload")
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	url, err := h.store.Upload(c.Request.Context(), folder, fileHeader.Filename, data, contentType)
	if err != nil {
		utils.LogError(err, "Upload: blob store upload failed")
		internalError(c, "store upload")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}
