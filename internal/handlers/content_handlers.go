package handlers

import (
	"errors"
	"net/http"

	"booknest_backend/internal/middleware"
	"booknest_backend/internal/services"
	"booknest_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ContentHandler holds the content and log services.
type ContentHandler struct {
	contentService services.ContentService
	logService     services.LogService
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(cs services.ContentService, ls services.LogService) *ContentHandler {
	return &ContentHandler{contentService: cs, logService: ls}
}

// PublicPosts lists active announcements for the public site.
func (h *ContentHandler) PublicPosts(c *gin.Context) {
	posts, err := h.contentService.ListPosts(true)
	if err != nil {
		utils.LogError(err, "PublicPosts: Error from contentService.ListPosts")
		internalError(c, "list posts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": posts, "count": len(posts)})
}

// ListPosts is the staff view including drafts.
func (h *ContentHandler) ListPosts(c *gin.Context) {
	posts, err := h.contentService.ListPosts(false)
	if err != nil {
		utils.LogError(err, "ListPosts: Error from contentService.ListPosts")
		internalError(c, "list posts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": posts, "count": len(posts)})
}

func (h *ContentHandler) CreatePost(c *gin.Context) {
	var input services.PostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	post, err := h.contentService.CreatePost(input, middleware.CurrentUser(c))
	if err != nil {
		utils.LogError(err, "CreatePost: Error from contentService.CreatePost")
		internalError(c, "create post")
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *ContentHandler) UpdatePost(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input services.PostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	post, err := h.contentService.UpdatePost(id, input, middleware.CurrentUser(c))
	if err != nil {
		if errors.Is(err, services.ErrPostNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Post not found.", err.Error()))
		} else {
			utils.LogError(err, "UpdatePost: Error from contentService.UpdatePost")
			internalError(c, "update post")
		}
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *ContentHandler) DeletePost(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.contentService.DeletePost(id, middleware.CurrentUser(c)); err != nil {
		if errors.Is(err, services.ErrPostNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Post not found.", err.Error()))
		} else {
			utils.LogError(err, "DeletePost: Error from contentService.DeletePost")
			internalError(c, "delete post")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted."})
}

// GetDonationInfo serves the public donation page.
func (h *ContentHandler) GetDonationInfo(c *gin.Context) {
	info, err := h.contentService.GetDonationInfo()
	if err != nil {
		utils.LogError(err, "GetDonationInfo: Error from contentService.GetDonationInfo")
		internalError(c, "load donation info")
		return
	}
	c.JSON(http.StatusOK, info)
}

// UpdateDonationInfo replaces the donation page content.
func (h *ContentHandler) UpdateDonationInfo(c *gin.Context) {
	var input services.DonationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	info, err := h.contentService.UpdateDonationInfo(input, middleware.CurrentUser(c))
	if err != nil {
		utils.LogError(err, "UpdateDonationInfo: Error from contentService.UpdateDonationInfo")
		internalError(c, "update donation info")
		return
	}
	c.JSON(http.StatusOK, info)
}

// ListLogs returns the audit trail, newest first.
func (h *ContentHandler) ListLogs(c *gin.Context) {
	logs, err := h.logService.ListLogs(queryInt64(c, "skip", 0), queryInt64(c, "limit", 100))
	if err != nil {
		utils.LogError(err, "ListLogs: Error from logService.ListLogs")
		internalError(c, "list logs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": logs, "count": len(logs)})
}
