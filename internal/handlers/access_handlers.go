package handlers

import (
	"errors"
	"net/http"

	"booknest_backend/internal/middleware"
	"booknest_backend/internal/services"
	"booknest_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AccessHandler holds the access request service.
type AccessHandler struct {
	accessService services.AccessService
}

// NewAccessHandler creates a new AccessHandler.
func NewAccessHandler(as services.AccessService) *AccessHandler {
	return &AccessHandler{accessService: as}
}

func respondRequestError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, services.ErrBookNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Book not found.", err.Error()))
	case errors.Is(err, services.ErrRequestNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Request not found.", err.Error()))
	case errors.Is(err, services.ErrRequestAlreadyPending):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "A pending request for this book already exists.", err.Error()))
	case errors.Is(err, services.ErrInvalidReviewAction):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Review action must be approve, reject, or pending.", err.Error()))
	case errors.Is(err, services.ErrReviewConflict):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Request was reviewed concurrently. Reload and retry.", err.Error()))
	default:
		utils.LogError(err, "AccessHandler: failed to "+action)
		internalError(c, action)
	}
}

// --- Restricted-book access requests ---

// SubmitAccessRequest files or re-files the applicant form for a book.
func (h *AccessHandler) SubmitAccessRequest(c *gin.Context) {
	var input services.AccessRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	req, err := h.accessService.SubmitAccessRequest(input, middleware.CurrentUser(c))
	if err != nil {
		respondRequestError(c, err, "submit access request")
		return
	}
	c.JSON(http.StatusCreated, req)
}

// CheckAccessStatus answers where the caller's request for a book stands.
func (h *AccessHandler) CheckAccessStatus(c *gin.Context) {
	bookID, ok := pathID(c, "book_id")
	if !ok {
		return
	}
	result, err := h.accessService.CheckAccessStatus(bookID, middleware.CurrentUser(c))
	if err != nil {
		respondRequestError(c, err, "check access status")
		return
	}
	c.JSON(http.StatusOK, result)
}

// MyAccessRequests lists the caller's request history.
func (h *AccessHandler) MyAccessRequests(c *gin.Context) {
	reqs, err := h.accessService.ListMyAccessRequests(middleware.CurrentUser(c))
	if err != nil {
		respondRequestError(c, err, "list access requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": reqs, "count": len(reqs)})
}

// ListAccessRequests is the admin review queue.
func (h *AccessHandler) ListAccessRequests(c *gin.Context) {
	reqs, err := h.accessService.ListAccessRequests()
	if err != nil {
		respondRequestError(c, err, "list access requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": reqs, "count": len(reqs)})
}

// ReviewAccessRequest applies an admin verdict.
func (h *AccessHandler) ReviewAccessRequest(c *gin.Context) {
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input services.ReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	req, err := h.accessService.ReviewAccessRequest(requestID, input, middleware.CurrentUser(c))
	if err != nil {
		respondRequestError(c, err, "review access request")
		return
	}
	c.JSON(http.StatusOK, req)
}

// --- Borrow requests ---

// SubmitBookRequest files or re-files a borrow request.
func (h *AccessHandler) SubmitBookRequest(c *gin.Context) {
	var input services.BookRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	req, err := h.accessService.SubmitBookRequest(input, middleware.CurrentUser(c))
	if err != nil {
		respondRequestError(c, err, "submit book request")
		return
	}
	c.JSON(http.StatusCreated, req)
}

// MyBookRequests lists the caller's borrow requests.
func (h *AccessHandler) MyBookRequests(c *gin.Context) {
	reqs, err := h.accessService.ListMyBookRequests(middleware.CurrentUser(c))
	if err != nil {
		respondRequestError(c, err, "list book requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": reqs, "count": len(reqs)})
}

// ListBookRequests is the staff review queue, filterable by ?status=.
func (h *AccessHandler) ListBookRequests(c *gin.Context) {
	reqs, err := h.accessService.ListBookRequests(c.Query("status"))
	if err != nil {
		respondRequestError(c, err, "list book requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": reqs, "count": len(reqs)})
}

// ReviewBookRequest applies a staff verdict.
func (h *AccessHandler) ReviewBookRequest(c *gin.Context) {
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input services.ReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	req, err := h.accessService.ReviewBookRequest(requestID, input, middleware.CurrentUser(c))
	if err != nil {
		respondRequestError(c, err, "review book request")
		return
	}
	c.JSON(http.StatusOK, req)
}

// --- Upload review ---

// SubmitUploadRequest queues a book for content review.
func (h *AccessHandler) SubmitUploadRequest(c *gin.Context) {
	var input services.UploadRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	req, err := h.accessService.SubmitUploadRequest(input, middleware.CurrentUser(c))
	if err != nil {
		respondRequestError(c, err, "submit upload request")
		return
	}
	c.JSON(http.StatusCreated, req)
}

// ListUploadRequests is the content-approval queue, filterable by ?status=.
func (h *AccessHandler) ListUploadRequests(c *gin.Context) {
	reqs, err := h.accessService.ListUploadRequests(c.Query("status"))
	if err != nil {
		respondRequestError(c, err, "list upload requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": reqs, "count": len(reqs)})
}

// ReviewUploadRequest approves or rejects a book upload, flipping the book's
// approval flag.
func (h *AccessHandler) ReviewUploadRequest(c *gin.Context) {
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input services.ReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	req, err := h.accessService.ReviewUploadRequest(requestID, input, middleware.CurrentUser(c))
	if err != nil {
		respondRequestError(c, err, "review upload request")
		return
	}
	c.JSON(http.StatusOK, req)
}
