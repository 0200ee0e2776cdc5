package handlers

import (
	"errors"
	"net/http"

	"booknest_backend/internal/middleware"
	"booknest_backend/internal/services"
	"booknest_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// IssueHandler holds the circulation service.
type IssueHandler struct {
	issueService services.IssueService
}

// NewIssueHandler creates a new IssueHandler.
func NewIssueHandler(is services.IssueService) *IssueHandler {
	return &IssueHandler{issueService: is}
}

func respondIssueError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, services.ErrBookNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrCopyNotFound),
		errors.Is(err, services.ErrIssueNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Record not found.", err.Error()))
	case errors.Is(err, services.ErrCopyNotAvailable):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Book copy is not available for issue.", err.Error()))
	case errors.Is(err, services.ErrAlreadyReturned):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Book copy already returned.", err.Error()))
	default:
		utils.LogError(err, "IssueHandler: failed to "+action)
		internalError(c, action)
	}
}

// AddCopy registers a physical copy.
func (h *IssueHandler) AddCopy(c *gin.Context) {
	var input services.CopyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	copy, err := h.issueService.AddCopy(input, middleware.CurrentUser(c))
	if err != nil {
		respondIssueError(c, err, "add copy")
		return
	}
	c.JSON(http.StatusCreated, copy)
}

// ListCopies lists copies of a book.
func (h *IssueHandler) ListCopies(c *gin.Context) {
	bookID, ok := pathID(c, "id")
	if !ok {
		return
	}
	copies, err := h.issueService.ListCopies(bookID)
	if err != nil {
		respondIssueError(c, err, "list copies")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": copies, "count": len(copies)})
}

// RemoveCopy soft-deletes a copy.
func (h *IssueHandler) RemoveCopy(c *gin.Context) {
	copyID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.issueService.RemoveCopy(copyID, middleware.CurrentUser(c)); err != nil {
		respondIssueError(c, err, "remove copy")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Copy removed."})
}

// IssueBook lends a copy to a user.
func (h *IssueHandler) IssueBook(c *gin.Context) {
	var input services.IssueInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	issue, err := h.issueService.IssueBook(input, middleware.CurrentUser(c))
	if err != nil {
		respondIssueError(c, err, "issue book")
		return
	}
	c.JSON(http.StatusCreated, issue)
}

// ReturnBook closes an issue record.
func (h *IssueHandler) ReturnBook(c *gin.Context) {
	issueID, ok := pathID(c, "id")
	if !ok {
		return
	}
	issue, err := h.issueService.ReturnBook(issueID, middleware.CurrentUser(c))
	if err != nil {
		respondIssueError(c, err, "return book")
		return
	}
	c.JSON(http.StatusOK, issue)
}

// ListIssues is the staff circulation view, filterable by ?status=.
func (h *IssueHandler) ListIssues(c *gin.Context) {
	issues, err := h.issueService.ListIssues(c.Query("status"))
	if err != nil {
		respondIssueError(c, err, "list issues")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": issues, "count": len(issues)})
}

// MyIssues lists the caller's borrowed books.
func (h *IssueHandler) MyIssues(c *gin.Context) {
	user := middleware.CurrentUser(c)
	issues, err := h.issueService.ListUserIssues(user.ID)
	if err != nil {
		respondIssueError(c, err, "list issues")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": issues, "count": len(issues)})
}
