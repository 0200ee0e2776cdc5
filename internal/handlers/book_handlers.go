package handlers

import (
	"errors"
	"net/http"

	"booknest_backend/internal/middleware"
	"booknest_backend/internal/repositories"
	"booknest_backend/internal/services"
	"booknest_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// BookHandler holds the book service.
type BookHandler struct {
	bookService services.BookService
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(bs services.BookService) *BookHandler {
	return &BookHandler{bookService: bs}
}

// ListBooks returns the catalog slice visible to the caller. Anonymous and
// authenticated callers both land here; the service decides what they see.
func (h *BookHandler) ListBooks(c *gin.Context) {
	filter := repositories.BookFilter{
		Search:     c.Query("search"),
		CategoryID: queryInt64(c, "subcategory_id", 0),
		LanguageID: queryInt64(c, "language_id", 0),
		Skip:       queryInt64(c, "skip", 0),
		Limit:      queryInt64(c, "limit", 100),
	}

	books, err := h.bookService.ListBooks(filter, middleware.CurrentUser(c))
	if err != nil {
		utils.LogError(err, "ListBooks: Error from bookService.ListBooks")
		internalError(c, "list books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": books, "count": len(books)})
}

// GetBook returns one book with the caller's access resolved. Restricted
// books without an access path come back 403; unapproved books 404 unless the
// caller is an admin.
func (h *BookHandler) GetBook(c *gin.Context) {
	bookID, ok := pathID(c, "id")
	if !ok {
		return
	}

	book, err := h.bookService.GetBook(bookID, middleware.CurrentUser(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookNotFound):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Book not found.", err.Error()))
		case errors.Is(err, services.ErrBookAccessDenied):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "Access to this book is restricted.", err.Error()))
		default:
			utils.LogError(err, "GetBook: Error from bookService.GetBook")
			internalError(c, "load book")
		}
		return
	}
	c.JSON(http.StatusOK, book)
}

// CreateBook adds a catalog entry, unapproved until staff review it.
func (h *BookHandler) CreateBook(c *gin.Context) {
	var input services.BookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	book, err := h.bookService.CreateBook(input, middleware.CurrentUser(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTitleRequired):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Book title is required.", err.Error()))
		case errors.Is(err, services.ErrDuplicateISBN):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "A book with this ISBN already exists.", err.Error()))
		default:
			utils.LogError(err, "CreateBook: Error from bookService.CreateBook")
			internalError(c, "create book")
		}
		return
	}
	c.JSON(http.StatusCreated, book)
}

// UpdateBook edits a book and resets its approval.
func (h *BookHandler) UpdateBook(c *gin.Context) {
	bookID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input services.BookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	book, err := h.bookService.UpdateBook(bookID, input, middleware.CurrentUser(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookNotFound):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Book not found.", err.Error()))
		case errors.Is(err, services.ErrTitleRequired):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Book title is required.", err.Error()))
		case errors.Is(err, services.ErrDuplicateISBN):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "A book with this ISBN already exists.", err.Error()))
		default:
			utils.LogError(err, "UpdateBook: Error from bookService.UpdateBook")
			internalError(c, "update book")
		}
		return
	}
	c.JSON(http.StatusOK, book)
}

// DeleteBook soft-deletes a catalog entry.
func (h *BookHandler) DeleteBook(c *gin.Context) {
	bookID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.bookService.DeleteBook(bookID, middleware.CurrentUser(c)); err != nil {
		if errors.Is(err, services.ErrBookNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Book not found.", err.Error()))
		} else {
			utils.LogError(err, "DeleteBook: Error from bookService.DeleteBook")
			internalError(c, "delete book")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Book deleted."})
}

// GrantAccessRequest DTO.
type GrantAccessRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

// GrantAccess creates a direct grant on a restricted book.
func (h *BookHandler) GrantAccess(c *gin.Context) {
	bookID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req GrantAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	err := h.bookService.GrantBookAccess(bookID, req.UserID, middleware.CurrentUser(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookNotFound):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Book not found.", err.Error()))
		case errors.Is(err, services.ErrUserNotFound):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "User not found.", err.Error()))
		default:
			utils.LogError(err, "GrantAccess: Error from bookService.GrantBookAccess")
			internalError(c, "grant access")
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Access granted."})
}
