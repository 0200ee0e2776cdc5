package handlers

import (
	"errors"
	"net/http"

	"booknest_backend/internal/middleware"
	"booknest_backend/internal/services"
	"booknest_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// CatalogHandler holds the catalog service.
type CatalogHandler struct {
	catalogService services.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(cs services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: cs}
}

func respondCatalogError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, services.ErrCategoryNotFound),
		errors.Is(err, services.ErrSubcategoryNotFound),
		errors.Is(err, services.ErrLanguageNotFound),
		errors.Is(err, services.ErrLocationNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Entry not found.", err.Error()))
	case errors.Is(err, services.ErrNameExists):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "An entry with this name already exists.", err.Error()))
	default:
		utils.LogError(err, "CatalogHandler: failed to "+action)
		internalError(c, action)
	}
}

// --- Categories ---

func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var input services.NamedInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	cat, err := h.catalogService.CreateCategory(input, middleware.CurrentUser(c))
	if err != nil {
		respondCatalogError(c, err, "create category")
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (h *CatalogHandler) ListCategories(c *gin.Context) {
	cats, err := h.catalogService.ListCategories()
	if err != nil {
		respondCatalogError(c, err, "list categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": cats, "count": len(cats)})
}

func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input services.NamedInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	cat, err := h.catalogService.UpdateCategory(id, input, middleware.CurrentUser(c))
	if err != nil {
		respondCatalogError(c, err, "update category")
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteCategory(id, middleware.CurrentUser(c)); err != nil {
		respondCatalogError(c, err, "delete category")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted."})
}

// --- Subcategories ---

func (h *CatalogHandler) CreateSubcategory(c *gin.Context) {
	var input services.SubcategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	sub, err := h.catalogService.CreateSubcategory(input, middleware.CurrentUser(c))
	if err != nil {
		respondCatalogError(c, err, "create subcategory")
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *CatalogHandler) ListSubcategories(c *gin.Context) {
	subs, err := h.catalogService.ListSubcategories(queryInt64(c, "category_id", 0))
	if err != nil {
		respondCatalogError(c, err, "list subcategories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": subs, "count": len(subs)})
}

func (h *CatalogHandler) UpdateSubcategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input services.SubcategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	sub, err := h.catalogService.UpdateSubcategory(id, input, middleware.CurrentUser(c))
	if err != nil {
		respondCatalogError(c, err, "update subcategory")
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *CatalogHandler) DeleteSubcategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteSubcategory(id, middleware.CurrentUser(c)); err != nil {
		respondCatalogError(c, err, "delete subcategory")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Subcategory deleted."})
}

// --- Languages ---

func (h *CatalogHandler) CreateLanguage(c *gin.Context) {
	var input services.LanguageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	lang, err := h.catalogService.CreateLanguage(input, middleware.CurrentUser(c))
	if err != nil {
		respondCatalogError(c, err, "create language")
		return
	}
	c.JSON(http.StatusCreated, lang)
}

func (h *CatalogHandler) ListLanguages(c *gin.Context) {
	langs, err := h.catalogService.ListLanguages()
	if err != nil {
		respondCatalogError(c, err, "list languages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": langs, "count": len(langs)})
}

func (h *CatalogHandler) UpdateLanguage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input services.LanguageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	if err := h.catalogService.UpdateLanguage(id, input, middleware.CurrentUser(c)); err != nil {
		respondCatalogError(c, err, "update language")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Language updated."})
}

func (h *CatalogHandler) DeleteLanguage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteLanguage(id, middleware.CurrentUser(c)); err != nil {
		respondCatalogError(c, err, "delete language")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Language deleted."})
}

// --- Locations ---

func (h *CatalogHandler) CreateLocation(c *gin.Context) {
	var input services.NamedInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	loc, err := h.catalogService.CreateLocation(input, middleware.CurrentUser(c))
	if err != nil {
		respondCatalogError(c, err, "create location")
		return
	}
	c.JSON(http.StatusCreated, loc)
}

func (h *CatalogHandler) ListLocations(c *gin.Context) {
	locs, err := h.catalogService.ListLocations()
	if err != nil {
		respondCatalogError(c, err, "list locations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": locs, "count": len(locs)})
}

func (h *CatalogHandler) UpdateLocation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input services.NamedInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	if err := h.catalogService.UpdateLocation(id, input, middleware.CurrentUser(c)); err != nil {
		respondCatalogError(c, err, "update location")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Location updated."})
}

func (h *CatalogHandler) DeleteLocation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteLocation(id, middleware.CurrentUser(c)); err != nil {
		respondCatalogError(c, err, "delete location")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Location deleted."})
}
