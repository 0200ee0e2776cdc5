package services

import (
	"database/sql"
	"errors"
	"fmt"

	"booknest_backend/internal/models"
	"booknest_backend/internal/repositories"
)

// --- Custom Service Errors ---
var (
	ErrCategoryNotFound    = errors.New("category not found")
	ErrSubcategoryNotFound = errors.New("subcategory not found")
	ErrLanguageNotFound    = errors.New("language not found")
	ErrLocationNotFound    = errors.New("location not found")
	ErrNameExists          = errors.New("an entry with this name already exists")
)

// --- Data Transfer Objects (DTOs) ---

// NamedInput covers the simple reference entities.
type NamedInput struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

// SubcategoryInput adds the parent category.
type SubcategoryInput struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
	CategoryID  int64   `json:"category_id" binding:"required"`
}

// LanguageInput carries a language with its optional ISO code.
type LanguageInput struct {
	Name string  `json:"name" binding:"required"`
	Code *string `json:"code"`
}

// --- CatalogService Interface ---

// CatalogService manages the reference tables: categories, subcategories,
// languages and shelf locations.
type CatalogService interface {
	CreateCategory(input NamedInput, actor *models.User) (*models.Category, error)
	ListCategories() ([]models.Category, error)
	UpdateCategory(categoryID int64, input NamedInput, actor *models.User) (*models.Category, error)
	DeleteCategory(categoryID int64, actor *models.User) error

	CreateSubcategory(input SubcategoryInput, actor *models.User) (*models.Subcategory, error)
	ListSubcategories(categoryID int64) ([]models.Subcategory, error)
	UpdateSubcategory(subcategoryID int64, input SubcategoryInput, actor *models.User) (*models.Subcategory, error)
	DeleteSubcategory(subcategoryID int64, actor *models.User) error

	CreateLanguage(input LanguageInput, actor *models.User) (*models.Language, error)
	ListLanguages() ([]models.Language, error)
	UpdateLanguage(languageID int64, input LanguageInput, actor *models.User) error
	DeleteLanguage(languageID int64, actor *models.User) error

	CreateLocation(input NamedInput, actor *models.User) (*models.Location, error)
	ListLocations() ([]models.Location, error)
	UpdateLocation(locationID int64, input NamedInput, actor *models.User) error
	DeleteLocation(locationID int64, actor *models.User) error
}

type catalogService struct {
	catalogRepo repositories.CatalogRepository
	logs        LogService
	db          *sql.DB
}

// NewCatalogService creates a new instance of CatalogService.
func NewCatalogService(catalogRepo repositories.CatalogRepository, logs LogService, db *sql.DB) CatalogService {
	return &catalogService{catalogRepo: catalogRepo, logs: logs, db: db}
}

func (s *catalogService) record(actor *models.User, action, description, targetType string, targetID int64) {
	s.logs.Record(actorIDOf(actor), action, description, &targetType, &targetID)
}

// --- Categories ---

func (s *catalogService) CreateCategory(input NamedInput, actor *models.User) (*models.Category, error) {
	cat := &models.Category{Name: input.Name, Description: input.Description}
	id, err := s.catalogRepo.CreateCategory(s.db, cat)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrNameExists
		}
		return nil, err
	}
	s.record(actor, "CATEGORY_CREATE", fmt.Sprintf("Created category %q", input.Name), "category", id)
	return s.catalogRepo.FindCategoryByID(id)
}

func (s *catalogService) ListCategories() ([]models.Category, error) {
	return s.catalogRepo.ListCategories()
}

func (s *catalogService) UpdateCategory(categoryID int64, input NamedInput, actor *models.User) (*models.Category, error) {
	cat := &models.Category{ID: categoryID, Name: input.Name, Description: input.Description}
	if err := s.catalogRepo.UpdateCategory(s.db, cat); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrCategoryNotFound
		case errors.Is(err, repositories.ErrDuplicateKey):
			return nil, ErrNameExists
		}
		return nil, err
	}
	s.record(actor, "CATEGORY_UPDATE", fmt.Sprintf("Updated category %d", categoryID), "category", categoryID)
	return s.catalogRepo.FindCategoryByID(categoryID)
}

func (s *catalogService) DeleteCategory(categoryID int64, actor *models.User) error {
	if err := s.catalogRepo.SoftDeleteCategory(s.db, categoryID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}
	s.record(actor, "CATEGORY_DELETE", fmt.Sprintf("Deleted category %d", categoryID), "category", categoryID)
	return nil
}

// --- Subcategories ---

func (s *catalogService) CreateSubcategory(input SubcategoryInput, actor *models.User) (*models.Subcategory, error) {
	if _, err := s.catalogRepo.FindCategoryByID(input.CategoryID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	sub := &models.Subcategory{Name: input.Name, Description: input.Description, CategoryID: input.CategoryID}
	id, err := s.catalogRepo.CreateSubcategory(s.db, sub)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrNameExists
		}
		return nil, err
	}
	s.record(actor, "SUBCATEGORY_CREATE", fmt.Sprintf("Created subcategory %q", input.Name), "subcategory", id)
	return s.catalogRepo.FindSubcategoryByID(id)
}

func (s *catalogService) ListSubcategories(categoryID int64) ([]models.Subcategory, error) {
	return s.catalogRepo.ListSubcategories(categoryID)
}

func (s *catalogService) UpdateSubcategory(subcategoryID int64, input SubcategoryInput, actor *models.User) (*models.Subcategory, error) {
	sub := &models.Subcategory{ID: subcategoryID, Name: input.Name, Description: input.Description, CategoryID: input.CategoryID}
	if err := s.catalogRepo.UpdateSubcategory(s.db, sub); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrSubcategoryNotFound
		case errors.Is(err, repositories.ErrDuplicateKey):
			return nil, ErrNameExists
		}
		return nil, err
	}
	s.record(actor, "SUBCATEGORY_UPDATE", fmt.Sprintf("Updated subcategory %d", subcategoryID), "subcategory", subcategoryID)
	return s.catalogRepo.FindSubcategoryByID(subcategoryID)
}

func (s *catalogService) DeleteSubcategory(subcategoryID int64, actor *models.User) error {
	if err := s.catalogRepo.SoftDeleteSubcategory(s.db, subcategoryID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrSubcategoryNotFound
		}
		return err
	}
	s.record(actor, "SUBCATEGORY_DELETE", fmt.Sprintf("Deleted subcategory %d", subcategoryID), "subcategory", subcategoryID)
	return nil
}

// --- Languages ---

func (s *catalogService) CreateLanguage(input LanguageInput, actor *models.User) (*models.Language, error) {
	lang := &models.Language{Name: input.Name, Code: input.Code}
	id, err := s.catalogRepo.CreateLanguage(s.db, lang)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrNameExists
		}
		return nil, err
	}
	lang.ID = id
	s.record(actor, "LANGUAGE_CREATE", fmt.Sprintf("Created language %q", input.Name), "language", id)
	return lang, nil
}

func (s *catalogService) ListLanguages() ([]models.Language, error) {
	return s.catalogRepo.ListLanguages()
}

func (s *catalogService) UpdateLanguage(languageID int64, input LanguageInput, actor *models.User) error {
	lang := &models.Language{ID: languageID, Name: input.Name, Code: input.Code}
	if err := s.catalogRepo.UpdateLanguage(s.db, lang); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return ErrLanguageNotFound
		case errors.Is(err, repositories.ErrDuplicateKey):
			return ErrNameExists
		}
		return err
	}
	s.record(actor, "LANGUAGE_UPDATE", fmt.Sprintf("Updated language %d", languageID), "language", languageID)
	return nil
}

func (s *catalogService) DeleteLanguage(languageID int64, actor *models.User) error {
	if err := s.catalogRepo.SoftDeleteLanguage(s.db, languageID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrLanguageNotFound
		}
		return err
	}
	s.record(actor, "LANGUAGE_DELETE", fmt.Sprintf("Deleted language %d", languageID), "language", languageID)
	return nil
}

// --- Locations ---

func (s *catalogService) CreateLocation(input NamedInput, actor *models.User) (*models.Location, error) {
	loc := &models.Location{Name: input.Name, Description: input.Description}
	id, err := s.catalogRepo.CreateLocation(s.db, loc)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrNameExists
		}
		return nil, err
	}
	s.record(actor, "LOCATION_CREATE", fmt.Sprintf("Created location %q", input.Name), "location", id)
	return s.catalogRepo.FindLocationByID(id)
}

func (s *catalogService) ListLocations() ([]models.Location, error) {
	return s.catalogRepo.ListLocations()
}

func (s *catalogService) UpdateLocation(locationID int64, input NamedInput, actor *models.User) error {
	loc := &models.Location{ID: locationID, Name: input.Name, Description: input.Description}
	if err := s.catalogRepo.UpdateLocation(s.db, loc); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return ErrLocationNotFound
		case errors.Is(err, repositories.ErrDuplicateKey):
			return ErrNameExists
		}
		return err
	}
	s.record(actor, "LOCATION_UPDATE", fmt.Sprintf("Updated location %d", locationID), "location", locationID)
	return nil
}

func (s *catalogService) DeleteLocation(locationID int64, actor *models.User) error {
	if err := s.catalogRepo.SoftDeleteLocation(s.db, locationID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrLocationNotFound
		}
		return err
	}
	s.record(actor, "LOCATION_DELETE", fmt.Sprintf("Deleted location %d", locationID), "location", locationID)
	return nil
}
