package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"booknest_backend/internal/models"

	"github.com/lib/pq"
)

// CatalogRepository covers the reference tables books hang off: categories,
// subcategories, languages and shelf locations.
type CatalogRepository interface {
	CreateCategory(executor SQLExecutor, cat *models.Category) (int64, error)
	FindCategoryByID(categoryID int64) (*models.Category, error)
	ListCategories() ([]models.Category, error)
	UpdateCategory(executor SQLExecutor, cat *models.Category) error
	SoftDeleteCategory(executor SQLExecutor, categoryID int64) error

	CreateSubcategory(executor SQLExecutor, sub *models.Subcategory) (int64, error)
	FindSubcategoryByID(subcategoryID int64) (*models.Subcategory, error)
	ListSubcategories(categoryID int64) ([]models.Subcategory, error)
	UpdateSubcategory(executor SQLExecutor, sub *models.Subcategory) error
	SoftDeleteSubcategory(executor SQLExecutor, subcategoryID int64) error

	CreateLanguage(executor SQLExecutor, lang *models.Language) (int64, error)
	ListLanguages() ([]models.Language, error)
	UpdateLanguage(executor SQLExecutor, lang *models.Language) error
	SoftDeleteLanguage(executor SQLExecutor, languageID int64) error

	CreateLocation(executor SQLExecutor, loc *models.Location) (int64, error)
	FindLocationByID(locationID int64) (*models.Location, error)
	ListLocations() ([]models.Location, error)
	UpdateLocation(executor SQLExecutor, loc *models.Location) error
	SoftDeleteLocation(executor SQLExecutor, locationID int64) error
}

type catalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository creates a new instance of CatalogRepository.
func NewCatalogRepository(db *sql.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func wrapUnique(err error, context string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, pqErr.Message)
	}
	return fmt.Errorf("%w: %s: %v", ErrDatabaseError, context, err)
}

// --- Categories ---

func (r *catalogRepository) CreateCategory(executor SQLExecutor, cat *models.Category) (int64, error) {
	now := time.Now()
	var id int64
	err := executor.QueryRow(
		`INSERT INTO categories (name, description, created_at, updated_at) VALUES ($1, $2, $3, $3) RETURNING id`,
		cat.Name, cat.Description, now,
	).Scan(&id)
	if err != nil {
		return 0, wrapUnique(err, "creating category")
	}
	return id, nil
}

func (r *catalogRepository) scanCategory(row scanner) (*models.Category, error) {
	cat := &models.Category{}
	var description sql.NullString
	var deletedAt sql.NullTime
	err := row.Scan(&cat.ID, &cat.Name, &description, &cat.CreatedAt, &cat.UpdatedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning category: %v", ErrDatabaseError, err)
	}
	if description.Valid {
		cat.Description = &description.String
	}
	if deletedAt.Valid {
		cat.DeletedAt = &deletedAt.Time
	}
	return cat, nil
}

func (r *catalogRepository) FindCategoryByID(categoryID int64) (*models.Category, error) {
	cat, err := r.scanCategory(r.db.QueryRow(
		`SELECT id, name, description, created_at, updated_at, deleted_at
		 FROM categories WHERE id = $1 AND deleted_at IS NULL`,
		categoryID,
	))
	if err != nil {
		return nil, err
	}
	subs, err := r.ListSubcategories(categoryID)
	if err != nil {
		return nil, err
	}
	cat.Subcategories = subs
	return cat, nil
}

// ListCategories returns active categories with their subcategories attached.
func (r *catalogRepository) ListCategories() ([]models.Category, error) {
	rows, err := r.db.Query(
		`SELECT id, name, description, created_at, updated_at, deleted_at
		 FROM categories WHERE deleted_at IS NULL ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: listing categories: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var cats []models.Category
	for rows.Next() {
		cat, err := r.scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, *cat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range cats {
		subs, err := r.ListSubcategories(cats[i].ID)
		if err != nil {
			return nil, err
		}
		cats[i].Subcategories = subs
	}
	return cats, nil
}

func (r *catalogRepository) UpdateCategory(executor SQLExecutor, cat *models.Category) error {
	res, err := executor.Exec(
		`UPDATE categories SET name = $1, description = $2, updated_at = $3 WHERE id = $4 AND deleted_at IS NULL`,
		cat.Name, cat.Description, time.Now(), cat.ID,
	)
	if err != nil {
		return wrapUnique(err, fmt.Sprintf("updating category %d", cat.ID))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *catalogRepository) SoftDeleteCategory(executor SQLExecutor, categoryID int64) error {
	return r.softDelete(executor, "categories", categoryID)
}

// --- Subcategories ---

func (r *catalogRepository) CreateSubcategory(executor SQLExecutor, sub *models.Subcategory) (int64, error) {
	now := time.Now()
	var id int64
	err := executor.QueryRow(
		`INSERT INTO subcategories (name, description, category_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4) RETURNING id`,
		sub.Name, sub.Description, sub.CategoryID, now,
	).Scan(&id)
	if err != nil {
		return 0, wrapUnique(err, "creating subcategory")
	}
	return id, nil
}

func (r *catalogRepository) scanSubcategory(row scanner) (*models.Subcategory, error) {
	sub := &models.Subcategory{}
	var description sql.NullString
	var deletedAt sql.NullTime
	err := row.Scan(&sub.ID, &sub.Name, &description, &sub.CategoryID, &sub.CreatedAt, &sub.UpdatedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning subcategory: %v", ErrDatabaseError, err)
	}
	if description.Valid {
		sub.Description = &description.String
	}
	if deletedAt.Valid {
		sub.DeletedAt = &deletedAt.Time
	}
	return sub, nil
}

func (r *catalogRepository) FindSubcategoryByID(subcategoryID int64) (*models.Subcategory, error) {
	return r.scanSubcategory(r.db.QueryRow(
		`SELECT id, name, description, category_id, created_at, updated_at, deleted_at
		 FROM subcategories WHERE id = $1 AND deleted_at IS NULL`,
		subcategoryID,
	))
}

// ListSubcategories filters by category when categoryID > 0.
func (r *catalogRepository) ListSubcategories(categoryID int64) ([]models.Subcategory, error) {
	query := `SELECT id, name, description, category_id, created_at, updated_at, deleted_at
	          FROM subcategories WHERE deleted_at IS NULL`
	args := []interface{}{}
	if categoryID > 0 {
		query += ` AND category_id = $1`
		args = append(args, categoryID)
	}
	query += ` ORDER BY name`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing subcategories: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var subs []models.Subcategory
	for rows.Next() {
		sub, err := r.scanSubcategory(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (r *catalogRepository) UpdateSubcategory(executor SQLExecutor, sub *models.Subcategory) error {
	res, err := executor.Exec(
		`UPDATE subcategories SET name = $1, description = $2, category_id = $3, updated_at = $4
		 WHERE id = $5 AND deleted_at IS NULL`,
		sub.Name, sub.Description, sub.CategoryID, time.Now(), sub.ID,
	)
	if err != nil {
		return wrapUnique(err, fmt.Sprintf("updating subcategory %d", sub.ID))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *catalogRepository) SoftDeleteSubcategory(executor SQLExecutor, subcategoryID int64) error {
	return r.softDelete(executor, "subcategories", subcategoryID)
}

// --- Languages ---

func (r *catalogRepository) CreateLanguage(executor SQLExecutor, lang *models.Language) (int64, error) {
	now := time.Now()
	var id int64
	err := executor.QueryRow(
		`INSERT INTO languages (name, code, created_at, updated_at) VALUES ($1, $2, $3, $3) RETURNING id`,
		lang.Name, lang.Code, now,
	).Scan(&id)
	if err != nil {
		return 0, wrapUnique(err, "creating language")
	}
	return id, nil
}

func (r *catalogRepository) ListLanguages() ([]models.Language, error) {
	rows, err := r.db.Query(
		`SELECT id, name, code, created_at, updated_at, deleted_at
		 FROM languages WHERE deleted_at IS NULL ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: listing languages: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var langs []models.Language
	for rows.Next() {
		lang := models.Language{}
		var code sql.NullString
		var deletedAt sql.NullTime
		if err := rows.Scan(&lang.ID, &lang.Name, &code, &lang.CreatedAt, &lang.UpdatedAt, &deletedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning language: %v", ErrDatabaseError, err)
		}
		if code.Valid {
			lang.Code = &code.String
		}
		if deletedAt.Valid {
			lang.DeletedAt = &deletedAt.Time
		}
		langs = append(langs, lang)
	}
	return langs, rows.Err()
}

func (r *catalogRepository) UpdateLanguage(executor SQLExecutor, lang *models.Language) error {
	res, err := executor.Exec(
		`UPDATE languages SET name = $1, code = $2, updated_at = $3 WHERE id = $4 AND deleted_at IS NULL`,
		lang.Name, lang.Code, time.Now(), lang.ID,
	)
	if err != nil {
		return wrapUnique(err, fmt.Sprintf("updating language %d", lang.ID))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *catalogRepository) SoftDeleteLanguage(executor SQLExecutor, languageID int64) error {
	return r.softDelete(executor, "languages", languageID)
}

// --- Locations ---

func (r *catalogRepository) CreateLocation(executor SQLExecutor, loc *models.Location) (int64, error) {
	now := time.Now()
	var id int64
	err := executor.QueryRow(
		`INSERT INTO locations (name, description, created_at, updated_at) VALUES ($1, $2, $3, $3) RETURNING id`,
		loc.Name, loc.Description, now,
	).Scan(&id)
	if err != nil {
		return 0, wrapUnique(err, "creating location")
	}
	return id, nil
}

func (r *catalogRepository) FindLocationByID(locationID int64) (*models.Location, error) {
	loc := &models.Location{}
	var description sql.NullString
	var deletedAt sql.NullTime
	err := r.db.QueryRow(
		`SELECT id, name, description, created_at, updated_at, deleted_at
		 FROM locations WHERE id = $1 AND deleted_at IS NULL`,
		locationID,
	).Scan(&loc.ID, &loc.Name, &description, &loc.CreatedAt, &loc.UpdatedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding location %d: %v", ErrDatabaseError, locationID, err)
	}
	if description.Valid {
		loc.Description = &description.String
	}
	if deletedAt.Valid {
		loc.DeletedAt = &deletedAt.Time
	}
	return loc, nil
}

func (r *catalogRepository) ListLocations() ([]models.Location, error) {
	rows, err := r.db.Query(
		`SELECT id, name, description, created_at, updated_at, deleted_at
		 FROM locations WHERE deleted_at IS NULL ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: listing locations: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var locs []models.Location
	for rows.Next() {
		loc := models.Location{}
		var description sql.NullString
		var deletedAt sql.NullTime
		if err := rows.Scan(&loc.ID, &loc.Name, &description, &loc.CreatedAt, &loc.UpdatedAt, &deletedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning location: %v", ErrDatabaseError, err)
		}
		if description.Valid {
			loc.Description = &description.String
		}
		if deletedAt.Valid {
			loc.DeletedAt = &deletedAt.Time
		}
		locs = append(locs, loc)
	}
	return locs, rows.Err()
}

func (r *catalogRepository) UpdateLocation(executor SQLExecutor, loc *models.Location) error {
	res, err := executor.Exec(
		`UPDATE locations SET name = $1, description = $2, updated_at = $3 WHERE id = $4 AND deleted_at IS NULL`,
		loc.Name, loc.Description, time.Now(), loc.ID,
	)
	if err != nil {
		return wrapUnique(err, fmt.Sprintf("updating location %d", loc.ID))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *catalogRepository) SoftDeleteLocation(executor SQLExecutor, locationID int64) error {
	return r.softDelete(executor, "locations", locationID)
}

func (r *catalogRepository) softDelete(executor SQLExecutor, table string, id int64) error {
	res, err := executor.Exec(
		`UPDATE `+table+` SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("%w: deleting from %s: %v", ErrDatabaseError, table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
