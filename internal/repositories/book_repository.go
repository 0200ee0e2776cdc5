package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"booknest_backend/internal/models"

	"github.com/lib/pq"
)

// BookFilter narrows ListBooks results.
type BookFilter struct {
	Search       string // matches title, author or ISBN, case-insensitive
	CategoryID   int64  // subcategory membership
	LanguageID   int64
	ApprovedOnly bool
	Skip         int64
	Limit        int64
}

// BookRepository defines catalog database operations for books.
type BookRepository interface {
	CreateBook(executor SQLExecutor, book *models.Book) (int64, error)
	FindBookByID(bookID int64) (*models.Book, error)
	ListBooks(filter BookFilter) ([]models.Book, error)
	UpdateBook(executor SQLExecutor, book *models.Book) error
	SetApproval(executor SQLExecutor, bookID int64, approved bool) error
	SetSubcategories(executor SQLExecutor, bookID int64, subcategoryIDs []int64) error
	SoftDeleteBook(executor SQLExecutor, bookID int64) error
	ISBNExists(isbn string, excludeBookID int64) (bool, error)
}

type bookRepository struct {
	db *sql.DB
}

// NewBookRepository creates a new instance of BookRepository.
func NewBookRepository(db *sql.DB) BookRepository {
	return &bookRepository{db: db}
}

const bookSelectColumns = `b.id, b.title, b.author, b.publisher, b.translator, b.isbn, b.edition,
	       b.parts_or_volumes, b.subject_number, b.serial_number, b.book_number,
	       b.language_id, b.location_id, b.page_count, b.price, b.published_date, b.date_of_purchase,
	       b.description, b.remarks, b.is_digital, b.cover_image_url, b.pdf_url,
	       b.is_approved, b.is_restricted, b.total_copies, b.available_copies,
	       b.created_at, b.updated_at, b.deleted_at,
	       l.id, l.name, l.code`

func scanBook(row scanner) (*models.Book, error) {
	b := &models.Book{}
	var author, publisher, translator, isbn, edition, parts, subjectNum, serialNum, bookNum sql.NullString
	var description, remarks, coverURL, pdfURL sql.NullString
	var languageID, locationID, pageCount sql.NullInt64
	var price sql.NullFloat64
	var publishedDate, purchaseDate, deletedAt sql.NullTime
	var langID sql.NullInt64
	var langName, langCode sql.NullString

	err := row.Scan(
		&b.ID, &b.Title, &author, &publisher, &translator, &isbn, &edition,
		&parts, &subjectNum, &serialNum, &bookNum,
		&languageID, &locationID, &pageCount, &price, &publishedDate, &purchaseDate,
		&description, &remarks, &b.IsDigital, &coverURL, &pdfURL,
		&b.IsApproved, &b.IsRestricted, &b.TotalCopies, &b.AvailableCopies,
		&b.CreatedAt, &b.UpdatedAt, &deletedAt,
		&langID, &langName, &langCode,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning book: %v", ErrDatabaseError, err)
	}

	setNullString := func(dst **string, src sql.NullString) {
		if src.Valid {
			v := src.String
			*dst = &v
		}
	}
	setNullString(&b.Author, author)
	setNullString(&b.Publisher, publisher)
	setNullString(&b.Translator, translator)
	setNullString(&b.ISBN, isbn)
	setNullString(&b.Edition, edition)
	setNullString(&b.PartsOrVolumes, parts)
	setNullString(&b.SubjectNumber, subjectNum)
	setNullString(&b.SerialNumber, serialNum)
	setNullString(&b.BookNumber, bookNum)
	setNullString(&b.Description, description)
	setNullString(&b.Remarks, remarks)
	setNullString(&b.CoverImageURL, coverURL)
	setNullString(&b.PDFURL, pdfURL)

	if languageID.Valid {
		b.LanguageID = &languageID.Int64
	}
	if locationID.Valid {
		b.LocationID = &locationID.Int64
	}
	if pageCount.Valid {
		b.PageCount = &pageCount.Int64
	}
	if price.Valid {
		b.Price = &price.Float64
	}
	if publishedDate.Valid {
		b.PublishedDate = &publishedDate.Time
	}
	if purchaseDate.Valid {
		b.DateOfPurchase = &purchaseDate.Time
	}
	if deletedAt.Valid {
		b.DeletedAt = &deletedAt.Time
	}
	if langID.Valid && langName.Valid {
		lang := &models.Language{ID: langID.Int64, Name: langName.String}
		if langCode.Valid {
			lang.Code = &langCode.String
		}
		b.Language = lang
	}
	return b, nil
}

func (r *bookRepository) CreateBook(executor SQLExecutor, book *models.Book) (int64, error) {
	now := time.Now()
	query := `INSERT INTO books (
	            title, author, publisher, translator, isbn, edition, parts_or_volumes,
	            subject_number, serial_number, book_number, language_id, location_id,
	            page_count, price, published_date, date_of_purchase, description, remarks,
	            is_digital, cover_image_url, pdf_url, is_approved, is_restricted,
	            total_copies, available_copies, created_at, updated_at)
	          VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)
	          RETURNING id`

	var id int64
	err := executor.QueryRow(query,
		book.Title, book.Author, book.Publisher, book.Translator, book.ISBN, book.Edition, book.PartsOrVolumes,
		book.SubjectNumber, book.SerialNumber, book.BookNumber, book.LanguageID, book.LocationID,
		book.PageCount, book.Price, book.PublishedDate, book.DateOfPurchase, book.Description, book.Remarks,
		book.IsDigital, book.CoverImageURL, book.PDFURL, book.IsApproved, book.IsRestricted,
		book.TotalCopies, book.AvailableCopies, now, now,
	).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("%w: %s (constraint: %s)", ErrDuplicateKey, pqErr.Message, pqErr.Constraint)
		}
		return 0, fmt.Errorf("%w: creating book: %v", ErrDatabaseError, err)
	}
	return id, nil
}

// loadSubcategories attaches the book's subcategories with their categories.
func (r *bookRepository) loadSubcategories(book *models.Book) error {
	rows, err := r.db.Query(`
		SELECT s.id, s.name, s.description, s.category_id, s.created_at, s.updated_at,
		       c.id, c.name
		FROM subcategories s
		JOIN book_subcategory_link bs ON bs.subcategory_id = s.id
		LEFT JOIN categories c ON s.category_id = c.id
		WHERE bs.book_id = $1 AND s.deleted_at IS NULL
		ORDER BY s.id`, book.ID)
	if err != nil {
		return fmt.Errorf("%w: loading subcategories for book %d: %v", ErrDatabaseError, book.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.Subcategory
		var description sql.NullString
		var catID sql.NullInt64
		var catName sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &description, &s.CategoryID, &s.CreatedAt, &s.UpdatedAt, &catID, &catName); err != nil {
			return fmt.Errorf("%w: scanning subcategory: %v", ErrDatabaseError, err)
		}
		if description.Valid {
			s.Description = &description.String
		}
		if catID.Valid && catName.Valid {
			s.Category = &models.Category{ID: catID.Int64, Name: catName.String}
		}
		book.Subcategories = append(book.Subcategories, s)
	}
	return rows.Err()
}

func (r *bookRepository) FindBookByID(bookID int64) (*models.Book, error) {
	query := `
		SELECT ` + bookSelectColumns + `
		FROM books b
		LEFT JOIN languages l ON b.language_id = l.id AND l.deleted_at IS NULL
		WHERE b.id = $1 AND b.deleted_at IS NULL`

	book, err := scanBook(r.db.QueryRow(query, bookID))
	if err != nil {
		return nil, err
	}
	if err := r.loadSubcategories(book); err != nil {
		return nil, err
	}
	return book, nil
}

func (r *bookRepository) ListBooks(filter BookFilter) ([]models.Book, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	query := `
		SELECT ` + bookSelectColumns + `
		FROM books b
		LEFT JOIN languages l ON b.language_id = l.id AND l.deleted_at IS NULL
		WHERE b.deleted_at IS NULL`
	args := []interface{}{}
	idx := 1

	if filter.ApprovedOnly {
		query += ` AND b.is_approved = TRUE`
	}
	if filter.Search != "" {
		query += fmt.Sprintf(` AND (b.title ILIKE $%d OR b.author ILIKE $%d OR b.isbn ILIKE $%d)`, idx, idx, idx)
		args = append(args, "%"+filter.Search+"%")
		idx++
	}
	if filter.CategoryID > 0 {
		query += fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM book_subcategory_link bs WHERE bs.book_id = b.id AND bs.subcategory_id = $%d)`, idx)
		args = append(args, filter.CategoryID)
		idx++
	}
	if filter.LanguageID > 0 {
		query += fmt.Sprintf(` AND b.language_id = $%d`, idx)
		args = append(args, filter.LanguageID)
		idx++
	}
	query += fmt.Sprintf(` ORDER BY b.id DESC OFFSET $%d LIMIT $%d`, idx, idx+1)
	args = append(args, filter.Skip, filter.Limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing books: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *book)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range books {
		if err := r.loadSubcategories(&books[i]); err != nil {
			return nil, err
		}
	}
	return books, nil
}

func (r *bookRepository) UpdateBook(executor SQLExecutor, book *models.Book) error {
	query := `UPDATE books SET
	            title = $1, author = $2, publisher = $3, translator = $4, isbn = $5, edition = $6,
	            parts_or_volumes = $7, subject_number = $8, language_id = $9, location_id = $10,
	            page_count = $11, price = $12, published_date = $13, date_of_purchase = $14,
	            description = $15, remarks = $16, is_digital = $17, cover_image_url = $18, pdf_url = $19,
	            is_approved = $20, is_restricted = $21, total_copies = $22, available_copies = $23,
	            updated_at = $24
	          WHERE id = $25 AND deleted_at IS NULL`

	res, err := executor.Exec(query,
		book.Title, book.Author, book.Publisher, book.Translator, book.ISBN, book.Edition,
		book.PartsOrVolumes, book.SubjectNumber, book.LanguageID, book.LocationID,
		book.PageCount, book.Price, book.PublishedDate, book.DateOfPurchase,
		book.Description, book.Remarks, book.IsDigital, book.CoverImageURL, book.PDFURL,
		book.IsApproved, book.IsRestricted, book.TotalCopies, book.AvailableCopies,
		time.Now(), book.ID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("%w: %s (constraint: %s)", ErrDuplicateKey, pqErr.Message, pqErr.Constraint)
		}
		return fmt.Errorf("%w: updating book %d: %v", ErrDatabaseError, book.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *bookRepository) SetApproval(executor SQLExecutor, bookID int64, approved bool) error {
	res, err := executor.Exec(
		`UPDATE books SET is_approved = $1, updated_at = $2 WHERE id = $3 AND deleted_at IS NULL`,
		approved, time.Now(), bookID,
	)
	if err != nil {
		return fmt.Errorf("%w: setting approval on book %d: %v", ErrDatabaseError, bookID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *bookRepository) SetSubcategories(executor SQLExecutor, bookID int64, subcategoryIDs []int64) error {
	if _, err := executor.Exec(`DELETE FROM book_subcategory_link WHERE book_id = $1`, bookID); err != nil {
		return fmt.Errorf("%w: clearing book subcategories: %v", ErrDatabaseError, err)
	}
	if len(subcategoryIDs) == 0 {
		return nil
	}
	_, err := executor.Exec(
		`INSERT INTO book_subcategory_link (book_id, subcategory_id)
		 SELECT $1, s.id FROM subcategories s WHERE s.id = ANY($2) AND s.deleted_at IS NULL`,
		bookID, pq.Array(subcategoryIDs),
	)
	if err != nil {
		return fmt.Errorf("%w: linking book subcategories: %v", ErrDatabaseError, err)
	}
	return nil
}

func (r *bookRepository) SoftDeleteBook(executor SQLExecutor, bookID int64) error {
	res, err := executor.Exec(
		`UPDATE books SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`,
		time.Now(), bookID,
	)
	if err != nil {
		return fmt.Errorf("%w: deleting book %d: %v", ErrDatabaseError, bookID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *bookRepository) ISBNExists(isbn string, excludeBookID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM books WHERE isbn = $1 AND id <> $2 AND deleted_at IS NULL)`,
		isbn, excludeBookID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: checking ISBN: %v", ErrDatabaseError, err)
	}
	return exists, nil
}
