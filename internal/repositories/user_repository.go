package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"booknest_backend/internal/models"

	"github.com/lib/pq" // For pq.Error
)

// UserRepository defines the interface for user/identity database operations.
type UserRepository interface {
	CreateUser(executor SQLExecutor, user *models.User, hashedPassword string) (int64, error)
	FindUserByUsername(username string) (*models.User, string, error) // Returns User, HashedPassword, Error
	FindUserByEmail(email string) (*models.User, string, error)
	FindUserByID(userID int64) (*models.User, error)
	ListUsers(skip, limit int64) ([]models.User, error)
	UpdateUser(executor SQLExecutor, user *models.User) error
	UpdatePassword(executor SQLExecutor, userID int64, hashedPassword string) error
	SetOTP(executor SQLExecutor, userID int64, code string, expiresAt time.Time) error
	ClearOTP(executor SQLExecutor, userID int64) error
	SoftDeleteUser(executor SQLExecutor, userID int64) error
	UsernameExists(username string) (bool, error)
}

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userSelectColumns = `u.id, u.username, u.password_hash, u.email, u.full_name, u.status,
	       u.role_id, u.otp_code, u.otp_expires_at, u.date_joined, u.updated_at, u.deleted_at,
	       COALESCE(ro.name, '') AS role_name`

// CreateUser inserts a new user. Status defaults to Active when unset.
func (r *userRepository) CreateUser(executor SQLExecutor, user *models.User, hashedPassword string) (int64, error) {
	query := `INSERT INTO users (username, password_hash, email, full_name, status, role_id, date_joined, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id`

	now := time.Now()
	status := user.Status
	if status == "" {
		status = models.UserStatusActive
	}

	var userID int64
	err := executor.QueryRow(
		query,
		user.Username,
		hashedPassword,
		user.Email,
		user.FullName,
		status,
		user.RoleID,
		now,
		now,
	).Scan(&userID)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			if pqErr.Code.Name() == "unique_violation" {
				return 0, fmt.Errorf("%w: %s (constraint: %s)", ErrDuplicateKey, pqErr.Message, pqErr.Constraint)
			}
		}
		return 0, fmt.Errorf("%w: creating user: %v", ErrDatabaseError, err)
	}
	return userID, nil
}

func (r *userRepository) scanUser(row scanner) (*models.User, string, error) {
	user := &models.User{}
	var hashedPassword string
	var fullName, otpCode, roleName sql.NullString
	var otpExpires, deletedAt sql.NullTime

	err := row.Scan(
		&user.ID, &user.Username, &hashedPassword, &user.Email, &fullName, &user.Status,
		&user.RoleID, &otpCode, &otpExpires, &user.DateJoined, &user.UpdatedAt, &deletedAt,
		&roleName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("%w: scanning user: %v", ErrDatabaseError, err)
	}

	if fullName.Valid {
		user.FullName = &fullName.String
	}
	if otpCode.Valid {
		user.OTPCode = &otpCode.String
	}
	if otpExpires.Valid {
		user.OTPExpiresAt = &otpExpires.Time
	}
	if deletedAt.Valid {
		user.DeletedAt = &deletedAt.Time
	}
	if roleName.Valid && roleName.String != "" {
		user.Role = &models.Role{ID: user.RoleID, Name: roleName.String}
	}
	return user, hashedPassword, nil
}

// attachPermissions eagerly loads the permission set of the user's role so a
// resolved principal always carries its capability codes.
func (r *userRepository) attachPermissions(user *models.User) error {
	if user.Role == nil {
		return nil
	}
	query := `
		SELECT p.id, p.code, p.name, p.description, p.created_at, p.updated_at
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.id`

	rows, err := r.db.Query(query, user.Role.ID)
	if err != nil {
		return fmt.Errorf("%w: loading role permissions: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Permission
		var code, description sql.NullString
		if err := rows.Scan(&p.ID, &code, &p.Name, &description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return fmt.Errorf("%w: scanning permission: %v", ErrDatabaseError, err)
		}
		if code.Valid {
			p.Code = &code.String
		}
		if description.Valid {
			p.Description = &description.String
		}
		user.Role.Permissions = append(user.Role.Permissions, p)
	}
	return rows.Err()
}

// FindUserByUsername retrieves a user by username with role and permissions
// attached. It returns the user, their hashed password, and an error.
func (r *userRepository) FindUserByUsername(username string) (*models.User, string, error) {
	query := `
		SELECT ` + userSelectColumns + `
		FROM users u
		LEFT JOIN roles ro ON u.role_id = ro.id
		WHERE u.username = $1 AND u.deleted_at IS NULL`

	user, hash, err := r.scanUser(r.db.QueryRow(query, username))
	if err != nil {
		return nil, "", err
	}
	if err := r.attachPermissions(user); err != nil {
		return nil, "", err
	}
	return user, hash, nil
}

// FindUserByEmail retrieves a user by email with role and permissions attached.
func (r *userRepository) FindUserByEmail(email string) (*models.User, string, error) {
	query := `
		SELECT ` + userSelectColumns + `
		FROM users u
		LEFT JOIN roles ro ON u.role_id = ro.id
		WHERE u.email = $1 AND u.deleted_at IS NULL`

	user, hash, err := r.scanUser(r.db.QueryRow(query, email))
	if err != nil {
		return nil, "", err
	}
	if err := r.attachPermissions(user); err != nil {
		return nil, "", err
	}
	return user, hash, nil
}

// FindUserByID retrieves a user by ID with role and permissions attached.
// The password hash is not populated on the returned model.
func (r *userRepository) FindUserByID(userID int64) (*models.User, error) {
	query := `
		SELECT ` + userSelectColumns + `
		FROM users u
		LEFT JOIN roles ro ON u.role_id = ro.id
		WHERE u.id = $1 AND u.deleted_at IS NULL`

	user, _, err := r.scanUser(r.db.QueryRow(query, userID))
	if err != nil {
		return nil, err
	}
	if err := r.attachPermissions(user); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns active users ordered by id.
func (r *userRepository) ListUsers(skip, limit int64) ([]models.User, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT ` + userSelectColumns + `
		FROM users u
		LEFT JOIN roles ro ON u.role_id = ro.id
		WHERE u.deleted_at IS NULL
		ORDER BY u.id
		OFFSET $1 LIMIT $2`

	rows, err := r.db.Query(query, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: listing users: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, _, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// UpdateUser persists mutable profile fields and role assignment.
func (r *userRepository) UpdateUser(executor SQLExecutor, user *models.User) error {
	query := `UPDATE users
	          SET username = $1, email = $2, full_name = $3, status = $4, role_id = $5, updated_at = $6
	          WHERE id = $7 AND deleted_at IS NULL`

	res, err := executor.Exec(query, user.Username, user.Email, user.FullName, user.Status, user.RoleID, time.Now(), user.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("%w: %s (constraint: %s)", ErrDuplicateKey, pqErr.Message, pqErr.Constraint)
		}
		return fmt.Errorf("%w: updating user %d: %v", ErrDatabaseError, user.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the stored credential hash.
func (r *userRepository) UpdatePassword(executor SQLExecutor, userID int64, hashedPassword string) error {
	res, err := executor.Exec(
		`UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3 AND deleted_at IS NULL`,
		hashedPassword, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating password for user %d: %v", ErrDatabaseError, userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetOTP stores a one-time password code with its expiry.
func (r *userRepository) SetOTP(executor SQLExecutor, userID int64, code string, expiresAt time.Time) error {
	res, err := executor.Exec(
		`UPDATE users SET otp_code = $1, otp_expires_at = $2, updated_at = $3 WHERE id = $4 AND deleted_at IS NULL`,
		code, expiresAt, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("%w: setting OTP for user %d: %v", ErrDatabaseError, userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearOTP wipes the stored one-time password so it cannot be replayed.
func (r *userRepository) ClearOTP(executor SQLExecutor, userID int64) error {
	_, err := executor.Exec(
		`UPDATE users SET otp_code = NULL, otp_expires_at = NULL, updated_at = $1 WHERE id = $2`,
		time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("%w: clearing OTP for user %d: %v", ErrDatabaseError, userID, err)
	}
	return nil
}

// SoftDeleteUser marks the user deleted without removing the row.
func (r *userRepository) SoftDeleteUser(executor SQLExecutor, userID int64) error {
	res, err := executor.Exec(
		`UPDATE users SET status = $1, deleted_at = $2, updated_at = $2 WHERE id = $3 AND deleted_at IS NULL`,
		models.UserStatusDeleted, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("%w: deleting user %d: %v", ErrDatabaseError, userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UsernameExists reports whether an active user already holds the username.
func (r *userRepository) UsernameExists(username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 AND deleted_at IS NULL)`,
		username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: checking username: %v", ErrDatabaseError, err)
	}
	return exists, nil
}
