package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"booknest_backend/internal/models"

	"github.com/lib/pq"
)

// RoleRepository defines role and permission database operations.
type RoleRepository interface {
	CreateRole(executor SQLExecutor, role *models.Role) (int64, error)
	FindRoleByID(roleID int64) (*models.Role, error)
	FindRoleByName(name string) (*models.Role, error)
	ListRoles() ([]models.Role, error)
	UpdateRole(executor SQLExecutor, role *models.Role) error
	SoftDeleteRole(executor SQLExecutor, roleID int64) error
	ReplaceRolePermissions(executor SQLExecutor, roleID int64, permissionIDs []int64) (int64, error)

	CreatePermission(executor SQLExecutor, perm *models.Permission) (int64, error)
	ListPermissions() ([]models.Permission, error)
	FindPermissionsByIDs(ids []int64) ([]models.Permission, error)
}

type roleRepository struct {
	db *sql.DB
}

// NewRoleRepository creates a new instance of RoleRepository.
func NewRoleRepository(db *sql.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) CreateRole(executor SQLExecutor, role *models.Role) (int64, error) {
	now := time.Now()
	var id int64
	err := executor.QueryRow(
		`INSERT INTO roles (name, description, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		role.Name, role.Description, now, now,
	).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateKey, pqErr.Message)
		}
		return 0, fmt.Errorf("%w: creating role: %v", ErrDatabaseError, err)
	}
	return id, nil
}

func (r *roleRepository) scanRole(row scanner) (*models.Role, error) {
	role := &models.Role{}
	var description sql.NullString
	var deletedAt sql.NullTime
	err := row.Scan(&role.ID, &role.Name, &description, &role.CreatedAt, &role.UpdatedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning role: %v", ErrDatabaseError, err)
	}
	if description.Valid {
		role.Description = &description.String
	}
	if deletedAt.Valid {
		role.DeletedAt = &deletedAt.Time
	}
	return role, nil
}

func (r *roleRepository) loadPermissions(role *models.Role) error {
	rows, err := r.db.Query(`
		SELECT p.id, p.code, p.name, p.description, p.created_at, p.updated_at
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.id`, role.ID)
	if err != nil {
		return fmt.Errorf("%w: loading permissions for role %d: %v", ErrDatabaseError, role.ID, err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return err
		}
		role.Permissions = append(role.Permissions, *p)
	}
	return rows.Err()
}

func (r *roleRepository) FindRoleByID(roleID int64) (*models.Role, error) {
	role, err := r.scanRole(r.db.QueryRow(
		`SELECT id, name, description, created_at, updated_at, deleted_at FROM roles WHERE id = $1 AND deleted_at IS NULL`,
		roleID,
	))
	if err != nil {
		return nil, err
	}
	if err := r.loadPermissions(role); err != nil {
		return nil, err
	}
	return role, nil
}

func (r *roleRepository) FindRoleByName(name string) (*models.Role, error) {
	role, err := r.scanRole(r.db.QueryRow(
		`SELECT id, name, description, created_at, updated_at, deleted_at FROM roles WHERE LOWER(name) = LOWER($1) AND deleted_at IS NULL`,
		name,
	))
	if err != nil {
		return nil, err
	}
	if err := r.loadPermissions(role); err != nil {
		return nil, err
	}
	return role, nil
}

func (r *roleRepository) ListRoles() ([]models.Role, error) {
	rows, err := r.db.Query(
		`SELECT id, name, description, created_at, updated_at, deleted_at FROM roles WHERE deleted_at IS NULL ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: listing roles: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		role, err := r.scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range roles {
		if err := r.loadPermissions(&roles[i]); err != nil {
			return nil, err
		}
	}
	return roles, nil
}

func (r *roleRepository) UpdateRole(executor SQLExecutor, role *models.Role) error {
	res, err := executor.Exec(
		`UPDATE roles SET name = $1, description = $2, updated_at = $3 WHERE id = $4 AND deleted_at IS NULL`,
		role.Name, role.Description, time.Now(), role.ID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, pqErr.Message)
		}
		return fmt.Errorf("%w: updating role %d: %v", ErrDatabaseError, role.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *roleRepository) SoftDeleteRole(executor SQLExecutor, roleID int64) error {
	res, err := executor.Exec(
		`UPDATE roles SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`,
		time.Now(), roleID,
	)
	if err != nil {
		return fmt.Errorf("%w: deleting role %d: %v", ErrDatabaseError, roleID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceRolePermissions swaps the role's permission set wholesale, returning
// how many permissions are now assigned. Callers run this inside a
// transaction so a failure between delete and insert leaves no partial state.
func (r *roleRepository) ReplaceRolePermissions(executor SQLExecutor, roleID int64, permissionIDs []int64) (int64, error) {
	if _, err := executor.Exec(`DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return 0, fmt.Errorf("%w: clearing role permissions: %v", ErrDatabaseError, err)
	}
	if len(permissionIDs) == 0 {
		return 0, nil
	}
	res, err := executor.Exec(
		`INSERT INTO role_permissions (role_id, permission_id, created_at)
		 SELECT $1, p.id, $2 FROM permissions p WHERE p.id = ANY($3)`,
		roleID, time.Now(), pq.Array(permissionIDs),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: assigning role permissions: %v", ErrDatabaseError, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func scanPermission(row scanner) (*models.Permission, error) {
	p := &models.Permission{}
	var code, description sql.NullString
	err := row.Scan(&p.ID, &code, &p.Name, &description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning permission: %v", ErrDatabaseError, err)
	}
	if code.Valid {
		p.Code = &code.String
	}
	if description.Valid {
		p.Description = &description.String
	}
	return p, nil
}

func (r *roleRepository) CreatePermission(executor SQLExecutor, perm *models.Permission) (int64, error) {
	now := time.Now()
	var id int64
	err := executor.QueryRow(
		`INSERT INTO permissions (code, name, description, created_at, updated_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		perm.Code, perm.Name, perm.Description, now, now,
	).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateKey, pqErr.Message)
		}
		return 0, fmt.Errorf("%w: creating permission: %v", ErrDatabaseError, err)
	}
	return id, nil
}

func (r *roleRepository) ListPermissions() ([]models.Permission, error) {
	rows, err := r.db.Query(
		`SELECT id, code, name, description, created_at, updated_at FROM permissions ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: listing permissions: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var perms []models.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, *p)
	}
	return perms, rows.Err()
}

func (r *roleRepository) FindPermissionsByIDs(ids []int64) ([]models.Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(
		`SELECT id, code, name, description, created_at, updated_at FROM permissions WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: finding permissions: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var perms []models.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, *p)
	}
	return perms, rows.Err()
}
